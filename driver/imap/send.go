package imap

import (
	"bytes"
	"crypto/tls"
	"encoding/base64"
	"fmt"
	"net/smtp"
	"strings"
	"time"

	"github.com/google/uuid"

	"unimail/config"
	"unimail/driver"
	"unimail/models"
)

// smtpSender submits one composed message through a transient
// outbound-mail session. It is a separate system from the mailbox
// store: delivery and Sent-folder archival have no transactional link.
type smtpSender struct {
	creds       config.SMTPCredentials
	insecureTLS bool
	from        string
}

func newSMTPSender(creds config.SMTPCredentials, insecureTLS bool, from string) *smtpSender {
	return &smtpSender{creds: creds, insecureTLS: insecureTLS, from: from}
}

// send dispatches the message and returns its Message-ID together with
// the exact raw wire form that went out, so the caller can re-inject
// it into the Sent mailbox.
func (s *smtpSender) send(msg *models.OutgoingMessage) (string, []byte, error) {
	if !s.creds.Valid() {
		return "", nil, driver.ConfigError("smtp.dial", "missing or malformed outbound-mail credentials", nil)
	}
	if len(msg.To) == 0 {
		return "", nil, driver.ConfigError("smtp.send", "message has no recipients", nil)
	}

	messageID, raw := buildMessage(s.from, msg)

	client, err := s.connect()
	if err != nil {
		return "", nil, err
	}
	defer client.Close()

	auth := smtp.PlainAuth("", s.creds.Username, s.creds.Password, s.creds.Host)
	if err := client.Auth(auth); err != nil {
		return "", nil, driver.ProtocolError("smtp.auth", "authentication rejected", err)
	}

	if err := client.Mail(s.from); err != nil {
		return "", nil, driver.ProtocolError("smtp.mail", "sender rejected", err)
	}
	for _, addr := range recipients(msg) {
		if err := client.Rcpt(addr); err != nil {
			return "", nil, driver.ProtocolError("smtp.rcpt", fmt.Sprintf("recipient %s rejected", addr), err)
		}
	}

	w, err := client.Data()
	if err != nil {
		return "", nil, driver.ProtocolError("smtp.data", "data command rejected", err)
	}
	if _, err := w.Write(raw); err != nil {
		w.Close()
		return "", nil, driver.TransportError("smtp.data", "writing message failed", err)
	}
	if err := w.Close(); err != nil {
		return "", nil, driver.ProtocolError("smtp.data", "message rejected", err)
	}

	if err := client.Quit(); err != nil {
		// Delivery already succeeded; a failed QUIT is not an error.
		return messageID, raw, nil
	}

	return messageID, raw, nil
}

func (s *smtpSender) connect() (*smtp.Client, error) {
	addr := fmt.Sprintf("%s:%d", s.creds.Host, s.creds.Port)
	tlsConfig := &tls.Config{
		ServerName:         s.creds.Host,
		InsecureSkipVerify: s.insecureTLS,
	}

	if s.creds.UseTLS {
		conn, err := tls.Dial("tcp", addr, tlsConfig)
		if err != nil {
			return nil, driver.TransportError("smtp.dial", fmt.Sprintf("connection to %s failed", addr), err)
		}
		client, err := smtp.NewClient(conn, s.creds.Host)
		if err != nil {
			conn.Close()
			return nil, driver.TransportError("smtp.dial", "handshake failed", err)
		}
		return client, nil
	}

	client, err := smtp.Dial(addr)
	if err != nil {
		return nil, driver.TransportError("smtp.dial", fmt.Sprintf("connection to %s failed", addr), err)
	}
	if err := client.Hello(domainOf(s.from)); err != nil {
		client.Close()
		return nil, driver.ProtocolError("smtp.hello", "greeting rejected", err)
	}
	if err := client.StartTLS(tlsConfig); err != nil {
		client.Close()
		return nil, driver.TransportError("smtp.starttls", "TLS negotiation failed", err)
	}
	return client, nil
}

func recipients(msg *models.OutgoingMessage) []string {
	var addrs []string
	for _, set := range [][]models.Address{msg.To, msg.Cc, msg.Bcc} {
		for _, a := range set {
			if a.Email != "" {
				addrs = append(addrs, a.Email)
			}
		}
	}
	return addrs
}

// buildMessage serializes the outgoing message to its raw wire form
// and returns the generated Message-ID. Bcc recipients are addressed
// at the envelope, never in the headers.
func buildMessage(from string, msg *models.OutgoingMessage) (string, []byte) {
	messageID := fmt.Sprintf("<%s@%s>", uuid.New().String(), domainOf(from))

	var buf bytes.Buffer
	writeHeader := func(key, value string) {
		if value != "" {
			fmt.Fprintf(&buf, "%s: %s\r\n", key, value)
		}
	}

	writeHeader("Date", time.Now().Format(time.RFC1123Z))
	writeHeader("From", from)
	writeHeader("To", formatAddressList(msg.To))
	writeHeader("Cc", formatAddressList(msg.Cc))
	writeHeader("Subject", msg.Subject)
	writeHeader("Message-ID", messageID)
	writeHeader("In-Reply-To", msg.InReplyTo)
	writeHeader("References", strings.Join(msg.References, " "))
	writeHeader("MIME-Version", "1.0")

	mixedBoundary := "mixed-" + uuid.New().String()
	altBoundary := "alt-" + uuid.New().String()

	hasAttachments := len(msg.Attachments) > 0
	hasHTML := msg.HTML != ""

	switch {
	case hasAttachments:
		writeHeader("Content-Type", fmt.Sprintf("multipart/mixed; boundary=%q", mixedBoundary))
		buf.WriteString("\r\n")
		fmt.Fprintf(&buf, "--%s\r\n", mixedBoundary)
		if hasHTML {
			fmt.Fprintf(&buf, "Content-Type: multipart/alternative; boundary=%q\r\n\r\n", altBoundary)
			writeAlternative(&buf, msg, altBoundary)
		} else {
			fmt.Fprintf(&buf, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n", msg.Text)
		}
		for _, att := range msg.Attachments {
			writeAttachment(&buf, mixedBoundary, att)
		}
		fmt.Fprintf(&buf, "--%s--\r\n", mixedBoundary)

	case hasHTML:
		writeHeader("Content-Type", fmt.Sprintf("multipart/alternative; boundary=%q", altBoundary))
		buf.WriteString("\r\n")
		writeAlternative(&buf, msg, altBoundary)

	default:
		writeHeader("Content-Type", "text/plain; charset=\"utf-8\"")
		buf.WriteString("\r\n")
		buf.WriteString(msg.Text)
		buf.WriteString("\r\n")
	}

	return messageID, buf.Bytes()
}

func writeAlternative(buf *bytes.Buffer, msg *models.OutgoingMessage, boundary string) {
	text := msg.Text
	if text == "" {
		text = htmlFallbackText(msg.HTML)
	}

	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: text/plain; charset=\"utf-8\"\r\n\r\n%s\r\n", text)
	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: text/html; charset=\"utf-8\"\r\n\r\n%s\r\n", msg.HTML)
	fmt.Fprintf(buf, "--%s--\r\n", boundary)
}

func writeAttachment(buf *bytes.Buffer, boundary string, att models.OutgoingAttachment) {
	contentType := att.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	fmt.Fprintf(buf, "--%s\r\n", boundary)
	fmt.Fprintf(buf, "Content-Type: %s; name=%q\r\n", contentType, att.Filename)
	fmt.Fprintf(buf, "Content-Disposition: attachment; filename=%q\r\n", att.Filename)
	fmt.Fprintf(buf, "Content-Transfer-Encoding: base64\r\n\r\n")

	b64 := base64.StdEncoding.EncodeToString(att.Data)
	for i := 0; i < len(b64); i += 76 {
		end := i + 76
		if end > len(b64) {
			end = len(b64)
		}
		fmt.Fprintf(buf, "%s\r\n", b64[i:end])
	}
}

func htmlFallbackText(html string) string {
	return strings.ReplaceAll(strings.ReplaceAll(html, "<br>", "\n"), "<div>", "\n")
}

func formatAddressList(addrs []models.Address) string {
	parts := make([]string, 0, len(addrs))
	for _, a := range addrs {
		if a.Email == "" {
			continue
		}
		if a.Name != "" {
			parts = append(parts, fmt.Sprintf("%s <%s>", a.Name, a.Email))
		} else {
			parts = append(parts, a.Email)
		}
	}
	return strings.Join(parts, ", ")
}

func domainOf(email string) string {
	if idx := strings.LastIndex(email, "@"); idx >= 0 && idx < len(email)-1 {
		return email[idx+1:]
	}
	return "localhost"
}
