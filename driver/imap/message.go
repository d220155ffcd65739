package imap

import (
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-message/mail"

	// Registers decoders for the charsets found in real-world mail.
	_ "github.com/emersion/go-message/charset"

	"unimail/driver"
	"unimail/models"
	"unimail/utils"
)

// formatUID builds the canonical identifier of one message: the
// mailbox it lives in plus its UID. Thread identifiers equal message
// identifiers for this backend.
func formatUID(mailbox string, uid uint32) string {
	return fmt.Sprintf("%s:%d", mailbox, uid)
}

// splitUID is the inverse of formatUID. Identifiers without a mailbox
// part refer to the primary mailbox.
func splitUID(id, defaultMailbox string) (string, uint32, error) {
	mailbox := defaultMailbox
	uidStr := id

	if idx := strings.LastIndex(id, ":"); idx >= 0 {
		mailbox = id[:idx]
		uidStr = id[idx+1:]
	}

	uid, err := strconv.ParseUint(uidStr, 10, 32)
	if err != nil || mailbox == "" {
		return "", 0, driver.NotFoundError("imap.id", fmt.Sprintf("invalid message id %q", id))
	}

	return mailbox, uint32(uid), nil
}

// decodeMessage turns one fetched protocol message into the canonical
// model: envelope, flags, MIME body walk, attachments, threading
// headers. Runs concurrently with other decodes of the same fetch.
func decodeMessage(msg *goimap.Message, section *goimap.BodySectionName, mailbox string, secure bool) (models.Email, error) {
	email := models.Email{
		ID:       formatUID(mailbox, msg.Uid),
		Unread:   true,
		TLS:      secure,
		LabelIDs: []string{mailbox},
	}

	for _, flag := range msg.Flags {
		switch flag {
		case goimap.SeenFlag:
			email.Unread = false
		case goimap.DraftFlag:
			email.IsDraft = true
		case goimap.FlaggedFlag:
			email.LabelIDs = append(email.LabelIDs, "STARRED")
		case goimap.AnsweredFlag:
			email.LabelIDs = append(email.LabelIDs, "ANSWERED")
		}
	}

	if env := msg.Envelope; env != nil {
		email.Subject = env.Subject
		email.ReceivedOn = env.Date
		email.MessageID = env.MessageId
		email.InReplyTo = env.InReplyTo

		if len(env.From) > 0 && env.From[0] != nil {
			email.Sender = models.Address{
				Name:  env.From[0].PersonalName,
				Email: env.From[0].Address(),
			}
		}

		email.To = convertAddresses(env.To)
		email.Cc = convertAddresses(env.Cc)
		email.Bcc = convertAddresses(env.Bcc)
	}

	r := msg.GetBody(section)
	if r == nil {
		return email, driver.DecodeError("imap.decode", "no body stream for message", nil)
	}

	mr, err := mail.CreateReader(r)
	if err != nil {
		return email, driver.DecodeError("imap.decode", "unparseable message body", err)
	}

	header := mr.Header
	email.ListUnsubscribe = header.Get("List-Unsubscribe")
	email.ListUnsubscribePost = header.Get("List-Unsubscribe-Post")
	if refs := header.Get("References"); refs != "" {
		email.References = strings.Fields(refs)
	}
	if email.MessageID == "" {
		email.MessageID = header.Get("Message-Id")
	}

	var textBody, htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			utils.Log.Warn("skipping broken part of message %s: %v", email.ID, err)
			continue
		}

		switch h := p.Header.(type) {
		case *mail.InlineHeader:
			ct, _, _ := h.ContentType()
			content, err := io.ReadAll(p.Body)
			if err != nil {
				return email, driver.DecodeError("imap.decode", "reading message part failed", err)
			}
			switch ct {
			case "text/plain":
				textBody = string(content)
			case "text/html":
				htmlBody = string(content)
			}

		case *mail.AttachmentHeader:
			filename, _ := h.Filename()
			ct, _, _ := h.ContentType()
			content, err := io.ReadAll(p.Body)
			if err != nil {
				utils.Log.Warn("skipping unreadable attachment of message %s: %v", email.ID, err)
				continue
			}
			email.Attachments = append(email.Attachments, models.Attachment{
				Filename:    filename,
				ContentType: ct,
				Size:        len(content),
				Content:     content,
			})
		}
	}
	email.HasAttachments = len(email.Attachments) > 0

	// Raw body prefers plain text; the processed body is sanitized
	// HTML ready for rendering.
	switch {
	case textBody != "":
		email.Body = textBody
	case htmlBody != "":
		email.Body = utils.HTMLToText(htmlBody)
	}
	if htmlBody != "" {
		email.ProcessedHTML = template.HTML(utils.SanitizeHTML(htmlBody))
	}
	email.Snippet = utils.CreatePreview(email.Body)

	email.EnsureThreadID()
	return email, nil
}

func convertAddresses(addrs []*goimap.Address) []models.Address {
	if addrs == nil {
		return nil
	}
	out := make([]models.Address, 0, len(addrs))
	for _, a := range addrs {
		if a == nil {
			continue
		}
		out = append(out, models.Address{
			Name:  a.PersonalName,
			Email: a.Address(),
		})
	}
	return out
}
