// Package imap implements the mail driver contract against a
// connection-oriented IMAP/SMTP backend. Each driver operation opens
// one exclusive session and closes it before returning; connections
// are never pooled or shared across operations.
package imap

import (
	"bytes"
	"crypto/tls"
	"fmt"
	"time"

	goimap "github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"

	"unimail/config"
	"unimail/driver"
	"unimail/utils"
)

// session wraps one exclusive connection to the mailbox protocol:
// connect, authenticate, issue one command sequence, disconnect.
type session struct {
	client *client.Client
	creds  config.IMAPCredentials
}

// dial opens and authenticates a new session. Inert credentials (from
// a malformed connection string) fail here with a configuration error,
// never at driver construction time.
func dial(creds config.IMAPCredentials, insecureTLS bool) (*session, error) {
	if !creds.Valid() {
		return nil, driver.ConfigError("imap.dial", "missing or malformed mailbox credentials", nil)
	}

	addr := fmt.Sprintf("%s:%d", creds.Host, creds.Port)
	tlsConfig := &tls.Config{
		ServerName:         creds.Host,
		InsecureSkipVerify: insecureTLS,
	}

	var c *client.Client
	var err error
	if creds.UseTLS {
		c, err = client.DialTLS(addr, tlsConfig)
	} else {
		c, err = client.Dial(addr)
	}
	if err != nil {
		return nil, driver.TransportError("imap.dial", fmt.Sprintf("connection to %s failed", addr), err)
	}

	if !creds.UseTLS {
		// Upgrade plain connections when the server offers it.
		if ok, _ := c.SupportStartTLS(); ok {
			if err := c.StartTLS(tlsConfig); err != nil {
				c.Logout()
				return nil, driver.TransportError("imap.starttls", "TLS negotiation failed", err)
			}
		}
	}

	if err := c.Login(creds.Username, creds.Password); err != nil {
		c.Logout()
		return nil, driver.ProtocolError("imap.login", "login rejected", err)
	}

	return &session{client: c, creds: creds}, nil
}

func (s *session) selectMailbox(name string, readOnly bool) (*goimap.MailboxStatus, error) {
	status, err := s.client.Select(name, readOnly)
	if err != nil {
		return nil, driver.ProtocolError("imap.select", fmt.Sprintf("cannot select mailbox %q", name), err)
	}
	return status, nil
}

// uidSearch runs a UID SEARCH in the currently selected mailbox.
func (s *session) uidSearch(criteria *goimap.SearchCriteria) ([]uint32, error) {
	uids, err := s.client.UidSearch(criteria)
	if err != nil {
		return nil, driver.ProtocolError("imap.search", "search rejected", err)
	}
	return uids, nil
}

// listMailboxes returns every mailbox name visible to the account.
func (s *session) listMailboxes() ([]string, error) {
	mailboxChan := make(chan *goimap.MailboxInfo, 10)
	done := make(chan error, 1)

	go func() {
		done <- s.client.List("", "*", mailboxChan)
	}()

	var names []string
	for mb := range mailboxChan {
		names = append(names, mb.Name)
	}

	if err := <-done; err != nil {
		return nil, driver.ProtocolError("imap.list", "mailbox listing failed", err)
	}

	return names, nil
}

// status fetches message counts for one mailbox without selecting it.
func (s *session) status(mailbox string) (*goimap.MailboxStatus, error) {
	status, err := s.client.Status(mailbox, []goimap.StatusItem{goimap.StatusMessages, goimap.StatusUnseen})
	if err != nil {
		return nil, driver.ProtocolError("imap.status", fmt.Sprintf("status of mailbox %q failed", mailbox), err)
	}
	return status, nil
}

// storeFlags applies a flag operation to a UID set in the currently
// selected mailbox. The silent variant is used so the server does not
// stream back updated flags.
func (s *session) storeFlags(uids []uint32, op goimap.FlagsOp, flags ...string) error {
	seqSet := new(goimap.SeqSet)
	seqSet.AddNum(uids...)

	item := goimap.FormatFlagsOp(op, true)
	values := make([]interface{}, len(flags))
	for i, f := range flags {
		values[i] = f
	}

	if err := s.client.UidStore(seqSet, item, values, nil); err != nil {
		return driver.ProtocolError("imap.store", "flag update rejected", err)
	}
	return nil
}

// appendSeen re-injects a raw message into a mailbox, flagged as
// already read. Used for best-effort Sent-folder archival after a
// successful submit.
func (s *session) appendSeen(mailbox string, raw []byte) error {
	err := s.client.Append(mailbox, []string{goimap.SeenFlag}, time.Now(), bytes.NewReader(raw))
	if err != nil {
		return driver.ProtocolError("imap.append", fmt.Sprintf("append to mailbox %q rejected", mailbox), err)
	}
	return nil
}

func (s *session) expunge() error {
	if err := s.client.Expunge(nil); err != nil {
		return driver.ProtocolError("imap.expunge", "expunge rejected", err)
	}
	return nil
}

// close tears the session down. Logout failures are logged, not
// surfaced: the command sequence has already completed by then.
func (s *session) close() {
	if err := s.client.Logout(); err != nil {
		utils.Log.Warn("imap logout: %v", err)
	}
}
