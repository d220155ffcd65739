package imap

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unimail/config"
	"unimail/driver"
	"unimail/models"
)

func TestBuildMessagePlainText(t *testing.T) {
	msg := &models.OutgoingMessage{
		To:      []models.Address{{Name: "Bob", Email: "bob@example.com"}},
		Subject: "hello",
		Text:    "plain body",
	}

	messageID, raw := buildMessage("alice@example.com", msg)
	body := string(raw)

	assert.True(t, strings.HasPrefix(messageID, "<"))
	assert.True(t, strings.HasSuffix(messageID, "@example.com>"))
	assert.Contains(t, body, "From: alice@example.com\r\n")
	assert.Contains(t, body, "To: Bob <bob@example.com>\r\n")
	assert.Contains(t, body, "Subject: hello\r\n")
	assert.Contains(t, body, "Message-ID: "+messageID)
	assert.Contains(t, body, "Content-Type: text/plain")
	assert.Contains(t, body, "plain body")
	assert.NotContains(t, body, "Bcc:")
}

func TestBuildMessageHTMLAlternative(t *testing.T) {
	msg := &models.OutgoingMessage{
		To:      []models.Address{{Email: "bob@example.com"}},
		Subject: "rich",
		Text:    "text version",
		HTML:    "<p>html version</p>",
	}

	_, raw := buildMessage("alice@example.com", msg)
	body := string(raw)

	assert.Contains(t, body, "multipart/alternative")
	assert.Contains(t, body, "text version")
	assert.Contains(t, body, "<p>html version</p>")
}

func TestBuildMessageThreadingHeaders(t *testing.T) {
	msg := &models.OutgoingMessage{
		To:         []models.Address{{Email: "bob@example.com"}},
		Subject:    "Re: hello",
		Text:       "reply",
		InReplyTo:  "<parent@example.com>",
		References: []string{"<root@example.com>", "<parent@example.com>"},
	}

	_, raw := buildMessage("alice@example.com", msg)
	body := string(raw)

	assert.Contains(t, body, "In-Reply-To: <parent@example.com>\r\n")
	assert.Contains(t, body, "References: <root@example.com> <parent@example.com>\r\n")
}

func TestBuildMessageAttachments(t *testing.T) {
	msg := &models.OutgoingMessage{
		To:      []models.Address{{Email: "bob@example.com"}},
		Subject: "files",
		Text:    "see attached",
		Attachments: []models.OutgoingAttachment{{
			Filename:    "notes.txt",
			ContentType: "text/plain",
			Data:        []byte("attachment content"),
		}},
	}

	_, raw := buildMessage("alice@example.com", msg)
	body := string(raw)

	assert.Contains(t, body, "multipart/mixed")
	assert.Contains(t, body, `filename="notes.txt"`)
	assert.Contains(t, body, "Content-Transfer-Encoding: base64")
}

func TestBuildMessageBccOnlyInEnvelope(t *testing.T) {
	msg := &models.OutgoingMessage{
		To:      []models.Address{{Email: "bob@example.com"}},
		Bcc:     []models.Address{{Email: "hidden@example.com"}},
		Subject: "secret",
		Text:    "body",
	}

	_, raw := buildMessage("alice@example.com", msg)
	assert.NotContains(t, string(raw), "hidden@example.com")

	addrs := recipients(msg)
	assert.Contains(t, addrs, "hidden@example.com")
	assert.Contains(t, addrs, "bob@example.com")
}

func TestSendWithInertCredentialsIsConfigError(t *testing.T) {
	// A malformed connection string never crashes construction; the
	// failure surfaces on first use as a configuration error.
	d := New(config.MailConfig{
		IMAPURL: "not a url at all",
		SMTPURL: "://also broken",
		Account: "alice@example.com",
	}, nil, nil)

	_, err := d.Create(context.Background(), &models.OutgoingMessage{
		To:   []models.Address{{Email: "bob@example.com"}},
		Text: "body",
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, driver.ErrConfig)
}

func TestDomainOf(t *testing.T) {
	assert.Equal(t, "example.com", domainOf("alice@example.com"))
	assert.Equal(t, "localhost", domainOf("no-at-sign"))
}
