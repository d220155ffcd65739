package models

import (
	"html/template"
	"time"
)

// Address is a single mail participant.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// Attachment represents a decoded email attachment.
type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int    `json:"size"`
	Content     []byte `json:"-"` // Excluded from JSON
}

// Email represents one message as decoded from any backend.
//
// Cc and Bcc are nil when the backend reports them as not applicable,
// and non-nil (possibly empty) when they were present on the message.
type Email struct {
	ID           string   `json:"id"`
	ConnectionID string   `json:"connection_id,omitempty"`
	Subject      string   `json:"subject"`
	LabelIDs     []string `json:"label_ids"`

	Sender Address   `json:"sender"`
	To     []Address `json:"to"`
	Cc     []Address `json:"cc,omitempty"`
	Bcc    []Address `json:"bcc,omitempty"`

	TLS                 bool   `json:"tls"`
	ListUnsubscribe     string `json:"list_unsubscribe,omitempty"`
	ListUnsubscribePost string `json:"list_unsubscribe_post,omitempty"`

	ReceivedOn time.Time `json:"received_on"`
	Unread     bool      `json:"unread"`

	Body          string        `json:"body"`
	ProcessedHTML template.HTML `json:"processed_html"`
	Snippet       string        `json:"snippet,omitempty"`

	Attachments    []Attachment `json:"attachments"`
	HasAttachments bool         `json:"has_attachments"`

	// Threading headers
	MessageID  string   `json:"message_id"`
	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`
	ThreadID   string   `json:"thread_id,omitempty"`

	IsDraft bool `json:"is_draft"`
}

// EnsureThreadID fills ThreadID with the message's own identifier when the
// backend has no native threading.
func (e *Email) EnsureThreadID() {
	if e.ThreadID == "" {
		e.ThreadID = e.ID
	}
}
