package models

import "time"

// Draft is a locally stored, not yet dispatched message. The mailbox
// protocol backend has no server-side drafts, so drafts live in local
// storage until sent.
type Draft struct {
	ID        string    `json:"id"`
	To        []Address `json:"to"`
	Cc        []Address `json:"cc,omitempty"`
	Bcc       []Address `json:"bcc,omitempty"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	IsHTML    bool      `json:"is_html"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ToOutgoing converts the draft into a dispatchable message.
func (d *Draft) ToOutgoing() *OutgoingMessage {
	msg := &OutgoingMessage{
		To:      d.To,
		Cc:      d.Cc,
		Bcc:     d.Bcc,
		Subject: d.Subject,
	}
	if d.IsHTML {
		msg.HTML = d.Body
	} else {
		msg.Text = d.Body
	}
	return msg
}
