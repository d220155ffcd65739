package models

// OutgoingAttachment is a file attached to a message being composed.
type OutgoingAttachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"data"`
}

// OutgoingMessage is a message to be dispatched through a backend.
type OutgoingMessage struct {
	To      []Address `json:"to"`
	Cc      []Address `json:"cc,omitempty"`
	Bcc     []Address `json:"bcc,omitempty"`
	Subject string    `json:"subject"`

	Text string `json:"text,omitempty"`
	HTML string `json:"html,omitempty"`

	InReplyTo  string   `json:"in_reply_to,omitempty"`
	References []string `json:"references,omitempty"`

	Attachments []OutgoingAttachment `json:"attachments,omitempty"`
}

// UserInfo describes the account behind a driver instance.
type UserInfo struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Photo   string `json:"photo,omitempty"`
}

// Alias is one sending identity of the account.
type Alias struct {
	Email     string `json:"email"`
	Name      string `json:"name,omitempty"`
	IsPrimary bool   `json:"is_primary"`
}
