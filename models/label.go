package models

// LabelType discriminates backend-defined from user-defined labels.
type LabelType string

const (
	LabelTypeSystem LabelType = "system"
	LabelTypeUser   LabelType = "user"
)

// LabelColor is an optional background/text color pair.
type LabelColor struct {
	BackgroundColor string `json:"background_color"`
	TextColor       string `json:"text_color"`
}

// Label represents an email label or, for folder-based backends, a mailbox.
type Label struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Type   LabelType   `json:"type"`
	Color  *LabelColor `json:"color,omitempty"`
	Labels []Label     `json:"labels,omitempty"` // child labels
	Count  *uint32     `json:"count,omitempty"`
}
