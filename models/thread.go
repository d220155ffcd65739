package models

// Thread aggregates messages sharing a thread identifier.
type Thread struct {
	ID           string   `json:"id"`
	Messages     []Email  `json:"messages"`
	Latest       *Email   `json:"latest,omitempty"`
	HasUnread    bool     `json:"has_unread"`
	TotalReplies int      `json:"total_replies"`
	Labels       []string `json:"labels"`
}

// NewThread builds a thread summary from an ordered message list.
// The last message is taken as the latest.
func NewThread(id string, messages []Email) *Thread {
	t := &Thread{
		ID:       id,
		Messages: messages,
	}

	labels := map[string]bool{}
	for i := range messages {
		if messages[i].Unread {
			t.HasUnread = true
		}
		for _, l := range messages[i].LabelIDs {
			if !labels[l] {
				labels[l] = true
				t.Labels = append(t.Labels, l)
			}
		}
	}

	if n := len(messages); n > 0 {
		t.Latest = &messages[n-1]
		t.TotalReplies = n - 1
	}

	return t
}
