package imap

import (
	"strings"

	"unimail/models"
)

// Logical folder names callers use regardless of backend.
const (
	FolderInbox   = "inbox"
	FolderSent    = "sent"
	FolderDrafts  = "drafts"
	FolderSpam    = "spam"
	FolderTrash   = "trash"
	FolderArchive = "archive"
)

var defaultMailboxes = map[string]string{
	FolderInbox:   "INBOX",
	FolderSent:    "Sent",
	FolderDrafts:  "Drafts",
	FolderSpam:    "Spam",
	FolderTrash:   "Trash",
	FolderArchive: "Archive",
}

// FolderMapper translates logical folder names into the backend's
// actual mailbox names. The table is fixed at construction; some
// deployments rename mailboxes (spam -> "Junk") and override entries
// through configuration instead of code changes.
type FolderMapper struct {
	table map[string]string
}

func NewFolderMapper(overrides map[string]string) *FolderMapper {
	table := make(map[string]string, len(defaultMailboxes))
	for k, v := range defaultMailboxes {
		table[k] = v
	}
	for k, v := range overrides {
		if v != "" {
			table[strings.ToLower(k)] = v
		}
	}
	return &FolderMapper{table: table}
}

// Resolve maps a logical folder name onto a mailbox name. Unknown
// names fall back to the primary mailbox. Pure: repeated calls with
// the same input always yield the same output.
func (m *FolderMapper) Resolve(logical string) string {
	if name, ok := m.table[strings.ToLower(strings.TrimSpace(logical))]; ok {
		return name
	}
	return m.table[FolderInbox]
}

// labelForMailbox synthesizes a label from a mailbox name. The label
// identifier equals the mailbox name and the type is always system;
// the protocol has no color or hierarchy data to carry.
func labelForMailbox(name string, count *uint32) models.Label {
	return models.Label{
		ID:    name,
		Name:  name,
		Type:  models.LabelTypeSystem,
		Count: count,
	}
}

// defaultLabels is the fixed fallback set reported when the backend's
// mailbox listing fails.
func (m *FolderMapper) defaultLabels() []models.Label {
	labels := make([]models.Label, 0, 4)
	for _, logical := range []string{FolderInbox, FolderSent, FolderSpam, FolderTrash} {
		labels = append(labels, labelForMailbox(m.Resolve(logical), nil))
	}
	return labels
}
