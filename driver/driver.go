// Package driver defines the capability contract every mail backend
// satisfies. Callers above this layer talk to a Driver and never know
// which backend answered.
package driver

import (
	"context"

	"unimail/models"
)

// Capabilities declares which optional parts of the contract a backend
// genuinely implements. Operations outside a backend's capabilities
// return an explicit unsupported result, never a silent no-op.
type Capabilities struct {
	Labels       bool `json:"labels"`
	ServerDrafts bool `json:"server_drafts"`
	History      bool `json:"history"`
	Aliases      bool `json:"aliases"`
}

// ThreadStub is a list entry: a thread identifier plus an opaque
// history marker for the backend that produced it.
type ThreadStub struct {
	ID        string `json:"id"`
	HistoryID string `json:"history_id"`
}

// ListResult is one page of thread stubs.
type ListResult struct {
	Threads       []ThreadStub `json:"threads"`
	NextPageToken string       `json:"next_page_token,omitempty"`
}

// ListOptions narrows a List call. Folder is a logical name (inbox,
// sent, drafts, spam, trash, archive); adapters translate it before
// contacting the backend.
type ListOptions struct {
	Folder     string   `json:"folder"`
	Query      string   `json:"query,omitempty"`
	MaxResults uint32   `json:"max_results,omitempty"`
	LabelIDs   []string `json:"label_ids,omitempty"`
	PageToken  string   `json:"page_token,omitempty"`
}

// LabelChanges is a bulk label mutation.
type LabelChanges struct {
	AddLabels    []string `json:"add_labels"`
	RemoveLabels []string `json:"remove_labels"`
}

// Result reports the outcome of an operation that may succeed with
// non-fatal warnings, such as a send whose Sent-folder archival failed
// or a label mutation the backend cannot natively perform.
type Result struct {
	ID       string   `json:"id,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Warn appends a non-fatal warning.
func (r *Result) Warn(msg string) { r.Warnings = append(r.Warnings, msg) }

// Driver is the mail access contract. One instance is created per
// (provider, credentials) pair; its methods may run concurrently and
// share no mutable state beyond the credentials they were built from.
//
// Every method reports failure through a *Error so callers can
// distinguish configuration, transport, protocol, decode, not-found
// and unsupported conditions.
type Driver interface {
	// Capabilities reports which optional operations this backend
	// genuinely implements.
	Capabilities() Capabilities

	// List returns up to MaxResults thread stubs from the given
	// logical folder, most recently indexed first.
	List(ctx context.Context, opts ListOptions) (*ListResult, error)

	// Get resolves one thread fully, bodies ready for rendering.
	Get(ctx context.Context, id string) (*models.Thread, error)

	// Create dispatches a message. A failed post-send side effect
	// (such as Sent-folder archival) surfaces as a warning, never as
	// an error.
	Create(ctx context.Context, msg *models.OutgoingMessage) (*Result, error)

	// SendDraft dispatches a previously stored draft.
	SendDraft(ctx context.Context, draftID string, msg *models.OutgoingMessage) (*Result, error)

	// MarkAsRead and MarkAsUnread are idempotent bulk state changes.
	MarkAsRead(ctx context.Context, ids []string) error
	MarkAsUnread(ctx context.Context, ids []string) error

	// ModifyLabels applies a bulk label mutation. Backends without
	// native labels report the gap through the result's warnings.
	ModifyLabels(ctx context.Context, ids []string, changes LabelChanges) (*Result, error)

	// Label CRUD.
	GetUserLabels(ctx context.Context) ([]models.Label, error)
	GetLabel(ctx context.Context, id string) (*models.Label, error)
	CreateLabel(ctx context.Context, label models.Label) (*models.Label, error)
	UpdateLabel(ctx context.Context, id string, label models.Label) (*models.Label, error)
	DeleteLabel(ctx context.Context, id string) error

	// Account-level operations.
	GetUserInfo(ctx context.Context) (*models.UserInfo, error)
	GetEmailAliases(ctx context.Context) ([]models.Alias, error)
	RevokeToken(ctx context.Context, token string) (*Result, error)
	DeleteAllSpam(ctx context.Context) (*Result, error)
}
