package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"go.etcd.io/bbolt"

	"unimail/driver"
	"unimail/models"
)

// DraftStore persists drafts locally. The mailbox protocol backend has
// no server-side drafts, so this store is the drafts backend for it.
type DraftStore struct {
	db *bbolt.DB
}

func NewDraftStore(db *bbolt.DB) *DraftStore {
	return &DraftStore{db: db}
}

// Save stores or updates a draft, assigning an identifier on first
// save, and returns the stored draft.
func (s *DraftStore) Save(draft *models.Draft) (*models.Draft, error) {
	now := time.Now()
	if draft.ID == "" {
		draft.ID = uuid.New().String()
		draft.CreatedAt = now
	}
	draft.UpdatedAt = now

	data, err := json.Marshal(draft)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal draft: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).Put([]byte(draft.ID), data)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write draft: %w", err)
	}

	return draft, nil
}

// Get retrieves one draft by id.
func (s *DraftStore) Get(id string) (*models.Draft, error) {
	var draft models.Draft
	found := false

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(draftsBucket)).Get([]byte(id))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &draft)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read draft: %w", err)
	}
	if !found {
		return nil, driver.NotFoundError("drafts.get", fmt.Sprintf("draft %s not found", id))
	}

	return &draft, nil
}

// List returns all drafts, newest first.
func (s *DraftStore) List() ([]*models.Draft, error) {
	var drafts []*models.Draft

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(draftsBucket)).ForEach(func(_, data []byte) error {
			var draft models.Draft
			if err := json.Unmarshal(data, &draft); err != nil {
				// Skip corrupt entries instead of failing the listing.
				return nil
			}
			drafts = append(drafts, &draft)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read drafts: %w", err)
	}

	sort.Slice(drafts, func(i, j int) bool {
		return drafts[i].UpdatedAt.After(drafts[j].UpdatedAt)
	})

	return drafts, nil
}

// Delete removes a draft.
func (s *DraftStore) Delete(id string) error {
	found := false

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(draftsBucket))
		if bucket.Get([]byte(id)) == nil {
			return nil
		}
		found = true
		return bucket.Delete([]byte(id))
	})
	if err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}
	if !found {
		return driver.NotFoundError("drafts.delete", fmt.Sprintf("draft %s not found", id))
	}

	return nil
}
