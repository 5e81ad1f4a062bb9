package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"notesync/internal/document/model"
	"notesync/internal/document/repository"
	"notesync/internal/vault"
	"notesync/pkg/logger"
)

// MaxContentSize bounds the plaintext of a note.
const MaxContentSize = 1 << 20

var (
	ErrNotFound = errors.New("note not found")
	ErrTooLarge = errors.New("note content too large")
)

// KeySource resolves the data key that seals a user's notes.
type KeySource interface {
	DataKey(ctx context.Context, username string) ([]byte, error)
}

// Notifier receives a change after every successful write.
type Notifier interface {
	Notify(change model.Change)
}

type DocumentService struct {
	Repo *repository.DocumentRepository
	Keys KeySource
	Hub  Notifier
	Now  func() time.Time
}

func NewDocumentService(repo *repository.DocumentRepository, keys KeySource, hub Notifier) *DocumentService {
	return &DocumentService{Repo: repo, Keys: keys, Hub: hub, Now: time.Now}
}

func (s *DocumentService) List(ctx context.Context, owner string) ([]model.Note, error) {
	recs, err := s.Repo.ListByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	notes := make([]model.Note, 0, len(recs))
	if len(recs) == 0 {
		return notes, nil
	}

	key, err := s.Keys.DataKey(ctx, owner)
	if err != nil {
		return nil, err
	}
	for _, rec := range recs {
		content, err := vault.Open(key, rec.Nonce, rec.Content)
		if err != nil {
			logger.Sugar.Errorf("Failed to open note %s: %v", rec.ID, err)
			return nil, err
		}
		notes = append(notes, model.Note{
			ID:       rec.ID,
			Owner:    rec.Owner,
			Content:  string(content),
			Created:  rec.Created,
			Modified: rec.Modified,
		})
	}
	return notes, nil
}

// Create stores content as a new note and returns its id.
func (s *DocumentService) Create(ctx context.Context, owner, content string) (string, error) {
	if len(content) > MaxContentSize {
		return "", ErrTooLarge
	}
	sealed, nonce, err := s.seal(ctx, owner, content)
	if err != nil {
		return "", err
	}

	now := s.Now().Unix()
	id := uuid.New().String()
	err = s.Repo.Create(ctx, model.Record{
		ID:       id,
		Owner:    owner,
		Content:  sealed,
		Nonce:    nonce,
		Created:  now,
		Modified: now,
	})
	if err != nil {
		return "", err
	}

	s.notify(model.NoteCreated, id, owner)
	return id, nil
}

// Update replaces the content of note id. Notes that do not exist or belong
// to someone else are reported as ErrNotFound.
func (s *DocumentService) Update(ctx context.Context, owner, id, content string) error {
	if !validID(id) {
		return ErrNotFound
	}
	if len(content) > MaxContentSize {
		return ErrTooLarge
	}
	sealed, nonce, err := s.seal(ctx, owner, content)
	if err != nil {
		return err
	}

	n, err := s.Repo.Update(ctx, model.Record{
		ID:       id,
		Owner:    owner,
		Content:  sealed,
		Nonce:    nonce,
		Modified: s.Now().Unix(),
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	s.notify(model.NoteUpdated, id, owner)
	return nil
}

func (s *DocumentService) Delete(ctx context.Context, owner, id string) error {
	if !validID(id) {
		return ErrNotFound
	}
	n, err := s.Repo.Delete(ctx, id, owner)
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}

	s.notify(model.NoteDeleted, id, owner)
	return nil
}

func (s *DocumentService) seal(ctx context.Context, owner, content string) ([]byte, []byte, error) {
	key, err := s.Keys.DataKey(ctx, owner)
	if err != nil {
		return nil, nil, err
	}
	return vault.Seal(key, []byte(content))
}

func (s *DocumentService) notify(kind, id, owner string) {
	if s.Hub == nil {
		return
	}
	s.Hub.Notify(model.Change{Type: kind, NoteID: id, Owner: owner})
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
