package service

import (
	"bytes"
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/document/model"
	"notesync/internal/document/repository"
	"notesync/internal/vault"
)

type staticKeys struct{ key []byte }

func (k staticKeys) DataKey(context.Context, string) ([]byte, error) { return k.key, nil }

type recorder struct {
	mu      sync.Mutex
	changes []model.Change
}

func (r *recorder) Notify(c model.Change) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, c)
}

var (
	key = bytes.Repeat([]byte{5}, vault.KeySize)
	now = time.Unix(1700000000, 0)
)

func newService(t *testing.T) (*DocumentService, sqlmock.Sqlmock, *recorder) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	hub := &recorder{}
	s := NewDocumentService(repository.NewDocumentRepository(db), staticKeys{key}, hub)
	s.Now = func() time.Time { return now }
	return s, mock, hub
}

func sealed(t *testing.T, content string) ([]byte, []byte) {
	t.Helper()
	ct, nonce, err := vault.Seal(key, []byte(content))
	require.NoError(t, err)
	return ct, nonce
}

func TestCreateSealsAndNotifies(t *testing.T) {
	s, mock, hub := newService(t)

	mock.ExpectExec("INSERT INTO notes").
		WithArgs(sqlmock.AnyArg(), "alice", sqlmock.AnyArg(), sqlmock.AnyArg(), now.Unix(), now.Unix()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	id, err := s.Create(context.Background(), "alice", "Grocery\nmilk")
	require.NoError(t, err)
	_, err = uuid.Parse(id)
	assert.NoError(t, err)
	assert.Equal(t, []model.Change{{Type: model.NoteCreated, NoteID: id, Owner: "alice"}}, hub.changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateTooLarge(t *testing.T) {
	s, mock, hub := newService(t)

	_, err := s.Create(context.Background(), "alice", strings.Repeat("x", MaxContentSize+1))
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Empty(t, hub.changes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOpensContent(t *testing.T) {
	s, mock, _ := newService(t)
	ct, nonce := sealed(t, "Hello\nworld")

	mock.ExpectQuery("SELECT id, owner, content, nonce, created, modified FROM notes").
		WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "content", "nonce", "created", "modified"}).
			AddRow("n1", "alice", ct, nonce, int64(1), int64(2)))

	notes, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, []model.Note{{ID: "n1", Owner: "alice", Content: "Hello\nworld", Created: 1, Modified: 2}}, notes)
}

func TestListEmptyIsNotNil(t *testing.T) {
	s, mock, _ := newService(t)
	mock.ExpectQuery("SELECT id").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "content", "nonce", "created", "modified"}))

	notes, err := s.List(context.Background(), "alice")
	require.NoError(t, err)
	assert.NotNil(t, notes)
	assert.Empty(t, notes)
}

func TestListTamperedContent(t *testing.T) {
	s, mock, _ := newService(t)
	ct, nonce := sealed(t, "secret")
	ct[0] ^= 1

	mock.ExpectQuery("SELECT id").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "content", "nonce", "created", "modified"}).
			AddRow("n1", "alice", ct, nonce, int64(1), int64(1)))

	_, err := s.List(context.Background(), "alice")
	assert.ErrorIs(t, err, vault.ErrOpen)
}

func TestUpdate(t *testing.T) {
	id := uuid.NewString()
	tests := []struct {
		name    string
		id      string
		rows    int64
		wantErr error
		notify  bool
	}{
		{"updated", id, 1, nil, true},
		{"missing or foreign", id, 0, ErrNotFound, false},
		{"malformed id", "not-a-uuid", -1, ErrNotFound, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, mock, hub := newService(t)
			if tt.rows >= 0 {
				mock.ExpectExec("UPDATE notes SET content").
					WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), now.Unix(), tt.id, "alice").
					WillReturnResult(sqlmock.NewResult(0, tt.rows))
			}

			err := s.Update(context.Background(), "alice", tt.id, "New Title\nNew body")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}
			if tt.notify {
				assert.Equal(t, []model.Change{{Type: model.NoteUpdated, NoteID: tt.id, Owner: "alice"}}, hub.changes)
			} else {
				assert.Empty(t, hub.changes)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestDelete(t *testing.T) {
	s, mock, hub := newService(t)
	id := uuid.NewString()

	mock.ExpectExec("DELETE FROM notes").WithArgs(id, "alice").WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.Delete(context.Background(), "alice", id))
	assert.Equal(t, []model.Change{{Type: model.NoteDeleted, NoteID: id, Owner: "alice"}}, hub.changes)

	mock.ExpectExec("DELETE FROM notes").WithArgs(id, "alice").WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, s.Delete(context.Background(), "alice", id), ErrNotFound)
	assert.Len(t, hub.changes, 1)
}
