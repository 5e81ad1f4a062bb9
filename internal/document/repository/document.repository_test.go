package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/document/model"
)

func newRepo(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewDocumentRepository(db), mock
}

var rec = model.Record{
	ID:       "3f1c1d8e-0000-4000-8000-000000000001",
	Owner:    "alice",
	Content:  []byte("sealed"),
	Nonce:    []byte("nonce"),
	Created:  1700000000,
	Modified: 1700000000,
}

func TestCreate(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`INSERT INTO notes \(id, owner, content, nonce, created, modified\)`).
		WithArgs(rec.ID, rec.Owner, rec.Content, rec.Nonce, rec.Created, rec.Modified).
		WillReturnResult(sqlmock.NewResult(1, 1))

	require.NoError(t, repo.Create(context.Background(), rec))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByOwner(t *testing.T) {
	repo, mock := newRepo(t)
	rows := sqlmock.NewRows([]string{"id", "owner", "content", "nonce", "created", "modified"}).
		AddRow(rec.ID, rec.Owner, rec.Content, rec.Nonce, rec.Created, rec.Modified).
		AddRow("second", "alice", []byte("x"), []byte("y"), int64(1700000100), int64(1700000200))
	mock.ExpectQuery(`SELECT id, owner, content, nonce, created, modified FROM notes WHERE owner = \$1 ORDER BY created, id`).
		WithArgs("alice").
		WillReturnRows(rows)

	got, err := repo.ListByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, rec, got[0])
	assert.Equal(t, "second", got[1].ID)
}

func TestListByOwnerEmpty(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectQuery("SELECT id").WithArgs("bob").
		WillReturnRows(sqlmock.NewRows([]string{"id", "owner", "content", "nonce", "created", "modified"}))

	got, err := repo.ListByOwner(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestUpdateScopesByOwner(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`UPDATE notes SET content = \$1, nonce = \$2, modified = \$3 WHERE id = \$4 AND owner = \$5`).
		WithArgs(rec.Content, rec.Nonce, rec.Modified, rec.ID, "mallory").
		WillReturnResult(sqlmock.NewResult(0, 0))

	foreign := rec
	foreign.Owner = "mallory"
	n, err := repo.Update(context.Background(), foreign)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDelete(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec(`DELETE FROM notes WHERE id = \$1 AND owner = \$2`).
		WithArgs(rec.ID, "alice").
		WillReturnResult(sqlmock.NewResult(0, 1))

	n, err := repo.Delete(context.Background(), rec.ID, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestDeleteError(t *testing.T) {
	repo, mock := newRepo(t)
	mock.ExpectExec("DELETE FROM notes").WillReturnError(assert.AnError)

	_, err := repo.Delete(context.Background(), rec.ID, "alice")
	assert.ErrorIs(t, err, assert.AnError)
}
