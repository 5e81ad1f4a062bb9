package repository

import (
	"context"
	"database/sql"

	"notesync/internal/document/model"
	"notesync/pkg/logger"
)

type DocumentRepository struct {
	DB *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{DB: db}
}

func (r *DocumentRepository) Create(ctx context.Context, rec model.Record) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO notes (id, owner, content, nonce, created, modified) VALUES ($1, $2, $3, $4, $5, $6)`,
		rec.ID, rec.Owner, rec.Content, rec.Nonce, rec.Created, rec.Modified)
	if err != nil {
		logger.Sugar.Errorf("Failed to create note: %v", err)
	}
	return err
}

// ListByOwner returns owner's notes, oldest first.
func (r *DocumentRepository) ListByOwner(ctx context.Context, owner string) ([]model.Record, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, owner, content, nonce, created, modified FROM notes WHERE owner = $1 ORDER BY created, id`,
		owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to get notes for user %s: %v", owner, err)
		return nil, err
	}
	defer rows.Close()

	var recs []model.Record
	for rows.Next() {
		var rec model.Record
		if err := rows.Scan(&rec.ID, &rec.Owner, &rec.Content, &rec.Nonce, &rec.Created, &rec.Modified); err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	return recs, rows.Err()
}

// Update replaces the content of a note owned by rec.Owner. It reports the
// number of rows changed, zero when the note is missing or foreign.
func (r *DocumentRepository) Update(ctx context.Context, rec model.Record) (int64, error) {
	result, err := r.DB.ExecContext(ctx,
		`UPDATE notes SET content = $1, nonce = $2, modified = $3 WHERE id = $4 AND owner = $5`,
		rec.Content, rec.Nonce, rec.Modified, rec.ID, rec.Owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to update note %s: %v", rec.ID, err)
		return 0, err
	}
	return result.RowsAffected()
}

func (r *DocumentRepository) Delete(ctx context.Context, id, owner string) (int64, error) {
	result, err := r.DB.ExecContext(ctx, `DELETE FROM notes WHERE id = $1 AND owner = $2`, id, owner)
	if err != nil {
		logger.Sugar.Errorf("Failed to delete note %s: %v", id, err)
		return 0, err
	}
	return result.RowsAffected()
}
