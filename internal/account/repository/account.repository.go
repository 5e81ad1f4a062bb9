package repository

import (
	"context"
	"database/sql"
	"errors"

	"notesync/config/database"
	"notesync/internal/account/model"
	"notesync/pkg/logger"
)

var ErrUserExists = errors.New("user already exists")

type AccountRepository struct {
	DB *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{DB: db}
}

func (r *AccountRepository) Create(ctx context.Context, u model.User) error {
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, wrapped_key, wrapped_nonce, created_at) VALUES ($1, $2, $3, $4, $5)`,
		u.Username, u.PasswordHash, u.WrappedKey, u.WrappedNonce, u.CreatedAt)
	if database.IsUniqueViolation(err) {
		return ErrUserExists
	}
	if err != nil {
		logger.Sugar.Errorf("Failed to create user %s: %v", u.Username, err)
	}
	return err
}

// Get returns sql.ErrNoRows when the user does not exist.
func (r *AccountRepository) Get(ctx context.Context, username string) (model.User, error) {
	var u model.User
	err := r.DB.QueryRowContext(ctx,
		`SELECT username, password_hash, wrapped_key, wrapped_nonce, created_at FROM users WHERE username = $1`,
		username).Scan(&u.Username, &u.PasswordHash, &u.WrappedKey, &u.WrappedNonce, &u.CreatedAt)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		logger.Sugar.Errorf("Failed to get user %s: %v", username, err)
	}
	return u, err
}
