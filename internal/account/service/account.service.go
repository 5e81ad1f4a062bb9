package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
	"unicode"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"notesync/internal/account/model"
	"notesync/internal/account/repository"
	"notesync/internal/vault"
)

const (
	DefaultCost    = 12
	MinUsernameLen = 4
	MaxUsernameLen = 255
	MinPasswordLen = 8
	// bcrypt ignores input past this length.
	MaxPasswordLen = 72
)

var (
	ErrUserExists         = repository.ErrUserExists
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrNoDataKey          = errors.New("no encryption key for user")
)

// ValidationError carries a message safe to return to the caller.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

type AccountService struct {
	Repo   *repository.AccountRepository
	Vault  *vault.Vault
	Secret []byte
	TTL    time.Duration
	Cost   int
	Now    func() time.Time
}

func NewAccountService(repo *repository.AccountRepository, v *vault.Vault, secret []byte, ttl time.Duration) *AccountService {
	return &AccountService{
		Repo:   repo,
		Vault:  v,
		Secret: secret,
		TTL:    ttl,
		Cost:   DefaultCost,
		Now:    time.Now,
	}
}

func (s *AccountService) Register(ctx context.Context, creds model.Credentials) error {
	if err := Validate(creds); err != nil {
		return err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.Cost)
	if err != nil {
		return err
	}
	_, wrapped, nonce, err := s.Vault.NewDataKey()
	if err != nil {
		return err
	}

	return s.Repo.Create(ctx, model.User{
		Username:     creds.Username,
		PasswordHash: string(hash),
		WrappedKey:   wrapped,
		WrappedNonce: nonce,
		CreatedAt:    s.Now().Unix(),
	})
}

// Login checks the password and issues a signed token.
func (s *AccountService) Login(ctx context.Context, creds model.Credentials) (string, error) {
	if creds.Username == "" || len(creds.Username) > MaxUsernameLen {
		return "", ErrInvalidCredentials
	}
	u, err := s.Repo.Get(ctx, creds.Username)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(creds.Password)) != nil {
		return "", ErrInvalidCredentials
	}
	return s.IssueToken(u.Username)
}

func (s *AccountService) IssueToken(username string) (string, error) {
	now := s.Now()
	claims := jwt.MapClaims{
		"username": username,
		"iat":      now.Unix(),
		"exp":      now.Add(s.TTL).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.Secret)
}

// DataKey unwraps the content key of username.
func (s *AccountService) DataKey(ctx context.Context, username string) ([]byte, error) {
	u, err := s.Repo.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if len(u.WrappedKey) == 0 || len(u.WrappedNonce) == 0 {
		return nil, ErrNoDataKey
	}
	return s.Vault.Unwrap(u.WrappedKey, u.WrappedNonce)
}

// Validate applies the registration rules.
func Validate(creds model.Credentials) error {
	if strings.TrimSpace(creds.Username) != creds.Username {
		return &ValidationError{Message: "Username must not start or end with spaces"}
	}
	if len(creds.Username) < MinUsernameLen || len(creds.Username) > MaxUsernameLen {
		return &ValidationError{Message: "Invalid username or password"}
	}
	if len(creds.Password) < MinPasswordLen {
		return &ValidationError{Message: "Invalid username or password"}
	}
	if len(creds.Password) > MaxPasswordLen {
		return &ValidationError{Message: "Password must be at most 72 bytes"}
	}
	if !isComplex(creds.Password) {
		return &ValidationError{Message: "Password is weak (must contain uppercase, lowercase, digit, symbol)"}
	}
	return nil
}

func isComplex(password string) bool {
	var upper, lower, digit, punct bool
	for _, c := range password {
		switch {
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		case unicode.IsPunct(c) || unicode.IsSymbol(c):
			punct = true
		}
	}
	return upper && lower && digit && punct
}
