package handler

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"notesync/internal/account/model"
	"notesync/internal/account/repository"
	"notesync/internal/account/service"
	"notesync/internal/vault"
)

func newHandler(t *testing.T) (*AccountHandler, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	v, err := vault.New(bytes.Repeat([]byte{3}, vault.KeySize))
	require.NoError(t, err)
	svc := service.NewAccountService(repository.NewAccountRepository(db), v, []byte("test-secret"), time.Minute)
	svc.Cost = bcrypt.MinCost
	return NewAccountHandler(svc), mock
}

func post(h http.HandlerFunc, body string) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	h(rr, httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body)))
	return rr
}

func TestRegisterCreated(t *testing.T) {
	h, mock := newHandler(t)
	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	rr := post(h.Register, `{"username":"alice","password":"Sup3r$ecret"}`)
	assert.Equal(t, http.StatusCreated, rr.Code)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		dbErr      error
		wantStatus int
		wantBody   string
	}{
		{"malformed", `{`, nil, http.StatusBadRequest, "Invalid request"},
		{"weak password", `{"username":"alice","password":"password"}`, nil, http.StatusBadRequest, "Password is weak"},
		{"duplicate", `{"username":"alice","password":"Sup3r$ecret"}`, &pq.Error{Code: "23505"}, http.StatusConflict, "User already exists"},
		{"database down", `{"username":"alice","password":"Sup3r$ecret"}`, assert.AnError, http.StatusInternalServerError, "Failed to create user"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newHandler(t)
			if tt.dbErr != nil {
				mock.ExpectExec("INSERT INTO users").WillReturnError(tt.dbErr)
			}

			rr := post(h.Register, tt.body)
			assert.Equal(t, tt.wantStatus, rr.Code)
			assert.Contains(t, rr.Body.String(), tt.wantBody)
		})
	}
}

func TestLogin(t *testing.T) {
	h, mock := newHandler(t)
	hash, _ := bcrypt.GenerateFromPassword([]byte("Sup3r$ecret"), bcrypt.MinCost)
	mock.ExpectQuery("SELECT username").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "wrapped_key", "wrapped_nonce", "created_at"}).
			AddRow("alice", string(hash), nil, nil, 1))

	rr := post(h.Login, `{"username":"alice","password":"Sup3r$ecret"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))

	var resp model.TokenResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&resp))
	assert.NotEmpty(t, resp.Token)
}

func TestLoginRejected(t *testing.T) {
	h, mock := newHandler(t)
	mock.ExpectQuery("SELECT username").WithArgs("alice").
		WillReturnRows(sqlmock.NewRows([]string{"username", "password_hash", "wrapped_key", "wrapped_nonce", "created_at"}))

	rr := post(h.Login, `{"username":"alice","password":"nope"}`)
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "Invalid username or password\n", rr.Body.String())
}
