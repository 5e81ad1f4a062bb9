package session

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"notesync/internal/account/model"
	"notesync/internal/gateway"
)

// authServer accepts alice/secret and rejects everything else.
func authServer(t *testing.T, token string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var creds model.Credentials
		require.NoError(t, json.NewDecoder(r.Body).Decode(&creds))
		assert.Empty(t, r.Header.Get("Authorization"), "auth endpoints are public")

		switch r.URL.Path {
		case "/login":
			if creds.Username != "alice" || creds.Password != "secret" {
				http.Error(w, "Invalid username or password", http.StatusUnauthorized)
				return
			}
			json.NewEncoder(w).Encode(model.TokenResponse{Token: token})
		case "/register":
			if creds.Username == "alice" {
				http.Error(w, "User already exists", http.StatusConflict)
				return
			}
			w.WriteHeader(http.StatusCreated)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newStore(t *testing.T, token string) *Store {
	t.Helper()
	gw := gateway.New(authServer(t, token).URL)
	s := NewStore(gw)
	gw.SetCredentials(s)
	return s
}

func TestInitialStateIsUnauthenticated(t *testing.T) {
	s := NewStore(nil)
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.User())
	assert.Empty(t, s.Token())
}

func TestLoginStoresTokenAndUser(t *testing.T) {
	s := newStore(t, "tok-1")

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	assert.True(t, s.IsAuthenticated())
	assert.Equal(t, "alice", s.User())
	assert.Equal(t, "tok-1", s.Token())
	assert.Equal(t, Snapshot{Token: "tok-1", User: "alice", Epoch: 1}, s.Snapshot())
}

func TestLoginFailureKeepsPriorSession(t *testing.T) {
	s := newStore(t, "tok-1")
	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	var events []Ended
	s.Subscribe(func(e Ended) { events = append(events, e) })

	err := s.Login(context.Background(), "alice", "wrong")
	require.Error(t, err)

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "login", ae.Op)
	assert.Equal(t, "Invalid username or password", ae.Message)
	assert.Equal(t, "alice", s.User())
	assert.True(t, s.IsAuthenticated())
	assert.Empty(t, events)
}

func TestLoginUnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	s := NewStore(gateway.New(url))
	err := s.Login(context.Background(), "alice", "secret")

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.True(t, gateway.IsNetwork(err))
	assert.False(t, s.IsAuthenticated())
}

func TestLoginRequiresCredentials(t *testing.T) {
	s := NewStore(nil)
	err := s.Login(context.Background(), " ", "x")

	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "username and password are required", ae.Message)
}

func TestLoginReplacingSessionEmitsEnded(t *testing.T) {
	s := newStore(t, "tok-1")
	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	var events []Ended
	s.Subscribe(func(e Ended) { events = append(events, e) })

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	require.Len(t, events, 1)
	assert.Equal(t, ReasonReplaced, events[0].Reason)
	assert.Equal(t, uint64(2), events[0].Epoch)
}

func TestRegisterDoesNotChangeSession(t *testing.T) {
	s := newStore(t, "tok-1")

	require.NoError(t, s.Register(context.Background(), "bob", "Sup3r$ecret"))
	assert.False(t, s.IsAuthenticated())

	err := s.Register(context.Background(), "alice", "Sup3r$ecret")
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, "register", ae.Op)
	assert.Equal(t, "User already exists", ae.Message)
	assert.True(t, gateway.IsConflict(err))
	assert.Equal(t, uint64(0), s.Epoch())
}

func TestLogoutClearsAndNotifies(t *testing.T) {
	s := newStore(t, "tok-1")
	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	var got []Ended
	unsubscribe := s.Subscribe(func(e Ended) {
		assert.False(t, s.IsAuthenticated(), "state is cleared before subscribers run")
		got = append(got, e)
	})

	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Empty(t, s.User())
	require.Len(t, got, 1)
	assert.Equal(t, Ended{User: "alice", Reason: ReasonLogout, Epoch: 2}, got[0])

	unsubscribe()
	s.Logout()
	assert.Len(t, got, 1)
}

func TestLogoutWhenUnauthenticated(t *testing.T) {
	s := NewStore(nil)
	fired := 0
	s.Subscribe(func(Ended) { fired++ })

	s.Logout()
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, 1, fired)
}

func TestRevokeIgnoresSupersededToken(t *testing.T) {
	s := newStore(t, "tok-1")
	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	s.Revoke("tok-0")
	assert.True(t, s.IsAuthenticated())

	var reasons []Reason
	s.Subscribe(func(e Ended) { reasons = append(reasons, e.Reason) })
	s.Revoke("tok-1")
	assert.False(t, s.IsAuthenticated())
	assert.Equal(t, []Reason{ReasonUnauthorized}, reasons)
}

func TestSubscribersRunInOrder(t *testing.T) {
	s := NewStore(nil)
	var order []int
	for i := 0; i < 5; i++ {
		i := i
		s.Subscribe(func(Ended) { order = append(order, i) })
	}
	s.Logout()
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestExpiresAt(t *testing.T) {
	exp := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"username": "alice",
		"exp":      exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	s := newStore(t, signed)
	_, ok := s.ExpiresAt()
	assert.False(t, ok)

	require.NoError(t, s.Login(context.Background(), "alice", "secret"))
	got, ok := s.ExpiresAt()
	require.True(t, ok)
	assert.True(t, exp.Equal(got))
}

func TestExpiresAtOpaqueToken(t *testing.T) {
	s := newStore(t, "opaque")
	require.NoError(t, s.Login(context.Background(), "alice", "secret"))

	_, ok := s.ExpiresAt()
	assert.False(t, ok)
}

func TestAuthErrorUnwraps(t *testing.T) {
	inner := errors.New("boom")
	err := &AuthError{Op: "login", Message: "boom", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, "login failed: boom", err.Error())
}
