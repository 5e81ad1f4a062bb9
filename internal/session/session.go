// Package session owns the authentication token and username.
//
// A Store is either unauthenticated (no token, no user) or authenticated
// (both set). Login moves it to authenticated; Logout and Revoke move it back
// and notify subscribers with an Ended event so that dependent state can be
// dropped without the session reaching into it.
package session

import (
	"context"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"notesync/internal/account/model"
	"notesync/internal/gateway"
)

type Reason string

const (
	ReasonLogout       Reason = "logout"
	ReasonUnauthorized Reason = "unauthorized"
	ReasonReplaced     Reason = "replaced"
)

// Ended is delivered to subscribers when a session ends.
type Ended struct {
	User   string
	Reason Reason
	// Epoch is the new session epoch after the transition.
	Epoch uint64
}

// Snapshot is a consistent copy of the session state.
type Snapshot struct {
	Token string
	User  string
	Epoch uint64
}

// Sender is the subset of the gateway the session needs.
type Sender interface {
	Do(ctx context.Context, req gateway.Request, out any) error
}

type Store struct {
	gw  Sender
	log *zap.Logger

	mu    sync.RWMutex
	token string
	user  string
	epoch uint64

	subMu   sync.Mutex
	subs    map[int]func(Ended)
	nextSub int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

func NewStore(gw Sender, opts ...Option) *Store {
	s := &Store{
		gw:   gw,
		log:  zap.NewNop(),
		subs: make(map[int]func(Ended)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login exchanges credentials for a token. On failure the previous session,
// if any, is left as it was.
func (s *Store) Login(ctx context.Context, username, password string) error {
	if err := checkCredentials("login", username, password); err != nil {
		return err
	}

	var resp model.TokenResponse
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/login",
		Body:   model.Credentials{Username: username, Password: password},
		Public: true,
	}, &resp)
	if err != nil {
		s.log.Info("login rejected", zap.String("user", username), zap.Error(err))
		return &AuthError{Op: "login", Message: gateway.MessageOf(err), Err: err}
	}
	if resp.Token == "" {
		return &AuthError{Op: "login", Message: "server returned no token"}
	}

	s.mu.Lock()
	prev := s.user
	hadSession := s.token != ""
	s.token = resp.Token
	s.user = username
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.log.Info("logged in", zap.String("user", username))
	if hadSession {
		s.emit(Ended{User: prev, Reason: ReasonReplaced, Epoch: epoch})
	}
	return nil
}

// Register creates an account. It never changes the session.
func (s *Store) Register(ctx context.Context, username, password string) error {
	if err := checkCredentials("register", username, password); err != nil {
		return err
	}

	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/register",
		Body:   model.Credentials{Username: username, Password: password},
		Public: true,
	}, nil)
	if err != nil {
		return &AuthError{Op: "register", Message: gateway.MessageOf(err), Err: err}
	}
	s.log.Info("registered", zap.String("user", username))
	return nil
}

// Logout clears the session unconditionally and notifies subscribers.
func (s *Store) Logout() {
	s.end(ReasonLogout, nil)
}

// Revoke ends the session after an authorization failure observed on a
// request sent with token. A failure on a token that has since been replaced
// by a newer login is ignored.
func (s *Store) Revoke(token string) {
	ended := s.end(ReasonUnauthorized, func(current string) bool { return current == token })
	if !ended {
		s.log.Debug("ignoring revocation of a superseded token")
	}
}

func (s *Store) end(reason Reason, match func(current string) bool) bool {
	s.mu.Lock()
	if match != nil && !match(s.token) {
		s.mu.Unlock()
		return false
	}
	user := s.user
	s.token = ""
	s.user = ""
	s.epoch++
	epoch := s.epoch
	s.mu.Unlock()

	s.log.Info("session ended", zap.String("user", user), zap.String("reason", string(reason)))
	s.emit(Ended{User: user, Reason: reason, Epoch: epoch})
	return true
}

func (s *Store) IsAuthenticated() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token != ""
}

// Token implements gateway.Credentials.
func (s *Store) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Store) User() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.user
}

// Epoch increases at every login and every session end.
func (s *Store) Epoch() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.epoch
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{Token: s.token, User: s.user, Epoch: s.epoch}
}

// ExpiresAt reads the exp claim of the current token. The token is not
// verified; the server stays the authority on validity.
func (s *Store) ExpiresAt() (time.Time, bool) {
	token := s.Token()
	if token == "" {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}

// Subscribe registers fn for Ended events and returns a function removing it.
// Subscribers run synchronously, in registration order, after the state
// change is visible.
func (s *Store) Subscribe(fn func(Ended)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) emit(ev Ended) {
	s.subMu.Lock()
	ids := make([]int, 0, len(s.subs))
	for id := range s.subs {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	fns := make([]func(Ended), 0, len(ids))
	for _, id := range ids {
		fns = append(fns, s.subs[id])
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(ev)
	}
}

func checkCredentials(op, username, password string) error {
	if strings.TrimSpace(username) == "" || password == "" {
		return &AuthError{Op: op, Message: "username and password are required"}
	}
	return nil
}
