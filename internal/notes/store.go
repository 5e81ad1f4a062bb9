// Package notes keeps a local cache of the signed-in user's notes in step
// with the server.
//
// The server is the only source of truth. Create and Update are followed by a
// full refetch so that server-assigned ids and timestamps are never guessed
// locally; Delete removes the entry directly because it cannot introduce
// fields the client does not already know. The cache is dropped whenever the
// session ends.
package notes

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"notesync/internal/display"
	"notesync/internal/document/model"
	"notesync/internal/gateway"
	"notesync/internal/session"
)

var (
	// ErrLocalNotFound is returned by Get for ids absent from the cache. It
	// is a local condition: callers should fall back to the list view.
	ErrLocalNotFound = errors.New("note not found in local cache")

	// ErrSessionEnded is returned when the session changed while a call was
	// in flight; its result was discarded.
	ErrSessionEnded = errors.New("session ended during request")
)

// Sender is the subset of the gateway the store needs.
type Sender interface {
	Do(ctx context.Context, req gateway.Request, out any) error
	DialStream(ctx context.Context, path string) (*websocket.Conn, error)
}

// Session is the subset of the session store the notes store needs.
type Session interface {
	Epoch() uint64
	Subscribe(fn func(session.Ended)) func()
}

type Store struct {
	gw          Sender
	sess        Session
	log         *zap.Logger
	unsubscribe func()

	mu      sync.RWMutex
	notes   []model.Note
	index   map[string]int
	current *model.Note
	loading int
	// fetchSeq numbers FetchAll calls. appliedSeq is the newest one whose
	// result reached the cache, or the newest one started before a Reset.
	fetchSeq   uint64
	appliedSeq uint64

	lisMu     sync.Mutex
	listeners map[int]func()
	nextLis   int
}

type Option func(*Store)

func WithLogger(l *zap.Logger) Option {
	return func(s *Store) { s.log = l }
}

// NewStore creates an empty store and subscribes it to session endings.
// Call Close to detach it.
func NewStore(gw Sender, sess Session, opts ...Option) *Store {
	s := &Store{
		gw:        gw,
		sess:      sess,
		log:       zap.NewNop(),
		index:     make(map[string]int),
		listeners: make(map[int]func()),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = sess.Subscribe(func(e session.Ended) {
		s.log.Debug("clearing notes cache", zap.String("reason", string(e.Reason)))
		s.Reset()
	})
	return s
}

// Close detaches the store from the session.
func (s *Store) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// FetchAll replaces the cache with the server's list. Results that arrive
// after the session changed, or after a newer fetch was applied, are
// discarded.
func (s *Store) FetchAll(ctx context.Context) error {
	epoch := s.sess.Epoch()

	s.mu.Lock()
	s.loading++
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.loading--
		s.mu.Unlock()
	}()

	var list []model.Note
	if err := s.gw.Do(ctx, gateway.Request{Method: http.MethodGet, Path: "/notes"}, &list); err != nil {
		return err
	}

	s.mu.Lock()
	if s.sess.Epoch() != epoch {
		s.mu.Unlock()
		s.log.Debug("discarding fetch from an ended session", zap.Uint64("seq", seq))
		return ErrSessionEnded
	}
	if seq <= s.appliedSeq {
		applied := s.appliedSeq
		s.mu.Unlock()
		s.log.Debug("discarding stale fetch", zap.Uint64("seq", seq), zap.Uint64("applied", applied))
		return nil
	}
	s.replace(list)
	s.appliedSeq = seq
	s.mu.Unlock()

	s.log.Debug("notes fetched", zap.Int("count", len(list)))
	s.changed()
	return nil
}

// Create stores a new note and refetches. It returns the server-assigned id.
func (s *Store) Create(ctx context.Context, title, content string) (string, error) {
	var resp model.CreateNoteResponse
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPost,
		Path:   "/notes",
		Body:   model.CreateNoteRequest{Content: display.Pack(title, content)},
	}, &resp)
	if err != nil {
		return "", err
	}
	if err := s.FetchAll(ctx); err != nil {
		return resp.ID, err
	}
	return resp.ID, nil
}

// Update replaces the content of note id and refetches. If id is the
// selected note, the selection is refreshed from the new list.
func (s *Store) Update(ctx context.Context, id, title, content string) error {
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodPut,
		Path:   "/notes",
		Body:   model.UpdateNoteRequest{ID: id, Content: display.Pack(title, content)},
	}, &model.StatusResponse{})
	if err != nil {
		return err
	}
	if err := s.FetchAll(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current != nil && s.current.ID == id {
		if i, ok := s.index[id]; ok {
			fresh := s.notes[i]
			s.current = &fresh
		}
	}
	return nil
}

// Delete removes note id on the server and then from the cache, clearing
// the selection if it pointed at id. No refetch is issued.
func (s *Store) Delete(ctx context.Context, id string) error {
	epoch := s.sess.Epoch()
	err := s.gw.Do(ctx, gateway.Request{
		Method: http.MethodDelete,
		Path:   "/notes",
		Body:   model.DeleteNoteRequest{ID: id},
	}, nil)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.sess.Epoch() != epoch {
		s.mu.Unlock()
		return ErrSessionEnded
	}
	s.remove(id)
	if s.current != nil && s.current.ID == id {
		s.current = nil
	}
	s.mu.Unlock()

	s.changed()
	return nil
}

// SetCurrent changes the selection. A nil note clears it.
func (s *Store) SetCurrent(n *model.Note) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n == nil {
		s.current = nil
		return
	}
	cp := *n
	s.current = &cp
}

// Current returns a copy of the selected note, or nil.
func (s *Store) Current() *model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return nil
	}
	cp := *s.current
	return &cp
}

// Get looks id up in the cache.
func (s *Store) Get(id string) (model.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return model.Note{}, fmt.Errorf("%w: %s", ErrLocalNotFound, id)
	}
	return s.notes[i], nil
}

// Notes returns a copy of the cache in server order.
func (s *Store) Notes() []model.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Note, len(s.notes))
	copy(out, s.notes)
	return out
}

// Loading reports whether a FetchAll is in flight.
func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loading > 0
}

// Display projects any note, cached or not.
func (s *Store) Display(n model.Note) display.Note {
	return display.Project(n)
}

// DisplayAll projects the whole cache.
func (s *Store) DisplayAll() []display.Note {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]display.Note, 0, len(s.notes))
	for _, n := range s.notes {
		out = append(out, display.Project(n))
	}
	return out
}

// Reset drops the cache and the selection.
func (s *Store) Reset() {
	s.mu.Lock()
	s.notes = nil
	s.index = make(map[string]int)
	s.current = nil
	s.appliedSeq = s.fetchSeq
	s.mu.Unlock()

	s.changed()
}

// OnChange registers fn to run after every change to the cache and returns a
// function removing it. fn runs on the goroutine that made the change.
func (s *Store) OnChange(fn func()) func() {
	s.lisMu.Lock()
	id := s.nextLis
	s.nextLis++
	s.listeners[id] = fn
	s.lisMu.Unlock()

	return func() {
		s.lisMu.Lock()
		delete(s.listeners, id)
		s.lisMu.Unlock()
	}
}

func (s *Store) changed() {
	s.lisMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lisMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

func (s *Store) replace(list []model.Note) {
	s.notes = make([]model.Note, 0, len(list))
	s.index = make(map[string]int, len(list))
	for _, n := range list {
		if _, dup := s.index[n.ID]; dup {
			continue
		}
		s.index[n.ID] = len(s.notes)
		s.notes = append(s.notes, n)
	}
}

func (s *Store) remove(id string) {
	i, ok := s.index[id]
	if !ok {
		return
	}
	s.notes = append(s.notes[:i], s.notes[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.notes); j++ {
		s.index[s.notes[j].ID] = j
	}
}
