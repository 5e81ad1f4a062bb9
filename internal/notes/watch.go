package notes

import (
	"context"
	"errors"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"notesync/internal/document/model"
	"notesync/internal/gateway"
	"notesync/internal/session"
)

// Watch listens on the server's change stream and refetches the list each
// time one of the user's notes changes elsewhere. It returns when ctx is
// done, the server closes the stream, or the session ends.
func (s *Store) Watch(ctx context.Context) error {
	epoch := s.sess.Epoch()

	// Subscribe before dialing so a session ending mid-dial is not missed.
	var (
		mu    sync.Mutex
		conn  *websocket.Conn
		ended bool
	)
	unsubscribe := s.sess.Subscribe(func(session.Ended) {
		mu.Lock()
		defer mu.Unlock()
		ended = true
		if conn != nil {
			conn.Close()
		}
	})
	defer unsubscribe()
	if s.sess.Epoch() != epoch {
		return ErrSessionEnded
	}

	c, err := s.gw.DialStream(ctx, "/ws")
	if err != nil {
		return err
	}
	defer c.Close()

	mu.Lock()
	conn = c
	stop := ended
	mu.Unlock()
	if stop {
		return ErrSessionEnded
	}

	// Unblock ReadJSON on cancellation.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-done:
		}
	}()

	s.log.Info("watching for note changes")
	for {
		var change model.Change
		if err := c.ReadJSON(&change); err != nil {
			switch {
			case ctx.Err() != nil:
				return ctx.Err()
			case s.sess.Epoch() != epoch:
				return ErrSessionEnded
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway):
				return nil
			}
			return err
		}

		s.log.Debug("note changed",
			zap.String("type", change.Type),
			zap.String("note_id", change.NoteID),
		)
		if err := s.FetchAll(ctx); err != nil {
			if errors.Is(err, gateway.ErrUnauthorized) || errors.Is(err, ErrSessionEnded) {
				return err
			}
			s.log.Warn("refetch after change failed", zap.Error(err))
		}
	}
}
