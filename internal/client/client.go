// Package client assembles the gateway, session and notes stores into one
// explicitly constructed unit.
package client

import (
	"net/http"

	"go.uber.org/zap"

	"notesync/config"
	"notesync/internal/gateway"
	"notesync/internal/notes"
	"notesync/internal/session"
)

type Client struct {
	Gateway *gateway.Gateway
	Session *session.Store
	Notes   *notes.Store
}

type options struct {
	log        *zap.Logger
	httpClient *http.Client
}

type Option func(*options)

func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.log = l }
}

// WithHTTPClient replaces the transport. The configured timeout is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpClient = c }
}

// New wires a client for cfg. The session starts unauthenticated.
func New(cfg config.Client, opts ...Option) *Client {
	o := options{log: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	gwOpts := []gateway.Option{gateway.WithLogger(o.log.Named("gateway"))}
	if o.httpClient != nil {
		gwOpts = append(gwOpts, gateway.WithHTTPClient(o.httpClient))
	} else if cfg.HTTPTimeout > 0 {
		gwOpts = append(gwOpts, gateway.WithTimeout(cfg.HTTPTimeout))
	}

	gw := gateway.New(cfg.APIURL, gwOpts...)
	sess := session.NewStore(gw, session.WithLogger(o.log.Named("session")))
	gw.SetCredentials(sess)

	return &Client{
		Gateway: gw,
		Session: sess,
		Notes:   notes.NewStore(gw, sess, notes.WithLogger(o.log.Named("notes"))),
	}
}

// Close ends the session and detaches the notes store from it.
func (c *Client) Close() {
	c.Session.Logout()
	c.Notes.Close()
}
