// Package gateway mediates every outbound call to the notes service.
//
// The gateway attaches the current bearer token, dispatches the request and
// classifies the response. A 401 on an authenticated call revokes the session
// through Credentials before the error reaches the caller, whichever
// operation issued the call.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const DefaultTimeout = 30 * time.Second

// maxErrorBody bounds how much of an error response is kept as the message.
const maxErrorBody = 4 << 10

// Credentials supplies the bearer token and reacts to authorization failures.
type Credentials interface {
	// Token returns the current token, or "" when unauthenticated.
	Token() string
	// Revoke ends the session that owned token.
	Revoke(token string)
}

// Request describes one call. Public requests carry no bearer token and a
// 401 on them is reported as a ServerError without touching the session.
type Request struct {
	Method string
	Path   string
	Body   any
	Public bool
}

type Gateway struct {
	baseURL    string
	httpClient *http.Client
	dialer     *websocket.Dialer
	log        *zap.Logger

	mu    sync.RWMutex
	creds Credentials
}

type Option func(*Gateway)

func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) { g.httpClient = c }
}

func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) { g.httpClient.Timeout = d }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Gateway) { g.log = l }
}

func WithDialer(d *websocket.Dialer) Option {
	return func(g *Gateway) { g.dialer = d }
}

// New creates a gateway for baseURL, e.g. "http://localhost:8081".
func New(baseURL string, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		dialer:     websocket.DefaultDialer,
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// SetCredentials installs the token source. Until it is called every request
// is sent unauthenticated.
func (g *Gateway) SetCredentials(c Credentials) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.creds = c
}

func (g *Gateway) BaseURL() string {
	return g.baseURL
}

func (g *Gateway) credentials() Credentials {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.creds
}

func (g *Gateway) token() string {
	if c := g.credentials(); c != nil {
		return c.Token()
	}
	return ""
}

// Do sends req and decodes a successful JSON response into out. out may be
// nil when the body is not needed.
func (g *Gateway) Do(ctx context.Context, req Request, out any) error {
	var bodyReader io.Reader
	if req.Body != nil {
		jsonBody, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, g.baseURL+req.Path, bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	var token string
	if !req.Public {
		token = g.token()
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
		}
	}

	start := time.Now()
	resp, err := g.httpClient.Do(httpReq)
	if err != nil {
		g.log.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.Duration("elapsed", time.Since(start)),
			zap.Error(err))
		return &NetworkError{Method: req.Method, Path: req.Path, Err: err}
	}
	defer resp.Body.Close()

	g.log.Debug("request completed",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode >= 400 {
		return g.fail(req, token, resp.StatusCode, readMessage(resp))
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("failed to decode %s %s response: %w", req.Method, req.Path, err)
	}
	return nil
}

// DialStream opens a websocket to path, passing the token as a query
// parameter since browsers cannot set headers on websocket handshakes. A 401
// on the handshake revokes the session like any other call.
func (g *Gateway) DialStream(ctx context.Context, path string) (*websocket.Conn, error) {
	u, err := url.Parse(g.baseURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid stream url: %w", err)
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}

	token := g.token()
	if token != "" {
		q := u.Query()
		q.Set("token", token)
		u.RawQuery = q.Encode()
	}

	req := Request{Method: http.MethodGet, Path: path}
	conn, resp, err := g.dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		if resp != nil {
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, g.fail(req, token, resp.StatusCode, readMessage(resp))
			}
		}
		return nil, &NetworkError{Method: req.Method, Path: path, Err: err}
	}
	return conn, nil
}

func (g *Gateway) fail(req Request, token string, status int, msg string) error {
	if status == http.StatusUnauthorized && !req.Public {
		g.log.Info("authorization rejected, ending session",
			zap.String("method", req.Method),
			zap.String("path", req.Path))
		if c := g.credentials(); c != nil {
			c.Revoke(token)
		}
		return &UnauthorizedError{Method: req.Method, Path: req.Path, Message: msg}
	}
	return &ServerError{Method: req.Method, Path: req.Path, Status: status, Message: msg}
}

func readMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}
	return msg
}
