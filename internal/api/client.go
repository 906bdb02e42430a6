// Package api is the HTTP adapter every backend call goes through. It
// attaches the bearer token, enforces a fixed timeout, classifies failures
// into the errs taxonomy and clears the persisted session on any 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.uber.org/zap"

	"github.com/and161185/rideshare/internal/errs"
	"github.com/and161185/rideshare/internal/observability"
	"github.com/and161185/rideshare/internal/storage"
)

// DefaultTimeout is the fixed per-request timeout.
const DefaultTimeout = 10 * time.Second

const maxBody = 8 << 20

// RequestIDHeader carries a per-request correlation id.
const RequestIDHeader = "X-Request-ID"

// Request describes one backend call. Path is relative to the base URL.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any        // JSON-encoded when non-nil
	Multipart *Multipart // takes precedence over Body
}

// Doer is what the domain services need from the adapter.
type Doer interface {
	Do(ctx context.Context, req Request, out any) error
}

// Client is safe for concurrent use.
type Client struct {
	base    *url.URL
	hc      *http.Client
	store   storage.Store
	log     *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
	agent   string

	mu        sync.Mutex
	listeners map[int]func()
	nextID    int
}

var _ Doer = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the transport client. Its own Timeout is ignored
// in favour of the adapter's.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.hc = hc } }

// WithLogger sets the request logger.
func WithLogger(l *zap.Logger) Option { return func(c *Client) { c.log = l } }

// WithMetrics enables request metrics.
func WithMetrics(m *observability.Metrics) Option { return func(c *Client) { c.metrics = m } }

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option { return func(c *Client) { c.timeout = d } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option { return func(c *Client) { c.agent = ua } }

// New builds a client for baseURL (e.g. http://localhost:8000/api) that
// reads the token from store.
func New(baseURL string, store storage.Store, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimSpace(baseURL))
	if err != nil {
		return nil, fmt.Errorf("api url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api url %q: scheme must be http or https", baseURL)
	}
	if store == nil {
		return nil, errors.New("api: nil store")
	}
	c := &Client{
		base:      u,
		hc:        &http.Client{},
		store:     store,
		log:       zap.NewNop(),
		timeout:   DefaultTimeout,
		agent:     "rideshare-go",
		listeners: map[int]func(){},
	}
	for _, o := range opts {
		o(c)
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	return c, nil
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.base.String() }

// Store returns the credential store the client reads the token from.
func (c *Client) Store() storage.Store { return c.store }

// OnAuthFailure registers fn to run after a 401 has cleared the persisted
// session. The returned func unregisters it.
func (c *Client) OnAuthFailure(fn func()) (cancel func()) {
	c.mu.Lock()
	id := c.nextID
	c.nextID++
	c.listeners[id] = fn
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		delete(c.listeners, id)
		c.mu.Unlock()
	}
}

// Do sends req and decodes a successful JSON response into out (if non-nil).
// out may be *json.RawMessage to keep the body undecoded.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	hreq, err := c.build(ctx, req)
	if err != nil {
		return err
	}
	rid := hreq.Header.Get(RequestIDHeader)

	start := time.Now()
	resp, err := c.hc.Do(hreq)
	dur := time.Since(start)
	if err != nil {
		c.metrics.ObserveRequest(req.Method, 0, dur)
		c.log.Debug("request failed",
			zap.String("method", req.Method),
			zap.String("path", req.Path),
			zap.String("request_id", rid),
			zap.Duration("dur", dur),
			zap.Error(err),
		)
		return transportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	c.metrics.ObserveRequest(req.Method, resp.StatusCode, time.Since(start))
	c.log.Debug("request",
		zap.String("method", req.Method),
		zap.String("path", req.Path),
		zap.Int("status", resp.StatusCode),
		zap.String("request_id", rid),
		zap.Duration("dur", time.Since(start)),
	)
	if err != nil {
		return transportError(ctx, err)
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return decodeInto(body, out)
	}

	apiErr := responseError(resp.StatusCode, body)
	if resp.StatusCode == http.StatusUnauthorized {
		c.clearSession()
	}
	return apiErr
}

func (c *Client) build(ctx context.Context, req Request) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(c.base.Path, "/") + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var (
		body        io.Reader
		contentType string
	)
	switch {
	case req.Multipart != nil:
		b, ct, err := req.Multipart.encode()
		if err != nil {
			return nil, err
		}
		body, contentType = b, ct
	case req.Body != nil:
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode %s %s: %w", req.Method, req.Path, err)
		}
		body, contentType = bytes.NewReader(b), "application/json"
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	hreq.Header.Set("Accept", "application/json")
	hreq.Header.Set("User-Agent", c.agent)
	if contentType != "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	if id, err := uuid.NewV4(); err == nil {
		hreq.Header.Set(RequestIDHeader, id.String())
	}

	tok, err := storage.Lookup(ctx, c.store, storage.KeyToken)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	if tok != "" {
		hreq.Header.Set("Authorization", "Bearer "+tok)
	}
	return hreq, nil
}

// clearSession drops the persisted credentials and notifies listeners.
// It runs on a fresh context: the request context may already be done.
func (c *Client) clearSession() {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	if err := c.store.Delete(ctx, storage.SessionKeys...); err != nil {
		c.log.Warn("clear session after 401", zap.Error(err))
	}
	if c.metrics != nil {
		c.metrics.AuthFailuresTotal.Inc()
	}

	c.mu.Lock()
	fns := make([]func(), 0, len(c.listeners))
	for _, fn := range c.listeners {
		fns = append(fns, fn)
	}
	c.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func decodeInto(body []byte, out any) error {
	if out == nil {
		return nil
	}
	if raw, ok := out.(*json.RawMessage); ok {
		*raw = append((*raw)[:0], body...)
		return nil
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &errs.APIError{Kind: errs.ErrUnknown, Message: "malformed response", Err: err}
	}
	return nil
}

func transportError(ctx context.Context, err error) error {
	var ne net.Error
	if errors.Is(ctx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) ||
		(errors.As(err, &ne) && ne.Timeout()) {
		return &errs.APIError{Kind: errs.ErrTimeout, Err: err}
	}
	return &errs.APIError{Kind: errs.ErrNetwork, Err: err}
}
