package apiclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Options are the transport options a caller may attach to any call.
type Options struct {
	// Header is merged over the executor's default headers.
	Header http.Header
	// Timeout bounds the round trip when positive.
	Timeout time.Duration
}

// RequestConfig describes one typed call before its path is resolved.
type RequestConfig struct {
	Method string
	// URL is the route template, e.g. "/users/{id}".
	URL string
	// PathParams fills the template placeholders. It accepts maps or a
	// JSON-tagged struct.
	PathParams any
	// Query is sent as the query string.
	Query any
	// Body is sent as the request payload.
	Body any
	Options
}

// Request is what an Executor sends. It has no notion of path parameters:
// URL is already resolved.
type Request struct {
	Method  string
	URL     string
	Header  http.Header
	Params  any
	Data    any
	Timeout time.Duration
}

// Response is the envelope produced by an Executor.
type Response struct {
	Status int
	Header http.Header
	Data   []byte
}

// Executor performs the network round trip.
type Executor interface {
	Do(ctx context.Context, req *Request) (*Response, error)
}

// ExecutorFunc adapts a function to the Executor interface.
type ExecutorFunc func(ctx context.Context, req *Request) (*Response, error)

// Do calls f(ctx, req).
func (f ExecutorFunc) Do(ctx context.Context, req *Request) (*Response, error) { return f(ctx, req) }

// RequestWrapper turns a RequestConfig into a transport Request and
// delegates it to an Executor.
type RequestWrapper struct {
	exec   Executor
	logger *slog.Logger
	// escape, when set, is applied to each substituted path value.
	escape func(string) string
}

// NewRequestWrapper returns a wrapper around exec. A nil logger uses
// slog.Default().
func NewRequestWrapper(exec Executor, logger *slog.Logger) *RequestWrapper {
	if logger == nil {
		logger = slog.Default()
	}
	return &RequestWrapper{exec: exec, logger: logger}
}

// Execute resolves cfg.URL with cfg.PathParams and sends the request.
// cfg is never modified; errors from the executor are returned as is.
func (w *RequestWrapper) Execute(ctx context.Context, cfg RequestConfig) (*Response, error) {
	params, err := toFields(cfg.PathParams)
	if err != nil {
		return nil, fmt.Errorf("apiclient: path params for %s %s: %w", cfg.Method, cfg.URL, err)
	}
	req := &Request{
		Method:  cfg.Method,
		URL:     resolvePath(cfg.URL, params, w.escape),
		Header:  cfg.Header.Clone(),
		Params:  cfg.Query,
		Data:    cfg.Body,
		Timeout: cfg.Timeout,
	}
	w.logger.DebugContext(ctx, "dispatch", "method", req.Method, "route", cfg.URL, "url", req.URL)
	return w.exec.Do(ctx, req)
}
