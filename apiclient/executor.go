package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/maruel/ksid"
	"golang.org/x/time/rate"
)

// ExecutorSettings configures an HTTPExecutor.
type ExecutorSettings struct {
	// BaseURL is prefixed to every relative request URL.
	BaseURL string
	// Timeout bounds each round trip unless the call sets its own.
	Timeout time.Duration
	// Header is sent with every request; per-call headers win.
	Header http.Header
	// RateLimit caps requests per second when positive.
	RateLimit rate.Limit
	Burst     int
	// RequestIDHeader, when set, receives a fresh ksid on requests that do
	// not carry one.
	RequestIDHeader string
	// AcceptEncoding is advertised to the server; matching response bodies
	// are decoded before they reach the validator.
	AcceptEncoding string
	// StatusPolicy rejects responses with a *StatusError when it returns
	// false. Nil accepts every status so the schema registry decides.
	StatusPolicy func(status int) bool
	HTTPClient   *http.Client
}

// DefaultExecutorSettings returns recommended defaults.
func DefaultExecutorSettings() ExecutorSettings {
	return ExecutorSettings{
		Timeout:        30 * time.Second,
		Burst:          1,
		AcceptEncoding: "zstd, br, gzip",
	}
}

// ExecutorOption mutates ExecutorSettings.
type ExecutorOption func(*ExecutorSettings)

func WithBaseURL(u string) ExecutorOption        { return func(s *ExecutorSettings) { s.BaseURL = u } }
func WithTimeout(d time.Duration) ExecutorOption { return func(s *ExecutorSettings) { s.Timeout = d } }
func WithRequestIDHeader(h string) ExecutorOption {
	return func(s *ExecutorSettings) { s.RequestIDHeader = h }
}
func WithAcceptEncoding(enc string) ExecutorOption {
	return func(s *ExecutorSettings) { s.AcceptEncoding = enc }
}
func WithHTTPClient(c *http.Client) ExecutorOption {
	return func(s *ExecutorSettings) { s.HTTPClient = c }
}
func WithStatusPolicy(f func(int) bool) ExecutorOption {
	return func(s *ExecutorSettings) { s.StatusPolicy = f }
}

// WithHeader adds a default header.
func WithHeader(key, value string) ExecutorOption {
	return func(s *ExecutorSettings) {
		if s.Header == nil {
			s.Header = http.Header{}
		}
		s.Header.Add(key, value)
	}
}

// WithRateLimit allows r requests per second with the given burst.
func WithRateLimit(r rate.Limit, burst int) ExecutorOption {
	return func(s *ExecutorSettings) {
		s.RateLimit = r
		s.Burst = burst
	}
}

// Only2xx is a status policy rejecting everything outside 200-299.
func Only2xx(status int) bool { return status >= 200 && status < 300 }

// HTTPExecutor is the net/http implementation of Executor.
type HTTPExecutor struct {
	settings ExecutorSettings
	base     *url.URL
	client   *http.Client
	limiter  *rate.Limiter
}

// NewHTTPExecutor returns an executor configured by opts.
func NewHTTPExecutor(opts ...ExecutorOption) (*HTTPExecutor, error) {
	s := DefaultExecutorSettings()
	for _, opt := range opts {
		opt(&s)
	}
	e := &HTTPExecutor{settings: s, client: s.HTTPClient}
	if e.client == nil {
		e.client = &http.Client{}
	}
	if strings.TrimSpace(s.BaseURL) != "" {
		u, err := url.Parse(strings.TrimSpace(s.BaseURL))
		if err != nil {
			return nil, fmt.Errorf("apiclient: base url: %w", err)
		}
		if u.Scheme == "" || u.Host == "" {
			return nil, fmt.Errorf("apiclient: base url %q must be absolute", s.BaseURL)
		}
		e.base = u
	}
	if s.RateLimit > 0 {
		burst := s.Burst
		if burst <= 0 {
			burst = 1
		}
		e.limiter = rate.NewLimiter(s.RateLimit, burst)
	}
	return e, nil
}

// Do implements Executor.
func (e *HTTPExecutor) Do(ctx context.Context, req *Request) (*Response, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("apiclient: %s %s: rate limit: %w", req.Method, req.URL, err)
		}
	}
	target, err := e.resolveURL(req.URL, req.Params)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", req.Method, req.URL, err)
	}
	body, contentType, err := encodeBody(req.Data)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", req.Method, target, err)
	}

	timeout := req.Timeout
	if timeout <= 0 {
		timeout = e.settings.Timeout
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	method := strings.ToUpper(req.Method)
	if method == "" {
		method = http.MethodGet
	}
	hreq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, target, err)
	}
	for k, vs := range e.settings.Header {
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	for k, vs := range req.Header {
		hreq.Header.Del(k)
		for _, v := range vs {
			hreq.Header.Add(k, v)
		}
	}
	if contentType != "" && hreq.Header.Get("Content-Type") == "" {
		hreq.Header.Set("Content-Type", contentType)
	}
	if hreq.Header.Get("Accept") == "" {
		hreq.Header.Set("Accept", "application/json")
	}
	if e.settings.AcceptEncoding != "" && hreq.Header.Get("Accept-Encoding") == "" {
		hreq.Header.Set("Accept-Encoding", e.settings.AcceptEncoding)
	}
	if h := e.settings.RequestIDHeader; h != "" && hreq.Header.Get(h) == "" {
		hreq.Header.Set(h, ksid.NewID().String())
	}

	resp, err := e.client.Do(hreq)
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: %w", method, target, err)
	}
	defer func() { _ = resp.Body.Close() }()

	header := resp.Header.Clone()
	data, err := decodeBody(resp.Body, header.Get("Content-Encoding"))
	if err != nil {
		return nil, fmt.Errorf("apiclient: %s %s: read body: %w", method, target, err)
	}
	if header.Get("Content-Encoding") != "" {
		header.Del("Content-Encoding")
		header.Del("Content-Length")
	}
	if e.settings.StatusPolicy != nil && !e.settings.StatusPolicy(resp.StatusCode) {
		return nil, &StatusError{Method: method, URL: target, Status: resp.StatusCode, Body: data}
	}
	return &Response{Status: resp.StatusCode, Header: header, Data: data}, nil
}

// resolveURL joins path onto the base URL with exactly one slash and appends
// the encoded query parameters.
func (e *HTTPExecutor) resolveURL(path string, params any) (string, error) {
	raw := path
	if e.base != nil && !isAbsoluteURL(path) {
		raw = strings.TrimRight(e.base.String(), "/") + "/" + strings.TrimLeft(path, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	q, err := encodeQuery(params)
	if err != nil {
		return "", fmt.Errorf("query: %w", err)
	}
	if len(q) > 0 {
		merged := u.Query()
		for k, vs := range q {
			for _, v := range vs {
				merged.Add(k, v)
			}
		}
		u.RawQuery = merged.Encode()
	}
	return u.String(), nil
}

func isAbsoluteURL(s string) bool {
	u, err := url.Parse(s)
	return err == nil && u.Scheme != "" && u.Host != ""
}

// encodeBody returns the payload reader and its default content type.
func encodeBody(data any) (io.Reader, string, error) {
	switch v := data.(type) {
	case nil:
		return nil, "", nil
	case []byte:
		return bytes.NewReader(v), "application/octet-stream", nil
	case string:
		return strings.NewReader(v), "text/plain; charset=utf-8", nil
	case io.Reader:
		return v, "", nil
	}
	b, err := json.Marshal(data)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return bytes.NewReader(b), "application/json", nil
}

// decodeBody reads r and undoes the response Content-Encoding.
// Supports zstd, brotli, and gzip.
func decodeBody(r io.Reader, encoding string) ([]byte, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	enc := strings.ToLower(strings.TrimSpace(encoding))
	if len(raw) == 0 || enc == "" || enc == "identity" {
		return raw, nil
	}
	switch enc {
	case "zstd":
		dec, err := zstd.NewReader(bytes.NewReader(raw), zstd.WithDecoderMaxMemory(64<<20))
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		return io.ReadAll(dec)
	case "br":
		return io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
	case "gzip":
		gr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer func() { _ = gr.Close() }()
		return io.ReadAll(gr)
	default:
		return nil, fmt.Errorf("unsupported Content-Encoding %q", encoding)
	}
}
