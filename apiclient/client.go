package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
)

// Client bundles the request and response halves of the pipeline. Generated
// clients embed it; it is safe for concurrent use as long as the executor
// is.
type Client struct {
	*RequestWrapper
	validator *ResponseValidator
}

type clientSettings struct {
	logger   *slog.Logger
	engine   SchemaValidator
	reporter DriftReporter
	escape   bool
}

// ClientOption configures New.
type ClientOption func(*clientSettings)

// WithLogger sets the logger used for dispatch and drift warnings.
func WithLogger(l *slog.Logger) ClientOption { return func(s *clientSettings) { s.logger = l } }

// WithSchemaValidator replaces the default kin-openapi validator.
func WithSchemaValidator(v SchemaValidator) ClientOption {
	return func(s *clientSettings) { s.engine = v }
}

// WithDriftReporter forwards additional-key observations to r.
func WithDriftReporter(r DriftReporter) ClientOption {
	return func(s *clientSettings) { s.reporter = r }
}

// WithPathEscaping percent-escapes path parameter values before they are
// substituted into the route template.
func WithPathEscaping() ClientOption { return func(s *clientSettings) { s.escape = true } }

// New returns a Client sending requests through exec.
func New(exec Executor, opts ...ClientOption) *Client {
	s := clientSettings{}
	for _, opt := range opts {
		opt(&s)
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	w := NewRequestWrapper(exec, s.logger)
	if s.escape {
		w.escape = url.PathEscape
	}
	return &Client{
		RequestWrapper: w,
		validator:      NewResponseValidator(s.engine, s.logger, s.reporter),
	}
}

// Validator returns the client's response validator.
func (c *Client) Validator() *ResponseValidator { return c.validator }

// ValidateResponse resolves the schema registered for resp.Status, validates
// the body against it and decodes it into dst when dst is not nil.
//
// A status without a registered schema yields an *UnexpectedStatusError and
// dst is left untouched.
func (c *Client) ValidateResponse(ctx context.Context, resp *Response, reg SchemaRegistry, route, method string, dst any) error {
	schema, ok := reg.Lookup(resp.Status)
	if !ok {
		return &UnexpectedStatusError{Route: route, Method: method, Status: resp.Status}
	}
	var data any
	body := bytes.TrimSpace(resp.Data)
	if len(body) > 0 {
		if err := json.Unmarshal(body, &data); err != nil {
			return &ValidationError{Route: route, Method: method, Status: resp.Status, Err: fmt.Errorf("decode body: %w", err)}
		}
	}
	if _, err := c.validator.validate(ctx, data, schema, route, method, resp.Status); err != nil {
		return err
	}
	if dst == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, dst); err != nil {
		return &ValidationError{Route: route, Method: method, Status: resp.Status, Err: fmt.Errorf("decode into %T: %w", dst, err)}
	}
	return nil
}
