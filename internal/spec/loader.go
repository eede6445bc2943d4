package spec

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// ErrorCode categorizes loader errors for clearer handling and messaging.
type ErrorCode string

const (
	InputError      ErrorCode = "InputError"
	NetworkError    ErrorCode = "NetworkError"
	ParseError      ErrorCode = "ParseError"
	ValidationError ErrorCode = "ValidationError"
	ConversionError ErrorCode = "ConversionError"
	DuplicateError  ErrorCode = "DuplicateError"
)

// SpecError is a structured error with optional location and JSON Pointer.
type SpecError struct {
	Code        ErrorCode
	Message     string
	Location    string // file path or URL
	JSONPointer string // e.g. "#/routes/~1users/get"
	Cause       error
}

func (e *SpecError) Error() string { return e.Message }
func (e *SpecError) Unwrap() error { return e.Cause }

// Settings configures loader behavior.
type Settings struct {
	// HTTPTimeout bounds each HTTP request.
	HTTPTimeout time.Duration
	// MaxRetries for transient HTTP failures (>=500, 429, or network errors).
	MaxRetries int
	// BackoffBase is the base delay for exponential backoff.
	BackoffBase time.Duration
	// AllowFileRefs permits file refs in OpenAPI documents fetched over
	// HTTP. Local roots always allow them.
	AllowFileRefs bool
	Logger        *slog.Logger
}

// DefaultSettings returns recommended defaults.
func DefaultSettings() Settings {
	return Settings{
		HTTPTimeout: 10 * time.Second,
		MaxRetries:  3,
		BackoffBase: 200 * time.Millisecond,
	}
}

// Option mutates Settings.
type Option func(*Settings)

func WithHTTPTimeout(d time.Duration) Option { return func(s *Settings) { s.HTTPTimeout = d } }
func WithMaxRetries(n int) Option            { return func(s *Settings) { s.MaxRetries = n } }
func WithBackoffBase(d time.Duration) Option { return func(s *Settings) { s.BackoffBase = d } }
func WithAllowFileRefs(allow bool) Option    { return func(s *Settings) { s.AllowFileRefs = allow } }
func WithLogger(l *slog.Logger) Option       { return func(s *Settings) { s.Logger = l } }

// Format identifies the kind of document a Source was read from.
type Format int

const (
	FormatRouteTable Format = iota + 1
	FormatOpenAPI3
	FormatSwagger2
)

func (f Format) String() string {
	switch f {
	case FormatRouteTable:
		return "route-table"
	case FormatOpenAPI3:
		return "openapi3"
	case FormatSwagger2:
		return "swagger2"
	}
	return "unknown"
}

// Source is a loaded input document. Exactly one of Table and OpenAPI is set.
type Source struct {
	Location string
	Format   Format
	Table    *RouteTable
	OpenAPI  *openapi3.T
}

// RouteTable returns the operations of the source after filtering. OpenAPI
// documents are converted with BuildRouteTable.
func (s *Source) RouteTable(ctx context.Context, opts ...BuildOption) (*RouteTable, error) {
	var (
		table *RouteTable
		err   error
	)
	if s.OpenAPI != nil {
		table, err = BuildRouteTable(ctx, s.OpenAPI, opts...)
	} else {
		table, err = s.Table.Filter(opts...)
	}
	if err != nil {
		var se *SpecError
		if errors.As(err, &se) && se.Location == "" {
			se.Location = s.Location
		}
		return nil, err
	}
	return table, nil
}

// Load reads a route-table document, an OpenAPI v3 document or a Swagger
// v2.0 document (converted to v3 via kin-openapi openapi2conv).
//
// input may be a filesystem path or an http/https URL. file:// URLs are
// blocked.
func Load(ctx context.Context, input string, opts ...Option) (*Source, error) {
	if strings.TrimSpace(input) == "" {
		return nil, &SpecError{Code: InputError, Message: "spec: input is empty"}
	}

	settings := DefaultSettings()
	for _, opt := range opts {
		opt(&settings)
	}
	if settings.Logger == nil {
		settings.Logger = slog.Default()
	}

	var (
		raw        []byte
		location   string
		rootIsFile bool
		root       *url.URL
	)
	u, uerr := url.Parse(input)
	if uerr == nil && u.Scheme != "" && u.Host != "" {
		scheme := strings.ToLower(u.Scheme)
		if scheme == "file" {
			return nil, &SpecError{Code: InputError, Message: "spec: file:// URLs are blocked by default", Location: input}
		}
		if scheme != "http" && scheme != "https" {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("spec: unsupported URL scheme %q (only http/https allowed)", scheme), Location: input}
		}
		var err error
		raw, err = fetchWithRetry(ctx, input, settings)
		if err != nil {
			return nil, &SpecError{Code: NetworkError, Message: fmt.Sprintf("fetch %s: %v", input, err), Location: input, Cause: err}
		}
		location, root = input, u
	} else {
		abs, err := filepath.Abs(input)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("resolve path: %v", err), Location: input, Cause: err}
		}
		raw, err = os.ReadFile(abs)
		if err != nil {
			return nil, &SpecError{Code: InputError, Message: fmt.Sprintf("read file %s: %v", abs, err), Location: abs, Cause: err}
		}
		location, rootIsFile = abs, true
	}

	format, err := detectFormat(raw)
	if err != nil {
		return nil, &SpecError{Code: ParseError, Message: err.Error(), Location: location, Cause: err}
	}
	settings.Logger.DebugContext(ctx, "loading input", "location", location, "format", format.String())

	src := &Source{Location: location, Format: format}
	switch format {
	case FormatRouteTable:
		table, err := ParseRouteTable(raw)
		if err != nil {
			var se *SpecError
			if errors.As(err, &se) {
				se.Location = location
			}
			return nil, err
		}
		src.Table = table
		return src, nil

	case FormatOpenAPI3:
		loader := newLoader(settings, rootIsFile)
		var doc *openapi3.T
		if root != nil {
			doc, err = loader.LoadFromDataWithPath(raw, root)
		} else {
			doc, err = loader.LoadFromFile(location)
		}
		if err != nil {
			return nil, mapValidateOrParseErr(err, location)
		}
		if err := validateDoc(ctx, doc, location, settings.Logger); err != nil {
			return nil, err
		}
		src.OpenAPI = doc
		return src, nil

	case FormatSwagger2:
		if fixed, changed, _ := mergeV2BodyParams(raw); changed {
			settings.Logger.DebugContext(ctx, "merged swagger body parameters", "location", location)
			raw = fixed
		}
		doc, err := convertV2ToV3(raw)
		if err != nil {
			return nil, &SpecError{Code: ConversionError, Message: fmt.Sprintf("convert v2→v3: %v", err), Location: location, Cause: err}
		}
		if err := newLoader(settings, rootIsFile).ResolveRefsIn(doc, root); err != nil {
			settings.Logger.WarnContext(ctx, "unresolved refs after conversion", "location", location, "err", err)
		}
		if err := validateDoc(ctx, doc, location, settings.Logger); err != nil {
			return nil, err
		}
		src.OpenAPI = doc
		return src, nil
	}
	return nil, &SpecError{Code: ParseError, Message: "spec: unknown input format", Location: location}
}

// validateDoc runs kin-openapi validation, tolerating unresolved refs.
func validateDoc(ctx context.Context, doc *openapi3.T, location string, logger *slog.Logger) error {
	err := doc.Validate(ctx)
	if err == nil {
		return nil
	}
	if canProceedDespiteValidation(err) {
		logger.WarnContext(ctx, "proceeding despite validation error", "location", location, "err", err)
		return nil
	}
	return mapValidateOrParseErr(err, location)
}

func newLoader(settings Settings, rootIsFile bool) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	client := &http.Client{Timeout: settings.HTTPTimeout}
	allowFile := settings.AllowFileRefs || rootIsFile
	loader.ReadFromURIFunc = func(l *openapi3.Loader, uri *url.URL) ([]byte, error) {
		switch strings.ToLower(uri.Scheme) {
		case "", "file":
			if !allowFile {
				return nil, fmt.Errorf("blocked file ref: %s", uri.String())
			}
			path := uri.Path
			if path == "" {
				path = uri.Opaque
			}
			return os.ReadFile(path)
		case "http", "https":
			resp, err := client.Get(uri.String())
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()
			if resp.StatusCode >= 400 {
				return nil, fmt.Errorf("http %d: %s", resp.StatusCode, uri.String())
			}
			return io.ReadAll(resp.Body)
		default:
			return nil, fmt.Errorf("unsupported ref scheme: %s", uri.Scheme)
		}
	}
	return loader
}

// detectFormat classifies a document by its top-level keys.
func detectFormat(data []byte) (Format, error) {
	var root map[string]any
	if err := yaml.Unmarshal(data, &root); err != nil {
		return 0, fmt.Errorf("parse input: %w", err)
	}
	if v, ok := root["openapi"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "3.") {
			return FormatOpenAPI3, nil
		}
	}
	if v, ok := root["swagger"]; ok {
		if s, _ := v.(string); strings.HasPrefix(strings.TrimSpace(s), "2.") {
			return FormatSwagger2, nil
		}
	}
	if _, ok := root["routes"]; ok {
		return FormatRouteTable, nil
	}
	return 0, errors.New("spec: unknown input (expected 'routes', 'openapi: 3.x' or 'swagger: 2.0')")
}

func convertV2ToV3(data []byte) (*openapi3.T, error) {
	var v2 openapi2.T
	if err := yaml.Unmarshal(data, &v2); err != nil {
		return nil, err
	}
	return openapi2conv.ToV3(&v2)
}

func fetchWithRetry(ctx context.Context, rawURL string, settings Settings) ([]byte, error) {
	client := &http.Client{Timeout: settings.HTTPTimeout}
	var lastErr error
	backoff := settings.BackoffBase
	if backoff <= 0 {
		backoff = 200 * time.Millisecond
	}
	attempts := settings.MaxRetries
	if attempts <= 0 {
		attempts = 1
	}
	for i := 0; i < attempts; i++ {
		body, retry, err := fetchOnce(ctx, client, rawURL)
		if err == nil {
			return body, nil
		}
		if !retry {
			return nil, err
		}
		lastErr = err
		settings.Logger.DebugContext(ctx, "fetch failed, retrying", "url", rawURL, "attempt", i+1, "err", err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
	}
	if lastErr == nil {
		lastErr = errors.New("fetch failed")
	}
	return nil, lastErr
}

// fetchOnce performs one GET. retry reports whether the failure is transient.
func fetchOnce(ctx context.Context, client *http.Client, rawURL string) (body []byte, retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, false, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, true, err
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode < 300:
		body, err := io.ReadAll(resp.Body)
		return body, false, err
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return nil, true, fmt.Errorf("transient http error %d", resp.StatusCode)
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, false, fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

func mapValidateOrParseErr(err error, location string) error {
	code := ValidationError
	lower := strings.ToLower(err.Error())
	if strings.Contains(lower, "parse") || strings.Contains(lower, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: extractJSONPointer(err), Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	if me, ok := err.(openapi3.MultiError); ok && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	return jsonPtrRe.FindString(err.Error())
}

// canProceedDespiteValidation returns true for validation errors where a
// best-effort build can still proceed, such as unresolved refs.
func canProceedDespiteValidation(err error) bool {
	if err == nil {
		return true
	}
	return strings.Contains(strings.ToLower(err.Error()), "unresolved ref")
}
