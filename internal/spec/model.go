package spec

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Route table definitions consumed by the emitters.

// RequestPart names one of the request inputs an operation accepts.
type RequestPart string

const (
	PartParams RequestPart = "params"
	PartQuery  RequestPart = "query"
	PartBody   RequestPart = "body"
)

// Methods lists the supported HTTP methods in their canonical order.
var Methods = []string{"GET", "POST", "PUT", "DELETE", "PATCH", "HEAD", "OPTIONS", "TRACE"}

// RouteTable is the ordered set of operations a client is generated from.
type RouteTable struct {
	Title      string
	Operations []Operation
}

// Operation describes one (route, method) pair.
type Operation struct {
	OperationID   string
	Method        string // upper case
	Path          string // route template, e.g. /users/{id}
	ResponseCodes []int  // ascending
	RequestParts  []RequestPart
	IsIndex       bool
	Summary       string
	Tags          []string
	// Responses holds the JSON Schema per response code. Codes without an
	// entry validate against the empty schema.
	Responses map[int]json.RawMessage
}

// Has reports whether the operation accepts part.
func (o Operation) Has(part RequestPart) bool {
	for _, p := range o.RequestParts {
		if p == part {
			return true
		}
	}
	return false
}

// Schema returns the response schema registered for code, or the empty
// schema.
func (o Operation) Schema(code int) json.RawMessage {
	if s, ok := o.Responses[code]; ok && len(s) > 0 {
		return s
	}
	return json.RawMessage(`{}`)
}

// PathParams returns the placeholder names of the route template in order.
func (o Operation) PathParams() []string {
	var out []string
	for _, m := range placeholderRe.FindAllStringSubmatch(o.Path, -1) {
		out = append(out, m[1])
	}
	return out
}

var placeholderRe = regexp.MustCompile(`\{([^{}/]+)\}`)

// Tags returns the sorted set of tags used by the table's operations.
func (t *RouteTable) Tags() []string {
	set := map[string]struct{}{}
	for _, op := range t.Operations {
		for _, tag := range op.Tags {
			set[tag] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for tag := range set {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Validate checks the properties the generator relies on: non-empty
// operation ids, unique (route, method) pairs, unique operation ids, known
// request parts and response codes in 100..599.
func (t *RouteTable) Validate() error {
	routes := make(map[string]struct{}, len(t.Operations))
	ids := make(map[string]string, len(t.Operations))
	for _, op := range t.Operations {
		ptr := jsonPointer("routes", op.Path, strings.ToLower(op.Method))
		key := op.Method + " " + op.Path
		if _, dup := routes[key]; dup {
			return &SpecError{Code: DuplicateError, Message: fmt.Sprintf("spec: duplicate route %s", key), JSONPointer: ptr}
		}
		routes[key] = struct{}{}

		if strings.TrimSpace(op.OperationID) == "" {
			return &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: %s has no operationId", key), JSONPointer: ptr}
		}
		if prev, dup := ids[op.OperationID]; dup {
			return &SpecError{
				Code:        DuplicateError,
				Message:     fmt.Sprintf("spec: operationId %q used by both %s and %s", op.OperationID, prev, key),
				JSONPointer: ptr,
			}
		}
		ids[op.OperationID] = key

		for _, p := range op.RequestParts {
			switch p {
			case PartParams, PartQuery, PartBody:
			default:
				return &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: %s: unknown request part %q", key, p), JSONPointer: ptr}
			}
		}
		for _, code := range op.ResponseCodes {
			if code < 100 || code > 599 {
				return &SpecError{Code: ValidationError, Message: fmt.Sprintf("spec: %s: invalid response code %d", key, code), JSONPointer: ptr}
			}
		}
	}
	return nil
}

// jsonPointer joins tokens into a "#/a/b" pointer, escaping per RFC 6901.
func jsonPointer(tokens ...string) string {
	var b strings.Builder
	b.WriteString("#")
	for _, t := range tokens {
		b.WriteString("/")
		b.WriteString(strings.NewReplacer("~", "~0", "/", "~1").Replace(t))
	}
	return b.String()
}

// isIndexRoute reports whether path does not end with a placeholder.
func isIndexRoute(path string) bool {
	return !strings.HasSuffix(strings.TrimRight(path, "/"), "}")
}
