package apiclient

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/getkin/kin-openapi/openapi3"
)

// ValidationResult is the outcome of a successful schema check.
type ValidationResult struct {
	// Value is the validated data.
	Value any
	// AdditionalKeys lists fields present in the data but not declared by
	// the schema. Nested fields are dotted, array elements use "[]".
	AdditionalKeys []string
}

// SchemaValidator is the validation capability the ResponseValidator uses.
type SchemaValidator interface {
	Validate(data any, schema *openapi3.Schema) (ValidationResult, error)
}

// KinValidator validates decoded JSON with kin-openapi.
type KinValidator struct{}

// Validate implements SchemaValidator.
func (KinValidator) Validate(data any, schema *openapi3.Schema) (ValidationResult, error) {
	if schema == nil {
		return ValidationResult{}, fmt.Errorf("nil schema")
	}
	if data == nil && isEmptySchema(schema) {
		return ValidationResult{}, nil
	}
	if err := schema.VisitJSON(data, openapi3.MultiErrors(), openapi3.VisitAsResponse()); err != nil {
		return ValidationResult{}, err
	}
	var extra []string
	collectAdditionalKeys(data, schema, "", map[string]struct{}{}, &extra)
	sort.Strings(extra)
	return ValidationResult{Value: data, AdditionalKeys: extra}, nil
}

func isEmptySchema(s *openapi3.Schema) bool {
	return s.Type == "" && len(s.Properties) == 0 && s.Items == nil &&
		len(s.AllOf) == 0 && len(s.AnyOf) == 0 && len(s.OneOf) == 0 &&
		s.Not == nil && len(s.Enum) == 0
}

// declaredProperties merges the properties of s and its allOf members.
func declaredProperties(s *openapi3.Schema, into map[string]*openapi3.Schema) {
	for name, ref := range s.Properties {
		if ref != nil && ref.Value != nil {
			into[name] = ref.Value
		}
	}
	for _, ref := range s.AllOf {
		if ref != nil && ref.Value != nil {
			declaredProperties(ref.Value, into)
		}
	}
}

// additionalAllowed reports whether s or one of its allOf members accepts
// undeclared properties, and the schema they must match when one is given.
func additionalAllowed(s *openapi3.Schema) (bool, *openapi3.Schema) {
	ap := s.AdditionalProperties
	if ap.Schema != nil {
		return true, ap.Schema.Value
	}
	if ap.Has != nil && *ap.Has {
		return true, nil
	}
	for _, ref := range s.AllOf {
		if ref == nil || ref.Value == nil {
			continue
		}
		if ok, sub := additionalAllowed(ref.Value); ok {
			return true, sub
		}
	}
	return false, nil
}

func collectAdditionalKeys(value any, s *openapi3.Schema, path string, seen map[string]struct{}, out *[]string) {
	if s == nil {
		return
	}
	switch v := value.(type) {
	case map[string]any:
		props := map[string]*openapi3.Schema{}
		declaredProperties(s, props)
		allowed, extraSchema := additionalAllowed(s)
		if len(props) == 0 && extraSchema == nil {
			// Free-form object.
			return
		}
		for key, child := range v {
			name := key
			if path != "" {
				name = path + "." + key
			}
			sub, ok := props[key]
			if !ok {
				if allowed {
					collectAdditionalKeys(child, extraSchema, name, seen, out)
					continue
				}
				if _, dup := seen[name]; !dup {
					seen[name] = struct{}{}
					*out = append(*out, name)
				}
				continue
			}
			collectAdditionalKeys(child, sub, name, seen, out)
		}
	case []any:
		if s.Items == nil || s.Items.Value == nil {
			return
		}
		for _, item := range v {
			collectAdditionalKeys(item, s.Items.Value, path+"[]", seen, out)
		}
	}
}

// SchemaRegistry maps status keys ("status200Schema") to response schemas
// for one operation. It is built once and only read afterwards.
type SchemaRegistry map[string]*openapi3.Schema

// SchemaKey returns the registry key for a status code.
func SchemaKey(status int) string { return fmt.Sprintf("status%dSchema", status) }

// Lookup returns the schema registered for status.
func (r SchemaRegistry) Lookup(status int) (*openapi3.Schema, bool) {
	s, ok := r[SchemaKey(status)]
	return s, ok && s != nil
}

// NewSchemaRegistry parses JSON schemas keyed by status code.
func NewSchemaRegistry(schemas map[int]string) (SchemaRegistry, error) {
	reg := make(SchemaRegistry, len(schemas))
	for code, raw := range schemas {
		s := &openapi3.Schema{}
		if err := json.Unmarshal([]byte(raw), s); err != nil {
			return nil, fmt.Errorf("apiclient: schema for status %d: %w", code, err)
		}
		reg[SchemaKey(code)] = s
	}
	return reg, nil
}

// MustSchemaRegistry is NewSchemaRegistry for package-level variables in
// generated code; it panics on malformed schemas.
func MustSchemaRegistry(schemas map[int]string) SchemaRegistry {
	reg, err := NewSchemaRegistry(schemas)
	if err != nil {
		panic(err)
	}
	return reg
}
