package spec

import (
	"context"
	"encoding/json"
	"fmt"
	"mime"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// BuildRouteTable converts an OpenAPI v3 document into a RouteTable.
// Paths are visited in sorted order and methods in the order of Methods.
// Path and query parameters and the request body become request parts,
// numeric response codes with a JSON schema become registry entries with
// every local $ref inlined.
func BuildRouteTable(ctx context.Context, doc *openapi3.T, opts ...BuildOption) (*RouteTable, error) {
	_ = ctx
	if doc == nil {
		return nil, &SpecError{Code: InputError, Message: "spec: nil document"}
	}
	cfg, err := newBuildConfig(opts)
	if err != nil {
		return nil, err
	}

	table := &RouteTable{}
	if doc.Info != nil {
		table.Title = strings.TrimSpace(doc.Info.Title)
	}
	inl := &schemaInliner{stack: map[string]bool{}}
	if doc.Components != nil {
		inl.components = doc.Components.Schemas
	}

	pathKeys := make([]string, 0, len(doc.Paths))
	for p := range doc.Paths {
		pathKeys = append(pathKeys, p)
	}
	sort.Strings(pathKeys)

	for _, p := range pathKeys {
		item := doc.Paths[p]
		if item == nil {
			continue
		}
		ops := item.Operations()
		for _, method := range Methods {
			o := ops[method]
			if o == nil {
				continue
			}
			op, err := buildOperation(p, method, item, o, inl)
			if err != nil {
				return nil, err
			}
			if !cfg.allow(op) {
				continue
			}
			table.Operations = append(table.Operations, *op)
		}
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return table, nil
}

func buildOperation(path, method string, item *openapi3.PathItem, o *openapi3.Operation, inl *schemaInliner) (*Operation, error) {
	ptr := jsonPointer("paths", path, strings.ToLower(method))
	op := &Operation{
		OperationID: strings.TrimSpace(o.OperationID),
		Method:      method,
		Path:        path,
		IsIndex:     isIndexRoute(path),
		Summary:     strings.TrimSpace(o.Summary),
	}
	if op.OperationID == "" {
		op.OperationID = DeriveOperationID(method, path)
	}
	for _, t := range o.Tags {
		if t = strings.TrimSpace(t); t != "" {
			op.Tags = append(op.Tags, t)
		}
	}

	// Operation-level parameters override path-level ones.
	params := map[string]string{}
	for _, refs := range []openapi3.Parameters{item.Parameters, o.Parameters} {
		for _, pref := range refs {
			if pref == nil || pref.Value == nil {
				continue
			}
			params[paramKey(pref.Value.In, pref.Value.Name)] = pref.Value.In
		}
	}
	var hasPath, hasQuery bool
	for _, in := range params {
		switch in {
		case openapi3.ParameterInPath:
			hasPath = true
		case openapi3.ParameterInQuery:
			hasQuery = true
		}
	}
	if hasPath || len(op.PathParams()) > 0 {
		op.RequestParts = append(op.RequestParts, PartParams)
	}
	if hasQuery {
		op.RequestParts = append(op.RequestParts, PartQuery)
	}
	if o.RequestBody != nil && o.RequestBody.Value != nil {
		op.RequestParts = append(op.RequestParts, PartBody)
	}

	for key, rref := range o.Responses {
		code, err := strconv.Atoi(key)
		if err != nil {
			// default and range keys (2XX) have no single status to register.
			continue
		}
		op.ResponseCodes = append(op.ResponseCodes, code)
		if rref == nil || rref.Value == nil {
			continue
		}
		sref := jsonSchema(rref.Value.Content)
		if sref == nil {
			continue
		}
		raw, err := inl.inline(sref)
		if err != nil {
			return nil, &SpecError{
				Code:        ConversionError,
				Message:     fmt.Sprintf("%s %s: response %d: %v", method, path, code, err),
				JSONPointer: jsonPointer("paths", path, strings.ToLower(method), "responses", key),
				Cause:       err,
			}
		}
		if op.Responses == nil {
			op.Responses = map[int]json.RawMessage{}
		}
		op.Responses[code] = raw
	}
	sort.Ints(op.ResponseCodes)
	if len(op.ResponseCodes) == 0 {
		return nil, &SpecError{Code: ValidationError, Message: fmt.Sprintf("%s %s: no numeric response codes", method, path), JSONPointer: ptr}
	}
	return op, nil
}

func paramKey(in, name string) string { return in + ":" + name }

// jsonSchema picks the schema of application/json, falling back to the
// first +json media type in sorted order.
func jsonSchema(content openapi3.Content) *openapi3.SchemaRef {
	if mt := content.Get("application/json"); mt != nil && mt.Schema != nil {
		return mt.Schema
	}
	keys := make([]string, 0, len(content))
	for k := range content {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		base, _, err := mime.ParseMediaType(k)
		if err != nil {
			continue
		}
		if (base == "application/json" || strings.HasSuffix(base, "+json")) && content[k] != nil && content[k].Schema != nil {
			return content[k].Schema
		}
	}
	return nil
}

const componentsPrefix = "#/components/schemas/"

// schemaInliner renders schemas as standalone JSON Schema documents. Local
// component refs are replaced by their definition; recursive and external
// refs degrade to the empty schema.
type schemaInliner struct {
	components openapi3.Schemas
	stack      map[string]bool
}

func (in *schemaInliner) inline(ref *openapi3.SchemaRef) (json.RawMessage, error) {
	var raw []byte
	var err error
	if ref.Ref != "" && !strings.HasPrefix(ref.Ref, componentsPrefix) && ref.Value != nil {
		raw, err = json.Marshal(ref.Value)
	} else {
		raw, err = json.Marshal(ref)
	}
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	v, err = in.resolve(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (in *schemaInliner) resolve(v any) (any, error) {
	switch x := v.(type) {
	case map[string]any:
		if r, ok := x["$ref"].(string); ok {
			return in.resolveRef(r)
		}
		out := make(map[string]any, len(x))
		for k, val := range x {
			r, err := in.resolve(val)
			if err != nil {
				return nil, err
			}
			out[k] = r
		}
		return out, nil
	case []any:
		out := make([]any, len(x))
		for i, val := range x {
			r, err := in.resolve(val)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}
	return v, nil
}

func (in *schemaInliner) resolveRef(ref string) (any, error) {
	name, ok := strings.CutPrefix(ref, componentsPrefix)
	if !ok {
		return map[string]any{}, nil
	}
	name = strings.NewReplacer("~1", "/", "~0", "~").Replace(name)
	target := in.components[name]
	if target == nil || target.Value == nil || in.stack[name] {
		return map[string]any{}, nil
	}
	in.stack[name] = true
	defer delete(in.stack, name)

	raw, err := json.Marshal(target.Value)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("schema %s: %w", name, err)
	}
	return in.resolve(v)
}
