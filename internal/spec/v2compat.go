package spec

import (
	"strings"

	"gopkg.in/yaml.v3"
)

// mergeV2BodyParams rewrites Swagger v2 operations whose payload is split
// across several parameters into a single JSON body parameter, which is
// what the generated clients send. Every "body" and "formData" parameter
// of an operation becomes a property of one object schema; required flags
// carry over. Operations with a single body parameter and no formData are
// left alone.
//
// It returns the possibly modified YAML, whether anything changed, and any
// parse error. On error the original bytes are returned unchanged.
func mergeV2BodyParams(data []byte) ([]byte, bool, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return data, false, err
	}
	paths, ok := doc["paths"].(map[string]any)
	if !ok || len(paths) == 0 {
		return data, false, nil
	}
	modified := false
	for _, pim := range paths {
		pi, ok := pim.(map[string]any)
		if !ok {
			continue
		}
		for method, opm := range pi {
			if !knownMethod(strings.ToUpper(method)) {
				continue
			}
			op, ok := opm.(map[string]any)
			if !ok {
				continue
			}
			params, ok := op["parameters"].([]any)
			if !ok || len(params) == 0 {
				continue
			}
			if merged, ok := mergePayloadParams(params); ok {
				op["parameters"] = merged
				op["consumes"] = []any{"application/json"}
				modified = true
			}
		}
	}
	if !modified {
		return data, false, nil
	}
	out, err := yaml.Marshal(doc)
	if err != nil {
		return data, false, err
	}
	return out, true, nil
}

func mergePayloadParams(params []any) ([]any, bool) {
	bodies, forms := 0, 0
	for _, p := range params {
		pm, _ := p.(map[string]any)
		switch strings.ToLower(asString(pm["in"])) {
		case "body":
			bodies++
		case "formdata":
			forms++
		}
	}
	if forms == 0 && bodies <= 1 {
		return nil, false
	}

	props := map[string]any{}
	var required []any
	rest := make([]any, 0, len(params))
	for _, p := range params {
		pm, _ := p.(map[string]any)
		in := strings.ToLower(asString(pm["in"]))
		if in != "body" && in != "formdata" {
			rest = append(rest, p)
			continue
		}
		name := asString(pm["name"])
		if name == "" {
			name = "field"
		}
		props[name] = payloadSchema(pm)
		if req, _ := pm["required"].(bool); req {
			required = append(required, name)
		}
	}
	schema := map[string]any{"type": "object", "properties": props}
	if len(required) > 0 {
		schema["required"] = required
	}
	body := map[string]any{"in": "body", "name": "body", "required": len(required) > 0, "schema": schema}
	return append([]any{body}, rest...), true
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

// payloadSchema returns the schema of a body parameter, or synthesizes one
// from the type, format and items of a formData parameter. Files degrade
// to strings.
func payloadSchema(pm map[string]any) map[string]any {
	if sch, ok := pm["schema"].(map[string]any); ok {
		return sch
	}
	t := asString(pm["type"])
	if t == "" || t == "file" {
		t = "string"
	}
	m := map[string]any{"type": t}
	if it, ok := pm["items"].(map[string]any); ok {
		m["items"] = it
	}
	if f := asString(pm["format"]); f != "" {
		m["format"] = f
	}
	if d := asString(pm["description"]); d != "" {
		m["description"] = d
	}
	return m
}
