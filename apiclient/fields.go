package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/url"
	"reflect"
	"sort"
	"strconv"
)

// toFields flattens path parameters or query values into a name → value map.
// Maps are copied; structs and pointers go through their JSON encoding so
// the json tags of the generated request types decide the field names.
func toFields(v any) (map[string]any, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = x
		}
		return out, nil
	case map[string]string:
		out := make(map[string]any, len(val))
		for k, x := range val {
			out[k] = x
		}
		return out, nil
	case url.Values:
		out := make(map[string]any, len(val))
		for k, xs := range val {
			items := make([]any, len(xs))
			for i, x := range xs {
				items[i] = x
			}
			out[k] = items
		}
		return out, nil
	}
	if rv := reflect.ValueOf(v); rv.Kind() == reflect.Pointer && rv.IsNil() {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode %T: %w", v, err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var out map[string]any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("flatten %T: expected an object: %w", v, err)
	}
	return out, nil
}

// encodeQuery renders query parameters. Slices become repeated keys and nil
// values are dropped.
func encodeQuery(v any) (url.Values, error) {
	fields, err := toFields(v)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, nil
	}
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	q := make(url.Values, len(fields))
	for _, k := range keys {
		val := fields[k]
		if val == nil {
			continue
		}
		if rv := reflect.ValueOf(val); rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array {
			for i := 0; i < rv.Len(); i++ {
				if item := rv.Index(i).Interface(); item != nil {
					q.Add(k, formatValue(item))
				}
			}
			continue
		}
		q.Set(k, formatValue(val))
	}
	return q, nil
}

// formatValue returns the string form used in paths and query strings.
func formatValue(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case json.Number:
		return val.String()
	case bool:
		return strconv.FormatBool(val)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(val), 'f', -1, 32)
	case fmt.Stringer:
		return val.String()
	default:
		return fmt.Sprint(val)
	}
}
