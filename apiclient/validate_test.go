package apiclient_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/routeclient/apiclient"
)

const userSchema = `{
  "type": "object",
  "required": ["id", "name"],
  "properties": {
    "id": {"type": "string"},
    "name": {"type": "string"},
    "profile": {
      "type": "object",
      "properties": {"bio": {"type": "string"}}
    },
    "roles": {
      "type": "array",
      "items": {"type": "object", "properties": {"name": {"type": "string"}}}
    }
  }
}`

func mustSchema(t *testing.T, raw string) *openapi3.Schema {
	t.Helper()
	s := &openapi3.Schema{}
	require.NoError(t, json.Unmarshal([]byte(raw), s))
	return s
}

func decodeJSON(t *testing.T, raw string) any {
	t.Helper()
	var v any
	require.NoError(t, json.Unmarshal([]byte(raw), &v))
	return v
}

// warnings returns the JSON log records at WARN level.
func warnings(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		var rec map[string]any
		require.NoError(t, json.Unmarshal([]byte(line), &rec))
		if rec["level"] == "WARN" {
			out = append(out, rec)
		}
	}
	return out
}

func TestKinValidator_AdditionalKeys(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		schema string
		data   string
		want   []string
	}{
		"exact match": {
			schema: userSchema,
			data:   `{"id":"1","name":"a"}`,
		},
		"top-level extras": {
			schema: userSchema,
			data:   `{"id":"1","name":"a","foo":1,"bar":true}`,
			want:   []string{"bar", "foo"},
		},
		"nested extras": {
			schema: userSchema,
			data:   `{"id":"1","name":"a","profile":{"bio":"b","age":3}}`,
			want:   []string{"profile.age"},
		},
		"array element extras reported once": {
			schema: userSchema,
			data:   `{"id":"1","name":"a","roles":[{"name":"x","level":1},{"name":"y","level":2}]}`,
			want:   []string{"roles[].level"},
		},
		"free-form object": {
			schema: `{"type":"object"}`,
			data:   `{"anything":1}`,
		},
		"additionalProperties schema declares extras": {
			schema: `{"type":"object","properties":{"a":{"type":"string"}},"additionalProperties":{"type":"integer"}}`,
			data:   `{"a":"x","n":1}`,
		},
		"additionalProperties true declares extras": {
			schema: `{"type":"object","properties":{"a":{"type":"string"}},"additionalProperties":true}`,
			data:   `{"a":"x","n":1,"m":"y"}`,
		},
		"additionalProperties false still reports": {
			schema: `{"type":"object","properties":{"a":{"type":"string"}},"additionalProperties":false}`,
			data:   `{"a":"x"}`,
		},
		"nested extras under additionalProperties schema": {
			schema: `{"type":"object","additionalProperties":{"type":"object","properties":{"x":{"type":"integer"}}}}`,
			data:   `{"k1":{"x":1},"k2":{"x":2,"y":3}}`,
			want:   []string{"k2.y"},
		},
		"allOf properties are declared": {
			schema: `{"allOf":[{"type":"object","properties":{"a":{"type":"string"}}},{"type":"object","properties":{"b":{"type":"string"}}}]}`,
			data:   `{"a":"x","b":"y","c":"z"}`,
			want:   []string{"c"},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			res, err := apiclient.KinValidator{}.Validate(decodeJSON(t, tc.data), mustSchema(t, tc.schema))
			require.NoError(t, err)
			assert.Equal(t, tc.want, res.AdditionalKeys)
		})
	}
}

func TestKinValidator_Invalid(t *testing.T) {
	t.Parallel()

	_, err := apiclient.KinValidator{}.Validate(decodeJSON(t, `{"id":1}`), mustSchema(t, userSchema))
	require.Error(t, err)
}

func TestKinValidator_EmptyBody(t *testing.T) {
	t.Parallel()

	_, err := apiclient.KinValidator{}.Validate(nil, mustSchema(t, `{}`))
	require.NoError(t, err)

	_, err = apiclient.KinValidator{}.Validate(nil, mustSchema(t, userSchema))
	require.Error(t, err)
}

func TestResponseValidator_no_extras_no_warning(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v := apiclient.NewResponseValidator(nil, slog.New(slog.NewJSONHandler(&buf, nil)), nil)
	data := decodeJSON(t, `{"id":"1","name":"a"}`)

	got, err := v.Validate(context.Background(), data, mustSchema(t, userSchema), "/users/{id}", "GET")
	require.NoError(t, err)
	assert.Equal(t, data, got)
	assert.Empty(t, warnings(t, &buf))
}

func TestResponseValidator_extras_warn_once(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	v := apiclient.NewResponseValidator(nil, slog.New(slog.NewJSONHandler(&buf, nil)), nil)
	data := decodeJSON(t, `{"id":"1","name":"a","foo":1,"bar":2}`)

	got, err := v.Validate(context.Background(), data, mustSchema(t, userSchema), "/users/{id}", "GET")
	require.NoError(t, err)
	assert.Equal(t, data, got)

	warns := warnings(t, &buf)
	require.Len(t, warns, 1)
	assert.Equal(t, "/users/{id}", warns[0]["route"])
	assert.Equal(t, "GET", warns[0]["method"])
	assert.ElementsMatch(t, []any{"foo", "bar"}, warns[0]["keys"])
}

func TestResponseValidator_invalid_is_fatal(t *testing.T) {
	t.Parallel()

	v := apiclient.NewResponseValidator(nil, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)), nil)
	got, err := v.Validate(context.Background(), decodeJSON(t, `{"name":5}`), mustSchema(t, userSchema), "/users/{id}", "GET")
	assert.Nil(t, got)
	require.ErrorIs(t, err, apiclient.ErrInvalidResponse)

	var ve *apiclient.ValidationError
	require.True(t, errors.As(err, &ve))
	assert.Equal(t, "/users/{id}", ve.Route)
}

type fakeReporter struct {
	mu    sync.Mutex
	drift []apiclient.Drift
	err   error
}

func (f *fakeReporter) ReportAdditionalKeys(_ context.Context, d apiclient.Drift) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.drift = append(f.drift, d)
	return f.err
}

func TestResponseValidator_reports_drift(t *testing.T) {
	t.Parallel()

	rep := &fakeReporter{err: errors.New("disk full")}
	var buf bytes.Buffer
	v := apiclient.NewResponseValidator(nil, slog.New(slog.NewJSONHandler(&buf, nil)), rep)

	_, err := v.Validate(context.Background(), decodeJSON(t, `{"id":"1","name":"a","foo":1}`), mustSchema(t, userSchema), "/users", "GET")
	require.NoError(t, err, "reporter failures never fail the call")
	require.Len(t, rep.drift, 1)
	assert.Equal(t, []string{"foo"}, rep.drift[0].Keys)
	assert.Len(t, warnings(t, &buf), 2)
}

func TestSchemaRegistry(t *testing.T) {
	t.Parallel()

	reg, err := apiclient.NewSchemaRegistry(map[int]string{200: userSchema, 204: `{}`})
	require.NoError(t, err)
	assert.Contains(t, reg, "status200Schema")
	assert.Contains(t, reg, "status204Schema")

	_, ok := reg.Lookup(200)
	assert.True(t, ok)
	_, ok = reg.Lookup(404)
	assert.False(t, ok)

	_, err = apiclient.NewSchemaRegistry(map[int]string{200: `{`})
	require.Error(t, err)
	assert.Panics(t, func() { apiclient.MustSchemaRegistry(map[int]string{200: `not json`}) })
}
