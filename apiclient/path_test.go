package apiclient_test

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/routeclient/apiclient"
)

func TestResolvePath(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		template string
		params   map[string]any
		want     string
	}{
		"no placeholders": {
			template: "/users",
			want:     "/users",
		},
		"single placeholder": {
			template: "/users/{id}",
			params:   map[string]any{"id": "42"},
			want:     "/users/42",
		},
		"numeric value": {
			template: "/users/{id}",
			params:   map[string]any{"id": 42},
			want:     "/users/42",
		},
		"json number keeps its text": {
			template: "/users/{id}",
			params:   map[string]any{"id": json.Number("12345678901234567890")},
			want:     "/users/12345678901234567890",
		},
		"float without exponent": {
			template: "/items/{n}",
			params:   map[string]any{"n": float64(1e21)},
			want:     "/items/1000000000000000000000",
		},
		"nil value becomes empty": {
			template: "/users/{id}/posts",
			params:   map[string]any{"id": nil},
			want:     "/users//posts",
		},
		"only first occurrence replaced": {
			template: "/a/{x}/b/{x}",
			params:   map[string]any{"x": "1"},
			want:     "/a/1/b",
		},
		"several placeholders": {
			template: "/orgs/{org}/repos/{repo}",
			params:   map[string]any{"org": "acme", "repo": "tools"},
			want:     "/orgs/acme/repos/tools",
		},
		"unresolved optional trailing segment elided": {
			template: "/tests/{day}",
			want:     "/tests",
		},
		"unresolved trailing segment with slash": {
			template: "/tests/{day}/",
			want:     "/tests",
		},
		"only the last unresolved segment elided": {
			template: "/orgs/{org}/repos/{repo}",
			want:     "/orgs/{org}/repos",
		},
		"missing inner placeholder stays literal": {
			template: "/users/{id}/posts",
			want:     "/users/{id}/posts",
		},
		"value is not expanded again": {
			template: "/{a}/{b}",
			params:   map[string]any{"a": "{b}", "b": "x"},
			want:     "/{b}/x",
		},
		"values are inserted unescaped": {
			template: "/users/{id}",
			params:   map[string]any{"id": "a?b"},
			want:     "/users/a?b",
		},
		"unknown keys ignored": {
			template: "/users/{id}",
			params:   map[string]any{"id": "7", "other": "x"},
			want:     "/users/7",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, apiclient.ResolvePath(tc.template, tc.params))
		})
	}
}

func TestResolvePath_leaves_rest_of_template_unchanged(t *testing.T) {
	t.Parallel()

	const tmpl = "/v1/{tenant}/users/{id}/settings"
	got := apiclient.ResolvePath(tmpl, map[string]any{"id": "u1"})
	assert.Equal(t, "/v1/{tenant}/users/u1/settings", got)
}

func TestWithPathEscaping(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		id   string
		want string
	}{
		"query and fragment characters": {id: "a?b#c", want: "/users/a%3Fb%23c"},
		"percent":                       {id: "50%", want: "/users/50%25"},
		"slash":                         {id: "a/b", want: "/users/a%2Fb"},
		"plain":                         {id: "42", want: "/users/42"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got string
			exec := apiclient.ExecutorFunc(func(_ context.Context, req *apiclient.Request) (*apiclient.Response, error) {
				got = req.URL
				return &apiclient.Response{Status: 200}, nil
			})
			c := apiclient.New(exec, apiclient.WithPathEscaping())
			_, err := c.Execute(context.Background(), apiclient.RequestConfig{
				Method:     "GET",
				URL:        "/users/{id}",
				PathParams: map[string]any{"id": tc.id},
			})
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}
