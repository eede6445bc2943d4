package userapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/routeclient/apiclient"
	"github.com/mark3labs/routeclient/drift"
	"github.com/mark3labs/routeclient/internal/example/userapi"
)

type request struct {
	Method, Path, Query, Origin string
	Body                        map[string]any
}

// fakeServer answers from canned responses keyed by "METHOD /path".
type fakeServer struct {
	mu       sync.Mutex
	requests []request
	replies  map[string]reply
}

type reply struct {
	status int
	body   string
}

func (f *fakeServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body map[string]any
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.mu.Lock()
	f.requests = append(f.requests, request{Method: r.Method, Path: r.URL.Path, Query: r.URL.RawQuery, Origin: r.Header.Get("Rederly-Origin"), Body: body})
	rep, ok := f.replies[r.Method+" "+r.URL.Path]
	f.mu.Unlock()
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(rep.status)
	_, _ = w.Write([]byte(rep.body))
}

func (f *fakeServer) last() request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newClient(t *testing.T, replies map[string]reply, opts ...apiclient.ClientOption) (*userapi.Client, *fakeServer) {
	t.Helper()
	fake := &fakeServer{replies: replies}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	exec, err := apiclient.NewHTTPExecutor(
		apiclient.WithBaseURL(srv.URL),
		apiclient.WithHeader("Rederly-Origin", "routeclient-test"),
	)
	require.NoError(t, err)
	opts = append([]apiclient.ClientOption{apiclient.WithLogger(slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))}, opts...)
	return userapi.NewClient(exec, opts...), fake
}

func TestUsersGetById(t *testing.T) {
	t.Parallel()

	c, fake := newClient(t, map[string]reply{
		"GET /users/42": {200, `{"id":"42","name":"Ada","email":"ada@example.com"}`},
	})
	resp, err := c.UsersGetById(context.Background(), userapi.UsersGetByIdConfig{
		PathParams: &userapi.UsersGetByIdParams{ID: "42"},
	})
	require.NoError(t, err)

	assert.Equal(t, request{Method: "GET", Path: "/users/42", Origin: "routeclient-test"}, fake.last())
	assert.Equal(t, 200, resp.Status)
	require.NotNil(t, resp.Status200)
	assert.Equal(t, userapi.UsersGetById200{ID: "42", Name: "Ada", Email: "ada@example.com"}, *resp.Status200)
	assert.Nil(t, resp.Status404)
}

func TestUsersGetById_declared_error_status(t *testing.T) {
	t.Parallel()

	c, _ := newClient(t, map[string]reply{
		"GET /users/7": {404, `{"message":"no such user"}`},
	})
	resp, err := c.UsersGetById(context.Background(), userapi.UsersGetByIdConfig{
		PathParams: &userapi.UsersGetByIdParams{ID: "7"},
	})
	require.NoError(t, err)
	assert.Nil(t, resp.Status200)
	require.NotNil(t, resp.Status404)
	assert.Equal(t, "no such user", resp.Status404.Message)
}

func TestUsersGetById_undeclared_status(t *testing.T) {
	t.Parallel()

	c, _ := newClient(t, map[string]reply{
		"GET /users/1": {500, `{"message":"boom"}`},
	})
	resp, err := c.UsersGetById(context.Background(), userapi.UsersGetByIdConfig{
		PathParams: &userapi.UsersGetByIdParams{ID: "1"},
	})
	assert.Nil(t, resp)
	require.ErrorIs(t, err, apiclient.ErrUnexpectedStatus)

	var use *apiclient.UnexpectedStatusError
	require.True(t, errors.As(err, &use))
	assert.Equal(t, "/users/{id}", use.Route)
	assert.Equal(t, 500, use.Status)
}

func TestUsersGetById_invalid_body(t *testing.T) {
	t.Parallel()

	c, _ := newClient(t, map[string]reply{
		"GET /users/1": {200, `{"id":1}`},
	})
	_, err := c.UsersGetById(context.Background(), userapi.UsersGetByIdConfig{
		PathParams: &userapi.UsersGetByIdParams{ID: "1"},
	})
	require.ErrorIs(t, err, apiclient.ErrInvalidResponse)
}

func TestUsersGetUsers_query_and_index_route(t *testing.T) {
	t.Parallel()

	c, fake := newClient(t, map[string]reply{
		"GET /users": {200, `[{"id":"1","name":"a"},{"id":"2","name":"b","role":"admin"}]`},
	})
	resp, err := c.UsersGetUsers(context.Background(), userapi.UsersGetUsersQuery{Page: 2, Search: "a"}, userapi.UsersGetUsersConfig{})
	require.NoError(t, err)

	got := fake.last()
	assert.Equal(t, "/users", got.Path)
	assert.Equal(t, "page=2&search=a", got.Query)
	require.NotNil(t, resp.Status200)
	assert.Equal(t, userapi.UsersGetUsers200{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, *resp.Status200)
}

func TestTestsPostByDay_body_is_positional(t *testing.T) {
	t.Parallel()

	c, fake := newClient(t, map[string]reply{
		"POST /tests/2024-05-01": {201, `{"id":9,"day":"2024-05-01","score":0.5}`},
	})
	resp, err := c.TestsPostByDay(context.Background(), userapi.TestsPostByDayBody{Score: 0.5, Notes: "ok"}, userapi.TestsPostByDayConfig{
		PathParams: &userapi.TestsPostByDayParams{Day: "2024-05-01"},
	})
	require.NoError(t, err)

	got := fake.last()
	assert.Equal(t, "POST", got.Method)
	assert.Equal(t, "/tests/2024-05-01", got.Path)
	assert.Equal(t, map[string]any{"score": 0.5, "notes": "ok"}, got.Body)
	require.NotNil(t, resp.Status201)
	assert.Equal(t, userapi.TestsPostByDay201{ID: 9, Day: "2024-05-01", Score: 0.5}, *resp.Status201)
}

func TestTestsPostByDay_optional_trailing_param(t *testing.T) {
	t.Parallel()

	c, fake := newClient(t, map[string]reply{
		"POST /tests": {201, `{"id":1,"day":"today"}`},
	})
	_, err := c.TestsPostByDay(context.Background(), userapi.TestsPostByDayBody{Score: 1}, userapi.TestsPostByDayConfig{})
	require.NoError(t, err)
	assert.Equal(t, "/tests", fake.last().Path)
}

func TestPerCallHeaders(t *testing.T) {
	t.Parallel()

	c, fake := newClient(t, map[string]reply{
		"GET /users/1": {200, `{"id":"1","name":"a"}`},
	})
	cfg := userapi.UsersGetByIdConfig{PathParams: &userapi.UsersGetByIdParams{ID: "1"}}
	cfg.Header = http.Header{"Rederly-Origin": []string{"per-call"}}
	_, err := c.UsersGetById(context.Background(), cfg)
	require.NoError(t, err)
	assert.Equal(t, "per-call", fake.last().Origin)
}

func TestDriftIsRecorded(t *testing.T) {
	t.Parallel()

	store, err := drift.Open(filepath.Join(t.TempDir(), "drift.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	c, _ := newClient(t, map[string]reply{
		"GET /users/1": {200, `{"id":"1","name":"a","nickname":"z"}`},
	}, apiclient.WithDriftReporter(store))
	_, err = c.UsersGetById(context.Background(), userapi.UsersGetByIdConfig{
		PathParams: &userapi.UsersGetByIdParams{ID: "1"},
	})
	require.NoError(t, err)

	entries, err := store.List(context.Background(), "/users/{id}")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "nickname", entries[0].Key)
	assert.Equal(t, "GET", entries[0].Method)
}
