package apiclient_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mark3labs/routeclient/apiclient"
)

type userParams struct {
	ID string `json:"id"`
}

type listQuery struct {
	Page  int      `json:"page"`
	Tags  []string `json:"tags,omitempty"`
	Empty *string  `json:"empty"`
}

func recordingExecutor(got **apiclient.Request) apiclient.Executor {
	return apiclient.ExecutorFunc(func(_ context.Context, req *apiclient.Request) (*apiclient.Response, error) {
		*got = req
		return &apiclient.Response{Status: http.StatusOK}, nil
	})
}

func TestRequestWrapper_Execute(t *testing.T) {
	t.Parallel()

	tests := map[string]struct {
		cfg     apiclient.RequestConfig
		wantURL string
	}{
		"map params": {
			cfg:     apiclient.RequestConfig{Method: "GET", URL: "/users/{id}", PathParams: map[string]any{"id": "42"}},
			wantURL: "/users/42",
		},
		"string map params": {
			cfg:     apiclient.RequestConfig{Method: "GET", URL: "/users/{id}", PathParams: map[string]string{"id": "42"}},
			wantURL: "/users/42",
		},
		"struct params": {
			cfg:     apiclient.RequestConfig{Method: "GET", URL: "/users/{id}", PathParams: &userParams{ID: "abc"}},
			wantURL: "/users/abc",
		},
		"nil struct pointer elides trailing param": {
			cfg:     apiclient.RequestConfig{Method: "GET", URL: "/users/{id}", PathParams: (*userParams)(nil)},
			wantURL: "/users",
		},
		"no params": {
			cfg:     apiclient.RequestConfig{Method: "GET", URL: "/users"},
			wantURL: "/users",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()

			var got *apiclient.Request
			w := apiclient.NewRequestWrapper(recordingExecutor(&got), nil)
			_, err := w.Execute(context.Background(), tc.cfg)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tc.wantURL, got.URL)
			assert.Equal(t, tc.cfg.Method, got.Method)
		})
	}
}

func TestRequestWrapper_does_not_mutate_config(t *testing.T) {
	t.Parallel()

	params := map[string]any{"id": "42"}
	query := &listQuery{Page: 2}
	body := map[string]any{"name": "x"}
	header := http.Header{"X-Trace": []string{"abc"}}
	cfg := apiclient.RequestConfig{
		Method:     "POST",
		URL:        "/users/{id}",
		PathParams: params,
		Query:      query,
		Body:       body,
		Options:    apiclient.Options{Header: header, Timeout: time.Second},
	}

	exec := apiclient.ExecutorFunc(func(_ context.Context, req *apiclient.Request) (*apiclient.Response, error) {
		// Executors may decorate headers; the caller must not see it.
		req.Header.Set("X-Request-Id", "generated")
		return &apiclient.Response{Status: http.StatusOK}, nil
	})
	w := apiclient.NewRequestWrapper(exec, nil)
	_, err := w.Execute(context.Background(), cfg)
	require.NoError(t, err)

	assert.Equal(t, "/users/{id}", cfg.URL)
	assert.Equal(t, map[string]any{"id": "42"}, params)
	assert.Equal(t, &listQuery{Page: 2}, query)
	assert.Equal(t, http.Header{"X-Trace": []string{"abc"}}, header)
	assert.Equal(t, map[string]any{"id": "42"}, cfg.PathParams)
}

func TestRequestWrapper_forwards_transport_fields(t *testing.T) {
	t.Parallel()

	var got *apiclient.Request
	w := apiclient.NewRequestWrapper(recordingExecutor(&got), nil)
	query := listQuery{Page: 1}
	body := map[string]any{"tomdefaultdate": "2024-01-01"}
	_, err := w.Execute(context.Background(), apiclient.RequestConfig{
		Method:     "POST",
		URL:        "/test/motmot/{second}",
		PathParams: map[string]any{"second": "1231253"},
		Query:      query,
		Body:       body,
		Options: apiclient.Options{
			Header:  http.Header{"Rederly-Origin": []string{"TOMTOM"}},
			Timeout: 3 * time.Minute,
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "/test/motmot/1231253", got.URL)
	assert.Equal(t, query, got.Params)
	assert.Equal(t, body, got.Data)
	assert.Equal(t, "TOMTOM", got.Header.Get("Rederly-Origin"))
	assert.Equal(t, 3*time.Minute, got.Timeout)
}

func TestRequestWrapper_propagates_executor_error(t *testing.T) {
	t.Parallel()

	boom := errors.New("dial tcp: connection refused")
	exec := apiclient.ExecutorFunc(func(context.Context, *apiclient.Request) (*apiclient.Response, error) {
		return nil, boom
	})
	w := apiclient.NewRequestWrapper(exec, nil)
	resp, err := w.Execute(context.Background(), apiclient.RequestConfig{Method: "GET", URL: "/x"})
	assert.Nil(t, resp)
	assert.Same(t, boom, err)
}

func TestRequestWrapper_rejects_non_object_params(t *testing.T) {
	t.Parallel()

	w := apiclient.NewRequestWrapper(apiclient.ExecutorFunc(func(context.Context, *apiclient.Request) (*apiclient.Response, error) {
		t.Fatal("executor must not be called")
		return nil, nil
	}), nil)
	_, err := w.Execute(context.Background(), apiclient.RequestConfig{Method: "GET", URL: "/x/{id}", PathParams: []string{"a"}})
	require.Error(t, err)
}
