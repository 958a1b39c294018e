package backend_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/aretw0/tooldeck/pkg/adapters/backend"
	"github.com/aretw0/tooldeck/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchOptions(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/api/v1/tools-options", r.URL.Path)
		gotQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"options":{"packageSize":["Small","Medium"],"months":[1,2]}}`))
	}))
	defer srv.Close()

	c := backend.New(srv.URL + "/")
	opts, err := c.FetchOptions(context.Background(), "bulk-shipment-labeling-optimizer")
	require.NoError(t, err)

	assert.Equal(t, "tool_name=bulk-shipment-labeling-optimizer", gotQuery)
	assert.Equal(t, []string{"Small", "Medium"}, opts["packageSize"])
	assert.Equal(t, []string{"1", "2"}, opts["months"])
}

func TestCompute_PostsBodyAndReturnsResponse(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/chat-tools", r.URL.Path)
		assert.Equal(t, "route-optimizer", r.URL.Query().Get("tool"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{"response":{"totalDistance":12.5,"legs":[1,2]}}`))
	}))
	defer srv.Close()

	c := backend.New(srv.URL)
	res, err := c.Compute(context.Background(), "route-optimizer", map[string]any{"origin": "Depot"})
	require.NoError(t, err)

	assert.Equal(t, map[string]any{"origin": "Depot"}, got)
	assert.Equal(t, 12.5, res["totalDistance"])
	assert.Equal(t, []any{1.0, 2.0}, res["legs"])
}

func TestCompute_MissingResponseIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	res, err := backend.New(srv.URL).Compute(context.Background(), "x", map[string]any{})
	require.NoError(t, err)
	assert.NotNil(t, res)
	assert.Empty(t, res)
}

func TestNonOKStatus(t *testing.T) {
	for _, status := range []int{http.StatusBadRequest, http.StatusNotFound, http.StatusInternalServerError} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"ignored"}`, status)
		}))

		_, err := backend.New(srv.URL).FetchOptions(context.Background(), "x")
		srv.Close()

		require.Error(t, err)
		assert.ErrorIs(t, err, domain.ErrRequestFailed)

		var se *backend.StatusError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, status, se.StatusCode)
		assert.Equal(t, domain.OpFetchOptions, se.Op)
	}
}

func TestTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := backend.New(url).Compute(context.Background(), "x", map[string]any{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRequestFailed)

	var se *backend.StatusError
	assert.False(t, errors.As(err, &se), "transport failures carry no status")
}

func TestMalformedJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"options":`))
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL).FetchOptions(context.Background(), "x")
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
}

func TestBodyLimit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"response":{"notes":"` + strings.Repeat("x", 1024) + `"}}`))
	}))
	defer srv.Close()

	_, err := backend.New(srv.URL, backend.WithMaxBodyBytes(64)).Compute(context.Background(), "x", map[string]any{})
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
}

func TestContextCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := backend.New(srv.URL).FetchOptions(ctx, "x")
	assert.ErrorIs(t, err, domain.ErrRequestFailed)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
