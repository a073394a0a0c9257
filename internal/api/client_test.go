package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/devserver"
	"github.com/Makepad-fr/tada/internal/model"
)

func newClient(t *testing.T, opts ...devserver.Option) *HTTPClient {
	t.Helper()
	repo, err := devserver.OpenRepo(devserver.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	srv := httptest.NewServer(devserver.New(repo, opts...).Handler())
	t.Cleanup(srv.Close)

	c, err := NewHTTPClient(srv.URL)
	require.NoError(t, err)
	return c
}

func TestHTTPClient_RoundTrip(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	empty, err := c.List(ctx, 1816)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)

	created, err := c.Create(ctx, model.NewTodo{Title: "Buy milk", UserID: 1816})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.False(t, created.Completed)

	done := true
	updated, err := c.Update(ctx, created.ID, model.TodoPatch{Completed: &done})
	require.NoError(t, err)
	assert.True(t, updated.Completed)

	todos, err := c.List(ctx, 1816)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{updated}, todos)

	require.NoError(t, c.Delete(ctx, created.ID))
	todos, err = c.List(ctx, 1816)
	require.NoError(t, err)
	assert.Empty(t, todos)
}

func TestHTTPClient_StatusErrors(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	err := c.Delete(ctx, 404)
	require.Error(t, err)
	assert.True(t, IsStatus(err, http.StatusNotFound))

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.MethodDelete, se.Method)
	assert.Equal(t, "/todos/404", se.Path)
	assert.Contains(t, se.Error(), "404")

	_, err = c.Create(ctx, model.NewTodo{Title: " ", UserID: 1})
	assert.True(t, IsStatus(err, http.StatusBadRequest))
}

func TestHTTPClient_InjectedFailure(t *testing.T) {
	c := newClient(t, devserver.WithFault(func(*http.Request) bool { return true }))

	_, err := c.List(context.Background(), 1)
	assert.True(t, IsStatus(err, http.StatusInternalServerError))
}

func TestHTTPClient_TransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewHTTPClient(url, WithTimeout(time.Second))
	require.NoError(t, err)

	_, err = c.List(context.Background(), 1)
	require.Error(t, err)
	var se *StatusError
	assert.False(t, errors.As(err, &se))
}

func TestHTTPClient_SendsJSONHeaders(t *testing.T) {
	var gotType, gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotType = r.Header.Get("Content-Type")
		gotQuery = r.URL.RawQuery
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":5,"title":"x","userId":3,"completed":false}`))
	}))
	defer srv.Close()

	c, err := NewHTTPClient(srv.URL + "/students-api")
	require.NoError(t, err)

	got, err := c.Create(context.Background(), model.NewTodo{Title: "x", UserID: 3})
	require.NoError(t, err)
	assert.Equal(t, 5, got.ID)
	assert.Equal(t, "application/json; charset=UTF-8", gotType)

	_, _ = c.List(context.Background(), 3)
	assert.Equal(t, "userId=3", gotQuery)
}

func TestNewHTTPClient_RejectsBadURL(t *testing.T) {
	_, err := NewHTTPClient("ftp://example.com")
	assert.Error(t, err)
	_, err = NewHTTPClient("://nope")
	assert.Error(t, err)
}

func TestNewHTTPClient_RequestPaths(t *testing.T) {
	var paths []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tests := []struct {
		base string
		want string
	}{
		{srv.URL, "/todos/7"},
		{srv.URL + "/", "/todos/7"},
		{srv.URL + "/students-api", "/students-api/todos/7"},
	}
	for _, tt := range tests {
		t.Run(tt.base, func(t *testing.T) {
			c, err := NewHTTPClient(tt.base)
			require.NoError(t, err)

			err = c.Delete(context.Background(), 7)
			var se *StatusError
			require.True(t, errors.As(err, &se))
			assert.Equal(t, tt.want, se.Path)
			assert.Equal(t, "DELETE "+tt.want+": unexpected status 404 Not Found", se.Error())
		})
	}
	assert.Equal(t, []string{"/todos/7", "/todos/7", "/students-api/todos/7"}, paths)
}
