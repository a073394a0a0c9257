package devserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Makepad-fr/tada/internal/model"
)

func newTestServer(t *testing.T, opts ...Option) (*httptest.Server, *Repo) {
	t.Helper()
	repo, err := OpenRepo(MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	srv := httptest.NewServer(New(repo, opts...).Handler())
	t.Cleanup(srv.Close)
	return srv, repo
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_CreateAndListScopedByUser(t *testing.T) {
	srv, _ := newTestServer(t)

	resp := do(t, http.MethodPost, srv.URL+"/todos", `{"title":"  Buy milk ","userId":7,"completed":false}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created model.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&created))
	assert.NotZero(t, created.ID)
	assert.Equal(t, "Buy milk", created.Title)
	assert.Equal(t, 7, created.UserID)

	do(t, http.MethodPost, srv.URL+"/todos", `{"title":"Other user","userId":8}`)

	resp = do(t, http.MethodGet, srv.URL+"/todos?userId=7", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var todos []model.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&todos))
	assert.Equal(t, []model.Todo{created}, todos)
}

func TestServer_ListRequiresUser(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodGet, srv.URL+"/todos", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_RejectsEmptyTitle(t *testing.T) {
	srv, _ := newTestServer(t)
	resp := do(t, http.MethodPost, srv.URL+"/todos", `{"title":"   ","userId":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_DeleteAndNotFound(t *testing.T) {
	srv, repo := newTestServer(t)
	todo, err := repo.Create(context.Background(), model.NewTodo{Title: "A", UserID: 1})
	require.NoError(t, err)

	resp := do(t, http.MethodDelete, srv.URL+"/todos/"+strconv.Itoa(todo.ID), "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp = do(t, http.MethodDelete, srv.URL+"/todos/"+strconv.Itoa(todo.ID), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_PatchCompleted(t *testing.T) {
	srv, repo := newTestServer(t)
	todo, err := repo.Create(context.Background(), model.NewTodo{Title: "A", UserID: 1})
	require.NoError(t, err)

	resp := do(t, http.MethodPatch, srv.URL+"/todos/"+strconv.Itoa(todo.ID), `{"completed":true}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated model.Todo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&updated))
	assert.True(t, updated.Completed)

	resp = do(t, http.MethodPatch, srv.URL+"/todos/999", `{"completed":true}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestServer_FailDeletes(t *testing.T) {
	srv, repo := newTestServer(t, WithFault(FailDeletes(1)))
	ctx := context.Background()
	a, err := repo.Create(ctx, model.NewTodo{Title: "A", UserID: 1})
	require.NoError(t, err)
	b, err := repo.Create(ctx, model.NewTodo{Title: "B", UserID: 1})
	require.NoError(t, err)

	assert.Equal(t, http.StatusInternalServerError, do(t, http.MethodDelete, srv.URL+"/todos/"+strconv.Itoa(a.ID), "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodDelete, srv.URL+"/todos/"+strconv.Itoa(b.ID), "").StatusCode)

	left, err := repo.List(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []model.Todo{a}, left)
}

func TestFailRate_Zero(t *testing.T) {
	assert.Nil(t, FailRate(0))
	assert.NotNil(t, FailRate(0.5))
}
