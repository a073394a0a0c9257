package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/Makepad-fr/tada/internal/devserver"
	"github.com/Makepad-fr/tada/internal/model"
)

type harness struct {
	t   *testing.T
	url string
}

func newHarness(t *testing.T, opts ...devserver.Option) *harness {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{"TADA_API_URL", "TADA_USER_ID", "TADA_TIMEOUT_SECONDS", "TADA_LOG_LEVEL", "TADA_LOG_FORMAT", "TADA_LOG_FILE"} {
		t.Setenv(k, "")
	}

	repo, err := devserver.OpenRepo(devserver.MemoryDSN)
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	srv := httptest.NewServer(devserver.New(repo, opts...).Handler())
	t.Cleanup(srv.Close)
	return &harness{t: t, url: srv.URL}
}

// run executes the CLI against the test server.
func (h *harness) run(args ...string) (code int, stdout, stderr string) {
	h.t.Helper()
	var out, errOut bytes.Buffer
	full := append([]string{"--api-url", h.url, "--user-id", "1816", "--theme", "mono"}, args...)
	code = Execute(context.Background(), full, &out, &errOut)
	return code, out.String(), errOut.String()
}

func (h *harness) list(args ...string) []model.Todo {
	h.t.Helper()
	code, out, stderr := h.run(append([]string{"ls", "--format", "json"}, args...)...)
	require.Equal(h.t, ExitOK, code, stderr)
	var todos []model.Todo
	require.NoError(h.t, json.Unmarshal([]byte(out), &todos))
	return todos
}

func TestAddAndList(t *testing.T) {
	h := newHarness(t)

	code, out, _ := h.run("add", "Buy", "milk")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "ok added #1 Buy milk")

	code, out, _ = h.run("ls")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Buy milk")
	assert.Contains(t, out, "1 items left")

	todos := h.list()
	require.Len(t, todos, 1)
	assert.Equal(t, model.Todo{ID: 1, Title: "Buy milk", UserID: 1816}, todos[0])
}

func TestList_Empty(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, []model.Todo{}, h.list())

	code, out, _ := h.run("ls")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "no items")
	assert.Contains(t, out, "Tip: add with")
}

func TestList_YAMLAndGroup(t *testing.T) {
	h := newHarness(t)
	h.run("add", "first")
	h.run("add", "second")
	h.run("toggle", "2")

	code, out, _ := h.run("ls", "--format", "yaml")
	require.Equal(t, ExitOK, code)
	var todos []model.Todo
	require.NoError(t, yaml.Unmarshal([]byte(out), &todos))
	require.Len(t, todos, 2)
	assert.True(t, todos[1].Completed)

	code, out, _ = h.run("ls", "--group")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "Active")
	assert.Contains(t, out, "Completed")
}

func TestList_Filter(t *testing.T) {
	h := newHarness(t)
	h.run("add", "A")
	h.run("add", "B")
	h.run("add", "C")
	code, _, _ := h.run("toggle", "2")
	require.Equal(t, ExitOK, code)

	active := h.list("--filter", "active")
	require.Len(t, active, 2)
	assert.Equal(t, "A", active[0].Title)
	assert.Equal(t, "C", active[1].Title)

	completed := h.list("--filter", "completed")
	require.Len(t, completed, 1)
	assert.Equal(t, 2, completed[0].ID)

	code, _, stderr := h.run("ls", "--filter", "someday")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "error:")

	code, _, _ = h.run("ls", "--format", "xml")
	assert.Equal(t, ExitUsage, code)
}

func TestAdd_EmptyTitle(t *testing.T) {
	h := newHarness(t)
	code, _, stderr := h.run("add", "   ")
	assert.Equal(t, ExitUsage, code)
	assert.Contains(t, stderr, "Title should not be empty")
	assert.Empty(t, h.list())
}

func TestToggle(t *testing.T) {
	h := newHarness(t)
	h.run("add", "A")

	code, out, _ := h.run("toggle", "1")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "#1 is now completed")

	code, out, _ = h.run("toggle", "1")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "#1 is now active")
}

func TestRemove(t *testing.T) {
	h := newHarness(t)
	h.run("add", "A")
	h.run("add", "B")

	code, out, _ := h.run("rm", "1")
	require.Equal(t, ExitOK, code)
	assert.Contains(t, out, "removed #1")

	todos := h.list()
	require.Len(t, todos, 1)
	assert.Equal(t, "B", todos[0].Title)
}

func TestBadIDs(t *testing.T) {
	h := newHarness(t)
	tests := [][]string{
		{"rm", "abc"},
		{"rm", "0"},
		{"rm", "99"},
		{"toggle", "99"},
		{"rm"},
	}
	for _, args := range tests {
		code, _, _ := h.run(args...)
		assert.Equal(t, ExitUsage, code, args)
	}
}

func TestClear_PartialFailure(t *testing.T) {
	h := newHarness(t, devserver.WithFault(devserver.FailDeletes(2)))
	for i := 1; i <= 3; i++ {
		h.run("add", "todo "+strconv.Itoa(i))
		h.run("toggle", strconv.Itoa(i))
	}

	code, out, stderr := h.run("clear")
	assert.Equal(t, ExitRemote, code)
	assert.Contains(t, out, "cleared 2 completed")
	assert.Contains(t, stderr, "Unable to delete a todo")

	todos := h.list()
	require.Len(t, todos, 1)
	assert.Equal(t, 2, todos[0].ID)
}

func TestClear_Nothing(t *testing.T) {
	h := newHarness(t)
	h.run("add", "A")
	code, out, _ := h.run("clear")
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, out, "nothing to clear")
}

func TestRemoteFailure(t *testing.T) {
	h := newHarness(t, devserver.WithFault(devserver.FailRate(1)))

	code, _, stderr := h.run("ls")
	assert.Equal(t, ExitRemote, code)
	assert.Contains(t, stderr, "Unable to load todos")

	code, _, stderr = h.run("add", "A")
	assert.Equal(t, ExitRemote, code)
	assert.Contains(t, stderr, "Unable to add a todo")
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	code, _, _ := h.run("frobnicate")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = h.run("ls", "--api-url", "ftp://example.com")
	assert.Equal(t, ExitUsage, code)

	code, _, _ = h.run("add")
	assert.Equal(t, ExitUsage, code)
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitUsage, exitCode(usageErr("bad")))
	assert.Equal(t, ExitRemote, exitCode(&exitError{code: ExitRemote, err: assert.AnError}))
	assert.Equal(t, ExitUsage, exitCode(assert.AnError))
}
