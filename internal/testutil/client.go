package testutil

import (
	"context"
	"net/http"
	"strconv"
	"sync"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/model"
)

// FakeClient is an in-memory api.Client with scriptable failures.
//
// Configure the exported fields before handing the client to concurrent
// callers; server state is guarded by an internal mutex.
type FakeClient struct {
	// Hook, when set, runs at the start of every call with the operation
	// name ("list", "create", "delete", "update"). Blocking in it keeps the
	// request in flight.
	Hook func(op string, id int)

	FailList   bool
	FailCreate bool
	FailUpdate bool
	// FailDelete lists ids whose delete fails.
	FailDelete map[int]bool

	mu     sync.Mutex
	todos  []model.Todo
	nextID int
	calls  map[string]int
}

// NewFakeClient seeds the fake server with todos.
func NewFakeClient(seed ...model.Todo) *FakeClient {
	c := &FakeClient{calls: map[string]int{}, FailDelete: map[int]bool{}}
	for _, t := range seed {
		c.todos = append(c.todos, t)
		if t.ID > c.nextID {
			c.nextID = t.ID
		}
	}
	return c
}

// Calls returns how many times op was invoked.
func (c *FakeClient) Calls(op string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls[op]
}

// ServerTodos returns a copy of the fake server's state.
func (c *FakeClient) ServerTodos() []model.Todo {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]model.Todo(nil), c.todos...)
}

func (c *FakeClient) begin(op string, id int) {
	c.mu.Lock()
	c.calls[op]++
	c.mu.Unlock()
	if c.Hook != nil {
		c.Hook(op, id)
	}
}

func fail(method, path string) error {
	return &api.StatusError{Method: method, Path: path, StatusCode: http.StatusInternalServerError}
}

func (c *FakeClient) List(ctx context.Context, userID int) ([]model.Todo, error) {
	c.begin("list", 0)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.FailList {
		return nil, fail(http.MethodGet, "/todos")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := []model.Todo{}
	for _, t := range c.todos {
		if t.UserID == userID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (c *FakeClient) Create(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	c.begin("create", 0)
	if err := ctx.Err(); err != nil {
		return model.Todo{}, err
	}
	if c.FailCreate {
		return model.Todo{}, fail(http.MethodPost, "/todos")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextID++
	t := model.Todo{ID: c.nextID, Title: in.Title, UserID: in.UserID, Completed: in.Completed}
	c.todos = append(c.todos, t)
	return t, nil
}

func (c *FakeClient) Delete(ctx context.Context, id int) error {
	c.begin("delete", id)
	if err := ctx.Err(); err != nil {
		return err
	}
	path := "/todos/" + strconv.Itoa(id)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.FailDelete[id] {
		return fail(http.MethodDelete, path)
	}
	for i, t := range c.todos {
		if t.ID == id {
			c.todos = append(c.todos[:i], c.todos[i+1:]...)
			return nil
		}
	}
	return &api.StatusError{Method: http.MethodDelete, Path: path, StatusCode: http.StatusNotFound}
}

func (c *FakeClient) Update(ctx context.Context, id int, patch model.TodoPatch) (model.Todo, error) {
	c.begin("update", id)
	if err := ctx.Err(); err != nil {
		return model.Todo{}, err
	}
	path := "/todos/" + strconv.Itoa(id)
	if c.FailUpdate {
		return model.Todo{}, fail(http.MethodPatch, path)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, t := range c.todos {
		if t.ID == id {
			if patch.Completed != nil {
				c.todos[i].Completed = *patch.Completed
			}
			return c.todos[i], nil
		}
	}
	return model.Todo{}, &api.StatusError{Method: http.MethodPatch, Path: path, StatusCode: http.StatusNotFound}
}

var _ api.Client = (*FakeClient)(nil)
