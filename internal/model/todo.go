package model

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Todo is a server-confirmed todo entry.
type Todo struct {
	ID        int    `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	UserID    int    `json:"userId" yaml:"userId"`
	Completed bool   `json:"completed" yaml:"completed"`
}

// NewTodo is the body of a create request. The server assigns the id.
type NewTodo struct {
	Title     string `json:"title"`
	UserID    int    `json:"userId"`
	Completed bool   `json:"completed"`
}

// TodoPatch carries the fields of a partial update.
type TodoPatch struct {
	Completed *bool `json:"completed,omitempty"`
}

// PendingTodo is a local-only placeholder shown while a create request is in
// flight. It is never mutated; it is replaced by the confirmed Todo or dropped.
type PendingTodo struct {
	Key    uuid.UUID
	Title  string
	UserID int
}

// NewPendingTodo returns a placeholder with a fresh key.
func NewPendingTodo(title string, userID int) PendingTodo {
	return PendingTodo{Key: uuid.New(), Title: title, UserID: userID}
}

// Request returns the create body for this placeholder.
func (p PendingTodo) Request() NewTodo {
	return NewTodo{Title: p.Title, UserID: p.UserID}
}

// Entry is either a Todo or a PendingTodo.
type Entry interface {
	EntryTitle() string
	entry()
}

func (t Todo) EntryTitle() string        { return t.Title }
func (p PendingTodo) EntryTitle() string { return p.Title }

func (Todo) entry()        {}
func (PendingTodo) entry() {}

// FilterStatus selects which todos are visible.
type FilterStatus int

const (
	FilterAll FilterStatus = iota
	FilterActive
	FilterCompleted
)

var filterNames = [...]string{"all", "active", "completed"}

func (f FilterStatus) String() string {
	if f < FilterAll || f > FilterCompleted {
		return fmt.Sprintf("FilterStatus(%d)", int(f))
	}
	return filterNames[f]
}

// Next cycles All -> Active -> Completed -> All.
func (f FilterStatus) Next() FilterStatus {
	if f >= FilterCompleted || f < FilterAll {
		return FilterAll
	}
	return f + 1
}

// ParseFilterStatus accepts "all", "active" or "completed" (case-insensitive).
// An empty string means all.
func ParseFilterStatus(s string) (FilterStatus, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "all":
		return FilterAll, nil
	case "active":
		return FilterActive, nil
	case "completed", "done":
		return FilterCompleted, nil
	}
	return FilterAll, fmt.Errorf("unknown filter %q: want all, active or completed", s)
}
