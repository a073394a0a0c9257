package devserver

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/Makepad-fr/tada/internal/model"
)

// ErrNotFound is returned when no todo has the requested id.
var ErrNotFound = errors.New("todo not found")

// MemoryDSN keeps the collection in memory for the life of the process.
const MemoryDSN = ":memory:"

const schema = `
CREATE TABLE IF NOT EXISTS todos (
	id        INTEGER PRIMARY KEY AUTOINCREMENT,
	title     TEXT    NOT NULL,
	user_id   INTEGER NOT NULL,
	completed INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS todos_user_id ON todos(user_id);
`

// Repo stores todos in SQLite.
type Repo struct {
	db *sql.DB
}

// OpenRepo opens (and migrates) the database at dsn.
func OpenRepo(dsn string) (*Repo, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// every new connection to :memory: is a fresh database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Repo{db: db}, nil
}

// Close closes the database.
func (r *Repo) Close() error { return r.db.Close() }

// List returns the todos of userID ordered by id.
func (r *Repo) List(ctx context.Context, userID int) ([]model.Todo, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, title, user_id, completed FROM todos WHERE user_id = ? ORDER BY id`, userID)
	if err != nil {
		return nil, fmt.Errorf("query todos: %w", err)
	}
	defer rows.Close()

	todos := []model.Todo{}
	for rows.Next() {
		var t model.Todo
		if err := rows.Scan(&t.ID, &t.Title, &t.UserID, &t.Completed); err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		todos = append(todos, t)
	}
	return todos, rows.Err()
}

// Get returns the todo with id.
func (r *Repo) Get(ctx context.Context, id int) (model.Todo, error) {
	var t model.Todo
	err := r.db.QueryRowContext(ctx,
		`SELECT id, title, user_id, completed FROM todos WHERE id = ?`, id).
		Scan(&t.ID, &t.Title, &t.UserID, &t.Completed)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Todo{}, ErrNotFound
	}
	if err != nil {
		return model.Todo{}, fmt.Errorf("get todo %d: %w", id, err)
	}
	return t, nil
}

// Create inserts a todo and returns it with its assigned id.
func (r *Repo) Create(ctx context.Context, in model.NewTodo) (model.Todo, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO todos (title, user_id, completed) VALUES (?, ?, ?)`,
		in.Title, in.UserID, in.Completed)
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return model.Todo{ID: int(id), Title: in.Title, UserID: in.UserID, Completed: in.Completed}, nil
}

// Delete removes the todo with id.
func (r *Repo) Delete(ctx context.Context, id int) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM todos WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete todo %d: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetCompleted updates the completion flag of id.
func (r *Repo) SetCompleted(ctx context.Context, id int, completed bool) (model.Todo, error) {
	res, err := r.db.ExecContext(ctx, `UPDATE todos SET completed = ? WHERE id = ?`, completed, id)
	if err != nil {
		return model.Todo{}, fmt.Errorf("update todo %d: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return model.Todo{}, ErrNotFound
	}
	return r.Get(ctx, id)
}
