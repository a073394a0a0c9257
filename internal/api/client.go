// Package api talks to the remote todo collection resource.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada/internal/model"
)

// Client is the remote todo collection.
type Client interface {
	List(ctx context.Context, userID int) ([]model.Todo, error)
	Create(ctx context.Context, todo model.NewTodo) (model.Todo, error)
	Delete(ctx context.Context, id int) error
	Update(ctx context.Context, id int, patch model.TodoPatch) (model.Todo, error)
}

// DefaultBaseURL is the public students API the original app talks to.
const DefaultBaseURL = "https://mate.academy/students-api"

// DefaultTimeout bounds a single request.
const DefaultTimeout = 10 * time.Second

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: unexpected status %d %s", e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	base    *url.URL
	http    *http.Client
	timeout time.Duration
	logger  *log.Logger
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c *http.Client) Option {
	return func(h *HTTPClient) { h.http = c }
}

// WithTimeout sets the per-request timeout. Zero disables it.
func WithTimeout(d time.Duration) Option {
	return func(h *HTTPClient) { h.timeout = d }
}

// WithLogger routes request logs to l.
func WithLogger(l *log.Logger) Option {
	return func(h *HTTPClient) { h.logger = l }
}

// NewHTTPClient returns a client rooted at baseURL.
func NewHTTPClient(baseURL string, opts ...Option) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url %q: scheme must be http or https", baseURL)
	}
	// JoinPath keeps a relative path when the base has none
	if u.Path == "" {
		u.Path = "/"
	}
	h := &HTTPClient{
		base:    u,
		http:    http.DefaultClient,
		timeout: DefaultTimeout,
		logger:  log.New(io.Discard),
	}
	for _, o := range opts {
		o(h)
	}
	return h, nil
}

// List fetches every todo of userID.
func (h *HTTPClient) List(ctx context.Context, userID int) ([]model.Todo, error) {
	q := url.Values{"userId": {strconv.Itoa(userID)}}
	var todos []model.Todo
	if err := h.do(ctx, http.MethodGet, "todos", q, nil, &todos); err != nil {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new todo and returns the server copy.
func (h *HTTPClient) Create(ctx context.Context, todo model.NewTodo) (model.Todo, error) {
	var out model.Todo
	err := h.do(ctx, http.MethodPost, "todos", nil, todo, &out)
	return out, err
}

// Delete removes the todo with id.
func (h *HTTPClient) Delete(ctx context.Context, id int) error {
	return h.do(ctx, http.MethodDelete, "todos/"+strconv.Itoa(id), nil, nil, nil)
}

// Update patches the todo with id and returns the server copy.
func (h *HTTPClient) Update(ctx context.Context, id int, patch model.TodoPatch) (model.Todo, error) {
	var out model.Todo
	err := h.do(ctx, http.MethodPatch, "todos/"+strconv.Itoa(id), nil, patch, &out)
	return out, err
}

func (h *HTTPClient) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	u := h.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", method, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json; charset=UTF-8")
	}
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := h.http.Do(req)
	if err != nil {
		h.logger.Debug("request failed", "method", method, "url", u.String(), "err", err)
		return fmt.Errorf("%s %s: %w", method, u.Path, err)
	}
	defer resp.Body.Close()
	h.logger.Debug("request", "method", method, "url", u.String(), "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &StatusError{Method: method, Path: u.Path, StatusCode: resp.StatusCode}
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", method, u.Path, err)
	}
	return nil
}
