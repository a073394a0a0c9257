// Package devserver is a local implementation of the todo collection API,
// used by `todo serve` and by tests. It can inject failures so clients can
// exercise their rollback paths against a real server.
package devserver

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/felixge/httpsnoop"
	"github.com/gorilla/mux"

	"github.com/Makepad-fr/tada/internal/model"
)

// FaultFunc decides whether a request should fail with 500.
type FaultFunc func(r *http.Request) bool

// FailRate fails each request with probability p.
func FailRate(p float64) FaultFunc {
	if p <= 0 {
		return nil
	}
	return func(*http.Request) bool { return rand.Float64() < p }
}

// FailDeletes fails DELETE requests for the given ids.
func FailDeletes(ids ...int) FaultFunc {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[strconv.Itoa(id)] = true
	}
	return func(r *http.Request) bool {
		return r.Method == http.MethodDelete && set[mux.Vars(r)["id"]]
	}
}

// Server serves the todo collection.
type Server struct {
	repo   *Repo
	logger *log.Logger
	fault  FaultFunc
	delay  time.Duration
}

// Option configures a Server.
type Option func(*Server)

// WithLogger routes access logs to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithFault installs a failure injector.
func WithFault(f FaultFunc) Option {
	return func(s *Server) { s.fault = f }
}

// WithDelay adds latency to every response so placeholders stay visible.
func WithDelay(d time.Duration) Option {
	return func(s *Server) { s.delay = d }
}

// New returns a Server backed by repo.
func New(repo *Repo, opts ...Option) *Server {
	s := &Server{repo: repo, logger: log.New(io.Discard)}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.Use(s.accessLog)
	r.Use(s.inject)

	r.Methods(http.MethodGet).Path("/todos").HandlerFunc(s.listTodos)
	r.Methods(http.MethodPost).Path("/todos").HandlerFunc(s.createTodo)
	r.Methods(http.MethodDelete).Path("/todos/{id:[0-9]+}").HandlerFunc(s.deleteTodo)
	r.Methods(http.MethodPatch).Path("/todos/{id:[0-9]+}").HandlerFunc(s.patchTodo)
	r.Methods(http.MethodGet).Path("/health").HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, "OK\n")
	})
	return r
}

// ListenAndServe serves on addr until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler(), ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m := httpsnoop.CaptureMetrics(next, w, r)
		s.logger.Info("handled", "method", r.Method, "url", r.URL, "duration", m.Duration, "status", m.Code)
	})
}

func (s *Server) inject(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.delay > 0 {
			select {
			case <-time.After(s.delay):
			case <-r.Context().Done():
				return
			}
		}
		if s.fault != nil && s.fault(r) {
			http.Error(w, "injected failure", http.StatusInternalServerError)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) listTodos(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(r.URL.Query().Get("userId"))
	if err != nil {
		http.Error(w, "userId query parameter is required", http.StatusBadRequest)
		return
	}
	todos, err := s.repo.List(r.Context(), userID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, todos)
}

func (s *Server) createTodo(w http.ResponseWriter, r *http.Request) {
	var in model.NewTodo
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		http.Error(w, "title is required", http.StatusBadRequest)
		return
	}
	todo, err := s.repo.Create(r.Context(), in)
	if err != nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, todo)
}

func (s *Server) deleteTodo(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	err := s.repo.Delete(r.Context(), id)
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.internalError(w, err)
	default:
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) patchTodo(w http.ResponseWriter, r *http.Request) {
	id, _ := strconv.Atoi(mux.Vars(r)["id"])
	var patch model.TodoPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}
	if patch.Completed == nil {
		todo, err := s.repo.Get(r.Context(), id)
		s.writeTodo(w, todo, err)
		return
	}
	todo, err := s.repo.SetCompleted(r.Context(), id, *patch.Completed)
	s.writeTodo(w, todo, err)
}

func (s *Server) writeTodo(w http.ResponseWriter, todo model.Todo, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case err != nil:
		s.internalError(w, err)
	default:
		writeJSON(w, http.StatusOK, todo)
	}
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	s.logger.Error("request failed", "err", err)
	http.Error(w, "internal error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
