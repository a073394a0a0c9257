// Package store keeps the local copy of the remote todo list in sync with the
// API. It owns the authoritative list, the in-flight placeholders, the ids
// being deleted or updated and the active error notification.
//
// Operations block until the network call settles and may be called from
// several goroutines at once. The state mutex is never held across a request,
// so mutations only happen between suspension points.
package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/notify"
)

var (
	// ErrEmptyTitle is the cause of a titleError.
	ErrEmptyTitle = errors.New("title is empty")
	// ErrUnknownTodo is returned by Toggle for an id not in the list.
	ErrUnknownTodo = errors.New("unknown todo")
)

// OpError reports a failed store operation. Kind is the notification that
// was raised; Err is the underlying cause.
type OpError struct {
	Op   string
	Kind notify.Kind
	Err  error
}

func (e *OpError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind.Message(), e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// KindOf returns the notification kind carried by err, or notify.None.
func KindOf(err error) notify.Kind {
	var oe *OpError
	if errors.As(err, &oe) {
		return oe.Kind
	}
	return notify.None
}

// Store is the synchronization store.
type Store struct {
	client api.Client
	userID int
	logger *log.Logger
	notes  *notify.Notifier

	notifyOpts []notify.Option
	changes    chan struct{}

	mu      sync.Mutex
	todos   []model.Todo
	pending []model.PendingTodo
	busy    map[int]struct{}
	loaded  bool

	// set by a failed Load, cleared by a successful one
	loadFailed bool
}

// Option configures a Store.
type Option func(*Store)

// WithLogger routes store logs to l.
func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithNotifyOptions configures the notifier (delay, scheduler).
func WithNotifyOptions(opts ...notify.Option) Option {
	return func(s *Store) { s.notifyOpts = append(s.notifyOpts, opts...) }
}

// New returns an empty store for userID.
func New(client api.Client, userID int, opts ...Option) *Store {
	s := &Store{
		client:  client,
		userID:  userID,
		logger:  log.New(io.Discard),
		busy:    map[int]struct{}{},
		changes: make(chan struct{}, 1),
	}
	for _, o := range opts {
		o(s)
	}
	nopts := append([]notify.Option{}, s.notifyOpts...)
	nopts = append(nopts, notify.WithOnChange(func(notify.Kind) { s.signal() }))
	s.notes = notify.New(nopts...)
	return s
}

// UserID returns the session user.
func (s *Store) UserID() int { return s.userID }

// Changes fires after every state change. Signals coalesce: a reader that
// falls behind sees one pending signal, not one per change.
func (s *Store) Changes() <-chan struct{} { return s.changes }

// Close cancels the notification timer.
func (s *Store) Close() { s.notes.Close() }

// Dismiss clears the notification.
func (s *Store) Dismiss() { s.notes.Dismiss() }

// Notification returns the visible notification.
func (s *Store) Notification() notify.Kind { return s.notes.Current() }

// Load replaces the list with the server's. On failure the list is left as
// it was and loadingError is raised.
func (s *Store) Load(ctx context.Context) error {
	s.notes.Dismiss()

	todos, err := s.client.List(ctx, s.userID)
	if err != nil {
		s.mu.Lock()
		s.loadFailed = true
		s.mu.Unlock()
		return s.fail("load", notify.LoadingError, err)
	}

	s.mu.Lock()
	s.todos = todos
	s.loaded = true
	s.loadFailed = false
	s.mu.Unlock()
	s.logger.Debug("loaded todos", "count", len(todos))
	s.signal()
	return nil
}

// Add creates a todo titled title (trimmed). A placeholder is visible while
// the create request is in flight; it is replaced by the server copy on
// success and dropped on failure.
func (s *Store) Add(ctx context.Context, title string) (model.Todo, error) {
	s.notes.Dismiss()

	title = strings.TrimSpace(title)
	if title == "" {
		return model.Todo{}, s.fail("add", notify.TitleError, ErrEmptyTitle)
	}

	p := model.NewPendingTodo(title, s.userID)
	s.mu.Lock()
	s.pending = append(s.pending, p)
	s.mu.Unlock()
	s.signal()

	created, err := s.client.Create(ctx, p.Request())

	s.mu.Lock()
	s.dropPendingLocked(p.Key)
	if err == nil {
		s.todos = append(s.todos, created)
	}
	s.mu.Unlock()

	if err != nil {
		return model.Todo{}, s.fail("add", notify.AddError, err)
	}
	s.logger.Debug("added todo", "id", created.ID)
	s.signal()
	return created, nil
}

// DeleteOne deletes the todo with id. The list only changes on success.
func (s *Store) DeleteOne(ctx context.Context, id int) error {
	s.notes.Dismiss()

	s.markBusy(id)
	err := s.client.Delete(ctx, id)

	s.mu.Lock()
	delete(s.busy, id)
	if err == nil {
		s.removeLocked(map[int]bool{id: true})
	}
	s.mu.Unlock()

	if err != nil {
		return s.fail("delete", notify.DeleteError, err)
	}
	s.logger.Debug("deleted todo", "id", id)
	s.signal()
	return nil
}

// DeleteResult lists the outcome of DeleteCompleted per id.
type DeleteResult struct {
	Deleted []int
	Failed  []int
}

// DeleteCompleted deletes every completed todo concurrently and waits for all
// requests to settle. Exactly the successful ones are removed; one
// deleteError is raised if any failed. Todos that already have a delete or
// update in flight are left to that operation.
func (s *Store) DeleteCompleted(ctx context.Context) (DeleteResult, error) {
	s.notes.Dismiss()

	s.mu.Lock()
	var ids []int
	for _, t := range s.todos {
		if _, inFlight := s.busy[t.ID]; t.Completed && !inFlight {
			ids = append(ids, t.ID)
			s.busy[t.ID] = struct{}{}
		}
	}
	s.mu.Unlock()

	var res DeleteResult
	if len(ids) == 0 {
		return res, nil
	}
	s.signal()

	errs := make([]error, len(ids))
	var wg sync.WaitGroup
	wg.Add(len(ids))
	for i, id := range ids {
		i, id := i, id
		go func() {
			defer wg.Done()
			errs[i] = s.client.Delete(ctx, id)
		}()
	}
	wg.Wait()

	ok := make(map[int]bool, len(ids))
	var failed []error
	for i, id := range ids {
		if errs[i] != nil {
			res.Failed = append(res.Failed, id)
			failed = append(failed, fmt.Errorf("todo %d: %w", id, errs[i]))
			continue
		}
		ok[id] = true
		res.Deleted = append(res.Deleted, id)
	}

	s.mu.Lock()
	for _, id := range ids {
		delete(s.busy, id)
	}
	s.removeLocked(ok)
	s.mu.Unlock()

	s.logger.Debug("cleared completed", "deleted", len(res.Deleted), "failed", len(res.Failed))
	if len(failed) > 0 {
		return res, s.fail("clear completed", notify.DeleteError, errors.Join(failed...))
	}
	s.signal()
	return res, nil
}

// Toggle flips the completion flag of id on the server and replaces the
// local item with the server copy.
func (s *Store) Toggle(ctx context.Context, id int) (model.Todo, error) {
	s.notes.Dismiss()

	s.mu.Lock()
	cur, found := s.findLocked(id)
	if found {
		s.busy[id] = struct{}{}
	}
	s.mu.Unlock()
	if !found {
		return model.Todo{}, fmt.Errorf("toggle %d: %w", id, ErrUnknownTodo)
	}
	s.signal()

	completed := !cur.Completed
	updated, err := s.client.Update(ctx, id, model.TodoPatch{Completed: &completed})

	s.mu.Lock()
	delete(s.busy, id)
	if err == nil {
		for i := range s.todos {
			if s.todos[i].ID == id {
				s.todos[i] = updated
			}
		}
	}
	s.mu.Unlock()

	if err != nil {
		return model.Todo{}, s.fail("toggle", notify.UpdateError, err)
	}
	s.signal()
	return updated, nil
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	busy := make(map[int]bool, len(s.busy))
	for id := range s.busy {
		busy[id] = true
	}
	return Snapshot{
		Todos:        append([]model.Todo(nil), s.todos...),
		Pending:      append([]model.PendingTodo(nil), s.pending...),
		Busy:         busy,
		Notification: s.notes.Current(),
		Loaded:       s.loaded,
		LoadFailed:   s.loadFailed,
	}
}

func (s *Store) fail(op string, kind notify.Kind, err error) error {
	s.logger.Warn(op+" failed", "kind", kind, "err", err)
	s.notes.Raise(kind)
	return &OpError{Op: op, Kind: kind, Err: err}
}

func (s *Store) signal() {
	select {
	case s.changes <- struct{}{}:
	default:
	}
}

func (s *Store) markBusy(id int) {
	s.mu.Lock()
	s.busy[id] = struct{}{}
	s.mu.Unlock()
	s.signal()
}

func (s *Store) findLocked(id int) (model.Todo, bool) {
	for _, t := range s.todos {
		if t.ID == id {
			return t, true
		}
	}
	return model.Todo{}, false
}

func (s *Store) removeLocked(ids map[int]bool) {
	if len(ids) == 0 {
		return
	}
	kept := make([]model.Todo, 0, len(s.todos))
	for _, t := range s.todos {
		if !ids[t.ID] {
			kept = append(kept, t)
		}
	}
	s.todos = kept
}

func (s *Store) dropPendingLocked(key uuid.UUID) {
	for i, p := range s.pending {
		if p.Key == key {
			s.pending = append(s.pending[:i], s.pending[i+1:]...)
			return
		}
	}
}

// Snapshot is a point-in-time copy of store state.
type Snapshot struct {
	Todos        []model.Todo
	Pending      []model.PendingTodo
	Busy         map[int]bool
	Notification notify.Kind
	Loaded       bool
	LoadFailed   bool // the most recent Load failed
}

// Visible returns the filtered confirmed todos followed by the placeholders.
func (s Snapshot) Visible(status model.FilterStatus) []model.Entry {
	todos := filter.Apply(s.Todos, status)
	out := make([]model.Entry, 0, len(todos)+len(s.Pending))
	for _, t := range todos {
		out = append(out, t)
	}
	for _, p := range s.Pending {
		out = append(out, p)
	}
	return out
}

// IsBusy reports whether id has a delete or update in flight.
func (s Snapshot) IsBusy(id int) bool { return s.Busy[id] }

// ActiveCount is the number of todos not completed.
func (s Snapshot) ActiveCount() int {
	active, _ := filter.Count(s.Todos)
	return active
}

// CompletedCount is the number of completed todos.
func (s Snapshot) CompletedCount() int {
	_, completed := filter.Count(s.Todos)
	return completed
}

// AllCompleted reports whether the list is non-empty and fully completed.
func (s Snapshot) AllCompleted() bool {
	return len(s.Todos) > 0 && s.ActiveCount() == 0
}
