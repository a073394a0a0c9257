// Package notify holds the single user-facing error notification and its
// auto-clear timer.
package notify

import (
	"sync"
	"time"
)

// DefaultDelay is how long a raised notification stays visible.
const DefaultDelay = 3 * time.Second

// Kind is a user-facing error category.
type Kind int

const (
	None Kind = iota
	LoadingError
	TitleError
	AddError
	DeleteError
	UpdateError
)

var messages = map[Kind]string{
	LoadingError: "Unable to load todos",
	TitleError:   "Title should not be empty",
	AddError:     "Unable to add a todo",
	DeleteError:  "Unable to delete a todo",
	UpdateError:  "Unable to update a todo",
}

// Message returns the fixed text shown for k, or "" for None.
func (k Kind) Message() string { return messages[k] }

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case LoadingError:
		return "loadingError"
	case TitleError:
		return "titleError"
	case AddError:
		return "addError"
	case DeleteError:
		return "deleteError"
	case UpdateError:
		return "updateError"
	}
	return "unknown"
}

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realScheduler struct{}

func (realScheduler) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

// RealScheduler is backed by time.AfterFunc.
var RealScheduler Scheduler = realScheduler{}

// Notifier keeps at most one notification. Raising replaces the current one
// and reschedules the clear; a superseded timer never clears a newer kind.
type Notifier struct {
	mu       sync.Mutex
	current  Kind
	timer    Timer
	gen      uint64
	delay    time.Duration
	sched    Scheduler
	onChange []func(Kind)
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithDelay overrides DefaultDelay.
func WithDelay(d time.Duration) Option {
	return func(n *Notifier) { n.delay = d }
}

// WithScheduler replaces the wall-clock scheduler.
func WithScheduler(s Scheduler) Option {
	return func(n *Notifier) { n.sched = s }
}

// WithOnChange registers a callback invoked, outside the lock, after every
// transition (including timer expiry). Callbacks accumulate.
func WithOnChange(f func(Kind)) Option {
	return func(n *Notifier) { n.onChange = append(n.onChange, f) }
}

// New returns an empty Notifier.
func New(opts ...Option) *Notifier {
	n := &Notifier{delay: DefaultDelay, sched: RealScheduler}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Current returns the visible notification.
func (n *Notifier) Current() Kind {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Raise shows k and schedules it to clear after the delay.
func (n *Notifier) Raise(k Kind) {
	if k == None {
		n.Dismiss()
		return
	}
	n.mu.Lock()
	n.stopLocked()
	n.current = k
	gen := n.gen
	n.timer = n.sched.AfterFunc(n.delay, func() { n.expire(gen) })
	n.mu.Unlock()
	n.changed(k)
}

// Dismiss clears the notification and cancels its timer.
func (n *Notifier) Dismiss() {
	n.mu.Lock()
	had := n.current != None
	n.stopLocked()
	n.current = None
	n.mu.Unlock()
	if had {
		n.changed(None)
	}
}

// Close cancels any pending timer without notifying.
func (n *Notifier) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.stopLocked()
}

func (n *Notifier) expire(gen uint64) {
	n.mu.Lock()
	if gen != n.gen || n.current == None {
		n.mu.Unlock()
		return
	}
	n.current = None
	n.timer = nil
	n.mu.Unlock()
	n.changed(None)
}

func (n *Notifier) stopLocked() {
	n.gen++
	if n.timer != nil {
		n.timer.Stop()
		n.timer = nil
	}
}

func (n *Notifier) changed(k Kind) {
	for _, f := range n.onChange {
		f(k)
	}
}
