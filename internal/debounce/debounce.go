// Package debounce gates trigger events and hands the accepted ones to a
// single worker goroutine, the serialized execution context for everything
// that talks to the window manager.
package debounce

import (
	"sync"
	"time"

	"github.com/codefionn/spacecycle/internal/logger"
)

// DefaultWindow is the minimum interval between accepted triggers. Key
// repeat and double-delivery from the capture layer arrive well inside this
// window; two deliberate rapid presses do not.
const DefaultWindow = 40 * time.Millisecond

// Dispatcher runs queued actions one at a time on a dedicated goroutine.
type Dispatcher struct {
	tasks chan func()
	done  chan struct{}

	mu     sync.Mutex // guards closed and the send into tasks
	closed bool
}

// NewDispatcher starts the worker with the given queue capacity.
func NewDispatcher(capacity int) *Dispatcher {
	if capacity <= 0 {
		capacity = 16
	}
	d := &Dispatcher{
		tasks: make(chan func(), capacity),
		done:  make(chan struct{}),
	}
	go d.loop()
	return d
}

func (d *Dispatcher) loop() {
	defer close(d.done)
	for fn := range d.tasks {
		fn()
	}
}

// Enqueue schedules fn on the worker. When the queue is full the task is
// dropped rather than blocking the caller; the next trigger retries anyway.
// After Close the task is dropped instead of panicking on the closed
// channel, so late producers (ticker, file watcher) are harmless.
func (d *Dispatcher) Enqueue(fn func()) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return false
	}
	select {
	case d.tasks <- fn:
		return true
	default:
		logger.Warn("dispatch queue full, dropping task")
		return false
	}
}

// Close stops the worker after draining queued tasks. Safe to call more than
// once and safe against concurrent Enqueue.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.tasks)
	}
	d.mu.Unlock()
	<-d.done
}

// Debouncer suppresses trigger events arriving within the window of the
// previously accepted event, regardless of which action they carry, then
// dispatches the accepted action onto the worker.
type Debouncer struct {
	dispatcher *Dispatcher
	window     time.Duration

	mu   sync.Mutex
	last time.Time
	now  func() time.Time
}

// Option configures a Debouncer.
type Option func(*Debouncer)

// WithClock substitutes the time source, used by tests.
func WithClock(now func() time.Time) Option {
	return func(b *Debouncer) { b.now = now }
}

// New creates a Debouncer feeding the given dispatcher. A non-positive
// window falls back to DefaultWindow.
func New(window time.Duration, dispatcher *Dispatcher, opts ...Option) *Debouncer {
	if window <= 0 {
		window = DefaultWindow
	}
	b := &Debouncer{
		dispatcher: dispatcher,
		window:     window,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Trigger submits a trigger event. It reports whether the event was accepted
// and its action dispatched.
func (b *Debouncer) Trigger(action string, fn func()) bool {
	b.mu.Lock()
	now := b.now()
	if !b.last.IsZero() && now.Sub(b.last) < b.window {
		b.mu.Unlock()
		logger.Debug("debounced trigger %s", action)
		return false
	}
	b.last = now
	b.mu.Unlock()

	return b.dispatcher.Enqueue(fn)
}
