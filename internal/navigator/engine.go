// Package navigator implements the workspace navigation engine: a locally
// cached, ordered view of the window manager's workspace set that serves
// back/forward/toggle requests instantly and reconciles with the live state
// in the background.
package navigator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/codefionn/spacecycle/internal/logger"
	"github.com/codefionn/spacecycle/internal/order"
)

// Direction selects which way a navigation step moves through the order.
type Direction int

const (
	// Backward steps to the previous workspace in the order, wrapping to the
	// end at the start.
	Backward Direction = iota
	// Forward steps to the next workspace in the order, wrapping to the
	// start at the end.
	Forward
)

func (d Direction) String() string {
	if d == Backward {
		return "backward"
	}
	return "forward"
}

// State is a consistent snapshot of the engine's cache. Focused may briefly
// name a workspace missing from Order after an out-of-band change; the next
// refresh repairs that. Previous is best-effort history and is not persisted.
type State struct {
	Order    []string
	Focused  string
	Previous string
}

// Result is the outcome of one navigation request. Target is empty when the
// workspace set is empty.
type Result struct {
	Order  []string
	Target string
}

// Source is the slice of the window manager the engine depends on. Switch
// and toggle commands are fire-and-forget; queries return an error on any
// failure and the engine keeps its last-good cache.
type Source interface {
	WorkspacesWithFocus() ([]string, string, error)
	FocusedWorkspace() (string, error)
	SwitchToWorkspace(id string)
	TogglePrevious()
}

// DefaultToggleSettle is how long Toggle waits for the window manager to act
// on a back-and-forth command before fetching the new focus. The change is
// not synchronously observable, so a fixed grace period stands in for
// polling.
const DefaultToggleSettle = 50 * time.Millisecond

// Engine owns the authoritative navigation state for the process. All state
// mutations go through one mutex; external calls never run under it. The
// pattern throughout is snapshot under lock, do I/O unlocked, re-acquire to
// commit.
type Engine struct {
	src    Source
	store  *order.Store
	settle time.Duration
	notify func(State)

	mu    sync.Mutex
	state State

	refreshSeq uint64 // last issued refresh, atomic
	appliedSeq uint64 // last committed refresh, guarded by mu

	wg sync.WaitGroup
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithToggleSettle overrides the toggle grace period.
func WithToggleSettle(d time.Duration) EngineOption {
	return func(e *Engine) {
		if d > 0 {
			e.settle = d
		}
	}
}

// WithNotify registers a callback invoked with a fresh snapshot after every
// committed state change. Called outside the engine lock.
func WithNotify(fn func(State)) EngineOption {
	return func(e *Engine) { e.notify = fn }
}

// NewEngine creates the engine. Exactly one instance should exist per
// process; it is constructed at startup and handed to every consumer.
func NewEngine(src Source, store *order.Store, opts ...EngineOption) *Engine {
	e := &Engine{
		src:    src,
		store:  store,
		settle: DefaultToggleSettle,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.snapshotLocked()
}

func (e *Engine) snapshotLocked() State {
	return State{
		Order:    append([]string(nil), e.state.Order...),
		Focused:  e.state.Focused,
		Previous: e.state.Previous,
	}
}

func (e *Engine) notifyState() {
	if e.notify == nil {
		return
	}
	e.notify(e.Snapshot())
}

// Navigate serves a back/forward step. When the cache is populated the
// result is computed and delivered synchronously and the switch command is
// issued fire-and-forget; a background refresh then reconciles with the
// window manager. On an empty cache the same step runs once against freshly
// fetched data and the result arrives through deliver asynchronously. Either
// way deliver is called exactly once.
//
// Navigate performs external queries and must not be called from a
// UI/render goroutine; callers go through the dispatch worker.
func (e *Engine) Navigate(dir Direction, deliver func(Result)) {
	e.detectManualChange()

	if res, ok := e.advance(dir); ok {
		e.src.SwitchToWorkspace(res.Target)
		if deliver != nil {
			deliver(res)
		}
		e.notifyState()
		e.RefreshCache()
		return
	}

	// Cache miss: fetch-then-decide, delivered once the data is in.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Refresh()
		res, ok := e.advance(dir)
		if ok {
			e.src.SwitchToWorkspace(res.Target)
		}
		if deliver != nil {
			deliver(res)
		}
		e.notifyState()
	}()
}

// advance computes and commits one navigation step under the lock. It
// reports false without touching the state when the cached order is empty.
func (e *Engine) advance(dir Direction) (Result, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	n := len(e.state.Order)
	if n == 0 {
		return Result{Order: []string{}}, false
	}

	idx := indexOf(e.state.Order, e.state.Focused)
	if idx < 0 {
		idx = 0
	}

	var newIdx int
	switch dir {
	case Backward:
		newIdx = (idx - 1 + n) % n
	default:
		newIdx = (idx + 1) % n
	}

	target := e.state.Order[newIdx]
	if e.state.Focused != "" {
		e.state.Previous = e.state.Focused
	}
	e.state.Focused = target

	return Result{
		Order:  append([]string(nil), e.state.Order...),
		Target: target,
	}, true
}

// Toggle jumps to the previously focused workspace. The window manager keeps
// richer back-and-forth history than this engine can observe, so the command
// is delegated to it; after the settle grace period one fetch learns where
// focus landed and the result is delivered.
func (e *Engine) Toggle(deliver func(Result)) {
	e.detectManualChange()
	e.src.TogglePrevious()

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		time.Sleep(e.settle)
		e.Refresh()

		e.mu.Lock()
		res := Result{
			Order:  append([]string(nil), e.state.Order...),
			Target: e.state.Focused,
		}
		e.mu.Unlock()

		if deliver != nil {
			deliver(res)
		}
	}()
}

// Refresh fetches the live workspace set and focus, merges the persisted
// order with it, persists the result and commits the new state. A refresh
// that completes after a newer one has committed is discarded so stale data
// never overwrites fresher results. Failures keep the last-good cache.
func (e *Engine) Refresh() {
	seq := atomic.AddUint64(&e.refreshSeq, 1)

	live, focused, err := e.src.WorkspacesWithFocus()
	if err != nil {
		logger.Debug("refresh skipped: %v", err)
		return
	}

	merged := e.store.MergeWithCurrent(live)

	e.mu.Lock()
	if seq <= e.appliedSeq {
		e.mu.Unlock()
		logger.Debug("discarding stale refresh %d (applied %d)", seq, e.appliedSeq)
		return
	}
	e.appliedSeq = seq

	orderChanged := !equalOrder(e.state.Order, merged)
	if focused != e.state.Focused && e.state.Focused != "" {
		e.state.Previous = e.state.Focused
	}
	e.state.Focused = focused
	e.state.Order = merged
	e.mu.Unlock()

	if orderChanged {
		e.store.Save(merged)
	}
	e.notifyState()
}

// RefreshCache schedules a background refresh. Usable at startup to pre-warm
// the cache before the first trigger arrives.
func (e *Engine) RefreshCache() {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.Refresh()
	}()
}

// SetOrder applies a presentation-driven reorder: the new arrangement is
// persisted and becomes the cached order, focus is left alone.
func (e *Engine) SetOrder(newOrder []string) {
	deduped := order.Merge(newOrder, newOrder)

	e.mu.Lock()
	e.state.Order = deduped
	e.mu.Unlock()

	e.store.Save(deduped)
	e.notifyState()
}

// detectManualChange absorbs workspace switches made outside this tool. It
// fetches only the focused workspace (the cheap query) and, when it differs
// from the cache, records the old focus as Previous exactly as a refresh
// would.
func (e *Engine) detectManualChange() {
	focused, err := e.src.FocusedWorkspace()
	if err != nil {
		logger.Debug("focus probe failed: %v", err)
		return
	}
	if focused == "" {
		return
	}

	e.mu.Lock()
	if len(e.state.Order) == 0 || focused == e.state.Focused {
		e.mu.Unlock()
		return
	}
	if e.state.Focused != "" {
		e.state.Previous = e.state.Focused
	}
	e.state.Focused = focused
	e.mu.Unlock()

	logger.Debug("absorbed external focus change to %s", focused)
	e.notifyState()
}

// Wait blocks until all background work spawned by the engine has finished.
// Used by tests and shutdown.
func (e *Engine) Wait() {
	e.wg.Wait()
}

func indexOf(order []string, id string) int {
	for i, v := range order {
		if v == id {
			return i
		}
	}
	return -1
}

func equalOrder(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
