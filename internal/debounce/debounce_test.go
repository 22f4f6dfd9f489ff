package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestDebouncerSuppressesRapidRepeats(t *testing.T) {
	d := NewDispatcher(8)
	defer d.Close()
	clock := newFakeClock()
	b := New(40*time.Millisecond, d, WithClock(clock.Now))

	assert.True(t, b.Trigger("back", func() {}))
	clock.Advance(5 * time.Millisecond)
	assert.False(t, b.Trigger("back", func() { t.Error("suppressed action must not dispatch") }))
}

func TestDebouncerSuppressesAcrossActions(t *testing.T) {
	d := NewDispatcher(8)
	defer d.Close()
	clock := newFakeClock()
	b := New(40*time.Millisecond, d, WithClock(clock.Now))

	// The window applies regardless of which action the event carries.
	assert.True(t, b.Trigger("back", func() {}))
	clock.Advance(10 * time.Millisecond)
	assert.False(t, b.Trigger("forward", func() {}))
}

func TestDebouncerAcceptsAfterWindow(t *testing.T) {
	d := NewDispatcher(8)
	defer d.Close()
	clock := newFakeClock()
	b := New(40*time.Millisecond, d, WithClock(clock.Now))

	assert.True(t, b.Trigger("back", func() {}))
	clock.Advance(41 * time.Millisecond)
	assert.True(t, b.Trigger("back", func() {}))
}

func TestDispatcherRunsTasksInOrder(t *testing.T) {
	d := NewDispatcher(8)

	var mu sync.Mutex
	var got []int
	var wg sync.WaitGroup
	wg.Add(3)
	for i := 1; i <= 3; i++ {
		i := i
		require.True(t, d.Enqueue(func() {
			defer wg.Done()
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	wg.Wait()
	d.Close()

	assert.Equal(t, []int{1, 2, 3}, got)
}

func TestDispatcherSerializesTasks(t *testing.T) {
	d := NewDispatcher(32)

	var running, max int32
	var mu sync.Mutex
	var wg sync.WaitGroup
	wg.Add(20)
	for i := 0; i < 20; i++ {
		d.Enqueue(func() {
			defer wg.Done()
			mu.Lock()
			running++
			if running > max {
				max = running
			}
			mu.Unlock()

			time.Sleep(time.Millisecond)

			mu.Lock()
			running--
			mu.Unlock()
		})
	}
	wg.Wait()
	d.Close()

	assert.Equal(t, int32(1), max)
}

func TestDispatcherDropsWhenFull(t *testing.T) {
	d := NewDispatcher(1)
	defer d.Close()

	block := make(chan struct{})
	started := make(chan struct{})
	require.True(t, d.Enqueue(func() {
		close(started)
		<-block
	}))
	<-started

	// Fill the queue, then one more must be dropped instead of blocking.
	require.True(t, d.Enqueue(func() {}))
	assert.False(t, d.Enqueue(func() {}))

	close(block)
}

func TestEnqueueAfterCloseIsDropped(t *testing.T) {
	d := NewDispatcher(8)
	d.Close()

	assert.False(t, d.Enqueue(func() { t.Error("task ran after close") }))
}

func TestCloseIsIdempotent(t *testing.T) {
	d := NewDispatcher(8)
	d.Close()
	d.Close()
}

func TestEnqueueRacingCloseDoesNotPanic(t *testing.T) {
	d := NewDispatcher(4)

	var wg sync.WaitGroup
	wg.Add(8)
	for i := 0; i < 8; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				d.Enqueue(func() {})
			}
		}()
	}
	d.Close()
	wg.Wait()
}

func TestDebouncerDefaultWindow(t *testing.T) {
	d := NewDispatcher(8)
	defer d.Close()
	b := New(0, d)
	assert.Equal(t, DefaultWindow, b.window)
}
