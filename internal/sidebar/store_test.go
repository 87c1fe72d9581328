package sidebar

import (
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

// fakeClock fires timers only when the test advances time.
type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	timers []*fakeTimer
}

type fakeTimer struct {
	clock   *fakeClock
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 1, 2, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &fakeTimer{clock: c, at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (t *fakeTimer) Stop() bool {
	t.clock.mu.Lock()
	defer t.clock.mu.Unlock()
	wasPending := !t.stopped && !t.fired
	t.stopped = true
	return wasPending
}

// Advance moves time forward and runs due timers in deadline order.
func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	var due []*fakeTimer
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			due = append(due, t)
		}
	}
	c.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].at.Before(due[j].at) })
	for _, t := range due {
		t.f()
	}
}

func (c *fakeClock) pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, t := range c.timers {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func transitionEnds(store *Store) *int {
	ends := 0
	prev := store.State()
	store.Subscribe(func(s State) {
		if prev.Transitioning && !s.Transitioning {
			ends++
		}
		prev = s
	})
	return &ends
}

func TestToggleStartsTransition(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock))

	store.Toggle()
	got := store.State()
	require.True(t, got.Collapsed)
	require.True(t, got.Transitioning)
	require.Zero(t, got.Progress)

	clock.Advance(299 * time.Millisecond)
	require.True(t, store.State().Transitioning)

	clock.Advance(time.Millisecond)
	got = store.State()
	require.True(t, got.Collapsed)
	require.False(t, got.Transitioning)
	require.Zero(t, got.Progress)
}

func TestRapidTogglesRestartTimer(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock))
	ends := transitionEnds(store)

	store.Toggle()
	clock.Advance(50 * time.Millisecond)
	store.Toggle()
	require.Equal(t, 1, clock.pending(), "only one transition-end timer may be pending")

	clock.Advance(260 * time.Millisecond)
	require.True(t, store.State().Transitioning, "transition must end 300ms after the second toggle")
	require.Zero(t, *ends)

	clock.Advance(40 * time.Millisecond)
	require.False(t, store.State().Transitioning)
	require.Equal(t, 1, *ends)
	require.False(t, store.State().Collapsed)

	clock.Advance(time.Second)
	require.Equal(t, 1, *ends)
}

func TestBurstEndsOnceAfterLastToggle(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock), WithDuration(200*time.Millisecond))
	ends := transitionEnds(store)

	for i := 0; i < 7; i++ {
		store.Toggle()
		require.True(t, store.State().Transitioning)
		clock.Advance(30 * time.Millisecond)
	}
	// Last toggle happened 30ms ago.
	clock.Advance(169 * time.Millisecond)
	require.True(t, store.State().Transitioning)
	clock.Advance(time.Millisecond)
	require.False(t, store.State().Transitioning)
	require.Equal(t, 1, *ends)
	require.True(t, store.State().Collapsed, "odd number of toggles leaves the sidebar collapsed")
}

func TestStaleTimerIsIgnored(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock))

	store.Toggle()
	clock.mu.Lock()
	stale := clock.timers[0].f
	clock.mu.Unlock()

	clock.Advance(100 * time.Millisecond)
	store.Toggle()

	// Simulate the replaced timer firing after Stop lost the race.
	stale()
	require.True(t, store.State().Transitioning)
}

func TestListenersNotifiedInOrder(t *testing.T) {
	store := NewStore(WithScheduler(newFakeClock()))
	var order []int
	for i := 1; i <= 3; i++ {
		i := i
		store.Subscribe(func(State) { order = append(order, i) })
	}
	store.Toggle()
	require.Equal(t, []int{1, 2, 3}, order)
}

func TestUnsubscribeDuringNotification(t *testing.T) {
	store := NewStore(WithScheduler(newFakeClock()))
	var calls []string

	var unsubscribeFirst func()
	unsubscribeFirst = store.Subscribe(func(State) {
		calls = append(calls, "first")
		unsubscribeFirst()
	})
	store.Subscribe(func(State) { calls = append(calls, "second") })
	store.Subscribe(func(State) { calls = append(calls, "third") })

	store.Toggle()
	require.Equal(t, []string{"first", "second", "third"}, calls)
	require.Equal(t, 2, store.Listeners())

	calls = nil
	store.Toggle()
	require.Equal(t, []string{"second", "third"}, calls)
}

func TestUnsubscribeIsIdempotent(t *testing.T) {
	store := NewStore(WithScheduler(newFakeClock()))
	unsubscribe := store.Subscribe(func(State) {})
	keep := 0
	store.Subscribe(func(State) { keep++ })

	unsubscribe()
	unsubscribe()
	require.Equal(t, 1, store.Listeners())

	store.Toggle()
	require.Equal(t, 1, keep)
}

func TestPanickingListenerDoesNotStopOthers(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	store := NewStore(WithScheduler(newFakeClock()), WithLogger(zap.New(core)))

	store.Subscribe(func(State) { panic("boom") })
	called := false
	store.Subscribe(func(State) { called = true })

	require.NotPanics(t, store.Toggle)
	require.True(t, called)
	require.True(t, store.State().Transitioning)
	require.Equal(t, 1, logs.FilterMessage("sidebar listener panicked").Len())
}

func TestSetCollapsedOnlyTransitionsOnChange(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock), WithCollapsed(true))
	notified := 0
	store.Subscribe(func(State) { notified++ })

	store.SetCollapsed(true)
	require.Zero(t, notified)
	require.False(t, store.State().Transitioning)

	store.SetCollapsed(false)
	require.Equal(t, 1, notified)
	require.True(t, store.State().Transitioning)
	require.False(t, store.State().Collapsed)
}

func TestAdvanceReportsProgress(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock), WithDuration(200*time.Millisecond))

	store.Advance()
	require.Zero(t, store.State().Progress, "progress is only tracked while transitioning")

	store.Toggle()
	clock.mu.Lock()
	clock.now = clock.now.Add(50 * time.Millisecond)
	clock.mu.Unlock()
	store.Advance()
	require.InDelta(t, 0.25, store.State().Progress, 1e-9)

	clock.Advance(150 * time.Millisecond)
	require.False(t, store.State().Transitioning)
	require.Zero(t, store.State().Progress)
}

func TestCloseStopsPendingTimer(t *testing.T) {
	clock := newFakeClock()
	store := NewStore(WithScheduler(clock))
	store.Toggle()
	store.Close()
	require.Zero(t, clock.pending())

	store.Toggle()
	require.True(t, store.State().Collapsed, "toggle after close is ignored")
}

func TestWallClockTimerDoesNotLeak(t *testing.T) {
	defer goleak.VerifyNone(t)

	store := NewStore(WithDuration(20 * time.Millisecond))
	done := make(chan struct{})
	store.Subscribe(func(s State) {
		if !s.Transitioning {
			close(done)
		}
	})
	store.Toggle()
	store.Toggle()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("transition never finished")
	}
	require.False(t, store.State().Collapsed)
	store.Close()
}
