// Package sidebar holds the collapse and transition state of the dashboard
// sidebar and lets independent panels follow it.
package sidebar

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultDuration matches the default layout.transition_ms.
const DefaultDuration = 300 * time.Millisecond

// State is a snapshot of the sidebar.
type State struct {
	Collapsed     bool
	Transitioning bool
	// Progress is the fraction of the current transition that has elapsed.
	// It is only meaningful while Transitioning is true.
	Progress float64
}

// Listener is called with the new snapshot after every state change.
type Listener func(State)

// Timer is a pending callback that can be stopped.
type Timer interface {
	Stop() bool
}

// Scheduler is the time source used by the store.
type Scheduler interface {
	Now() time.Time
	AfterFunc(d time.Duration, f func()) Timer
}

type wallClock struct{}

func (wallClock) Now() time.Time { return time.Now() }

func (wallClock) AfterFunc(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }

type subscription struct {
	id       uint64
	listener Listener
	active   bool
}

// Store is the single source of truth for the sidebar. Notifications are
// delivered synchronously, in subscription order, outside the store lock so
// listeners may call back into the store.
type Store struct {
	mu       sync.Mutex
	state    State
	duration time.Duration
	clock    Scheduler
	logger   *zap.Logger

	timer      Timer
	generation uint64
	started    time.Time
	closed     bool

	subs   []*subscription
	nextID uint64
}

// Option configures a Store.
type Option func(*Store)

// WithDuration sets the transition length. It must match the duration the
// layout animates over.
func WithDuration(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.duration = d
		}
	}
}

func WithScheduler(clock Scheduler) Option {
	return func(s *Store) {
		if clock != nil {
			s.clock = clock
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithCollapsed sets the initial collapse state without a transition.
func WithCollapsed(collapsed bool) Option {
	return func(s *Store) { s.state.Collapsed = collapsed }
}

func NewStore(opts ...Option) *Store {
	s := &Store{
		duration: DefaultDuration,
		clock:    wallClock{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Duration returns the configured transition length.
func (s *Store) Duration() time.Duration { return s.duration }

// State returns the current snapshot.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Toggle flips the collapse state and (re)starts the transition. A toggle
// during a running transition replaces its end timer, so a burst of toggles
// ends exactly once, one duration after the last toggle.
func (s *Store) Toggle() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.startTransition(!s.state.Collapsed)
	snap := s.state
	s.mu.Unlock()

	s.notify(snap)
}

// SetCollapsed sets the collapse state, starting a transition only when it
// changes.
func (s *Store) SetCollapsed(collapsed bool) {
	s.mu.Lock()
	if s.closed || s.state.Collapsed == collapsed {
		s.mu.Unlock()
		return
	}
	s.startTransition(collapsed)
	snap := s.state
	s.mu.Unlock()

	s.notify(snap)
}

// startTransition must be called with s.mu held.
func (s *Store) startTransition(collapsed bool) {
	if s.timer != nil {
		s.timer.Stop()
	}
	s.generation++
	gen := s.generation
	s.state = State{Collapsed: collapsed, Transitioning: true}
	s.started = s.clock.Now()
	s.timer = s.clock.AfterFunc(s.duration, func() { s.finish(gen) })
}

func (s *Store) finish(gen uint64) {
	s.mu.Lock()
	// A timer that was replaced may still fire if Stop lost the race.
	if gen != s.generation || s.closed || !s.state.Transitioning {
		s.mu.Unlock()
		return
	}
	s.timer = nil
	s.state.Transitioning = false
	s.state.Progress = 0
	snap := s.state
	s.mu.Unlock()

	s.logger.Debug("sidebar transition finished", zap.Bool("collapsed", snap.Collapsed))
	s.notify(snap)
}

// Advance recomputes Progress from the elapsed time of the running
// transition and notifies when it changed.
func (s *Store) Advance() {
	s.mu.Lock()
	if !s.state.Transitioning {
		s.mu.Unlock()
		return
	}
	progress := float64(s.clock.Now().Sub(s.started)) / float64(s.duration)
	progress = min(max(progress, 0), 1)
	if progress == s.state.Progress {
		s.mu.Unlock()
		return
	}
	s.state.Progress = progress
	snap := s.state
	s.mu.Unlock()

	s.notify(snap)
}

// Subscribe registers l and returns the function that removes it. Calling
// the returned function more than once has no effect.
func (s *Store) Subscribe(l Listener) (unsubscribe func()) {
	s.mu.Lock()
	s.nextID++
	sub := &subscription{id: s.nextID, listener: l, active: true}
	s.subs = append(s.subs, sub)
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { s.remove(sub) })
	}
}

func (s *Store) remove(sub *subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub.active = false
	for i, candidate := range s.subs {
		if candidate == sub {
			s.subs = append(s.subs[:i:i], s.subs[i+1:]...)
			return
		}
	}
}

// Listeners returns the number of registered listeners.
func (s *Store) Listeners() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Store) notify(snap State) {
	s.mu.Lock()
	subs := make([]*subscription, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		s.mu.Lock()
		active := sub.active
		s.mu.Unlock()
		if !active {
			continue
		}
		s.call(sub, snap)
	}
}

func (s *Store) call(sub *subscription, snap State) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("sidebar listener panicked",
				zap.Uint64("listener", sub.id),
				zap.String("panic", fmt.Sprint(r)))
		}
	}()
	sub.listener(snap)
}

// Close stops the pending transition timer. Later toggles are ignored.
func (s *Store) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
