package sidebar

import (
	"sync"

	tea "github.com/charmbracelet/bubbletea"
)

// StateMsg carries the latest sidebar snapshot into a bubbletea program.
type StateMsg struct {
	watcher *Watcher
	State   State
}

// From reports whether msg was produced by w.
func (m StateMsg) From(w *Watcher) bool { return m.watcher == w }

// Selector projects the part of the state a component renders from.
// Changes outside the projection are not delivered.
type Selector func(State) State

// All selects the whole state.
func All(s State) State { return s }

// TransitionOnly ignores Progress, so a subscriber re-renders on collapse
// and transition start/end but not on every animation frame.
func TransitionOnly(s State) State {
	return State{Collapsed: s.Collapsed, Transitioning: s.Transitioning}
}

// Watcher bridges a Store to a bubbletea component. Mount subscribes and
// Unmount releases the subscription; in between, Wait yields a StateMsg
// whenever the selected projection changes.
type Watcher struct {
	store    *Store
	selector Selector

	mu          sync.Mutex
	last        State
	unsubscribe func()
	changed     chan struct{}
	done        chan struct{}
}

func NewWatcher(store *Store, selector Selector) *Watcher {
	if selector == nil {
		selector = All
	}
	return &Watcher{store: store, selector: selector}
}

// Mount subscribes to the store and returns the command that waits for the
// first change. Mounting an already mounted watcher only returns Wait.
func (w *Watcher) Mount() tea.Cmd {
	w.mu.Lock()
	if w.unsubscribe == nil {
		w.changed = make(chan struct{}, 1)
		w.done = make(chan struct{})
		w.last = w.selector(w.store.State())
		changed := w.changed
		w.unsubscribe = w.store.Subscribe(func(s State) {
			w.observe(s, changed)
		})
	}
	w.mu.Unlock()
	return w.Wait()
}

func (w *Watcher) observe(s State, changed chan struct{}) {
	projected := w.selector(s)
	w.mu.Lock()
	if projected == w.last {
		w.mu.Unlock()
		return
	}
	w.last = projected
	w.mu.Unlock()

	select {
	case changed <- struct{}{}:
	default:
		// A wake-up is already pending; it will read the latest state.
	}
}

// Wait returns a command that blocks until the selected state changes or
// the watcher is unmounted. The message always carries the store's current
// snapshot, never the one captured when the change was observed.
func (w *Watcher) Wait() tea.Cmd {
	w.mu.Lock()
	changed, done := w.changed, w.done
	w.mu.Unlock()
	if changed == nil {
		return nil
	}
	return func() tea.Msg {
		select {
		case <-changed:
			return StateMsg{watcher: w, State: w.store.State()}
		case <-done:
			return nil
		}
	}
}

// Unmount releases the subscription. It is safe to call more than once.
func (w *Watcher) Unmount() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.unsubscribe == nil {
		return
	}
	w.unsubscribe()
	w.unsubscribe = nil
	close(w.done)
	w.changed, w.done = nil, nil
}
