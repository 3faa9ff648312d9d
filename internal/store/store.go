package store

import (
	"sync"
	"sync/atomic"

	"telemetry_dashboard/internal/models"
)

// Listener is called with every new snapshot after a state-changing dispatch.
type Listener func(models.AppState)

// Store owns the single authoritative AppState.
type Store struct {
	mu        sync.Mutex
	state     atomic.Pointer[models.AppState]
	listeners map[int]Listener
	nextID    int
}

// New returns a store holding the initial state: disconnected, no data.
func New() *Store {
	s := &Store{listeners: make(map[int]Listener)}
	s.state.Store(&models.AppState{Connection: models.Disconnected})
	return s
}

// State returns the current snapshot. Safe from any goroutine.
func (s *Store) State() models.AppState {
	return *s.state.Load()
}

// Dispatch applies a as one atomic transition and reports whether the state
// changed. Listeners are notified after the new snapshot is published; a
// listener must not dispatch synchronously.
func (s *Store) Dispatch(a Action) bool {
	s.mu.Lock()
	cur := s.state.Load()
	next := Reduce(*cur, a)
	if next.Version == cur.Version {
		s.mu.Unlock()
		return false
	}
	s.state.Store(&next)
	ls := make([]Listener, 0, len(s.listeners))
	for _, l := range s.listeners {
		ls = append(ls, l)
	}
	s.mu.Unlock()

	for _, l := range ls {
		l(next)
	}
	return true
}

// Subscribe registers l and returns a function that removes it.
func (s *Store) Subscribe(l Listener) (cancel func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = l
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.listeners, id)
			s.mu.Unlock()
		})
	}
}
