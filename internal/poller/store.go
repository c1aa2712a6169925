package poller

import (
	"sync"
	"time"
)

type Phase string

const (
	PhaseLoading Phase = "loading"
	PhaseReady   Phase = "ready"
	PhaseError   Phase = "error"
)

// State is what a view renders. Data is only meaningful in PhaseReady.
type State[T any] struct {
	Phase     Phase
	Data      T
	Err       error
	Cycle     uint64
	CycleID   string
	UpdatedAt time.Time
}

// Store holds the latest State of a view and fans it out to subscribers.
// Subscribers always see the most recent state; an update that arrives
// before the previous one was consumed replaces it.
type Store[T any] struct {
	mu     sync.RWMutex
	state  State[T]
	subs   map[uint64]chan State[T]
	nextID uint64
	closed bool
}

func NewStore[T any]() *Store[T] {
	return &Store[T]{
		state: State[T]{Phase: PhaseLoading},
		subs:  make(map[uint64]chan State[T]),
	}
}

func (s *Store[T]) Get() State[T] {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Subscribe returns a channel that immediately carries the current state and
// then every later one. The returned func unsubscribes and closes the channel.
func (s *Store[T]) Subscribe() (<-chan State[T], func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan State[T], 1)
	ch <- s.state

	if s.closed {
		close(ch)
		return ch, func() {}
	}

	id := s.nextID
	s.nextID++
	s.subs[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if sub, ok := s.subs[id]; ok {
				delete(s.subs, id)
				close(sub)
			}
		})
	}
}

// Close ends every subscription. Later updates are ignored.
func (s *Store[T]) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	for id, ch := range s.subs {
		delete(s.subs, id)
		close(ch)
	}
}

func (s *Store[T]) reset() {
	s.update(func(st *State[T]) bool {
		*st = State[T]{Phase: PhaseLoading}
		return true
	})
}

// update applies fn under the store lock and notifies subscribers when fn
// reports a change.
func (s *Store[T]) update(fn func(st *State[T]) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || !fn(&s.state) {
		return
	}

	for _, ch := range s.subs {
		select {
		case ch <- s.state:
			continue
		default:
		}
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s.state:
		default:
		}
	}
}
