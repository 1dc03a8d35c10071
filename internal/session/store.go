package session

import (
	"sync"
	"time"
)

// Store owns the single session State. Mutations commit under the lock and
// are published after it is released, in commit order.
type Store struct {
	mu        sync.Mutex
	state     State
	publisher Publisher

	pubMu sync.Mutex
	now   func() time.Time
}

func NewStore() *Store {
	return &Store{
		state: NewState(),
		now:   time.Now,
	}
}

// SetPublisher registers the observer notified after every Update. Must be
// called before the store is shared.
func (s *Store) SetPublisher(p Publisher) {
	s.publisher = p
}

func (s *Store) Get() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.clone()
}

// Update applies fn to the state and publishes the result. fn runs under the
// store lock and must not call back into the store.
func (s *Store) Update(kind EventType, fn func(*State)) State {
	// pubMu keeps publish order identical to commit order.
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	fn(&s.state)
	s.state.UpdatedAt = s.now()
	snapshot := s.state.clone()
	s.mu.Unlock()

	if s.publisher != nil {
		s.publisher.Publish(Event{Type: kind, State: snapshot})
	}
	return snapshot
}

// Reset returns the store to a fresh page load.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = NewState()
}
