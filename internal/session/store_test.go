package session

import (
	"sync"
	"testing"

	"github.com/Sabith-07/WISE/internal/domain"
)

type collectingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *collectingPublisher) Publish(e Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
}

func TestNewStoreStartsInactive(t *testing.T) {
	s := NewStore()
	st := s.Get()
	if st.Activation != domain.ActivationInactive {
		t.Errorf("Activation = %q, want inactive", st.Activation)
	}
	if st.Listening != domain.ListeningIdle {
		t.Errorf("Listening = %q, want idle", st.Listening)
	}
	if st.Microphone != domain.PermissionUnknown {
		t.Errorf("Microphone = %q, want unknown", st.Microphone)
	}
}

func TestUpdatePublishesSnapshot(t *testing.T) {
	s := NewStore()
	pub := &collectingPublisher{}
	s.SetPublisher(pub)

	s.Update(EventActivation, func(st *State) {
		st.Activation = domain.ActivationActive
		st.Edge++
	})

	if len(pub.events) != 1 {
		t.Fatalf("expected 1 event, got %d", len(pub.events))
	}
	ev := pub.events[0]
	if ev.Type != EventActivation {
		t.Errorf("event type = %v, want activation", ev.Type)
	}
	if !ev.State.IsActive() || ev.State.Edge != 1 {
		t.Errorf("unexpected snapshot: %+v", ev.State)
	}
	if ev.State.UpdatedAt.IsZero() {
		t.Error("UpdatedAt should be stamped")
	}
}

func TestGetReturnsCopy(t *testing.T) {
	s := NewStore()
	s.Update(EventLocation, func(st *State) {
		st.Position = &domain.Coordinate{Latitude: 1, Longitude: 2}
	})

	got := s.Get()
	got.Position.Latitude = 99

	if s.Get().Position.Latitude != 1 {
		t.Error("mutating a snapshot leaked into the store")
	}
}

func TestReset(t *testing.T) {
	s := NewStore()
	s.Update(EventSharing, func(st *State) { st.Sharing = true })
	s.Reset()
	if s.Get().Sharing {
		t.Error("Reset should clear sharing")
	}
}

func TestConcurrentUpdatesPublishInOrder(t *testing.T) {
	s := NewStore()
	pub := &collectingPublisher{}
	s.SetPublisher(pub)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Update(EventActivation, func(st *State) { st.Edge++ })
		}()
	}
	wg.Wait()

	if len(pub.events) != 50 {
		t.Fatalf("expected 50 events, got %d", len(pub.events))
	}
	for i, ev := range pub.events {
		if ev.State.Edge != uint64(i+1) {
			t.Fatalf("event %d carries edge %d, want %d", i, ev.State.Edge, i+1)
		}
	}
}
