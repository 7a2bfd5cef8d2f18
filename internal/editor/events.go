package editor

import "time"

type EventType string

const (
	EventState      EventType = "state"
	EventSaving     EventType = "saving"
	EventSaved      EventType = "saved"
	EventSaveFailed EventType = "save_failed"
	EventClosed     EventType = "closed"
)

// Event is pushed to session subscribers.
type Event struct {
	Type      EventType  `json:"type"`
	State     *State     `json:"state,omitempty"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
	Error     string     `json:"error,omitempty"`
}

const subscriberBuffer = 32

// Subscribe returns a stream of session events and a function that ends the
// subscription. The channel is closed when the session closes. A subscriber
// that falls behind misses events instead of stalling edits.
func (s *Session) Subscribe() (<-chan Event, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	ch := make(chan Event, subscriberBuffer)
	if s.subsClosed {
		close(ch)
		return ch, func() {}
	}
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if sub, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(sub)
		}
	}
}

func (s *Session) publish(event Event) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- event:
		default:
		}
	}
}

func (s *Session) closeSubscribers() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for id, ch := range s.subs {
		select {
		case ch <- Event{Type: EventClosed}:
		default:
		}
		close(ch)
		delete(s.subs, id)
	}
	s.subsClosed = true
}
