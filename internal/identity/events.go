package identity

import "github.com/sadopc/goaltrack/internal/domain"

type EventKind int

const (
	SignedIn EventKind = iota
	SignedOut
	Expired
	Refreshed
)

func (k EventKind) String() string {
	switch k {
	case SignedIn:
		return "signed_in"
	case SignedOut:
		return "signed_out"
	case Expired:
		return "expired"
	case Refreshed:
		return "refreshed"
	}
	return "unknown"
}

// Event reports a session change. User is nil for SignedOut and Expired.
type Event struct {
	Kind EventKind
	User *domain.User
}

// Subscribe returns a channel of session changes and a function that
// unsubscribes and closes it. Slow subscribers miss events rather than block
// the service.
func (s *Service) Subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 8)
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.mu.Unlock()

	return ch, func() {
		s.mu.Lock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
		s.mu.Unlock()
	}
}

func (s *Service) publish(e Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- e:
		default:
		}
	}
}
