package keys

// Scripted is a Source that replays a fixed event sequence, then
// reports None forever. Exported for use in tests.
type Scripted struct {
	events []Event
	next   int
}

// NewScripted builds a scripted source from events in replay order.
func NewScripted(events ...Event) *Scripted {
	return &Scripted{events: events}
}

// Type appends the keystrokes needed to enter text followed by Enter.
func (s *Scripted) Type(text string) *Scripted {
	for _, r := range text {
		s.events = append(s.events, Event{Kind: Rune, R: r})
	}
	s.events = append(s.events, Event{Kind: Enter})
	return s
}

// Press appends a single event.
func (s *Scripted) Press(kind Kind) *Scripted {
	s.events = append(s.events, Event{Kind: kind})
	return s
}

// Poll implements Source.
func (s *Scripted) Poll() Event {
	if s.next >= len(s.events) {
		return Event{Kind: None}
	}
	ev := s.events[s.next]
	s.next++
	return ev
}

// Exhausted reports whether every scripted event has been polled.
func (s *Scripted) Exhausted() bool {
	return s.next >= len(s.events)
}
