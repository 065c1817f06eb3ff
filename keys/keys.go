// Package keys provides the non-blocking keyboard source for the
// GroundSide console: one poll returns at most one input event and
// never waits for the operator.
package keys

// Kind classifies one keyboard event.
type Kind int

const (
	None      Kind = iota // no input pending
	Rune                  // a literal printable character
	Backspace             // erase last character
	Enter                 // submit the current line
	Interrupt             // Ctrl+C; raw mode suppresses SIGINT, so it surfaces here
)

// Event is one keystroke. R is set for Kind Rune only.
type Event struct {
	Kind Kind
	R    rune
}

// Source yields keyboard events without blocking.
type Source interface {
	// Poll returns the next pending event, or an Event with Kind None
	// when the operator has typed nothing since the last poll.
	Poll() Event
}
