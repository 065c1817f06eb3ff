package keys

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
)

// Reader is a Source backed by a raw-mode terminal. A pump goroutine
// reads stdin byte by byte into a buffered channel; Poll drains that
// channel without blocking.
type Reader struct {
	events   chan Event
	fd       int
	oldState *term.State
	closed   bool
}

// NewReader switches the controlling terminal to raw mode and starts
// the pump. Close must be called to restore the terminal.
func NewReader() (*Reader, error) {
	fd := int(os.Stdin.Fd())
	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return nil, fmt.Errorf("enter raw terminal mode: %w", err)
	}

	r := &Reader{
		events:   make(chan Event, 32),
		fd:       fd,
		oldState: oldState,
	}
	go r.pump(os.Stdin)
	return r, nil
}

// Poll implements Source.
func (r *Reader) Poll() Event {
	select {
	case ev, ok := <-r.events:
		if !ok {
			return Event{Kind: None}
		}
		return ev
	default:
		return Event{Kind: None}
	}
}

// Close restores the terminal state. The pump goroutine stays parked
// in its stdin read until the process exits, so a Reader is single-use
// per process: close it at shutdown, do not create another.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return term.Restore(r.fd, r.oldState)
}

func (r *Reader) pump(in io.Reader) {
	defer close(r.events)

	buf := make([]byte, 1)
	for {
		n, err := in.Read(buf)
		if err != nil {
			return
		}
		if n == 0 {
			continue
		}
		if ev, ok := Map(buf[0]); ok {
			r.events <- ev
		}
	}
}

// Map translates one raw terminal byte into a keyboard event. Bytes
// with no event meaning (control characters other than the mapped
// ones) report ok=false and are dropped.
func Map(b byte) (Event, bool) {
	switch b {
	case '\r', '\n':
		return Event{Kind: Enter}, true
	case 0x7f, '\b':
		return Event{Kind: Backspace}, true
	case 0x03: // Ctrl+C
		return Event{Kind: Interrupt}, true
	}
	if b >= 0x20 && b < 0x7f {
		return Event{Kind: Rune, R: rune(b)}, true
	}
	return Event{}, false
}
