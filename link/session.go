package link

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// State is the session lifecycle flag.
type State int

const (
	Handshaking State = iota
	Active
	Closed
)

// Session owns the byte channel to the radio module. One reader
// goroutine decodes inbound lines into events; everything else (sends,
// handshake, event draining) is driven by the single caller goroutine,
// so no locking guards the session fields.
type Session struct {
	transport Transport
	config    Config
	logger    *slog.Logger

	// events carries decoded inbound lines. Buffered so telemetry
	// arriving between ticks is not lost; the reader goroutine is the
	// only writer.
	events chan rylr.Event

	// onEvent receives events the supervisor consumes while waiting
	// for an acknowledgement, so interleaved telemetry still reaches
	// the display. Runs on the caller's goroutine.
	onEvent func(rylr.Event)

	state      State
	loopCancel context.CancelFunc
}

// Establish dials the transport and starts the inbound reader. The
// returned session is Handshaking until Handshake completes.
//
// A dial failure is fatal to session start: there is no retry, the
// caller surfaces it to the operator and exits.
func Establish(ctx context.Context, config Config) (*Session, error) {
	if err := config.validate(); err != nil {
		return nil, err
	}
	config.setDefaults()

	transport, err := config.Dialer.Dial(ctx)
	if err != nil {
		return nil, fmt.Errorf("establish link: %w", err)
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s := &Session{
		transport:  transport,
		config:     config,
		logger:     config.Logger,
		events:     make(chan rylr.Event, 64),
		onEvent:    func(rylr.Event) {},
		state:      Handshaking,
		loopCancel: cancel,
	}

	go s.readLoop(loopCtx)
	return s, nil
}

// OnEvent registers the sink for events consumed during acknowledgement
// and handshake waits. Must be set before concurrent use begins; the
// sink runs on the goroutine calling Send or Handshake.
func (s *Session) OnEvent(fn func(rylr.Event)) {
	if fn != nil {
		s.onEvent = fn
	}
}

// Events returns the inbound event stream. A non-blocking receive on it
// is the "has inbound data" poll of the tick loop. The channel closes
// when the transport stops producing.
func (s *Session) Events() <-chan rylr.Event {
	return s.events
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return s.state
}

// Handshake transmits the initial state command, then blocks until the
// controller starts talking. The first inbound event is forwarded to
// the OnEvent sink so it still reaches the display.
func (s *Session) Handshake(ctx context.Context, initial Command) error {
	outcome, err := s.Send(ctx, initial)
	if err != nil {
		return fmt.Errorf("send initial state %s: %w", initial, err)
	}
	if !outcome.Succeeded {
		return fmt.Errorf("initial state %s not acknowledged: %q", initial, outcome.Response)
	}

	waitCtx, cancel := context.WithTimeout(ctx, s.config.HandshakeTimeout)
	defer cancel()

	select {
	case ev, ok := <-s.events:
		if !ok {
			return ErrSessionClosed
		}
		s.onEvent(ev)
	case <-waitCtx.Done():
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrHandshakeTimeout
	}

	s.state = Active
	s.logger.Info("FireSide link acquired", "initial_state", initial)
	return nil
}

// Close shuts the session down and releases the transport. The second
// and later calls return ErrAlreadyClosed.
func (s *Session) Close() error {
	if s.state == Closed {
		return ErrAlreadyClosed
	}
	s.state = Closed
	s.loopCancel()
	return s.transport.Close()
}

// readLoop is the only reader of the transport. It tokenizes the byte
// stream into lines, decodes each into an event, and hands non-empty
// events to the session channel. Decode is total, so nothing inbound
// can stop this loop except the transport itself.
func (s *Session) readLoop(ctx context.Context) {
	defer close(s.events)

	scanner := bufio.NewScanner(s.transport)
	scanner.Split(rylr.Splitter)

	for scanner.Scan() {
		ev := rylr.Decode(scanner.Bytes())
		if ev.Kind == rylr.KindEmpty {
			continue
		}
		select {
		case s.events <- ev:
		case <-ctx.Done():
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		s.logger.Error("link read failed", "error", err)
	}
}
