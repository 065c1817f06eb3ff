package link

import (
	"context"
	"fmt"
	"time"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// SendOutcome reports one supervised transmission.
type SendOutcome struct {
	// Succeeded is true when the radio acknowledged the transmit
	// request under the configured AckMatch profile.
	Succeeded bool
	// Response is the last acknowledgement line seen, empty when the
	// wait timed out.
	Response string
	// Attempts counts frames written, including retries.
	Attempts int
}

// Send frames the effective command, writes it to the transport, and
// awaits the radio's acknowledgement. Telemetry that interleaves the
// acknowledgement wait is forwarded to the OnEvent sink rather than
// consumed as an ack.
//
// Failure handling follows Config.FailurePolicy: ReportOnFailure
// returns after the first negative or missing acknowledgement;
// RetryOnFailure keeps re-sending the same frame until success,
// MaxAttempts, or context cancellation. The original recursive resend
// is deliberately a loop here so a persistently dead link cannot grow
// the stack.
func (s *Session) Send(ctx context.Context, cmd Command) (SendOutcome, error) {
	if s.state == Closed {
		return SendOutcome{}, ErrAlreadyClosed
	}

	frame := rylr.EncodeSend(string(cmd))
	outcome := SendOutcome{}

	for {
		if err := ctx.Err(); err != nil {
			return outcome, err
		}

		outcome.Attempts++
		s.logger.Debug("transmitting state command", "command", cmd, "attempt", outcome.Attempts)

		if _, err := s.transport.Write(frame); err != nil {
			return outcome, fmt.Errorf("write frame for %s: %w", cmd, err)
		}

		response, err := s.awaitAck(ctx)
		switch {
		case err == nil:
			outcome.Response = response
			outcome.Succeeded = rylr.MatchesOK(response, s.config.AckMatch)
		case err == ErrAckTimeout:
			outcome.Response = ""
			outcome.Succeeded = false
		default:
			return outcome, err
		}

		if outcome.Succeeded {
			return outcome, nil
		}

		if s.config.FailurePolicy == ReportOnFailure {
			s.logger.Warn("transmit not acknowledged",
				"command", cmd, "response", outcome.Response)
			if err == ErrAckTimeout {
				return outcome, ErrAckTimeout
			}
			return outcome, nil
		}

		// Retry profile. A zero MaxAttempts loops until cancellation.
		if s.config.MaxAttempts > 0 && outcome.Attempts >= s.config.MaxAttempts {
			return outcome, fmt.Errorf("command %s unacknowledged after %d attempts", cmd, outcome.Attempts)
		}
		s.logger.Warn("transmit not acknowledged, retrying",
			"command", cmd, "attempt", outcome.Attempts, "response", outcome.Response)
	}
}

// awaitAck blocks until a response-class line arrives, the ack timeout
// elapses, or the context is cancelled. Payload and malformed events
// seen while waiting go to the OnEvent sink.
func (s *Session) awaitAck(ctx context.Context) (string, error) {
	timer := time.NewTimer(s.config.AckTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-s.events:
			if !ok {
				return "", ErrSessionClosed
			}
			if ev.Kind == rylr.KindResponse {
				return ev.Text, nil
			}
			s.onEvent(ev)
		case <-timer.C:
			return "", ErrAckTimeout
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
