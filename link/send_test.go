package link_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"go.uber.org/mock/gomock"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// establishTestSession wires a session over a channel-backed fake
// transport. configure may adjust the builder before Build.
func establishTestSession(t *testing.T, configure func(*link.ConfigBuilder)) (*link.Session, *link.TestTransport) {
	t.Helper()

	ctrl := gomock.NewController(t)
	transport := link.NewTestTransport()
	dialer := link.NewMockDialer(ctrl)
	dialer.EXPECT().Dial(gomock.Any()).Return(transport, nil)

	builder := link.NewConfigBuilder().
		WithDialer(dialer).
		WithAckTimeout(200 * time.Millisecond).
		WithHandshakeTimeout(200 * time.Millisecond).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	if configure != nil {
		configure(builder)
	}

	config, err := builder.Build()
	if err != nil {
		t.Fatalf("unexpected error from Build(): %v", err)
	}

	session, err := link.Establish(context.Background(), config)
	if err != nil {
		t.Fatalf("unexpected error from Establish(): %v", err)
	}
	t.Cleanup(func() { session.Close() })

	return session, transport
}

func TestSend(t *testing.T) {
	t.Run("acknowledged transmit", func(t *testing.T) {
		session, transport := establishTestSession(t, nil)
		transport.SendData("+OK\r\n")

		outcome, err := session.Send(context.Background(), link.CmdSafe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !outcome.Succeeded {
			t.Error("expected Succeeded for +OK acknowledgement")
		}
		if outcome.Response != "+OK" {
			t.Errorf("Response = %q, expected +OK", outcome.Response)
		}
		if outcome.Attempts != 1 {
			t.Errorf("Attempts = %d, expected 1", outcome.Attempts)
		}

		writes := transport.Writes()
		if len(writes) != 1 || string(writes[0]) != "AT+SEND=0,4,SAFE\r\n" {
			t.Errorf("unexpected frames written: %q", writes)
		}
	})

	t.Run("report profile returns exactly once on failure", func(t *testing.T) {
		session, transport := establishTestSession(t, nil)
		transport.SendData("+ERR=4\r\n")

		outcome, err := session.Send(context.Background(), link.CmdConvert)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if outcome.Succeeded {
			t.Error("expected failure for +ERR response")
		}
		if outcome.Response != "+ERR=4" {
			t.Errorf("Response = %q", outcome.Response)
		}
		if outcome.Attempts != 1 {
			t.Errorf("report profile must not retry, Attempts = %d", outcome.Attempts)
		}
	})

	t.Run("report profile surfaces ack timeout", func(t *testing.T) {
		session, _ := establishTestSession(t, func(b *link.ConfigBuilder) {
			b.WithAckTimeout(20 * time.Millisecond)
		})

		outcome, err := session.Send(context.Background(), link.CmdSafe)
		if !errors.Is(err, link.ErrAckTimeout) {
			t.Errorf("expected ErrAckTimeout, got: %v", err)
		}
		if outcome.Succeeded {
			t.Error("expected failed outcome on timeout")
		}
	})

	t.Run("retry profile re-sends until acknowledged", func(t *testing.T) {
		session, transport := establishTestSession(t, func(b *link.ConfigBuilder) {
			b.WithFailurePolicy(link.RetryOnFailure).WithMaxAttempts(5)
		})
		transport.SendData("+ERR=1\r\n")
		transport.SendData("+ERR=1\r\n")
		transport.SendData("+OK\r\n")

		outcome, err := session.Send(context.Background(), link.CmdSafe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !outcome.Succeeded || outcome.Attempts != 3 {
			t.Errorf("outcome = %+v, expected success on attempt 3", outcome)
		}
		if got := len(transport.Writes()); got != 3 {
			t.Errorf("expected 3 frames written, got %d", got)
		}
	})

	t.Run("retry profile stops at MaxAttempts", func(t *testing.T) {
		session, transport := establishTestSession(t, func(b *link.ConfigBuilder) {
			b.WithFailurePolicy(link.RetryOnFailure).WithMaxAttempts(2)
		})
		transport.SendData("+ERR=1\r\n")
		transport.SendData("+ERR=1\r\n")

		outcome, err := session.Send(context.Background(), link.CmdSafe)
		if err == nil {
			t.Fatal("expected error after exhausting retries")
		}
		if outcome.Attempts != 2 {
			t.Errorf("Attempts = %d, expected 2", outcome.Attempts)
		}
	})

	t.Run("retry profile observes cancellation", func(t *testing.T) {
		session, _ := establishTestSession(t, func(b *link.ConfigBuilder) {
			b.WithFailurePolicy(link.RetryOnFailure).WithAckTimeout(10 * time.Millisecond)
		})

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		_, err := session.Send(ctx, link.CmdSafe)
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected context.DeadlineExceeded, got: %v", err)
		}
	})

	t.Run("substring profile accepts lax acknowledgement", func(t *testing.T) {
		session, transport := establishTestSession(t, func(b *link.ConfigBuilder) {
			b.WithAckMatch(rylr.AckSubstring)
		})
		// Known laxness of the substring profile.
		transport.SendData("NOTOK\r\n")

		outcome, err := session.Send(context.Background(), link.CmdSafe)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !outcome.Succeeded {
			t.Error("substring profile should accept NOTOK")
		}
	})

	t.Run("interleaved telemetry reaches the event sink", func(t *testing.T) {
		session, transport := establishTestSession(t, nil)

		var seen []rylr.Event
		session.OnEvent(func(ev rylr.Event) { seen = append(seen, ev) })

		transport.SendData("+RCV=1,9,TELEMETRY,-50,9\r\n")
		transport.SendData("+OK\r\n")

		outcome, err := session.Send(context.Background(), link.CmdArm)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !outcome.Succeeded {
			t.Errorf("outcome = %+v", outcome)
		}
		if len(seen) != 1 || seen[0].Kind != rylr.KindPayload || seen[0].Text != "TELEMETRY" {
			t.Errorf("sink saw %+v, expected the TELEMETRY payload", seen)
		}
	})

	t.Run("gated command frame shape", func(t *testing.T) {
		session, transport := establishTestSession(t, nil)
		transport.SendData("+OK\r\n")

		if _, err := session.Send(context.Background(), link.CmdLaunch); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		writes := transport.Writes()
		if len(writes) != 1 {
			t.Fatalf("expected one frame, got %d", len(writes))
		}
		frame := string(writes[0])
		if frame != "AT+SEND=0,6,LAUNCH\r\n" {
			t.Errorf("frame = %q", frame)
		}
		if !strings.HasSuffix(frame, rylr.CRLF) {
			t.Error("frame must end with CRLF")
		}
	})
}
