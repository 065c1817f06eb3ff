package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/chzyer/readline"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// lineScript replays operator lines, then reports err forever.
type lineScript struct {
	lines []string
	err   error
	reads int
}

func (s *lineScript) read() (string, error) {
	s.reads++
	if len(s.lines) == 0 {
		return "", s.err
	}
	line := s.lines[0]
	s.lines = s.lines[1:]
	return line, nil
}

func newTestLineConsole(script *lineScript, events <-chan rylr.Event) (*lineConsole, *sendRecorder, *bytes.Buffer) {
	out := &bytes.Buffer{}
	rec := &sendRecorder{outcome: link.SendOutcome{Succeeded: true, Response: rylr.OK}}
	gate := link.NewGate(4, func(text string) {
		fmt.Fprintln(out, text)
	})
	c := &lineConsole{
		Gate:     gate,
		Link:     rec,
		Events:   events,
		Out:      out,
		ReadLine: script.read,
		Tick:     time.Millisecond,
	}
	return c, rec, out
}

func TestLineModeTelemetryDoesNotBlock(t *testing.T) {
	events := make(chan rylr.Event, 4)
	events <- rylr.Event{Kind: rylr.KindPayload, Text: "FS> TELEMETRY 42"}
	events <- rylr.Event{Kind: rylr.KindMalformed, Text: "+RCV=1,4,ARM"}

	script := &lineScript{err: io.EOF}
	c, rec, out := newTestLineConsole(script, events)

	stop, err := c.tick(context.Background())
	if stop || err != nil {
		t.Fatalf("tick() = %v, %v; expected to keep running", stop, err)
	}

	if script.reads != 0 {
		t.Errorf("telemetry without a command request read input %d times", script.reads)
	}
	if len(rec.cmds) != 0 {
		t.Errorf("telemetry display transmitted: %v", rec.cmds)
	}
	if !strings.Contains(out.String(), "FS> TELEMETRY 42") {
		t.Errorf("telemetry missing from output: %q", out.String())
	}
	if !strings.Contains(out.String(), "!!!! Malformed +RCV Response: +RCV=1,4,ARM") {
		t.Errorf("malformed diagnostic missing from output: %q", out.String())
	}
}

func TestLineModeCommandRequestReadsOneLine(t *testing.T) {
	events := make(chan rylr.Event, 4)
	events <- rylr.Event{Kind: rylr.KindPayload, Text: "FS> STATE SAFE"}
	events <- rylr.Event{Kind: rylr.KindPayload, Text: commandPrompt}

	script := &lineScript{lines: []string{"SAFE"}, err: io.EOF}
	c, rec, _ := newTestLineConsole(script, events)

	stop, err := c.tick(context.Background())
	if stop || err != nil {
		t.Fatalf("tick() = %v, %v; expected to keep running", stop, err)
	}

	if script.reads != 1 {
		t.Errorf("command request read input %d times, expected exactly 1", script.reads)
	}
	if len(rec.cmds) != 1 || rec.cmds[0] != link.CmdSafe {
		t.Errorf("transmitted %v, expected [SAFE]", rec.cmds)
	}
}

func TestLineModePromptMustBeLastLine(t *testing.T) {
	// A command request followed by newer telemetry in the same drain
	// is stale; FireSide has moved on.
	events := make(chan rylr.Event, 4)
	events <- rylr.Event{Kind: rylr.KindPayload, Text: commandPrompt}
	events <- rylr.Event{Kind: rylr.KindPayload, Text: "FS> STATE SAFE"}

	script := &lineScript{err: io.EOF}
	c, rec, _ := newTestLineConsole(script, events)

	stop, err := c.tick(context.Background())
	if stop || err != nil {
		t.Fatalf("tick() = %v, %v; expected to keep running", stop, err)
	}
	if script.reads != 0 || len(rec.cmds) != 0 {
		t.Errorf("stale command request blocked for input (reads=%d, cmds=%v)",
			script.reads, rec.cmds)
	}
}

func TestLineModeGatedMismatchFailsClosed(t *testing.T) {
	events := make(chan rylr.Event, 2)
	events <- rylr.Event{Kind: rylr.KindPayload, Text: commandPrompt}

	// "XXXX" can never match a numeric challenge.
	script := &lineScript{lines: []string{"ARM", "XXXX"}, err: io.EOF}
	c, rec, out := newTestLineConsole(script, events)

	stop, err := c.tick(context.Background())
	if stop || err != nil {
		t.Fatalf("tick() = %v, %v; expected to keep running", stop, err)
	}

	if len(rec.cmds) != 1 || rec.cmds[0] != link.Fallback {
		t.Errorf("transmitted %v, expected the SAFE fallback", rec.cmds)
	}
	if !strings.Contains(out.String(), "OTP for ARM State Transition") {
		t.Errorf("challenge was never displayed: %q", out.String())
	}
	if !strings.Contains(out.String(), "Safing FireSide") {
		t.Errorf("missing fail-closed notice: %q", out.String())
	}
}

func TestLineModeStops(t *testing.T) {
	cases := []struct {
		name string
		err  error
	}{
		{"on interrupt", readline.ErrInterrupt},
		{"on EOF", io.EOF},
	}
	for _, tt := range cases {
		t.Run(tt.name, func(t *testing.T) {
			events := make(chan rylr.Event, 2)
			events <- rylr.Event{Kind: rylr.KindPayload, Text: commandPrompt}

			script := &lineScript{err: tt.err}
			c, rec, out := newTestLineConsole(script, events)

			stop, err := c.tick(context.Background())
			if !stop || err != nil {
				t.Fatalf("tick() = %v, %v; expected clean stop", stop, err)
			}
			if len(rec.cmds) != 0 {
				t.Errorf("shutdown transmitted: %v", rec.cmds)
			}
			if !strings.Contains(out.String(), "Stopping GroundSide Control") {
				t.Errorf("missing shutdown notice: %q", out.String())
			}
		})
	}

	t.Run("on event stream closure", func(t *testing.T) {
		events := make(chan rylr.Event)
		close(events)

		script := &lineScript{err: io.EOF}
		c, _, out := newTestLineConsole(script, events)

		stop, err := c.tick(context.Background())
		if !stop || err != nil {
			t.Fatalf("tick() = %v, %v; expected clean stop", stop, err)
		}
		if !strings.Contains(out.String(), "Link Lost") {
			t.Errorf("missing link-lost notice: %q", out.String())
		}
	})
}

func TestLineModeEmptyLineIgnored(t *testing.T) {
	events := make(chan rylr.Event, 2)
	events <- rylr.Event{Kind: rylr.KindPayload, Text: commandPrompt}

	script := &lineScript{lines: []string{""}, err: io.EOF}
	c, rec, _ := newTestLineConsole(script, events)

	stop, err := c.tick(context.Background())
	if stop || err != nil {
		t.Fatalf("tick() = %v, %v; expected to keep running", stop, err)
	}
	if len(rec.cmds) != 0 {
		t.Errorf("empty line transmitted: %v", rec.cmds)
	}
}
