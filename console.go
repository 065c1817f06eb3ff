package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/keys"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

const prompt = "GS> "

// eraseLine moves to column zero and clears the rendered prompt so
// telemetry can print on its own line.
const eraseLine = "\r\x1b[K"

// transmitter is the slice of the link session the console drives.
type transmitter interface {
	Send(ctx context.Context, cmd link.Command) (link.SendOutcome, error)
}

// Console is the interactive multiplexer: one cooperative tick loop
// that services inbound telemetry and operator keystrokes in sequence.
// The line-edit buffer is owned exclusively by this loop; inbound
// display and the buffer are two independent regions of each redraw,
// so telemetry never corrupts a half-typed command.
type Console struct {
	Gate   *link.Gate
	Link   transmitter
	Keys   keys.Source
	Out    io.Writer
	Events <-chan rylr.Event
	Tick   time.Duration

	buffer []rune
}

// Run drives the tick loop until the operator interrupts, the context
// is cancelled, or the link closes. The terminal is assumed to be in
// raw mode, hence the explicit CRLFs.
func (c *Console) Run(ctx context.Context) error {
	c.renderPrompt()

	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprint(c.Out, eraseLine+"Stopping GroundSide Control\r\n")
			return ctx.Err()
		case <-ticker.C:
		}

		if c.tick(ctx) {
			return nil
		}
	}
}

// tick services both I/O directions once. It returns true when the
// loop should stop.
func (c *Console) tick(ctx context.Context) bool {
drain:
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				fmt.Fprint(c.Out, eraseLine+"!!!! FireSide Link Lost\r\n")
				return true
			}
			c.display(ev)
		default:
			break drain
		}
	}

	switch ev := c.Keys.Poll(); ev.Kind {
	case keys.None:

	case keys.Rune:
		c.buffer = append(c.buffer, ev.R)
		fmt.Fprintf(c.Out, "%c", ev.R)

	case keys.Backspace:
		if len(c.buffer) > 0 {
			c.buffer = c.buffer[:len(c.buffer)-1]
			fmt.Fprint(c.Out, "\b \b")
		}

	case keys.Enter:
		line := string(c.buffer)
		c.buffer = c.buffer[:0]
		fmt.Fprint(c.Out, "\r\n")
		if line != "" {
			c.submit(ctx, line)
		}
		c.renderPrompt()

	case keys.Interrupt:
		fmt.Fprint(c.Out, eraseLine+"Stopping GroundSide Control\r\n")
		return true
	}

	return false
}

// submit runs one operator command through the confirmation gate and
// the transmission supervisor.
func (c *Console) submit(ctx context.Context, line string) {
	gated := c.Gate.Authorize(line, c.readLine)
	if gated.Overridden {
		fmt.Fprint(c.Out, "Sending SAFE Command\r\n")
	}

	outcome, err := c.Link.Send(ctx, gated.Effective)
	if err != nil {
		fmt.Fprintf(c.Out, "!!!! Send Failed: %v\r\n", err)
		return
	}
	if !outcome.Succeeded {
		fmt.Fprintf(c.Out, "!!!! %s Not Acknowledged: %s\r\n", gated.Effective, outcome.Response)
	}
}

// readLine synchronously collects one line of operator input through
// the keystroke source. It is the reenter hook the gate calls for OTP
// confirmation; an interrupt abandons the entry, which fails closed at
// the gate comparison.
func (c *Console) readLine() string {
	var entry []rune
	for {
		switch ev := c.Keys.Poll(); ev.Kind {
		case keys.None:
			time.Sleep(c.Tick)
		case keys.Rune:
			entry = append(entry, ev.R)
			fmt.Fprintf(c.Out, "%c", ev.R)
		case keys.Backspace:
			if len(entry) > 0 {
				entry = entry[:len(entry)-1]
				fmt.Fprint(c.Out, "\b \b")
			}
		case keys.Enter:
			fmt.Fprint(c.Out, "\r\n")
			return string(entry)
		case keys.Interrupt:
			fmt.Fprint(c.Out, "\r\n")
			return ""
		}
	}
}

// display prints one inbound event, redrawing the prompt and the
// in-progress buffer around it.
func (c *Console) display(ev rylr.Event) {
	text, ok := eventText(ev)
	if !ok {
		return
	}
	fmt.Fprint(c.Out, eraseLine, text, "\r\n")
	c.renderPrompt()
}

func (c *Console) renderPrompt() {
	fmt.Fprint(c.Out, prompt, string(c.buffer))
}

// eventText maps an event to its operator-facing line. Empty events
// have no display.
func eventText(ev rylr.Event) (string, bool) {
	switch ev.Kind {
	case rylr.KindPayload:
		return ev.Text, true
	case rylr.KindResponse:
		return ev.Text, true
	case rylr.KindMalformed:
		return "!!!! Malformed +RCV Response: " + ev.Text, true
	}
	return "", false
}
