package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/chzyer/readline"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// commandPrompt is the telemetry line FireSide emits when it is ready
// for an operator command. Line mode only blocks for input after
// seeing it, matching the controller's request/response cadence.
const commandPrompt = "FS> INPUT COMMAND"

// lineConsole is the degraded input mode for terminals without a
// usable non-blocking keyboard: telemetry prints freely, and operator
// input is one whole blocking line whenever FireSide asks for it.
// ReadLine supplies that line; it reports readline.ErrInterrupt or
// io.EOF when the operator is done.
type lineConsole struct {
	Gate     *link.Gate
	Link     transmitter
	Events   <-chan rylr.Event
	Out      io.Writer
	ReadLine func() (string, error)
	Tick     time.Duration
}

// runLineMode wires a readline editor to the session and blocks until
// shutdown.
func runLineMode(ctx context.Context, session *link.Session, gate *link.Gate, tick time.Duration) error {
	rl, err := readline.New(prompt)
	if err != nil {
		return fmt.Errorf("start line editor: %w", err)
	}
	defer rl.Close()

	lc := &lineConsole{
		Gate:     gate,
		Link:     session,
		Events:   session.Events(),
		Out:      rl.Stdout(),
		ReadLine: rl.Readline,
		Tick:     tick,
	}
	return lc.run(ctx)
}

func (c *lineConsole) run(ctx context.Context) error {
	ticker := time.NewTicker(c.Tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(c.Out, "Stopping GroundSide Control")
			return ctx.Err()
		case <-ticker.C:
		}

		stop, err := c.tick(ctx)
		if stop || err != nil {
			return err
		}
	}
}

// tick drains pending telemetry and, when the last line is FireSide's
// command request, blocks for one operator line and submits it. It
// returns true when the loop should stop.
func (c *lineConsole) tick(ctx context.Context) (bool, error) {
	var last string
drain:
	for {
		select {
		case ev, ok := <-c.Events:
			if !ok {
				fmt.Fprintln(c.Out, "!!!! FireSide Link Lost")
				return true, nil
			}
			if text, ok := eventText(ev); ok {
				fmt.Fprintln(c.Out, text)
				last = text
			}
		default:
			break drain
		}
	}

	if last != commandPrompt {
		return false, nil
	}

	line, err := c.ReadLine()
	switch {
	case errors.Is(err, readline.ErrInterrupt), errors.Is(err, io.EOF):
		fmt.Fprintln(c.Out, "Stopping GroundSide Control")
		return true, nil
	case err != nil:
		return true, fmt.Errorf("read command line: %w", err)
	}
	if line == "" {
		return false, nil
	}

	c.submit(ctx, line)
	return false, nil
}

// submit runs one operator line through the confirmation gate and the
// transmission supervisor. OTP re-entry reads another whole line.
func (c *lineConsole) submit(ctx context.Context, line string) {
	gated := c.Gate.Authorize(line, c.reenter)
	if gated.Overridden {
		fmt.Fprintln(c.Out, "Sending SAFE Command")
	}

	outcome, err := c.Link.Send(ctx, gated.Effective)
	if err != nil {
		fmt.Fprintf(c.Out, "!!!! Send Failed: %v\n", err)
		return
	}
	if !outcome.Succeeded {
		fmt.Fprintf(c.Out, "!!!! %s Not Acknowledged: %s\n", gated.Effective, outcome.Response)
	}
}

// reenter is the gate's confirmation hook. Interrupt or EOF mid-entry
// fails closed at the gate comparison.
func (c *lineConsole) reenter() string {
	line, err := c.ReadLine()
	if err != nil {
		return ""
	}
	return line
}
