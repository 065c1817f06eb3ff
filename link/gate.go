package link

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// GatedCommand is the outcome of confirmation gating: the command that
// will actually be transmitted, and whether the request was overridden
// to the safe fallback. An override is a deliberate safety decision,
// never an error.
type GatedCommand struct {
	Effective  Command
	Overridden bool
}

// Gate enforces one-time-code confirmation before the two consequential
// state transitions (ARM, LAUNCH). It is the last line of defense
// against an accidental or unauthorized transition, so challenges come
// from a cryptographically strong source and are consumed exactly once.
type Gate struct {
	challengeLen int
	entropy      io.Reader
	notify       func(string)
}

// NewGate builds a Gate generating challenges of challengeLen decimal
// digits. notify receives operator-facing text (the challenge display
// and override diagnostics).
func NewGate(challengeLen int, notify func(string)) *Gate {
	if notify == nil {
		notify = func(string) {}
	}
	return &Gate{
		challengeLen: challengeLen,
		entropy:      rand.Reader,
		notify:       notify,
	}
}

// SetNotify replaces the operator-facing output hook, for callers that
// change terminal modes after gate construction.
func (g *Gate) SetNotify(fn func(string)) {
	if fn != nil {
		g.notify = fn
	}
}

// Authorize decides the effective command for an operator request.
//
// Unrecognized names coerce to Fallback. Gated commands generate a
// fresh challenge, display it, and call reenter once for confirmation;
// any mismatch coerces to Fallback and is never retried, so a second
// mistyped code still fails closed. Ungated recognized commands pass
// through without invoking reenter.
func (g *Gate) Authorize(requested string, reenter func() string) GatedCommand {
	cmd, ok := ParseCommand(requested)
	if !ok {
		g.notify(fmt.Sprintf("!!!! Invalid Command To FireSide: %s", requested))
		return GatedCommand{Effective: Fallback, Overridden: true}
	}

	if !cmd.Gated() {
		return GatedCommand{Effective: cmd, Overridden: false}
	}

	otp, err := g.challenge()
	if err != nil {
		// Entropy failure fails closed.
		g.notify(fmt.Sprintf("!!!! Cannot generate %s confirmation code. Safing FireSide!", cmd))
		return GatedCommand{Effective: Fallback, Overridden: true}
	}

	g.notify(fmt.Sprintf("OTP for %s State Transition: %s", cmd, otp))
	g.notify("Please Re-enter OTP to Confirm: ")

	if reenter() != otp {
		g.notify(fmt.Sprintf("!!!! %s OTP Invalid. Safing FireSide!", cmd))
		return GatedCommand{Effective: Fallback, Overridden: true}
	}

	return GatedCommand{Effective: cmd, Overridden: false}
}

// challenge generates one single-use numeric code.
func (g *Gate) challenge() (string, error) {
	digits := make([]byte, g.challengeLen)
	for i := range digits {
		n, err := rand.Int(g.entropy, big.NewInt(10))
		if err != nil {
			return "", fmt.Errorf("generate challenge digit: %w", err)
		}
		digits[i] = '0' + byte(n.Int64())
	}
	return string(digits), nil
}
