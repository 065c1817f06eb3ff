package link

// Command is a FireSide state name. Only members of the recognized set
// may ever be framed for transmission; anything else is coerced to
// Fallback by the confirmation gate before it reaches the codec.
type Command string

const (
	CmdSafe    Command = "SAFE"
	CmdArm     Command = "ARM"
	CmdLaunch  Command = "LAUNCH"
	CmdConvert Command = "CONVERT"
)

// Fallback is the always-valid safe state. Every rejected or
// unconfirmed request collapses to it.
const Fallback = CmdSafe

// ParseCommand maps operator text to a recognized Command. The second
// return value reports membership in the recognized set.
func ParseCommand(s string) (Command, bool) {
	switch c := Command(s); c {
	case CmdSafe, CmdArm, CmdLaunch, CmdConvert:
		return c, true
	}
	return Fallback, false
}

// Gated reports whether the command requires one-time-code confirmation
// before transmission.
func (c Command) Gated() bool {
	return c == CmdArm || c == CmdLaunch
}
