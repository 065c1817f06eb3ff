package rylr

const (
	// Terminal Control
	CRLF = "\r\n"

	// Response Codes
	OK        = "+OK"
	ErrPrefix = "+ERR="

	// Receive notification prefix, see the REYAX RYLR998 AT command
	// datasheet: +RCV=<addr>,<len>,<data>,<rssi>,<snr>
	RecvPrefix = "+RCV="

	// BroadcastAddr is the destination used for AT+SEND. The FireSide
	// link runs point-to-point, so the broadcast address is fine.
	BroadcastAddr = 0

	// recvFields is the field count of a well-formed receive
	// notification (4 separating commas).
	recvFields = 5
)

type EventKind int

const (
	KindEmpty     EventKind = iota // no data, or a blank line
	KindPayload                    // validated +RCV notification, Text is the payload
	KindResponse                   // any other non-empty line (+OK, +ERR=..., banners)
	KindMalformed                  // +RCV line with the wrong field count, Text is the raw line
)

// Event is the classification of one inbound line. Decode maps every
// possible input to exactly one Event.
type Event struct {
	Kind EventKind
	Text string

	// Receive metadata, populated for KindPayload only. Parsed
	// leniently: a field that is not an integer reads as zero.
	Addr int
	RSSI int
	SNR  int
}

// AckMatch selects how a transmit acknowledgement line is recognized.
type AckMatch int

const (
	// AckExact accepts only a line that is exactly "+OK".
	AckExact AckMatch = iota
	// AckSubstring accepts any line containing "OK". This is the laxer
	// profile of the two and also accepts e.g. "NOTOK"; prefer AckExact.
	AckSubstring
)
