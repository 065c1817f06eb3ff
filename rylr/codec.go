package rylr

import (
	"bufio"
	"bytes"
	"fmt"
	"strconv"
	"strings"
)

// Splitter is used for tokenizing RYLR module output. It uses the
// signature of bufio.SplitFunc so it can be directly used with
// bufio.Scanner.
//
// The module terminates lines with CRLF, but the splitter cuts at LF and
// trims an optional preceding CR, so bare-LF output from a flaky link
// still tokenizes.
//
// The atEOF parameter indicates whether any more data will be available.
// When true, any remaining data is returned as the final token.
func Splitter(data []byte, atEOF bool) (advance int, token []byte, err error) {
	if atEOF && len(data) == 0 {
		return 0, nil, nil
	}

	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		return i + 1, bytes.TrimSuffix(data[:i], []byte("\r")), nil
	}

	if atEOF {
		return len(data), data, nil
	}
	return 0, nil, nil
}

var _ bufio.SplitFunc = Splitter

// EncodeSend builds the transmit frame for one payload:
//
//	AT+SEND=0,<len>,<payload>\r\n
//
// It is total: every payload yields a well-formed frame with <len> equal
// to the payload's byte length. Command validation happens upstream in
// the confirmation gate, never here.
func EncodeSend(payload string) []byte {
	return []byte(fmt.Sprintf("AT+SEND=%d,%d,%s%s", BroadcastAddr, len(payload), payload, CRLF))
}

// Decode classifies one raw line read from the module. It never fails:
// invalid UTF-8 is replaced rune by rune, unexpected shapes come back as
// KindMalformed or KindResponse, and no input panics or errors.
func Decode(raw []byte) Event {
	if len(raw) == 0 {
		return Event{Kind: KindEmpty}
	}

	// Bad bytes are substituted, never fatal for the whole line.
	line := strings.ToValidUTF8(string(raw), "�")
	line = strings.TrimRight(line, CRLF)

	if strings.HasPrefix(line, RecvPrefix) {
		if strings.Count(line, ",") != recvFields-1 {
			return Event{Kind: KindMalformed, Text: line}
		}
		// Bounded split: RSSI and SNR trail the payload, so an
		// unbounded split would corrupt a payload containing commas.
		fields := strings.SplitN(line, ",", recvFields)
		return Event{
			Kind: KindPayload,
			Text: fields[2],
			Addr: lenientInt(strings.TrimPrefix(fields[0], RecvPrefix)),
			RSSI: lenientInt(fields[3]),
			SNR:  lenientInt(fields[4]),
		}
	}

	if line != "" {
		return Event{Kind: KindResponse, Text: line}
	}
	return Event{Kind: KindEmpty}
}

// MatchesOK reports whether a response line acknowledges a transmit
// request under the given matching profile.
func MatchesOK(line string, m AckMatch) bool {
	line = strings.TrimSpace(line)
	if m == AckSubstring {
		return strings.Contains(line, "OK")
	}
	return line == OK
}

func lenientInt(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
