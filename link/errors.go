package link

import "errors"

var (
	// ErrNoDialer is returned when a Session is configured without a
	// Dialer.
	//
	// This indicates a configuration error. A Dialer is required in
	// order to reach the radio module.
	ErrNoDialer = errors.New("no dialer configured")

	// ErrAlreadyClosed is returned when Close is called on a Session
	// that has already been closed.
	ErrAlreadyClosed = errors.New("session already closed")

	// ErrSessionClosed is returned when an operation is attempted on a
	// Session whose transport has gone away.
	ErrSessionClosed = errors.New("session closed")

	// ErrHandshakeTimeout is returned when the remote controller never
	// starts responding after the initial state command.
	ErrHandshakeTimeout = errors.New("no inbound data before handshake deadline")

	// ErrAckTimeout is returned (report profile) or retried (retry
	// profile) when the radio does not acknowledge a transmit request
	// in time.
	ErrAckTimeout = errors.New("no acknowledgement before deadline")
)
