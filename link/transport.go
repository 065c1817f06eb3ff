package link

import (
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// Transport represents an established, bidirectional byte stream to the
// RYLR radio module.
//
// A Transport is assumed to be already connected and ready for use. It
// provides the low-level I/O primitives required to send AT frames and
// receive module output. Typical implementations include serial ports
// and in-memory fakes used for testing.
type Transport interface {
	io.ReadWriteCloser
}

// Dialer opens a Transport to the radio module.
//
// Dialer abstracts how the connection is created (serial port, emulator,
// test double) and is intended to be used during session establishment
// only. Once a Transport is obtained, the Dialer is no longer needed.
type Dialer interface {
	// Dial creates and returns a connected Transport. It may perform
	// blocking operations and should respect cancellation provided by
	// the context. Dial returns an error if the transport cannot be
	// established.
	Dial(ctx context.Context) (Transport, error)
}

// SerialDialer opens the radio module over a serial port using
// go.bug.st/serial.
type SerialDialer struct {
	// PortName is the device path, e.g. "/dev/ttyUSB0" or "COM3".
	PortName string
	// Mode configures the port. When nil, the RYLR998 UART defaults
	// apply (9600 8N1).
	Mode *serial.Mode
}

// DefaultBaudRate is the RYLR998 factory UART rate.
const DefaultBaudRate = 9600

func (d SerialDialer) Dial(ctx context.Context) (Transport, error) {
	if ctx == nil {
		return nil, fmt.Errorf("link: context is nil")
	}
	if d.PortName == "" {
		return nil, fmt.Errorf("link: serial port name is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mode := d.Mode
	if mode == nil {
		mode = &serial.Mode{BaudRate: DefaultBaudRate}
	}

	port, err := serial.Open(d.PortName, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %q: %w", d.PortName, err)
	}
	return port, nil
}

// ListPorts enumerates the serial devices visible to the process, for
// operator port selection at startup.
func ListPorts() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return ports, nil
}
