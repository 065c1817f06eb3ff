package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"go.bug.st/serial"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/keys"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

func main() {
	flag.String("serial-port", "", "Serial port to the RYLR radio module (empty prompts for selection)")
	flag.Int("baud-rate", link.DefaultBaudRate, "Baud rate for serial communication")
	flag.String("log-level", "info", "Log level (debug, info, warn, error)")
	flag.String("initial-state", "", "Initial FireSide state (SAFE or CONVERT, empty prompts)")
	flag.Int("challenge-len", 4, "OTP digit count for gated commands (4 or 6)")
	flag.String("ack-profile", "exact", "Acknowledgement matching (exact, substring)")
	flag.String("failure-policy", "report", "Transmit failure strategy (report, retry)")
	flag.String("input-mode", "keys", "Operator input mode (keys, line)")
	flag.Duration("tick-interval", 10*time.Millisecond, "Multiplexer tick interval")
	flag.Parse()

	config, err := LoadConfig(WithDefaults(), WithEnv(), WithFlags(flag.CommandLine))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logLevel := slog.LevelInfo
	switch config.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "info":
		logLevel = slog.LevelInfo
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	}

	// Text handler: logs share the operator's terminal.
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	fmt.Println("\n---")
	fmt.Println(" GroundSide: An Interface to the FireSide PCB")
	fmt.Println("---")

	stdin := bufio.NewScanner(os.Stdin)

	portName := config.SerialPort
	if portName == "" {
		portName, err = choosePort(stdin)
		if err != nil {
			logger.Error("No usable serial port", "error", err)
			os.Exit(1)
		}
	}

	ackMatch, err := config.ackMatch()
	if err != nil {
		logger.Error("Invalid acknowledgement profile", "error", err)
		os.Exit(1)
	}
	failurePolicy, err := config.failurePolicy()
	if err != nil {
		logger.Error("Invalid failure policy", "error", err)
		os.Exit(1)
	}

	linkConfig, err := link.NewConfigBuilder().
		WithDialer(link.SerialDialer{
			PortName: portName,
			Mode:     &serial.Mode{BaudRate: config.BaudRate},
		}).
		WithChallengeLen(config.ChallengeLen).
		WithAckMatch(ackMatch).
		WithFailurePolicy(failurePolicy).
		WithAckTimeout(config.AckTimeout).
		WithHandshakeTimeout(config.HandshakeTimeout).
		WithLogger(logger.With("component", "link")).
		Build()
	if err != nil {
		logger.Error("Failed to build link configuration", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Printf("\nStarting Serial on %s\n", portName)
	session, err := link.Establish(ctx, linkConfig)
	if err != nil {
		// Fatal: no retry, the operator restarts with a valid device.
		logger.Error("Failed to establish FireSide link", "error", err)
		os.Exit(1)
	}
	defer session.Close()

	session.OnEvent(func(ev rylr.Event) {
		if text, ok := eventText(ev); ok {
			fmt.Println(text)
		}
	})

	gate := link.NewGate(config.ChallengeLen, func(text string) {
		fmt.Println(text)
	})

	initial := config.InitialState
	if initial == "" {
		fmt.Print("\nChoose Initial State (SAFE || CONVERT): ")
		if stdin.Scan() {
			initial = stdin.Text()
		}
	}

	fmt.Println("\nEstablishing FireSide Link")
	gated := gate.Authorize(initial, func() string {
		if stdin.Scan() {
			return stdin.Text()
		}
		return ""
	})
	if err := session.Handshake(ctx, gated.Effective); err != nil {
		logger.Error("FireSide handshake failed", "error", err)
		os.Exit(1)
	}
	fmt.Println("FireSide Link Acquired")

	fmt.Println("\nStarting RYLR Communication Loop with FireSide")
	fmt.Println("Ctrl+C to Exit Communication Loop")

	if err := run(ctx, config, session, gate); err != nil && ctx.Err() == nil {
		logger.Error("Communication loop failed", "error", err)
		session.Close()
		os.Exit(1)
	}

	if err := session.Close(); err != nil && err != link.ErrAlreadyClosed {
		logger.Error("Failed to close link", "error", err)
	}
}

// run starts the configured input mode and blocks until shutdown.
func run(ctx context.Context, config *Config, session *link.Session, gate *link.Gate) error {
	if config.InputMode == "line" {
		return stripCancel(runLineMode(ctx, session, gate, config.TickInterval))
	}

	reader, err := keys.NewReader()
	if err != nil {
		return err
	}
	defer reader.Close()

	console := &Console{
		Gate:   gate,
		Link:   session,
		Keys:   reader,
		Out:    os.Stdout,
		Events: session.Events(),
		Tick:   config.TickInterval,
	}
	// Raw mode owns the terminal now. Gate output and interleaved
	// telemetry both route through the console's writer.
	gate.SetNotify(func(text string) {
		fmt.Fprint(console.Out, eraseLine, text, "\r\n")
	})
	session.OnEvent(console.display)

	return stripCancel(console.Run(ctx))
}

// stripCancel treats cancellation as the clean shutdown it is.
func stripCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}

// choosePort lists the serial devices and asks the operator to pick
// one, mirroring the startup of the original ground station script.
func choosePort(stdin *bufio.Scanner) (string, error) {
	ports, err := link.ListPorts()
	if err != nil {
		return "", err
	}
	if len(ports) == 0 {
		return "", fmt.Errorf("no serial ports found")
	}

	fmt.Println("\nLoaded Serial Ports:")
	for _, p := range ports {
		fmt.Println("  " + p)
	}

	fmt.Print("\nEnter Serial Port: ")
	if !stdin.Scan() {
		return "", fmt.Errorf("no port selected")
	}
	choice := stdin.Text()
	if !slices.Contains(ports, choice) {
		return "", fmt.Errorf("invalid serial port %q", choice)
	}
	return choice, nil
}
