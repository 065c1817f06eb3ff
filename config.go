package main

import (
	"flag"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/link"
	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// Config holds the application configuration
type Config struct {
	// SerialPort is the path to the radio module's serial port
	// (e.g. "/dev/ttyUSB0"). Empty triggers interactive selection.
	SerialPort string `env:"GS_SERIAL_PORT"`
	// BaudRate is the UART rate to the RYLR module (factory 9600)
	BaudRate int `env:"GS_BAUD_RATE"`
	// LogLevel sets the logging level (e.g. "debug", "info", "warn", "error")
	LogLevel string `env:"GS_LOG_LEVEL"`
	// InitialState is the first FireSide state to command (SAFE or
	// CONVERT). Empty prompts the operator.
	InitialState string `env:"GS_INITIAL_STATE"`
	// ChallengeLen is the OTP digit count (4 or 6 per deployment profile)
	ChallengeLen int `env:"GS_CHALLENGE_LEN"`
	// AckProfile selects acknowledgement matching: "exact" or "substring"
	AckProfile string `env:"GS_ACK_PROFILE"`
	// FailurePolicy selects the transmit failure strategy: "report" or "retry"
	FailurePolicy string `env:"GS_FAILURE_POLICY"`
	// InputMode selects operator input handling: "keys" or "line"
	InputMode string `env:"GS_INPUT_MODE"`
	// TickInterval is the multiplexer's cooperative scheduling period
	TickInterval time.Duration `env:"GS_TICK_INTERVAL"`
	// HandshakeTimeout bounds the wait for first telemetry after the
	// initial state command
	HandshakeTimeout time.Duration `env:"GS_HANDSHAKE_TIMEOUT"`
	// AckTimeout bounds the wait for one transmit acknowledgement
	AckTimeout time.Duration `env:"GS_ACK_TIMEOUT"`
}

// ConfigOption is a function that modifies a Config
type ConfigOption func(*Config) error

// LoadConfig creates a new config by applying the given options in order
func LoadConfig(opts ...ConfigOption) (*Config, error) {
	config := &Config{}

	for _, opt := range opts {
		if err := opt(config); err != nil {
			return nil, err
		}
	}

	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// WithDefaults applies default configuration values
func WithDefaults() ConfigOption {
	return func(c *Config) error {
		c.BaudRate = link.DefaultBaudRate
		c.LogLevel = "info"
		c.ChallengeLen = 4
		c.AckProfile = "exact"
		c.FailurePolicy = "report"
		c.InputMode = "keys"
		c.TickInterval = 10 * time.Millisecond
		c.HandshakeTimeout = 30 * time.Second
		c.AckTimeout = 5 * time.Second
		return nil
	}
}

// WithEnv loads configuration from GS_* environment variables
func WithEnv() ConfigOption {
	return func(c *Config) error {
		if err := env.Parse(c); err != nil {
			return fmt.Errorf("parse environment: %w", err)
		}
		return nil
	}
}

// WithFlags loads configuration from command-line flags
func WithFlags(fSet *flag.FlagSet) ConfigOption {
	return func(c *Config) error {
		fSet.Visit(func(f *flag.Flag) {
			switch f.Name {
			case "serial-port":
				c.SerialPort = f.Value.String()
			case "baud-rate":
				if b, convErr := strconv.Atoi(f.Value.String()); convErr == nil {
					c.BaudRate = b
				}
			case "log-level":
				c.LogLevel = f.Value.String()
			case "initial-state":
				c.InitialState = f.Value.String()
			case "challenge-len":
				if n, convErr := strconv.Atoi(f.Value.String()); convErr == nil {
					c.ChallengeLen = n
				}
			case "ack-profile":
				c.AckProfile = f.Value.String()
			case "failure-policy":
				c.FailurePolicy = f.Value.String()
			case "input-mode":
				c.InputMode = f.Value.String()
			case "tick-interval":
				if d, convErr := time.ParseDuration(f.Value.String()); convErr == nil {
					c.TickInterval = d
				}
			}
		})
		return nil
	}
}

func (c *Config) validate() error {
	if c.ChallengeLen != 4 && c.ChallengeLen != 6 {
		return fmt.Errorf("challenge length must be 4 or 6, got %d", c.ChallengeLen)
	}
	if _, err := c.ackMatch(); err != nil {
		return err
	}
	if _, err := c.failurePolicy(); err != nil {
		return err
	}
	switch c.InputMode {
	case "keys", "line":
	default:
		return fmt.Errorf("unknown input mode %q (keys, line)", c.InputMode)
	}
	if c.TickInterval <= 0 {
		return fmt.Errorf("tick interval must be positive, got %v", c.TickInterval)
	}
	return nil
}

func (c *Config) ackMatch() (rylr.AckMatch, error) {
	switch c.AckProfile {
	case "exact":
		return rylr.AckExact, nil
	case "substring":
		return rylr.AckSubstring, nil
	}
	return 0, fmt.Errorf("unknown ack profile %q (exact, substring)", c.AckProfile)
}

func (c *Config) failurePolicy() (link.FailurePolicy, error) {
	switch c.FailurePolicy {
	case "report":
		return link.ReportOnFailure, nil
	case "retry":
		return link.RetryOnFailure, nil
	}
	return 0, fmt.Errorf("unknown failure policy %q (report, retry)", c.FailurePolicy)
}
