package link

import (
	"log/slog"
	"time"

	"github.com/TMIT-Avionics/Research-Motor-Tests-2025/rylr"
)

// FailurePolicy selects how the transmission supervisor reacts to a
// missing or negative acknowledgement.
type FailurePolicy int

const (
	// ReportOnFailure returns the failed outcome to the caller after a
	// single attempt. This is the default.
	ReportOnFailure FailurePolicy = iota
	// RetryOnFailure re-sends the same command until it is
	// acknowledged, MaxAttempts is reached, or the context is
	// cancelled. With MaxAttempts of zero the loop is unbounded and
	// only cancellation stops it.
	RetryOnFailure
)

type Config struct {
	Dialer Dialer

	// ChallengeLen is the digit count of generated one-time codes.
	// Deployment profiles use 4 or 6.
	ChallengeLen int

	// AckMatch selects strict or substring acknowledgement matching.
	AckMatch rylr.AckMatch

	// FailurePolicy names the active acknowledgement failure strategy.
	FailurePolicy FailurePolicy

	// MaxAttempts bounds the total frames RetryOnFailure may write
	// for one command, first try included. Zero means unbounded.
	MaxAttempts int

	// AckTimeout bounds the wait for one acknowledgement line.
	AckTimeout time.Duration

	// HandshakeTimeout bounds the wait for first inbound data after
	// the initial state command.
	HandshakeTimeout time.Duration

	Logger *slog.Logger
}

func (c *Config) validate() error {
	if c.Dialer == nil {
		return ErrNoDialer
	}
	return nil
}

func (c *Config) setDefaults() {
	if c.ChallengeLen == 0 {
		c.ChallengeLen = 4
	}
	if c.AckTimeout == 0 {
		c.AckTimeout = 5 * time.Second
	}
	if c.HandshakeTimeout == 0 {
		c.HandshakeTimeout = 30 * time.Second
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
}

// ConfigBuilder assembles a Config fluently. Build validates the result
// and fills defaults.
type ConfigBuilder struct {
	config Config
}

func NewConfigBuilder() *ConfigBuilder {
	return &ConfigBuilder{}
}

func (b *ConfigBuilder) WithDialer(d Dialer) *ConfigBuilder {
	b.config.Dialer = d
	return b
}

func (b *ConfigBuilder) WithChallengeLen(n int) *ConfigBuilder {
	b.config.ChallengeLen = n
	return b
}

func (b *ConfigBuilder) WithAckMatch(m rylr.AckMatch) *ConfigBuilder {
	b.config.AckMatch = m
	return b
}

func (b *ConfigBuilder) WithFailurePolicy(p FailurePolicy) *ConfigBuilder {
	b.config.FailurePolicy = p
	return b
}

func (b *ConfigBuilder) WithMaxAttempts(n int) *ConfigBuilder {
	b.config.MaxAttempts = n
	return b
}

func (b *ConfigBuilder) WithAckTimeout(d time.Duration) *ConfigBuilder {
	b.config.AckTimeout = d
	return b
}

func (b *ConfigBuilder) WithHandshakeTimeout(d time.Duration) *ConfigBuilder {
	b.config.HandshakeTimeout = d
	return b
}

func (b *ConfigBuilder) WithLogger(l *slog.Logger) *ConfigBuilder {
	b.config.Logger = l
	return b
}

func (b *ConfigBuilder) Build() (Config, error) {
	if err := b.config.validate(); err != nil {
		return Config{}, err
	}
	b.config.setDefaults()
	return b.config, nil
}
