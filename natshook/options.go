package natshook

import (
	"log/slog"
	"time"
)

// Config holds the NATS JetStream connection and publishing settings.
type Config struct {
	URL            string        `json:"url"             mapstructure:"url"             yaml:"url"`
	ConnectionName string        `json:"connection_name" mapstructure:"connection_name" yaml:"connection_name"`
	MaxReconnects  int           `json:"max_reconnects"  mapstructure:"max_reconnects"  yaml:"max_reconnects"`
	ReconnectWait  time.Duration `json:"reconnect_wait"  mapstructure:"reconnect_wait"  yaml:"reconnect_wait"`

	// StreamName, when set, is created or updated on connect to capture
	// every subject under SubjectPrefix.
	StreamName    string `json:"stream_name"    mapstructure:"stream_name"    yaml:"stream_name"`
	SubjectPrefix string `json:"subject_prefix" mapstructure:"subject_prefix" yaml:"subject_prefix"`

	// Publish retry policy.
	InitialInterval time.Duration `json:"initial_interval" mapstructure:"initial_interval" yaml:"initial_interval"`
	MaxInterval     time.Duration `json:"max_interval"     mapstructure:"max_interval"     yaml:"max_interval"`
	MaxElapsedTime  time.Duration `json:"max_elapsed_time" mapstructure:"max_elapsed_time" yaml:"max_elapsed_time"`
}

// DefaultConfig returns the defaults used for zero-valued fields.
func DefaultConfig() Config {
	return Config{
		URL:             "nats://127.0.0.1:4222",
		ConnectionName:  "licensing",
		MaxReconnects:   -1,
		ReconnectWait:   2 * time.Second,
		SubjectPrefix:   "licensing.events",
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		MaxElapsedTime:  4 * time.Second,
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.URL == "" {
		c.URL = d.URL
	}
	if c.ConnectionName == "" {
		c.ConnectionName = d.ConnectionName
	}
	if c.MaxReconnects == 0 {
		c.MaxReconnects = d.MaxReconnects
	}
	if c.ReconnectWait == 0 {
		c.ReconnectWait = d.ReconnectWait
	}
	if c.SubjectPrefix == "" {
		c.SubjectPrefix = d.SubjectPrefix
	}
	if c.InitialInterval == 0 {
		c.InitialInterval = d.InitialInterval
	}
	if c.MaxInterval == 0 {
		c.MaxInterval = d.MaxInterval
	}
	if c.MaxElapsedTime == 0 {
		c.MaxElapsedTime = d.MaxElapsedTime
	}
	return c
}

// Option configures an Extension.
type Option func(*Extension)

// WithLogger sets the logger for the extension.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extension) {
		e.logger = logger
	}
}

// WithConfig overrides the publishing settings of an Extension built with
// New. Connection fields are ignored there.
func WithConfig(cfg Config) Option {
	return func(e *Extension) {
		e.cfg = cfg.withDefaults()
	}
}
