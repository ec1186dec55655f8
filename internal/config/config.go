package config

import (
	"encoding/json"
	"fmt"
	"time"
)

// Config represents the seriallog configuration
type Config struct {
	// Serial device
	Serial SerialConfig `json:"serial" mapstructure:"serial"`

	// Capture output
	Output OutputConfig `json:"output" mapstructure:"output"`

	// Session markers
	Sentinel SentinelConfig `json:"sentinel" mapstructure:"sentinel"`

	// Live mirror
	Mirror MirrorConfig `json:"mirror" mapstructure:"mirror"`

	// Logging
	Logging LoggingConfig `json:"logging" mapstructure:"logging"`

	// Metrics
	Metrics MetricsConfig `json:"metrics" mapstructure:"metrics"`

	// Echo every captured line to stdout
	Echo bool `json:"echo" mapstructure:"echo"`
}

// SerialConfig holds serial port settings
type SerialConfig struct {
	Port        string        `json:"port" mapstructure:"port"`
	Baud        int           `json:"baud" mapstructure:"baud"`
	ReadTimeout time.Duration `json:"read_timeout" mapstructure:"read_timeout"`
	BufferSize  int           `json:"buffer_size" mapstructure:"buffer_size"`
}

// OutputConfig holds capture file settings
type OutputConfig struct {
	Dir string `json:"dir" mapstructure:"dir"`
}

// SentinelConfig holds the lines that start and stop a capture session
type SentinelConfig struct {
	Begin string `json:"begin" mapstructure:"begin"`
	End   string `json:"end" mapstructure:"end"`
}

// MirrorConfig holds websocket mirror settings
type MirrorConfig struct {
	Enabled          bool          `json:"enabled" mapstructure:"enabled"`
	URL              string        `json:"url" mapstructure:"url"`
	HandshakeTimeout time.Duration `json:"handshake_timeout" mapstructure:"handshake_timeout"`
	WriteTimeout     time.Duration `json:"write_timeout" mapstructure:"write_timeout"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string `json:"level" mapstructure:"level"`
	File     string `json:"file" mapstructure:"file"`
	Pretty   bool   `json:"pretty" mapstructure:"pretty"`
	MaxSize  int    `json:"max_size" mapstructure:"max_size"` // MB
	MaxAge   int    `json:"max_age" mapstructure:"max_age"`   // days
	Compress bool   `json:"compress" mapstructure:"compress"`
}

// MetricsConfig holds the Prometheus endpoint settings
type MetricsConfig struct {
	Addr string `json:"addr" mapstructure:"addr"` // empty disables the endpoint
}

// DefaultConfig returns a config with default values. The serial port, baud
// rate, output directory and sentinels have no defaults.
func DefaultConfig() *Config {
	return &Config{
		Serial: SerialConfig{
			ReadTimeout: 10 * time.Millisecond,
			BufferSize:  1024,
		},
		Mirror: MirrorConfig{
			Enabled:          true,
			URL:              "ws://localhost:5000/rx",
			HandshakeTimeout: 5 * time.Second,
			WriteTimeout:     time.Second,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Pretty:   true,
			MaxSize:  100,
			MaxAge:   7,
			Compress: true,
		},
		Echo: true,
	}
}

// String returns a JSON representation of the config
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Serial.Port == "" {
		return fmt.Errorf("serial port is required")
	}
	if c.Serial.Baud <= 0 {
		return fmt.Errorf("baud rate is required and must be positive")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output directory is required")
	}
	if c.Sentinel.Begin == "" {
		return fmt.Errorf("begin sentinel is required")
	}
	if c.Sentinel.End == "" {
		return fmt.Errorf("end sentinel is required")
	}
	if c.Sentinel.Begin == c.Sentinel.End {
		return fmt.Errorf("begin and end sentinels must differ (both %q)", c.Sentinel.Begin)
	}

	if errs := NewValidator().ValidateConfig(c); len(errs) > 0 {
		return errs[0]
	}

	return nil
}
