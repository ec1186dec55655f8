package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validator validates configuration values
type Validator struct{}

// NewValidator creates a new validator
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateSentinel validates a session marker line
func (v *Validator) ValidateSentinel(name, sentinel string) error {
	if sentinel == "" {
		return fmt.Errorf("%s sentinel cannot be empty", name)
	}

	// Lines never contain these bytes, so such a sentinel could never match
	if strings.ContainsAny(sentinel, "\r\n\x00") {
		return fmt.Errorf("%s sentinel cannot contain CR, LF or NUL", name)
	}

	return nil
}

// ValidateBaud validates a baud rate
func (v *Validator) ValidateBaud(baud int) error {
	if baud <= 0 {
		return fmt.Errorf("baud rate must be positive, got %d", baud)
	}
	if baud > 4000000 {
		return fmt.Errorf("baud rate too large (max 4000000), got %d", baud)
	}
	return nil
}

// ValidateReadTimeout validates the serial read timeout
func (v *Validator) ValidateReadTimeout(timeout time.Duration) error {
	if timeout <= 0 {
		return fmt.Errorf("serial read timeout must be positive, got %s", timeout)
	}
	return nil
}

// ValidateBufferSize validates the read buffer capacity
func (v *Validator) ValidateBufferSize(size int) error {
	if size <= 0 {
		return fmt.Errorf("serial buffer size must be positive, got %d", size)
	}
	return nil
}

// ValidateMirrorURL validates a websocket endpoint
func (v *Validator) ValidateMirrorURL(raw string) error {
	if raw == "" {
		return fmt.Errorf("mirror URL cannot be empty when mirroring is enabled")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid mirror URL: %w", err)
	}
	if u.Scheme != "ws" && u.Scheme != "wss" {
		return fmt.Errorf("invalid mirror URL scheme %q (must be ws or wss)", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("mirror URL has no host: %s", raw)
	}

	return nil
}

// ValidateLogLevel validates log level
func (v *Validator) ValidateLogLevel(level string) error {
	validLevels := []string{"debug", "info", "warn", "error"}
	for _, valid := range validLevels {
		if level == valid {
			return nil
		}
	}
	return fmt.Errorf("invalid log level: %s (must be one of: %s)", level, strings.Join(validLevels, ", "))
}

// ValidateConfig performs comprehensive validation
func (v *Validator) ValidateConfig(cfg *Config) []error {
	var errors []error

	// Validate serial settings
	if err := v.ValidateBaud(cfg.Serial.Baud); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateReadTimeout(cfg.Serial.ReadTimeout); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateBufferSize(cfg.Serial.BufferSize); err != nil {
		errors = append(errors, err)
	}

	// Validate sentinels
	if err := v.ValidateSentinel("begin", cfg.Sentinel.Begin); err != nil {
		errors = append(errors, err)
	}
	if err := v.ValidateSentinel("end", cfg.Sentinel.End); err != nil {
		errors = append(errors, err)
	}

	// Validate mirror
	if cfg.Mirror.Enabled {
		if err := v.ValidateMirrorURL(cfg.Mirror.URL); err != nil {
			errors = append(errors, err)
		}
		if cfg.Mirror.WriteTimeout < 0 {
			errors = append(errors, fmt.Errorf("mirror write_timeout must be >= 0"))
		}
		if cfg.Mirror.HandshakeTimeout < 0 {
			errors = append(errors, fmt.Errorf("mirror handshake_timeout must be >= 0"))
		}
	}

	// Validate logging
	if err := v.ValidateLogLevel(cfg.Logging.Level); err != nil {
		errors = append(errors, err)
	}
	if cfg.Logging.MaxSize < 0 {
		errors = append(errors, fmt.Errorf("logging max_size must be >= 0"))
	}

	return errors
}
