// Package serialport opens serial devices as timeout-bounded byte sources.
package serialport

import (
	"errors"
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultReadTimeout bounds a single Read so the capture loop stays responsive
const DefaultReadTimeout = 10 * time.Millisecond

// Config holds serial port settings
type Config struct {
	Name        string
	Baud        int
	ReadTimeout time.Duration
}

// Port is an open serial device
type Port struct {
	name string
	port serial.Port
}

// opener is swapped in tests
var opener = serial.Open

// Open opens the named port at the configured baud rate, 8N1
func Open(cfg Config) (*Port, error) {
	if cfg.Name == "" {
		return nil, errors.New("serial port name is required")
	}
	if cfg.Baud <= 0 {
		return nil, fmt.Errorf("invalid baud rate: %d", cfg.Baud)
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = DefaultReadTimeout
	}

	mode := &serial.Mode{
		BaudRate: cfg.Baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	p, err := opener(cfg.Name, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Name, err)
	}

	if err := p.SetReadTimeout(cfg.ReadTimeout); err != nil {
		p.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", cfg.Name, err)
	}

	return &Port{name: cfg.Name, port: p}, nil
}

// Read reads up to len(b) bytes. It returns 0, nil when the read timeout
// expires without data.
func (p *Port) Read(b []byte) (int, error) {
	return p.port.Read(b)
}

// Name returns the device name the port was opened with
func (p *Port) Name() string {
	return p.name
}

// Close closes the port
func (p *Port) Close() error {
	return p.port.Close()
}

// List returns the serial ports detected on this machine
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	return ports, nil
}
