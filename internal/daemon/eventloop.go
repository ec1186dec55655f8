package daemon

import (
	"context"
	"fmt"

	"github.com/harun/seriallog/internal/metrics"
	"github.com/harun/seriallog/pkg/linebuf"
)

// EventLoop reads from the byte source and feeds the recorder, one chunk at
// a time, on a single goroutine.
type EventLoop struct {
	daemon *Daemon
}

// NewEventLoop creates a new event loop
func NewEventLoop(d *Daemon) *EventLoop {
	return &EventLoop{
		daemon: d,
	}
}

// Run loops until ctx is done or the recorder reports a capture file
// failure. Read timeouts and read errors never stop the loop.
func (e *EventLoop) Run(ctx context.Context) error {
	e.daemon.logger.Info().Msg("Capture loop started")

	src := meteredSource{src: e.daemon.source, metrics: e.daemon.metrics}
	for {
		select {
		case <-ctx.Done():
			e.daemon.logger.Info().Msg("Capture loop stopping")
			return nil
		default:
		}

		if err := e.daemon.reassembler.ReadFrom(src, e.daemon.recorder); err != nil {
			return fmt.Errorf("capture failed: %w", err)
		}
	}
}

// meteredSource counts bytes and errors of every read it forwards
type meteredSource struct {
	src     linebuf.Source
	metrics *metrics.Metrics
}

func (m meteredSource) Read(p []byte) (int, error) {
	n, err := m.src.Read(p)
	m.metrics.RecordRead(n, err)
	return n, err
}
