package daemon

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/harun/seriallog/internal/config"
	"github.com/harun/seriallog/internal/logger"
	"github.com/harun/seriallog/internal/metrics"
	"github.com/harun/seriallog/pkg/linebuf"
	"github.com/harun/seriallog/pkg/mirror"
	"github.com/harun/seriallog/pkg/serialport"
	"github.com/harun/seriallog/pkg/session"
	"github.com/spf13/afero"
)

// Daemon wires the serial port, line reassembler, session recorder and
// mirror together and drives the capture loop.
type Daemon struct {
	config  *config.Config
	logger  *logger.Logger
	metrics *metrics.Metrics

	// Capture pipeline
	source      linebuf.Source
	reassembler *linebuf.Reassembler
	recorder    *session.Recorder
	mirror      mirror.Sink

	// Internal
	eventLoop     *EventLoop
	metricsServer *http.Server
	closers       []io.Closer

	startTime time.Time
	running   bool
	mu        sync.RWMutex
}

type options struct {
	source  linebuf.Source
	mirror  mirror.Sink
	fs      afero.Fs
	clock   func() time.Time
	echo    io.Writer
	metrics *metrics.Metrics
}

// Option overrides a collaborator the daemon would otherwise build itself
type Option func(*options)

// WithSource replaces the serial port
func WithSource(src linebuf.Source) Option {
	return func(o *options) { o.source = src }
}

// WithMirror replaces the websocket mirror
func WithMirror(sink mirror.Sink) Option {
	return func(o *options) { o.mirror = sink }
}

// WithFs replaces the OS filesystem
func WithFs(fs afero.Fs) Option {
	return func(o *options) { o.fs = fs }
}

// WithClock replaces time.Now for capture file naming
func WithClock(clock func() time.Time) Option {
	return func(o *options) { o.clock = clock }
}

// WithEcho sets where every captured line is echoed
func WithEcho(w io.Writer) Option {
	return func(o *options) { o.echo = w }
}

// WithMetrics sets the metrics registry
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// New creates a new daemon instance. It opens the serial port and connects
// the mirror unless they are supplied as options.
func New(ctx context.Context, cfg *config.Config, log *logger.Logger, opts ...Option) (*Daemon, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.metrics == nil {
		o.metrics = metrics.NewMetrics()
	}

	d := &Daemon{
		config:  cfg,
		logger:  log,
		metrics: o.metrics,
	}

	// Byte source
	d.source = o.source
	if d.source == nil {
		port, err := serialport.Open(serialport.Config{
			Name:        cfg.Serial.Port,
			Baud:        cfg.Serial.Baud,
			ReadTimeout: cfg.Serial.ReadTimeout,
		})
		if err != nil {
			return nil, err
		}
		d.source = port
		d.closers = append(d.closers, port)
		log.Info().
			Str("port", cfg.Serial.Port).
			Int("baud", cfg.Serial.Baud).
			Dur("read_timeout", cfg.Serial.ReadTimeout).
			Msg("Serial port opened")
	}

	// Mirror sink
	d.mirror = o.mirror
	if d.mirror == nil {
		d.mirror = d.connectMirror(ctx)
	}

	recorder, err := session.New(session.Config{
		Root:    cfg.Output.Dir,
		Begin:   cfg.Sentinel.Begin,
		End:     cfg.Sentinel.End,
		Fs:      o.fs,
		Mirror:  d.mirror,
		Clock:   o.clock,
		Logger:  log.Component("session"),
		Metrics: d.metrics,
		Echo:    o.echo,
	})
	if err != nil {
		d.closeAll()
		return nil, fmt.Errorf("failed to create session recorder: %w", err)
	}
	d.recorder = recorder

	d.reassembler = linebuf.New(linebuf.WithBufferSize(cfg.Serial.BufferSize))
	d.eventLoop = NewEventLoop(d)

	return d, nil
}

// connectMirror dials the configured subscriber. A subscriber that cannot be
// reached does not prevent capture; lines are then simply not mirrored.
func (d *Daemon) connectMirror(ctx context.Context) mirror.Sink {
	if !d.config.Mirror.Enabled {
		d.logger.Info().Msg("Mirror disabled")
		return mirror.Nop{}
	}

	client, err := mirror.Dial(ctx, mirror.Config{
		URL:              d.config.Mirror.URL,
		HandshakeTimeout: d.config.Mirror.HandshakeTimeout,
		WriteTimeout:     d.config.Mirror.WriteTimeout,
		Logger:           d.logger.Component("mirror"),
	})
	if err != nil {
		d.logger.Warn().
			Err(err).
			Str("url", d.config.Mirror.URL).
			Msg("Mirror unavailable, continuing without it")
		return mirror.Nop{}
	}

	d.closers = append(d.closers, client)
	return client
}

// Run captures until ctx is cancelled or a capture file operation fails.
// The open capture file and all connections are closed before returning.
func (d *Daemon) Run(ctx context.Context) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return fmt.Errorf("daemon is already running")
	}
	d.running = true
	d.startTime = time.Now()
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.running = false
		d.mu.Unlock()
	}()

	d.logger.Info().
		Str("output", d.config.Output.Dir).
		Str("begin", d.config.Sentinel.Begin).
		Str("end", d.config.Sentinel.End).
		Msg("Starting capture")

	if d.config.Metrics.Addr != "" {
		d.startMetricsServer(d.config.Metrics.Addr)
	}

	runErr := d.eventLoop.Run(ctx)

	if err := d.shutdown(); err != nil && runErr == nil {
		runErr = err
	}

	if runErr != nil {
		d.logger.Error().Err(runErr).Msg("Capture stopped")
		return runErr
	}

	d.logger.Info().Msg("Capture stopped")
	return nil
}

// startMetricsServer exposes /metrics and /healthz on addr
func (d *Daemon) startMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", d.metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	d.metricsServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := d.metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			d.logger.Error().Err(err).Str("addr", addr).Msg("Metrics server failed")
		}
	}()

	d.logger.Info().Str("addr", addr).Msg("Metrics server started")
}

// shutdown closes the capture file, the metrics server and every connection
func (d *Daemon) shutdown() error {
	var errs []error

	if err := d.recorder.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close capture file: %w", err))
	}

	if d.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if err := d.metricsServer.Shutdown(ctx); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to stop metrics server")
		}
		cancel()
		d.metricsServer = nil
	}

	d.closeAll()

	return errors.Join(errs...)
}

func (d *Daemon) closeAll() {
	for i := len(d.closers) - 1; i >= 0; i-- {
		if err := d.closers[i].Close(); err != nil {
			d.logger.Warn().Err(err).Msg("Failed to close resource")
		}
	}
	d.closers = nil
}

// Status returns the daemon status
func (d *Daemon) Status() Status {
	d.mu.RLock()
	defer d.mu.RUnlock()

	status := Status{
		Running: d.running,
	}

	if d.running {
		status.Uptime = time.Since(d.startTime)
		status.StartTime = d.startTime
	}

	return status
}

// Status describes the daemon state
type Status struct {
	Running   bool          `json:"running"`
	Uptime    time.Duration `json:"uptime"`
	StartTime time.Time     `json:"start_time"`
}

// GetConfig returns the daemon configuration
func (d *Daemon) GetConfig() *config.Config {
	return d.config
}

// GetRecorder returns the session recorder
func (d *Daemon) GetRecorder() *session.Recorder {
	return d.recorder
}

// GetMetrics returns the metrics registry
func (d *Daemon) GetMetrics() *metrics.Metrics {
	return d.metrics
}
