package session

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/harun/seriallog/internal/metrics"
	"github.com/harun/seriallog/pkg/mirror"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

const (
	// DirLayout names the per-day capture directory
	DirLayout = "2006_01_02"
	// FileLayout names a capture file within its day directory
	FileLayout = "15_04_05"
	// FileExt is appended to every capture file name
	FileExt = ".csv"
)

var (
	ErrMissingRoot     = errors.New("output directory is required")
	ErrMissingSentinel = errors.New("begin and end sentinels are required")
	ErrSentinelClash   = errors.New("begin and end sentinels must differ")
)

// Config holds recorder configuration
type Config struct {
	Root  string
	Begin string
	End   string

	Fs      afero.Fs         // defaults to the OS filesystem
	Mirror  mirror.Sink      // defaults to mirror.Nop
	Clock   func() time.Time // defaults to time.Now
	Logger  zerolog.Logger
	Metrics *metrics.Metrics
	Echo    io.Writer // receives every line when set
}

// Recorder tracks the capture session against sentinel lines and owns the
// currently open capture file. It is not safe for concurrent use.
type Recorder struct {
	root    string
	begin   string
	end     string
	fs      afero.Fs
	mirror  mirror.Sink
	clock   func() time.Time
	logger  zerolog.Logger
	metrics *metrics.Metrics
	echo    io.Writer

	current   afero.File
	path      string
	sessionID string
	openedAt  time.Time
	lines     int
}

// New creates a new Recorder
func New(cfg Config) (*Recorder, error) {
	if cfg.Root == "" {
		return nil, ErrMissingRoot
	}
	if cfg.Begin == "" || cfg.End == "" {
		return nil, ErrMissingSentinel
	}
	if cfg.Begin == cfg.End {
		return nil, fmt.Errorf("%w: %q", ErrSentinelClash, cfg.Begin)
	}
	if cfg.Fs == nil {
		cfg.Fs = afero.NewOsFs()
	}
	if cfg.Mirror == nil {
		cfg.Mirror = mirror.Nop{}
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	return &Recorder{
		root:    cfg.Root,
		begin:   cfg.Begin,
		end:     cfg.End,
		fs:      cfg.Fs,
		mirror:  cfg.Mirror,
		clock:   cfg.Clock,
		logger:  cfg.Logger,
		metrics: cfg.Metrics,
		echo:    cfg.Echo,
	}, nil
}

// OnLine applies one completed line: open, close, append or ignore, then
// mirror the line.
func (r *Recorder) OnLine(line string) error {
	if r.echo != nil {
		_, _ = io.WriteString(r.echo, line+"\n")
	}

	written := false
	switch line {
	case r.begin:
		if err := r.start(); err != nil {
			return err
		}
	case r.end:
		r.stop()
	default:
		if r.current != nil {
			if _, err := r.current.WriteString(line + "\n"); err != nil {
				return fmt.Errorf("failed to append to capture file %s: %w", r.path, err)
			}
			r.lines++
			written = true
		}
	}
	r.metrics.RecordLine(written)

	if err := r.mirror.Send(line); err != nil {
		r.metrics.RecordMirrorFailure()
		r.logger.Debug().Err(err).Msg("Mirror send failed")
	}

	return nil
}

// start opens a fresh capture file named after the current local time
func (r *Recorder) start() error {
	if r.current != nil {
		_ = r.closeCurrent("replaced")
	}

	now := r.clock()
	dir := filepath.Join(r.root, now.Format(DirLayout))
	if err := r.fs.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create capture directory %s: %w", dir, err)
	}

	path := filepath.Join(dir, now.Format(FileLayout)+FileExt)
	file, err := r.fs.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create capture file %s: %w", path, err)
	}

	r.current = file
	r.path = path
	r.sessionID = uuid.NewString()
	r.openedAt = now
	r.lines = 0
	r.metrics.RecordSessionStart()

	r.logger.Info().
		Str("session_id", r.sessionID).
		Str("path", path).
		Msg("Capture session started")

	return nil
}

// stop closes the capture file if one is open
func (r *Recorder) stop() {
	if r.current == nil {
		r.logger.Debug().Msg("End sentinel received outside a session")
		return
	}
	_ = r.closeCurrent("end sentinel")
}

func (r *Recorder) closeCurrent(reason string) error {
	err := r.current.Close()
	if err != nil {
		r.logger.Error().
			Err(err).
			Str("path", r.path).
			Msg("Failed to close capture file")
	}

	r.logger.Info().
		Str("session_id", r.sessionID).
		Str("path", r.path).
		Int("lines", r.lines).
		Dur("duration", r.clock().Sub(r.openedAt)).
		Str("reason", reason).
		Msg("Capture session stopped")

	r.current = nil
	r.path = ""
	r.sessionID = ""
	r.lines = 0
	r.metrics.RecordSessionEnd()

	return err
}

// Close closes the open capture file, if any
func (r *Recorder) Close() error {
	if r.current == nil {
		return nil
	}
	return r.closeCurrent("shutdown")
}

// Active reports whether a capture file is open
func (r *Recorder) Active() bool {
	return r.current != nil
}

// CurrentPath returns the open capture file path, or "" when not logging
func (r *Recorder) CurrentPath() string {
	return r.path
}

// SessionID returns the identifier of the open session, or ""
func (r *Recorder) SessionID() string {
	return r.sessionID
}
