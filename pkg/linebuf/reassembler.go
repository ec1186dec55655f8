package linebuf

import (
	"unicode/utf8"
)

// DefaultBufferSize is the read buffer capacity used when none is configured
const DefaultBufferSize = 1024

// Source yields raw byte chunks. A read may return zero bytes on timeout.
type Source interface {
	Read(p []byte) (n int, err error)
}

// Reassembler turns byte chunks into completed lines. It is not safe for
// concurrent use.
type Reassembler struct {
	pending []byte
	buf     []byte
}

// Option configures a Reassembler
type Option func(*Reassembler)

// WithBufferSize sets the read buffer capacity used by ReadFrom
func WithBufferSize(n int) Option {
	return func(r *Reassembler) {
		if n > 0 {
			r.buf = make([]byte, n)
		}
	}
}

// New creates a new Reassembler
func New(opts ...Option) *Reassembler {
	r := &Reassembler{
		pending: make([]byte, 0, DefaultBufferSize),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.buf == nil {
		r.buf = make([]byte, DefaultBufferSize)
	}
	return r
}

// Feed processes a chunk byte by byte, handing every completed line to h
// before looking at the next byte. If h returns an error the rest of the
// chunk is discarded and the error is returned.
func (r *Reassembler) Feed(chunk []byte, h Handler) error {
	for _, b := range chunk {
		switch b {
		case 0, '\r':
			continue
		case '\n':
			line := string(r.pending)
			r.pending = r.pending[:0]
			if err := h.OnLine(line); err != nil {
				return err
			}
		default:
			r.pending = utf8.AppendRune(r.pending, rune(b))
		}
	}
	return nil
}

// ReadFrom performs a single read from src and feeds whatever arrived.
// Read errors are not reported: the bytes returned alongside them are still
// fed and the caller simply reads again. Only handler errors are returned.
func (r *Reassembler) ReadFrom(src Source, h Handler) error {
	n, _ := src.Read(r.buf)
	if n <= 0 {
		return nil
	}
	if n > len(r.buf) {
		n = len(r.buf)
	}
	return r.Feed(r.buf[:n], h)
}

// Pending returns the partial line carried over from previous chunks
func (r *Reassembler) Pending() string {
	return string(r.pending)
}

// BufferSize returns the read buffer capacity
func (r *Reassembler) BufferSize() int {
	return len(r.buf)
}
