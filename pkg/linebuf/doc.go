// Package linebuf reassembles an arbitrarily fragmented byte stream into
// newline-delimited text lines.
//
// Invariants:
// - Carriage returns and NUL bytes are dropped wherever they appear.
// - Every LF completes exactly one line, including empty ones.
// - A partial line is carried across reads until its LF arrives; silence
//   never produces a line.
// - Each byte is one character with the same code point (Latin-1 style).
//
// Usage:
//
//	r := linebuf.New()
//	for {
//		if err := r.ReadFrom(port, handler); err != nil {
//			return err
//		}
//	}
package linebuf
