// Package session records sentinel-delimited spans of a line stream into
// timestamped CSV files.
//
// Invariants:
// - A line equal to the begin sentinel opens a fresh file, replacing any
//   file already open; a line equal to the end sentinel closes it.
// - Only non-sentinel lines seen while a file is open are written, in
//   order, each followed by exactly one LF.
// - Every line, sentinel or not, is forwarded to the mirror afterwards.
// - Directory creation, file creation and append failures are returned;
//   mirror failures never are.
//
// Usage:
//
//	rec, _ := session.New(session.Config{Root: "/data/capture", Begin: "BEGIN", End: "END"})
//	defer rec.Close()
//	_ = rec.OnLine("BEGIN")
//	_ = rec.OnLine("1,2,3")
//	_ = rec.OnLine("END")
package session
