// Package logtail reads the end of the pandals log file for the in-app log
// view.
//
// # Reading
//
// Read keeps a ring buffer of maxLines entries while scanning the file once,
// so memory stays bounded by the number of lines kept rather than the file
// size. Lines come back oldest first.
//
//	lines, err := logtail.Read("~/.local/state/pandals/pandals.log", 500)
//
// A missing file is not an error: the log may simply not exist yet.
//
// # Parsing
//
// Parse splits one line written by the zap console encoder that
// internal/logging configures:
//
//	2026-10-18T19:02:11.512+0530	WARN	state	state/pandals.go:88	load pandals failed	{"error": "boom"}
//
// The logger name column only appears for named loggers; Parse recognizes the
// caller column by its file:line shape. Continuation lines such as stack traces
// are returned with only Message set. Colors are the UI's concern.
package logtail
