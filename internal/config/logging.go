package config

import (
	"io"
	"log/slog"
	"os"

	slogmulti "github.com/samber/slog-multi"
)

// NewLogger builds the process logger: readable text on stderr plus
// JSON appended to logFile for later inspection. The returned cleanup
// closes the file.
func NewLogger(logFile string, level slog.Level) (*slog.Logger, func() error) {
	noop := func() error { return nil }

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.Warn("log file unavailable, logging to stderr only", "file", logFile, "error", err)
		return dualLogger(os.Stderr, io.Discard, level), noop
	}
	return dualLogger(os.Stderr, file, level), file.Close
}

// dualLogger fans every record out to a text handler and a JSON handler.
func dualLogger(text, structured io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slogmulti.Fanout(
		slog.NewTextHandler(text, &slog.HandlerOptions{Level: level}),
		slog.NewJSONHandler(structured, &slog.HandlerOptions{Level: level}),
	))
}
