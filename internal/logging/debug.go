package logging

import (
	"io"
	"log/slog"
	"os"
)

// DebugLogName is the debug log written to the working directory.
const DebugLogName = "avprocessor-debug.log"

// NewDebugLogger returns a logger writing to path, plus a function that closes
// the file. If the file cannot be created the logger discards everything.
func NewDebugLogger(path string) (*slog.Logger, func() error) {
	f, err := os.Create(path)
	if err != nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() error { return nil }
	}

	handler := slog.NewTextHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug})
	return slog.New(handler), f.Close
}
