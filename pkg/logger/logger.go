package logger

import (
	"log/slog"
	"os"
)

// Log is the process-wide logger. It defaults to slog's default handler so
// packages exercised from tests can log before Init runs.
var Log = slog.Default()

func Init() {
	// JSON handler for production-ready logging
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})
	Log = slog.New(handler)
}
