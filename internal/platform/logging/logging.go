package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/lumberjack"
)

type Options struct {
	Level string
	// File enables a rotated copy of the log stream next to stderr.
	File string
	// Output replaces stderr, mostly for tests.
	Output io.Writer
}

// New builds the process JSON logger and returns a close func for the
// rotated file, which is a no-op when no file is configured.
func New(opts Options) (*slog.Logger, func() error) {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	closeFn := func() error { return nil }
	if path := strings.TrimSpace(opts.File); path != "" {
		file := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
			Compress:   true,
		}
		out = io.MultiWriter(out, file)
		closeFn = file.Close
	}
	handler := slog.NewJSONHandler(out, &slog.HandlerOptions{Level: ParseLevel(opts.Level)})
	return slog.New(handler), closeFn
}

func ParseLevel(raw string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
