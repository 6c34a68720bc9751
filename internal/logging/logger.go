package logging

import (
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"
)

// Logger is the application-wide structured logger instance.
var Logger = slog.Default()

type Options struct {
	Level     string
	Format    string
	File      string
	MaxSizeMB int
	MaxAge    time.Duration
}

// maxLogBackups is how many rotated diagnostics files are kept.
const maxLogBackups = 5

var fileSink *AsyncWriter

// Init configures the global logger. Console output is always enabled; the diagnostics
// file is best effort and its failure only downgrades logging to stdout.
func Init(opts Options) {
	var out io.Writer = os.Stdout

	if opts.File != "" {
		rotation := NewLogRotation(clockwork.NewRealClock(), int64(opts.MaxSizeMB)<<20, opts.MaxAge, maxLogBackups)
		w, err := NewAsyncWriter(opts.File, 10000, rotation)
		if err != nil {
			build(opts, out).Warn("Diagnostics file unavailable, logging to stdout only", "file", opts.File, "error", err)
		} else {
			fileSink = w
			out = io.MultiWriter(os.Stdout, w)
		}
	}

	Logger = build(opts, out)
	slog.SetDefault(Logger)
}

func build(opts Options, out io.Writer) *slog.Logger {
	handlerOpts := &slog.HandlerOptions{Level: ParseLevel(opts.Level)}

	var handler slog.Handler
	if opts.Format == "json" {
		handler = slog.NewJSONHandler(out, handlerOpts)
	} else {
		handler = slog.NewTextHandler(out, handlerOpts)
	}
	return slog.New(handler)
}

func ParseLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Close drains and closes the diagnostics file, if one is open.
func Close() error {
	if fileSink == nil {
		return nil
	}
	err := fileSink.Close()
	fileSink = nil
	return err
}

// WithMember returns a logger with member_id field.
func WithMember(memberID string) *slog.Logger {
	return Logger.With("member_id", memberID)
}
