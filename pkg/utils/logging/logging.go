package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/m-mizutani/clog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/masq"
)

// Format is the output format of the logger
type Format int

const (
	FormatConsole Format = iota
	FormatJSON
)

var (
	defaultLogger *slog.Logger
	defaultMutex  sync.RWMutex
)

func init() {
	defaultLogger = New(os.Stdout, slog.LevelInfo, FormatConsole)
}

// Default returns the process-wide logger
func Default() *slog.Logger {
	defaultMutex.RLock()
	defer defaultMutex.RUnlock()
	return defaultLogger
}

// SetDefault replaces the process-wide logger
func SetDefault(logger *slog.Logger) {
	defaultMutex.Lock()
	defer defaultMutex.Unlock()
	defaultLogger = logger
}

// New creates a new logger writing to w. Console format uses clog for
// human-readable output, JSON format uses slog's JSON handler. Both mask
// values tagged with `masq:"secret"` via masq.
func New(w io.Writer, level slog.Level, format Format) *slog.Logger {
	filter := masq.New(masq.WithTag("secret"))

	var handler slog.Handler
	switch format {
	case FormatJSON:
		handler = slog.NewJSONHandler(w, &slog.HandlerOptions{
			Level:       level,
			ReplaceAttr: filter,
		})
	default:
		handler = clog.New(
			clog.WithWriter(w),
			clog.WithLevel(level),
			clog.WithReplaceAttr(filter),
			clog.WithSource(true),
		)
	}

	return slog.New(handler)
}

type ctxLoggerKey struct{}

// With returns a new context carrying the given logger
func With(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, ctxLoggerKey{}, logger)
}

// From extracts the logger from the context, falling back to Default
func From(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(ctxLoggerKey{}).(*slog.Logger); ok {
		return logger
	}
	return Default()
}

// ParseLevel converts a level name to slog.Level
func ParseLevel(s string) (slog.Level, error) {
	switch s {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, goerr.New("unknown log level", goerr.V("level", s))
	}
}

// ParseFormat converts a format name to Format
func ParseFormat(s string) (Format, error) {
	switch s {
	case "console", "":
		return FormatConsole, nil
	case "json":
		return FormatJSON, nil
	default:
		return FormatConsole, goerr.New("unknown log format", goerr.V("format", s))
	}
}
