package config

import (
	"io"
	"log/slog"
	"os"

	"github.com/m-mizutani/goerr/v2"
	"github.com/stenolab/steno/pkg/utils/logging"
	"github.com/urfave/cli/v3"
)

// Logger holds CLI flags for logger configuration
type Logger struct {
	level  string
	format string
	output string
}

// Flags returns CLI flags for logger configuration
func (l *Logger) Flags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level (debug, info, warn, error)",
			Value:       "info",
			Sources:     cli.EnvVars("STENO_LOG_LEVEL"),
			Destination: &l.level,
		},
		&cli.StringFlag{
			Name:        "log-format",
			Usage:       "Log format (console or json)",
			Value:       "console",
			Sources:     cli.EnvVars("STENO_LOG_FORMAT"),
			Destination: &l.format,
		},
		&cli.StringFlag{
			Name:        "log-output",
			Usage:       "Log output destination (stdout, stderr or a file path)",
			Value:       "stdout",
			Sources:     cli.EnvVars("STENO_LOG_OUTPUT"),
			Destination: &l.output,
		},
	}
}

// Configure builds the process-wide logger from the flags and installs
// it via logging.SetDefault. The returned closer releases the output
// file when one was opened.
func (l *Logger) Configure() (func(), error) {
	level, err := logging.ParseLevel(l.level)
	if err != nil {
		return nil, err
	}

	format, err := logging.ParseFormat(l.format)
	if err != nil {
		return nil, err
	}

	var w io.Writer
	closer := func() {}
	switch l.output {
	case "stdout", "":
		w = os.Stdout
	case "stderr":
		w = os.Stderr
	default:
		f, err := os.OpenFile(l.output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to open log output file", goerr.V("path", l.output))
		}
		w = f
		closer = func() {
			_ = f.Close()
		}
	}

	logging.SetDefault(logging.New(w, level, format))
	return closer, nil
}

// LogValue returns the logger configuration as structured log attributes
func (l *Logger) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("level", l.level),
		slog.String("format", l.format),
		slog.String("output", l.output),
	)
}
