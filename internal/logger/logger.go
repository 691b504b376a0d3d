package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// LogFormat represents the format of the log output.
type LogFormat string

const (
	// LogFormatJSON represents the JSON log format.
	LogFormatJSON LogFormat = "json"

	// LogFormatText represents the text log format.
	LogFormatText LogFormat = "text"
)

type logger struct {
	level     *slog.LevelVar
	format    LogFormat
	addSource bool
	output    io.Writer
}

// NewLogger creates a new logger.
func NewLogger(opts ...Option) *slog.Logger {
	logg := &logger{
		level:  &slog.LevelVar{}, // Default log level is INFO.
		format: LogFormatJSON,
		output: os.Stdout,
	}

	for _, opt := range opts {
		opt(logg)
	}

	slogOpts := &slog.HandlerOptions{
		AddSource: logg.addSource,
		Level:     logg.level,
	}

	var logHandler slog.Handler = slog.NewJSONHandler(logg.output, slogOpts)
	if logg.format == LogFormatText {
		logHandler = slog.NewTextHandler(logg.output, slogOpts)
	}

	return slog.New(logHandler)
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type Option func(l *logger)

func WithLevel(level slog.Level) Option {
	return func(l *logger) {
		l.level.Set(level)
	}
}

func WithFormat(format LogFormat) Option {
	return func(l *logger) {
		l.format = format
	}
}

func WithAddSource(addSource bool) Option {
	return func(l *logger) {
		l.addSource = addSource
	}
}

func WithOutput(w io.Writer) Option {
	return func(l *logger) {
		l.output = w
	}
}

func ParseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level: %s", level)
	}
}

func ParseLogFormat(format string) (LogFormat, error) {
	switch LogFormat(strings.ToLower(format)) {
	case LogFormatJSON:
		return LogFormatJSON, nil
	case LogFormatText:
		return LogFormatText, nil
	default:
		return "", fmt.Errorf("unknown log format: %s", format)
	}
}
