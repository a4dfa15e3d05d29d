// Package logging builds the slog loggers used by a capture run. Every
// record is delivered to an ordered list of sinks, such as the console and
// an optional JSON log file.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Sink is one destination for log records.
type Sink struct {
	Writer io.Writer
	// JSON selects the JSON handler instead of the text handler.
	JSON bool
}

// New returns a logger that writes every record at or above level to each sink.
func New(level slog.Level, sinks ...Sink) *slog.Logger {
	if len(sinks) == 0 {
		sinks = []Sink{{Writer: os.Stderr}}
	}

	handlers := make([]slog.Handler, 0, len(sinks))
	for _, sink := range sinks {
		opts := &slog.HandlerOptions{Level: level}
		if sink.JSON {
			opts.ReplaceAttr = func(_ []string, attribute slog.Attr) slog.Attr {
				if attribute.Key == slog.TimeKey {
					attribute.Key = "timestamp"
				}
				return attribute
			}
			handlers = append(handlers, slog.NewJSONHandler(sink.Writer, opts))
			continue
		}
		handlers = append(handlers, slog.NewTextHandler(sink.Writer, opts))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0])
	}
	return slog.New(&fanout{handlers: handlers})
}

// LevelForVerbosity maps the -v count onto a level.
func LevelForVerbosity(verbose int) slog.Level {
	if verbose >= 1 {
		return slog.LevelDebug
	}
	return slog.LevelInfo
}

func ParseLevel(level string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("unsupported log level: %s", level)
	}
}

type fanout struct {
	handlers []slog.Handler
}

func (f *fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f *fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	for _, h := range f.handlers {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f *fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithAttrs(attrs)
	}
	return &fanout{handlers: next}
}

func (f *fanout) WithGroup(name string) slog.Handler {
	next := make([]slog.Handler, len(f.handlers))
	for i, h := range f.handlers {
		next[i] = h.WithGroup(name)
	}
	return &fanout{handlers: next}
}
