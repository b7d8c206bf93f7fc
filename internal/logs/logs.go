package logs

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-isatty"
)

// Options select the handlers the global logger fans out to.
type Options struct {
	Level   slog.Level
	JSON    bool   // force the JSON handler on stderr
	LogFile string // additional JSON log file, empty disables
}

// Configure installs the process-wide slog default: a tint console handler
// on stderr when it is a terminal, JSON otherwise, plus an optional JSON
// file handler. The returned func closes the log file and must be called on
// shutdown.
func Configure(opts Options) (func(), error) {
	handlers := []slog.Handler{consoleHandler(opts)}

	closer := func() {}
	if opts.LogFile != "" {
		f, err := os.OpenFile(opts.LogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, err
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: opts.Level}))
		closer = func() { f.Close() }
	}

	if len(handlers) == 1 {
		slog.SetDefault(slog.New(handlers[0]))
	} else {
		slog.SetDefault(slog.New(fanout(handlers)))
	}

	return closer, nil
}

// ConsoleLogger returns a standalone tint logger on stderr without touching
// the global default. Used by tests and early startup.
func ConsoleLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelDebug,
		TimeFormat: time.Kitchen,
	}))
}

func consoleHandler(opts Options) slog.Handler {
	w := os.Stderr

	if opts.JSON || !isatty.IsTerminal(w.Fd()) {
		return slog.NewJSONHandler(w, &slog.HandlerOptions{Level: opts.Level})
	}

	return tint.NewHandler(w, &tint.Options{
		Level:      opts.Level,
		TimeFormat: time.Kitchen,
	})
}

type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var firstErr error
	for _, h := range f {
		if !h.Enabled(ctx, record.Level) {
			continue
		}
		if err := h.Handle(ctx, record.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}
	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}
	return out
}
