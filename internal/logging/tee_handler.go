package logging

import (
	"context"
	"errors"
	"log/slog"
)

// teeHandler sends each record to the console and to the JSON journal. The
// journal carries its own level so the log file keeps the info-level run
// trail that `logs --run` reads even when the console is set to warn.
type teeHandler struct {
	console slog.Handler
	journal slog.Handler
}

func newTeeHandler(console, journal slog.Handler) slog.Handler {
	switch {
	case console == nil && journal == nil:
		return NoopHandler{}
	case journal == nil:
		return console
	case console == nil:
		return journal
	}
	return &teeHandler{console: console, journal: journal}
}

func (h *teeHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.console.Enabled(ctx, level) || h.journal.Enabled(ctx, level)
}

func (h *teeHandler) Handle(ctx context.Context, record slog.Record) error {
	var errs []error
	if h.journal.Enabled(ctx, record.Level) {
		errs = append(errs, h.journal.Handle(ctx, record.Clone()))
	}
	if h.console.Enabled(ctx, record.Level) {
		errs = append(errs, h.console.Handle(ctx, record))
	}
	return errors.Join(errs...)
}

func (h *teeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &teeHandler{console: h.console.WithAttrs(attrs), journal: h.journal.WithAttrs(attrs)}
}

func (h *teeHandler) WithGroup(name string) slog.Handler {
	return &teeHandler{console: h.console.WithGroup(name), journal: h.journal.WithGroup(name)}
}

// journalLevel never filters more than info.
func journalLevel(console slog.Level) *slog.LevelVar {
	lvl := new(slog.LevelVar)
	lvl.Set(min(console, slog.LevelInfo))
	return lvl
}
