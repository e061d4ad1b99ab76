package api

import (
	"context"
	"log/slog"
	"strings"
)

// buildLoggers maps the OnLog callback contract onto slog. The info logger
// emits per-step summaries; the debug logger emits per-node traces and is a
// no-op unless debug logging is on.
func buildLoggers(onLog func(level, message string), debugEnabled bool) (*slog.Logger, *slog.Logger) {
	if onLog == nil {
		log := slog.Default()
		if debugEnabled {
			return log, log
		}
		return log, slog.New(discardHandler{})
	}
	log := slog.New(&callbackHandler{cb: onLog, level: slog.LevelInfo})
	if !debugEnabled {
		return log, slog.New(discardHandler{})
	}
	return log, slog.New(&callbackHandler{cb: onLog, level: slog.LevelDebug})
}

// callbackHandler forwards records to a host callback as (level, message)
// pairs, with attributes folded into the message text.
type callbackHandler struct {
	cb    func(level, message string)
	level slog.Level
	attrs []slog.Attr
}

func (h *callbackHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level
}

func (h *callbackHandler) Handle(_ context.Context, record slog.Record) error {
	var b strings.Builder
	b.WriteString(record.Message)
	emit := func(a slog.Attr) {
		b.WriteString(" ")
		b.WriteString(a.Key)
		b.WriteString("=")
		b.WriteString(a.Value.String())
	}
	for _, a := range h.attrs {
		emit(a)
	}
	record.Attrs(func(a slog.Attr) bool {
		emit(a)
		return true
	})
	h.cb(levelName(record.Level), b.String())
	return nil
}

func (h *callbackHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	merged := make([]slog.Attr, 0, len(h.attrs)+len(attrs))
	merged = append(merged, h.attrs...)
	merged = append(merged, attrs...)
	return &callbackHandler{cb: h.cb, level: h.level, attrs: merged}
}

func (h *callbackHandler) WithGroup(string) slog.Handler { return h }

func levelName(level slog.Level) string {
	if level <= slog.LevelDebug {
		return "debug"
	}
	return "info"
}

// discardHandler drops everything; it backs the debug logger when debug
// logging is off.
type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (discardHandler) WithAttrs([]slog.Attr) slog.Handler        { return discardHandler{} }
func (discardHandler) WithGroup(string) slog.Handler             { return discardHandler{} }
