package logger

import (
	"context"
	"log/slog"
	"runtime"
)

// sourceByLevelHandler decorates a handler so that source location is only
// attached for selected levels. The wrapped handler must be built with
// AddSource: false; this wrapper injects the attribute itself.
type sourceByLevelHandler struct {
	handler      slog.Handler
	sourceLevels map[slog.Level]bool
}

// NewSourceByLevelHandler returns a handler that adds source location only
// for the given levels. Keeps info-level logs compact in production while
// warn/error stay traceable.
func NewSourceByLevelHandler(handler slog.Handler, levels ...slog.Level) slog.Handler {
	m := make(map[slog.Level]bool, len(levels))
	for _, l := range levels {
		m[l] = true
	}
	return &sourceByLevelHandler{handler: handler, sourceLevels: m}
}

func (h *sourceByLevelHandler) Handle(ctx context.Context, r slog.Record) error {
	if h.sourceLevels[r.Level] {
		// Skip this frame plus the slog internal frame.
		var pcs [1]uintptr
		runtime.Callers(3, pcs[:])
		frames := runtime.CallersFrames(pcs[:])
		f, _ := frames.Next()

		r.AddAttrs(slog.Attr{
			Key: slog.SourceKey,
			Value: slog.AnyValue(&slog.Source{
				Function: f.Function,
				File:     f.File,
				Line:     f.Line,
			}),
		})
	}
	return h.handler.Handle(ctx, r)
}

func (h *sourceByLevelHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &sourceByLevelHandler{handler: h.handler.WithAttrs(attrs), sourceLevels: h.sourceLevels}
}

func (h *sourceByLevelHandler) WithGroup(name string) slog.Handler {
	return &sourceByLevelHandler{handler: h.handler.WithGroup(name), sourceLevels: h.sourceLevels}
}

func (h *sourceByLevelHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}
