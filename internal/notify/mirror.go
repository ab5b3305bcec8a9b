// internal/notify/mirror.go
package notify

import (
	"context"
	"log/slog"
	"strings"
)

// Sink receives mirrored log lines.
type Sink interface {
	Notify(ctx context.Context, message string)
}

// MirrorHandler writes records to an inner handler and forwards records at
// Info or above to a Sink as "LOG,<message> k=v ...".
type MirrorHandler struct {
	inner slog.Handler
	sink  Sink
}

func NewMirrorHandler(inner slog.Handler, sink Sink) *MirrorHandler {
	return &MirrorHandler{inner: inner, sink: sink}
}

func (h *MirrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *MirrorHandler) Handle(ctx context.Context, r slog.Record) error {
	err := h.inner.Handle(ctx, r)
	if r.Level < slog.LevelInfo || h.sink == nil {
		return err
	}

	var b strings.Builder
	b.WriteString("LOG,")
	b.WriteString(r.Message)
	r.Attrs(func(a slog.Attr) bool {
		b.WriteByte(' ')
		b.WriteString(a.String())
		return true
	})
	h.sink.Notify(ctx, b.String())
	return err
}

func (h *MirrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &MirrorHandler{inner: h.inner.WithAttrs(attrs), sink: h.sink}
}

func (h *MirrorHandler) WithGroup(name string) slog.Handler {
	return &MirrorHandler{inner: h.inner.WithGroup(name), sink: h.sink}
}
