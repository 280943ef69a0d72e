// Package ctxlog carries the two attributes every dispatch-engine log line
// needs — which backend and which filename a call concerns — from the call
// site down to whatever [slog.Handler] eventually formats the record,
// without threading them through every intermediate function signature.
//
// It is adapted from the shape of the teacher's toolkit/log package (a
// context key holding attributes, read back out by a wrapping
// [slog.Handler]), narrowed to the engine's fixed "backend"/"filename" pair
// instead of an arbitrary key/value argument list.
package ctxlog

import (
	"context"
	"log/slog"
)

type fields struct {
	backend  string
	filename string
}

type ctxKey struct{}

// With attaches backend and filename to ctx. A handler wrapped with
// [WrapHandler] adds them to every record logged through ctx or a context
// derived from it.
func With(ctx context.Context, backend, filename string) context.Context {
	return context.WithValue(ctx, ctxKey{}, fields{backend: backend, filename: filename})
}

// WrapHandler wraps next so records gain the backend/filename fields
// attached to their context via [With], if any.
func WrapHandler(next slog.Handler) slog.Handler {
	return handler{next: next}
}

type handler struct{ next slog.Handler }

var _ slog.Handler = handler{}

func (h handler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h handler) Handle(ctx context.Context, r slog.Record) error {
	if f, ok := ctx.Value(ctxKey{}).(fields); ok {
		r.AddAttrs(slog.String("backend", f.backend), slog.String("filename", f.filename))
	}
	return h.next.Handle(ctx, r)
}

func (h handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return handler{next: h.next.WithAttrs(attrs)}
}

func (h handler) WithGroup(name string) slog.Handler {
	return handler{next: h.next.WithGroup(name)}
}
