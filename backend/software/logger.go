package software

import (
	"context"
	"log/slog"
)

// nopHandler silently discards all log records.
type nopHandler struct{}

func (nopHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (nopHandler) Handle(context.Context, slog.Record) error { return nil }
func (nopHandler) WithAttrs([]slog.Attr) slog.Handler        { return nopHandler{} }
func (nopHandler) WithGroup(string) slog.Handler             { return nopHandler{} }

func newNopLogger() *slog.Logger { return slog.New(nopHandler{}) }

// SetLogger sets the adapter logger. gfx.InitGraphics and
// Context.SetLogger call it. Pass nil to silence the adapter.
func (a *Adapter) SetLogger(l *slog.Logger) {
	if l == nil {
		l = newNopLogger()
	}
	a.log = l.With("backend", "software")
}
