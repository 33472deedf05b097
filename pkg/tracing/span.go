// Package tracing records span trees for multi-stage operations such as
// a catalog refit and writes them through slog. It is deliberately
// small: no exporters, no sampling, just timed stages with attributes
// that land in the service log next to everything else.
package tracing

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

type contextKey struct{}

var spanKey contextKey

// Span is one timed stage of an operation. Children record the stages
// within it, such as the data-load and fit phases of a refit.
type Span struct {
	Name    string
	TraceID string
	Started time.Time
	Elapsed time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    map[string]any
}

func newSpan(name, traceID string) *Span {
	return &Span{
		Name:    name,
		TraceID: traceID,
		Started: time.Now(),
		attrs:   make(map[string]any),
	}
}

// StartSpan opens a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name, traceID string) (context.Context, *Span) {
	span := newSpan(name, traceID)
	return context.WithValue(ctx, spanKey, span), span
}

// StartChildSpan opens a span nested under the one carried by ctx. With
// no span in ctx the child behaves as a detached root.
func StartChildSpan(ctx context.Context, name string) (context.Context, *Span) {
	child := newSpan(name, "")
	if parent := SpanFromContext(ctx); parent != nil {
		child.TraceID = parent.TraceID
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, spanKey, child), child
}

// End freezes the span's elapsed time.
func (s *Span) End() {
	s.Elapsed = time.Since(s.Started)
}

// SetAttr attaches a key-value attribute to the span.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs[key] = value
	s.mu.Unlock()
}

// SpanFromContext extracts the current Span from ctx, or nil if none.
func SpanFromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(spanKey).(*Span); ok {
		return span
	}
	return nil
}

// Log writes the whole span tree to slog, one line per span, children
// indented by depth. Attributes come out in sorted key order so log
// lines diff cleanly between runs.
func (s *Span) Log() {
	s.logTree(0)
}

func (s *Span) logTree(depth int) {
	s.mu.Lock()
	keys := make([]string, 0, len(s.attrs))
	for k := range s.attrs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	args := []any{
		"trace_id", s.TraceID,
		"span", s.Name,
		"elapsed_ms", s.Elapsed.Milliseconds(),
		"depth", depth,
	}
	for _, k := range keys {
		args = append(args, k, s.attrs[k])
	}
	children := s.children
	s.mu.Unlock()

	slog.Info("span", args...)
	for _, child := range children {
		child.logTree(depth + 1)
	}
}
