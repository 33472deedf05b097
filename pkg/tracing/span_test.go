package tracing

import (
	"context"
	"testing"
)

func TestChildSpanInheritsTrace(t *testing.T) {
	ctx, root := StartSpan(context.Background(), "refit", "trace-1")
	childCtx, child := StartChildSpan(ctx, "load-data")

	if child.TraceID != "trace-1" {
		t.Errorf("child trace id = %q, want trace-1", child.TraceID)
	}
	if got := SpanFromContext(childCtx); got != child {
		t.Error("child context does not carry the child span")
	}
	if got := SpanFromContext(ctx); got != root {
		t.Error("parent context no longer carries the root span")
	}
	if len(root.children) != 1 || root.children[0] != child {
		t.Error("child not registered under the root span")
	}
}

func TestDetachedChildSpan(t *testing.T) {
	_, span := StartChildSpan(context.Background(), "fit")
	if span.TraceID != "" {
		t.Errorf("detached span trace id = %q, want empty", span.TraceID)
	}
	span.SetAttr("books", 3)
	span.End()
	if span.Elapsed < 0 {
		t.Errorf("elapsed = %v, want non-negative", span.Elapsed)
	}
	span.Log()
}

func TestSpanFromContextEmpty(t *testing.T) {
	if span := SpanFromContext(context.Background()); span != nil {
		t.Errorf("SpanFromContext(empty) = %v, want nil", span)
	}
}
