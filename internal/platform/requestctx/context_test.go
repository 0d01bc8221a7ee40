package requestctx

import (
	"context"
	"testing"

	"go.uber.org/zap"
)

func TestLoggerDefaultsToNoop(t *testing.T) {
	ctx := context.Background()
	if Logger(ctx) == nil {
		t.Fatalf("expected non-nil logger")
	}
	if HasLogger(ctx) {
		t.Fatalf("expected no request logger")
	}
	if HasLogger(WithLogger(ctx, nil)) {
		t.Fatalf("nil logger should not count as installed")
	}
}

func TestWithLoggerRoundTrip(t *testing.T) {
	logger := zap.NewExample()
	ctx := WithLogger(context.Background(), logger)
	if Logger(ctx) != logger || !HasLogger(ctx) {
		t.Fatalf("expected stored logger")
	}
}

func TestTraceRoundTrip(t *testing.T) {
	ctx := WithTrace(context.Background(), TraceInfo{TraceID: "abc", SpanID: "def", Sampled: true, ProjectID: "shop"})
	if TraceID(ctx) != "abc" {
		t.Fatalf("unexpected trace id %q", TraceID(ctx))
	}
	info, _ := Trace(ctx)
	if got := info.Resource(); got != "projects/shop/traces/abc" {
		t.Fatalf("unexpected trace resource %q", got)
	}
	if _, ok := Trace(context.Background()); ok {
		t.Fatalf("expected no trace on empty context")
	}
	if (TraceInfo{TraceID: "abc"}).Resource() != "" {
		t.Fatalf("expected empty resource without project")
	}
}
