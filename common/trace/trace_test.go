package trace_test

import (
	"context"
	"strings"
	"testing"

	"github.com/bdobrica/hanashi/common/trace"
)

func TestGenerateID_Format(t *testing.T) {
	id := trace.GenerateID()
	if !strings.HasPrefix(id, "t_") {
		t.Errorf("id %q: missing t_ prefix", id)
	}
	if len(id) != 34 {
		t.Errorf("id %q: got length %d, want 34", id, len(id))
	}
	if id == trace.GenerateID() {
		t.Error("two generated IDs are equal")
	}
}

func TestContextRoundTrip(t *testing.T) {
	ctx := trace.WithTraceID(context.Background(), "t_abc")
	if got := trace.FromContext(ctx); got != "t_abc" {
		t.Errorf("FromContext: got %q, want %q", got, "t_abc")
	}
	if got := trace.FromContext(context.Background()); got != "" {
		t.Errorf("FromContext on empty ctx: got %q, want empty", got)
	}
}

func TestEnsure(t *testing.T) {
	ctx := trace.Ensure(context.Background())
	first := trace.FromContext(ctx)
	if first == "" {
		t.Fatal("Ensure did not attach a trace ID")
	}
	if got := trace.FromContext(trace.Ensure(ctx)); got != first {
		t.Errorf("Ensure replaced existing ID: got %q, want %q", got, first)
	}
}
