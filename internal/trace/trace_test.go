package trace

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestLevelFiltersScopes(t *testing.T) {
	tests := []struct {
		level Level
		scope Scope
		want  bool
	}{
		{LevelOff, ScopeDriver, false},
		{LevelError, ScopeDriver, false},
		{LevelPhase, ScopeUnit, true},
		{LevelPhase, ScopeDescriptor, false},
		{LevelDetail, ScopeDescriptor, true},
		{LevelDetail, ScopeField, false},
		{LevelDebug, ScopeField, true},
	}
	for _, tt := range tests {
		if got := tt.level.ShouldEmit(tt.scope); got != tt.want {
			t.Errorf("%s.ShouldEmit(%s) = %v, want %v", tt.level, tt.scope, got, tt.want)
		}
	}
}

func TestStreamTracerText(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDetail, FormatText)
	unit := Begin(tr, ScopeUnit, "unit:shapes", 0)
	desc := Begin(tr, ScopeDescriptor, "typeinfo:app.Shape", unit.ID())
	desc.WithExtra("fields", "4").End("done")
	Begin(tr, ScopeField, "hidden", desc.ID()).End("")
	unit.End("")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("field scope must be filtered at detail level:\n%s", out)
	}
	if !strings.Contains(out, "\u2190 typeinfo:app.Shape (done) {fields=4}") {
		t.Fatalf("missing descriptor end event:\n%s", out)
	}
	if n := strings.Count(out, "\n"); n != 4 {
		t.Fatalf("expected 4 events, got %d:\n%s", n, out)
	}
}

func TestNDJSON(t *testing.T) {
	var buf bytes.Buffer
	tr := NewStreamTracer(&buf, LevelDebug, FormatNDJSON)
	Point(tr, ScopeUnit, "cache", "hit", 0)
	var ev jsonEvent
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev); err != nil {
		t.Fatal(err)
	}
	if ev.Kind != "point" || ev.Scope != "unit" || ev.Detail != "hit" {
		t.Fatalf("unexpected event %+v", ev)
	}
}

func TestRingWrapsAndMultiCopies(t *testing.T) {
	ring := NewRingTracer(2, LevelDebug)
	var buf bytes.Buffer
	multi := NewMultiTracer(LevelDebug, ring, NewStreamTracer(&buf, LevelDebug, FormatText))
	for _, name := range []string{"a", "b", "c"} {
		Point(multi, ScopeDriver, name, "", 0)
	}
	snap := ring.Snapshot()
	if len(snap) != 2 || snap[0].Name != "b" || snap[1].Name != "c" {
		t.Fatalf("unexpected ring contents %+v", snap)
	}
	if r, ok := Ring(multi); !ok || r != ring {
		t.Fatalf("Ring should find the ring inside a multi tracer")
	}
}

func TestNopAndContext(t *testing.T) {
	if FromContext(context.Background()) != Nop {
		t.Fatalf("missing tracer should fall back to Nop")
	}
	s := Begin(Nop, ScopeDriver, "x", 7)
	if s.ID() != 7 || s.End("") != 0 {
		t.Fatalf("disabled span should forward the parent id")
	}
	ctx := WithSpan(WithTracer(context.Background(), Nop), s)
	if CurrentSpan(ctx).SpanID != 7 {
		t.Fatalf("span context not propagated")
	}
}

func TestParse(t *testing.T) {
	if l, err := ParseLevel("DETAIL"); err != nil || l != LevelDetail {
		t.Fatalf("ParseLevel = %v, %v", l, err)
	}
	if _, err := ParseMode("disk"); err == nil {
		t.Fatalf("expected error for unknown mode")
	}
	if f, err := ParseFormat("json"); err != nil || f != FormatNDJSON {
		t.Fatalf("ParseFormat = %v, %v", f, err)
	}
}
