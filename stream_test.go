package unillm

import "testing"

func TestStreamState_AccumulateContent(t *testing.T) {
	s := NewStreamState(0)
	s.AccumulateContent(0, "Hello")
	s.AccumulateContent(0, ", world")
	s.AccumulateContent(1, "second block")
	if got := s.ContentFor(0); got != "Hello, world" {
		t.Errorf("got %q", got)
	}
	if got := s.ContentFor(1); got != "second block" {
		t.Errorf("got %q", got)
	}
	if len(s.order) != 2 || s.order[0] != 0 || s.order[1] != 1 {
		t.Errorf("expected first-seen order [0 1], got %v", s.order)
	}
}

// A tool call fragmented across three chunks only reports complete once
// the concatenated arguments parse as strict JSON.
func TestStreamState_AccumulateToolCall_Fragmented(t *testing.T) {
	s := NewStreamState(0)

	_, complete, _ := s.AccumulateToolCall(0, "call_1", "get_weather", `{"location":`)
	if complete {
		t.Fatalf("should not be complete after first fragment")
	}
	_, complete, _ = s.AccumulateToolCall(0, "", "", `"New York"`)
	if complete {
		t.Fatalf("should not be complete after second fragment")
	}
	value, complete, warnings := s.AccumulateToolCall(0, "", "", `}`)
	if !complete {
		t.Fatalf("should be complete once the JSON balances")
	}
	if len(warnings) != 0 {
		t.Errorf("unexpected warnings: %v", warnings)
	}
	m, ok := value.(map[string]any)
	if !ok || m["location"] != "New York" {
		t.Errorf("got %#v", value)
	}
}

func TestStreamState_IncompleteToolCallAtFinalize(t *testing.T) {
	s := NewStreamState(0)
	s.AccumulateToolCall(0, "call_1", "get_weather", `{"location":"NY"}`)
	s.AccumulateToolCall(1, "call_2", "get_time", `{"tz":`) // never closed

	blocks, warnings := s.FinalizeToolCalls()
	if len(blocks) != 1 {
		t.Fatalf("expected exactly one completed tool block, got %d", len(blocks))
	}
	if len(warnings) != 1 {
		t.Fatalf("expected one incomplete-at-finalize warning, got %v", warnings)
	}
}

func TestStreamState_BufferThresholdWarnsOnce(t *testing.T) {
	s := NewStreamState(10)
	s.AccumulateContent(0, "0123456789")
	warnings := s.AccumulateContent(0, "more text pushing well past the limit")
	if len(warnings) != 1 {
		t.Fatalf("expected exactly one buffer warning, got %v", warnings)
	}
	// A further fragment must not warn again.
	warnings = s.AccumulateContent(0, "still more")
	if len(warnings) != 0 {
		t.Errorf("expected no repeat warning, got %v", warnings)
	}
	if pct := s.BufferUsagePercent(); pct <= 100 {
		t.Errorf("expected buffer usage above 100%%, got %f", pct)
	}
}

// Reset returns the state to zero value and is idempotent.
func TestStreamState_ResetIdempotent(t *testing.T) {
	s := NewStreamState(0)
	s.InitMetrics()
	s.AccumulateContent(0, "text")
	s.AccumulateToolCall(0, "id", "name", `{}`)
	s.IncChunksProcessed()

	s.Reset()
	if s.ContentFor(0) != "" {
		t.Errorf("expected content cleared after reset")
	}
	if s.IsToolCallComplete(0) {
		t.Errorf("expected tool call state cleared after reset")
	}
	metrics := s.StreamingMetrics()
	if metrics["chunks_processed"] != 0 {
		t.Errorf("expected chunk counter cleared, got %v", metrics)
	}

	s.Reset() // second call must not panic or change anything further
	if s.ContentFor(0) != "" {
		t.Errorf("expected content still cleared after second reset")
	}
}
