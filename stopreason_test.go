package unillm

import "testing"

func TestMapStopReason_HighConfidence(t *testing.T) {
	cases := []struct {
		provider string
		raw      string
		want     StopReason
	}{
		{"openai", "stop", StopEndTurn},
		{"openai", "STOP", StopEndTurn},
		{"openai", "length", StopMaxTokens},
		{"openai", "tool_calls", StopToolUse},
		{"openai", "function_call", StopToolUse},
		{"openai", "content_filter", StopContentFilter},
		{"anthropic", "end_turn", StopEndTurn},
		{"anthropic", "END-TURN", StopEndTurn},
		{"anthropic", "endTurn", StopEndTurn},
		{"anthropic", "max_tokens", StopMaxTokens},
		{"anthropic", "stop_sequence", StopSequence},
		{"anthropic", "tool_use", StopToolUse},
		{"gemini", "STOP", StopEndTurn},
		{"gemini", "MAX_TOKENS", StopMaxTokens},
		{"gemini", "SAFETY", StopContentFilter},
		{"gemini", "RECITATION", StopRecitation},
		{"gemini", "OTHER", StopUnknown},
		{"cohere", "COMPLETE", StopEndTurn},
		{"cohere", "ERROR_TOXIC", StopContentFilter},
		{"mistral", "model_length", StopContextLength},
		{"replicate", "succeeded", StopEndTurn},
		{"replicate", "aborted", StopCanceled},
	}
	for _, c := range cases {
		got, confidence, recognized, warnings := MapStopReason(c.provider, &c.raw)
		if got != c.want {
			t.Errorf("%s/%s: got %s, want %s", c.provider, c.raw, got, c.want)
		}
		if confidence != ConfidenceHigh {
			t.Errorf("%s/%s: expected high confidence, got %s", c.provider, c.raw, confidence)
		}
		if !recognized {
			t.Errorf("%s/%s: expected was_recognized=true", c.provider, c.raw)
		}
		if len(warnings) != 0 {
			t.Errorf("%s/%s: expected no warnings for a high-confidence match, got %v", c.provider, c.raw, warnings)
		}
	}
}

func TestMapStopReason_FuzzyMatch(t *testing.T) {
	raw := "custom_stop_marker"
	got, confidence, recognized, warnings := MapStopReason("openai", &raw)
	if got != StopEndTurn {
		t.Fatalf("got %s, want EndTurn", got)
	}
	if confidence != ConfidenceMedium {
		t.Fatalf("got confidence %s, want medium", confidence)
	}
	if !recognized {
		t.Fatalf("expected was_recognized=true for a fuzzy match")
	}
	if len(warnings) == 0 {
		t.Fatalf("expected a warning for a fuzzy match")
	}
}

func TestMapStopReason_Unrecognized(t *testing.T) {
	raw := "totally_unknown_value"
	got, confidence, recognized, warnings := MapStopReason("openai", &raw)
	if got != StopUnknown {
		t.Fatalf("got %s, want Unknown", got)
	}
	if confidence != ConfidenceLow {
		t.Fatalf("got confidence %s, want low", confidence)
	}
	if recognized {
		t.Fatalf("expected was_recognized=false")
	}
	if len(warnings) == 0 {
		t.Fatalf("expected a warning")
	}
}

// The mapper is total: nil, empty, whitespace, and garbage all return
// some StopReason rather than panicking or erroring.
func TestMapStopReason_Totality(t *testing.T) {
	inputs := []*string{nil, strPtr(""), strPtr("   "), strPtr("�\x00garbage")}
	for _, in := range inputs {
		reason, _, recognized, _ := MapStopReason("openai", in)
		if reason == "" {
			t.Errorf("input %v: expected a non-empty StopReason", in)
		}
		if in == nil || *in == "" {
			if !recognized {
				t.Errorf("input %v: a nil/empty value should be recognized as Unknown", in)
			}
		}
	}
}

// A mapping below high confidence preserves the wire value on response
// metadata; an exact match leaves metadata untouched.
func TestParse_OriginalStopReasonPreservedOnFuzzyMatch(t *testing.T) {
	body := map[string]any{
		"object": "chat.completion", "model": "gpt-4",
		"choices": []any{
			map[string]any{"message": map[string]any{"role": "assistant", "content": "hi"}, "finish_reason": "custom_stop_marker"},
		},
	}
	res := newOpenAIParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	if got := res.Value.Metadata["original_stop_reason"]; got != "custom_stop_marker" {
		t.Errorf("expected original_stop_reason preserved, got %v", got)
	}

	body["choices"].([]any)[0].(map[string]any)["finish_reason"] = "stop"
	res = newOpenAIParser().Parse(body)
	if _, ok := res.Value.Metadata["original_stop_reason"]; ok {
		t.Errorf("an exact match must not record original_stop_reason")
	}
}

func TestNormalizeStopReason_LegacyAliases(t *testing.T) {
	if got := NormalizeStopReason(StopLength); got != StopMaxTokens {
		t.Errorf("StopLength: got %s, want StopMaxTokens", got)
	}
	if got := NormalizeStopReason(StopFunctionCall); got != StopToolUse {
		t.Errorf("StopFunctionCall: got %s, want StopToolUse", got)
	}
	if got := NormalizeStopReason(StopEndTurn); got != StopEndTurn {
		t.Errorf("StopEndTurn: expected passthrough, got %s", got)
	}
}

func strPtr(s string) *string { return &s }
