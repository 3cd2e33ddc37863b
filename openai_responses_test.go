package unillm

import "testing"

func TestOpenAIResponses_Detect(t *testing.T) {
	body := map[string]any{"object": "response", "output": []any{}}
	method, ok := newOpenAIResponsesParser().Detect(body, nil, "")
	if !ok || method != MethodResponseShape {
		t.Fatalf("expected shape match, got %s/%v", method, ok)
	}

	chatBody := map[string]any{"object": "chat.completion", "choices": []any{}}
	if _, ok := newOpenAIResponsesParser().Detect(chatBody, nil, ""); ok {
		t.Errorf("chat.completion body should not match the Responses API detector")
	}
}

func TestOpenAIResponses_Parse_MessageAndUsage(t *testing.T) {
	body := map[string]any{
		"id":     "resp_1",
		"object": "response",
		"model":  "gpt-4o",
		"status": "completed",
		"output": []any{
			map[string]any{
				"type": "message",
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": "hello there"},
				},
			},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5, "total_tokens": 15},
	}
	res := newOpenAIResponsesParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Errorf("expected completed status to map to StopEndTurn, got %s", res.Value.StopReason)
	}
	if got := res.Value.Messages[0].Content[0].Text; got != "hello there" {
		t.Errorf("got %q", got)
	}
	if res.Value.Usage.TotalTokens != 15 {
		t.Errorf("got total tokens %d", res.Value.Usage.TotalTokens)
	}
}

func TestOpenAIResponses_Parse_FunctionCall(t *testing.T) {
	body := map[string]any{
		"object": "response",
		"model":  "gpt-4o",
		"status": "completed",
		"output": []any{
			map[string]any{
				"type":      "function_call",
				"call_id":   "call_1",
				"name":      "get_weather",
				"arguments": `{"city":"NY"}`,
			},
		},
	}
	res := newOpenAIResponsesParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	block := res.Value.Messages[0].Content[0]
	if block.Kind != ContentToolUse || block.ToolName != "get_weather" || block.ToolUseID != "call_1" {
		t.Fatalf("got %+v", block)
	}
}

func TestOpenAIResponses_Stream_NotSupported(t *testing.T) {
	stream := newOpenAIResponsesParser().NewStream()
	res := stream.ParseChunk(map[string]any{"type": "response.output_text.delta", "delta": "hi"})
	if res.Success {
		t.Fatalf("expected failure for a Responses API stream chunk")
	}
	if len(res.Errors) == 0 {
		t.Fatalf("expected a StreamProtocolViolation error")
	}
	if final := stream.Finalize(); final.Success {
		t.Fatalf("expected Finalize to fail as well")
	}
}

func TestOpenAIResponses_Parse_IncompleteRecomputesTotal(t *testing.T) {
	body := map[string]any{
		"object": "response",
		"model":  "gpt-4o",
		"status": "incomplete",
		"output": []any{
			map[string]any{"type": "message", "content": []any{map[string]any{"type": "output_text", "text": "partial"}}},
		},
		"usage": map[string]any{"input_tokens": 10, "output_tokens": 5, "total_tokens": 1},
	}
	res := newOpenAIResponsesParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopMaxTokens {
		t.Errorf("expected incomplete status to map to StopMaxTokens, got %s", res.Value.StopReason)
	}
	if res.Value.Usage.TotalTokens != 15 {
		t.Errorf("expected recomputed total of 15, got %d", res.Value.Usage.TotalTokens)
	}
	found := false
	for _, w := range res.Warnings {
		if w != "" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a recompute warning, got none")
	}
}
