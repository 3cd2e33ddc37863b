package unillm

import "testing"

func TestBedrock_Parse_BasicMessage(t *testing.T) {
	body := map[string]any{
		"output": map[string]any{
			"message": map[string]any{"role": "assistant", "content": []any{map[string]any{"text": "hi"}}},
		},
		"stopReason": "end_turn",
		"usage":      map[string]any{"inputTokens": 10, "outputTokens": 5, "totalTokens": 15},
	}
	res := newBedrockParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	if res.Value.Messages[0].Content[0].Text != "hi" {
		t.Errorf("got %+v", res.Value.Messages[0].Content)
	}
}

// Bedrock's Converse API mirrors Anthropic's finish vocabulary.
func TestBedrock_Parse_ToolUseStopReason(t *testing.T) {
	body := map[string]any{
		"output": map[string]any{
			"message": map[string]any{"role": "assistant", "content": []any{
				map[string]any{"toolUse": map[string]any{"toolUseId": "t1", "name": "search", "input": map[string]any{"q": "x"}}},
			}},
		},
		"stopReason": "tool_use",
	}
	res := newBedrockParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopToolUse {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	block := res.Value.Messages[0].Content[0]
	if block.Kind != ContentToolUse || block.ToolName != "search" {
		t.Fatalf("got %+v", block)
	}
}

func TestBedrock_Detect_ByOutputMessageShape(t *testing.T) {
	body := map[string]any{"output": map[string]any{"message": map[string]any{"role": "assistant"}}}
	method, ok := newBedrockParser().(Parser).Detect(body, nil, "")
	if !ok || method != MethodResponseShape {
		t.Fatalf("got %v, %v", method, ok)
	}
}

func TestBedrock_Stream_MessageLifecycle(t *testing.T) {
	stream := newBedrockParser().NewStream()
	stream.ParseChunk(map[string]any{"messageStart": map[string]any{"role": "assistant"}})
	stream.ParseChunk(map[string]any{"contentBlockDelta": map[string]any{"contentBlockIndex": 0, "delta": map[string]any{"text": "hi"}}})
	res := stream.ParseChunk(map[string]any{"messageStop": map[string]any{"stopReason": "end_turn"}})
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	final := stream.Finalize()
	if final.Value.Messages[0].Content[0].Text != "hi" {
		t.Errorf("got %+v", final.Value.Messages[0].Content)
	}
}
