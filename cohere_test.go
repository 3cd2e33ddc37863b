package unillm

import "testing"

func TestCohere_Parse_BasicText(t *testing.T) {
	body := map[string]any{
		"generation_id": "gen_1", "text": "hello there", "finish_reason": "COMPLETE",
		"meta": map[string]any{"tokens": map[string]any{"input_tokens": 10, "output_tokens": 4}},
	}
	res := newCohereParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	if res.Value.Messages[0].Content[0].Text != "hello there" {
		t.Errorf("got %+v", res.Value.Messages[0].Content)
	}
	if res.Value.Usage.TotalTokens != 14 {
		t.Errorf("got %+v", res.Value.Usage)
	}
}

func TestCohere_Parse_ToxicFinishIsContentFilter(t *testing.T) {
	body := map[string]any{"generation_id": "gen_2", "text": "", "finish_reason": "ERROR_TOXIC"}
	res := newCohereParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopContentFilter {
		t.Fatalf("got %s", res.Value.StopReason)
	}
}

func TestCohere_Detect_RequiresGenerationID(t *testing.T) {
	_, ok := newCohereParser().(Parser).Detect(map[string]any{"text": "hi"}, nil, "")
	if ok {
		t.Fatalf("expected no match without generation_id")
	}
	method, ok := newCohereParser().(Parser).Detect(map[string]any{"generation_id": "x", "text": "hi"}, nil, "")
	if !ok || method != MethodResponseShape {
		t.Fatalf("got %v, %v", method, ok)
	}
}

func TestCohere_Stream_EventTypeDiscriminated(t *testing.T) {
	stream := newCohereParser().NewStream()
	stream.ParseChunk(map[string]any{"event_type": "stream-start"})
	stream.ParseChunk(map[string]any{"event_type": "text-generation", "text": "hi"})
	res := stream.ParseChunk(map[string]any{
		"event_type": "stream-end", "finish_reason": "COMPLETE",
		"response": map[string]any{"model": "command-r-plus", "meta": map[string]any{"tokens": map[string]any{"input_tokens": 5, "output_tokens": 1}}},
	})
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

// A tool call emitted mid-stream must survive into the aggregated
// response, not just the per-chunk envelope.
func TestCohere_Stream_ToolCallSurvivesFinalize(t *testing.T) {
	stream := newCohereParser().NewStream()
	stream.ParseChunk(map[string]any{"event_type": "stream-start"})
	stream.ParseChunk(map[string]any{
		"event_type": "tool-calls-generation",
		"tool_calls": []any{map[string]any{"name": "get_weather", "parameters": map[string]any{"city": "NY"}}},
	})
	stream.ParseChunk(map[string]any{"event_type": "stream-end", "finish_reason": "COMPLETE"})

	final := stream.Finalize()
	if !final.Success {
		t.Fatalf("got errors %v", final.Errors)
	}
	var sawTool bool
	for _, b := range final.Value.Messages[0].Content {
		if b.Kind == ContentToolUse && b.ToolName == "get_weather" {
			sawTool = true
		}
	}
	if !sawTool {
		t.Fatalf("expected the streamed tool call in the aggregated response, got %+v", final.Value.Messages[0].Content)
	}
}

func TestCohere_Stream_UnrecognizedEventTypeWarns(t *testing.T) {
	stream := newCohereParser().NewStream()
	res := stream.ParseChunk(map[string]any{"event_type": "search-queries-generation"})
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if len(res.Warnings) == 0 {
		t.Errorf("expected a warning for an unrecognized event_type")
	}
}
