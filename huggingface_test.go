package unillm

import "testing"

func TestHuggingFace_Parse_ArrayWrappedBody(t *testing.T) {
	body := []any{
		map[string]any{
			"generated_text": "hello world",
			"details":        map[string]any{"finish_reason": "eos_token", "generated_tokens": 3, "prefill_length": 7},
		},
	}
	res := newHuggingFaceParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	last := res.Value.Messages[len(res.Value.Messages)-1]
	if last.Content[0].Text != "hello world" {
		t.Errorf("got %+v", last.Content)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
}

func TestHuggingFace_Parse_ConversationHistoryReconstructed(t *testing.T) {
	body := map[string]any{
		"generated_text": "I'm well",
		"conversation": map[string]any{
			"past_user_inputs":    []any{"How are you?"},
			"generated_responses": []any{"I'm well"},
		},
	}
	res := newHuggingFaceParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if len(res.Value.Messages) != 3 {
		t.Fatalf("expected past turn + generated turn + final turn, got %+v", res.Value.Messages)
	}
	if res.Value.Messages[0].Role != RoleUser || res.Value.Messages[0].Content[0].Text != "How are you?" {
		t.Errorf("got %+v", res.Value.Messages[0])
	}
}

func TestHuggingFace_Parse_ErrorStringField(t *testing.T) {
	body := map[string]any{"error": "Model is currently loading"}
	res := newHuggingFaceParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.Error == nil {
		t.Fatalf("expected an error document")
	}
	if res.Value.Error.Type != ErrServer {
		t.Errorf("expected a loading-cause string error to classify as server, got %s", res.Value.Error.Type)
	}
}

func TestHuggingFace_Detect_BareArray(t *testing.T) {
	body := []any{map[string]any{"generated_text": "hi"}}
	method, ok := newHuggingFaceParser().(Parser).Detect(body, nil, "")
	if !ok || method != MethodResponseShape {
		t.Fatalf("got %v, %v", method, ok)
	}
}

func TestHuggingFace_Stream_TokenEvents(t *testing.T) {
	stream := newHuggingFaceParser().NewStream()
	stream.ParseChunk(map[string]any{"token": map[string]any{"text": "Hel"}})
	res := stream.ParseChunk(map[string]any{"token": map[string]any{"text": "lo"}, "details": map[string]any{"finish_reason": "eos_token"}})
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	final := stream.Finalize()
	if final.Value.Messages[0].Content[0].Text != "Hello" {
		t.Errorf("got %q", final.Value.Messages[0].Content[0].Text)
	}
}
