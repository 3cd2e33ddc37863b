package unillm

import "testing"

// An array `output` formats as newline-joined "[Output N]" entries.
func TestReplicate_Parse_ArrayOutputFormatting(t *testing.T) {
	body := map[string]any{
		"id": "pred_1", "version": "abc123", "status": "succeeded",
		"output": []any{"url-a", "url-b"},
	}
	res := newReplicateParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	text := res.Value.Messages[0].Content[0].Text
	want := "[Output 1] url-a\n[Output 2] url-b"
	if text != want {
		t.Fatalf("got %q, want %q", text, want)
	}
	if res.Value.StopReason != StopEndTurn {
		t.Errorf("got %s", res.Value.StopReason)
	}
}

func TestReplicate_Parse_StringOutput(t *testing.T) {
	body := map[string]any{"id": "pred_2", "status": "succeeded", "output": "plain text"}
	res := newReplicateParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.Messages[0].Content[0].Text != "plain text" {
		t.Errorf("got %+v", res.Value.Messages[0].Content)
	}
}

func TestReplicate_Parse_FailedStatus(t *testing.T) {
	body := map[string]any{"id": "pred_3", "status": "failed", "error": "CUDA out of memory"}
	res := newReplicateParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopError {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	if res.Value.Error == nil || res.Value.Error.Message != "CUDA out of memory" {
		t.Fatalf("got %+v", res.Value.Error)
	}
}

func TestReplicate_Parse_NonTerminalStatusIsMetadataOnly(t *testing.T) {
	body := map[string]any{"id": "pred_4", "status": "processing"}
	res := newReplicateParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.StopReason != StopUnknown {
		t.Fatalf("got %s", res.Value.StopReason)
	}
	if res.Value.Metadata["status"] != "processing" {
		t.Errorf("got %v", res.Value.Metadata)
	}
	if len(res.Value.Messages) != 0 {
		t.Errorf("expected no messages for a non-terminal status, got %+v", res.Value.Messages)
	}
}

func TestReplicate_Parse_DetailFieldIsErrorDocument(t *testing.T) {
	body := map[string]any{"detail": "Invalid version or not permitted"}
	res := newReplicateParser().Parse(body)
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.Error == nil {
		t.Fatalf("expected an error document")
	}
}

func TestReplicate_Detect_ByBearerPrefix(t *testing.T) {
	method, ok := newReplicateParser().(Parser).Detect(map[string]any{}, map[string]string{"authorization": "Bearer r8_abc123"}, "")
	if !ok || method != MethodHeader {
		t.Fatalf("got %v, %v", method, ok)
	}
}

func TestReplicate_Stream_SSELifecycle(t *testing.T) {
	stream := newReplicateParser().NewStream()
	stream.ParseChunk(map[string]any{"event": "output", "id": "1", "data": "Hel"})
	stream.ParseChunk(map[string]any{"event": "output", "id": "2", "data": "lo"})
	res := stream.ParseChunk(map[string]any{"event": "done", "id": "3", "data": `{"reason":"succeeded"}`})
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

func TestReplicate_Stream_ErrorEvent(t *testing.T) {
	stream := newReplicateParser().NewStream()
	res := stream.ParseChunk(map[string]any{"event": "error", "id": "1", "data": `{"detail":"prediction failed"}`})
	if !res.Success {
		t.Fatalf("got errors %v", res.Errors)
	}
	if res.Value.Error == nil || res.Value.Error.Message != "prediction failed" {
		t.Fatalf("got %+v", res.Value.Error)
	}
}
