package unillm

import (
	"encoding/json"
	"fmt"
	"strings"
)

var replicateStatuses = map[string]bool{
	"starting": true, "processing": true, "succeeded": true, "failed": true, "canceled": true,
}

// replicateParser implements Parser for Replicate's prediction API. The
// prediction lifecycle drives the outcome: starting/processing are
// non-terminal, succeeded/failed/canceled are terminal.
type replicateParser struct{}

func newReplicateParser() Parser { return &replicateParser{} }

func (replicateParser) ID() string { return "replicate" }

func (replicateParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "replicate",
		Name:               "Replicate",
		BaseURL:            "https://api.replicate.com/v1",
		AuthenticationType: "bearer",
		Capabilities:       ProviderCapabilities{Streaming: true, Modalities: []string{"text", "image"}},
		Models:             []string{"meta/meta-llama-3-70b-instruct"},
	}
}

func (replicateParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if headerHasPrefix(headers, "authorization", "Bearer r8_") {
		return MethodHeader, true
	}
	if url != "" && (strings.Contains(url, "api.replicate.com") || strings.Contains(url, "streaming.replicate.com")) {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if hasKey(m, "version") && replicateStatuses[getString(m, "status")] {
		return MethodResponseShape, true
	}
	if hasKey(m, "event") && hasKey(m, "id") && hasKey(m, "data") {
		return MethodResponseShape, true
	}
	return "", false
}

func (replicateParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "replicate", "body is not an object").Error())
	}

	// A `detail` field with no `id`/`status` is an error document, distinct
	// from the ordinary top-level `error` rule.
	if detail, ok := m["detail"].(string); ok && !hasKey(m, "id") && !hasKey(m, "status") {
		return succeed(UnifiedResponse{
			Provider: "replicate",
			Error:    &ErrorInfo{Type: ErrInvalidRequest, Message: detail, Details: map[string]any{}},
			Metadata: map[string]any{},
		}, nil)
	}
	// A prediction's own "failed" status carries its error string inline
	// (handled below); the generic top-level-error rule only applies to
	// bodies with no lifecycle status at all, e.g. a bare API error.
	if !hasKey(m, "status") {
		if errInfo, isErr := extractTopLevelError(m, func(t string, s int) ErrorFamily { return classifyErrorByStatus(s) }); isErr {
			return succeed(UnifiedResponse{Provider: "replicate", Error: errInfo, Metadata: map[string]any{}}, nil)
		}
	}

	status := getString(m, "status")
	var messages []Message
	var warnings []string
	stopReason := StopUnknown
	metadata := map[string]any{}

	switch status {
	case "succeeded", "failed", "canceled", "aborted":
		var stopConfidence Confidence
		var stopWarnings []string
		stopReason, stopConfidence, _, stopWarnings = MapStopReason("replicate", &status)
		warnings = append(warnings, stopWarnings...)
		noteOriginalStopReason(metadata, stopConfidence, &status)
		if status == "succeeded" {
			messages = []Message{{Role: RoleAssistant, Content: []ContentBlock{TextBlock(formatReplicateOutput(m["output"]))}}}
		}
		if status == "failed" {
			if errStr, ok := m["error"].(string); ok && errStr != "" {
				return succeed(UnifiedResponse{
					Provider:   "replicate",
					StopReason: stopReason,
					Error:      &ErrorInfo{Type: ErrModel, Message: errStr, Details: map[string]any{}},
					Metadata:   metadata,
				}, warnings)
			}
		}
	default:
		// starting / processing: non-terminal, empty messages with status.
		metadata["status"] = status
	}

	if metricsMap, ok := getMap(m, "metrics"); ok {
		if v, ok := metricsMap["predict_time"]; ok {
			metadata["predict_time"] = v
		}
		if v, ok := metricsMap["total_time"]; ok {
			metadata["total_time"] = v
		}
	}
	if extra := extraFields(m, "id", "version", "status", "output", "error", "metrics", "model"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         getString(m, "id"),
		Provider:   "replicate",
		Model:      ModelRef{ID: getString(m, "model")},
		Messages:   messages,
		StopReason: stopReason,
		Metadata:   metadata,
	}
	if resp.ID == "" {
		resp.ID = synthesizeID("replicate", getString(m, "version"))
	}
	return succeed(resp, warnings)
}

// formatReplicateOutput flattens a prediction's output value: string ->
// text; array -> join with "[Output N]" headers; object -> JSON-stringify
// with keys shown.
func formatReplicateOutput(output any) string {
	switch v := output.(type) {
	case string:
		return v
	case []any:
		var b strings.Builder
		for i, item := range v {
			if i > 0 {
				b.WriteString("\n")
			}
			fmt.Fprintf(&b, "[Output %d] %v", i+1, item)
		}
		return b.String()
	case map[string]any:
		data, _ := json.Marshal(v)
		return string(data)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// --- Streaming: SSE envelope {event, id, data} with four event types. ---

type replicateStream struct {
	state  *StreamState
	reason string
}

func (replicateParser) NewStream() StreamParser {
	return &replicateStream{state: NewStreamState(0)}
}

func (s *replicateStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	m, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "replicate", "stream event is not an object").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk
	event := getString(m, "event")
	data := getString(m, "data")

	switch event {
	case "output":
		if data != "" {
			contentWarnings := s.state.AccumulateContent(0, data)
			warnings = append(warnings, contentWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: 0, DeltaText: data, Raw: chunkAny})
		}
	case "logs":
		// metadata only, no content change.
	case "error":
		var parsed map[string]any
		msg := data
		if err := json.Unmarshal([]byte(data), &parsed); err == nil {
			if detail, ok := parsed["detail"].(string); ok {
				msg = detail
			}
		} else {
			warnings = append(warnings, "replicate error event data is not JSON; using raw string")
		}
		return succeed(UnifiedStreamResponse{
			Provider: "replicate",
			Error:    &ErrorInfo{Type: ErrModel, Message: msg, Details: map[string]any{}},
			Metadata: map[string]any{},
		}, warnings)
	case "done":
		var parsed struct {
			Reason string `json:"reason"`
		}
		_ = json.Unmarshal([]byte(data), &parsed)
		s.reason = parsed.Reason
		reason := StopEndTurn
		if s.reason != "" {
			var stopWarnings []string
			reason, _, _, stopWarnings = MapStopReason("replicate", &s.reason)
			warnings = append(warnings, stopWarnings...)
		}
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
		return succeed(UnifiedStreamResponse{
			Provider:   "replicate",
			Chunks:     chunks,
			StopReason: reason,
			Metadata:   map[string]any{"streamingMetrics": s.state.StreamingMetrics()},
		}, warnings)
	default:
		warnings = append(warnings, "unrecognized replicate SSE event: "+event)
	}

	return succeed(UnifiedStreamResponse{Provider: "replicate", Chunks: chunks, Metadata: map[string]any{}}, warnings)
}

func (s *replicateStream) Finalize() Result[UnifiedResponse] {
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	var warnings []string
	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	stopReason := StopEndTurn
	if s.reason != "" {
		var stopConfidence Confidence
		stopReason, stopConfidence, _, warnings = MapStopReason("replicate", &s.reason)
		noteOriginalStopReason(metadata, stopConfidence, &s.reason)
	}
	resp := UnifiedResponse{
		ID:         synthesizeID("replicate", ""),
		Provider:   "replicate",
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
