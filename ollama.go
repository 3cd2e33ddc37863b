package unillm

import "strings"

// ollamaParser implements Parser for a local Ollama server. Ollama has no
// separate tool-call content shape in its generate/chat response; probing
// for a `tool_calls` field on the message yields a warning instead.
type ollamaParser struct{}

func newOllamaParser() Parser { return &ollamaParser{} }

func (ollamaParser) ID() string { return "ollama" }

func (ollamaParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "ollama",
		Name:               "Ollama",
		BaseURL:            "http://localhost:11434",
		AuthenticationType: "none",
		Capabilities:       ProviderCapabilities{Streaming: true, Modalities: []string{"text"}},
		Models:             []string{"llama3.3", "qwen2.5", "mistral"},
	}
}

func (ollamaParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if url != "" && strings.Contains(url, "11434") {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if !hasKey(m, "model") {
		return "", false
	}
	if _, ok := getBoolPtr(m, "done"); !ok {
		return "", false
	}
	if msg, ok := getMap(m, "message"); ok {
		if hasKey(msg, "content") {
			return MethodResponseShape, true
		}
	}
	if hasKey(m, "response") {
		return MethodResponseShape, true
	}
	return "", false
}

func (ollamaParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "ollama", "body is not an object").Error())
	}
	if errInfo, isErr := extractTopLevelError(m, func(t string, s int) ErrorFamily { return classifyErrorByStatus(s) }); isErr {
		return succeed(UnifiedResponse{Provider: "ollama", Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	var warnings []string

	var text string
	var role Role = RoleAssistant
	if msg, ok := getMap(m, "message"); ok {
		text = getString(msg, "content")
		if hasKey(msg, "tool_calls") {
			warnings = append(warnings, "ollama response carries tool_calls-shaped field; tool use is not supported for this provider")
		}
		if r := getString(msg, "role"); r != "" {
			var roleWarnings []string
			role, roleWarnings = NormalizeRole(r)
			warnings = append(warnings, roleWarnings...)
		}
	} else {
		text = getString(m, "response")
	}

	done, _ := getBoolPtr(m, "done")
	stopReason := StopUnknown
	if done {
		stopReason = StopEndTurn
	}

	input := getInt(m, "prompt_eval_count")
	output := getInt(m, "eval_count")

	metadata := map[string]any{}
	if extra := extraFields(m, "model", "message", "response", "done", "prompt_eval_count", "eval_count"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         synthesizeID("ollama", getString(m, "model")),
		Provider:   "ollama",
		Model:      ModelRef{ID: getString(m, "model")},
		Messages:   []Message{{Role: role, Content: []ContentBlock{TextBlock(text)}}},
		StopReason: stopReason,
		Usage:      TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: input + output},
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// --- Streaming: incremental {message:{content}, done} chunks. ---

type ollamaStream struct {
	state *StreamState
	model string
	done  bool
}

func (ollamaParser) NewStream() StreamParser {
	return &ollamaStream{state: NewStreamState(0)}
}

func (s *ollamaStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	m, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "ollama", "stream chunk is not an object").Error())
	}
	if model := getString(m, "model"); model != "" {
		s.model = model
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	if msg, ok := getMap(m, "message"); ok {
		if text := getString(msg, "content"); text != "" {
			contentWarnings := s.state.AccumulateContent(0, text)
			warnings = append(warnings, contentWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: 0, DeltaText: text, Raw: chunkAny})
		}
	}

	resp := UnifiedStreamResponse{Provider: "ollama", Model: s.model, Chunks: chunks, Metadata: map[string]any{}}
	if done, _ := getBoolPtr(m, "done"); done {
		s.done = true
		resp.StopReason = StopEndTurn
		resp.Chunks = append(resp.Chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
		resp.Metadata["streamingMetrics"] = s.state.StreamingMetrics()
	}
	return succeed(resp, warnings)
}

func (s *ollamaStream) Finalize() Result[UnifiedResponse] {
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	stopReason := StopUnknown
	if s.done {
		stopReason = StopEndTurn
	}
	resp := UnifiedResponse{
		ID:         synthesizeID("ollama", s.model),
		Provider:   "ollama",
		Model:      ModelRef{ID: s.model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Metadata:   map[string]any{"streamingMetrics": s.state.StreamingMetrics()},
	}
	return succeed(resp, nil)
}
