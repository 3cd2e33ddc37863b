package unillm

import "strings"

// cohereParser implements Parser for Cohere's Chat API.
type cohereParser struct{}

func newCohereParser() Parser { return &cohereParser{} }

func (cohereParser) ID() string { return "cohere" }

func (cohereParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "cohere",
		Name:               "Cohere",
		BaseURL:            "https://api.cohere.ai/v1",
		AuthenticationType: "bearer",
		Capabilities:       ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		Models:             []string{"command-r-plus", "command-r", "command"},
	}
}

func (cohereParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if url != "" && strings.Contains(url, "api.cohere.ai") {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if !hasKey(m, "generation_id") {
		return "", false
	}
	if _, hasText := m["text"]; hasText {
		return MethodResponseShape, true
	}
	if _, hasHistory := getSlice(m, "chat_history"); hasHistory {
		return MethodResponseShape, true
	}
	return "", false
}

func classifyCohereErrorType(errType string, status int) ErrorFamily {
	switch errType {
	case "unauthorized", "invalid_api_key":
		return ErrAuthentication
	case "too_many_requests":
		return ErrRateLimit
	case "invalid_request":
		return ErrInvalidRequest
	}
	return classifyErrorByStatus(status)
}

func (cohereParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "cohere", "body is not an object").Error())
	}
	if errInfo, isErr := extractTopLevelError(m, classifyCohereErrorType); isErr {
		return succeed(UnifiedResponse{Provider: "cohere", Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	var warnings []string

	text, hasText := m["text"].(string)
	if !hasText {
		if gens, ok := getSlice(m, "generations"); ok && len(gens) > 0 {
			if first, ok := gens[0].(map[string]any); ok {
				text = getString(first, "text")
			}
		}
	}

	var blocks []ContentBlock
	if text != "" {
		blocks = append(blocks, TextBlock(text))
	}
	if toolCalls, ok := getSlice(m, "tool_calls"); ok {
		for _, tc := range toolCalls {
			tcm, ok := tc.(map[string]any)
			if !ok {
				continue
			}
			blocks = append(blocks, ToolUseBlock("", getString(tcm, "name"), tcm["parameters"]))
		}
	}

	stopRaw := getStringPtr(m, "finish_reason")
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("cohere", stopRaw)
	warnings = append(warnings, stopWarnings...)

	metaMap, _ := getMap(m, "meta")
	tokensMap, _ := getMap(metaMap, "tokens")
	input := getInt(tokensMap, "input_tokens")
	output := getInt(tokensMap, "output_tokens")

	model := getString(m, "model")
	if model == "" {
		model = "command-r-plus"
	}
	id := getString(m, "generation_id")
	if id == "" {
		id = synthesizeID("cohere", model)
	}

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if extra := extraFields(m, "generation_id", "text", "generations", "tool_calls", "finish_reason", "meta", "model"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         id,
		Provider:   "cohere",
		Model:      ModelRef{ID: model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: input + output},
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// --- Streaming: Cohere discriminates on `event_type` rather than `type`. ---

type cohereStream struct {
	state *StreamState
	model string
	stop  *string
	usage TokenUsage

	// Cohere sends each tool call whole in one tool-calls-generation event,
	// so there is nothing to accumulate via StreamState; remember the blocks
	// for Finalize.
	toolCalls []ContentBlock
}

func (cohereParser) NewStream() StreamParser {
	return &cohereStream{state: NewStreamState(0)}
}

func (s *cohereStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	m, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "cohere", "stream chunk is not an object").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	switch getString(m, "event_type") {
	case "stream-start":
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStart, Raw: chunkAny})
	case "text-generation":
		text := getString(m, "text")
		contentWarnings := s.state.AccumulateContent(0, text)
		warnings = append(warnings, contentWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: 0, DeltaText: text, Raw: chunkAny})
	case "tool-calls-generation":
		if toolCalls, ok := getSlice(m, "tool_calls"); ok {
			for _, tc := range toolCalls {
				tcm, ok := tc.(map[string]any)
				if !ok {
					continue
				}
				block := ToolUseBlock("", getString(tcm, "name"), tcm["parameters"])
				s.toolCalls = append(s.toolCalls, block)
				chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStart, Index: 0, Block: &block, Raw: chunkAny})
			}
		}
	case "stream-end":
		if fr := getString(m, "finish_reason"); fr != "" {
			s.stop = &fr
		}
		if resp, ok := getMap(m, "response"); ok {
			if model := getString(resp, "model"); model != "" {
				s.model = model
			}
			metaMap, _ := getMap(resp, "meta")
			tokensMap, _ := getMap(metaMap, "tokens")
			s.usage.InputTokens = getInt(tokensMap, "input_tokens")
			s.usage.OutputTokens = getInt(tokensMap, "output_tokens")
			s.usage.TotalTokens = s.usage.InputTokens + s.usage.OutputTokens
		}
		reason, _, _, stopWarnings := MapStopReason("cohere", s.stop)
		warnings = append(warnings, stopWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
		resp := UnifiedStreamResponse{Provider: "cohere", Model: s.model, Chunks: chunks, StopReason: reason, Metadata: map[string]any{"streamingMetrics": s.state.StreamingMetrics()}}
		return succeed(resp, warnings)
	default:
		warnings = append(warnings, "unrecognized cohere stream event_type: "+getString(m, "event_type"))
	}

	return succeed(UnifiedStreamResponse{Provider: "cohere", Model: s.model, Chunks: chunks, Metadata: map[string]any{}}, warnings)
}

func (s *cohereStream) Finalize() Result[UnifiedResponse] {
	var warnings []string
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	blocks = append(blocks, s.toolCalls...)
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("cohere", s.stop)
	warnings = append(warnings, stopWarnings...)

	model := s.model
	if model == "" {
		model = "command-r-plus"
	}
	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stop)

	resp := UnifiedResponse{
		ID:         synthesizeID("cohere", model),
		Provider:   "cohere",
		Model:      ModelRef{ID: model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      s.usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
