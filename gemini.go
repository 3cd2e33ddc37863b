package unillm

import "strings"

// geminiParser implements Parser for Google's Gemini generateContent API:
// candidates with content.parts, camelCase usageMetadata, and a "model"
// role that normalizes to assistant.
type geminiParser struct{}

func newGeminiParser() Parser { return &geminiParser{} }

func (geminiParser) ID() string { return "gemini" }

func (geminiParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "gemini",
		Name:               "Google Gemini",
		BaseURL:            "https://generativelanguage.googleapis.com/v1beta",
		AuthenticationType: "query_key",
		Capabilities: ProviderCapabilities{
			Streaming: true, FunctionCalling: true, Vision: true, JSONMode: true,
			Modalities: []string{"text", "image", "audio", "video"},
		},
		Models: []string{"gemini-2.0-flash", "gemini-1.5-pro", "gemini-1.5-flash"},
	}
}

func (geminiParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if url != "" && strings.Contains(url, "generativelanguage.googleapis.com") {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	candidates, ok := getSlice(m, "candidates")
	if !ok || len(candidates) == 0 {
		return "", false
	}
	first, ok := candidates[0].(map[string]any)
	if !ok {
		return "", false
	}
	if content, ok := getMap(first, "content"); ok {
		if _, ok := getSlice(content, "parts"); ok {
			return MethodResponseShape, true
		}
	}
	return "", false
}

func (geminiParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "gemini", "body is not an object").Error())
	}
	if errInfo, isErr := extractTopLevelError(m, classifyGeminiErrorType); isErr {
		return succeed(UnifiedResponse{Provider: "gemini", Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	candidates, ok := getSlice(m, "candidates")
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrShapeMismatch, "gemini", "Parse error: missing candidates").Error())
	}

	var warnings []string
	messages := make([]Message, 0, len(candidates))
	var stopRaw *string
	var safetyRatings []any

	for _, raw := range candidates {
		cand, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content, _ := getMap(cand, "content")
		role, roleWarnings := NormalizeRole(getString(content, "role"))
		warnings = append(warnings, roleWarnings...)

		var blocks []ContentBlock
		parts, _ := getSlice(content, "parts")
		for _, p := range parts {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok {
				blocks = append(blocks, TextBlock(text))
				continue
			}
			if fc, ok := getMap(part, "functionCall"); ok {
				blocks = append(blocks, ToolUseBlock("", getString(fc, "name"), fc["args"]))
				continue
			}
			if _, ok := part["functionResponse"]; ok {
				fr, _ := getMap(part, "functionResponse")
				blocks = append(blocks, ToolResultBlock(getString(fr, "name"), fr["response"]))
			}
		}
		messages = append(messages, Message{Role: role, Content: blocks})

		if fr := getString(cand, "finishReason"); fr != "" {
			stopRaw = &fr
		}
		if ratings, ok := getSlice(cand, "safetyRatings"); ok {
			safetyRatings = append(safetyRatings, ratings...)
		}
	}

	stopReason, stopConfidence, _, stopWarnings := MapStopReason("gemini", stopRaw)
	warnings = append(warnings, stopWarnings...)

	usageMap, _ := getMap(m, "usageMetadata")
	input := getInt(usageMap, "promptTokenCount")
	output := getInt(usageMap, "candidatesTokenCount")
	total, totalWarnings := reconcileTotalTokens(getInt(usageMap, "totalTokenCount"), input, output)
	warnings = append(warnings, totalWarnings...)

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if len(safetyRatings) > 0 {
		metadata["safety_ratings"] = safetyRatings
	}
	if extra := extraFields(m, "candidates", "usageMetadata", "modelVersion"); extra != nil {
		metadata["extra"] = extra
	}

	model := getString(m, "modelVersion")
	resp := UnifiedResponse{
		ID:         synthesizeID("gemini", model),
		Provider:   "gemini",
		Model:      ModelRef{ID: model},
		Messages:   messages,
		StopReason: stopReason,
		Usage:      TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: total},
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

func classifyGeminiErrorType(errType string, status int) ErrorFamily {
	switch strings.ToUpper(errType) {
	case "PERMISSION_DENIED", "UNAUTHENTICATED":
		return ErrAuthentication
	case "RESOURCE_EXHAUSTED":
		return ErrRateLimit
	case "INVALID_ARGUMENT", "FAILED_PRECONDITION", "NOT_FOUND":
		return ErrInvalidRequest
	case "UNAVAILABLE", "INTERNAL":
		return ErrServer
	}
	return classifyErrorByStatus(status)
}

// --- Streaming ---

type geminiStream struct {
	state         *StreamState
	model         string
	stop          *string
	usage         TokenUsage
	functionCalls []ContentBlock
}

func (geminiParser) NewStream() StreamParser {
	return &geminiStream{state: NewStreamState(0)}
}

func (s *geminiStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	m, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "gemini", "stream chunk is not an object").Error())
	}
	if model := getString(m, "modelVersion"); model != "" {
		s.model = model
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	candidates, _ := getSlice(m, "candidates")
	for ci, raw := range candidates {
		cand, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		content, _ := getMap(cand, "content")
		parts, _ := getSlice(content, "parts")
		for _, p := range parts {
			part, ok := p.(map[string]any)
			if !ok {
				continue
			}
			if text, ok := part["text"].(string); ok && text != "" {
				contentWarnings := s.state.AccumulateContent(ci, text)
				warnings = append(warnings, contentWarnings...)
				chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: ci, DeltaText: text, Raw: chunkAny})
			}
			if fc, ok := getMap(part, "functionCall"); ok {
				block := ToolUseBlock("", getString(fc, "name"), fc["args"])
				// Gemini sends each functionCall whole in a single chunk, unlike
				// OpenAI's fragmented arguments, so there's nothing to
				// accumulate via StreamState; just remember it for Finalize.
				s.functionCalls = append(s.functionCalls, block)
				chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStart, Index: ci, Block: &block, Raw: chunkAny})
			}
		}
		if fr := getString(cand, "finishReason"); fr != "" {
			s.stop = &fr
		}
	}

	if usageMap, ok := getMap(m, "usageMetadata"); ok {
		s.usage.InputTokens = getInt(usageMap, "promptTokenCount")
		s.usage.OutputTokens = getInt(usageMap, "candidatesTokenCount")
		total, totalWarnings := reconcileTotalTokens(getInt(usageMap, "totalTokenCount"), s.usage.InputTokens, s.usage.OutputTokens)
		s.usage.TotalTokens = total
		warnings = append(warnings, totalWarnings...)
	}

	resp := UnifiedStreamResponse{Provider: "gemini", Model: s.model, Chunks: chunks, Metadata: map[string]any{}}
	if s.stop != nil {
		reason, _, _, stopWarnings := MapStopReason("gemini", s.stop)
		warnings = append(warnings, stopWarnings...)
		resp.StopReason = reason
		resp.Metadata["streamingMetrics"] = s.state.StreamingMetrics()
	}
	return succeed(resp, warnings)
}

func (s *geminiStream) Finalize() Result[UnifiedResponse] {
	var warnings []string
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	blocks = append(blocks, s.functionCalls...)
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("gemini", s.stop)
	warnings = append(warnings, stopWarnings...)

	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stop)

	resp := UnifiedResponse{
		ID:         synthesizeID("gemini", s.model),
		Provider:   "gemini",
		Model:      ModelRef{ID: s.model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      s.usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
