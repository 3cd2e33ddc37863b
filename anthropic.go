package unillm

import "strings"

// anthropicParser implements Parser for Anthropic's Messages API: typed
// content blocks in the body, an event-driven SSE dialect on the stream
// side. Operates on an already-decoded value, never a transport body.
type anthropicParser struct{}

func newAnthropicParser() Parser { return &anthropicParser{} }

func (anthropicParser) ID() string { return "anthropic" }

func (anthropicParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "anthropic",
		Name:               "Anthropic",
		APIVersion:         "2023-06-01",
		BaseURL:            "https://api.anthropic.com/v1",
		AuthenticationType: "x-api-key",
		Capabilities: ProviderCapabilities{
			Streaming: true, FunctionCalling: true, Vision: true,
			Modalities: []string{"text", "image"},
		},
		Models: []string{"claude-opus-4", "claude-sonnet-4", "claude-3-5-sonnet"},
	}
}

func (anthropicParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if _, ok := headerLookup(headers, "anthropic-version"); ok {
		return MethodHeader, true
	}
	if headerHasPrefix(headers, "x-api-key", "sk-ant-") {
		return MethodHeader, true
	}
	if v, ok := headerLookup(headers, "authorization"); ok && strings.Contains(v, "sk-ant-") {
		return MethodHeader, true
	}
	if url != "" && strings.Contains(url, "api.anthropic.com") {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if getString(m, "type") == "message" {
		if content, ok := getSlice(m, "content"); ok {
			if len(content) == 0 {
				return MethodResponseShape, true
			}
			if first, ok := content[0].(map[string]any); ok && hasKey(first, "type") {
				return MethodResponseShape, true
			}
		}
	}
	return "", false
}

func classifyAnthropicErrorType(errType string, status int) ErrorFamily {
	switch errType {
	case "authentication_error", "permission_error":
		return ErrAuthentication
	case "rate_limit_error":
		return ErrRateLimit
	case "invalid_request_error", "not_found_error", "request_too_large":
		return ErrInvalidRequest
	case "api_error":
		return ErrServer
	case "overloaded_error":
		return ErrOverloaded
	}
	return classifyErrorByStatus(status)
}

func (anthropicParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "anthropic", "body is not an object").Error())
	}

	if getString(m, "type") == "error" {
		errMap, _ := getMap(m, "error")
		errInfo := &ErrorInfo{
			Type:    classifyAnthropicErrorType(getString(errMap, "type"), 0),
			Message: getString(errMap, "message"),
			Details: map[string]any{},
		}
		return succeed(UnifiedResponse{Provider: "anthropic", Error: errInfo, Metadata: map[string]any{}}, nil)
	}
	if errInfo, isErr := extractTopLevelError(m, classifyAnthropicErrorType); isErr {
		return succeed(UnifiedResponse{Provider: "anthropic", Model: ModelRef{ID: getString(m, "model")}, Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	var warnings []string

	role, roleWarnings := NormalizeRole(getString(m, "role"))
	warnings = append(warnings, roleWarnings...)

	content, _ := getSlice(m, "content")
	blocks := make([]ContentBlock, 0, len(content))
	reasoningParts := make([]string, 0)
	for _, raw := range content {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch getString(block, "type") {
		case "text":
			blocks = append(blocks, TextBlock(getString(block, "text")))
		case "tool_use":
			blocks = append(blocks, ToolUseBlock(getString(block, "id"), getString(block, "name"), block["input"]))
		case "thinking":
			if t := getString(block, "thinking"); t != "" {
				reasoningParts = append(reasoningParts, t)
			}
		default:
			warnings = append(warnings, "unrecognized content block type: "+getString(block, "type"))
		}
	}

	stopRaw := getStringPtr(m, "stop_reason")
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("anthropic", stopRaw)
	warnings = append(warnings, stopWarnings...)

	usageMap, _ := getMap(m, "usage")
	input := getInt(usageMap, "input_tokens")
	output := getInt(usageMap, "output_tokens")
	usage := TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: input + output}
	usageMeta := map[string]any{}
	if v := getInt(usageMap, "cache_creation_input_tokens"); v > 0 {
		usageMeta["cache_creation_input_tokens"] = v
	}
	if v := getInt(usageMap, "cache_read_input_tokens"); v > 0 {
		usageMeta["cache_read_input_tokens"] = v
	}
	if len(usageMeta) > 0 {
		usage.Metadata = usageMeta
	}

	id := getString(m, "id")
	model := getString(m, "model")
	if id == "" {
		id = synthesizeID("anthropic", model)
	}

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if len(reasoningParts) > 0 {
		metadata["reasoning"] = strings.Join(reasoningParts, "\n")
	}
	if extra := extraFields(m, "id", "type", "role", "model", "content", "stop_reason", "stop_sequence", "usage"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         id,
		Provider:   "anthropic",
		Model:      ModelRef{ID: model},
		Messages:   []Message{{Role: role, Content: blocks}},
		StopReason: stopReason,
		Usage:      usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// --- Streaming: the event-driven state machine. ---

type anthropicStreamPhase int

const (
	phaseInit anthropicStreamPhase = iota
	phaseMessageStarted
	phaseMessageStopped
)

type anthropicStream struct {
	state   *StreamState
	phase   anthropicStreamPhase
	model   string
	id      string
	stopRaw *string
	usage   TokenUsage
	open    map[int]bool
}

func (anthropicParser) NewStream() StreamParser {
	return &anthropicStream{state: NewStreamState(0), open: map[int]bool{}}
}

// ParseChunk implements the Anthropic SSE event state machine. Missing or
// unknown `type` is fatal; a content_block_delta missing `delta` or
// `index` is fatal. Out-of-order block open/close is tolerated with a
// warning.
func (s *anthropicStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	chunk, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "anthropic", "stream chunk is not an object").Error())
	}
	eventType, hasType := chunk["type"].(string)
	if !hasType || eventType == "" {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "anthropic", "missing event type").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	switch eventType {
	case "message_start":
		if s.phase != phaseInit {
			warnings = append(warnings, "message_start received out of order")
		}
		s.phase = phaseMessageStarted
		if msg, ok := getMap(chunk, "message"); ok {
			s.id = getString(msg, "id")
			s.model = getString(msg, "model")
		}
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStart, Raw: chunkAny})

	case "content_block_start":
		index, hasIndex := chunk["index"]
		block, _ := getMap(chunk, "content_block")
		if !hasIndex {
			return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "anthropic", "content_block_start missing index").Error())
		}
		idx := anyToInt(index)
		if s.phase != phaseMessageStarted || s.open[idx] {
			warnings = append(warnings, "content_block_start received out of order")
		}
		s.open[idx] = true
		var ub *ContentBlock
		switch getString(block, "type") {
		case "tool_use":
			b := ToolUseBlock(getString(block, "id"), getString(block, "name"), map[string]any{})
			ub = &b
			// Register id/name now so the input_json_delta fragments that
			// follow have something to accumulate onto (stream.go's
			// pendingToolCall requires both before it considers itself
			// complete).
			_, _, toolWarnings := s.state.AccumulateToolCall(idx, getString(block, "id"), getString(block, "name"), "")
			warnings = append(warnings, toolWarnings...)
		case "text":
			b := TextBlock("")
			ub = &b
		}
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStart, Index: idx, Block: ub, Raw: chunkAny})

	case "content_block_delta":
		indexRaw, hasIndex := chunk["index"]
		delta, hasDelta := getMap(chunk, "delta")
		if !hasIndex || !hasDelta {
			return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "anthropic", "content_block_delta missing delta or index").Error())
		}
		idx := anyToInt(indexRaw)
		switch getString(delta, "type") {
		case "text_delta":
			text := getString(delta, "text")
			contentWarnings := s.state.AccumulateContent(idx, text)
			warnings = append(warnings, contentWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: idx, DeltaText: text, Raw: chunkAny})
		case "input_json_delta":
			partial := getString(delta, "partial_json")
			_, _, toolWarnings := s.state.AccumulateToolCall(idx, "", "", partial)
			warnings = append(warnings, toolWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: idx, DeltaText: partial, Raw: chunkAny})
		case "thinking_delta", "signature_delta":
			// Reasoning content is outside the ContentBlock variant set.
			// These deltas are not accumulated; neither this chunk nor
			// Finalize surfaces them.
		default:
			warnings = append(warnings, "unrecognized content delta type: "+getString(delta, "type"))
		}

	case "content_block_stop":
		indexRaw, hasIndex := chunk["index"]
		if !hasIndex {
			warnings = append(warnings, "content_block_stop missing index")
			break
		}
		idx := anyToInt(indexRaw)
		if !s.open[idx] {
			warnings = append(warnings, "content_block_stop for unopened index")
		}
		delete(s.open, idx)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStop, Index: idx, Raw: chunkAny})

	case "message_delta":
		if delta, ok := getMap(chunk, "delta"); ok {
			s.stopRaw = getStringPtr(delta, "stop_reason")
		}
		if usageMap, ok := getMap(chunk, "usage"); ok {
			s.usage.OutputTokens = getInt(usageMap, "output_tokens")
			s.usage.TotalTokens = s.usage.InputTokens + s.usage.OutputTokens
		}
		reason, _, _, stopWarnings := MapStopReason("anthropic", s.stopRaw)
		warnings = append(warnings, stopWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageDelta, StopReason: reason, Raw: chunkAny})

	case "message_stop":
		s.phase = phaseMessageStopped
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})

	case "ping":
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkPing, Raw: chunkAny})

	case "error":
		errMap, _ := getMap(chunk, "error")
		errInfo := &ErrorInfo{
			Type:    classifyAnthropicErrorType(getString(errMap, "type"), 0),
			Message: getString(errMap, "message"),
			Details: map[string]any{},
		}
		return succeed(UnifiedStreamResponse{Provider: "anthropic", Model: s.model, Error: errInfo, Metadata: map[string]any{}}, nil)

	default:
		return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "anthropic", "unknown event type: "+eventType).Error())
	}

	resp := UnifiedStreamResponse{Provider: "anthropic", Model: s.model, Chunks: chunks, Metadata: map[string]any{}}
	if s.phase == phaseMessageStopped {
		resp.StopReason, _, _, _ = MapStopReason("anthropic", s.stopRaw)
		resp.Metadata["streamingMetrics"] = s.state.StreamingMetrics()
	}
	return succeed(resp, warnings)
}

func (s *anthropicStream) Finalize() Result[UnifiedResponse] {
	var warnings []string
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	toolBlocks, toolWarnings := s.state.FinalizeToolCalls()
	warnings = append(warnings, toolWarnings...)
	blocks = append(blocks, toolBlocks...)

	stopReason, stopConfidence, _, stopWarnings := MapStopReason("anthropic", s.stopRaw)
	warnings = append(warnings, stopWarnings...)

	id := s.id
	if id == "" {
		id = synthesizeID("anthropic", s.model)
	}

	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stopRaw)

	resp := UnifiedResponse{
		ID:         id,
		Provider:   "anthropic",
		Model:      ModelRef{ID: s.model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      s.usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
