package unillm

import "strings"

// bedrockParser implements Parser for AWS Bedrock's Converse API. SigV4
// signing is transport and happens upstream of this package.
type bedrockParser struct{}

func newBedrockParser() Parser { return &bedrockParser{} }

func (bedrockParser) ID() string { return "bedrock" }

func (bedrockParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "bedrock",
		Name:               "AWS Bedrock",
		AuthenticationType: "sigv4",
		Capabilities:       ProviderCapabilities{Streaming: true, FunctionCalling: true, Vision: true, Modalities: []string{"text", "image"}},
		Models:             []string{"anthropic.claude-3-5-sonnet", "meta.llama3-70b-instruct", "amazon.titan-text-express"},
	}
}

func (bedrockParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if url != "" && strings.Contains(url, "bedrock") {
		return MethodURL, true
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	output, ok := getMap(m, "output")
	if !ok {
		return "", false
	}
	if _, ok := getMap(output, "message"); ok {
		return MethodResponseShape, true
	}
	return "", false
}

func (bedrockParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "bedrock", "body is not an object").Error())
	}
	if errInfo, isErr := extractTopLevelError(m, func(t string, s int) ErrorFamily { return classifyErrorByStatus(s) }); isErr {
		return succeed(UnifiedResponse{Provider: "bedrock", Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	output, ok := getMap(m, "output")
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrShapeMismatch, "bedrock", "Parse error: missing output").Error())
	}
	message, _ := getMap(output, "message")
	role, warnings := NormalizeRole(getString(message, "role"))

	content, _ := getSlice(message, "content")
	var blocks []ContentBlock
	for _, raw := range content {
		block, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		if text, ok := block["text"].(string); ok {
			blocks = append(blocks, TextBlock(text))
		}
		if toolUse, ok := getMap(block, "toolUse"); ok {
			blocks = append(blocks, ToolUseBlock(getString(toolUse, "toolUseId"), getString(toolUse, "name"), toolUse["input"]))
		}
	}

	stopRaw := getStringPtr(m, "stopReason")
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("bedrock", stopRaw)
	warnings = append(warnings, stopWarnings...)

	usageMap, _ := getMap(m, "usage")
	input := getInt(usageMap, "inputTokens")
	output2 := getInt(usageMap, "outputTokens")
	total, totalWarnings := reconcileTotalTokens(getInt(usageMap, "totalTokens"), input, output2)
	warnings = append(warnings, totalWarnings...)

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if metrics, ok := getMap(m, "metrics"); ok {
		if latency, ok := metrics["latencyMs"]; ok {
			metadata["latency_ms"] = latency
		}
	}
	if extra := extraFields(m, "output", "stopReason", "usage", "metrics"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         synthesizeID("bedrock", ""),
		Provider:   "bedrock",
		Messages:   []Message{{Role: role, Content: blocks}},
		StopReason: stopReason,
		Usage:      TokenUsage{InputTokens: input, OutputTokens: output2, TotalTokens: total},
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// --- Streaming: each decoded event is a single-key object, e.g.
// {"contentBlockDelta": {...}}, {"messageStop": {...}}, {"metadata": {...}}. ---

type bedrockStream struct {
	state *StreamState
	stop  *string
	usage TokenUsage
}

func (bedrockParser) NewStream() StreamParser {
	return &bedrockStream{state: NewStreamState(0)}
}

func (s *bedrockStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	event, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "bedrock", "stream event is not an object").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	if _, ok := getMap(event, "messageStart"); ok {
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStart, Raw: chunkAny})
	}
	if data, ok := getMap(event, "contentBlockStart"); ok {
		idx := getInt(data, "contentBlockIndex")
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStart, Index: idx, Raw: chunkAny})
	}
	if data, ok := getMap(event, "contentBlockDelta"); ok {
		idx := getInt(data, "contentBlockIndex")
		delta, _ := getMap(data, "delta")
		if text, ok := delta["text"].(string); ok && text != "" {
			contentWarnings := s.state.AccumulateContent(idx, text)
			warnings = append(warnings, contentWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: idx, DeltaText: text, Raw: chunkAny})
		}
	}
	if data, ok := getMap(event, "contentBlockStop"); ok {
		idx := getInt(data, "contentBlockIndex")
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStop, Index: idx, Raw: chunkAny})
	}
	if data, ok := getMap(event, "messageStop"); ok {
		s.stop = getStringPtr(data, "stopReason")
		reason, _, _, stopWarnings := MapStopReason("bedrock", s.stop)
		warnings = append(warnings, stopWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
		resp := UnifiedStreamResponse{Provider: "bedrock", Chunks: chunks, StopReason: reason, Metadata: map[string]any{"streamingMetrics": s.state.StreamingMetrics()}}
		return succeed(resp, warnings)
	}
	if data, ok := getMap(event, "metadata"); ok {
		if usageMap, ok := getMap(data, "usage"); ok {
			s.usage.InputTokens = getInt(usageMap, "inputTokens")
			s.usage.OutputTokens = getInt(usageMap, "outputTokens")
			total, totalWarnings := reconcileTotalTokens(getInt(usageMap, "totalTokens"), s.usage.InputTokens, s.usage.OutputTokens)
			s.usage.TotalTokens = total
			warnings = append(warnings, totalWarnings...)
		}
	}

	return succeed(UnifiedStreamResponse{Provider: "bedrock", Chunks: chunks, Metadata: map[string]any{}}, warnings)
}

func (s *bedrockStream) Finalize() Result[UnifiedResponse] {
	var warnings []string
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("bedrock", s.stop)
	warnings = append(warnings, stopWarnings...)

	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stop)

	resp := UnifiedResponse{
		ID:         synthesizeID("bedrock", ""),
		Provider:   "bedrock",
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      s.usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
