package unillm

// compatStream implements the OpenAI-family streaming dialect: delta
// fragments per choice, fragmented tool-call arguments per index. One
// instance is owned by exactly one logical stream.
type compatStream struct {
	profile compatProfile
	state   *StreamState
	started bool
	stopRaw *string
	model   string
	usage   *TokenUsage
}

func (c *compatParser) NewStream() StreamParser {
	return &compatStream{profile: c.profile, state: NewStreamState(0)}
}

func (s *compatStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	chunk, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, s.profile.id, "stream chunk is not an object").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	if !s.started {
		s.started = true
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStart, Raw: chunkAny})
	}
	if model := getString(chunk, "model"); model != "" {
		s.model = model
	}

	choices, _ := getSlice(chunk, "choices")
	for _, raw := range choices {
		choice, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		index := getInt(choice, "index")
		delta, _ := getMap(choice, "delta")

		if text, ok := delta["content"].(string); ok && text != "" {
			contentWarnings := s.state.AccumulateContent(index, text)
			warnings = append(warnings, contentWarnings...)
			chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: index, DeltaText: text, Raw: chunkAny})
		}

		if toolCalls, ok := getSlice(delta, "tool_calls"); ok {
			for _, tc := range toolCalls {
				tcm, ok := tc.(map[string]any)
				if !ok {
					continue
				}
				tcIndex := getInt(tcm, "index")
				fn, _ := getMap(tcm, "function")
				value, complete, toolWarnings := s.state.AccumulateToolCall(tcIndex, getString(tcm, "id"), getString(fn, "name"), getString(fn, "arguments"))
				warnings = append(warnings, toolWarnings...)
				if complete {
					block := ToolUseBlock(s.toolCallID(tcIndex), s.toolCallName(tcIndex), value)
					chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockStart, Index: tcIndex, Block: &block, Raw: chunkAny})
				}
			}
		}

		if fr := getString(choice, "finish_reason"); fr != "" {
			s.stopRaw = &fr
		}
	}

	if usageMap, ok := getMap(chunk, "usage"); ok {
		u, usageWarnings := parseCompatUsage(map[string]any{"usage": usageMap}, s.profile.cache)
		s.usage = &u
		warnings = append(warnings, usageWarnings...)
	}

	if s.stopRaw != nil {
		reason, _, _, stopWarnings := MapStopReason(s.profile.id, s.stopRaw)
		warnings = append(warnings, stopWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageDelta, StopReason: reason, Raw: chunkAny})
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
	}

	resp := UnifiedStreamResponse{
		Provider: s.profile.id,
		Model:    s.model,
		Chunks:   chunks,
		Metadata: map[string]any{},
	}
	if s.stopRaw != nil {
		resp.StopReason, _, _, _ = MapStopReason(s.profile.id, s.stopRaw)
		resp.Metadata["streamingMetrics"] = s.state.StreamingMetrics()
	}
	return succeed(resp, warnings)
}

func (s *compatStream) toolCallID(index int) string {
	if e, ok := s.state.toolCalls[index]; ok {
		return e.id
	}
	return ""
}

func (s *compatStream) toolCallName(index int) string {
	if e, ok := s.state.toolCalls[index]; ok {
		return e.name
	}
	return ""
}

// Finalize aggregates everything the stream accumulated into a
// UnifiedResponse.
func (s *compatStream) Finalize() Result[UnifiedResponse] {
	var warnings []string

	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	toolBlocks, toolWarnings := s.state.FinalizeToolCalls()
	warnings = append(warnings, toolWarnings...)
	blocks = append(blocks, toolBlocks...)

	stopReason, stopConfidence, _, stopWarnings := MapStopReason(s.profile.id, s.stopRaw)
	warnings = append(warnings, stopWarnings...)

	usage := TokenUsage{}
	if s.usage != nil {
		usage = *s.usage
	}

	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stopRaw)

	resp := UnifiedResponse{
		ID:         synthesizeID(s.profile.id, s.model),
		Provider:   s.profile.id,
		Model:      ModelRef{ID: s.model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
