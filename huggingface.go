package unillm

import "strings"

// huggingfaceParser implements Parser for the Hugging Face Inference API /
// Text Generation Inference (TGI) server.
type huggingfaceParser struct{}

func newHuggingFaceParser() Parser { return &huggingfaceParser{} }

func (huggingfaceParser) ID() string { return "huggingface" }

func (huggingfaceParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "huggingface",
		Name:               "Hugging Face Inference API",
		BaseURL:            "https://api-inference.huggingface.co",
		AuthenticationType: "bearer",
		Capabilities:       ProviderCapabilities{Streaming: true, Modalities: []string{"text"}},
		Models:             []string{"meta-llama/Llama-3.3-70B-Instruct", "mistralai/Mixtral-8x7B-Instruct-v0.1"},
	}
}

func (huggingfaceParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	if url != "" && strings.Contains(url, "api-inference.huggingface.co") {
		return MethodURL, true
	}
	raw, ok := body.([]any)
	if ok && len(raw) > 0 {
		if first, ok := raw[0].(map[string]any); ok && hasKey(first, "generated_text") {
			return MethodResponseShape, true
		}
	}
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if hasKey(m, "generated_text") {
		return MethodResponseShape, true
	}
	if details, ok := getMap(m, "details"); ok && hasKey(details, "finish_reason") {
		return MethodResponseShape, true
	}
	return "", false
}

func (huggingfaceParser) Parse(body any) Result[UnifiedResponse] {
	// TGI batch responses are sometimes a bare JSON array of one object.
	if arr, ok := body.([]any); ok && len(arr) > 0 {
		body = arr[0]
	}
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "huggingface", "body is not an object").Error())
	}
	// HuggingFace reports cold-start as a bare string error (e.g. "model
	// loading"); checked ahead of the generic extraction below since a
	// string `error` value there carries no type field to classify from.
	if errStr, ok := m["error"].(string); ok && errStr != "" {
		family := ErrUnknownFamily
		if strings.Contains(strings.ToLower(errStr), "loading") {
			family = ErrServer
		}
		return succeed(UnifiedResponse{
			Provider: "huggingface",
			Error:    &ErrorInfo{Type: family, Message: errStr, Details: map[string]any{}},
			Metadata: map[string]any{},
		}, nil)
	}
	if errInfo, isErr := extractTopLevelError(m, func(t string, s int) ErrorFamily {
		if strings.Contains(strings.ToLower(t), "loading") {
			return ErrServer
		}
		return classifyErrorByStatus(s)
	}); isErr {
		return succeed(UnifiedResponse{Provider: "huggingface", Error: errInfo, Metadata: map[string]any{}}, nil)
	}

	var warnings []string
	var messages []Message

	if conv, ok := getMap(m, "conversation"); ok {
		pastInputs, _ := getSlice(conv, "past_user_inputs")
		generated, _ := getSlice(conv, "generated_responses")
		for i := 0; i < len(pastInputs); i++ {
			if text, ok := pastInputs[i].(string); ok {
				messages = append(messages, Message{Role: RoleUser, Content: []ContentBlock{TextBlock(text)}})
			}
			if i < len(generated) {
				if text, ok := generated[i].(string); ok {
					messages = append(messages, Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}})
				}
			}
		}
	}

	text := getString(m, "generated_text")
	if text == "" {
		if choices, ok := getSlice(m, "choices"); ok && len(choices) > 0 {
			if first, ok := choices[0].(map[string]any); ok {
				if msg, ok := getMap(first, "message"); ok {
					text, _ = msg["content"].(string)
				}
			}
		}
	}
	messages = append(messages, Message{Role: RoleAssistant, Content: []ContentBlock{TextBlock(text)}})

	details, _ := getMap(m, "details")
	stopRaw := getStringPtr(details, "finish_reason")
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("huggingface", stopRaw)
	warnings = append(warnings, stopWarnings...)

	output := getInt(details, "generated_tokens")
	input := getInt(details, "prefill_length")

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if extra := extraFields(m, "generated_text", "conversation", "choices", "details"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         synthesizeID("huggingface", ""),
		Provider:   "huggingface",
		Messages:   messages,
		StopReason: stopReason,
		Usage:      TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: input + output},
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// --- Streaming: TGI's token-shaped SSE events. ---

type huggingfaceStream struct {
	state *StreamState
	stop  *string
}

func (huggingfaceParser) NewStream() StreamParser {
	return &huggingfaceStream{state: NewStreamState(0)}
}

func (s *huggingfaceStream) ParseChunk(chunkAny any) Result[UnifiedStreamResponse] {
	s.state.InitMetrics()
	s.state.IncChunksProcessed()

	m, ok := asMap(chunkAny)
	if !ok {
		return fail[UnifiedStreamResponse](nil, newParseError(ErrInvalidInput, "huggingface", "stream chunk is not an object").Error())
	}

	var warnings []string
	var chunks []UnifiedStreamChunk

	if token, ok := getMap(m, "token"); ok {
		text := getString(token, "text")
		contentWarnings := s.state.AccumulateContent(0, text)
		warnings = append(warnings, contentWarnings...)
		chunks = append(chunks, UnifiedStreamChunk{Kind: ChunkContentBlockDelta, Index: 0, DeltaText: text, Raw: chunkAny})
	}

	resp := UnifiedStreamResponse{Provider: "huggingface", Chunks: chunks, Metadata: map[string]any{}}
	if details, ok := getMap(m, "details"); ok {
		if fr := getStringPtr(details, "finish_reason"); fr != nil {
			s.stop = fr
			reason, _, _, stopWarnings := MapStopReason("huggingface", fr)
			warnings = append(warnings, stopWarnings...)
			resp.StopReason = reason
			resp.Chunks = append(resp.Chunks, UnifiedStreamChunk{Kind: ChunkMessageStop, Raw: chunkAny})
			resp.Metadata["streamingMetrics"] = s.state.StreamingMetrics()
		}
	}
	return succeed(resp, warnings)
}

func (s *huggingfaceStream) Finalize() Result[UnifiedResponse] {
	var blocks []ContentBlock
	for _, index := range s.state.order {
		blocks = append(blocks, TextBlock(s.state.ContentFor(index)))
	}
	stopReason, stopConfidence, _, warnings := MapStopReason("huggingface", s.stop)
	metadata := map[string]any{"streamingMetrics": s.state.StreamingMetrics()}
	noteOriginalStopReason(metadata, stopConfidence, s.stop)
	resp := UnifiedResponse{
		ID:         synthesizeID("huggingface", ""),
		Provider:   "huggingface",
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}
