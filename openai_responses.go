package unillm

import "strings"

// openaiResponsesParser implements Parser for OpenAI's Responses API, a
// distinct wire shape from chat.completion: an `output` array of typed
// items instead of `choices`, with a `status` field in place of
// finish_reason.
type openaiResponsesParser struct{}

func newOpenAIResponsesParser() Parser { return &openaiResponsesParser{} }

func (openaiResponsesParser) ID() string { return "openai_responses" }

func (openaiResponsesParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 "openai_responses",
		Name:               "OpenAI Responses API",
		BaseURL:            "https://api.openai.com/v1",
		AuthenticationType: "bearer",
		Capabilities: ProviderCapabilities{
			FunctionCalling: true, Vision: true, JSONMode: true,
			Modalities: []string{"text", "image"},
		},
		Models: []string{"gpt-4o", "gpt-4.1", "o1", "o3"},
	}
}

// openaiResponsesStream rejects every chunk: the Responses API's SSE
// dialect (response.output_text.delta events) is not implemented, and
// failing fast beats misreading those events as chat-completion deltas.
type openaiResponsesStream struct{}

func (openaiResponsesParser) NewStream() StreamParser { return openaiResponsesStream{} }

func (openaiResponsesStream) ParseChunk(chunk any) Result[UnifiedStreamResponse] {
	return fail[UnifiedStreamResponse](nil, newParseError(ErrStreamProtocolViolation, "openai_responses", "streaming is not supported for the Responses API").Error())
}

func (openaiResponsesStream) Finalize() Result[UnifiedResponse] {
	return fail[UnifiedResponse](nil, newParseError(ErrStreamProtocolViolation, "openai_responses", "streaming is not supported for the Responses API").Error())
}

// Detect recognizes the Responses API's own envelope: `object: "response"`,
// or an `output` array alongside `output_text` or `status`, as opposed to
// chat.completion's `choices` array.
func (openaiResponsesParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	m, ok := asMap(body)
	if !ok {
		return "", false
	}
	if getString(m, "object") == "response" {
		return MethodResponseShape, true
	}
	if _, ok := getSlice(m, "output"); ok {
		if hasKey(m, "output_text") || hasKey(m, "status") {
			return MethodResponseShape, true
		}
	}
	return "", false
}

func (openaiResponsesParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, "openai_responses", "body is not an object").Error())
	}

	if errInfo, isErr := extractTopLevelError(m, classifyOpenAIErrorType); isErr {
		return succeed(UnifiedResponse{
			Provider: "openai_responses",
			Model:    ModelRef{ID: getString(m, "model")},
			Error:    errInfo,
			Metadata: map[string]any{},
		}, nil)
	}

	var warnings []string
	blocks, reasoningSummary, blockWarnings := parseResponsesOutput(m)
	warnings = append(warnings, blockWarnings...)

	status := getString(m, "status")
	stopReason, stopConfidence, _, stopWarnings := MapStopReason("openai_responses", &status)
	warnings = append(warnings, stopWarnings...)

	usageMap, _ := getMap(m, "usage")
	input := getInt(usageMap, "input_tokens")
	output := getInt(usageMap, "output_tokens")
	total, totalWarnings := reconcileTotalTokens(getInt(usageMap, "total_tokens"), input, output)
	warnings = append(warnings, totalWarnings...)

	usage := TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: total}
	if details, ok := getMap(usageMap, "output_tokens_details"); ok {
		if reasoning := getInt(details, "reasoning_tokens"); reasoning > 0 {
			usage.Metadata = map[string]any{"reasoning_tokens": reasoning}
		}
	}

	id := getString(m, "id")
	model := getString(m, "model")
	if id == "" {
		id = synthesizeID("openai_responses", model)
	}

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, &status)
	if reasoningSummary != "" {
		metadata["reasoning_summary"] = reasoningSummary
	}
	if extra := extraFields(m, "id", "object", "created_at", "model", "status", "output", "output_text", "usage", "error", "incomplete_details", "metadata"); extra != nil {
		metadata["extra"] = extra
	}

	resp := UnifiedResponse{
		ID:         id,
		Provider:   "openai_responses",
		Model:      ModelRef{ID: model},
		Messages:   []Message{{Role: RoleAssistant, Content: blocks}},
		StopReason: stopReason,
		Usage:      usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// parseResponsesOutput walks the `output` array, producing one content
// block per message/function_call item. Reasoning items carry no content
// block of their own; their summary text is returned separately for the
// caller to fold into response Metadata.
func parseResponsesOutput(m map[string]any) ([]ContentBlock, string, []string) {
	var warnings []string
	var blocks []ContentBlock
	var reasoningSummary string

	output, _ := getSlice(m, "output")
	for _, raw := range output {
		item, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		switch getString(item, "type") {
		case "message":
			content, _ := getSlice(item, "content")
			for _, c := range content {
				cm, ok := c.(map[string]any)
				if !ok {
					continue
				}
				if text := getString(cm, "text"); text != "" {
					blocks = append(blocks, TextBlock(text))
				}
			}
		case "function_call", "tool_call":
			name := getString(item, "name")
			argsText := getString(item, "arguments")
			if name == "" && argsText == "" {
				continue
			}
			value, argWarnings := SafeParseJSON(argsText)
			warnings = append(warnings, argWarnings...)
			if value == nil {
				warnings = append(warnings, "suppressed tool_use block: unparseable arguments for "+name)
				continue
			}
			callID := getString(item, "call_id")
			if callID == "" {
				callID = getString(item, "id")
			}
			blocks = append(blocks, ToolUseBlock(callID, name, value))
		case "reasoning":
			summary, _ := getSlice(item, "summary")
			var parts []string
			for _, s := range summary {
				sm, ok := s.(map[string]any)
				if !ok {
					continue
				}
				if text := getString(sm, "text"); text != "" {
					parts = append(parts, text)
				}
			}
			if len(parts) > 0 {
				reasoningSummary = strings.Join(parts, "\n")
			}
		}
	}
	if len(blocks) == 0 {
		if text := getString(m, "output_text"); text != "" {
			blocks = append(blocks, TextBlock(text))
		}
	}
	return blocks, reasoningSummary, warnings
}
