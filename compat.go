package unillm

import "strings"

// cacheDialect selects how a compat provider reports prompt-cache token
// counts, since the field name differs across the OpenAI-compatible family.
type cacheDialect int

const (
	cacheDialectNone cacheDialect = iota
	cacheDialectPromptTokenDetails
	cacheDialectDeepSeek
)

// compatProfile captures everything that differs between OpenAI-compatible
// providers; everything else is shared by compatParser. Response-side
// concerns only, since this package never builds a request.
type compatProfile struct {
	id      string
	name    string
	baseURL string
	authType string

	hostSubstrings  []string
	headerNames     []string // presence alone is a positive signal
	modelSubstrings []string // model-id hint, e.g. "mistral", "grok"

	cache cacheDialect

	capabilities ProviderCapabilities
	models       []string
}

// compatParser is the shared Parser implementation for every provider that
// speaks the OpenAI chat-completion shape.
type compatParser struct {
	profile compatProfile
}

func newCompatParser(p compatProfile) *compatParser {
	return &compatParser{profile: p}
}

func (c *compatParser) ID() string { return c.profile.id }

func (c *compatParser) Metadata() ProviderMetadata {
	return ProviderMetadata{
		ID:                 c.profile.id,
		Name:               c.profile.name,
		BaseURL:            c.profile.baseURL,
		AuthenticationType: c.profile.authType,
		Capabilities:       c.profile.capabilities,
		Models:             c.profile.models,
	}
}

// isChatCompletionShape recognizes the generic OpenAI fingerprint shared by
// every compat provider: `object == "chat.completion"` OR a `choices`
// array whose entries carry `message.role`.
func isChatCompletionShape(body map[string]any) bool {
	if getString(body, "object") == "chat.completion" {
		return true
	}
	choices, ok := getSlice(body, "choices")
	if !ok || len(choices) == 0 {
		return false
	}
	first, ok := choices[0].(map[string]any)
	if !ok {
		return false
	}
	msg, ok := getMap(first, "message")
	if !ok {
		// A streaming-shaped single chunk fed to the non-stream detector
		// still counts as chat-completion family; `delta` replaces `message`.
		_, hasDelta := getMap(first, "delta")
		return hasDelta
	}
	return hasKey(msg, "role")
}

// Detect covers the whole compat family. Only the "openai" profile claims
// the bare shape match (MethodResponseShape), and it declines the body when
// the model id matches a built-in sibling profile's model hint; every
// sibling profile wins on a header, URL, or model-id hint. The "header >
// URL > shape > model-hint" ranking only stays deterministic if exactly one
// profile owns the shape-only fallback.
func (c *compatParser) Detect(body any, headers map[string]string, url string) (DetectionMethod, bool) {
	for _, h := range c.profile.headerNames {
		if _, ok := headerLookup(headers, h); ok {
			return MethodHeader, true
		}
	}
	if url != "" {
		for _, host := range c.profile.hostSubstrings {
			if strings.Contains(url, host) {
				return MethodURL, true
			}
		}
	}

	m, ok := asMap(body)
	if !ok || !isChatCompletionShape(m) {
		return "", false
	}

	model := getString(m, "model")
	if model == "" {
		if choices, ok := getSlice(m, "choices"); ok && len(choices) > 0 {
			if first, ok := choices[0].(map[string]any); ok {
				model = getString(first, "model")
			}
		}
	}

	// "openai" owns the bare shape match; it stands aside when the model id
	// carries a built-in sibling profile's hint, so that sibling wins on
	// its model-id hint, ranked below shape.
	if c.profile.id == "openai" {
		if model != "" {
			for _, p := range builtinParsers() {
				if sib, ok := p.(*compatParser); ok && sib.profile.id != "openai" && containsAnyFold(model, sib.profile.modelSubstrings...) {
					return "", false
				}
			}
		}
		return MethodResponseShape, true
	}

	if model != "" && containsAnyFold(model, c.profile.modelSubstrings...) {
		return MethodModelHint, true
	}
	return "", false
}

func (c *compatParser) Parse(body any) Result[UnifiedResponse] {
	m, ok := asMap(body)
	if !ok {
		return fail[UnifiedResponse](nil, newParseError(ErrInvalidInput, c.profile.id, "body is not an object").Error())
	}

	if errInfo, isErr := extractTopLevelError(m, classifyOpenAIErrorType); isErr {
		return succeed(UnifiedResponse{
			Provider: c.profile.id,
			Model:    ModelRef{ID: getString(m, "model")},
			Error:    errInfo,
			Metadata: map[string]any{},
		}, nil)
	}

	var warnings []string

	id := getString(m, "id")
	model := getString(m, "model")

	choices, _ := getSlice(m, "choices")
	if len(choices) == 0 {
		return fail[UnifiedResponse](warnings, newParseError(ErrShapeMismatch, c.profile.id, "Parse error: missing choices").Error())
	}

	messages := make([]Message, 0, len(choices))
	var stopRaw *string
	for _, raw := range choices {
		choice, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		msg, _ := getMap(choice, "message")
		role, roleWarnings := NormalizeRole(getString(msg, "role"))
		warnings = append(warnings, roleWarnings...)

		var blocks []ContentBlock
		if text, ok := msg["content"].(string); ok && text != "" {
			blocks = append(blocks, TextBlock(text))
		}
		if toolCalls, ok := getSlice(msg, "tool_calls"); ok {
			for _, tc := range toolCalls {
				tcm, ok := tc.(map[string]any)
				if !ok {
					continue
				}
				fn, _ := getMap(tcm, "function")
				argsText := getString(fn, "arguments")
				value, argWarnings := SafeParseJSON(argsText)
				warnings = append(warnings, argWarnings...)
				if value == nil {
					warnings = append(warnings, "suppressed tool_use block: unparseable arguments for "+getString(fn, "name"))
					continue
				}
				blocks = append(blocks, ToolUseBlock(getString(tcm, "id"), getString(fn, "name"), value))
			}
		}
		messages = append(messages, Message{Role: role, Content: blocks})

		if fr := getString(choice, "finish_reason"); fr != "" {
			stopRaw = &fr
		}
	}

	stopReason, stopConfidence, _, stopWarnings := MapStopReason(c.profile.id, stopRaw)
	warnings = append(warnings, stopWarnings...)

	usage, usageWarnings := parseCompatUsage(m, c.profile.cache)
	warnings = append(warnings, usageWarnings...)

	metadata := map[string]any{}
	noteOriginalStopReason(metadata, stopConfidence, stopRaw)
	if extra := extraFields(m, "id", "object", "created", "model", "choices", "usage", "system_fingerprint"); extra != nil {
		metadata["extra"] = extra
	}
	if id == "" {
		id = synthesizeID(c.profile.id, model)
	}

	resp := UnifiedResponse{
		ID:         id,
		Provider:   c.profile.id,
		Model:      ModelRef{ID: model},
		Messages:   messages,
		StopReason: stopReason,
		Usage:      usage,
		Metadata:   metadata,
	}
	return succeed(resp, warnings)
}

// parseCompatUsage reads the OpenAI-family usage object plus per-dialect
// cache-token counters. The second return value carries a warning when the
// wire total_tokens was smaller than input+output and had to be recomputed.
func parseCompatUsage(m map[string]any, dialect cacheDialect) (TokenUsage, []string) {
	usageMap, _ := getMap(m, "usage")
	input := getInt(usageMap, "prompt_tokens")
	output := getInt(usageMap, "completion_tokens")
	total, warnings := reconcileTotalTokens(getInt(usageMap, "total_tokens"), input, output)

	usage := TokenUsage{InputTokens: input, OutputTokens: output, TotalTokens: total}
	usageMeta := map[string]any{}

	switch dialect {
	case cacheDialectPromptTokenDetails:
		if details, ok := getMap(usageMap, "prompt_tokens_details"); ok {
			if cached := getInt(details, "cached_tokens"); cached > 0 {
				usageMeta["cache_read_input_tokens"] = cached
			}
		}
		if details, ok := getMap(usageMap, "completion_tokens_details"); ok {
			if reasoning := getInt(details, "reasoning_tokens"); reasoning > 0 {
				usageMeta["reasoning_tokens"] = reasoning
			}
		}
	case cacheDialectDeepSeek:
		if hit := getInt(usageMap, "prompt_cache_hit_tokens"); hit > 0 {
			usageMeta["cache_read_input_tokens"] = hit
		}
		if miss := getInt(usageMap, "prompt_cache_miss_tokens"); miss > 0 {
			usageMeta["cache_creation_input_tokens"] = miss
		}
	}
	if len(usageMeta) > 0 {
		usage.Metadata = usageMeta
	}
	return usage, warnings
}
