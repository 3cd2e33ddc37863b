package unillm

import "strings"

// canonicalizeFinish lowercases and strips separators so "end_turn",
// "END-TURN", and "endTurn" all collapse to the same key.
func canonicalizeFinish(s string) string {
	s = strings.ToLower(s)
	s = strings.ReplaceAll(s, "_", "")
	s = strings.ReplaceAll(s, "-", "")
	return s
}

// stopTable is a provider's known finish-reason vocabulary, keyed by
// canonicalized wire value.
type stopTable map[string]StopReason

var (
	openaiStopTable = stopTable{
		"stop":          StopEndTurn,
		"length":        StopMaxTokens,
		"toolcalls":     StopToolUse,
		"functioncall":  StopToolUse,
		"contentfilter": StopContentFilter,
	}
	anthropicStopTable = stopTable{
		"endturn":      StopEndTurn,
		"maxtokens":    StopMaxTokens,
		"stopsequence": StopSequence,
		"tooluse":      StopToolUse,
	}
	geminiStopTable = stopTable{
		"stop":       StopEndTurn,
		"maxtokens":  StopMaxTokens,
		"safety":     StopContentFilter,
		"recitation": StopRecitation,
		"other":      StopUnknown,
	}
	cohereStopTable = stopTable{
		"complete":   StopEndTurn,
		"maxtokens":  StopMaxTokens,
		"error":      StopError,
		"errortoxic": StopContentFilter,
	}
	togetherStopTable = stopTable{
		"eos":      StopEndTurn,
		"eostoken": StopEndTurn,
		"stop":     StopEndTurn,
		"length":   StopMaxTokens,
	}
	mistralStopTable = stopTable{
		"stop":        StopEndTurn,
		"length":      StopMaxTokens,
		"modellength": StopContextLength,
		"toolcalls":   StopToolUse,
	}
	replicateStopTable = stopTable{
		"succeeded": StopEndTurn,
		"failed":    StopError,
		"error":     StopError,
		"canceled":  StopCanceled,
		"aborted":   StopCanceled,
	}
	// openaiResponsesStopTable maps the Responses API's top-level `status`
	// field's terminal values (completed/incomplete/failed/cancelled); the
	// non-terminal queued/in_progress values are not in the table.
	// Distinct from openaiStopTable since chat completions' finish_reason
	// vocabulary doesn't overlap with this one.
	openaiResponsesStopTable = stopTable{
		"completed":  StopEndTurn,
		"incomplete": StopMaxTokens,
		"failed":     StopError,
		"cancelled":  StopCanceled,
		"canceled":   StopCanceled,
	}
)

// stopTableForProvider returns the finish-reason table for a provider id.
// Bedrock shares the Anthropic table; HuggingFace shares Together's table;
// the other compat-family providers and Ollama fall through to the OpenAI
// table.
func stopTableForProvider(provider string) stopTable {
	switch provider {
	case "anthropic", "bedrock":
		// Bedrock's Converse API mirrors Anthropic's finish vocabulary
		// (end_turn/tool_use/max_tokens/stop_sequence).
		return anthropicStopTable
	case "gemini", "google":
		return geminiStopTable
	case "cohere":
		return cohereStopTable
	case "together", "huggingface":
		return togetherStopTable
	case "mistral":
		return mistralStopTable
	case "replicate":
		return replicateStopTable
	case "openai_responses":
		return openaiResponsesStopTable
	default:
		// openai, xai, perplexity, fireworks, openrouter, deepseek, qwen,
		// glm, ollama all finish with OpenAI-shaped strings.
		return openaiStopTable
	}
}

// MapStopReason translates a provider-native finish string to a StopReason
// with a confidence annotation. It is total: every possible input, nil and
// garbage included, yields some StopReason.
func MapStopReason(provider string, raw *string) (reason StopReason, confidence Confidence, wasRecognized bool, warnings []string) {
	if raw == nil || strings.TrimSpace(*raw) == "" {
		return StopUnknown, ConfidenceLow, true, nil
	}

	original := *raw
	canon := canonicalizeFinish(original)
	table := stopTableForProvider(provider)

	if r, ok := table[canon]; ok {
		return r, ConfidenceHigh, true, nil
	}

	// Medium confidence: canonical raw contains a known keyword as a
	// substring. Prefer the longest matching keyword.
	bestKey := ""
	var bestReason StopReason
	for key, reason := range table {
		if strings.Contains(canon, key) && len(key) > len(bestKey) {
			bestKey, bestReason = key, reason
		}
	}
	if bestKey != "" {
		return bestReason, ConfidenceMedium, true,
			[]string{"fuzzy stop-reason match: \"" + original + "\" -> " + string(bestReason)}
	}

	return StopUnknown, ConfidenceLow, false,
		[]string{"unrecognized stop reason: " + original}
}

// noteOriginalStopReason preserves the wire finish value on response
// metadata whenever the mapping was not a high-confidence exact match, so
// downstream code can see what the provider actually sent without
// re-running the heuristics.
func noteOriginalStopReason(metadata map[string]any, confidence Confidence, raw *string) {
	if confidence != ConfidenceHigh && raw != nil && *raw != "" {
		metadata["original_stop_reason"] = *raw
	}
}

// NormalizeStopReason resolves the two legacy aliases (StopLength,
// StopFunctionCall) that remain recognized on input even though this
// package never emits them. Callers comparing a StopReason value that may
// have originated from an older producer should pass it through this
// function first.
func NormalizeStopReason(r StopReason) StopReason {
	switch r {
	case StopLength:
		return StopMaxTokens
	case StopFunctionCall:
		return StopToolUse
	default:
		return r
	}
}
