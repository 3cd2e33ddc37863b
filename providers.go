package unillm

// RegisterAllProviders populates r with every built-in Parser. Callers that
// only need a subset can Register them individually instead.
func RegisterAllProviders(r *Registry) {
	for _, p := range builtinParsers() {
		r.Register(p)
	}
}

func builtinParsers() []Parser {
	return []Parser{
		newOpenAIParser(),
		newOpenAIResponsesParser(),
		newAnthropicParser(),
		newGeminiParser(),
		newCohereParser(),
		newMistralParser(),
		newXAIParser(),
		newPerplexityParser(),
		newTogetherParser(),
		newFireworksParser(),
		newOpenRouterParser(),
		newDeepSeekParser(),
		newQwenParser(),
		newGLMParser(),
		newBedrockParser(),
		newOllamaParser(),
		newHuggingFaceParser(),
		newReplicateParser(),
	}
}
