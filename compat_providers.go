package unillm

// The OpenAI-compatible family. Each provider is one compatProfile table
// entry; newCompatParser supplies the shared shape translation.

func newOpenAIParser() Parser {
	return newCompatParser(compatProfile{
		id:              "openai",
		name:            "OpenAI",
		baseURL:         "https://api.openai.com/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"api.openai.com"},
		headerNames:     []string{"openai-version"},
		modelSubstrings: []string{"gpt-", "o1", "o3", "o4", "chatgpt"},
		cache:           cacheDialectPromptTokenDetails,
		capabilities: ProviderCapabilities{
			Streaming: true, FunctionCalling: true, Vision: true, JSONMode: true,
			Modalities: []string{"text", "image", "audio"},
		},
		models: []string{"gpt-4o", "gpt-4o-mini", "gpt-4-turbo", "o1", "o3-mini"},
	})
}

func newMistralParser() Parser {
	return newCompatParser(compatProfile{
		id:              "mistral",
		name:            "Mistral AI",
		baseURL:         "https://api.mistral.ai/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"api.mistral.ai"},
		modelSubstrings: []string{"mistral", "mixtral", "codestral"},
		cache:           cacheDialectNone,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, JSONMode: true, Modalities: []string{"text"}},
		models:          []string{"mistral-large-latest", "mistral-small-latest", "codestral-latest"},
	})
}

func newXAIParser() Parser {
	return newCompatParser(compatProfile{
		id:              "xai",
		name:            "xAI",
		baseURL:         "https://api.x.ai/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"api.x.ai"},
		modelSubstrings: []string{"grok"},
		cache:           cacheDialectPromptTokenDetails,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Vision: true, Modalities: []string{"text", "image"}},
		models:          []string{"grok-2", "grok-2-vision", "grok-beta"},
	})
}

func newPerplexityParser() Parser {
	return newCompatParser(compatProfile{
		id:              "perplexity",
		name:            "Perplexity",
		baseURL:         "https://api.perplexity.ai",
		authType:        "bearer",
		hostSubstrings:  []string{"api.perplexity.ai"},
		modelSubstrings: []string{"sonar", "pplx"},
		cache:           cacheDialectNone,
		capabilities:    ProviderCapabilities{Streaming: true, Modalities: []string{"text"}},
		models:          []string{"sonar", "sonar-pro", "sonar-reasoning"},
	})
}

func newTogetherParser() Parser {
	return newCompatParser(compatProfile{
		id:              "together",
		name:            "Together AI",
		baseURL:         "https://api.together.xyz/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"api.together.xyz"},
		modelSubstrings: []string{"togethercomputer", "meta-llama"},
		cache:           cacheDialectNone,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		models:          []string{"meta-llama/Llama-3.3-70B-Instruct-Turbo"},
	})
}

func newFireworksParser() Parser {
	return newCompatParser(compatProfile{
		id:              "fireworks",
		name:            "Fireworks AI",
		baseURL:         "https://api.fireworks.ai/inference/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"api.fireworks.ai"},
		modelSubstrings: []string{"accounts/fireworks", "fireworks"},
		cache:           cacheDialectNone,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		models:          []string{"accounts/fireworks/models/llama-v3p3-70b-instruct"},
	})
}

func newOpenRouterParser() Parser {
	return newCompatParser(compatProfile{
		id:              "openrouter",
		name:            "OpenRouter",
		baseURL:         "https://openrouter.ai/api/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"openrouter.ai"},
		modelSubstrings: []string{"/"}, // OpenRouter model ids are "vendor/model"
		cache:           cacheDialectNone,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Vision: true, Modalities: []string{"text", "image"}},
		models:          []string{"openai/gpt-4o", "anthropic/claude-3.5-sonnet"},
	})
}

func newDeepSeekParser() Parser {
	return newCompatParser(compatProfile{
		id:              "deepseek",
		name:            "DeepSeek",
		baseURL:         "https://api.deepseek.com",
		authType:        "bearer",
		hostSubstrings:  []string{"api.deepseek.com"},
		modelSubstrings: []string{"deepseek"},
		cache:           cacheDialectDeepSeek,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		models:          []string{"deepseek-chat", "deepseek-reasoner"},
	})
}

func newQwenParser() Parser {
	return newCompatParser(compatProfile{
		id:              "qwen",
		name:            "Qwen (Alibaba DashScope)",
		baseURL:         "https://dashscope.aliyuncs.com/compatible-mode/v1",
		authType:        "bearer",
		hostSubstrings:  []string{"dashscope.aliyuncs.com"},
		modelSubstrings: []string{"qwen"},
		cache:           cacheDialectPromptTokenDetails,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		models:          []string{"qwen-max", "qwen-plus", "qwen-turbo"},
	})
}

func newGLMParser() Parser {
	return newCompatParser(compatProfile{
		id:              "glm",
		name:            "Zhipu GLM",
		baseURL:         "https://open.bigmodel.cn/api/paas/v4",
		authType:        "bearer",
		hostSubstrings:  []string{"open.bigmodel.cn"},
		modelSubstrings: []string{"glm-", "chatglm"},
		cache:           cacheDialectPromptTokenDetails,
		capabilities:    ProviderCapabilities{Streaming: true, FunctionCalling: true, Modalities: []string{"text"}},
		models:          []string{"glm-4-plus", "glm-4-flash"},
	})
}
