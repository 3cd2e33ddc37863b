// Package unillm normalizes heterogeneous LLM provider responses into a
// single provider-agnostic shape. It accepts an already-decoded JSON value
// (plus optional transport headers and request URL) and produces a
// UnifiedResponse, a UnifiedStreamResponse, or a structured parse failure.
//
// The package issues no network requests; it is a pure data transformation
// over in-memory values. See doc.go for an overview of the moving parts.
package unillm

// Role is the closed set of message roles. Unknown wire roles coerce to
// RoleUser with a warning rather than being represented as raw strings.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleFunction  Role = "function"
)

// ContentBlockKind discriminates the variants of ContentBlock. Every Block
// carries exactly the fields relevant to its Kind; callers should switch on
// Kind rather than probing fields for nil-ness.
type ContentBlockKind string

const (
	ContentText       ContentBlockKind = "text"
	ContentToolUse    ContentBlockKind = "tool_use"
	ContentToolResult ContentBlockKind = "tool_result"
	ContentImage      ContentBlockKind = "image"
	ContentAudio      ContentBlockKind = "audio"
	ContentVideo      ContentBlockKind = "video"
)

// ContentBlock is a tagged-variant content unit within a Message. Only the
// fields documented for Kind are meaningful; others are zero-valued.
type ContentBlock struct {
	Kind ContentBlockKind

	// Text: ContentText
	Text string

	// ToolUse: ContentToolUse
	ToolUseID string
	ToolName  string
	ToolInput any

	// ToolResult: ContentToolResult
	ToolResultForID string
	ToolResultBody  any

	// Image/Audio/Video: ContentImage, ContentAudio, ContentVideo
	URLOrData string
	MimeType  string
}

func TextBlock(text string) ContentBlock {
	return ContentBlock{Kind: ContentText, Text: text}
}

func ToolUseBlock(id, name string, input any) ContentBlock {
	return ContentBlock{Kind: ContentToolUse, ToolUseID: id, ToolName: name, ToolInput: input}
}

func ToolResultBlock(toolUseID string, content any) ContentBlock {
	return ContentBlock{Kind: ContentToolResult, ToolResultForID: toolUseID, ToolResultBody: content}
}

func ImageBlock(urlOrData, mime string) ContentBlock {
	return ContentBlock{Kind: ContentImage, URLOrData: urlOrData, MimeType: mime}
}

func AudioBlock(urlOrData, mime string) ContentBlock {
	return ContentBlock{Kind: ContentAudio, URLOrData: urlOrData, MimeType: mime}
}

func VideoBlock(urlOrData, mime string) ContentBlock {
	return ContentBlock{Kind: ContentVideo, URLOrData: urlOrData, MimeType: mime}
}

// Message is one candidate turn within a UnifiedResponse.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// StopReason is the closed enum of reasons a model stopped generating.
// StopLength and StopFunctionCall are legacy aliases: recognized as mapper
// input, never produced as mapper output.
type StopReason string

const (
	StopEndTurn       StopReason = "end_turn"
	StopMaxTokens     StopReason = "max_tokens"
	StopContextLength StopReason = "context_length"
	StopSequence      StopReason = "stop_sequence"
	StopToolUse       StopReason = "tool_use"
	StopContentFilter StopReason = "content_filter"
	StopRecitation    StopReason = "recitation"
	StopError         StopReason = "error"
	StopCanceled      StopReason = "canceled"
	StopUnknown       StopReason = "unknown"

	// Legacy aliases. Recognized by the mapper's input table; never emitted.
	StopLength       StopReason = "length"
	StopFunctionCall StopReason = "function_call"
)

// Confidence annotates how a mapping or detection decision was reached.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TokenUsage tallies token counts for a single response. Total defaults to
// Input+Output when the wire value is absent or smaller than that sum.
type TokenUsage struct {
	InputTokens  int
	OutputTokens int
	TotalTokens  int
	Metadata     map[string]any
}

// ErrorFamily is the closed set of categories for an error *document* a
// provider returned as response data. Distinct from ParseErrorCode, which
// covers fatal parsing failures (errors.go).
type ErrorFamily string

const (
	ErrAuthentication ErrorFamily = "authentication"
	ErrRateLimit      ErrorFamily = "rate_limit"
	ErrInvalidRequest ErrorFamily = "invalid_request"
	ErrServer         ErrorFamily = "server"
	ErrOverloaded     ErrorFamily = "overloaded"
	ErrContentFilter  ErrorFamily = "content_filter"
	ErrModel          ErrorFamily = "model"
	ErrNetwork        ErrorFamily = "network"
	ErrUnknownFamily  ErrorFamily = "unknown"
)

// ErrorInfo is populated on UnifiedResponse.Error when the provider body
// itself is an error document. Parsing such a body is a success, not a
// ParseError.
type ErrorInfo struct {
	Code       string
	Type       ErrorFamily
	Message    string
	StatusCode int
	Details    map[string]any
}

// ModelRef identifies the model that produced a response.
type ModelRef struct {
	ID      string
	Family  string
	Version string
}

// UnifiedResponse is the provider-agnostic shape produced by a non-stream
// parse.
type UnifiedResponse struct {
	ID         string
	Provider   string
	Model      ModelRef
	Messages   []Message
	StopReason StopReason
	Usage      TokenUsage
	Error      *ErrorInfo
	Metadata   map[string]any
}

// StreamChunkKind discriminates UnifiedStreamChunk variants.
type StreamChunkKind string

const (
	ChunkMessageStart      StreamChunkKind = "message_start"
	ChunkContentBlockStart StreamChunkKind = "content_block_start"
	ChunkContentBlockDelta StreamChunkKind = "content_block_delta"
	ChunkContentBlockStop  StreamChunkKind = "content_block_stop"
	ChunkMessageDelta      StreamChunkKind = "message_delta"
	ChunkMessageStop       StreamChunkKind = "message_stop"
	ChunkPing              StreamChunkKind = "ping"
)

// UnifiedStreamChunk is one normalized event derived from a single provider
// stream chunk. Only the fields documented for Kind are meaningful.
type UnifiedStreamChunk struct {
	Kind StreamChunkKind

	Index int // ContentBlockStart/Delta/Stop

	// Block carries the opened block for ContentBlockStart, including a
	// tool-use block whose Input is still accumulating.
	Block *ContentBlock

	// DeltaText carries incremental text for ContentBlockDelta.
	DeltaText string

	// StopReason is set on MessageDelta/MessageStop.
	StopReason StopReason

	// Raw preserves the originating provider chunk for debugging.
	Raw any
}

// UnifiedStreamResponse aggregates the chunks derived from one parse_stream
// call.
type UnifiedStreamResponse struct {
	Provider   string
	Model      string
	Chunks     []UnifiedStreamChunk
	StopReason StopReason
	Error      *ErrorInfo
	Metadata   map[string]any
}

// ProviderCapabilities is a static description of what a provider parser
// supports; it carries no runtime state.
type ProviderCapabilities struct {
	Streaming       bool
	FunctionCalling bool
	Vision          bool
	JSONMode        bool
	Modalities      []string
}

// ProviderMetadata is the pure, static self-description a parser exposes.
type ProviderMetadata struct {
	ID                 string
	Name               string
	APIVersion         string
	BaseURL            string
	AuthenticationType string
	Capabilities       ProviderCapabilities
	Models             []string
}

// DetectionMethod records which signal a detection decision was based on.
type DetectionMethod string

const (
	MethodHeader        DetectionMethod = "header"
	MethodURL           DetectionMethod = "url"
	MethodResponseShape DetectionMethod = "response_format"
	MethodModelHint     DetectionMethod = "model_hint"
	MethodDefault       DetectionMethod = "default"
)

// Detection is the trace attached to a Result when provider identity had to
// be inferred rather than supplied by the caller.
type Detection struct {
	Method     DetectionMethod
	Provider   string
	Confidence Confidence
}
