package unillm

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DefaultMaxStreamBufferSize is the buffer warning threshold (1 MiB).
// Exceeding it warns; nothing is truncated.
const DefaultMaxStreamBufferSize = 1 << 20

// pendingToolCall is a tool-call-index entry accumulating across chunks.
type pendingToolCall struct {
	id        string
	name      string
	argsText  strings.Builder
	completed bool
}

// StreamState is the per-stream accumulation bookkeeping: text per
// content-block index, tool-call fragments per index, buffer accounting,
// and metrics. Scoped to exactly one logical stream; callers must use a
// fresh StreamState, or call Reset, between streams.
type StreamState struct {
	bufferLimit int

	startedAt       *time.Time
	chunksProcessed int
	bufferSize      int
	bufferWarned    bool

	content   map[int]*strings.Builder
	order     []int
	toolCalls map[int]*pendingToolCall
	toolOrder []int
}

// NewStreamState creates an empty stream state with the given buffer
// threshold; a limit <= 0 uses DefaultMaxStreamBufferSize.
func NewStreamState(bufferLimit int) *StreamState {
	if bufferLimit <= 0 {
		bufferLimit = DefaultMaxStreamBufferSize
	}
	return &StreamState{bufferLimit: bufferLimit}
}

// InitMetrics sets startedAt on first use; idempotent.
func (s *StreamState) InitMetrics() {
	if s.startedAt == nil {
		now := time.Now()
		s.startedAt = &now
	}
}

func (s *StreamState) bumpBuffer(n int, warnings *[]string) {
	s.bufferSize += n
	if !s.bufferWarned && s.bufferSize > s.bufferLimit {
		s.bufferWarned = true
		*warnings = append(*warnings, fmt.Sprintf("stream buffer exceeded %d bytes", s.bufferLimit))
	}
}

// AccumulateContent appends a text fragment at a content-block index and
// updates buffer accounting.
func (s *StreamState) AccumulateContent(index int, fragment string) []string {
	if s.content == nil {
		s.content = make(map[int]*strings.Builder)
	}
	b, ok := s.content[index]
	if !ok {
		b = &strings.Builder{}
		s.content[index] = b
		s.order = append(s.order, index)
	}
	b.WriteString(fragment)

	var warnings []string
	s.bumpBuffer(len(fragment), &warnings)
	return warnings
}

// ContentFor returns the text accumulated so far for a content-block index.
func (s *StreamState) ContentFor(index int) string {
	if b, ok := s.content[index]; ok {
		return b.String()
	}
	return ""
}

// AccumulateToolCall merges a tool-call fragment at an index and re-attempts
// a strict (not partial-recovered) parse after every fragment; only a strict
// parse marks the entry complete.
func (s *StreamState) AccumulateToolCall(index int, id, name, argsFragment string) (value any, complete bool, warnings []string) {
	if s.toolCalls == nil {
		s.toolCalls = make(map[int]*pendingToolCall)
	}
	entry, ok := s.toolCalls[index]
	if !ok {
		entry = &pendingToolCall{}
		s.toolCalls[index] = entry
		s.toolOrder = append(s.toolOrder, index)
	}
	if id != "" {
		entry.id = id
	}
	if name != "" {
		entry.name = name
	}
	if argsFragment != "" {
		entry.argsText.WriteString(argsFragment)
		s.bumpBuffer(len(argsFragment), &warnings)
	}

	if !s.isToolCallComplete(entry) {
		return nil, false, warnings
	}

	parsed, err := strictParseJSON(entry.argsText.String())
	if err != nil {
		return nil, false, warnings
	}
	entry.completed = true
	return parsed, true, warnings
}

// IsToolCallComplete reports completeness for an index (id, name, and
// non-empty arguments_text that parses strictly).
func (s *StreamState) IsToolCallComplete(index int) bool {
	entry, ok := s.toolCalls[index]
	if !ok {
		return false
	}
	return s.isToolCallComplete(entry)
}

func (s *StreamState) isToolCallComplete(entry *pendingToolCall) bool {
	if entry.id == "" || entry.name == "" || entry.argsText.Len() == 0 {
		return false
	}
	_, err := strictParseJSON(entry.argsText.String())
	return err == nil
}

// FinalizeToolCalls returns completed tool-use blocks in first-seen order
// and a warning for every index still incomplete at stream end.
func (s *StreamState) FinalizeToolCalls() (blocks []ContentBlock, warnings []string) {
	for _, index := range s.toolOrder {
		entry := s.toolCalls[index]
		if entry == nil {
			continue
		}
		if !s.isToolCallComplete(entry) {
			warnings = append(warnings, fmt.Sprintf("tool call index %d incomplete at stream end", index))
			continue
		}
		value, _ := strictParseJSON(entry.argsText.String())
		blocks = append(blocks, ToolUseBlock(entry.id, entry.name, value))
	}
	return blocks, warnings
}

// IncChunksProcessed records one more chunk observed.
func (s *StreamState) IncChunksProcessed() {
	s.chunksProcessed++
}

// BufferUsagePercent reports buffer fill as a percentage of the limit.
func (s *StreamState) BufferUsagePercent() float64 {
	if s.bufferLimit == 0 {
		return 0
	}
	return 100 * float64(s.bufferSize) / float64(s.bufferLimit)
}

// StreamingMetrics returns the metadata.streamingMetrics payload.
func (s *StreamState) StreamingMetrics() map[string]any {
	durationMs := int64(0)
	if s.startedAt != nil {
		durationMs = time.Since(*s.startedAt).Milliseconds()
	}
	avg := 0.0
	if s.chunksProcessed > 0 {
		avg = float64(s.bufferSize) / float64(s.chunksProcessed)
	}
	return map[string]any{
		"chunks_processed":   s.chunksProcessed,
		"average_chunk_size": avg,
		"duration_ms":        durationMs,
	}
}

// Reset clears all accumulated state. Idempotent.
func (s *StreamState) Reset() {
	s.startedAt = nil
	s.chunksProcessed = 0
	s.bufferSize = 0
	s.bufferWarned = false
	s.content = nil
	s.order = nil
	s.toolCalls = nil
	s.toolOrder = nil
}

// strictParseJSON requires a complete, valid JSON document. It never
// performs partial recovery, since completeness is exactly what is being
// tested here.
func strictParseJSON(s string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, err
	}
	return v, nil
}
