// Package budget estimates how much of the model context window a
// conversation consumes and derives the warning and compaction signals.
package budget

import (
	"fmt"
	"strings"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/pkoukk/tiktoken-go"
)

const (
	// CharsPerToken is the heuristic ratio used for all estimates
	CharsPerToken = 4

	// DefaultEncoding is the BPE encoding used for fixed overhead
	DefaultEncoding = "cl100k_base"
)

// EstimateText approximates the token count of s as ceil(len/4)
func EstimateText(s string) int {
	return (len(s) + CharsPerToken - 1) / CharsPerToken
}

// EstimateMessage approximates the tokens of one turn: its content plus the
// arguments of every tool call it carries.
func EstimateMessage(m types.Message) int {
	n := EstimateText(m.Content)
	for _, tc := range m.ToolCalls {
		n += EstimateText(tc.Function.Arguments)
	}
	return n
}

// EstimateMessages sums EstimateMessage over a log
func EstimateMessages(log []types.Message) int {
	total := 0
	for _, m := range log {
		total += EstimateMessage(m)
	}
	return total
}

// EstimateFile returns the token size recorded for a pinned file, falling
// back to an estimate of its content when none was recorded.
func EstimateFile(f types.ContextFile) int {
	if f.TokenSize > 0 {
		return f.TokenSize
	}
	return EstimateText(f.Content)
}

// Counter counts tokens for fixed overhead text
type Counter interface {
	Count(text string) int
}

// EstimateCounter counts with the character heuristic
type EstimateCounter struct{}

// Count implements Counter
func (EstimateCounter) Count(text string) int {
	return EstimateText(text)
}

// TiktokenCounter counts with a BPE encoding
type TiktokenCounter struct {
	encoding *tiktoken.Tiktoken
}

// NewTiktokenCounter loads the named encoding, e.g. "cl100k_base"
func NewTiktokenCounter(encoding string) (*TiktokenCounter, error) {
	if encoding == "" {
		encoding = DefaultEncoding
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("failed to get encoding: %w", err)
	}
	return &TiktokenCounter{encoding: enc}, nil
}

// Count implements Counter
func (c *TiktokenCounter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.encoding.Encode(text, nil, nil))
}

// Overhead holds the precomputed fixed costs of the active configuration
type Overhead struct {
	SystemPromptTokens int `json:"system_prompt_tokens"`
	ToolsTokens        int `json:"tools_tokens"`
}

// ComputeOverhead counts the system prompt and the serialized tool catalog
func ComputeOverhead(counter Counter, systemPrompt string, tools []types.ToolDefinition) Overhead {
	if counter == nil {
		counter = EstimateCounter{}
	}
	var sb strings.Builder
	for _, t := range tools {
		sb.WriteString(t.Name)
		sb.WriteByte('\n')
		sb.WriteString(t.Description)
		sb.WriteByte('\n')
		sb.WriteString(t.Parameters)
		sb.WriteByte('\n')
	}
	return Overhead{
		SystemPromptTokens: counter.Count(systemPrompt),
		ToolsTokens:        counter.Count(sb.String()),
	}
}
