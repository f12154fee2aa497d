package types

import "time"

// DisplayKind discriminates the DisplayItem variants
type DisplayKind string

const (
	DisplayMessage  DisplayKind = "message"
	DisplayTools    DisplayKind = "tool_block"
	DisplaySummary  DisplayKind = "summary"
	DisplayThinking DisplayKind = "thinking"
)

// DisplayItem is a renderable block derived from the message log.
// Exactly one payload field is set, matching Kind.
type DisplayItem struct {
	Kind     DisplayKind    `json:"kind"`
	Message  *Message       `json:"message,omitempty"`
	Tools    *ToolBlock     `json:"tool_block,omitempty"`
	Summary  *SummaryBlock  `json:"summary,omitempty"`
	Thinking *ThinkingBlock `json:"thinking,omitempty"`
}

// NewMessageItem wraps a plain message
func NewMessageItem(m Message) DisplayItem {
	return DisplayItem{Kind: DisplayMessage, Message: &m}
}

// NewToolItem wraps a tool block
func NewToolItem(b ToolBlock) DisplayItem {
	return DisplayItem{Kind: DisplayTools, Tools: &b}
}

// NewSummaryItem wraps a summary block
func NewSummaryItem(b SummaryBlock) DisplayItem {
	return DisplayItem{Kind: DisplaySummary, Summary: &b}
}

// NewThinkingItem wraps a thinking block
func NewThinkingItem(b ThinkingBlock) DisplayItem {
	return DisplayItem{Kind: DisplayThinking, Thinking: &b}
}

// ToolBlock groups consecutive tool invocations with their results
type ToolBlock struct {
	ID        string     `json:"id"`
	Tools     []ToolPair `json:"tools"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// ToolPair is one call and, when it has arrived, its result
type ToolPair struct {
	Call   ProcessStep  `json:"call"`
	Result *ProcessStep `json:"result,omitempty"`
}

// SummaryBlock stands in for history that was compacted away
type SummaryBlock struct {
	ID          string     `json:"id"`
	Summary     string     `json:"summary"`
	Stats       string     `json:"stats,omitempty"`        // e.g. "Saved ~120 tokens"
	CompactedAt string     `json:"compacted_at,omitempty"` // free-form label
	TokensSaved *int       `json:"tokens_saved,omitempty"`
	Timestamp   *time.Time `json:"timestamp,omitempty"`
}

// ThinkingBlock stands in for an assistant's private reasoning
type ThinkingBlock struct {
	ID        string     `json:"id"`
	Content   string     `json:"content"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

// StepKind is the kind of a ProcessStep
type StepKind string

const (
	StepThinking   StepKind = "thinking"
	StepToolCall   StepKind = "tool_call"
	StepToolResult StepKind = "tool_result"
)

// ProcessStep is a normalized unit of assistant work, either live
// (streaming progress) or reconstructed from the log.
type ProcessStep struct {
	ID           string     `json:"id"`
	Kind         StepKind   `json:"kind"`
	Content      string     `json:"content"`
	ToolName     string     `json:"tool_name,omitempty"`
	ToolArgs     string     `json:"tool_args,omitempty"`
	ToolArgsJSON bool       `json:"tool_args_json,omitempty"` // arguments parsed as JSON
	ToolResult   string     `json:"tool_result,omitempty"`
	IsError      bool       `json:"is_error,omitempty"`
	IsDone       bool       `json:"is_done,omitempty"`
	Timestamp    *time.Time `json:"timestamp,omitempty"`
}
