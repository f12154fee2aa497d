package types

import "time"

// Role identifies the author of a turn in the message log
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the four known roles
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleTool, RoleSystem:
		return true
	}
	return false
}

// Message represents one turn in a conversation log
type Message struct {
	Role             Role       `json:"role"`
	Content          string     `json:"content,omitempty"`
	ToolCalls        []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID       string     `json:"tool_call_id,omitempty"` // tool turns only
	Name             string     `json:"name,omitempty"`         // tool name on tool turns
	ReasoningContent string     `json:"reasoning_content,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
}

// ToolCall is a model-initiated function invocation
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type,omitempty"` // always "function" when set
	Function FunctionCall `json:"function"`
}

// FunctionCall carries the tool name and its serialized arguments.
// Arguments may or may not be valid JSON.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// HasToolCalls reports whether the turn is an assistant turn invoking tools
func (m Message) HasToolCalls() bool {
	return m.Role == RoleAssistant && len(m.ToolCalls) > 0
}

// Clone returns a deep copy of the message
func (m Message) Clone() Message {
	out := m
	if m.ToolCalls != nil {
		out.ToolCalls = make([]ToolCall, len(m.ToolCalls))
		copy(out.ToolCalls, m.ToolCalls)
	}
	if m.Timestamp != nil {
		ts := *m.Timestamp
		out.Timestamp = &ts
	}
	return out
}

// CloneLog deep-copies a message log
func CloneLog(log []Message) []Message {
	if log == nil {
		return nil
	}
	out := make([]Message, len(log))
	for i := range log {
		out[i] = log[i].Clone()
	}
	return out
}
