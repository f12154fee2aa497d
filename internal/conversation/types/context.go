package types

import "time"

// ContextFile is a pinned document injected verbatim into the model context.
// Content is empty when only metadata was requested.
type ContextFile struct {
	Path      string `json:"path"`
	TokenSize int    `json:"token_size"`
	Content   string `json:"content,omitempty"`
}

// ToolDefinition describes a tool offered to the model
type ToolDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  string `json:"parameters,omitempty"` // JSON schema text
}

// TokenBudget is the estimated context-window consumption per category
type TokenBudget struct {
	SystemPromptTokens int `json:"system_prompt_tokens"`
	ToolsTokens        int `json:"tools_tokens"`
	FileTokens         int `json:"file_tokens"`
	ConversationTokens int `json:"conversation_tokens"`
	MaxTokens          int `json:"max_tokens"`
}

// Total is the sum of all consumed categories
func (b TokenBudget) Total() int {
	return b.SystemPromptTokens + b.ToolsTokens + b.FileTokens + b.ConversationTokens
}

// Conversation is a persisted per-user message log
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Messages  []Message `json:"messages"`
	IsActive  bool      `json:"is_active"`
	Version   int64     `json:"version"` // bumped on every write of Messages
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationSummary is the list view of a conversation
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	IsActive     bool      `json:"is_active"`
	UpdatedAt    time.Time `json:"updated_at"`
}
