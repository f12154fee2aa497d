package biz

import (
	"fmt"
	"strings"
	"time"
)

// DefaultSystemPrompt is the assistant prompt used when none is configured
func DefaultSystemPrompt(now time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are Nexus, an AI assistant for NexusCRM. Today is %s.\n", now.Format("Monday, January 2, 2006"))
	sb.WriteString("\nPRINCIPLES:")
	sb.WriteString("\n1. EXPLORE BEFORE ACTING - First understand which objects and fields are available, then dive into specifics.")
	sb.WriteString("\n2. TREE EXPLORATION - Start broad (list all), then narrow down (get details), then act (CRUD).")
	sb.WriteString("\n\nYou have access to a dynamic CRM system. Objects and fields are metadata-driven.")
	sb.WriteString(" Think step by step. If a tool fails, read the error and adapt.")
	return sb.String()
}

// PromptBuilder produces the base system prompt
type PromptBuilder struct {
	configured string
	now        func() time.Time
}

// NewPromptBuilder uses configured verbatim when set
func NewPromptBuilder(configured string) *PromptBuilder {
	return &PromptBuilder{configured: configured, now: time.Now}
}

// Base returns the base system prompt
func (p *PromptBuilder) Base() string {
	if p.configured != "" {
		return p.configured
	}
	return DefaultSystemPrompt(p.now())
}
