package compactor

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

const truncatedMarker = "...[truncated]"

const defaultInstruction = `Summarize the following conversation history concisely.
This history will be removed from the prompt, so capture ALL critical state, decisions, and record references.`

const focusList = `Provide a concise, consolidated summary (2-4 paragraphs). Focus on:
- What has been accomplished
- Records, objects and identifiers still relevant
- Errors encountered and resolutions
`

// MicroCompact returns a copy of messages with tool arguments and tool
// results longer than limit cut down. No model call is involved.
func MicroCompact(messages []types.Message, limit int) []types.Message {
	out := make([]types.Message, 0, len(messages))
	for _, m := range messages {
		nm := types.Message{
			Role:       m.Role,
			Content:    m.Content,
			Name:       m.Name,
			ToolCallID: m.ToolCallID,
			Timestamp:  m.Timestamp,
		}
		if len(m.ToolCalls) > 0 {
			nm.ToolCalls = make([]types.ToolCall, len(m.ToolCalls))
			for i, tc := range m.ToolCalls {
				nm.ToolCalls[i] = tc
				nm.ToolCalls[i].Function.Arguments = truncate(tc.Function.Arguments, limit)
			}
		}
		if m.Role == types.RoleTool {
			nm.Content = truncate(m.Content, limit)
		}
		out = append(out, nm)
	}
	return out
}

func truncate(s string, limit int) string {
	if limit <= 0 || len(s) <= limit {
		return s
	}
	return cut(s, limit) + truncatedMarker
}

// cut returns at most limit bytes of s without splitting a rune
func cut(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	for limit > 0 && !utf8.RuneStart(s[limit]) {
		limit--
	}
	return s[:limit]
}

// RenderHistory renders archived turns as plain text for the summarizer
func RenderHistory(messages []types.Message) string {
	var sb strings.Builder
	for _, m := range messages {
		fmt.Fprintf(&sb, "[%s]: %s\n", m.Role, m.Content)
		for _, tc := range m.ToolCalls {
			fmt.Fprintf(&sb, "(Tool Call: %s)\n", tc.Function.Name)
		}
		if m.Role == types.RoleTool {
			if m.Name != "" {
				fmt.Fprintf(&sb, "(Tool Result: %s)\n", m.Name)
			} else {
				sb.WriteString("(Tool Result)\n")
			}
		}
	}
	return sb.String()
}

// BuildPrompt assembles the summarization prompt. A previous summary is
// folded in so the result carries a single consolidated envelope.
func BuildPrompt(archive []types.Message, previous, keep, instruction string) string {
	if instruction == "" {
		instruction = defaultInstruction
	}

	var sb strings.Builder
	sb.WriteString(instruction)
	sb.WriteString("\n")
	if keep != "" {
		fmt.Fprintf(&sb, "\nIMPORTANT: Make sure to preserve details about: %s\n", keep)
	}
	if previous != "" {
		fmt.Fprintf(&sb, "\nPrevious Context Summary (incorporate this into your new summary):\n%s\n", previous)
	}
	sb.WriteString("\nRecent Conversation to Archive:\n")
	sb.WriteString(RenderHistory(archive))
	sb.WriteString("\n")
	sb.WriteString(focusList)
	return sb.String()
}
