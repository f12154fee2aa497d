// Package inspector reconstructs the literal prompt text sent to the model
// for debugging. Nothing is hidden: placeholder turns are rendered as-is.
package inspector

import (
	"fmt"
	"strings"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

// Section headers, in render order
const (
	SectionSystemPrompt = "=== SYSTEM PROMPT ==="
	SectionContextFiles = "=== INJECTED CONTEXT FILES ==="
	SectionChatHistory  = "=== CHAT HISTORY ==="
)

const fileFooter = "--- END FILE ---"

// Render produces the inspection document: system prompt, pinned files and
// chat history, in that order.
func Render(systemPrompt string, files []types.ContextFile, log []types.Message) string {
	var sb strings.Builder

	sb.WriteString(SectionSystemPrompt)
	sb.WriteString("\n")
	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n")

	sb.WriteString(SectionContextFiles)
	sb.WriteString("\n")
	if len(files) == 0 {
		sb.WriteString("(none)\n")
	}
	for _, f := range files {
		writeFile(&sb, f)
	}
	sb.WriteString("\n")

	sb.WriteString(SectionChatHistory)
	sb.WriteString("\n")
	for _, m := range log {
		writeMessage(&sb, m)
	}

	return sb.String()
}

func writeFile(sb *strings.Builder, f types.ContextFile) {
	fmt.Fprintf(sb, "--- FILE: %s ---\n", f.Path)
	if f.Content != "" {
		sb.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			sb.WriteString("\n")
		}
	} else {
		fmt.Fprintf(sb, "[content not loaded: %s, ~%d tokens]\n", f.Path, budget.EstimateFile(f))
	}
	sb.WriteString(fileFooter)
	sb.WriteString("\n")
}

func writeMessage(sb *strings.Builder, m types.Message) {
	content := m.Content
	if m.Role == types.RoleTool {
		name := m.Name
		if name == "" {
			name = "unknown"
		}
		content = fmt.Sprintf("(Tool Result: %s) %s", name, content)
	}
	fmt.Fprintf(sb, "[%s]: %s\n", m.Role, content)

	for _, tc := range m.ToolCalls {
		fmt.Fprintf(sb, "(Tool Call: %s)\n", tc.Function.Name)
	}
}
