// Package display turns a raw conversation log into renderable blocks.
package display

import (
	"fmt"
	"strings"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/summary"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/tidwall/gjson"
)

// placeholders are chrome-only contents that never reach the display
var placeholders = map[string]struct{}{
	"":            {},
	"{}":          {},
	"Thinking...": {},
}

// IsPlaceholder reports whether content carries nothing worth displaying
func IsPlaceholder(content string) bool {
	_, ok := placeholders[strings.TrimSpace(content)]
	return ok
}

// Transform derives the ordered display items for a log. It never fails and
// never mutates the input. Items are emitted in log order, so a summary
// injected mid-history appears where its system message sits.
func Transform(log []types.Message) []types.DisplayItem {
	t := newTransformer(log)
	return t.run()
}

// HasSummary reports whether any item is a summary block
func HasSummary(items []types.DisplayItem) bool {
	for _, it := range items {
		if it.Kind == types.DisplaySummary {
			return true
		}
	}
	return false
}

type transformer struct {
	log      []types.Message
	consumed []bool
	// summaries caches the parsed envelope per system index
	summaries map[int]summary.Envelope
	// results maps a tool_call_id to the indices of tool turns carrying it
	results map[string][]int
	items   []types.DisplayItem
}

func newTransformer(log []types.Message) *transformer {
	t := &transformer{
		log:       log,
		consumed:  make([]bool, len(log)),
		summaries: make(map[int]summary.Envelope),
		results:   make(map[string][]int),
		items:     make([]types.DisplayItem, 0, len(log)),
	}
	for i, m := range log {
		switch m.Role {
		case types.RoleSystem:
			if env, ok := summary.Parse(m.Content); ok {
				t.summaries[i] = env
			}
		case types.RoleTool:
			if m.ToolCallID != "" {
				t.results[m.ToolCallID] = append(t.results[m.ToolCallID], i)
			}
		}
	}
	return t
}

func (t *transformer) run() []types.DisplayItem {
	for i := range t.log {
		if t.consumed[i] {
			continue
		}
		msg := t.log[i]

		switch {
		case msg.Role == types.RoleSystem:
			if env, ok := t.summaries[i]; ok {
				t.emitSummary(i, env)
			}
		case msg.HasToolCalls():
			t.emitToolBlock(i)
		default:
			if msg.Role == types.RoleAssistant {
				t.emitThinking(i)
			}
			t.emitPlain(msg)
		}
	}
	return t.items
}

func (t *transformer) emitSummary(i int, env summary.Envelope) {
	t.items = append(t.items, types.NewSummaryItem(types.SummaryBlock{
		ID:          fmt.Sprintf("summary-%d", i),
		Summary:     env.Body,
		Stats:       env.Stats,
		CompactedAt: env.CompactedAt,
		TokensSaved: env.TokensSaved,
		Timestamp:   t.log[i].Timestamp,
	}))
}

func (t *transformer) emitThinking(i int) {
	reasoning := t.log[i].ReasoningContent
	if strings.TrimSpace(reasoning) == "" {
		return
	}
	t.items = append(t.items, types.NewThinkingItem(types.ThinkingBlock{
		ID:        fmt.Sprintf("thinking-%d", i),
		Content:   reasoning,
		Timestamp: t.log[i].Timestamp,
	}))
}

// emitPlain emits the visible text of a turn. Reasoning and tool calls are
// stripped since they are rendered by their own blocks.
func (t *transformer) emitPlain(msg types.Message) {
	if IsPlaceholder(msg.Content) {
		return
	}
	out := msg.Clone()
	out.ReasoningContent = ""
	out.ToolCalls = nil
	t.items = append(t.items, types.NewMessageItem(out))
}

// emitToolBlock groups the tool-calling turn at start, and every directly
// following tool-calling turn, into one block.
func (t *transformer) emitToolBlock(start int) {
	block := types.ToolBlock{
		ID:        fmt.Sprintf("tools-%d", start),
		Timestamp: t.log[start].Timestamp,
	}
	turns := []int{start}

	for cur := start; ; {
		for k, call := range t.log[cur].ToolCalls {
			block.Tools = append(block.Tools, t.pair(cur, k, call))
		}

		next := t.nextFoldable(cur)
		if next < 0 {
			break
		}
		t.consumed[next] = true
		turns = append(turns, next)
		cur = next
	}

	for _, idx := range turns {
		t.emitThinking(idx)
	}
	t.items = append(t.items, types.NewToolItem(block))
	for _, idx := range turns {
		t.emitPlain(types.Message{
			Role:      t.log[idx].Role,
			Content:   t.log[idx].Content,
			Timestamp: t.log[idx].Timestamp,
		})
	}
}

// nextFoldable returns the index of the next unconsumed turn after cur if it
// also invokes tools, or -1. Plain system turns are skipped; a summary stops
// the search.
func (t *transformer) nextFoldable(cur int) int {
	for j := cur + 1; j < len(t.log); j++ {
		if t.consumed[j] {
			continue
		}
		if t.log[j].Role == types.RoleSystem {
			if _, ok := t.summaries[j]; ok {
				return -1
			}
			continue
		}
		if t.log[j].HasToolCalls() {
			return j
		}
		return -1
	}
	return -1
}

func (t *transformer) pair(turn, k int, call types.ToolCall) types.ToolPair {
	ts := t.log[turn].Timestamp
	id := call.ID
	if id == "" {
		id = fmt.Sprintf("call-%d-%d", turn, k)
	}

	p := types.ToolPair{Call: CallStep(id, call, ts)}
	if call.ID == "" {
		return p
	}
	for _, idx := range t.results[call.ID] {
		if idx <= turn || t.consumed[idx] {
			continue
		}
		t.consumed[idx] = true
		res := ResultStep(id, call.Function.Name, t.log[idx])
		p.Result = &res
		p.Call.IsDone = true
		break
	}
	return p
}

// CallStep builds the step describing a tool invocation
func CallStep(id string, call types.ToolCall, ts *time.Time) types.ProcessStep {
	args := call.Function.Arguments
	return types.ProcessStep{
		ID:           id,
		Kind:         types.StepToolCall,
		Content:      describeCall(call.Function.Name, args),
		ToolName:     call.Function.Name,
		ToolArgs:     args,
		ToolArgsJSON: args != "" && gjson.Valid(args),
		Timestamp:    ts,
	}
}

// ResultStep builds the step describing a tool turn's output
func ResultStep(callID, callName string, msg types.Message) types.ProcessStep {
	name := msg.Name
	if name == "" {
		name = callName
	}
	return types.ProcessStep{
		ID:         callID + ":result",
		Kind:       types.StepToolResult,
		Content:    msg.Content,
		ToolName:   name,
		ToolResult: msg.Content,
		IsError:    IsErrorResult(msg.Content),
		IsDone:     true,
		Timestamp:  msg.Timestamp,
	}
}

// IsErrorResult reports whether a tool output is an error report
func IsErrorResult(content string) bool {
	return strings.HasPrefix(strings.TrimSpace(content), "Error:")
}

// describeCall renders a one-line label. Structured arguments contribute
// their top-level keys; anything else is shown raw by the caller.
func describeCall(name, args string) string {
	if args == "" || !gjson.Valid(args) {
		return name
	}
	parsed := gjson.Parse(args)
	if !parsed.IsObject() {
		return name
	}
	var keys []string
	parsed.ForEach(func(key, _ gjson.Result) bool {
		keys = append(keys, key.String())
		return true
	})
	if len(keys) == 0 {
		return name
	}
	return name + "(" + strings.Join(keys, ", ") + ")"
}
