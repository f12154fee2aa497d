package display

import (
	"encoding/json"
	"testing"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func user(content string) types.Message {
	return types.Message{Role: types.RoleUser, Content: content}
}

func assistant(content string, calls ...types.ToolCall) types.Message {
	return types.Message{Role: types.RoleAssistant, Content: content, ToolCalls: calls}
}

func call(id, name, args string) types.ToolCall {
	return types.ToolCall{ID: id, Type: "function", Function: types.FunctionCall{Name: name, Arguments: args}}
}

func result(id, name, content string) types.Message {
	return types.Message{Role: types.RoleTool, ToolCallID: id, Name: name, Content: content}
}

func system(content string) types.Message {
	return types.Message{Role: types.RoleSystem, Content: content}
}

func kinds(items []types.DisplayItem) []types.DisplayKind {
	out := make([]types.DisplayKind, len(items))
	for i, it := range items {
		out[i] = it.Kind
	}
	return out
}

func TestTransformToolPairing(t *testing.T) {
	log := []types.Message{
		user("hi"),
		assistant("", call("t1", "search", "{}")),
		result("t1", "search", "3 results"),
	}

	items := Transform(log)
	require.Len(t, items, 2)

	assert.Equal(t, types.DisplayMessage, items[0].Kind)
	assert.Equal(t, "hi", items[0].Message.Content)

	require.Equal(t, types.DisplayTools, items[1].Kind)
	block := items[1].Tools
	require.Len(t, block.Tools, 1)
	assert.Equal(t, "search", block.Tools[0].Call.ToolName)
	assert.True(t, block.Tools[0].Call.IsDone)
	require.NotNil(t, block.Tools[0].Result)
	assert.Equal(t, "3 results", block.Tools[0].Result.ToolResult)
	assert.False(t, block.Tools[0].Result.IsError)
}

func TestTransformSummaryFirst(t *testing.T) {
	log := []types.Message{
		system("You are Nexus.\n\n--- CONVERSATION SUMMARY (Saved ~120 tokens) ---\nDiscussed pricing\n--- END SUMMARY ---"),
		user("what next?"),
	}

	items := Transform(log)
	require.Len(t, items, 2)
	require.Equal(t, types.DisplaySummary, items[0].Kind)
	assert.Equal(t, "Discussed pricing", items[0].Summary.Summary)
	assert.Equal(t, "Saved ~120 tokens", items[0].Summary.Stats)
	require.NotNil(t, items[0].Summary.TokensSaved)
	assert.Equal(t, 120, *items[0].Summary.TokensSaved)
	assert.True(t, HasSummary(items))
}

func TestTransformPlainSystemHidden(t *testing.T) {
	items := Transform([]types.Message{system("You are Nexus."), user("hello")})
	require.Len(t, items, 1)
	assert.Equal(t, "hello", items[0].Message.Content)
	assert.False(t, HasSummary(items))
}

func TestTransformSummariesInterleaved(t *testing.T) {
	env := func(body string) types.Message {
		return system("--- CONVERSATION SUMMARY ---\n" + body + "\n--- END SUMMARY ---")
	}
	log := []types.Message{
		env("first"),
		user("a"),
		env("second"),
		user("b"),
	}

	items := Transform(log)
	assert.Equal(t, []types.DisplayKind{
		types.DisplaySummary, types.DisplayMessage, types.DisplaySummary, types.DisplayMessage,
	}, kinds(items))
	assert.Equal(t, "second", items[2].Summary.Summary)
}

func TestTransformPlaceholderSuppression(t *testing.T) {
	log := []types.Message{
		user("   "),
		assistant("{}"),
		assistant("Thinking..."),
		assistant(" Thinking... "),
		assistant("real answer"),
	}

	items := Transform(log)
	require.Len(t, items, 1)
	assert.Equal(t, "real answer", items[0].Message.Content)
}

func TestTransformThinkingBeforeBlock(t *testing.T) {
	turn := assistant("Let me look that up", call("t1", "get_record", `{"id":"42"}`))
	turn.ReasoningContent = "user wants record 42"
	log := []types.Message{user("show 42"), turn, result("t1", "get_record", "record 42")}

	items := Transform(log)
	assert.Equal(t, []types.DisplayKind{
		types.DisplayMessage, types.DisplayThinking, types.DisplayTools, types.DisplayMessage,
	}, kinds(items))
	assert.Equal(t, "user wants record 42", items[1].Thinking.Content)
	assert.Equal(t, "Let me look that up", items[3].Message.Content)
	assert.Empty(t, items[3].Message.ToolCalls)

	step := items[2].Tools.Tools[0].Call
	assert.True(t, step.ToolArgsJSON)
	assert.Equal(t, "get_record(id)", step.Content)
}

func TestTransformFoldsConsecutiveToolTurns(t *testing.T) {
	log := []types.Message{
		user("do things"),
		assistant("", call("a", "list", "{}")),
		result("a", "list", "ok"),
		system("scaffolding"),
		assistant("", call("b", "update", "not json"), call("c", "delete", "{}")),
		result("c", "delete", "Error: denied"),
		assistant("done"),
	}

	items := Transform(log)
	assert.Equal(t, []types.DisplayKind{
		types.DisplayMessage, types.DisplayTools, types.DisplayMessage,
	}, kinds(items))

	tools := items[1].Tools.Tools
	require.Len(t, tools, 3)
	assert.Equal(t, "tools-1", items[1].Tools.ID)
	assert.NotNil(t, tools[0].Result)

	assert.Nil(t, tools[1].Result, "unanswered call has no result")
	assert.False(t, tools[1].Call.IsDone)
	assert.False(t, tools[1].Call.ToolArgsJSON)
	assert.Equal(t, "not json", tools[1].Call.ToolArgs)

	require.NotNil(t, tools[2].Result)
	assert.True(t, tools[2].Result.IsError)
	assert.Equal(t, "done", items[2].Message.Content)
}

func TestTransformSummaryStopsFold(t *testing.T) {
	log := []types.Message{
		assistant("", call("a", "list", "{}")),
		system("--- CONVERSATION SUMMARY ---\nmid\n--- END SUMMARY ---"),
		assistant("", call("b", "list", "{}")),
	}

	items := Transform(log)
	assert.Equal(t, []types.DisplayKind{
		types.DisplayTools, types.DisplaySummary, types.DisplayTools,
	}, kinds(items))
}

func TestTransformOrphanResult(t *testing.T) {
	log := []types.Message{
		user("hi"),
		result("missing", "search", "stray output"),
		result("", "search", "no id"),
	}

	items := Transform(log)
	require.Len(t, items, 3)
	assert.Equal(t, types.RoleTool, items[1].Message.Role)
	assert.Equal(t, "stray output", items[1].Message.Content)
	assert.Equal(t, "no id", items[2].Message.Content)
}

func TestTransformResultBeforeCallIsOrphan(t *testing.T) {
	log := []types.Message{
		result("t1", "search", "early"),
		assistant("", call("t1", "search", "{}")),
	}

	items := Transform(log)
	require.Len(t, items, 2)
	assert.Equal(t, types.DisplayMessage, items[0].Kind)
	assert.Nil(t, items[1].Tools.Tools[0].Result)
}

func TestTransformDeterministicAndPure(t *testing.T) {
	log := []types.Message{
		system("--- CONVERSATION SUMMARY (Saved ~3 tokens) ---\nsum\n--- END SUMMARY ---"),
		user("q"),
		assistant("", call("t1", "search", `{"q":"x"}`)),
		result("t1", "search", "r"),
		assistant("answer"),
	}
	before := types.CloneLog(log)

	first := Transform(log)
	second := Transform(log)
	assert.Equal(t, first, second)
	assert.Equal(t, before, log)
}

func TestTransformNoDuplication(t *testing.T) {
	think := assistant("narration", call("t1", "search", "{}"))
	think.ReasoningContent = "reasoning text"
	folded := assistant("second narration", call("t2", "find", "{}"))
	folded.ReasoningContent = "more reasoning"

	log := []types.Message{
		system("--- CONVERSATION SUMMARY ---\nsummary body\n--- END SUMMARY ---"),
		user("question"),
		think,
		result("t1", "search", "result one"),
		folded,
		result("t2", "find", "result two"),
		result("zzz", "x", "orphan text"),
		assistant("final"),
	}

	counts := map[string]int{}
	for _, it := range Transform(log) {
		switch it.Kind {
		case types.DisplayMessage:
			counts[it.Message.Content]++
			counts[it.Message.ReasoningContent]++
		case types.DisplaySummary:
			counts[it.Summary.Summary]++
		case types.DisplayThinking:
			counts[it.Thinking.Content]++
		case types.DisplayTools:
			for _, p := range it.Tools.Tools {
				if p.Result != nil {
					counts[p.Result.ToolResult]++
				}
			}
		}
	}

	for _, want := range []string{
		"summary body", "question", "reasoning text", "narration", "result one",
		"second narration", "more reasoning", "result two", "orphan text", "final",
	} {
		assert.Equal(t, 1, counts[want], want)
	}
}

func TestTransformEmpty(t *testing.T) {
	items := Transform(nil)
	require.NotNil(t, items)
	assert.Empty(t, items)

	b, err := json.Marshal(Transform([]types.Message{{Role: types.RoleSystem, Content: "You are Nexus."}}))
	require.NoError(t, err)
	assert.Equal(t, "[]", string(b))
}
