package display

import (
	"fmt"
	"sync"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

// EventType names a streaming event emitted while the assistant works
type EventType string

const (
	EventThinking   EventType = "thinking"
	EventToolCall   EventType = "tool_call"
	EventToolResult EventType = "tool_result"
	EventContent    EventType = "content"
	EventDone       EventType = "done"
	EventError      EventType = "error"
)

// Event is one streaming progress notification
type Event struct {
	Type       EventType `json:"type"`
	Content    string    `json:"content,omitempty"`
	ToolName   string    `json:"tool_name,omitempty"`
	ToolCallID string    `json:"tool_call_id,omitempty"`
	ToolArgs   string    `json:"tool_args,omitempty"`
}

// StepTracker folds streaming events into the ordered ProcessSteps shown
// while a turn is in flight. Steps are ephemeral and never persisted.
type StepTracker struct {
	mu    sync.Mutex
	steps []types.ProcessStep
	// pending maps a call step ID to its index in steps
	pending map[string]int
	seq     int
	now     func() time.Time
}

// NewStepTracker creates an empty tracker
func NewStepTracker() *StepTracker {
	return &StepTracker{
		pending: make(map[string]int),
		now:     time.Now,
	}
}

// Apply records an event. Content events are not steps and are ignored.
func (t *StepTracker) Apply(ev Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	ts := t.now()
	switch ev.Type {
	case EventThinking:
		// streamed reasoning arrives in chunks
		if n := len(t.steps); n > 0 && t.steps[n-1].Kind == types.StepThinking && !t.steps[n-1].IsDone {
			t.steps[n-1].Content += ev.Content
			return
		}
		t.steps = append(t.steps, types.ProcessStep{
			ID:        t.nextID("thinking"),
			Kind:      types.StepThinking,
			Content:   ev.Content,
			Timestamp: &ts,
		})

	case EventToolCall:
		t.closeThinking()
		id := ev.ToolCallID
		if id == "" {
			id = t.nextID("call")
		}
		step := CallStep(id, types.ToolCall{
			ID:       id,
			Type:     "function",
			Function: types.FunctionCall{Name: ev.ToolName, Arguments: ev.ToolArgs},
		}, &ts)
		t.pending[id] = len(t.steps)
		t.steps = append(t.steps, step)

	case EventToolResult:
		callIdx, ok := t.matchCall(ev)
		callID := ev.ToolCallID
		if ok {
			t.steps[callIdx].IsDone = true
			callID = t.steps[callIdx].ID
			delete(t.pending, callID)
		} else if callID == "" {
			callID = t.nextID("orphan")
		}
		res := ResultStep(callID, ev.ToolName, types.Message{
			Role:       types.RoleTool,
			Content:    ev.Content,
			ToolCallID: ev.ToolCallID,
			Name:       ev.ToolName,
			Timestamp:  &ts,
		})
		if ok {
			t.steps[callIdx].IsError = res.IsError
		}
		t.steps = append(t.steps, res)

	case EventError:
		for id, idx := range t.pending {
			t.steps[idx].IsError = true
			t.steps[idx].IsDone = true
			delete(t.pending, id)
		}
		t.closeThinking()

	case EventDone:
		for i := range t.steps {
			t.steps[i].IsDone = true
		}
		t.pending = make(map[string]int)
	}
}

// matchCall finds the pending call a result belongs to: by ID when present,
// otherwise the oldest pending call with the same tool name.
func (t *StepTracker) matchCall(ev Event) (int, bool) {
	if ev.ToolCallID != "" {
		idx, ok := t.pending[ev.ToolCallID]
		return idx, ok
	}
	best := -1
	for _, idx := range t.pending {
		if t.steps[idx].ToolName != ev.ToolName {
			continue
		}
		if best < 0 || idx < best {
			best = idx
		}
	}
	return best, best >= 0
}

func (t *StepTracker) closeThinking() {
	if n := len(t.steps); n > 0 && t.steps[n-1].Kind == types.StepThinking {
		t.steps[n-1].IsDone = true
	}
}

func (t *StepTracker) nextID(prefix string) string {
	t.seq++
	return fmt.Sprintf("%s-%d", prefix, t.seq)
}

// Steps returns a snapshot of the tracked steps
func (t *StepTracker) Steps() []types.ProcessStep {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]types.ProcessStep, len(t.steps))
	copy(out, t.steps)
	return out
}

// Pending returns how many tool calls still await a result
func (t *StepTracker) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Reset clears all steps, typically when a new turn starts
func (t *StepTracker) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.steps = nil
	t.pending = make(map[string]int)
	t.seq = 0
}
