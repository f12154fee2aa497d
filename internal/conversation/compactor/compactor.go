// Package compactor replaces the older part of a conversation with a single
// summarizing system turn.
package compactor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/summary"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

var (
	// ErrEmptySummary is returned when the summarizer produced no text
	ErrEmptySummary = errors.New("empty summarization response")

	// ErrSummaryExpanded is returned when the compacted log would be larger
	// than the original. The original log is returned alongside it.
	ErrSummaryExpanded = errors.New("compaction expanded the conversation")

	// ErrSummarizerFailed wraps errors returned by the Summarizer
	ErrSummarizerFailed = errors.New("summarization failed")
)

// Summarizer turns a summarization prompt into summary text
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

// SummarizerFunc adapts a function to Summarizer
type SummarizerFunc func(ctx context.Context, prompt string) (string, error)

// Summarize implements Summarizer
func (f SummarizerFunc) Summarize(ctx context.Context, prompt string) (string, error) {
	return f(ctx, prompt)
}

// Request is a compaction request
type Request struct {
	Messages []types.Message `json:"messages"`
	Keep     string          `json:"keep,omitempty"` // what the summary must preserve
}

// Response is the outcome of a compaction. On error Messages is the
// unchanged input.
type Response struct {
	Messages     []types.Message `json:"messages"`
	TokensBefore int             `json:"tokens_before"`
	TokensAfter  int             `json:"tokens_after"`
}

// Compacted reports whether the log was actually replaced
func (r *Response) Compacted() bool {
	return r.TokensAfter < r.TokensBefore
}

// Options tunes the compactor
type Options struct {
	MinMessages        int // logs shorter than this are returned unchanged
	KeepUserTurns      int // trailing user turns kept verbatim
	ArchiveToolLimit   int // max chars of tool args/results fed to the summarizer
	ActiveToolLimit    int // max chars of a tool result kept in the active tail
	SummaryInstruction string
}

// DefaultOptions returns the default compaction options
func DefaultOptions() Options {
	return Options{
		MinMessages:      6,
		KeepUserTurns:    2,
		ArchiveToolLimit: 500,
		ActiveToolLimit:  2000,
	}
}

// Compactor summarizes conversation history
type Compactor struct {
	summarizer Summarizer
	opts       Options
	now        func() time.Time
}

// New creates a compactor
func New(s Summarizer, opts Options) *Compactor {
	def := DefaultOptions()
	if opts.MinMessages <= 0 {
		opts.MinMessages = def.MinMessages
	}
	if opts.KeepUserTurns <= 0 {
		opts.KeepUserTurns = def.KeepUserTurns
	}
	if opts.ArchiveToolLimit <= 0 {
		opts.ArchiveToolLimit = def.ArchiveToolLimit
	}
	if opts.ActiveToolLimit <= 0 {
		opts.ActiveToolLimit = def.ActiveToolLimit
	}
	return &Compactor{summarizer: s, opts: opts, now: time.Now}
}

// Compact summarizes everything between the head system turn and the
// retention cutoff. The input slice is never modified.
func (c *Compactor) Compact(ctx context.Context, req Request) (*Response, error) {
	messages := req.Messages
	before := budget.EstimateMessages(messages)
	unchanged := &Response{Messages: messages, TokensBefore: before, TokensAfter: before}

	if err := ctx.Err(); err != nil {
		return unchanged, err
	}
	if len(messages) < c.opts.MinMessages {
		return unchanged, nil
	}

	sysIdx := -1
	for i, m := range messages {
		if m.Role == types.RoleSystem {
			sysIdx = i
			break
		}
	}
	var base, previous string
	if sysIdx >= 0 {
		base, previous = summary.Split(messages[sysIdx].Content)
	}

	cutoff := c.cutoff(messages, sysIdx)
	if cutoff <= sysIdx+1 {
		return unchanged, nil
	}

	archive := make([]types.Message, 0, cutoff)
	for i := 0; i < cutoff; i++ {
		if i != sysIdx {
			archive = append(archive, messages[i])
		}
	}
	active := c.trimActive(messages[cutoff:])

	prompt := BuildPrompt(MicroCompact(archive, c.opts.ArchiveToolLimit), previous, req.Keep, c.opts.SummaryInstruction)
	text, err := c.summarizer.Summarize(ctx, prompt)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return unchanged, ctxErr
		}
		return unchanged, fmt.Errorf("%w: %w", ErrSummarizerFailed, err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return unchanged, ErrEmptySummary
	}
	if err := ctx.Err(); err != nil {
		return unchanged, err
	}

	saved := before - (budget.EstimateText(text) + budget.EstimateMessages(active))
	if saved < 0 {
		saved = 0
	}
	at := c.now()
	result := make([]types.Message, 0, len(active)+1)
	result = append(result, types.Message{
		Role:      types.RoleSystem,
		Content:   summary.Compose(base, text, saved, at),
		Timestamp: &at,
	})
	result = append(result, active...)

	after := budget.EstimateMessages(result)
	if after > before {
		return unchanged, fmt.Errorf("%w: %d > %d tokens", ErrSummaryExpanded, after, before)
	}

	return &Response{Messages: result, TokensBefore: before, TokensAfter: after}, nil
}

// cutoff finds the first index of the retained tail: the KeepUserTurns-th
// user turn from the end, else the earliest user turn found, else nothing.
func (c *Compactor) cutoff(messages []types.Message, sysIdx int) int {
	seen, last := 0, -1
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role != types.RoleUser {
			continue
		}
		seen++
		last = i
		if seen == c.opts.KeepUserTurns {
			return i
		}
	}
	if last >= 0 {
		return last
	}
	return sysIdx + 1
}

// trimActive copies the tail, truncating oversized tool results
func (c *Compactor) trimActive(tail []types.Message) []types.Message {
	out := types.CloneLog(tail)
	limit := c.opts.ActiveToolLimit
	for i := range out {
		if out[i].Role == types.RoleTool && len(out[i].Content) > limit {
			kept := cut(out[i].Content, limit)
			omitted := len(out[i].Content) - len(kept)
			out[i].Content = kept + fmt.Sprintf("...[truncated active tool result: %d chars omitted]", omitted)
		}
	}
	return out
}
