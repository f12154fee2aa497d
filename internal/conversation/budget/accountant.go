package budget

import (
	"errors"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/display"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
)

// Config holds the thresholds driving budget signals
type Config struct {
	MaxTokens            int     `mapstructure:"max_context_tokens"`
	WarnPercent          float64 `mapstructure:"warn_percent"`
	CompactMinTokens     int     `mapstructure:"compact_min_tokens"`
	AutoCompactThreshold float64 `mapstructure:"auto_compact_threshold"`
}

// DefaultConfig returns the default budget thresholds
func DefaultConfig() Config {
	return Config{
		MaxTokens:            100000,
		WarnPercent:          70,
		CompactMinTokens:     500,
		AutoCompactThreshold: 0.75,
	}
}

// Validate validates the budget configuration
func (c Config) Validate() error {
	if c.MaxTokens <= 0 {
		return errors.New("max context tokens must be greater than 0")
	}
	if c.WarnPercent <= 0 || c.WarnPercent > 100 {
		return errors.New("warn percent must be in (0, 100]")
	}
	if c.CompactMinTokens < 0 {
		return errors.New("compact min tokens must be >= 0")
	}
	if c.AutoCompactThreshold <= 0 || c.AutoCompactThreshold > 1 {
		return errors.New("auto compact threshold must be in (0, 1]")
	}
	return nil
}

// Report is a budget plus the signals derived from it
type Report struct {
	Budget            types.TokenBudget `json:"budget"`
	UsedTokens        int               `json:"used_tokens"`
	UsagePercent      float64           `json:"usage_percent"`
	Warning           bool              `json:"warning"`
	SuggestCompaction bool              `json:"suggest_compaction"`
	AutoCompact       bool              `json:"auto_compact"`
}

// Accountant computes token budgets for a fixed configuration
type Accountant struct {
	cfg      Config
	overhead Overhead
}

// NewAccountant creates an accountant with precomputed overhead
func NewAccountant(cfg Config, overhead Overhead) *Accountant {
	return &Accountant{cfg: cfg, overhead: overhead}
}

// Config returns the thresholds in use
func (a *Accountant) Config() Config {
	return a.cfg
}

// Overhead returns the precomputed fixed costs
func (a *Accountant) Overhead() Overhead {
	return a.overhead
}

// Compute classifies the tokens consumed by log and files
func (a *Accountant) Compute(log []types.Message, files []types.ContextFile) types.TokenBudget {
	fileTokens := 0
	for _, f := range files {
		fileTokens += EstimateFile(f)
	}
	return types.TokenBudget{
		SystemPromptTokens: a.overhead.SystemPromptTokens,
		ToolsTokens:        a.overhead.ToolsTokens,
		FileTokens:         fileTokens,
		ConversationTokens: EstimateMessages(log),
		MaxTokens:          a.cfg.MaxTokens,
	}
}

// Evaluate computes the budget and its signals. items may be nil, in which
// case the display transform is run to detect an existing summary.
func (a *Accountant) Evaluate(log []types.Message, files []types.ContextFile, items []types.DisplayItem) Report {
	if items == nil {
		items = display.Transform(log)
	}
	return Assess(a.Compute(log, files), display.HasSummary(items), a.cfg)
}

// Assess derives the signals for a budget
func Assess(b types.TokenBudget, hasSummary bool, cfg Config) Report {
	used := b.Total()
	pct := UsagePercent(used, b.MaxTokens)

	return Report{
		Budget:            b,
		UsedTokens:        used,
		UsagePercent:      pct,
		Warning:           pct >= cfg.WarnPercent,
		SuggestCompaction: b.ConversationTokens > cfg.CompactMinTokens && !hasSummary,
		AutoCompact:       b.MaxTokens > 0 && float64(used) > cfg.AutoCompactThreshold*float64(b.MaxTokens),
	}
}

// UsagePercent returns 100*used/max clamped to [0, 100]. A non-positive max
// means any usage is full.
func UsagePercent(used, limit int) float64 {
	if used <= 0 {
		return 0
	}
	if limit <= 0 {
		return 100
	}
	pct := 100 * float64(used) / float64(limit)
	if pct > 100 {
		return 100
	}
	return pct
}
