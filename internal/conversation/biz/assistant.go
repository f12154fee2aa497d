package biz

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/compactor"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/display"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/inspector"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"go.uber.org/zap"
)

// DefaultLockTTL bounds how long a compaction may hold its lock
const DefaultLockTTL = 10 * time.Minute

// View is a log ready for rendering
type View struct {
	Items  []types.DisplayItem `json:"items"`
	Budget budget.Report       `json:"budget"`
}

// Inspection is the reconstructed prompt and its classified lines
type Inspection struct {
	Prompt string           `json:"prompt"`
	Lines  []inspector.Line `json:"lines"`
}

// CompactResult is the outcome of compacting a stored conversation
type CompactResult struct {
	ConversationID string `json:"conversation_id"`
	TokensBefore   int    `json:"tokens_before"`
	TokensAfter    int    `json:"tokens_after"`
	Compacted      bool   `json:"compacted"`
	View           *View  `json:"view"`
}

// AssistantUseCase assembles views, inspections and compactions
type AssistantUseCase struct {
	conversations *ConversationUseCase
	contexts      *ContextUseCase
	accountant    *budget.Accountant
	compactor     *compactor.Compactor
	locker        Locker
	lockTTL       time.Duration
	logger        *logger.Logger
}

// NewAssistantUseCase creates the assistant use case
func NewAssistantUseCase(
	conversations *ConversationUseCase,
	contexts *ContextUseCase,
	accountant *budget.Accountant,
	comp *compactor.Compactor,
	locker Locker,
	lockTTL time.Duration,
	log *logger.Logger,
) *AssistantUseCase {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	return &AssistantUseCase{
		conversations: conversations,
		contexts:      contexts,
		accountant:    accountant,
		compactor:     comp,
		locker:        locker,
		lockTTL:       lockTTL,
		logger:        log.Named("assistant"),
	}
}

// View transforms a log and reports its budget against the user's pinned files
func (uc *AssistantUseCase) View(ctx context.Context, userID string, messages []types.Message) (*View, error) {
	if err := ValidateMessages(messages); err != nil {
		return nil, err
	}
	files, err := uc.contexts.Files(ctx, userID)
	if err != nil {
		return nil, err
	}
	return uc.view(messages, files), nil
}

func (uc *AssistantUseCase) view(messages []types.Message, files []types.ContextFile) *View {
	items := display.Transform(messages)
	return &View{Items: items, Budget: uc.accountant.Evaluate(messages, files, items)}
}

// Inspect reconstructs the prompt the model would see for a log
func (uc *AssistantUseCase) Inspect(ctx context.Context, userID string, messages []types.Message) (*Inspection, error) {
	if err := ValidateMessages(messages); err != nil {
		return nil, err
	}
	files, err := uc.contexts.Files(ctx, userID)
	if err != nil {
		return nil, err
	}
	prompt := inspector.Render(uc.contexts.SystemPrompt(), files, messages)
	return &Inspection{Prompt: prompt, Lines: inspector.Classify(prompt)}, nil
}

// Compact compacts a caller-held log. The response is always usable: on
// error it carries the original messages.
func (uc *AssistantUseCase) Compact(ctx context.Context, req compactor.Request) (*compactor.Response, error) {
	if err := ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	resp, err := uc.compactor.Compact(ctx, req)
	uc.logCompaction(ctx, "", resp, err)
	return resp, err
}

// ViewConversation renders a stored conversation
func (uc *AssistantUseCase) ViewConversation(ctx context.Context, userID, id string) (*View, error) {
	conv, err := uc.conversations.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return uc.View(ctx, userID, conv.Messages)
}

// InspectConversation reconstructs the prompt for a stored conversation
func (uc *AssistantUseCase) InspectConversation(ctx context.Context, userID, id string) (*Inspection, error) {
	conv, err := uc.conversations.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return uc.Inspect(ctx, userID, conv.Messages)
}

// CompactConversation compacts a stored conversation. Only one compaction
// per conversation runs at a time; the stored log is replaced only when
// compaction succeeded and did not grow it.
func (uc *AssistantUseCase) CompactConversation(ctx context.Context, userID, id, keep string) (*CompactResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	ctx = logger.WithConversationID(ctx, id)

	release, err := uc.locker.Acquire(ctx, "compact:"+id, uc.lockTTL)
	if err != nil {
		if errors.Is(err, ErrLockHeld) {
			uc.logger.WithContext(ctx).Warn("compaction rejected, already in progress")
			return nil, ErrCompactionInProgress
		}
		return nil, fmt.Errorf("failed to acquire compaction lock: %w", err)
	}
	defer release()

	conv, err := uc.conversations.owned(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	uc.logger.WithContext(ctx).Info("compaction started", zap.Int("messages", len(conv.Messages)))
	resp, err := uc.compactor.Compact(ctx, compactor.Request{Messages: conv.Messages, Keep: keep})
	uc.logCompaction(ctx, id, resp, err)
	if err != nil {
		return nil, err
	}

	result := &CompactResult{
		ConversationID: id,
		TokensBefore:   resp.TokensBefore,
		TokensAfter:    resp.TokensAfter,
		Compacted:      resp.Compacted(),
	}
	stored := conv.Messages
	if result.Compacted {
		if err := uc.conversations.Replace(ctx, userID, id, conv.Version, resp.Messages); err != nil {
			if errors.Is(err, ErrConversationChanged) {
				uc.logger.WithContext(ctx).Warn("compaction discarded, conversation was written meanwhile")
			}
			return nil, err
		}
		stored = resp.Messages
	}

	files, err := uc.contexts.Files(ctx, userID)
	if err != nil {
		return nil, err
	}
	result.View = uc.view(stored, files)
	return result, nil
}

func (uc *AssistantUseCase) logCompaction(ctx context.Context, id string, resp *compactor.Response, err error) {
	log := uc.logger.WithContext(ctx)
	if resp == nil {
		return
	}
	fields := []zap.Field{
		zap.Int("tokens_before", resp.TokensBefore),
		zap.Int("tokens_after", resp.TokensAfter),
	}
	if id != "" && logger.GetConversationID(ctx) == "" {
		fields = append(fields, zap.String("conversation_id", id))
	}
	switch {
	case errors.Is(err, compactor.ErrSummaryExpanded):
		log.Error("compaction rejected, summary would enlarge the log", append(fields, zap.Error(err))...)
	case err != nil:
		log.Warn("compaction failed, log left unchanged", append(fields, zap.Error(err))...)
	case resp.Compacted():
		log.Info("compaction finished", fields...)
	default:
		log.Debug("nothing to compact", fields...)
	}
}
