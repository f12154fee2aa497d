package biz

import (
	"context"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
)

// ConversationRepo persists per-user message logs
type ConversationRepo interface {
	Create(ctx context.Context, conv *types.Conversation) error
	// GetByID returns ErrConversationNotFound when missing
	GetByID(ctx context.Context, id string) (*types.Conversation, error)
	// GetActive returns ErrConversationNotFound when the user has none
	GetActive(ctx context.Context, userID string) (*types.Conversation, error)
	// UpdateMessages replaces the log; an empty title keeps the current one
	UpdateMessages(ctx context.Context, id string, messages []types.Message, title string) error
	// ReplaceMessages writes the log only if the stored version still equals
	// version, else it returns ErrConversationChanged
	ReplaceMessages(ctx context.Context, id string, version int64, messages []types.Message) error
	DeactivateAll(ctx context.Context, userID string) error
	List(ctx context.Context, userID string, limit int) ([]*types.ConversationSummary, error)
	Delete(ctx context.Context, id string) error
}

// PinnedFileRepo persists the per-user pinned context
type PinnedFileRepo interface {
	Upsert(ctx context.Context, userID string, file *types.ContextFile) error
	Delete(ctx context.Context, userID string, paths []string) (int64, error)
	DeleteAll(ctx context.Context, userID string) error
	List(ctx context.Context, userID string, withContent bool) ([]types.ContextFile, error)
}

// Transactor runs fn atomically; repositories join the transaction via ctx
type Transactor interface {
	Transaction(ctx context.Context, fn database.TxFunc) error
}

// Locker is a non-blocking mutual exclusion keyed by string. Acquire
// returns ErrLockHeld when the key is taken.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), err error)
}
