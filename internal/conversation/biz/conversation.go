package biz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"go.uber.org/zap"
)

const (
	maxTitleLength  = 50
	defaultTitle    = "New Conversation"
	maxListedConvos = 100
)

// SaveRequest saves a message log. An empty ConversationID creates a new
// active conversation.
type SaveRequest struct {
	ConversationID string          `json:"conversation_id"`
	Messages       []types.Message `json:"messages"`
	Title          string          `json:"title"`
}

// SaveResult reports the saved conversation id
type SaveResult struct {
	ID     string `json:"id"`
	Status string `json:"status"` // created | updated
}

// ConversationUseCase manages stored conversations
type ConversationUseCase struct {
	repo   ConversationRepo
	tx     Transactor
	logger *logger.Logger
	now    func() time.Time
}

// NewConversationUseCase creates a conversation use case
func NewConversationUseCase(repo ConversationRepo, tx Transactor, log *logger.Logger) *ConversationUseCase {
	return &ConversationUseCase{
		repo:   repo,
		tx:     tx,
		logger: log.Named("conversation"),
		now:    time.Now,
	}
}

// Get returns the conversation with id, or the user's active one when id is
// empty. A user without an active conversation gets (nil, nil).
func (uc *ConversationUseCase) Get(ctx context.Context, userID, id string) (*types.Conversation, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if id == "" {
		conv, err := uc.repo.GetActive(ctx, userID)
		if errors.Is(err, ErrConversationNotFound) {
			return nil, nil
		}
		return conv, err
	}
	return uc.owned(ctx, userID, id)
}

func (uc *ConversationUseCase) owned(ctx context.Context, userID, id string) (*types.Conversation, error) {
	conv, err := uc.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if conv.UserID != userID {
		return nil, ErrConversationForbidden
	}
	return conv, nil
}

// Save replaces the log of an owned conversation or creates a new active one
func (uc *ConversationUseCase) Save(ctx context.Context, userID string, req *SaveRequest) (*SaveResult, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	if err := ValidateMessages(req.Messages); err != nil {
		return nil, err
	}
	messages := req.Messages
	if messages == nil {
		messages = []types.Message{}
	}

	if req.ConversationID != "" {
		if _, err := uc.owned(ctx, userID, req.ConversationID); err != nil {
			return nil, err
		}
		if err := uc.repo.UpdateMessages(ctx, req.ConversationID, messages, req.Title); err != nil {
			return nil, fmt.Errorf("failed to update conversation: %w", err)
		}
		return &SaveResult{ID: req.ConversationID, Status: "updated"}, nil
	}

	title := req.Title
	if title == "" {
		title = GenerateTitle(messages)
	}
	now := uc.now()
	conv := &types.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		Title:     title,
		Messages:  messages,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := uc.tx.Transaction(ctx, func(ctx context.Context) error {
		if err := uc.repo.DeactivateAll(ctx, userID); err != nil {
			return err
		}
		return uc.repo.Create(ctx, conv)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}

	uc.logger.WithContext(ctx).Info("conversation created",
		zap.String("conversation_id", conv.ID),
		zap.Int("messages", len(messages)))
	return &SaveResult{ID: conv.ID, Status: "created"}, nil
}

// Replace swaps the stored log of an owned conversation, provided nothing
// was written to it after version was read
func (uc *ConversationUseCase) Replace(ctx context.Context, userID, id string, version int64, messages []types.Message) error {
	if _, err := uc.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := uc.repo.ReplaceMessages(ctx, id, version, messages); err != nil {
		if errors.Is(err, ErrConversationChanged) || errors.Is(err, ErrConversationNotFound) {
			return err
		}
		return fmt.Errorf("failed to replace conversation: %w", err)
	}
	return nil
}

// Clear empties the messages of the active conversation, keeping the record
func (uc *ConversationUseCase) Clear(ctx context.Context, userID string) error {
	conv, err := uc.Get(ctx, userID, "")
	if err != nil || conv == nil {
		return err
	}
	if err := uc.repo.UpdateMessages(ctx, conv.ID, []types.Message{}, ""); err != nil {
		return fmt.Errorf("failed to clear conversation: %w", err)
	}
	return nil
}

// List returns the user's conversations, most recently updated first
func (uc *ConversationUseCase) List(ctx context.Context, userID string) ([]*types.ConversationSummary, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	list, err := uc.repo.List(ctx, userID, maxListedConvos)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return list, nil
}

// Delete removes an owned conversation
func (uc *ConversationUseCase) Delete(ctx context.Context, userID, id string) error {
	if userID == "" {
		return ErrUserRequired
	}
	if _, err := uc.owned(ctx, userID, id); err != nil {
		return err
	}
	if err := uc.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

// GenerateTitle derives a title from the first user turn
func GenerateTitle(messages []types.Message) string {
	for _, m := range messages {
		if m.Role != types.RoleUser {
			continue
		}
		content := strings.TrimSpace(m.Content)
		if content == "" {
			continue
		}
		if utf8.RuneCountInString(content) > maxTitleLength {
			r := []rune(content)
			return string(r[:maxTitleLength-3]) + "..."
		}
		return content
	}
	return defaultTitle
}

// ValidateMessages rejects turns with an unknown role
func ValidateMessages(messages []types.Message) error {
	for i, m := range messages {
		if !m.Role.Valid() {
			return fmt.Errorf("%w: message %d has role %q", ErrInvalidMessages, i, m.Role)
		}
	}
	return nil
}
