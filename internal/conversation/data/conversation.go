package data

import (
	"context"
	"fmt"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/models"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
	"gorm.io/gorm"
)

// ConversationRepo implements biz.ConversationRepo with GORM
type ConversationRepo struct {
	db *database.DB
}

// NewConversationRepo creates a conversation repository
func NewConversationRepo(db *database.DB) biz.ConversationRepo {
	return &ConversationRepo{db: db}
}

func (r *ConversationRepo) Create(ctx context.Context, conv *types.Conversation) error {
	if err := r.db.Conn(ctx).Create(toConversationModel(conv)).Error; err != nil {
		return fmt.Errorf("failed to create conversation: %w", err)
	}
	return nil
}

func (r *ConversationRepo) GetByID(ctx context.Context, id string) (*types.Conversation, error) {
	var m models.Conversation
	if err := r.db.Conn(ctx).Where("id = ?", id).First(&m).Error; err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	return toConversation(&m), nil
}

func (r *ConversationRepo) GetActive(ctx context.Context, userID string) (*types.Conversation, error) {
	var m models.Conversation
	err := r.db.Conn(ctx).
		Scopes(database.OwnedBy(userID), database.OrderBy("updated_at", true)).
		Where("is_active = ?", true).
		First(&m).Error
	if err != nil {
		if database.IsRecordNotFoundError(err) {
			return nil, biz.ErrConversationNotFound
		}
		return nil, fmt.Errorf("failed to get active conversation: %w", err)
	}
	return toConversation(&m), nil
}

func (r *ConversationRepo) UpdateMessages(ctx context.Context, id string, messages []types.Message, title string) error {
	updates := map[string]any{
		"messages":   models.MessageLog(messages),
		"version":    gorm.Expr("version + 1"),
		"updated_at": time.Now().UTC(),
	}
	if title != "" {
		updates["title"] = title
	}
	res := r.db.Conn(ctx).Model(&models.Conversation{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("failed to update conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return biz.ErrConversationNotFound
	}
	return nil
}

func (r *ConversationRepo) ReplaceMessages(ctx context.Context, id string, version int64, messages []types.Message) error {
	res := r.db.Conn(ctx).Model(&models.Conversation{}).
		Where("id = ? AND version = ?", id, version).
		Updates(map[string]any{
			"messages":   models.MessageLog(messages),
			"version":    gorm.Expr("version + 1"),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to replace conversation messages: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}

	var n int64
	if err := r.db.Conn(ctx).Model(&models.Conversation{}).Where("id = ?", id).Count(&n).Error; err != nil {
		return fmt.Errorf("failed to check conversation: %w", err)
	}
	if n == 0 {
		return biz.ErrConversationNotFound
	}
	return biz.ErrConversationChanged
}

func (r *ConversationRepo) DeactivateAll(ctx context.Context, userID string) error {
	err := r.db.Conn(ctx).Model(&models.Conversation{}).
		Scopes(database.OwnedBy(userID)).
		Where("is_active = ?", true).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("failed to deactivate conversations: %w", err)
	}
	return nil
}

// conversationRow is the list projection; message bodies are not loaded
type conversationRow struct {
	ID           string
	Title        string
	MessageCount int
	IsActive     bool
	UpdatedAt    time.Time
}

func (r *ConversationRepo) List(ctx context.Context, userID string, limit int) ([]*types.ConversationSummary, error) {
	var rows []conversationRow
	err := r.db.Conn(ctx).Model(&models.Conversation{}).
		Select("id, title, jsonb_array_length(messages) AS message_count, is_active, updated_at").
		Scopes(database.OwnedBy(userID), database.OrderBy("updated_at", true), database.Limit(limit)).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}

	out := make([]*types.ConversationSummary, 0, len(rows))
	for _, row := range rows {
		out = append(out, &types.ConversationSummary{
			ID:           row.ID,
			Title:        row.Title,
			MessageCount: row.MessageCount,
			IsActive:     row.IsActive,
			UpdatedAt:    row.UpdatedAt,
		})
	}
	return out, nil
}

func (r *ConversationRepo) Delete(ctx context.Context, id string) error {
	if err := r.db.Conn(ctx).Where("id = ?", id).Delete(&models.Conversation{}).Error; err != nil {
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	return nil
}

func toConversationModel(c *types.Conversation) *models.Conversation {
	return &models.Conversation{
		ID:        c.ID,
		UserID:    c.UserID,
		Title:     c.Title,
		Messages:  models.MessageLog(c.Messages),
		IsActive:  c.IsActive,
		Version:   c.Version,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func toConversation(m *models.Conversation) *types.Conversation {
	messages := []types.Message(m.Messages)
	if messages == nil {
		messages = []types.Message{}
	}
	return &types.Conversation{
		ID:        m.ID,
		UserID:    m.UserID,
		Title:     m.Title,
		Messages:  messages,
		IsActive:  m.IsActive,
		Version:   m.Version,
		CreatedAt: m.CreatedAt,
		UpdatedAt: m.UpdatedAt,
	}
}
