package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"gorm.io/gorm"
)

// Conversation is the GORM model for conversations table
type Conversation struct {
	ID       string     `gorm:"primaryKey;type:varchar(36)"`
	UserID   string     `gorm:"type:varchar(36);not null;index:idx_conversations_user_active,priority:1"`
	Title    string     `gorm:"type:varchar(255);not null"`
	Messages MessageLog `gorm:"type:jsonb;not null"`
	IsActive bool       `gorm:"not null;default:false;index:idx_conversations_user_active,priority:2"`
	Version  int64      `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time `gorm:"index"`
}

// TableName specifies the table name
func (Conversation) TableName() string {
	return "conversations"
}

// PinnedFile is the GORM model for pinned_files table
type PinnedFile struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	UserID    string `gorm:"type:varchar(36);not null;uniqueIndex:idx_pinned_files_user_path,priority:1"`
	Path      string `gorm:"type:varchar(1024);not null;uniqueIndex:idx_pinned_files_user_path,priority:2"`
	Content   string `gorm:"type:text;not null"`
	TokenSize int    `gorm:"not null;default:0"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TableName specifies the table name
func (PinnedFile) TableName() string {
	return "pinned_files"
}

// MessageLog stores a message log as a JSON array
type MessageLog []types.Message

// Scan implements sql.Scanner
func (l *MessageLog) Scan(value any) error {
	if value == nil {
		*l = MessageLog{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported message log type %T", value)
	}
	out := MessageLog{}
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("failed to decode message log: %w", err)
	}
	*l = out
	return nil
}

// Value implements driver.Valuer. A nil log is stored as [].
func (l MessageLog) Value() (driver.Value, error) {
	if l == nil {
		return []byte("[]"), nil
	}
	b, err := json.Marshal([]types.Message(l))
	if err != nil {
		return nil, err
	}
	return b, nil
}

// AutoMigrate runs database migrations for the conversation domain
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Conversation{},
		&PinnedFile{},
	)
}

// All lists the models for migration through database.DB.AutoMigrate
func All() []any {
	return []any{&Conversation{}, &PinnedFile{}}
}
