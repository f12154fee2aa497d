package data

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/models"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
	"gorm.io/gorm/clause"
)

// PinnedFileRepo implements biz.PinnedFileRepo with GORM
type PinnedFileRepo struct {
	db *database.DB
}

// NewPinnedFileRepo creates a pinned file repository
func NewPinnedFileRepo(db *database.DB) biz.PinnedFileRepo {
	return &PinnedFileRepo{db: db}
}

// Upsert inserts the file or refreshes the content of an existing pin
func (r *PinnedFileRepo) Upsert(ctx context.Context, userID string, file *types.ContextFile) error {
	m := &models.PinnedFile{
		ID:        uuid.NewString(),
		UserID:    userID,
		Path:      file.Path,
		Content:   file.Content,
		TokenSize: file.TokenSize,
	}
	err := r.db.Conn(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "path"}},
		DoUpdates: clause.AssignmentColumns([]string{"content", "token_size", "updated_at"}),
	}).Create(m).Error
	if err != nil {
		return fmt.Errorf("failed to pin file: %w", err)
	}
	return nil
}

func (r *PinnedFileRepo) Delete(ctx context.Context, userID string, paths []string) (int64, error) {
	res := r.db.Conn(ctx).Scopes(database.OwnedBy(userID)).
		Where("path IN ?", paths).
		Delete(&models.PinnedFile{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to unpin files: %w", res.Error)
	}
	return res.RowsAffected, nil
}

func (r *PinnedFileRepo) DeleteAll(ctx context.Context, userID string) error {
	if err := r.db.Conn(ctx).Scopes(database.OwnedBy(userID)).Delete(&models.PinnedFile{}).Error; err != nil {
		return fmt.Errorf("failed to clear pinned files: %w", err)
	}
	return nil
}

// List returns pinned files ordered by path. Content is only loaded when
// withContent is set.
func (r *PinnedFileRepo) List(ctx context.Context, userID string, withContent bool) ([]types.ContextFile, error) {
	cols := []string{"path", "token_size"}
	if withContent {
		cols = append(cols, "content")
	}
	var rows []models.PinnedFile
	err := r.db.Conn(ctx).Select(cols).
		Scopes(database.OwnedBy(userID), database.OrderBy("path", false)).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned files: %w", err)
	}

	files := make([]types.ContextFile, 0, len(rows))
	for _, row := range rows {
		files = append(files, types.ContextFile{Path: row.Path, TokenSize: row.TokenSize, Content: row.Content})
	}
	return files, nil
}
