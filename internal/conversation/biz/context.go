package biz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/budget"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"go.uber.org/zap"
)

// DefaultMaxFileBytes bounds a single pinned file
const DefaultMaxFileBytes = 1 << 20

// PinRequest pins one file. A nil Content reads the file from the context root.
type PinRequest struct {
	Path    string  `json:"path" binding:"required"`
	Content *string `json:"content,omitempty"`
}

// PinnedContext is the user's pinned context together with the base prompt
type PinnedContext struct {
	Items        []types.ContextFile `json:"items"`
	TotalTokens  int                 `json:"total_tokens"`
	SystemPrompt string              `json:"system_prompt"`
}

// ContextUseCase manages pinned context files
type ContextUseCase struct {
	repo     PinnedFileRepo
	prompt   *PromptBuilder
	root     string
	maxBytes int
	logger   *logger.Logger
}

// NewContextUseCase creates a context use case. An empty root disables
// reading files from disk.
func NewContextUseCase(repo PinnedFileRepo, prompt *PromptBuilder, root string, maxBytes int, log *logger.Logger) *ContextUseCase {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	return &ContextUseCase{
		repo:     repo,
		prompt:   prompt,
		root:     root,
		maxBytes: maxBytes,
		logger:   log.Named("context"),
	}
}

// SystemPrompt returns the base system prompt
func (uc *ContextUseCase) SystemPrompt() string {
	return uc.prompt.Base()
}

// Get lists pinned files, with bodies only when withContent is set
func (uc *ContextUseCase) Get(ctx context.Context, userID string, withContent bool) (*PinnedContext, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	files, err := uc.repo.List(ctx, userID, withContent)
	if err != nil {
		return nil, fmt.Errorf("failed to list pinned files: %w", err)
	}
	total := 0
	for _, f := range files {
		total += f.TokenSize
	}
	if files == nil {
		files = []types.ContextFile{}
	}
	return &PinnedContext{Items: files, TotalTokens: total, SystemPrompt: uc.SystemPrompt()}, nil
}

// Files returns the pinned files with content
func (uc *ContextUseCase) Files(ctx context.Context, userID string) ([]types.ContextFile, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	return uc.repo.List(ctx, userID, true)
}

// Pin adds or refreshes files. Each file's token size is computed once here.
func (uc *ContextUseCase) Pin(ctx context.Context, userID string, reqs []PinRequest) ([]types.ContextFile, error) {
	if userID == "" {
		return nil, ErrUserRequired
	}
	pinned := make([]types.ContextFile, 0, len(reqs))
	for _, req := range reqs {
		file, err := uc.load(req)
		if err != nil {
			return pinned, err
		}
		if err := uc.repo.Upsert(ctx, userID, file); err != nil {
			return pinned, fmt.Errorf("failed to pin %s: %w", file.Path, err)
		}
		uc.logger.WithContext(ctx).Debug("context file pinned",
			zap.String("path", file.Path),
			zap.Int("token_size", file.TokenSize))
		pinned = append(pinned, types.ContextFile{Path: file.Path, TokenSize: file.TokenSize})
	}
	return pinned, nil
}

func (uc *ContextUseCase) load(req PinRequest) (*types.ContextFile, error) {
	path := strings.TrimSpace(req.Path)
	if path == "" {
		return nil, fmt.Errorf("%w: empty path", ErrContextFileInvalid)
	}

	var content string
	if req.Content != nil {
		content = *req.Content
		path = filepath.ToSlash(filepath.Clean(path))
	} else {
		rel, err := uc.resolve(path)
		if err != nil {
			return nil, err
		}
		if content, err = uc.read(rel); err != nil {
			return nil, err
		}
		path = rel
	}

	if len(content) > uc.maxBytes {
		return nil, fmt.Errorf("%w: %s is %d bytes, limit %d", ErrContextFileTooLarge, path, len(content), uc.maxBytes)
	}
	return &types.ContextFile{Path: path, Content: content, TokenSize: budget.EstimateText(content)}, nil
}

// read loads rel through an os.Root so symlinks cannot leave the context
// root. Size is checked before the body is read.
func (uc *ContextUseCase) read(rel string) (string, error) {
	root, err := os.OpenRoot(uc.root)
	if err != nil {
		return "", fmt.Errorf("failed to open context root: %w", err)
	}
	defer root.Close()

	f, err := root.Open(filepath.FromSlash(rel))
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			return "", fmt.Errorf("%w: %s", ErrContextFileNotFound, rel)
		case errors.Is(err, fs.ErrPermission):
			return "", fmt.Errorf("failed to read %s: %w", rel, err)
		default:
			// os.Root refuses links resolving outside the root
			return "", fmt.Errorf("%w: %s: %v", ErrContextFileInvalid, rel, err)
		}
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("failed to stat %s: %w", rel, err)
	}
	if info.IsDir() {
		return "", fmt.Errorf("%w: %s is a directory", ErrContextFileInvalid, rel)
	}
	if info.Size() > int64(uc.maxBytes) {
		return "", fmt.Errorf("%w: %s is %d bytes, limit %d", ErrContextFileTooLarge, rel, info.Size(), uc.maxBytes)
	}

	data, err := io.ReadAll(io.LimitReader(f, int64(uc.maxBytes)+1))
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", rel, err)
	}
	return string(data), nil
}

// resolve maps a requested path to a slash-separated path relative to the
// context root, rejecting lexical escapes
func (uc *ContextUseCase) resolve(path string) (string, error) {
	if uc.root == "" {
		return "", fmt.Errorf("%w: no context root configured, content is required", ErrContextFileInvalid)
	}
	root, err := filepath.Abs(uc.root)
	if err != nil {
		return "", fmt.Errorf("failed to resolve context root: %w", err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	rel, err := filepath.Rel(root, candidate)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("%w: %s is outside the context root", ErrContextFileInvalid, path)
	}
	if rel == "." {
		return "", fmt.Errorf("%w: %s is a directory", ErrContextFileInvalid, path)
	}
	return filepath.ToSlash(rel), nil
}

// Unpin removes the given paths; an empty list clears everything
func (uc *ContextUseCase) Unpin(ctx context.Context, userID string, paths []string) error {
	if userID == "" {
		return ErrUserRequired
	}
	if len(paths) == 0 {
		if err := uc.repo.DeleteAll(ctx, userID); err != nil {
			return fmt.Errorf("failed to clear pinned files: %w", err)
		}
		return nil
	}
	cleaned := make([]string, len(paths))
	for i, p := range paths {
		cleaned[i] = filepath.ToSlash(filepath.Clean(strings.TrimSpace(p)))
	}
	if _, err := uc.repo.Delete(ctx, userID, cleaned); err != nil {
		return fmt.Errorf("failed to unpin files: %w", err)
	}
	return nil
}
