package biz

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func newTestContextUseCase(t *testing.T, root string) (*ContextUseCase, *memPinnedRepo) {
	t.Helper()
	repo := newMemPinnedRepo()
	return NewContextUseCase(repo, NewPromptBuilder("You are Nexus."), root, 64, testLogger()), repo
}

func TestPinWithContent(t *testing.T) {
	uc, repo := newTestContextUseCase(t, "")
	ctx := context.Background()

	pinned, err := uc.Pin(ctx, "u1", []PinRequest{{Path: "./notes/acme.md", Content: strPtr(strings.Repeat("x", 10))}})
	require.NoError(t, err)
	require.Len(t, pinned, 1)
	assert.Equal(t, "notes/acme.md", pinned[0].Path)
	assert.Equal(t, 3, pinned[0].TokenSize, "ceil(10/4)")
	assert.Empty(t, pinned[0].Content)

	stored := repo.files["u1"]["notes/acme.md"]
	assert.Equal(t, strings.Repeat("x", 10), stored.Content)

	got, err := uc.Get(ctx, "u1", false)
	require.NoError(t, err)
	assert.Equal(t, 3, got.TotalTokens)
	assert.Equal(t, "You are Nexus.", got.SystemPrompt)
	assert.Empty(t, got.Items[0].Content)

	got, err = uc.Get(ctx, "u1", true)
	require.NoError(t, err)
	assert.NotEmpty(t, got.Items[0].Content)
}

func TestPinFromContextRoot(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "docs"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "docs", "schema.md"), []byte("account: name, owner"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "big.txt"), []byte(strings.Repeat("y", 65)), 0o644))
	outside := filepath.Join(t.TempDir(), "secret.txt")
	require.NoError(t, os.WriteFile(outside, []byte("secret"), 0o644))
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link.txt")))
	require.NoError(t, os.Symlink(filepath.Join("docs", "schema.md"), filepath.Join(root, "alias.md")))

	uc, _ := newTestContextUseCase(t, root)
	ctx := context.Background()

	pinned, err := uc.Pin(ctx, "u1", []PinRequest{{Path: "docs/schema.md"}})
	require.NoError(t, err)
	assert.Equal(t, "docs/schema.md", pinned[0].Path)
	assert.Equal(t, 5, pinned[0].TokenSize)

	pinned, err = uc.Pin(ctx, "u1", []PinRequest{{Path: filepath.Join(root, "docs", "schema.md")}})
	require.NoError(t, err)
	assert.Equal(t, "docs/schema.md", pinned[0].Path, "absolute paths inside the root are normalized")

	pinned, err = uc.Pin(ctx, "u1", []PinRequest{{Path: "alias.md"}})
	require.NoError(t, err, "links staying inside the root are followed")
	assert.Equal(t, 5, pinned[0].TokenSize)

	tests := []struct {
		name string
		path string
		want error
	}{
		{"symlink escape", "link.txt", ErrContextFileInvalid},
		{"directory", "docs", ErrContextFileInvalid},
		{"parent escape", "../secret.txt", ErrContextFileInvalid},
		{"nested escape", "docs/../../secret.txt", ErrContextFileInvalid},
		{"absolute outside", outside, ErrContextFileInvalid},
		{"root itself", ".", ErrContextFileInvalid},
		{"empty", "  ", ErrContextFileInvalid},
		{"missing", "docs/none.md", ErrContextFileNotFound},
		{"too large", "big.txt", ErrContextFileTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := uc.Pin(ctx, "u1", []PinRequest{{Path: tt.path}})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestPinWithoutRootRequiresContent(t *testing.T) {
	uc, _ := newTestContextUseCase(t, "")
	_, err := uc.Pin(context.Background(), "u1", []PinRequest{{Path: "a.md"}})
	assert.ErrorIs(t, err, ErrContextFileInvalid)
}

func TestUnpin(t *testing.T) {
	uc, repo := newTestContextUseCase(t, "")
	ctx := context.Background()
	_, err := uc.Pin(ctx, "u1", []PinRequest{
		{Path: "a.md", Content: strPtr("a")},
		{Path: "b.md", Content: strPtr("b")},
		{Path: "c.md", Content: strPtr("c")},
	})
	require.NoError(t, err)

	require.NoError(t, uc.Unpin(ctx, "u1", []string{"./a.md"}))
	assert.Len(t, repo.files["u1"], 2)

	require.NoError(t, uc.Unpin(ctx, "u1", nil))
	assert.Empty(t, repo.files["u1"])

	assert.ErrorIs(t, uc.Unpin(ctx, "", nil), ErrUserRequired)
}

func TestPromptBuilder(t *testing.T) {
	p := NewPromptBuilder("")
	p.now = func() time.Time { return time.Date(2026, 10, 18, 0, 0, 0, 0, time.UTC) }
	assert.True(t, strings.HasPrefix(p.Base(), "You are Nexus, an AI assistant for NexusCRM. Today is Sunday, October 18, 2026.\n"))
	assert.Equal(t, "custom", NewPromptBuilder("custom").Base())
}
