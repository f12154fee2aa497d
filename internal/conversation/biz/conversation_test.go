package biz

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestConversationUseCase() (*ConversationUseCase, *memConversationRepo) {
	repo := newMemConversationRepo()
	uc := NewConversationUseCase(repo, passTx{}, testLogger())
	return uc, repo
}

func TestSaveCreatesActiveConversation(t *testing.T) {
	uc, repo := newTestConversationUseCase()
	ctx := context.Background()

	first, err := uc.Save(ctx, "u1", &SaveRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "Show my pipeline"}}})
	require.NoError(t, err)
	assert.Equal(t, "created", first.Status)

	second, err := uc.Save(ctx, "u1", &SaveRequest{Title: "Renewals"})
	require.NoError(t, err)

	assert.False(t, repo.convs[first.ID].IsActive)
	assert.True(t, repo.convs[second.ID].IsActive)
	assert.Equal(t, "Show my pipeline", repo.convs[first.ID].Title)
	assert.Equal(t, "Renewals", repo.convs[second.ID].Title)
	assert.NotNil(t, repo.convs[second.ID].Messages)

	active, err := uc.Get(ctx, "u1", "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, active.ID)
}

func TestSaveUpdatesOwnedConversation(t *testing.T) {
	uc, repo := newTestConversationUseCase()
	ctx := context.Background()

	created, err := uc.Save(ctx, "u1", &SaveRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	res, err := uc.Save(ctx, "u1", &SaveRequest{
		ConversationID: created.ID,
		Messages:       []types.Message{{Role: types.RoleUser, Content: "hi"}, {Role: types.RoleAssistant, Content: "hello"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "updated", res.Status)
	assert.Len(t, repo.convs[created.ID].Messages, 2)
	assert.Equal(t, "hi", repo.convs[created.ID].Title)

	_, err = uc.Save(ctx, "u2", &SaveRequest{ConversationID: created.ID})
	assert.ErrorIs(t, err, ErrConversationForbidden)

	_, err = uc.Save(ctx, "u1", &SaveRequest{ConversationID: "missing"})
	assert.ErrorIs(t, err, ErrConversationNotFound)
}

func TestSaveRejectsInvalidRole(t *testing.T) {
	uc, _ := newTestConversationUseCase()
	_, err := uc.Save(context.Background(), "u1", &SaveRequest{Messages: []types.Message{{Role: "bot", Content: "x"}}})
	assert.ErrorIs(t, err, ErrInvalidMessages)

	_, err = uc.Save(context.Background(), "", &SaveRequest{})
	assert.ErrorIs(t, err, ErrUserRequired)
}

func TestGetWithoutActive(t *testing.T) {
	uc, _ := newTestConversationUseCase()
	conv, err := uc.Get(context.Background(), "u1", "")
	require.NoError(t, err)
	assert.Nil(t, conv)
}

func TestClearKeepsRecord(t *testing.T) {
	uc, repo := newTestConversationUseCase()
	ctx := context.Background()

	require.NoError(t, uc.Clear(ctx, "u1"), "clearing without a conversation is a no-op")

	created, err := uc.Save(ctx, "u1", &SaveRequest{Messages: []types.Message{{Role: types.RoleUser, Content: "hi"}}})
	require.NoError(t, err)
	require.NoError(t, uc.Clear(ctx, "u1"))

	conv := repo.convs[created.ID]
	require.NotNil(t, conv)
	assert.Empty(t, conv.Messages)
	assert.True(t, conv.IsActive)
}

func TestListAndDelete(t *testing.T) {
	uc, _ := newTestConversationUseCase()
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	var ids []string
	for i := 0; i < 3; i++ {
		uc.now = func() time.Time { return base.Add(time.Duration(i) * time.Hour) }
		res, err := uc.Save(ctx, "u1", &SaveRequest{Title: "c"})
		require.NoError(t, err)
		ids = append(ids, res.ID)
	}

	list, err := uc.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, ids[2], list[0].ID)
	assert.True(t, list[0].IsActive)

	assert.ErrorIs(t, uc.Delete(ctx, "u2", ids[0]), ErrConversationForbidden)
	require.NoError(t, uc.Delete(ctx, "u1", ids[0]))
	assert.ErrorIs(t, uc.Delete(ctx, "u1", ids[0]), ErrConversationNotFound)
}

func TestGenerateTitle(t *testing.T) {
	long := strings.Repeat("a", 60)
	tests := []struct {
		name     string
		messages []types.Message
		want     string
	}{
		{"no messages", nil, "New Conversation"},
		{"no user turn", []types.Message{{Role: types.RoleAssistant, Content: "hi"}}, "New Conversation"},
		{"first user turn", []types.Message{{Role: types.RoleSystem, Content: "sys"}, {Role: types.RoleUser, Content: "  List accounts "}, {Role: types.RoleUser, Content: "later"}}, "List accounts"},
		{"skips empty user turn", []types.Message{{Role: types.RoleUser, Content: " "}, {Role: types.RoleUser, Content: "second"}}, "second"},
		{"truncated", []types.Message{{Role: types.RoleUser, Content: long}}, strings.Repeat("a", 47) + "..."},
		{"exactly fifty", []types.Message{{Role: types.RoleUser, Content: strings.Repeat("b", 50)}}, strings.Repeat("b", 50)},
		{"multibyte", []types.Message{{Role: types.RoleUser, Content: strings.Repeat("é", 60)}}, strings.Repeat("é", 47) + "..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateTitle(tt.messages))
		})
	}
}
