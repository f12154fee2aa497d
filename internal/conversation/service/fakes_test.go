package service

import (
	"context"
	"sort"
	"sync"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/biz"
	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
)

type memConversations struct {
	mu    sync.Mutex
	convs map[string]types.Conversation
}

func (r *memConversations) Create(_ context.Context, c *types.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.convs[c.ID] = *c
	return nil
}

func (r *memConversations) GetByID(_ context.Context, id string) (*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, biz.ErrConversationNotFound
	}
	return &c, nil
}

func (r *memConversations) GetActive(_ context.Context, userID string) (*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.UserID == userID && c.IsActive {
			return &c, nil
		}
	}
	return nil, biz.ErrConversationNotFound
}

func (r *memConversations) UpdateMessages(_ context.Context, id string, messages []types.Message, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return biz.ErrConversationNotFound
	}
	c.Version++
	c.Messages = types.CloneLog(messages)
	if title != "" {
		c.Title = title
	}
	r.convs[id] = c
	return nil
}

func (r *memConversations) ReplaceMessages(_ context.Context, id string, version int64, messages []types.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return biz.ErrConversationNotFound
	}
	if c.Version != version {
		return biz.ErrConversationChanged
	}
	c.Version++
	c.Messages = types.CloneLog(messages)
	r.convs[id] = c
	return nil
}

func (r *memConversations) DeactivateAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, c := range r.convs {
		if c.UserID == userID {
			c.IsActive = false
			r.convs[id] = c
		}
	}
	return nil
}

func (r *memConversations) List(_ context.Context, userID string, _ int) ([]*types.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ConversationSummary
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, &types.ConversationSummary{ID: c.ID, Title: c.Title, MessageCount: len(c.Messages), IsActive: c.IsActive})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *memConversations) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	return nil
}

type memPinned struct {
	mu    sync.Mutex
	files map[string][]types.ContextFile
}

func (r *memPinned) Upsert(_ context.Context, userID string, f *types.ContextFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existing := range r.files[userID] {
		if existing.Path == f.Path {
			r.files[userID][i] = *f
			return nil
		}
	}
	r.files[userID] = append(r.files[userID], *f)
	return nil
}

func (r *memPinned) Delete(_ context.Context, userID string, paths []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	drop := map[string]bool{}
	for _, p := range paths {
		drop[p] = true
	}
	var kept []types.ContextFile
	for _, f := range r.files[userID] {
		if !drop[f.Path] {
			kept = append(kept, f)
		}
	}
	n := int64(len(r.files[userID]) - len(kept))
	r.files[userID] = kept
	return n, nil
}

func (r *memPinned) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, userID)
	return nil
}

func (r *memPinned) List(_ context.Context, userID string, withContent bool) ([]types.ContextFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ContextFile, 0, len(r.files[userID]))
	for _, f := range r.files[userID] {
		if !withContent {
			f.Content = ""
		}
		out = append(out, f)
	}
	return out, nil
}

type passTx struct{}

func (passTx) Transaction(ctx context.Context, fn database.TxFunc) error {
	return fn(ctx)
}
