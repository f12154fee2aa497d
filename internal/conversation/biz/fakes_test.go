package biz

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ngaut/NexusCRM-sub002/internal/conversation/types"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/database"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
)

type memConversationRepo struct {
	mu      sync.Mutex
	convs   map[string]*types.Conversation
	updates int
	failOn  string
}

func newMemConversationRepo() *memConversationRepo {
	return &memConversationRepo{convs: map[string]*types.Conversation{}}
}

func (r *memConversationRepo) Create(_ context.Context, c *types.Conversation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *c
	cp.Messages = types.CloneLog(c.Messages)
	r.convs[c.ID] = &cp
	return nil
}

func (r *memConversationRepo) GetByID(_ context.Context, id string) (*types.Conversation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.convs[id]
	if !ok {
		return nil, ErrConversationNotFound
	}
	cp := *c
	cp.Messages = types.CloneLog(c.Messages)
	return &cp, nil
}

func (r *memConversationRepo) GetActive(ctx context.Context, userID string) (*types.Conversation, error) {
	r.mu.Lock()
	var id string
	for _, c := range r.convs {
		if c.UserID == userID && c.IsActive {
			id = c.ID
		}
	}
	r.mu.Unlock()
	if id == "" {
		return nil, ErrConversationNotFound
	}
	return r.GetByID(ctx, id)
}

func (r *memConversationRepo) UpdateMessages(_ context.Context, id string, messages []types.Message, title string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "update" {
		return context.DeadlineExceeded
	}
	c, ok := r.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	r.updates++
	c.Version++
	c.Messages = types.CloneLog(messages)
	if title != "" {
		c.Title = title
	}
	return nil
}

func (r *memConversationRepo) ReplaceMessages(_ context.Context, id string, version int64, messages []types.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.failOn == "update" {
		return context.DeadlineExceeded
	}
	c, ok := r.convs[id]
	if !ok {
		return ErrConversationNotFound
	}
	if c.Version != version {
		return ErrConversationChanged
	}
	r.updates++
	c.Version++
	c.Messages = types.CloneLog(messages)
	return nil
}

func (r *memConversationRepo) DeactivateAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.convs {
		if c.UserID == userID {
			c.IsActive = false
		}
	}
	return nil
}

func (r *memConversationRepo) List(_ context.Context, userID string, limit int) ([]*types.ConversationSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*types.ConversationSummary
	for _, c := range r.convs {
		if c.UserID == userID {
			out = append(out, &types.ConversationSummary{ID: c.ID, Title: c.Title, MessageCount: len(c.Messages), IsActive: c.IsActive, UpdatedAt: c.UpdatedAt})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memConversationRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.convs, id)
	return nil
}

type memPinnedRepo struct {
	mu    sync.Mutex
	files map[string]map[string]types.ContextFile
}

func newMemPinnedRepo() *memPinnedRepo {
	return &memPinnedRepo{files: map[string]map[string]types.ContextFile{}}
}

func (r *memPinnedRepo) Upsert(_ context.Context, userID string, f *types.ContextFile) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files[userID] == nil {
		r.files[userID] = map[string]types.ContextFile{}
	}
	r.files[userID][f.Path] = *f
	return nil
}

func (r *memPinnedRepo) Delete(_ context.Context, userID string, paths []string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, p := range paths {
		if _, ok := r.files[userID][p]; ok {
			delete(r.files[userID], p)
			n++
		}
	}
	return n, nil
}

func (r *memPinnedRepo) DeleteAll(_ context.Context, userID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.files, userID)
	return nil
}

func (r *memPinnedRepo) List(_ context.Context, userID string, withContent bool) ([]types.ContextFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]types.ContextFile, 0, len(r.files[userID]))
	for _, f := range r.files[userID] {
		if !withContent {
			f.Content = ""
		}
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

type passTx struct{}

func (passTx) Transaction(ctx context.Context, fn database.TxFunc) error {
	return fn(ctx)
}

type mapLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func (l *mapLocker) Acquire(_ context.Context, key string, _ time.Duration) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held == nil {
		l.held = map[string]bool{}
	}
	if l.held[key] {
		return nil, ErrLockHeld
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		delete(l.held, key)
		l.mu.Unlock()
	}, nil
}

func testLogger() *logger.Logger {
	return logger.NewNop()
}
