package redis

import (
	"context"
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ngaut/NexusCRM-sub002/internal/pkg/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestClient 连接测试 Redis，不可用时跳过
func setupTestClient(t *testing.T) *Client {
	t.Helper()
	addr := os.Getenv("NEXUS_TEST_REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.DialTimeout = time.Second
	cfg.MaxRetries = 0
	cfg.KeyPrefix = "nexus-test:" + uuid.NewString()[:8] + ":"

	client, err := New(cfg, logger.NewNop())
	if err != nil {
		t.Skipf("redis not available at %s: %v", addr, err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"single", Config{Mode: ModeSingle, Addr: "localhost:6379"}, false},
		{"empty mode defaults to single", Config{Addr: "localhost:6379"}, false},
		{"single without addr", Config{Mode: ModeSingle}, true},
		{"sentinel", Config{Mode: ModeSentinel, SentinelAddrs: []string{"s:26379"}, MasterName: "mymaster"}, false},
		{"sentinel without master", Config{Mode: ModeSentinel, SentinelAddrs: []string{"s:26379"}}, true},
		{"cluster unsupported", Config{Mode: "cluster", Addr: "x"}, true},
		{"negative db", Config{Addr: "x", DB: -1}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidConfig)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestKey(t *testing.T) {
	c := NewWithClient(nil, &Config{KeyPrefix: "nexus:"}, logger.NewNop())
	assert.Equal(t, "nexus:compact:conv-1", c.Key("compact", "conv-1"))
	assert.Equal(t, "nexus:", c.Key())
}

func TestBasicOperations(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	key := client.Key("kv")

	require.NoError(t, client.Set(ctx, key, "v1", time.Minute))
	val, err := client.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "v1", val)

	n, err := client.Exists(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = client.Del(ctx, key)
	require.NoError(t, err)
	_, err = client.Get(ctx, key)
	assert.True(t, IsNil(err))
}

func TestLock(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	key := client.Key("lock")

	token, err := client.Lock(ctx, key, 10*time.Second)
	require.NoError(t, err)

	_, err = client.Lock(ctx, key, 10*time.Second)
	assert.ErrorIs(t, err, ErrLockNotHeld)

	assert.ErrorIs(t, client.Unlock(ctx, key, "wrong-token"), ErrLockMismatch)
	require.NoError(t, client.Unlock(ctx, key, token))

	token, err = client.TryLock(ctx, key, time.Second, 1, 10*time.Millisecond)
	require.NoError(t, err)
	require.NoError(t, client.Unlock(ctx, key, token))
}

func TestWithLockConcurrent(t *testing.T) {
	client := setupTestClient(t)
	ctx := context.Background()
	key := client.Key("with-lock")

	var ran, rejected atomic.Int32
	release := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := client.WithLock(ctx, key, 10*time.Second, func() error {
				ran.Add(1)
				<-release
				return nil
			})
			if errors.Is(err, ErrLockNotHeld) {
				rejected.Add(1)
			}
		}()
	}

	require.Eventually(t, func() bool { return ran.Load()+rejected.Load() == 5 || rejected.Load() == 4 }, 5*time.Second, 10*time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), ran.Load())
	assert.Equal(t, int32(4), rejected.Load())
}
