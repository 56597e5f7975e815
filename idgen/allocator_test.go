package idgen

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/gedid/testkit"
)

// ========================================
// Allocator 单元测试
// ========================================

func TestNewAllocator_Unit(t *testing.T) {
	_, redisConn := testkit.NewMiniRedisConnector(t)

	tests := []struct {
		name        string
		cfg         *AllocatorConfig
		opts        []Option
		expectError error
	}{
		{name: "nil config", cfg: nil, expectError: ErrInvalidInput},
		{name: "default static", cfg: &AllocatorConfig{}},
		{name: "unsupported driver", cfg: &AllocatorConfig{Driver: "consul"}, expectError: ErrInvalidInput},
		{name: "max id too large", cfg: &AllocatorConfig{Driver: AllocatorStatic, MaxID: 64}, expectError: ErrInvalidInput},
		{name: "static worker out of range", cfg: &AllocatorConfig{WorkerID: 32}, expectError: ErrInvalidInput},
		{name: "redis ttl too small", cfg: &AllocatorConfig{Driver: AllocatorRedis, TTL: 2}, opts: []Option{WithRedisConnector(redisConn)}, expectError: ErrInvalidInput},
		{name: "redis without connector", cfg: &AllocatorConfig{Driver: AllocatorRedis}, expectError: ErrConnectorNil},
		{name: "etcd without connector", cfg: &AllocatorConfig{Driver: AllocatorEtcd}, expectError: ErrConnectorNil},
		{name: "redis", cfg: &AllocatorConfig{Driver: AllocatorRedis}, opts: []Option{WithRedisConnector(redisConn)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAllocator(tt.cfg, tt.opts...)
			if tt.expectError != nil {
				assert.ErrorIs(t, err, tt.expectError)
				return
			}
			require.NoError(t, err)
			a.Stop()
		})
	}
}

func TestStaticAllocator_Unit(t *testing.T) {
	a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorStatic, WorkerID: 9})
	require.NoError(t, err)
	defer a.Stop()

	id, err := a.Allocate(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(9), id)

	select {
	case err := <-a.KeepAlive(context.Background()):
		t.Fatalf("static allocator must not report keep alive errors: %v", err)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestRedisAllocator_UniqueUntilExhausted_Unit(t *testing.T) {
	ctx := context.Background()
	mr, redisConn := testkit.NewMiniRedisConnector(t)
	cfg := AllocatorConfig{Driver: AllocatorRedis, KeyPrefix: "gedid:worker:1", MaxID: 4, TTL: 30}

	seen := make(map[int64]bool)
	for i := 0; i < 4; i++ {
		c := cfg
		a, err := NewAllocator(&c, WithRedisConnector(redisConn))
		require.NoError(t, err)
		id, err := a.Allocate(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id], "worker id %d allocated twice", id)
		seen[id] = true
		assert.True(t, mr.Exists(fmt.Sprintf("gedid:worker:1:%d", id)))
	}

	c := cfg
	a, err := NewAllocator(&c, WithRedisConnector(redisConn))
	require.NoError(t, err)
	_, err = a.Allocate(ctx)
	assert.ErrorIs(t, err, ErrWorkerIDExhausted)

	// 租约过期后 ID 可以重新分配
	mr.FastForward(31 * time.Second)
	id, err := a.Allocate(ctx)
	require.NoError(t, err)
	assert.True(t, seen[id])
}

func TestRedisAllocator_StopReleases_Unit(t *testing.T) {
	ctx := context.Background()
	mr, redisConn := testkit.NewMiniRedisConnector(t)

	a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorRedis, KeyPrefix: "gedid:worker:0"},
		WithRedisConnector(redisConn))
	require.NoError(t, err)

	id, err := a.Allocate(ctx)
	require.NoError(t, err)
	key := fmt.Sprintf("gedid:worker:0:%d", id)
	require.True(t, mr.Exists(key))

	a.Stop()
	a.Stop()
	assert.False(t, mr.Exists(key))
}

func TestRedisAllocator_StopKeepsForeignKey_Unit(t *testing.T) {
	ctx := context.Background()
	mr, redisConn := testkit.NewMiniRedisConnector(t)

	a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorRedis, KeyPrefix: "gedid:worker:0", MaxID: 1},
		WithRedisConnector(redisConn))
	require.NoError(t, err)
	_, err = a.Allocate(ctx)
	require.NoError(t, err)

	// key 已被其他实例接管
	require.NoError(t, mr.Set("gedid:worker:0:0", "other-instance"))
	a.Stop()

	v, err := mr.Get("gedid:worker:0:0")
	require.NoError(t, err)
	assert.Equal(t, "other-instance", v)
}

func TestRedisAllocator_KeepAliveDetectsLoss_Unit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	mr, redisConn := testkit.NewMiniRedisConnector(t)

	a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorRedis, KeyPrefix: "gedid:worker:0", MaxID: 1, TTL: 3},
		WithRedisConnector(redisConn))
	require.NoError(t, err)
	defer a.Stop()
	_, err = a.Allocate(ctx)
	require.NoError(t, err)

	mr.Del("gedid:worker:0:0")

	select {
	case err := <-a.KeepAlive(ctx):
		assert.ErrorIs(t, err, ErrLeaseExpired)
	case <-time.After(3 * time.Second):
		t.Fatal("keep alive did not report the lost key")
	}
}
