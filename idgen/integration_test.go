//go:build integration

package idgen

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/gedid/testkit"
)

// ========================================
// 后端引擎集成测试（testcontainers）
// ========================================

func TestRedisEngine_Integration(t *testing.T) {
	ctx := testkit.NewContext(t, time.Minute)
	conn := testkit.NewRedisContainerConnector(t)
	business := "orders-" + testkit.NewID()

	eng, err := NewRedisEngine(conn.GetClient(), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	loader := newTestLoader(t, eng)

	require.NoError(t, loader.Follow(ctx, EngineRedis, business, WithStartID(100)))
	for _, want := range []int64{100, 101, 102} {
		got, err := loader.NextInt64(ctx, business)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assertConcurrentUnique(t, ctx, loader, business)
}

func TestEtcdEngine_Integration(t *testing.T) {
	ctx := testkit.NewContext(t, time.Minute)
	conn := testkit.NewEtcdContainerConnector(t)
	business := "orders-" + testkit.NewID()

	eng, err := NewEtcdEngine(conn.GetClient(), WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	loader := newTestLoader(t, eng)

	require.NoError(t, loader.Follow(ctx, EngineEtcd, business, WithStartID(10)))
	for _, want := range []int64{11, 12, 13} {
		got, err := loader.NextInt64(ctx, business)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	assertConcurrentUnique(t, ctx, loader, business)
}

func TestZooKeeperEngine_Integration(t *testing.T) {
	ctx := testkit.NewContext(t, 2*time.Minute)
	conn := testkit.NewZooKeeperContainerConnector(t)

	for _, mode := range []ZKMode{ZKModeVersion, ZKModeZxid} {
		t.Run(string(mode), func(t *testing.T) {
			business := "orders-" + testkit.NewID()
			eng, err := NewZooKeeperEngine(conn.GetClient(), mode, WithLogger(testkit.NewLogger()))
			require.NoError(t, err)
			loader := newTestLoader(t, eng)

			require.NoError(t, loader.Follow(ctx, EngineZooKeeper, business))

			var last int64
			for i := 0; i < 3; i++ {
				got, err := loader.NextInt64(ctx, business)
				require.NoError(t, err)
				assert.Greater(t, got, last)
				last = got
			}
			if mode == ZKModeVersion {
				assert.Equal(t, int64(4), last)
			}

			assertConcurrentUnique(t, ctx, loader, business)
		})
	}
}

func TestEtcdAllocator_Integration(t *testing.T) {
	ctx := testkit.NewContext(t, time.Minute)
	conn := testkit.NewEtcdContainerConnector(t)
	prefix := "gedid:worker:" + testkit.NewID()

	var allocators []Allocator
	seen := make(map[int64]bool)
	for i := 0; i < 4; i++ {
		a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorEtcd, KeyPrefix: prefix, MaxID: 4, TTL: 10},
			WithEtcdConnector(conn))
		require.NoError(t, err)
		allocators = append(allocators, a)

		id, err := a.Allocate(ctx)
		require.NoError(t, err)
		assert.False(t, seen[id])
		seen[id] = true
	}

	extra, err := NewAllocator(&AllocatorConfig{Driver: AllocatorEtcd, KeyPrefix: prefix, MaxID: 4, TTL: 10},
		WithEtcdConnector(conn))
	require.NoError(t, err)
	_, err = extra.Allocate(ctx)
	assert.ErrorIs(t, err, ErrWorkerIDExhausted)

	// 释放一个后可以再次分配
	allocators[0].Stop()
	_, err = extra.Allocate(ctx)
	require.NoError(t, err)
	extra.Stop()

	for _, a := range allocators[1:] {
		a.Stop()
	}
}

func TestRedisAllocator_KeepAlive_Integration(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	conn := testkit.NewRedisContainerConnector(t)

	a, err := NewAllocator(&AllocatorConfig{Driver: AllocatorRedis, KeyPrefix: "gedid:worker:" + testkit.NewID(), TTL: 3},
		WithRedisConnector(conn))
	require.NoError(t, err)
	defer a.Stop()
	_, err = a.Allocate(ctx)
	require.NoError(t, err)

	// 保活期间超过一个 TTL 不应报错
	errCh := a.KeepAlive(ctx)
	select {
	case err := <-errCh:
		t.Fatalf("unexpected keep alive error: %v", err)
	case <-time.After(5 * time.Second):
	}
}

func assertConcurrentUnique(t *testing.T, ctx context.Context, loader *Loader, business string) {
	t.Helper()

	var seen sync.Map
	var g errgroup.Group
	for w := 0; w < 8; w++ {
		g.Go(func() error {
			for i := 0; i < 50; i++ {
				id, err := loader.NextInt64(ctx, business)
				if err != nil {
					return err
				}
				if _, dup := seen.LoadOrStore(id, struct{}{}); dup {
					t.Errorf("duplicate id %d", id)
				}
			}
			return nil
		})
	}
	require.NoError(t, g.Wait())
}
