package idgen

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/testkit"
)

// ========================================
// Bootstrap 单元测试
// ========================================

func TestNewFromConfig_Unit(t *testing.T) {
	ctx := context.Background()
	mr, redisConn := testkit.NewMiniRedisConnector(t)

	cfg := &Config{
		Snowflake: SnowflakeConfig{DatacenterID: 2, WorkerIDMethod: AllocatorRedis},
		UUID:      UUIDConfig{Version: UUIDv7},
		Bindings: []string{
			"redis://orders:100",
			"snowflake://events",
			"uuid://sessions",
			"etcd://accounts",   // 未提供 etcd 后端，跳过
			"not a uri at all", // 格式错误，跳过
		},
	}

	b, err := NewFromConfig(ctx, cfg, Backends{Redis: redisConn}, WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	t.Cleanup(b.Close)

	assert.Equal(t, []string{EngineRedis, EngineSnowflake, EngineUUID}, b.Loader.Engines())
	assert.True(t, mr.Exists(fmt.Sprintf("gedid:worker:2:%d", b.WorkerID)))

	var names []string
	for _, binding := range b.Loader.Bindings() {
		names = append(names, binding.Business)
	}
	assert.Equal(t, []string{"events", "orders", "sessions"}, names)

	got, err := b.Loader.NextInt64(ctx, "orders")
	require.NoError(t, err)
	assert.Equal(t, int64(100), got)

	id, err := b.Loader.NextInt64(ctx, "events")
	require.NoError(t, err)
	parts := b.Snowflake.Decompose(id)
	assert.Equal(t, int64(2), parts.DatacenterID)
	assert.Equal(t, b.WorkerID, parts.WorkerID)

	s, err := b.Loader.NextString(ctx, "sessions")
	require.NoError(t, err)
	assert.Equal(t, byte('7'), s[14])
}

func TestNewFromConfig_Defaults_Unit(t *testing.T) {
	cfg := &Config{Snowflake: SnowflakeConfig{WorkerID: 5}}
	b, err := NewFromConfig(context.Background(), cfg, Backends{})
	require.NoError(t, err)
	t.Cleanup(b.Close)

	assert.Equal(t, int64(5), b.WorkerID)
	assert.Equal(t, AllocatorStatic, cfg.Snowflake.WorkerIDMethod)
	assert.Equal(t, DefaultEpoch, cfg.Snowflake.Epoch)
	assert.Equal(t, UUIDv4, cfg.UUID.Version)
	assert.Equal(t, string(ZKModeVersion), cfg.ZooKeeper.Mode)
	assert.Equal(t, []string{EngineSnowflake, EngineUUID}, b.Loader.Engines())
}

func TestNewFromConfig_Invalid_Unit(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name string
		cfg  *Config
		want error
	}{
		{name: "nil", cfg: nil, want: ErrInvalidInput},
		{name: "datacenter out of range", cfg: &Config{Snowflake: SnowflakeConfig{DatacenterID: 40}}, want: ErrInvalidInput},
		{name: "uuid version", cfg: &Config{UUID: UUIDConfig{Version: "v1"}}, want: ErrInvalidInput},
		{name: "zookeeper mode", cfg: &Config{ZooKeeper: ZooKeeperEngineConfig{Mode: "ephemeral"}}, want: ErrInvalidInput},
		{name: "worker id method", cfg: &Config{Snowflake: SnowflakeConfig{WorkerIDMethod: "consul"}}, want: ErrInvalidInput},
		{name: "redis allocator without backend", cfg: &Config{Snowflake: SnowflakeConfig{WorkerIDMethod: AllocatorRedis}}, want: ErrConnectorNil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewFromConfig(ctx, tt.cfg, Backends{})
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestNewFromConfig_DuplicateBindingAborts_Unit(t *testing.T) {
	cfg := &Config{Bindings: []string{"snowflake://events", "uuid://events"}}
	_, err := NewFromConfig(context.Background(), cfg, Backends{})
	assert.ErrorIs(t, err, ErrBusinessAlreadyBound)
}

func TestApplyBindings_Unit(t *testing.T) {
	ctx := context.Background()
	failing := newStubEngine(EngineEtcd)
	failing.followErr = errors.New("etcd unavailable")
	loader := newTestLoader(t, newStubEngine(EngineRedis), failing)

	err := ApplyBindings(ctx, loader, []string{"redis://orders", "mongo://users", "::bad::"}, nil)
	require.NoError(t, err)

	err = ApplyBindings(ctx, loader, []string{"etcd://accounts", "redis://never-reached"}, clog.Discard())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "etcd unavailable")

	_, ok := loader.Binding("never-reached")
	assert.False(t, ok)
}
