package connector

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/metrics"
)

func TestRedisConfigValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     RedisConfig
		wantErr bool
	}{
		{name: "valid", cfg: RedisConfig{Addr: "127.0.0.1:6379"}},
		{name: "empty addr", cfg: RedisConfig{}, wantErr: true},
		{name: "negative db", cfg: RedisConfig{Addr: "127.0.0.1:6379", DB: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrConfig)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, "default", tt.cfg.Name)
			assert.Equal(t, 10, tt.cfg.PoolSize)
			assert.Equal(t, 5*time.Second, tt.cfg.DialTimeout)
		})
	}
}

func TestEtcdConfigValidation(t *testing.T) {
	cfg := EtcdConfig{}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = EtcdConfig{Endpoints: []string{"127.0.0.1:2379"}}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 10*time.Second, cfg.KeepAliveTime)
	assert.Equal(t, 3*time.Second, cfg.KeepAliveTimeout)
}

func TestZooKeeperConfigValidation(t *testing.T) {
	cfg := ZooKeeperConfig{}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = ZooKeeperConfig{Servers: []string{"127.0.0.1:2181"}, SessionTimeout: 100 * time.Millisecond}
	assert.ErrorIs(t, cfg.validate(), ErrConfig)

	cfg = ZooKeeperConfig{Servers: []string{"127.0.0.1:2181"}}
	require.NoError(t, cfg.validate())
	assert.Equal(t, 10*time.Second, cfg.SessionTimeout)
}

func TestNilConfig(t *testing.T) {
	_, err := NewRedis(nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = NewEtcd(nil)
	assert.ErrorIs(t, err, ErrConfig)
	_, err = NewZooKeeper(nil)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestRedisConnectorLifecycle(t *testing.T) {
	mr := miniredis.RunT(t)

	conn, err := NewRedis(&RedisConfig{Name: "ids", Addr: mr.Addr()},
		WithLogger(clog.Discard()), WithMeter(metrics.Discard()))
	require.NoError(t, err)
	assert.Equal(t, "ids", conn.Name())
	assert.False(t, conn.IsHealthy())

	ctx := context.Background()
	require.NoError(t, conn.Connect(ctx))
	assert.True(t, conn.IsHealthy())
	require.NoError(t, conn.GetClient().Set(ctx, "k", "v", 0).Err())
	assert.NoError(t, conn.HealthCheck(ctx))

	mr.Close()
	assert.ErrorIs(t, conn.HealthCheck(ctx), ErrHealthCheck)
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(ctx), ErrAlreadyClosed)
}

func TestRedisConnectorConnectFailure(t *testing.T) {
	conn, err := NewRedis(&RedisConfig{Addr: "127.0.0.1:1", ConnectTimeout: 500 * time.Millisecond, DialTimeout: 200 * time.Millisecond})
	require.NoError(t, err)
	defer conn.Close()

	err = conn.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())
}

func TestRedisConnectorWithEnabledMeter(t *testing.T) {
	mr := miniredis.RunT(t)
	meter, err := metrics.New(metrics.NewDevDefaultConfig("connector-test"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = meter.Shutdown(context.Background()) })

	conn, err := NewRedis(&RedisConfig{Addr: mr.Addr()}, WithMeter(meter))
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.Connect(context.Background()))
}

func TestRedisConnectorConcurrentUse(t *testing.T) {
	mr := miniredis.RunT(t)
	conn, err := NewRedis(&RedisConfig{Addr: mr.Addr()})
	require.NoError(t, err)
	defer conn.Close()

	ctx := context.Background()
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, conn.Connect(ctx))
			assert.NoError(t, conn.HealthCheck(ctx))
		}()
	}
	wg.Wait()
	assert.True(t, conn.IsHealthy())
}

func TestEtcdConnectorUnreachable(t *testing.T) {
	conn, err := NewEtcd(&EtcdConfig{
		Endpoints:      []string{"127.0.0.1:1"},
		ConnectTimeout: 300 * time.Millisecond,
		DialTimeout:    300 * time.Millisecond,
	})
	require.NoError(t, err)
	require.NotNil(t, conn.GetClient())

	err = conn.Connect(context.Background())
	assert.ErrorIs(t, err, ErrConnection)
	assert.False(t, conn.IsHealthy())

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.HealthCheck(context.Background()), ErrAlreadyClosed)
}

func TestZooKeeperConnectorUnreachable(t *testing.T) {
	conn, err := NewZooKeeper(&ZooKeeperConfig{
		Servers:        []string{"127.0.0.1:1"},
		ConnectTimeout: 300 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.Nil(t, conn.GetClient())
	assert.ErrorIs(t, conn.HealthCheck(context.Background()), ErrNotConnected)

	err = conn.Connect(context.Background())
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Nil(t, conn.GetClient())

	require.NoError(t, conn.Close())
	assert.ErrorIs(t, conn.Connect(context.Background()), ErrAlreadyClosed)
}

func TestZooKeeperConnectorContextCancelled(t *testing.T) {
	conn, err := NewZooKeeper(&ZooKeeperConfig{Servers: []string{"127.0.0.1:1"}})
	require.NoError(t, err)
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	err = conn.Connect(ctx)
	assert.ErrorIs(t, err, ErrConnection)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
