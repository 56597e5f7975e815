package testkit

import (
	"context"
	"fmt"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	tcredis "github.com/testcontainers/testcontainers-go/modules/redis"

	"github.com/ceyewan/gedid/connector"
)

// NewMiniRedis 启动进程内 Redis 并返回客户端，生命周期由 t.Cleanup 管理
func NewMiniRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

// NewMiniRedisConnector 创建并连接指向进程内 Redis 的连接器
func NewMiniRedisConnector(t *testing.T) (*miniredis.Miniredis, connector.RedisConnector) {
	mr := miniredis.RunT(t)
	conn, err := connector.NewRedis(&connector.RedisConfig{
		Name: "miniredis",
		Addr: mr.Addr(),
	}, connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to miniredis")
	t.Cleanup(func() { _ = conn.Close() })
	return mr, conn
}

// NewRedisContainerConfig 使用 testcontainers 创建 Redis 容器并返回配置
func NewRedisContainerConfig(t *testing.T) *connector.RedisConfig {
	ctx := context.Background()

	container, err := tcredis.Run(ctx, "redis:7-alpine")
	require.NoError(t, err, "failed to start redis container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return &connector.RedisConfig{
		Name: "testcontainer-redis",
		Addr: fmt.Sprintf("%s:%s", host, mappedPort.Port()),
	}
}

// NewRedisContainerConnector 创建并连接基于容器的 Redis 连接器
func NewRedisContainerConnector(t *testing.T) connector.RedisConnector {
	conn, err := connector.NewRedis(NewRedisContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create redis connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to redis")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
