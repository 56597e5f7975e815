package testkit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/ceyewan/gedid/connector"
)

// NewZooKeeperContainerConfig 使用 testcontainers 创建 ZooKeeper 容器并返回配置
//
// testcontainers 没有 ZooKeeper 模块，这里直接使用通用容器。
func NewZooKeeperContainerConfig(t *testing.T) *connector.ZooKeeperConfig {
	ctx := context.Background()

	container, err := testcontainers.Run(ctx, "zookeeper:3.9",
		testcontainers.WithExposedPorts("2181/tcp"),
		testcontainers.WithWaitStrategy(
			wait.ForListeningPort("2181/tcp").WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start zookeeper container")
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	mappedPort, err := container.MappedPort(ctx, "2181/tcp")
	require.NoError(t, err)

	return &connector.ZooKeeperConfig{
		Name:           "testcontainer-zookeeper",
		Servers:        []string{fmt.Sprintf("%s:%s", host, mappedPort.Port())},
		SessionTimeout: 10 * time.Second,
		ConnectTimeout: 30 * time.Second,
	}
}

// NewZooKeeperContainerConnector 创建并连接基于容器的 ZooKeeper 连接器
func NewZooKeeperContainerConnector(t *testing.T) connector.ZooKeeperConnector {
	conn, err := connector.NewZooKeeper(NewZooKeeperContainerConfig(t), connector.WithLogger(NewLogger()))
	require.NoError(t, err, "failed to create zookeeper connector")
	require.NoError(t, conn.Connect(context.Background()), "failed to connect to zookeeper")
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}
