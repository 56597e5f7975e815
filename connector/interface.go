// Package connector 为 gedid 提供统一的后端连接管理能力。
//
// 计数型 ID 引擎依赖的三种协调服务在这里各有一个连接器：Redis、Etcd、ZooKeeper。
//
// 基本使用：
//
//	conn, err := connector.NewRedis(&connector.RedisConfig{Addr: "127.0.0.1:6379"},
//		connector.WithLogger(logger))
//	if err != nil {
//		return err
//	}
//	defer conn.Close()
//
//	if err := conn.Connect(ctx); err != nil {
//		return err
//	}
//	client := conn.GetClient()
//
// 资源所有权：
//
//	Connector 拥有底层连接的生命周期。ID 引擎仅借用客户端，不调用 Close()。
//	应用层按 LIFO 顺序释放：先停用引擎，再关闭 Connector。
package connector

import (
	"context"

	"github.com/go-zookeeper/zk"
	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
)

// Connector 所有连接器的通用行为，方法均并发安全
type Connector interface {
	// Connect 建立连接，幂等
	Connect(ctx context.Context) error

	// Close 关闭连接并释放资源，幂等
	Close() error

	// HealthCheck 发送测试请求并更新健康状态缓存
	HealthCheck(ctx context.Context) error

	// IsHealthy 返回最后一次检查的结果，无阻塞
	IsHealthy() bool

	// Name 连接实例名称，用于日志与指标
	Name() string
}

// TypedConnector 提供类型安全的客户端访问
type TypedConnector[T any] interface {
	Connector

	// GetClient 返回底层客户端，Connect 之前可能为零值
	GetClient() T
}

// RedisConnector Redis 连接器
type RedisConnector interface {
	TypedConnector[*redis.Client]
}

// EtcdConnector Etcd 连接器
type EtcdConnector interface {
	TypedConnector[*clientv3.Client]
}

// ZooKeeperConnector ZooKeeper 连接器
//
// GetClient 在 Connect 成功之前返回 nil。
type ZooKeeperConnector interface {
	TypedConnector[*zk.Conn]
}
