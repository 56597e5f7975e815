package connector

import (
	"time"

	"github.com/ceyewan/gedid/xerrors"
)

// RedisConfig Redis 连接配置
type RedisConfig struct {
	// 基础配置（可选，有默认值）
	Name           string        `mapstructure:"name"`            // 连接器名称 (默认: "default")
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 连接超时 (默认: 5s)

	// 核心配置
	Addr     string `mapstructure:"addr"`     // [必填] 连接地址，如 "127.0.0.1:6379"
	Password string `mapstructure:"password"` // [可选] 认证密码
	DB       int    `mapstructure:"db"`       // [可选] 数据库编号 (默认: 0)

	// 高级配置（可选，有默认值）
	PoolSize     int           `mapstructure:"pool_size"`      // 连接池大小 (默认: 10)
	MinIdleConns int           `mapstructure:"min_idle_conns"` // 最小空闲连接数 (默认: 0)
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`   // 拨号超时 (默认: 5s)
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`   // 读取超时 (默认: 3s)
	WriteTimeout time.Duration `mapstructure:"write_timeout"`  // 写入超时 (默认: 3s)
}

func (c *RedisConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.PoolSize <= 0 {
		c.PoolSize = 10
	}
	if c.MinIdleConns < 0 {
		c.MinIdleConns = 0
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.ReadTimeout == 0 {
		c.ReadTimeout = 3 * time.Second
	}
	if c.WriteTimeout == 0 {
		c.WriteTimeout = 3 * time.Second
	}
}

func (c *RedisConfig) validate() error {
	c.setDefaults()
	if c.Addr == "" {
		return xerrors.Wrap(ErrConfig, "redis addr is empty")
	}
	if c.DB < 0 {
		return xerrors.Wrap(ErrConfig, "redis db must not be negative")
	}
	return nil
}

// EtcdConfig Etcd 连接配置
type EtcdConfig struct {
	Name           string        `mapstructure:"name"`            // 连接器名称 (默认: "default")
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 连接探测超时 (默认: 5s)

	Endpoints []string `mapstructure:"endpoints"` // [必填] 连接地址列表
	Username  string   `mapstructure:"username"`  // [可选] 认证用户
	Password  string   `mapstructure:"password"`  // [可选] 认证密码

	DialTimeout      time.Duration `mapstructure:"dial_timeout"`       // 拨号超时 (默认: 5s)
	KeepAliveTime    time.Duration `mapstructure:"keep_alive_time"`    // 心跳间隔 (默认: 10s)
	KeepAliveTimeout time.Duration `mapstructure:"keep_alive_timeout"` // 心跳超时 (默认: 3s)
}

func (c *EtcdConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 5 * time.Second
	}
	if c.DialTimeout == 0 {
		c.DialTimeout = 5 * time.Second
	}
	if c.KeepAliveTime == 0 {
		c.KeepAliveTime = 10 * time.Second
	}
	if c.KeepAliveTimeout == 0 {
		c.KeepAliveTimeout = 3 * time.Second
	}
}

func (c *EtcdConfig) validate() error {
	c.setDefaults()
	if len(c.Endpoints) == 0 {
		return xerrors.Wrap(ErrConfig, "etcd endpoints are empty")
	}
	return nil
}

// ZooKeeperConfig ZooKeeper 连接配置
type ZooKeeperConfig struct {
	Name           string        `mapstructure:"name"`            // 连接器名称 (默认: "default")
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"` // 等待会话建立的超时 (默认: 10s)

	Servers        []string      `mapstructure:"servers"`         // [必填] 服务器列表，如 ["127.0.0.1:2181"]
	SessionTimeout time.Duration `mapstructure:"session_timeout"` // 会话超时 (默认: 10s)
}

func (c *ZooKeeperConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "default"
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.SessionTimeout == 0 {
		c.SessionTimeout = 10 * time.Second
	}
}

func (c *ZooKeeperConfig) validate() error {
	c.setDefaults()
	if len(c.Servers) == 0 {
		return xerrors.Wrap(ErrConfig, "zookeeper servers are empty")
	}
	if c.SessionTimeout < time.Second {
		return xerrors.Wrap(ErrConfig, "zookeeper session timeout must be at least 1s")
	}
	return nil
}
