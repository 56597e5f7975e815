// Package config 为 gedid 提供统一的配置加载能力，基于 Viper 实现。
//
// 配置优先级：环境变量 > .env > 环境特定配置 (config.<env>.yaml) > 基础配置 > 默认值
//
// 基本使用：
//
//	loader, err := config.New(&config.Config{Name: "gedid", EnvPrefix: "GEDID"},
//		config.WithDefaults(map[string]any{"idgen.snowflake.worker_id": 0}),
//	)
//	if err := loader.Load(ctx); err != nil {
//		return err
//	}
//
//	var cfg AppConfig
//	if err := loader.Unmarshal(&cfg); err != nil {
//		return err
//	}
//
//	// 监听配置变化
//	ch, _ := loader.Watch(ctx, "idgen.bindings")
//	for event := range ch {
//		...
//	}
package config

import (
	"context"
	"time"
)

// Loader 配置加载器
type Loader interface {
	// Load 从所有来源加载配置并开始监听配置文件
	Load(ctx context.Context) error

	// Get 获取原始配置值
	Get(key string) any

	// Unmarshal 将整个配置反序列化到结构体
	Unmarshal(v any) error

	// UnmarshalKey 将指定 Key 的配置反序列化到结构体
	UnmarshalKey(key string, v any) error

	// Watch 监听配置变化，ctx 取消时关闭通道
	Watch(ctx context.Context, key string) (<-chan Event, error)

	// Validate 验证当前配置的有效性
	Validate() error

	// ConfigFileUsed 返回实际加载的配置文件路径，未找到文件时为空
	ConfigFileUsed() string
}

// Event 配置变更事件
type Event struct {
	Key       string
	Value     any
	OldValue  any
	Source    string // "file"
	Timestamp time.Time
}
