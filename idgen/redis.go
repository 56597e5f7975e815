package idgen

import (
	"context"

	"github.com/redis/go-redis/v9"

	"github.com/ceyewan/gedid/clog"
)

// RedisEngine 基于 Redis INCR 的计数引擎
//
// 业务 key 为 "gedid:<business>"。Follow 以 SETNX 写入 startID-1，
// 之后每次 INCR 得到的值即为发放的 ID，第一个 ID 恰好是 startID。
type RedisEngine struct {
	counterEngine

	client redis.Cmdable
	logger clog.Logger
}

// NewRedisEngine 创建 Redis 引擎，client 的生命周期由调用方管理
func NewRedisEngine(client redis.Cmdable, opts ...Option) (*RedisEngine, error) {
	if client == nil {
		return nil, clientRequired(EngineRedis)
	}
	o := applyOptions(opts)
	logger := o.logger.With(clog.String("engine", EngineRedis))
	return &RedisEngine{
		counterEngine: counterEngine{logger: logger},
		client:        client,
		logger:        logger,
	}, nil
}

func (e *RedisEngine) Name() string {
	return EngineRedis
}

func (e *RedisEngine) EmbellishedName(business string) string {
	return redisKeyPrefix + business
}

// Follow 初始化计数器，已存在的 key 保持不变
func (e *RedisEngine) Follow(ctx context.Context, business string, startID int64) error {
	key := e.EmbellishedName(business)
	created, err := e.client.SetNX(ctx, key, startID-1, 0).Result()
	if err != nil {
		return backendError(EngineRedis, business, err)
	}
	if !created {
		e.logger.Info("redis counter already exists, keeping current value",
			clog.String("business", business),
			clog.String("key", key),
		)
	}
	return nil
}

func (e *RedisEngine) Next(ctx context.Context, business string) (ID, error) {
	v, err := e.client.Incr(ctx, e.EmbellishedName(business)).Result()
	if err != nil {
		return ID{}, backendError(EngineRedis, business, err)
	}
	return Int64ID(v), nil
}
