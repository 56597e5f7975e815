package idgen

import (
	"context"

	"github.com/ceyewan/gedid/clog"
)

// 引擎名，同时也是绑定 URI 的 scheme
const (
	EngineSnowflake = "snowflake"
	EngineRedis     = "redis"
	EngineZooKeeper = "zookeeper"
	EngineEtcd      = "etcd"
	EngineUUID      = "uuid"
)

// 后端存储中的 key 格式，线上数据依赖它们，不可修改
const (
	redisKeyPrefix     = "gedid:"
	zookeeperKeyPrefix = "/gedid-"
	etcdKeyPrefix      = "gedid-"
)

// Engine ID 生成策略
//
// Name 在同一个 Loader 内唯一。Follow 为业务准备后端状态，Next 发放下一个 ID。
// 实现必须可被并发调用。
type Engine interface {
	// Name 引擎名，如 "redis"
	Name() string

	// EmbellishedName 将业务名映射为后端存储中的 key
	EmbellishedName(business string) string

	// FixedStartID 规整调用方传入的起始值，nil 表示未指定
	FixedStartID(startID *int64) int64

	// Follow 为业务准备后端状态，startID 已经过 FixedStartID 规整
	Follow(ctx context.Context, business string, startID int64) error

	// Next 发放业务的下一个 ID
	Next(ctx context.Context, business string) (ID, error)
}

// baseEngine 提供默认能力：业务名原样作为 key，起始值 nil 视为 0
type baseEngine struct{}

func (baseEngine) EmbellishedName(business string) string {
	return business
}

func (baseEngine) FixedStartID(startID *int64) int64 {
	if startID == nil {
		return 0
	}
	return *startID
}

// counterEngine 计数型引擎的起始值规则：nil 与负数都规整为 1
//
// quiet 为 true 时负数静默规整，否则记录一条警告。
type counterEngine struct {
	logger clog.Logger
	quiet  bool
}

func (c counterEngine) FixedStartID(startID *int64) int64 {
	if startID == nil {
		return 1
	}
	if *startID < 0 {
		if c.quiet {
			return 1
		}
		c.logger.Warn("negative start id replaced by 1", clog.Int64("start_id", *startID))
		return 1
	}
	return *startID
}
