package idgen

import (
	"github.com/ceyewan/gedid/xerrors"
)

// ========================================
// 配置结构 (Configuration)
// ========================================

// Config idgen 根配置，对应配置文件中的 idgen 段
type Config struct {
	Snowflake SnowflakeConfig       `mapstructure:"snowflake" yaml:"snowflake" json:"snowflake"`
	UUID      UUIDConfig            `mapstructure:"uuid" yaml:"uuid" json:"uuid"`
	ZooKeeper ZooKeeperEngineConfig `mapstructure:"zookeeper" yaml:"zookeeper" json:"zookeeper"`

	// Bindings 启动时绑定的业务，如 "redis://orders:100"
	Bindings []string `mapstructure:"bindings" yaml:"bindings" json:"bindings"`
}

func (c *Config) setDefaults() {
	c.Snowflake.setDefaults()
	if c.UUID.Version == "" {
		c.UUID.Version = UUIDv4
	}
	if c.ZooKeeper.Mode == "" {
		c.ZooKeeper.Mode = string(ZKModeVersion)
	}
}

func (c *Config) validate() error {
	if err := c.Snowflake.validate(); err != nil {
		return err
	}
	if c.UUID.Version != UUIDv4 && c.UUID.Version != UUIDv7 {
		return xerrors.WithCode(ErrInvalidInput, "unsupported_uuid_version")
	}
	if _, err := ParseZKMode(c.ZooKeeper.Mode); err != nil {
		return err
	}
	return nil
}

// SnowflakeConfig Snowflake 引擎配置
type SnowflakeConfig struct {
	// DatacenterID 数据中心 ID [0, 31]
	DatacenterID int64 `mapstructure:"datacenter_id" yaml:"datacenter_id" json:"datacenter_id"`

	// WorkerID 工作节点 ID [0, 31]，仅 static 方式使用
	WorkerID int64 `mapstructure:"worker_id" yaml:"worker_id" json:"worker_id"`

	// WorkerIDMethod WorkerID 获取方式: "static" | "redis" | "etcd"，默认 static
	WorkerIDMethod string `mapstructure:"worker_id_method" yaml:"worker_id_method" json:"worker_id_method"`

	// KeyPrefix 分配器键前缀，实际前缀会追加 datacenterID
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`

	// TTL 分配器租约 TTL（秒）
	TTL int `mapstructure:"ttl" yaml:"ttl" json:"ttl"`

	// Epoch 纪元（Unix 毫秒），0 表示 DefaultEpoch
	Epoch int64 `mapstructure:"epoch" yaml:"epoch" json:"epoch"`
}

func (c *SnowflakeConfig) setDefaults() {
	if c.WorkerIDMethod == "" {
		c.WorkerIDMethod = AllocatorStatic
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultWorkerKeyPrefix
	}
	if c.TTL <= 0 {
		c.TTL = 30
	}
	if c.Epoch == 0 {
		c.Epoch = DefaultEpoch
	}
}

func (c *SnowflakeConfig) validate() error {
	if c.DatacenterID < 0 || c.DatacenterID > maxDatacenterID {
		return xerrors.WithCode(ErrInvalidInput, "datacenter_id_out_of_range")
	}
	if c.WorkerID < 0 || c.WorkerID > maxWorkerID {
		return xerrors.WithCode(ErrInvalidInput, "worker_id_out_of_range")
	}
	switch c.WorkerIDMethod {
	case AllocatorStatic, AllocatorRedis, AllocatorEtcd:
	default:
		return xerrors.WithCode(ErrInvalidInput, "unsupported_worker_id_method")
	}
	if c.Epoch < 0 {
		return xerrors.WithCode(ErrInvalidInput, "epoch_cannot_be_negative")
	}
	return nil
}

// UUIDConfig UUID 引擎配置
type UUIDConfig struct {
	// Version "v4" | "v7"，默认 v4
	Version string `mapstructure:"version" yaml:"version" json:"version"`
}

// ZooKeeperEngineConfig ZooKeeper 引擎配置
type ZooKeeperEngineConfig struct {
	// Mode "version" | "zxid"，默认 version
	Mode string `mapstructure:"mode" yaml:"mode" json:"mode"`
}

// ========================================

// 分配器驱动
const (
	AllocatorStatic = "static"
	AllocatorRedis  = "redis"
	AllocatorEtcd   = "etcd"
)

// DefaultWorkerKeyPrefix 分配器默认键前缀
const DefaultWorkerKeyPrefix = "gedid:worker"

// AllocatorConfig WorkerID 分配器配置
type AllocatorConfig struct {
	// Driver 后端类型: "static" | "redis" | "etcd"
	Driver string `mapstructure:"driver" yaml:"driver" json:"driver"`

	// WorkerID static 驱动直接返回的 ID
	WorkerID int64 `mapstructure:"worker_id" yaml:"worker_id" json:"worker_id"`

	// KeyPrefix 键前缀，默认 "gedid:worker"
	KeyPrefix string `mapstructure:"key_prefix" yaml:"key_prefix" json:"key_prefix"`

	// MaxID 分配范围 [0, MaxID)，默认 32
	MaxID int `mapstructure:"max_id" yaml:"max_id" json:"max_id"`

	// TTL 租约 TTL（秒），默认 30
	TTL int `mapstructure:"ttl" yaml:"ttl" json:"ttl"`
}

func (c *AllocatorConfig) setDefaults() {
	if c.Driver == "" {
		c.Driver = AllocatorStatic
	}
	if c.KeyPrefix == "" {
		c.KeyPrefix = DefaultWorkerKeyPrefix
	}
	if c.MaxID <= 0 {
		c.MaxID = maxWorkerID + 1
	}
	if c.TTL <= 0 {
		c.TTL = 30
	}
}

func (c *AllocatorConfig) validate() error {
	switch c.Driver {
	case AllocatorStatic, AllocatorRedis, AllocatorEtcd:
	default:
		return xerrors.WithCode(ErrInvalidInput, "unsupported_driver")
	}
	if c.MaxID > maxWorkerID+1 {
		return xerrors.WithCode(ErrInvalidInput, "max_id_out_of_range")
	}
	if c.WorkerID < 0 || c.WorkerID > maxWorkerID {
		return xerrors.WithCode(ErrInvalidInput, "worker_id_out_of_range")
	}
	// redis 续期间隔为 TTL/3
	if c.Driver == AllocatorRedis && c.TTL < 3 {
		return xerrors.WithCode(ErrInvalidInput, "ttl_too_small")
	}
	return nil
}
