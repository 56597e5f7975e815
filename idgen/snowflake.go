package idgen

import (
	"context"
	"sync"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/xerrors"
)

// DefaultEpoch Snowflake 默认纪元 (2010-11-04 01:42:54.657 UTC)，单位毫秒
const DefaultEpoch int64 = 1288834974657

// 位布局：41bit 时间戳 + 5bit datacenterID + 5bit workerID + 12bit 序列号
const (
	timestampBits    = 41
	workerIDBits     = 5
	datacenterIDBits = 5
	sequenceBits     = 12

	maxTimestamp    = -1 ^ (-1 << timestampBits)
	maxWorkerID     = -1 ^ (-1 << workerIDBits)
	maxDatacenterID = -1 ^ (-1 << datacenterIDBits)
	sequenceMask    = -1 ^ (-1 << sequenceBits)

	workerIDShift     = sequenceBits
	datacenterIDShift = sequenceBits + workerIDBits
	timestampShift    = sequenceBits + workerIDBits + datacenterIDBits
)

// Snowflake 雪花算法生成器
//
// 进程内生成全局有序的 64 位 ID，无需外部依赖。
// 同一 (datacenterID, workerID) 只能被一个进程使用，可借助 Allocator 自动分配。
type Snowflake struct {
	baseEngine

	mu       sync.Mutex
	workerID int64
	dcID     int64
	epoch    int64
	clock    Clock
	sequence int64
	lastTime int64
	logger   clog.Logger
}

// SnowflakeOption Snowflake 初始化选项
type SnowflakeOption func(*Snowflake)

// WithSnowflakeLogger 设置 Logger
func WithSnowflakeLogger(logger clog.Logger) SnowflakeOption {
	return func(s *Snowflake) {
		s.logger = logger
	}
}

// WithDatacenterID 设置数据中心 ID [0, 31]
func WithDatacenterID(dcID int64) SnowflakeOption {
	return func(s *Snowflake) {
		s.dcID = dcID
	}
}

// WithEpoch 设置纪元（Unix 毫秒）
func WithEpoch(epoch int64) SnowflakeOption {
	return func(s *Snowflake) {
		s.epoch = epoch
	}
}

// WithClock 替换时钟，测试中用于控制时间
func WithClock(clock Clock) SnowflakeOption {
	return func(s *Snowflake) {
		s.clock = clock
	}
}

// NewSnowflake 创建 Snowflake 生成器
//
// workerID 与 datacenterID 的取值范围均为 [0, 31]。
//
// 使用示例:
//
//	sf, _ := idgen.NewSnowflake(3,
//	    idgen.WithDatacenterID(1),
//	    idgen.WithSnowflakeLogger(logger),
//	)
//	id, err := sf.NextID()
func NewSnowflake(workerID int64, opts ...SnowflakeOption) (*Snowflake, error) {
	sf := &Snowflake{
		workerID: workerID,
		epoch:    DefaultEpoch,
		lastTime: -1,
	}

	for _, opt := range opts {
		opt(sf)
	}

	if workerID < 0 || workerID > maxWorkerID {
		return nil, xerrors.WithCode(ErrInvalidInput, "worker_id_out_of_range")
	}
	if sf.dcID < 0 || sf.dcID > maxDatacenterID {
		return nil, xerrors.WithCode(ErrInvalidInput, "datacenter_id_out_of_range")
	}
	if sf.clock == nil {
		sf.clock = SystemClock{}
	}
	if sf.epoch < 0 || sf.epoch > sf.clock.NowMilli() {
		return nil, xerrors.WithCode(ErrInvalidInput, "epoch_in_future")
	}
	if sf.logger == nil {
		sf.logger = clog.Discard()
	}

	sf.logger.Info("snowflake generator created",
		clog.Int64("worker_id", workerID),
		clog.Int64("datacenter_id", sf.dcID),
		clog.Int64("epoch", sf.epoch),
	)

	return sf, nil
}

// NextID 生成下一个 ID
//
// 时钟回拨时立即返回 *ClockRegressionError，不做等待重试。
// 同一毫秒内序列号耗尽时自旋等待下一毫秒。
// 距纪元超过 41 位可表示的毫秒数后不再发号。
func (s *Snowflake) NextID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.NowMilli()

	if now < s.lastTime {
		delta := s.lastTime - now
		s.logger.Error("clock moved backwards, refusing to generate id",
			clog.Int64("delta_ms", delta),
			clog.Int64("last_timestamp", s.lastTime),
		)
		return 0, &ClockRegressionError{Delta: delta}
	}

	if now == s.lastTime {
		s.sequence = (s.sequence + 1) & sequenceMask
		if s.sequence == 0 {
			for now <= s.lastTime {
				now = s.clock.NowMilli()
			}
		}
	} else {
		s.sequence = 0
	}

	if now-s.epoch > maxTimestamp {
		s.logger.Error("snowflake timestamp exhausted", clog.Int64("epoch", s.epoch), clog.Int64("now", now))
		return 0, xerrors.WithCode(ErrInvalidInput, "timestamp_overflow")
	}

	s.lastTime = now

	return ((now - s.epoch) << timestampShift) |
		(s.dcID << datacenterIDShift) |
		(s.workerID << workerIDShift) |
		s.sequence, nil
}

// Decompose 按当前实例的纪元拆解 ID
func (s *Snowflake) Decompose(id int64) SnowflakeParts {
	return Decompose(id, s.epoch)
}

func (s *Snowflake) Name() string {
	return EngineSnowflake
}

// Follow 无需准备后端状态
func (s *Snowflake) Follow(context.Context, string, int64) error {
	return nil
}

func (s *Snowflake) Next(context.Context, string) (ID, error) {
	id, err := s.NextID()
	if err != nil {
		return ID{}, err
	}
	return Int64ID(id), nil
}

// SnowflakeParts Snowflake ID 的组成部分
type SnowflakeParts struct {
	// Timestamp Unix 毫秒
	Timestamp    int64 `json:"timestamp"`
	DatacenterID int64 `json:"datacenter_id"`
	WorkerID     int64 `json:"worker_id"`
	Sequence     int64 `json:"sequence"`
}

// Decompose 拆解 Snowflake ID，epoch 为生成时使用的纪元
func Decompose(id, epoch int64) SnowflakeParts {
	return SnowflakeParts{
		Timestamp:    (id >> timestampShift) + epoch,
		DatacenterID: (id >> datacenterIDShift) & maxDatacenterID,
		WorkerID:     (id >> workerIDShift) & maxWorkerID,
		Sequence:     id & sequenceMask,
	}
}
