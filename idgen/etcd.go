package idgen

import (
	"context"
	"math"
	"sync"

	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/xerrors"
)

// EtcdEngine 基于 key 版本号的计数引擎
//
// 每次 Next 对 "gedid-<business>" 写入空值，ID = 写入前的版本号 + startID + 1。
// 新 key 的写入前版本号为 0，所以第一个 ID 是 startID + 1。
// 偏移只保存在本进程，同一业务只应由一个 Loader 发放。
type EtcdEngine struct {
	counterEngine

	kv      clientv3.KV
	offsets sync.Map // business -> int64
	logger  clog.Logger
}

// NewEtcdEngine 创建 etcd 引擎，*clientv3.Client 满足 clientv3.KV
func NewEtcdEngine(kv clientv3.KV, opts ...Option) (*EtcdEngine, error) {
	if kv == nil {
		return nil, clientRequired(EngineEtcd)
	}
	o := applyOptions(opts)
	logger := o.logger.With(clog.String("engine", EngineEtcd))
	return &EtcdEngine{
		counterEngine: counterEngine{logger: logger},
		kv:            kv,
		logger:        logger,
	}, nil
}

func (e *EtcdEngine) Name() string {
	return EngineEtcd
}

func (e *EtcdEngine) EmbellishedName(business string) string {
	return etcdKeyPrefix + business
}

// Follow 记录起始偏移，不访问 etcd
func (e *EtcdEngine) Follow(_ context.Context, business string, startID int64) error {
	if startID == math.MaxInt64 {
		return xerrors.WithCode(ErrInvalidInput, "start_id_out_of_range")
	}
	e.offsets.Store(business, startID+1)
	e.logger.Info("etcd counter ready",
		clog.String("business", business),
		clog.String("key", e.EmbellishedName(business)),
		clog.Int64("start_id", startID),
	)
	return nil
}

func (e *EtcdEngine) Next(ctx context.Context, business string) (ID, error) {
	v, ok := e.offsets.Load(business)
	if !ok {
		return ID{}, xerrors.Wrapf(ErrBusinessNotBound, "etcd engine, business %q", business)
	}

	resp, err := e.kv.Put(ctx, e.EmbellishedName(business), "", clientv3.WithPrevKV())
	if err != nil {
		return ID{}, backendError(EngineEtcd, business, err)
	}

	var prev int64
	if resp.PrevKv != nil {
		prev = resp.PrevKv.Version
	}
	offset := v.(int64)
	if prev > math.MaxInt64-offset {
		return ID{}, xerrors.Wrapf(ErrInvalidInput, "etcd counter for %q exceeds int64", business)
	}
	return Int64ID(prev + offset), nil
}
