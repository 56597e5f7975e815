package idgen

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/connector"
	"github.com/ceyewan/gedid/xerrors"
)

// Allocator WorkerID 分配器
//
// 在集群中为 Snowflake 自动分配不冲突的 WorkerID，避免手动配置。
type Allocator interface {
	// Allocate 分配 WorkerID
	Allocate(ctx context.Context) (int64, error)

	// KeepAlive 后台保持租约，保活失败时向返回的通道发送一个错误
	KeepAlive(ctx context.Context) <-chan error

	// Stop 停止保活并释放 WorkerID，可重复调用
	Stop()
}

// NewAllocator 根据 cfg.Driver 创建 static、redis 或 etcd 分配器
//
// 使用示例:
//
//	allocator, _ := idgen.NewAllocator(&idgen.AllocatorConfig{
//	    Driver:    "redis",
//	    KeyPrefix: "gedid:worker:1",
//	}, idgen.WithRedisConnector(redisConn))
//
//	workerID, _ := allocator.Allocate(ctx)
//	defer allocator.Stop()
//
//	go func() {
//	    if err := <-allocator.KeepAlive(ctx); err != nil {
//	        // 租约丢失，停止发号
//	    }
//	}()
func NewAllocator(cfg *AllocatorConfig, opts ...Option) (Allocator, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}

	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	logger := o.logger.WithNamespace("allocator").With(clog.String("driver", cfg.Driver))

	switch cfg.Driver {
	case AllocatorStatic:
		return &staticAllocator{workerID: cfg.WorkerID}, nil

	case AllocatorRedis:
		if o.redisConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		return &redisAllocator{
			client: o.redisConnector.GetClient(),
			cfg:    cfg,
			logger: logger,
			value:  instanceValue(),
			stopCh: make(chan struct{}),
		}, nil

	case AllocatorEtcd:
		if o.etcdConnector == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "etcd_connector_required")
		}
		return newEtcdAllocator(cfg, o.etcdConnector, logger), nil

	default:
		return nil, xerrors.WithCode(ErrInvalidInput, "unsupported_driver")
	}
}

// instanceValue 写入占用 key 的值，用于确认 key 仍归本实例所有
func instanceValue() string {
	host, _ := os.Hostname()
	return fmt.Sprintf("%s:%d:%d", host, os.Getpid(), time.Now().UnixNano())
}

// ========================================
// Static 实现
// ========================================

type staticAllocator struct {
	workerID int64
}

func (a *staticAllocator) Allocate(context.Context) (int64, error) {
	return a.workerID, nil
}

// KeepAlive 静态分配无需保活，通道在 ctx 结束前不会收到任何值
func (a *staticAllocator) KeepAlive(context.Context) <-chan error {
	return make(chan error)
}

func (a *staticAllocator) Stop() {}

// ========================================
// Redis 实现
// ========================================

// allocateScript 从 offset 开始环形遍历，SET NX EX 抢占第一个空闲 ID
var allocateScript = redis.NewScript(`
local prefix = KEYS[1]
local value = ARGV[1]
local ttl = tonumber(ARGV[2])
local max_id = tonumber(ARGV[3])
local offset = tonumber(ARGV[4])

for i = 0, max_id - 1 do
	local id = (offset + i) % max_id
	local key = prefix .. ":" .. id
	if redis.call("SET", key, value, "NX", "EX", ttl) then
		return id
	end
end
return -1
`)

// renewScript 仅当 key 仍归本实例所有时续期
var renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("EXPIRE", KEYS[1], ARGV[2])
end
return 0
`)

// releaseScript 仅当 key 仍归本实例所有时删除
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type redisAllocator struct {
	client *redis.Client
	cfg    *AllocatorConfig
	logger clog.Logger
	value  string

	mu       sync.Mutex
	workerID int64
	key      string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func (a *redisAllocator) Allocate(ctx context.Context) (int64, error) {
	// 随机起点，减少并发冲突
	offset := rand.IntN(a.cfg.MaxID)

	id, err := allocateScript.Run(ctx, a.client, []string{a.cfg.KeyPrefix},
		a.value, a.cfg.TTL, a.cfg.MaxID, offset).Int64()
	if err != nil {
		a.logger.Error("redis allocate script failed",
			clog.Error(err),
			clog.String("key_prefix", a.cfg.KeyPrefix),
		)
		return 0, xerrors.Wrap(err, "redis allocate worker id")
	}
	if id < 0 {
		return 0, xerrors.WithCode(ErrWorkerIDExhausted, "no_available_worker_id")
	}

	a.mu.Lock()
	a.workerID = id
	a.key = fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)
	a.mu.Unlock()

	a.logger.Info("worker id allocated",
		clog.Int64("worker_id", id),
		clog.String("key", a.key),
	)
	return id, nil
}

func (a *redisAllocator) currentKey() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.key
}

func (a *redisAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	go func() {
		ticker := time.NewTicker(time.Duration(a.cfg.TTL) * time.Second / 3)
		defer ticker.Stop()
		key := a.currentKey()

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				renewed, err := renewScript.Run(ctx, a.client, []string{key}, a.value, a.cfg.TTL).Int64()
				if err == nil && renewed == 0 {
					err = xerrors.WithCode(ErrLeaseExpired, "worker_key_lost")
				}
				if err != nil {
					a.logger.Error("keep alive failed", clog.Error(err), clog.String("key", key))
					errCh <- xerrors.Wrap(err, "keep alive")
					return
				}
			}
		}
	}()

	return errCh
}

func (a *redisAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		key := a.currentKey()
		if key == "" {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, a.client, []string{key}, a.value).Err(); err != nil {
			a.logger.Warn("release worker id failed", clog.Error(err), clog.String("key", key))
			return
		}
		a.logger.Info("worker id released", clog.String("key", key))
	})
}

// ========================================
// Etcd 实现
// ========================================

type etcdAllocator struct {
	client *clientv3.Client
	cfg    *AllocatorConfig
	logger clog.Logger
	value  string

	mu       sync.Mutex
	leaseID  clientv3.LeaseID
	workerID int64
	key      string

	stopOnce sync.Once
	stopCh   chan struct{}
}

func newEtcdAllocator(cfg *AllocatorConfig, conn connector.EtcdConnector, logger clog.Logger) *etcdAllocator {
	return &etcdAllocator{
		client: conn.GetClient(),
		cfg:    cfg,
		logger: logger,
		value:  instanceValue(),
		stopCh: make(chan struct{}),
	}
}

// Allocate 以租约 + CAS 事务抢占 WorkerID
func (a *etcdAllocator) Allocate(ctx context.Context) (int64, error) {
	lease, err := a.client.Grant(ctx, int64(a.cfg.TTL))
	if err != nil {
		a.logger.Error("etcd grant lease failed", clog.Error(err))
		return 0, xerrors.Wrap(err, "etcd grant lease")
	}

	offset := rand.IntN(a.cfg.MaxID)
	for i := 0; i < a.cfg.MaxID; i++ {
		id := (offset + i) % a.cfg.MaxID
		key := fmt.Sprintf("%s:%d", a.cfg.KeyPrefix, id)

		// key 不存在时 CreateRevision 为 0
		resp, err := a.client.Txn(ctx).
			If(clientv3.Compare(clientv3.CreateRevision(key), "=", 0)).
			Then(clientv3.OpPut(key, a.value, clientv3.WithLease(lease.ID))).
			Commit()
		if err != nil {
			a.revoke(lease.ID)
			a.logger.Error("etcd txn failed", clog.Error(err), clog.String("key", key))
			return 0, xerrors.Wrap(err, "etcd allocate worker id")
		}
		if !resp.Succeeded {
			continue
		}

		a.mu.Lock()
		a.leaseID = lease.ID
		a.workerID = int64(id)
		a.key = key
		a.mu.Unlock()

		a.logger.Info("worker id allocated",
			clog.Int64("worker_id", int64(id)),
			clog.String("key", key),
			clog.Int64("lease_id", int64(lease.ID)),
		)
		return int64(id), nil
	}

	a.revoke(lease.ID)
	return 0, xerrors.WithCode(ErrWorkerIDExhausted, "no_available_worker_id")
}

func (a *etcdAllocator) revoke(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := a.client.Revoke(ctx, id); err != nil {
		a.logger.Warn("etcd revoke lease failed", clog.Error(err), clog.Int64("lease_id", int64(id)))
	}
}

func (a *etcdAllocator) KeepAlive(ctx context.Context) <-chan error {
	errCh := make(chan error, 1)

	a.mu.Lock()
	leaseID := a.leaseID
	a.mu.Unlock()

	go func() {
		kaCh, err := a.client.KeepAlive(ctx, leaseID)
		if err != nil {
			a.logger.Error("etcd keep alive failed", clog.Error(err), clog.Int64("lease_id", int64(leaseID)))
			errCh <- xerrors.Wrap(err, "keep alive")
			return
		}

		for {
			select {
			case <-a.stopCh:
				return
			case <-ctx.Done():
				return
			case ka, ok := <-kaCh:
				if !ok || ka == nil {
					// 通道关闭说明租约已失效
					a.logger.Error("lease expired", clog.Int64("lease_id", int64(leaseID)))
					errCh <- xerrors.WithCode(ErrLeaseExpired, "lease_expired")
					return
				}
			}
		}
	}()

	return errCh
}

// Stop 撤销租约，关联的 key 随之删除
func (a *etcdAllocator) Stop() {
	a.stopOnce.Do(func() {
		close(a.stopCh)

		a.mu.Lock()
		leaseID, key := a.leaseID, a.key
		a.mu.Unlock()
		if leaseID == 0 {
			return
		}
		a.revoke(leaseID)
		a.logger.Info("worker id released", clog.String("key", key), clog.Int64("lease_id", int64(leaseID)))
	})
}
