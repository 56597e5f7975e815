package idgen

import (
	"context"
	"fmt"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/connector"
	"github.com/ceyewan/gedid/xerrors"
)

// Backends 可用的后端连接器，为 nil 的后端对应的引擎不会注册
type Backends struct {
	Redis     connector.RedisConnector
	Etcd      connector.EtcdConnector
	ZooKeeper connector.ZooKeeperConnector
}

// Bootstrap 由配置装配出的 Loader 及其附属资源
type Bootstrap struct {
	Loader    *Loader
	Snowflake *Snowflake
	Allocator Allocator
	WorkerID  int64
}

// NewFromConfig 按配置装配 Loader
//
// Snowflake 与 UUID 引擎总会注册，其余引擎仅在对应后端可用时注册。
// 随后依次绑定 cfg.Bindings，引擎未注册或 URI 格式错误的条目会被跳过。
// Snowflake 的 WorkerID 由 cfg.Snowflake.WorkerIDMethod 指定的分配器获得。
func NewFromConfig(ctx context.Context, cfg *Config, backends Backends, opts ...Option) (*Bootstrap, error) {
	if cfg == nil {
		return nil, xerrors.WithCode(ErrInvalidInput, "config_nil")
	}
	cfg.setDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	o := applyOptions(opts)
	logger := o.logger.WithNamespace("idgen")
	opts = append(opts, WithLogger(logger))
	if backends.Redis != nil {
		opts = append(opts, WithRedisConnector(backends.Redis))
	}
	if backends.Etcd != nil {
		opts = append(opts, WithEtcdConnector(backends.Etcd))
	}

	loader, err := NewLoader(opts...)
	if err != nil {
		return nil, err
	}

	allocator, err := NewAllocator(&AllocatorConfig{
		Driver:    cfg.Snowflake.WorkerIDMethod,
		WorkerID:  cfg.Snowflake.WorkerID,
		KeyPrefix: fmt.Sprintf("%s:%d", cfg.Snowflake.KeyPrefix, cfg.Snowflake.DatacenterID),
		TTL:       cfg.Snowflake.TTL,
	}, opts...)
	if err != nil {
		return nil, xerrors.Wrap(err, "create worker id allocator")
	}
	workerID, err := allocator.Allocate(ctx)
	if err != nil {
		return nil, xerrors.Wrap(err, "allocate worker id")
	}

	b := &Bootstrap{Loader: loader, Allocator: allocator, WorkerID: workerID}
	if err := b.registerEngines(cfg, backends, logger, opts); err != nil {
		allocator.Stop()
		return nil, err
	}
	if err := ApplyBindings(ctx, loader, cfg.Bindings, logger); err != nil {
		allocator.Stop()
		return nil, err
	}
	return b, nil
}

func (b *Bootstrap) registerEngines(cfg *Config, backends Backends, logger clog.Logger, opts []Option) error {
	sf, err := NewSnowflake(b.WorkerID,
		WithDatacenterID(cfg.Snowflake.DatacenterID),
		WithEpoch(cfg.Snowflake.Epoch),
		WithSnowflakeLogger(logger.With(clog.String("engine", EngineSnowflake))),
	)
	if err != nil {
		return xerrors.Wrap(err, "create snowflake engine")
	}
	b.Snowflake = sf
	b.Loader.AddEngine(sf)

	u, err := NewUUIDEngine(WithUUIDVersion(cfg.UUID.Version))
	if err != nil {
		return xerrors.Wrap(err, "create uuid engine")
	}
	b.Loader.AddEngine(u)

	if backends.Redis != nil {
		e, err := NewRedisEngine(backends.Redis.GetClient(), opts...)
		if err != nil {
			return xerrors.Wrap(err, "create redis engine")
		}
		b.Loader.AddEngine(e)
	}
	if backends.Etcd != nil {
		e, err := NewEtcdEngine(backends.Etcd.GetClient(), opts...)
		if err != nil {
			return xerrors.Wrap(err, "create etcd engine")
		}
		b.Loader.AddEngine(e)
	}
	if backends.ZooKeeper != nil {
		// 连接器在 Connect 之前没有会话
		conn := backends.ZooKeeper.GetClient()
		if conn == nil {
			return xerrors.WithCode(ErrConnectorNil, "zookeeper_not_connected")
		}
		e, err := NewZooKeeperEngine(conn, ZKMode(cfg.ZooKeeper.Mode), opts...)
		if err != nil {
			return xerrors.Wrap(err, "create zookeeper engine")
		}
		b.Loader.AddEngine(e)
	}
	return nil
}

// KeepAlive 保持 WorkerID 租约，见 Allocator.KeepAlive
func (b *Bootstrap) KeepAlive(ctx context.Context) <-chan error {
	return b.Allocator.KeepAlive(ctx)
}

// Close 释放 WorkerID，后端连接器由调用方关闭
func (b *Bootstrap) Close() {
	b.Allocator.Stop()
}

// ApplyBindings 依次绑定 URI 列表
//
// 引擎未注册与 URI 格式错误只记录日志，其余错误立即返回。
func ApplyBindings(ctx context.Context, loader *Loader, uris []string, logger clog.Logger) error {
	if logger == nil {
		logger = clog.Discard()
	}
	for _, uri := range uris {
		err := loader.FollowURI(ctx, uri)
		if err == nil {
			continue
		}
		if xerrors.IsAny(err, ErrEngineNotFound, ErrMalformedURI) {
			logger.Warn("binding skipped", clog.String("uri", uri), clog.Error(err))
			continue
		}
		return xerrors.Wrapf(err, "apply binding %q", uri)
	}
	return nil
}
