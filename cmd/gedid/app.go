package main

import (
	"context"
	"fmt"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/connector"
	"github.com/ceyewan/gedid/idgen"
	"github.com/ceyewan/gedid/metrics"
	"github.com/ceyewan/gedid/xerrors"
)

// app 一次命令执行所需的全部资源
type app struct {
	cfg    *AppConfig
	logger clog.Logger
	meter  metrics.Meter
	boot   *idgen.Bootstrap

	healthChecks []connector.Connector
	closers      []func() error
}

// newApp 按配置创建 logger、指标、连接器并装配 Loader
//
// withMetrics 为 false 时使用 noop Meter，不启动 HTTP 服务器。
func newApp(ctx context.Context, cfg *AppConfig, withMetrics bool) (_ *app, err error) {
	logger, err := clog.New(&cfg.Log, clog.WithNamespace("gedid"))
	if err != nil {
		return nil, fmt.Errorf("创建 logger: %w", err)
	}

	a := &app{cfg: cfg, logger: logger, meter: metrics.Discard()}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	if withMetrics && cfg.Metrics.Enabled {
		meter, err := metrics.New(&cfg.Metrics, metrics.WithLogger(logger))
		if err != nil {
			return nil, fmt.Errorf("创建 meter: %w", err)
		}
		a.meter = meter
		a.closers = append(a.closers, func() error { return meter.Shutdown(context.Background()) })
	}

	backends, err := a.connect(ctx)
	if err != nil {
		return nil, err
	}

	a.boot, err = idgen.NewFromConfig(ctx, &cfg.IDGen, backends,
		idgen.WithLogger(logger),
		idgen.WithMeter(a.meter),
	)
	if err != nil {
		return nil, fmt.Errorf("装配 ID 引擎: %w", err)
	}
	boot := a.boot
	a.closers = append(a.closers, func() error {
		boot.Close()
		return nil
	})
	return a, nil
}

// connect 连接配置中出现的后端，未配置的后端保持为 nil
func (a *app) connect(ctx context.Context) (idgen.Backends, error) {
	var backends idgen.Backends
	opts := []connector.Option{connector.WithLogger(a.logger), connector.WithMeter(a.meter)}

	if a.cfg.Redis.Addr != "" {
		conn, err := connector.NewRedis(&a.cfg.Redis, opts...)
		if err != nil {
			return backends, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Connect(ctx); err != nil {
			return backends, err
		}
		backends.Redis = conn
		a.healthChecks = append(a.healthChecks, conn)
	}

	if len(a.cfg.Etcd.Endpoints) > 0 {
		conn, err := connector.NewEtcd(&a.cfg.Etcd, opts...)
		if err != nil {
			return backends, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Connect(ctx); err != nil {
			return backends, err
		}
		backends.Etcd = conn
		a.healthChecks = append(a.healthChecks, conn)
	}

	if len(a.cfg.ZooKeeper.Servers) > 0 {
		conn, err := connector.NewZooKeeper(&a.cfg.ZooKeeper, opts...)
		if err != nil {
			return backends, err
		}
		a.closers = append(a.closers, conn.Close)
		if err := conn.Connect(ctx); err != nil {
			return backends, err
		}
		backends.ZooKeeper = conn
		a.healthChecks = append(a.healthChecks, conn)
	}

	return backends, nil
}

// Close 按创建的逆序释放资源
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	a.logger.Flush()
	return xerrors.Combine(errs...)
}
