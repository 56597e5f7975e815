package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/config"
	"github.com/ceyewan/gedid/idgen"
)

var serveFlags struct {
	healthInterval time.Duration
}

// serveCmd 常驻运行：保持 WorkerID 租约、暴露指标、热加载业务绑定
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "常驻运行并暴露 Prometheus 指标",
	Long: `按配置装配引擎与业务绑定后常驻运行，直到收到 SIGINT/SIGTERM

- metrics.enabled 为 true 时在 metrics.port 暴露 Prometheus 指标
- 保持 Snowflake WorkerID 租约，租约丢失时退出
- 配置文件中 idgen.bindings 新增的条目会被自动绑定`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		cfg, cfgLoader, err := loadConfig(ctx)
		if err != nil {
			return err
		}
		a, err := newApp(ctx, cfg, true)
		if err != nil {
			return err
		}
		defer a.Close()

		logger := a.logger
		logger.Info("gedid serving",
			clog.Int64("worker_id", a.boot.WorkerID),
			clog.Int64("datacenter_id", cfg.IDGen.Snowflake.DatacenterID),
			clog.Any("engines", a.boot.Loader.Engines()),
			clog.Int("bindings", len(a.boot.Loader.Bindings())),
		)

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			select {
			case err := <-a.boot.KeepAlive(gctx):
				return fmt.Errorf("worker id 租约丢失: %w", err)
			case <-gctx.Done():
				return nil
			}
		})

		g.Go(func() error {
			return watchBindings(gctx, cfgLoader, a.boot.Loader, logger)
		})

		g.Go(func() error {
			healthLoop(gctx, a, serveFlags.healthInterval)
			return nil
		})

		err = g.Wait()
		logger.Info("gedid stopped", clog.Error(err))
		return err
	},
}

func init() {
	serveCmd.Flags().DurationVar(&serveFlags.healthInterval, "health-interval", 15*time.Second, "后端健康检查间隔")
}

// watchBindings 配置文件中 idgen.bindings 变化时绑定新增的业务
//
// 已绑定的业务保持不变，绑定不会被撤销。
func watchBindings(ctx context.Context, cfgLoader config.Loader, loader *idgen.Loader, logger clog.Logger) error {
	events, err := cfgLoader.Watch(ctx, "idgen.bindings")
	if err != nil {
		return err
	}
	for range events {
		var uris []string
		if err := cfgLoader.UnmarshalKey("idgen.bindings", &uris); err != nil {
			logger.Error("decode idgen.bindings failed", clog.Error(err))
			continue
		}
		if err := idgen.ApplyBindings(ctx, loader, unboundURIs(loader, uris), logger); err != nil {
			logger.Error("apply new bindings failed", clog.Error(err))
		}
	}
	return nil
}

// unboundURIs 过滤掉业务已绑定的 URI，格式错误的 URI 原样保留交给 ApplyBindings 记录
func unboundURIs(loader *idgen.Loader, uris []string) []string {
	var out []string
	for _, uri := range uris {
		parsed, err := idgen.ParseURI(uri)
		if err == nil {
			if _, bound := loader.Binding(parsed.Business); bound {
				continue
			}
		}
		out = append(out, uri)
	}
	return out
}

// healthLoop 定期检查后端连接，结果反映在 connector_up 指标上
func healthLoop(ctx context.Context, a *app, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, hc := range a.healthChecks {
				if err := hc.HealthCheck(ctx); err != nil {
					a.logger.Warn("backend health check failed", clog.String("connector", hc.Name()), clog.Error(err))
				}
			}
		}
	}
}
