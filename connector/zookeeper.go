package connector

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-zookeeper/zk"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/xerrors"
)

type zookeeperConnector struct {
	cfg     *ZooKeeperConfig
	logger  clog.Logger
	metrics *connMetrics
	healthy atomic.Bool

	mu     sync.Mutex
	conn   *zk.Conn
	closed bool
}

// NewZooKeeper 创建 ZooKeeper 连接器
//
// zk.Connect 会在后台持续拨号，因此延迟到 Connect 时才创建会话。
func NewZooKeeper(cfg *ZooKeeperConfig, opts ...Option) (ZooKeeperConnector, error) {
	if cfg == nil {
		return nil, xerrors.Wrap(ErrConfig, "zookeeper config is nil")
	}
	if err := cfg.validate(); err != nil {
		return nil, xerrors.Wrap(err, "invalid zookeeper config")
	}
	opt := applyOptions(opts)

	cm, err := newConnMetrics(opt.meter, "zookeeper", cfg.Name)
	if err != nil {
		return nil, err
	}

	return &zookeeperConnector{
		cfg:     cfg,
		logger:  opt.logger.With(clog.String("connector", "zookeeper"), clog.String("name", cfg.Name)),
		metrics: cm,
	}, nil
}

// Connect 建立会话并等待 StateHasSession，幂等
func (c *zookeeperConnector) Connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrAlreadyClosed
	}
	if c.conn != nil {
		return nil
	}

	c.logger.Info("attempting to connect to zookeeper", clog.Any("servers", c.cfg.Servers))

	conn, events, err := zk.Connect(c.cfg.Servers, c.cfg.SessionTimeout, zk.WithLogger(zkLogger{logger: c.logger}))
	if err != nil {
		c.metrics.connected(ctx, err)
		return wrapErr(ErrConnection, "zookeeper", c.cfg.Name, err)
	}

	if err := c.awaitSession(ctx, events); err != nil {
		conn.Close()
		go drain(events)
		c.metrics.connected(ctx, err)
		c.logger.Error("failed to connect to zookeeper", clog.Error(err))
		return err
	}

	c.conn = conn
	c.healthy.Store(true)
	c.metrics.connected(ctx, nil)
	go c.watchSession(events)

	c.logger.Info("successfully connected to zookeeper",
		clog.String("server", conn.Server()),
		clog.Int64("session_id", conn.SessionID()))
	return nil
}

func (c *zookeeperConnector) awaitSession(ctx context.Context, events <-chan zk.Event) error {
	timer := time.NewTimer(c.cfg.ConnectTimeout)
	defer timer.Stop()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return wrapErr(ErrConnection, "zookeeper", c.cfg.Name, zk.ErrClosing)
			}
			if ev.State == zk.StateHasSession {
				return nil
			}
			if ev.State == zk.StateAuthFailed {
				return wrapErr(ErrConnection, "zookeeper", c.cfg.Name, zk.ErrAuthFailed)
			}
		case <-timer.C:
			return wrapErr(ErrTimeout, "zookeeper", c.cfg.Name,
				fmt.Errorf("no session after %s", c.cfg.ConnectTimeout))
		case <-ctx.Done():
			return wrapErr(ErrConnection, "zookeeper", c.cfg.Name, ctx.Err())
		}
	}
}

// watchSession 消费会话事件并维护健康状态，通道在连接关闭后结束
func (c *zookeeperConnector) watchSession(events <-chan zk.Event) {
	for ev := range events {
		if ev.Type != zk.EventSession {
			continue
		}
		switch ev.State {
		case zk.StateHasSession:
			c.healthy.Store(true)
			c.metrics.setUp(context.Background(), true)
			c.logger.Info("zookeeper session re-established")
		case zk.StateDisconnected, zk.StateExpired:
			c.healthy.Store(false)
			c.metrics.setUp(context.Background(), false)
			c.logger.Warn("zookeeper session lost", clog.String("state", ev.State.String()))
		}
	}
}

func drain(events <-chan zk.Event) {
	for range events {
	}
}

// Close 关闭会话，重复调用返回 nil
func (c *zookeeperConnector) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil
	}
	c.closed = true
	c.healthy.Store(false)
	c.metrics.setUp(context.Background(), false)

	if c.conn != nil {
		c.logger.Info("closing zookeeper connection")
		c.conn.Close()
	}
	return nil
}

// HealthCheck 检查会话状态并探测根节点
func (c *zookeeperConnector) HealthCheck(ctx context.Context) error {
	conn := c.GetClient()
	if conn == nil {
		return ErrNotConnected
	}
	if state := conn.State(); state != zk.StateHasSession {
		c.healthy.Store(false)
		return wrapErr(ErrHealthCheck, "zookeeper", c.cfg.Name, fmt.Errorf("session state %s", state))
	}

	errCh := make(chan error, 1)
	go func() {
		_, _, err := conn.Exists("/")
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err != nil {
			c.healthy.Store(false)
			c.logger.Warn("zookeeper health check failed", clog.Error(err))
			return wrapErr(ErrHealthCheck, "zookeeper", c.cfg.Name, err)
		}
	case <-ctx.Done():
		return wrapErr(ErrHealthCheck, "zookeeper", c.cfg.Name, ctx.Err())
	}
	c.healthy.Store(true)
	return nil
}

func (c *zookeeperConnector) IsHealthy() bool {
	return c.healthy.Load()
}

func (c *zookeeperConnector) Name() string {
	return c.cfg.Name
}

func (c *zookeeperConnector) GetClient() *zk.Conn {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	return c.conn
}

// zkLogger 将 go-zookeeper 的内部日志转入 clog
type zkLogger struct {
	logger clog.Logger
}

func (l zkLogger) Printf(format string, args ...any) {
	l.logger.Debug(fmt.Sprintf(format, args...))
}
