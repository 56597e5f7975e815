package idgen

import (
	"context"
	"errors"
	"sync"

	"github.com/go-zookeeper/zk"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/xerrors"
)

// ZKMode ZooKeeper 引擎从节点 Stat 推导 ID 的方式
type ZKMode string

const (
	// ZKModeVersion ID = 数据版本号 + startID
	ZKModeVersion ZKMode = "version"
	// ZKModeZxid ID = mzxid - czxid + startID
	ZKModeZxid ZKMode = "zxid"
)

// ParseZKMode 解析配置中的模式名，空字符串视为 version
func ParseZKMode(s string) (ZKMode, error) {
	switch ZKMode(s) {
	case "", ZKModeVersion:
		return ZKModeVersion, nil
	case ZKModeZxid:
		return ZKModeZxid, nil
	default:
		return "", xerrors.WithCode(ErrInvalidInput, "unsupported_zookeeper_mode")
	}
}

// ZooKeeperConn 引擎用到的 ZooKeeper 操作，*zk.Conn 实现了它
type ZooKeeperConn interface {
	Create(path string, data []byte, flags int32, acl []zk.ACL) (string, error)
	Set(path string, data []byte, version int32) (*zk.Stat, error)
}

// ZooKeeperEngine 基于 znode 版本号的计数引擎
//
// 每次 Next 对 "/gedid-<business>" 做一次无条件 Set，由服务端递增的
// Stat 推导 ID。起始偏移只保存在本地。
type ZooKeeperEngine struct {
	counterEngine

	conn    ZooKeeperConn
	mode    ZKMode
	offsets sync.Map // business -> int64
	logger  clog.Logger
}

// NewZooKeeperEngine 创建 ZooKeeper 引擎
func NewZooKeeperEngine(conn ZooKeeperConn, mode ZKMode, opts ...Option) (*ZooKeeperEngine, error) {
	if conn == nil {
		return nil, clientRequired(EngineZooKeeper)
	}
	if _, err := ParseZKMode(string(mode)); err != nil {
		return nil, err
	}
	if mode == "" {
		mode = ZKModeVersion
	}
	o := applyOptions(opts)
	logger := o.logger.With(clog.String("engine", EngineZooKeeper))
	return &ZooKeeperEngine{
		counterEngine: counterEngine{logger: logger, quiet: true},
		conn:          conn,
		mode:          mode,
		logger:        logger,
	}, nil
}

func (e *ZooKeeperEngine) Name() string {
	return EngineZooKeeper
}

func (e *ZooKeeperEngine) EmbellishedName(business string) string {
	return zookeeperKeyPrefix + business
}

// Mode 返回 ID 推导方式
func (e *ZooKeeperEngine) Mode() ZKMode {
	return e.mode
}

// Follow 确保持久节点存在并记录起始偏移
func (e *ZooKeeperEngine) Follow(ctx context.Context, business string, startID int64) error {
	path := e.EmbellishedName(business)
	err := runZK(ctx, func() error {
		_, err := e.conn.Create(path, nil, 0, zk.WorldACL(zk.PermAll))
		return err
	})
	if err != nil && !errors.Is(err, zk.ErrNodeExists) {
		return backendError(EngineZooKeeper, business, err)
	}
	e.offsets.Store(business, startID)
	e.logger.Info("zookeeper counter ready",
		clog.String("business", business),
		clog.String("path", path),
		clog.Int64("start_id", startID),
	)
	return nil
}

func (e *ZooKeeperEngine) Next(ctx context.Context, business string) (ID, error) {
	v, ok := e.offsets.Load(business)
	if !ok {
		return ID{}, xerrors.Wrapf(ErrBusinessNotBound, "zookeeper engine, business %q", business)
	}
	offset := v.(int64)

	var stat *zk.Stat
	err := runZK(ctx, func() error {
		var err error
		stat, err = e.conn.Set(e.EmbellishedName(business), nil, -1)
		return err
	})
	if err != nil {
		return ID{}, backendError(EngineZooKeeper, business, err)
	}

	if e.mode == ZKModeZxid {
		return Int64ID(stat.Mzxid - stat.Czxid + offset), nil
	}
	return Int64ID(int64(stat.Version) + offset), nil
}

// runZK zk 客户端的调用不感知 context，这里让调用与 ctx 竞争
//
// ctx 先结束时返回 ctx.Err()，调用本身仍会在后台完成。
func runZK(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
