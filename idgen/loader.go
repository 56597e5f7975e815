// Package idgen 为 gedid 提供分布式唯一 ID 能力。
//
// Loader 将业务名绑定到具体的引擎，之后按业务名发放 ID：
//   - snowflake: 进程内雪花算法，无外部依赖
//   - redis:     基于 INCR 的连续计数
//   - zookeeper: 基于 znode 版本号的连续计数
//   - etcd:      基于 key 版本号的连续计数
//   - uuid:      无状态 UUID
//
// 使用示例:
//
//	loader, _ := idgen.NewLoader(idgen.WithLogger(logger))
//	sf, _ := idgen.NewSnowflake(1)
//	loader.AddEngine(sf)
//	loader.AddEngine(idgen.Must(idgen.NewRedisEngine(rdb)))
//
//	_ = loader.Follow(ctx, "redis", "orders", idgen.WithStartID(100))
//	_ = loader.FollowURI(ctx, "snowflake://events")
//
//	id, err := loader.Next(ctx, "orders")
package idgen

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/xerrors"
)

// Binding 业务绑定的快照
type Binding struct {
	Business string `json:"business"`
	Engine   string `json:"engine"`
	StartID  int64  `json:"start_id"`
	// Ready 为 false 表示引擎侧的 Follow 仍在进行
	Ready bool `json:"ready"`
}

type binding struct {
	engine  Engine
	startID int64
	ready   bool
}

// Loader 引擎注册表与业务路由
//
// 引擎与绑定都只增不减。Next 只持读锁查找绑定，对引擎的调用发生在锁外。
type Loader struct {
	mu       sync.RWMutex
	engines  map[string]Engine
	bindings map[string]*binding

	logger  clog.Logger
	metrics *loaderMetrics
}

// NewLoader 创建空的 Loader
func NewLoader(opts ...Option) (*Loader, error) {
	o := applyOptions(opts)
	m, err := newLoaderMetrics(o.meter)
	if err != nil {
		return nil, err
	}
	return &Loader{
		engines:  make(map[string]Engine),
		bindings: make(map[string]*binding),
		logger:   o.logger.WithNamespace("loader"),
		metrics:  m,
	}, nil
}

// AddEngine 注册引擎，同名引擎先到先得，重复注册返回 false
func (l *Loader) AddEngine(engine Engine) bool {
	name := engine.Name()

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.engines[name]; ok {
		l.logger.Warn("engine already registered, ignoring", clog.String("engine", name))
		return false
	}
	l.engines[name] = engine
	l.logger.Info("engine registered", clog.String("engine", name))
	return true
}

// FollowOption Follow 选项
type FollowOption func(*followOptions)

type followOptions struct {
	startID *int64
}

// WithStartID 指定业务的起始值，具体含义由引擎的 FixedStartID 决定
func WithStartID(startID int64) FollowOption {
	return func(o *followOptions) {
		o.startID = &startID
	}
}

// Follow 将业务绑定到引擎
//
// 引擎未注册时只记录日志并返回 ErrEngineNotFound，调用方可以忽略它。
// 业务已绑定时返回 *BusinessAlreadyBoundError，不会改绑。
// 绑定先于引擎的 Follow 记录，期间 Next 返回 ErrBusinessNotBound；
// 引擎 Follow 失败时撤销绑定并返回错误。
func (l *Loader) Follow(ctx context.Context, engineName, business string, opts ...FollowOption) error {
	fo := &followOptions{}
	for _, opt := range opts {
		opt(fo)
	}
	return l.follow(ctx, engineName, business, fo.startID)
}

func (l *Loader) follow(ctx context.Context, engineName, business string, startID *int64) error {
	if business == "" {
		return xerrors.WithCode(ErrInvalidInput, "empty_business")
	}

	l.mu.Lock()
	engine, ok := l.engines[engineName]
	if !ok {
		l.mu.Unlock()
		l.logger.Warn("engine not found, follow ignored",
			clog.String("engine", engineName),
			clog.String("business", business),
		)
		return xerrors.Wrapf(ErrEngineNotFound, "engine %q", engineName)
	}
	if existing, bound := l.bindings[business]; bound {
		l.mu.Unlock()
		return &BusinessAlreadyBoundError{Business: business, Engine: existing.engine.Name()}
	}
	fixed := engine.FixedStartID(startID)
	b := &binding{engine: engine, startID: fixed}
	l.bindings[business] = b
	l.mu.Unlock()

	if err := engine.Follow(ctx, business, fixed); err != nil {
		l.mu.Lock()
		delete(l.bindings, business)
		l.mu.Unlock()
		l.logger.ErrorContext(ctx, "engine follow failed, binding rolled back",
			clog.String("engine", engineName),
			clog.String("business", business),
			clog.Error(err),
		)
		return xerrors.Wrapf(err, "follow %q on engine %q", business, engineName)
	}

	l.mu.Lock()
	b.ready = true
	l.mu.Unlock()

	l.metrics.bindings.Inc(ctx)
	l.logger.InfoContext(ctx, "business bound",
		clog.String("engine", engineName),
		clog.String("business", business),
		clog.Int64("start_id", fixed),
	)
	return nil
}

// FollowURI 按 "scheme://host[:startId]" 绑定业务，WithStartID 优先于 URI 中的端口
//
// URI 格式错误时只记录日志并返回 ErrMalformedURI，不产生任何绑定。
func (l *Loader) FollowURI(ctx context.Context, uri string, opts ...FollowOption) error {
	parsed, err := ParseURI(uri)
	if err != nil {
		l.logger.Warn("malformed binding uri, follow ignored",
			clog.String("uri", uri),
			clog.Error(err),
		)
		return err
	}
	fo := &followOptions{startID: parsed.StartID}
	for _, opt := range opts {
		opt(fo)
	}
	return l.follow(ctx, parsed.Engine, parsed.Business, fo.startID)
}

func (l *Loader) lookup(business string) (*binding, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bindings[business]
	if !ok || !b.ready {
		return nil, false
	}
	return b, true
}

// Next 发放业务的下一个 ID
//
// 引擎返回的错误保持原有种类，只附加业务与引擎信息。
func (l *Loader) Next(ctx context.Context, business string) (ID, error) {
	b, ok := l.lookup(business)
	if !ok {
		return ID{}, xerrors.Wrapf(ErrBusinessNotBound, "business %q", business)
	}

	name := b.engine.Name()
	start := time.Now()
	id, err := b.engine.Next(ctx, business)
	l.metrics.observeNext(ctx, name, business, start, err)
	if err != nil {
		l.logger.DebugContext(ctx, "next failed",
			clog.String("engine", name),
			clog.String("business", business),
			clog.Error(err),
		)
		return ID{}, xerrors.Wrapf(err, "next %q on engine %q", business, name)
	}
	return id, nil
}

// NextInt64 发放数值型 ID，绑定到 uuid 引擎的业务返回 ErrInvalidInput
func (l *Loader) NextInt64(ctx context.Context, business string) (int64, error) {
	id, err := l.Next(ctx, business)
	if err != nil {
		return 0, err
	}
	v, ok := id.Int64()
	if !ok {
		return 0, xerrors.Wrapf(ErrInvalidInput, "business %q issues string ids", business)
	}
	return v, nil
}

// NextString 发放 ID 的字符串形式
func (l *Loader) NextString(ctx context.Context, business string) (string, error) {
	id, err := l.Next(ctx, business)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// Binding 查询业务的绑定
func (l *Loader) Binding(business string) (Binding, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.bindings[business]
	if !ok {
		return Binding{}, false
	}
	return Binding{Business: business, Engine: b.engine.Name(), StartID: b.startID, Ready: b.ready}, true
}

// Bindings 按业务名排序返回所有绑定
func (l *Loader) Bindings() []Binding {
	l.mu.RLock()
	out := make([]Binding, 0, len(l.bindings))
	for business, b := range l.bindings {
		out = append(out, Binding{Business: business, Engine: b.engine.Name(), StartID: b.startID, Ready: b.ready})
	}
	l.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Business < out[j].Business })
	return out
}

// Engine 按名称查询已注册的引擎
func (l *Loader) Engine(name string) (Engine, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	e, ok := l.engines[name]
	return e, ok
}

// Engines 返回已注册引擎名，按字典序
func (l *Loader) Engines() []string {
	l.mu.RLock()
	names := make([]string, 0, len(l.engines))
	for name := range l.engines {
		names = append(names, name)
	}
	l.mu.RUnlock()

	sort.Strings(names)
	return names
}

// Configurer 启动钩子，在业务流量到来之前调用一次，通常在其中调用 Follow
type Configurer interface {
	Configure(ctx context.Context, loader *Loader) error
}

// ConfigurerFunc 将函数适配为 Configurer
type ConfigurerFunc func(ctx context.Context, loader *Loader) error

func (f ConfigurerFunc) Configure(ctx context.Context, loader *Loader) error {
	return f(ctx, loader)
}

// Configure 依次执行启动钩子，遇到第一个错误即返回
func (l *Loader) Configure(ctx context.Context, configurers ...Configurer) error {
	for i, c := range configurers {
		if err := c.Configure(ctx, l); err != nil {
			return xerrors.Wrapf(err, "configurer #%d", i)
		}
	}
	return nil
}

// Must 构造失败时 panic，仅用于初始化代码
func Must[T any](v T, err error) T {
	return xerrors.Must(v, err)
}
