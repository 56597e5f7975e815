package idgen

import (
	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/connector"
	"github.com/ceyewan/gedid/metrics"
)

// Option 组件初始化选项函数
type Option func(*options)

type options struct {
	logger         clog.Logger
	meter          metrics.Meter
	redisConnector connector.RedisConnector
	etcdConnector  connector.EtcdConnector
}

// WithLogger 设置 Logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 设置 Meter
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithRedisConnector 设置 Redis 连接器，供 WorkerID 分配器使用
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConnector = conn
	}
}

// WithEtcdConnector 设置 Etcd 连接器，供 WorkerID 分配器使用
func WithEtcdConnector(conn connector.EtcdConnector) Option {
	return func(o *options) {
		o.etcdConnector = conn
	}
}

func applyOptions(opts []Option) *options {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = clog.Discard()
	}
	if o.meter == nil {
		o.meter = metrics.Discard()
	}
	return o
}
