package config

import "github.com/ceyewan/gedid/clog"

// Option 配置加载器选项
type Option func(*options)

type options struct {
	logger   clog.Logger
	defaults map[string]any
}

// WithLogger 注入日志记录器，自动添加 "config" 命名空间
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger.WithNamespace("config")
		}
	}
}

// WithDefaults 设置默认值，key 使用点号分隔
//
// 只有注册过默认值或出现在配置文件中的 key 才能被环境变量覆盖后参与 Unmarshal。
func WithDefaults(defaults map[string]any) Option {
	return func(o *options) {
		for k, v := range defaults {
			o.defaults[k] = v
		}
	}
}

func applyOptions(opts []Option) *options {
	o := &options{
		logger:   clog.Discard(),
		defaults: make(map[string]any),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
