package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ceyewan/gedid/clog"
	"github.com/ceyewan/gedid/config"
	"github.com/ceyewan/gedid/connector"
	"github.com/ceyewan/gedid/idgen"
	"github.com/ceyewan/gedid/metrics"
)

// GlobalFlags 全局标志
type GlobalFlags struct {
	ConfigFile string // 显式指定的配置文件
	EnvPrefix  string // 环境变量前缀
}

var globalFlags GlobalFlags

// AppConfig 配置文件的根结构
type AppConfig struct {
	Log       clog.Config               `mapstructure:"log"`
	Metrics   metrics.Config            `mapstructure:"metrics"`
	Redis     connector.RedisConfig     `mapstructure:"redis"`
	Etcd      connector.EtcdConfig      `mapstructure:"etcd"`
	ZooKeeper connector.ZooKeeperConfig `mapstructure:"zookeeper"`
	IDGen     idgen.Config              `mapstructure:"idgen"`
}

// configDefaults 注册全部 key，环境变量才能覆盖未出现在文件中的配置
var configDefaults = map[string]any{
	"log.level":  "info",
	"log.format": "console",
	"log.output": "stderr",

	"metrics.enabled":      false,
	"metrics.service_name": "gedid",
	"metrics.version":      "dev",
	"metrics.port":         9090,
	"metrics.path":         "/metrics",
	"metrics.runtime":      true,

	"redis.name":     "redis",
	"redis.addr":     "",
	"redis.password": "",

	"etcd.name":      "etcd",
	"etcd.endpoints": []string{},
	"etcd.username":  "",
	"etcd.password":  "",

	"zookeeper.name":            "zookeeper",
	"zookeeper.servers":         []string{},
	"zookeeper.session_timeout": "10s",

	"idgen.snowflake.datacenter_id":    0,
	"idgen.snowflake.worker_id":        0,
	"idgen.snowflake.worker_id_method": idgen.AllocatorStatic,
	"idgen.snowflake.key_prefix":       idgen.DefaultWorkerKeyPrefix,
	"idgen.snowflake.ttl":              30,
	"idgen.snowflake.epoch":            idgen.DefaultEpoch,
	"idgen.uuid.version":               idgen.UUIDv4,
	"idgen.zookeeper.mode":             string(idgen.ZKModeVersion),
	"idgen.bindings":                   []string{},
}

// rootCmd 根命令
var rootCmd = &cobra.Command{
	Use:   "gedid",
	Short: "分布式唯一 ID 生成工具",
	Long: `gedid 将业务绑定到 ID 引擎并按业务发放 ID

支持的引擎:
  snowflake  进程内雪花算法
  redis      基于 INCR 的连续计数
  zookeeper  基于 znode 版本号的连续计数
  etcd       基于 key 版本号的连续计数
  uuid       无状态 UUID

业务绑定写在配置的 idgen.bindings 中，格式为 scheme://business[:startId]。`,
	SilenceUsage: true,
}

// Execute 执行根命令
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&globalFlags.ConfigFile, "config", "c", "", "配置文件路径 (默认搜索 ./gedid.yaml 与 ./config/gedid.yaml)")
	rootCmd.PersistentFlags().StringVar(&globalFlags.EnvPrefix, "env-prefix", config.DefaultEnvPrefix, "环境变量前缀")

	rootCmd.AddCommand(nextCmd)
	rootCmd.AddCommand(decodeCmd)
	rootCmd.AddCommand(enginesCmd)
	rootCmd.AddCommand(serveCmd)
}

// loadConfig 加载配置，返回的 Loader 可用于监听变更
func loadConfig(ctx context.Context) (*AppConfig, config.Loader, error) {
	loader, err := config.New(&config.Config{
		Name:      "gedid",
		File:      globalFlags.ConfigFile,
		EnvPrefix: globalFlags.EnvPrefix,
	}, config.WithDefaults(configDefaults))
	if err != nil {
		return nil, nil, err
	}
	if err := loader.Load(ctx); err != nil {
		return nil, nil, fmt.Errorf("加载配置: %w", err)
	}

	var cfg AppConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return nil, nil, fmt.Errorf("解析配置: %w", err)
	}
	return &cfg, loader, nil
}
