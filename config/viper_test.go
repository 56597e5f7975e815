package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testAppConfig struct {
	IDGen struct {
		Snowflake struct {
			WorkerID     int64 `mapstructure:"worker_id"`
			DatacenterID int64 `mapstructure:"datacenter_id"`
		} `mapstructure:"snowflake"`
		Bindings []string `mapstructure:"bindings"`
	} `mapstructure:"idgen"`
	Redis struct {
		Addr string `mapstructure:"addr"`
		DB   int    `mapstructure:"db"`
	} `mapstructure:"redis"`
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestLoaderLoad(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "gedid.yaml"), `
idgen:
  snowflake:
    worker_id: 1
    datacenter_id: 2
  bindings:
    - "snowflake://orders"
    - "redis://payments:1000"
redis:
  addr: "localhost:6379"
  db: 0
`)
	writeFile(t, filepath.Join(dir, "gedid.dev.yaml"), `
redis:
  db: 3
`)

	t.Setenv("GEDIDTEST_ENV", "dev")
	t.Setenv("GEDIDTEST_IDGEN_SNOWFLAKE_WORKER_ID", "7")

	loader, err := New(&Config{Name: "gedid", Paths: []string{dir}, EnvPrefix: "gedidtest"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	assert.Equal(t, filepath.Join(dir, "gedid.yaml"), loader.ConfigFileUsed())

	var cfg testAppConfig
	require.NoError(t, loader.Unmarshal(&cfg))
	assert.Equal(t, int64(7), cfg.IDGen.Snowflake.WorkerID, "env overrides file")
	assert.Equal(t, int64(2), cfg.IDGen.Snowflake.DatacenterID)
	assert.Equal(t, 3, cfg.Redis.DB, "environment specific file merged")
	assert.Equal(t, []string{"snowflake://orders", "redis://payments:1000"}, cfg.IDGen.Bindings)

	var redisCfg struct {
		Addr string `mapstructure:"addr"`
	}
	require.NoError(t, loader.UnmarshalKey("redis", &redisCfg))
	assert.Equal(t, "localhost:6379", redisCfg.Addr)
}

func TestLoaderDefaultsAndDotEnv(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, ".env"), "GEDIDDOTENV_REDIS_ADDR=dotenv:6379\n")
	t.Cleanup(func() { _ = os.Unsetenv("GEDIDDOTENV_REDIS_ADDR") })

	loader, err := New(
		&Config{Name: "missing", Paths: []string{dir}, EnvPrefix: "GEDIDDOTENV"},
		WithDefaults(map[string]any{
			"redis.addr": "default:6379",
			"redis.db":   5,
		}),
	)
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	assert.Empty(t, loader.ConfigFileUsed())

	var cfg testAppConfig
	require.NoError(t, loader.Unmarshal(&cfg))
	assert.Equal(t, "dotenv:6379", cfg.Redis.Addr)
	assert.Equal(t, 5, cfg.Redis.DB)
}

func TestLoaderEmptyConfigFailsValidation(t *testing.T) {
	loader, err := New(&Config{Name: "missing", Paths: []string{t.TempDir()}, EnvPrefix: "GEDIDEMPTY"})
	require.NoError(t, err)
	err = loader.Load(context.Background())
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoaderExplicitFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "custom.yaml")
	writeFile(t, path, "redis:\n  addr: \"custom:6379\"\n")

	loader, err := New(&Config{File: path, EnvPrefix: "GEDIDFILE"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	assert.Equal(t, "custom:6379", loader.Get("redis.addr"))

	missing, err := New(&Config{File: filepath.Join(dir, "nope.yaml"), EnvPrefix: "GEDIDFILE"})
	require.NoError(t, err)
	assert.ErrorIs(t, missing.Load(context.Background()), ErrLoadFailed)
}

func TestLoaderWatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gedid.yaml")
	writeFile(t, path, "idgen:\n  uuid:\n    version: 4\n")

	loader, err := New(&Config{Name: "gedid", Paths: []string{dir}, EnvPrefix: "GEDIDWATCH"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := loader.Watch(ctx, "idgen.uuid.version")
	require.NoError(t, err)

	// 原子替换，避免监听到截断后的空文件
	tmp := filepath.Join(dir, "gedid.yaml.tmp")
	writeFile(t, tmp, "idgen:\n  uuid:\n    version: 7\n")
	require.NoError(t, os.Rename(tmp, path))

	timeout := time.After(5 * time.Second)
	for {
		select {
		case event := <-ch:
			if event.Value != 7 {
				continue
			}
			assert.Equal(t, "idgen.uuid.version", event.Key)
			assert.Equal(t, "file", event.Source)
		case <-timeout:
			t.Fatal("timed out waiting for config change event")
		}
		break
	}

	cancel()
	assert.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, 2*time.Second, 10*time.Millisecond)

	_, err = loader.Watch(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidationFailed)
}

func TestLoaderWatchWithEnvironmentOverlay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gedid.yaml")
	writeFile(t, path, "idgen:\n  bindings:\n    - \"snowflake://orders\"\n")
	writeFile(t, filepath.Join(dir, "gedid.dev.yaml"), "redis:\n  db: 3\n")
	t.Setenv("GEDIDOVERLAY_ENV", "dev")

	loader, err := New(&Config{Name: "gedid", Paths: []string{dir}, EnvPrefix: "GEDIDOVERLAY"})
	require.NoError(t, err)
	require.NoError(t, loader.Load(context.Background()))
	assert.Equal(t, path, loader.ConfigFileUsed())
	assert.Equal(t, 3, loader.Get("redis.db"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch, err := loader.Watch(ctx, "idgen.bindings")
	require.NoError(t, err)

	tmp := filepath.Join(dir, "gedid.yaml.tmp")
	writeFile(t, tmp, "idgen:\n  bindings:\n    - \"snowflake://orders\"\n    - \"uuid://sessions\"\n")
	require.NoError(t, os.Rename(tmp, path))

	select {
	case event := <-ch:
		assert.Equal(t, "idgen.bindings", event.Key)
		assert.Equal(t, []any{"snowflake://orders", "uuid://sessions"}, event.Value)
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for config change event")
	}

	// 重新加载后环境配置仍然生效
	assert.Equal(t, 3, loader.Get("redis.db"))
	assert.Equal(t, path, loader.ConfigFileUsed())
}
