package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "mydat.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func testFlags() *pflag.FlagSet {
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Int("port", DefaultPort, "")
	fs.String("store-driver", DefaultStoreDriver, "")
	fs.String("store-path", DefaultStorePath, "")
	fs.Duration("persist-interval", DefaultPersistInterval, "")
	fs.String("log-level", DefaultLogLevel, "")
	fs.String("output", DefaultOutput, "")
	fs.Bool("verbose", false, "")
	fs.Bool("secure-cookie", false, "")
	return fs
}

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("", nil)
	require.NoError(t, err)

	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Store.Driver)
	assert.Equal(t, DefaultStorePath, cfg.Store.Path)
	assert.Equal(t, 30*time.Second, cfg.Store.PersistInterval)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "text", cfg.Log.Format)
	assert.Equal(t, DefaultBaseURL, cfg.Client.BaseURL)
	assert.Equal(t, "grid", cfg.Client.Layout)
	assert.Equal(t, "auto", cfg.Output)
	assert.False(t, cfg.Server.SecureCookie, "plain HTTP keeps its session cookie")
	assert.Empty(t, cfg.File)
}

func TestLoad_SecureCookie(t *testing.T) {
	cfg, err := Load(writeConfig(t, "server:\n  secure_cookie: true\n"), nil)
	require.NoError(t, err)
	assert.True(t, cfg.Server.SecureCookie)

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--secure-cookie"}))
	cfg, err = Load(writeConfig(t, "server:\n  port: 9000\n"), fs)
	require.NoError(t, err)
	assert.True(t, cfg.Server.SecureCookie)
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9000
  watch: true
store:
  path: data/graphs.db
  persist_interval: 2m
seed_file: seed.yaml
log:
  format: json
`)

	cfg, err := Load(path, nil)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, 9000, cfg.Server.Port)
	assert.True(t, cfg.Server.Watch)
	assert.Equal(t, filepath.Join(dir, "data/graphs.db"), cfg.Store.Path)
	assert.Equal(t, 2*time.Minute, cfg.Store.PersistInterval)
	assert.Equal(t, filepath.Join(dir, "seed.yaml"), cfg.SeedFile)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, path, cfg.File)
}

func TestLoad_DiscoversFileInWorkingDir(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mydat.yml"), []byte("server:\n  port: 7000\n"), 0o600))
	t.Chdir(dir)

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)
	assert.Equal(t, "mydat.yml", cfg.File)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\nstore:\n  path: file.db\n")
	t.Setenv("MYDAT_SERVER__PORT", "9100")
	t.Setenv("MYDAT_STORE__PATH", "/tmp/env.db")
	t.Setenv("MYDAT_STORE__PERSIST_INTERVAL", "5s")

	cfg, err := Load(path, nil)
	require.NoError(t, err)
	assert.Equal(t, 9100, cfg.Server.Port)
	assert.Equal(t, "/tmp/env.db", cfg.Store.Path)
	assert.Equal(t, 5*time.Second, cfg.Store.PersistInterval)
}

func TestLoad_FlagsOverrideEverything(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\nlog:\n  level: debug\n")
	t.Setenv("MYDAT_SERVER__PORT", "9100")

	fs := testFlags()
	require.NoError(t, fs.Parse([]string{"--port", "9200", "--store-path", "flag.db", "--verbose"}))

	cfg, err := Load(path, fs)
	require.NoError(t, err)
	assert.Equal(t, 9200, cfg.Server.Port)
	assert.Equal(t, "flag.db", cfg.Store.Path, "flag paths are not rebased on the config file")
	assert.Equal(t, "debug", cfg.Log.Level, "unchanged flags keep lower layers")
}

func TestLoad_ExpandsEnvInDSN(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("PGPASS", "s3cret")
	t.Setenv("MYDAT_STORE__DRIVER", "postgres")
	t.Setenv("MYDAT_STORE__DSN", "postgres://app:${PGPASS}@db/mydat")

	cfg, err := Load("", nil)
	require.NoError(t, err)
	assert.Equal(t, "postgres://app:s3cret@db/mydat", cfg.Store.DSN)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		errMsg  string
	}{
		{name: "bad driver", content: "store:\n  driver: oracle\n", errMsg: "store.driver"},
		{name: "postgres without dsn", content: "store:\n  driver: postgres\n", errMsg: "store.dsn"},
		{name: "bad level", content: "log:\n  level: loud\n", errMsg: "log.level"},
		{name: "bad format", content: "log:\n  format: xml\n", errMsg: "log.format"},
		{name: "bad output", content: "output: html\n", errMsg: "output"},
		{name: "bad port", content: "server:\n  port: 70000\n", errMsg: "server.port"},
		{name: "bad duration", content: "store:\n  persist_interval: soon\n", errMsg: "decode"},
		{name: "bad yaml", content: "server: [\n", errMsg: "error reading config file"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content), nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), nil)
	assert.Error(t, err)
}
