package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("IRCSERV_BIND", "127.0.0.1")
	t.Setenv("IRCSERV_BACKLOG", "64")
	t.Setenv("IRCSERV_READ_BUFFER", "1024")
	t.Setenv("IRCSERV_MAX_LINE", "4096")
	t.Setenv("IRCSERV_VERIFY_PASSWORD", "yes")
	t.Setenv("IRCSERV_UNIQUE_NICKS", "1")
	t.Setenv("IRCSERV_LOG_LEVEL", "debug")
	t.Setenv("IRCSERV_LOG_FORMAT", "json")
	t.Setenv("IRCSERV_LOG_OUTPUT", "stdout")
	t.Setenv("IRCSERV_METRICS_ADDR", "127.0.0.1:9100")
	t.Setenv("IRCSERV_VERBOSE", "2")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, "127.0.0.1", cfg.BindHost)
	assert.Equal(t, 64, cfg.Backlog)
	assert.Equal(t, 1024, cfg.ReadBufferSize)
	assert.Equal(t, 4096, cfg.MaxLineLength)
	assert.True(t, cfg.VerifyPassword)
	assert.True(t, cfg.UniqueNicknames)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "stdout", cfg.Log.Output)
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, 2, cfg.Verbose)
}

func TestLoadFromEnv_IgnoresInvalid(t *testing.T) {
	t.Setenv("IRCSERV_BACKLOG", "lots")
	t.Setenv("IRCSERV_VERIFY_PASSWORD", "maybe")

	cfg := Default()
	LoadFromEnv(cfg)

	assert.Equal(t, DefaultBacklog, cfg.Backlog)
	assert.False(t, cfg.VerifyPassword)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ircserv.toml")
	content := `
bind = " 127.0.0.1 "
backlog = 32
max_line_length = 512
unique_nicknames = true
typo_key = 1

[log]
level = "verbose"
format = "json"

[metrics]
addr = "127.0.0.1:9100"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	cfg := Default()
	unknown, err := LoadFile(path, cfg)
	require.NoError(t, err)

	assert.Equal(t, []string{"typo_key"}, unknown)
	assert.Equal(t, "127.0.0.1", cfg.BindHost)
	assert.Equal(t, 32, cfg.Backlog)
	assert.Equal(t, 512, cfg.MaxLineLength)
	assert.True(t, cfg.UniqueNicknames)
	assert.False(t, cfg.VerifyPassword)
	assert.Equal(t, "verbose", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, DefaultLogOutput, cfg.Log.Output, "absent keys keep their defaults")
	assert.Equal(t, "127.0.0.1:9100", cfg.Metrics.Addr)
	assert.Equal(t, DefaultReadBufferSize, cfg.ReadBufferSize)
}

func TestLoadFile_Errors(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.toml"), Default())
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("backlog = \"ten\"\n"), 0o600))
	_, err = LoadFile(path, Default())
	assert.Error(t, err)
}
