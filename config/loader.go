package config

// loader.go - configuration loading from a TOML file and environment
// variables.
//
// Precedence order (highest wins):
//   1. CLI flags and positionals  (handled by cmd/root.go)
//   2. Environment variables      (LoadFromEnv)
//   3. TOML config file           (LoadFile)
//   4. Defaults                   (defaults.go)

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// LoadFile decodes the TOML file at path onto cfg.  Keys present in the
// file override cfg; absent keys leave it untouched.  Keys the Config does
// not know are returned so the caller can warn about them.
func LoadFile(path string, cfg *Config) ([]string, error) {
	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	var unknown []string
	for _, key := range md.Undecoded() {
		unknown = append(unknown, key.String())
	}
	trimStrings(cfg)
	return unknown, nil
}

func trimStrings(cfg *Config) {
	cfg.BindHost = strings.TrimSpace(cfg.BindHost)
	cfg.Log.Level = strings.TrimSpace(cfg.Log.Level)
	cfg.Log.Format = strings.TrimSpace(cfg.Log.Format)
	cfg.Log.Output = strings.TrimSpace(cfg.Log.Output)
	cfg.Metrics.Addr = strings.TrimSpace(cfg.Metrics.Addr)
	cfg.Metrics.Path = strings.TrimSpace(cfg.Metrics.Path)
}

// ── Environment variable mapping ─────────────────────────────────────
//
// Every supported env var uses the IRCSERV_ prefix.  Boolean values
// accept "1", "true", "yes" (case-insensitive).

// LoadFromEnv overlays environment variables onto cfg.  Only non-empty
// env vars override the existing value.  This should be called BEFORE
// applying CLI flags so that flags take precedence.
func LoadFromEnv(cfg *Config) {
	if v := os.Getenv("IRCSERV_BIND"); v != "" {
		cfg.BindHost = v
	}
	if v := envInt("IRCSERV_BACKLOG"); v > 0 {
		cfg.Backlog = v
	}
	if v := envInt("IRCSERV_READ_BUFFER"); v > 0 {
		cfg.ReadBufferSize = v
	}
	if v := envInt("IRCSERV_MAX_LINE"); v > 0 {
		cfg.MaxLineLength = v
	}
	if envBool("IRCSERV_VERIFY_PASSWORD") {
		cfg.VerifyPassword = true
	}
	if envBool("IRCSERV_UNIQUE_NICKS") {
		cfg.UniqueNicknames = true
	}

	// Observability
	if v := os.Getenv("IRCSERV_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("IRCSERV_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("IRCSERV_LOG_OUTPUT"); v != "" {
		cfg.Log.Output = v
	}
	if v := os.Getenv("IRCSERV_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := envInt("IRCSERV_VERBOSE"); v > 0 {
		cfg.Verbose = v
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func envInt(key string) int {
	v := os.Getenv(key)
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0
	}
	return n
}

func envBool(key string) bool {
	v := strings.ToLower(os.Getenv(key))
	return v == "1" || v == "true" || v == "yes"
}
