// Package config defines the runtime configuration for ircserv and the
// helpers that fill it from defaults, a TOML file, the environment and the
// command line.
package config

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	ierrors "ircserv/internal/errors"
)

// Config holds every tuneable for one server process.
type Config struct {
	// ── Listener ─────────────────────────────────────────────────────
	Port     int    `toml:"-"` // positional <port>
	BindHost string `toml:"bind"`
	Backlog  int    `toml:"backlog"`

	// ── Protocol ─────────────────────────────────────────────────────
	Password        string `toml:"-"`                // positional <password>
	ReadBufferSize  int    `toml:"read_buffer_size"`
	MaxLineLength   int    `toml:"max_line_length"`  // 0 = unbounded
	VerifyPassword  bool   `toml:"verify_password"`  // compare PASS against Password
	UniqueNicknames bool   `toml:"unique_nicknames"` // reject NICK held by another session

	// ── Observability ────────────────────────────────────────────────
	Log     LogConfig     `toml:"log"`
	Metrics MetricsConfig `toml:"metrics"`

	// Verbose is the -v count; it wins over Log.Level when non-zero.
	Verbose int `toml:"-"`
}

// LogConfig selects logger verbosity, format and destination.
type LogConfig struct {
	Level  string `toml:"level"`  // "quiet", "info", "verbose", "debug"
	Format string `toml:"format"` // "console" or "json"
	Output string `toml:"output"` // "stderr", "stdout" or a file path
}

// MetricsConfig enables the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `toml:"addr"` // host:port, empty disables the endpoint
	Path string `toml:"path"`
}

// Default returns a Config populated with every default value.
func Default() *Config {
	return &Config{
		BindHost:       DefaultBindHost,
		Backlog:        DefaultBacklog,
		ReadBufferSize: DefaultReadBufferSize,
		MaxLineLength:  DefaultMaxLineLength,
		Log: LogConfig{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
			Output: DefaultLogOutput,
		},
		Metrics: MetricsConfig{Path: DefaultMetricsPath},
	}
}

// ListenAddr returns the bind address as "host:port".
func (c *Config) ListenAddr() string {
	return net.JoinHostPort(c.BindHost, strconv.Itoa(c.Port))
}

// ── Port parser ──────────────────────────────────────────────────────

// ParsePort accepts a decimal port in the range 1-65535.  Unlike atoi(3)
// trailing garbage such as "6667x" is rejected.
func ParsePort(spec string) (int, error) {
	port, err := strconv.Atoi(strings.TrimSpace(spec))
	if err != nil {
		return 0, fmt.Errorf("%w %q", ierrors.ErrInvalidPort, spec)
	}
	if port < 1 || port > 65535 {
		return 0, fmt.Errorf("%w %d: out of range 1-65535", ierrors.ErrInvalidPort, port)
	}
	return port, nil
}

// ── Validation ───────────────────────────────────────────────────────

// Validate checks that the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return &ierrors.ConfigError{
			Field:   "port",
			Value:   c.Port,
			Message: "out of range 1-65535",
			Hint:    "pass the port as the first argument, e.g. ircserv 6667 secret",
		}
	}
	if c.Password == "" {
		return &ierrors.ConfigError{
			Field:   "password",
			Message: "required",
			Hint:    "pass the password as the second argument, or - to type it",
		}
	}
	if ip := net.ParseIP(c.BindHost); ip == nil || ip.To4() == nil {
		return &ierrors.ConfigError{
			Field:   "bind",
			Value:   c.BindHost,
			Message: "must be a numeric IPv4 address",
		}
	}
	if c.Backlog < 1 {
		return &ierrors.ConfigError{
			Field:   "backlog",
			Value:   c.Backlog,
			Message: "must be at least 1",
		}
	}
	if c.ReadBufferSize < 1 || c.ReadBufferSize > MaxReadBufferSize {
		return &ierrors.ConfigError{
			Field:   "read_buffer_size",
			Value:   c.ReadBufferSize,
			Message: fmt.Sprintf("out of range 1-%d", MaxReadBufferSize),
		}
	}
	if c.MaxLineLength < 0 {
		return &ierrors.ConfigError{
			Field:   "max_line_length",
			Value:   c.MaxLineLength,
			Message: "must not be negative",
			Hint:    "use 0 to disable the limit",
		}
	}
	switch c.Log.Format {
	case "", "console", "json":
	default:
		return &ierrors.ConfigError{
			Field:   "log.format",
			Value:   c.Log.Format,
			Message: `must be "console" or "json"`,
		}
	}
	if c.Metrics.Addr != "" {
		if _, _, err := net.SplitHostPort(c.Metrics.Addr); err != nil {
			return &ierrors.ConfigError{
				Field:   "metrics.addr",
				Value:   c.Metrics.Addr,
				Message: err.Error(),
				Hint:    "use host:port, e.g. 127.0.0.1:9100",
			}
		}
		if !strings.HasPrefix(c.Metrics.Path, "/") {
			return &ierrors.ConfigError{
				Field:   "metrics.path",
				Value:   c.Metrics.Path,
				Message: "must start with /",
			}
		}
	}
	return nil
}
