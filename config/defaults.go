package config

// ── Default values ───────────────────────────────────────────────────
//
// All tuneable defaults live here so they are easy to audit and reuse
// across CLI flags, config file parsing, and environment variable
// loading.

const (
	// DefaultBindHost listens on every IPv4 interface.
	DefaultBindHost = "0.0.0.0"

	// DefaultBacklog is the listen(2) queue length.
	DefaultBacklog = 10

	// DefaultReadBufferSize is the size of the buffer used for the single
	// read performed per readable descriptor per iteration.
	DefaultReadBufferSize = 512

	// MaxReadBufferSize caps read_buffer_size.
	MaxReadBufferSize = 64 * 1024

	// DefaultMaxLineLength of 0 leaves the inbound accumulator unbounded.
	DefaultMaxLineLength = 0

	// DefaultLogLevel, DefaultLogFormat and DefaultLogOutput describe
	// plain text logging to stderr.
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultLogOutput = "stderr"

	// DefaultMetricsPath is where Prometheus metrics are served when
	// metrics.addr is set.
	DefaultMetricsPath = "/metrics"
)
