// Package cmd wires up the CLI flags, the configuration layers and the
// server.
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	flag "github.com/spf13/pflag"
	"golang.org/x/term"

	"ircserv/config"
	"ircserv/internal/core"
	ierrors "ircserv/internal/errors"
	"ircserv/internal/metrics"
	"ircserv/util"
)

// version is overridable at link time:
//
//	go build -ldflags "-X ircserv/cmd.version=2.0.0"
var version = "1.0.0" //nolint:gochecknoglobals

// readPassword prompts for the server password without echo.
var readPassword = func() (string, error) { //nolint:gochecknoglobals
	fmt.Fprint(os.Stderr, "Server password: ")
	pass, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", fmt.Errorf("reading password: %w", err)
	}
	return string(pass), nil
}

// flagValues holds flags that only override the configuration when they
// were given explicitly.
type flagValues struct {
	configPath  string
	bind        string
	backlog     int
	readBuffer  int
	maxLine     int
	verifyPass  bool
	uniqueNicks bool
	metricsAddr string
	logLevel    string
	logFormat   string
	logOutput   string
	verbose     int
	showVersion bool
	showHelp    bool
}

func newFlagSet(fv *flagValues) *flag.FlagSet {
	fs := flag.NewFlagSet("ircserv", flag.ContinueOnError)

	// ── server ───────────────────────────────────────────────────
	fs.StringVarP(&fv.configPath, "config", "c", "", "TOML configuration file")
	fs.StringVarP(&fv.bind, "bind", "b", config.DefaultBindHost, "IPv4 address to listen on")
	fs.IntVar(&fv.backlog, "backlog", config.DefaultBacklog, "Listen backlog")
	fs.IntVar(&fv.readBuffer, "read-buffer", config.DefaultReadBufferSize, "Bytes read per readiness event")
	fs.IntVar(&fv.maxLine, "max-line", config.DefaultMaxLineLength, "Drop clients buffering more than n bytes without a newline (0 = no limit)")

	// ── policy ───────────────────────────────────────────────────
	fs.BoolVar(&fv.verifyPass, "verify-password", false, "Reject PASS values that differ from the server password")
	fs.BoolVar(&fv.uniqueNicks, "unique-nicks", false, "Reject nicknames already in use")

	// ── observability ────────────────────────────────────────────
	fs.StringVar(&fv.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on host:port")
	fs.StringVar(&fv.logLevel, "log-level", config.DefaultLogLevel, "quiet, info, verbose or debug")
	fs.StringVar(&fv.logFormat, "log-format", config.DefaultLogFormat, "console or json")
	fs.StringVar(&fv.logOutput, "log-output", config.DefaultLogOutput, "stderr, stdout or a file path")
	fs.CountVarP(&fv.verbose, "verbose", "v", "Increase verbosity (repeatable)")

	fs.BoolVar(&fv.showVersion, "version", false, "Print version and exit")
	fs.BoolVarP(&fv.showHelp, "help", "h", false, "Show this help")

	// Flags end at the port, so a password such as "-secret" stays a
	// positional.
	fs.SetInterspersed(false)

	fs.Usage = func() { printUsage(fs) }
	return fs
}

// Execute parses args, builds the server and runs it until ctx is done or
// the event loop fails.
func Execute(ctx context.Context, args []string) error {
	var fv flagValues
	fs := newFlagSet(&fv)

	// ── parse ────────────────────────────────────────────────────
	if err := fs.Parse(args); err != nil {
		return err
	}

	if fv.showHelp {
		printUsage(fs)
		return nil
	}
	if fv.showVersion {
		fmt.Printf("ircserv %s\n", version)
		return nil
	}

	if fs.NArg() != 2 {
		printUsage(fs)
		return ierrors.ErrUsage
	}

	// ── configuration layers ─────────────────────────────────────
	cfg := config.Default()
	var unknownKeys []string
	if fv.configPath != "" {
		keys, err := config.LoadFile(fv.configPath, cfg)
		if err != nil {
			return err
		}
		unknownKeys = keys
	}
	config.LoadFromEnv(cfg)
	applyFlags(fs, &fv, cfg)

	if err := parsePositional(cfg, fs.Args()); err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	// ── build components ─────────────────────────────────────────
	logger, closeLog, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	for _, key := range unknownKeys {
		logger.Warn("config file %s: unknown key %q ignored", fv.configPath, key)
	}
	logger.Verbose("listen=%s backlog=%d read_buffer=%d max_line=%d verify_password=%t unique_nicknames=%t",
		cfg.ListenAddr(), cfg.Backlog, cfg.ReadBufferSize, cfg.MaxLineLength,
		cfg.VerifyPassword, cfg.UniqueNicknames)

	m := metrics.New()
	if cfg.Metrics.Addr != "" {
		ms, err := metrics.Listen(cfg.Metrics.Addr, cfg.Metrics.Path, m)
		if err != nil {
			return err
		}
		go func() {
			if err := ms.Serve(); err != nil {
				logger.Error("metrics endpoint: %v", err)
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			ms.Shutdown(shutdownCtx) //nolint:errcheck
		}()
		logger.Info("metrics on http://%s%s", ms.Addr(), cfg.Metrics.Path)
	}

	srv, err := core.Build(cfg, logger, m)
	if err != nil {
		return err
	}

	// The loop has no shutdown path; on cancellation Execute reports a
	// normal stop, the process exits 0 and the OS reclaims the descriptors.
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		return nil
	}
}

// ── helpers ──────────────────────────────────────────────────────────

func applyFlags(fs *flag.FlagSet, fv *flagValues, cfg *config.Config) {
	if fs.Changed("bind") {
		cfg.BindHost = fv.bind
	}
	if fs.Changed("backlog") {
		cfg.Backlog = fv.backlog
	}
	if fs.Changed("read-buffer") {
		cfg.ReadBufferSize = fv.readBuffer
	}
	if fs.Changed("max-line") {
		cfg.MaxLineLength = fv.maxLine
	}
	if fs.Changed("verify-password") {
		cfg.VerifyPassword = fv.verifyPass
	}
	if fs.Changed("unique-nicks") {
		cfg.UniqueNicknames = fv.uniqueNicks
	}
	if fs.Changed("metrics-addr") {
		cfg.Metrics.Addr = fv.metricsAddr
	}
	if fs.Changed("log-level") {
		cfg.Log.Level = fv.logLevel
	}
	if fs.Changed("log-format") {
		cfg.Log.Format = fv.logFormat
	}
	if fs.Changed("log-output") {
		cfg.Log.Output = fv.logOutput
	}
	if fv.verbose > 0 {
		cfg.Verbose = fv.verbose
	}
}

func parsePositional(cfg *config.Config, remaining []string) error {
	port, err := config.ParsePort(remaining[0])
	if err != nil {
		return err
	}
	cfg.Port = port

	cfg.Password = remaining[1]
	if cfg.Password == "-" {
		pass, err := readPassword()
		if err != nil {
			return err
		}
		cfg.Password = strings.TrimRight(pass, "\r\n")
	}
	return nil
}

// buildLogger creates the root logger.  A -v count wins over log.level:
// -v is verbose, -vv and beyond is debug.
func buildLogger(cfg *config.Config) (*util.Logger, func(), error) {
	out, closer, err := util.OpenLogOutput(cfg.Log.Output)
	if err != nil {
		return nil, nil, err
	}

	level := util.ParseLogLevel(cfg.Log.Level)
	if cfg.Verbose > 0 {
		level = util.LogNormal + util.LogLevel(cfg.Verbose)
		if level > util.LogDebug {
			level = util.LogDebug
		}
	}

	logger := util.NewLogger(int(level))
	logger.SetOutput(out)
	logger.SetJSON(cfg.Log.Format == "json")

	closeFn := func() {}
	if closer != nil {
		closeFn = func() { closer.Close() } //nolint:errcheck
	}
	return logger, closeFn, nil
}

func printUsage(fs *flag.FlagSet) {
	fmt.Fprintf(os.Stderr, `ircserv - minimal IRC server v%s

Usage:
  ircserv [options] <port> <password>

Options:
`, version)
	fs.PrintDefaults()
	fmt.Fprintf(os.Stderr, `
Environment:
  IRCSERV_BIND, IRCSERV_BACKLOG, IRCSERV_READ_BUFFER, IRCSERV_MAX_LINE,
  IRCSERV_VERIFY_PASSWORD, IRCSERV_UNIQUE_NICKS, IRCSERV_LOG_LEVEL,
  IRCSERV_LOG_FORMAT, IRCSERV_LOG_OUTPUT, IRCSERV_METRICS_ADDR,
  IRCSERV_VERBOSE

Examples:
  ircserv 6667 secret                         Listen on 0.0.0.0:6667
  ircserv -b 127.0.0.1 -vv 6667 secret        Loopback only, debug logging
  ircserv --metrics-addr :9100 6667 -         Prompt for the password
  ircserv -c /etc/ircserv.toml 6667 secret    Load settings from a file
`)
}
