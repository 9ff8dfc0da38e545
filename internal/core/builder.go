package core

import (
	"ircserv/config"
	"ircserv/internal/command"
	"ircserv/internal/metrics"
	"ircserv/util"
)

// Build constructs a Server from the given configuration.  cfg is
// expected to have passed Validate.
func Build(cfg *config.Config, logger *util.Logger, m *metrics.Collector) (*Server, error) {
	return NewServer(optionsFromConfig(cfg), logger, m)
}

func optionsFromConfig(cfg *config.Config) Options {
	return Options{
		BindHost:       cfg.BindHost,
		Port:           cfg.Port,
		Backlog:        cfg.Backlog,
		ReadBufferSize: cfg.ReadBufferSize,
		MaxLineLength:  cfg.MaxLineLength,
		Policy: command.Policy{
			Password:        cfg.Password,
			VerifyPassword:  cfg.VerifyPassword,
			UniqueNicknames: cfg.UniqueNicknames,
		},
	}
}
