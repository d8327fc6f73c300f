// Package command provides the ecwt command-line tool.
//
// It uses urfave/cli/v2 for command parsing. Every command except keygen
// builds a token factory from the configuration loaded by confloader.
package command

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/urfave/cli/v2"

	"github.com/gourdian25/ecwt"
	"github.com/gourdian25/ecwt/internal/confloader"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

// state is shared by the commands of one App.
type state struct {
	config *confloader.File
	logger *slog.Logger
}

// App creates the CLI application.
func App() *cli.App {
	s := &state{}

	return &cli.App{
		Name:    "ecwt",
		Usage:   "Issue, verify and revoke encrypted compact web tokens",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			keygenCommand(),
			issueCommand(s),
			verifyCommand(s),
			revokeCommand(s),
			pruneCommand(s),
		},
		Before: func(c *cli.Context) error {
			loader := confloader.NewLoader(confloader.WithConfigFile(c.String("config")))
			cfg, err := loader.Load()
			if err != nil {
				return err
			}
			s.config = cfg
			s.logger = newLogger(c.App.ErrWriter, cfg.Log)
			return nil
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to the YAML configuration file",
			EnvVars: []string{"ECWT_CONFIG"},
		},
	}
}

// newLogger builds the command logger. Unknown levels fall back to info.
func newLogger(w io.Writer, cfg confloader.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if strings.EqualFold(cfg.Format, "json") {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// openFactory builds a factory from the loaded configuration. closeFn
// releases the Redis client and the decode cache.
func (s *state) openFactory() (factory *ecwt.Factory, closeFn func(), err error) {
	config, err := s.config.FactoryConfig()
	if err != nil {
		return nil, nil, err
	}

	var closers []func()
	closeFn = func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	opts := []ecwt.Option{ecwt.WithLogger(s.logger)}

	if s.config.Cache.Enabled {
		cache, err := ecwt.NewRistrettoCache(s.config.Cache.MaxEntries)
		if err != nil {
			return nil, nil, err
		}
		closers = append(closers, cache.Close)
		opts = append(opts, ecwt.WithDecodeCache(cache))
	}

	if s.config.Redis.Address != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     s.config.Redis.Address,
			Password: s.config.Redis.Password,
			DB:       s.config.Redis.DB,
		})
		closers = append(closers, func() { _ = client.Close() })

		store, err := ecwt.NewRedisRevocationStore(client)
		if err != nil {
			closeFn()
			return nil, nil, err
		}
		opts = append(opts, ecwt.WithRevocationStore(store))
	}

	factory, err = ecwt.NewFactory(config, opts...)
	if err != nil {
		closeFn()
		return nil, nil, err
	}

	s.logger.Debug("factory ready",
		"namespace", factory.Namespace(),
		"fields", factory.Fields(),
		"revocation", s.config.Redis.Address != "",
	)
	return factory, closeFn, nil
}

// requireRedis fails commands that need the revocation store.
func (s *state) requireRedis() error {
	if s.config.Redis.Address == "" {
		return cli.Exit("redis.address must be configured", 1)
	}
	return nil
}
