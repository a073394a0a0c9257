package cli

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/api"
	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/logging"
	"github.com/Makepad-fr/tada/internal/store"
)

// loadConfig layers the global flags the user set over config.Load.
func loadConfig(cmd *cobra.Command, opts *RootOptions) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("api-url") {
		cfg.APIURL = opts.APIURL
	}
	if flags.Changed("user-id") {
		cfg.UserID = opts.UserID
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = opts.LogLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is what a client command needs: config, logger and a store.
type session struct {
	cfg    *config.Config
	logger *log.Logger
	store  *store.Store
	closer io.Closer
}

// openSession builds a session. Logs go to logTo unless a log file is
// configured.
func openSession(cmd *cobra.Command, opts *RootOptions, logTo io.Writer) (*session, error) {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return nil, err
	}
	logger, closer, err := openLogger(cfg, logTo)
	if err != nil {
		return nil, err
	}
	client, err := api.NewHTTPClient(cfg.APIURL,
		api.WithTimeout(cfg.Timeout()),
		api.WithLogger(logger),
	)
	if err != nil {
		closer.Close()
		return nil, err
	}
	st := store.New(client, cfg.UserID, store.WithLogger(logger))
	logger.Debug("session", "api", cfg.APIURL, "user", cfg.UserID, "config", cfg.Path)
	return &session{cfg: cfg, logger: logger, store: st, closer: closer}, nil
}

func openLogger(cfg *config.Config, fallback io.Writer) (*log.Logger, io.Closer, error) {
	return logging.Open(logging.Options{
		Level:  cfg.LogLevel,
		Format: cfg.LogFormat,
		File:   cfg.LogFile,
		Prefix: "todo",
	}, fallback)
}

func (s *session) Close() error {
	s.store.Close()
	return s.closer.Close()
}

// loaded opens a session and loads the list.
func loaded(cmd *cobra.Command, opts *RootOptions) (*session, error) {
	s, err := openSession(cmd, opts, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	if err := s.store.Load(cmd.Context()); err != nil {
		return nil, errors.Join(err, s.Close())
	}
	return s, nil
}
