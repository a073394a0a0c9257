package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/config"
	"github.com/Makepad-fr/tada/internal/devserver"
	"github.com/Makepad-fr/tada/internal/ui"
)

type serveOptions struct {
	Addr     string
	DB       string
	FailRate float64
	DelayMS  int
}

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run a local todo API for development",
		Long: `Run a local implementation of the todo API backed by SQLite.

Point the client at it with --api-url http://<addr>. --fail-rate makes a
share of requests fail so error notifications can be tried out.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Addr, "addr", config.DefaultServeAddr, "listen address")
	cmd.Flags().StringVar(&opts.DB, "db", devserver.MemoryDSN, "SQLite database file")
	cmd.Flags().Float64Var(&opts.FailRate, "fail-rate", 0, "probability in [0, 1] that a request fails with 500")
	cmd.Flags().IntVar(&opts.DelayMS, "delay", 0, "artificial latency per request in milliseconds")
	return cmd
}

func runServe(cmd *cobra.Command, rootOpts *RootOptions, opts *serveOptions) error {
	cfg, err := loadConfig(cmd, rootOpts)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("addr") {
		cfg.Serve.Addr = opts.Addr
	}
	if flags.Changed("db") {
		cfg.Serve.DB = opts.DB
	}
	if flags.Changed("fail-rate") {
		cfg.Serve.FailRate = opts.FailRate
	}
	if flags.Changed("delay") {
		cfg.Serve.DelayMS = opts.DelayMS
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger, closer, err := openLogger(cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer closer.Close()

	repo, err := devserver.OpenRepo(cfg.Serve.DB)
	if err != nil {
		return &exitError{code: ExitRemote, err: err}
	}
	defer repo.Close()

	srv := devserver.New(repo,
		devserver.WithLogger(logger),
		devserver.WithFault(devserver.FailRate(cfg.Serve.FailRate)),
		devserver.WithDelay(time.Duration(cfg.Serve.DelayMS)*time.Millisecond),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ui.OK(cmd.OutOrStdout(), fmt.Sprintf("serving todos on http://%s (db %s)", cfg.Serve.Addr, cfg.Serve.DB))
	if err := srv.ListenAndServe(ctx, cfg.Serve.Addr); err != nil && ctx.Err() == nil {
		return &exitError{code: ExitRemote, err: fmt.Errorf("serve: %w", err)}
	}
	if ctx.Err() == context.Canceled {
		logger.Info("shut down")
	}
	return nil
}
