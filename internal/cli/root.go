// Package cli is the `todo` command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/notify"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// Exit codes.
const (
	ExitOK     = 0
	ExitRemote = 1
	ExitUsage  = 2
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	APIURL     string
	UserID     int
	LogLevel   string
	Theme      string
}

// exitError forces a specific exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, a ...any) error {
	return &exitError{code: ExitUsage, err: fmt.Errorf(format, a...)}
}

// NewRootCommand creates the root `todo` command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "todo",
		Short: "todo - a remote todo list",
		Long: `todo keeps a todo list on a remote REST API.

Run "todo tui" for the interactive list, or use the one-shot
subcommands below. "todo serve" starts a local API for development.`,
		Example: `  todo add "Buy milk"
  todo ls --filter active
  todo toggle 42
  todo clear`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			ui.SetTheme(opts.Theme)
		},
	}

	// Global flags
	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.ConfigPath, "config", "", "config file (default ~/.tada/config.toml)")
	pf.StringVar(&opts.APIURL, "api-url", "", "API base URL")
	pf.IntVar(&opts.UserID, "user-id", 0, "user whose todos to manage")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")
	pf.StringVar(&opts.Theme, "theme", "classic", "color theme (classic|neon|mono)")

	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewRemoveCommand(opts))
	cmd.AddCommand(NewToggleCommand(opts))
	cmd.AddCommand(NewClearCommand(opts))
	cmd.AddCommand(NewTUICommand(opts))
	cmd.AddCommand(NewServeCommand(opts))

	return cmd
}

// Run executes the command line against the process streams.
func Run(args []string) int {
	return Execute(context.Background(), args, os.Stdout, os.Stderr)
}

// Execute runs args and returns the exit code. Failures are reported on
// stderr: store failures by their notification message, everything else
// verbatim.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	var op *store.OpError
	if errors.As(err, &op) {
		ui.Fail(stderr, op.Kind.Message())
	} else {
		ui.Fail(stderr, err.Error())
	}
	return exitCode(err)
}

func exitCode(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch store.KindOf(err) {
	case notify.None, notify.TitleError:
		return ExitUsage
	default:
		return ExitRemote
	}
}
