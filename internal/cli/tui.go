package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/tui"
)

// NewTUICommand creates the tui command.
func NewTUICommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "tui",
		Short: "Open the interactive list",
		Long: `Open the interactive list.

Keys: a add, space toggle, d delete, C clear completed, f filter,
x dismiss error, r reload, q quit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			// the terminal belongs to the UI; logs only go to a configured file
			s, err := openSession(cmd, rootOpts, io.Discard)
			if err != nil {
				return err
			}
			defer s.Close()

			if err := tui.Run(cmd.Context(), s.store); err != nil {
				return &exitError{code: ExitRemote, err: err}
			}
			return nil
		},
	}
}
