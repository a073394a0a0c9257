package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// NewAddCommand creates the add command.
func NewAddCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a todo (title can be multiple words)",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := openSession(cmd, rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer s.Close()

			todo, err := s.store.Add(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("added #%d %s", todo.ID, todo.Title))
			return nil
		},
	}
}

// NewRemoveCommand creates the rm command.
func NewRemoveCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("rm", args[0])
			if err != nil {
				return err
			}
			s, err := loaded(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if !contains(s.store.Snapshot(), id) {
				return unknown("rm", id)
			}
			if err := s.store.DeleteOne(cmd.Context(), id); err != nil {
				return err
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("removed #%d", id))
			return nil
		},
	}
}

// NewToggleCommand creates the toggle command.
func NewToggleCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "toggle <id>",
		Aliases: []string{"done"},
		Short:   "Flip a todo between active and completed",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("toggle", args[0])
			if err != nil {
				return err
			}
			s, err := loaded(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			if !contains(s.store.Snapshot(), id) {
				return unknown("toggle", id)
			}
			todo, err := s.store.Toggle(cmd.Context(), id)
			if err != nil {
				return err
			}
			state := "active"
			if todo.Completed {
				state = "completed"
			}
			ui.OK(cmd.OutOrStdout(), fmt.Sprintf("#%d is now %s", id, state))
			return nil
		},
	}
}

// NewClearCommand creates the clear command.
func NewClearCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Delete every completed todo",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := loaded(cmd, rootOpts)
			if err != nil {
				return err
			}
			defer s.Close()

			res, err := s.store.DeleteCompleted(cmd.Context())
			out := cmd.OutOrStdout()
			switch {
			case len(res.Deleted) == 0 && len(res.Failed) == 0:
				ui.OK(out, "nothing to clear")
			case len(res.Deleted) > 0:
				ui.OK(out, fmt.Sprintf("cleared %d completed", len(res.Deleted)))
			}
			if err != nil {
				s.logger.Warn("some todos were not deleted", "ids", res.Failed)
				return err
			}
			return nil
		},
	}
}

func parseID(op, arg string) (int, error) {
	id, err := strconv.Atoi(arg)
	if err != nil || id <= 0 {
		return 0, usageErr("%s: not a todo id: %s (run `todo ls` to see ids)", op, arg)
	}
	return id, nil
}

func contains(snap store.Snapshot, id int) bool {
	for _, t := range snap.Todos {
		if t.ID == id {
			return true
		}
	}
	return false
}

func unknown(op string, id int) error {
	return usageErr("%s #%d: %w (run `todo ls` to see ids)", op, id, store.ErrUnknownTodo)
}
