package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Makepad-fr/tada/internal/filter"
	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/ui"
)

// ValidFormats defines the allowed output formats for ls.
var ValidFormats = []string{"text", "json", "yaml"}

type listOptions struct {
	Filter string
	Group  bool
	Format string
}

// NewListCommand creates the ls command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &listOptions{}

	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List todos",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(cmd, rootOpts, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Filter, "filter", "all", "show all, active or completed todos")
	cmd.Flags().BoolVar(&opts.Group, "group", false, "group output by active/completed")
	cmd.Flags().StringVar(&opts.Format, "format", "text", "output format (text|json|yaml)")
	return cmd
}

func runList(cmd *cobra.Command, rootOpts *RootOptions, opts *listOptions) error {
	status, err := model.ParseFilterStatus(opts.Filter)
	if err != nil {
		return usageErr("ls: %v", err)
	}
	if !isValidFormat(opts.Format) {
		return usageErr("invalid format %q: must be one of %v", opts.Format, ValidFormats)
	}

	s, err := loaded(cmd, rootOpts)
	if err != nil {
		return err
	}
	defer s.Close()

	all := s.store.Snapshot().Todos
	todos := filter.Apply(all, status)
	if todos == nil {
		todos = []model.Todo{}
	}

	out := cmd.OutOrStdout()
	switch opts.Format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(todos)
	case "yaml":
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(todos); err != nil {
			return err
		}
		return enc.Close()
	}
	renderList(out, all, todos, status, opts.Group)
	return nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// -------------- rendering helpers --------------

// renderList draws the panel. Counts and progress cover every todo; the rows
// are the filtered ones.
func renderList(w io.Writer, all, todos []model.Todo, status model.FilterStatus, group bool) {
	t := ui.Current()
	active, completed := filter.Count(all)
	header := fmt.Sprintf("%s  %s %d  %s %d  %s %d",
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), completed,
		t.Pending.Render(t.SymActive), active,
		t.Accent.Render("Total"), len(all),
	)

	var lines []string
	lines = append(lines, header)
	lines = append(lines, t.Muted.Render(ui.ProgressBar(completed, len(all), 28)))
	lines = append(lines, "")

	if group {
		lines = append(lines, groupLines(todos)...)
	} else {
		lines = append(lines, flatLines(todos)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Muted.Render(fmt.Sprintf("%d items left · filter: %s", active, status)))
	if len(all) == 0 {
		lines = append(lines, t.Muted.Render("Tip: add with `todo add \"Buy milk\"`"))
	}
	ui.Panel(w, lines)
}

func flatLines(todos []model.Todo) []string {
	t := ui.Current()
	if len(todos) == 0 {
		return []string{t.Muted.Render("no items")}
	}
	out := make([]string, 0, len(todos))
	for _, it := range todos {
		id := t.Muted.Render(fmt.Sprintf("%5s", fmt.Sprintf("#%d", it.ID)))
		box := t.Muted.Render(t.BoxUnchecked)
		title := it.Title
		if len([]rune(title)) > 80 {
			title = string([]rune(title)[:77]) + "..."
		}
		if it.Completed {
			box = t.Success.Render(t.BoxChecked)
			title = t.Done.Render(title)
		}
		out = append(out, fmt.Sprintf("%s %s %s", id, box, title))
	}
	return out
}

func groupLines(todos []model.Todo) []string {
	t := ui.Current()
	var active, done []model.Todo
	for _, it := range todos {
		if it.Completed {
			done = append(done, it)
		} else {
			active = append(active, it)
		}
	}
	var lines []string
	lines = append(lines, t.Accent.Render("Active"))
	if len(active) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(active)...)
	}
	lines = append(lines, "")
	lines = append(lines, t.Accent.Render("Completed"))
	if len(done) == 0 {
		lines = append(lines, t.Muted.Render("(none)"))
	} else {
		lines = append(lines, flatLines(done)...)
	}
	return lines
}
