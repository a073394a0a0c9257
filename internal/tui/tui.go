// Package tui is the interactive todo list. It renders store snapshots and
// turns key presses into store operations run as Bubble Tea commands.
package tui

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/Makepad-fr/tada/internal/model"
	"github.com/Makepad-fr/tada/internal/store"
	"github.com/Makepad-fr/tada/internal/ui"
)

// listItem adapts a store entry to bubbles/list.Item.
type listItem struct {
	entry model.Entry
	busy  bool
}

func (i listItem) FilterValue() string { return i.entry.EntryTitle() }

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	t := ui.Current()

	var line string
	switch e := it.entry.(type) {
	case model.PendingTodo:
		line = fmt.Sprintf("%s %s %s", t.Pending.Render("⋯"), e.Title, t.Muted.Render("(saving…)"))
	case model.Todo:
		symbol, box, title := t.BoxUnchecked, t.Muted.Render(t.BoxUnchecked), e.Title
		if e.Completed {
			symbol = t.BoxChecked
			box = t.Success.Render(t.BoxChecked)
			title = t.Done.Render(title)
		}
		line = fmt.Sprintf("%s %s", box, title)
		if it.busy {
			line = t.Muted.Render(fmt.Sprintf("%s %s …", symbol, e.Title))
		}
	}

	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render("> ")
	}
	fmt.Fprintln(w, prefix+line)
}

type keyMap struct {
	Add, Toggle, Delete, Clear, Filter, Dismiss, Reload, Quit key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Add:     key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
		Toggle:  key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
		Delete:  key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
		Clear:   key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear completed")),
		Filter:  key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
		Dismiss: key.NewBinding(key.WithKeys("x"), key.WithHelp("x", "dismiss error")),
		Reload:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Quit:    key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) bindings() []key.Binding {
	return []key.Binding{k.Add, k.Toggle, k.Delete, k.Clear, k.Filter, k.Dismiss, k.Reload}
}

type (
	changedMsg struct{}
	addDoneMsg struct{ err error }
	opDoneMsg  struct{ err error }
)

// Model is the Bubble Tea model.
type Model struct {
	ctx   context.Context
	store *store.Store
	keys  keyMap

	list   list.Model
	ti     textinput.Model
	adding bool
	saving bool // an add is in flight; the input is locked
	filter model.FilterStatus
	snap   store.Snapshot

	width, height int
}

// New returns a model bound to st. Init triggers the first load.
func New(ctx context.Context, st *store.Store) Model {
	keys := newKeyMap()

	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowTitle(false)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(false)
	l.Styles.HelpStyle = ui.Current().Help
	l.Styles.PaginationStyle = ui.Current().Help
	l.AdditionalShortHelpKeys = keys.bindings
	l.AdditionalFullHelpKeys = keys.bindings

	ti := textinput.New()
	ti.Prompt = "> "
	ti.Placeholder = "What needs to be done?"
	ti.CharLimit = 200

	m := Model{
		ctx:    ctx,
		store:  st,
		keys:   keys,
		list:   l,
		ti:     ti,
		width:  80,
		height: 24,
	}
	m.refresh()
	return m
}

// Run starts the program and blocks until the user quits.
func Run(ctx context.Context, st *store.Store) error {
	p := tea.NewProgram(New(ctx, st), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.run(m.store.Load), m.waitForChange())
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.store.Changes()
	ctx := m.ctx
	return func() tea.Msg {
		select {
		case <-ch:
			return changedMsg{}
		case <-ctx.Done():
			return nil
		}
	}
}

func (m Model) run(op func(context.Context) error) tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg { return opDoneMsg{err: op(ctx)} }
}

func (m Model) add(title string) tea.Cmd {
	ctx, st := m.ctx, m.store
	return func() tea.Msg {
		_, err := st.Add(ctx, title)
		return addDoneMsg{err: err}
	}
}

func (m *Model) refresh() {
	m.snap = m.store.Snapshot()
	entries := m.snap.Visible(m.filter)
	items := make([]list.Item, 0, len(entries))
	for _, e := range entries {
		busy := false
		if t, ok := e.(model.Todo); ok {
			busy = m.snap.IsBusy(t.ID)
		}
		items = append(items, listItem{entry: e, busy: busy})
	}
	m.list.SetItems(items)
}

// selectedTodo returns the highlighted confirmed todo, if it is idle.
func (m Model) selectedTodo() (model.Todo, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	if !ok || it.busy {
		return model.Todo{}, false
	}
	t, ok := it.entry.(model.Todo)
	return t, ok
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil
	case changedMsg:
		m.refresh()
		return m, m.waitForChange()
	case addDoneMsg:
		m.saving = false
		if msg.err == nil {
			m.ti.SetValue("")
		}
		return m, nil
	case opDoneMsg:
		return m, nil
	}

	// add mode
	if m.adding {
		var cmd tea.Cmd
		if x, ok := msg.(tea.KeyMsg); ok {
			switch x.String() {
			case "enter":
				if m.saving {
					return m, nil
				}
				m.saving = true
				return m, m.add(m.ti.Value())
			case "esc":
				m.adding = false
				m.ti.SetValue("")
				m.ti.Blur()
				return m, nil
			}
			if m.saving {
				return m, nil
			}
		}
		m.ti, cmd = m.ti.Update(msg)
		return m, cmd
	}

	if x, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(x, m.keys.Quit):
			return m, tea.Quit
		case key.Matches(x, m.keys.Add):
			m.adding = true
			m.ti.SetValue("")
			m.ti.Focus()
			return m, nil
		case key.Matches(x, m.keys.Toggle):
			if t, ok := m.selectedTodo(); ok {
				return m, m.run(func(ctx context.Context) error {
					_, err := m.store.Toggle(ctx, t.ID)
					return err
				})
			}
			return m, nil
		case key.Matches(x, m.keys.Delete):
			if t, ok := m.selectedTodo(); ok {
				return m, m.run(func(ctx context.Context) error { return m.store.DeleteOne(ctx, t.ID) })
			}
			return m, nil
		case key.Matches(x, m.keys.Clear):
			if m.snap.CompletedCount() == 0 {
				return m, nil
			}
			return m, m.run(func(ctx context.Context) error {
				_, err := m.store.DeleteCompleted(ctx)
				return err
			})
		case key.Matches(x, m.keys.Filter):
			m.filter = m.filter.Next()
			m.refresh()
			m.list.Select(0)
			return m, nil
		case key.Matches(x, m.keys.Dismiss):
			m.store.Dismiss()
			return m, nil
		case key.Matches(x, m.keys.Reload):
			return m, m.run(m.store.Load)
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	t := ui.Current()
	active, completed := m.snap.ActiveCount(), m.snap.CompletedCount()

	toggleAll := t.Muted.Render("❯")
	if m.snap.AllCompleted() {
		toggleAll = t.Success.Render("❯")
	}
	header := fmt.Sprintf("%s %s   %s %d  %s %d  %s %d",
		toggleAll,
		t.Title.Render("Todos"),
		t.Success.Render(t.SymDone), completed,
		t.Pending.Render(t.SymActive), active,
		t.Accent.Render("Total"), len(m.snap.Todos),
	)

	var b strings.Builder
	b.WriteString(header + "\n")
	if n := m.snap.Notification; n.Message() != "" {
		b.WriteString(t.Error.Render(t.SymFail+" "+n.Message()) + t.Muted.Render("  (x to dismiss)") + "\n")
	}
	b.WriteString("\n")

	listHeight := m.height - 8
	if m.adding {
		listHeight -= 3
	}
	if listHeight < 3 {
		listHeight = 3
	}
	m.list.SetSize(m.width-4, listHeight)

	switch {
	case !m.snap.Loaded && !m.snap.LoadFailed && len(m.snap.Todos) == 0 && len(m.snap.Pending) == 0:
		b.WriteString(t.Muted.Render("loading…") + "\n")
	case len(m.list.Items()) == 0 && m.snap.LoadFailed:
		b.WriteString(t.Muted.Render("no items · r to reload") + "\n")
	case len(m.list.Items()) == 0:
		b.WriteString(t.Muted.Render("no items") + "\n")
	default:
		b.WriteString(m.list.View() + "\n")
	}

	if m.adding {
		label := "Add new item"
		if m.saving {
			label += t.Muted.Render(" (saving…)")
		}
		b.WriteString(ui.Box(label+"\n"+m.ti.View()) + "\n")
	}

	if len(m.snap.Todos) > 0 {
		footer := fmt.Sprintf("%d items left · filter: %s", active, t.Accent.Render(m.filter.String()))
		if completed > 0 {
			footer += t.Muted.Render(" · C clear completed")
		}
		b.WriteString(t.Help.Render(footer))
	}
	return ui.Box(b.String())
}
