// Package tui is the interactive render layer. It reads registry snapshots
// through the coordinator, issues commands as background tea.Cmds, and
// receives outcome events through the sink adapter. It owns no task state
// of its own.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/ldi/tend/internal/coordinator"
	"github.com/ldi/tend/internal/filter"
	"github.com/ldi/tend/pkg/models"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Padding(0, 1)

	filterActiveStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("39"))

	filterDimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	cursorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	doneStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Strikethrough(true)

	pendingStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	statsStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Italic(true)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("251"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)

	confirmStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("196")).
			Padding(0, 2)
)

type mode int

const (
	modeNormal mode = iota
	modeAdd
	modeEdit
	modeConfirmClear
)

type clearScope int

const (
	clearCompleted clearScope = iota
	clearAll
)

type notificationMsg struct {
	n coordinator.Notification
}

type busyMsg struct {
	inflight int
}

type loadDoneMsg struct {
	err error
}

type opDoneMsg struct{}

// programSink routes coordinator events into the bubbletea loop.
type programSink struct {
	p *tea.Program
}

func (s *programSink) Notify(n coordinator.Notification) { s.p.Send(notificationMsg{n}) }
func (s *programSink) BusyChanged(inflight int)          { s.p.Send(busyMsg{inflight}) }

type Model struct {
	coord *coordinator.Coordinator

	tasks   []models.Task
	visible []models.Task
	counts  filter.Summary
	filter  models.Filter

	cursor     int
	mode       mode
	input      textinput.Model
	editID     string
	scope      clearScope
	clearCount int

	spin       spinner.Model
	inflight   int
	note       *coordinator.Notification
	loadFailed bool
	width      int
	quitting   bool
}

func NewModel(coord *coordinator.Coordinator) Model {
	ti := textinput.New()
	ti.Placeholder = "what needs doing?"
	ti.CharLimit = 200

	sp := spinner.New(spinner.WithSpinner(spinner.Dot))

	return Model{
		coord:  coord,
		filter: models.FilterAll,
		input:  ti,
		spin:   sp,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, m.loadCmd())
}

func (m Model) loadCmd() tea.Cmd {
	coord := m.coord
	return func() tea.Msg {
		return loadDoneMsg{err: coord.Load(context.Background())}
	}
}

// opCmd runs a mutation off the event loop. The coordinator reports the
// outcome through the sink; the returned message only triggers a refresh.
func opCmd(op func(ctx context.Context) error) tea.Cmd {
	return func() tea.Msg {
		_ = op(context.Background())
		return opDoneMsg{}
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.input.Width = msg.Width - 6
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case busyMsg:
		m.inflight = msg.inflight
		return m, nil

	case notificationMsg:
		n := msg.n
		m.note = &n
		m.refresh()
		return m, nil

	case loadDoneMsg:
		m.loadFailed = msg.err != nil
		m.refresh()
		return m, nil

	case opDoneMsg:
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch m.mode {
		case modeAdd, modeEdit:
			return m.updateInput(msg)
		case modeConfirmClear:
			return m.updateConfirm(msg)
		default:
			return m.updateNormal(msg)
		}
	}

	return m, nil
}

func (m Model) updateNormal(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	coord := m.coord

	switch msg.String() {
	case "ctrl+c", "q":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}

	case "down", "j":
		if m.cursor < len(m.visible)-1 {
			m.cursor++
		}

	case "a":
		m.mode = modeAdd
		m.input.SetValue("")
		m.input.Focus()
		return m, textinput.Blink

	case "e":
		if t, ok := m.selected(); ok {
			m.mode = modeEdit
			m.editID = t.ID
			m.input.SetValue(t.Title)
			m.input.CursorEnd()
			m.input.Focus()
			return m, textinput.Blink
		}

	case "enter", " ":
		if t, ok := m.selected(); ok {
			id := t.ID
			return m, opCmd(func(ctx context.Context) error {
				return coord.Toggle(ctx, id)
			})
		}

	case "d", "x":
		if t, ok := m.selected(); ok {
			id := t.ID
			return m, opCmd(func(ctx context.Context) error {
				return coord.Delete(ctx, id)
			})
		}

	case "f", "tab":
		m.filter = nextFilter(m.filter)
		m.refresh()

	case "C":
		if m.counts.Completed == 0 {
			m.note = &coordinator.Notification{Kind: coordinator.KindInfo, Text: "no completed tasks to clear"}
			return m, nil
		}
		m.mode = modeConfirmClear
		m.scope = clearCompleted
		m.clearCount = m.counts.Completed

	case "X":
		if m.counts.Total == 0 {
			m.note = &coordinator.Notification{Kind: coordinator.KindInfo, Text: "no tasks to clear"}
			return m, nil
		}
		m.mode = modeConfirmClear
		m.scope = clearAll
		m.clearCount = m.counts.Total

	case "r":
		return m, m.loadCmd()
	}

	return m, nil
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	coord := m.coord

	switch msg.String() {
	case "esc":
		m.mode = modeNormal
		m.input.Blur()
		return m, nil

	case "enter":
		value := m.input.Value()
		editing := m.mode == modeEdit
		editID := m.editID
		m.mode = modeNormal
		m.input.Blur()
		if editing {
			return m, opCmd(func(ctx context.Context) error {
				return coord.Edit(ctx, editID, value)
			})
		}
		return m, opCmd(func(ctx context.Context) error {
			_, err := coord.Add(ctx, value, "")
			return err
		})
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	coord := m.coord

	switch msg.String() {
	case "y", "Y":
		scope := m.scope
		m.mode = modeNormal
		return m, opCmd(func(ctx context.Context) error {
			if scope == clearAll {
				return coord.ClearAll(ctx)
			}
			return coord.ClearCompleted(ctx)
		})

	case "n", "N", "esc":
		m.mode = modeNormal
	}

	return m, nil
}

// refresh re-reads the registry. Visible list and counts come from the
// identical snapshot so they can never disagree on screen.
func (m *Model) refresh() {
	m.tasks = m.coord.Tasks()
	m.visible = filter.Visible(m.tasks, m.filter)
	m.counts = filter.Counts(m.tasks)
	if m.cursor >= len(m.visible) {
		m.cursor = len(m.visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (models.Task, bool) {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return models.Task{}, false
	}
	return m.visible[m.cursor], true
}

func nextFilter(f models.Filter) models.Filter {
	switch f {
	case models.FilterAll:
		return models.FilterActive
	case models.FilterActive:
		return models.FilterCompleted
	default:
		return models.FilterAll
	}
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var s strings.Builder

	header := titleStyle.Render("tend")
	if m.inflight > 0 {
		header += " " + m.spin.View() + statsStyle.Render("syncing…")
	}
	s.WriteString(header)
	s.WriteString("\n\n")

	s.WriteString(m.filterLine())
	s.WriteString("\n\n")

	if m.mode == modeConfirmClear {
		what := "completed tasks"
		if m.scope == clearAll {
			what = "tasks"
		}
		s.WriteString(confirmStyle.Render(fmt.Sprintf("Delete %d %s? (y/n)", m.clearCount, what)))
		s.WriteString("\n\n")
	}

	if len(m.visible) == 0 {
		if m.loadFailed {
			s.WriteString(errorStyle.Render("  could not reach the task store — press r to retry"))
		} else {
			s.WriteString(statsStyle.Render("  nothing here"))
		}
		s.WriteString("\n")
	}

	for i, t := range m.visible {
		s.WriteString(m.renderTask(i, t))
		s.WriteString("\n")
	}

	if m.mode == modeAdd || m.mode == modeEdit {
		s.WriteString("\n")
		s.WriteString("  " + m.input.View())
		s.WriteString("\n")
	}

	s.WriteString("\n")
	s.WriteString(statsStyle.Render(fmt.Sprintf("%d total · %d active · %d done",
		m.counts.Total, m.counts.Active, m.counts.Completed)))
	s.WriteString("\n")

	if m.note != nil {
		s.WriteString(m.renderNote(*m.note))
		s.WriteString("\n")
	}

	s.WriteString(helpStyle.Render("a add · e edit · enter toggle · d delete · f filter · C clear done · X clear all · r reload · q quit"))
	s.WriteString("\n")

	return s.String()
}

func (m Model) filterLine() string {
	parts := make([]string, 0, 3)
	for _, f := range []models.Filter{models.FilterAll, models.FilterActive, models.FilterCompleted} {
		label := string(f)
		if f == m.filter {
			parts = append(parts, filterActiveStyle.Render("["+label+"]"))
		} else {
			parts = append(parts, filterDimStyle.Render(" "+label+" "))
		}
	}
	return "  " + strings.Join(parts, " ")
}

func (m Model) renderTask(i int, t models.Task) string {
	cursor := "  "
	if i == m.cursor && m.mode != modeConfirmClear {
		cursor = cursorStyle.Render("> ")
	}

	box := "[ ]"
	if t.Completed {
		box = "[x]"
	}

	line := fmt.Sprintf("%s %s", box, t.Title)
	switch {
	case t.SyncState == models.SyncStatePendingCreate:
		line = pendingStyle.Render(line + " (saving…)")
	case t.Completed:
		line = doneStyle.Render(line)
	}

	return cursor + line
}

func (m Model) renderNote(n coordinator.Notification) string {
	switch n.Kind {
	case coordinator.KindError:
		return errorStyle.Render(n.Text)
	case coordinator.KindSuccess:
		return successStyle.Render(n.Text)
	default:
		return infoStyle.Render(n.Text)
	}
}

// Run starts the program and wires the coordinator's events into it.
func Run(coord *coordinator.Coordinator) error {
	m := NewModel(coord)
	p := tea.NewProgram(m, tea.WithAltScreen())
	coord.SetSink(&programSink{p: p})
	defer coord.SetSink(coordinator.NopSink{})

	_, err := p.Run()
	return err
}
