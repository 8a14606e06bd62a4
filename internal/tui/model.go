package tui

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/1broseidon/xlconductor/internal/platform"
	"github.com/1broseidon/xlconductor/internal/report"
	"github.com/1broseidon/xlconductor/internal/session"
)

type tickMsg time.Time

type snapshotMsg struct {
	snap *session.Snapshot
	err  error
}

type activatedMsg struct {
	pid platform.ProcessID
	err error
}

// model is the root bubbletea model.
type model struct {
	opts Options

	table  table.Model
	snap   *session.Snapshot
	err    error
	status string

	// Confirmation dialog shown before activating.
	confirm    *huh.Form
	confirmed  *bool
	pendingPID platform.ProcessID

	width  int
	height int
}

var columns = []table.Column{
	{Title: "PID", Width: 8},
	{Title: "Window", Width: 12},
	{Title: "Rank", Width: 6},
	{Title: "Version", Width: 24},
	{Title: "Flags", Width: 18},
}

func newModel(opts Options) model {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(10),
	)
	styles := table.DefaultStyles()
	styles.Header = styles.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("62")).
		BorderBottom(true).
		Bold(true)
	styles.Selected = styles.Selected.
		Foreground(lipgloss.Color("15")).
		Background(lipgloss.Color("62")).
		Bold(false)
	t.SetStyles(styles)

	return model{opts: opts, table: t}
}

func (m model) refresh() tea.Cmd {
	query := m.opts.Query
	return func() tea.Msg {
		snap, err := query()
		return snapshotMsg{snap: snap, err: err}
	}
}

func (m model) tick() tea.Cmd {
	return tea.Tick(m.opts.Interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) activate(pid platform.ProcessID) tea.Cmd {
	activate := m.opts.Activate
	return func() tea.Msg {
		return activatedMsg{pid: pid, err: activate(pid)}
	}
}

// Init implements tea.Model.
func (m model) Init() tea.Cmd {
	return tea.Batch(m.refresh(), m.tick())
}

// Update implements tea.Model.
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	// The confirmation dialog captures input while open; refresh traffic
	// still reaches the table below.
	if m.confirm != nil && !isBackground(msg) {
		if km, ok := msg.(tea.KeyMsg); ok {
			switch km.String() {
			case "ctrl+c":
				return m, tea.Quit
			case "esc":
				m.confirm = nil
				m.status = "cancelled"
				return m, nil
			}
		}
		form, cmd := m.confirm.Update(msg)
		if f, ok := form.(*huh.Form); ok {
			m.confirm = f
		}
		if m.confirm.State != huh.StateNormal {
			return m.closeConfirm()
		}
		return m, cmd
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "r":
			m.status = "refreshing"
			return m, m.refresh()
		case "enter", "a":
			return m.openConfirm()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		h := m.height - 6
		if h < 3 {
			h = 3
		}
		m.table.SetHeight(h)
		return m, nil

	case tickMsg:
		return m, tea.Batch(m.refresh(), m.tick())

	case snapshotMsg:
		m.err = msg.err
		if msg.err == nil {
			m.snap = msg.snap
			m.table.SetRows(rows(msg.snap))
			if m.status == "refreshing" {
				m.status = ""
			}
		}
		return m, nil

	case activatedMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("activate %d failed: %v", msg.pid, msg.err)
			return m, nil
		}
		m.status = fmt.Sprintf("activated %d", msg.pid)
		return m, m.refresh()
	}

	var cmd tea.Cmd
	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

func isBackground(msg tea.Msg) bool {
	switch msg.(type) {
	case tickMsg, snapshotMsg, activatedMsg, tea.WindowSizeMsg:
		return true
	}
	return false
}

func (m model) selectedPID() (platform.ProcessID, bool) {
	row := m.table.SelectedRow()
	if len(row) == 0 {
		return 0, false
	}
	pid, err := strconv.ParseUint(row[0], 10, 32)
	if err != nil {
		return 0, false
	}
	return platform.ProcessID(pid), true
}

func (m model) openConfirm() (tea.Model, tea.Cmd) {
	pid, ok := m.selectedPID()
	if !ok {
		return m, nil
	}
	m.pendingPID = pid
	m.confirmed = new(bool)
	*m.confirmed = true
	m.confirm = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Bring instance %d to the front?", pid)).
				Affirmative("Activate").
				Negative("Cancel").
				Value(m.confirmed),
		),
	).WithShowHelp(false)
	return m, m.confirm.Init()
}

func (m model) closeConfirm() (tea.Model, tea.Cmd) {
	form, pid := m.confirm, m.pendingPID
	m.confirm = nil
	if form.State == huh.StateCompleted && m.confirmed != nil && *m.confirmed {
		m.status = fmt.Sprintf("activating %d", pid)
		return m, m.activate(pid)
	}
	m.status = "cancelled"
	return m, nil
}

func rows(snap *session.Snapshot) []table.Row {
	out := make([]table.Row, 0, len(snap.Instances))
	for _, in := range snap.Instances {
		rank := "-"
		if in.Rank != nil {
			rank = strconv.Itoa(*in.Rank)
		}
		var flags []string
		if in.TopMost {
			flags = append(flags, "topmost")
		}
		if in.Primary {
			flags = append(flags, "primary")
		}
		out = append(out, table.Row{
			strconv.FormatUint(uint64(in.PID), 10),
			report.HandleString(in.Window),
			rank,
			in.VersionName,
			strings.Join(flags, " "),
		})
	}
	return out
}

var (
	statusBarStyle = lipgloss.NewStyle().Background(lipgloss.Color("235")).Foreground(lipgloss.Color("250")).Padding(0, 1)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Padding(0, 1)
	errorStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Padding(0, 1)
	noteStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Padding(0, 1)
	dialogStyle    = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("62")).Padding(0, 1)
)

func (m model) statusLine() string {
	if m.snap == nil {
		return "loading…"
	}
	parts := []string{
		fmt.Sprintf("session %d", m.snap.SessionID),
		m.snap.Executable,
		fmt.Sprintf("%d instances", len(m.snap.Instances)),
	}
	if n := len(m.snap.Unreachable); n > 0 {
		parts = append(parts, fmt.Sprintf("%d unreachable", n))
	}
	return strings.Join(parts, "  ")
}

// View implements tea.Model.
func (m model) View() string {
	width := m.width
	if width <= 0 {
		width = 80
	}

	sections := []string{
		statusBarStyle.Width(width).Render(m.statusLine()),
		m.table.View(),
	}
	if m.confirm != nil {
		sections = append(sections, dialogStyle.Render(m.confirm.View()))
	}
	if m.err != nil {
		sections = append(sections, errorStyle.Render("error: "+m.err.Error()))
	}
	if m.status != "" {
		sections = append(sections, noteStyle.Render(m.status))
	}
	sections = append(sections, helpStyle.Width(width).Render("↑/↓: select  enter: activate  r: refresh  q: quit"))
	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}
