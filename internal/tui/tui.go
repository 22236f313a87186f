// Package tui provides a live terminal dashboard for the daily prayer
// schedule: today's six times, the next upcoming prayer, and a countdown
// that refreshes once per minute.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"prayat/internal/prayer"
	"prayat/schedule"
)

// Resolver is the resolution surface the dashboard needs.
type Resolver interface {
	Resolve(ctx context.Context, date string) (*schedule.Schedule, error)
}

// Message types
type resolvedMsg struct {
	sched *schedule.Schedule
}

type resolveErrMsg struct {
	err error
}

// tickMsg fires once per minute to recompute the countdown. It never
// triggers a resolve; the schedule itself only changes on explicit
// refresh or date change.
type tickMsg time.Time

// Model represents the dashboard state
type Model struct {
	resolver Resolver
	ctx      context.Context
	now      func() time.Time

	// Data
	date      string
	sched     *schedule.Schedule
	next      *prayer.Occurrence
	remaining string

	loading bool
	err     error
	spinner spinner.Model

	// UI dimensions
	width  int
	height int

	// Styles
	titleStyle     lipgloss.Style
	tableStyle     lipgloss.Style
	nextStyle      lipgloss.Style
	passedStyle    lipgloss.Style
	countdownStyle lipgloss.Style
	errStyle       lipgloss.Style
	helpStyle      lipgloss.Style
	footerStyle    lipgloss.Style
}

// New creates a dashboard model showing today's schedule.
func New(r Resolver) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := &Model{
		resolver: r,
		ctx:      context.Background(),
		now:      time.Now,
		loading:  true,
		spinner:  sp,
		titleStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		tableStyle: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1),
		nextStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212")),
		passedStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")),
		countdownStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("114")),
		errStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")),
		helpStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")),
		footerStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")),
	}
	m.date = schedule.DateKey(m.now())
	return m
}

// SetClock overrides the wall clock, for testing.
func (m *Model) SetClock(now func() time.Time) {
	m.now = now
	m.date = schedule.DateKey(now())
}

// Init starts the initial resolve and the minute ticker.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.resolveCmd(m.date), m.tickCmd(), m.spinner.Tick)
}

// resolveCmd runs a full resolution for the date.
func (m *Model) resolveCmd(date string) tea.Cmd {
	return func() tea.Msg {
		s, err := m.resolver.Resolve(m.ctx, date)
		if err != nil {
			return resolveErrMsg{err: err}
		}
		return resolvedMsg{sched: s}
	}
}

// tickCmd schedules the next minute tick. The ticker dies with the
// program; in-flight resolves are allowed to finish and write to cache
// even if their result is no longer shown.
func (m *Model) tickCmd() tea.Cmd {
	return tea.Tick(time.Minute, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case resolvedMsg:
		m.loading = false
		m.err = nil
		m.sched = msg.sched
		m.recompute()
		return m, nil

	case resolveErrMsg:
		m.loading = false
		m.err = msg.err
		return m, nil

	case tickMsg:
		// Cheap local recompute only; no network or cache traffic.
		m.recompute()
		return m, m.tickCmd()

	case spinner.TickMsg:
		if !m.loading {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	return m, nil
}

// handleKey processes key presses. Refresh and date changes always re-run
// the full resolve path immediately, independent of the minute ticker.
func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c", "esc":
		return m, tea.Quit

	case "r":
		m.loading = true
		return m, tea.Batch(m.resolveCmd(m.date), m.spinner.Tick)

	case "left", "h":
		return m.changeDate(-1)

	case "right", "l":
		return m.changeDate(1)

	case "t":
		m.date = schedule.DateKey(m.now())
		m.loading = true
		return m, tea.Batch(m.resolveCmd(m.date), m.spinner.Tick)
	}

	return m, nil
}

// changeDate moves the displayed date by the given number of days and
// resolves it.
func (m *Model) changeDate(days int) (tea.Model, tea.Cmd) {
	day, err := time.Parse(schedule.DateLayout, m.date)
	if err != nil {
		day = m.now()
	}
	m.date = schedule.DateKey(day.AddDate(0, 0, days))
	m.loading = true
	return m, tea.Batch(m.resolveCmd(m.date), m.spinner.Tick)
}

// recompute refreshes the derived next-prayer view. The next occurrence is
// only meaningful when the displayed schedule is today's.
func (m *Model) recompute() {
	if m.sched == nil || m.sched.Date != schedule.DateKey(m.now()) {
		m.next = nil
		m.remaining = ""
		return
	}
	m.next = prayer.Next(m.sched, m.now())
	if m.next != nil {
		m.remaining = prayer.Remaining(m.now(), m.next.Time)
	} else {
		m.remaining = ""
	}
}

// View renders the dashboard
func (m *Model) View() string {
	var b strings.Builder

	b.WriteString(m.titleStyle.Render("Prayer times — " + m.date))
	b.WriteString("\n\n")

	switch {
	case m.loading:
		b.WriteString(m.spinner.View() + " Resolving...\n")

	case m.err != nil:
		b.WriteString(m.errStyle.Render(m.err.Error()))
		b.WriteString("\n" + m.helpStyle.Render("press r to retry") + "\n")

	case m.sched != nil:
		b.WriteString(m.renderSchedule())
	}

	b.WriteString("\n")
	b.WriteString(m.helpStyle.Render("r refresh · ←/→ change day · t today · q quit"))
	b.WriteString("\n")
	return b.String()
}

// renderSchedule renders the six-entry table plus the countdown line.
func (m *Model) renderSchedule() string {
	var rows []string
	for _, e := range m.sched.Entries() {
		line := fmt.Sprintf("%-8s %9s", e.Name, prayer.Format12h(e.Time))
		switch {
		case m.next != nil && !m.next.NextDay && e.Name == m.next.Name:
			line = m.nextStyle.Render("▸ " + line)
		default:
			line = m.passedStyle.Render("  " + line)
		}
		rows = append(rows, line)
	}

	out := m.tableStyle.Render(strings.Join(rows, "\n")) + "\n"

	if m.next != nil {
		label := m.next.Name
		if m.next.NextDay {
			label += " (tomorrow)"
		}
		out += m.countdownStyle.Render(
			fmt.Sprintf("Next: %s at %s — in %s", label, prayer.Format12h(m.next.Time), m.remaining))
		out += "\n"
	}

	if m.sched.HijriDate != "" {
		out += m.footerStyle.Render("Hijri: " + m.sched.HijriDate + "  ")
	}
	out += m.footerStyle.Render("source: " + string(m.sched.Source))
	out += "\n"
	return out
}

// Run starts the dashboard in the alternate screen.
func Run(r Resolver) error {
	p := tea.NewProgram(New(r), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
