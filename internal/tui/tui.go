// Package tui provides a Bubble Tea view of the live timers. It consumes the
// tracker's query API only; all tracking state stays inside the tracker.
package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ── Styles ────────────

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 2)

	sectionHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("33")).
			Bold(true)

	timeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("178"))

	idleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	hintStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))
)

// Queries is the outbound query API the view renders from.
type Queries interface {
	TrackedProjects() []string
	IsTracking(id string) bool
	ActiveProjectCount() int
	ProjectTimes(id string) (today, total time.Duration)
	GlobalTimes() (today, week, month time.Duration)
}

type tickMsg time.Time

type model struct {
	queries Queries
	spin    spinner.Model
}

// Run displays the timer view until the user quits.
func Run(q Queries) error {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	p := tea.NewProgram(model{queries: q, spin: sp})
	_, err := p.Run()
	return err
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.spin.Tick, tick())
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}
		return m, nil

	case tickMsg:
		return m, tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) View() string {
	// ── Row 1: title ──────────────────────────────────────────────────────────
	title := titleStyle.Render("tally")

	// ── Row 2: global totals ──────────────────────────────────────────────────
	today, week, month := m.queries.GlobalTimes()
	globals := sectionHeader.Render("All projects") + "\n" +
		fmt.Sprintf("  %s %s   %s %s   %s %s",
			labelStyle.Render("today"), timeStyle.Render(clock(today)),
			labelStyle.Render("week"), timeStyle.Render(clock(week)),
			labelStyle.Render("month"), timeStyle.Render(clock(month)))

	// ── Row 3…N-1: per-project timers ─────────────────────────────────────────
	projects := m.queries.TrackedProjects()
	rows := []string{
		sectionHeader.Render(fmt.Sprintf("Projects (%d active)", m.queries.ActiveProjectCount())),
	}
	if len(projects) == 0 {
		rows = append(rows, idleStyle.Render("  nothing tracked yet"))
	}
	for _, id := range projects {
		pToday, pTotal := m.queries.ProjectTimes(id)
		marker := idleStyle.Render("idle ")
		if m.queries.IsTracking(id) {
			marker = m.spin.View()
		}
		rows = append(rows, fmt.Sprintf("  %s %s  %s today, %s total",
			marker, labelStyle.Render(id),
			timeStyle.Render(clock(pToday)), timeStyle.Render(clock(pTotal))))
	}

	// ── Row N: hint bar ───────────────────────────────────────────────────────
	hint := hintStyle.Render("q to quit")

	return lipgloss.JoinVertical(lipgloss.Left,
		title, "", globals, "", strings.Join(rows, "\n"), "", hint) + "\n"
}

// clock formats a duration as h:mm:ss.
func clock(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%d:%02d:%02d", h, m, s)
}
