package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/workclock/workclock/internal/observer"
	"github.com/workclock/workclock/internal/timecalc"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Live timer dashboard",
	Args:  cobra.NoArgs,
	RunE:  runWatch,
}

var (
	watchTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#2F6F4F")).
			Padding(0, 1)

	watchRunningStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#04B575")).
				Bold(true)

	watchPausedStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#F7DC6F")).
				Bold(true)

	watchIdleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")).
			Bold(true)

	watchBoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#3C7363")).
			Padding(1, 2)

	watchFooterStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("#626262"))
)

type watchTickMsg time.Time

func watchTick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return watchTickMsg(t)
	})
}

type watchModel struct {
	app    *app
	view   observer.View
	today  int
	width  int
	height int
}

func (m watchModel) Init() tea.Cmd {
	return watchTick()
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
	case watchTickMsg:
		m = m.refresh()
		return m, watchTick()
	}
	return m, nil
}

// refresh re-attaches to pick up transitions made by other commands.
func (m watchModel) refresh() watchModel {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if view, err := m.app.observer.Attach(ctx); err == nil {
		m.view = view
	}
	if total, err := m.app.ledger.TotalMinutes(timecalc.DayString(time.Now())); err == nil {
		m.today = total
	}
	return m
}

func (m watchModel) View() string {
	title := watchTitleStyle.Render("workclock " + time.Now().Format("15:04:05"))

	var state string
	snap := m.view.Snapshot
	switch {
	case snap.Running:
		state = fmt.Sprintf("%s\n\nSince   %s\nElapsed %s",
			watchRunningStyle.Render("RUNNING"),
			snap.StartedAt().Format("15:04"),
			timecalc.FormatDurationHHMMSS(snap.ElapsedTime/1000))
	case snap.StartTime != 0 || snap.ElapsedTime > 0:
		state = fmt.Sprintf("%s\n\nElapsed %s",
			watchPausedStyle.Render("PAUSED"),
			timecalc.FormatDurationHHMMSS(snap.ElapsedTime/1000))
	default:
		state = watchIdleStyle.Render("IDLE")
	}

	box := watchBoxStyle.Render(state)
	today := fmt.Sprintf("Today: %s logged", timecalc.FormatMinutes(m.today))

	hint := "q to quit"
	if !m.view.Authoritative {
		hint = "daemon unreachable • " + hint
	}
	footer := watchFooterStyle.Render(hint)

	return lipgloss.JoinVertical(lipgloss.Left, title, box, today, footer)
}

func runWatch(cmd *cobra.Command, args []string) error {
	app, err := openApp()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer app.Close()

	view, err := app.observer.Attach(cmd.Context())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if !view.Settings.FeatureEnabled("timer") {
		fmt.Fprintln(os.Stderr, "The timer feature is disabled. Enable it with: workclock feature timer on")
		os.Exit(1)
	}

	m := watchModel{app: app, view: view}
	if total, err := app.ledger.TotalMinutes(timecalc.DayString(time.Now())); err == nil {
		m.today = total
	}

	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintln(os.Stderr, "Error running watch:", err)
		os.Exit(2)
	}
	return nil
}
