// Package tui renders a pipeline run live in the terminal. It follows The
// Elm Architecture via bubbletea: the App model holds all state, Update
// folds messages into it, and View renders it to a string.
package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"oracle/pkg/client"
	"oracle/pkg/reconcile"
)

var (
	titleStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	labelStyleDone = lipgloss.NewStyle().Foreground(lipgloss.Color("#4CAF50")).Bold(true)
	labelStyleErr  = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	labelStyleRun  = lipgloss.NewStyle().Foreground(lipgloss.Color("#5B8DEF")).Bold(true)
	labelStyleIdle = lipgloss.NewStyle().Foreground(lipgloss.Color("#999999"))
	bodyStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("#A0AEC0"))
	bannerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FF6B6B")).Bold(true)
	abortStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#F7B801")).Bold(true)
	footerStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	panelStyle     = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#444444")).
			Padding(0, 1)
)

// bodyLines is how many trailing lines of a stage's text each panel shows
// while streaming.
const bodyLines = 6

type runStartedMsg struct{ run *client.Run }
type startFailedMsg struct{ err error }
type snapshotMsg struct{ snap reconcile.Snapshot }
type runDoneMsg struct{ err error }

// App is the bubbletea model for one run.
type App struct {
	client *client.Client
	input  client.RunInput

	run  *client.Run
	snap reconcile.Snapshot

	spinner spinner.Model
	bar     progress.Model

	width     int
	finished  bool
	cancelled bool
	runErr    error
	startErr  error
}

// NewApp creates the model; the run starts when bubbletea calls Init.
func NewApp(c *client.Client, in client.RunInput) *App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = labelStyleRun

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	return &App{
		client:  c,
		input:   in,
		snap:    reconcile.NewState(nil).Snapshot(),
		spinner: sp,
		bar:     bar,
		width:   80,
	}
}

func (a *App) Init() tea.Cmd {
	return tea.Batch(a.spinner.Tick, a.startRun())
}

func (a *App) startRun() tea.Cmd {
	return func() tea.Msg {
		run, err := a.client.StartRun(context.Background(), a.input)
		if err != nil {
			return startFailedMsg{err: err}
		}
		return runStartedMsg{run: run}
	}
}

// awaitUpdate blocks on the next snapshot, reporting run completion once
// the updates channel drains.
func awaitUpdate(run *client.Run) tea.Cmd {
	return func() tea.Msg {
		if snap, ok := <-run.Updates(); ok {
			return snapshotMsg{snap: snap}
		}
		<-run.Done()
		return runDoneMsg{err: run.Err()}
	}
}

func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch m := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = m.Width
		return a, nil

	case tea.KeyMsg:
		switch m.String() {
		case "c":
			if a.run != nil && !a.finished {
				a.cancelled = true
				a.run.Cancel()
			}
			return a, nil
		case "q", "ctrl+c":
			if a.run != nil && !a.finished {
				a.run.Cancel()
			}
			return a, tea.Quit
		}
		return a, nil

	case runStartedMsg:
		a.run = m.run
		a.snap = m.run.Snapshot()
		return a, awaitUpdate(a.run)

	case startFailedMsg:
		a.startErr = m.err
		a.finished = true
		return a, nil

	case snapshotMsg:
		a.snap = m.snap
		return a, awaitUpdate(a.run)

	case runDoneMsg:
		a.finished = true
		a.runErr = m.err
		a.snap = a.run.Snapshot()
		return a, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(m)
		return a, cmd
	}

	return a, nil
}

func (a *App) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("ORACLE outreach intelligence"))
	b.WriteString("\n\n")

	if a.startErr != nil {
		b.WriteString(bannerStyle.Render("Run rejected: " + a.startErr.Error()))
		b.WriteString("\n\n")
		b.WriteString(footerStyle.Render("q: quit"))
		return b.String()
	}

	for _, st := range a.snap.Stages {
		b.WriteString(a.renderStage(st))
		b.WriteString("\n")
	}

	switch {
	case a.snap.Aborted:
		b.WriteString(abortStyle.Render("Run aborted."))
		b.WriteString("\n")
	case a.runErr != nil:
		b.WriteString(bannerStyle.Render("Connection lost. Results above are incomplete."))
		b.WriteString("\n")
	}

	if a.finished {
		b.WriteString(footerStyle.Render("q: quit"))
	} else {
		b.WriteString(footerStyle.Render("c: cancel run  q: quit"))
	}
	return b.String()
}

func (a *App) renderStage(st reconcile.StageSnapshot) string {
	header := a.stageHeader(st)

	width := a.width - 6
	if width < 24 {
		width = 24
	}

	var body string
	switch st.Result.Status {
	case reconcile.StatusError:
		body = labelStyleErr.Render("error: " + st.Result.Text)
	case reconcile.StatusIdle:
		body = labelStyleIdle.Render("waiting")
	default:
		body = bodyStyle.Render(tailLines(st.Result.Text, bodyLines, width))
	}

	panel := header
	if body != "" {
		panel += "\n" + body
	}
	return panelStyle.Width(width).Render(panel)
}

func (a *App) stageHeader(st reconcile.StageSnapshot) string {
	var label string
	switch st.Result.Status {
	case reconcile.StatusDone:
		label = labelStyleDone.Render("✓ " + st.Label)
	case reconcile.StatusError:
		label = labelStyleErr.Render("✗ " + st.Label)
	case reconcile.StatusRunning, reconcile.StatusStreaming:
		label = a.spinner.View() + labelStyleRun.Render(st.Label)
	default:
		label = labelStyleIdle.Render("· " + st.Label)
	}

	meta := "n/a"
	if st.Progress.Known {
		meta = fmt.Sprintf("%3d%% %s", st.Progress.Percent, a.bar.ViewAs(float64(st.Progress.Percent)/100))
	}
	if st.Result.Words > 0 {
		meta += fmt.Sprintf("  %d words", st.Result.Words)
	}
	return label + "  " + footerStyle.Render(meta)
}

// tailLines wraps text to the panel width and keeps only the last n lines,
// so the panel tracks the live tail of the stream.
func tailLines(text string, n, width int) string {
	if strings.TrimSpace(text) == "" {
		return ""
	}
	wrapped := lipgloss.NewStyle().Width(width).Render(text)
	lines := strings.Split(wrapped, "\n")
	if len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return strings.Join(lines, "\n")
}
