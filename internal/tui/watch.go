// Package tui renders a live terminal view of a pipeline run: one line per
// stage with a spinner on the running stage and a final outcome banner.
package tui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mlship/mlship/internal/pipeline"
)

var (
	colorGreen = lipgloss.Color("#44FF44")
	colorRed   = lipgloss.Color("#FF4444")
	colorAmber = lipgloss.Color("#FFAA00")
	colorGray  = lipgloss.Color("8")

	titleStyle   = lipgloss.NewStyle().Bold(true)
	pendingStyle = lipgloss.NewStyle().Foreground(colorGray)
	runningStyle = lipgloss.NewStyle().Foreground(colorAmber)
	okStyle      = lipgloss.NewStyle().Foreground(colorGreen)
	failStyle    = lipgloss.NewStyle().Foreground(colorRed)
)

type stageState int

const (
	statePending stageState = iota
	stateRunning
	stateSucceeded
	stateFailed
	stateSkipped
)

type stageLine struct {
	name     string
	state    stageState
	duration time.Duration
	err      error
}

// StageStartedMsg marks a stage as running.
type StageStartedMsg struct {
	Name     string
	Position int
}

// StageFinishedMsg records a stage outcome.
type StageFinishedMsg struct {
	Result pipeline.StageResult
}

// RunFinishedMsg carries the final run result and ends the program.
type RunFinishedMsg struct {
	Result *pipeline.Result
}

// WatchModel is the Bubble Tea model for a single pipeline run.
type WatchModel struct {
	pipeline string
	image    string
	stages   []stageLine
	spin     spinner.Model
	started  time.Time
	result   *pipeline.Result
	done     bool
}

// NewWatchModel lists the stage names up front so pending stages render
// before they start.
func NewWatchModel(pipelineName, image string, stageNames []string) *WatchModel {
	lines := make([]stageLine, len(stageNames))
	for i, name := range stageNames {
		lines[i] = stageLine{name: name}
	}

	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = runningStyle

	return &WatchModel{
		pipeline: pipelineName,
		image:    image,
		stages:   lines,
		spin:     sp,
		started:  time.Now(),
	}
}

func (m *WatchModel) Init() tea.Cmd {
	return m.spin.Tick
}

func (m *WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" || msg.String() == "q" {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case StageStartedMsg:
		if i := m.index(msg.Name); i >= 0 {
			m.stages[i].state = stateRunning
		}

	case StageFinishedMsg:
		if i := m.index(msg.Result.Name); i >= 0 {
			m.stages[i].duration = msg.Result.Duration()
			m.stages[i].err = msg.Result.Err
			if msg.Result.Status == pipeline.StageFailed {
				m.stages[i].state = stateFailed
			} else {
				m.stages[i].state = stateSucceeded
			}
		}

	case RunFinishedMsg:
		m.result = msg.Result
		m.done = true
		for i := range m.stages {
			if m.stages[i].state == statePending || m.stages[i].state == stateRunning {
				m.stages[i].state = stateSkipped
			}
		}
		return m, tea.Quit
	}

	return m, nil
}

func (m *WatchModel) View() string {
	out := titleStyle.Render(fmt.Sprintf("%s  %s", m.pipeline, m.image)) + "\n\n"

	for _, s := range m.stages {
		switch s.state {
		case stateRunning:
			out += fmt.Sprintf("  %s %s\n", m.spin.View(), runningStyle.Render(s.name))
		case stateSucceeded:
			out += okStyle.Render(fmt.Sprintf("  ✓ %s", s.name)) +
				pendingStyle.Render(fmt.Sprintf("  %s", s.duration.Round(time.Millisecond))) + "\n"
		case stateFailed:
			out += failStyle.Render(fmt.Sprintf("  ✗ %s", s.name)) + "\n"
			if s.err != nil {
				out += failStyle.Render(fmt.Sprintf("    %v", s.err)) + "\n"
			}
		case stateSkipped:
			out += pendingStyle.Render(fmt.Sprintf("  - %s (skipped)", s.name)) + "\n"
		default:
			out += pendingStyle.Render(fmt.Sprintf("  · %s", s.name)) + "\n"
		}
	}

	out += "\n"
	switch {
	case m.result == nil:
		out += pendingStyle.Render(fmt.Sprintf("running for %s  (q to detach)", time.Since(m.started).Round(time.Second)))
	case m.result.Failed():
		out += failStyle.Render(fmt.Sprintf("FAILURE after %s", m.result.Duration().Round(time.Millisecond)))
	default:
		out += okStyle.Render(fmt.Sprintf("SUCCESS in %s", m.result.Duration().Round(time.Millisecond)))
	}
	return out + "\n"
}

func (m *WatchModel) index(name string) int {
	for i, s := range m.stages {
		if s.name == name {
			return i
		}
	}
	return -1
}
