package tui

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mlship/mlship/internal/pipeline"
)

// sender is the slice of *tea.Program the forwarder needs.
type sender interface {
	Send(msg tea.Msg)
}

// Forwarder translates pipeline events into Bubble Tea messages.
type Forwarder struct {
	program sender
}

// NewForwarder wraps a running program (or anything with Send).
func NewForwarder(program sender) *Forwarder {
	return &Forwarder{program: program}
}

func (f *Forwarder) StageStarted(name string, position int) {
	f.program.Send(StageStartedMsg{Name: name, Position: position})
}

func (f *Forwarder) StageFinished(result pipeline.StageResult) {
	f.program.Send(StageFinishedMsg{Result: result})
}

// RunFinished must be called after Pipeline.Run returns so the view can
// settle and quit.
func (f *Forwarder) RunFinished(result *pipeline.Result) {
	f.program.Send(RunFinishedMsg{Result: result})
}
