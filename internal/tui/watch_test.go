package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mlship/mlship/internal/pipeline"
)

func newRunModel() *WatchModel {
	return NewWatchModel("deploy", "mlops-app:1.0", []string{"checkout", "build", "smoke-test", "publish", "deploy"})
}

func TestViewListsPendingStages(t *testing.T) {
	t.Parallel()

	m := newRunModel()
	view := m.View()

	for _, name := range []string{"checkout", "build", "smoke-test", "publish", "deploy"} {
		assert.Contains(t, view, name)
	}
	assert.Contains(t, view, "running for")
}

func TestStageLifecycleUpdatesView(t *testing.T) {
	t.Parallel()

	m := newRunModel()

	next, _ := m.Update(StageStartedMsg{Name: "build", Position: 2})
	m = next.(*WatchModel)

	started := time.Now()
	next, _ = m.Update(StageFinishedMsg{Result: pipeline.StageResult{
		Name:       "build",
		Status:     pipeline.StageSucceeded,
		StartedAt:  started,
		FinishedAt: started.Add(3 * time.Second),
	}})
	m = next.(*WatchModel)

	assert.Contains(t, m.View(), "✓ build")
	assert.Contains(t, m.View(), "3s")
}

func TestFailedStageShowsError(t *testing.T) {
	t.Parallel()

	m := newRunModel()
	next, _ := m.Update(StageFinishedMsg{Result: pipeline.StageResult{
		Name:   "smoke-test",
		Status: pipeline.StageFailed,
		Err:    errors.New("health check returned 500"),
	}})
	m = next.(*WatchModel)

	view := m.View()
	assert.Contains(t, view, "✗ smoke-test")
	assert.Contains(t, view, "health check returned 500")
}

func TestRunFinishedMarksRemainingSkipped(t *testing.T) {
	t.Parallel()

	m := newRunModel()
	next, _ := m.Update(StageFinishedMsg{Result: pipeline.StageResult{
		Name:   "checkout",
		Status: pipeline.StageSucceeded,
	}})
	m = next.(*WatchModel)

	next, cmd := m.Update(RunFinishedMsg{Result: &pipeline.Result{
		Pipeline: "deploy",
		Err:      errors.New("build: no space left on device"),
	}})
	m = next.(*WatchModel)
	require.NotNil(t, cmd)

	view := m.View()
	assert.Contains(t, view, "FAILURE")
	assert.Equal(t, 4, strings.Count(view, "(skipped)"))
}

type recordingSender struct {
	msgs []interface{}
}

func (r *recordingSender) Send(msg tea.Msg) { r.msgs = append(r.msgs, msg) }

func TestForwarderTranslatesEvents(t *testing.T) {
	t.Parallel()

	rec := &recordingSender{}
	fwd := NewForwarder(rec)

	fwd.StageStarted("checkout", 1)
	fwd.StageFinished(pipeline.StageResult{Name: "checkout", Status: pipeline.StageSucceeded})
	fwd.RunFinished(&pipeline.Result{Pipeline: "deploy"})

	require.Len(t, rec.msgs, 3)
	assert.Equal(t, StageStartedMsg{Name: "checkout", Position: 1}, rec.msgs[0])
	assert.IsType(t, StageFinishedMsg{}, rec.msgs[1])
	assert.IsType(t, RunFinishedMsg{}, rec.msgs[2])
}
