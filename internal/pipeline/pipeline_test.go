package pipeline

import (
	"context"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func named(name string, calls *[]string, err error) Stage {
	return StageFunc{
		StageName: name,
		Fn: func(ctx context.Context) error {
			*calls = append(*calls, name)
			return err
		},
	}
}

func TestRun_ExecutesStagesInOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	p := New("deploy", []Stage{
		named("checkout", &calls, nil),
		named("build", &calls, nil),
		named("smoke-test", &calls, nil),
	})

	res := p.Run(context.Background())

	require.False(t, res.Failed())
	assert.Equal(t, []string{"checkout", "build", "smoke-test"}, calls)
	require.Len(t, res.Stages, 3)
	for i, sr := range res.Stages {
		assert.Equal(t, StageSucceeded, sr.Status)
		assert.Equal(t, i, sr.Position)
	}
}

func TestRun_HaltsAtFirstFailure(t *testing.T) {
	t.Parallel()

	boom := errors.New("unhealthy")
	var calls []string
	p := New("deploy", []Stage{
		named("build", &calls, nil),
		named("smoke-test", &calls, boom),
		named("publish", &calls, nil),
	})

	res := p.Run(context.Background())

	require.True(t, res.Failed())
	assert.Equal(t, []string{"build", "smoke-test"}, calls, "publish must never run after a failed smoke test")
	assert.Equal(t, "smoke-test", res.FailedStage())
	assert.ErrorIs(t, errors.Cause(res.Err), boom)
	require.Len(t, res.Stages, 2)
	assert.Equal(t, StageFailed, res.Stages[1].Status)
}

func TestRun_FiresExactlyOneOutcomeHook(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		stageErr error
	}{
		{name: "success", stageErr: nil},
		{name: "failure", stageErr: errors.New("push denied")},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			var calls []string
			var success, failure, always int
			p := New("deploy",
				[]Stage{named("publish", &calls, tc.stageErr)},
				OnSuccess(func(ctx context.Context, res *Result) error { success++; return nil }),
				OnFailure(func(ctx context.Context, res *Result) error { failure++; return nil }),
				Always(func(ctx context.Context, res *Result) error { always++; return nil }),
			)

			res := p.Run(context.Background())

			if tc.stageErr == nil {
				assert.False(t, res.Failed())
				assert.Equal(t, 1, success)
				assert.Equal(t, 0, failure)
			} else {
				assert.True(t, res.Failed())
				assert.Equal(t, 0, success)
				assert.Equal(t, 1, failure)
			}
			assert.Equal(t, 1, always, "cleanup hook must run on both paths")
		})
	}
}

func TestRun_HookErrorDoesNotChangeOutcome(t *testing.T) {
	t.Parallel()

	var calls []string
	p := New("deploy",
		[]Stage{named("build", &calls, nil)},
		OnSuccess(func(ctx context.Context, res *Result) error { return errors.New("smtp down") }),
		Always(func(ctx context.Context, res *Result) error { return errors.New("prune failed") }),
	)

	res := p.Run(context.Background())
	assert.False(t, res.Failed())
}

func TestRun_CancelledContextStopsSequence(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var calls []string
	p := New("deploy", []Stage{
		StageFunc{StageName: "build", Fn: func(ctx context.Context) error {
			calls = append(calls, "build")
			cancel()
			return nil
		}},
		named("publish", &calls, nil),
	})

	res := p.Run(ctx)

	require.True(t, res.Failed())
	assert.Equal(t, []string{"build"}, calls)
	assert.ErrorIs(t, errors.Cause(res.Err), context.Canceled)
}

type recordingListener struct {
	started  []string
	finished []StageResult
}

func (r *recordingListener) StageStarted(name string, position int) {
	r.started = append(r.started, name)
}

func (r *recordingListener) StageFinished(res StageResult) {
	r.finished = append(r.finished, res)
}

func TestRun_NotifiesListeners(t *testing.T) {
	t.Parallel()

	l := &recordingListener{}
	var calls []string
	p := New("deploy", []Stage{
		named("checkout", &calls, nil),
		named("build", &calls, errors.New("no dockerfile")),
	}, WithListener(l))

	p.Run(context.Background())

	assert.Equal(t, []string{"checkout", "build"}, l.started)
	require.Len(t, l.finished, 2)
	assert.Equal(t, StageSucceeded, l.finished[0].Status)
	assert.Equal(t, StageFailed, l.finished[1].Status)
}

func TestStages_ReturnsNamesInExecutionOrder(t *testing.T) {
	t.Parallel()

	var calls []string
	p := New("deploy", []Stage{
		named("checkout", &calls, nil),
		named("build", &calls, nil),
		named("smoke-test", &calls, nil),
		named("publish", &calls, nil),
		named("deploy", &calls, nil),
	})

	assert.Equal(t, []string{"checkout", "build", "smoke-test", "publish", "deploy"}, p.Stages())
}

func TestListen_RegistersListenerAfterConstruction(t *testing.T) {
	t.Parallel()

	l := &recordingListener{}
	var calls []string
	p := New("deploy", []Stage{named("checkout", &calls, nil)})
	p.Listen(l)
	p.Listen(nil)

	p.Run(context.Background())

	assert.Equal(t, []string{"checkout"}, l.started)
	require.Len(t, l.finished, 1)
}
