package pipeline

import "time"

// StageStatus is the terminal state of one stage.
type StageStatus string

const (
	StageSucceeded StageStatus = "succeeded"
	StageFailed    StageStatus = "failed"
)

// StageResult records the outcome of a single stage.
type StageResult struct {
	Name       string
	Position   int
	Status     StageStatus
	StartedAt  time.Time
	FinishedAt time.Time
	Err        error
}

// Duration is the wall-clock time the stage took.
func (s StageResult) Duration() time.Duration {
	return s.FinishedAt.Sub(s.StartedAt)
}

// Result records the outcome of a whole run. Stages holds one entry per
// executed stage; stages after a failure are absent, not marked skipped.
type Result struct {
	Pipeline   string
	StartedAt  time.Time
	FinishedAt time.Time
	Stages     []StageResult
	Err        error
}

// Failed reports whether the run stopped at a failing stage.
func (r *Result) Failed() bool { return r.Err != nil }

// FailedStage returns the name of the stage that halted the run, or "".
func (r *Result) FailedStage() string {
	for _, s := range r.Stages {
		if s.Status == StageFailed {
			return s.Name
		}
	}
	return ""
}

// Duration is the wall-clock time of the whole run.
func (r *Result) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
