// Package pipeline runs a fixed, ordered sequence of named stages.
//
// There is deliberately no graph, no branching and no retry logic: a
// delivery run is a finite list of steps that either all succeed or stop
// at the first failure. Outcome hooks fire after the sequence so callers
// can attach notifications and housekeeping without touching stage code.
package pipeline

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Stage is one discrete, ordered step of a run.
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// StageFunc adapts a plain function to the Stage interface.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context) error
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Run(ctx context.Context) error { return s.Fn(ctx) }

// Hook runs after the stage sequence has finished. Hook errors are logged
// and never change the outcome of the run.
type Hook func(ctx context.Context, res *Result) error

// Listener observes stage transitions during a run.
type Listener interface {
	StageStarted(name string, position int)
	StageFinished(res StageResult)
}

// Pipeline is a fixed ordered sequence of stages plus outcome hooks.
type Pipeline struct {
	name      string
	stages    []Stage
	listeners []Listener
	onSuccess []Hook
	onFailure []Hook
	always    []Hook
	log       *logrus.Entry
}

// Option configures a Pipeline.
type Option func(p *Pipeline)

// WithListener registers a stage transition observer.
func WithListener(l Listener) Option {
	return func(p *Pipeline) { p.Listen(l) }
}

// Listen registers a stage transition observer after construction. It is
// not safe to call once Run has started.
func (p *Pipeline) Listen(l Listener) {
	if l != nil {
		p.listeners = append(p.listeners, l)
	}
}

// OnSuccess registers a hook that fires only when every stage succeeded.
func OnSuccess(h Hook) Option {
	return func(p *Pipeline) { p.onSuccess = append(p.onSuccess, h) }
}

// OnFailure registers a hook that fires only when a stage failed.
func OnFailure(h Hook) Option {
	return func(p *Pipeline) { p.onFailure = append(p.onFailure, h) }
}

// Always registers a hook that fires after the outcome hooks on both the
// success and the failure path.
func Always(h Hook) Option {
	return func(p *Pipeline) { p.always = append(p.always, h) }
}

// New creates a pipeline that runs the given stages in order.
func New(name string, stages []Stage, opts ...Option) *Pipeline {
	p := &Pipeline{
		name:   name,
		stages: stages,
		log:    logrus.WithField("pipeline", name),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Stages returns the stage names in execution order.
func (p *Pipeline) Stages() []string {
	names := make([]string, 0, len(p.stages))
	for _, s := range p.stages {
		names = append(names, s.Name())
	}
	return names
}

// Run executes the stages in order, halting at the first failure. It then
// fires exactly one of the success/failure hook sets, followed by the
// unconditional hooks, and returns the failing stage's error if any.
func (p *Pipeline) Run(ctx context.Context) *Result {
	res := &Result{
		Pipeline:  p.name,
		StartedAt: time.Now().UTC(),
	}

	for i, stage := range p.stages {
		if err := ctx.Err(); err != nil {
			res.Err = errors.Wrap(err, stage.Name())
			break
		}

		for _, l := range p.listeners {
			l.StageStarted(stage.Name(), i)
		}
		p.log.WithField("stage", stage.Name()).Info("stage started")

		sr := StageResult{Name: stage.Name(), Position: i, StartedAt: time.Now().UTC()}
		err := stage.Run(ctx)
		sr.FinishedAt = time.Now().UTC()

		if err != nil {
			sr.Status = StageFailed
			sr.Err = err
			res.Stages = append(res.Stages, sr)
			res.Err = errors.Wrap(err, stage.Name())
			p.notifyFinished(sr)
			p.log.WithField("stage", stage.Name()).WithError(err).Error("stage failed")
			break
		}

		sr.Status = StageSucceeded
		res.Stages = append(res.Stages, sr)
		p.notifyFinished(sr)
		p.log.WithFields(logrus.Fields{
			"stage":    stage.Name(),
			"duration": sr.Duration().Round(time.Millisecond).String(),
		}).Info("stage finished")
	}

	res.FinishedAt = time.Now().UTC()

	if res.Err == nil {
		p.fire(ctx, p.onSuccess, res, "success hook")
	} else {
		p.fire(ctx, p.onFailure, res, "failure hook")
	}
	p.fire(ctx, p.always, res, "post hook")

	return res
}

func (p *Pipeline) notifyFinished(sr StageResult) {
	for _, l := range p.listeners {
		l.StageFinished(sr)
	}
}

func (p *Pipeline) fire(ctx context.Context, hooks []Hook, res *Result, kind string) {
	for _, h := range hooks {
		if err := h(ctx, res); err != nil {
			p.log.WithError(err).Warnf("%s failed", kind)
		}
	}
}
