package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
)

// ProgressFunc receives one human-readable status string and a monotonically
// non-decreasing percentage throughout a run.
type ProgressFunc func(percent int, step string)

// Stage describes one external job in a run. Payload receives the output
// assets of all prior stages, in order, so a stage can reference any earlier
// output, not just the immediately preceding one.
type Stage struct {
	Name           string
	Kind           model.JobKind
	SubmitFunction string
	PollFunction   string
	Payload        func(prior []model.AudioAsset) (map[string]interface{}, error)
}

// Result carries everything a caller needs after a run: per-stage jobs
// (including the ones that succeeded before a later failure, for A/B
// comparison or selective re-runs), the output assets in order, and the final
// asset when the whole run succeeded.
type Result struct {
	Run    *model.PipelineRun
	Assets []model.AudioAsset
	Final  *model.AudioAsset
}

// Orchestrator sequences external jobs where each stage's output feeds the
// next stage's input. One orchestrator drives one run at a time.
type Orchestrator struct {
	jobs        client.JobRunner
	interval    time.Duration
	maxAttempts int

	aborted atomic.Bool
	// extraAbort lets a caller plug in an out-of-process abort flag (e.g. a
	// redis key written by an HTTP handler); checked between poll attempts.
	extraAbort func() bool
}

// New creates an orchestrator with the given poll cadence. interval ×
// maxAttempts bounds the worst-case wait per stage.
func New(jobs client.JobRunner, interval time.Duration, maxAttempts int) *Orchestrator {
	return &Orchestrator{
		jobs:        jobs,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// SetAbortCheck installs an additional cancellation probe.
func (o *Orchestrator) SetAbortCheck(fn func() bool) { o.extraAbort = fn }

// Abort requests cooperative cancellation. In-flight requests are not
// interrupted; their results are discarded once the flag is observed, and no
// further stage is submitted.
func (o *Orchestrator) Abort() { o.aborted.Store(true) }

func (o *Orchestrator) isAborted() bool {
	if o.aborted.Load() {
		return true
	}
	return o.extraAbort != nil && o.extraAbort()
}

// Run executes the stages strictly in order: stage n+1 is never submitted
// until stage n is terminal with succeeded status. Any failure or timeout
// aborts the remaining stages; the returned Result still lists every stage so
// partial progress is visible. No stage is ever retried here.
func (o *Orchestrator) Run(ctx context.Context, stages []Stage, onProgress ProgressFunc) (*Result, error) {
	run := &model.PipelineRun{
		ID:        uuid.New().String(),
		Status:    model.JobStatusProcessing,
		CreatedAt: time.Now(),
	}
	result := &Result{Run: run}

	report := newProgressBands(len(stages), onProgress)

	for idx, stage := range stages {
		if o.isAborted() {
			return o.fail(result, idx, nil, "Production aborted", client.ErrAborted)
		}

		job := model.Job{
			ID:          uuid.New().String(),
			Kind:        stage.Kind,
			Status:      model.JobStatusPending,
			CurrentStep: stage.Name,
			SubmittedAt: time.Now(),
		}

		payload, err := stage.Payload(result.Assets)
		if err != nil {
			return o.fail(result, idx, &job, stage.Name, err)
		}

		report.stageStart(idx, stage.Name)
		log.Printf("[Pipeline] run %s stage %d/%d (%s): submitting", run.ID, idx+1, len(stages), stage.Kind)

		sub, err := o.jobs.Submit(ctx, stage.SubmitFunction, payload)
		if err != nil {
			return o.fail(result, idx, &job, stage.Name, err)
		}
		job.TaskID = sub.TaskID
		job.Status = model.JobStatusProcessing
		now := time.Now()
		job.StartedAt = &now

		update, err := o.jobs.PollUntilTerminal(ctx, stage.PollFunction, sub.TaskID, client.PollOptions{
			Interval:    o.interval,
			MaxAttempts: o.maxAttempts,
			Cancelled:   o.isAborted,
			OnProgress: func(pct int, _ string) {
				report.stageProgress(idx, stage.Name, pct)
			},
		})
		if err != nil {
			if errors.Is(err, client.ErrAborted) {
				return o.fail(result, idx, &job, "Production aborted", err)
			}
			return o.fail(result, idx, &job, stage.Name, err)
		}

		if update.Status == model.JobStatusFailed {
			// Provider message propagated verbatim.
			return o.fail(result, idx, &job, stage.Name, fmt.Errorf("%s", update.Message))
		}

		asset := model.AudioAsset{URL: update.OutputURL, ContentType: "audio/mpeg"}
		if err := job.MarkSucceeded(asset, time.Now()); err != nil {
			return o.fail(result, idx, &job, stage.Name, err)
		}
		run.Stages = append(run.Stages, job)
		result.Assets = append(result.Assets, asset)
		report.stageDone(idx, stage.Name)

		log.Printf("[Pipeline] run %s stage %d/%d (%s): succeeded", run.ID, idx+1, len(stages), stage.Kind)
	}

	run.Status = model.JobStatusSucceeded
	now := time.Now()
	run.EndedAt = &now
	if len(result.Assets) > 0 {
		final := result.Assets[len(result.Assets)-1]
		result.Final = &final
	}
	report.done()

	return result, nil
}

// fail records the failing stage on the run and returns the partial result.
func (o *Orchestrator) fail(result *Result, idx int, job *model.Job, step string, err error) (*Result, error) {
	run := result.Run
	run.Status = model.JobStatusFailed
	now := time.Now()
	run.EndedAt = &now

	if job != nil {
		msg := step
		if err != nil {
			msg = err.Error()
		}
		_ = job.MarkFailed(msg, now)
		run.Stages = append(run.Stages, *job)
	}

	if err == nil {
		err = fmt.Errorf("stage %d failed", idx+1)
	}
	log.Printf("[Pipeline] run %s stage %d: failed: %v", run.ID, idx+1, err)
	return result, err
}

// progressBands maps per-stage progress into one monotonic 0-100 scale by
// giving each stage an equal band.
type progressBands struct {
	stages int
	fn     ProgressFunc
	last   int
}

func newProgressBands(stages int, fn ProgressFunc) *progressBands {
	return &progressBands{stages: stages, fn: fn}
}

func (p *progressBands) emit(pct int, step string) {
	if p.fn == nil {
		return
	}
	if pct < p.last {
		pct = p.last
	}
	if pct > 100 {
		pct = 100
	}
	p.last = pct
	p.fn(pct, step)
}

func (p *progressBands) stageStart(idx int, name string) {
	p.emit(idx*100/p.stages, name)
}

func (p *progressBands) stageProgress(idx int, name string, stagePct int) {
	if stagePct < 0 {
		stagePct = 0
	}
	if stagePct > 100 {
		stagePct = 100
	}
	p.emit((idx*100+stagePct)/p.stages, name)
}

func (p *progressBands) stageDone(idx int, name string) {
	p.emit((idx+1)*100/p.stages, name)
}

func (p *progressBands) done() {
	p.emit(100, "Done")
}
