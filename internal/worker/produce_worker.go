package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/pipeline"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/internal/websocket"
)

// ProduceWorker drives a production run through the hosted audio functions:
// vocal cleanup, multitrack mix, and optional mastering (or single-stage song
// generation in generate mode).
type ProduceWorker struct {
	store       *service.JobStore
	jobs        client.JobRunner
	hub         *websocket.Hub
	interval    time.Duration
	maxAttempts int
}

// NewProduceWorker creates a produce worker.
func NewProduceWorker(store *service.JobStore, jobs client.JobRunner, hub *websocket.Hub, interval time.Duration, maxAttempts int) *ProduceWorker {
	return &ProduceWorker{
		store:       store,
		jobs:        jobs,
		hub:         hub,
		interval:    interval,
		maxAttempts: maxAttempts,
	}
}

// ProcessTask handles one queued production run.
func (w *ProduceWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting produce job: %s", jobID)

	var payload model.ProduceJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal produce payload: %w", err)
	}

	stages, err := pipeline.StagesFor(&payload)
	if err != nil {
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	orch := pipeline.New(w.jobs, w.interval, w.maxAttempts)
	orch.SetAbortCheck(func() bool {
		return w.store.AbortRequested(ctx, jobID)
	})

	result, runErr := orch.Run(ctx, stages, func(percent int, step string) {
		w.updateProgress(ctx, jobID, percent, step)
	})

	resultResp := buildProduceResult(jobID, result)

	if runErr != nil {
		// Partial stage results are still persisted so the caller can see
		// which stages succeeded before the failure.
		w.failJobWithResult(ctx, jobID, runErr.Error(), resultResp)
		return runErr
	}

	if result.Final == nil {
		err := fmt.Errorf("run succeeded with no output")
		w.failJob(ctx, jobID, err.Error())
		return err
	}

	if err := w.store.Complete(ctx, jobID, *result.Final, resultResp); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, resultResp)
	log.Printf("Produce job %s completed", jobID)
	return nil
}

func buildProduceResult(jobID string, result *pipeline.Result) *model.ProduceResultResponse {
	resp := &model.ProduceResultResponse{
		JobID:  jobID,
		Status: result.Run.Status,
		Final:  result.Final,
	}
	for _, stage := range result.Run.Stages {
		resp.Stages = append(resp.Stages, model.ProduceStageResult{
			Name:   stage.CurrentStep,
			Kind:   stage.Kind,
			Status: stage.Status,
			Output: stage.Output,
			Error:  stage.Error,
		})
	}
	return resp
}

func (w *ProduceWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.store.UpdateProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusProcessing, step)
}

func (w *ProduceWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.store.Fail(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "PRODUCE_FAILED", errMsg)
}

func (w *ProduceWorker) failJobWithResult(ctx context.Context, jobID, errMsg string, result *model.ProduceResultResponse) {
	if resultBytes, err := json.Marshal(result); err == nil {
		if job, err := w.store.Get(ctx, jobID); err == nil {
			job.Result = resultBytes
			if err := w.store.Save(ctx, job); err != nil {
				log.Printf("Failed to save partial result: %v", err)
			}
		}
	}
	w.failJob(ctx, jobID, errMsg)
}
