package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/vocalbooth/api/internal/model"
)

// ProductionService manages the lifecycle of pipeline runs: queueing,
// status, results, and cooperative aborts.
type ProductionService struct {
	store       *JobStore
	asynqClient *asynq.Client
}

func NewProductionService(store *JobStore, asynqClient *asynq.Client) *ProductionService {
	return &ProductionService{
		store:       store,
		asynqClient: asynqClient,
	}
}

// Start queues a new production run.
func (s *ProductionService) Start(ctx context.Context, req *model.ProduceStartRequest) (*model.ProduceStartResponse, error) {
	mode := req.Mode
	if mode == "" {
		mode = model.ProduceModeProduce
	}
	if mode == model.ProduceModeProduce && req.InstrumentalURL == "" {
		return nil, fmt.Errorf("instrumentalUrl is required for produce mode")
	}

	jobID := uuid.New().String()
	now := time.Now()

	payload := &model.ProduceJobPayload{
		Mode:            mode,
		VocalURL:        req.VocalURL,
		InstrumentalURL: req.InstrumentalURL,
		SongName:        req.SongName,
		Master:          req.Master,
		Style:           req.Style,
		NegativeTags:    req.NegativeTags,
		VocalGender:     req.VocalGender,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:          jobID,
		Type:        model.JobTypeProduce,
		Status:      model.JobStatusPending,
		InputURLs:   inputURLs(payload),
		Payload:     payloadBytes,
		SubmittedAt: now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newTask(TaskTypeProduce, jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("produce"),
		asynq.MaxRetry(0),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.ProduceStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// Status returns the current status of a run.
func (s *ProductionService) Status(ctx context.Context, jobID string) (*model.ProduceStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.ProduceStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		SubmittedAt: job.SubmittedAt,
		StartedAt:   job.StartedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// Result returns the terminal result of a run. A failed run still yields a
// result so the caller can see which stages already succeeded; a run that is
// still processing yields ErrJobNotCompleted.
func (s *ProductionService) Result(ctx context.Context, jobID string) (*model.ProduceResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if !job.Status.Terminal() {
		return nil, ErrJobNotCompleted
	}
	if len(job.Result) == 0 {
		return &model.ProduceResultResponse{JobID: job.ID, Status: job.Status}, nil
	}

	var result model.ProduceResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	result.JobID = job.ID
	result.Status = job.Status
	return &result, nil
}

// Abort sets the cooperative abort flag for a running job. The worker
// observes it between poll attempts; already-terminal jobs are rejected.
func (s *ProductionService) Abort(ctx context.Context, jobID string) (*model.ProduceAbortResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		return nil, fmt.Errorf("job already completed")
	}

	if err := s.store.RequestAbort(ctx, jobID); err != nil {
		return nil, err
	}

	return &model.ProduceAbortResponse{
		JobID:   jobID,
		Status:  job.Status,
		Aborted: true,
	}, nil
}

func inputURLs(p *model.ProduceJobPayload) []string {
	urls := []string{p.VocalURL}
	if p.InstrumentalURL != "" {
		urls = append(urls, p.InstrumentalURL)
	}
	return urls
}

func newTask(taskType, jobID string, payload []byte) (*asynq.Task, error) {
	taskPayload := map[string]interface{}{
		"jobId":   jobID,
		"payload": payload,
	}
	data, err := json.Marshal(taskPayload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
