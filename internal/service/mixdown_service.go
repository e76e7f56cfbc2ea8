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

// MixdownService manages offline server-side mixdown jobs.
type MixdownService struct {
	store       *JobStore
	asynqClient *asynq.Client
}

func NewMixdownService(store *JobStore, asynqClient *asynq.Client) *MixdownService {
	return &MixdownService{
		store:       store,
		asynqClient: asynqClient,
	}
}

// Start queues a new mixdown job. Zero gains are interpreted as unity so a
// caller omitting them gets an unattenuated mix.
func (s *MixdownService) Start(ctx context.Context, req *model.MixdownStartRequest) (*model.MixdownStartResponse, error) {
	jobID := uuid.New().String()
	now := time.Now()

	voiceGain := req.VoiceGain
	if voiceGain == 0 {
		voiceGain = 1.0
	}
	instGain := req.InstrumentalGain
	if instGain == 0 {
		instGain = 1.0
	}

	payload := &model.MixdownJobPayload{
		VoiceURL:         req.VoiceURL,
		InstrumentalURL:  req.InstrumentalURL,
		VoiceGain:        voiceGain,
		InstrumentalGain: instGain,
		SongName:         req.SongName,
	}
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	job := &model.Job{
		ID:          jobID,
		Type:        model.JobTypeMixdown,
		Status:      model.JobStatusPending,
		InputURLs:   []string{req.VoiceURL, req.InstrumentalURL},
		Payload:     payloadBytes,
		SubmittedAt: now,
	}
	if err := s.store.Save(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to save job: %w", err)
	}

	task, err := newTask(TaskTypeMixdown, jobID, payloadBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	_, err = s.asynqClient.Enqueue(task,
		asynq.Queue("mixdown"),
		asynq.MaxRetry(0),
		asynq.Retention(jobTTL),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to enqueue task: %w", err)
	}

	return &model.MixdownStartResponse{
		JobID:     jobID,
		Status:    model.JobStatusPending,
		CreatedAt: now,
	}, nil
}

// Status returns the current status of a mixdown job.
func (s *MixdownService) Status(ctx context.Context, jobID string) (*model.MixdownStatusResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	return &model.MixdownStatusResponse{
		JobID:       job.ID,
		Status:      job.Status,
		Progress:    job.Progress,
		CurrentStep: job.CurrentStep,
		Error:       job.Error,
		SubmittedAt: job.SubmittedAt,
		CompletedAt: job.CompletedAt,
	}, nil
}

// Result returns the stored WAV's location for a succeeded mixdown.
func (s *MixdownService) Result(ctx context.Context, jobID string) (*model.MixdownResultResponse, error) {
	job, err := s.store.Get(ctx, jobID)
	if err != nil {
		return nil, err
	}

	if job.Status != model.JobStatusSucceeded {
		return nil, ErrJobNotCompleted
	}

	var result model.MixdownResultResponse
	if err := json.Unmarshal(job.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal result: %w", err)
	}
	result.JobID = job.ID
	return &result, nil
}
