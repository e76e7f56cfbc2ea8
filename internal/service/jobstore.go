package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vocalbooth/api/internal/model"
)

// Asynq task types
const (
	TaskTypeProduce = "produce:process"
	TaskTypeMixdown = "mixdown:process"
)

// Job records live in redis for 24 hours after their last write.
const jobTTL = 24 * time.Hour

// ErrJobNotFound is returned when no record exists for a job ID.
var ErrJobNotFound = fmt.Errorf("job not found")

// ErrJobNotCompleted is returned when a result is requested before the job
// reached a terminal succeeded state.
var ErrJobNotCompleted = fmt.Errorf("job not completed")

// JobStore persists job records and abort flags in redis. A job's status is
// only ever written by the worker that owns it; handlers read.
type JobStore struct {
	redis *redis.Client
}

// NewJobStore creates a redis-backed job store.
func NewJobStore(redisClient *redis.Client) *JobStore {
	return &JobStore{redis: redisClient}
}

func jobKey(jobID string) string   { return fmt.Sprintf("job:%s", jobID) }
func abortKey(jobID string) string { return fmt.Sprintf("job:%s:abort", jobID) }

// Save writes the job record, refreshing its TTL.
func (s *JobStore) Save(ctx context.Context, job *model.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, jobKey(job.ID), data, jobTTL).Err()
}

// Get loads a job record.
func (s *JobStore) Get(ctx context.Context, jobID string) (*model.Job, error) {
	data, err := s.redis.Get(ctx, jobKey(jobID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, ErrJobNotFound
		}
		return nil, err
	}

	var job model.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

// RequestAbort sets the cooperative abort flag a worker checks between polls.
func (s *JobStore) RequestAbort(ctx context.Context, jobID string) error {
	return s.redis.Set(ctx, abortKey(jobID), "1", jobTTL).Err()
}

// AbortRequested reads the abort flag. Errors read as "not aborted" so a
// redis hiccup never kills a healthy run.
func (s *JobStore) AbortRequested(ctx context.Context, jobID string) bool {
	val, err := s.redis.Get(ctx, abortKey(jobID)).Result()
	return err == nil && val == "1"
}

// UpdateProgress moves a pending job to processing and records the step.
func (s *JobStore) UpdateProgress(ctx context.Context, jobID string, progress int, step string) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}

	job.Progress = progress
	job.CurrentStep = step
	if job.Status == model.JobStatusPending {
		job.Status = model.JobStatusProcessing
		now := time.Now()
		job.StartedAt = &now
	}

	return s.Save(ctx, job)
}

// Complete marks the job succeeded and stores its result JSON.
func (s *JobStore) Complete(ctx context.Context, jobID string, output model.AudioAsset, result interface{}) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}

	resultBytes, err := json.Marshal(result)
	if err != nil {
		return err
	}

	if err := job.MarkSucceeded(output, time.Now()); err != nil {
		return err
	}
	job.Result = resultBytes

	return s.Save(ctx, job)
}

// Fail marks the job failed with the given message.
func (s *JobStore) Fail(ctx context.Context, jobID string, errMsg string) error {
	job, err := s.Get(ctx, jobID)
	if err != nil {
		return err
	}

	if err := job.MarkFailed(errMsg, time.Now()); err != nil {
		return err
	}

	return s.Save(ctx, job)
}
