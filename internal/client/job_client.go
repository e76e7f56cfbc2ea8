package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/vocalbooth/api/internal/model"
)

// ErrAborted is returned by PollUntilTerminal when the caller's cancellation
// check fires between poll attempts.
var ErrAborted = errors.New("polling aborted")

// SubmitResult carries the provider-issued task identifier plus any secondary
// URLs the provider returns at submission time (e.g. originalVocalsUrl from
// song generation).
type SubmitResult struct {
	TaskID  string
	AuxURLs map[string]string
}

// PollOptions controls one bounded polling loop. Interval and MaxAttempts are
// first-class so the worst-case wait is always interval × attempts.
type PollOptions struct {
	Interval    time.Duration
	MaxAttempts int
	// OnProgress is invoked on each non-terminal observation that carries a
	// progress hint.
	OnProgress func(progress int, step string)
	// Cancelled is checked between poll attempts; an in-flight request is not
	// interrupted but its result is discarded once the check fires.
	Cancelled func() bool
}

// JobRunner submits work to a remote asynchronous processor and observes
// completion without blocking beyond single round trips (plus timer waits).
type JobRunner interface {
	Submit(ctx context.Context, function string, payload interface{}) (*SubmitResult, error)
	Poll(ctx context.Context, function string, taskID string) (model.JobUpdate, error)
	PollUntilTerminal(ctx context.Context, function string, taskID string, opts PollOptions) (model.JobUpdate, error)
}

// JobClient implements JobRunner over the hosted-function channel. The sleep
// function is injectable so tests can run the loop without real delays.
type JobClient struct {
	invoker FunctionInvoker
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewJobClient creates a job client over the given invocation channel.
func NewJobClient(invoker FunctionInvoker) *JobClient {
	return &JobClient{
		invoker: invoker,
		sleep:   sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// Submit issues one submission request and returns the provider's task
// identifier. The payload must already contain every field the target job
// kind requires.
func (c *JobClient) Submit(ctx context.Context, function string, payload interface{}) (*SubmitResult, error) {
	raw, err := c.invoker.InvokeRaw(ctx, function, payload)
	if err != nil {
		return nil, err
	}
	return parseSubmit(function, raw)
}

// Poll issues a single status request. Never blocks beyond one round trip.
// Providers disagree on the identifier key (taskId vs jobId), so both
// spellings are sent; each provider ignores the one it doesn't use.
func (c *JobClient) Poll(ctx context.Context, function string, taskID string) (model.JobUpdate, error) {
	raw, err := c.invoker.InvokeRaw(ctx, function, map[string]string{"taskId": taskID, "jobId": taskID})
	if err != nil {
		return model.JobUpdate{}, err
	}
	return parseUpdate(function, raw)
}

// PollUntilTerminal polls on a fixed interval until a terminal status is
// observed or opts.MaxAttempts is exhausted. A still-processing job at the
// ceiling yields a *TimeoutError; a failed status is returned as a normal
// update with the provider's message verbatim: no retry, no interpretation.
func (c *JobClient) PollUntilTerminal(ctx context.Context, function string, taskID string, opts PollOptions) (model.JobUpdate, error) {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Second
	}
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = 120
	}

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		if opts.Cancelled != nil && opts.Cancelled() {
			return model.JobUpdate{}, ErrAborted
		}

		update, err := c.Poll(ctx, function, taskID)
		if err != nil {
			return model.JobUpdate{}, err
		}

		if opts.Cancelled != nil && opts.Cancelled() {
			return model.JobUpdate{}, ErrAborted
		}

		log.Printf("[Provider] Poll %s #%d (task=%s): status: %s", function, attempt, taskID, update.Status)

		if update.Status.Terminal() {
			return update, nil
		}

		if opts.OnProgress != nil && update.Progress > 0 {
			opts.OnProgress(update.Progress, update.Message)
		}

		if attempt < opts.MaxAttempts {
			if err := c.sleep(ctx, opts.Interval); err != nil {
				return model.JobUpdate{}, err
			}
		}
	}

	return model.JobUpdate{}, &TimeoutError{
		TaskID:   taskID,
		Attempts: opts.MaxAttempts,
		Interval: opts.Interval,
	}
}

// providerEnvelope is the superset of fields the named providers return.
// Parsing happens once, here, so downstream code never re-checks optionality.
type providerEnvelope struct {
	TaskID string `json:"taskId"`
	JobID  string `json:"jobId"`
	ID     string `json:"id"`

	Status string `json:"status"`
	Error  string `json:"error"`

	Progress int    `json:"progress"`
	Step     string `json:"step"`

	OutputURL       string `json:"outputUrl"`
	AudioURL        string `json:"audioUrl"`
	CleanVocalURL   string `json:"cleanVocalUrl"`
	InstrumentalURL string `json:"instrumentalUrl"`
	VocalsURL       string `json:"vocalsUrl"`
	OriginalVocals  string `json:"originalVocalsUrl"`
}

func parseSubmit(function string, raw json.RawMessage) (*SubmitResult, error) {
	var env providerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("failed to parse %s submit response: %w", function, err)
	}

	taskID := env.TaskID
	if taskID == "" {
		taskID = env.JobID
	}
	if taskID == "" {
		taskID = env.ID
	}
	if taskID == "" {
		return nil, fmt.Errorf("%s submit response carried no task identifier", function)
	}

	res := &SubmitResult{TaskID: taskID}
	if env.OriginalVocals != "" {
		res.AuxURLs = map[string]string{"originalVocalsUrl": env.OriginalVocals}
	}
	return res, nil
}

func parseUpdate(function string, raw json.RawMessage) (model.JobUpdate, error) {
	var env providerEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return model.JobUpdate{}, fmt.Errorf("failed to parse %s poll response: %w", function, err)
	}

	update := model.JobUpdate{Progress: env.Progress, Message: env.Step}

	switch env.Status {
	case "pending", "queued", "processing", "running":
		update.Status = model.JobStatusProcessing
	case "complete", "completed", "success", "succeeded":
		update.Status = model.JobStatusSucceeded
	case "error", "failed":
		update.Status = model.JobStatusFailed
		update.Message = env.Error
	default:
		return model.JobUpdate{}, fmt.Errorf("%s poll response carried unknown status %q", function, env.Status)
	}

	if update.Status == model.JobStatusSucceeded {
		update.OutputURL = firstNonEmpty(env.OutputURL, env.AudioURL, env.CleanVocalURL)
		if update.OutputURL == "" {
			return model.JobUpdate{}, fmt.Errorf("%s reported success without an output URL", function)
		}
		aux := map[string]string{}
		if env.InstrumentalURL != "" {
			aux["instrumentalUrl"] = env.InstrumentalURL
		}
		if env.VocalsURL != "" {
			aux["vocalsUrl"] = env.VocalsURL
		}
		if len(aux) > 0 {
			update.AuxURLs = aux
		}
	}

	return update, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
