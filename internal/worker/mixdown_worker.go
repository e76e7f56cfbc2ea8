package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/vocalbooth/api/internal/audio"
	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
	"github.com/vocalbooth/api/internal/service"
	"github.com/vocalbooth/api/internal/websocket"
)

// Mixdown downloads stay available for a day.
const mixdownURLExpiry = 24 * time.Hour

// MixdownWorker renders the offline voice + instrumental mix and stores the
// resulting WAV in object storage.
type MixdownWorker struct {
	store    *service.JobStore
	mixer    *audio.OfflineMixer
	r2Client client.StorageClient
	hub      *websocket.Hub
}

// NewMixdownWorker creates a mixdown worker.
func NewMixdownWorker(store *service.JobStore, mixer *audio.OfflineMixer, r2Client client.StorageClient, hub *websocket.Hub) *MixdownWorker {
	return &MixdownWorker{
		store:    store,
		mixer:    mixer,
		r2Client: r2Client,
		hub:      hub,
	}
}

// ProcessTask handles one queued mixdown.
func (w *MixdownWorker) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var taskPayload struct {
		JobID   string          `json:"jobId"`
		Payload json.RawMessage `json:"payload"`
	}

	if err := json.Unmarshal(t.Payload(), &taskPayload); err != nil {
		return fmt.Errorf("failed to unmarshal task payload: %w", err)
	}

	jobID := taskPayload.JobID
	log.Printf("Starting mixdown job: %s", jobID)

	var payload model.MixdownJobPayload
	if err := json.Unmarshal(taskPayload.Payload, &payload); err != nil {
		w.failJob(ctx, jobID, "Invalid payload")
		return fmt.Errorf("failed to unmarshal mixdown payload: %w", err)
	}

	if w.r2Client == nil {
		w.failJob(ctx, jobID, "Storage not configured")
		return fmt.Errorf("storage not configured")
	}

	w.updateProgress(ctx, jobID, 10, "Fetching tracks...")

	wav, err := w.mixer.Mix(ctx, payload.VoiceURL, payload.InstrumentalURL, payload.VoiceGain, payload.InstrumentalGain)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Mixdown failed: %v", err))
		return err
	}

	duration, err := audio.WAVDuration(wav)
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Mixdown produced an unreadable file: %v", err))
		return err
	}

	w.updateProgress(ctx, jobID, 80, "Uploading mix...")

	key := fmt.Sprintf("mixdowns/%s.wav", uuid.New().String())
	fileURL, err := w.r2Client.Upload(ctx, key, bytes.NewReader(wav), "audio/wav")
	if err != nil {
		w.failJob(ctx, jobID, fmt.Sprintf("Upload failed: %v", err))
		return err
	}

	if signed, err := w.r2Client.GetSignedURL(ctx, key, mixdownURLExpiry); err == nil {
		fileURL = signed
	}

	expiresAt := time.Now().Add(mixdownURLExpiry)
	result := &model.MixdownResultResponse{
		JobID:     jobID,
		FileURL:   fileURL,
		Duration:  duration,
		SizeBytes: int64(len(wav)),
		ExpiresAt: &expiresAt,
	}

	output := model.AudioAsset{URL: fileURL, Duration: duration, ContentType: "audio/wav"}
	if err := w.store.Complete(ctx, jobID, output, result); err != nil {
		w.failJob(ctx, jobID, "Failed to save result")
		return err
	}

	w.hub.BroadcastComplete(jobID, result)
	log.Printf("Mixdown job %s completed (%.1fs, %d bytes)", jobID, duration, len(wav))
	return nil
}

func (w *MixdownWorker) updateProgress(ctx context.Context, jobID string, progress int, step string) {
	if err := w.store.UpdateProgress(ctx, jobID, progress, step); err != nil {
		log.Printf("Failed to update progress: %v", err)
	}
	w.hub.BroadcastProgress(jobID, progress, model.JobStatusProcessing, step)
}

func (w *MixdownWorker) failJob(ctx context.Context, jobID, errMsg string) {
	if err := w.store.Fail(ctx, jobID, errMsg); err != nil {
		log.Printf("Failed to mark job as failed: %v", err)
	}
	w.hub.BroadcastError(jobID, "MIXDOWN_FAILED", errMsg)
}
