package model

import "time"

// StructureAnalyzeRequest is the request for POST /api/structure/analyze
type StructureAnalyzeRequest struct {
	AudioURL string  `json:"audioUrl" validate:"required,url"`
	Duration float64 `json:"duration" validate:"required,gt=0"`
	Title    string  `json:"title,omitempty" validate:"omitempty,max=200"`
}

// StructureAnalyzeResponse returns all sections plus the verse/chorus subset
// the guided-recording flow actually prompts for.
type StructureAnalyzeResponse struct {
	Sections   []SongSection `json:"sections"`
	Recordable []SongSection `json:"recordable"`
}

// ProduceStartRequest is the request for POST /api/produce/start.
// Mode "produce" (default) needs both URLs; mode "generate" needs only the
// vocal plus the generation parameters.
type ProduceStartRequest struct {
	Mode            ProduceMode `json:"mode,omitempty" validate:"omitempty,oneof=produce generate"`
	VocalURL        string      `json:"vocalUrl" validate:"required,url"`
	InstrumentalURL string      `json:"instrumentalUrl,omitempty" validate:"omitempty,url"`
	SongName        string      `json:"songName,omitempty" validate:"omitempty,max=200"`
	Master          bool        `json:"master,omitempty"`
	Style           string      `json:"style,omitempty" validate:"omitempty,max=500"`
	NegativeTags    string      `json:"negativeTags,omitempty" validate:"omitempty,max=500"`
	VocalGender     VocalGender `json:"vocalGender,omitempty" validate:"omitempty,oneof=female male any"`
}

// ProduceStartResponse acknowledges a queued pipeline run.
type ProduceStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// ProduceStatusResponse reports current pipeline progress.
type ProduceStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	StartedAt   *time.Time `json:"startedAt,omitempty"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// ProduceStageResult reports one completed (or failed) pipeline stage, so a
// caller can A/B compare intermediates or re-run only the failed stage.
type ProduceStageResult struct {
	Name   string      `json:"name"`
	Kind   JobKind     `json:"kind"`
	Status JobStatus   `json:"status"`
	Output *AudioAsset `json:"output,omitempty"`
	Error  *string     `json:"error,omitempty"`
}

// ProduceResultResponse is the terminal result of a pipeline run. Stages that
// succeeded before a later failure are still listed.
type ProduceResultResponse struct {
	JobID  string               `json:"jobId"`
	Status JobStatus            `json:"status"`
	Stages []ProduceStageResult `json:"stages"`
	Final  *AudioAsset          `json:"final,omitempty"`
}

// ProduceAbortResponse acknowledges a cooperative abort request.
type ProduceAbortResponse struct {
	JobID   string    `json:"jobId"`
	Status  JobStatus `json:"status"`
	Aborted bool      `json:"aborted"`
}

// MixdownStartRequest is the request for POST /api/mixdown/start
type MixdownStartRequest struct {
	VoiceURL         string  `json:"voiceUrl" validate:"required,url"`
	InstrumentalURL  string  `json:"instrumentalUrl" validate:"required,url"`
	VoiceGain        float64 `json:"voiceGain" validate:"gte=0,lte=4"`
	InstrumentalGain float64 `json:"instrumentalGain" validate:"gte=0,lte=4"`
	SongName         string  `json:"songName,omitempty" validate:"omitempty,max=200"`
}

// MixdownStartResponse acknowledges a queued mixdown job.
type MixdownStartResponse struct {
	JobID     string    `json:"jobId"`
	Status    JobStatus `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

// MixdownStatusResponse reports mixdown progress.
type MixdownStatusResponse struct {
	JobID       string     `json:"jobId"`
	Status      JobStatus  `json:"status"`
	Progress    int        `json:"progress"`
	CurrentStep string     `json:"currentStep,omitempty"`
	Error       *string    `json:"error,omitempty"`
	SubmittedAt time.Time  `json:"submittedAt"`
	CompletedAt *time.Time `json:"completedAt,omitempty"`
}

// MixdownResultResponse carries the stored WAV's location and size.
type MixdownResultResponse struct {
	JobID     string     `json:"jobId"`
	FileURL   string     `json:"fileUrl"`
	Duration  float64    `json:"duration"`
	SizeBytes int64      `json:"sizeBytes"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// PlaybackEmailRequest is the request for POST /api/playback/email
type PlaybackEmailRequest struct {
	Email        string `json:"email" validate:"required,email"`
	AudioURL     string `json:"audioUrl" validate:"required,url"`
	SongName     string `json:"songName" validate:"required,max=200"`
	CustomerName string `json:"customerName,omitempty" validate:"omitempty,max=200"`
}

// PlaybackEmailResponse mirrors the dispatch collaborator's result.
type PlaybackEmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
}
