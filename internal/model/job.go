package model

import (
	"fmt"
	"time"
)

// AudioAsset is an immutable reference to a single audio resource. Assets are
// never edited in place; a new version supersedes the old one.
type AudioAsset struct {
	URL         string  `json:"url"`
	Duration    float64 `json:"duration,omitempty"` // seconds, 0 when unknown
	ContentType string  `json:"contentType,omitempty"`
}

// Job is one unit of asynchronous external work. Status is owned exclusively
// by the polling loop that submitted it; once terminal it is never polled
// again. OutputURL is set iff status is succeeded, Error iff failed.
type Job struct {
	ID           string      `json:"id"`               // local identifier
	TaskID       string      `json:"taskId,omitempty"` // opaque provider identifier
	Type         string      `json:"type,omitempty"`   // queue routing: "produce" or "mixdown"
	Kind         JobKind     `json:"kind,omitempty"`
	Status       JobStatus   `json:"status"`
	Progress     int         `json:"progress"`
	CurrentStep  string      `json:"currentStep,omitempty"`
	InputURLs    []string    `json:"inputUrls,omitempty"`
	Output       *AudioAsset `json:"output,omitempty"`
	Error        *string     `json:"error,omitempty"`
	Payload      []byte      `json:"-"` // stored as JSON
	Result       []byte      `json:"-"` // stored as JSON
	SubmittedAt  time.Time   `json:"submittedAt"`
	StartedAt    *time.Time  `json:"startedAt,omitempty"`
	LastPolledAt *time.Time  `json:"lastPolledAt,omitempty"`
	CompletedAt  *time.Time  `json:"completedAt,omitempty"`
}

// Job types routed through the asynq queue
const (
	JobTypeProduce = "produce"
	JobTypeMixdown = "mixdown"
)

// MarkSucceeded transitions the job to succeeded with its output asset.
// Returns an error if the job is already terminal.
func (j *Job) MarkSucceeded(output AudioAsset, at time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s already terminal (%s)", j.ID, j.Status)
	}
	j.Status = JobStatusSucceeded
	j.Progress = 100
	j.Output = &output
	j.Error = nil
	j.CompletedAt = &at
	return nil
}

// MarkFailed transitions the job to failed carrying the provider's message
// verbatim. Returns an error if the job is already terminal.
func (j *Job) MarkFailed(message string, at time.Time) error {
	if j.Status.Terminal() {
		return fmt.Errorf("job %s already terminal (%s)", j.ID, j.Status)
	}
	j.Status = JobStatusFailed
	j.Output = nil
	j.Error = &message
	j.CompletedAt = &at
	return nil
}

// JobUpdate is the tagged result of parsing one provider poll response.
// Exactly one of the three states applies: while Status is processing only
// Progress may be set; on succeeded OutputURL is set; on failed Message is.
type JobUpdate struct {
	Status    JobStatus
	OutputURL string
	// Secondary outputs some providers return alongside the primary one
	// (e.g. separated vocal and instrumental URLs from song generation).
	AuxURLs  map[string]string
	Message  string
	Progress int // 0 when the provider gave no hint
}

// PipelineRun is an ordered chain of jobs where each stage's output feeds the
// next stage's input. Stage n+1 is never submitted until stage n succeeded.
type PipelineRun struct {
	ID        string     `json:"id"`
	Status    JobStatus  `json:"status"`
	Stages    []Job      `json:"stages"`
	CreatedAt time.Time  `json:"createdAt"`
	EndedAt   *time.Time `json:"endedAt,omitempty"`
}

// Produce modes: "produce" runs cleanup → mix (→ master); "generate" runs
// the single-stage AI song generation from a raw vocal.
type ProduceMode string

const (
	ProduceModeProduce  ProduceMode = "produce"
	ProduceModeGenerate ProduceMode = "generate"
)

// ProduceJobPayload carries the inputs for a production pipeline run.
type ProduceJobPayload struct {
	Mode            ProduceMode `json:"mode,omitempty"`
	VocalURL        string      `json:"vocalUrl"`
	InstrumentalURL string      `json:"instrumentalUrl,omitempty"`
	SongName        string      `json:"songName,omitempty"`
	Master          bool        `json:"master,omitempty"`

	// Generation-mode parameters
	Style        string      `json:"style,omitempty"`
	NegativeTags string      `json:"negativeTags,omitempty"`
	VocalGender  VocalGender `json:"vocalGender,omitempty"`
}

// MixdownJobPayload carries the inputs for an offline server-side mixdown.
type MixdownJobPayload struct {
	VoiceURL         string  `json:"voiceUrl"`
	InstrumentalURL  string  `json:"instrumentalUrl"`
	VoiceGain        float64 `json:"voiceGain"`
	InstrumentalGain float64 `json:"instrumentalGain"`
	SongName         string  `json:"songName,omitempty"`
}
