package structure

import (
	"context"
	"log"

	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
)

const analyzeFunction = "analyze-song-structure"

// EmptyResultError means the provider answered successfully but returned zero
// sections. A usable-but-empty result, not a transport failure: the caller
// decides whether to retry or fall back to manual section entry.
type EmptyResultError struct {
	AudioURL string
}

func (e *EmptyResultError) Error() string {
	return "structure analysis returned no sections for " + e.AudioURL
}

// Analyzer maps a song URL plus declared duration to an ordered sequence of
// labeled sections, in one submit-and-wait provider call.
type Analyzer struct {
	invoker client.FunctionInvoker
}

// NewAnalyzer creates a structure analyzer over the invocation channel.
func NewAnalyzer(invoker client.FunctionInvoker) *Analyzer {
	return &Analyzer{invoker: invoker}
}

type analyzeRequest struct {
	AudioURL string  `json:"audioUrl"`
	Duration float64 `json:"duration"`
	Title    string  `json:"title,omitempty"`
}

type analyzeResponse struct {
	Sections []model.SongSection `json:"sections"`
}

// Analyze performs one structure-analysis call. Sections with unrecognized
// labels or malformed intervals are dropped; coverage of [0, duration] and
// non-overlap are deliberately not enforced.
func (a *Analyzer) Analyze(ctx context.Context, audioURL string, duration float64, title string) ([]model.SongSection, error) {
	req := analyzeRequest{AudioURL: audioURL, Duration: duration, Title: title}

	var resp analyzeResponse
	if err := a.invoker.Invoke(ctx, analyzeFunction, req, &resp); err != nil {
		return nil, err
	}

	sections := sanitize(resp.Sections)
	if len(sections) == 0 {
		return nil, &EmptyResultError{AudioURL: audioURL}
	}

	log.Printf("[Structure] %s: %d sections", audioURL, len(sections))
	return sections, nil
}

func sanitize(sections []model.SongSection) []model.SongSection {
	var out []model.SongSection
	for _, s := range sections {
		if !s.Type.Valid() || !s.WellFormed() {
			continue
		}
		if s.Duration == 0 {
			s.Duration = s.EndTime - s.StartTime
		}
		out = append(out, s)
	}
	return out
}
