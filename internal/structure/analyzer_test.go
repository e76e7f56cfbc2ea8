package structure

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/vocalbooth/api/internal/model"
)

// cannedInvoker answers every invocation with one fixed JSON body.
type cannedInvoker struct {
	body string
	err  error
}

func (c *cannedInvoker) InvokeRaw(_ context.Context, _ string, _ interface{}) (json.RawMessage, error) {
	if c.err != nil {
		return nil, c.err
	}
	return json.RawMessage(c.body), nil
}

func (c *cannedInvoker) Invoke(ctx context.Context, function string, payload interface{}, result interface{}) error {
	raw, err := c.InvokeRaw(ctx, function, payload)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, result)
}

func TestAnalyzeThreeMinuteSong(t *testing.T) {
	inv := &cannedInvoker{body: `{"sections": [
		{"type": "intro",  "label": "Intro",    "startTime": 0,   "endTime": 15},
		{"type": "verse",  "label": "Verse 1",  "startTime": 15,  "endTime": 45},
		{"type": "chorus", "label": "Chorus 1", "startTime": 45,  "endTime": 75},
		{"type": "verse",  "label": "Verse 2",  "startTime": 75,  "endTime": 105},
		{"type": "chorus", "label": "Chorus 2", "startTime": 105, "endTime": 150},
		{"type": "outro",  "label": "Outro",    "startTime": 150, "endTime": 180}
	]}`}

	sections, err := NewAnalyzer(inv).Analyze(context.Background(), "https://cdn/song.mp3", 180, "Song")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}

	if len(sections) != 6 {
		t.Fatalf("expected 6 sections, got %d", len(sections))
	}
	if sections[0].Type != model.SectionIntro || sections[5].Type != model.SectionOutro {
		t.Errorf("section order broken: %+v", sections)
	}
	// Duration filled from the interval when the provider omits it.
	if sections[1].Duration != 30 {
		t.Errorf("expected filled duration 30, got %f", sections[1].Duration)
	}

	recordable := model.FilterRecordable(sections)
	if len(recordable) != 4 {
		t.Fatalf("expected 4 recordable sections, got %d", len(recordable))
	}
	for _, s := range recordable {
		if s.Type != model.SectionVerse && s.Type != model.SectionChorus {
			t.Errorf("non-recordable type leaked: %s", s.Type)
		}
	}
}

func TestAnalyzeEmptyResult(t *testing.T) {
	inv := &cannedInvoker{body: `{"sections": []}`}

	_, err := NewAnalyzer(inv).Analyze(context.Background(), "https://cdn/drone.mp3", 300, "")
	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected *EmptyResultError, got %v", err)
	}
	if emptyErr.AudioURL != "https://cdn/drone.mp3" {
		t.Errorf("expected error to carry the audio URL, got %s", emptyErr.AudioURL)
	}
}

func TestAnalyzeDropsMalformedSections(t *testing.T) {
	inv := &cannedInvoker{body: `{"sections": [
		{"type": "guitar-solo", "startTime": 0,  "endTime": 20},
		{"type": "verse",       "startTime": 30, "endTime": 20},
		{"type": "chorus",      "startTime": -5, "endTime": 20},
		{"type": "verse",       "startTime": 20, "endTime": 50}
	]}`}

	sections, err := NewAnalyzer(inv).Analyze(context.Background(), "https://cdn/song.mp3", 60, "")
	if err != nil {
		t.Fatalf("analyze failed: %v", err)
	}
	if len(sections) != 1 {
		t.Fatalf("expected only the well-formed verse, got %d sections", len(sections))
	}
	if sections[0].StartTime != 20 || sections[0].EndTime != 50 {
		t.Errorf("wrong section survived: %+v", sections[0])
	}
}

func TestAnalyzeAllSectionsMalformedIsEmpty(t *testing.T) {
	inv := &cannedInvoker{body: `{"sections": [
		{"type": "drop", "startTime": 0, "endTime": 10}
	]}`}

	_, err := NewAnalyzer(inv).Analyze(context.Background(), "https://cdn/song.mp3", 60, "")
	var emptyErr *EmptyResultError
	if !errors.As(err, &emptyErr) {
		t.Fatalf("expected *EmptyResultError after sanitization, got %v", err)
	}
}

func TestAnalyzePropagatesInvokeError(t *testing.T) {
	inv := &cannedInvoker{err: fmt.Errorf("provider down")}

	_, err := NewAnalyzer(inv).Analyze(context.Background(), "https://cdn/song.mp3", 60, "")
	if err == nil || err.Error() != "provider down" {
		t.Errorf("expected verbatim invoke error, got %v", err)
	}
}
