package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/vocalbooth/api/internal/client"
	"github.com/vocalbooth/api/internal/model"
)

// stageOutcome scripts one stage's terminal result.
type stageOutcome struct {
	update model.JobUpdate
	err    error
}

// fakeRunner records submissions and replays scripted outcomes per stage.
type fakeRunner struct {
	outcomes []stageOutcome
	submits  []map[string]interface{}
	// afterPoll runs after each PollUntilTerminal, before returning.
	afterPoll func()
}

func (f *fakeRunner) Submit(_ context.Context, _ string, payload interface{}) (*client.SubmitResult, error) {
	m, _ := payload.(map[string]interface{})
	f.submits = append(f.submits, m)
	return &client.SubmitResult{TaskID: fmt.Sprintf("task-%d", len(f.submits))}, nil
}

func (f *fakeRunner) Poll(_ context.Context, _ string, _ string) (model.JobUpdate, error) {
	return model.JobUpdate{Status: model.JobStatusProcessing}, nil
}

func (f *fakeRunner) PollUntilTerminal(_ context.Context, _ string, _ string, opts client.PollOptions) (model.JobUpdate, error) {
	if opts.Cancelled != nil && opts.Cancelled() {
		return model.JobUpdate{}, client.ErrAborted
	}
	idx := len(f.submits) - 1
	out := f.outcomes[idx]
	if opts.OnProgress != nil && out.err == nil {
		opts.OnProgress(50, "halfway")
	}
	if f.afterPoll != nil {
		f.afterPoll()
	}
	return out.update, out.err
}

func succeededWith(url string) stageOutcome {
	return stageOutcome{update: model.JobUpdate{Status: model.JobStatusSucceeded, OutputURL: url}}
}

func testPayload(master bool) *model.ProduceJobPayload {
	return &model.ProduceJobPayload{
		Mode:            model.ProduceModeProduce,
		VocalURL:        "https://cdn/raw-vocal.wav",
		InstrumentalURL: "https://cdn/instrumental.mp3",
		Master:          master,
	}
}

func TestRunChainsStageOutputs(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		succeededWith("https://cdn/clean.wav"),
		succeededWith("https://cdn/mixed.mp3"),
	}}
	orch := New(runner, time.Second, 10)

	stages := ProductionStages(testPayload(false))
	result, err := orch.Run(context.Background(), stages, nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(runner.submits) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(runner.submits))
	}

	// Stage 1 gets the raw vocal; stage 2 gets stage 1's output.
	if got := runner.submits[0]["audioUrl"]; got != "https://cdn/raw-vocal.wav" {
		t.Errorf("stage 1 input: %v", got)
	}
	if got := runner.submits[1]["vocalUrl"]; got != "https://cdn/clean.wav" {
		t.Errorf("stage 2 must consume stage 1 output, got %v", got)
	}
	if got := runner.submits[1]["mode"]; got != "mix" {
		t.Errorf("stage 2 mode: %v", got)
	}

	if result.Final == nil || result.Final.URL != "https://cdn/mixed.mp3" {
		t.Errorf("expected final mixed asset, got %+v", result.Final)
	}
	if result.Run.Status != model.JobStatusSucceeded {
		t.Errorf("expected succeeded run, got %s", result.Run.Status)
	}
	if len(result.Run.Stages) != 2 {
		t.Errorf("expected 2 recorded stages, got %d", len(result.Run.Stages))
	}
}

func TestRunMasterStageReusesCleanedVocal(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		succeededWith("https://cdn/clean.wav"),
		succeededWith("https://cdn/mixed.mp3"),
		succeededWith("https://cdn/mastered.mp3"),
	}}
	orch := New(runner, time.Second, 10)

	result, err := orch.Run(context.Background(), ProductionStages(testPayload(true)), nil)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(runner.submits) != 3 {
		t.Fatalf("expected 3 submissions, got %d", len(runner.submits))
	}
	if got := runner.submits[2]["vocalUrl"]; got != "https://cdn/clean.wav" {
		t.Errorf("master stage must reuse the cleaned vocal, got %v", got)
	}
	if got := runner.submits[2]["mode"]; got != "master" {
		t.Errorf("master stage mode: %v", got)
	}
	if result.Final.URL != "https://cdn/mastered.mp3" {
		t.Errorf("expected mastered final, got %s", result.Final.URL)
	}
}

func TestRunStageFailureStopsSubmission(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		{update: model.JobUpdate{Status: model.JobStatusFailed, Message: "vocal too noisy to separate"}},
		succeededWith("https://cdn/never.mp3"),
	}}
	orch := New(runner, time.Second, 10)

	result, err := orch.Run(context.Background(), ProductionStages(testPayload(false)), nil)
	if err == nil {
		t.Fatal("expected run error")
	}
	if err.Error() != "vocal too noisy to separate" {
		t.Errorf("provider message altered: %q", err.Error())
	}

	if len(runner.submits) != 1 {
		t.Fatalf("later stage submitted after failure: %d submissions", len(runner.submits))
	}
	if result.Run.Status != model.JobStatusFailed {
		t.Errorf("expected failed run, got %s", result.Run.Status)
	}
	if len(result.Run.Stages) != 1 || result.Run.Stages[0].Status != model.JobStatusFailed {
		t.Errorf("expected one failed stage recorded, got %+v", result.Run.Stages)
	}
}

func TestRunTimeoutStopsSubmission(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		{err: &client.TimeoutError{TaskID: "task-1", Attempts: 120, Interval: time.Second}},
		succeededWith("https://cdn/never.mp3"),
	}}
	orch := New(runner, time.Second, 120)

	_, err := orch.Run(context.Background(), ProductionStages(testPayload(false)), nil)
	var timeoutErr *client.TimeoutError
	if !errors.As(err, &timeoutErr) {
		t.Fatalf("expected *TimeoutError, got %v", err)
	}
	if len(runner.submits) != 1 {
		t.Errorf("later stage submitted after timeout: %d submissions", len(runner.submits))
	}
}

func TestRunProgressIsMonotonic(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		succeededWith("https://cdn/clean.wav"),
		succeededWith("https://cdn/mixed.mp3"),
		succeededWith("https://cdn/mastered.mp3"),
	}}
	orch := New(runner, time.Second, 10)

	var percents []int
	_, err := orch.Run(context.Background(), ProductionStages(testPayload(true)), func(pct int, _ string) {
		percents = append(percents, pct)
	})
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(percents) == 0 {
		t.Fatal("expected progress reports")
	}
	for i := 1; i < len(percents); i++ {
		if percents[i] < percents[i-1] {
			t.Fatalf("progress regressed: %v", percents)
		}
	}
	if last := percents[len(percents)-1]; last != 100 {
		t.Errorf("expected final progress 100, got %d", last)
	}
	for _, p := range percents {
		if p < 0 || p > 100 {
			t.Fatalf("progress out of range: %d", p)
		}
	}
}

func TestRunAbortBeforeFirstStage(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{succeededWith("https://cdn/x.mp3")}}
	orch := New(runner, time.Second, 10)
	orch.Abort()

	_, err := orch.Run(context.Background(), ProductionStages(testPayload(false)), nil)
	if !errors.Is(err, client.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(runner.submits) != 0 {
		t.Errorf("no stage may be submitted after abort, got %d", len(runner.submits))
	}
}

func TestRunAbortBetweenStages(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{
		succeededWith("https://cdn/clean.wav"),
		succeededWith("https://cdn/never.mp3"),
	}}
	orch := New(runner, time.Second, 10)
	runner.afterPoll = orch.Abort

	result, err := orch.Run(context.Background(), ProductionStages(testPayload(false)), nil)
	if !errors.Is(err, client.ErrAborted) {
		t.Fatalf("expected ErrAborted, got %v", err)
	}
	if len(runner.submits) != 1 {
		t.Errorf("stage 2 submitted after abort: %d submissions", len(runner.submits))
	}
	// Stage 1's success is still recorded.
	if len(result.Run.Stages) == 0 || result.Run.Stages[0].Status != model.JobStatusSucceeded {
		t.Errorf("expected stage 1 success preserved, got %+v", result.Run.Stages)
	}
}

func TestRunExternalAbortCheck(t *testing.T) {
	runner := &fakeRunner{outcomes: []stageOutcome{succeededWith("https://cdn/x.mp3")}}
	orch := New(runner, time.Second, 10)
	orch.SetAbortCheck(func() bool { return true })

	_, err := orch.Run(context.Background(), ProductionStages(testPayload(false)), nil)
	if !errors.Is(err, client.ErrAborted) {
		t.Fatalf("expected ErrAborted from external check, got %v", err)
	}
}

func TestStagesForModes(t *testing.T) {
	produce, err := StagesFor(testPayload(false))
	if err != nil {
		t.Fatalf("produce mode failed: %v", err)
	}
	if len(produce) != 2 {
		t.Errorf("expected 2 stages without mastering, got %d", len(produce))
	}

	mastered, err := StagesFor(testPayload(true))
	if err != nil {
		t.Fatalf("produce+master mode failed: %v", err)
	}
	if len(mastered) != 3 {
		t.Errorf("expected 3 stages with mastering, got %d", len(mastered))
	}

	gen, err := StagesFor(&model.ProduceJobPayload{Mode: model.ProduceModeGenerate, VocalURL: "https://cdn/v.wav"})
	if err != nil {
		t.Fatalf("generate mode failed: %v", err)
	}
	if len(gen) != 1 {
		t.Errorf("expected single generation stage, got %d", len(gen))
	}

	if _, err := StagesFor(&model.ProduceJobPayload{Mode: "remix"}); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestGenerationStagePayload(t *testing.T) {
	stages := GenerationStages(&model.ProduceJobPayload{
		Mode:     model.ProduceModeGenerate,
		VocalURL: "https://cdn/v.wav",
		SongName: "Booth Session",
		Style:    "synthpop",
	})

	payload, err := stages[0].Payload(nil)
	if err != nil {
		t.Fatalf("payload failed: %v", err)
	}
	urls, ok := payload["audioUrls"].([]string)
	if !ok || len(urls) != 1 || urls[0] != "https://cdn/v.wav" {
		t.Errorf("unexpected audioUrls: %v", payload["audioUrls"])
	}
	if payload["vocalGender"] != string(model.VocalGenderAny) {
		t.Errorf("expected gender default, got %v", payload["vocalGender"])
	}
}
