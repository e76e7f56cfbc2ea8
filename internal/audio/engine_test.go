package audio

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"
)

// fakeLoader resolves URLs to fixed durations.
type fakeLoader struct {
	durations map[string]float64
}

func (l *fakeLoader) Load(_ context.Context, url string) (float64, error) {
	d, ok := l.durations[url]
	if !ok {
		return 0, fmt.Errorf("media not found: %s", url)
	}
	return d, nil
}

// testClock is a manually advanced time source.
type testClock struct {
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Unix(1700000000, 0)}
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }
func (c *testClock) AdvanceSeconds(s float64) {
	c.Advance(time.Duration(s * float64(time.Second)))
}

func TestTrackLoadErrorIsTerminal(t *testing.T) {
	track := NewTrack(&fakeLoader{durations: map[string]float64{}})

	var gotErr error
	track.Subscribe(Events{OnError: func(err error) { gotErr = err }})

	if err := track.Load(context.Background(), "missing.mp3"); err == nil {
		t.Fatal("expected load error")
	}
	if track.State() != StateError {
		t.Errorf("expected state error, got %s", track.State())
	}
	if track.IsLoading() {
		t.Error("loading flag must be cleared after a failed load")
	}
	if gotErr == nil {
		t.Error("expected OnError callback")
	}
	if err := track.Play(); err == nil {
		t.Error("expected play to fail from error state")
	}
}

func TestTrackPlaybackLifecycle(t *testing.T) {
	clock := newTestClock()
	track := NewTrack(&fakeLoader{durations: map[string]float64{"song.mp3": 10}})
	track.SetClock(clock.Now)

	var readyDur float64
	endedCount := 0
	track.Subscribe(Events{
		OnReady: func(d float64) { readyDur = d },
		OnEnded: func() { endedCount++ },
	})

	if err := track.Load(context.Background(), "song.mp3"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if readyDur != 10 {
		t.Errorf("expected OnReady with duration 10, got %f", readyDur)
	}

	if err := track.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	clock.AdvanceSeconds(4)
	if got := track.CurrentTime(); math.Abs(got-4) > 0.001 {
		t.Errorf("expected position 4, got %f", got)
	}

	track.Pause()
	clock.AdvanceSeconds(5)
	if got := track.CurrentTime(); math.Abs(got-4) > 0.001 {
		t.Errorf("position must not advance while paused, got %f", got)
	}

	if err := track.Play(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	clock.AdvanceSeconds(7)
	track.Tick()
	if track.State() != StateEnded {
		t.Errorf("expected ended state, got %s", track.State())
	}
	if endedCount != 1 {
		t.Errorf("expected exactly one OnEnded, got %d", endedCount)
	}

	// A second tick past the end must not re-fire the callback.
	track.Tick()
	if endedCount != 1 {
		t.Errorf("OnEnded fired again, got %d", endedCount)
	}
}

func TestTrackSeekClamps(t *testing.T) {
	track := NewTrack(&fakeLoader{durations: map[string]float64{"song.mp3": 10}})
	if err := track.Load(context.Background(), "song.mp3"); err != nil {
		t.Fatalf("load failed: %v", err)
	}

	track.Seek(-5)
	if got := track.CurrentTime(); got != 0 {
		t.Errorf("expected clamp to 0, got %f", got)
	}
	track.Seek(99)
	if got := track.CurrentTime(); got != 10 {
		t.Errorf("expected clamp to duration, got %f", got)
	}
}

func TestTrackCloseSilencesCallbacks(t *testing.T) {
	clock := newTestClock()
	track := NewTrack(&fakeLoader{durations: map[string]float64{"song.mp3": 10}})
	track.SetClock(clock.Now)

	fired := false
	track.Subscribe(Events{
		OnProgress: func(float64) { fired = true },
		OnEnded:    func() { fired = true },
	})

	if err := track.Load(context.Background(), "song.mp3"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if err := track.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	track.Close()
	clock.AdvanceSeconds(20)
	track.Tick()
	if fired {
		t.Error("no callback may fire after Close")
	}
}

func dualEngineForTest(t *testing.T, vocalDur, instDur float64) (*DualEngine, *testClock) {
	t.Helper()
	clock := newTestClock()
	engine := NewDualEngine(&fakeLoader{durations: map[string]float64{
		"vocal.wav": vocalDur,
		"inst.mp3":  instDur,
	}})
	engine.SetClock(clock.Now)
	if err := engine.Load(context.Background(), "vocal.wav", "inst.mp3"); err != nil {
		t.Fatalf("load failed: %v", err)
	}
	return engine, clock
}

func TestDualEngineResyncsVocalBeforePlay(t *testing.T) {
	engine, _ := dualEngineForTest(t, 180, 180)

	// Drift the vocal deliberately; the next play must snap it back to the
	// instrumental's position.
	engine.SeekVocal(42)
	if err := engine.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}

	if got := engine.VocalPosition(); math.Abs(got-engine.Position()) > 0.001 {
		t.Errorf("expected vocal at instrumental position %f, got %f", engine.Position(), got)
	}
	if !engine.IsPlaying() {
		t.Error("expected playing after Play")
	}
}

func TestDualEngineInstrumentalIsTimingMaster(t *testing.T) {
	engine, clock := dualEngineForTest(t, 150, 180)

	if got := engine.Duration(); got != 180 {
		t.Errorf("expected instrumental duration 180, got %f", got)
	}

	if err := engine.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	clock.AdvanceSeconds(30)
	if got := engine.Position(); math.Abs(got-30) > 0.001 {
		t.Errorf("expected position 30, got %f", got)
	}
}

func TestDualEngineEndRewindsBoth(t *testing.T) {
	engine, clock := dualEngineForTest(t, 60, 60)

	endedCount := 0
	engine.Subscribe(Events{OnEnded: func() { endedCount++ }})

	if err := engine.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	clock.AdvanceSeconds(61)
	engine.Tick()

	if endedCount != 1 {
		t.Fatalf("expected exactly one OnEnded, got %d", endedCount)
	}
	if engine.IsPlaying() {
		t.Error("expected stopped after end")
	}
	if got := engine.Position(); got != 0 {
		t.Errorf("expected rewind to 0, got %f", got)
	}
	if got := engine.VocalPosition(); got != 0 {
		t.Errorf("expected vocal rewind to 0, got %f", got)
	}
}

func TestDualEnginePauseSeekResume(t *testing.T) {
	engine, clock := dualEngineForTest(t, 120, 120)

	if err := engine.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	clock.AdvanceSeconds(10)
	engine.Pause()
	engine.Seek(50)

	if err := engine.Play(); err != nil {
		t.Fatalf("resume failed: %v", err)
	}
	clock.AdvanceSeconds(5)
	if got := engine.Position(); math.Abs(got-55) > 0.001 {
		t.Errorf("expected position 55, got %f", got)
	}
	if got := engine.VocalPosition(); math.Abs(got-55) > 0.001 {
		t.Errorf("expected vocal in sync at 55, got %f", got)
	}
}

func TestDualEngineCloseSilencesCallbacks(t *testing.T) {
	engine, clock := dualEngineForTest(t, 60, 60)

	fired := false
	engine.Subscribe(Events{
		OnProgress: func(float64) { fired = true },
		OnEnded:    func() { fired = true },
	})

	if err := engine.Play(); err != nil {
		t.Fatalf("play failed: %v", err)
	}
	engine.Close()
	clock.AdvanceSeconds(120)
	engine.Tick()

	if fired {
		t.Error("no callback may fire after Close")
	}
}
