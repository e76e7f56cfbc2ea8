package audio

import (
	"context"
	"fmt"
	"time"
)

// Track state machine: Empty -> Loading -> Ready -> (Playing <-> Paused) ->
// Ended | Empty, with load failures landing in the terminal Error state.
type State string

const (
	StateEmpty   State = "empty"
	StateLoading State = "loading"
	StateReady   State = "ready"
	StatePlaying State = "playing"
	StatePaused  State = "paused"
	StateEnded   State = "ended"
	StateError   State = "error"
)

// Events is the subscription surface for a playback session. OnReady always
// precedes any OnProgress; OnEnded and OnError fire at most once per load.
type Events struct {
	OnReady    func(duration float64)
	OnProgress func(position float64)
	OnEnded    func()
	OnError    func(err error)
}

// Loader resolves a URL to playable media metadata.
type Loader interface {
	Load(ctx context.Context, url string) (duration float64, err error)
}

// Track manages one decodable audio resource's transport life cycle. The
// position advances against an injected clock while playing, so tests can
// drive time explicitly.
type Track struct {
	loader Loader
	now    func() time.Time

	state    State
	url      string
	duration float64
	volume   float64

	// Transport anchor: position at anchorTime, advancing while playing.
	position   float64
	anchorTime time.Time

	events    Events
	readySent bool
	endedSent bool
	closed    bool
}

// NewTrack creates an unloaded track.
func NewTrack(loader Loader) *Track {
	return &Track{
		loader: loader,
		now:    time.Now,
		state:  StateEmpty,
		volume: 1.0,
	}
}

// SetClock injects a time source. Must be called before Load.
func (t *Track) SetClock(now func() time.Time) { t.now = now }

// Subscribe registers the event callbacks for this track.
func (t *Track) Subscribe(ev Events) { t.events = ev }

// State returns the current transport state.
func (t *Track) State() State { return t.state }

// IsLoading reports whether metadata resolution is still in flight.
func (t *Track) IsLoading() bool { return t.state == StateLoading }

// Duration returns the known media duration, 0 until ready.
func (t *Track) Duration() float64 { return t.duration }

// Volume returns the per-track gain.
func (t *Track) Volume() float64 { return t.volume }

// SetVolume applies per-track gain without touching the transport position.
func (t *Track) SetVolume(v float64) {
	if v < 0 {
		v = 0
	}
	t.volume = v
}

// Load resolves the resource's metadata. A failure is terminal for this
// load: the track lands in StateError with the loading flag cleared, and no
// automatic retry happens.
func (t *Track) Load(ctx context.Context, url string) error {
	t.state = StateLoading
	t.url = url
	t.position = 0
	t.readySent = false
	t.endedSent = false

	duration, err := t.loader.Load(ctx, url)
	if err != nil {
		t.state = StateError
		if t.events.OnError != nil && !t.closed {
			t.events.OnError(err)
		}
		return err
	}

	t.duration = duration
	t.state = StateReady
	if t.events.OnReady != nil && !t.readySent && !t.closed {
		t.readySent = true
		t.events.OnReady(duration)
	}
	return nil
}

// Play starts or resumes playback from the current position.
func (t *Track) Play() error {
	switch t.state {
	case StateReady, StatePaused:
		t.anchorTime = t.now()
		t.state = StatePlaying
		return nil
	case StateEnded:
		t.position = 0
		t.anchorTime = t.now()
		t.state = StatePlaying
		return nil
	case StatePlaying:
		return nil
	default:
		return fmt.Errorf("cannot play from state %s", t.state)
	}
}

// Pause freezes the transport at the current position.
func (t *Track) Pause() {
	if t.state != StatePlaying {
		return
	}
	t.position = t.CurrentTime()
	t.state = StatePaused
}

// Seek moves the transport position, clamped to [0, duration].
func (t *Track) Seek(position float64) {
	if position < 0 {
		position = 0
	}
	if t.duration > 0 && position > t.duration {
		position = t.duration
	}
	t.position = position
	t.anchorTime = t.now()
}

// Stop pauses and rewinds to zero.
func (t *Track) Stop() {
	t.Pause()
	t.position = 0
	if t.state == StatePaused {
		t.state = StateReady
	}
}

// CurrentTime returns the transport position, advanced by wall time while
// playing.
func (t *Track) CurrentTime() float64 {
	if t.state != StatePlaying {
		return t.position
	}
	pos := t.position + t.now().Sub(t.anchorTime).Seconds()
	if t.duration > 0 && pos > t.duration {
		return t.duration
	}
	return pos
}

// Tick advances the update cadence: emits OnProgress while playing and
// transitions to Ended (emitting OnEnded once) when the duration is reached.
func (t *Track) Tick() {
	if t.closed || t.state != StatePlaying {
		return
	}

	pos := t.CurrentTime()
	if t.duration > 0 && pos >= t.duration {
		t.position = t.duration
		t.state = StateEnded
		if t.events.OnEnded != nil && !t.endedSent {
			t.endedSent = true
			t.events.OnEnded()
		}
		return
	}

	if t.events.OnProgress != nil {
		t.events.OnProgress(pos)
	}
}

// Close eagerly releases the track. No callback fires after Close returns.
func (t *Track) Close() {
	t.Pause()
	t.closed = true
	t.state = StateEmpty
	t.events = Events{}
}

// DualEngine keeps a vocal and an instrumental track time-synchronized. The
// instrumental is the timing master: its duration and position drive the
// externally reported transport state, and its ended event alone declares the
// combined playback finished.
type DualEngine struct {
	vocal        *Track
	instrumental *Track
	events       Events
	playing      bool
	closed       bool
}

// NewDualEngine creates a dual-track engine over the given loader.
func NewDualEngine(loader Loader) *DualEngine {
	d := &DualEngine{
		vocal:        NewTrack(loader),
		instrumental: NewTrack(loader),
	}

	// The instrumental drives all externally visible transport events.
	d.instrumental.Subscribe(Events{
		OnReady: func(duration float64) {
			if d.events.OnReady != nil {
				d.events.OnReady(duration)
			}
		},
		OnProgress: func(position float64) {
			if d.events.OnProgress != nil {
				d.events.OnProgress(position)
			}
		},
		OnError: func(err error) {
			if d.events.OnError != nil {
				d.events.OnError(err)
			}
		},
		OnEnded: d.onInstrumentalEnded,
	})
	d.vocal.Subscribe(Events{
		OnError: func(err error) {
			if d.events.OnError != nil {
				d.events.OnError(err)
			}
		},
	})

	return d
}

// SetClock injects a time source into both tracks.
func (d *DualEngine) SetClock(now func() time.Time) {
	d.vocal.SetClock(now)
	d.instrumental.SetClock(now)
}

// Subscribe registers callbacks. Transport events are driven by the
// instrumental track only.
func (d *DualEngine) Subscribe(ev Events) {
	d.events = ev
}

// Load resolves both resources. Either failure is terminal for the session.
func (d *DualEngine) Load(ctx context.Context, vocalURL, instrumentalURL string) error {
	if err := d.instrumental.Load(ctx, instrumentalURL); err != nil {
		return err
	}
	return d.vocal.Load(ctx, vocalURL)
}

// Play force-sets the vocal position to the instrumental's immediately before
// starting both, correcting any drift from one-sided seeking. The combined
// isPlaying flag flips only after both tracks started, so a caller never
// observes one playing without the other.
func (d *DualEngine) Play() error {
	d.vocal.Seek(d.instrumental.CurrentTime())

	if err := d.instrumental.Play(); err != nil {
		return err
	}
	if err := d.vocal.Play(); err != nil {
		d.instrumental.Pause()
		return err
	}

	d.playing = true
	return nil
}

// Pause freezes both tracks.
func (d *DualEngine) Pause() {
	d.instrumental.Pause()
	d.vocal.Pause()
	d.playing = false
}

// Seek moves both tracks to the same position.
func (d *DualEngine) Seek(position float64) {
	d.instrumental.Seek(position)
	d.vocal.Seek(position)
}

// SeekVocal moves only the vocal track, introducing deliberate drift. The
// next Play corrects it.
func (d *DualEngine) SeekVocal(position float64) { d.vocal.Seek(position) }

// SetVocalVolume applies gain to the vocal track only.
func (d *DualEngine) SetVocalVolume(v float64) { d.vocal.SetVolume(v) }

// SetInstrumentalVolume applies gain to the instrumental track only.
func (d *DualEngine) SetInstrumentalVolume(v float64) { d.instrumental.SetVolume(v) }

// IsPlaying reports the combined playback flag.
func (d *DualEngine) IsPlaying() bool { return d.playing }

// Position returns the timing master's transport position.
func (d *DualEngine) Position() float64 { return d.instrumental.CurrentTime() }

// VocalPosition returns the vocal track's own position (diagnostics only).
func (d *DualEngine) VocalPosition() float64 { return d.vocal.CurrentTime() }

// Duration returns the timing master's duration.
func (d *DualEngine) Duration() float64 { return d.instrumental.Duration() }

// Tick drives the update cadence on both tracks.
func (d *DualEngine) Tick() {
	if d.closed {
		return
	}
	d.instrumental.Tick()
	d.vocal.Tick()
}

func (d *DualEngine) onInstrumentalEnded() {
	d.playing = false
	d.vocal.Stop()
	d.instrumental.Seek(0)
	if d.events.OnEnded != nil && !d.closed {
		d.events.OnEnded()
	}
}

// Close eagerly pauses and releases both tracks; no callback fires after.
func (d *DualEngine) Close() {
	d.closed = true
	d.playing = false
	d.vocal.Close()
	d.instrumental.Close()
	d.events = Events{}
}
