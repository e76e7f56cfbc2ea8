package audio

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"
)

// FetchError means a source resource could not be downloaded.
type FetchError struct {
	URL string
	Err error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DecodeError means a fetched resource is not valid audio.
type DecodeError struct {
	URL string
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode %s: %v", e.URL, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// RenderError means the offline rendering itself failed.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("offline render failed: %v", e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Fetcher downloads a URL fully into memory.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// HTTPFetcher implements Fetcher over plain HTTP.
type HTTPFetcher struct {
	httpClient *http.Client
}

// NewHTTPFetcher creates a fetcher with the given per-request timeout.
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	return &HTTPFetcher{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Fetch downloads the resource at url.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}

// Decoder turns a compressed or container byte stream into a sample buffer.
type Decoder interface {
	Decode(data []byte) (*Buffer, error)
}

// WAVDecoder decodes 16-bit PCM WAV streams.
type WAVDecoder struct{}

// Decode implements Decoder.
func (WAVDecoder) Decode(data []byte) (*Buffer, error) {
	return DecodeWAV(data)
}

// OfflineMixer renders two audio sources into a single WAV byte stream with
// independent per-track gain, as fast as possible rather than in realtime.
type OfflineMixer struct {
	fetcher Fetcher
	decoder Decoder
}

// NewOfflineMixer creates a mixer over the given fetch and decode backends.
func NewOfflineMixer(fetcher Fetcher, decoder Decoder) *OfflineMixer {
	return &OfflineMixer{fetcher: fetcher, decoder: decoder}
}

// Mix downloads both sources, decodes them, sums them with the given gains at
// 44.1 kHz stereo, and returns the result as a WAV byte stream. The output
// spans the longer of the two sources; the shorter one is padded with
// silence. All failure modes are terminal with no partial output.
func (m *OfflineMixer) Mix(ctx context.Context, voiceURL, instrumentalURL string, voiceGain, instrumentalGain float64) ([]byte, error) {
	voiceData, err := m.fetcher.Fetch(ctx, voiceURL)
	if err != nil {
		return nil, &FetchError{URL: voiceURL, Err: err}
	}
	instData, err := m.fetcher.Fetch(ctx, instrumentalURL)
	if err != nil {
		return nil, &FetchError{URL: instrumentalURL, Err: err}
	}

	voice, err := m.decoder.Decode(voiceData)
	if err != nil {
		return nil, &DecodeError{URL: voiceURL, Err: err}
	}
	inst, err := m.decoder.Decode(instData)
	if err != nil {
		return nil, &DecodeError{URL: instrumentalURL, Err: err}
	}

	mixed, err := RenderMix(voice, inst, voiceGain, instrumentalGain)
	if err != nil {
		return nil, &RenderError{Err: err}
	}

	return EncodeWAV(mixed), nil
}

// RenderMix sums two decoded buffers into one stereo buffer at the mix
// sample rate. Both inputs are converted to stereo 44.1 kHz first; the
// output length is the longer of the two. Samples are not clamped here;
// clamping happens once, at integer conversion in EncodeWAV.
func RenderMix(voice, instrumental *Buffer, voiceGain, instrumentalGain float64) (*Buffer, error) {
	v, err := conform(voice)
	if err != nil {
		return nil, fmt.Errorf("voice track: %w", err)
	}
	i, err := conform(instrumental)
	if err != nil {
		return nil, fmt.Errorf("instrumental track: %w", err)
	}

	frames := v.NumFrames()
	if i.NumFrames() > frames {
		frames = i.NumFrames()
	}
	if frames == 0 {
		return nil, fmt.Errorf("both sources are empty")
	}

	out := &Buffer{
		SampleRate: MixSampleRate,
		Channels:   make([][]float64, MixChannels),
	}
	for ch := 0; ch < MixChannels; ch++ {
		out.Channels[ch] = make([]float64, frames)
		for f := 0; f < frames; f++ {
			var sum float64
			if f < v.NumFrames() {
				sum += v.Channels[ch][f] * voiceGain
			}
			if f < i.NumFrames() {
				sum += i.Channels[ch][f] * instrumentalGain
			}
			out.Channels[ch][f] = sum
		}
	}

	return out, nil
}

// conform converts a buffer to stereo at the mix sample rate.
func conform(b *Buffer) (*Buffer, error) {
	if b.SampleRate <= 0 || len(b.Channels) == 0 {
		return nil, fmt.Errorf("empty or invalid buffer")
	}

	stereo := toStereo(b)
	if stereo.SampleRate == MixSampleRate {
		return stereo, nil
	}

	resampled := &Buffer{
		SampleRate: MixSampleRate,
		Channels:   make([][]float64, MixChannels),
	}
	for ch := 0; ch < MixChannels; ch++ {
		resampled.Channels[ch] = resampleLinear(stereo.Channels[ch], stereo.SampleRate, MixSampleRate)
	}
	return resampled, nil
}

// toStereo maps mono to both channels and drops channels past the second.
func toStereo(b *Buffer) *Buffer {
	if len(b.Channels) == MixChannels {
		return b
	}
	out := &Buffer{SampleRate: b.SampleRate, Channels: make([][]float64, MixChannels)}
	if len(b.Channels) == 1 {
		out.Channels[0] = b.Channels[0]
		out.Channels[1] = b.Channels[0]
		return out
	}
	out.Channels[0] = b.Channels[0]
	out.Channels[1] = b.Channels[1]
	return out
}

// resampleLinear converts a channel between sample rates by linear
// interpolation. Good enough for voice/instrumental program material.
func resampleLinear(in []float64, from, to int) []float64 {
	if from == to || len(in) == 0 {
		return in
	}

	outLen := int(float64(len(in)) * float64(to) / float64(from))
	if outLen == 0 {
		outLen = 1
	}
	out := make([]float64, outLen)
	ratio := float64(from) / float64(to)

	for i := range out {
		pos := float64(i) * ratio
		idx := int(pos)
		if idx >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(idx)
		out[i] = in[idx]*(1-frac) + in[idx+1]*frac
	}

	return out
}
