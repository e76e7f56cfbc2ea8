package audio

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Output format for offline mixdowns: 16-bit PCM, stereo, 44.1 kHz.
const (
	MixSampleRate = 44100
	MixChannels   = 2
	BitDepth      = 16

	wavHeaderSize = 44
)

// Buffer holds decoded audio as per-channel float64 samples in [-1, 1].
type Buffer struct {
	SampleRate int
	Channels   [][]float64
}

// NumFrames returns the number of sample frames per channel.
func (b *Buffer) NumFrames() int {
	if len(b.Channels) == 0 {
		return 0
	}
	return len(b.Channels[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.NumFrames()) / float64(b.SampleRate)
}

// Clamp limits a sample to [-1, 1] so integer conversion can never wrap.
func Clamp(v float64) float64 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// EncodeWAV serializes a buffer to a RIFF/WAVE byte stream: 16-bit signed
// little-endian PCM, interleaved, with the standard 16-byte fmt block. Every
// sample is clamped before integer conversion.
func EncodeWAV(b *Buffer) []byte {
	numChannels := len(b.Channels)
	frames := b.NumFrames()
	blockAlign := numChannels * BitDepth / 8
	dataLen := frames * blockAlign

	out := make([]byte, wavHeaderSize+dataLen)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataLen))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)                             // PCM fmt block size
	binary.LittleEndian.PutUint16(out[20:22], 1)                              // audio format: PCM
	binary.LittleEndian.PutUint16(out[22:24], uint16(numChannels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(b.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(b.SampleRate*blockAlign)) // byte rate
	binary.LittleEndian.PutUint16(out[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(out[34:36], BitDepth)
	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataLen))

	pos := wavHeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			sample := Clamp(b.Channels[ch][i])
			v := int16(math.Round(sample * 32767))
			binary.LittleEndian.PutUint16(out[pos:pos+2], uint16(v))
			pos += 2
		}
	}

	return out
}

// DecodeWAV parses a 16-bit PCM RIFF/WAVE byte stream back into a buffer.
// Chunks other than fmt and data are skipped.
func DecodeWAV(data []byte) (*Buffer, error) {
	if len(data) < wavHeaderSize {
		return nil, fmt.Errorf("wav: stream too short (%d bytes)", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("wav: missing RIFF/WAVE signature")
	}

	var (
		numChannels int
		sampleRate  int
		bitsPer     int
		pcm         []byte
		haveFmt     bool
	)

	pos := 12
	for pos+8 <= len(data) {
		chunkID := string(data[pos : pos+4])
		chunkLen := int(binary.LittleEndian.Uint32(data[pos+4 : pos+8]))
		body := pos + 8
		if body+chunkLen > len(data) {
			chunkLen = len(data) - body
		}

		switch chunkID {
		case "fmt ":
			if chunkLen < 16 {
				return nil, fmt.Errorf("wav: fmt chunk too short")
			}
			format := binary.LittleEndian.Uint16(data[body : body+2])
			if format != 1 {
				return nil, fmt.Errorf("wav: unsupported audio format %d (want PCM)", format)
			}
			numChannels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPer = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+chunkLen]
		}

		// Chunks are word-aligned
		pos = body + chunkLen
		if chunkLen%2 == 1 {
			pos++
		}
	}

	if !haveFmt {
		return nil, fmt.Errorf("wav: no fmt chunk")
	}
	if pcm == nil {
		return nil, fmt.Errorf("wav: no data chunk")
	}
	if bitsPer != 16 {
		return nil, fmt.Errorf("wav: unsupported bit depth %d (want 16)", bitsPer)
	}
	if numChannels < 1 || sampleRate < 1 {
		return nil, fmt.Errorf("wav: invalid fmt (channels=%d rate=%d)", numChannels, sampleRate)
	}

	blockAlign := numChannels * 2
	frames := len(pcm) / blockAlign

	buf := &Buffer{SampleRate: sampleRate, Channels: make([][]float64, numChannels)}
	for ch := range buf.Channels {
		buf.Channels[ch] = make([]float64, frames)
	}
	for i := 0; i < frames; i++ {
		for ch := 0; ch < numChannels; ch++ {
			off := i*blockAlign + ch*2
			v := int16(binary.LittleEndian.Uint16(pcm[off : off+2]))
			buf.Channels[ch][i] = float64(v) / 32767
		}
	}

	return buf, nil
}

// WAVDuration parses a WAV stream and returns its duration in seconds.
func WAVDuration(data []byte) (float64, error) {
	buf, err := DecodeWAV(data)
	if err != nil {
		return 0, err
	}
	return buf.Duration(), nil
}
