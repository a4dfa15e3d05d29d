package audio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM is decoded interleaved little-endian PCM16 audio.
type PCM struct {
	Data       []byte
	SampleRate int
	Channels   int
}

// Frames returns the number of frames in p.
func (p PCM) Frames() int {
	if p.Channels == 0 {
		return 0
	}
	return len(p.Data) / (p.Channels * SampleWidth)
}

// WriteWAV stores PCM16 data as a RIFF/WAVE file. The file is written next
// to path and renamed into place, so a failed write leaves nothing behind.
func WriteWAV(path string, pcm []byte, channels, sampleWidth, sampleRate int) error {
	if sampleWidth != SampleWidth {
		return fmt.Errorf("unsupported sample width %d bytes", sampleWidth)
	}
	if channels < 1 || sampleRate < 1 {
		return fmt.Errorf("invalid format: %d channels at %d Hz", channels, sampleRate)
	}
	if len(pcm)%(channels*sampleWidth) != 0 {
		return fmt.Errorf("pcm length %d is not a whole number of frames", len(pcm))
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directories: %w", err)
	}

	tmp := path + ".part"
	if err := encodeWAV(tmp, pcm, channels, sampleWidth*8, sampleRate); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to move %s into place: %w", filepath.Base(path), err)
	}
	return nil
}

func encodeWAV(path string, pcm []byte, channels, bitDepth, sampleRate int) error {
	outFile, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}

	enc := wav.NewEncoder(outFile, sampleRate, bitDepth, channels, 1)
	buf := &goaudio.IntBuffer{
		Data:           bytesToSamples(pcm),
		Format:         &goaudio.Format{SampleRate: sampleRate, NumChannels: channels},
		SourceBitDepth: bitDepth,
	}
	if err := enc.Write(buf); err != nil {
		outFile.Close()
		return fmt.Errorf("failed to write to WAV encoder: %w", err)
	}
	if err := enc.Close(); err != nil {
		outFile.Close()
		return fmt.Errorf("failed to finalize WAV file: %w", err)
	}
	return outFile.Close()
}

// ReadWAV decodes a 16-bit PCM WAV file.
func ReadWAV(path string) (PCM, error) {
	f, err := os.Open(path)
	if err != nil {
		return PCM{}, fmt.Errorf("failed to open WAV file: %w", err)
	}
	defer f.Close()

	dec := wav.NewDecoder(f)
	if !dec.IsValidFile() {
		return PCM{}, errors.New("invalid WAV file format")
	}
	if dec.BitDepth != 16 {
		return PCM{}, fmt.Errorf("unsupported bit depth %d, only 16-bit PCM is supported", dec.BitDepth)
	}

	buf, err := dec.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("failed to decode %s: %w", filepath.Base(path), err)
	}

	return PCM{
		Data:       samplesToBytes(buf.Data),
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
	}, nil
}

func bytesToSamples(pcm []byte) []int {
	samples := make([]int, len(pcm)/2)
	for i := range samples {
		samples[i] = int(int16(binary.LittleEndian.Uint16(pcm[2*i:])))
	}
	return samples
}

func samplesToBytes(samples []int) []byte {
	out := make([]byte, 2*len(samples))
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[2*i:], uint16(int16(s)))
	}
	return out
}
