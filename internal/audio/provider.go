package audio

import (
	"context"
	"errors"
	"fmt"
)

const (
	// Channels is the channel count of every capture.
	Channels = 1
	// SampleWidth is the size in bytes of one PCM16 sample.
	SampleWidth = 2
	// DefaultChunkSize is the number of frames pulled per read.
	DefaultChunkSize = 1024
)

var (
	ErrStreamStopped = errors.New("input stream stopped")
	ErrReadTimeout   = errors.New("input stream read timed out")
	ErrOverflow      = errors.New("input overflow")
)

// Provider opens capture streams on an input device.
type Provider interface {
	OpenInput(device, sampleRate, channels int) (InputStream, error)
}

// InputStream delivers interleaved little-endian PCM16 frames.
type InputStream interface {
	// Read blocks until frames frames are available.
	Read(frames int) ([]byte, error)
	// Close releases the device. It is safe to call more than once.
	Close() error
}

// Output plays PCM16 audio to completion.
type Output interface {
	Play(ctx context.Context, pcm []byte, sampleRate, channels int) error
}

// DeviceInfo describes a capture device. Index is the value accepted by
// OpenInput.
type DeviceInfo struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	IsDefault bool   `json:"is_default"`
}

// CaptureError is a failure inside one session.
type CaptureError struct {
	Session int
	Op      string
	Err     error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("session %d: %s failed: %v", e.Session, e.Op, e.Err)
}

func (e *CaptureError) Unwrap() error {
	return e.Err
}
