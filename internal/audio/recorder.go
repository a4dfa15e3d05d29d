package audio

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

// RecorderConfig fixes the capture parameters shared by every session.
type RecorderConfig struct {
	Device     int
	SampleRate int
	ChunkSize  int
	Directory  string
	Prefix     string
}

// Recorder captures one duration-bounded take per session and stores it as
// {prefix}_{index}.wav in the run directory.
type Recorder struct {
	provider Provider
	cfg      RecorderConfig
	logger   *slog.Logger
	nowFn    func() time.Time
}

func NewRecorder(provider Provider, cfg RecorderConfig, logger *slog.Logger) *Recorder {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{provider: provider, cfg: cfg, logger: logger, nowFn: time.Now}
}

// ChunkCount is the number of chunkSize reads covering d at sampleRate.
// The last chunk is read whole, so a take may run slightly past d.
func ChunkCount(d schedule.Duration, sampleRate, chunkSize int) int {
	frames := d.Seconds() * int64(sampleRate)
	return int((frames + int64(chunkSize) - 1) / int64(chunkSize))
}

// OutputPath returns the file written for the given file index.
func (r *Recorder) OutputPath(fileIndex int) string {
	return filepath.Join(r.cfg.Directory, fmt.Sprintf("%s_%d.wav", r.cfg.Prefix, fileIndex))
}

// Capture implements schedule.Capturer. The stream is released on every
// path out; nothing is written unless all chunks were read.
func (r *Recorder) Capture(ctx context.Context, session schedule.Session) schedule.Result {
	logger := r.logger.With("session", session.Number)
	started := r.nowFn()

	if err := ctx.Err(); err != nil {
		return schedule.Aborted(session, "interrupted", fmt.Errorf("%w: %w", schedule.ErrInterrupted, err))
	}

	stream, err := r.provider.OpenInput(r.cfg.Device, r.cfg.SampleRate, Channels)
	if err != nil {
		return r.fail(session, started, "open input", err)
	}
	defer func() {
		if err := stream.Close(); err != nil {
			logger.Warn("Failed to close input stream", "error", err)
		}
	}()

	chunks := ChunkCount(session.Duration, r.cfg.SampleRate, r.cfg.ChunkSize)
	logger.Debug("Recording", "duration", session.Duration, "chunks", chunks, "chunk_size", r.cfg.ChunkSize)

	buffer := make([][]byte, 0, chunks)
	for i := 0; i < chunks; i++ {
		if err := ctx.Err(); err != nil {
			logger.Warn("Recording interrupted, discarding take", "chunks_read", i, "chunks", chunks)
			return schedule.Aborted(session, "interrupted", fmt.Errorf("%w: %w", schedule.ErrInterrupted, err))
		}
		chunk, err := stream.Read(r.cfg.ChunkSize)
		if err != nil {
			return r.fail(session, started, "read", err)
		}
		buffer = append(buffer, chunk)
	}

	pcm := bytes.Join(buffer, nil)
	path := r.OutputPath(session.FileIndex)
	if err := WriteWAV(path, pcm, Channels, SampleWidth, r.cfg.SampleRate); err != nil {
		return r.fail(session, started, "write", err)
	}

	level := CalculateLevel(pcm)
	result := schedule.Completed(session, path)
	result.StartedAt = started
	result.FinishedAt = r.nowFn()
	result.Frames = len(pcm) / (Channels * SampleWidth)
	result.Level = level.RMS
	result.Clipping = level.Clipping

	logger.Info("Take saved",
		"path", path,
		"frames", result.Frames,
		"level", fmt.Sprintf("%.0f", level.RMS),
		"clipping", level.Clipping)
	if level.Clipping {
		logger.Warn("Take is clipping, consider lowering the input gain", "path", path)
	}
	return result
}

func (r *Recorder) fail(session schedule.Session, started time.Time, op string, err error) schedule.Result {
	result := schedule.Aborted(session, op+" failed", &CaptureError{Session: session.Number, Op: op, Err: err})
	result.StartedAt = started
	result.FinishedAt = r.nowFn()
	return result
}
