package play

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/audiolibrelab/fieldcapture/internal/audio"
)

type Player struct {
	output audio.Output
	logger *slog.Logger
}

func New(output audio.Output, logger *slog.Logger) *Player {
	if logger == nil {
		logger = slog.Default()
	}
	return &Player{output: output, logger: logger}
}

// Play decodes a WAV take and plays it through the output until it ends
// or ctx is cancelled.
func (p *Player) Play(ctx context.Context, path string) error {
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("audio file not found: %s", path)
	}

	pcm, err := audio.ReadWAV(path)
	if err != nil {
		return err
	}

	length := time.Duration(pcm.Frames()) * time.Second / time.Duration(pcm.SampleRate)
	p.logger.Info("Playing", "file", path, "sample_rate", pcm.SampleRate, "channels", pcm.Channels, "length", length.Round(time.Millisecond))

	if err := p.output.Play(ctx, pcm.Data, pcm.SampleRate, pcm.Channels); err != nil {
		return fmt.Errorf("playback failed: %w", err)
	}
	p.logger.Debug("Playback finished", "file", path)
	return nil
}
