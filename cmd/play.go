package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/fieldcapture/internal/play"

	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play FILE",
	Short: "Play a recorded take",
	Long: `Play a WAV take through the default output device of the configured
audio backend. Press Ctrl+C to stop playback.`,
	Annotations: map[string]string{configAnnotation: configSettings},
	Args:        cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := newProvider()
		if err != nil {
			return err
		}
		defer provider.Close()

		err = play.New(provider, logger).Play(ctx, args[0])
		if errors.Is(err, context.Canceled) {
			logger.Info("Playback stopped")
			return nil
		}
		return err
	},
}
