package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/audiolibrelab/fieldcapture/internal/audio"
	"github.com/audiolibrelab/fieldcapture/internal/server"
	"github.com/audiolibrelab/fieldcapture/internal/service"

	"github.com/spf13/cobra"
)

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Run the capture schedule",
	Long: `Wait for each scheduled start and record one take per session.

Sessions keep to the planned timetable: a session that overruns its period
delays only the next start, never the ones after it. Press Ctrl+C to stop;
the take in progress is discarded and the run exits with status 130.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		provider, err := newProvider()
		if err != nil {
			return err
		}
		defer provider.Close()

		svc := service.New(cfg, provider, logger)

		if addr, _ := cmd.Flags().GetString("status-addr"); addr != "" {
			srv := server.New(addr, svc, svc, logger)
			go func() {
				if err := srv.Start(ctx); err != nil {
					logger.Error("Status server stopped", "error", err)
				}
			}()
		}

		logger.Info("Recording scheduled", "run_id", svc.RunID(), "start", cfg.Schedule.Start, "duration", cfg.Schedule.Duration)
		report, err := svc.Run(ctx)
		if err != nil {
			if report.Plan.TotalSessions == 0 {
				return err
			}
			return fmt.Errorf("recording stopped after %d of %d sessions: %w",
				report.CompletedCount(), report.Plan.TotalSessions, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Recorded %d of %d sessions into %s\n",
			report.CompletedCount(), report.Plan.TotalSessions, svc.Directory())
		return nil
	},
}

func init() {
	recordCmd.Flags().String("status-addr", "", "serve run status on this address while recording")
}

// newProvider opens the audio backend named in the configuration.
func newProvider() (*audio.MalgoProvider, error) {
	backend, err := audio.ParseBackend(cfg.Audio.Backend)
	if err != nil {
		return nil, err
	}
	provider, err := audio.NewMalgoProvider(backend, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open audio backend %s: %w", backend, err)
	}
	return provider, nil
}
