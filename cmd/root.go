package cmd

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/audiolibrelab/fieldcapture/internal/config"
	"github.com/audiolibrelab/fieldcapture/internal/logging"
	"github.com/audiolibrelab/fieldcapture/internal/schedule"

	"github.com/spf13/cobra"
)

// Commands declare how much of the configuration they read with the
// "config" annotation; commands without one load and validate all of it.
const (
	configAnnotation = "config"
	// configNone commands run even when the configuration is invalid.
	configNone = "none"
	// configSettings commands read audio, output and logging but never plan.
	configSettings = "settings"
)

// exitInterrupted is the conventional status for a run stopped by SIGINT.
const exitInterrupted = 130

var (
	cfg          config.Config
	cfgFile      string
	verboseLevel int
	logger       = slog.Default()
	logFile      *os.File
)

var rootCmd = &cobra.Command{
	Use:   "fieldcapture",
	Short: "Scheduled multi-session audio capture",
	Long: `FieldCapture records a series of fixed-length audio takes on a timetable.

A run starts at a given time and repeats every period until the end time,
writing one WAV file per session into a directory named after the location
and the first start. Without a subcommand it acts as 'fieldcapture record'.`,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		usage := configUsage(cmd)
		if usage == configNone {
			return setupLogging(logging.LevelForVerbosity(verboseLevel), "")
		}

		var err error
		cfg, err = config.Load(config.LoadOptions{
			File:         cfgFile,
			Required:     cmd.Flags().Changed("config"),
			Flags:        cmd.Flags(),
			SkipSchedule: usage == configSettings,
		})
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		level := logging.LevelForVerbosity(verboseLevel)
		if verboseLevel == 0 {
			if level, err = logging.ParseLevel(cfg.Logging.Level); err != nil {
				return fmt.Errorf("failed to load config: logging: %w", err)
			}
		}
		if err := setupLogging(level, cfg.Logging.File); err != nil {
			return err
		}
		logger.Debug("Configuration loaded", "source", cfg.Source, "output", cfg.Output.Directory)
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return recordCmd.RunE(cmd, args)
	},
}

func Execute() {
	err := rootCmd.Execute()
	if logFile != nil {
		logFile.Close()
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		if errors.Is(err, schedule.ErrInterrupted) {
			os.Exit(exitInterrupted)
		}
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", config.DefaultPath(), "JSON config file")
	flags.CountVarP(&verboseLevel, "verbose", "v", "verbose output (-v for debug)")
	flags.String("log-file", "", "also write JSON logs to this file")
	flags.String("log-level", "", "log level: debug, info, warn, error (overrides config)")

	// Capture overrides, bound to the configuration keys of the same meaning
	flags.Int("sample-rate", 0, "sample rate in Hz")
	flags.String("duration", "", "length of each session (HH:MM:SS)")
	flags.String("period", "", "time between session starts (HH:MM:SS)")
	flags.String("start", "", "first session start (YYYY-MM-DD HH:MM:SS or HH:MM:SS)")
	flags.String("end", "", "no session starts after this time")
	flags.Int("device", -1, "capture device index, -1 for the default input")
	flags.String("location", "", "name of the run directory")
	flags.String("prefix", "", "file name prefix of each take")
	flags.Int("index", 1, "index of the first take file")
	flags.StringP("output", "o", "", "output directory")
	flags.Int("chunk-size", 0, "frames per read")
	flags.String("backend", "", "audio backend: auto, alsa, pulseaudio, jack, coreaudio, wasapi, null")

	rootCmd.Flags().String("status-addr", "", "serve run status on this address while recording")

	rootCmd.AddCommand(recordCmd)
	rootCmd.AddCommand(planCmd)
	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(wizardCmd)
	rootCmd.AddCommand(serveCmd)
}

func configUsage(cmd *cobra.Command) string {
	if cmd.Name() == "help" {
		return configNone
	}
	return cmd.Annotations[configAnnotation]
}

// setupLogging installs the process logger: text on stderr and, when path
// is set, JSON records appended to path.
func setupLogging(level slog.Level, path string) error {
	sinks := []logging.Sink{{Writer: os.Stderr}}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		logFile = f
		sinks = append(sinks, logging.Sink{Writer: f, JSON: true})
	}

	logger = logging.New(level, sinks...)
	slog.SetDefault(logger)
	return nil
}
