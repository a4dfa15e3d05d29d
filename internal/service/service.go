package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/audiolibrelab/fieldcapture/internal/audio"
	"github.com/audiolibrelab/fieldcapture/internal/config"
	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

// RunDirLayout formats the first session start in run directory names.
const RunDirLayout = "20060102_150405"

// Service runs a capture schedule from a resolved configuration.
type Service struct {
	cfg      config.Config
	provider audio.Provider
	clock    schedule.Clock
	logger   *slog.Logger
	runID    string

	mu     sync.RWMutex
	driver *schedule.Driver
	runDir string
}

type Option func(*Service)

// WithClock replaces the wall clock used for planning and waiting.
func WithClock(clock schedule.Clock) Option {
	return func(s *Service) { s.clock = clock }
}

func New(cfg config.Config, provider audio.Provider, logger *slog.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Service{
		cfg:      cfg,
		provider: provider,
		clock:    schedule.SystemClock,
		logger:   logger,
		runID:    uuid.NewString(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) RunID() string {
	return s.runID
}

// Preview is the plan of a run as it would execute now.
type Preview struct {
	Plan      schedule.Plan
	Directory string
	Sessions  []PlannedSession
	// TakeLength is the audio actually captured per session, which rounds
	// the duration up to whole chunks.
	TakeLength time.Duration
}

func (s *Service) Preview() (Preview, error) {
	sc := s.cfg.Schedule
	plan, err := schedule.BuildPlan(s.clock.Now(), sc.Start, sc.End, sc.Period, sc.Duration)
	if err != nil {
		return Preview{}, err
	}

	dir := s.runDirectory(plan)
	rec := s.newRecorder(dir)
	sessions := make([]PlannedSession, 0, plan.TotalSessions)
	for _, session := range plan.Sessions(s.cfg.Output.Index) {
		sessions = append(sessions, PlannedSession{
			Number:       session.Number,
			File:         filepath.Base(rec.OutputPath(session.FileIndex)),
			NominalStart: session.NominalStart,
		})
	}

	chunks := audio.ChunkCount(plan.Duration, s.cfg.Audio.SampleRate, s.cfg.Audio.ChunkSize)
	frames := chunks * s.cfg.Audio.ChunkSize
	return Preview{
		Plan:       plan,
		Directory:  dir,
		Sessions:   sessions,
		TakeLength: time.Duration(frames) * time.Second / time.Duration(s.cfg.Audio.SampleRate),
	}, nil
}

// Run builds the plan, prepares the run directory and executes every
// session. The returned error wraps schedule.ErrInterrupted when the run
// was cancelled.
func (s *Service) Run(ctx context.Context) (schedule.Report, error) {
	preview, err := s.Preview()
	if err != nil {
		return schedule.Report{}, err
	}
	plan := preview.Plan
	logger := s.logger.With("run_id", s.runID)

	if err := os.MkdirAll(preview.Directory, 0755); err != nil {
		return schedule.Report{}, fmt.Errorf("failed to create run directory: %w", err)
	}

	manifest := Manifest{
		RunID:     s.runID,
		CreatedAt: s.clock.Now(),
		Location:  s.cfg.Output.Location,
		Plan:      plan,
		End:       s.cfg.Schedule.End,
		Audio: ManifestAudio{
			Device:     s.cfg.Audio.Device,
			SampleRate: s.cfg.Audio.SampleRate,
			ChunkSize:  s.cfg.Audio.ChunkSize,
			Backend:    s.cfg.Audio.Backend,
		},
		Sessions: preview.Sessions,
	}
	if err := WriteManifest(filepath.Join(preview.Directory, ManifestName), manifest); err != nil {
		return schedule.Report{}, err
	}

	driver := schedule.NewDriver(schedule.DriverConfig{
		Capturer:   s.newRecorderWithLogger(preview.Directory, logger),
		Clock:      s.clock,
		Logger:     logger,
		FirstIndex: s.cfg.Output.Index,
	})

	s.mu.Lock()
	s.driver = driver
	s.runDir = preview.Directory
	s.mu.Unlock()

	logger.Info("Run prepared", "directory", preview.Directory, "sessions", plan.TotalSessions, "take_length", preview.TakeLength)

	report, err := driver.Run(ctx, plan)
	logger.Info("Run finished", "state", report.State, "completed", report.CompletedCount(), "sessions", plan.TotalSessions)
	return report, err
}

// Status reports the live driver state; before Run it is SCHEDULED.
func (s *Service) Status() schedule.Status {
	s.mu.RLock()
	driver := s.driver
	s.mu.RUnlock()
	if driver == nil {
		return schedule.Status{State: schedule.StateScheduled}
	}
	return driver.Status()
}

// Directory is the run directory once Run has started.
func (s *Service) Directory() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.runDir
}

func (s *Service) runDirectory(plan schedule.Plan) string {
	name := fmt.Sprintf("%s_%s", s.cfg.Output.Location, plan.FirstStart.Format(RunDirLayout))
	return filepath.Join(s.cfg.Output.Directory, name)
}

func (s *Service) newRecorder(dir string) *audio.Recorder {
	return s.newRecorderWithLogger(dir, s.logger)
}

func (s *Service) newRecorderWithLogger(dir string, logger *slog.Logger) *audio.Recorder {
	return audio.NewRecorder(s.provider, audio.RecorderConfig{
		Device:     s.cfg.Audio.Device,
		SampleRate: s.cfg.Audio.SampleRate,
		ChunkSize:  s.cfg.Audio.ChunkSize,
		Directory:  dir,
		Prefix:     s.cfg.Output.Prefix,
	}, logger)
}
