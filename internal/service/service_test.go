package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/audiolibrelab/fieldcapture/internal/audio"
	"github.com/audiolibrelab/fieldcapture/internal/config"
	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

type instantClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *instantClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *instantClock) After(d time.Duration) <-chan time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	ch := make(chan time.Time, 1)
	ch <- c.now
	return ch
}

type silentStream struct{}

func (silentStream) Read(frames int) ([]byte, error) { return make([]byte, frames*audio.SampleWidth), nil }
func (silentStream) Close() error                    { return nil }

type stubProvider struct {
	failOn map[int]bool

	mu    sync.Mutex
	opens int
}

func (p *stubProvider) OpenInput(device, sampleRate, channels int) (audio.InputStream, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.opens++
	if p.failOn[p.opens] {
		return nil, errors.New("device busy")
	}
	return silentStream{}, nil
}

var serviceNow = time.Date(2024, 5, 17, 20, 0, 0, 0, time.Local)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	end := serviceNow.Add(30 * time.Second)
	return config.Config{
		Audio: config.AudioConfig{SampleRate: 1000, Device: -1, ChunkSize: 1000, Backend: "null"},
		Schedule: config.ScheduleConfig{
			Duration: 5,
			Period:   10,
			Start:    serviceNow,
			End:      &end,
		},
		Output: config.OutputConfig{Directory: t.TempDir(), Location: "marsh", Prefix: "take", Index: 7},
	}
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func TestServicePreview(t *testing.T) {
	cfg := testConfig(t)
	cfg.Audio.SampleRate = 48000
	cfg.Audio.ChunkSize = 1024
	cfg.Schedule.Duration = 10
	cfg.Schedule.Period = 20
	end := serviceNow.Add(time.Minute)
	cfg.Schedule.End = &end
	svc := New(cfg, &stubProvider{}, quietLogger(), WithClock(&instantClock{now: serviceNow}))

	preview, err := svc.Preview()
	require.NoError(t, err)

	assert.Equal(t, 3, preview.Plan.TotalSessions)
	assert.Equal(t, filepath.Join(cfg.Output.Directory, "marsh_20240517_200000"), preview.Directory)
	require.Len(t, preview.Sessions, 3)
	assert.Equal(t, "take_7.wav", preview.Sessions[0].File)
	assert.Equal(t, "take_9.wav", preview.Sessions[2].File)
	assert.Equal(t, serviceNow.Add(40*time.Second), preview.Sessions[2].NominalStart)
	assert.Equal(t, 10005333*time.Microsecond, preview.TakeLength.Truncate(time.Microsecond))
}

func TestServiceRun(t *testing.T) {
	cfg := testConfig(t)
	clock := &instantClock{now: serviceNow.Add(-2 * time.Second)}
	svc := New(cfg, &stubProvider{}, quietLogger(), WithClock(clock))

	assert.Equal(t, schedule.StateScheduled, svc.Status().State)

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, schedule.StateCompleted, report.State)
	assert.Equal(t, 3, report.CompletedCount())

	dir := svc.Directory()
	assert.Equal(t, filepath.Join(cfg.Output.Directory, "marsh_20240517_200000"), dir)
	for _, name := range []string{"take_7.wav", "take_8.wav", "take_9.wav", ManifestName} {
		_, err := os.Stat(filepath.Join(dir, name))
		assert.NoError(t, err, name)
	}

	manifest, err := ReadManifest(filepath.Join(dir, ManifestName))
	require.NoError(t, err)
	assert.Equal(t, svc.RunID(), manifest.RunID)
	assert.Equal(t, 3, manifest.Plan.TotalSessions)
	assert.Equal(t, schedule.Duration(10), manifest.Plan.Period)
	assert.Equal(t, 1000, manifest.Audio.SampleRate)
	require.Len(t, manifest.Sessions, 3)
	assert.Equal(t, "take_8.wav", manifest.Sessions[1].File)

	status := svc.Status()
	assert.Equal(t, schedule.StateCompleted, status.State)
	assert.Equal(t, 3, status.Completed)
}

func TestServiceRunContinuesAfterFailedSession(t *testing.T) {
	cfg := testConfig(t)
	provider := &stubProvider{failOn: map[int]bool{2: true}}
	svc := New(cfg, provider, quietLogger(), WithClock(&instantClock{now: serviceNow}))

	report, err := svc.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, report.Results, 3)
	assert.Equal(t, schedule.OutcomeAborted, report.Results[1].Outcome)
	assert.Equal(t, 2, report.CompletedCount())

	var captureErr *audio.CaptureError
	assert.ErrorAs(t, report.Results[1].Err, &captureErr)
	_, statErr := os.Stat(filepath.Join(svc.Directory(), "take_8.wav"))
	assert.True(t, os.IsNotExist(statErr))
}

func TestServiceRunInterrupted(t *testing.T) {
	cfg := testConfig(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	svc := New(cfg, &stubProvider{}, quietLogger(), WithClock(&instantClock{now: serviceNow.Add(-time.Minute)}))

	report, err := svc.Run(ctx)
	assert.ErrorIs(t, err, schedule.ErrInterrupted)
	assert.Equal(t, schedule.StateAborted, report.State)
	assert.Empty(t, report.Results)
}

func TestServiceRunRejectsInvalidSchedule(t *testing.T) {
	cfg := testConfig(t)
	cfg.Schedule.Period = 6
	svc := New(cfg, &stubProvider{}, quietLogger(), WithClock(&instantClock{now: serviceNow}))

	_, err := svc.Run(context.Background())
	var scheduleErr *schedule.InvalidScheduleError
	assert.ErrorAs(t, err, &scheduleErr)
	assert.Empty(t, svc.Directory())
}
