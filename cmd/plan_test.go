package cmd

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
	"github.com/audiolibrelab/fieldcapture/internal/service"
)

func TestRenderPreviewListsSessions(t *testing.T) {
	first := time.Date(2026, 5, 1, 10, 0, 0, 0, time.Local)
	preview := service.Preview{
		Plan: schedule.Plan{
			TotalSessions: 2,
			FirstStart:    first,
			Period:        schedule.Duration(60),
			Duration:      schedule.Duration(20),
		},
		Directory: "/data/meadow_20260501_100000",
		Sessions: []service.PlannedSession{
			{Number: 1, File: "meadow_1.wav", NominalStart: first},
			{Number: 2, File: "meadow_2.wav", NominalStart: first.Add(time.Minute)},
		},
		TakeLength: 20 * time.Second,
	}

	out := renderPreview(preview, 48000)
	assert.Contains(t, out, "Capture plan")
	assert.Contains(t, out, "00:01:00")
	assert.Contains(t, out, "2026-05-01 10:01:00")
	assert.Contains(t, out, "meadow_20260501_100000/meadow_2.wav")
	assert.Contains(t, out, "48000 Hz")
}
