package service

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

const ManifestName = "run.yaml"

// Manifest describes a run directory. It records what was planned, not
// what was captured.
type Manifest struct {
	RunID     string           `yaml:"run_id"`
	CreatedAt time.Time        `yaml:"created_at"`
	Location  string           `yaml:"location"`
	Plan      schedule.Plan    `yaml:"plan"`
	End       *time.Time       `yaml:"end,omitempty"`
	Audio     ManifestAudio    `yaml:"audio"`
	Sessions  []PlannedSession `yaml:"sessions"`
}

type ManifestAudio struct {
	Device     int    `yaml:"device"`
	SampleRate int    `yaml:"sample_rate"`
	ChunkSize  int    `yaml:"chunk_size"`
	Backend    string `yaml:"backend"`
}

// PlannedSession is one row of the timetable.
type PlannedSession struct {
	Number       int       `yaml:"number" json:"number"`
	File         string    `yaml:"file" json:"file"`
	NominalStart time.Time `yaml:"nominal_start" json:"nominal_start"`
}

func WriteManifest(path string, m Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal run manifest: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run manifest: %w", err)
	}
	return nil
}

func ReadManifest(path string) (Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Manifest{}, fmt.Errorf("failed to read run manifest: %w", err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("failed to parse run manifest: %w", err)
	}
	return m, nil
}
