package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/audiolibrelab/fieldcapture/internal/schedule"
)

const EnvPrefix = "FIELDCAPTURE"

// FileConfig mirrors the keys of the JSON configuration file.
type FileConfig struct {
	SampleRate      int    `mapstructure:"sample_rate" json:"sample_rate"`
	Duration        string `mapstructure:"duration" json:"duration"`
	Period          string `mapstructure:"period" json:"period,omitempty"`
	DeltaTime       string `mapstructure:"delta_time" json:"delta_time,omitempty"`
	StartTime       string `mapstructure:"start_time" json:"start_time,omitempty"`
	EndTime         string `mapstructure:"end_time" json:"end_time,omitempty"`
	Device          int    `mapstructure:"device" json:"device"`
	Location        string `mapstructure:"location" json:"location,omitempty"`
	Prefix          string `mapstructure:"prefix" json:"prefix,omitempty"`
	Index           int    `mapstructure:"index" json:"index"`
	OutputDirectory string `mapstructure:"output_directory" json:"output_directory,omitempty"`
	ChunkSize       int    `mapstructure:"chunk_size" json:"chunk_size,omitempty"`
	Backend         string `mapstructure:"backend" json:"backend,omitempty"`
	LogFile         string `mapstructure:"log_file" json:"log_file,omitempty"`
	LogLevel        string `mapstructure:"log_level" json:"log_level,omitempty"`
}

// Config is the resolved configuration of a run. It is built once by Load
// and passed by value.
type Config struct {
	Audio    AudioConfig    `yaml:"audio"`
	Schedule ScheduleConfig `yaml:"schedule"`
	Output   OutputConfig   `yaml:"output"`
	Logging  LoggingConfig  `yaml:"logging"`

	// Source is the file the values were read from, if any.
	Source string `yaml:"source,omitempty"`
}

type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"`
	// Device is a capture device index; -1 selects the system default.
	Device    int    `yaml:"device"`
	ChunkSize int    `yaml:"chunk_size"`
	Backend   string `yaml:"backend"`
}

type ScheduleConfig struct {
	Duration schedule.Duration `yaml:"duration"`
	// Period is zero when no period was configured.
	Period schedule.Duration `yaml:"period"`
	Start  time.Time         `yaml:"start"`
	End    *time.Time        `yaml:"end,omitempty"`
}

type OutputConfig struct {
	Directory string `yaml:"directory"`
	Location  string `yaml:"location"`
	Prefix    string `yaml:"prefix"`
	Index     int    `yaml:"index"`
}

type LoggingConfig struct {
	File  string `yaml:"file,omitempty"`
	Level string `yaml:"level"`
}

var defaultConfig = FileConfig{
	SampleRate:      44100,
	Duration:        "00:00:20",
	Device:          -1,
	Index:           1,
	OutputDirectory: filepath.Join("~", "Audio", "FieldCapture"),
	ChunkSize:       1024,
	Backend:         "auto",
	LogLevel:        "info",
}

// flagKeys maps command line flags onto configuration keys.
var flagKeys = map[string]string{
	"sample-rate": "sample_rate",
	"duration":    "duration",
	"period":      "period",
	"start":       "start_time",
	"end":         "end_time",
	"device":      "device",
	"location":    "location",
	"prefix":      "prefix",
	"index":       "index",
	"output":      "output_directory",
	"chunk-size":  "chunk_size",
	"backend":     "backend",
	"log-file":    "log_file",
	"log-level":   "log_level",
}

// LoadOptions controls where Load reads values from.
type LoadOptions struct {
	File string
	// Required makes a missing File an error instead of falling back to defaults.
	Required bool
	// Flags are applied on top of the file when they were set explicitly.
	Flags *pflag.FlagSet
	Now   time.Time
	// SkipSchedule resolves only audio, output and logging settings, for
	// commands that never build a plan.
	SkipSchedule bool
}

// Load merges defaults, the JSON file, FIELDCAPTURE_* environment variables
// and explicit flags, in increasing order of precedence, then validates.
func Load(opts LoadOptions) (Config, error) {
	v := newViper()
	source := ""

	if opts.File != "" {
		_, err := os.Stat(opts.File)
		switch {
		case err == nil:
			v.SetConfigFile(opts.File)
			v.SetConfigType("json")
			if err := v.ReadInConfig(); err != nil {
				return Config{}, fmt.Errorf("error reading config file %s: %w", opts.File, err)
			}
			source = opts.File
		case errors.Is(err, os.ErrNotExist) && !opts.Required:
		default:
			return Config{}, fmt.Errorf("error reading config file %s: %w", opts.File, err)
		}
	}

	if opts.Flags != nil {
		if err := bindFlags(v, opts.Flags); err != nil {
			return Config{}, err
		}
	}

	var file FileConfig
	if err := v.Unmarshal(&file); err != nil {
		return Config{}, fmt.Errorf("error unmarshaling config: %w", err)
	}
	// period has no default so it is read directly; delta_time is its older name
	file.Period = v.GetString("period")
	if file.Period == "" {
		file.Period = file.DeltaTime
	}

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	resolve := Resolve
	if opts.SkipSchedule {
		resolve = func(file FileConfig, _ time.Time) (Config, error) { return ResolveSettings(file) }
	}
	cfg, err := resolve(file, now)
	if err != nil {
		return Config{}, fmt.Errorf("configuration validation failed: %w", err)
	}
	cfg.Source = source
	return cfg, nil
}

// Resolve validates file and converts it into a Config. Bare HH:MM:SS start
// and end times are placed on the day of now.
func Resolve(file FileConfig, now time.Time) (Config, error) {
	cfg, err := ResolveSettings(file)
	if err != nil {
		return Config{}, err
	}
	if file.Duration == "" {
		return Config{}, fmt.Errorf("schedule: 'duration' is required")
	}

	duration, err := schedule.ParseDuration(file.Duration)
	if err != nil {
		return Config{}, fmt.Errorf("duration: %w", err)
	}

	var period schedule.Duration
	if file.Period != "" {
		if period, err = schedule.ParseDuration(file.Period); err != nil {
			return Config{}, fmt.Errorf("period: %w", err)
		}
	}

	start := now
	if file.StartTime != "" {
		if start, err = schedule.ParseInstant(file.StartTime, now); err != nil {
			return Config{}, fmt.Errorf("start_time: %w", err)
		}
	}

	var end *time.Time
	if file.EndTime != "" {
		parsed, err := schedule.ParseInstant(file.EndTime, now)
		if err != nil {
			return Config{}, fmt.Errorf("end_time: %w", err)
		}
		if !parsed.After(start) {
			return Config{}, fmt.Errorf("end_time: must be after start_time (%s)", start.Format(schedule.DateTimeLayout))
		}
		if period == 0 {
			return Config{}, fmt.Errorf("period: 'period' is required when 'end_time' is set")
		}
		end = &parsed
	}

	if err := schedule.ValidateTiming(duration, period); err != nil {
		return Config{}, err
	}

	cfg.Schedule = ScheduleConfig{
		Duration: duration,
		Period:   period,
		Start:    start,
		End:      end,
	}
	return cfg, nil
}

// ResolveSettings validates and converts everything except the schedule.
// The returned Schedule is zero.
func ResolveSettings(file FileConfig) (Config, error) {
	if err := validateFileConfig(file); err != nil {
		return Config{}, err
	}

	location, prefix := file.Location, file.Prefix
	if location == "" {
		location = prefix
	}
	if prefix == "" {
		prefix = location
	}
	if location == "" {
		location, prefix = "output", "output"
	}

	return Config{
		Audio: AudioConfig{
			SampleRate: file.SampleRate,
			Device:     file.Device,
			ChunkSize:  file.ChunkSize,
			Backend:    file.Backend,
		},
		Output: OutputConfig{
			Directory: expandPath(file.OutputDirectory),
			Location:  location,
			Prefix:    prefix,
			Index:     file.Index,
		},
		Logging: LoggingConfig{
			File:  expandPath(file.LogFile),
			Level: file.LogLevel,
		},
	}, nil
}

// Save writes file as JSON at path.
func Save(path string, file FileConfig) error {
	v := viper.New()
	v.Set("sample_rate", file.SampleRate)
	v.Set("duration", file.Duration)
	v.Set("device", file.Device)
	v.Set("index", file.Index)
	optional := map[string]string{
		"period":           file.Period,
		"start_time":       file.StartTime,
		"end_time":         file.EndTime,
		"location":         file.Location,
		"prefix":           file.Prefix,
		"output_directory": file.OutputDirectory,
		"backend":          file.Backend,
	}
	for key, value := range optional {
		if value != "" {
			v.Set(key, value)
		}
	}
	if file.ChunkSize != 0 {
		v.Set("chunk_size", file.ChunkSize)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config %s: %w", path, err)
	}
	return nil
}

// Defaults returns the values used when neither file nor flags set a key.
func Defaults() FileConfig {
	return defaultConfig
}

// DefaultPath is where the configuration is looked up without --config.
func DefaultPath() string {
	return expandPath(filepath.Join("~", ".config", "fieldcapture.json"))
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()

	v.SetDefault("sample_rate", defaultConfig.SampleRate)
	v.SetDefault("duration", defaultConfig.Duration)
	v.SetDefault("delta_time", "")
	v.SetDefault("start_time", "")
	v.SetDefault("end_time", "")
	v.SetDefault("device", defaultConfig.Device)
	v.SetDefault("location", "")
	v.SetDefault("prefix", "")
	v.SetDefault("index", defaultConfig.Index)
	v.SetDefault("output_directory", defaultConfig.OutputDirectory)
	v.SetDefault("chunk_size", defaultConfig.ChunkSize)
	v.SetDefault("backend", defaultConfig.Backend)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", defaultConfig.LogLevel)
	return v
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		flag := flags.Lookup(name)
		if flag == nil || !flag.Changed {
			continue
		}
		if err := v.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag --%s: %w", name, err)
		}
	}
	return nil
}

func validateFileConfig(file FileConfig) error {
	if file.SampleRate <= 0 {
		return fmt.Errorf("audio: 'sample_rate' must be > 0, got: %d", file.SampleRate)
	}
	if file.ChunkSize <= 0 {
		return fmt.Errorf("audio: 'chunk_size' must be > 0, got: %d", file.ChunkSize)
	}
	if file.Device < -1 {
		return fmt.Errorf("audio: 'device' must be a device index or -1 for the default, got: %d", file.Device)
	}
	if file.Index < 0 {
		return fmt.Errorf("output: 'index' must be >= 0, got: %d", file.Index)
	}
	for _, name := range []string{file.Location, file.Prefix} {
		if strings.ContainsAny(name, `/\`) {
			return fmt.Errorf("output: location and prefix must not contain path separators, got: %s", name)
		}
	}
	return nil
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, strings.TrimPrefix(path[1:], "/"))
	}
	return path
}
