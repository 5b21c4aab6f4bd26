// Package config persists the engine's tuning knobs (spec.md §6
// Configuration) as a small YAML file, tolerant of a missing or corrupt
// file the way the teacher's own config.go treats its JSON device cache:
// load never errors, it just falls back to defaults.
package config

import (
	"math"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Karaoke mirrors the karaoke.* config group from spec.md §6.
type Karaoke struct {
	Enabled          bool    `yaml:"enabled"`
	Mix              float64 `yaml:"mix"`
	OriginalBgLevel  float64 `yaml:"original_bg_level"`
	LowpassCutoffHz  float64 `yaml:"lowpass_cutoff"`
	LowpassQ         float64 `yaml:"lowpass_q"`
	HighpassCutoffHz float64 `yaml:"highpass_cutoff"`
	HighpassQ        float64 `yaml:"highpass_q"`
}

// Config holds every tunable spec.md §6 names.
type Config struct {
	MaxTransitionTimeS float64 `yaml:"max_transition_time"`
	MaxFadeOutDurationS float64 `yaml:"max_fade_out_duration"`
	MinLeadingToFadeS  float64 `yaml:"min_leading_to_fade"`
	FadingCurve        float64 `yaml:"fading_curve"` // 0..100
	ReplayGainBoostDB  float64 `yaml:"replay_gain_boost"`
	Karaoke            Karaoke `yaml:"karaoke"`
}

// Default returns the spec-mandated defaults.
func Default() Config {
	return Config{
		MaxTransitionTimeS: 3.0,
		MaxFadeOutDurationS: 5.0,
		MinLeadingToFadeS:  2.5,
		FadingCurve:        60,
		ReplayGainBoostDB:  0,
		Karaoke: Karaoke{
			Enabled:          false,
			Mix:              1.0,
			OriginalBgLevel:  0.25,
			LowpassCutoffHz:  200,
			LowpassQ:         0.707,
			HighpassCutoffHz: 8000,
			HighpassQ:        0.707,
		},
	}
}

// DefaultPath returns the config file location under the user's config
// directory, matching the teacher's use of a per-user settings file.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = "."
	}
	return filepath.Join(dir, "medley", "config.yaml")
}

// Load reads path, falling back to Default() on any error (missing file,
// permission error, or corrupt YAML) — the engine must always start with
// a usable configuration.
func Load(path string) Config {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default()
	}
	return cfg
}

// Save writes cfg to path as YAML, creating parent directories as needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// FadingFactor converts the 0..100 fading_curve control into the exponent
// Fader.Configure expects, per spec.md §4.3's formula (matches
// original_source/.../Medley.cpp:505).
func (c Config) FadingFactor() float64 {
	curve := c.FadingCurve
	if curve < 0 {
		curve = 0
	}
	if curve > 100 {
		curve = 100
	}
	return 1000.0 / (((100.0-curve)/100.0)*999.0 + 1.0)
}

// ReplayGainLinear converts a per-track replay gain (dB) plus the
// configured boost into a linear multiplier.
func (c Config) ReplayGainLinear(trackGainDB float64) float64 {
	return dbToLinear(trackGainDB + c.ReplayGainBoostDB)
}

func dbToLinear(db float64) float64 {
	return math.Pow(10, db/20)
}
