package medley

import "medley-sub000/internal/config"

// Config is the engine's public tuning surface, backed by the
// internal/config YAML-persisted settings (spec.md §6 Configuration).
type Config = config.Config

// Karaoke mirrors the karaoke.* config group.
type Karaoke = config.Karaoke

// DefaultConfig returns the spec-mandated default configuration.
func DefaultConfig() Config { return config.Default() }

// DefaultConfigPath returns the per-user config file location.
func DefaultConfigPath() string { return config.DefaultPath() }

// LoadConfig reads path, falling back to DefaultConfig() on any error.
func LoadConfig(path string) Config { return config.Load(path) }

// SaveConfig writes cfg to path as YAML.
func SaveConfig(path string, cfg Config) error { return config.Save(path, cfg) }
