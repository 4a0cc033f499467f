package variant

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// settingsFile mirrors the optional per-variant YAML override file.
// Nil fields fall back to the variant config.
type settingsFile struct {
	MaxRounds  *int `yaml:"max_rounds"`
	MaxPlayers *int `yaml:"max_players"`
}

// SettingsLoader reads per-variant default settings from
// <baseDir>/variants/<tag>.yaml. Missing files mean config defaults.
type SettingsLoader struct {
	baseDir string

	mu    sync.RWMutex
	cache map[Tag]Settings
}

func NewSettingsLoader(baseDir string) *SettingsLoader {
	return &SettingsLoader{
		baseDir: baseDir,
		cache:   make(map[Tag]Settings),
	}
}

// Defaults returns the operator-tuned defaults for a variant, falling
// back to its config where the file is absent or partial.
func (l *SettingsLoader) Defaults(tag Tag) (Settings, error) {
	l.mu.RLock()
	if s, ok := l.cache[tag]; ok {
		l.mu.RUnlock()
		return s, nil
	}
	l.mu.RUnlock()

	v, err := Get(string(tag))
	if err != nil {
		return Settings{}, err
	}
	cfg := v.Config()

	s := Settings{MaxRounds: cfg.MaxRounds, MaxPlayers: cfg.MaxPlayers}

	path := filepath.Join(l.baseDir, "variants", string(tag)+".yaml")
	b, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return Settings{}, fmt.Errorf("read variant settings: %w", err)
		}
	} else {
		var f settingsFile
		if err := yaml.Unmarshal(b, &f); err != nil {
			return Settings{}, fmt.Errorf("parse variant settings %s: %w", path, err)
		}
		if f.MaxRounds != nil {
			s.MaxRounds = *f.MaxRounds
		}
		if f.MaxPlayers != nil {
			s.MaxPlayers = *f.MaxPlayers
		}
	}

	if s, err = v.ValidateSettings(s); err != nil {
		return Settings{}, fmt.Errorf("variant settings %s: %w", path, err)
	}

	l.mu.Lock()
	l.cache[tag] = s
	l.mu.Unlock()

	return s, nil
}

// Invalidate clears the cache; call after settings files change.
func (l *SettingsLoader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[Tag]Settings)
}

// clampSettings fills zero fields from the config and rejects values
// outside the variant's bounds.
func clampSettings(s Settings, cfg Config) (Settings, error) {
	if s.MaxRounds == 0 {
		s.MaxRounds = cfg.MaxRounds
	}
	if s.MaxPlayers == 0 {
		s.MaxPlayers = cfg.MaxPlayers
	}

	if s.MaxRounds < 1 || s.MaxRounds > 100 {
		return Settings{}, fmt.Errorf("variant: max_rounds %d outside [1,100]", s.MaxRounds)
	}
	if s.MaxPlayers < cfg.MinPlayers || s.MaxPlayers > cfg.MaxPlayers {
		return Settings{}, fmt.Errorf("variant: max_players %d outside [%d,%d]",
			s.MaxPlayers, cfg.MinPlayers, cfg.MaxPlayers)
	}

	return s, nil
}
