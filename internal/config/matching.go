package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	toml "github.com/pelletier/go-toml/v2"
)

// MatchingConfig holds tunable weights for candidate scoring
type MatchingConfig struct {
	// Candidates whose service relevance score is below this are ineligible
	MinBaseScore int `toml:"min_base_score"`

	// Duration differences up to this many seconds earn a bonus instead of a penalty
	DurationToleranceSeconds float64 `toml:"duration_tolerance_seconds"`
	// Points deducted per second beyond the tolerance
	DurationPenaltyPerSecond float64 `toml:"duration_penalty_per_second"`
	// Bonus for an exact duration match; shrinks by one point per second of difference
	MaxDurationBonus int `toml:"max_duration_bonus"`
	// Deducted when the target duration is known but the candidate has none
	MissingDurationPenalty int `toml:"missing_duration_penalty"`

	StrongArtistBonus     int `toml:"strong_artist_bonus"`
	WeakArtistBonus       int `toml:"weak_artist_bonus"`
	ArtistMismatchPenalty int `toml:"artist_mismatch_penalty"`

	// "Various Artists" credits: penalty with and without known artist information
	CompilationPenalty         int `toml:"compilation_penalty"`
	CompilationPenaltyNoArtist int `toml:"compilation_penalty_no_artist"`

	// Minimum top score the pipeline accepts as a match
	AcceptanceThreshold int `toml:"acceptance_threshold"`

	// Words ignored when comparing artist names
	StopWords []string `toml:"stop_words"`
}

// DefaultMatchingConfig returns the built-in weights
func DefaultMatchingConfig() *MatchingConfig {
	return &MatchingConfig{
		MinBaseScore:               60,
		DurationToleranceSeconds:   5,
		DurationPenaltyPerSecond:   5,
		MaxDurationBonus:           5,
		MissingDurationPenalty:     15,
		StrongArtistBonus:          25,
		WeakArtistBonus:            15,
		ArtistMismatchPenalty:      15,
		CompilationPenalty:         20,
		CompilationPenaltyNoArtist: 5,
		AcceptanceThreshold:        75,
		StopWords:                  []string{"official", "topic", "records", "music", "video", "channel"},
	}
}

// LoadMatchingConfig decodes a matching.toml over the defaults, so absent keys
// keep their default and explicit zeros apply. An explicit path must exist;
// without one the well-known locations are probed and a missing file simply
// yields the defaults.
func LoadMatchingConfig(explicitPath string) (*MatchingConfig, string, error) {
	if explicitPath != "" {
		cfg, err := loadMatchingConfigFromPath(explicitPath)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load matching config %s: %w", explicitPath, err)
		}
		if cfg == nil {
			return nil, "", fmt.Errorf("matching config %s does not exist", explicitPath)
		}
		return cfg, explicitPath, nil
	}

	for _, p := range candidateMatchingConfigPaths() {
		cfg, err := loadMatchingConfigFromPath(p)
		if err != nil {
			return nil, "", fmt.Errorf("failed to load matching config %s: %w", p, err)
		}
		if cfg != nil {
			return cfg, p, nil
		}
	}

	return DefaultMatchingConfig(), "", nil
}

// loadMatchingConfigFromPath returns nil, nil when the file does not exist
func loadMatchingConfigFromPath(path string) (*MatchingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	cfg := DefaultMatchingConfig()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// candidateMatchingConfigPaths returns common locations to auto-discover matching config
func candidateMatchingConfigPaths() []string {
	paths := []string{
		"matching.toml",
		filepath.Join("config", "matching.toml"),
	}

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "songmeta", "matching.toml"))
	}

	if home := os.Getenv("HOME"); home != "" {
		paths = append(paths, filepath.Join(home, ".config", "songmeta", "matching.toml"))
	}

	paths = append(paths, filepath.Join(string(os.PathSeparator), "etc", "songmeta", "matching.toml"))
	return paths
}
