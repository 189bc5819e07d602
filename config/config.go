// ABOUTME: Configuration management for the simmer engine's tunable parameters
// ABOUTME: Handles loading/saving TOML config files with validation and fallback to defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"

	"playlist-simmer/catalog/spotify"
	"playlist-simmer/cluster"
	"playlist-simmer/evaluator"
	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
)

var validate = validator.New()

// Config holds every tunable parameter
type Config struct {
	Analysis   Analysis   `toml:"analysis"`
	Clustering Clustering `toml:"clustering"`
	Chaos      Chaos      `toml:"chaos"`
	Tour       Tour       `toml:"tour"`
	Suggest    Suggest    `toml:"suggest"`
	Spotify    Spotify    `toml:"spotify"`
}

// Analysis controls track construction
type Analysis struct {
	ConfidenceThreshold float64 `toml:"confidence_threshold" validate:"gte=0,lte=1"`
	FetchAnalysis       bool    `toml:"fetch_analysis"`
	Workers             int     `toml:"workers" validate:"gte=0"` // 0 = one per CPU
}

// Clustering controls the clustering evaluator
type Clustering struct {
	DistanceThreshold float64 `toml:"distance_threshold" validate:"gt=0"`
	MaxComponents     int     `toml:"max_components" validate:"gte=1"`
	TruncateDistances bool    `toml:"truncate_distances"`
}

// Chaos controls the chaos evaluator
type Chaos struct {
	Offset float64 `toml:"offset" validate:"gte=0"`
}

// Tour controls the tour solver
type Tour struct {
	TwoOpt bool `toml:"two_opt"`
}

// Suggest controls the suggestion engine
type Suggest struct {
	Enabled    bool `toml:"enabled"`
	Divisor    int  `toml:"divisor" validate:"gte=1"`
	Candidates int  `toml:"candidates" validate:"gte=1,lte=100"`
}

// Spotify controls the Web API client
type Spotify struct {
	BaseURL           string  `toml:"base_url" validate:"omitempty,url"`
	RequestsPerSecond float64 `toml:"requests_per_second" validate:"gte=0"`
	Burst             int     `toml:"burst" validate:"gte=0"`
	MaxRetries        int     `toml:"max_retries" validate:"gte=0,lte=10"` // 0 = send each request once
}

// DefaultConfig returns the default configuration
func DefaultConfig() Config {
	return Config{
		Analysis: Analysis{
			ConfidenceThreshold: playlist.DefaultConfidenceThreshold,
			FetchAnalysis:       true,
		},
		Clustering: Clustering{
			DistanceThreshold: cluster.DefaultThreshold,
			MaxComponents:     preprocess.DefaultMaxComponents,
		},
		Chaos: Chaos{Offset: evaluator.DefaultChaosOffset},
		Tour:  Tour{TwoOpt: true},
		Suggest: Suggest{
			Enabled:    true,
			Divisor:    4,
			Candidates: 3,
		},
		Spotify: Spotify{
			BaseURL:           spotify.DefaultBaseURL,
			RequestsPerSecond: 5,
			Burst:             5,
			MaxRetries:        3,
		},
	}
}

// Validate checks every field against its constraints
func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return fmt.Errorf("invalid config: %s failed %q", verrs[0].Namespace(), verrs[0].Tag())
		}
		return fmt.Errorf("invalid config: %w", err)
	}

	return nil
}

// EvaluatorOptions maps the config onto evaluator options
func (c Config) EvaluatorOptions() evaluator.Options {
	opts := evaluator.DefaultOptions()
	opts.DistanceThreshold = c.Clustering.DistanceThreshold
	opts.MaxComponents = c.Clustering.MaxComponents
	opts.TruncateDistances = c.Clustering.TruncateDistances
	opts.ChaosOffset = c.Chaos.Offset
	opts.Tour.TwoOpt = c.Tour.TwoOpt
	opts.Suggest.Divisor = c.Suggest.Divisor
	opts.Suggest.Candidates = c.Suggest.Candidates
	opts.Suggest.ConfidenceThreshold = c.Analysis.ConfidenceThreshold

	return opts
}

// BuildOptions maps the config onto table construction options
func (c Config) BuildOptions() playlist.BuildOptions {
	opts := playlist.DefaultBuildOptions()
	opts.ConfidenceThreshold = c.Analysis.ConfidenceThreshold
	opts.FetchAnalysis = c.Analysis.FetchAnalysis
	opts.Workers = c.Analysis.Workers

	return opts
}

// SpotifyOptions maps the config onto Spotify client options
func (c Config) SpotifyOptions() spotify.Options {
	return spotify.Options{
		BaseURL:           c.Spotify.BaseURL,
		RequestsPerSecond: c.Spotify.RequestsPerSecond,
		Burst:             c.Spotify.Burst,
		MaxRetries:        c.Spotify.MaxRetries,
		Backoff:           500 * time.Millisecond,
	}
}

// GetConfigPath returns the default config file path
// First tries current directory, then falls back to ~/.config/playlist-simmer/config.toml
func GetConfigPath() string {
	if _, err := os.Stat("./playlist-simmer.toml"); err == nil {
		return "./playlist-simmer.toml"
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "./playlist-simmer.toml"
	}

	return filepath.Join(home, ".config", "playlist-simmer", "config.toml")
}

// LoadConfig loads configuration from a TOML file
// A missing file yields defaults; an unreadable, unparsable or invalid file yields defaults and an error.
// Keys absent from the file keep their default values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return DefaultConfig(), fmt.Errorf("failed to read config file: %w", err)
	}

	config := DefaultConfig()
	if err := toml.Unmarshal(data, &config); err != nil {
		return DefaultConfig(), fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return DefaultConfig(), err
	}

	return config, nil
}

// SaveConfig saves configuration to a TOML file
func SaveConfig(path string, config Config) error {
	if err := config.Validate(); err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			fmt.Printf("Warning: failed to close config file: %v\n", err)
		}
	}()

	encoder := toml.NewEncoder(f)
	if err := encoder.Encode(config); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}

// SharedConfig wraps config with RWMutex for safe concurrent access
type SharedConfig struct {
	mu     sync.RWMutex
	config Config
}

// NewSharedConfig returns a SharedConfig holding cfg
func NewSharedConfig(cfg Config) *SharedConfig {
	return &SharedConfig{config: cfg}
}

// Get returns a copy of the current config (thread-safe read)
func (sc *SharedConfig) Get() Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config
}

// Update updates the config (thread-safe write)
func (sc *SharedConfig) Update(config Config) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = config
}

// Reload reads path into the shared config. On error the current config is kept.
func (sc *SharedConfig) Reload(path string) (Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return sc.Get(), err
	}
	sc.Update(cfg)

	return cfg, nil
}
