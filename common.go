// ABOUTME: Shared initialization code for all modes (CLI, watch, visual)
// ABOUTME: Opens the catalog, builds the table and runs one simmer with metrics and debug logging

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"playlist-simmer/catalog"
	"playlist-simmer/catalog/cache"
	"playlist-simmer/catalog/local"
	"playlist-simmer/catalog/spotify"
	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/metrics"
	"playlist-simmer/playlist"
)

const debugLogFile = "playlist-simmer-debug.log"

var debugLog *log.Logger

// RunOptions contains command-line options for all modes
type RunOptions struct {
	PlaylistID  string
	CatalogKind string // "spotify" or "local"
	LibraryPath string // Local recommendation pool
	Evaluator   string
	Suggest     *bool // Overrides suggest.enabled when set
	Push        bool
	DumpPath    string
	CachePath   string
	ConfigPath  string
	MetricsFile string
	Sequential  bool
	DebugLog    bool
}

// session holds the catalog shared by every run of one invocation
type session struct {
	opts  RunOptions
	cat   catalog.Catalog
	cache *cache.Cache

	// holdOutputs skips publish and dump during runs; visual mode writes them once on exit
	holdOutputs bool

	// Cache counters already attributed to earlier runs
	mu                   sync.Mutex
	lastHits, lastMisses int64
}

// openSession connects to the selected catalog and wraps it in the cache when asked
func openSession(ctx context.Context, opts RunOptions, cfg config.Config) (*session, error) {
	var cat catalog.Catalog

	switch opts.CatalogKind {
	case "spotify":
		token := os.Getenv("SPOTIFY_TOKEN")
		if token == "" {
			return nil, errors.New("SPOTIFY_TOKEN is not set")
		}
		cat = spotify.NewTokenClient(ctx, token, cfg.SpotifyOptions())
	case "local":
		cat = local.New(opts.LibraryPath)
	default:
		return nil, fmt.Errorf("unknown catalog %q (want spotify or local)", opts.CatalogKind)
	}

	s := &session{opts: opts, cat: cat}

	if opts.CachePath != "" {
		c, err := cache.Open(opts.CachePath, cat)
		if err != nil {
			return nil, err
		}
		s.cache = c
		s.cat = c
		debugf("Caching features and analysis in %s", opts.CachePath)
	}

	return s, nil
}

// Close releases the cache database
func (s *session) Close() error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Close()
}

// applyOverrides applies command-line overrides on top of the loaded config
func (s *session) applyOverrides(cfg config.Config) config.Config {
	if s.opts.Suggest != nil {
		cfg.Suggest.Enabled = *s.opts.Suggest
	}
	return cfg
}

// build constructs the playlist table, reporting progress when progress is set
func (s *session) build(ctx context.Context, cfg config.Config, run *metrics.Run, progress func(done, total int)) (*playlist.Table, error) {
	start := time.Now()
	defer run.ObserveStage("build", start)

	opts := cfg.BuildOptions()
	opts.Sequential = s.opts.Sequential
	opts.Progress = progress
	opts.Debugf = debugf

	t, err := playlist.Build(ctx, s.cat, s.opts.PlaylistID, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to build playlist: %w", err)
	}

	run.TracksBuilt(t.Len(), len(t.Skipped))
	debugf("Built %q: %d tracks, %d skipped in %s", t.Name, t.Len(), len(t.Skipped), time.Since(start))

	return t, nil
}

// simmer reorders t with the configured evaluator, suggests bridges and publishes when asked
func (s *session) simmer(ctx context.Context, t *playlist.Table, cfg config.Config, run *metrics.Run) (evaluator.Result, error) {
	evOpts := cfg.EvaluatorOptions()
	evOpts.Debugf = debugf
	evOpts.Tour.Debugf = debugf
	evOpts.Tour.Recovered = run.TourRecovered

	ev, err := evaluator.ByName(s.opts.Evaluator, evOpts)
	if err != nil {
		return evaluator.Result{}, err
	}

	simOpts := evaluator.SimmerOptions{
		Suggest:     cfg.Suggest.Enabled,
		Recommender: s.cat,
		Metrics:     run,
		Debugf:      debugf,
	}
	if s.opts.Push && !s.holdOutputs {
		simOpts.Publisher = s.cat
	}

	res, err := evaluator.Simmer(ctx, t, ev, simOpts)
	if err != nil {
		return res, err
	}

	if !s.holdOutputs {
		if err := s.dump(t); err != nil {
			return res, err
		}
	}

	return res, nil
}

// dump writes the table as JSON when -dump is set
func (s *session) dump(t *playlist.Table) error {
	if s.opts.DumpPath == "" {
		return nil
	}
	if err := t.Dump(s.opts.DumpPath); err != nil {
		return fmt.Errorf("failed to dump table: %w", err)
	}
	debugf("Dumped %d rows to %s", t.Len(), s.opts.DumpPath)

	return nil
}

// writeOutputs publishes and dumps a result held back during visual mode
func (s *session) writeOutputs(ctx context.Context, t *playlist.Table, res evaluator.Result) error {
	if s.opts.Push {
		if err := s.cat.ReplacePlaylistTracks(ctx, t.PlaylistID, res.IDs); err != nil {
			return fmt.Errorf("publish: %w", err)
		}
	}

	return s.dump(t)
}

// finishMetrics attributes new cache lookups to run and writes the textfile when configured
func (s *session) finishMetrics(run *metrics.Run) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cache != nil {
		hits, misses := s.cache.Stats()
		run.CacheLookups(hits-s.lastHits, misses-s.lastMisses)
		s.lastHits, s.lastMisses = hits, misses
	}

	if s.opts.MetricsFile == "" {
		return
	}
	if err := run.WriteTextfile(s.opts.MetricsFile); err != nil {
		log.Printf("WARN metrics: %v", err)
	}
}

// SetupDebugLog initializes debug logging
func SetupDebugLog(filename string) error {
	if err := InitDebugLog(filename); err != nil {
		return fmt.Errorf("failed to initialize debug log: %w", err)
	}

	if isTTY(os.Stdout) {
		fmt.Printf("Debug logging enabled: %s\n", filename)
	}

	return nil
}

// InitDebugLog initializes debug logging
func InitDebugLog(filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create debug log file: %w", err)
	}

	debugLog = log.New(f, "", log.Ltime|log.Lmicroseconds)

	return nil
}

// debugf logs debug messages if enabled
func debugf(format string, args ...any) {
	if debugLog != nil {
		debugLog.Printf(format, args...)
	}
}

// isTTY checks if the given file is a terminal
func isTTY(f *os.File) bool {
	stat, err := f.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) != 0
}

// truncate shortens string to maxLen runes, adding "..." if needed
func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}

	if maxLen <= 3 {
		return string(r[:maxLen])
	}

	return string(r[:maxLen-3]) + "..."
}
