// ABOUTME: Entry point for playlist-simmer application
// ABOUTME: Handles command-line parsing, profiling, and routing to CLI, watch or visual modes

// Package main provides the entry point for playlist-simmer, which reorders a
// playlist for sonic flow and suggests bridge tracks between weak links.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"runtime"
	"runtime/pprof"

	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/metrics"
	"playlist-simmer/playlist"
	"playlist-simmer/tui"
)

func main() {
	os.Exit(run())
}

func run() int {
	cpuprofile := flag.String("cpuprofile", "", "write cpu profile to file")
	memprofile := flag.String("memprofile", "", "write memory profile to file")
	catalogKind := flag.String("catalog", "spotify", "track catalog: spotify or local")
	library := flag.String("library", "", "m3u8 playlist used as the recommendation pool (local catalog)")
	evaluatorName := flag.String("evaluator", "clustering", "ordering: clustering, tsp, chaos or feature:<column>")
	suggest := flag.Bool("suggest", false, "insert suggested tracks between weak links (overrides config)")
	noSuggest := flag.Bool("no-suggest", false, "do not insert suggested tracks (overrides config)")
	push := flag.Bool("push", false, "replace the catalog playlist with the result")
	dump := flag.String("dump", "", "write the final table to this JSON file")
	cachePath := flag.String("cache", "", "SQLite file caching audio features and analysis")
	configPath := flag.String("config", "", "config file (default: ./playlist-simmer.toml or ~/.config/playlist-simmer/config.toml)")
	metricsFile := flag.String("metrics-file", "", "write run metrics in Prometheus textfile format")
	visual := flag.Bool("visual", false, "run in visual/interactive mode with live parameter tuning")
	watch := flag.Bool("watch", false, "simmer again whenever the config file changes")
	sequential := flag.Bool("sequential", false, "construct tracks one at a time")
	debug := flag.Bool("debug", false, "enable debug logging to "+debugLogFile)
	flag.Parse()

	args := flag.Args()
	if len(args) != 1 {
		fmt.Println("Usage: playlist-simmer [flags] <playlist>")
		fmt.Println("Example: playlist-simmer 37i9dQZF1DX4sWSpwq3LiO")
		fmt.Println("         playlist-simmer -catalog local -library ~/Music/all.m3u8 ~/Music/late_night.m3u8")
		fmt.Println("\nFlags:")
		flag.PrintDefaults()

		return 1
	}

	if *suggest && *noSuggest {
		log.Printf("-suggest and -no-suggest are mutually exclusive")

		return 1
	}

	if _, err := evaluator.ByName(*evaluatorName, evaluator.DefaultOptions()); err != nil {
		log.Printf("%v (choose from %v or feature:<column>)", err, evaluator.Names)

		return 1
	}

	if *cpuprofile != "" {
		stopCPUProfile := setupCPUProfile(*cpuprofile)
		defer stopCPUProfile()
	}

	if *memprofile != "" {
		defer writeMemoryProfile(*memprofile)
	}

	if *debug {
		// Visual mode owns the terminal, so only announce the log file otherwise
		setup := SetupDebugLog
		if *visual {
			setup = InitDebugLog
		}
		if err := setup(debugLogFile); err != nil {
			log.Printf("Failed to setup debug log: %v", err)

			return 1
		}
	}

	opts := RunOptions{
		PlaylistID:  args[0],
		CatalogKind: *catalogKind,
		LibraryPath: *library,
		Evaluator:   *evaluatorName,
		Push:        *push,
		DumpPath:    *dump,
		CachePath:   *cachePath,
		ConfigPath:  *configPath,
		MetricsFile: *metricsFile,
		Sequential:  *sequential,
		DebugLog:    *debug,
	}
	switch {
	case *suggest:
		opts.Suggest = suggest
	case *noSuggest:
		enabled := false
		opts.Suggest = &enabled
	}

	if opts.ConfigPath == "" {
		opts.ConfigPath = config.GetConfigPath()
	}

	cfg, err := config.LoadConfig(opts.ConfigPath)
	if err != nil {
		log.Printf("WARN config: using defaults: %v", err)
	}
	debugf("Loaded config from %s: %+v", opts.ConfigPath, cfg)

	ctx, stop := signalContext()
	defer stop()

	sess, err := openSession(ctx, opts, cfg)
	if err != nil {
		log.Printf("Catalog error: %v", err)

		return 1
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Printf("Warning: failed to close cache: %v", err)
		}
	}()

	cfg = sess.applyOverrides(cfg)

	switch {
	case *visual:
		err = runVisual(ctx, sess, cfg, *watch)
	case *watch:
		err = RunWatch(ctx, sess, cfg)
	default:
		err = RunCLI(ctx, sess, cfg)
	}

	if err != nil {
		log.Printf("Error: %v", err)

		return 1
	}

	return 0
}

// runVisual wires the session into the TUI. Publishing and dumping wait until the user quits.
func runVisual(ctx context.Context, sess *session, cfg config.Config, watch bool) error {
	sess.holdOutputs = true
	shared := config.NewSharedConfig(cfg)

	deps := tui.Dependencies{
		Config: shared,
		Build: func(ctx context.Context, progress func(done, total int)) (*playlist.Table, error) {
			run := metrics.NewRun(sess.opts.Evaluator)
			t, err := sess.build(ctx, shared.Get(), run, progress)
			sess.finishMetrics(run)
			return t, err
		},
		Simmer: func(ctx context.Context, t *playlist.Table, cfg config.Config) (evaluator.Result, error) {
			run := metrics.NewRun(sess.opts.Evaluator)
			res, err := sess.simmer(ctx, t, cfg, run)
			sess.finishMetrics(run)
			return res, err
		},
		Debugf: debugf,
	}

	t, res, err := tui.Run(tui.Options{
		PlaylistID: sess.opts.PlaylistID,
		Evaluator:  sess.opts.Evaluator,
		ConfigPath: sess.opts.ConfigPath,
		Watch:      watch,
	}, deps)
	if err != nil {
		return err
	}

	if t == nil {
		return nil
	}

	if err := sess.writeOutputs(ctx, t, res); err != nil {
		return err
	}
	if sess.opts.Push {
		fmt.Printf("Replaced playlist %s with %d tracks\n", t.PlaylistID, len(res.IDs))
	}

	return nil
}

// setupCPUProfile starts CPU profiling, returns cleanup function
func setupCPUProfile(filename string) func() {
	f, err := os.Create(filename)
	if err != nil {
		log.Fatalf("could not create CPU profile: %v", err)
	}

	if err := pprof.StartCPUProfile(f); err != nil {
		_ = f.Close()
		log.Fatalf("could not start CPU profile: %v", err)
	}

	return func() {
		pprof.StopCPUProfile()

		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close CPU profile: %v", err)
		}
	}
}

// writeMemoryProfile writes memory profile to file
func writeMemoryProfile(filename string) {
	f, err := os.Create(filename)
	if err != nil {
		log.Printf("could not create memory profile: %v", err)

		return
	}

	defer func() {
		if err := f.Close(); err != nil {
			log.Printf("Warning: failed to close memory profile: %v", err)
		}
	}()

	runtime.GC()

	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Printf("could not write memory profile: %v", err)
	}
}
