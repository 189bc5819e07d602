// ABOUTME: Watch mode: build once, then simmer again whenever the config file changes
// ABOUTME: Uses fsnotify on the config directory so editors that replace files on save still trigger

package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"playlist-simmer/config"
	"playlist-simmer/metrics"
)

// reloadDebounce coalesces the burst of events a single save produces
const reloadDebounce = 200 * time.Millisecond

// RunWatch builds the playlist once and re-simmers a fresh copy on every config change
func RunWatch(ctx context.Context, sess *session, cfg config.Config) error {
	path := sess.opts.ConfigPath

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() {
		if err := watcher.Close(); err != nil {
			log.Printf("Warning: failed to close watcher: %v", err)
		}
	}()

	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config: %w", err)
	}

	buildRun := metrics.NewRun(sess.opts.Evaluator)

	fmt.Printf("Reading playlist: %s\n", sess.opts.PlaylistID)

	pt := newProgressTracker(os.Stdout, isTTY(os.Stdout))
	base, err := sess.build(ctx, cfg, buildRun, pt.update)
	pt.finish()
	if err != nil {
		return err
	}

	fmt.Printf("Built %q: %d tracks. Watching %s for changes (Ctrl+C to stop)\n", base.Name, base.Len(), path)

	shared := config.NewSharedConfig(cfg)
	precision := minDisplayPrecision
	previous := transitionCost(base)
	run := buildRun

	for {
		t := base.Clone()
		res, err := sess.simmer(ctx, t, shared.Get(), run)
		sess.finishMetrics(run)

		switch {
		case ctx.Err() != nil:
			return nil
		case err != nil:
			log.Printf("Run failed: %v", err)
		default:
			cost := transitionCost(t)

			var costStr string
			costStr, precision = FormatWithMonotonicPrecision(previous, cost, precision)
			fmt.Printf("%s run %s: %d tracks, %d suggested, mean transition %s\n",
				time.Now().Format("15:04:05"), shortRunID(res.RunID), t.Len(), len(res.Inserted), costStr)
			previous = cost
		}

		if err := waitForReload(ctx, watcher, sess, shared); err != nil {
			return nil //nolint:nilerr // Cancellation ends watch mode cleanly
		}

		run = metrics.NewRun(sess.opts.Evaluator)
	}
}

// waitForReload blocks until the config file changes and loads cleanly.
// A broken file keeps the previous config and waits for the next save.
func waitForReload(ctx context.Context, watcher *fsnotify.Watcher, sess *session, shared *config.SharedConfig) error {
	path := sess.opts.ConfigPath

	for {
		if err := waitForWrite(ctx, watcher, path); err != nil {
			return err
		}

		reloaded, err := shared.Reload(path)
		if err != nil {
			log.Printf("WARN config: keeping previous config: %v", err)
			continue
		}

		shared.Update(sess.applyOverrides(reloaded))
		debugf("Config reloaded from %s", path)

		return nil
	}
}

// waitForWrite blocks until path is written or created, then lets the burst settle
func waitForWrite(ctx context.Context, watcher *fsnotify.Watcher, path string) error {
	target := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return context.Canceled
			}
			if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			debugf("Config event: %s", event)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(reloadDebounce):
			}
			drain(watcher.Events)

			return nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return context.Canceled
			}
			log.Printf("Watcher error: %v", err)
		}
	}
}

// drain discards queued events
func drain(events <-chan fsnotify.Event) {
	for {
		select {
		case <-events:
		default:
			return
		}
	}
}

// shortRunID trims a run id to its first block
func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
