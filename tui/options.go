// ABOUTME: Visual mode configuration and injected dependencies
// ABOUTME: Defines what the TUI runs and the functions it calls to build and simmer a playlist

package tui

import (
	"context"

	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/playlist"
)

// Options contains configuration for running the TUI
type Options struct {
	PlaylistID string // Catalog playlist id (or .m3u8 path for the local catalog)
	Evaluator  string // Evaluator name shown in the title
	ConfigPath string // Config file saved on quit and watched when Watch is set
	Watch      bool   // Re-run when the config file changes on disk
}

// BuildFunc constructs the playlist table, reporting progress as tracks complete
type BuildFunc func(ctx context.Context, progress func(done, total int)) (*playlist.Table, error)

// SimmerFunc reorders (and optionally extends) t with the given config
type SimmerFunc func(ctx context.Context, t *playlist.Table, cfg config.Config) (evaluator.Result, error)

// Dependencies holds all external dependencies for the TUI
type Dependencies struct {
	Config ConfigProvider
	Build  BuildFunc
	Simmer SimmerFunc
	Debugf func(format string, args ...any)
}
