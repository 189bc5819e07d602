// ABOUTME: Interfaces and messages exchanged between the TUI and its background work
// ABOUTME: Allows clean separation and easy testing with mocks

package tui

import (
	"time"

	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/playlist"
)

// ConfigProvider provides thread-safe access to the simmer configuration
type ConfigProvider interface {
	Get() config.Config
	Update(cfg config.Config)
	Reload(path string) (config.Config, error)
}

// progressMsg reports table construction progress
type progressMsg struct {
	Done  int
	Total int
}

// builtMsg carries the constructed table
type builtMsg struct {
	Table *playlist.Table
}

// resultMsg carries a finished simmer run. Epoch identifies the run that produced it.
type resultMsg struct {
	Epoch   int
	Table   *playlist.Table
	Result  evaluator.Result
	Elapsed time.Duration
}

// errMsg reports a failed build (Epoch -1) or run
type errMsg struct {
	Epoch int
	Err   error
}

// configChangedMsg is sent when the watched config file changes
type configChangedMsg struct{}

// restartMsg signals that the run should restart with the current config
type restartMsg struct{}
