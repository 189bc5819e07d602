// ABOUTME: Terminal UI model and core state management
// ABOUTME: Bubble Tea model that builds the table, runs the evaluator and re-runs on parameter changes

// Package tui provides the visual mode: build progress, the simmered result and live parameter tuning.
package tui

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime/debug"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"

	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/playlist"
)

// Panel identifiers
const (
	panelParams   = "params"
	panelPlaylist = "playlist"
)

// Run phases
type phase int

const (
	phaseBuilding phase = iota
	phaseSimmering
	phaseDone
	phaseFailed
)

// Layout constants for UI dimensions
const (
	paramPanelWidth = 45 // Left panel width for parameter controls
	panelPadding    = 2  // Horizontal spacing between panels

	// UI chrome heights (elements that reduce available viewport space)
	titleHeight     = 2 // Panel title bars
	headerHeight    = 1 // Column headers for playlist
	statusBarHeight = 1 // Bottom status bar
	summaryHeight   = 1 // Run summary line
	helpHeight      = 1 // Help text line
	spacingHeight   = 2 // Vertical spacing between elements
	totalUIChrome   = titleHeight + headerHeight + statusBarHeight + summaryHeight + helpHeight + spacingHeight

	// Minimum viewport dimensions to ensure usability
	minViewportWidth  = 20
	minViewportHeight = 5
)

// Navigation and interaction constants
const (
	pageJumpSize          = 10              // Number of rows to jump on PageUp/PageDown
	statusMessageDuration = 5 * time.Second // How long to show transient status messages
	maxUndoStackSize      = 50              // Maximum undo/redo history items
)

// model holds the TUI state
type model struct {
	// Dependencies
	sharedConfig ConfigProvider
	build        BuildFunc
	simmer       SimmerFunc
	debugf       func(string, ...any)

	// Configuration
	opts        Options
	localConfig *config.Config // Local config that params point to (pointer so addresses stay valid)
	paramMgr    *ParamManager
	undoMgr     *UndoManager
	modified    bool // Params changed since start; config is saved on quit

	// Run state
	phase    phase
	base     *playlist.Table // Table as built, in catalog order; every run works on a clone
	table    *playlist.Table // Latest simmered table
	result   evaluator.Result
	elapsed  time.Duration
	runErr   error
	epoch    int // Increments each restart to drop results of superseded runs
	done     int // Tracks constructed so far
	total    int
	inserted map[string]bool

	// Background work
	// Framework exception: Bubble Tea's Init/Update/View pattern doesn't allow passing
	// context through function parameters, so cancellation lives on the model.
	ctx          context.Context    //nolint:containedctx // See framework exception above
	cancel       context.CancelFunc // Cancels the build and the current run
	runCancel    context.CancelFunc
	progressChan chan progressMsg
	watcher      *fsnotify.Watcher

	// UI state
	width        int
	height       int
	quitting     bool
	statusMsg    string
	statusMsgAge time.Time
	focusedPanel string
	cursorPos    int
	viewport     viewport.Model
	spinner      spinner.Model
	progress     progress.Model
}

// Key bindings
type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	Reset    key.Binding
	Rerun    key.Binding
	Quit     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Home     key.Binding
	End      key.Binding
	Undo     key.Binding
	Redo     key.Binding
	Tab      key.Binding
}

var keys = keyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "navigate"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "navigate"),
	),
	Left: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "decrease param"),
	),
	Right: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "increase param"),
	),
	Reset: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "reset params"),
	),
	Rerun: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "simmer again"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup"),
		key.WithHelp("pgup", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown"),
		key.WithHelp("pgdn", "page down"),
	),
	Home: key.NewBinding(
		key.WithKeys("home", "g"),
		key.WithHelp("home/g", "first track"),
	),
	End: key.NewBinding(
		key.WithKeys("end", "G"),
		key.WithHelp("end/G", "last track"),
	),
	Undo: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "undo"),
	),
	Redo: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "redo"),
	),
	Tab: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "switch panel"),
	),
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("12"))

	paramStyle = lipgloss.NewStyle().
			Padding(0, 1)

	selectedParamStyle = lipgloss.NewStyle().
				Background(lipgloss.Color("240")).
				Foreground(lipgloss.Color("15")).
				Bold(true).
				Padding(0, 1)

	playlistHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("10"))

	statusStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("236")).
			Foreground(lipgloss.Color("15")).
			Padding(0, 1)

	helpStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	insertedStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	cursorStyle = lipgloss.NewStyle().
			Background(lipgloss.Color("240")).
			Foreground(lipgloss.Color("15"))
)

// Run starts the visual mode. It returns the last result, which may be empty if
// the user quit before a run finished.
func Run(opts Options, deps Dependencies) (*playlist.Table, evaluator.Result, error) {
	m := initModel(opts, deps)

	if opts.Watch && opts.ConfigPath != "" {
		w, err := watchConfig(opts.ConfigPath)
		if err != nil {
			m.debugf("[TUI] Config watch disabled: %v", err)
		} else {
			m.watcher = w
			defer func() {
				if err := w.Close(); err != nil {
					m.debugf("[TUI] Failed to close watcher: %v", err)
				}
			}()
		}
	}

	p := tea.NewProgram(m, tea.WithAltScreen())

	finalModel, err := p.Run()
	if err != nil {
		return nil, evaluator.Result{}, fmt.Errorf("TUI error: %w", err)
	}

	fm, ok := finalModel.(model)
	if !ok {
		return nil, evaluator.Result{}, nil
	}
	if fm.runErr != nil && fm.table == nil {
		return nil, evaluator.Result{}, fm.runErr
	}

	return fm.table, fm.result, nil
}

// initModel creates the initial model with injected dependencies
func initModel(opts Options, deps Dependencies) model {
	cfg := deps.Config.Get()
	localConfig := &cfg

	debugf := deps.Debugf
	if debugf == nil {
		debugf = func(string, ...any) {}
	}

	ctx, cancel := context.WithCancel(context.Background())

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	return model{
		sharedConfig: deps.Config,
		build:        deps.Build,
		simmer:       deps.Simmer,
		debugf:       debugf,

		opts:        opts,
		localConfig: localConfig,
		paramMgr:    NewParamManager(simmerParams(localConfig)),
		undoMgr:     NewUndoManager(maxUndoStackSize),

		phase:    phaseBuilding,
		inserted: map[string]bool{},

		ctx:          ctx,
		cancel:       cancel,
		runCancel:    func() {},
		progressChan: make(chan progressMsg, 16),

		viewport:     viewport.New(0, 0), // Width and height set on first WindowSizeMsg
		spinner:      sp,
		progress:     progress.New(progress.WithDefaultGradient()),
		focusedPanel: panelPlaylist,
	}
}

// Init starts the build
func (m model) Init() tea.Cmd {
	cmds := []tea.Cmd{
		m.startBuild(),
		waitForProgress(m.progressChan),
		m.spinner.Tick,
	}
	if m.watcher != nil {
		cmds = append(cmds, waitForConfigChange(m.watcher, m.opts.ConfigPath))
	}

	return tea.Batch(cmds...)
}

// ========== Background commands ==========

// startBuild constructs the table in the background
func (m model) startBuild() tea.Cmd {
	ctx, build, ch, debugf := m.ctx, m.build, m.progressChan, m.debugf

	return func() tea.Msg {
		defer func() {
			if r := recover(); r != nil {
				debugf("[PANIC] build panic: %v\n%s", r, string(debug.Stack()))
				panic(r)
			}
		}()

		t, err := build(ctx, func(done, total int) {
			select {
			case ch <- progressMsg{Done: done, Total: total}:
			default:
			}
		})
		close(ch)

		if err != nil {
			return errMsg{Epoch: -1, Err: err}
		}

		return builtMsg{Table: t}
	}
}

// waitForProgress waits for build progress and returns it as a message
func waitForProgress(ch <-chan progressMsg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}

		return msg
	}
}

// startRun simmers a clone of the base table with the current config
func (m *model) startRun() tea.Cmd {
	m.runCancel()
	ctx, cancel := context.WithCancel(m.ctx)
	m.runCancel = cancel
	m.phase = phaseSimmering

	epoch, base, cfg, simmer, debugf := m.epoch, m.base, m.sharedConfig.Get(), m.simmer, m.debugf
	debugf("[TUI] Starting run epoch %d", epoch)

	return func() tea.Msg {
		defer func() {
			if r := recover(); r != nil {
				debugf("[PANIC] run panic: %v\n%s", r, string(debug.Stack()))
				panic(r)
			}
		}()

		t := base.Clone()
		start := time.Now()
		res, err := simmer(ctx, t, cfg)
		if err != nil {
			return errMsg{Epoch: epoch, Err: err}
		}

		return resultMsg{Epoch: epoch, Table: t, Result: res, Elapsed: time.Since(start)}
	}
}

// watchConfig watches the directory holding path; editors often replace files on save
func watchConfig(path string) (*fsnotify.Watcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to watch %s: %w", filepath.Dir(path), err)
	}

	return w, nil
}

// waitForConfigChange blocks until path is written or created
func waitForConfigChange(w *fsnotify.Watcher, path string) tea.Cmd {
	target := filepath.Clean(path)

	return func() tea.Msg {
		for {
			select {
			case event, ok := <-w.Events:
				if !ok {
					return nil
				}
				if filepath.Clean(event.Name) == target && event.Has(fsnotify.Write|fsnotify.Create) {
					return configChangedMsg{}
				}
			case _, ok := <-w.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

// ========== Parameter changes ==========

// changeSelectedParam applies fn to the selected parameter and restarts the run if it changed
func (m *model) changeSelectedParam(fn func() bool) tea.Cmd {
	before := ConfigState{Config: *m.localConfig, Selected: m.paramMgr.Selected()}
	if !fn() {
		return nil
	}

	m.undoMgr.Push(before)

	return m.syncConfig()
}

// resetToDefaults resets all parameters to their default values and restarts the run
func (m *model) resetToDefaults() tea.Cmd {
	m.undoMgr.Push(ConfigState{Config: *m.localConfig, Selected: m.paramMgr.Selected()})
	m.paramMgr.ResetToDefaults(config.DefaultConfig())

	return m.syncConfig()
}

// undo restores the previous parameter values
func (m *model) undo() tea.Cmd {
	state, ok := m.undoMgr.Undo(ConfigState{Config: *m.localConfig, Selected: m.paramMgr.Selected()})
	if !ok {
		m.setStatusMsg("Nothing to undo")
		return nil
	}

	m.restoreConfig(state)
	m.setStatusMsg(fmt.Sprintf("Undo (Undo: %d, Redo: %d)", m.undoMgr.UndoSize(), m.undoMgr.RedoSize()))

	return m.syncConfig()
}

// redo restores the next parameter values
func (m *model) redo() tea.Cmd {
	state, ok := m.undoMgr.Redo(ConfigState{Config: *m.localConfig, Selected: m.paramMgr.Selected()})
	if !ok {
		m.setStatusMsg("Nothing to redo")
		return nil
	}

	m.restoreConfig(state)
	m.setStatusMsg(fmt.Sprintf("Redo (Undo: %d, Redo: %d)", m.undoMgr.UndoSize(), m.undoMgr.RedoSize()))

	return m.syncConfig()
}

// restoreConfig writes a snapshot back through the parameter pointers
func (m *model) restoreConfig(state ConfigState) {
	*m.localConfig = state.Config
	m.paramMgr.SetSelected(state.Selected)
}

// syncConfig copies the local config to the shared config and restarts the run
func (m *model) syncConfig() tea.Cmd {
	if p := m.paramMgr.GetSelected(); p != nil {
		m.debugf("[TUI] Parameter changed - %s: %s", p.Name, formatParam(*p))
	}

	m.sharedConfig.Update(*m.localConfig)
	m.modified = true

	return m.restart()
}

// restart invalidates the current run and queues a new one
func (m *model) restart() tea.Cmd {
	m.epoch++
	if m.base == nil {
		// Still building; the first run picks up the new config
		return nil
	}

	return func() tea.Msg { return restartMsg{} }
}

// setStatusMsg sets a transient status message with current timestamp
func (m *model) setStatusMsg(msg string) {
	m.statusMsg = msg
	m.statusMsgAge = time.Now()
}

// rowCount returns the number of rows in the displayed table
func (m model) rowCount() int {
	if m.table == nil {
		return 0
	}
	return m.table.Len()
}

// ensureCursorVisible adjusts viewport offset to keep cursor visible with middle-of-screen scrolling
func (m *model) ensureCursorVisible() {
	vm := NewViewportManager(m.viewport.Height, m.cursorPos, m.rowCount())
	m.cursorPos = vm.ClampCursor(m.cursorPos)
	vm.SetCursorPos(m.cursorPos)
	m.viewport.SetYOffset(vm.CalculateOffset())
}
