// ABOUTME: Event handling and state updates for the TUI
// ABOUTME: Implements the Bubble Tea Update() function and message handlers

package tui

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"playlist-simmer/config"
)

// Update handles messages and updates the model
//
//nolint:ireturn // Bubble Tea framework requires returning tea.Model interface
func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] Update panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

		// Right panel width: total width - left panel - padding
		viewportWidth := max(msg.Width-paramPanelWidth-panelPadding, minViewportWidth)
		// Height: total height minus all UI chrome
		viewportHeight := max(msg.Height-totalUIChrome, minViewportHeight)

		m.viewport.Width = viewportWidth
		m.viewport.Height = viewportHeight
		m.progress.Width = max(viewportWidth-4, minViewportWidth)

		m.viewport.YOffset = 0
		m.ensureCursorVisible()
		m.updateViewportContent()

		return m, nil

	case progressMsg:
		m.done = msg.Done
		m.total = msg.Total

		return m, waitForProgress(m.progressChan)

	case builtMsg:
		m.base = msg.Table
		m.debugf("[TUI] Built table with %d tracks (%d skipped)", msg.Table.Len(), len(msg.Table.Skipped))

		return m, m.startRun()

	case resultMsg:
		// Ignore results from superseded runs
		if msg.Epoch != m.epoch {
			m.debugf("[TUI] Ignoring stale result: epoch %d != current %d", msg.Epoch, m.epoch)
			return m, nil
		}

		m.phase = phaseDone
		m.runErr = nil
		m.table = msg.Table
		m.result = msg.Result
		m.elapsed = msg.Elapsed
		m.inserted = make(map[string]bool, len(msg.Result.Inserted))
		for _, s := range msg.Result.Inserted {
			m.inserted[s.Track.ID] = true
		}
		m.debugf("[TUI] Run %s finished: %d tracks, %d inserted in %s",
			msg.Result.RunID, msg.Table.Len(), len(msg.Result.Inserted), msg.Elapsed)

		m.ensureCursorVisible()
		m.updateViewportContent()

		return m, nil

	case errMsg:
		if msg.Epoch >= 0 && msg.Epoch != m.epoch {
			m.debugf("[TUI] Ignoring stale error: epoch %d != current %d", msg.Epoch, m.epoch)
			return m, nil
		}
		if errors.Is(msg.Err, context.Canceled) {
			return m, nil
		}

		m.runErr = msg.Err
		if msg.Epoch < 0 || m.table == nil {
			m.phase = phaseFailed
		} else {
			// Keep showing the last good result
			m.phase = phaseDone
		}
		m.setStatusMsg("Error: " + msg.Err.Error())
		m.debugf("[TUI] Run failed: %v", msg.Err)

		return m, nil

	case restartMsg:
		if m.base == nil {
			return m, nil
		}

		return m, m.startRun()

	case configChangedMsg:
		return m, tea.Batch(m.reloadConfig(), waitForConfigChange(m.watcher, m.opts.ConfigPath))

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		pm, cmd := m.progress.Update(msg)
		if p, ok := pm.(progress.Model); ok {
			m.progress = p
		}

		return m, cmd

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m.handleQuitKey()

		case key.Matches(msg, keys.Tab):
			m.handleTabKey()

		case msg.Type == tea.KeyShiftUp:
			m.paramMgr.SelectPrevious()

		case msg.Type == tea.KeyShiftDown:
			m.paramMgr.SelectNext()

		case key.Matches(msg, keys.Up):
			m.handleUpKey()

		case key.Matches(msg, keys.Down):
			m.handleDownKey()

		case key.Matches(msg, keys.PageUp):
			m.moveCursor(m.cursorPos - pageJumpSize)

		case key.Matches(msg, keys.PageDown):
			m.moveCursor(m.cursorPos + pageJumpSize)

		case key.Matches(msg, keys.Home):
			m.moveCursor(0)

		case key.Matches(msg, keys.End):
			m.moveCursor(m.rowCount() - 1)

		case key.Matches(msg, keys.Left):
			return m, m.handleLeftKey()

		case key.Matches(msg, keys.Right):
			return m, m.handleRightKey()

		case key.Matches(msg, keys.Reset):
			return m, m.resetToDefaults()

		case key.Matches(msg, keys.Rerun):
			m.setStatusMsg("Simmering again")
			return m, m.restart()

		case key.Matches(msg, keys.Undo):
			return m, m.undo()

		case key.Matches(msg, keys.Redo):
			return m, m.redo()
		}
	}

	return m, nil
}

// reloadConfig re-reads the watched config file and restarts the run with it
func (m *model) reloadConfig() tea.Cmd {
	cfg, err := m.sharedConfig.Reload(m.opts.ConfigPath)
	if err != nil {
		m.setStatusMsg("Config reload failed: " + err.Error())
		m.debugf("[TUI] Config reload failed: %v", err)
		return nil
	}

	m.undoMgr.Push(ConfigState{Config: *m.localConfig, Selected: m.paramMgr.Selected()})
	*m.localConfig = cfg
	m.setStatusMsg("Config reloaded")

	return m.restart()
}

// handleQuitKey handles the quit key press
func (m *model) handleQuitKey() (model, tea.Cmd) {
	m.quitting = true
	m.runCancel()
	m.cancel()

	// Only persist tuned parameters; an untouched session leaves the file alone
	if m.modified && m.opts.ConfigPath != "" {
		if err := config.SaveConfig(m.opts.ConfigPath, m.sharedConfig.Get()); err != nil {
			m.debugf("[TUI] Failed to save config on quit: %v", err)
		}
	}

	return *m, tea.Quit
}

// handleTabKey handles panel switching
func (m *model) handleTabKey() {
	if m.focusedPanel == panelParams {
		m.focusedPanel = panelPlaylist
	} else {
		m.focusedPanel = panelParams
	}
}

// handleUpKey handles Up/k key press (context-aware navigation)
func (m *model) handleUpKey() {
	if m.focusedPanel == panelParams {
		m.paramMgr.SelectPrevious()
		return
	}
	m.moveCursor(m.cursorPos - 1)
}

// handleDownKey handles Down/j key press (context-aware navigation)
func (m *model) handleDownKey() {
	if m.focusedPanel == panelParams {
		m.paramMgr.SelectNext()
		return
	}
	m.moveCursor(m.cursorPos + 1)
}

// moveCursor moves the track cursor, clamped to the result rows
func (m *model) moveCursor(pos int) {
	m.cursorPos = pos
	m.ensureCursorVisible()
	m.updateViewportContent()
}

// handleLeftKey handles Left/h key press (decrease parameter when params focused)
func (m *model) handleLeftKey() tea.Cmd {
	if m.focusedPanel != panelParams {
		return nil
	}
	return m.changeSelectedParam(m.paramMgr.Decrease)
}

// handleRightKey handles Right/l key press (increase parameter when params focused)
func (m *model) handleRightKey() tea.Cmd {
	if m.focusedPanel != panelParams {
		return nil
	}
	return m.changeSelectedParam(m.paramMgr.Increase)
}
