// ABOUTME: Rendering and display functions for the TUI
// ABOUTME: Implements the Bubble Tea View() function and all render helpers

package tui

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// View renders the TUI
func (m model) View() string {
	defer func() {
		if r := recover(); r != nil {
			m.debugf("[PANIC] View panic: %v", r)
			m.debugf("[PANIC] Stack trace: %s", string(debug.Stack()))
			panic(r) // Re-panic so Bubble Tea can handle it
		}
	}()

	if m.quitting {
		if m.modified {
			return "Saving config and exiting...\n"
		}
		return "Exiting...\n"
	}

	// Both panels share a height so they join cleanly; leave room for status, summary and help
	panelHeight := m.height - (statusBarHeight + summaryHeight + helpHeight + 1)

	leftPanelStyle := lipgloss.NewStyle().
		Width(paramPanelWidth).
		Height(panelHeight).
		Padding(0, 1)

	rightPanelWidth := max(m.width-paramPanelWidth-panelPadding, minViewportWidth*2)

	rightPanelStyle := lipgloss.NewStyle().
		Width(rightPanelWidth).
		Height(panelHeight).
		Padding(0, 1)

	combined := lipgloss.JoinHorizontal(
		lipgloss.Top,
		leftPanelStyle.Render(m.renderParameters()),
		rightPanelStyle.Render(m.renderPlaylist()),
	)

	return combined + "\n" + m.renderStatus() + "\n" + m.renderSummary() + "\n" + m.renderHelp()
}

// renderParameters renders the parameter control panel
func (m model) renderParameters() string {
	var s strings.Builder

	title := "Simmer parameters"
	if m.focusedPanel == panelParams {
		title = "► " + title + " [FOCUSED]"
	}

	s.WriteString(titleStyle.Render(title) + "\n\n")

	for i, param := range m.paramMgr.All() {
		// Fixed width formatting to prevent column misalignment
		prefix := "  "
		if i == m.paramMgr.Selected() {
			prefix = "► "
		}

		line := fmt.Sprintf("%s%-25s %6s", prefix, param.Name, formatParam(param))

		if i == m.paramMgr.Selected() {
			s.WriteString(selectedParamStyle.Render(line) + "\n")
		} else {
			s.WriteString(paramStyle.Render(line) + "\n")
		}
	}

	fmt.Fprintf(&s, "\n%s\n", helpStyle.Render("Evaluator: "+m.opts.Evaluator))

	return s.String()
}

// formatParam renders a parameter value for display
func formatParam(p Parameter) string {
	switch {
	case p.IsBool():
		if *p.BoolValue {
			return "on"
		}
		return "off"
	case p.IsInt():
		return strconv.Itoa(*p.IntValue)
	case p.Value != nil:
		return fmt.Sprintf("%.2f", *p.Value)
	default:
		return "N/A"
	}
}

// renderPlaylist renders the right panel for the current phase
func (m model) renderPlaylist() string {
	var s strings.Builder

	title := "Simmered playlist"
	if m.phase == phaseBuilding {
		title = "Analysing playlist"
	}
	if m.focusedPanel == panelPlaylist {
		title = "► " + title + " [FOCUSED]"
	}

	s.WriteString(titleStyle.Render(title) + "\n\n")

	switch m.phase {
	case phaseBuilding:
		fmt.Fprintf(&s, "%s Fetching features for %s\n\n", m.spinner.View(), m.opts.PlaylistID)
		if m.total > 0 {
			s.WriteString(m.progress.ViewAs(float64(m.done)/float64(m.total)) + "\n")
			fmt.Fprintf(&s, "%d/%d tracks\n", m.done, m.total)
		}

	case phaseFailed:
		s.WriteString(errorStyle.Render(fmt.Sprintf("Failed: %v", m.runErr)) + "\n")

	case phaseSimmering:
		fmt.Fprintf(&s, "%s Simmering with %s\n\n", m.spinner.View(), m.opts.Evaluator)
		if m.table != nil {
			s.WriteString(m.renderRows())
		}

	default:
		s.WriteString(m.renderRows())
	}

	return s.String()
}

// renderRows renders the column header and the scrolled rows
func (m model) renderRows() string {
	header := fmt.Sprintf("%-3s %-4s %-4s %-5s %-5s %-3s %-20s %-30s",
		"#", "Key", "BPM", "Outer", "Inner", "Sug", "Artist", "Title")

	return playlistHeaderStyle.Render(header) + "\n" + m.viewport.View()
}

// updateViewportContent builds and sets the viewport content
// Renders ALL rows - let viewport handle scrolling
func (m *model) updateViewportContent() {
	if m.table == nil {
		m.viewport.SetContent("")
		return
	}

	var content strings.Builder

	for i, row := range m.table.Rows {
		tr := row.Track

		line := fmt.Sprintf("%-3d %-4s %-4.0f %-5d %-5d %-3d %-20s %-30s",
			i+1,
			tr.Key.String(),
			tr.Features.Tempo,
			row.Outer,
			row.Inner,
			row.Suggest,
			truncate(tr.Artist, 20),
			truncate(tr.Name, 30),
		)

		switch {
		case i == m.cursorPos:
			line = cursorStyle.Render(line)
		case m.inserted[tr.ID]:
			line = insertedStyle.Render(line)
		}

		content.WriteString(line + "\n")
	}

	m.viewport.SetContent(content.String())
}

// renderStatus renders the status bar
func (m model) renderStatus() string {
	// Show status message if recent
	if m.statusMsg != "" && time.Since(m.statusMsgAge) < statusMessageDuration {
		return statusStyle.Width(m.width).Render(m.statusMsg)
	}

	undoInfo := fmt.Sprintf("U:%d R:%d", m.undoMgr.UndoSize(), m.undoMgr.RedoSize())

	var status string
	switch m.phase {
	case phaseBuilding:
		status = fmt.Sprintf("Building | %d/%d tracks | %s", m.done, m.total, undoInfo)
	case phaseSimmering:
		status = fmt.Sprintf("Simmering | %s", undoInfo)
	case phaseFailed:
		status = fmt.Sprintf("Failed | %s", undoInfo)
	default:
		status = fmt.Sprintf("%d tracks | Track %d/%d | %s | %s",
			m.rowCount(), m.cursorPos+1, m.rowCount(), undoInfo, m.elapsed.Round(time.Millisecond))
	}

	return statusStyle.Width(m.width).Render(status)
}

// renderSummary renders a one-line summary of the last run
func (m model) renderSummary() string {
	if m.table == nil {
		return ""
	}

	summary := fmt.Sprintf(" Run %s | Clusters: %d | Suggested: %d | Skipped: %d",
		shortID(m.result.RunID),
		m.result.Clusters,
		len(m.result.Inserted),
		len(m.table.Skipped),
	)

	return helpStyle.Render(summary)
}

// renderHelp renders the help text
func (m model) renderHelp() string {
	return helpStyle.Render(" Tab: switch panel | ↑/↓/j/k: navigate | ←/→/h/l: adjust param (params panel) | Shift+↑/↓: select param | s: simmer again | u: undo | ctrl+r: redo | r: reset | q: quit")
}

// shortID trims a run id to its first block
func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

// truncate truncates a string to maxLen characters
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
