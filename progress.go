// ABOUTME: Build progress display for CLI mode
// ABOUTME: Overwrites a status line on terminals and prints sparse milestones otherwise

package main

import (
	"fmt"
	"io"
	"time"
)

const (
	spinnerUpdateInterval = 100 * time.Millisecond
	milestonePercent      = 25 // Non-TTY output reports every quarter
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

// progressTracker renders track construction progress.
// Build serializes Progress calls, so no locking is needed.
type progressTracker struct {
	out        io.Writer
	isTerminal bool
	start      time.Time
	lastDraw   time.Time
	spinnerIdx int
	lastMark   int // Last milestone percentage printed (non-TTY)
}

func newProgressTracker(out io.Writer, isTerminal bool) *progressTracker {
	return &progressTracker{
		out:        out,
		isTerminal: isTerminal,
		start:      time.Now(),
		lastMark:   -1,
	}
}

// update is the playlist.BuildOptions.Progress callback
func (pt *progressTracker) update(done, total int) {
	if total <= 0 {
		return
	}

	if !pt.isTerminal {
		// Non-TTY: only milestones, to avoid log spam in cron and pipes
		mark := done * 100 / total / milestonePercent * milestonePercent
		if mark > pt.lastMark {
			pt.lastMark = mark
			fmt.Fprintf(pt.out, "Analysed %d/%d tracks (%d%%)\n", done, total, mark)
		}
		return
	}

	now := time.Now()
	if done < total && now.Sub(pt.lastDraw) < spinnerUpdateInterval {
		return
	}
	pt.lastDraw = now

	fmt.Fprintf(pt.out, "\r%s %s Analysing %d/%d tracks     ",
		formatElapsed(now.Sub(pt.start)), spinnerFrames[pt.spinnerIdx], done, total)
	pt.spinnerIdx = (pt.spinnerIdx + 1) % len(spinnerFrames)
}

// finish clears the status line (TTY only)
func (pt *progressTracker) finish() {
	if pt.isTerminal {
		fmt.Fprint(pt.out, "\r\033[K")
	}
}

// formatElapsed formats a duration right-padded to 6 chars (max "59m59s")
func formatElapsed(d time.Duration) string {
	var s string
	if d >= time.Minute {
		s = fmt.Sprintf("%dm%ds", int(d.Minutes()), int(d.Seconds())%60)
	} else {
		s = fmt.Sprintf("%ds", int(d.Seconds()))
	}

	return fmt.Sprintf("%6s", s)
}
