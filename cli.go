// ABOUTME: CLI mode implementation for non-interactive playlist simmering
// ABOUTME: Handles build progress, result output, transition cost summary and signal handling

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"playlist-simmer/config"
	"playlist-simmer/evaluator"
	"playlist-simmer/metrics"
	"playlist-simmer/playlist"
	"playlist-simmer/preprocess"
	"playlist-simmer/tour"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")).Padding(0, 1)
	cellStyle     = lipgloss.NewStyle().Padding(0, 1)
	insertedStyle = cellStyle.Foreground(lipgloss.Color("214"))
	borderStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// signalContext returns a context cancelled on SIGINT/SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// RunCLI builds the playlist, simmers it once and prints the result
func RunCLI(ctx context.Context, sess *session, cfg config.Config) error {
	run := metrics.NewRun(sess.opts.Evaluator)
	defer sess.finishMetrics(run)

	fmt.Printf("Reading playlist: %s\n", sess.opts.PlaylistID)

	pt := newProgressTracker(os.Stdout, isTTY(os.Stdout))
	t, err := sess.build(ctx, cfg, run, pt.update)
	pt.finish()
	if err != nil {
		return err
	}

	fmt.Printf("Built %q: %d tracks", t.Name, t.Len())
	if len(t.Skipped) > 0 {
		fmt.Printf(" (%d skipped)", len(t.Skipped))
	}
	fmt.Println()

	original := t.IDs()
	start := time.Now()

	res, err := sess.simmer(ctx, t, cfg, run)
	if err != nil {
		return err
	}

	fmt.Printf("\nSimmered with %s in %v (run %s)\n\n", sess.opts.Evaluator, time.Since(start).Round(time.Millisecond), res.RunID)

	printResult(os.Stdout, t, res)

	// Both orders are measured over the final rows so suggestions share the scale
	before, after := orderCost(t, original), transitionCost(t)
	fmt.Printf("\nMean transition distance: %s -> %s\n",
		FormatMinimalPrecision(after, before), FormatMinimalPrecision(before, after))

	if good, total := harmonicTransitions(t); total > 0 {
		fmt.Printf("Harmonic transitions: %d/%d\n", good, total)
	}

	if res.Clusters > 0 {
		fmt.Printf("Clusters: %d\n", res.Clusters)
	}
	if len(res.Inserted) > 0 {
		fmt.Printf("Suggested: %d tracks\n", len(res.Inserted))
	}

	switch {
	case sess.opts.Push:
		fmt.Printf("Replaced playlist %s with %d tracks\n", t.PlaylistID, len(res.IDs))
	default:
		fmt.Println("Playlist not modified (use -push to write the new order)")
	}

	if sess.opts.DumpPath != "" {
		fmt.Printf("Table written to: %s\n", sess.opts.DumpPath)
	}

	return nil
}

// printResult renders the table rows in play order with their sort keys
func printResult(w io.Writer, t *playlist.Table, res evaluator.Result) {
	inserted := make(map[string]bool, len(res.Inserted))
	for _, s := range res.Inserted {
		inserted[s.Track.ID] = true
	}

	rows := make([][]string, len(t.Rows))
	for i, row := range t.Rows {
		tr := row.Track

		num := strconv.Itoa(i + 1)
		if inserted[tr.ID] {
			num += "+"
		}

		rows[i] = []string{
			num,
			tr.Key.String(),
			fmt.Sprintf("%.0f", tr.Features.Tempo),
			strconv.Itoa(row.Outer),
			strconv.Itoa(row.Inner),
			strconv.Itoa(row.Suggest),
			truncate(tr.Artist, 20),
			truncate(tr.Name, 30),
		}
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(borderStyle).
		Headers("#", "Key", "BPM", "Outer", "Inner", "Sug", "Artist", "Title").
		Rows(rows...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row >= 0 && row < len(t.Rows) && inserted[t.Rows[row].Track.ID]:
				return insertedStyle
			default:
				return cellStyle
			}
		})

	fmt.Fprintln(w, tbl.Render())
}

// transitionCost is the mean distance between consecutive rows in the scaled feature space
func transitionCost(t *playlist.Table) float64 {
	return orderCost(t, t.IDs())
}

// orderCost is the mean distance between consecutive ids, with features scaled
// over every row of t. Ids not in t are ignored.
func orderCost(t *playlist.Table, ids []string) float64 {
	index := make(map[string]int, t.Len())
	for i, r := range t.Rows {
		index[r.Track.ID] = i
	}

	path := make([]int, 0, len(ids))
	for _, id := range ids {
		if i, ok := index[id]; ok {
			path = append(path, i)
		}
	}
	if len(path) < 2 {
		return 0
	}

	d := tour.DistanceMatrix(preprocess.Light(t.Matrix(), t.Artists()), false)

	return tour.Cost(d, path) / float64(len(path)-1)
}

// harmonicTransitions counts consecutive pairs whose Camelot keys mix well
func harmonicTransitions(t *playlist.Table) (good, total int) {
	for i := 1; i < len(t.Rows); i++ {
		total++
		if playlist.HarmonicDistanceParsed(t.Rows[i-1].Track.Key, t.Rows[i].Track.Key) <= 1 {
			good++
		}
	}
	return good, total
}
