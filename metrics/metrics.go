// ABOUTME: Prometheus metrics for one simmer run, kept in a private registry
// ABOUTME: Written out in textfile-collector format for node_exporter pickup

// Package metrics collects counters and stage timings for a single run.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Run holds the metrics of one simmer run. A nil *Run discards everything,
// so callers never need to check whether metrics are enabled.
type Run struct {
	registry *prometheus.Registry

	tracksBuilt         prometheus.Counter
	tracksSkipped       prometheus.Counter
	tourRecoveries      prometheus.Counter
	suggestionsInserted prometheus.Counter
	clusters            prometheus.Gauge
	cacheLookups        *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
}

// NewRun creates a run registry labelled with the evaluator name.
func NewRun(evaluator string) *Run {
	labels := prometheus.Labels{"evaluator": evaluator}

	r := &Run{
		registry: prometheus.NewRegistry(),
		tracksBuilt: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simmer_tracks_built_total",
			Help:        "Tracks constructed into the playlist table.",
			ConstLabels: labels,
		}),
		tracksSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simmer_tracks_skipped_total",
			Help:        "Playlist entries dropped for lacking a catalog id or features.",
			ConstLabels: labels,
		}),
		tourRecoveries: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simmer_tour_recoveries_total",
			Help:        "Tour paths repaired after the heuristic returned duplicates or gaps.",
			ConstLabels: labels,
		}),
		suggestionsInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "simmer_suggestions_inserted_total",
			Help:        "Recommended tracks inserted between weak links.",
			ConstLabels: labels,
		}),
		clusters: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "simmer_clusters",
			Help:        "Outer clusters found by the clustering evaluator.",
			ConstLabels: labels,
		}),
		cacheLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "simmer_cache_lookups_total",
			Help:        "Catalog cache lookups by result.",
			ConstLabels: labels,
		}, []string{"result"}),
		stageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:        "simmer_stage_duration_seconds",
			Help:        "Wall time of each run stage.",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}, []string{"stage"}),
	}

	r.registry.MustRegister(
		r.tracksBuilt,
		r.tracksSkipped,
		r.tourRecoveries,
		r.suggestionsInserted,
		r.clusters,
		r.cacheLookups,
		r.stageDuration,
	)

	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// TracksBuilt records constructed and skipped tracks.
func (r *Run) TracksBuilt(built, skipped int) {
	if r == nil {
		return
	}
	r.tracksBuilt.Add(float64(built))
	r.tracksSkipped.Add(float64(skipped))
}

// TourRecovered counts one repaired tour.
func (r *Run) TourRecovered() {
	if r == nil {
		return
	}
	r.tourRecoveries.Inc()
}

// SuggestionsInserted counts inserted tracks.
func (r *Run) SuggestionsInserted(n int) {
	if r == nil {
		return
	}
	r.suggestionsInserted.Add(float64(n))
}

// Clusters records the outer cluster count.
func (r *Run) Clusters(n int) {
	if r == nil {
		return
	}
	r.clusters.Set(float64(n))
}

// CacheLookups records catalog cache hits and misses.
func (r *Run) CacheLookups(hits, misses int64) {
	if r == nil {
		return
	}
	r.cacheLookups.WithLabelValues("hit").Add(float64(hits))
	r.cacheLookups.WithLabelValues("miss").Add(float64(misses))
}

// ObserveStage records the time since start against stage.
func (r *Run) ObserveStage(stage string, start time.Time) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile writes the run metrics to path in the textfile-collector format.
func (r *Run) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("failed to write metrics: %w", err)
	}
	return nil
}
