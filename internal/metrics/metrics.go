// Package metrics counts pipeline progress on a private prometheus registry.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run holds the counters for one preprocessing run.
type Run struct {
	reg *prometheus.Registry

	gamesRead     prometheus.Counter
	gamesAccepted prometheus.Counter
	gamesSkipped  *prometheus.CounterVec
	runDuration   prometheus.Gauge
}

// NewRun registers the run metrics on a fresh registry.
func NewRun() *Run {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Run{
		reg: reg,
		gamesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chessfeat_games_read_total",
				Help: "Total number of game records read from the archive",
			},
		),
		gamesAccepted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "chessfeat_games_accepted_total",
				Help: "Total number of games that produced a feature record",
			},
		),
		gamesSkipped: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chessfeat_games_skipped_total",
				Help: "Total number of games dropped, by reason",
			},
			[]string{"reason"},
		),
		runDuration: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "chessfeat_run_duration_seconds",
				Help: "Wall time of the last processing run in seconds",
			},
		),
	}
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry {
	return r.reg
}

// GameRead counts one record pulled from the archive.
func (r *Run) GameRead() {
	r.gamesRead.Inc()
}

// GameAccepted counts one emitted feature record.
func (r *Run) GameAccepted() {
	r.gamesAccepted.Inc()
}

// GameSkipped counts one dropped game.
func (r *Run) GameSkipped(reason string) {
	r.gamesSkipped.WithLabelValues(reason).Inc()
}

// Finished records the run wall time.
func (r *Run) Finished(elapsed time.Duration) {
	r.runDuration.Set(elapsed.Seconds())
}

// WriteTextfile writes the registry in the node-exporter textfile format.
func (r *Run) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics %s: %w", path, err)
	}
	return nil
}
