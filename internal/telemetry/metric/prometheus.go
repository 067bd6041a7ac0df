// Package metric provides Prometheus metrics for ptb-migrate.
package metric

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ptbmigrate"

// Registry holds all application metrics.
type Registry struct {
	registry *prometheus.Registry

	FilesConverted    *prometheus.CounterVec
	ObjectsMigrated   prometheus.Counter
	FieldsRenamed     *prometheus.CounterVec
	SentinelsReplaced prometheus.Counter
	BytesWritten      prometheus.Counter
	RunFailures       *prometheus.CounterVec
	RunDuration       prometheus.Gauge
	LastRun           prometheus.Gauge
}

// NewRegistry creates a registry with every metric registered.
func NewRegistry() *Registry {
	r := &Registry{
		registry: prometheus.NewRegistry(),
		FilesConverted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_converted_total",
			Help:      "Persistence files converted, by category.",
		}, []string{"category"}),
		ObjectsMigrated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "objects_migrated_total",
			Help:      "Telegram objects whose state was migrated.",
		}),
		FieldsRenamed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fields_renamed_total",
			Help:      "Renamed object attributes, by legacy name.",
		}, []string{"field"}),
		SentinelsReplaced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sentinels_replaced_total",
			Help:      "Bot placeholders replaced by the persistent id.",
		}),
		BytesWritten: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_written_total",
			Help:      "Bytes of converted data written.",
		}),
		RunFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "run_failures_total",
			Help:      "Failed runs, by error code.",
		}, []string{"code"}),
		RunDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "run_duration_seconds",
			Help:      "Duration of the last run.",
		}),
		LastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
	}

	r.registry.MustRegister(
		r.FilesConverted,
		r.ObjectsMigrated,
		r.FieldsRenamed,
		r.SentinelsReplaced,
		r.BytesWritten,
		r.RunFailures,
		r.RunDuration,
		r.LastRun,
	)
	return r
}

// RecordFile adds the counts of one converted file.
func (r *Registry) RecordFile(category string, objects int, renamed map[string]int, sentinels int, written int64) {
	r.FilesConverted.WithLabelValues(category).Inc()
	r.ObjectsMigrated.Add(float64(objects))
	for field, n := range renamed {
		r.FieldsRenamed.WithLabelValues(field).Add(float64(n))
	}
	r.SentinelsReplaced.Add(float64(sentinels))
	r.BytesWritten.Add(float64(written))
}

// RecordFailure counts a failed run under its error code.
func (r *Registry) RecordFailure(code string) {
	if code == "" {
		code = "unknown"
	}
	r.RunFailures.WithLabelValues(code).Inc()
}

// ObserveRun records the duration and completion time of a run.
func (r *Registry) ObserveRun(d time.Duration, finished time.Time) {
	r.RunDuration.Set(d.Seconds())
	r.LastRun.Set(float64(finished.Unix()))
}

// Gatherer exposes the underlying registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.registry
}

// WriteTextfile writes the registry to path in the text exposition
// format. The parent directory must exist.
func (r *Registry) WriteTextfile(path string) error {
	if _, err := os.Stat(filepath.Dir(path)); err != nil {
		return fmt.Errorf("metric: textfile dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metric: write textfile: %w", err)
	}
	return nil
}
