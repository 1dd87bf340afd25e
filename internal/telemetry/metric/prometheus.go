package metric

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace prefixes every docmirror metric.
const Namespace = "docmirror"

// Document outcomes recorded by DocumentProcessed.
const (
	OutcomeCreated   = "created"
	OutcomeUpdated   = "updated"
	OutcomeUnchanged = "unchanged"
	OutcomeFailed    = "failed"
)

// Registry holds all application metrics.
//
// A nil *Registry is valid and records nothing.
type Registry struct {
	reg *prometheus.Registry

	syncRuns         *prometheus.CounterVec
	syncDuration     prometheus.Histogram
	lastSync         prometheus.Gauge
	documents        *prometheus.CounterVec
	downloadBytes    prometheus.Counter
	downloadDuration prometheus.Histogram
}

// NewRegistry creates a registry with the docmirror metrics and the Go
// runtime collectors registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	factory := promauto.With(reg)

	return &Registry{
		reg: reg,
		syncRuns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "runs_total",
			Help:      "Total number of sync runs by result",
		}, []string{"result"}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "duration_seconds",
			Help:      "Duration of a full sync run in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 12),
		}),
		lastSync: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix timestamp of the last completed sync run",
		}),
		documents: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "sync",
			Name:      "documents_total",
			Help:      "Documents processed by outcome",
		}, []string{"outcome"}),
		downloadBytes: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "remote",
			Name:      "download_bytes_total",
			Help:      "Total bytes of document content downloaded",
		}),
		downloadDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Subsystem: "remote",
			Name:      "download_duration_seconds",
			Help:      "Document download duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Registerer returns the registerer for components that bring their own
// collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	if r == nil {
		return nil
	}
	return r.reg
}

// Gatherer returns the gatherer backing this registry.
func (r *Registry) Gatherer() prometheus.Gatherer {
	if r == nil {
		return nil
	}
	return r.reg
}

// DocumentProcessed counts one document outcome.
func (r *Registry) DocumentProcessed(outcome string) {
	if r == nil {
		return
	}
	r.documents.WithLabelValues(outcome).Inc()
}

// DownloadCompleted records one content download.
func (r *Registry) DownloadCompleted(bytes int, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.downloadBytes.Add(float64(bytes))
	r.downloadDuration.Observe(elapsed.Seconds())
}

// SyncCompleted records the end of a sync run.
func (r *Registry) SyncCompleted(ok bool, elapsed time.Duration, at time.Time) {
	if r == nil {
		return
	}
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.syncRuns.WithLabelValues(result).Inc()
	r.syncDuration.Observe(elapsed.Seconds())
	r.lastSync.Set(float64(at.Unix()))
}

// WriteTextfile writes every metric to path in the text exposition format,
// for the node exporter textfile collector. The write is atomic.
func (r *Registry) WriteTextfile(path string) error {
	if r == nil {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create metrics dir: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, r.reg); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
