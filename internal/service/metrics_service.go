package service

import (
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/noah-isme/sma-records/internal/models"
)

// Store labels used by the fallback counters.
const (
	storeRelational = "relational"
	storeLegacy     = "legacy"
)

// MetricsService encapsulates Prometheus instrumentation and keeps lightweight
// totals for status snapshots. There is no HTTP exposure; WriteTextfile dumps
// the registry for a node exporter textfile collector.
type MetricsService struct {
	registry          *prometheus.Registry
	migrationRecords  *prometheus.CounterVec
	categoryDuration  *prometheus.HistogramVec
	fallbackOps       *prometheus.CounterVec
	probeFailures     prometheus.Counter
	lastMigrationTime prometheus.Gauge

	importedCount     uint64
	failedCount       uint64
	relationalOpCount uint64
	legacyOpCount     uint64
	probeFailureCount uint64
}

// NewMetricsService registers the records store collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	migrationRecords := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "migration_records_total",
		Help: "Legacy records processed by the migration, by outcome",
	}, []string{"category", "outcome"})

	categoryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "migration_category_duration_seconds",
		Help:    "Time spent importing one migration category",
		Buckets: prometheus.DefBuckets,
	}, []string{"category"})

	fallbackOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fallback_operations_total",
		Help: "Adapter operations by the store that served them",
	}, []string{"operation", "store"})

	probeFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "health_probe_failures_total",
		Help: "Relational store health probes that failed",
	})

	lastMigrationTime := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "migration_last_run_timestamp_seconds",
		Help: "Unix time the last migration run finished",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(migrationRecords, categoryDuration, fallbackOps, probeFailures, lastMigrationTime, goroutines)

	return &MetricsService{
		registry:          registry,
		migrationRecords:  migrationRecords,
		categoryDuration:  categoryDuration,
		fallbackOps:       fallbackOps,
		probeFailures:     probeFailures,
		lastMigrationTime: lastMigrationTime,
	}
}

// Registry exposes the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveMigrationRecord counts one imported or failed legacy record.
func (m *MetricsService) ObserveMigrationRecord(category string, ok bool) {
	if m == nil {
		return
	}
	outcome := "failed"
	if ok {
		outcome = "imported"
		atomic.AddUint64(&m.importedCount, 1)
	} else {
		atomic.AddUint64(&m.failedCount, 1)
	}
	m.migrationRecords.WithLabelValues(category, outcome).Inc()
}

// ObserveMigrationCategory records how long a category took.
func (m *MetricsService) ObserveMigrationCategory(category string, duration time.Duration) {
	if m == nil {
		return
	}
	m.categoryDuration.WithLabelValues(category).Observe(duration.Seconds())
}

// MarkMigrationFinished stamps the end of a run.
func (m *MetricsService) MarkMigrationFinished(at time.Time) {
	if m == nil {
		return
	}
	m.lastMigrationTime.Set(float64(at.Unix()))
}

// ObserveFallback counts an adapter operation served by store.
func (m *MetricsService) ObserveFallback(operation, store string) {
	if m == nil {
		return
	}
	m.fallbackOps.WithLabelValues(operation, store).Inc()
	if store == storeLegacy {
		atomic.AddUint64(&m.legacyOpCount, 1)
	} else {
		atomic.AddUint64(&m.relationalOpCount, 1)
	}
}

// ObserveProbeFailure counts a failed health probe.
func (m *MetricsService) ObserveProbeFailure() {
	if m == nil {
		return
	}
	m.probeFailures.Inc()
	atomic.AddUint64(&m.probeFailureCount, 1)
}

// WriteTextfile writes the registry in the Prometheus text format. An empty
// path is a no-op.
func (m *MetricsService) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

// Snapshot returns aggregated totals for the status display.
func (m *MetricsService) Snapshot() models.MetricsSnapshot {
	if m == nil {
		return models.MetricsSnapshot{}
	}
	return models.MetricsSnapshot{
		RecordsImported:      atomic.LoadUint64(&m.importedCount),
		RecordsFailed:        atomic.LoadUint64(&m.failedCount),
		RelationalOperations: atomic.LoadUint64(&m.relationalOpCount),
		LegacyOperations:     atomic.LoadUint64(&m.legacyOpCount),
		ProbeFailures:        atomic.LoadUint64(&m.probeFailureCount),
		Goroutines:           runtime.NumGoroutine(),
		GeneratedAt:          time.Now().UTC(),
	}
}
