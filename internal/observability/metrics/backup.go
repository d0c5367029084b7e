package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// BackupMetrics contains the Prometheus metrics of the automatic backup worker.
type BackupMetrics struct {
	Runs          *prometheus.CounterVec
	UsersDisabled prometheus.Counter
	TickDuration  prometheus.Histogram
	BackupSize    prometheus.Histogram
	LastTick      prometheus.Gauge
	registry      *prometheus.Registry
}

// NewBackupMetrics creates and registers the backup worker metrics.
func NewBackupMetrics(registry *prometheus.Registry) (*BackupMetrics, error) {
	m := &BackupMetrics{registry: registry}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register backup metrics: %w", err)
	}
	return m, nil
}

func (m *BackupMetrics) initMetrics() {
	m.Runs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "backup",
		Name:      "runs_total",
		Help:      "Per-user backup outcomes by result (success, failure, not_due, disabled)",
	}, []string{"result"})

	m.UsersDisabled = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: Namespace,
		Subsystem: "backup",
		Name:      "users_disabled_total",
		Help:      "Users whose automatic backups were disabled because Drive is no longer connected",
	})

	m.TickDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "backup",
		Name:      "tick_duration_seconds",
		Help:      "Time spent processing all enabled users in one tick",
		Buckets:   prometheus.ExponentialBuckets(BucketStart1ms, BucketFactor4, BucketCount10),
	})

	m.BackupSize = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: Namespace,
		Subsystem: "backup",
		Name:      "size_bytes",
		Help:      "Size of uploaded backup files in bytes",
		Buckets:   prometheus.ExponentialBuckets(BucketStart256B, BucketFactor2, BucketCount16),
	})

	m.LastTick = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: Namespace,
		Subsystem: "backup",
		Name:      "last_tick_timestamp_seconds",
		Help:      "Unix time at which the last tick finished",
	})
}

// RecordRun counts one per-user outcome.
func (m *BackupMetrics) RecordRun(result string) {
	m.Runs.WithLabelValues(result).Inc()
}

// RecordUserDisabled counts a user disabled for a disconnected account.
func (m *BackupMetrics) RecordUserDisabled() {
	m.UsersDisabled.Inc()
}

// ObserveTick records the duration of a finished tick.
func (m *BackupMetrics) ObserveTick(d time.Duration) {
	m.TickDuration.Observe(d.Seconds())
	m.LastTick.SetToCurrentTime()
}

// ObserveBackupSize records the size of a serialized backup.
func (m *BackupMetrics) ObserveBackupSize(bytes int) {
	m.BackupSize.Observe(float64(bytes))
}

// Collect implements the prometheus.Collector interface.
func (m *BackupMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Runs.Collect(ch)
	ch <- m.UsersDisabled
	ch <- m.TickDuration
	ch <- m.BackupSize
	ch <- m.LastTick
}

// Describe implements the prometheus.Collector interface.
func (m *BackupMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Runs.Describe(ch)
	ch <- m.UsersDisabled.Desc()
	ch <- m.TickDuration.Desc()
	ch <- m.BackupSize.Desc()
	ch <- m.LastTick.Desc()
}
