// Package observability provides Prometheus metrics for the JobApply backup worker.
// Sentry error telemetry is handled in the telemetry package.
package observability

import (
	"database/sql"
	"fmt"
	stdlog "log"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jobapply/jobapply/internal/observability/metrics"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry *prometheus.Registry
	Backup   *metrics.BackupMetrics
	Drive    *metrics.DriveMetrics
}

// NewMetrics creates a new instance of Metrics, initializing all metric collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()

	backupMetrics, err := metrics.NewBackupMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create backup metrics: %w", err)
	}

	driveMetrics, err := metrics.NewDriveMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create drive metrics: %w", err)
	}

	if err := registry.Register(collectors.NewGoCollector()); err != nil {
		return nil, fmt.Errorf("failed to register go collector: %w", err)
	}

	return &Metrics{
		registry: registry,
		Backup:   backupMetrics,
		Drive:    driveMetrics,
	}, nil
}

// RegisterDatabase exports connection pool statistics of db.
func (m *Metrics) RegisterDatabase(db *sql.DB, name string) error {
	if err := m.registry.Register(collectors.NewDBStatsCollector(db, name)); err != nil {
		return fmt.Errorf("failed to register database collector: %w", err)
	}
	return nil
}

// Registry returns the registry all collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RegisterHandlers registers the metrics endpoint with the provided http.ServeMux.
func (m *Metrics) RegisterHandlers(mux *http.ServeMux) {
	mux.HandleFunc("/metrics", m.metricsHandler)
}

// metricsHandler is the HTTP handler for the /metrics endpoint.
func (m *Metrics) metricsHandler(w http.ResponseWriter, r *http.Request) {
	h := promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      stdlog.New(os.Stderr, "metrics handler: ", stdlog.LstdFlags),
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
	h.ServeHTTP(w, r)
}
