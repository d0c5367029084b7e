package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/jobapply/jobapply/internal/logger"
)

// DriveMetrics counts Google Drive API calls.
type DriveMetrics struct {
	Requests *prometheus.CounterVec
	registry *prometheus.Registry
}

// NewDriveMetrics creates and registers the Drive metrics.
func NewDriveMetrics(registry *prometheus.Registry) (*DriveMetrics, error) {
	m := &DriveMetrics{
		registry: registry,
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Subsystem: "drive",
			Name:      "requests_total",
			Help:      "Drive API calls by operation and outcome code (ok or an error code)",
		}, []string{"op", "code"}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register drive metrics: %w", err)
	}
	return m, nil
}

// RecordDriveRequest counts one Drive call.
func (m *DriveMetrics) RecordDriveRequest(op, code string) {
	if code != CodeOK {
		log.Debug("drive request failed", logger.String("op", op), logger.String("code", code))
	}
	m.Requests.WithLabelValues(op, code).Inc()
}

// Collect implements the prometheus.Collector interface.
func (m *DriveMetrics) Collect(ch chan<- prometheus.Metric) {
	m.Requests.Collect(ch)
}

// Describe implements the prometheus.Collector interface.
func (m *DriveMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.Requests.Describe(ch)
}
