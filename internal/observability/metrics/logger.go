// Package metrics provides Prometheus metrics for observability.
package metrics

import "github.com/jobapply/jobapply/internal/logger"

// Package-level cached logger instance for efficiency.
var log = logger.Global().Module("telemetry")
