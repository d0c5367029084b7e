// Package worker runs automatic Drive backups on a fixed tick.
package worker

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the worker module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("worker")
}
