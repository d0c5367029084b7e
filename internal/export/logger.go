// Package export serializes job applications to CSV and XLSX and imports them back.
package export

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the export module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("export")
}
