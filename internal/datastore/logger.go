// Package datastore persists backup settings, linked accounts and job
// applications through GORM on SQLite or MySQL.
package datastore

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the datastore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("datastore")
}
