// Package conf provides configuration management for JobApply.
package conf

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the config package logger scoped to the config module.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
