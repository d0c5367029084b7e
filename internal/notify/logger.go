// Package notify delivers operator notifications through shoutrrr service URLs.
package notify

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the notify module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("notify")
}
