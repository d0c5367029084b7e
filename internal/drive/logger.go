// Package drive backs up user data to Google Drive: it resolves stored OAuth
// credentials, manages the backup folder and rotates the last three backups.
package drive

import "github.com/jobapply/jobapply/internal/logger"

// GetLogger returns the drive module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("drive")
}
