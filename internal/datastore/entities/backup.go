package entities

import "time"

// BackupSettings holds a user's automatic backup preference. One row per user.
type BackupSettings struct {
	ID        uint       `gorm:"primaryKey"`
	UserID    uint       `gorm:"not null;uniqueIndex"`
	Enabled   bool       `gorm:"not null;default:false;index"`
	LastRunAt *time.Time `gorm:"index"` // nil until the first successful backup
	CreatedAt time.Time  `gorm:"autoCreateTime"`
	UpdatedAt time.Time  `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (BackupSettings) TableName() string {
	return "reports_cloudbackupsettings"
}
