package entities

import "time"

// ProviderGoogle identifies Google remote accounts.
const ProviderGoogle = "google"

// RemoteAccount links a user to an external identity provider account.
type RemoteAccount struct {
	ID        uint   `gorm:"primaryKey"`
	UserID    uint   `gorm:"not null;index:idx_account_user_provider"`
	Provider  string `gorm:"type:varchar(30);not null;index:idx_account_user_provider"`
	UID       string `gorm:"column:uid;type:varchar(191);not null"`
	Email     string `gorm:"type:varchar(254)"`
	CreatedAt time.Time
}

// TableName returns the table name for GORM.
func (RemoteAccount) TableName() string {
	return "socialaccount_socialaccount"
}

// RemoteToken stores OAuth tokens for a remote account.
type RemoteToken struct {
	ID        uint       `gorm:"primaryKey"`
	AccountID uint       `gorm:"not null;index"`
	AppID     *uint      // OAuth application that issued the token
	Token     string     `gorm:"type:text;not null"` // access token
	Secret    string     `gorm:"column:token_secret;type:text"` // refresh token
	ExpiresAt *time.Time
}

// TableName returns the table name for GORM.
func (RemoteToken) TableName() string {
	return "socialaccount_socialtoken"
}

// OAuthApp is a registered OAuth client.
type OAuthApp struct {
	ID       uint   `gorm:"primaryKey"`
	Provider string `gorm:"type:varchar(30);not null"`
	Name     string `gorm:"type:varchar(40)"`
	ClientID string `gorm:"type:varchar(191);not null"`
	Secret   string `gorm:"type:varchar(191)"`
}

// TableName returns the table name for GORM.
func (OAuthApp) TableName() string {
	return "socialaccount_socialapp"
}
