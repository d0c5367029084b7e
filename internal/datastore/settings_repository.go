package datastore

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/jobapply/jobapply/internal/datastore/entities"
)

// SettingsRepository reads and updates per-user backup settings.
type SettingsRepository struct {
	db *gorm.DB
}

// NewSettingsRepository creates a SettingsRepository.
func NewSettingsRepository(store *Store) *SettingsRepository {
	return &SettingsRepository{db: store.DB}
}

// Get returns the user's settings or ErrSettingsNotFound.
func (r *SettingsRepository) Get(ctx context.Context, userID uint) (*entities.BackupSettings, error) {
	var settings entities.BackupSettings
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&settings).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSettingsNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_settings", "user_id", userID)
	}
	return &settings, nil
}

// GetOrCreate returns the user's settings, creating a disabled row on first access.
func (r *SettingsRepository) GetOrCreate(ctx context.Context, userID uint) (*entities.BackupSettings, error) {
	settings, err := r.Get(ctx, userID)
	if err == nil {
		return settings, nil
	}
	if !stderrors.Is(err, ErrSettingsNotFound) {
		return nil, err
	}

	settings = &entities.BackupSettings{UserID: userID}
	if createErr := r.db.WithContext(ctx).Create(settings).Error; createErr != nil {
		// Another process may have created the row first.
		if existing, getErr := r.Get(ctx, userID); getErr == nil {
			return existing, nil
		}
		return nil, dbError(createErr, "create_settings", "user_id", userID)
	}
	return settings, nil
}

// ListEnabled returns all settings rows with automatic backup enabled, ordered by user.
func (r *SettingsRepository) ListEnabled(ctx context.Context) ([]entities.BackupSettings, error) {
	var rows []entities.BackupSettings
	if err := r.db.WithContext(ctx).
		Where("enabled = ?", true).
		Order("user_id").
		Find(&rows).Error; err != nil {
		return nil, dbError(err, "list_enabled")
	}
	return rows, nil
}

// SetEnabled toggles automatic backup for a user, creating the row if needed.
func (r *SettingsRepository) SetEnabled(ctx context.Context, userID uint, enabled bool) error {
	if _, err := r.GetOrCreate(ctx, userID); err != nil {
		return err
	}
	return r.update(ctx, userID, "set_enabled", "enabled", enabled)
}

// MarkRun records a successful backup at t.
func (r *SettingsRepository) MarkRun(ctx context.Context, userID uint, t time.Time) error {
	return r.update(ctx, userID, "mark_run", "last_run_at", t)
}

// update writes a single column plus updated_at.
func (r *SettingsRepository) update(ctx context.Context, userID uint, operation, column string, value any) error {
	result := r.db.WithContext(ctx).
		Model(&entities.BackupSettings{}).
		Where("user_id = ?", userID).
		Update(column, value)
	if result.Error != nil {
		return dbError(result.Error, operation, "user_id", userID)
	}
	if result.RowsAffected == 0 {
		return ErrSettingsNotFound
	}
	return nil
}
