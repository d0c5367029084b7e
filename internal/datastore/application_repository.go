package datastore

import (
	"context"
	stderrors "errors"
	"time"

	"gorm.io/gorm"

	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
)

// ApplicationRepository stores job applications and interview events.
type ApplicationRepository struct {
	db *gorm.DB
}

// NewApplicationRepository creates an ApplicationRepository.
func NewApplicationRepository(store *Store) *ApplicationRepository {
	return &ApplicationRepository{db: store.DB}
}

// ListByUser returns all of a user's applications ordered by id.
func (r *ApplicationRepository) ListByUser(ctx context.Context, userID uint) ([]entities.JobApplication, error) {
	var apps []entities.JobApplication
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id").
		Find(&apps).Error; err != nil {
		return nil, dbError(err, "list_applications", "user_id", userID)
	}
	return apps, nil
}

// Get returns the user's application by id. Applications owned by other users are not found.
func (r *ApplicationRepository) Get(ctx context.Context, userID, id uint) (*entities.JobApplication, error) {
	var app entities.JobApplication
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND id = ?", userID, id).
		First(&app).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, dbError(err, "get_application", "user_id", userID, "id", id)
	}
	return &app, nil
}

// Create inserts a new application.
func (r *ApplicationRepository) Create(ctx context.Context, app *entities.JobApplication) error {
	if !app.Status.Valid() {
		return errors.ValidationError("invalid application status " + string(app.Status))
	}
	if err := r.db.WithContext(ctx).Create(app).Error; err != nil {
		return dbError(err, "create_application", "user_id", app.UserID)
	}
	return nil
}

// Update saves all fields of an existing application.
func (r *ApplicationRepository) Update(ctx context.Context, app *entities.JobApplication) error {
	if !app.Status.Valid() {
		return errors.ValidationError("invalid application status " + string(app.Status))
	}
	if err := r.db.WithContext(ctx).Save(app).Error; err != nil {
		return dbError(err, "update_application", "user_id", app.UserID, "id", app.ID)
	}
	return nil
}

// CreateInterview validates the event against its application at now and inserts it.
func (r *ApplicationRepository) CreateInterview(ctx context.Context, event *entities.InterviewEvent, now time.Time) error {
	app, err := r.Get(ctx, event.UserID, event.ApplicationID)
	if err != nil {
		return err
	}
	if err := event.Validate(app, now); err != nil {
		return errors.New(err).
			Component(componentDatastore).
			Category(errors.CategoryValidation).
			Context("application_id", event.ApplicationID).
			Build()
	}
	if err := r.db.WithContext(ctx).Create(event).Error; err != nil {
		return dbError(err, "create_interview", "user_id", event.UserID)
	}
	return nil
}
