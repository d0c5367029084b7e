package entities

import (
	"errors"
	"time"
)

// ApplicationStatus is the pipeline stage of a job application.
type ApplicationStatus string

const (
	StatusApplied   ApplicationStatus = "applied"
	StatusReplied   ApplicationStatus = "replied"
	StatusInterview ApplicationStatus = "interview"
	StatusOffer     ApplicationStatus = "offer"
	StatusRejected  ApplicationStatus = "rejected"
	StatusArchived  ApplicationStatus = "archived"
)

// ApplicationStatuses lists every status in pipeline order.
var ApplicationStatuses = []ApplicationStatus{
	StatusApplied, StatusReplied, StatusInterview, StatusOffer, StatusRejected, StatusArchived,
}

// Valid reports whether s is a known status.
func (s ApplicationStatus) Valid() bool {
	for _, v := range ApplicationStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// JobApplication is a single tracked application owned by a user.
type JobApplication struct {
	ID               uint              `gorm:"primaryKey"`
	UserID           uint              `gorm:"not null;index"`
	Title            string            `gorm:"type:varchar(200);not null"`
	Company          string            `gorm:"type:varchar(200);not null"`
	Location         string            `gorm:"type:varchar(200)"`
	Source           string            `gorm:"type:varchar(100)"`
	Status           ApplicationStatus `gorm:"type:varchar(20);not null;default:applied"`
	AppliedAt        time.Time         `gorm:"type:date;not null"`
	RecruiterReplyAt *time.Time        `gorm:"type:date"`
	Notes            string            `gorm:"type:text"`
	CreatedAt        time.Time         `gorm:"autoCreateTime"`
	UpdatedAt        time.Time         `gorm:"autoUpdateTime"`
}

// TableName returns the table name for GORM.
func (JobApplication) TableName() string {
	return "applications_jobapplication"
}

// InterviewEvent is a scheduled interview linked to an application in the interview stage.
type InterviewEvent struct {
	ID            uint      `gorm:"primaryKey"`
	UserID        uint      `gorm:"not null;index"`
	ApplicationID uint      `gorm:"not null;index"`
	StartsAt      time.Time `gorm:"not null"`
	EndsAt        time.Time `gorm:"not null"`
	Location      string    `gorm:"type:varchar(255)"`
	Notes         string    `gorm:"type:text"`
	CreatedAt     time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM.
func (InterviewEvent) TableName() string {
	return "interviews_interviewevent"
}

// MaxInterviewAge bounds how far in the past an interview may start.
const MaxInterviewAge = 365 * 24 * time.Hour

// Interview validation failures.
var (
	ErrApplicationNotInInterview = errors.New("interview events can be linked only to applications with status=interview")
	ErrInterviewEndsBeforeStart  = errors.New("ends_at must be greater than starts_at")
	ErrInterviewTooOld           = errors.New("starts_at looks invalid (too far in the past)")
)

// Validate checks the event against its application at time now.
func (e *InterviewEvent) Validate(app *JobApplication, now time.Time) error {
	if app == nil || app.Status != StatusInterview {
		return ErrApplicationNotInInterview
	}
	if !e.EndsAt.After(e.StartsAt) {
		return ErrInterviewEndsBeforeStart
	}
	if e.StartsAt.Before(now.Add(-MaxInterviewAge)) {
		return ErrInterviewTooOld
	}
	return nil
}
