package datastore

import (
	"context"
	stderrors "errors"

	"gorm.io/gorm"

	"github.com/jobapply/jobapply/internal/datastore/entities"
)

// CredentialRepository reads linked remote accounts and their OAuth tokens.
type CredentialRepository struct {
	db *gorm.DB
}

// NewCredentialRepository creates a CredentialRepository.
func NewCredentialRepository(store *Store) *CredentialRepository {
	return &CredentialRepository{db: store.DB}
}

// FindAccount returns the user's account for provider or ErrAccountNotFound.
func (r *CredentialRepository) FindAccount(ctx context.Context, userID uint, provider string) (*entities.RemoteAccount, error) {
	var account entities.RemoteAccount
	err := r.db.WithContext(ctx).
		Where("user_id = ? AND provider = ?", userID, provider).
		Order("id").
		First(&account).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, dbError(err, "find_account", "user_id", userID, "provider", provider)
	}
	return &account, nil
}

// FindToken returns the most recent token stored for the account or ErrTokenNotFound.
func (r *CredentialRepository) FindToken(ctx context.Context, accountID uint) (*entities.RemoteToken, error) {
	var token entities.RemoteToken
	err := r.db.WithContext(ctx).
		Where("account_id = ?", accountID).
		Order("id DESC").
		First(&token).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, dbError(err, "find_token", "account_id", accountID)
	}
	return &token, nil
}

// FindApp returns the OAuth app by id or ErrAppNotFound.
func (r *CredentialRepository) FindApp(ctx context.Context, appID uint) (*entities.OAuthApp, error) {
	var app entities.OAuthApp
	err := r.db.WithContext(ctx).First(&app, appID).Error
	if stderrors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAppNotFound
	}
	if err != nil {
		return nil, dbError(err, "find_app", "app_id", appID)
	}
	return &app, nil
}
