package drivetest

import (
	"context"
	"fmt"
	"sync"

	"github.com/jobapply/jobapply/internal/datastore"
	"github.com/jobapply/jobapply/internal/datastore/entities"
)

// CredentialStore is an in-memory drive.CredentialStore.
type CredentialStore struct {
	mu       sync.Mutex
	accounts map[uint]*entities.RemoteAccount // by user id
	tokens   map[uint]*entities.RemoteToken   // by account id
	apps     map[uint]*entities.OAuthApp
	err      error
}

// NewCredentialStore returns an empty store.
func NewCredentialStore() *CredentialStore {
	return &CredentialStore{
		accounts: make(map[uint]*entities.RemoteAccount),
		tokens:   make(map[uint]*entities.RemoteToken),
		apps:     make(map[uint]*entities.OAuthApp),
	}
}

// Link adds a Google account for the user without a token.
func (s *CredentialStore) Link(userID uint) *entities.RemoteAccount {
	s.mu.Lock()
	defer s.mu.Unlock()
	account := &entities.RemoteAccount{
		ID:       userID,
		UserID:   userID,
		Provider: entities.ProviderGoogle,
		UID:      fmt.Sprintf("google-%d", userID),
	}
	s.accounts[userID] = account
	return account
}

// Connect links the user and stores a token with the given refresh token.
func (s *CredentialStore) Connect(userID uint, refreshToken string) *entities.RemoteToken {
	account := s.Link(userID)
	s.mu.Lock()
	defer s.mu.Unlock()
	token := &entities.RemoteToken{
		ID:        account.ID,
		AccountID: account.ID,
		Token:     fmt.Sprintf("access-%d", userID),
		Secret:    refreshToken,
	}
	s.tokens[account.ID] = token
	return token
}

// AddApp registers an OAuth app and attaches it to the user's token.
func (s *CredentialStore) AddApp(userID uint, app entities.OAuthApp) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.apps[app.ID] = &app
	if account, ok := s.accounts[userID]; ok {
		if token, ok := s.tokens[account.ID]; ok {
			id := app.ID
			token.AppID = &id
		}
	}
}

// Disconnect removes the user's account and token.
func (s *CredentialStore) Disconnect(userID uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if account, ok := s.accounts[userID]; ok {
		delete(s.tokens, account.ID)
		delete(s.accounts, userID)
	}
}

// FailWith makes every lookup fail with err until reset with nil.
func (s *CredentialStore) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *CredentialStore) FindAccount(_ context.Context, userID uint, provider string) (*entities.RemoteAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	account, ok := s.accounts[userID]
	if !ok || account.Provider != provider {
		return nil, datastore.ErrAccountNotFound
	}
	copied := *account
	return &copied, nil
}

func (s *CredentialStore) FindToken(_ context.Context, accountID uint) (*entities.RemoteToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	token, ok := s.tokens[accountID]
	if !ok {
		return nil, datastore.ErrTokenNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *CredentialStore) FindApp(_ context.Context, appID uint) (*entities.OAuthApp, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	app, ok := s.apps[appID]
	if !ok {
		return nil, datastore.ErrAppNotFound
	}
	copied := *app
	return &copied, nil
}
