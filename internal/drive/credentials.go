package drive

import (
	"context"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

// CredentialStore reads linked accounts and tokens. Lookups that miss
// return an error for which errors.IsNotFound is true.
type CredentialStore interface {
	FindAccount(ctx context.Context, userID uint, provider string) (*entities.RemoteAccount, error)
	FindToken(ctx context.Context, accountID uint) (*entities.RemoteToken, error)
	FindApp(ctx context.Context, appID uint) (*entities.OAuthApp, error)
}

// OAuthClient is the fallback OAuth client used when a token has no app record.
type OAuthClient struct {
	ClientID     string
	ClientSecret string
	TokenURL     string // empty for Google's token endpoint
	Scopes       []string
}

// Credentials are API-ready OAuth credentials for one user.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
	Expiry       time.Time
}

// Config returns the OAuth2 client configuration.
func (c *Credentials) Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint: oauth2.Endpoint{
			AuthURL:  google.Endpoint.AuthURL,
			TokenURL: c.TokenURL,
		},
		Scopes: c.Scopes,
	}
}

// Token returns the stored token. A zero expiry is treated as expired so the
// first request refreshes it.
func (c *Credentials) Token() *oauth2.Token {
	expiry := c.Expiry
	if expiry.IsZero() {
		expiry = time.Unix(1, 0)
	}
	return &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

// TokenSource returns a refreshing token source for the credentials.
func (c *Credentials) TokenSource(ctx context.Context) oauth2.TokenSource {
	return c.Config().TokenSource(ctx, c.Token())
}

// Status describes whether a user can be backed up. Err is set when the
// lookup itself failed.
type Status struct {
	Connected       bool
	HasRefreshToken bool
	Err             error
}

// Ready reports whether backups can run for the user.
func (s Status) Ready() bool {
	return s.Connected && s.HasRefreshToken
}

// CredentialResolver turns stored tokens into Credentials.
type CredentialResolver struct {
	store    CredentialStore
	fallback OAuthClient
}

// NewCredentialResolver creates a CredentialResolver.
func NewCredentialResolver(store CredentialStore, fallback OAuthClient) *CredentialResolver {
	if fallback.TokenURL == "" {
		fallback.TokenURL = google.Endpoint.TokenURL
	}
	return &CredentialResolver{store: store, fallback: fallback}
}

// Resolve returns the user's credentials or ErrNotConnected,
// ErrMissingToken or ErrMissingRefreshToken.
func (r *CredentialResolver) Resolve(ctx context.Context, userID uint) (*Credentials, error) {
	account, err := r.store.FindAccount(ctx, userID, entities.ProviderGoogle)
	if errors.IsNotFound(err) {
		return nil, ErrNotConnected
	}
	if err != nil {
		return nil, Translate("resolve_credentials", err)
	}

	token, err := r.store.FindToken(ctx, account.ID)
	if errors.IsNotFound(err) {
		return nil, ErrMissingToken
	}
	if err != nil {
		return nil, Translate("resolve_credentials", err)
	}
	if strings.TrimSpace(token.Secret) == "" {
		return nil, ErrMissingRefreshToken
	}

	creds := &Credentials{
		AccessToken:  token.Token,
		RefreshToken: token.Secret,
		ClientID:     r.fallback.ClientID,
		ClientSecret: r.fallback.ClientSecret,
		TokenURL:     r.fallback.TokenURL,
		Scopes:       r.fallback.Scopes,
	}
	if token.ExpiresAt != nil {
		creds.Expiry = *token.ExpiresAt
	}

	if token.AppID != nil {
		app, err := r.store.FindApp(ctx, *token.AppID)
		switch {
		case err == nil:
			creds.ClientID = app.ClientID
			creds.ClientSecret = app.Secret
		case errors.IsNotFound(err):
			GetLogger().Debug("token app record missing, using configured client",
				logger.Uint("user_id", userID),
				logger.Uint("app_id", *token.AppID))
		default:
			return nil, Translate("resolve_credentials", err)
		}
	}

	return creds, nil
}

// Status probes the user's connection state. It never fails; lookup errors
// degrade to a disconnected status carrying Err.
func (r *CredentialResolver) Status(ctx context.Context, userID uint) Status {
	account, err := r.store.FindAccount(ctx, userID, entities.ProviderGoogle)
	if errors.IsNotFound(err) {
		return Status{}
	}
	if err != nil {
		return Status{Err: err}
	}

	token, err := r.store.FindToken(ctx, account.ID)
	if errors.IsNotFound(err) {
		return Status{Connected: true}
	}
	if err != nil {
		return Status{Err: err}
	}

	return Status{
		Connected:       true,
		HasRefreshToken: strings.TrimSpace(token.Secret) != "",
	}
}
