package datastore

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/errors"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(&conf.DatabaseSettings{
		Driver: conf.DriverSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "jobapply.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func TestHasSettingsTable(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	store, err := Open(&conf.DatabaseSettings{
		Driver: conf.DriverSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "nested", "jobapply.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	assert.False(t, store.HasSettingsTable(ctx))
	require.NoError(t, store.Migrate(ctx))
	assert.True(t, store.HasSettingsTable(ctx))
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(&conf.DatabaseSettings{Driver: "oracle"})
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryConfiguration))
}

func TestMySQLDSN(t *testing.T) {
	t.Parallel()

	dsn := MySQLDSN(&conf.MySQLSettings{
		Host:     "db.internal",
		Port:     3307,
		Username: "jobapply",
		Password: "p@ss/w:rd",
		Database: "jobs",
	})

	cfg, err := gomysql.ParseDSN(dsn)
	require.NoError(t, err)
	assert.Equal(t, "jobapply", cfg.User)
	assert.Equal(t, "p@ss/w:rd", cfg.Passwd)
	assert.Equal(t, "tcp", cfg.Net)
	assert.Equal(t, "db.internal:3307", cfg.Addr)
	assert.Equal(t, "jobs", cfg.DBName)
	assert.True(t, cfg.ParseTime)
	assert.Equal(t, time.UTC, cfg.Loc)
	assert.Equal(t, "utf8mb4", cfg.Params["charset"])
}

func TestSettingsRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewSettingsRepository(newTestStore(t))

	_, err := repo.Get(ctx, 1)
	assert.True(t, errors.IsNotFound(err))

	created, err := repo.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.False(t, created.Enabled)
	assert.Nil(t, created.LastRunAt)

	again, err := repo.GetOrCreate(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, created.ID, again.ID)

	require.NoError(t, repo.SetEnabled(ctx, 1, true))
	require.NoError(t, repo.SetEnabled(ctx, 2, true))
	require.NoError(t, repo.SetEnabled(ctx, 3, false))

	enabled, err := repo.ListEnabled(ctx)
	require.NoError(t, err)
	require.Len(t, enabled, 2)
	assert.Equal(t, uint(1), enabled[0].UserID)
	assert.Equal(t, uint(2), enabled[1].UserID)

	runAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, repo.MarkRun(ctx, 1, runAt))

	got, err := repo.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, got.LastRunAt)
	assert.True(t, runAt.Equal(*got.LastRunAt))
	assert.True(t, got.Enabled)

	err = repo.MarkRun(ctx, 42, runAt)
	assert.True(t, errors.IsNotFound(err))
}

func TestCredentialRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := newTestStore(t)
	repo := NewCredentialRepository(store)

	_, err := repo.FindAccount(ctx, 7, entities.ProviderGoogle)
	assert.True(t, errors.IsNotFound(err))

	app := entities.OAuthApp{Provider: entities.ProviderGoogle, ClientID: "cid", Secret: "csecret"}
	require.NoError(t, store.DB.Create(&app).Error)
	account := entities.RemoteAccount{UserID: 7, Provider: entities.ProviderGoogle, UID: "g-7"}
	require.NoError(t, store.DB.Create(&account).Error)

	found, err := repo.FindAccount(ctx, 7, entities.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, account.ID, found.ID)

	_, err = repo.FindToken(ctx, account.ID)
	assert.True(t, errors.IsNotFound(err))

	older := entities.RemoteToken{AccountID: account.ID, Token: "old", Secret: "r-old"}
	newer := entities.RemoteToken{AccountID: account.ID, AppID: &app.ID, Token: "new", Secret: "r-new"}
	require.NoError(t, store.DB.Create(&older).Error)
	require.NoError(t, store.DB.Create(&newer).Error)

	token, err := repo.FindToken(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new", token.Token)
	assert.Equal(t, "r-new", token.Secret)

	gotApp, err := repo.FindApp(ctx, *token.AppID)
	require.NoError(t, err)
	assert.Equal(t, "cid", gotApp.ClientID)

	_, err = repo.FindApp(ctx, 999)
	assert.True(t, errors.IsNotFound(err))
}

func TestApplicationRepository(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewApplicationRepository(newTestStore(t))

	applied := time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC)
	first := &entities.JobApplication{UserID: 1, Title: "Go Engineer", Company: "Acme", Status: entities.StatusApplied, AppliedAt: applied}
	second := &entities.JobApplication{UserID: 1, Title: "SRE", Company: "Initech", Status: entities.StatusInterview, AppliedAt: applied}
	other := &entities.JobApplication{UserID: 2, Title: "QA", Company: "Globex", Status: entities.StatusApplied, AppliedAt: applied}
	for _, app := range []*entities.JobApplication{first, second, other} {
		require.NoError(t, repo.Create(ctx, app))
	}

	apps, err := repo.ListByUser(ctx, 1)
	require.NoError(t, err)
	require.Len(t, apps, 2)
	assert.Equal(t, "Go Engineer", apps[0].Title)

	_, err = repo.Get(ctx, 1, other.ID)
	assert.True(t, errors.IsNotFound(err))

	first.Status = entities.StatusReplied
	require.NoError(t, repo.Update(ctx, first))
	got, err := repo.Get(ctx, 1, first.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.StatusReplied, got.Status)

	err = repo.Create(ctx, &entities.JobApplication{UserID: 1, Title: "x", Company: "y", Status: "ghosted", AppliedAt: applied})
	assert.True(t, errors.IsCategory(err, errors.CategoryValidation))
}

func TestCreateInterview(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	repo := NewApplicationRepository(newTestStore(t))
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

	interviewing := &entities.JobApplication{UserID: 1, Title: "SRE", Company: "Initech", Status: entities.StatusInterview, AppliedAt: now}
	applied := &entities.JobApplication{UserID: 1, Title: "Dev", Company: "Acme", Status: entities.StatusApplied, AppliedAt: now}
	require.NoError(t, repo.Create(ctx, interviewing))
	require.NoError(t, repo.Create(ctx, applied))

	tests := []struct {
		name    string
		event   entities.InterviewEvent
		wantErr error
	}{
		{
			name:  "valid",
			event: entities.InterviewEvent{UserID: 1, ApplicationID: interviewing.ID, StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)},
		},
		{
			name:    "application not in interview",
			event:   entities.InterviewEvent{UserID: 1, ApplicationID: applied.ID, StartsAt: now.Add(time.Hour), EndsAt: now.Add(2 * time.Hour)},
			wantErr: entities.ErrApplicationNotInInterview,
		},
		{
			name:    "ends before start",
			event:   entities.InterviewEvent{UserID: 1, ApplicationID: interviewing.ID, StartsAt: now.Add(time.Hour), EndsAt: now.Add(time.Hour)},
			wantErr: entities.ErrInterviewEndsBeforeStart,
		},
		{
			name:    "too far in the past",
			event:   entities.InterviewEvent{UserID: 1, ApplicationID: interviewing.ID, StartsAt: now.AddDate(-2, 0, 0), EndsAt: now.AddDate(-2, 0, 0).Add(time.Hour)},
			wantErr: entities.ErrInterviewTooOld,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			event := tt.event
			err := repo.CreateInterview(ctx, &event, now)
			if tt.wantErr == nil {
				require.NoError(t, err)
				assert.NotZero(t, event.ID)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}
