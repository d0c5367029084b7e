package restore

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobapply/jobapply/internal/app"
	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/drive/drivetest"
	"github.com/jobapply/jobapply/internal/export"
)

func TestRestoreImportsCSVBackup(t *testing.T) {
	ctx := context.Background()
	settings := &conf.Settings{
		Database: conf.DatabaseSettings{
			Driver: conf.DriverSQLite,
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "restore.db")},
		},
	}
	fake := drivetest.New()

	a, err := app.Open(settings, app.WithFilesFactory(fake.Factory()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close() })
	require.NoError(t, a.Store.Migrate(ctx))

	prev := openApp
	openApp = func(s *conf.Settings) (*app.App, error) {
		return app.Open(s, app.WithFilesFactory(fake.Factory()))
	}
	t.Cleanup(func() { openApp = prev })

	account := &entities.RemoteAccount{UserID: 5, Provider: entities.ProviderGoogle, UID: "uid"}
	require.NoError(t, a.Store.DB.Create(account).Error)
	require.NoError(t, a.Store.DB.Create(&entities.RemoteToken{AccountID: account.ID, Token: "access", Secret: "refresh"}).Error)

	existing := &entities.JobApplication{
		UserID: 5, Title: "Old title", Company: "Acme", Status: entities.StatusApplied,
		AppliedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, a.Applications.Create(ctx, existing))

	updated := *existing
	updated.Title = "New title"
	csv, err := export.CSV([]entities.JobApplication{updated, {Title: "Fresh", Company: "Initech", Status: entities.StatusOffer}})
	require.NoError(t, err)
	csvFile, err := a.Drive.Upload(ctx, 5, drive.UploadRequest{Name: "backup.csv", Content: csv, MimeType: "text/csv"})
	require.NoError(t, err)

	xlsx, err := export.XLSX(nil)
	require.NoError(t, err)
	xlsxFile, err := a.Drive.Upload(ctx, 5, drive.UploadRequest{Name: "backup.xlsx", Content: xlsx})
	require.NoError(t, err)

	run := func(args ...string) (string, error) {
		cmd := Command(settings)
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(&out)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(ctx)
		return out.String(), err
	}

	out, err := run("--user", "5", "--file", csvFile.ID)
	require.NoError(t, err)
	assert.Contains(t, out, "Restore completed: 1 created, 1 updated")

	got, err := a.Applications.Get(ctx, 5, existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "New title", got.Title)

	_, err = run("--user", "5", "--file", xlsxFile.ID)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "only CSV backups can be restored")

	_, err = run("--user", "5", "--file", "missing")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore failed")
}
