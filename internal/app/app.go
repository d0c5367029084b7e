// Package app wires configuration, persistence and the Drive client for the
// command line entry points.
package app

import (
	"context"
	"fmt"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/datastore"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/export"
	"github.com/jobapply/jobapply/internal/notify"
	"github.com/jobapply/jobapply/internal/observability"
	"github.com/jobapply/jobapply/internal/worker"
)

// App holds the long-lived dependencies shared by commands.
type App struct {
	Settings       *conf.Settings
	Store          *datastore.Store
	BackupSettings *datastore.SettingsRepository
	Applications   *datastore.ApplicationRepository
	Credentials    *datastore.CredentialRepository
	Drive          *drive.Client
	Metrics        *observability.Metrics // nil unless metrics are enabled
	Notifier       *notify.Notifier       // nil unless notify.urls is set
}

// Option configures Open.
type Option func(*options)

type options struct {
	files drive.FilesFactory
}

// WithFilesFactory replaces the Drive v3 transport.
func WithFilesFactory(f drive.FilesFactory) Option {
	return func(o *options) { o.files = f }
}

// Open connects to the database and builds the Drive client.
func Open(settings *conf.Settings, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	store, err := datastore.Open(&settings.Database)
	if err != nil {
		return nil, err
	}

	a := &App{
		Settings:       settings,
		Store:          store,
		BackupSettings: datastore.NewSettingsRepository(store),
		Applications:   datastore.NewApplicationRepository(store),
		Credentials:    datastore.NewCredentialRepository(store),
	}

	notifier, err := notify.New(&settings.Notify)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	a.Notifier = notifier

	driveOpts := []drive.Option{}
	if settings.Metrics.Enabled {
		m, err := observability.NewMetrics()
		if err != nil {
			_ = store.Close()
			return nil, err
		}
		if sqlDB, err := store.DB.DB(); err == nil {
			if err := m.RegisterDatabase(sqlDB, settings.Database.Driver); err != nil {
				_ = store.Close()
				return nil, err
			}
		}
		a.Metrics = m
		driveOpts = append(driveOpts, drive.WithMetrics(m.Drive))
	}

	files := o.files
	if files == nil {
		files = drive.NewServiceFilesFactory(drive.ServiceConfig{
			Endpoint:  settings.Drive.Endpoint,
			RateLimit: settings.Drive.RateLimit,
			Burst:     settings.Drive.Burst,
		})
	}
	driveOpts = append(driveOpts, drive.WithFilesFactory(files))

	resolver := drive.NewCredentialResolver(a.Credentials, drive.OAuthClient{
		ClientID:     settings.Drive.ClientID,
		ClientSecret: settings.Drive.ClientSecret,
		TokenURL:     settings.Drive.TokenURL,
		Scopes:       settings.Drive.Scopes,
	})
	a.Drive = drive.NewClient(resolver, driveOpts...)

	return a, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.Store.Close()
}

// Format returns the export format, preferring override when set.
func (a *App) Format(override string) (export.Format, error) {
	if override == "" {
		override = a.Settings.Worker.Format
	}
	return export.ParseFormat(override)
}

// Worker builds the automatic backup worker from the settings.
func (a *App) Worker(opts ...worker.Option) (*worker.Worker, error) {
	format, err := a.Format("")
	if err != nil {
		return nil, err
	}
	if a.Metrics != nil {
		opts = append([]worker.Option{worker.WithMetrics(a.Metrics.Backup)}, opts...)
	}
	if a.Notifier != nil {
		opts = append([]worker.Option{worker.WithNotifier(a.Notifier)}, opts...)
	}
	return worker.New(worker.Config{
		Tick:       a.Settings.Worker.Tick,
		Interval:   a.Settings.Worker.Interval,
		Format:     format,
		RootFolder: a.Settings.Drive.RootFolder,
		Subfolder:  a.Settings.Drive.Subfolder,
		Prefix:     a.Settings.Drive.Prefix,
	}, a.BackupSettings, a.Applications, a.Drive, opts...), nil
}

// Export serializes all of the user's applications.
func (a *App) Export(ctx context.Context, userID uint, format export.Format) (*export.Payload, error) {
	apps, err := a.Applications.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	payload, err := format.Encode(apps)
	if err != nil {
		return nil, fmt.Errorf("export for user %d: %w", userID, err)
	}
	return payload, nil
}

// RotateRequest builds a rotating backup request using the configured layout.
func (a *App) RotateRequest(p *export.Payload) drive.RotateRequest {
	return drive.RotateRequest{
		Content:    p.Content,
		MimeType:   p.MimeType,
		Extension:  p.Extension,
		RootFolder: a.Settings.Drive.RootFolder,
		Subfolder:  a.Settings.Drive.Subfolder,
		Prefix:     a.Settings.Drive.Prefix,
	}
}
