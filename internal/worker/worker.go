package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/export"
	"github.com/jobapply/jobapply/internal/logger"
	"github.com/jobapply/jobapply/internal/notify"
)

// SettingsStore persists per-user backup settings.
type SettingsStore interface {
	ListEnabled(ctx context.Context) ([]entities.BackupSettings, error)
	SetEnabled(ctx context.Context, userID uint, enabled bool) error
	MarkRun(ctx context.Context, userID uint, t time.Time) error
}

// RecordSource returns the records that make up a user's backup.
type RecordSource interface {
	ListByUser(ctx context.Context, userID uint) ([]entities.JobApplication, error)
}

// Backend is the Drive side of a backup.
type Backend interface {
	Status(ctx context.Context, userID uint) drive.Status
	RotateAndUpload(ctx context.Context, userID uint, req drive.RotateRequest) (*drive.RemoteFile, error)
}

// Metrics observes ticks and per-user outcomes.
type Metrics interface {
	RecordRun(result string)
	RecordUserDisabled()
	ObserveTick(d time.Duration)
	ObserveBackupSize(bytes int)
}

// Notifier tells operators about accounts that need attention.
type Notifier interface {
	Notify(ctx context.Context, msg notify.Message) error
}

// Per-user outcomes of a tick.
const (
	ResultSuccess  = "success"
	ResultFailure  = "failure"
	ResultNotDue   = "not_due"
	ResultDisabled = "disabled"
)

// Config holds the loop timing and the backup layout.
type Config struct {
	Tick       time.Duration
	Interval   time.Duration
	Format     export.Format
	RootFolder string
	Subfolder  string
	Prefix     string
}

// Summary counts the outcomes of one tick.
type Summary struct {
	TickID  string
	Results map[string]int
}

// Option configures a Worker.
type Option func(*Worker)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(w *Worker) { w.now = now }
}

// WithSleep replaces the wait between ticks. sleep must return ctx.Err()
// when ctx is done.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(w *Worker) { w.sleep = sleep }
}

// WithMetrics records tick and run metrics.
func WithMetrics(m Metrics) Option {
	return func(w *Worker) { w.metrics = m }
}

// WithLogger replaces the worker module logger.
func WithLogger(l logger.Logger) Option {
	return func(w *Worker) { w.log = l }
}

// WithNotifier sends a notification when a user's backups are disabled or
// fail with a credential error that will not clear on retry.
func WithNotifier(n Notifier) Option {
	return func(w *Worker) { w.notifier = n }
}

// Worker polls enabled users and uploads a backup when one is due.
type Worker struct {
	cfg      Config
	settings SettingsStore
	records  RecordSource
	backend  Backend
	metrics  Metrics
	notifier Notifier
	log      logger.Logger
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error

	mu        sync.Mutex
	isRunning bool
}

// New creates a Worker.
func New(cfg Config, settings SettingsStore, records RecordSource, backend Backend, opts ...Option) *Worker {
	if cfg.Format == "" {
		cfg.Format = export.FormatCSV
	}
	w := &Worker{
		cfg:      cfg,
		settings: settings,
		records:  records,
		backend:  backend,
		log:      GetLogger(),
		now:      time.Now,
		sleep:    sleepContext,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// IsDue reports whether a user last backed up at last needs a new backup at now.
func IsDue(now time.Time, last *time.Time, interval time.Duration) bool {
	if last == nil {
		return true
	}
	return now.Sub(*last) >= interval
}

// IsRunning reports whether Run is active.
func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isRunning
}

// Run ticks until ctx is cancelled and then returns ctx.Err().
func (w *Worker) Run(ctx context.Context) error {
	w.mu.Lock()
	w.isRunning = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.isRunning = false
		w.mu.Unlock()
	}()

	log := w.log
	log.Info("backup worker started",
		logger.Duration("tick", w.cfg.Tick),
		logger.Duration("interval", w.cfg.Interval),
		logger.String("format", string(w.cfg.Format)))

	for {
		if err := ctx.Err(); err != nil {
			log.Info("backup worker stopped")
			return err
		}
		w.Tick(ctx)
		if err := w.sleep(ctx, w.cfg.Tick); err != nil {
			log.Info("backup worker stopped")
			return err
		}
	}
}

// Tick processes every enabled user once, sequentially. It never fails;
// problems are logged and retried on a later tick.
func (w *Worker) Tick(ctx context.Context) Summary {
	start := w.now()
	summary := Summary{TickID: uuid.NewString(), Results: make(map[string]int)}
	ctx = logger.WithTraceID(ctx, summary.TickID)
	log := w.log.WithContext(ctx).With(logger.String("tick_id", summary.TickID))

	defer func() {
		if w.metrics != nil {
			w.metrics.ObserveTick(w.now().Sub(start))
		}
	}()

	enabled, err := w.settings.ListEnabled(ctx)
	if err != nil {
		log.Error("failed to list enabled backup settings", logger.Error(err))
		return summary
	}
	if len(enabled) == 0 {
		log.Info("no users with automatic backups enabled")
		return summary
	}

	for i := range enabled {
		if ctx.Err() != nil {
			break
		}
		result := w.processUser(ctx, log, &enabled[i], start)
		summary.Results[result]++
		if w.metrics != nil {
			w.metrics.RecordRun(result)
		}
	}

	log.Info("tick finished",
		logger.Int("users", len(enabled)),
		logger.Int("succeeded", summary.Results[ResultSuccess]),
		logger.Int("failed", summary.Results[ResultFailure]),
		logger.Int("disabled", summary.Results[ResultDisabled]))
	return summary
}

func (w *Worker) processUser(ctx context.Context, log logger.Logger, s *entities.BackupSettings, now time.Time) string {
	log = log.With(logger.Uint("user_id", s.UserID))

	if !IsDue(now, s.LastRunAt, w.cfg.Interval) {
		log.Info("backup not due",
			logger.Duration("remaining", w.cfg.Interval-now.Sub(*s.LastRunAt)))
		return ResultNotDue
	}

	status := w.backend.Status(ctx, s.UserID)
	if !status.Ready() {
		if err := w.settings.SetEnabled(ctx, s.UserID, false); err != nil {
			log.Error("failed to disable backups for disconnected account", logger.Error(err))
			return ResultFailure
		}
		if w.metrics != nil {
			w.metrics.RecordUserDisabled()
		}
		fields := []logger.Field{
			logger.Bool("connected", status.Connected),
			logger.Bool("has_refresh_token", status.HasRefreshToken),
		}
		if status.Err != nil {
			fields = append(fields, logger.Error(status.Err))
		}
		log.Warn("drive not connected, automatic backups disabled", fields...)
		w.notify(ctx, log, notify.Message{
			Title: "Automatic backups disabled",
			Body:  fmt.Sprintf("Google Drive is no longer connected for user %d; automatic backups were turned off.", s.UserID),
		})
		return ResultDisabled
	}

	if err := w.backup(ctx, log, s.UserID); err != nil {
		code := drive.CodeOf(err)
		log.Error("backup failed",
			logger.String("code", string(code)),
			logger.Error(err))
		if code == drive.CodeAuth || code == drive.CodeRefresh {
			w.notify(ctx, log, notify.Message{
				Title: "Automatic backup failed",
				Body:  fmt.Sprintf("Google Drive rejected the credentials of user %d (%s); the account must be reconnected.", s.UserID, code),
			})
		}
		return ResultFailure
	}

	if err := w.settings.MarkRun(ctx, s.UserID, now); err != nil {
		log.Error("backup uploaded but last run was not saved", logger.Error(err))
		return ResultFailure
	}
	return ResultSuccess
}

func (w *Worker) backup(ctx context.Context, log logger.Logger, userID uint) error {
	apps, err := w.records.ListByUser(ctx, userID)
	if err != nil {
		return err
	}
	payload, err := w.cfg.Format.Encode(apps)
	if err != nil {
		return err
	}
	if w.metrics != nil {
		w.metrics.ObserveBackupSize(len(payload.Content))
	}

	file, err := w.backend.RotateAndUpload(ctx, userID, drive.RotateRequest{
		Content:    payload.Content,
		MimeType:   payload.MimeType,
		Extension:  payload.Extension,
		RootFolder: w.cfg.RootFolder,
		Subfolder:  w.cfg.Subfolder,
		Prefix:     w.cfg.Prefix,
	})
	if err != nil {
		return err
	}
	log.Info("backup uploaded",
		logger.String("file_id", file.ID),
		logger.String("name", file.Name),
		logger.Int("records", len(apps)),
		logger.Int("bytes", len(payload.Content)))
	return nil
}

func (w *Worker) notify(ctx context.Context, log logger.Logger, msg notify.Message) {
	if w.notifier == nil {
		return
	}
	if err := w.notifier.Notify(ctx, msg); err != nil {
		log.Warn("failed to send notification", logger.Error(err))
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
