package worker

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/datastore"
	"github.com/jobapply/jobapply/internal/datastore/entities"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/drive/drivetest"
	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/export"
	"github.com/jobapply/jobapply/internal/logger"
	"github.com/jobapply/jobapply/internal/notify"
)

const interval = 5 * time.Minute

var epoch = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock { return &fakeClock{t: epoch} }

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.Advance(d)
	return nil
}

func testConfig() Config {
	return Config{
		Tick:       30 * time.Second,
		Interval:   interval,
		Format:     export.FormatCSV,
		RootFolder: conf.DefaultRootFolder,
		Subfolder:  conf.DefaultSubfolder,
		Prefix:     conf.DefaultPrefix,
	}
}

type env struct {
	settings *datastore.SettingsRepository
	apps     *datastore.ApplicationRepository
	creds    *drivetest.CredentialStore
	fake     *drivetest.Fake
	client   *drive.Client
	clock    *fakeClock
	worker   *Worker
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store, err := datastore.Open(&conf.DatabaseSettings{
		Driver: conf.DriverSQLite,
		SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "worker.db")},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	require.NoError(t, store.Migrate(context.Background()))

	e := &env{
		settings: datastore.NewSettingsRepository(store),
		apps:     datastore.NewApplicationRepository(store),
		creds:    drivetest.NewCredentialStore(),
		fake:     drivetest.New(),
		clock:    newFakeClock(),
	}
	resolver := drive.NewCredentialResolver(e.creds, drive.OAuthClient{ClientID: "id", ClientSecret: "secret"})
	e.client = drive.NewClient(resolver, drive.WithFilesFactory(e.fake.Factory()))
	e.worker = New(testConfig(), e.settings, e.apps, e.client,
		WithClock(e.clock.Now), WithSleep(e.clock.Sleep))
	return e
}

func (e *env) enable(t *testing.T, userID uint) {
	t.Helper()
	require.NoError(t, e.settings.SetEnabled(context.Background(), userID, true))
}

func (e *env) backupFiles(t *testing.T, userID uint) map[string]string {
	t.Helper()
	folderID, err := e.client.EnsureFolder(context.Background(), userID, conf.DefaultRootFolder, conf.DefaultSubfolder)
	require.NoError(t, err)
	out := make(map[string]string)
	for _, f := range e.fake.Children(folderID) {
		out[f.Name] = string(e.fake.Content(f.ID))
	}
	return out
}

func TestIsDue(t *testing.T) {
	t.Parallel()
	now := epoch
	at := func(d time.Duration) *time.Time {
		t := now.Add(d)
		return &t
	}

	tests := []struct {
		name string
		last *time.Time
		want bool
	}{
		{"never run", nil, true},
		{"one second past interval", at(-interval - time.Second), true},
		{"exactly interval", at(-interval), true},
		{"one second before interval", at(-interval + time.Second), false},
		{"clock went backwards", at(time.Hour), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsDue(now, tt.last, interval))
		})
	}
}

func TestTickUploadsDueUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.creds.Connect(1, "refresh-1")
	e.enable(t, 1)
	require.NoError(t, e.apps.Create(ctx, &entities.JobApplication{
		UserID: 1, Title: "Go Developer", Company: "Acme", Status: entities.StatusApplied, AppliedAt: epoch,
	}))

	summary := e.worker.Tick(ctx)
	assert.NotEmpty(t, summary.TickID)
	assert.Equal(t, 1, summary.Results[ResultSuccess])

	s, err := e.settings.Get(ctx, 1)
	require.NoError(t, err)
	require.NotNil(t, s.LastRunAt)
	assert.True(t, s.LastRunAt.Equal(epoch))

	files := e.backupFiles(t, 1)
	require.Contains(t, files, "autobackup_latest.csv")
	assert.Contains(t, files["autobackup_latest.csv"], "Go Developer,Acme")

	// Not due again until the interval has passed.
	creates := e.fake.Calls(drivetest.OpCreate)
	e.clock.Advance(interval - time.Second)
	summary = e.worker.Tick(ctx)
	assert.Equal(t, 1, summary.Results[ResultNotDue])
	assert.Equal(t, creates, e.fake.Calls(drivetest.OpCreate))

	e.clock.Advance(time.Second)
	summary = e.worker.Tick(ctx)
	assert.Equal(t, 1, summary.Results[ResultSuccess])
	assert.Len(t, e.backupFiles(t, 1), 2)
}

func TestTickDisablesDisconnectedUsers(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.enable(t, 1) // no account link
	e.creds.Link(2)
	e.enable(t, 2) // link without token
	e.creds.Connect(3, "")
	e.enable(t, 3) // token without refresh token

	summary := e.worker.Tick(ctx)
	assert.Equal(t, 3, summary.Results[ResultDisabled])
	assert.Zero(t, e.fake.Calls(drivetest.OpCreate))
	assert.Zero(t, e.fake.Calls(drivetest.OpList))

	for _, userID := range []uint{1, 2, 3} {
		s, err := e.settings.Get(ctx, userID)
		require.NoError(t, err)
		assert.False(t, s.Enabled, "user %d", userID)
		assert.Nil(t, s.LastRunAt)
	}

	enabled, err := e.settings.ListEnabled(ctx)
	require.NoError(t, err)
	assert.Empty(t, enabled)
}

func TestTickFailureLeavesStateUnchanged(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.creds.Connect(1, "refresh-1")
	e.enable(t, 1)
	_, err := e.client.EnsureFolder(ctx, 1, conf.DefaultRootFolder, conf.DefaultSubfolder)
	require.NoError(t, err)

	e.fake.FailNext(drivetest.OpCreate, drivetest.StatusError(503))
	summary := e.worker.Tick(ctx)
	assert.Equal(t, 1, summary.Results[ResultFailure])

	s, err := e.settings.Get(ctx, 1)
	require.NoError(t, err)
	assert.True(t, s.Enabled)
	assert.Nil(t, s.LastRunAt)

	// Still due, so the next tick retries.
	e.clock.Advance(30 * time.Second)
	summary = e.worker.Tick(ctx)
	assert.Equal(t, 1, summary.Results[ResultSuccess])
}

func TestTickContinuesAfterOneUserFails(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	e := newEnv(t)

	e.creds.Connect(1, "refresh-1")
	e.creds.Connect(2, "refresh-2")
	e.enable(t, 1)
	e.enable(t, 2)

	// User 1 goes first and its root folder lookup fails.
	e.fake.FailNext(drivetest.OpList, drivetest.StatusError(429))
	summary := e.worker.Tick(ctx)
	assert.Equal(t, 1, summary.Results[ResultFailure])
	assert.Equal(t, 1, summary.Results[ResultSuccess])
	assert.Contains(t, e.backupFiles(t, 2), "autobackup_latest.csv")
}

// Stubs for tests that must not start goroutines.

type stubSettings struct {
	mu       sync.Mutex
	rows     []entities.BackupSettings
	listErr  error
	disabled []uint
	runs     map[uint]time.Time
}

func (s *stubSettings) ListEnabled(context.Context) ([]entities.BackupSettings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entities.BackupSettings(nil), s.rows...), s.listErr
}

func (s *stubSettings) SetEnabled(_ context.Context, userID uint, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !enabled {
		s.disabled = append(s.disabled, userID)
	}
	return nil
}

func (s *stubSettings) MarkRun(_ context.Context, userID uint, t time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.runs == nil {
		s.runs = make(map[uint]time.Time)
	}
	s.runs[userID] = t
	return nil
}

type stubRecords struct{}

func (stubRecords) ListByUser(context.Context, uint) ([]entities.JobApplication, error) {
	return nil, nil
}

type stubBackend struct {
	mu      sync.Mutex
	status  drive.Status
	err     error
	uploads int
}

func (b *stubBackend) Status(context.Context, uint) drive.Status { return b.status }

func (b *stubBackend) RotateAndUpload(_ context.Context, _ uint, req drive.RotateRequest) (*drive.RemoteFile, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.uploads++
	if b.err != nil {
		return nil, b.err
	}
	return &drive.RemoteFile{ID: "f", Name: req.Prefix + "_latest." + req.Extension}, nil
}

type recordingMetrics struct {
	runs     map[string]int
	disabled int
	ticks    int
	sizes    []int
}

func (m *recordingMetrics) RecordRun(result string) {
	if m.runs == nil {
		m.runs = make(map[string]int)
	}
	m.runs[result]++
}
func (m *recordingMetrics) RecordUserDisabled()         { m.disabled++ }
func (m *recordingMetrics) ObserveTick(time.Duration)   { m.ticks++ }
func (m *recordingMetrics) ObserveBackupSize(bytes int) { m.sizes = append(m.sizes, bytes) }

type recordingNotifier struct {
	msgs []notify.Message
	err  error
}

func (n *recordingNotifier) Notify(_ context.Context, msg notify.Message) error {
	n.msgs = append(n.msgs, msg)
	return n.err
}

func TestTickNotifiesWhenBackupsAreDisabled(t *testing.T) {
	t.Parallel()
	settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 9, Enabled: true}}}
	backend := &stubBackend{status: drive.Status{Connected: true}}
	notifier := &recordingNotifier{err: errors.NewStd("webhook down")}
	w := New(testConfig(), settings, stubRecords{}, backend, WithNotifier(notifier))

	summary := w.Tick(context.Background())
	assert.Equal(t, 1, summary.Results[ResultDisabled])
	require.Len(t, notifier.msgs, 1)
	assert.Equal(t, "Automatic backups disabled", notifier.msgs[0].Title)
	assert.Contains(t, notifier.msgs[0].Body, "user 9")
}

func TestTickNotifiesOnCredentialFailuresOnly(t *testing.T) {
	t.Parallel()
	ready := drive.Status{Connected: true, HasRefreshToken: true}
	tests := []struct {
		name   string
		err    error
		notify bool
	}{
		{"refresh rejected", &drive.Error{Code: drive.CodeRefresh, Op: "token", Err: errors.NewStd("invalid_grant")}, true},
		{"auth rejected", &drive.Error{Code: drive.CodeAuth, Op: "files.create", Status: 401}, true},
		{"rate limited", &drive.Error{Code: drive.CodeRateLimited, Op: "files.list", Status: 429}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 3, Enabled: true}}}
			notifier := &recordingNotifier{}
			w := New(testConfig(), settings, stubRecords{}, &stubBackend{status: ready, err: tt.err}, WithNotifier(notifier))

			summary := w.Tick(context.Background())
			assert.Equal(t, 1, summary.Results[ResultFailure])
			assert.Empty(t, settings.disabled)
			if tt.notify {
				require.Len(t, notifier.msgs, 1)
				assert.Contains(t, notifier.msgs[0].Body, string(tt.err.(*drive.Error).Code))
			} else {
				assert.Empty(t, notifier.msgs)
			}
		})
	}
}

func TestTickLogsNotDueUsersAtInfo(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	cl, err := logger.NewCentralLogger(&logger.LoggingConfig{
		DefaultLevel: "info",
		Timezone:     "UTC",
		JSON:         true,
	}, &buf)
	require.NoError(t, err)

	last := epoch
	settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 6, Enabled: true, LastRunAt: &last}}}
	clock := newFakeClock()
	clock.Advance(time.Minute)
	backend := &stubBackend{status: drive.Status{Connected: true, HasRefreshToken: true}}
	w := New(testConfig(), settings, stubRecords{}, backend,
		WithClock(clock.Now), WithLogger(cl.Module("worker")))

	summary := w.Tick(context.Background())
	require.Equal(t, 1, summary.Results[ResultNotDue])

	var found map[string]any
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var entry map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &entry))
		if entry["msg"] == "backup not due" {
			found = entry
		}
	}
	require.NotNil(t, found)
	assert.Equal(t, "INFO", found["level"])
	assert.InDelta(t, 6, found["user_id"], 0)
	assert.Equal(t, (interval - time.Minute).String(), found["remaining"])
}

func TestTickStatusFaultDisablesUser(t *testing.T) {
	t.Parallel()
	settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 4, Enabled: true}}}
	backend := &stubBackend{status: drive.Status{Err: errors.NewStd("database is locked")}}
	metrics := &recordingMetrics{}
	w := New(testConfig(), settings, stubRecords{}, backend, WithMetrics(metrics))

	summary := w.Tick(context.Background())
	assert.Equal(t, 1, summary.Results[ResultDisabled])
	assert.Equal(t, []uint{4}, settings.disabled)
	assert.Zero(t, backend.uploads)
	assert.Equal(t, map[string]int{ResultDisabled: 1}, metrics.runs)
	assert.Equal(t, 1, metrics.ticks)
}

func TestTickListFailureIsLogged(t *testing.T) {
	t.Parallel()
	settings := &stubSettings{listErr: errors.NewStd("no such table")}
	backend := &stubBackend{status: drive.Status{Connected: true, HasRefreshToken: true}}
	w := New(testConfig(), settings, stubRecords{}, backend)

	summary := w.Tick(context.Background())
	assert.Empty(t, summary.Results)
	assert.Zero(t, backend.uploads)
}

func TestTickRecordsMetrics(t *testing.T) {
	t.Parallel()
	settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 1, Enabled: true}}}
	backend := &stubBackend{status: drive.Status{Connected: true, HasRefreshToken: true}}
	metrics := &recordingMetrics{}
	clock := newFakeClock()
	w := New(testConfig(), settings, stubRecords{}, backend, WithMetrics(metrics), WithClock(clock.Now))

	w.Tick(context.Background())
	assert.Equal(t, map[string]int{ResultSuccess: 1}, metrics.runs)
	require.Len(t, metrics.sizes, 1)
	assert.Equal(t, len("id,title,company,location,source,status,applied_at,recruiter_reply_at,notes\n"), metrics.sizes[0])
	assert.Equal(t, epoch, settings.runs[1])

	backend.status = drive.Status{Connected: true}
	w.Tick(context.Background())
	assert.Equal(t, 1, metrics.disabled)
	assert.Equal(t, []uint{1}, settings.disabled)
}

func TestRunReturnsOnlyOnCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	settings := &stubSettings{rows: []entities.BackupSettings{{UserID: 1, Enabled: true}}}
	backend := &stubBackend{status: drive.Status{Connected: true, HasRefreshToken: true}}
	clock := newFakeClock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ticks := 0
	sleep := func(ctx context.Context, d time.Duration) error {
		ticks++
		if ticks == 3 {
			cancel()
		}
		return clock.Sleep(ctx, d)
	}
	w := New(testConfig(), settings, stubRecords{}, backend, WithClock(clock.Now), WithSleep(sleep))

	err := w.Run(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.False(t, w.IsRunning())
	assert.Equal(t, 3, ticks)
	// Stub settings never record the run, so every tick uploads.
	assert.Equal(t, 3, backend.uploads)
}

func TestRunWithRealSleep(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	settings := &stubSettings{}
	backend := &stubBackend{}
	cfg := testConfig()
	cfg.Tick = time.Hour
	w := New(cfg, settings, stubRecords{}, backend)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	require.Eventually(t, w.IsRunning, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

type countingProbe struct {
	mu      sync.Mutex
	calls   int
	readyAt int
}

func (p *countingProbe) HasSettingsTable(context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	return p.readyAt > 0 && p.calls >= p.readyAt
}

func TestWaitForSchema(t *testing.T) {
	t.Parallel()

	t.Run("ready after migrations", func(t *testing.T) {
		clock := newFakeClock()
		w := New(testConfig(), &stubSettings{}, stubRecords{}, &stubBackend{}, WithClock(clock.Now), WithSleep(clock.Sleep))
		probe := &countingProbe{readyAt: 3}

		require.NoError(t, w.WaitForSchema(context.Background(), probe, time.Minute))
		assert.Equal(t, 3, probe.calls)
		assert.Equal(t, epoch.Add(2*SchemaPollInterval), clock.Now())
	})

	t.Run("timeout is fatal", func(t *testing.T) {
		clock := newFakeClock()
		w := New(testConfig(), &stubSettings{}, stubRecords{}, &stubBackend{}, WithClock(clock.Now), WithSleep(clock.Sleep))
		probe := &countingProbe{}

		err := w.WaitForSchema(context.Background(), probe, 5*time.Second)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))
		// Polls at 0s, 2s, 4s and once more at the 5s deadline.
		assert.Equal(t, 4, probe.calls)
	})

	t.Run("cancelled", func(t *testing.T) {
		clock := newFakeClock()
		w := New(testConfig(), &stubSettings{}, stubRecords{}, &stubBackend{}, WithClock(clock.Now), WithSleep(clock.Sleep))
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := w.WaitForSchema(ctx, &countingProbe{}, time.Minute)
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("real store", func(t *testing.T) {
		e := newEnv(t)
		store, err := datastore.Open(&conf.DatabaseSettings{
			Driver: conf.DriverSQLite,
			SQLite: conf.SQLiteSettings{Path: filepath.Join(t.TempDir(), "empty.db")},
		})
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		err = e.worker.WaitForSchema(context.Background(), store, 3*time.Second)
		assert.True(t, errors.IsCategory(err, errors.CategoryTimeout))

		require.NoError(t, store.Migrate(context.Background()))
		assert.NoError(t, e.worker.WaitForSchema(context.Background(), store, 3*time.Second))
	})
}
