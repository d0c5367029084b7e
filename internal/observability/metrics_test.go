package observability

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobapply/jobapply/internal/conf"
	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/observability/metrics"
	"github.com/jobapply/jobapply/internal/worker"
)

// Compile-time checks that the collectors satisfy their consumers.
var (
	_ worker.Metrics = (*metrics.BackupMetrics)(nil)
	_ drive.Metrics  = (*metrics.DriveMetrics)(nil)
)

func TestNewMetricsConcurrency(t *testing.T) {
	t.Parallel()
	const numGoroutines = 20

	var wg sync.WaitGroup
	for range numGoroutines {
		wg.Go(func() {
			m, err := NewMetrics()
			if !assert.NoError(t, err) {
				return
			}
			assert.NotNil(t, m.Backup)
			assert.NotNil(t, m.Drive)
		})
	}
	wg.Wait()
}

func TestBackupMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Backup.RecordRun(worker.ResultSuccess)
	m.Backup.RecordRun(worker.ResultSuccess)
	m.Backup.RecordRun(worker.ResultFailure)
	m.Backup.RecordUserDisabled()
	m.Backup.ObserveTick(250 * time.Millisecond)
	m.Backup.ObserveBackupSize(4096)

	assert.InDelta(t, 2, testutil.ToFloat64(m.Backup.Runs.WithLabelValues(worker.ResultSuccess)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Backup.Runs.WithLabelValues(worker.ResultFailure)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(m.Backup.UsersDisabled), 0)
	assert.Equal(t, 1, testutil.CollectAndCount(m.Backup.TickDuration))
	assert.Positive(t, testutil.ToFloat64(m.Backup.LastTick))
}

func TestDriveMetrics(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	m.Drive.RecordDriveRequest("list", "ok")
	m.Drive.RecordDriveRequest("create", string(drive.CodeRateLimited))

	assert.Equal(t, 2, testutil.CollectAndCount(m.Drive, "jobapply_drive_requests_total"))
	assert.InDelta(t, 1, testutil.ToFloat64(m.Drive.Requests.WithLabelValues("create", "rate_limited")), 0)
}

func TestMetricsHandler(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)
	m.Backup.RecordRun(worker.ResultDisabled)

	mux := http.NewServeMux()
	m.RegisterHandlers(mux)
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `jobapply_backup_runs_total{result="disabled"} 1`)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestEndpoint(t *testing.T) {
	t.Parallel()
	m, err := NewMetrics()
	require.NoError(t, err)

	_, err = NewEndpoint(&conf.MetricsSettings{}, m)
	require.Error(t, err)

	e, err := NewEndpoint(&conf.MetricsSettings{Enabled: true, Listen: "127.0.0.1:0"}, m)
	require.NoError(t, err)

	var wg sync.WaitGroup
	quit := make(chan struct{})
	require.NoError(t, e.Start(&wg, quit))

	resp, err := http.Get("http://" + e.Addr().String() + "/metrics")
	require.NoError(t, err)
	body, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "jobapply_backup_users_disabled_total")

	close(quit)
	wg.Wait()
}
