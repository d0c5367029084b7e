package drive_test

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jobapply/jobapply/internal/drive"
	"github.com/jobapply/jobapply/internal/drive/drivetest"
)

const (
	filesURL  = `=~^https://www\.googleapis\.com/drive/v3/files`
	uploadURL = `=~^https://www\.googleapis\.com/upload/drive/v3/files`
)

// setupHTTPMock activates httpmock for the default transport.
func setupHTTPMock(t *testing.T) {
	t.Helper()
	httpmock.Activate()
	t.Cleanup(httpmock.DeactivateAndReset)
}

func newServiceFiles(t *testing.T) drive.Files {
	t.Helper()
	files, err := drive.NewServiceFiles(context.Background(), http.DefaultClient, "", nil)
	require.NoError(t, err)
	return files
}

func apiError(status int) httpmock.Responder {
	body := fmt.Sprintf(`{"error":{"code":%d,"message":"%s"}}`, status, http.StatusText(status))
	return httpmock.NewStringResponder(status, body)
}

func TestServiceFilesTranslatesHTTPStatus(t *testing.T) {
	setupHTTPMock(t)
	files := newServiceFiles(t)

	tests := []struct {
		status int
		want   drive.Code
	}{
		{http.StatusUnauthorized, drive.CodeAuth},
		{http.StatusForbidden, drive.CodeAuth},
		{http.StatusNotFound, drive.CodeNotFound},
		{http.StatusTooManyRequests, drive.CodeRateLimited},
		{http.StatusInternalServerError, drive.CodeUpstream},
		{http.StatusGatewayTimeout, drive.CodeUpstream},
		{http.StatusConflict, drive.CodeHTTP},
	}

	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			httpmock.RegisterResponder(http.MethodGet, filesURL, apiError(tt.status))
			_, err := files.List(context.Background(), drive.NewQuery(drive.TrashedIs(false)), drive.ListOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.want, drive.CodeOf(err))
		})
	}
}

func TestServiceFilesListPaginates(t *testing.T) {
	setupHTTPMock(t)
	files := newServiceFiles(t)

	var queries []string
	httpmock.RegisterResponder(http.MethodGet, filesURL,
		func(req *http.Request) (*http.Response, error) {
			queries = append(queries, req.URL.Query().Get("q"))
			if req.URL.Query().Get("pageToken") == "" {
				return httpmock.NewStringResponse(http.StatusOK, `{
					"nextPageToken": "page-2",
					"files": [{"id": "f1", "name": "a.csv", "mimeType": "text/csv", "parents": ["p"], "createdTime": "2025-03-01T10:00:00.000Z"}]
				}`), nil
			}
			return httpmock.NewStringResponse(http.StatusOK, `{
				"files": [{"id": "f2", "name": "b.csv", "mimeType": "text/csv", "parents": ["p"], "size": "12"}]
			}`), nil
		})

	q := drive.NewQuery(drive.ParentEquals("p"), drive.TrashedIs(false))
	got, err := files.List(context.Background(), q, drive.ListOptions{OrderBy: drive.OrderByCreatedDesc})
	require.NoError(t, err)

	require.Len(t, got, 2)
	assert.Equal(t, "f1", got[0].ID)
	assert.Equal(t, 2025, got[0].CreatedTime.Year())
	assert.Equal(t, int64(12), got[1].Size)
	assert.Equal(t, []string{q.String(), q.String()}, queries)
	assert.Equal(t, 2, httpmock.GetTotalCallCount())
}

func TestServiceFilesListStopsAtLimit(t *testing.T) {
	setupHTTPMock(t)
	files := newServiceFiles(t)

	httpmock.RegisterResponder(http.MethodGet, filesURL,
		httpmock.NewStringResponder(http.StatusOK, `{
			"nextPageToken": "more",
			"files": [{"id": "f1", "name": "a"}, {"id": "f2", "name": "b"}]
		}`))

	got, err := files.List(context.Background(), drive.NewQuery(), drive.ListOptions{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

func TestServiceFilesWriteOperations(t *testing.T) {
	setupHTTPMock(t)
	files := newServiceFiles(t)
	ctx := context.Background()

	var uploaded string
	httpmock.RegisterResponder(http.MethodPost, uploadURL,
		func(req *http.Request) (*http.Response, error) {
			body, _ := io.ReadAll(req.Body)
			uploaded = string(body)
			return httpmock.NewStringResponse(http.StatusOK, `{"id": "new-1", "name": "autobackup_latest.csv", "mimeType": "text/csv"}`), nil
		})
	httpmock.RegisterResponder(http.MethodPatch, filesURL+`/new-1`,
		httpmock.NewStringResponder(http.StatusOK, `{"id": "new-1"}`))
	httpmock.RegisterResponder(http.MethodDelete, filesURL+`/new-1`,
		httpmock.NewStringResponder(http.StatusNoContent, ""))
	httpmock.RegisterResponder(http.MethodDelete, filesURL+`/gone`, apiError(http.StatusNotFound))

	created, err := files.Create(ctx, drive.FileMetadata{
		Name:     "autobackup_latest.csv",
		MimeType: "text/csv",
		Parents:  []string{"folder"},
	}, strings.NewReader("id,title\n1,Go\n"))
	require.NoError(t, err)
	assert.Equal(t, "new-1", created.ID)
	assert.Contains(t, uploaded, "id,title\n1,Go\n")
	assert.Contains(t, uploaded, `"autobackup_latest.csv"`)

	require.NoError(t, files.Rename(ctx, "new-1", "autobackup-1.csv"))
	require.NoError(t, files.Delete(ctx, "new-1"))

	err = files.Delete(ctx, "gone")
	assert.Equal(t, drive.CodeNotFound, drive.CodeOf(err))
}

func TestServiceFilesDownload(t *testing.T) {
	setupHTTPMock(t)
	files := newServiceFiles(t)

	payload := strings.Repeat("x", 600*1024)
	httpmock.RegisterResponder(http.MethodGet, filesURL+`/file-1`,
		httpmock.NewStringResponder(http.StatusOK, payload))

	var buf bytes.Buffer
	n, err := files.Download(context.Background(), "file-1", &buf)
	require.NoError(t, err)
	assert.Equal(t, int64(len(payload)), n)
	assert.Equal(t, payload, buf.String())
}

func TestClientReportsRefreshFailure(t *testing.T) {
	setupHTTPMock(t)

	httpmock.RegisterResponder(http.MethodPost, "https://oauth2.test/token",
		httpmock.NewStringResponder(http.StatusBadRequest, `{"error": "invalid_grant"}`).
			HeaderSet(http.Header{"Content-Type": []string{"application/json"}}))

	store := drivetest.NewCredentialStore()
	store.Connect(testUser, "revoked-refresh-token")
	resolver := drive.NewCredentialResolver(store, drive.OAuthClient{
		ClientID:     "cid",
		ClientSecret: "secret",
		TokenURL:     "https://oauth2.test/token",
	})
	client := drive.NewClient(resolver, drive.WithFilesFactory(drive.NewServiceFilesFactory(drive.ServiceConfig{RateLimit: 100, Burst: 1})))

	_, err := client.List(context.Background(), testUser, 10, "", "")
	require.Error(t, err)
	assert.Equal(t, drive.CodeRefresh, drive.CodeOf(err))
	assert.Equal(t, 1, httpmock.GetCallCountInfo()["POST https://oauth2.test/token"])
}
