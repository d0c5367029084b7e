package drive

import (
	"bytes"
	"context"
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/jobapply/jobapply/internal/errors"
	"github.com/jobapply/jobapply/internal/logger"
)

// Default folder layout under My Drive.
const (
	DefaultRootFolder = "JobApply"
	DefaultSubfolder  = "backups"
	DefaultListLimit  = 30
)

// FolderURL returns the browser URL of a Drive folder.
func FolderURL(folderID string) string {
	return "https://drive.google.com/drive/folders/" + folderID
}

// FilesFactory opens a Files session authorized with creds.
type FilesFactory func(ctx context.Context, creds *Credentials) (Files, error)

// ServiceConfig configures the Drive v3 transport.
type ServiceConfig struct {
	Endpoint  string  // API base URL, empty for Google's
	RateLimit float64 // requests per second shared by all sessions, 0 for unlimited
	Burst     int
}

// NewServiceFilesFactory returns a factory for Drive v3 sessions. All sessions
// share one rate limiter.
func NewServiceFilesFactory(cfg ServiceConfig) FilesFactory {
	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}
	return func(ctx context.Context, creds *Credentials) (Files, error) {
		client := oauth2.NewClient(ctx, creds.TokenSource(ctx))
		return NewServiceFiles(ctx, client, cfg.Endpoint, limiter)
	}
}

// RotateRequest is one automatic backup.
type RotateRequest struct {
	Content    []byte
	MimeType   string
	Extension  string // without the dot, e.g. "csv"
	RootFolder string
	Subfolder  string
	Prefix     string
}

// UploadRequest is a one-off upload that does not rotate.
type UploadRequest struct {
	Name       string
	Content    []byte
	MimeType   string
	RootFolder string
	Subfolder  string
}

// Option configures a Client.
type Option func(*Client)

// WithFilesFactory replaces the Drive v3 transport.
func WithFilesFactory(f FilesFactory) Option {
	return func(c *Client) { c.newFiles = f }
}

// WithMetrics records every Drive call.
func WithMetrics(m Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithFolderTTL sets how long resolved folder ids are cached.
func WithFolderTTL(ttl time.Duration) Option {
	return func(c *Client) { c.folderCache = cache.New(ttl, 2*ttl) }
}

// Client runs backup operations for any user.
type Client struct {
	creds       *CredentialResolver
	newFiles    FilesFactory
	metrics     Metrics
	folderCache *cache.Cache
	folderCalls singleflight.Group
}

// NewClient creates a Client using the Drive v3 API by default.
func NewClient(creds *CredentialResolver, opts ...Option) *Client {
	c := &Client{
		creds:       creds,
		newFiles:    NewServiceFilesFactory(ServiceConfig{}),
		folderCache: cache.New(DefaultFolderTTL, 2*DefaultFolderTTL),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Status reports the user's connection state. It never fails.
func (c *Client) Status(ctx context.Context, userID uint) Status {
	return c.creds.Status(ctx, userID)
}

type session struct {
	files   Files
	folders *FolderResolver
	log     logger.Logger
}

func (c *Client) open(ctx context.Context, userID uint) (*session, error) {
	creds, err := c.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	files, err := c.newFiles(ctx, creds)
	if err != nil {
		return nil, Translate("connect", err)
	}
	return &session{
		files:   instrument(files, c.metrics),
		folders: newSharedFolderResolver(c.folderCache, &c.folderCalls, strconv.FormatUint(uint64(userID), 10)),
		log:     GetLogger().With(logger.Uint("user_id", userID)),
	}, nil
}

// EnsureFolder resolves root/subfolder for the user, creating missing folders.
func (c *Client) EnsureFolder(ctx context.Context, userID uint, root, subfolder string) (string, error) {
	s, err := c.open(ctx, userID)
	if err != nil {
		return "", c.fail("ensure_folder", err)
	}
	id, err := s.folders.EnsurePath(ctx, s.files, defaultRoot(root), subfolder)
	if err != nil {
		return "", c.fail("ensure_folder", err)
	}
	return id, nil
}

// RotateAndUpload stores content as the newest of three backup generations.
func (c *Client) RotateAndUpload(ctx context.Context, userID uint, req RotateRequest) (*RemoteFile, error) {
	s, err := c.open(ctx, userID)
	if err != nil {
		return nil, c.fail("rotate_upload", err)
	}
	if req.Prefix == "" {
		req.Prefix = DefaultPrefix
	}

	folderID, err := s.folders.EnsurePath(ctx, s.files, defaultRoot(req.RootFolder), req.Subfolder)
	if err != nil {
		return nil, c.fail("rotate_upload", err)
	}

	r := &rotator{files: s.files, log: s.log}
	uploaded, err := r.rotate(ctx, folderID, req)
	if err != nil {
		if CodeOf(err) == CodeNotFound {
			// The folder was probably removed by the user; resolve it again next time.
			s.folders.Forget(folderID)
		}
		return nil, c.fail("rotate_upload", err)
	}

	s.log.Info("backup uploaded",
		logger.String("file_id", uploaded.ID),
		logger.String("file_name", uploaded.Name),
		logger.String("folder_id", folderID),
		logger.Int("size", len(req.Content)))
	return uploaded, nil
}

// Upload stores content under name without touching other files.
func (c *Client) Upload(ctx context.Context, userID uint, req UploadRequest) (*RemoteFile, error) {
	s, err := c.open(ctx, userID)
	if err != nil {
		return nil, c.fail("upload", err)
	}
	folderID, err := s.folders.EnsurePath(ctx, s.files, defaultRoot(req.RootFolder), req.Subfolder)
	if err != nil {
		return nil, c.fail("upload", err)
	}
	uploaded, err := s.files.Create(ctx, FileMetadata{
		Name:     req.Name,
		MimeType: req.MimeType,
		Parents:  []string{folderID},
	}, bytes.NewReader(req.Content))
	if err != nil {
		if CodeOf(err) == CodeNotFound {
			s.folders.Forget(folderID)
		}
		return nil, c.fail("upload", err)
	}
	return uploaded, nil
}

// List returns up to limit files in root/subfolder, newest first.
// A limit below one uses DefaultListLimit.
func (c *Client) List(ctx context.Context, userID uint, limit int, root, subfolder string) ([]RemoteFile, error) {
	if limit < 1 {
		limit = DefaultListLimit
	}
	s, err := c.open(ctx, userID)
	if err != nil {
		return nil, c.fail("list", err)
	}
	folderID, err := s.folders.EnsurePath(ctx, s.files, defaultRoot(root), subfolder)
	if err != nil {
		return nil, c.fail("list", err)
	}
	files, err := s.files.List(ctx, NewQuery(ParentEquals(folderID), TrashedIs(false)),
		ListOptions{OrderBy: OrderByCreatedDesc, Limit: limit})
	if err != nil {
		return nil, c.fail("list", err)
	}
	return files, nil
}

// Download returns the content of a file.
func (c *Client) Download(ctx context.Context, userID uint, fileID string) ([]byte, error) {
	s, err := c.open(ctx, userID)
	if err != nil {
		return nil, c.fail("download", err)
	}
	var buf bytes.Buffer
	if _, err := s.files.Download(ctx, fileID, &buf); err != nil {
		return nil, c.fail("download", err)
	}
	return buf.Bytes(), nil
}

// fail translates err and reports unexpected failures to telemetry.
func (c *Client) fail(op string, err error) error {
	err = Translate(op, err)
	if CodeOf(err) == CodeUnexpected && !IsPermissionDenied(err) {
		return errors.New(err).
			Component("drive").
			Category(errors.CategoryIntegration).
			Context("operation", op).
			Build()
	}
	return err
}

func defaultRoot(root string) string {
	if root == "" {
		return DefaultRootFolder
	}
	return root
}
