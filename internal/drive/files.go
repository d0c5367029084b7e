package drive

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
	drivev3 "google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// RemoteFile is Drive file metadata.
type RemoteFile struct {
	ID          string
	Name        string
	MimeType    string
	Parents     []string
	Trashed     bool
	Size        int64
	CreatedTime time.Time
}

// FileMetadata describes a file to create.
type FileMetadata struct {
	Name     string
	MimeType string
	Parents  []string
}

// OrderByCreatedDesc lists newest files first.
const OrderByCreatedDesc = "createdTime desc"

// ListOptions tunes a List call. A zero Limit returns every match.
type ListOptions struct {
	OrderBy string
	Limit   int
}

// Files is the subset of the Drive files API used for backups.
type Files interface {
	List(ctx context.Context, q Query, opts ListOptions) ([]RemoteFile, error)
	// Create uploads content, or creates an empty file such as a folder when content is nil.
	Create(ctx context.Context, meta FileMetadata, content io.Reader) (*RemoteFile, error)
	Rename(ctx context.Context, id, name string) error
	Delete(ctx context.Context, id string) error
	// Download streams the file's content into w and returns the bytes written.
	Download(ctx context.Context, id string, w io.Writer) (int64, error)
}

const (
	fileFields    = "id, name, mimeType, parents, trashed, size, createdTime"
	maxPageSize   = 1000
	downloadChunk = 256 * 1024
)

// serviceFiles implements Files on the Drive v3 API.
type serviceFiles struct {
	svc     *drivev3.Service
	limiter *rate.Limiter
}

// NewServiceFiles creates Files on top of an authorized HTTP client.
// endpoint overrides the API base URL when not empty. A nil limiter disables throttling.
func NewServiceFiles(ctx context.Context, client *http.Client, endpoint string, limiter *rate.Limiter) (Files, error) {
	opts := []option.ClientOption{option.WithHTTPClient(client)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := drivev3.NewService(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return &serviceFiles{svc: svc, limiter: limiter}, nil
}

func (s *serviceFiles) wait(ctx context.Context) error {
	if s.limiter == nil {
		return nil
	}
	return s.limiter.Wait(ctx)
}

func (s *serviceFiles) List(ctx context.Context, q Query, opts ListOptions) ([]RemoteFile, error) {
	var files []RemoteFile
	pageToken := ""
	for {
		if err := s.wait(ctx); err != nil {
			return nil, err
		}
		call := s.svc.Files.List().
			Q(q.String()).
			Spaces("drive").
			Fields(googleapi.Field("nextPageToken, files(" + fileFields + ")")).
			Context(ctx)
		if opts.OrderBy != "" {
			call = call.OrderBy(opts.OrderBy)
		}
		if opts.Limit > 0 {
			call = call.PageSize(int64(min(opts.Limit-len(files), maxPageSize)))
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		res, err := call.Do()
		if err != nil {
			return nil, err
		}
		for _, f := range res.Files {
			files = append(files, fromDriveFile(f))
		}

		if opts.Limit > 0 && len(files) >= opts.Limit {
			return files[:opts.Limit], nil
		}
		if res.NextPageToken == "" {
			return files, nil
		}
		pageToken = res.NextPageToken
	}
}

func (s *serviceFiles) Create(ctx context.Context, meta FileMetadata, content io.Reader) (*RemoteFile, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	call := s.svc.Files.Create(&drivev3.File{
		Name:     meta.Name,
		MimeType: meta.MimeType,
		Parents:  meta.Parents,
	}).Fields(googleapi.Field(fileFields)).Context(ctx)
	if content != nil {
		call = call.Media(content, googleapi.ContentType(meta.MimeType))
	}
	created, err := call.Do()
	if err != nil {
		return nil, err
	}
	f := fromDriveFile(created)
	return &f, nil
}

func (s *serviceFiles) Rename(ctx context.Context, id, name string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	_, err := s.svc.Files.Update(id, &drivev3.File{Name: name}).Fields("id").Context(ctx).Do()
	return err
}

func (s *serviceFiles) Delete(ctx context.Context, id string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.svc.Files.Delete(id).Context(ctx).Do()
}

func (s *serviceFiles) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	buf := make([]byte, downloadChunk)
	var written int64
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			m, writeErr := w.Write(buf[:n])
			written += int64(m)
			if writeErr != nil {
				return written, writeErr
			}
		}
		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func fromDriveFile(f *drivev3.File) RemoteFile {
	rf := RemoteFile{
		ID:       f.Id,
		Name:     f.Name,
		MimeType: f.MimeType,
		Parents:  f.Parents,
		Trashed:  f.Trashed,
		Size:     f.Size,
	}
	if t, err := time.Parse(time.RFC3339, f.CreatedTime); err == nil {
		rf.CreatedTime = t
	}
	return rf
}
