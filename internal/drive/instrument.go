package drive

import (
	"context"
	"io"
)

// Metrics receives one observation per Drive API call.
type Metrics interface {
	RecordDriveRequest(op string, code string)
}

const codeOK = "ok"

// instrumentedFiles records the outcome of every call.
type instrumentedFiles struct {
	next    Files
	metrics Metrics
}

func instrument(files Files, metrics Metrics) Files {
	if metrics == nil {
		return files
	}
	return &instrumentedFiles{next: files, metrics: metrics}
}

func (i *instrumentedFiles) record(op string, err error) {
	code := codeOK
	if err != nil {
		code = string(CodeOf(err))
	}
	i.metrics.RecordDriveRequest(op, code)
}

func (i *instrumentedFiles) List(ctx context.Context, q Query, opts ListOptions) ([]RemoteFile, error) {
	files, err := i.next.List(ctx, q, opts)
	i.record("list", err)
	return files, err
}

func (i *instrumentedFiles) Create(ctx context.Context, meta FileMetadata, content io.Reader) (*RemoteFile, error) {
	f, err := i.next.Create(ctx, meta, content)
	i.record("create", err)
	return f, err
}

func (i *instrumentedFiles) Rename(ctx context.Context, id, name string) error {
	err := i.next.Rename(ctx, id, name)
	i.record("rename", err)
	return err
}

func (i *instrumentedFiles) Delete(ctx context.Context, id string) error {
	err := i.next.Delete(ctx, id)
	i.record("delete", err)
	return err
}

func (i *instrumentedFiles) Download(ctx context.Context, id string, w io.Writer) (int64, error) {
	n, err := i.next.Download(ctx, id, w)
	i.record("download", err)
	return n, err
}
