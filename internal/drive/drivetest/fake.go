// Package drivetest provides an in-memory drive.Files for tests.
package drivetest

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sort"
	"sync"
	"time"

	"google.golang.org/api/googleapi"

	"github.com/jobapply/jobapply/internal/drive"
)

// Op names a Files method for fault injection and call counting.
type Op string

const (
	OpList     Op = "list"
	OpCreate   Op = "create"
	OpRename   Op = "rename"
	OpDelete   Op = "delete"
	OpDownload Op = "download"
)

type object struct {
	file    drive.RemoteFile
	content []byte
}

// Fake is a goroutine-safe in-memory Drive. Created files get sequential ids
// and creation times one second apart.
type Fake struct {
	mu      sync.Mutex
	objects map[string]*object
	nextID  int
	clock   time.Time
	faults  map[Op][]error
	calls   map[Op]int
}

// New returns an empty Fake.
func New() *Fake {
	return &Fake{
		objects: make(map[string]*object),
		clock:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		faults:  make(map[Op][]error),
		calls:   make(map[Op]int),
	}
}

// Factory returns a drive.FilesFactory that always yields f.
func (f *Fake) Factory() drive.FilesFactory {
	return func(context.Context, *drive.Credentials) (drive.Files, error) {
		return f, nil
	}
}

// FailNext makes the next calls of op fail with errs, one error per call.
func (f *Fake) FailNext(op Op, errs ...error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.faults[op] = append(f.faults[op], errs...)
}

// StatusError returns a Drive API error with the given HTTP status.
func StatusError(status int) error {
	return &googleapi.Error{Code: status, Message: http.StatusText(status)}
}

// Calls returns how often op was invoked, including failed calls.
func (f *Fake) Calls(op Op) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[op]
}

// enter counts the call and pops an injected fault. Callers hold f.mu.
func (f *Fake) enter(op Op) error {
	f.calls[op]++
	if queue := f.faults[op]; len(queue) > 0 {
		f.faults[op] = queue[1:]
		return queue[0]
	}
	return nil
}

func notFound(id string) error {
	return &googleapi.Error{Code: http.StatusNotFound, Message: fmt.Sprintf("File not found: %s.", id)}
}

func (f *Fake) List(_ context.Context, q drive.Query, opts drive.ListOptions) ([]drive.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpList); err != nil {
		return nil, err
	}

	var out []drive.RemoteFile
	for _, obj := range f.objects {
		if q.Matches(obj.file) {
			out = append(out, obj.file)
		}
	}
	if opts.OrderBy == drive.OrderByCreatedDesc {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.After(out[j].CreatedTime) })
	} else {
		sort.Slice(out, func(i, j int) bool { return out[i].CreatedTime.Before(out[j].CreatedTime) })
	}
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (f *Fake) Create(_ context.Context, meta drive.FileMetadata, content io.Reader) (*drive.RemoteFile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpCreate); err != nil {
		return nil, err
	}
	for _, parent := range meta.Parents {
		if parent == drive.RootFolderID {
			continue
		}
		if _, ok := f.objects[parent]; !ok {
			return nil, notFound(parent)
		}
	}

	var data []byte
	if content != nil {
		var err error
		if data, err = io.ReadAll(content); err != nil {
			return nil, err
		}
	}

	f.nextID++
	f.clock = f.clock.Add(time.Second)
	obj := &object{
		file: drive.RemoteFile{
			ID:          fmt.Sprintf("file-%03d", f.nextID),
			Name:        meta.Name,
			MimeType:    meta.MimeType,
			Parents:     append([]string(nil), meta.Parents...),
			Size:        int64(len(data)),
			CreatedTime: f.clock,
		},
		content: data,
	}
	f.objects[obj.file.ID] = obj
	created := obj.file
	return &created, nil
}

func (f *Fake) Rename(_ context.Context, id, name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpRename); err != nil {
		return err
	}
	obj, ok := f.objects[id]
	if !ok {
		return notFound(id)
	}
	obj.file.Name = name
	return nil
}

func (f *Fake) Delete(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.enter(OpDelete); err != nil {
		return err
	}
	if _, ok := f.objects[id]; !ok {
		return notFound(id)
	}
	delete(f.objects, id)
	return nil
}

func (f *Fake) Download(_ context.Context, id string, w io.Writer) (int64, error) {
	f.mu.Lock()
	if err := f.enter(OpDownload); err != nil {
		f.mu.Unlock()
		return 0, err
	}
	obj, ok := f.objects[id]
	if !ok {
		f.mu.Unlock()
		return 0, notFound(id)
	}
	data := bytes.Clone(obj.content)
	f.mu.Unlock()

	return io.Copy(w, bytes.NewReader(data))
}

// Trash marks a file as trashed, as a user would in the Drive UI.
func (f *Fake) Trash(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[id]; ok {
		obj.file.Trashed = true
	}
}

// Remove deletes a file and everything below it without counting a call.
func (f *Fake) Remove(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removeLocked(id)
}

func (f *Fake) removeLocked(id string) {
	delete(f.objects, id)
	for childID, obj := range f.objects {
		for _, parent := range obj.file.Parents {
			if parent == id {
				f.removeLocked(childID)
				break
			}
		}
	}
}

// Children returns the non-folder files directly inside parentID, ordered by name.
func (f *Fake) Children(parentID string) []drive.RemoteFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []drive.RemoteFile
	for _, obj := range f.objects {
		if obj.file.MimeType == drive.FolderMimeType {
			continue
		}
		if drive.ParentEquals(parentID).Matches(obj.file) {
			out = append(out, obj.file)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Folders returns every folder named name.
func (f *Fake) Folders(name string) []drive.RemoteFile {
	f.mu.Lock()
	defer f.mu.Unlock()
	q := drive.NewQuery(drive.NameEquals(name), drive.MimeTypeEquals(drive.FolderMimeType))
	var out []drive.RemoteFile
	for _, obj := range f.objects {
		if q.Matches(obj.file) {
			out = append(out, obj.file)
		}
	}
	return out
}

// Content returns a copy of a file's content.
func (f *Fake) Content(id string) []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if obj, ok := f.objects[id]; ok {
		return bytes.Clone(obj.content)
	}
	return nil
}
