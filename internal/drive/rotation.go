package drive

import (
	"bytes"
	"context"
	"fmt"

	"github.com/jobapply/jobapply/internal/logger"
)

// DefaultPrefix names automatic backup files.
const DefaultPrefix = "autobackup"

// RotationNames returns the file names of the three backup generations.
func RotationNames(prefix, extension string) (latest, gen1, gen2 string) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return fmt.Sprintf("%s_latest.%s", prefix, extension),
		fmt.Sprintf("%s-1.%s", prefix, extension),
		fmt.Sprintf("%s-2.%s", prefix, extension)
}

// rotator keeps the latest upload and two older generations in one folder.
type rotator struct {
	files Files
	log   logger.Logger
}

// rotate shifts latest to gen-1 and gen-1 to gen-2, drops every old gen-2 and
// uploads content as the new latest. Failures while shifting old generations
// are logged and skipped; a failed lookup or upload is returned.
func (r *rotator) rotate(ctx context.Context, folderID string, req RotateRequest) (*RemoteFile, error) {
	latestName, gen1Name, gen2Name := RotationNames(req.Prefix, req.Extension)

	latest, err := r.find(ctx, folderID, latestName)
	if err != nil {
		return nil, err
	}
	gen1, err := r.find(ctx, folderID, gen1Name)
	if err != nil {
		return nil, err
	}
	// Every gen-2 copy goes, so a delete that failed last time is retried here.
	gen2, err := r.findAll(ctx, folderID, gen2Name)
	if err != nil {
		return nil, err
	}

	for i := range gen2 {
		if err := r.files.Delete(ctx, gen2[i].ID); err != nil {
			r.stepFailed("delete", &gen2[i], gen2Name, err)
		}
	}
	if gen1 != nil {
		if err := r.files.Rename(ctx, gen1.ID, gen2Name); err != nil {
			r.stepFailed("rename", gen1, gen2Name, err)
		}
	}
	if latest != nil {
		if err := r.files.Rename(ctx, latest.ID, gen1Name); err != nil {
			r.stepFailed("rename", latest, gen1Name, err)
		}
	}

	uploaded, err := r.files.Create(ctx, FileMetadata{
		Name:     latestName,
		MimeType: req.MimeType,
		Parents:  []string{folderID},
	}, bytes.NewReader(req.Content))
	if err != nil {
		return nil, Translate("upload", err)
	}
	return uploaded, nil
}

// find returns the first non-trashed file called name in the folder, or nil.
func (r *rotator) find(ctx context.Context, folderID, name string) (*RemoteFile, error) {
	found, err := r.list(ctx, folderID, name, 1)
	if err != nil || len(found) == 0 {
		return nil, err
	}
	return &found[0], nil
}

// findAll returns every non-trashed file called name in the folder.
func (r *rotator) findAll(ctx context.Context, folderID, name string) ([]RemoteFile, error) {
	return r.list(ctx, folderID, name, 0)
}

func (r *rotator) list(ctx context.Context, folderID, name string, limit int) ([]RemoteFile, error) {
	found, err := r.files.List(ctx, NewQuery(
		NameEquals(name),
		ParentEquals(folderID),
		TrashedIs(false),
	), ListOptions{Limit: limit})
	if err != nil {
		return nil, Translate("find_backup", err)
	}
	return found, nil
}

func (r *rotator) stepFailed(step string, file *RemoteFile, target string, err error) {
	r.log.Warn("backup rotation step failed, continuing",
		logger.String("step", step),
		logger.String("file_id", file.ID),
		logger.String("file_name", file.Name),
		logger.String("target_name", target),
		logger.String("code", string(CodeOf(err))),
		logger.Error(err))
}
