package drive

import (
	"context"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/jobapply/jobapply/internal/logger"
)

// DefaultFolderTTL is how long resolved folder ids are trusted.
const DefaultFolderTTL = 30 * time.Minute

// FolderResolver finds or creates folders by name under a parent.
// Concurrent lookups of one folder in this process share a single request;
// separate processes are not coordinated and may each create the folder.
// A cancelled caller returns early without failing the others.
type FolderResolver struct {
	cache  *cache.Cache
	flight *singleflight.Group
	scope  string // keeps ids of different drives apart in a shared cache
}

// NewFolderResolver creates a resolver backed by c. A nil c gets a private cache.
func NewFolderResolver(c *cache.Cache, scope string) *FolderResolver {
	if c == nil {
		c = cache.New(DefaultFolderTTL, 2*DefaultFolderTTL)
	}
	return newSharedFolderResolver(c, &singleflight.Group{}, scope)
}

func newSharedFolderResolver(c *cache.Cache, flight *singleflight.Group, scope string) *FolderResolver {
	return &FolderResolver{cache: c, flight: flight, scope: scope}
}

func (r *FolderResolver) key(parentID, name string) string {
	return r.scope + "\x00" + parentID + "\x00" + name
}

// EnsureFolder returns the id of folder name under parentID, creating it if absent.
// An empty parentID means the root of My Drive.
func (r *FolderResolver) EnsureFolder(ctx context.Context, files Files, name, parentID string) (string, error) {
	if parentID == "" {
		parentID = RootFolderID
	}
	key := r.key(parentID, name)
	if id, ok := r.cache.Get(key); ok {
		return id.(string), nil
	}

	// The shared lookup is not tied to the caller that started it; each
	// caller stops waiting when its own ctx is done.
	ch := r.flight.DoChan(key, func() (any, error) {
		return r.lookupOrCreate(context.WithoutCancel(ctx), files, key, name, parentID)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

func (r *FolderResolver) lookupOrCreate(ctx context.Context, files Files, key, name, parentID string) (string, error) {
	found, err := files.List(ctx, NewQuery(
		NameEquals(name),
		MimeTypeEquals(FolderMimeType),
		ParentEquals(parentID),
		TrashedIs(false),
	), ListOptions{Limit: 1})
	if err != nil {
		return "", Translate("find_folder", err)
	}
	if len(found) > 0 {
		r.cache.SetDefault(key, found[0].ID)
		return found[0].ID, nil
	}

	created, err := files.Create(ctx, FileMetadata{
		Name:     name,
		MimeType: FolderMimeType,
		Parents:  []string{parentID},
	}, nil)
	if err != nil {
		return "", Translate("create_folder", err)
	}
	GetLogger().Info("created drive folder",
		logger.String("name", name),
		logger.String("folder_id", created.ID),
		logger.String("parent_id", parentID))

	r.cache.SetDefault(key, created.ID)
	return created.ID, nil
}

// EnsurePath resolves root under My Drive and then subfolder under root.
// An empty subfolder returns the root folder id.
func (r *FolderResolver) EnsurePath(ctx context.Context, files Files, root, subfolder string) (string, error) {
	rootID, err := r.EnsureFolder(ctx, files, root, RootFolderID)
	if err != nil {
		return "", err
	}
	if subfolder == "" {
		return rootID, nil
	}
	return r.EnsureFolder(ctx, files, subfolder, rootID)
}

// Forget drops cached entries for folderID, the folders above it and the
// folders below it, so the next resolution looks them up again.
func (r *FolderResolver) Forget(folderID string) {
	prefix := r.scope + "\x00"
	items := r.cache.Items()

	pending := []string{folderID}
	seen := make(map[string]bool)
	for len(pending) > 0 {
		id := pending[0]
		pending = pending[1:]
		if seen[id] || id == RootFolderID {
			continue
		}
		seen[id] = true

		for key, item := range items {
			if !strings.HasPrefix(key, prefix) {
				continue
			}
			parent := strings.SplitN(strings.TrimPrefix(key, prefix), "\x00", 2)[0]
			switch {
			case item.Object == id:
				r.cache.Delete(key)
				pending = append(pending, parent)
			case parent == id:
				r.cache.Delete(key)
				if child, ok := item.Object.(string); ok {
					pending = append(pending, child)
				}
			}
		}
	}
}
