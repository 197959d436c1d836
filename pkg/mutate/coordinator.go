// Package mutate orchestrates multi-step writes against the remote
// gateway and keeps the client-visible photo list consistent with the
// outcome, including partial failure.
package mutate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"memorylane/pkg/aggregate"
	"memorylane/pkg/domain"
	"memorylane/pkg/gateway"
	"memorylane/pkg/session"
	"memorylane/pkg/storage"
)

// FileUpload is one file in an add-photos submission.
type FileUpload struct {
	Name string
	Body io.Reader
	Size int64
}

// PhotoDetails is the metadata shared by every file in one submission.
type PhotoDetails struct {
	Title     string
	Story     string
	DateTaken string
	IsPublic  bool
	Tags      []string
}

// FileFailure records one file skipped during a batch add.
type FileFailure struct {
	Name string `json:"name"`
	Err  string `json:"error"`
}

// AddResult is the aggregate outcome of an add-photos submission.
type AddResult struct {
	Created []domain.Photo `json:"created"`
	Failed  []FileFailure  `json:"failed,omitempty"`
}

// Coordinator performs the write orchestration. It never caches; after
// a successful mutation callers re-aggregate, which is why every method
// leaves the remote store as the single source of truth.
type Coordinator struct {
	gw  gateway.Gateway
	log *slog.Logger
}

func NewCoordinator(gw gateway.Gateway, log *slog.Logger) *Coordinator {
	if log == nil {
		log = slog.Default()
	}
	return &Coordinator{gw: gw, log: log}
}

// AddPhotos uploads each file and inserts its row with the shared
// metadata. Files are processed one at a time in submission order,
// bounding upload load and keeping batch creation order deterministic
// for tile representative selection. A multi-file submission shares one
// freshly generated batch ID; a single file stays standalone.
//
// Best-effort batch semantics: one file's failure is recorded and the
// rest continue. The returned error is non-nil only when no file could
// be processed at all or the caller is unauthenticated.
func (c *Coordinator) AddPhotos(ctx context.Context, sess *domain.Session, details PhotoDetails, files []FileUpload) (AddResult, error) {
	var res AddResult
	if sess == nil || sess.UserID == "" {
		return res, session.ErrNotAuthenticated
	}
	if len(files) == 0 {
		return res, errors.New("no files submitted")
	}
	tags := aggregate.NormalizeTags(details.Tags)

	batchID := ""
	if len(files) > 1 {
		batchID = uuid.NewString()
	}
	for _, f := range files {
		photo, err := c.addOne(ctx, sess.UserID, details, tags, batchID, f)
		if err != nil {
			c.log.Warn("file skipped in batch add", "file", f.Name, "err", err)
			res.Failed = append(res.Failed, FileFailure{Name: f.Name, Err: err.Error()})
			continue
		}
		res.Created = append(res.Created, photo)
	}
	if len(res.Created) == 0 {
		return res, fmt.Errorf("all %d files failed", len(files))
	}
	return res, nil
}

func (c *Coordinator) addOne(ctx context.Context, ownerID string, details PhotoDetails, tags []string, batchID string, f FileUpload) (domain.Photo, error) {
	key := objectKey(f.Name)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(f.Name)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	publicURL, err := c.gw.UploadFile(ctx, key, f.Body, f.Size, contentType)
	if err != nil {
		return domain.Photo{}, fmt.Errorf("upload file: %w", err)
	}
	row, err := c.gw.InsertPhoto(ctx, gateway.PhotoRow{
		OwnerID:   ownerID,
		Title:     details.Title,
		Story:     details.Story,
		DateTaken: details.DateTaken,
		ImageURL:  publicURL,
		IsPublic:  details.IsPublic,
		BatchID:   batchID,
	})
	if err != nil {
		// The row never existed, so removing the freshly uploaded
		// object cannot orphan a reference.
		if delErr := c.gw.DeleteFile(ctx, key); delErr != nil {
			c.log.Warn("orphaned object after failed insert", "key", key, "err", delErr)
		}
		return domain.Photo{}, fmt.Errorf("insert photo: %w", err)
	}
	tagIDs, err := c.resolveTags(ctx, ownerID, tags)
	if err != nil {
		c.rollbackInsert(ctx, ownerID, row.ID, key)
		return domain.Photo{}, fmt.Errorf("resolve tags: %w", err)
	}
	if err := c.gw.InsertTagAssociations(ctx, row.ID, tagIDs); err != nil {
		c.rollbackInsert(ctx, ownerID, row.ID, key)
		return domain.Photo{}, fmt.Errorf("insert tag associations: %w", err)
	}
	photo := aggregate.Normalize(row, nil)
	photo.Tags = tags
	return photo, nil
}

// rollbackInsert removes a freshly inserted row and its object after a
// later step of addOne fails, so a file reported as failed is absent
// from the next aggregation. Row first, then binary, the same order as
// delete; a failed row delete leaves the binary in place.
func (c *Coordinator) rollbackInsert(ctx context.Context, ownerID, photoID, key string) {
	if err := c.gw.DeletePhoto(ctx, photoID, ownerID); err != nil {
		c.log.Warn("orphaned photo row after failed add", "photo", photoID, "err", err)
		return
	}
	if err := c.gw.DeleteFile(ctx, key); err != nil {
		c.log.Warn("orphaned object after failed add", "key", key, "err", err)
	}
}

// resolveTags maps each requested name to a tag ID, creating missing
// tags in the owner's scope. A duplicate-name race on create falls back
// to re-listing; orphan tags from earlier photos are reused, never
// re-created.
func (c *Coordinator) resolveTags(ctx context.Context, ownerID string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}
	existing, err := c.gw.ListTags(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	byName := make(map[string]string, len(existing))
	for _, t := range existing {
		byName[t.Name] = t.ID
	}
	ids := make([]string, 0, len(names))
	for _, name := range names {
		if id, ok := byName[name]; ok {
			ids = append(ids, id)
			continue
		}
		tag, err := c.gw.CreateTag(ctx, name, ownerID)
		if errors.Is(err, gateway.ErrDuplicateTag) {
			refreshed, listErr := c.gw.ListTags(ctx, ownerID)
			if listErr != nil {
				return nil, fmt.Errorf("re-list tags after duplicate: %w", listErr)
			}
			found := false
			for _, t := range refreshed {
				if t.Name == name {
					tag, found = t, true
					break
				}
			}
			if !found {
				return nil, fmt.Errorf("tag %q reported duplicate but not found", name)
			}
		} else if err != nil {
			return nil, fmt.Errorf("create tag %q: %w", name, err)
		}
		byName[tag.Name] = tag.ID
		ids = append(ids, tag.ID)
	}
	return ids, nil
}

// UpdatePhoto applies metadata changes, then replaces the photo's full
// association set: delete all, insert the new set. No diffing, at the
// cost of a brief window with zero associations; callers must not
// assume atomicity across it.
func (c *Coordinator) UpdatePhoto(ctx context.Context, sess *domain.Session, photoID string, fields gateway.PhotoUpdate, tags []string) error {
	if sess == nil || sess.UserID == "" {
		return session.ErrNotAuthenticated
	}
	if err := c.gw.UpdatePhoto(ctx, photoID, sess.UserID, fields); err != nil {
		return err
	}
	tagIDs, err := c.resolveTags(ctx, sess.UserID, aggregate.NormalizeTags(tags))
	if err != nil {
		return fmt.Errorf("resolve tags: %w", err)
	}
	if err := c.gw.DeleteTagAssociations(ctx, photoID); err != nil {
		return fmt.Errorf("clear tag associations: %w", err)
	}
	if err := c.gw.InsertTagAssociations(ctx, photoID, tagIDs); err != nil {
		return fmt.Errorf("insert tag associations: %w", err)
	}
	return nil
}

// DeletePhoto removes the row first, then the stored binary by the
// filename derived from the stored URL. The order is deliberate: a
// failed row delete leaves the binary untouched (no orphaned reference)
// while a failed binary delete after a successful row delete leaks
// storage, which is logged and accepted, never rolled back or retried.
func (c *Coordinator) DeletePhoto(ctx context.Context, sess *domain.Session, photo domain.Photo) error {
	if sess == nil || sess.UserID == "" {
		return session.ErrNotAuthenticated
	}
	if err := c.gw.DeletePhoto(ctx, photo.ID, sess.UserID); err != nil {
		return err
	}
	key := storage.KeyFromURL(photo.ImageURL)
	if key == "" {
		c.log.Warn("no object key derivable from image url", "photo", photo.ID, "url", photo.ImageURL)
		return nil
	}
	if err := c.gw.DeleteFile(ctx, key); err != nil {
		c.log.Warn("photo row deleted but binary delete failed", "photo", photo.ID, "key", key, "err", err)
	}
	return nil
}

// ToggleVisibility flips is_public and nothing else. On failure the
// caller's view model stays as it was; there is no optimistic flip.
func (c *Coordinator) ToggleVisibility(ctx context.Context, sess *domain.Session, photoID string, isPublic bool) error {
	if sess == nil || sess.UserID == "" {
		return session.ErrNotAuthenticated
	}
	return c.gw.UpdatePhoto(ctx, photoID, sess.UserID, gateway.PhotoUpdate{IsPublic: &isPublic})
}

// objectKey builds a collision-resistant storage name that keeps the
// original base name readable.
func objectKey(filename string) string {
	base := filepath.Base(filename)
	base = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, base)
	return fmt.Sprintf("%d-%s", time.Now().UnixNano(), base)
}
