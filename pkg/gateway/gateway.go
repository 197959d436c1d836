package gateway

import (
	"context"
	"errors"
	"io"
	"time"

	"memorylane/pkg/domain"
)

var (
	// ErrDuplicateTag reports a tag name that already exists in scope.
	// Distinguishable from generic insert failures so callers can
	// resolve-or-create without guessing.
	ErrDuplicateTag = errors.New("tag name already exists")
	// ErrNotFound reports a row that does not exist or is not owned by
	// the requesting user. Scoped updates and deletes return it instead
	// of touching someone else's rows.
	ErrNotFound = errors.New("not found")
)

// PhotoRow is the canonical row shape at the gateway boundary. The
// backing store has shipped tags in three representations over time:
// an embedded array (Tags), join-table rows (fetched separately via
// ListTagAssociations), and a flattened comma-joined column (TagsCSV).
// A row may also carry its image URL in either of two historically
// named columns. The aggregation layer adapts all of that in one place;
// nothing downstream branches on representation.
type PhotoRow struct {
	ID             string
	OwnerID        string
	Title          string
	Story          string
	DateTaken      string
	ImageURL       string
	LegacyImageURL string
	IsPublic       bool
	BatchID        string
	Tags           []string
	TagsCSV        string
	CreatedAt      time.Time
}

// PhotoUpdate carries the mutable photo fields. Nil pointers leave the
// column untouched.
type PhotoUpdate struct {
	Title     *string
	Story     *string
	DateTaken *string
	IsPublic  *bool
}

// TagRow is a stored tag. OwnerID "" means shared scope.
type TagRow struct {
	ID      string
	Name    string
	OwnerID string
}

// AssocRow links a photo to a tag.
type AssocRow struct {
	PhotoID string
	TagID   string
}

// Gateway is the remote data collaborator: row CRUD, tag management,
// binary storage, and the user search procedure. The backing service
// owns all persistence formats; this interface is the only surface the
// core talks to, and it is always injected, never a package-level
// singleton.
type Gateway interface {
	// ListPhotos returns one owner's rows ordered by creation time
	// descending. With publicOnly set, private rows are excluded.
	ListPhotos(ctx context.Context, ownerID string, publicOnly bool) ([]PhotoRow, error)
	// SearchPhotosByTag returns the owner's rows associated with the
	// exact tag name, creation time descending.
	SearchPhotosByTag(ctx context.Context, ownerID, tagName string) ([]PhotoRow, error)
	InsertPhoto(ctx context.Context, row PhotoRow) (PhotoRow, error)
	UpdatePhoto(ctx context.Context, id, ownerID string, fields PhotoUpdate) error
	DeletePhoto(ctx context.Context, id, ownerID string) error

	// ListTags returns tags visible in the owner's scope, shared tags
	// included.
	ListTags(ctx context.Context, ownerID string) ([]TagRow, error)
	// CreateTag fails with ErrDuplicateTag when the name exists in scope.
	CreateTag(ctx context.Context, name, ownerID string) (TagRow, error)
	DeleteTagAssociations(ctx context.Context, photoID string) error
	InsertTagAssociations(ctx context.Context, photoID string, tagIDs []string) error
	// ListTagAssociations returns association rows for the given photos,
	// used when rows arrive without embedded tags.
	ListTagAssociations(ctx context.Context, photoIDs []string) ([]AssocRow, error)

	// UploadFile stores the binary under the suggested name and returns
	// its public URL.
	UploadFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error)
	DeleteFile(ctx context.Context, name string) error

	// SearchUsers runs the remote user search. Minimum query length is
	// enforced by the caller before invoking.
	SearchUsers(ctx context.Context, query string) ([]domain.SearchResult, error)
}

// UserStore covers the account operations the self-hosted auth path
// needs. Kept separate from Gateway: hosted deployments delegate
// accounts to the identity provider entirely.
type UserStore interface {
	SaveUser(ctx context.Context, u domain.User) error
	GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error)
	GetUserByID(ctx context.Context, id string) (domain.User, bool, error)
}
