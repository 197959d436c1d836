package domain

import "time"

// ViewMode selects how the gallery renders a photo card.
type ViewMode string

const (
	ViewFlip  ViewMode = "flip"
	ViewSlide ViewMode = "slide"
)

// Photo is a single memory record as presented to the gallery. A photo
// with GalleryTile set is a synthesized representative for a multi-photo
// upload batch and carries the live member list.
type Photo struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"ownerId"`
	Title     string    `json:"title"`
	Story     string    `json:"story"`
	DateTaken string    `json:"dateTaken"`
	ImageURL  string    `json:"imageUrl"`
	IsPublic  bool      `json:"isPublic"`
	BatchID   string    `json:"batchId,omitempty"`
	Tags      []string  `json:"tags"`
	CreatedAt time.Time `json:"createdAt"`

	GalleryTile bool    `json:"galleryTile,omitempty"`
	MemberCount int     `json:"memberCount,omitempty"`
	Members     []Photo `json:"members,omitempty"`
}

// HasTag reports whether the photo itself carries the tag. Comparison is
// case-sensitive.
func (p Photo) HasTag(name string) bool {
	for _, t := range p.Tags {
		if t == name {
			return true
		}
	}
	return false
}

// Tag is a named label scoped to its creating user. OwnerID "" marks a
// shared tag visible in every scope.
type Tag struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	OwnerID string `json:"ownerId,omitempty"`
}

// User is an account known to the service.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	FirstName    string    `json:"firstName,omitempty"`
	LastName     string    `json:"lastName,omitempty"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Session identifies an authenticated user for the duration of a token.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// SamplePhoto is the trimmed photo projection embedded in search results.
type SamplePhoto struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	ImageURL  string `json:"imageUrl"`
	DateTaken string `json:"dateTaken"`
}

// SearchResult is the read-only projection returned by user search.
// Always freshly fetched per query, never cached.
type SearchResult struct {
	UserID           string        `json:"userId"`
	Email            string        `json:"email"`
	FirstName        string        `json:"firstName,omitempty"`
	LastName         string        `json:"lastName,omitempty"`
	PublicPhotoCount int           `json:"publicPhotoCount"`
	SamplePhotos     []SamplePhoto `json:"samplePhotos"`
}
