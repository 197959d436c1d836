package gateway

import "time"

// GORM models used by the Postgres-backed gateway.
type PhotoModel struct {
	ID        string `gorm:"primaryKey"`
	OwnerID   string `gorm:"not null;index"`
	Title     string `gorm:"not null"`
	Story     string `gorm:"type:text;not null"`
	DateTaken string
	ImageURL  string    `gorm:"not null"`
	IsPublic  bool      `gorm:"not null;default:false"`
	BatchID   string    `gorm:"index"`
	CreatedAt time.Time `gorm:"not null;index"`
	UpdatedAt time.Time
}

// TagModel names are unique per owner scope; OwnerID "" is the shared
// scope and takes part in the same uniqueness constraint.
type TagModel struct {
	ID        string `gorm:"primaryKey"`
	Name      string `gorm:"not null;uniqueIndex:idx_tags_scope_name"`
	OwnerID   string `gorm:"uniqueIndex:idx_tags_scope_name"`
	CreatedAt time.Time
}

type PhotoTagModel struct {
	PhotoID string `gorm:"primaryKey;index"`
	TagID   string `gorm:"primaryKey"`
}

type UserModel struct {
	ID           string `gorm:"primaryKey"`
	Email        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	FirstName    string
	LastName     string
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time
}
