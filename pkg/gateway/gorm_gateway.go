package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"memorylane/pkg/domain"
	"memorylane/pkg/storage"
)

const samplePhotoLimit = 3

// GormGateway implements Gateway with GORM + Postgres for rows and an
// object store for photo binaries.
type GormGateway struct {
	db      *gorm.DB
	objects storage.ObjectStore
}

// NewGormGateway opens the DB, runs auto-migrations, and wires the
// object store used for UploadFile/DeleteFile.
func NewGormGateway(dsn string, objects storage.ObjectStore) (*GormGateway, error) {
	gormLog := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         gormLog,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&UserModel{}, &PhotoModel{}, &TagModel{}, &PhotoTagModel{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormGateway{db: db, objects: objects}, nil
}

// ListPhotos returns the owner's rows, newest first. Tags are not
// embedded here; the join-table associations are fetched separately.
func (g *GormGateway) ListPhotos(ctx context.Context, ownerID string, publicOnly bool) ([]PhotoRow, error) {
	q := g.db.WithContext(ctx).Where("owner_id = ?", ownerID)
	if publicOnly {
		q = q.Where("is_public = ?", true)
	}
	var models []PhotoModel
	if err := q.Order("created_at DESC").Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list photos: %w", err)
	}
	rows := make([]PhotoRow, 0, len(models))
	for _, m := range models {
		rows = append(rows, rowFromModel(m))
	}
	return rows, nil
}

// SearchPhotosByTag returns the owner's rows associated with the exact
// tag name, newest first.
func (g *GormGateway) SearchPhotosByTag(ctx context.Context, ownerID, tagName string) ([]PhotoRow, error) {
	var models []PhotoModel
	err := g.db.WithContext(ctx).
		Joins("JOIN photo_tag_models pt ON pt.photo_id = photo_models.id").
		Joins("JOIN tag_models t ON t.id = pt.tag_id").
		Where("photo_models.owner_id = ?", ownerID).
		Where("t.name = ?", tagName).
		Where("t.owner_id = ? OR t.owner_id = ''", ownerID).
		Order("photo_models.created_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("search photos by tag: %w", err)
	}
	rows := make([]PhotoRow, 0, len(models))
	for _, m := range models {
		rows = append(rows, rowFromModel(m))
	}
	return rows, nil
}

// InsertPhoto stores a new row and returns it with timestamps set.
func (g *GormGateway) InsertPhoto(ctx context.Context, row PhotoRow) (PhotoRow, error) {
	m := PhotoModel{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		Story:     row.Story,
		DateTaken: row.DateTaken,
		ImageURL:  row.ImageURL,
		IsPublic:  row.IsPublic,
		BatchID:   row.BatchID,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.CreatedAt,
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
		m.UpdatedAt = m.CreatedAt
	}
	if err := g.db.WithContext(ctx).Create(&m).Error; err != nil {
		return PhotoRow{}, fmt.Errorf("insert photo: %w", err)
	}
	return rowFromModel(m), nil
}

// UpdatePhoto applies the given fields scoped by id and owner. A
// mismatch on either is ErrNotFound, not someone else's update.
func (g *GormGateway) UpdatePhoto(ctx context.Context, id, ownerID string, fields PhotoUpdate) error {
	updates := map[string]any{"updated_at": time.Now().UTC()}
	if fields.Title != nil {
		updates["title"] = *fields.Title
	}
	if fields.Story != nil {
		updates["story"] = *fields.Story
	}
	if fields.DateTaken != nil {
		updates["date_taken"] = *fields.DateTaken
	}
	if fields.IsPublic != nil {
		updates["is_public"] = *fields.IsPublic
	}
	res := g.db.WithContext(ctx).Model(&PhotoModel{}).
		Where("id = ? AND owner_id = ?", id, ownerID).
		Updates(updates)
	if res.Error != nil {
		return fmt.Errorf("update photo: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// DeletePhoto removes the row and its tag associations, scoped by owner.
func (g *GormGateway) DeletePhoto(ctx context.Context, id, ownerID string) error {
	return g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND owner_id = ?", id, ownerID).Delete(&PhotoModel{})
		if res.Error != nil {
			return fmt.Errorf("delete photo: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("photo_id = ?", id).Delete(&PhotoTagModel{}).Error; err != nil {
			return fmt.Errorf("delete photo associations: %w", err)
		}
		return nil
	})
}

// ListTags returns tags visible in the owner's scope, shared included.
func (g *GormGateway) ListTags(ctx context.Context, ownerID string) ([]TagRow, error) {
	var models []TagModel
	err := g.db.WithContext(ctx).
		Where("owner_id = ? OR owner_id = ''", ownerID).
		Order("name").
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	rows := make([]TagRow, 0, len(models))
	for _, m := range models {
		rows = append(rows, TagRow{ID: m.ID, Name: m.Name, OwnerID: m.OwnerID})
	}
	return rows, nil
}

// CreateTag inserts a tag; a name collision in scope is ErrDuplicateTag.
func (g *GormGateway) CreateTag(ctx context.Context, name, ownerID string) (TagRow, error) {
	m := TagModel{ID: newID(), Name: name, OwnerID: ownerID, CreatedAt: time.Now().UTC()}
	if err := g.db.WithContext(ctx).Create(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return TagRow{}, ErrDuplicateTag
		}
		return TagRow{}, fmt.Errorf("create tag: %w", err)
	}
	return TagRow{ID: m.ID, Name: m.Name, OwnerID: m.OwnerID}, nil
}

// DeleteTagAssociations removes every association for the photo.
func (g *GormGateway) DeleteTagAssociations(ctx context.Context, photoID string) error {
	if err := g.db.WithContext(ctx).Where("photo_id = ?", photoID).Delete(&PhotoTagModel{}).Error; err != nil {
		return fmt.Errorf("delete tag associations: %w", err)
	}
	return nil
}

// InsertTagAssociations links the photo to each tag ID.
func (g *GormGateway) InsertTagAssociations(ctx context.Context, photoID string, tagIDs []string) error {
	if len(tagIDs) == 0 {
		return nil
	}
	models := make([]PhotoTagModel, 0, len(tagIDs))
	for _, tagID := range tagIDs {
		models = append(models, PhotoTagModel{PhotoID: photoID, TagID: tagID})
	}
	if err := g.db.WithContext(ctx).Create(&models).Error; err != nil {
		return fmt.Errorf("insert tag associations: %w", err)
	}
	return nil
}

// ListTagAssociations returns association rows for the given photos.
func (g *GormGateway) ListTagAssociations(ctx context.Context, photoIDs []string) ([]AssocRow, error) {
	if len(photoIDs) == 0 {
		return nil, nil
	}
	var models []PhotoTagModel
	if err := g.db.WithContext(ctx).Where("photo_id IN ?", photoIDs).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list tag associations: %w", err)
	}
	rows := make([]AssocRow, 0, len(models))
	for _, m := range models {
		rows = append(rows, AssocRow{PhotoID: m.PhotoID, TagID: m.TagID})
	}
	return rows, nil
}

// UploadFile stores the binary and returns its public URL.
func (g *GormGateway) UploadFile(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	return g.objects.PutPublic(ctx, name, r, size, contentType)
}

// DeleteFile removes the stored binary.
func (g *GormGateway) DeleteFile(ctx context.Context, name string) error {
	return g.objects.Delete(ctx, name)
}

// SearchUsers matches accounts by email or name fragment and decorates
// each with its public photo count and up to three sample photos. Only
// users with at least one public photo are returned.
func (g *GormGateway) SearchUsers(ctx context.Context, query string) ([]domain.SearchResult, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	var users []UserModel
	err := g.db.WithContext(ctx).
		Where("email ILIKE ? OR first_name ILIKE ? OR last_name ILIKE ?", pattern, pattern, pattern).
		Limit(20).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	results := make([]domain.SearchResult, 0, len(users))
	for _, u := range users {
		var count int64
		if err := g.db.WithContext(ctx).Model(&PhotoModel{}).
			Where("owner_id = ? AND is_public = ?", u.ID, true).
			Count(&count).Error; err != nil {
			return nil, fmt.Errorf("count public photos: %w", err)
		}
		if count == 0 {
			continue
		}
		var samples []PhotoModel
		if err := g.db.WithContext(ctx).
			Where("owner_id = ? AND is_public = ?", u.ID, true).
			Order("created_at DESC").
			Limit(samplePhotoLimit).
			Find(&samples).Error; err != nil {
			return nil, fmt.Errorf("sample public photos: %w", err)
		}
		res := domain.SearchResult{
			UserID:           u.ID,
			Email:            u.Email,
			FirstName:        u.FirstName,
			LastName:         u.LastName,
			PublicPhotoCount: int(count),
		}
		for _, s := range samples {
			res.SamplePhotos = append(res.SamplePhotos, domain.SamplePhoto{
				ID:        s.ID,
				Title:     s.Title,
				ImageURL:  s.ImageURL,
				DateTaken: s.DateTaken,
			})
		}
		results = append(results, res)
	}
	return results, nil
}

// SaveUser stores or replaces an account record.
func (g *GormGateway) SaveUser(ctx context.Context, u domain.User) error {
	m := UserModel{
		ID:           u.ID,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		FirstName:    u.FirstName,
		LastName:     u.LastName,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    time.Now().UTC(),
	}
	if err := g.db.WithContext(ctx).Save(&m).Error; err != nil {
		return fmt.Errorf("save user: %w", err)
	}
	return nil
}

// GetUserByEmail resolves an account by email.
func (g *GormGateway) GetUserByEmail(ctx context.Context, email string) (domain.User, bool, error) {
	var m UserModel
	err := g.db.WithContext(ctx).Where("email = ?", email).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by email: %w", err)
	}
	return userFromModel(m), true, nil
}

// GetUserByID resolves an account by ID.
func (g *GormGateway) GetUserByID(ctx context.Context, id string) (domain.User, bool, error) {
	var m UserModel
	err := g.db.WithContext(ctx).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return domain.User{}, false, nil
	}
	if err != nil {
		return domain.User{}, false, fmt.Errorf("get user by id: %w", err)
	}
	return userFromModel(m), true, nil
}

func rowFromModel(m PhotoModel) PhotoRow {
	return PhotoRow{
		ID:        m.ID,
		OwnerID:   m.OwnerID,
		Title:     m.Title,
		Story:     m.Story,
		DateTaken: m.DateTaken,
		ImageURL:  m.ImageURL,
		IsPublic:  m.IsPublic,
		BatchID:   m.BatchID,
		CreatedAt: m.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		Email:        m.Email,
		PasswordHash: m.PasswordHash,
		FirstName:    m.FirstName,
		LastName:     m.LastName,
		CreatedAt:    m.CreatedAt,
	}
}
