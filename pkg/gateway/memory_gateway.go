package gateway

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"memorylane/pkg/domain"
)

// MemoryGateway keeps rows, tags, and objects in-process. It backs
// local development and tests; the failure hooks let tests force
// specific steps to fail without touching a network.
type MemoryGateway struct {
	mu      sync.RWMutex
	photos  map[string]PhotoRow
	tags    map[string]TagRow
	assocs  []AssocRow
	objects map[string][]byte
	users   map[string]domain.User
	email   map[string]string // email -> user ID
	seq     int

	// Failure hooks for tests. Keyed by object key or file name; a
	// matching call returns the injected error instead of proceeding.
	FailUpload     map[string]error
	FailDeleteFile map[string]error
	FailInsert     map[string]error // keyed by photo title
	FailList       error

	// PublicURLBase prefixes issued object URLs.
	PublicURLBase string
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{
		photos:        make(map[string]PhotoRow),
		tags:          make(map[string]TagRow),
		objects:       make(map[string][]byte),
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		PublicURLBase: "https://objects.local/photos",
	}
}

func (m *MemoryGateway) ListPhotos(_ context.Context, ownerID string, publicOnly bool) ([]PhotoRow, error) {
	if m.FailList != nil {
		return nil, m.FailList
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []PhotoRow
	for _, row := range m.photos {
		if row.OwnerID != ownerID {
			continue
		}
		if publicOnly && !row.IsPublic {
			continue
		}
		rows = append(rows, row)
	}
	sortNewestFirst(rows)
	return rows, nil
}

func (m *MemoryGateway) SearchPhotosByTag(ctx context.Context, ownerID, tagName string) ([]PhotoRow, error) {
	m.mu.RLock()
	var tagID string
	for _, t := range m.tags {
		if t.Name == tagName && (t.OwnerID == ownerID || t.OwnerID == "") {
			tagID = t.ID
			break
		}
	}
	matched := make(map[string]bool)
	for _, a := range m.assocs {
		if a.TagID == tagID {
			matched[a.PhotoID] = true
		}
	}
	var rows []PhotoRow
	for id, row := range m.photos {
		if row.OwnerID == ownerID && matched[id] {
			rows = append(rows, row)
		}
	}
	m.mu.RUnlock()
	sortNewestFirst(rows)
	return rows, nil
}

func (m *MemoryGateway) InsertPhoto(_ context.Context, row PhotoRow) (PhotoRow, error) {
	if err := m.FailInsert[row.Title]; err != nil {
		return PhotoRow{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	if row.ID == "" {
		row.ID = fmt.Sprintf("photo-%d", m.seq)
	}
	if row.CreatedAt.IsZero() {
		// Distinct timestamps keep newest-first ordering stable even
		// when inserts land within one clock tick.
		row.CreatedAt = time.Now().UTC().Add(time.Duration(m.seq) * time.Microsecond)
	}
	m.photos[row.ID] = row
	return row, nil
}

func (m *MemoryGateway) UpdatePhoto(_ context.Context, id, ownerID string, fields PhotoUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.photos[id]
	if !ok || row.OwnerID != ownerID {
		return ErrNotFound
	}
	if fields.Title != nil {
		row.Title = *fields.Title
	}
	if fields.Story != nil {
		row.Story = *fields.Story
	}
	if fields.DateTaken != nil {
		row.DateTaken = *fields.DateTaken
	}
	if fields.IsPublic != nil {
		row.IsPublic = *fields.IsPublic
	}
	m.photos[id] = row
	return nil
}

func (m *MemoryGateway) DeletePhoto(_ context.Context, id, ownerID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.photos[id]
	if !ok || row.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(m.photos, id)
	kept := m.assocs[:0]
	for _, a := range m.assocs {
		if a.PhotoID != id {
			kept = append(kept, a)
		}
	}
	m.assocs = kept
	return nil
}

func (m *MemoryGateway) ListTags(_ context.Context, ownerID string) ([]TagRow, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []TagRow
	for _, t := range m.tags {
		if t.OwnerID == ownerID || t.OwnerID == "" {
			rows = append(rows, t)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })
	return rows, nil
}

func (m *MemoryGateway) CreateTag(_ context.Context, name, ownerID string) (TagRow, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tags {
		if t.Name == name && t.OwnerID == ownerID {
			return TagRow{}, ErrDuplicateTag
		}
	}
	m.seq++
	tag := TagRow{ID: fmt.Sprintf("tag-%d", m.seq), Name: name, OwnerID: ownerID}
	m.tags[tag.ID] = tag
	return tag, nil
}

func (m *MemoryGateway) DeleteTagAssociations(_ context.Context, photoID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.assocs[:0]
	for _, a := range m.assocs {
		if a.PhotoID != photoID {
			kept = append(kept, a)
		}
	}
	m.assocs = kept
	return nil
}

func (m *MemoryGateway) InsertTagAssociations(_ context.Context, photoID string, tagIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, tagID := range tagIDs {
		m.assocs = append(m.assocs, AssocRow{PhotoID: photoID, TagID: tagID})
	}
	return nil
}

func (m *MemoryGateway) ListTagAssociations(_ context.Context, photoIDs []string) ([]AssocRow, error) {
	want := make(map[string]bool, len(photoIDs))
	for _, id := range photoIDs {
		want[id] = true
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var rows []AssocRow
	for _, a := range m.assocs {
		if want[a.PhotoID] {
			rows = append(rows, a)
		}
	}
	return rows, nil
}

func (m *MemoryGateway) UploadFile(_ context.Context, name string, r io.Reader, _ int64, _ string) (string, error) {
	for pattern, err := range m.FailUpload {
		if strings.Contains(name, pattern) {
			return "", err
		}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.objects[name] = data
	return m.PublicURLBase + "/" + name, nil
}

func (m *MemoryGateway) DeleteFile(_ context.Context, name string) error {
	for pattern, err := range m.FailDeleteFile {
		if strings.Contains(name, pattern) || pattern == "*" {
			return err
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.objects, name)
	return nil
}

func (m *MemoryGateway) SearchUsers(_ context.Context, query string) ([]domain.SearchResult, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	m.mu.RLock()
	defer m.mu.RUnlock()
	var results []domain.SearchResult
	for _, u := range m.users {
		if !strings.Contains(strings.ToLower(u.Email), q) &&
			!strings.Contains(strings.ToLower(u.FirstName), q) &&
			!strings.Contains(strings.ToLower(u.LastName), q) {
			continue
		}
		var public []PhotoRow
		for _, row := range m.photos {
			if row.OwnerID == u.ID && row.IsPublic {
				public = append(public, row)
			}
		}
		if len(public) == 0 {
			continue
		}
		sortNewestFirst(public)
		res := domain.SearchResult{
			UserID:           u.ID,
			Email:            u.Email,
			FirstName:        u.FirstName,
			LastName:         u.LastName,
			PublicPhotoCount: len(public),
		}
		for i, row := range public {
			if i == samplePhotoLimit {
				break
			}
			res.SamplePhotos = append(res.SamplePhotos, domain.SamplePhoto{
				ID:        row.ID,
				Title:     row.Title,
				ImageURL:  row.ImageURL,
				DateTaken: row.DateTaken,
			})
		}
		results = append(results, res)
	}
	sort.Slice(results, func(i, j int) bool { return results[i].Email < results[j].Email })
	return results, nil
}

func (m *MemoryGateway) SaveUser(_ context.Context, u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	return nil
}

func (m *MemoryGateway) GetUserByEmail(_ context.Context, email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	id, ok := m.email[email]
	if !ok {
		return domain.User{}, false, nil
	}
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryGateway) GetUserByID(_ context.Context, id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

// ObjectCount reports how many binaries the gateway holds, for tests
// asserting storage-leak behavior.
func (m *MemoryGateway) ObjectCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.objects)
}

// TagCount reports how many tag rows exist across all scopes.
func (m *MemoryGateway) TagCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.tags)
}

func sortNewestFirst(rows []PhotoRow) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].CreatedAt.After(rows[j].CreatedAt) })
}
