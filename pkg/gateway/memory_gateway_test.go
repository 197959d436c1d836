package gateway

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"memorylane/pkg/domain"
)

func TestCreateTagDuplicateScopedByOwner(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()

	if _, err := gw.CreateTag(ctx, "Vacation", "u1"); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := gw.CreateTag(ctx, "Vacation", "u1"); !errors.Is(err, ErrDuplicateTag) {
		t.Fatalf("expected ErrDuplicateTag, got %v", err)
	}
	// Same name in another owner's scope is a different tag.
	if _, err := gw.CreateTag(ctx, "Vacation", "u2"); err != nil {
		t.Fatalf("cross-scope create: %v", err)
	}
	if gw.TagCount() != 2 {
		t.Fatalf("expected 2 rows, got %d", gw.TagCount())
	}
}

func TestUpdatePhotoScopedToOwner(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	row, err := gw.InsertPhoto(ctx, PhotoRow{OwnerID: "u1", Title: "Mine"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	newTitle := "Stolen"
	err = gw.UpdatePhoto(ctx, row.ID, "u2", PhotoUpdate{Title: &newTitle})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign update must be not-found, got %v", err)
	}
	if err := gw.UpdatePhoto(ctx, row.ID, "u1", PhotoUpdate{Title: &newTitle}); err != nil {
		t.Fatalf("own update: %v", err)
	}
	rows, _ := gw.ListPhotos(ctx, "u1", false)
	if rows[0].Title != "Stolen" {
		t.Fatalf("title not applied: %q", rows[0].Title)
	}
}

func TestDeletePhotoScopedToOwner(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	row, err := gw.InsertPhoto(ctx, PhotoRow{OwnerID: "u1", Title: "Mine"})
	if err != nil {
		t.Fatalf("insert: %v", err)
	}

	if err := gw.DeletePhoto(ctx, row.ID, "u2"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("foreign delete must be not-found, got %v", err)
	}
	if err := gw.DeletePhoto(ctx, row.ID, "u1"); err != nil {
		t.Fatalf("own delete: %v", err)
	}
	if err := gw.DeletePhoto(ctx, row.ID, "u1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second delete must be not-found, got %v", err)
	}
}

func TestListPhotosNewestFirst(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	base := time.Date(2024, 7, 1, 12, 0, 0, 0, time.UTC)
	for i, title := range []string{"oldest", "middle", "newest"} {
		_, err := gw.InsertPhoto(ctx, PhotoRow{
			OwnerID: "u1", Title: title, CreatedAt: base.Add(time.Duration(i) * time.Hour),
		})
		if err != nil {
			t.Fatalf("insert %s: %v", title, err)
		}
	}

	rows, err := gw.ListPhotos(ctx, "u1", false)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	got := make([]string, len(rows))
	for i, r := range rows {
		got[i] = r.Title
	}
	if strings.Join(got, ",") != "newest,middle,oldest" {
		t.Fatalf("wrong order: %v", got)
	}
}

func TestListPhotosPublicOnly(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	if _, err := gw.InsertPhoto(ctx, PhotoRow{OwnerID: "u1", Title: "open", IsPublic: true}); err != nil {
		t.Fatalf("insert: %v", err)
	}
	if _, err := gw.InsertPhoto(ctx, PhotoRow{OwnerID: "u1", Title: "hidden"}); err != nil {
		t.Fatalf("insert: %v", err)
	}

	rows, err := gw.ListPhotos(ctx, "u1", true)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 1 || rows[0].Title != "open" {
		t.Fatalf("public-only filter failed: %v", rows)
	}
}

func TestSearchUsersSkipsUsersWithoutPublicPhotos(t *testing.T) {
	ctx := context.Background()
	gw := NewMemoryGateway()
	seed := func(id, email string, public int) {
		t.Helper()
		if err := gw.SaveUser(ctx, domain.User{ID: id, Email: email}); err != nil {
			t.Fatalf("save user: %v", err)
		}
		for i := 0; i < public; i++ {
			if _, err := gw.InsertPhoto(ctx, PhotoRow{OwnerID: id, Title: "p", IsPublic: true}); err != nil {
				t.Fatalf("insert: %v", err)
			}
		}
	}
	seed("u1", "alice@example.com", 4)
	seed("u2", "alan@example.com", 0)

	results, err := gw.SearchUsers(ctx, "al")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(results) != 1 || results[0].Email != "alice@example.com" {
		t.Fatalf("expected only alice, got %+v", results)
	}
	if results[0].PublicPhotoCount != 4 || len(results[0].SamplePhotos) != 3 {
		t.Fatalf("expected count 4 with 3 samples, got %+v", results[0])
	}
}
