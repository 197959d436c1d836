package app

import (
	"context"
	"errors"
	"sort"
	"strings"
	"testing"
	"time"

	"memorylane/pkg/gateway"
	"memorylane/pkg/mutate"
	"memorylane/pkg/session"
	"memorylane/pkg/view"
)

func newTestApp(t *testing.T) (*App, *gateway.MemoryGateway) {
	t.Helper()
	gw := gateway.NewMemoryGateway()
	a, err := New(Config{
		Gateway:    gw,
		Users:      gw,
		Sessions:   session.NewMemoryStore(),
		SessionTTL: time.Hour,
	})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	return a, gw
}

func oneFile(name, content string) []mutate.FileUpload {
	return []mutate.FileUpload{{Name: name, Body: strings.NewReader(content), Size: int64(len(content))}}
}

func TestSignUpSignInSignOut(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	sess, err := a.SignUp(ctx, "Ana@Example.com", "hunter22", "Ana", "Li")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if sess.Token == "" || sess.Email != "ana@example.com" {
		t.Fatalf("unexpected session: %+v", sess)
	}

	if _, err := a.SignUp(ctx, "ana@example.com", "other", "", ""); err == nil {
		t.Fatalf("duplicate email must be rejected")
	}
	if _, err := a.SignIn(ctx, "ana@example.com", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: %v", err)
	}

	again, err := a.SignIn(ctx, "ana@example.com", "hunter22")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if _, ok, _ := a.SessionFromToken(ctx, again.Token); !ok {
		t.Fatalf("token must resolve while signed in")
	}
	if err := a.SignOut(ctx, again); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if _, ok, _ := a.SessionFromToken(ctx, again.Token); ok {
		t.Fatalf("token must stop resolving after sign-out")
	}
}

// TestFullPhotoLifecycle walks sign up, add, fetch, toggle, delete end
// to end against the in-memory gateway.
func TestFullPhotoLifecycle(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	sess, err := a.SignUp(ctx, "ana@example.com", "hunter22", "Ana", "Li")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	res, err := a.AddPhotos(ctx, sess, mutate.PhotoDetails{
		Title: "Kyoto", Story: "temples at dawn", DateTaken: "April 2024",
		Tags: []string{"Vacation", "Japan"},
	}, oneFile("kyoto.jpg", "imgdata"))
	if err != nil {
		t.Fatalf("add photos: %v", err)
	}
	if len(res.Created) != 1 {
		t.Fatalf("expected 1 created, got %+v", res)
	}

	photos, facets, err := a.Photos(ctx, sess, view.FacetAll)
	if err != nil {
		t.Fatalf("photos: %v", err)
	}
	if len(photos) != 1 {
		t.Fatalf("expected 1 photo, got %d", len(photos))
	}
	p := photos[0]
	if p.ImageURL == "" {
		t.Fatalf("image URL must be set")
	}
	if p.IsPublic {
		t.Fatalf("photo must start private")
	}
	gotTags := append([]string(nil), p.Tags...)
	sort.Strings(gotTags)
	if len(gotTags) != 2 || gotTags[0] != "Japan" || gotTags[1] != "Vacation" {
		t.Fatalf("tags wrong: %v", p.Tags)
	}
	sort.Strings(facets)
	if len(facets) != 2 || facets[0] != "Japan" || facets[1] != "Vacation" {
		t.Fatalf("facets wrong: %v", facets)
	}

	// Facet filtering narrows without another aggregation shape.
	byJapan, _, err := a.Photos(ctx, sess, "Japan")
	if err != nil || len(byJapan) != 1 {
		t.Fatalf("facet filter: %v %v", byJapan, err)
	}
	byOther, _, err := a.Photos(ctx, sess, "Beach")
	if err != nil || len(byOther) != 0 {
		t.Fatalf("unmatched facet must yield empty: %v %v", byOther, err)
	}

	if err := a.ToggleVisibility(ctx, sess, p.ID, true); err != nil {
		t.Fatalf("toggle: %v", err)
	}
	photos, _, err = a.Photos(ctx, sess, view.FacetAll)
	if err != nil || !photos[0].IsPublic {
		t.Fatalf("visibility not reflected on re-fetch: %v %v", photos, err)
	}

	public, err := a.PublicPhotos(ctx, sess.UserID)
	if err != nil || len(public) != 1 {
		t.Fatalf("public list: %v %v", public, err)
	}

	if err := a.DeletePhoto(ctx, sess, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	photos, facets, err = a.Photos(ctx, sess, view.FacetAll)
	if err != nil {
		t.Fatalf("photos after delete: %v", err)
	}
	if len(photos) != 0 || len(facets) != 0 {
		t.Fatalf("list and facets must be empty after delete: %v %v", photos, facets)
	}
}

func TestUpdatePhotoFromDraft(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	sess, err := a.SignUp(ctx, "ana@example.com", "hunter22", "", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	res, err := a.AddPhotos(ctx, sess, mutate.PhotoDetails{
		Title: "Dinner", Story: "homemade", Tags: []string{"Family", "Food"},
	}, oneFile("dinner.jpg", "img"))
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	photoID := res.Created[0].ID

	err = a.UpdatePhoto(ctx, sess, photoID, view.Draft{
		Title: "Sunday dinner", Story: "homemade", Tags: []string{"Food", "Travel"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}

	photos, _, err := a.Photos(ctx, sess, view.FacetAll)
	if err != nil || len(photos) != 1 {
		t.Fatalf("photos: %v %v", photos, err)
	}
	if photos[0].Title != "Sunday dinner" {
		t.Fatalf("title not applied: %q", photos[0].Title)
	}
	got := append([]string(nil), photos[0].Tags...)
	sort.Strings(got)
	if len(got) != 2 || got[0] != "Food" || got[1] != "Travel" {
		t.Fatalf("tags not replaced: %v", photos[0].Tags)
	}
}

func TestDeletePhotoUnknownID(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	sess, err := a.SignUp(ctx, "ana@example.com", "hunter22", "", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if err := a.DeletePhoto(ctx, sess, "missing"); !errors.Is(err, gateway.ErrNotFound) {
		t.Fatalf("expected not-found, got %v", err)
	}
}

func TestSearchUsersMinQueryLength(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)

	if _, err := a.SearchUsers(ctx, " a "); !errors.Is(err, ErrQueryTooShort) {
		t.Fatalf("one rune after trim must be too short, got %v", err)
	}
	if _, err := a.SearchUsers(ctx, "an"); err != nil {
		t.Fatalf("two runes is enough: %v", err)
	}
}

func TestViewStateResetsOnSignOut(t *testing.T) {
	ctx := context.Background()
	a, _ := newTestApp(t)
	sess, err := a.SignUp(ctx, "ana@example.com", "hunter22", "", "")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}

	st := a.ViewState(sess.Token)
	st.Select("Vacation")
	if snap := a.ViewState(sess.Token).Snapshot(); snap.SelectedFacet != "Vacation" {
		t.Fatalf("selection not held: %+v", snap)
	}

	if err := a.SignOut(ctx, sess); err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if snap := a.ViewState(sess.Token).Snapshot(); snap.SelectedFacet != view.FacetAll {
		t.Fatalf("state must reset on sign-out: %+v", snap)
	}
}
