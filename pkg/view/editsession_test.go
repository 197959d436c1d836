package view

import (
	"reflect"
	"testing"

	"memorylane/pkg/domain"
)

func photoFixture() domain.Photo {
	return domain.Photo{
		ID:        "p1",
		Title:     "Beach day",
		Story:     "First swim of the year",
		DateTaken: "Summer 2023",
		Tags:      []string{"Beach", "Family"},
	}
}

func TestEditSessionCommitNormalizesTags(t *testing.T) {
	es := NewEditSession(photoFixture())
	es.Draft.Title = "Beach week"
	es.Draft.Tags = []string{" Beach", "Beach", "Travel "}

	draft := es.Commit()
	if draft.Title != "Beach week" {
		t.Fatalf("unexpected title: %q", draft.Title)
	}
	if !reflect.DeepEqual(draft.Tags, []string{"Beach", "Travel"}) {
		t.Fatalf("tags not normalized on commit: %v", draft.Tags)
	}
}

func TestEditSessionDiscardRestoresOriginal(t *testing.T) {
	es := NewEditSession(photoFixture())
	es.Draft.Title = "Something else"
	es.Draft.Tags = append(es.Draft.Tags, "Extra")

	es.Discard()
	if es.Draft.Title != "Beach day" {
		t.Fatalf("discard must restore title: %q", es.Draft.Title)
	}
	if !reflect.DeepEqual(es.Draft.Tags, []string{"Beach", "Family"}) {
		t.Fatalf("discard must restore tags: %v", es.Draft.Tags)
	}
	if es.Dirty() {
		t.Fatalf("discarded session must not be dirty")
	}
}

func TestEditSessionDirtyTracking(t *testing.T) {
	es := NewEditSession(photoFixture())
	if es.Dirty() {
		t.Fatalf("fresh session must not be dirty")
	}
	es.Draft.IsPublic = true
	if !es.Dirty() {
		t.Fatalf("visibility change must mark dirty")
	}
	es.Discard()

	// Reordering duplicates that normalize away is not a change.
	es.Draft.Tags = []string{"Beach", "Family", "Beach"}
	if es.Dirty() {
		t.Fatalf("normalized-equal tags must not mark dirty")
	}
}

func TestEditSessionDraftIsIsolatedFromOriginal(t *testing.T) {
	photo := photoFixture()
	es := NewEditSession(photo)
	es.Draft.Tags[0] = "Changed"
	if photo.Tags[0] != "Beach" {
		t.Fatalf("draft mutation leaked into the original photo")
	}
}
