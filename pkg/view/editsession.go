package view

import (
	"memorylane/pkg/aggregate"
	"memorylane/pkg/domain"
)

// Draft is the editable subset of a photo's metadata.
type Draft struct {
	Title     string   `json:"title"`
	Story     string   `json:"story"`
	DateTaken string   `json:"dateTaken"`
	IsPublic  bool     `json:"isPublic"`
	Tags      []string `json:"tags"`
}

// EditSession is a value-type draft over one photo, shared by every
// card and tile variant so save/cancel behavior is defined once. The
// draft is mutated freely; nothing touches the original until Commit.
type EditSession struct {
	original domain.Photo
	Draft    Draft
}

// NewEditSession opens a draft seeded from the photo.
func NewEditSession(p domain.Photo) *EditSession {
	return &EditSession{
		original: p,
		Draft:    draftFrom(p),
	}
}

// Commit returns the draft with tags normalized, ready to hand to the
// mutation coordinator. The session stays open on the committed value.
func (e *EditSession) Commit() Draft {
	e.Draft.Tags = aggregate.NormalizeTags(e.Draft.Tags)
	e.original.Title = e.Draft.Title
	e.original.Story = e.Draft.Story
	e.original.DateTaken = e.Draft.DateTaken
	e.original.IsPublic = e.Draft.IsPublic
	e.original.Tags = e.Draft.Tags
	return e.Draft
}

// Discard throws the draft away and reseeds it from the original.
func (e *EditSession) Discard() {
	e.Draft = draftFrom(e.original)
}

// Dirty reports whether the draft differs from the original.
func (e *EditSession) Dirty() bool {
	if e.Draft.Title != e.original.Title ||
		e.Draft.Story != e.original.Story ||
		e.Draft.DateTaken != e.original.DateTaken ||
		e.Draft.IsPublic != e.original.IsPublic {
		return true
	}
	draftTags := aggregate.NormalizeTags(e.Draft.Tags)
	if len(draftTags) != len(e.original.Tags) {
		return true
	}
	for i, t := range draftTags {
		if e.original.Tags[i] != t {
			return true
		}
	}
	return false
}

func draftFrom(p domain.Photo) Draft {
	tags := make([]string, len(p.Tags))
	copy(tags, p.Tags)
	return Draft{
		Title:     p.Title,
		Story:     p.Story,
		DateTaken: p.DateTaken,
		IsPublic:  p.IsPublic,
		Tags:      tags,
	}
}
