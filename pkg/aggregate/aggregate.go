// Package aggregate reconciles raw photo rows, tag associations, and
// upload-batch groupings into the display-ready list the gallery
// consumes, and derives the facet list available for filtering.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"memorylane/pkg/domain"
	"memorylane/pkg/gateway"
)

// ReservedTagPrefix marks internal, namespaced tags. They travel with
// photos like any other tag but never reach the filter UI.
const ReservedTagPrefix = "sys:"

// Engine joins photo rows with their tags and batch groups. It owns no
// cache; every call re-derives the list from whatever the gateway
// returns, so the output member counts are always live.
type Engine struct {
	gw gateway.Gateway
}

func NewEngine(gw gateway.Gateway) *Engine {
	return &Engine{gw: gw}
}

// Photos returns the owner's aggregated, display-ready list: every
// photo normalized, batch groups of two or more collapsed into a single
// gallery tile. Order follows the gateway (creation time descending);
// a tile sits where its representative member would.
func (e *Engine) Photos(ctx context.Context, ownerID string, publicOnly bool) ([]domain.Photo, error) {
	rows, err := e.gw.ListPhotos(ctx, ownerID, publicOnly)
	if err != nil {
		return nil, fmt.Errorf("fetch photos: %w", err)
	}
	return e.assemble(ctx, rows)
}

// PhotosByTag returns the owner's aggregated list restricted to rows
// carrying the tag, delegating the match to the gateway's tag search.
func (e *Engine) PhotosByTag(ctx context.Context, ownerID, tagName string) ([]domain.Photo, error) {
	rows, err := e.gw.SearchPhotosByTag(ctx, ownerID, tagName)
	if err != nil {
		return nil, fmt.Errorf("search photos by tag: %w", err)
	}
	return e.assemble(ctx, rows)
}

func (e *Engine) assemble(ctx context.Context, rows []gateway.PhotoRow) ([]domain.Photo, error) {
	tagsByPhoto, err := e.resolveJoinTags(ctx, rows)
	if err != nil {
		return nil, err
	}
	photos := make([]domain.Photo, 0, len(rows))
	for _, row := range rows {
		photos = append(photos, Normalize(row, tagsByPhoto[row.ID]))
	}
	return Group(photos), nil
}

// resolveJoinTags fetches association rows for photos that carry
// neither the embedded array nor the flattened CSV shape. One batched
// call regardless of photo count.
func (e *Engine) resolveJoinTags(ctx context.Context, rows []gateway.PhotoRow) (map[string][]string, error) {
	var need []string
	for _, row := range rows {
		if len(row.Tags) == 0 && row.TagsCSV == "" {
			need = append(need, row.ID)
		}
	}
	if len(need) == 0 {
		return nil, nil
	}
	assocs, err := e.gw.ListTagAssociations(ctx, need)
	if err != nil {
		return nil, fmt.Errorf("fetch tag associations: %w", err)
	}
	if len(assocs) == 0 {
		return nil, nil
	}
	// Tag rows come from the scope of the first photo's owner; all rows
	// in one aggregation belong to a single owner or public profile.
	tags, err := e.gw.ListTags(ctx, rows[0].OwnerID)
	if err != nil {
		return nil, fmt.Errorf("fetch tags: %w", err)
	}
	nameByID := make(map[string]string, len(tags))
	for _, t := range tags {
		nameByID[t.ID] = t.Name
	}
	byPhoto := make(map[string][]string)
	for _, a := range assocs {
		if name, ok := nameByID[a.TagID]; ok {
			byPhoto[a.PhotoID] = append(byPhoto[a.PhotoID], name)
		}
	}
	return byPhoto, nil
}

// Normalize adapts one raw row into the canonical Photo shape: the
// surviving image-URL column wins, tags from whichever representation
// is present are trimmed and deduplicated with case preserved, and an
// absent batch ID collapses to "".
func Normalize(row gateway.PhotoRow, joinTags []string) domain.Photo {
	imageURL := row.ImageURL
	if imageURL == "" {
		imageURL = row.LegacyImageURL
	}
	var raw []string
	switch {
	case len(row.Tags) > 0:
		raw = row.Tags
	case row.TagsCSV != "":
		raw = strings.Split(row.TagsCSV, ",")
	default:
		raw = joinTags
	}
	return domain.Photo{
		ID:        row.ID,
		OwnerID:   row.OwnerID,
		Title:     row.Title,
		Story:     row.Story,
		DateTaken: row.DateTaken,
		ImageURL:  imageURL,
		IsPublic:  row.IsPublic,
		BatchID:   row.BatchID,
		Tags:      NormalizeTags(raw),
		CreatedAt: row.CreatedAt,
	}
}

// NormalizeTags trims every entry, drops empties, and collapses
// duplicates to the first occurrence. Case is preserved.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		if _, dup := seen[t]; dup {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// Group partitions normalized photos into standalone entries and batch
// groups. A group of two or more photos sharing a batch ID is replaced
// by one gallery tile at the group's first position in list order. The
// tile's representative is the earliest-created member (files in a
// batch upload are processed in submission order, so this selection is
// deterministic), and MemberCount is the live size of the group at this
// aggregation, never a cached value. Single-member groups surface as
// plain photos.
func Group(photos []domain.Photo) []domain.Photo {
	members := make(map[string][]domain.Photo)
	for _, p := range photos {
		if p.BatchID != "" {
			members[p.BatchID] = append(members[p.BatchID], p)
		}
	}
	out := make([]domain.Photo, 0, len(photos))
	emitted := make(map[string]bool)
	for _, p := range photos {
		if p.BatchID == "" || len(members[p.BatchID]) < 2 {
			out = append(out, p)
			continue
		}
		if emitted[p.BatchID] {
			continue
		}
		emitted[p.BatchID] = true
		group := members[p.BatchID]
		tile := representative(group)
		tile.GalleryTile = true
		tile.MemberCount = len(group)
		tile.Members = group
		out = append(out, tile)
	}
	return out
}

func representative(group []domain.Photo) domain.Photo {
	rep := group[0]
	for _, p := range group[1:] {
		if p.CreatedAt.Before(rep.CreatedAt) {
			rep = p
		}
	}
	return rep
}

// Facets derives the sorted, deduplicated facet names across all photos
// including gallery-tile members. Reserved-prefix tags are excluded:
// namespaced technical tags never reach the filter UI.
func Facets(photos []domain.Photo) []string {
	seen := make(map[string]struct{})
	var collect func(ps []domain.Photo)
	collect = func(ps []domain.Photo) {
		for _, p := range ps {
			for _, t := range p.Tags {
				if strings.HasPrefix(t, ReservedTagPrefix) {
					continue
				}
				seen[t] = struct{}{}
			}
			if len(p.Members) > 0 {
				collect(p.Members)
			}
		}
	}
	collect(photos)
	out := make([]string, 0, len(seen))
	for t := range seen {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
