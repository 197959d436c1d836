// Package view holds the ephemeral per-session filter and view-mode
// state and the pure filtering derivation over aggregated photos.
package view

import (
	"sync"
	"time"

	"memorylane/pkg/domain"
	"memorylane/pkg/session"
)

// FacetAll is the sentinel facet selecting every photo.
const FacetAll = "all"

// Filter computes the photo set matching the facet. It is a pure
// function of its inputs: no I/O, no hidden state, so switching facets
// is an immediate re-derivation over already-aggregated data.
//
// A gallery tile matches when any member carries the facet, not just
// the representative; a batch must not disappear from a filtered view
// because its cover photo lacks the tag.
func Filter(photos []domain.Photo, facet string) []domain.Photo {
	if facet == "" || facet == FacetAll {
		return photos
	}
	out := make([]domain.Photo, 0, len(photos))
	for _, p := range photos {
		if matches(p, facet) {
			out = append(out, p)
		}
	}
	return out
}

func matches(p domain.Photo, facet string) bool {
	if p.HasTag(facet) {
		return true
	}
	for _, m := range p.Members {
		if m.HasTag(facet) {
			return true
		}
	}
	return false
}

// State is one session's filter selection and view mode. Ephemeral,
// never persisted; changing either field triggers no fetch.
type State struct {
	mu    sync.RWMutex
	facet string
	mode  domain.ViewMode
}

// Snapshot is an immutable copy of a State for responses.
type Snapshot struct {
	SelectedFacet string          `json:"selectedFacet"`
	Mode          domain.ViewMode `json:"viewMode"`
}

func NewState() *State {
	return &State{facet: FacetAll, mode: domain.ViewFlip}
}

// Select sets the active facet. Empty input falls back to the sentinel.
func (s *State) Select(facet string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if facet == "" {
		facet = FacetAll
	}
	s.facet = facet
}

// SetMode switches the rendering shape. The selected photo set is
// untouched.
func (s *State) SetMode(mode domain.ViewMode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if mode != domain.ViewFlip && mode != domain.ViewSlide {
		return
	}
	s.mode = mode
}

// Snapshot returns the current selection.
func (s *State) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Snapshot{SelectedFacet: s.facet, Mode: s.mode}
}

// Reset restores the defaults (all photos, flip view).
func (s *State) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.facet = FacetAll
	s.mode = domain.ViewFlip
}

const (
	registryMaxStates = 4096
	registryIdleTTL   = 24 * time.Hour
)

type registryEntry struct {
	state    *State
	lastSeen time.Time
}

// Registry keys view states by session token. Subscribed to the session
// broadcaster, it drops a session's state on sign-out so the next
// sign-in starts from defaults instead of a stale selection. Stateless
// token stores never report sign-out, so the registry is also bounded:
// past the size cap, states idle beyond the TTL are pruned, then the
// least recently seen.
type Registry struct {
	mu        sync.Mutex
	states    map[string]*registryEntry
	maxStates int
	idleTTL   time.Duration
	now       func() time.Time
}

func NewRegistry(bus *session.Broadcaster) *Registry {
	r := &Registry{
		states:    make(map[string]*registryEntry),
		maxStates: registryMaxStates,
		idleTTL:   registryIdleTTL,
		now:       time.Now,
	}
	if bus != nil {
		bus.Subscribe(func(ev session.Event) {
			if !ev.SignedIn {
				r.Drop(ev.Session.Token)
			}
		})
	}
	return r
}

// For returns the state for a session token, creating it on first use.
func (r *Registry) For(token string) *State {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	if e, ok := r.states[token]; ok {
		e.lastSeen = now
		return e.state
	}
	if len(r.states) >= r.maxStates {
		r.prune(now)
	}
	e := &registryEntry{state: NewState(), lastSeen: now}
	r.states[token] = e
	return e.state
}

// prune removes idle entries; if every entry is live it removes the
// least recently seen one. Caller holds the lock.
func (r *Registry) prune(now time.Time) {
	oldestToken := ""
	var oldestSeen time.Time
	for token, e := range r.states {
		if now.Sub(e.lastSeen) > r.idleTTL {
			delete(r.states, token)
			continue
		}
		if oldestToken == "" || e.lastSeen.Before(oldestSeen) {
			oldestToken, oldestSeen = token, e.lastSeen
		}
	}
	if len(r.states) >= r.maxStates && oldestToken != "" {
		delete(r.states, oldestToken)
	}
}

// Drop forgets a session's state.
func (r *Registry) Drop(token string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.states, token)
}
