package session

import (
	"context"
	"errors"
	"sync"

	"memorylane/pkg/domain"
)

// ErrNotAuthenticated reports a mutation attempted without a valid
// session. Raised before any network call is made.
var ErrNotAuthenticated = errors.New("not authenticated")

// Store persists session tokens.
type Store interface {
	NewSession(ctx context.Context, userID string) (string, error)
	UserByToken(ctx context.Context, token string) (string, bool, error)
	DeleteSession(ctx context.Context, token string) error
}

// Event is a sign-in/sign-out transition published to subscribers.
type Event struct {
	SignedIn bool
	Session  domain.Session
}

// Broadcaster fans session transitions out to subscribers. Sign-out is
// an explicit broadcast, not a hidden side effect of a library
// callback; listeners (view-state registries and the like) reset off it
// deterministically.
type Broadcaster struct {
	mu   sync.RWMutex
	subs []func(Event)
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{}
}

// Subscribe registers a callback invoked on every session transition.
func (b *Broadcaster) Subscribe(fn func(Event)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs = append(b.subs, fn)
}

// Publish delivers the event to all subscribers, in order, on the
// caller's goroutine.
func (b *Broadcaster) Publish(ev Event) {
	b.mu.RLock()
	subs := make([]func(Event), len(b.subs))
	copy(subs, b.subs)
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// MemoryStore keeps sessions in-process.
type MemoryStore struct {
	mu   sync.RWMutex
	sess map[string]string // token -> user ID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sess: make(map[string]string)}
}

func (s *MemoryStore) NewSession(_ context.Context, userID string) (string, error) {
	token := newToken()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sess[token] = userID
	return token, nil
}

func (s *MemoryStore) UserByToken(_ context.Context, token string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.sess[token]
	return userID, ok, nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sess, token)
	return nil
}
