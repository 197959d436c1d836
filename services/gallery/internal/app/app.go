// Package app is the composition root of the gallery service. The
// remote data gateway is injected here and threaded down explicitly;
// no package holds an ambient client.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"memorylane/internal/util"
	"memorylane/pkg/aggregate"
	"memorylane/pkg/auth"
	"memorylane/pkg/domain"
	"memorylane/pkg/gateway"
	"memorylane/pkg/mutate"
	"memorylane/pkg/session"
	"memorylane/pkg/view"
)

var (
	// ErrInvalidCredentials covers unknown email and wrong password
	// alike; sign-in does not reveal which.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrQueryTooShort rejects user searches below the configured
	// minimum before any remote call.
	ErrQueryTooShort = errors.New("search query too short")
)

// Config holds dependencies and tunables for the core application.
type Config struct {
	Gateway           gateway.Gateway
	Users             gateway.UserStore
	Sessions          session.Store
	SessionTTL        time.Duration
	SearchMinQueryLen int
	Logger            *slog.Logger
}

// App wires the aggregation engine, mutation coordinator, session
// broadcaster, and per-session view state behind one surface.
type App struct {
	gw           gateway.Gateway
	users        gateway.UserStore
	sessions     session.Store
	bus          *session.Broadcaster
	engine       *aggregate.Engine
	coord        *mutate.Coordinator
	views        *view.Registry
	log          *slog.Logger
	searchMinLen int
}

// New constructs the application. Gateway and Sessions are required;
// Users may be nil when accounts live at the identity provider.
func New(cfg Config) (*App, error) {
	if cfg.Gateway == nil {
		return nil, fmt.Errorf("gateway required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session store required")
	}
	if cfg.SearchMinQueryLen <= 0 {
		cfg.SearchMinQueryLen = 2
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}
	bus := session.NewBroadcaster()
	return &App{
		gw:           cfg.Gateway,
		users:        cfg.Users,
		sessions:     cfg.Sessions,
		bus:          bus,
		engine:       aggregate.NewEngine(cfg.Gateway),
		coord:        mutate.NewCoordinator(cfg.Gateway, log),
		views:        view.NewRegistry(bus),
		log:          log,
		searchMinLen: cfg.SearchMinQueryLen,
	}, nil
}

// Broadcaster exposes session transitions for additional subscribers.
func (a *App) Broadcaster() *session.Broadcaster {
	return a.bus
}

// SignUp registers an account and opens a session.
func (a *App) SignUp(ctx context.Context, email, password, firstName, lastName string) (domain.Session, error) {
	if a.users == nil {
		return domain.Session{}, fmt.Errorf("accounts are managed by the identity provider")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	if email == "" || password == "" {
		return domain.Session{}, errors.New("email and password required")
	}
	if _, exists, err := a.users.GetUserByEmail(ctx, email); err != nil {
		return domain.Session{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return domain.Session{}, errors.New("email already exists")
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return domain.Session{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		Email:        email,
		FirstName:    strings.TrimSpace(firstName),
		LastName:     strings.TrimSpace(lastName),
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.users.SaveUser(ctx, user); err != nil {
		return domain.Session{}, fmt.Errorf("save user: %w", err)
	}
	return a.openSession(ctx, user)
}

// SignIn validates credentials and opens a session.
func (a *App) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	if a.users == nil {
		return domain.Session{}, fmt.Errorf("accounts are managed by the identity provider")
	}
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.users.GetUserByEmail(ctx, email)
	if err != nil {
		return domain.Session{}, fmt.Errorf("lookup user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.Session{}, ErrInvalidCredentials
	}
	return a.openSession(ctx, user)
}

func (a *App) openSession(ctx context.Context, user domain.User) (domain.Session, error) {
	token, err := a.sessions.NewSession(ctx, user.ID)
	if err != nil {
		return domain.Session{}, fmt.Errorf("open session: %w", err)
	}
	sess := domain.Session{Token: token, UserID: user.ID, Email: user.Email}
	a.bus.Publish(session.Event{SignedIn: true, Session: sess})
	return sess, nil
}

// SignOut closes the session and broadcasts the transition so view
// state resets deterministically, not as a side effect of a reload.
func (a *App) SignOut(ctx context.Context, sess domain.Session) error {
	if err := a.sessions.DeleteSession(ctx, sess.Token); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	a.bus.Publish(session.Event{SignedIn: false, Session: sess})
	return nil
}

// SessionFromToken resolves a bearer token to a session, or reports it
// absent.
func (a *App) SessionFromToken(ctx context.Context, token string) (domain.Session, bool, error) {
	if token == "" {
		return domain.Session{}, false, nil
	}
	userID, ok, err := a.sessions.UserByToken(ctx, token)
	if err != nil || !ok {
		return domain.Session{}, false, err
	}
	sess := domain.Session{Token: token, UserID: userID}
	if a.users != nil {
		if user, found, err := a.users.GetUserByID(ctx, userID); err == nil && found {
			sess.Email = user.Email
		}
	}
	return sess, true, nil
}

// Photos returns the signed-in user's aggregated list filtered by the
// facet, plus the facet list derived from the unfiltered aggregation.
// The facet filter is a pure re-derivation; only the aggregation itself
// touches the gateway.
func (a *App) Photos(ctx context.Context, sess domain.Session, facet string) ([]domain.Photo, []string, error) {
	photos, err := a.engine.Photos(ctx, sess.UserID, false)
	if err != nil {
		return nil, nil, err
	}
	facets := aggregate.Facets(photos)
	return view.Filter(photos, facet), facets, nil
}

// PublicPhotos returns another user's public aggregated list.
func (a *App) PublicPhotos(ctx context.Context, ownerID string) ([]domain.Photo, error) {
	return a.engine.Photos(ctx, ownerID, true)
}

// AddPhotos runs the batch add and returns its aggregate outcome.
func (a *App) AddPhotos(ctx context.Context, sess domain.Session, details mutate.PhotoDetails, files []mutate.FileUpload) (mutate.AddResult, error) {
	return a.coord.AddPhotos(ctx, &sess, details, files)
}

// UpdatePhoto applies a committed edit draft to the photo.
func (a *App) UpdatePhoto(ctx context.Context, sess domain.Session, photoID string, draft view.Draft) error {
	fields := gateway.PhotoUpdate{
		Title:     &draft.Title,
		Story:     &draft.Story,
		DateTaken: &draft.DateTaken,
		IsPublic:  &draft.IsPublic,
	}
	return a.coord.UpdatePhoto(ctx, &sess, photoID, fields, draft.Tags)
}

// DeletePhoto removes the photo row and its binary. The photo is looked
// up fresh so the URL-derived object key reflects the stored row, not a
// stale client copy.
func (a *App) DeletePhoto(ctx context.Context, sess domain.Session, photoID string) error {
	photo, ok, err := a.findPhoto(ctx, sess, photoID)
	if err != nil {
		return err
	}
	if !ok {
		return gateway.ErrNotFound
	}
	return a.coord.DeletePhoto(ctx, &sess, photo)
}

// ToggleVisibility flips a photo's public flag.
func (a *App) ToggleVisibility(ctx context.Context, sess domain.Session, photoID string, isPublic bool) error {
	return a.coord.ToggleVisibility(ctx, &sess, photoID, isPublic)
}

// SearchUsers runs the remote user search once the query clears the
// configured minimum length.
func (a *App) SearchUsers(ctx context.Context, query string) ([]domain.SearchResult, error) {
	if len(strings.TrimSpace(query)) < a.searchMinLen {
		return nil, ErrQueryTooShort
	}
	return a.gw.SearchUsers(ctx, query)
}

// ViewState returns the mutable view state for the session token.
func (a *App) ViewState(token string) *view.State {
	return a.views.For(token)
}

func (a *App) findPhoto(ctx context.Context, sess domain.Session, photoID string) (domain.Photo, bool, error) {
	photos, err := a.engine.Photos(ctx, sess.UserID, false)
	if err != nil {
		return domain.Photo{}, false, err
	}
	for _, p := range photos {
		if p.ID == photoID {
			return p, true, nil
		}
		for _, m := range p.Members {
			if m.ID == photoID {
				return m, true, nil
			}
		}
	}
	return domain.Photo{}, false, nil
}
