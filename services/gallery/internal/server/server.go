package server

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"memorylane/internal/util"
	"memorylane/pkg/domain"
	"memorylane/pkg/gateway"
	"memorylane/pkg/mutate"
	"memorylane/pkg/session"
	"memorylane/pkg/view"
	"memorylane/services/gallery/internal/app"
)

// Config wires required dependencies for the HTTP server.
type Config struct {
	App               *app.App
	MaxUploadBytes    int64
	AllowedExtensions []string
}

// Server exposes the gallery HTTP endpoints.
type Server struct {
	app               *app.App
	mux               *http.ServeMux
	maxUploadBytes    int64
	allowedExtensions map[string]struct{}
}

// New constructs the server with routes configured.
func New(cfg Config) *Server {
	maxUpload := cfg.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 20 << 20
	}
	allowed := make(map[string]struct{}, len(cfg.AllowedExtensions))
	for _, ext := range cfg.AllowedExtensions {
		allowed[strings.ToLower(strings.TrimSpace(ext))] = struct{}{}
	}
	s := &Server{
		app:               cfg.App,
		mux:               http.NewServeMux(),
		maxUploadBytes:    maxUpload,
		allowedExtensions: allowed,
	}
	s.routes()
	return s
}

// Router returns the handler chain.
func (s *Server) Router() http.Handler {
	return util.WithSecurityHeaders(util.WithCORS(s.mux))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// auth
	s.mux.HandleFunc("/api/auth/signup", s.handleSignup)
	s.mux.HandleFunc("/api/auth/login", s.handleLogin)
	s.mux.Handle("/api/auth/logout", s.authenticated(s.handleLogout))

	// gallery (auth required)
	s.mux.Handle("/api/photos", s.authenticated(s.handlePhotos))
	s.mux.Handle("/api/photos/", s.authenticated(s.handlePhotoByID))
	s.mux.Handle("/api/facets", s.authenticated(s.handleFacets))
	s.mux.Handle("/api/view", s.authenticated(s.handleViewState))

	// public surface
	s.mux.HandleFunc("/api/search/users", s.handleSearchUsers)
	s.mux.HandleFunc("/api/users/", s.handlePublicProfile)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type authHandler func(http.ResponseWriter, *http.Request, domain.Session)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "not authenticated")
			return
		}
		next(w, r, sess)
	})
}

func (s *Server) authorize(r *http.Request) (domain.Session, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return domain.Session{}, false
	}
	token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	sess, ok, err := s.app.SessionFromToken(r.Context(), token)
	if err != nil {
		slog.Warn("session lookup failed", "err", err)
		return domain.Session{}, false
	}
	return sess, ok
}

// auth handlers

type credentialsRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.app.SignUp(r.Context(), req.Email, req.Password, req.FirstName, req.LastName)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req credentialsRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	sess, err := s.app.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, app.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	if err := s.app.SignOut(r.Context(), sess); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// gallery handlers

type photosResponse struct {
	Photos []domain.Photo `json:"photos"`
	Facets []string       `json:"facets"`
	View   view.Snapshot  `json:"view"`
}

func (s *Server) handlePhotos(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	switch r.Method {
	case http.MethodGet:
		s.handleListPhotos(w, r, sess)
	case http.MethodPost:
		s.handleAddPhotos(w, r, sess)
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleListPhotos(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	state := s.app.ViewState(sess.Token)
	if facet := r.URL.Query().Get("facet"); facet != "" {
		state.Select(facet)
	}
	snapshot := state.Snapshot()
	photos, facets, err := s.app.Photos(r.Context(), sess, snapshot.SelectedFacet)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, photosResponse{Photos: photos, Facets: facets, View: snapshot})
}

func (s *Server) handleAddPhotos(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	defer func() {
		_ = r.MultipartForm.RemoveAll()
	}()
	details := mutate.PhotoDetails{
		Title:     r.FormValue("title"),
		Story:     r.FormValue("story"),
		DateTaken: r.FormValue("dateTaken"),
	}
	if v := r.FormValue("isPublic"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "isPublic must be a boolean")
			return
		}
		details.IsPublic = b
	}
	if v := r.FormValue("tags"); v != "" {
		details.Tags = strings.Split(v, ",")
	}
	if details.Title == "" || details.Story == "" {
		writeError(w, http.StatusBadRequest, "title and story are required")
		return
	}
	headers := r.MultipartForm.File["photos"]
	if len(headers) == 0 {
		writeError(w, http.StatusBadRequest, "no photo files submitted")
		return
	}
	var files []mutate.FileUpload
	var closers []io.Closer
	defer func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}()
	for _, h := range headers {
		if !s.isExtensionAllowed(h.Filename) {
			writeError(w, http.StatusBadRequest, "file type not allowed: "+h.Filename)
			return
		}
		f, err := h.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "cannot read file: "+h.Filename)
			return
		}
		closers = append(closers, f)
		files = append(files, mutate.FileUpload{Name: h.Filename, Body: f, Size: h.Size})
	}
	result, err := s.app.AddPhotos(r.Context(), sess, details, files)
	if err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *Server) handlePhotoByID(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/photos/")
	parts := strings.Split(rest, "/")
	id := parts[0]
	if id == "" {
		writeError(w, http.StatusBadRequest, "photo id required")
		return
	}
	if len(parts) == 2 && parts[1] == "visibility" {
		s.handleVisibility(w, r, sess, id)
		return
	}
	if len(parts) != 1 {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	switch r.Method {
	case http.MethodPatch:
		s.handleUpdatePhoto(w, r, sess, id)
	case http.MethodDelete:
		if err := s.app.DeletePhoto(r.Context(), sess, id); err != nil {
			writeMutationError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
	default:
		methodNotAllowed(w)
	}
}

func (s *Server) handleUpdatePhoto(w http.ResponseWriter, r *http.Request, sess domain.Session, id string) {
	var draft view.Draft
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&draft); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if draft.Title == "" || draft.Story == "" {
		writeError(w, http.StatusBadRequest, "title and story are required")
		return
	}
	if err := s.app.UpdatePhoto(r.Context(), sess, id, draft); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleVisibility(w http.ResponseWriter, r *http.Request, sess domain.Session, id string) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w)
		return
	}
	var req struct {
		IsPublic bool `json:"isPublic"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := s.app.ToggleVisibility(r.Context(), sess, id, req.IsPublic); err != nil {
		writeMutationError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	_, facets, err := s.app.Photos(r.Context(), sess, view.FacetAll)
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string][]string{"facets": facets})
}

func (s *Server) handleViewState(w http.ResponseWriter, r *http.Request, sess domain.Session) {
	state := s.app.ViewState(sess.Token)
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, state.Snapshot())
	case http.MethodPut:
		var req view.Snapshot
		if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
		if req.SelectedFacet != "" {
			state.Select(req.SelectedFacet)
		}
		if req.Mode != "" {
			state.SetMode(req.Mode)
		}
		writeJSON(w, http.StatusOK, state.Snapshot())
	default:
		methodNotAllowed(w)
	}
}

// public handlers

func (s *Server) handleSearchUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	results, err := s.app.SearchUsers(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		if errors.Is(err, app.ErrQueryTooShort) {
			writeError(w, http.StatusBadRequest, "search query too short")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

// handlePublicProfile serves /api/users/{id}/photos: another user's
// public photos, aggregated the same way as the owner's view.
func (s *Server) handlePublicProfile(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w)
		return
	}
	rest := strings.TrimPrefix(r.URL.Path, "/api/users/")
	parts := strings.Split(rest, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] != "photos" {
		writeError(w, http.StatusNotFound, "not found")
		return
	}
	photos, err := s.app.PublicPhotos(r.Context(), parts[0])
	if err != nil {
		writeError(w, http.StatusBadGateway, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"photos": photos})
}

func (s *Server) isExtensionAllowed(filename string) bool {
	if len(s.allowedExtensions) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(filename))
	_, ok := s.allowedExtensions[ext]
	return ok
}

// helpers

func writeMutationError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotAuthenticated):
		writeError(w, http.StatusUnauthorized, "not authenticated")
	case errors.Is(err, gateway.ErrNotFound):
		writeError(w, http.StatusNotFound, "photo not found")
	case errors.Is(err, gateway.ErrDuplicateTag):
		writeError(w, http.StatusConflict, "tag already exists")
	default:
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
