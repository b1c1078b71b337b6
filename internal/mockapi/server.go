package mockapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/raine/category-admin/internal/catalog"
	"github.com/rs/zerolog/log"
)

// Server serves the category endpoints the admin tool consumes, backed by
// an in-memory Store. It stands in for the marketplace backend in tests and
// local runs.
type Server struct {
	store    *Store
	token    string
	router   *chi.Mux
	validate *validator.Validate
}

// NewServer creates a server. When token is non-empty every request must
// carry it as a bearer token.
func NewServer(store *Store, token string) *Server {
	s := &Server{
		store:    store,
		token:    token,
		validate: validator.New(),
	}
	s.setupRouter()
	return s
}

// Router returns the configured router
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", s.handleHealth)

	r.Route("/categories", func(r chi.Router) {
		r.Use(s.authenticate)

		r.Get("/hierarchy", s.handleHierarchy)
		r.Get("/main", s.handleMain)
		r.Post("/", s.handleCreate)
		r.Put("/{id}", s.handleUpdate)
		r.Delete("/{id}", s.handleDelete)
	})

	s.router = r
}

type apiResponse struct {
	Success bool      `json:"success"`
	Data    any       `json:"data,omitempty"`
	Message string    `json:"message,omitempty"`
	Error   *apiError `json:"error,omitempty"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type createRequest struct {
	Name        string  `json:"name" validate:"required,max=120"`
	Description string  `json:"description" validate:"max=1000"`
	Icon        string  `json:"icon" validate:"max=64"`
	ParentID    *string `json:"parentId"`
	IsActive    bool    `json:"isActive"`
}

func respondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("failed to encode response")
	}
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, apiResponse{
		Success: false,
		Error:   &apiError{Code: code, Message: message},
	})
}

// respondStoreError maps Store errors to status codes. The message after
// the sentinel prefix is what the operator sees.
func respondStoreError(w http.ResponseWriter, err error) {
	msg := err.Error()
	if i := strings.Index(msg, ": "); i >= 0 {
		msg = msg[i+2:]
	}
	switch {
	case errors.Is(err, errNotFound):
		respondError(w, http.StatusNotFound, "not_found", "category not found")
	case errors.Is(err, errConflict):
		respondError(w, http.StatusConflict, "conflict", msg)
	case errors.Is(err, errInvalid):
		respondError(w, http.StatusBadRequest, "invalid", msg)
	default:
		respondError(w, http.StatusInternalServerError, "internal", "internal error")
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: map[string]string{"status": "healthy"}})
}

func (s *Server) handleHierarchy(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: s.store.Hierarchy()})
}

// handleMain uses the {"categories": [...], "count": n} shape on purpose;
// the real backend is not consistent between endpoints either.
func (s *Server) handleMain(w http.ResponseWriter, r *http.Request) {
	mains := s.store.Main()
	respondJSON(w, http.StatusOK, map[string]any{
		"success":    true,
		"categories": mains,
		"count":      len(mains),
	})
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	created, err := s.store.Create(input)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, apiResponse{Success: true, Data: created})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	input, ok := s.decodeInput(w, r)
	if !ok {
		return
	}
	updated, err := s.store.Update(chi.URLParam(r, "id"), input)
	if err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Data: updated})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Delete(chi.URLParam(r, "id")); err != nil {
		respondStoreError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, apiResponse{Success: true, Message: "Category deleted"})
}

func (s *Server) decodeInput(w http.ResponseWriter, r *http.Request) (catalog.CategoryInput, bool) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_body", "invalid request body")
		return catalog.CategoryInput{}, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "validation_failed", "name is required and must be at most 120 characters")
		return catalog.CategoryInput{}, false
	}
	return catalog.CategoryInput{
		Name:        req.Name,
		Description: req.Description,
		Icon:        req.Icon,
		ParentID:    req.ParentID,
		IsActive:    req.IsActive,
	}, true
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
			respondError(w, http.StatusUnauthorized, "unauthorized", "missing or invalid token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests using zerolog
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		defer func() {
			log.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("requestId", middleware.GetReqID(r.Context())).
				Msg("http request")
		}()

		next.ServeHTTP(ww, r)
	})
}
