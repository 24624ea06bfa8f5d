// Package api provides HTTP handlers for the moderation service.
package api

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vaayuronics/anticlanker/internal/config"
	"github.com/vaayuronics/anticlanker/internal/moderation"
	"github.com/vaayuronics/anticlanker/internal/oracle"
	"github.com/vaayuronics/anticlanker/internal/persona"
	"github.com/vaayuronics/anticlanker/internal/store"
)

// Handler wires the webhook pipeline and admin endpoints to their
// dependencies.
type Handler struct {
	cfg         *config.Config
	repo        store.Repository
	classifier  oracle.Classifier
	persona     *persona.Service
	engine      *moderation.Engine
	interpreter *moderation.Interpreter
	ignore      *moderation.IgnoreRegistry
	sweeper     *moderation.Sweeper
	platform    moderation.Platform
}

// NewHandler creates a new Handler with common dependencies.
func NewHandler(cfg *config.Config, repo store.Repository, classifier oracle.Classifier, personaSvc *persona.Service, engine *moderation.Engine, interpreter *moderation.Interpreter, ignore *moderation.IgnoreRegistry, sweeper *moderation.Sweeper, platform moderation.Platform) *Handler {
	return &Handler{
		cfg:         cfg,
		repo:        repo,
		classifier:  classifier,
		persona:     personaSvc,
		engine:      engine,
		interpreter: interpreter,
		ignore:      ignore,
		sweeper:     sweeper,
		platform:    platform,
	}
}

// RegisterRoutes registers the webhook, status, and admin routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.Status)
	r.Post("/callback", h.Callback)

	r.Route("/admin", func(r chi.Router) {
		r.Use(h.requireAdminToken)
		r.Get("/training", h.ListTraining)
		r.Post("/training", h.AddTraining)
		r.Post("/training/trim", h.TrimTraining)
		r.Get("/banned", h.ListBanned)
	})
}

// JSON writes a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error": "failed to encode response"}`, http.StatusInternalServerError)
	}
}

// Error writes a JSON error response.
func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// requireAdminToken guards admin routes behind the X-Admin-Token header.
// An unset token disables the routes entirely.
func (h *Handler) requireAdminToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if h.cfg.AdminToken == "" {
			Error(w, http.StatusForbidden, "admin endpoints disabled")
			return
		}
		provided := r.Header.Get("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(h.cfg.AdminToken)) != 1 {
			Error(w, http.StatusUnauthorized, "invalid admin token")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Status is a lightweight uptime-check endpoint.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	JSON(w, http.StatusOK, map[string]interface{}{
		"status":    "ok",
		"service":   "anticlanker",
		"version":   "1.0",
		"endpoints": []string{"/callback", "/status", "/health", "/ws/events", "/admin/training", "/admin/banned"},
	})
}

// ListBanned returns the soft-ban set.
func (h *Handler) ListBanned(w http.ResponseWriter, r *http.Request) {
	banned, err := h.repo.ListBanned(r.Context())
	if err != nil {
		slog.Error("Failed to list banned users", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list banned users")
		return
	}
	JSON(w, http.StatusOK, map[string]interface{}{
		"count":  len(banned),
		"banned": banned,
	})
}
