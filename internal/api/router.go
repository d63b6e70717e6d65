package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/flipperdevices/flipper-debug-go/internal/auth"
	"github.com/flipperdevices/flipper-debug-go/internal/models"
)

// Deps are the collaborators of the HTTP API. Auth and Backups are optional.
type Deps struct {
	Ctrl    Controller
	Nav     Navigator
	Sync    SyncStatus
	Backups Backups
	Events  EventBus
	Auth    *auth.Service
	Info    func() models.Info
}

// NewRouter creates and returns the main HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(corsMiddleware)
	r.Use(middleware.CleanPath)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, models.ErrNotFound("no route for "+r.URL.Path))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, &models.AppError{
			Code:    "METHOD_NOT_ALLOWED",
			Message: r.Method + " not allowed on " + r.URL.Path,
		})
	})

	h := &Handlers{
		ctrl:    d.Ctrl,
		nav:     d.Nav,
		sync:    d.Sync,
		backups: d.Backups,
		events:  d.Events,
		info:    d.Info,
	}

	r.Group(func(r chi.Router) {
		if d.Auth != nil {
			r.Use(d.Auth.Middleware)
		}

		// Settings document
		r.Get("/api/settings", h.getSettings)
		r.Patch("/api/settings", h.patchSettings)
		r.Get("/api/settings/{option}", h.getOption)
		r.Put("/api/settings/{option}", h.putOption)

		// Debug actions
		r.Post("/api/debug/sync", h.triggerSync)
		r.Post("/api/debug/restart-rpc", h.restartRPC)
		r.Post("/api/debug/stress-test", h.openStressTest)
		r.Post("/api/debug/mfkey32", h.openMfKey32)

		// Backups
		r.Get("/api/debug/backups", h.listBackups)
		r.Post("/api/debug/backups", h.createBackup)
		r.Post("/api/debug/backups/{name}/restore", h.restoreBackup)

		// Status
		r.Get("/api/sync", h.getSync)
		r.Get("/api/navigation", h.getNavigation)
		r.Post("/api/navigation/back", h.navigateBack)
		r.Get("/api/info", h.getInfo)

		// SSE
		r.Get("/api/subscribe", h.sseEvents)
	})

	return r
}

// corsMiddleware adds permissive CORS headers for local network access.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-Api-Key, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
