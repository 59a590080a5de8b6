// Package api is the HTTP surface: history, message mutations, profile bookkeeping and diagnostics.
package api

import (
	"chatchat/auth"
	"chatchat/observability"
	"chatchat/repositories"
	"chatchat/services"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// DefaultOrigins are always allowed, next to the configured ones.
var DefaultOrigins = []string{"http://localhost:5173"}

type RouterConfig struct {
	AllowedOrigins   []string
	HistoryLimit     int
	RoomHistoryLimit int
	DebugEndpoints   bool
	MaxBodyBytes     int64
}

type Dependencies struct {
	Gate        *auth.Gate
	Chat        services.IChatService
	Profiles    services.IProfileService
	Messages    repositories.IMessageRepository
	Registry    StatsProvider
	Monitoring  *observability.MonitoringManager
	LiveChannel http.Handler
}

// NewRouter creates and configures the HTTP router.
func NewRouter(deps Dependencies, cfg RouterConfig, log *slog.Logger) *chi.Mux {
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 200
	}
	if cfg.RoomHistoryLimit <= 0 {
		cfg.RoomHistoryLimit = 100
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 64 * 1024
	}

	r := chi.NewRouter()

	r.Use(Metrics)
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(log))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   append(append([]string{}, DefaultOrigins...), cfg.AllowedOrigins...),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{NextCursorHeader},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	h := NewHandler(deps, cfg, log)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	if deps.LiveChannel != nil {
		r.Get("/ws", deps.LiveChannel.ServeHTTP)
	}

	r.Group(func(r chi.Router) {
		r.Use(auth.RequireIdentity(deps.Gate, func(w http.ResponseWriter, _ *http.Request, err error) {
			WriteError(w, err)
		}))
		r.Use(MaxBodySize(cfg.MaxBodyBytes))

		r.Get("/messages", h.GetMessages)
		r.Put("/messages/{id}", h.EditMessage)
		r.Delete("/messages/{id}", h.DeleteMessage)
		r.Get("/api/chat/messages/{room}", h.GetRoomMessages)
		r.Get("/api/auth/me", h.Me)
		r.Post("/api/auth/logout", h.Logout)
	})

	if cfg.DebugEndpoints {
		r.Get("/debug/images", h.DebugImages)
		r.Get("/debug/stats", h.DebugStats)
	}

	return r
}
