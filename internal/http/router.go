package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterConfig wires handlers and cross cutting middleware. Nil handlers
// leave their routes unregistered.
type RouterConfig struct {
	Logger         *slog.Logger
	Sessions       SessionValidator
	Auth           *AuthHandler
	Dashboard      *DashboardHandler
	Departments    *DepartmentHandler
	Members        *MemberHandler
	Services       *ServiceHandler
	Users          *UserHandler
	Schedules      *ScheduleHandler
	Export         *ExportHandler
	LoginLimiter   *RateLimiter
	AllowedOrigins []string
	CSRFKey        []byte
	RequestTimeout time.Duration
	Middleware     []func(http.Handler) http.Handler
}

// NewRouter builds the chi router serving the dashboard API.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	r.Use(SecurityHeaders)
	if len(cfg.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   cfg.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
			ExposedHeaders:   []string{"Content-Disposition", "X-Session-Token"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}
	if len(cfg.CSRFKey) > 0 {
		r.Use(CSRF(cfg.CSRFKey, cfg.AllowedOrigins))
	}
	for _, mw := range cfg.Middleware {
		if mw != nil {
			r.Use(mw)
		}
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		newResponder(cfg.Logger).writeJSON(r.Context(), w, http.StatusOK, map[string]string{"status": "ok"})
	})

	if cfg.Auth != nil {
		r.With(RateLimit(cfg.LoginLimiter)).Post("/sessions", cfg.Auth.CreateSession)
		r.Delete("/sessions/current", cfg.Auth.DeleteCurrentSession)
	}

	if cfg.Sessions == nil {
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireSession(cfg.Sessions, cfg.Logger))

		if cfg.Auth != nil {
			r.Get("/me", cfg.Auth.Me)
		}

		if cfg.Dashboard != nil {
			r.Get("/dashboard", cfg.Dashboard.Dashboard)
			r.Post("/maintenance/day-of-week", cfg.Dashboard.RepairDaysOfWeek)
		}

		if h := cfg.Departments; h != nil {
			r.Route("/departments", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
				r.Get("/{id}/sectors", h.Sectors)
			})
		}

		if h := cfg.Members; h != nil {
			r.Route("/members", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.Services; h != nil {
			r.Route("/services", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if h := cfg.Users; h != nil {
			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			})
		}

		if cfg.Schedules == nil && cfg.Export == nil {
			return
		}
		r.Route("/schedules", func(r chi.Router) {
			if cfg.Export != nil {
				r.Get("/export", cfg.Export.Export)
			}
			if h := cfg.Schedules; h != nil {
				r.Get("/", h.List)
				r.Post("/", h.Create)
				r.Get("/{id}", h.Get)
				r.Put("/{id}", h.Update)
				r.Delete("/{id}", h.Delete)
			}
		})
	})

	return r
}
