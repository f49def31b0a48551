package rest

import (
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/frahmantamala/ad-user-manager/api"
	"github.com/frahmantamala/ad-user-manager/internal/task"
	"github.com/frahmantamala/ad-user-manager/internal/tasklog"
	"github.com/frahmantamala/ad-user-manager/internal/transport/middleware"
	"github.com/frahmantamala/ad-user-manager/internal/transport/swagger"
	"github.com/frahmantamala/ad-user-manager/internal/user"
	"github.com/go-chi/chi"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/go-chi/cors"
)

// Handlers groups everything the router mounts. Nil handlers are skipped.
type Handlers struct {
	User    *user.Handler
	Task    *task.Handler
	TaskLog *tasklog.Handler
	Health  *HealthHandler
}

type Options struct {
	AllowedOrigins []string
	// StaticDir is served at / when it exists. The logs/ subtree is never
	// served.
	StaticDir string
}

func RegisterAllRoutes(router *chi.Mux, h Handlers, opts Options, logger *slog.Logger) {
	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Apply global middleware
	router.Use(chiMiddleware.RealIP)
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", middleware.HeaderRequestID},
		ExposedHeaders: []string{middleware.HeaderRequestID},
		MaxAge:         300,
	}))

	router.Get("/openapi.yml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(api.Spec)
	})
	router.Handle("/swagger/*", swagger.Handler())

	if h.User != nil {
		router.Get("/users", h.User.GetUsers)
		router.Get("/users/{username}", h.User.GetUser)
	}

	router.Route("/api", func(r chi.Router) {
		if h.Health != nil {
			r.Get("/health", h.Health.healthCheckHandler)
			r.Get("/ping", h.Health.pingHandler)
		}

		if h.User != nil {
			r.Post("/refresh-users-cache", h.User.RefreshCache)
		}

		if h.Task != nil {
			r.Post("/schedule-task", h.Task.ScheduleTask)
			r.Get("/active-tasks", h.Task.GetActiveTasks)
		}

		if h.TaskLog != nil {
			r.Get("/task-logs", h.TaskLog.GetTaskLogs)
		}
	})

	if opts.StaticDir != "" {
		if info, err := os.Stat(opts.StaticDir); err == nil && info.IsDir() {
			router.Handle("/*", staticHandler(opts.StaticDir))
		} else {
			logger.Warn("static directory not found, not serving static files", "dir", opts.StaticDir)
		}
	}
}

func staticHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/logs" || strings.HasPrefix(clean, "/logs/") {
			http.NotFound(w, r)
			return
		}
		files.ServeHTTP(w, r)
	})
}
