package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/GregMSThompson/dockly/internal/handlers"
	"github.com/GregMSThompson/dockly/internal/metrics"
	"github.com/GregMSThompson/dockly/internal/middleware"
)

type Options struct {
	ProjectID      string
	AllowedOrigins []string
	Auth           *middleware.Middleware
	Metrics        *metrics.Metrics
}

func NewRouter(deps *handlers.Deps, opts Options) chi.Router {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewLoggerMiddleware(deps.Log, opts.ProjectID).LoggerMiddleware)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.Metrics(opts.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if opts.Metrics != nil {
		r.Handle("/metrics", opts.Metrics.Handler())
	}

	mkh := handlers.NewMarkerHandlers(deps)
	ush := handlers.NewUserHandlers(deps)
	uph := handlers.NewUploadHandlers(deps)

	r.Route("/api", func(r chi.Router) {
		r.Mount("/markers", mkh.MarkerRoutes(opts.Auth.FirebaseAuth, opts.Auth.OptionalAuth))
		r.Group(func(r chi.Router) {
			r.Use(opts.Auth.FirebaseAuth)
			r.Mount("/users", ush.UserRoutes())
			r.Mount("/uploads", uph.UploadRoutes())
		})
	})
	return r
}
