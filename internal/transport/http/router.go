package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"adsboard/internal/handler"
	"adsboard/internal/httputil"
	"adsboard/internal/model"
	authmw "adsboard/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler    *handler.AuthHandler
	AdHandler      *handler.AdHandler
	SavedAdHandler *handler.SavedAdHandler
	Tokens         authmw.TokenVerifier
	Metrics        http.Handler
	AllowedOrigins []string
	MaxBodyBytes   int64
	Logger         *zap.Logger
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(authmw.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	}).Handler)
	r.Use(authmw.MaxBodyBytes(cfg.MaxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	requireAuth := authmw.AuthMiddleware(cfg.Tokens)

	r.Route("/api", func(r chi.Router) {
		// Public auth routes
		r.Post("/auth/register", cfg.AuthHandler.Register)
		r.Post("/auth/login", cfg.AuthHandler.Login)
		r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
		r.Post("/auth/logout", cfg.AuthHandler.Logout)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", cfg.AuthHandler.Me)
			r.Post("/auth/logout-all", cfg.AuthHandler.LogoutAll)
			r.Post("/auth/push-token", cfg.AuthHandler.SavePushToken)

			r.Route("/saved-ads", func(r chi.Router) {
				r.Post("/", cfg.SavedAdHandler.Save)
				r.Get("/", cfg.SavedAdHandler.List)
				r.Delete("/", cfg.SavedAdHandler.Unsave)
				r.Delete("/{adId}", cfg.SavedAdHandler.UnsaveByID)
			})
		})

		// One route group per category
		for _, schema := range model.Schemas() {
			c := schema.Category
			r.Route("/"+schema.Slug, func(r chi.Router) {
				r.Get("/", cfg.AdHandler.List(c))
				r.With(requireAuth).Get("/user", cfg.AdHandler.ListOwn(c))
				r.Get("/{id}", cfg.AdHandler.Get(c))

				r.Group(func(r chi.Router) {
					r.Use(requireAuth)
					r.Post("/", cfg.AdHandler.Create(c))
					r.Put("/{id}", cfg.AdHandler.Update(c))
					r.Delete("/{id}", cfg.AdHandler.Delete(c))
				})
			})
		}
	})

	return r
}
