package api

import (
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isdelr/sharehub-be/internal/api/handlers"
	"github.com/isdelr/sharehub-be/internal/auth"
	"github.com/isdelr/sharehub-be/internal/services"
	"github.com/isdelr/sharehub-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	db *sql.DB,
	hub *websocket.Hub,
	itemService services.ItemServiceProvider,
	userService services.UserServiceProvider,
	eventService services.EventServiceProvider,
	allowedOrigin string,
	production bool,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(metricsMiddleware)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{allowedOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	itemHandler := handlers.NewItemHandler(itemService, eventService, hub)
	userHandler := handlers.NewUserHandler(userService, eventService, production)
	eventHandler := handlers.NewEventHandler(eventService)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(); err != nil {
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte("ok"))
	})

	r.Route("/api", func(r chi.Router) {
		// WebSocket live feed
		r.Get("/ws", wsHandler.Serve)

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", userHandler.Register)
			r.Post("/login", userHandler.Login)
			r.Post("/logout", userHandler.Logout)
			r.With(auth.JWTMiddleware()).Get("/me", userHandler.GetMe)
		})

		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Get("/nearby", itemHandler.Nearby)
			r.With(auth.JWTMiddleware()).Post("/", itemHandler.Create)
			r.With(auth.JWTMiddleware()).Get("/my-items", itemHandler.MyItems)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", itemHandler.Get)
				r.With(auth.JWTMiddleware()).Patch("/", itemHandler.UpdateStatus)
				r.With(auth.JWTMiddleware()).Delete("/", itemHandler.Delete)
			})
		})

		r.Route("/profile", func(r chi.Router) {
			r.With(auth.JWTMiddleware()).Put("/update", userHandler.UpdateProfile)
		})

		r.Get("/events", eventHandler.GetRecent)
	})

	return r
}
