package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/ragpanel/ragpanel-be/internal/api/handlers"
	"github.com/ragpanel/ragpanel-be/internal/auth"
	"github.com/ragpanel/ragpanel-be/internal/config"
	"github.com/ragpanel/ragpanel-be/internal/monitoring"
	"github.com/ragpanel/ragpanel-be/internal/services"
	"github.com/ragpanel/ragpanel-be/internal/websocket"
)

// NewRouter creates and configures a new Chi router.
func NewRouter(
	cfg *config.Config,
	tokens *auth.TokenManager,
	hub *websocket.Hub,
	accountService services.AccountServiceProvider,
	provisionService services.ProvisionServiceProvider,
	botService services.BotServiceProvider,
	eventService services.EventServiceProvider,
	statusService services.StatusServiceProvider,
	statUpdater *monitoring.StatUpdater,
) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(accountService, tokens, eventService)
	userHandler := handlers.NewUserHandler(accountService, provisionService, eventService)
	botHandler := handlers.NewBotHandler(botService, eventService, cfg.IsProduction())
	eventHandler := handlers.NewEventHandler(eventService)
	systemHandler := handlers.NewSystemHandler(statusService, statUpdater)
	wsHandler := handlers.NewWebSocketHandler(hub)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)

		// Monitor event feed for the admin dashboard
		r.Get("/ws", wsHandler.Serve)

		// Everything below requires a valid bearer token
		r.Group(func(r chi.Router) {
			r.Use(tokens.Middleware())

			r.Route("/users/me", func(r chi.Router) {
				r.Get("/", userHandler.GetMe)
				r.Put("/", userHandler.UpdateMe)
				r.Post("/password", userHandler.ChangePassword)
			})

			r.Post("/bot/query", botHandler.Query)
			r.Get("/events", eventHandler.List)

			r.Route("/system", func(r chi.Router) {
				r.Get("/status", systemHandler.Status)
				r.Get("/stats", systemHandler.Stats)
			})
		})
	})

	return r
}
