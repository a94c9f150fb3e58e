package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/isdelr/feed-api/internal/api/handlers"
	"github.com/isdelr/feed-api/internal/auth"
	"github.com/isdelr/feed-api/internal/services"
	"github.com/isdelr/feed-api/internal/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Dependencies are the services the router wires into its handlers.
type Dependencies struct {
	Hub          *websocket.Hub
	Users        services.UserServiceProvider
	Feed         services.FeedServiceProvider
	Events       services.EventServiceProvider
	Images       handlers.ImageUploader
	Tokens       *auth.TokenIssuer
	UploadDir    string
	MaxImageSize int64
}

// NewRouter creates and configures a new Chi router.
func NewRouter(deps Dependencies) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)

	// Browser clients are served from arbitrary origins.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
		MaxAge:         300,
	}))

	// Initialize handlers
	userHandler := handlers.NewUserHandler(deps.Users, deps.Tokens)
	feedHandler := handlers.NewFeedHandler(deps.Feed, deps.Images, deps.MaxImageSize)
	eventHandler := handlers.NewEventHandler(deps.Events)
	wsHandler := handlers.NewWebSocketHandler(deps.Hub)
	requireAuth := deps.Tokens.Middleware(handlers.WriteError)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	// Uploaded images are referenced as images/<file>.
	r.Handle("/images/*", http.StripPrefix("/images/", http.FileServer(fileOnlyFS{fs: http.Dir(deps.UploadDir)})))

	// WebSocket connection endpoint
	r.Get("/ws", wsHandler.Serve)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/signup", userHandler.Signup)
		r.Post("/login", userHandler.Login)
	})

	r.Route("/feed", func(r chi.Router) {
		r.Get("/posts", feedHandler.GetPosts)
		r.With(requireAuth).Post("/posts", feedHandler.CreatePost)
		r.Get("/events", eventHandler.GetRecent)

		r.Route("/post/{postId}", func(r chi.Router) {
			r.Get("/", feedHandler.GetPost)
			r.With(requireAuth).Put("/", feedHandler.UpdatePost)
			r.With(requireAuth).Delete("/", feedHandler.DeletePost)
		})
	})

	return r
}
