package http

import (
	"log"
	"net"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"redesocial/internal/handler"
	"redesocial/internal/httputil"
	"redesocial/internal/metrics"
	authmw "redesocial/internal/transport/http/middleware"
)

// RouterConfig holds the dependencies needed to create routes
type RouterConfig struct {
	AuthHandler         *handler.AuthHandler
	UserHandler         *handler.UserHandler
	SocialHandler       *handler.SocialHandler
	PostHandler         *handler.PostHandler
	CommentHandler      *handler.CommentHandler
	NotificationHandler *handler.NotificationHandler
	Verifier            authmw.TokenVerifier
	AuthLimiter         *authmw.RateLimiter
	Metrics             *metrics.Metrics
	// TrustedProxies may set the client address through forwarding
	// headers. Without any, the socket address is used.
	TrustedProxies      []*net.IPNet
}

// NewRouter creates and configures a new Chi router with all route groups
func NewRouter(cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	if len(cfg.TrustedProxies) > 0 {
		r.Use(authmw.TrustedRealIP(cfg.TrustedProxies))
	}
	r.Use(middleware.RequestID)
	r.Use(authmw.RequestLogger(log.New(os.Stdout, "", log.LstdFlags)))
	r.Use(middleware.Recoverer)
	r.Use(cfg.Metrics.InstrumentHandler)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	requireAuth := authmw.AuthMiddleware(cfg.Verifier)
	optionalAuth := authmw.OptionalAuthMiddleware(cfg.Verifier)

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				if cfg.AuthLimiter != nil {
					r.Use(cfg.AuthLimiter.Handler)
				}
				r.Post("/register", cfg.AuthHandler.Register)
				r.Post("/login", cfg.AuthHandler.Login)
			})
			r.With(requireAuth).Get("/me", cfg.AuthHandler.Me)
		})

		r.Route("/users", func(r chi.Router) {
			// Public reads
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/{id}", cfg.UserHandler.GetProfile)
				r.Get("/username/{username}", cfg.UserHandler.GetProfileByUsername)
				r.Get("/{id}/followers", cfg.SocialHandler.ListFollowers)
				r.Get("/{id}/following", cfg.SocialHandler.ListFollowing)
				r.Get("/{id}/friends", cfg.SocialHandler.ListFriends)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)

				r.Put("/me", cfg.UserHandler.UpdateProfile)
				r.Put("/me/username", cfg.UserHandler.ChangeUsername)
				r.Post("/me/avatar", cfg.UserHandler.UploadAvatar)
				r.Get("/me/favorites", cfg.SocialHandler.ListFavorites)
				r.Get("/me/friend-requests", cfg.SocialHandler.IncomingRequests)

				r.Put("/{id}/follow", cfg.SocialHandler.Follow)
				r.Put("/{id}/unfollow", cfg.SocialHandler.Unfollow)
				r.Put("/{id}/favorite", cfg.SocialHandler.Favorite)
				r.Put("/{id}/unfavorite", cfg.SocialHandler.Unfavorite)

				r.Post("/{id}/friend-request", cfg.SocialHandler.SendFriendRequest)
				r.Delete("/{id}/friend-request", cfg.SocialHandler.CancelFriendRequest)
				r.Put("/{id}/friend-request/accept", cfg.SocialHandler.AcceptFriendRequest)
				r.Put("/{id}/friend-request/reject", cfg.SocialHandler.RejectFriendRequest)
				r.Delete("/{id}/friend", cfg.SocialHandler.RemoveFriend)
			})
		})

		r.Route("/posts", func(r chi.Router) {
			r.Group(func(r chi.Router) {
				r.Use(optionalAuth)
				r.Get("/user/{userId}", cfg.PostHandler.ListByUser)
				r.Get("/username/{username}", cfg.PostHandler.ListByUsername)
				r.Get("/{id}", cfg.PostHandler.GetByID)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", cfg.PostHandler.Create)
				r.Get("/feed", cfg.PostHandler.Feed)
				r.Post("/{id}/like", cfg.PostHandler.ToggleLike)
				r.Delete("/{id}", cfg.PostHandler.Delete)
			})
		})

		r.Route("/comments", func(r chi.Router) {
			r.Get("/{id}", cfg.CommentHandler.List)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/{id}", cfg.CommentHandler.Create)
				r.Put("/{id}", cfg.CommentHandler.Update)
				r.Delete("/{id}", cfg.CommentHandler.Delete)
				r.Put("/{id}/like", cfg.CommentHandler.ToggleLike)
			})
		})

		r.Route("/notifications", func(r chi.Router) {
			// Browsers cannot set headers on the upgrade request.
			r.With(authmw.QueryTokenBridge, requireAuth).Get("/ws", cfg.NotificationHandler.Stream)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/", cfg.NotificationHandler.List)
				r.Get("/unread", cfg.NotificationHandler.GetUnreadCount)
				r.Put("/read-all", cfg.NotificationHandler.MarkAllRead)
				r.Put("/{id}/read", cfg.NotificationHandler.MarkRead)
				r.Delete("/{id}", cfg.NotificationHandler.Delete)
			})
		})
	})

	return r
}
