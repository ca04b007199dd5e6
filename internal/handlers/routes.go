package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/vidtube/backend/internal/middleware"
)

// Dependencies aggregates collaborators required by HTTP handlers.
type Dependencies struct {
	Logger   *slog.Logger
	Accounts AccountService
	Channels ChannelService
	Videos   VideoService
	Tokens   middleware.TokenVerifier

	// Optional collaborators.
	RateLimiter     middleware.RateLimiter
	TrustProxy      bool
	RequestObserver middleware.RequestObserver
	Metrics         http.Handler
	HealthCheck     func(ctx context.Context) error

	Uploads UploadLimits
	Cookies CookieOptions
}

// NewRouter wires HTTP handlers into a chi router.
func NewRouter(deps Dependencies) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	health := HealthHandler{Check: deps.HealthCheck}
	users := UserHandler{Accounts: deps.Accounts, Channels: deps.Channels, Uploads: deps.Uploads, Cookies: deps.Cookies}
	videos := VideoHandler{Videos: deps.Videos, Uploads: deps.Uploads}
	subscriptions := SubscriptionHandler{Channels: deps.Channels}

	requireAuth := middleware.RequireAuth(deps.Tokens)
	optionalAuth := middleware.OptionalAuth(deps.Tokens)
	limited := func(scope string) func(http.Handler) http.Handler {
		return middleware.RateLimit(deps.RateLimiter, scope, deps.TrustProxy)
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.Metrics(deps.RequestObserver))

	r.Get("/healthz", health.Handle)
	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			r.With(limited("register")).Post("/register", users.Register)
			r.With(limited("login")).Post("/login", users.Login)
			r.With(limited("refresh")).Post("/refresh-token", users.Refresh)
			r.With(optionalAuth).Get("/c/{username}", users.ChannelProfile)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/logout", users.Logout)
				r.Post("/change-password", users.ChangePassword)
				r.Get("/current-user", users.CurrentUser)
				r.Patch("/update-account", users.UpdateAccount)
				r.Patch("/avatar", users.UpdateAvatar)
				r.Patch("/cover-image", users.UpdateCoverImage)
				r.Get("/history", users.WatchHistory)
			})
		})

		r.Route("/videos", func(r chi.Router) {
			r.Get("/", videos.List)
			r.With(optionalAuth).Get("/{videoId}", videos.Get)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Post("/", videos.Publish)
				r.Patch("/{videoId}", videos.Update)
				r.Delete("/{videoId}", videos.Delete)
				r.Patch("/toggle/publish/{videoId}", videos.TogglePublish)
			})
		})

		r.With(requireAuth).Post("/subscriptions/c/{channelId}", subscriptions.Toggle)
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusNotFound, errorEnvelope{StatusCode: http.StatusNotFound, Message: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondJSON(r.Context(), w, http.StatusMethodNotAllowed, errorEnvelope{StatusCode: http.StatusMethodNotAllowed, Message: "method not allowed"})
	})

	return r
}
