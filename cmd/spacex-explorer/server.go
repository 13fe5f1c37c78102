package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Sternrassler/spacex-explorer/internal/config"
	"github.com/Sternrassler/spacex-explorer/pkg/favorites"
	"github.com/Sternrassler/spacex-explorer/pkg/metrics"
	"github.com/Sternrassler/spacex-explorer/pkg/scroll"
	"github.com/Sternrassler/spacex-explorer/pkg/spacex"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	sessionCookie = "sx_session"
	launchesPath  = "/api/launches"
)

// server holds the dependencies shared by all handlers.
type server struct {
	cfg       config.Config
	client    *spacex.Client
	redis     *redis.Client
	scroll    scroll.Store
	favorites func(session string) favorites.Port
	now       func() time.Time
	logger    zerolog.Logger
}

// newServer wires the stores for cfg. redisClient may be nil.
func newServer(cfg config.Config, client *spacex.Client, redisClient *redis.Client, logger zerolog.Logger) *server {
	s := &server{
		cfg:    cfg,
		client: client,
		redis:  redisClient,
		now:    time.Now,
		logger: logger,
	}

	if redisClient != nil {
		s.scroll = scroll.NewRedisStore(redisClient, cfg.ScrollStateTTL, logger)
	} else {
		s.scroll = scroll.NewMemoryStore()
	}

	switch {
	case cfg.FavoritesFile != "":
		port := favorites.NewFilePort(cfg.FavoritesFile)
		s.favorites = func(string) favorites.Port { return port }
	case redisClient != nil:
		s.favorites = func(session string) favorites.Port {
			return favorites.NewRedisPort(redisClient, session)
		}
	default:
		s.favorites = newMemoryPorts().get
	}

	return s
}

// routes registers every endpoint.
func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", healthHandler)
	r.Get("/ready", s.wrap("Ready", s.handleReady))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(s.withSession)

		r.Get("/launches", s.wrap("ListLaunches", s.handleLaunches))
		r.Post("/launches/more", s.wrap("LoadMore", s.handleLoadMore))
		r.Get("/launches/{id}", s.wrap("GetLaunch", s.handleLaunch))
		r.Get("/rockets/{id}", s.wrap("GetRocket", s.handleRocket))
		r.Get("/launchpads/{id}", s.wrap("GetLaunchpad", s.handleLaunchpad))
		r.Get("/compare", s.wrap("Compare", s.handleCompare))
		r.Get("/favorites", s.wrap("ListFavorites", s.handleFavorites))
		r.Get("/favorites/launches", s.wrap("FavoriteLaunches", s.handleFavoriteLaunches))
		r.Post("/favorites/{id}", s.wrap("ToggleFavorite", s.handleToggleFavorite))
		r.Delete("/favorites/{id}", s.wrap("RemoveFavorite", s.handleRemoveFavorite))
		r.Get("/stats", s.wrap("Stats", s.handleStats))
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "Not Found"})
	})

	return r
}

// httpError is a handler failure with the status and message sent to the caller.
type httpError struct {
	status  int
	message string
	err     error
}

func (e *httpError) Error() string {
	if e.err != nil {
		return e.message + ": " + e.err.Error()
	}
	return e.message
}

func (e *httpError) Unwrap() error {
	return e.err
}

type errorBody struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// upstreamError maps a client error to a response. A 404 becomes notFound.
func upstreamError(err error, notFound, failed string) error {
	switch {
	case errors.Is(err, spacex.ErrNotFound):
		return &httpError{status: http.StatusNotFound, message: notFound, err: err}
	case errors.Is(err, context.Canceled):
		return &httpError{status: http.StatusServiceUnavailable, message: "request cancelled", err: err}
	default:
		return &httpError{status: http.StatusBadGateway, message: failed, err: err}
	}
}

// wrap logs a handler's outcome and turns its error into a JSON response.
func (s *server) wrap(name string, handler func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		err := handler(w, r)
		if err == nil {
			s.logger.Debug().
				Str("request_id", middleware.GetReqID(r.Context())).
				Str("handler", name).
				Str("path", r.URL.Path).
				Dur("duration", time.Since(start)).
				Msg("Request handled")
			return
		}

		var he *httpError
		if !errors.As(err, &he) {
			he = &httpError{status: http.StatusInternalServerError, message: "Internal Server Error", err: err}
		}
		writeJSON(w, he.status, errorBody{Error: he.message})

		event := s.logger.Warn()
		if he.status >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Err(err).
			Str("request_id", middleware.GetReqID(r.Context())).
			Str("handler", name).
			Str("path", r.URL.Path).
			Int("status", he.status).
			Dur("duration", time.Since(start)).
			Msg("Request failed")
	}
}

type sessionKey struct{}

// withSession attaches the session id from the sx_session cookie, issuing
// a new one when the cookie is missing or malformed.
func (s *server) withSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		session := ""
		if c, err := r.Cookie(sessionCookie); err == nil {
			if id, err := uuid.Parse(c.Value); err == nil {
				session = id.String()
			}
		}
		if session == "" {
			session = uuid.NewString()
			http.SetCookie(w, &http.Cookie{
				Name:     sessionCookie,
				Value:    session,
				Path:     "/",
				MaxAge:   int((365 * 24 * time.Hour).Seconds()),
				HttpOnly: true,
				SameSite: http.SameSiteLaxMode,
			})
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), sessionKey{}, session)))
	})
}

func sessionFrom(ctx context.Context) string {
	session, _ := ctx.Value(sessionKey{}).(string)
	return session
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
