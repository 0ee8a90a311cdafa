// Package api exposes the planner to the UI as a JSON HTTP API. Every
// response is an envelope of {success, message, data}.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/event-planner/internal/discovery"
	"github.com/sells-group/event-planner/internal/invite"
	"github.com/sells-group/event-planner/internal/metrics"
	"github.com/sells-group/event-planner/internal/model"
	"github.com/sells-group/event-planner/internal/plan"
	"github.com/sells-group/event-planner/internal/store"
	"github.com/sells-group/event-planner/internal/strategy"
)

// Planner generates the budgeted services for a new event.
type Planner interface {
	Generate(ctx context.Context, ev model.EventPlan) ([]model.ServiceLine, error)
}

// Reviser applies feedback to a plan.
type Reviser interface {
	Revise(ctx context.Context, ev model.EventPlan, feedback string) ([]model.ServiceLine, plan.Revision)
}

// Discoverer finds providers for one service.
type Discoverer interface {
	Discover(ctx context.Context, req strategy.Request) discovery.Result
}

// Inviter sends an invitation for a saved event.
type Inviter interface {
	Send(ctx context.Context, eventID string, req invite.Request) (*model.Invitation, error)
}

// Deps are the collaborators behind the routes. Inviter may be nil, in
// which case the invitation route answers 503.
type Deps struct {
	Planner    Planner
	Reviser    Reviser
	Discoverer Discoverer
	Inviter    Inviter
	Store      store.Store
}

// Server holds the router and its dependencies.
type Server struct {
	deps    Deps
	origins []string
}

// Option configures a Server.
type Option func(*Server)

// WithAllowedOrigins sets the CORS origins. Defaults to "*".
func WithAllowedOrigins(origins []string) Option {
	return func(s *Server) {
		if len(origins) > 0 {
			s.origins = origins
		}
	}
}

// New creates a Server.
func New(deps Deps, opts ...Option) *Server {
	s := &Server{deps: deps, origins: []string{"*"}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the route tree.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, requestLogger, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		respond(w, http.StatusOK, "ok", nil)
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Post("/plans", s.handleGeneratePlan)
		r.Post("/plans/revise", s.handleRevisePlan)
		r.Post("/discover", s.handleDiscover)

		r.Post("/users", s.handleCreateUser)
		r.Post("/login", s.handleLogin)
		r.Get("/users/{userID}/events", s.handleListEvents)

		r.Post("/events", s.handleCreateEvent)
		r.Route("/events/{eventID}", func(r chi.Router) {
			r.Get("/", s.handleGetEvent)
			r.Put("/services", s.handleUpdateServices)
			r.Put("/services/{service}/provider", s.handleSelectProvider)
			r.Delete("/services/{service}/provider", s.handleClearProvider)
			r.Post("/invitations", s.handleInvite)
		})
	})
	return r
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		zap.L().Info("api: request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("elapsed", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
