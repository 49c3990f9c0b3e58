// Package server wires handlers, middleware and routes.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/dukerupert/choretracker/internal/auth"
	"github.com/dukerupert/choretracker/internal/backup"
	"github.com/dukerupert/choretracker/internal/handler"
	"github.com/dukerupert/choretracker/internal/metrics"
	"github.com/dukerupert/choretracker/internal/middleware"
	"github.com/dukerupert/choretracker/internal/push"
	"github.com/dukerupert/choretracker/internal/tracker"
	ws "github.com/dukerupert/choretracker/internal/websocket"
)

const (
	authRequests = 10
	authWindow   = time.Minute
)

// Deps are the collaborators the server routes to. Hub, Metrics, Notifier
// and Backups may be nil.
type Deps struct {
	Store          tracker.Store
	Accounts       auth.AccountStore
	Subscriptions  push.SubscriptionStore
	Issuer         *auth.Issuer
	Hub            *ws.Hub
	Metrics        *metrics.Metrics
	Notifier       *push.Notifier
	Backups        *backup.Manager
	VAPIDPublicKey string
	OriginPatterns []string
	Clock          tracker.Clock

	// RateLimitRequests per RateLimitWindow per client address.
	RateLimitRequests int
	RateLimitWindow   time.Duration

	Logger *slog.Logger
}

type Server struct {
	deps        Deps
	userH       *handler.UserHandler
	groupH      *handler.GroupHandler
	choreH      *handler.ChoreHandler
	assignmentH *handler.AssignmentHandler
	authH       *handler.AuthHandler
	pushH       *handler.PushHandler
	backupH     *handler.BackupHandler
	rateLimiter *middleware.RateLimiter
	logger      *slog.Logger
}

func New(d Deps) *Server {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if d.RateLimitRequests <= 0 {
		d.RateLimitRequests = 100
	}
	if d.RateLimitWindow <= 0 {
		d.RateLimitWindow = time.Minute
	}

	s := &Server{
		deps:        d,
		userH:       handler.NewUserHandler(d.Store, logger.With("component", "user")),
		groupH:      handler.NewGroupHandler(d.Store, d.Hub, logger.With("component", "group")),
		choreH:      handler.NewChoreHandler(d.Store, d.Hub, logger.With("component", "chore")),
		assignmentH: handler.NewAssignmentHandler(d.Store, d.Hub, d.Notifier, d.Metrics, d.Clock, logger.With("component", "assignment")),
		authH:       handler.NewAuthHandler(d.Accounts, d.Issuer, d.Hub, logger.With("component", "auth")),
		backupH:     handler.NewBackupHandler(d.Backups, logger.With("component", "backup")),
		rateLimiter: middleware.NewRateLimiter(),
		logger:      logger,
	}
	if d.Subscriptions != nil {
		s.pushH = handler.NewPushHandler(d.Subscriptions, d.VAPIDPublicKey, logger.With("component", "push"))
	}
	return s
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /{$}", handler.Root)
	mux.HandleFunc("GET /health", handler.Health)
	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	mux.Handle("POST /auth/register", s.authLimited(s.authH.Register))
	mux.Handle("POST /auth/token", s.authLimited(s.authH.Token))

	mux.HandleFunc("GET /users/{$}", s.userH.List)
	mux.Handle("GET /users/me", s.protected(s.userH.Me))
	mux.HandleFunc("GET /users/{id}", s.userH.Get)

	mux.Handle("POST /groups/{$}", s.protected(s.groupH.Create))
	mux.HandleFunc("GET /groups/{$}", s.groupH.List)
	mux.HandleFunc("GET /groups/{id}", s.groupH.Get)
	mux.Handle("POST /groups/{group_id}/users/{user_id}", s.protected(s.groupH.AddMember))
	mux.Handle("DELETE /groups/{group_id}/users/{user_id}", s.protected(s.groupH.RemoveMember))

	mux.Handle("POST /chores/{$}", s.protected(s.choreH.Create))
	mux.HandleFunc("GET /chores/{$}", s.choreH.List)
	mux.HandleFunc("GET /chores/{id}", s.choreH.Get)

	mux.Handle("POST /assignments/{$}", s.protected(s.assignmentH.Create))
	mux.HandleFunc("GET /assignments/{$}", s.assignmentH.List)
	mux.HandleFunc("GET /assignments/{id}", s.assignmentH.Get)
	mux.Handle("POST /assignments/{id}/done", s.protected(s.assignmentH.Done))
	mux.Handle("POST /assignments/{id}/skip", s.protected(s.assignmentH.Skip))

	if s.pushH != nil {
		mux.HandleFunc("GET /push/vapid-public-key", s.pushH.VAPIDKey)
		mux.Handle("POST /push/subscriptions", s.protected(s.pushH.Subscribe))
		mux.Handle("DELETE /push/subscriptions", s.protected(s.pushH.Unsubscribe))
	}

	mux.Handle("POST /backups", s.protected(s.backupH.Run))
	mux.Handle("GET /backups/status", s.protected(s.backupH.Status))

	if s.deps.Hub != nil {
		mux.Handle("GET /ws", s.protected(ws.HandleWebSocket(s.deps.Hub, s.logger.With("component", "websocket"), s.deps.OriginPatterns)))
	}

	var h http.Handler = mux
	if s.deps.Metrics != nil {
		// Reads r.Pattern, so it must sit directly on the mux.
		h = s.deps.Metrics.Middleware(h)
	}
	h = middleware.RateLimit(s.rateLimiter, clientKey, s.deps.RateLimitRequests, s.deps.RateLimitWindow)(h)
	h = middleware.RequestLogger(s.logger.With("component", "http"))(h)
	return middleware.Recover(s.logger)(h)
}

func clientKey(r *http.Request) string {
	return middleware.RealIP(r)
}

func (s *Server) protected(h http.HandlerFunc) http.Handler {
	return middleware.RequireAuth(s.deps.Issuer, s.userExists)(h)
}

func (s *Server) authLimited(h http.HandlerFunc) http.Handler {
	keyFunc := func(r *http.Request) string {
		return "auth:" + middleware.RealIP(r)
	}
	return middleware.RateLimit(s.rateLimiter, keyFunc, authRequests, authWindow)(h)
}

func (s *Server) userExists(id int64) (bool, error) {
	u, err := s.deps.Store.GetUser(id)
	return u != nil, err
}
