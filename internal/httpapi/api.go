// Package httpapi is the HTTP surface of the service: routing, request
// authentication, and the JSON handlers for the auth, user and post flows.
package httpapi

import (
	"context"
	"database/sql"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jx-dohwan/devlog/internal/auth"
	"github.com/jx-dohwan/devlog/internal/obs"
	"github.com/jx-dohwan/devlog/internal/post"
	"github.com/jx-dohwan/devlog/internal/user"
)

// ReadyProbe reports whether the service can take traffic.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options bundles the collaborators and knobs for the HTTP layer.
type Options struct {
	Auth       *auth.Service
	Users      *user.Service
	Posts      *post.Service
	Maintainer Maintainer
	ReadyProbe ReadyProbe
	Version    string

	// LocalEnv relaxes cookie hardening for plain-HTTP development.
	LocalEnv bool
	// SignInRatePerMinute bounds credential attempts per client IP.
	SignInRatePerMinute int
}

// API is the HTTP layer.
type API struct {
	auth       *auth.Service
	users      *user.Service
	posts      *post.Service
	maintainer Maintainer
	readyProbe ReadyProbe
	version    string
	localEnv   bool
	signInRate int
}

// New assembles the API from its collaborators.
func New(opts Options) *API {
	rateLimit := opts.SignInRatePerMinute
	if rateLimit <= 0 {
		rateLimit = 10
	}
	return &API{
		auth:       opts.Auth,
		users:      opts.Users,
		posts:      opts.Posts,
		maintainer: opts.Maintainer,
		readyProbe: opts.ReadyProbe,
		version:    opts.Version,
		localEnv:   opts.LocalEnv,
		signInRate: rateLimit,
	}
}

// Handler builds the routing table. Route groups declare their access level
// up front: public, any authenticated principal, or a role set.
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(RequestID)
	r.Use(Recover)
	r.Use(SecurityHeaders)
	r.Use(Logging)
	r.Use(MaxBodyBytes(1 << 20))
	r.Use(a.Authenticate)

	r.Get("/healthz", a.handleHealthz)
	r.Get("/readyz", a.handleReadyz)
	r.Method(http.MethodGet, "/metrics", obs.Handler())

	credentialLimit := RateLimit(a.signInRate)

	r.Route("/auth", func(r chi.Router) {
		r.With(Require(auth.Public), credentialLimit).Post("/sign-up", a.handleSignUp)
		r.With(Require(auth.Public), credentialLimit).Post("/sign-in", a.handleSignIn)
		r.With(Require(auth.Public)).Post("/refresh", a.handleRefresh)
		r.With(Require(auth.Authenticated)).Post("/sign-out", a.handleSignOut)
	})

	r.Route("/users", func(r chi.Router) {
		r.With(Require(auth.Authenticated)).Get("/me", a.handleMe)
		r.With(Require(auth.Public)).Get("/rank", a.handleUserRank)
		r.With(Require(auth.Public)).Get("/{userId}", a.handleUserProfile)
	})

	r.Route("/posts", func(r chi.Router) {
		r.With(Require(auth.Public)).Get("/", a.handlePostList)
		r.With(Require(auth.Public)).Get("/{postId}", a.handlePostGet)
		r.With(Require(auth.Authenticated)).Post("/", a.handlePostCreate)
		r.With(Require(auth.Authenticated)).Patch("/{postId}", a.handlePostUpdate)
		r.With(Require(auth.Authenticated)).Delete("/{postId}", a.handlePostDelete)
	})

	r.Route("/admin", func(r chi.Router) {
		r.Use(Require(auth.RequireRoles(user.RoleAdmin)))
		r.Delete("/posts/{postId}", a.handleAdminPostDelete)
	})

	r.Route("/internal", func(r chi.Router) {
		r.Use(Require(auth.RequireRoles(user.RoleAdmin)))
		r.Post("/maintenance/cleanup", a.handleAdminCleanup)
	})

	return obs.Instrument(r)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "devlog-api",
		"version": a.version,
	})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": "ready"})
}
