package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/getsentry/sentry-go"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"traderesearch/app/internal/auth"
	"traderesearch/app/internal/research"
	"traderesearch/app/internal/storage"
)

const sessionCookieName = "research_session"

// Authenticator is the identity-provider boundary consumed by the transport:
// a current identity (or nil), the admin claim on it, and sign-out.
type Authenticator interface {
	Register(ctx context.Context, email, password string, isAdmin bool) (*auth.User, error)
	Login(ctx context.Context, email, password string) (string, error)
	SignOut(ctx context.Context, token string) error
	IdentityFromToken(ctx context.Context, token string) (*auth.Identity, error)
}

// Options configures the HTTP server wiring.
type Options struct {
	Research    research.Service
	Auth        Authenticator
	Blobs       storage.Store
	Database    *gorm.DB
	Logger      *logrus.Logger
	SentryHub   *sentry.Hub
	RateLimiter RateLimiterSettings
}

// RateLimiterSettings configures the HTTP rate limiter behaviour.
type RateLimiterSettings struct {
	RequestsPerSecond float64
	Burst             int
	ClientTTL         time.Duration
}

// Server wires the HTTP transport layer via Huma and templ components.
type Server struct {
	api         huma.API
	mux         *stdhttp.ServeMux
	research    research.Service
	auth        Authenticator
	blobs       storage.Store
	logger      *logrus.Logger
	sentry      *sentry.Hub
	db          *gorm.DB
	rateLimiter *RateLimiter
}

// NewServer constructs the HTTP server.
func NewServer(opts Options) (*Server, error) {
	if opts.Research == nil {
		return nil, eris.New("research service is required")
	}
	if opts.Auth == nil {
		return nil, eris.New("authenticator is required")
	}
	if opts.Blobs == nil {
		return nil, eris.New("blob store is required")
	}
	if opts.Database == nil {
		return nil, eris.New("database is required")
	}

	mux := stdhttp.NewServeMux()
	config := huma.DefaultConfig("Gold Standard Research", "1.0.0")

	api := humago.New(mux, config)

	srv := &Server{
		api:      api,
		mux:      mux,
		research: opts.Research,
		auth:     opts.Auth,
		blobs:    opts.Blobs,
		logger:   opts.Logger,
		sentry:   opts.SentryHub,
		db:       opts.Database,
	}

	settings := opts.RateLimiter
	if settings.Burst <= 0 {
		return nil, eris.New("rate limiter burst must be greater than zero")
	}
	if settings.RequestsPerSecond <= 0 {
		return nil, eris.New("rate limiter requests per second must be greater than zero")
	}
	if settings.ClientTTL <= 0 {
		return nil, eris.New("rate limiter client TTL must be greater than zero")
	}

	srv.rateLimiter = NewRateLimiter(settings.Burst, settings.RequestsPerSecond, settings.ClientTTL)

	srv.registerMiddlewares()
	srv.registerRoutes()

	return srv, nil
}

// Handler exposes the underlying HTTP handler for wiring into the application.
func (s *Server) Handler() stdhttp.Handler {
	return s.mux
}

func (s *Server) registerMiddlewares() {
	s.api.UseMiddleware(
		s.sentryMiddleware(),
		s.recoveryMiddleware(),
		s.requestIDMiddleware(),
		s.rateLimitMiddleware(),
		s.identityMiddleware(),
		s.loggingMiddleware(),
	)
}

func (s *Server) registerRoutes() {
	// Signed blob URLs bypass huma: the signature is the capability and the
	// body is streamed straight from disk.
	s.mux.HandleFunc("GET /files/{key}", s.filesHandler)

	s.registerLandingRoute()
	s.registerAuthRoutes()
	s.registerResearchRoutes()
	s.registerAdminRoutes()
	s.registerHealthRoute()
}

func (s *Server) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	s.mux.ServeHTTP(w, r)
}
