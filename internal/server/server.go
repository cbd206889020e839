package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/songstream/internal/credentials"
	"github.com/desertthunder/songstream/internal/models"
	"github.com/desertthunder/songstream/internal/services"
	"github.com/desertthunder/songstream/internal/sessions"
	"github.com/desertthunder/songstream/internal/shared"
	"golang.org/x/oauth2"
)

const (
	defaultCatalogTimeout = 15 * time.Second
	shutdownTimeout       = 10 * time.Second
)

// Middleware wraps an http.Handler and returns a new http.Handler with additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an [http.Handler] that owns a group of routes.
type Handler interface {
	http.Handler      // ServeHTTP handles the HTTP request and writes the response
	Routes() []string // Routes returns the method patterns this handler serves, e.g. "GET /auth/login"
}

// Router defines the interface for HTTP routing and middleware management.
type Router interface {
	Use(middleware ...Middleware)                     // Use adds middleware to the router's middleware stack
	Handle(method, path string, handler http.Handler) // Handle registers a handler for the specified method and path
	Handler(handler Handler)                          // Handler registers a custom Handler implementation
	ServeHTTP(w http.ResponseWriter, r *http.Request) // ServeHTTP implements http.Handler for the entire router
}

// StreamResolver maps track names to playable stream URLs.
type StreamResolver interface {
	Resolve(ctx context.Context, trackName string) (string, error)
	Forget(trackName string) bool
	Cached() int
}

// CredentialStore holds the extractor's credential artifact.
type CredentialStore interface {
	Has() bool
	Save(r io.Reader, filename string) error
	Info() credentials.Info
}

// SessionManager runs logins and validates session tokens.
type SessionManager interface {
	BeginAuth() (string, string, error)
	CompleteAuth(ctx context.Context, code string) (*sessions.Session, error)
	ResolveSession(token string) (*models.Account, error)
	Token(ctx context.Context, account *models.Account) (*oauth2.Token, error)
	SaveToken(account *models.Account, token *oauth2.Token)
}

// CatalogProvider builds catalog clients, app-level when token is nil.
type CatalogProvider interface {
	Catalog(ctx context.Context, token *oauth2.Token, onRefresh func(*oauth2.Token)) services.CatalogClient
}

// Options configures a [Server]. Sessions and Catalog are optional; their routes are only mounted
// when set.
type Options struct {
	Resolver       StreamResolver
	Credentials    CredentialStore
	Sessions       SessionManager
	Catalog        CatalogProvider
	SessionSecret  string
	CookieSecure   bool
	CORSOrigins    []string
	CatalogTimeout time.Duration
	Logger         *log.Logger
}

// Server is the songstream HTTP API.
type Server struct {
	router         *BasicRouter
	resolver       StreamResolver
	credentials    CredentialStore
	sessions       SessionManager
	catalog        CatalogProvider
	signer         *Signer
	cookieSecure   bool
	catalogTimeout time.Duration
	logger         *log.Logger
}

// New creates a [Server] with its routes and middleware registered.
func New(opts Options) (*Server, error) {
	if opts.Resolver == nil || opts.Credentials == nil {
		return nil, fmt.Errorf("%w: resolver and credential store are required", shared.ErrInvalidConfig)
	}
	if opts.Sessions != nil && opts.SessionSecret == "" {
		return nil, fmt.Errorf("%w: session secret is required", shared.ErrInvalidConfig)
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.CatalogTimeout <= 0 {
		opts.CatalogTimeout = defaultCatalogTimeout
	}

	s := &Server{
		router:         NewBasicRouter(),
		resolver:       opts.Resolver,
		credentials:    opts.Credentials,
		sessions:       opts.Sessions,
		catalog:        opts.Catalog,
		signer:         NewSigner(opts.SessionSecret),
		cookieSecure:   opts.CookieSecure,
		catalogTimeout: opts.CatalogTimeout,
		logger:         shared.WithLogger(opts.Logger, "component", "server"),
	}

	s.router.Use(Recover(s.logger), Logging(s.logger), CORS(opts.CORSOrigins))
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.router.HandleFunc(http.MethodGet, "/{$}", s.handleIndex)
	s.router.HandleFunc(http.MethodGet, "/health", s.handleHealth)
	s.router.HandleFunc(http.MethodGet, "/stream_track", s.handleStreamTrack)
	s.router.HandleFunc(http.MethodDelete, "/stream_track", s.handleForgetTrack)
	s.router.HandleFunc(http.MethodPost, "/upload_youtube_cookie", s.handleUploadCookie)

	if s.sessions != nil {
		s.router.Handler(&AuthHandler{server: s})
	}
	if s.catalog != nil {
		s.router.HandleFunc(http.MethodGet, "/search", s.handleSearch)
		s.router.HandleFunc(http.MethodGet, "/recommendations", s.handleRecommendations)
	}
}

// ServeHTTP implements [http.Handler].
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("server stopped: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
