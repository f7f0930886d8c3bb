package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
	"github.com/couchcryptid/meteocat-episodes-service/internal/selection"
)

// Selection is the state machine behind the episodes API.
// It is implemented by *selection.Selector.
type Selection interface {
	SelectDay(ctx context.Context, offset int) error
	SelectPeriod(name string) bool
	Snapshot() selection.Snapshot
}

// Server exposes the episodes API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	selection  Selection
	catalog    domain.RegionCatalog
	onChange   func()
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog joins region names and geometry into responses.
func WithCatalog(c domain.RegionCatalog) Option {
	return func(s *Server) { s.catalog = c }
}

// WithChangeHook registers fn to run after every accepted selection change.
func WithChangeHook(fn func()) Option {
	return func(s *Server) { s.onChange = fn }
}

// NewServer creates an HTTP server with the episodes API and the /healthz,
// /readyz, and /metrics routes.
func NewServer(addr string, sel Selection, ready sharedobs.ReadinessChecker, logger *slog.Logger, opts ...Option) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		selection: sel,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/v1/episodes/map", s.handleMap)
	mux.HandleFunc("GET /api/v1/episodes/geojson", s.handleGeoJSON)
	mux.HandleFunc("POST /api/v1/episodes/day", s.handleSelectDay)
	mux.HandleFunc("POST /api/v1/episodes/period", s.handleSelectPeriod)
	mux.HandleFunc("GET /api/v1/regions", s.handleRegions)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}
