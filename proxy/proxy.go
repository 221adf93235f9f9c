// Package proxy is the local agent: it forwards Vault API calls with the
// session's token attached and exposes the session's status, journal and
// metrics.
package proxy

import (
	_ "embed"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-logr/logr"
	"github.com/go-openapi/runtime/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jmcleod/vaultsession/journal"
	"github.com/jmcleod/vaultsession/vault"
)

//go:embed openapi.yaml
var openapiSpec []byte

const defaultMaxBodyBytes = 1 << 20

// Server holds the dependencies of the agent's handlers.
type Server struct {
	client   *vault.Client
	journal  *journal.Journal
	gatherer prometheus.Gatherer
	log      logr.Logger
	maxBody  int64
}

// Option configures a Server.
type Option func(*Server)

// WithJournal exposes j at /agent/v1/journal.
func WithJournal(j *journal.Journal) Option {
	return func(s *Server) { s.journal = j }
}

// WithGatherer exposes g at /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the access logger.
func WithLogger(l logr.Logger) Option {
	return func(s *Server) { s.log = l }
}

// WithMaxBodyBytes caps the size of a forwarded request body.
func WithMaxBodyBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxBody = n
		}
	}
}

// New creates an agent for client.
func New(client *vault.Client, opts ...Option) *Server {
	s := &Server{
		client:  client,
		log:     logr.FromSlogHandler(slog.Default().Handler()),
		maxBody: defaultMaxBodyBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = s.log.WithValues("component", "agent")
	return s
}

// Handler returns the router wrapped in the agent's middleware.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(s.accessLog)
	r.Use(chimw.Recoverer)
	r.Use(SecurityHeaders)
	r.Mount("/", s.Router())
	return r
}

// Router registers the agent's routes. It never calls the handlers, so a
// zero Server is enough to inspect them.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Route("/v1", func(r chi.Router) {
		r.Get("/*", s.Forward)
		r.Post("/*", s.Forward)
		r.Put("/*", s.Forward)
		r.Patch("/*", s.Forward)
		r.Delete("/*", s.Forward)
	})

	r.Route("/agent", func(r chi.Router) {
		r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/yaml")
			w.Write(openapiSpec)
		})
		r.Handle("/docs*", middleware.SwaggerUI(middleware.SwaggerUIOpts{
			SpecURL: "/agent/openapi.yaml",
			Path:    "agent/docs",
		}, nil))
		r.Handle("/redoc*", middleware.Redoc(middleware.RedocOpts{
			SpecURL: "/agent/openapi.yaml",
			Path:    "agent/redoc",
		}, nil))

		r.Get("/v1/status", s.Status)
		r.Get("/v1/health", s.Health)
		r.Get("/v1/journal", s.Journal)
	})

	r.Get("/metrics", s.Metrics)
	return r
}

// Metrics serves the configured gatherer in the Prometheus text format.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	if s.gatherer == nil {
		writeError(w, http.StatusNotFound, "metrics are not enabled")
		return
	}
	promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}).ServeHTTP(w, r)
}
