// Package httpapi exposes the assessment engine over HTTP. Every endpoint
// answers with the JSON envelope {"success": bool, "data"|"error": ...} so
// dashboard clients can branch on one field.
package httpapi

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/gateguard/gateguard/internal/archive"
	"github.com/gateguard/gateguard/internal/engine"
	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/providers/elastic"
	"github.com/gateguard/gateguard/internal/scoring"
	"github.com/gateguard/gateguard/internal/sensitive"
)

// Store is the configuration-store surface the API serves from.
type Store interface {
	engine.ConfigStore
	PolicyStatistics(ctx context.Context) (*models.PolicyStatistics, error)
	IPGroups(ctx context.Context) ([]models.IPGroup, error)
}

// LogStore is the per-connection log-store surface handlers query.
type LogStore interface {
	engine.TrafficSource
	sensitive.RecordFetcher
	FetchTimeline(ctx context.Context, apiID string, start, end time.Time, interval string) ([]models.TimelinePoint, error)
	FetchHourlyDistribution(ctx context.Context, apiID string, start, end time.Time) (*models.HourlyDistribution, error)
}

// LogStores resolves a connection name to a ready LogStore.
type LogStores interface {
	Resolve(ctx context.Context, name string) (LogStore, error)
}

// RegistryResolver adapts an elastic connection registry to LogStores.
type RegistryResolver struct {
	Registry *elastic.Registry
}

func (r RegistryResolver) Resolve(ctx context.Context, name string) (LogStore, error) {
	c, err := r.Registry.Client(ctx, name)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Options configures a Server. It is the sole input to NewServer.
type Options struct {
	// Store serves configuration lookups. Required.
	Store Store

	// Logs resolves named log-store connections. Required.
	Logs LogStores

	// Scorer computes security scores. Nil falls back to default weights.
	Scorer *scoring.Scorer

	// Keywords drive the sensitive-field scan.
	Keywords []string

	// Archiver stores shared reports. Nil disables the share endpoint.
	Archiver archive.Archiver

	// DefaultConnection is the log store used when ?es_name is absent.
	// Defaults to "PROD-ES".
	DefaultConnection string

	// DefaultRangeDays is the observation window applied when the caller
	// sends no dates. Defaults to 7.
	DefaultRangeDays int

	// MaxRangeDays caps the requested window. Defaults to 90.
	MaxRangeDays int

	// SampleSize is the number of recent logs scanned for sensitive
	// keywords. Defaults to 1000.
	SampleSize int
}

// Server wires the HTTP surface over the engine and its collaborators.
type Server struct {
	store    Store
	logs     LogStores
	scorer   *scoring.Scorer
	keywords []string
	archiver archive.Archiver

	defaultConn      string
	defaultRangeDays int
	maxRangeDays     int
	sampleSize       int
}

// NewServer builds a Server, applying defaults for unset options.
func NewServer(opts Options) *Server {
	if opts.Scorer == nil {
		opts.Scorer = scoring.NewScorer(nil)
	}
	if opts.DefaultConnection == "" {
		opts.DefaultConnection = "PROD-ES"
	}
	if opts.DefaultRangeDays <= 0 {
		opts.DefaultRangeDays = 7
	}
	if opts.MaxRangeDays <= 0 {
		opts.MaxRangeDays = 90
	}
	if opts.SampleSize <= 0 {
		opts.SampleSize = 1000
	}
	return &Server{
		store:            opts.Store,
		logs:             opts.Logs,
		scorer:           opts.Scorer,
		keywords:         opts.Keywords,
		archiver:         opts.Archiver,
		defaultConn:      opts.DefaultConnection,
		defaultRangeDays: opts.DefaultRangeDays,
		maxRangeDays:     opts.MaxRangeDays,
		sampleSize:       opts.SampleSize,
	}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/health", s.handleHealth)
	r.Route("/api", func(r chi.Router) {
		r.Get("/overview", s.handleOverview)
		r.Get("/ip-groups", s.handleIPGroups)
		r.Route("/apis", func(r chi.Router) {
			r.Get("/", s.handleListAPIs)
			r.Route("/{apiID}", func(r chi.Router) {
				r.Get("/", s.handleAPIDetail)
				r.Get("/score", s.handleScore)
				r.Get("/sensitive-fields", s.handleSensitiveFields)
				r.Get("/hourly-distribution", s.handleHourlyDistribution)
				r.Get("/export/{format}", s.handleExport)
				r.Post("/share", s.handleShare)
			})
		})
		r.Route("/traffic", func(r chi.Router) {
			r.Get("/stats", s.handleTrafficStats)
			r.Get("/timeline/{apiID}", s.handleTimeline)
		})
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
	})
	return r
}

// Serve runs the server until ctx is cancelled, then drains in-flight
// requests before returning.
func (s *Server) Serve(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		errc <- srv.ListenAndServe()
	}()
	log.Printf("httpapi: listening on %s", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
