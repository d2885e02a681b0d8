package engine

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
	"github.com/gateguard/gateguard/internal/sensitive"
	"github.com/gateguard/gateguard/internal/traffic"
)

const (
	// DefaultSampleSize is the number of recent log records inspected for
	// sensitive data when the caller does not choose one.
	DefaultSampleSize = 1000

	// assessWorkers bounds concurrent per-API assessments in AssessAll.
	assessWorkers = 4
)

// AssessOptions configures a single assessment run.
// It is the sole input to Assessor.Assess.
type AssessOptions struct {
	// APIID is the configuration-store identifier of the API to assess.
	APIID string

	// Window is the traffic observation window.
	Window models.DateRange

	// SampleSize is the number of recent log records to inspect for
	// sensitive data. Defaults to DefaultSampleSize when zero or negative.
	SampleSize int
}

// Assessor produces security assessments by combining the configuration
// store, a traffic log store, the sensitive-data scanner and the scorer.
// It never talks to MongoDB or Elasticsearch directly; it delegates to the
// supplied interfaces.
type Assessor struct {
	config  ConfigStore
	traffic TrafficSource
	scanner *sensitive.Scanner
	scorer  *scoring.Scorer
}

// NewAssessor wires an Assessor. The traffic source and scanner may be nil
// when no log store is reachable; assessments then cover configuration only.
// A nil scorer falls back to the default weights.
func NewAssessor(config ConfigStore, source TrafficSource, scanner *sensitive.Scanner, scorer *scoring.Scorer) *Assessor {
	if scorer == nil {
		scorer = scoring.NewScorer(nil)
	}
	return &Assessor{config: config, traffic: source, scanner: scanner, scorer: scorer}
}

// Assess runs the full assessment of one API: configuration load, traffic
// aggregation, sensitive-data sampling and scoring. An unknown API or a
// reversed window is an error; a failing traffic fetch degrades to an empty
// traffic profile so the configuration portion of the score still stands.
func (a *Assessor) Assess(ctx context.Context, opts AssessOptions) (*models.Assessment, error) {
	if opts.Window.End.Before(opts.Window.Start) {
		return nil, fmt.Errorf("assess %s: %w", opts.APIID, traffic.ErrInvalidRange)
	}

	cfg, err := a.config.FetchConfiguration(ctx, opts.APIID)
	if err != nil {
		return nil, fmt.Errorf("assess %s: %w", opts.APIID, err)
	}

	stats := a.collectTraffic(ctx, cfg, opts.Window)

	if a.scanner != nil {
		sampleSize := opts.SampleSize
		if sampleSize <= 0 {
			sampleSize = DefaultSampleSize
		}
		stats.SensitiveData = a.scanner.Scan(ctx, cfg.ID, sampleSize)
	}

	return &models.Assessment{
		ReportID:     uuid.NewString(),
		GeneratedAt:  time.Now().UTC(),
		APIID:        cfg.ID,
		APIName:      cfg.Name,
		DateRange:    opts.Window,
		Score:        a.scorer.Score(cfg, stats),
		TrafficStats: stats,
		Policies:     cfg.Policies,
		ClientSSL:    cfg.ClientSSL,
		BackendSSL:   cfg.BackendSSL,
		Logs:         cfg.Logs,
		Weights:      a.scorer.Weights(),
	}, nil
}

// collectTraffic aggregates the API's traffic for the window. A missing log
// store, a failing fetch and a window without recorded traffic all produce an
// empty profile with a clean success rate.
func (a *Assessor) collectTraffic(ctx context.Context, cfg *models.APIConfig, window models.DateRange) *models.TrafficStats {
	empty := &models.TrafficStats{APIName: cfg.Name, SuccessRate: 100}
	if a.traffic == nil {
		return empty
	}

	buckets, err := a.traffic.FetchTrafficAggregation(ctx, cfg.ID, window.Start, window.End)
	if err != nil {
		log.Printf("assess %s: traffic aggregation failed, scoring configuration only: %v", cfg.ID, err)
		return empty
	}
	perAPI, err := traffic.Aggregate(buckets, window.Start, window.End)
	if err != nil {
		log.Printf("assess %s: traffic aggregation failed, scoring configuration only: %v", cfg.ID, err)
		return empty
	}
	if stats, ok := perAPI[cfg.ID]; ok {
		return stats
	}
	return empty
}

// AssessAll assesses every API in the configuration store, at most
// assessWorkers at a time. Per-API failures are skipped non-fatally; an error
// is returned only when no API could be assessed at all. Results keep the
// ListAPIs order.
func (a *Assessor) AssessAll(ctx context.Context, window models.DateRange, sampleSize int) ([]*models.Assessment, error) {
	apis, err := a.config.ListAPIs(ctx)
	if err != nil {
		return nil, fmt.Errorf("assess all: %w", err)
	}
	if len(apis) == 0 {
		return nil, nil
	}

	results := make([]*models.Assessment, len(apis))
	sem := make(chan struct{}, assessWorkers)
	var wg sync.WaitGroup

	for i, api := range apis {
		wg.Add(1)
		go func(i int, apiID string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			assessment, err := a.Assess(ctx, AssessOptions{APIID: apiID, Window: window, SampleSize: sampleSize})
			if err != nil {
				log.Printf("assess %s: skipped: %v", apiID, err)
				return // skip this API; others may succeed
			}
			results[i] = assessment
		}(i, api.ID)
	}
	wg.Wait()

	assessments := make([]*models.Assessment, 0, len(results))
	for _, r := range results {
		if r != nil {
			assessments = append(assessments, r)
		}
	}
	if len(assessments) == 0 {
		return nil, fmt.Errorf("all %d apis failed; no assessments produced", len(apis))
	}
	return assessments, nil
}

// TrafficOverview aggregates traffic in one log-store query, keyed by API
// identifier. An empty apiID covers every API.
func (a *Assessor) TrafficOverview(ctx context.Context, apiID string, window models.DateRange) (map[string]*models.TrafficStats, error) {
	if window.End.Before(window.Start) {
		return nil, fmt.Errorf("traffic overview: %w", traffic.ErrInvalidRange)
	}
	if a.traffic == nil {
		return nil, fmt.Errorf("traffic overview: no log store configured")
	}

	buckets, err := a.traffic.FetchTrafficAggregation(ctx, apiID, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("traffic overview: %w", err)
	}
	perAPI, err := traffic.Aggregate(buckets, window.Start, window.End)
	if err != nil {
		return nil, fmt.Errorf("traffic overview: %w", err)
	}
	return perAPI, nil
}
