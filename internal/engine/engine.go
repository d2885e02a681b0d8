package engine

import (
	"context"
	"time"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/traffic"
)

// ConfigStore reads API definitions from the gateway's configuration
// database.
type ConfigStore interface {
	FetchConfiguration(ctx context.Context, apiID string) (*models.APIConfig, error)
	ListAPIs(ctx context.Context) ([]models.APISummary, error)
}

// TrafficSource reads per-API traffic aggregations from a gateway log store.
// An empty apiID requests aggregations for every API at once.
type TrafficSource interface {
	FetchTrafficAggregation(ctx context.Context, apiID string, start, end time.Time) ([]traffic.EntityBucket, error)
}
