package scoring

import (
	"math"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

// componentFunc scores one security aspect of an API from its configuration
// and traffic profile. It returns a 0-100 score plus any recommendations.
type componentFunc func(cfg *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation)

var componentFuncs = map[string]componentFunc{
	ComponentIPWhitelist:    scoreIPWhitelist,
	ComponentThrottling:     scoreThrottling,
	ComponentQuota:          scoreQuota,
	ComponentAuthentication: scoreAuthentication,
	ComponentAllowedHours:   scoreAllowedHours,
	ComponentTrafficAnomaly: scoreTrafficAnomaly,
	ComponentErrorRate:      scoreErrorRate,
	ComponentSSLTLS:         scoreSSLTLS,
	ComponentLogging:        scoreLogging,
}

// Scorer computes weighted security scores. Scoring is pure: the same inputs
// always produce the same component scores, total and recommendation order.
type Scorer struct {
	weights Weights
}

// NewScorer builds a Scorer with the given weights. Nil weights fall back to
// DefaultWeights.
func NewScorer(weights Weights) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	return &Scorer{weights: weights}
}

// Weights returns the scorer's weight table.
func (s *Scorer) Weights() Weights {
	return s.weights
}

// Score evaluates every component in the fixed order and folds the results
// into a report. Components missing from the weight table contribute zero to
// the total but still report their raw score. Either argument may be nil;
// the component checks then see zero values throughout.
func (s *Scorer) Score(cfg *models.APIConfig, stats *models.TrafficStats) *models.ScoreReport {
	if cfg == nil {
		cfg = &models.APIConfig{}
	}
	if stats == nil {
		stats = &models.TrafficStats{}
	}

	scores := make(map[string]float64, len(componentOrder))
	var recs []models.Recommendation
	for _, name := range componentOrder {
		score, componentRecs := componentFuncs[name](cfg, stats)
		scores[name] = score
		recs = append(recs, componentRecs...)
	}

	var total float64
	for name, score := range scores {
		total += score * s.weights[name]
	}

	return &models.ScoreReport{
		TotalScore:      round2(total),
		SecurityLevel:   LevelForScore(total),
		ComponentScores: scores,
		Recommendations: recs,
		CalculatedAt:    time.Now().UTC(),
	}
}

// LevelForScore maps a weighted total to its qualitative level. The raw,
// unrounded total decides the level, so 89.999 is Good even though it
// displays as 90.0.
func LevelForScore(score float64) models.SecurityLevel {
	switch {
	case score >= 90:
		return models.LevelExcellent
	case score >= 75:
		return models.LevelGood
	case score >= 60:
		return models.LevelFair
	case score >= 40:
		return models.LevelPoor
	default:
		return models.LevelCritical
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
