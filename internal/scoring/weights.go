// Package scoring computes weighted security scores for gateway APIs. Nine
// fixed components each score 0-100 from the API's configuration and traffic
// profile; the weighted sum is the total score.
package scoring

import (
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"
)

// Component names. The order of componentOrder is the evaluation order and
// therefore the order recommendations appear in.
const (
	ComponentIPWhitelist    = "ip_whitelist_coverage"
	ComponentThrottling     = "throttling_configured"
	ComponentQuota          = "quota_configured"
	ComponentAuthentication = "authentication_strength"
	ComponentAllowedHours   = "allowed_hours"
	ComponentTrafficAnomaly = "traffic_anomaly"
	ComponentErrorRate      = "error_rate"
	ComponentSSLTLS         = "ssl_tls_status"
	ComponentLogging        = "logging_status"
)

var componentOrder = []string{
	ComponentIPWhitelist,
	ComponentThrottling,
	ComponentQuota,
	ComponentAuthentication,
	ComponentAllowedHours,
	ComponentTrafficAnomaly,
	ComponentErrorRate,
	ComponentSSLTLS,
	ComponentLogging,
}

// ComponentOrder returns the fixed component evaluation order. Renderers use
// it to print component tables deterministically.
func ComponentOrder() []string {
	order := make([]string, len(componentOrder))
	copy(order, componentOrder)
	return order
}

// Weights maps component names to their share of the total score. Shares
// must be non-negative and sum to 1.0 within a small tolerance.
type Weights map[string]float64

// DefaultWeights returns the stock calibration: authentication and log
// hygiene carry the most weight.
func DefaultWeights() Weights {
	return Weights{
		ComponentIPWhitelist:    0.15,
		ComponentThrottling:     0.15,
		ComponentQuota:          0.05,
		ComponentAuthentication: 0.20,
		ComponentAllowedHours:   0.05,
		ComponentTrafficAnomaly: 0.05,
		ComponentErrorRate:      0.05,
		ComponentSSLTLS:         0.10,
		ComponentLogging:        0.20,
	}
}

// weightsFile is the on-disk shape of a weight override file.
type weightsFile struct {
	Version int                `yaml:"version"`
	Weights map[string]float64 `yaml:"weights"`
}

// weightSumTolerance absorbs float drift when checking that weights sum to 1.
const weightSumTolerance = 0.01

// LoadWeights reads a weight override file. Only version 1 files are
// accepted. The result still needs Validate before use.
func LoadWeights(path string) (Weights, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	var f weightsFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing weights file %s: %w", path, err)
	}
	if f.Version != 1 {
		return nil, fmt.Errorf("unsupported weights file version %d (want 1)", f.Version)
	}
	return Weights(f.Weights), nil
}

// Validate checks every weight and the overall sum, collecting all problems
// instead of stopping at the first one.
func (w Weights) Validate() []error {
	var errs []error
	known := make(map[string]bool, len(componentOrder))
	for _, name := range componentOrder {
		known[name] = true
	}

	var sum float64
	for _, name := range componentOrder {
		weight, ok := w[name]
		if !ok {
			continue
		}
		if weight < 0 {
			errs = append(errs, fmt.Errorf("weights.%s: negative weight %v", name, weight))
		}
		sum += weight
	}
	for name := range w {
		if !known[name] {
			errs = append(errs, fmt.Errorf("weights.%s: unknown component", name))
		}
	}
	if math.Abs(sum-1.0) > weightSumTolerance {
		errs = append(errs, fmt.Errorf("weights sum to %.4f; must sum to 1.0", sum))
	}
	return errs
}
