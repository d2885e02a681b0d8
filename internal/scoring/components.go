package scoring

import (
	"fmt"
	"sort"
	"strings"

	"github.com/gateguard/gateguard/internal/models"
)

const (
	// ipWhitelistActorCeiling is the unique-IP count up to which a
	// whitelist is still practical to maintain.
	ipWhitelistActorCeiling = 10

	// highTrafficPerHour marks an API as abuse-prone when unthrottled.
	highTrafficPerHour = 1000

	// suggestedLimitFactor sizes a throttling suggestion from the
	// observed hourly peak, leaving 20% headroom.
	suggestedLimitFactor = 1.2

	// highVolumeRequests is the window total above which a missing quota
	// becomes a cost concern.
	highVolumeRequests = 10000

	// minRequestsForHoursAnalysis gates the allowed-hours heuristic; below
	// it the peak-hour signal is too thin to act on.
	minRequestsForHoursAnalysis = 100

	// Business hours window, inclusive.
	businessHourStart = 8
	businessHourEnd   = 18

	// concentratedHoursMax is the peak-hour count still considered
	// concentrated enough for a time-based restriction.
	concentratedHoursMax = 8

	// Traffic spike ratios, peak hour over window average.
	severeSpikeRatio      = 10.0
	significantSpikeRatio = 5.0

	// Error-rate thresholds in percent.
	errorRateCritical = 20.0
	errorRateHigh     = 10.0
	errorRateElevated = 5.0

	// Client-side TLS coverage weighs heavier than backend coverage in the
	// combined ssl_tls_status score.
	clientSSLShare  = 0.6
	backendSSLShare = 0.4

	// maxKeywordsInMessage caps how many keywords a logging recommendation
	// spells out.
	maxKeywordsInMessage = 5

	// maxNonSSLInMessage caps how many plaintext endpoints an ssl_tls
	// recommendation spells out.
	maxNonSSLInMessage = 3
)

// Authentication policy types the scorer ranks, strongest first. Base64
// obfuscation is deliberately not on this list.
var rankedAuthTypes = map[string]bool{
	models.PolicyAPIAuthentication:    true,
	models.PolicyBasicAuthentication:  true,
	models.PolicyJWTAuthentication:    true,
	models.PolicyOAuth2Authentication: true,
	models.PolicyMTLSAuthentication:   true,
	models.PolicyDigestAuthentication: true,
}

// hasEnabledPolicy reports whether any enabled policy on the API matches one
// of the given types.
func hasEnabledPolicy(cfg *models.APIConfig, types ...string) bool {
	for _, p := range cfg.Policies.All() {
		if !p.Enabled {
			continue
		}
		for _, t := range types {
			if p.Type == t {
				return true
			}
		}
	}
	return false
}

// ── ip_whitelist_coverage ────────────────────────────────────────────────────

func scoreIPWhitelist(cfg *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	if hasEnabledPolicy(cfg, models.PolicyIPWhite) {
		return 100, nil
	}
	var recs []models.Recommendation
	if stats.UniqueIPs > 0 && stats.UniqueIPs <= ipWhitelistActorCeiling {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityMedium,
			Category: "ip_whitelist",
			Message: fmt.Sprintf("API has %d unique IPs but no IP whitelist configured. Consider adding IP whitelist policy.",
				stats.UniqueIPs),
			Action: "Add PolicyIpWhite to restrict access to known IPs",
		})
	}
	return 0, recs
}

// ── throttling_configured ────────────────────────────────────────────────────

func scoreThrottling(cfg *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	if hasEnabledPolicy(cfg, models.PolicyAPIBasedThrottling, models.PolicyEndpointRateLimit) {
		return 100, nil
	}

	var recs []models.Recommendation
	maxHourly := stats.MaxRequestsPerHour
	suggested := int64(float64(maxHourly) * suggestedLimitFactor)
	switch {
	case maxHourly > highTrafficPerHour:
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityHigh,
			Category: "throttling",
			Message:  fmt.Sprintf("High traffic API (%d req/hour) without throttling. Risk of abuse.", maxHourly),
			Action:   fmt.Sprintf("Add throttling policy with limit ~%d req/hour", suggested),
		})
	case maxHourly > 0:
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityLow,
			Category: "throttling",
			Message:  "No throttling policy configured.",
			Action:   fmt.Sprintf("Consider adding throttling policy with limit ~%d req/hour", suggested),
		})
	}
	return 0, recs
}

// ── quota_configured ─────────────────────────────────────────────────────────

func scoreQuota(cfg *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	if hasEnabledPolicy(cfg, models.PolicyAPIBasedQuota) {
		return 100, nil
	}
	var recs []models.Recommendation
	if stats.TotalRequests > highVolumeRequests {
		recs = append(recs, models.Recommendation{
			Severity: models.SeverityMedium,
			Category: "quota",
			Message:  "High-volume API without quota limits.",
			Action:   "Consider adding quota policy for cost control and fair usage",
		})
	}
	// A missing quota is a half measure, not an open door.
	return 50, recs
}

// ── authentication_strength ──────────────────────────────────────────────────

func scoreAuthentication(cfg *models.APIConfig, _ *models.TrafficStats) (float64, []models.Recommendation) {
	enabled := make(map[string]bool)
	for _, p := range cfg.Policies.All() {
		if p.Enabled && rankedAuthTypes[p.Type] {
			enabled[p.Type] = true
		}
	}

	if len(enabled) == 0 {
		return 0, []models.Recommendation{{
			Severity: models.SeverityCritical,
			Category: "authentication",
			Message:  "No authentication policy configured. API is publicly accessible.",
			Action:   "Add authentication policy (OAuth2, JWT, or API Key recommended)",
		}}
	}

	switch {
	case enabled[models.PolicyOAuth2Authentication] || enabled[models.PolicyJWTAuthentication]:
		return 100, nil
	case enabled[models.PolicyMTLSAuthentication]:
		return 100, nil
	case enabled[models.PolicyAPIAuthentication]:
		return 75, nil
	case enabled[models.PolicyBasicAuthentication]:
		return 50, []models.Recommendation{{
			Severity: models.SeverityMedium,
			Category: "authentication",
			Message:  "Using Basic Auth. Consider upgrading to OAuth2 or JWT.",
			Action:   "Upgrade to stronger authentication method",
		}}
	}
	// Digest-only configurations fall through unranked and score zero.
	return 0, nil
}

// ── allowed_hours ────────────────────────────────────────────────────────────

func scoreAllowedHours(cfg *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	if hasEnabledPolicy(cfg, models.PolicyAllowedHours) {
		return 100, nil
	}
	if stats.TotalRequests <= minRequestsForHoursAnalysis || len(stats.PeakHours) == 0 {
		return 100, nil
	}

	peaks := append([]int(nil), stats.PeakHours...)
	sort.Ints(peaks)
	minHour, maxHour := peaks[0], peaks[len(peaks)-1]
	action := fmt.Sprintf("Add PolicyAllowedHours to restrict access to %02d:00-%02d:00", minHour, maxHour+1)

	allBusiness := true
	for _, h := range peaks {
		if h < businessHourStart || h > businessHourEnd {
			allBusiness = false
			break
		}
	}

	switch {
	case allBusiness:
		return 70, []models.Recommendation{{
			Severity: models.SeverityLow,
			Category: "allowed_hours",
			Message: fmt.Sprintf("API traffic is concentrated in business hours (peak: %s). Consider restricting access to business hours only.",
				formatPeakHours(peaks)),
			Action: action,
		}}
	case len(peaks) <= concentratedHoursMax:
		return 75, []models.Recommendation{{
			Severity: models.SeverityLow,
			Category: "allowed_hours",
			Message: fmt.Sprintf("API traffic is concentrated in specific hours (peak: %s). Consider time-based access restriction.",
				formatPeakHours(peaks)),
			Action: action,
		}}
	}
	return 100, nil
}

// formatPeakHours renders sorted peak hours as "08:00, 09:00, 14:00".
func formatPeakHours(sortedPeaks []int) string {
	parts := make([]string, 0, len(sortedPeaks))
	for _, h := range sortedPeaks {
		parts = append(parts, fmt.Sprintf("%02d:00", h))
	}
	return strings.Join(parts, ", ")
}

// ── traffic_anomaly ──────────────────────────────────────────────────────────

func scoreTrafficAnomaly(_ *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	if stats.AvgRequestsPerHour <= 0 {
		return 100, nil
	}
	ratio := float64(stats.MaxRequestsPerHour) / stats.AvgRequestsPerHour
	switch {
	case ratio > severeSpikeRatio:
		return 50, []models.Recommendation{{
			Severity: models.SeverityHigh,
			Category: "anomaly",
			Message:  fmt.Sprintf("Severe traffic spike detected (%.1fx average). Possible attack or misconfiguration.", ratio),
			Action:   "Investigate traffic patterns and consider adding rate limiting",
		}}
	case ratio > significantSpikeRatio:
		return 70, []models.Recommendation{{
			Severity: models.SeverityMedium,
			Category: "anomaly",
			Message:  fmt.Sprintf("Significant traffic spike detected (%.1fx average).", ratio),
			Action:   "Monitor traffic patterns and ensure adequate throttling",
		}}
	}
	return 100, nil
}

// ── error_rate ───────────────────────────────────────────────────────────────

func scoreErrorRate(_ *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	rate := stats.ErrorRate
	switch {
	case rate > errorRateCritical:
		return 30, []models.Recommendation{{
			Severity: models.SeverityCritical,
			Category: "errors",
			Message:  fmt.Sprintf("Very high error rate (%.1f%%). Service may be failing.", rate),
			Action:   "Investigate backend service health and error causes",
		}}
	case rate > errorRateHigh:
		return 60, []models.Recommendation{{
			Severity: models.SeverityHigh,
			Category: "errors",
			Message:  fmt.Sprintf("High error rate (%.1f%%).", rate),
			Action:   "Review error logs and improve error handling",
		}}
	case rate > errorRateElevated:
		return 80, []models.Recommendation{{
			Severity: models.SeverityMedium,
			Category: "errors",
			Message:  fmt.Sprintf("Elevated error rate (%.1f%%).", rate),
			Action:   "Monitor error trends and investigate common failures",
		}}
	}
	return 100, nil
}

// ── ssl_tls_status ───────────────────────────────────────────────────────────

func scoreSSLTLS(cfg *models.APIConfig, _ *models.TrafficStats) (float64, []models.Recommendation) {
	var recs []models.Recommendation

	clientScore := 100.0
	if cfg.ClientSSL.Total > 0 && !cfg.ClientSSL.AllSSL {
		clientScore = float64(cfg.ClientSSL.SSLCount) / float64(cfg.ClientSSL.Total) * 100
		if len(cfg.ClientSSL.NonSSL) > 0 {
			recs = append(recs, models.Recommendation{
				Severity: models.SeverityHigh,
				Category: "ssl_tls",
				Message: fmt.Sprintf("Client connections without SSL/TLS detected in: %s",
					joinFirst(cfg.ClientSSL.NonSSL, maxNonSSLInMessage)),
				Action: "Enable HTTPS for all client-facing endpoints to encrypt data in transit",
			})
		}
	}

	backendScore := 100.0
	if cfg.BackendSSL.Total > 0 && !cfg.BackendSSL.AllSSL {
		backendScore = float64(cfg.BackendSSL.SSLCount) / float64(cfg.BackendSSL.Total) * 100
		if len(cfg.BackendSSL.NonSSL) > 0 {
			recs = append(recs, models.Recommendation{
				Severity: models.SeverityMedium,
				Category: "ssl_tls",
				Message: fmt.Sprintf("Backend connections without SSL/TLS: %s",
					joinFirst(cfg.BackendSSL.NonSSL, maxNonSSLInMessage)),
				Action: "Use HTTPS for backend service connections to ensure end-to-end encryption",
			})
		}
	}

	return round2(clientScore*clientSSLShare + backendScore*backendSSLShare), recs
}

func joinFirst(items []string, n int) string {
	if len(items) > n {
		items = items[:n]
	}
	return strings.Join(items, ", ")
}

// ── logging_status ───────────────────────────────────────────────────────────

// loggingPenalties maps the maximum keyword exposure percentage (exclusive
// lower bound) to a score and recommendation severity. First match wins.
var loggingPenalties = []struct {
	threshold float64
	score     float64
	severity  models.Severity
}{
	{80, 10, models.SeverityCritical},
	{50, 20, models.SeverityCritical},
	{20, 40, models.SeverityHigh},
	{10, 50, models.SeverityHigh},
	{5, 60, models.SeverityMedium},
	{1, 70, models.SeverityLow},
}

// Exposure at or below 1% still signals a leak, just a faint one.
const (
	minimalExposureScore    = 80
	minimalExposureSeverity = models.SeverityLow
)

func scoreLogging(_ *models.APIConfig, stats *models.TrafficStats) (float64, []models.Recommendation) {
	exposure := stats.SensitiveData
	if exposure == nil || !exposure.HasSensitiveData {
		return 100, nil
	}

	// Alphabetical keyword order keeps the message stable across runs.
	keywords := make([]string, 0, len(exposure.SensitiveKeywords))
	for kw := range exposure.SensitiveKeywords {
		keywords = append(keywords, kw)
	}
	sort.Strings(keywords)

	var (
		entries []string
		maxPct  float64
	)
	for _, kw := range keywords {
		info := exposure.SensitiveKeywords[kw]
		if info.Percentage > maxPct {
			maxPct = info.Percentage
		}
		if info.Percentage > 0 {
			entries = append(entries, fmt.Sprintf("%s (%.1f%%)", kw, info.Percentage))
		}
	}
	if len(entries) == 0 {
		return 100, nil
	}

	score := float64(minimalExposureScore)
	severity := minimalExposureSeverity
	for _, p := range loggingPenalties {
		if maxPct > p.threshold {
			score, severity = p.score, p.severity
			break
		}
	}

	return score, []models.Recommendation{{
		Severity: severity,
		Category: "logging",
		Message: fmt.Sprintf("Sensitive data detected in logs: %s. Checked %d logs.",
			joinFirst(entries, maxKeywordsInMessage), exposure.TotalLogsChecked),
		Action: "Configure log masking/filtering to prevent sensitive data (passwords, tokens, personal identifiers) from being logged",
	}}
}
