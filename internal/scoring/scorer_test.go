package scoring_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
)

func enabledPolicy(policyType string) models.PolicyRef {
	return models.PolicyRef{Type: policyType, Enabled: true, Direction: "request"}
}

func configWith(policyTypes ...string) *models.APIConfig {
	cfg := &models.APIConfig{ID: "api-1", Name: "orders-api"}
	for _, t := range policyTypes {
		cfg.Policies.Request = append(cfg.Policies.Request, enabledPolicy(t))
	}
	return cfg
}

func scoreWith(t *testing.T, cfg *models.APIConfig, stats *models.TrafficStats) *models.ScoreReport {
	t.Helper()
	return scoring.NewScorer(scoring.DefaultWeights()).Score(cfg, stats)
}

func recsFor(report *models.ScoreReport, category string) []models.Recommendation {
	var recs []models.Recommendation
	for _, r := range report.Recommendations {
		if r.Category == category {
			recs = append(recs, r)
		}
	}
	return recs
}

// ── ip_whitelist_coverage ────────────────────────────────────────────────────

func TestIPWhitelist_EnabledScoresFull(t *testing.T) {
	report := scoreWith(t, configWith(models.PolicyIPWhite), &models.TrafficStats{UniqueIPs: 3})

	if got := report.ComponentScores[scoring.ComponentIPWhitelist]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
	if recs := recsFor(report, "ip_whitelist"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none", recs)
	}
}

func TestIPWhitelist_FewCallersRecommendsWhitelist(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{UniqueIPs: 5})

	if got := report.ComponentScores[scoring.ComponentIPWhitelist]; got != 0 {
		t.Errorf("score = %v; want 0", got)
	}
	recs := recsFor(report, "ip_whitelist")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q; want medium", recs[0].Severity)
	}
	if !strings.Contains(recs[0].Message, "5 unique IPs") {
		t.Errorf("message = %q; want unique IP count", recs[0].Message)
	}
}

func TestIPWhitelist_ManyCallersNoRecommendation(t *testing.T) {
	// 11 unique IPs is above the practical whitelist ceiling of 10.
	report := scoreWith(t, configWith(), &models.TrafficStats{UniqueIPs: 11})

	if recs := recsFor(report, "ip_whitelist"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none", recs)
	}
}

func TestIPWhitelist_DisabledPolicyCountsAsAbsent(t *testing.T) {
	cfg := &models.APIConfig{}
	cfg.Policies.Request = []models.PolicyRef{{Type: models.PolicyIPWhite, Enabled: false}}

	report := scoreWith(t, cfg, &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentIPWhitelist]; got != 0 {
		t.Errorf("score = %v; want 0 for disabled policy", got)
	}
}

// ── throttling_configured ────────────────────────────────────────────────────

func TestThrottling_RateLimitPolicyCounts(t *testing.T) {
	report := scoreWith(t, configWith(models.PolicyEndpointRateLimit), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentThrottling]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

func TestThrottling_HighTrafficSuggestsLimit(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{MaxRequestsPerHour: 2000})

	recs := recsFor(report, "throttling")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q; want high", recs[0].Severity)
	}
	// Suggested limit is 2000 * 1.2.
	if !strings.Contains(recs[0].Action, "~2400 req/hour") {
		t.Errorf("action = %q; want suggested limit 2400", recs[0].Action)
	}
}

func TestThrottling_SuggestedLimitTruncates(t *testing.T) {
	// 1001 * 1.2 = 1201.2 truncates to 1201.
	report := scoreWith(t, configWith(), &models.TrafficStats{MaxRequestsPerHour: 1001})

	recs := recsFor(report, "throttling")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if !strings.Contains(recs[0].Action, "~1201 req/hour") {
		t.Errorf("action = %q; want suggested limit 1201", recs[0].Action)
	}
}

func TestThrottling_ModestTrafficLowSeverity(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{MaxRequestsPerHour: 500})

	recs := recsFor(report, "throttling")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityLow {
		t.Errorf("severity = %q; want low", recs[0].Severity)
	}
}

func TestThrottling_NoTrafficNoRecommendation(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{})

	if recs := recsFor(report, "throttling"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none", recs)
	}
	if got := report.ComponentScores[scoring.ComponentThrottling]; got != 0 {
		t.Errorf("score = %v; want 0", got)
	}
}

// ── quota_configured ─────────────────────────────────────────────────────────

func TestQuota_MissingScoresHalf(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{TotalRequests: 500})

	if got := report.ComponentScores[scoring.ComponentQuota]; got != 50 {
		t.Errorf("score = %v; want 50", got)
	}
	if recs := recsFor(report, "quota"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none for low volume", recs)
	}
}

func TestQuota_HighVolumeRecommends(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{TotalRequests: 20000})

	recs := recsFor(report, "quota")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q; want medium", recs[0].Severity)
	}
}

// ── authentication_strength ──────────────────────────────────────────────────

func TestAuthentication_NoneIsCritical(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentAuthentication]; got != 0 {
		t.Errorf("score = %v; want 0", got)
	}
	recs := recsFor(report, "authentication")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityCritical {
		t.Errorf("severity = %q; want critical", recs[0].Severity)
	}
	if !strings.Contains(recs[0].Message, "publicly accessible") {
		t.Errorf("message = %q; want public-access warning", recs[0].Message)
	}
}

func TestAuthentication_Strength(t *testing.T) {
	cases := []struct {
		policies []string
		want     float64
	}{
		{[]string{models.PolicyOAuth2Authentication}, 100},
		{[]string{models.PolicyJWTAuthentication}, 100},
		{[]string{models.PolicyMTLSAuthentication}, 100},
		{[]string{models.PolicyAPIAuthentication}, 75},
		{[]string{models.PolicyBasicAuthentication}, 50},
		// Strongest enabled method wins.
		{[]string{models.PolicyBasicAuthentication, models.PolicyJWTAuthentication}, 100},
	}
	for _, tc := range cases {
		report := scoreWith(t, configWith(tc.policies...), &models.TrafficStats{})
		if got := report.ComponentScores[scoring.ComponentAuthentication]; got != tc.want {
			t.Errorf("policies %v: score = %v; want %v", tc.policies, got, tc.want)
		}
	}
}

func TestAuthentication_BasicAuthRecommendsUpgrade(t *testing.T) {
	report := scoreWith(t, configWith(models.PolicyBasicAuthentication), &models.TrafficStats{})

	recs := recsFor(report, "authentication")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityMedium {
		t.Errorf("severity = %q; want medium", recs[0].Severity)
	}
}

// Digest is tracked as an auth method, so the absence warning is suppressed,
// but it earns no strength ranking either.
func TestAuthentication_DigestOnlyScoresZeroSilently(t *testing.T) {
	report := scoreWith(t, configWith(models.PolicyDigestAuthentication), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentAuthentication]; got != 0 {
		t.Errorf("score = %v; want 0", got)
	}
	if recs := recsFor(report, "authentication"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none", recs)
	}
}

func TestAuthentication_Base64IsNotAuthentication(t *testing.T) {
	report := scoreWith(t, configWith(models.PolicyBase64Authentication), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentAuthentication]; got != 0 {
		t.Errorf("score = %v; want 0", got)
	}
	if recs := recsFor(report, "authentication"); len(recs) != 1 {
		t.Errorf("recommendations = %d; want the missing-auth warning", len(recs))
	}
}

// ── allowed_hours ────────────────────────────────────────────────────────────

func TestAllowedHours_PolicyPresentScoresFull(t *testing.T) {
	stats := &models.TrafficStats{TotalRequests: 5000, PeakHours: []int{9, 10}}
	report := scoreWith(t, configWith(models.PolicyAllowedHours), stats)

	if got := report.ComponentScores[scoring.ComponentAllowedHours]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

func TestAllowedHours_BusinessHoursConcentration(t *testing.T) {
	stats := &models.TrafficStats{TotalRequests: 500, PeakHours: []int{9, 10, 11}}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentAllowedHours]; got != 70 {
		t.Errorf("score = %v; want 70", got)
	}
	recs := recsFor(report, "allowed_hours")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if !strings.Contains(recs[0].Message, "09:00, 10:00, 11:00") {
		t.Errorf("message = %q; want formatted peak hours", recs[0].Message)
	}
	// Suggested window spans min peak to max peak + 1.
	if !strings.Contains(recs[0].Action, "09:00-12:00") {
		t.Errorf("action = %q; want window 09:00-12:00", recs[0].Action)
	}
}

func TestAllowedHours_OffHoursConcentration(t *testing.T) {
	stats := &models.TrafficStats{TotalRequests: 500, PeakHours: []int{2, 3}}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentAllowedHours]; got != 75 {
		t.Errorf("score = %v; want 75", got)
	}
	recs := recsFor(report, "allowed_hours")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if !strings.Contains(recs[0].Action, "02:00-04:00") {
		t.Errorf("action = %q; want window 02:00-04:00", recs[0].Action)
	}
}

func TestAllowedHours_LowTrafficSkipsAnalysis(t *testing.T) {
	// Exactly 100 requests is not enough signal; the gate is strictly
	// greater than 100.
	stats := &models.TrafficStats{TotalRequests: 100, PeakHours: []int{9, 10}}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentAllowedHours]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
	if recs := recsFor(report, "allowed_hours"); len(recs) != 0 {
		t.Errorf("recommendations = %v; want none", recs)
	}
}

func TestAllowedHours_SpreadTrafficScoresFull(t *testing.T) {
	// Nine distinct peak hours spanning the whole day: no concentration.
	stats := &models.TrafficStats{TotalRequests: 5000, PeakHours: []int{0, 3, 6, 9, 12, 15, 18, 21, 23}}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentAllowedHours]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

// ── traffic_anomaly ──────────────────────────────────────────────────────────

func TestTrafficAnomaly_SevereSpike(t *testing.T) {
	// 120 peak / 10 average = 12x, above the severe threshold of 10.
	stats := &models.TrafficStats{AvgRequestsPerHour: 10, MaxRequestsPerHour: 120}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentTrafficAnomaly]; got != 50 {
		t.Errorf("score = %v; want 50", got)
	}
	recs := recsFor(report, "anomaly")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q; want high", recs[0].Severity)
	}
	if !strings.Contains(recs[0].Message, "12.0x") {
		t.Errorf("message = %q; want 12.0x ratio", recs[0].Message)
	}
}

func TestTrafficAnomaly_SignificantSpike(t *testing.T) {
	// 60 / 10 = 6x: significant but not severe.
	stats := &models.TrafficStats{AvgRequestsPerHour: 10, MaxRequestsPerHour: 60}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentTrafficAnomaly]; got != 70 {
		t.Errorf("score = %v; want 70", got)
	}
	if recs := recsFor(report, "anomaly"); len(recs) != 1 || recs[0].Severity != models.SeverityMedium {
		t.Errorf("recommendations = %v; want one medium", recs)
	}
}

func TestTrafficAnomaly_BoundaryRatioIsClean(t *testing.T) {
	// Exactly 5x is not a spike; the comparison is strict.
	stats := &models.TrafficStats{AvgRequestsPerHour: 10, MaxRequestsPerHour: 50}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentTrafficAnomaly]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

func TestTrafficAnomaly_NoTraffic(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentTrafficAnomaly]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

// ── error_rate ───────────────────────────────────────────────────────────────

func TestErrorRate_Buckets(t *testing.T) {
	cases := []struct {
		rate         float64
		wantScore    float64
		wantSeverity models.Severity
		wantRecs     int
	}{
		{25, 30, models.SeverityCritical, 1},
		{15, 60, models.SeverityHigh, 1},
		{7.5, 80, models.SeverityMedium, 1},
		{5, 100, "", 0}, // boundary: exactly 5% is acceptable
		{0, 100, "", 0},
	}
	for _, tc := range cases {
		report := scoreWith(t, configWith(), &models.TrafficStats{ErrorRate: tc.rate})
		if got := report.ComponentScores[scoring.ComponentErrorRate]; got != tc.wantScore {
			t.Errorf("rate %.1f: score = %v; want %v", tc.rate, got, tc.wantScore)
		}
		recs := recsFor(report, "errors")
		if len(recs) != tc.wantRecs {
			t.Errorf("rate %.1f: recommendations = %d; want %d", tc.rate, len(recs), tc.wantRecs)
			continue
		}
		if tc.wantRecs == 1 && recs[0].Severity != tc.wantSeverity {
			t.Errorf("rate %.1f: severity = %q; want %q", tc.rate, recs[0].Severity, tc.wantSeverity)
		}
	}
}

func TestErrorRate_MessageCarriesRate(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{ErrorRate: 7.5})

	recs := recsFor(report, "errors")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if !strings.Contains(recs[0].Message, "7.5%") {
		t.Errorf("message = %q; want the rate spelled out", recs[0].Message)
	}
}

// ── ssl_tls_status ───────────────────────────────────────────────────────────

func TestSSLTLS_NoEndpointsScoresFull(t *testing.T) {
	report := scoreWith(t, configWith(), &models.TrafficStats{})

	if got := report.ComponentScores[scoring.ComponentSSLTLS]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

func TestSSLTLS_PartialClientCoverage(t *testing.T) {
	cfg := configWith()
	cfg.ClientSSL = models.SSLSummary{Total: 2, SSLCount: 1, NonSSLCount: 1, NonSSL: []string{"staging"}}
	cfg.BackendSSL = models.SSLSummary{Total: 1, SSLCount: 1, AllSSL: true}

	report := scoreWith(t, cfg, &models.TrafficStats{})

	// Client 50 * 0.6 + backend 100 * 0.4 = 70.
	if got := report.ComponentScores[scoring.ComponentSSLTLS]; got != 70 {
		t.Errorf("score = %v; want 70", got)
	}
	recs := recsFor(report, "ssl_tls")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if recs[0].Severity != models.SeverityHigh {
		t.Errorf("severity = %q; want high for client-side plaintext", recs[0].Severity)
	}
	if !strings.Contains(recs[0].Message, "staging") {
		t.Errorf("message = %q; want environment name", recs[0].Message)
	}
}

func TestSSLTLS_PlaintextBackend(t *testing.T) {
	cfg := configWith()
	cfg.BackendSSL = models.SSLSummary{Total: 1, SSLCount: 0, NonSSLCount: 1, NonSSL: []string{"http://10.0.0.9:8080"}}

	report := scoreWith(t, cfg, &models.TrafficStats{})

	// Client 100 * 0.6 + backend 0 * 0.4 = 60.
	if got := report.ComponentScores[scoring.ComponentSSLTLS]; got != 60 {
		t.Errorf("score = %v; want 60", got)
	}
	recs := recsFor(report, "ssl_tls")
	if len(recs) != 1 || recs[0].Severity != models.SeverityMedium {
		t.Fatalf("recommendations = %v; want one medium", recs)
	}
}

func TestSSLTLS_MessageCapsEndpointList(t *testing.T) {
	cfg := configWith()
	cfg.ClientSSL = models.SSLSummary{
		Total:       5,
		SSLCount:    1,
		NonSSLCount: 4,
		NonSSL:      []string{"env-a", "env-b", "env-c", "env-d"},
	}

	report := scoreWith(t, cfg, &models.TrafficStats{})

	recs := recsFor(report, "ssl_tls")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	if strings.Contains(recs[0].Message, "env-d") {
		t.Errorf("message = %q; must cap at three endpoints", recs[0].Message)
	}
}

// ── logging_status ───────────────────────────────────────────────────────────

func exposure(totalLogs int, keywords map[string]float64) *models.SensitiveExposure {
	e := &models.SensitiveExposure{
		TotalLogsChecked:  totalLogs,
		SensitiveKeywords: map[string]models.KeywordExposure{},
		HasSensitiveData:  len(keywords) > 0,
	}
	for kw, pct := range keywords {
		count := int(float64(totalLogs) * pct / 100)
		e.SensitiveKeywords[kw] = models.KeywordExposure{Count: count, Percentage: pct, Exists: true}
	}
	return e
}

func TestLogging_CleanLogsScoreFull(t *testing.T) {
	stats := &models.TrafficStats{SensitiveData: exposure(100, nil)}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentLogging]; got != 100 {
		t.Errorf("score = %v; want 100", got)
	}
}

func TestLogging_PenaltyBuckets(t *testing.T) {
	cases := []struct {
		pct          float64
		wantScore    float64
		wantSeverity models.Severity
	}{
		{85, 10, models.SeverityCritical},
		{60, 20, models.SeverityCritical},
		{25, 40, models.SeverityHigh},
		{15, 50, models.SeverityHigh},
		{7, 60, models.SeverityMedium},
		{3, 70, models.SeverityLow},
		{0.5, 80, models.SeverityLow},
	}
	for _, tc := range cases {
		stats := &models.TrafficStats{SensitiveData: exposure(1000, map[string]float64{"password": tc.pct})}
		report := scoreWith(t, configWith(), stats)

		if got := report.ComponentScores[scoring.ComponentLogging]; got != tc.wantScore {
			t.Errorf("pct %.1f: score = %v; want %v", tc.pct, got, tc.wantScore)
		}
		recs := recsFor(report, "logging")
		if len(recs) != 1 {
			t.Fatalf("pct %.1f: recommendations = %d; want 1", tc.pct, len(recs))
		}
		if recs[0].Severity != tc.wantSeverity {
			t.Errorf("pct %.1f: severity = %q; want %q", tc.pct, recs[0].Severity, tc.wantSeverity)
		}
	}
}

func TestLogging_MessageListsKeywordsAlphabetically(t *testing.T) {
	stats := &models.TrafficStats{SensitiveData: exposure(200, map[string]float64{
		"token":    12,
		"password": 30,
	})}
	report := scoreWith(t, configWith(), stats)

	recs := recsFor(report, "logging")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	msg := recs[0].Message
	if !strings.Contains(msg, "password (30.0%)") || !strings.Contains(msg, "token (12.0%)") {
		t.Fatalf("message = %q; want both keywords with percentages", msg)
	}
	if strings.Index(msg, "password") > strings.Index(msg, "token") {
		t.Errorf("message = %q; want alphabetical keyword order", msg)
	}
	if !strings.Contains(msg, "Checked 200 logs") {
		t.Errorf("message = %q; want checked-log count", msg)
	}
}

func TestLogging_MessageCapsAtFiveKeywords(t *testing.T) {
	keywords := map[string]float64{}
	for i := 0; i < 6; i++ {
		keywords[fmt.Sprintf("kw%d", i)] = 10
	}
	stats := &models.TrafficStats{SensitiveData: exposure(100, keywords)}
	report := scoreWith(t, configWith(), stats)

	recs := recsFor(report, "logging")
	if len(recs) != 1 {
		t.Fatalf("recommendations = %d; want 1", len(recs))
	}
	// kw5 sorts last alphabetically and falls off the five-keyword cap.
	if strings.Contains(recs[0].Message, "kw5") {
		t.Errorf("message = %q; must cap at five keywords", recs[0].Message)
	}
}

func TestLogging_DegradedScanScoresFull(t *testing.T) {
	stats := &models.TrafficStats{SensitiveData: &models.SensitiveExposure{
		SensitiveKeywords: map[string]models.KeywordExposure{},
		Error:             "connection refused",
	}}
	report := scoreWith(t, configWith(), stats)

	if got := report.ComponentScores[scoring.ComponentLogging]; got != 100 {
		t.Errorf("score = %v; want 100 when the scan could not run", got)
	}
}

// ── Score ────────────────────────────────────────────────────────────────────

func TestScore_EmptyConfigAndTraffic(t *testing.T) {
	report := scoreWith(t, &models.APIConfig{}, &models.TrafficStats{})

	// ip 0*.15 + throttle 0*.15 + quota 50*.05 + auth 0*.20 + hours 100*.05
	// + anomaly 100*.05 + errors 100*.05 + ssl 100*.10 + logging 100*.20 = 47.5
	if report.TotalScore != 47.5 {
		t.Errorf("TotalScore = %v; want 47.5", report.TotalScore)
	}
	if report.SecurityLevel != models.LevelPoor {
		t.Errorf("SecurityLevel = %q; want Poor", report.SecurityLevel)
	}
	if len(report.Recommendations) != 1 {
		t.Fatalf("recommendations = %d; want only the auth warning", len(report.Recommendations))
	}
	if report.Recommendations[0].Category != "authentication" {
		t.Errorf("category = %q; want authentication", report.Recommendations[0].Category)
	}
}

func TestScore_FullyHardenedAPI(t *testing.T) {
	cfg := configWith(
		models.PolicyIPWhite,
		models.PolicyAPIBasedThrottling,
		models.PolicyAPIBasedQuota,
		models.PolicyOAuth2Authentication,
		models.PolicyAllowedHours,
	)
	report := scoreWith(t, cfg, &models.TrafficStats{TotalRequests: 1000, SuccessRate: 100})

	if report.TotalScore != 100 {
		t.Errorf("TotalScore = %v; want 100", report.TotalScore)
	}
	if report.SecurityLevel != models.LevelExcellent {
		t.Errorf("SecurityLevel = %q; want Excellent", report.SecurityLevel)
	}
	if len(report.Recommendations) != 0 {
		t.Errorf("recommendations = %v; want none", report.Recommendations)
	}
}

func TestScore_NilInputs(t *testing.T) {
	report := scoring.NewScorer(nil).Score(nil, nil)

	if report == nil {
		t.Fatal("report is nil")
	}
	if len(report.ComponentScores) != 9 {
		t.Errorf("component count = %d; want 9", len(report.ComponentScores))
	}
}

func TestScore_MissingWeightContributesNothing(t *testing.T) {
	scorer := scoring.NewScorer(scoring.Weights{scoring.ComponentAuthentication: 1.0})
	report := scorer.Score(configWith(models.PolicyJWTAuthentication), &models.TrafficStats{})

	if report.TotalScore != 100 {
		t.Errorf("TotalScore = %v; want 100 with auth-only weights", report.TotalScore)
	}
}

func TestScore_RecommendationsFollowComponentOrder(t *testing.T) {
	stats := &models.TrafficStats{
		TotalRequests:      20000,
		AvgRequestsPerHour: 10,
		MaxRequestsPerHour: 120,
		ErrorRate:          25,
		SensitiveData:      exposure(100, map[string]float64{"password": 60}),
	}
	report := scoreWith(t, &models.APIConfig{}, stats)

	want := []string{"throttling", "quota", "authentication", "anomaly", "errors", "logging"}
	if len(report.Recommendations) != len(want) {
		t.Fatalf("recommendations = %d; want %d", len(report.Recommendations), len(want))
	}
	for i, category := range want {
		if report.Recommendations[i].Category != category {
			t.Errorf("recommendation[%d] category = %q; want %q", i, report.Recommendations[i].Category, category)
		}
	}
}

func TestScore_Deterministic(t *testing.T) {
	cfg := configWith(models.PolicyBasicAuthentication)
	stats := &models.TrafficStats{
		TotalRequests:      5000,
		UniqueIPs:          4,
		AvgRequestsPerHour: 10,
		MaxRequestsPerHour: 120,
		SensitiveData:      exposure(100, map[string]float64{"password": 12, "token": 3}),
	}

	first := scoreWith(t, cfg, stats)
	second := scoreWith(t, cfg, stats)

	if !reflect.DeepEqual(first.ComponentScores, second.ComponentScores) {
		t.Error("component scores differ between identical runs")
	}
	if !reflect.DeepEqual(first.Recommendations, second.Recommendations) {
		t.Error("recommendations differ between identical runs")
	}
	if first.TotalScore != second.TotalScore {
		t.Errorf("totals differ: %v vs %v", first.TotalScore, second.TotalScore)
	}
}

// ── LevelForScore ────────────────────────────────────────────────────────────

func TestLevelForScore_Boundaries(t *testing.T) {
	cases := []struct {
		score float64
		want  models.SecurityLevel
	}{
		{100, models.LevelExcellent},
		{90, models.LevelExcellent},
		{89.999, models.LevelGood}, // displays as 90.0 but stays Good
		{75, models.LevelGood},
		{74.999, models.LevelFair},
		{60, models.LevelFair},
		{59.999, models.LevelPoor},
		{40, models.LevelPoor},
		{39.999, models.LevelCritical},
		{0, models.LevelCritical},
	}
	for _, tc := range cases {
		if got := scoring.LevelForScore(tc.score); got != tc.want {
			t.Errorf("LevelForScore(%v) = %q; want %q", tc.score, got, tc.want)
		}
	}
}
