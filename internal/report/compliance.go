package report

import (
	"time"

	"github.com/gateguard/gateguard/internal/models"
	"github.com/gateguard/gateguard/internal/scoring"
)

// Compliance thresholds. Component checks pass at half marks because a
// partially effective control still counts as configured.
const (
	minPassingComponentScore = 50.0
	maxCompliantErrorRate    = 5.0
	minAcceptableTotalScore  = 60.0
)

// BuildComplianceReport evaluates the fixed control set against every scored
// assessment. Every control is checked for every API, so the overall
// percentage is passed checks over five times the fleet size.
func BuildComplianceReport(assessments []*models.Assessment) *models.ComplianceReport {
	checks := []models.ComplianceCheck{
		{ID: "authentication_required", Name: "Authentication Required"},
		{ID: "ip_whitelist_configured", Name: "IP Whitelist Configured"},
		{ID: "throttling_enabled", Name: "Throttling Enabled"},
		{ID: "low_error_rate", Name: "Error Rate < 5%"},
		{ID: "security_score_acceptable", Name: "Security Score >= 60"},
	}

	scored := withScores(assessments)
	for _, a := range scored {
		components := a.Score.ComponentScores
		var errorRate float64
		if a.TrafficStats != nil {
			errorRate = a.TrafficStats.ErrorRate
		}

		record(&checks[0], a.APIName, components[scoring.ComponentAuthentication] >= minPassingComponentScore)
		record(&checks[1], a.APIName, components[scoring.ComponentIPWhitelist] >= minPassingComponentScore)
		record(&checks[2], a.APIName, components[scoring.ComponentThrottling] >= minPassingComponentScore)
		record(&checks[3], a.APIName, errorRate < maxCompliantErrorRate)
		record(&checks[4], a.APIName, a.Score.TotalScore >= minAcceptableTotalScore)
	}

	report := &models.ComplianceReport{
		GeneratedAt: time.Now().UTC(),
		TotalAPIs:   len(scored),
		Checks:      checks,
		TotalChecks: len(checks) * len(scored),
	}
	for _, c := range checks {
		report.TotalPassed += c.Passed
	}
	report.TotalFailed = report.TotalChecks - report.TotalPassed
	if report.TotalChecks > 0 {
		report.CompliancePercentage = round2(float64(report.TotalPassed) / float64(report.TotalChecks) * 100)
	}
	return report
}

func record(check *models.ComplianceCheck, apiName string, passed bool) {
	if passed {
		check.Passed++
		return
	}
	check.Failed++
	check.APIsFailed = append(check.APIsFailed, apiName)
}
