// Package report builds fleet-wide rollups from individual API assessments:
// the executive summary and the compliance report.
package report

import (
	"math"
	"time"

	"github.com/gateguard/gateguard/internal/models"
)

// topIssueLimit caps the per-severity issue lists in the executive summary.
const topIssueLimit = 10

// BuildExecutiveSummary folds a batch of assessments into the
// organization-wide posture report. Coverage carries the configuration-store
// policy statistics through unchanged. Assessments without a score are
// ignored.
func BuildExecutiveSummary(coverage models.PolicyStatistics, assessments []*models.Assessment) *models.ExecutiveSummary {
	scored := withScores(assessments)

	summary := &models.ExecutiveSummary{
		GeneratedAt:  time.Now().UTC(),
		TotalAPIs:    coverage.TotalAPIs,
		AssessedAPIs: len(scored),
		Coverage:     coverage,
		Categories:   make(map[string]models.CategorySummary),
	}

	var scoreSum float64
	var issues []models.IssueRef
	for _, a := range scored {
		scoreSum += a.Score.TotalScore
		countLevel(&summary.APIsByLevel, a.Score.SecurityLevel)
		for _, rec := range a.Score.Recommendations {
			issues = append(issues, models.IssueRef{APIName: a.APIName, Recommendation: rec})
		}
	}
	if len(scored) > 0 {
		summary.AverageSecurityScore = round2(scoreSum / float64(len(scored)))
	}

	summary.TotalRecommendations = len(issues)
	for _, issue := range issues {
		switch issue.Severity {
		case models.SeverityCritical:
			summary.CriticalIssues++
			appendCapped(&summary.TopIssues.Critical, issue)
		case models.SeverityHigh:
			summary.HighPriorityIssues++
			appendCapped(&summary.TopIssues.High, issue)
		case models.SeverityMedium:
			appendCapped(&summary.TopIssues.Medium, issue)
		}
		bumpCategory(summary.Categories, issue)
	}
	return summary
}

// withScores filters out assessments that carry no score. They cannot
// participate in any rollup.
func withScores(assessments []*models.Assessment) []*models.Assessment {
	scored := make([]*models.Assessment, 0, len(assessments))
	for _, a := range assessments {
		if a != nil && a.Score != nil {
			scored = append(scored, a)
		}
	}
	return scored
}

func countLevel(counts *models.LevelCounts, level models.SecurityLevel) {
	switch level {
	case models.LevelExcellent:
		counts.Excellent++
	case models.LevelGood:
		counts.Good++
	case models.LevelFair:
		counts.Fair++
	case models.LevelPoor:
		counts.Poor++
	case models.LevelCritical:
		counts.Critical++
	}
}

// appendCapped keeps the first topIssueLimit issues; assessments arrive in
// fleet order, so earlier APIs win the cut.
func appendCapped(list *[]models.IssueRef, issue models.IssueRef) {
	if len(*list) < topIssueLimit {
		*list = append(*list, issue)
	}
}

func bumpCategory(categories map[string]models.CategorySummary, issue models.IssueRef) {
	category := issue.Category
	if category == "" {
		category = "other"
	}
	entry := categories[category]
	entry.Count++
	switch issue.Severity {
	case models.SeverityCritical:
		entry.Critical++
	case models.SeverityHigh:
		entry.High++
	case models.SeverityMedium:
		entry.Medium++
	default:
		entry.Low++
	}
	categories[category] = entry
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
