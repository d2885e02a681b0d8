package models

import "time"

// DateRange is the observation window of an assessment.
type DateRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Assessment is the complete security assessment of one API: its
// configuration snapshot, the traffic profile for the window, and the score
// derived from both.
type Assessment struct {
	ReportID      string             `json:"report_id"`
	GeneratedAt   time.Time          `json:"generated_at"`
	APIID         string             `json:"api_id"`
	APIName       string             `json:"api_name"`
	DateRange     DateRange          `json:"date_range"`
	Elasticsearch string             `json:"elasticsearch,omitempty"`
	Score         *ScoreReport       `json:"score"`
	TrafficStats  *TrafficStats      `json:"traffic_stats"`
	Policies      PolicySet          `json:"policies"`
	ClientSSL     SSLSummary         `json:"client_ssl"`
	BackendSSL    SSLSummary         `json:"backend_ssl"`
	Logs          LogSettings        `json:"logs_enabled"`
	Weights       map[string]float64 `json:"weights,omitempty"`
}

// IssueRef is a recommendation annotated with the API it belongs to, used in
// fleet-wide rollups.
type IssueRef struct {
	APIName string `json:"api_name"`
	Recommendation
}

// LevelCounts breaks a fleet down by security level.
type LevelCounts struct {
	Excellent int `json:"excellent"`
	Good      int `json:"good"`
	Fair      int `json:"fair"`
	Poor      int `json:"poor"`
	Critical  int `json:"critical"`
}

// TopIssues holds the highest-priority recommendations across the fleet,
// capped per severity.
type TopIssues struct {
	Critical []IssueRef `json:"critical"`
	High     []IssueRef `json:"high"`
	Medium   []IssueRef `json:"medium"`
}

// CategorySummary counts recommendations of one category by severity.
type CategorySummary struct {
	Count    int `json:"count"`
	Critical int `json:"critical"`
	High     int `json:"high"`
	Medium   int `json:"medium"`
	Low      int `json:"low"`
}

// ExecutiveSummary is the organization-wide security posture report built
// from a batch of assessments.
type ExecutiveSummary struct {
	GeneratedAt          time.Time                  `json:"generated_at"`
	TotalAPIs            int                        `json:"total_apis"`
	AssessedAPIs         int                        `json:"assessed_apis"`
	AverageSecurityScore float64                    `json:"average_security_score"`
	APIsByLevel          LevelCounts                `json:"apis_by_level"`
	TotalRecommendations int                        `json:"total_recommendations"`
	CriticalIssues       int                        `json:"critical_issues"`
	HighPriorityIssues   int                        `json:"high_priority_issues"`
	TopIssues            TopIssues                  `json:"top_issues"`
	Coverage             PolicyStatistics           `json:"security_coverage"`
	Categories           map[string]CategorySummary `json:"recommendations_summary"`
}

// ComplianceCheck is one pass/fail control evaluated against every assessed
// API.
type ComplianceCheck struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	Passed     int      `json:"passed"`
	Failed     int      `json:"failed"`
	APIsFailed []string `json:"apis_failed"`
}

// ComplianceReport aggregates the fixed control set across the fleet.
type ComplianceReport struct {
	GeneratedAt          time.Time         `json:"generated_at"`
	TotalAPIs            int               `json:"total_apis"`
	Checks               []ComplianceCheck `json:"checks"`
	TotalChecks          int               `json:"total_checks"`
	TotalPassed          int               `json:"passed"`
	TotalFailed          int               `json:"failed"`
	CompliancePercentage float64           `json:"compliance_percentage"`
}
