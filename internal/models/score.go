package models

import "time"

// Severity ranks a recommendation by urgency.
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityHigh     Severity = "high"
	SeverityMedium   Severity = "medium"
	SeverityLow      Severity = "low"
)

// SecurityLevel is the qualitative label derived from a weighted total score.
type SecurityLevel string

const (
	LevelExcellent SecurityLevel = "Excellent"
	LevelGood      SecurityLevel = "Good"
	LevelFair      SecurityLevel = "Fair"
	LevelPoor      SecurityLevel = "Poor"
	LevelCritical  SecurityLevel = "Critical"
)

// Recommendation is one concrete hardening suggestion produced by a score
// component.
type Recommendation struct {
	Severity Severity `json:"severity"`
	Category string   `json:"category"`
	Message  string   `json:"message"`
	Action   string   `json:"action"`
}

// ScoreReport is the outcome of scoring one API: the weighted total on a
// 0-100 scale, its level, every component's raw score and the ordered
// recommendations.
type ScoreReport struct {
	TotalScore      float64            `json:"total_score"`
	SecurityLevel   SecurityLevel      `json:"security_level"`
	ComponentScores map[string]float64 `json:"component_scores"`
	Recommendations []Recommendation   `json:"recommendations"`
	CalculatedAt    time.Time          `json:"calculated_at"`
}
