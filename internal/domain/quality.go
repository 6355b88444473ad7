package domain

import "time"

// Severity grades validation issues and alerts.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityWarning  Severity = "warning"
	SeverityHigh     Severity = "high"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Penalty is the score deduction applied for a validation issue of this severity.
func (s Severity) Penalty() float64 {
	switch s {
	case SeverityLow:
		return 0.1
	case SeverityMedium:
		return 0.2
	case SeverityHigh:
		return 0.3
	case SeverityCritical:
		return 0.5
	default:
		return 0
	}
}

// Rank orders alert severities; lower is more urgent.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 0
	case SeverityError, SeverityHigh:
		return 1
	case SeverityWarning, SeverityMedium:
		return 2
	case SeverityLow:
		return 3
	default:
		return 4
	}
}

// ValidationIssue is one problem found on an article candidate.
type ValidationIssue struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
}

// ValidationResult is the structured outcome of validating one article.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Issues []ValidationIssue `json:"issues"`
	Score  float64           `json:"score"`
}

// AlertType names the metric whose threshold was crossed.
type AlertType string

const (
	AlertSourceReliability AlertType = "sourceReliability"
	AlertContentFreshness  AlertType = "contentFreshness"
	AlertDuplication       AlertType = "duplicationRate"
	AlertValidation        AlertType = "validationRate"
	AlertEngagement        AlertType = "engagement"
	AlertLatency           AlertType = "fetchLatency"
)

// AlertTypes lists all alert types in their fixed reporting order.
var AlertTypes = []AlertType{
	AlertSourceReliability,
	AlertContentFreshness,
	AlertDuplication,
	AlertValidation,
	AlertEngagement,
	AlertLatency,
}

// QualityMetrics is recomputed once per monitoring tick and replaced wholesale.
type QualityMetrics struct {
	SourceReliability  map[string]float64 `json:"sourceReliability"`
	AverageContentAge  time.Duration      `json:"averageContentAge"`
	DuplicationRate    float64            `json:"duplicationRate"`
	ValidationPassRate float64            `json:"validationPassRate"`
	MeanEngagement     float64            `json:"meanEngagement"`
	MeanFetchLatency   time.Duration      `json:"meanFetchLatency"`
	ArticleCount       int                `json:"articleCount"`
	ComputedAt         time.Time          `json:"computedAt"`
}

// QualityAlert is appended when a metric crosses its threshold.
type QualityAlert struct {
	ID        string    `json:"id"`
	Type      AlertType `json:"type"`
	Severity  Severity  `json:"severity"`
	Subject   string    `json:"subject,omitempty"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"createdAt"`
	Resolved  bool      `json:"resolved"`
}

// Recommendation is a remediation suggestion derived from a breached threshold.
type Recommendation struct {
	Type     AlertType `json:"type"`
	Severity Severity  `json:"severity"`
	Priority int       `json:"priority"`
	Action   string    `json:"action"`
}

// QualityReport composes current metrics, alerts and ranked recommendations.
type QualityReport struct {
	Metrics         QualityMetrics        `json:"metrics"`
	SubScores       map[AlertType]float64 `json:"subScores"`
	OverallScore    float64               `json:"overallScore"`
	Recommendations []Recommendation      `json:"recommendations"`
	ActiveAlerts    []QualityAlert        `json:"activeAlerts"`
	GeneratedAt     time.Time             `json:"generatedAt"`
}
