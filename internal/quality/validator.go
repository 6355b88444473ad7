package quality

import (
	"fmt"
	"math"
	"strings"
	"time"

	"RingsideSync/internal/domain"
)

// Issue codes reported by the validator.
const (
	IssueMissingTitle = "missing_title"
	IssueMissingBody  = "missing_body"
	IssueFutureDate   = "future_date"
	IssueSpam         = "spam_keywords"
)

// DefaultSpamKeywords are matched case-insensitively against the body.
var DefaultSpamKeywords = []string{"click here", "buy now", "free money", "guaranteed"}

// Validator runs the independent per-article checks.
type Validator struct {
	spam []string
	now  func() time.Time
}

// NewValidator builds a validator; nil or empty spam uses DefaultSpamKeywords.
func NewValidator(spam []string) *Validator {
	if len(spam) == 0 {
		spam = DefaultSpamKeywords
	}
	lowered := make([]string, 0, len(spam))
	for _, kw := range spam {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			lowered = append(lowered, kw)
		}
	}
	return &Validator{spam: lowered, now: time.Now}
}

// Validate checks one article at the current time.
func (v *Validator) Validate(article domain.Article) domain.ValidationResult {
	return v.ValidateAt(article, v.now())
}

// ValidateAt checks one article relative to at.
func (v *Validator) ValidateAt(article domain.Article, at time.Time) domain.ValidationResult {
	var issues []domain.ValidationIssue

	if strings.TrimSpace(article.Title) == "" {
		issues = append(issues, domain.ValidationIssue{
			Code:     IssueMissingTitle,
			Severity: domain.SeverityHigh,
			Message:  "title is empty",
		})
	}
	if strings.TrimSpace(article.Body) == "" {
		issues = append(issues, domain.ValidationIssue{
			Code:     IssueMissingBody,
			Severity: domain.SeverityHigh,
			Message:  "body is empty",
		})
	}
	if article.PublishedAt.After(at) {
		issues = append(issues, domain.ValidationIssue{
			Code:     IssueFutureDate,
			Severity: domain.SeverityMedium,
			Message:  fmt.Sprintf("published %s in the future", article.PublishedAt.Sub(at).Round(time.Second)),
		})
	}
	if matches := v.spamMatches(article.Body); len(matches) > 0 {
		issues = append(issues, domain.ValidationIssue{
			Code:     IssueSpam,
			Severity: domain.SeverityHigh,
			Message:  "spam keywords: " + strings.Join(matches, ", "),
		})
	}

	return Evaluate(issues)
}

// Evaluate scores a set of issues: score is 1 minus the summed penalties, floored at 0,
// and the result is valid unless a high or critical issue is present.
func Evaluate(issues []domain.ValidationIssue) domain.ValidationResult {
	penalty := 0.0
	valid := true
	for _, issue := range issues {
		penalty += issue.Severity.Penalty()
		if issue.Severity == domain.SeverityHigh || issue.Severity == domain.SeverityCritical {
			valid = false
		}
	}
	score := math.Max(0, 1-penalty)
	return domain.ValidationResult{
		Valid:  valid,
		Issues: issues,
		Score:  math.Round(score*1000) / 1000,
	}
}

func (v *Validator) spamMatches(body string) []string {
	lowered := strings.ToLower(body)
	var matches []string
	for _, kw := range v.spam {
		if strings.Contains(lowered, kw) {
			matches = append(matches, kw)
		}
	}
	return matches
}
