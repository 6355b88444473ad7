package quality

import (
	"math"
	"sort"
	"strings"

	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
)

var remediation = map[domain.AlertType]string{
	domain.AlertSourceReliability: "Review or demote low-reliability sources: ",
	domain.AlertContentFreshness:  "Increase refresh cadence or add fresher sources.",
	domain.AlertDuplication:       "Trim overlapping sources or tighten syndication filters.",
	domain.AlertValidation:        "Inspect failing sources for empty fields and spam content.",
	domain.AlertEngagement:        "Promote higher-interest stories and review categorization.",
	domain.AlertLatency:           "Raise fetch timeouts or drop slow endpoints.",
}

// GenerateReport composes the latest metrics, active alerts and ranked recommendations.
func (m *Monitor) GenerateReport() domain.QualityReport {
	snapshot := m.Metrics()
	scores := subScores(snapshot, m.cfg.Thresholds)
	return domain.QualityReport{
		Metrics:         snapshot,
		SubScores:       scores,
		OverallScore:    overall(scores),
		Recommendations: recommend(evaluate(snapshot, m.cfg.Thresholds)),
		ActiveAlerts:    m.Alerts(true),
		GeneratedAt:     m.now(),
	}
}

// subScores normalizes every dimension into [0,1], 1 being healthy.
func subScores(s domain.QualityMetrics, t config.Thresholds) map[domain.AlertType]float64 {
	scores := make(map[domain.AlertType]float64, len(domain.AlertTypes))

	reliability := 1.0
	if len(s.SourceReliability) > 0 {
		sum := 0.0
		for _, v := range s.SourceReliability {
			sum += v
		}
		reliability = sum / float64(len(s.SourceReliability))
	}
	scores[domain.AlertSourceReliability] = clamp(reliability)

	freshness := 1.0
	if s.ArticleCount > 0 && t.MaxContentAge > 0 {
		freshness = 1 - float64(s.AverageContentAge)/float64(2*t.MaxContentAge)
	}
	scores[domain.AlertContentFreshness] = clamp(freshness)

	scores[domain.AlertDuplication] = clamp(1 - s.DuplicationRate)
	scores[domain.AlertValidation] = clamp(s.ValidationPassRate)

	engagement := 1.0
	if s.ArticleCount > 0 {
		engagement = s.MeanEngagement
	}
	scores[domain.AlertEngagement] = clamp(engagement)

	latency := 1.0
	if s.MeanFetchLatency > 0 && t.MaxFetchLatency > 0 {
		latency = float64(t.MaxFetchLatency) / float64(s.MeanFetchLatency)
	}
	scores[domain.AlertLatency] = clamp(latency)

	return scores
}

// overall is the unweighted mean of the six sub-scores.
func overall(scores map[domain.AlertType]float64) float64 {
	sum := 0.0
	for _, kind := range domain.AlertTypes {
		sum += scores[kind]
	}
	return math.Round(sum/float64(len(domain.AlertTypes))*1000) / 1000
}

// recommend emits one recommendation per breached type, most severe first.
func recommend(found []breach) []domain.Recommendation {
	subjects := map[domain.AlertType][]string{}
	var kinds []domain.AlertType
	for _, b := range found {
		if _, ok := subjects[b.Type]; !ok {
			kinds = append(kinds, b.Type)
			subjects[b.Type] = nil
		}
		if b.Subject != "" {
			subjects[b.Type] = append(subjects[b.Type], b.Subject)
		}
	}

	order := make(map[domain.AlertType]int, len(domain.AlertTypes))
	for i, kind := range domain.AlertTypes {
		order[kind] = i
	}
	sort.SliceStable(kinds, func(i, j int) bool {
		ri, rj := thresholdSeverity[kinds[i]].Rank(), thresholdSeverity[kinds[j]].Rank()
		if ri != rj {
			return ri < rj
		}
		return order[kinds[i]] < order[kinds[j]]
	})

	out := make([]domain.Recommendation, 0, len(kinds))
	for i, kind := range kinds {
		action := remediation[kind]
		if kind == domain.AlertSourceReliability {
			action += strings.Join(subjects[kind], ", ")
		}
		out = append(out, domain.Recommendation{
			Type:     kind,
			Severity: thresholdSeverity[kind],
			Priority: i + 1,
			Action:   action,
		})
	}
	return out
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

