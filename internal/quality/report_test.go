package quality

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
)

func TestReportRanksRecommendationsBySeverity(t *testing.T) {
	t.Parallel()

	stale := freshArticles(2, 0)
	for i := range stale {
		stale[i].PublishedAt = tickTime.Add(-36 * time.Hour)
	}
	m := newMonitor(t, func(d *MonitorDeps) {
		d.View = staticView{articles: stale}
		d.Reliability = map[string]float64{"sheet": 0.6, "blog": 0.7, "wire": 0.9}
	})
	m.RecordCycle(domain.CycleStats{Domain: domain.DomainNews, Parsed: 10, Duplicates: 5, Validated: 5, Valid: 5})
	m.RecordLatency("wire", 10*time.Second)
	m.Tick(context.Background(), tickTime)

	report := m.GenerateReport()

	var kinds []domain.AlertType
	for i, rec := range report.Recommendations {
		kinds = append(kinds, rec.Type)
		require.Equal(t, i+1, rec.Priority)
	}
	require.Equal(t, []domain.AlertType{
		domain.AlertDuplication,
		domain.AlertSourceReliability,
		domain.AlertContentFreshness,
		domain.AlertLatency,
		domain.AlertEngagement,
	}, kinds)
	require.Contains(t, report.Recommendations[1].Action, "blog, sheet")
	require.Len(t, report.ActiveAlerts, 6)
}

func TestSubScoresAndOverall(t *testing.T) {
	t.Parallel()

	th := config.Default().Quality.Thresholds
	snapshot := domain.QualityMetrics{
		SourceReliability:  map[string]float64{"a": 1, "b": 0.5},
		AverageContentAge:  th.MaxContentAge,
		DuplicationRate:    0.2,
		ValidationPassRate: 0.9,
		MeanEngagement:     3,
		MeanFetchLatency:   2 * th.MaxFetchLatency,
		ArticleCount:       5,
	}
	scores := subScores(snapshot, th)

	require.InDelta(t, 0.75, scores[domain.AlertSourceReliability], 1e-9)
	require.InDelta(t, 0.5, scores[domain.AlertContentFreshness], 1e-9)
	require.InDelta(t, 0.8, scores[domain.AlertDuplication], 1e-9)
	require.InDelta(t, 0.9, scores[domain.AlertValidation], 1e-9)
	require.InDelta(t, 1.0, scores[domain.AlertEngagement], 1e-9)
	require.InDelta(t, 0.5, scores[domain.AlertLatency], 1e-9)
	require.InDelta(t, 0.742, overall(scores), 1e-9)
}

func TestEmptyFleetScoresPerfect(t *testing.T) {
	t.Parallel()

	th := config.Default().Quality.Thresholds
	scores := subScores(domain.QualityMetrics{ValidationPassRate: 1}, th)
	require.Equal(t, 1.0, overall(scores))
}
