package quality

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RingsideSync/internal/config"
	"RingsideSync/internal/domain"
)

var tickTime = time.Date(2024, 10, 12, 12, 0, 0, 0, time.UTC)

type staticView struct{ articles []domain.Article }

func (v staticView) Published() []domain.Article { return v.articles }

type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func (c *memCache) Put(_ context.Context, key string, payload []byte, _ *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
	}
	c.data[key] = append([]byte(nil), payload...)
	return nil
}

func (c *memCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.data[key]
	return v, ok, nil
}

func (c *memCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Close() error { return nil }

type stubFeed struct {
	scores map[string]float64
	err    error
}

func (f stubFeed) FetchReliability(context.Context) (map[string]float64, error) {
	return f.scores, f.err
}

func freshArticles(n int, interactions int64) []domain.Article {
	out := make([]domain.Article, n)
	for i := range out {
		out[i] = domain.Article{
			Title:       "t",
			PublishedAt: tickTime.Add(-time.Hour),
			Engagement:  domain.Engagement{Likes: interactions},
		}
	}
	return out
}

func newMonitor(t *testing.T, mutate func(*MonitorDeps)) *Monitor {
	t.Helper()
	deps := MonitorDeps{
		Config:      config.Default().Quality,
		Reliability: map[string]float64{"wire": 0.95, "sheet": 0.9},
		View:        staticView{articles: freshArticles(3, 2)},
		Now:         func() time.Time { return tickTime },
	}
	if mutate != nil {
		mutate(&deps)
	}
	return NewMonitor(deps)
}

func TestLowReliabilitySourceRaisesOneWarning(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) {
		d.Reliability = map[string]float64{"wire": 0.95, "sheet": 0.65, "blog": 0.85}
	})
	m.Tick(context.Background(), tickTime)

	alerts := m.Alerts(false)
	require.Len(t, alerts, 1)
	require.Equal(t, domain.AlertSourceReliability, alerts[0].Type)
	require.Equal(t, domain.SeverityWarning, alerts[0].Severity)
	require.Equal(t, "sheet", alerts[0].Subject)
	require.NotEmpty(t, alerts[0].ID)
}

func TestHealthyFleetRaisesNothing(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, nil)
	snapshot := m.Tick(context.Background(), tickTime)

	require.Empty(t, m.Alerts(false))
	require.Equal(t, 3, snapshot.ArticleCount)
	require.Equal(t, time.Hour, snapshot.AverageContentAge)
	require.InDelta(t, 2.0, snapshot.MeanEngagement, 1e-9)
	require.Equal(t, 1.0, snapshot.ValidationPassRate)
}

func TestRatesUseProcessedDenominators(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, nil)
	m.RecordCycle(domain.CycleStats{Domain: domain.DomainNews, Parsed: 70, Duplicates: 14, Validated: 56, Valid: 49})
	m.RecordCycle(domain.CycleStats{Domain: domain.DomainCritical, Parsed: 10, Duplicates: 0, Validated: 10, Valid: 10})

	snapshot := m.Tick(context.Background(), tickTime)
	require.InDelta(t, 14.0/80.0, snapshot.DuplicationRate, 1e-9)
	require.InDelta(t, 59.0/66.0, snapshot.ValidationPassRate, 1e-9)

	var kinds []domain.AlertType
	for _, a := range m.Alerts(false) {
		kinds = append(kinds, a.Type)
		require.Equal(t, domain.SeverityError, a.Severity)
	}
	require.Equal(t, []domain.AlertType{domain.AlertDuplication, domain.AlertValidation}, kinds)
}

func TestLevelTriggeredRepeatsEveryTick(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) { d.Reliability = map[string]float64{"sheet": 0.5} })
	m.Tick(context.Background(), tickTime)
	m.Tick(context.Background(), tickTime.Add(time.Minute))

	require.Len(t, m.Alerts(false), 2)
}

func TestEdgeTriggeredFiresOnStateChange(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) {
		d.Config.EdgeTriggered = true
		d.Reliability = map[string]float64{"sheet": 0.5}
	})
	ctx := context.Background()

	m.Tick(ctx, tickTime)
	m.Tick(ctx, tickTime.Add(time.Minute))
	alerts := m.Alerts(false)
	require.Len(t, alerts, 1)

	require.NoError(t, m.Resolve(alerts[0].ID))
	require.Empty(t, m.Alerts(true))

	m.Tick(ctx, tickTime.Add(2*time.Minute))
	require.Len(t, m.Alerts(true), 1)

	require.NoError(t, m.SetReliability("sheet", 0.9))
	m.Tick(ctx, tickTime.Add(3*time.Minute))
	require.NoError(t, m.SetReliability("sheet", 0.5))
	m.Tick(ctx, tickTime.Add(4*time.Minute))
	require.Len(t, m.Alerts(true), 2)
}

func TestAlertsArePrunedAfterRetention(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) {
		d.Reliability = map[string]float64{"sheet": 0.5}
		d.View = staticView{}
	})
	ctx := context.Background()

	m.Tick(ctx, tickTime)
	require.Len(t, m.Alerts(false), 1)
	require.NoError(t, m.SetReliability("sheet", 0.99))
	m.Tick(ctx, tickTime.Add(31*24*time.Hour))

	require.Empty(t, m.Alerts(false))
}

func TestEngagementAndLatencyBreaches(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) { d.View = staticView{articles: freshArticles(4, 0)} })
	m.RecordLatency("wire", 8*time.Second)
	m.RecordLatency("sheet", 6*time.Second)

	snapshot := m.Tick(context.Background(), tickTime)
	require.Equal(t, 7*time.Second, snapshot.MeanFetchLatency)

	severities := map[domain.AlertType]domain.Severity{}
	for _, a := range m.Alerts(false) {
		severities[a.Type] = a.Severity
	}
	require.Equal(t, map[domain.AlertType]domain.Severity{
		domain.AlertEngagement: domain.SeverityInfo,
		domain.AlertLatency:    domain.SeverityWarning,
	}, severities)
}

func TestLatencyWindowIsBounded(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, nil)
	for i := 0; i < latencyWindow; i++ {
		m.RecordLatency("wire", 10*time.Second)
	}
	for i := 0; i < latencyWindow; i++ {
		m.RecordLatency("wire", time.Second)
	}
	require.Len(t, m.latencies, latencyWindow)
	require.Equal(t, time.Second, m.Tick(context.Background(), tickTime).MeanFetchLatency)
}

func TestReliabilityFeedUpdatesScores(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) {
		d.Feed = stubFeed{scores: map[string]float64{"wire": 0.4, "bogus": 7}}
	})
	snapshot := m.Tick(context.Background(), tickTime)
	require.Equal(t, 0.4, snapshot.SourceReliability["wire"])
	require.NotContains(t, snapshot.SourceReliability, "bogus")

	failing := newMonitor(t, func(d *MonitorDeps) { d.Feed = stubFeed{err: errors.New("down")} })
	require.Equal(t, 0.95, failing.Tick(context.Background(), tickTime).SourceReliability["wire"])
}

func TestPersistAndRestore(t *testing.T) {
	t.Parallel()

	cache := &memCache{}
	m := newMonitor(t, func(d *MonitorDeps) {
		d.Cache = cache
		d.Reliability = map[string]float64{"sheet": 0.5}
	})
	m.Tick(context.Background(), tickTime)

	_, ok, _ := cache.Get(context.Background(), MetricsKey)
	require.True(t, ok)

	restored := newMonitor(t, func(d *MonitorDeps) { d.Cache = cache })
	require.NoError(t, restored.Restore(context.Background()))
	require.Len(t, restored.Alerts(false), 1)
	require.Equal(t, 0.5, restored.Metrics().SourceReliability["sheet"])
}

func TestResolveUnknownAlert(t *testing.T) {
	t.Parallel()

	require.ErrorIs(t, newMonitor(t, nil).Resolve("missing"), ErrAlertNotFound)
	require.Error(t, newMonitor(t, nil).SetReliability("wire", 1.5))
}

func TestArticlesInSeveralDomainsCountOnce(t *testing.T) {
	t.Parallel()

	m := newMonitor(t, func(d *MonitorDeps) {
		d.View = staticView{articles: []domain.Article{
			{ID: "x", PublishedAt: tickTime.Add(-time.Hour), Engagement: domain.Engagement{Likes: 1}},
			{ID: "y", PublishedAt: tickTime.Add(-time.Hour), Engagement: domain.Engagement{Likes: 2}},
			{ID: "x", PublishedAt: tickTime.Add(-time.Hour), Engagement: domain.Engagement{Likes: 5}},
		}}
	})

	snapshot := m.Tick(context.Background(), tickTime)
	require.Equal(t, 2, snapshot.ArticleCount)
	require.InDelta(t, 3.5, snapshot.MeanEngagement, 1e-9)
}
