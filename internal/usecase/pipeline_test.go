package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"RingsideSync/internal/dedup"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
)

type pipelineFixture struct {
	collector *fakeCollector
	cache     *memCache
	notifier  *recordingNotifier
	stats     *statsLog
	view      *View
	pipeline  *Pipeline
}

func newPipelineFixture(t *testing.T) *pipelineFixture {
	t.Helper()
	f := &pipelineFixture{
		collector: &fakeCollector{},
		cache:     &memCache{},
		notifier:  &recordingNotifier{},
		stats:     &statsLog{},
		view:      NewView(testMaxAges(), fixedNow),
	}
	f.pipeline = NewPipeline(PipelineDeps{
		Collector: f.collector,
		View:      f.view,
		Cache:     f.cache,
		Notifier:  f.notifier,
		Recorder:  f.stats,
		Policies:  testPolicies(),
		Now:       fixedNow,
	})
	return f
}

func TestSyncKeepsTier1CopyOfDuplicate(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.collector.set(domain.DomainNews,
		ok(src("dirtsheet", domain.Tier2), item("BREAKING:  Title Change At Event!!", "https://sheet.example.com/1", time.Hour)),
		ok(src("wire", domain.Tier1), item("Breaking: Title Change at Event", "https://wire.example.com/1", time.Hour)),
	)

	stats, err := f.pipeline.SyncDomain(context.Background(), domain.DomainNews)
	require.NoError(t, err)
	require.Equal(t, 1, stats.Duplicates)

	published := f.view.Articles(domain.DomainNews)
	require.Len(t, published, 1)
	require.Equal(t, "wire", published[0].Source)
	require.True(t, published[0].Verified)
	require.True(t, published[0].Breaking)
	require.Equal(t, domain.CategoryBreaking, published[0].Category)
	require.Equal(t, ArticleID("https://wire.example.com/1"), published[0].ID)
}

func TestSyncPublishesSurvivingSourcesWhenSomeTimeOut(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	var outcomes []ports.SourceOutcome
	for i := 0; i < 10; i++ {
		s := src(fmt.Sprintf("source-%d", i), domain.Tier2)
		if i < 3 {
			outcomes = append(outcomes, failed(s))
			continue
		}
		outcomes = append(outcomes, ok(s,
			item(fmt.Sprintf("Story %d", i), fmt.Sprintf("https://s%d.example.com/a", i), time.Duration(i)*time.Minute)))
	}
	spam := item("Win tickets", "https://s9.example.com/spam", time.Minute)
	spam.Body = "Click here for free money"
	outcomes[9].Items = append(outcomes[9].Items, spam)
	f.collector.set(domain.DomainNews, outcomes...)

	stats, err := f.pipeline.SyncDomain(context.Background(), domain.DomainNews)
	require.NoError(t, err)

	require.Equal(t, 10, stats.SourcesTotal)
	require.Equal(t, 3, stats.SourcesFailed)
	require.Equal(t, 8, stats.Parsed)
	require.Equal(t, 8, stats.Validated)
	require.Equal(t, 7, stats.Valid)
	require.Equal(t, 7, stats.Published)
	require.Len(t, f.view.Articles(domain.DomainNews), 7)
	require.Len(t, f.stats.stats, 1)

	published := f.view.Articles(domain.DomainNews)
	for i := 1; i < len(published); i++ {
		require.False(t, published[i].PublishedAt.After(published[i-1].PublishedAt))
	}
}

func TestSyncBelowMinimumKeepsPreviousView(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.collector.set(domain.DomainNews, ok(src("wire", domain.Tier1), item("Old story", "https://wire.example.com/old", time.Hour)))
	_, err := f.pipeline.SyncDomain(context.Background(), domain.DomainNews)
	require.NoError(t, err)

	f.collector.set(domain.DomainNews, failed(src("wire", domain.Tier1)), failed(src("sheet", domain.Tier2)))
	_, err = f.pipeline.SyncDomain(context.Background(), domain.DomainNews)
	require.Error(t, err)
	require.True(t, domain.ErrDomainSync.Has(err))

	published := f.view.Articles(domain.DomainNews)
	require.Len(t, published, 1)
	require.Equal(t, "Old story", published[0].Title)
}

func TestSyncPersistsSnapshotWithExpiry(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.collector.set(domain.DomainMerchandise, ok(src("shop", domain.Tier2), item("New shirt", "https://shop.example.com/1", time.Minute)))

	_, err := f.pipeline.SyncDomain(context.Background(), domain.DomainMerchandise)
	require.NoError(t, err)

	raw, found, err := f.cache.Get(context.Background(), SnapshotKey(domain.DomainMerchandise))
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, f.cache.expires[SnapshotKey(domain.DomainMerchandise)].Equal(clock.Add(time.Hour)))

	var snapshot domain.Snapshot
	require.NoError(t, json.Unmarshal(raw, &snapshot))
	require.Len(t, snapshot.Articles, 1)
}

func TestBreakingNotifiedOncePerArticle(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.collector.set(domain.DomainCritical,
		ok(src("wire", domain.Tier1),
			item("Breaking: champion injured", "https://wire.example.com/b1", time.Minute),
			item("Weekly preview", "https://wire.example.com/p1", time.Minute)))

	ctx := context.Background()
	_, err := f.pipeline.SyncDomain(ctx, domain.DomainCritical)
	require.NoError(t, err)
	f.pipeline.Wait()
	require.Equal(t, 1, f.notifier.count())

	_, err = f.pipeline.SyncDomain(ctx, domain.DomainCritical)
	require.NoError(t, err)
	f.pipeline.Wait()
	require.Equal(t, 1, f.notifier.count())

	f.collector.set(domain.DomainCritical,
		ok(src("wire", domain.Tier1), item("Just in: new match signed for Sunday", "https://wire.example.com/b2", 0)))
	_, err = f.pipeline.SyncDomain(ctx, domain.DomainCritical)
	require.NoError(t, err)
	f.pipeline.Wait()
	require.Equal(t, 2, f.notifier.count())
}

func TestEngagementCarriesAcrossCycles(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	f.collector.set(domain.DomainNews, ok(src("wire", domain.Tier1), item("Story", "https://wire.example.com/s", time.Minute)))

	ctx := context.Background()
	_, err := f.pipeline.SyncDomain(ctx, domain.DomainNews)
	require.NoError(t, err)

	id := ArticleID("https://wire.example.com/s")
	_, err = f.view.AddEngagement(domain.DomainNews, id, domain.Engagement{Likes: 4})
	require.NoError(t, err)

	_, err = f.pipeline.SyncDomain(ctx, domain.DomainNews)
	require.NoError(t, err)
	require.Equal(t, int64(4), f.view.Articles(domain.DomainNews)[0].Engagement.Likes)
}

func TestRestoreSkipsExpiredSnapshots(t *testing.T) {
	t.Parallel()

	cache := &memCache{}
	put := func(s domain.Snapshot) {
		raw, err := json.Marshal(s)
		require.NoError(t, err)
		require.NoError(t, cache.Put(context.Background(), SnapshotKey(s.Domain), raw, nil))
	}
	put(domain.Snapshot{Domain: domain.DomainNews, SyncedAt: clock.Add(-2 * time.Hour),
		Articles: []domain.Article{{ID: "n1", Title: "kept", Breaking: true}}})
	put(domain.Snapshot{Domain: domain.DomainMerchandise, SyncedAt: clock.Add(-2 * time.Hour),
		Articles: []domain.Article{{ID: "m1", Title: "stale"}}})

	view := NewView(testMaxAges(), fixedNow)
	p := NewPipeline(PipelineDeps{View: view, Cache: cache, Policies: testPolicies(), Now: fixedNow})

	restored := p.Restore(context.Background())
	require.Len(t, restored, 1)
	require.True(t, restored[domain.DomainNews].Equal(clock.Add(-2*time.Hour)))
	require.Len(t, view.Articles(domain.DomainNews), 1)
	require.Empty(t, view.Articles(domain.DomainMerchandise))
	require.Contains(t, p.notified, "n1")
}

func TestPublishedViewHasDistinctNormalizedTitles(t *testing.T) {
	t.Parallel()

	f := newPipelineFixture(t)
	titles := []string{"Main Event Set", "main event set!!", "MAIN-EVENT SET", "Tag titles", "tag Titles?"}
	var outcomes []ports.SourceOutcome
	for i, title := range titles {
		outcomes = append(outcomes, ok(src(fmt.Sprintf("s%d", i), domain.Tier2),
			item(title, fmt.Sprintf("https://s%d.example.com/x", i), time.Minute)))
	}
	f.collector.set(domain.DomainNews, outcomes...)

	_, err := f.pipeline.SyncDomain(context.Background(), domain.DomainNews)
	require.NoError(t, err)

	seen := map[string]bool{}
	for _, a := range f.view.Articles(domain.DomainNews) {
		key := dedup.Normalize(a.Title)
		require.False(t, seen[key])
		seen[key] = true
	}
	require.Len(t, seen, 2)
}
