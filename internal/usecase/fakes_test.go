package usecase

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
)

var clock = time.Date(2024, 10, 12, 12, 0, 0, 0, time.UTC)

func fixedNow() time.Time { return clock }

type fakeCollector struct {
	mu      sync.Mutex
	results map[domain.SyncDomain]ports.CollectResult
	calls   int32
}

func (c *fakeCollector) Collect(_ context.Context, d domain.SyncDomain) (ports.CollectResult, error) {
	atomic.AddInt32(&c.calls, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.results[d], nil
}

func (c *fakeCollector) set(d domain.SyncDomain, outcomes ...ports.SourceOutcome) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.results == nil {
		c.results = map[domain.SyncDomain]ports.CollectResult{}
	}
	c.results[d] = ports.CollectResult{Outcomes: outcomes}
}

type memCache struct {
	mu      sync.Mutex
	data    map[string][]byte
	expires map[string]*time.Time
}

func (c *memCache) Put(_ context.Context, key string, payload []byte, expiresAt *time.Time) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.data == nil {
		c.data = map[string][]byte{}
		c.expires = map[string]*time.Time{}
	}
	c.data[key] = append([]byte(nil), payload...)
	c.expires[key] = expiresAt
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

type recordingNotifier struct {
	mu  sync.Mutex
	ids []string
}

func (n *recordingNotifier) NotifyBreaking(_ context.Context, a domain.Article) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ids = append(n.ids, a.ID)
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.ids)
}

type statsLog struct {
	mu    sync.Mutex
	stats []domain.CycleStats
}

func (l *statsLog) RecordCycle(s domain.CycleStats) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.stats = append(l.stats, s)
}

func item(title, link string, age time.Duration) domain.RawFeedItem {
	return domain.RawFeedItem{
		Title:       title,
		Link:        link,
		PublishedAt: clock.Add(-age),
		Body:        "Details for " + title,
	}
}

func src(name string, tier domain.Tier) domain.Source {
	return domain.Source{Name: name, Tier: tier}
}

func ok(source domain.Source, items ...domain.RawFeedItem) ports.SourceOutcome {
	return ports.SourceOutcome{Source: source, Items: items}
}

func failed(source domain.Source) ports.SourceOutcome {
	return ports.SourceOutcome{Source: source, Err: domain.ErrTimeout.New("deadline exceeded")}
}

func testPolicies() map[domain.SyncDomain]DomainPolicy {
	return map[domain.SyncDomain]DomainPolicy{
		domain.DomainCritical:    {MaxAge: 24 * time.Hour, MinSuccessfulSources: 1},
		domain.DomainNews:        {MaxAge: 24 * time.Hour, MinSuccessfulSources: 1},
		domain.DomainRoster:      {MaxAge: 24 * time.Hour, MinSuccessfulSources: 1},
		domain.DomainMerchandise: {MaxAge: time.Hour, MinSuccessfulSources: 1},
	}
}

func testMaxAges() map[domain.SyncDomain]time.Duration {
	out := map[domain.SyncDomain]time.Duration{}
	for d, p := range testPolicies() {
		out[d] = p.MaxAge
	}
	return out
}
