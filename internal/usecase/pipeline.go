package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"RingsideSync/internal/classifier"
	"RingsideSync/internal/dedup"
	"RingsideSync/internal/domain"
	"RingsideSync/internal/metrics"
	"RingsideSync/internal/ports"
	"RingsideSync/internal/quality"
)

const (
	snapshotKeyPrefix = "snapshot:"
	notifyTimeout     = 10 * time.Second
	notifiedRetention = 72 * time.Hour
)

// DomainPolicy is the per-domain publication policy.
type DomainPolicy struct {
	MaxAge               time.Duration
	MinSuccessfulSources int
}

// CycleRecorder receives the stats of every successful domain sync.
type CycleRecorder interface {
	RecordCycle(stats domain.CycleStats)
}

// PipelineDeps wires all driven adapters into the ingestion pipeline.
type PipelineDeps struct {
	Collector  ports.DomainCollector
	Classifier *classifier.Classifier
	Validator  *quality.Validator
	View       *View
	Cache      ports.CacheStore
	Archive    ports.ArticleArchive
	Notifier   ports.Notifier
	Recorder   CycleRecorder
	Policies   map[domain.SyncDomain]DomainPolicy
	Logger     *slog.Logger
	Now        func() time.Time
}

// Pipeline implements one domain's fetch → classify → dedup → validate → publish cycle.
type Pipeline struct {
	collector  ports.DomainCollector
	classifier *classifier.Classifier
	validator  *quality.Validator
	view       *View
	cache      ports.CacheStore
	archive    ports.ArticleArchive
	notifier   ports.Notifier
	recorder   CycleRecorder
	policies   map[domain.SyncDomain]DomainPolicy
	logger     *slog.Logger
	now        func() time.Time

	notifyMu sync.Mutex
	notified map[string]time.Time
	inflight sync.WaitGroup
}

// NewPipeline constructs the ingestion component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	cls := deps.Classifier
	if cls == nil {
		cls = classifier.New(classifier.DefaultConfig())
	}
	validator := deps.Validator
	if validator == nil {
		validator = quality.NewValidator(nil)
	}
	return &Pipeline{
		collector:  deps.Collector,
		classifier: cls,
		validator:  validator,
		view:       deps.View,
		cache:      deps.Cache,
		archive:    deps.Archive,
		notifier:   deps.Notifier,
		recorder:   deps.Recorder,
		policies:   deps.Policies,
		logger:     deps.Logger,
		now:        now,
		notified:   map[string]time.Time{},
	}
}

// ArticleID derives a stable identifier from the article link.
func ArticleID(link string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(strings.TrimSpace(link))).String()
}

// SnapshotKey is the cache key of a domain's published snapshot.
func SnapshotKey(d domain.SyncDomain) string {
	return snapshotKeyPrefix + string(d)
}

// SyncDomain runs one full cycle for d and publishes the result.
// The previous snapshot stays authoritative when an error is returned.
func (p *Pipeline) SyncDomain(ctx context.Context, d domain.SyncDomain) (domain.CycleStats, error) {
	start := p.now()
	stats := domain.CycleStats{Domain: d}

	if p.collector == nil || p.view == nil {
		return stats, domain.ErrDomainSync.New("pipeline is not configured")
	}

	result, err := p.collector.Collect(ctx, d)
	if err != nil {
		return stats, domain.ErrDomainSync.Wrap(fmt.Errorf("collect %s: %w", d, err))
	}

	stats.SourcesTotal = len(result.Outcomes)
	stats.SourcesSucceeded = result.Succeeded()
	stats.SourcesFailed = stats.SourcesTotal - stats.SourcesSucceeded

	policy := p.policy(d)
	if stats.SourcesTotal == 0 {
		return stats, domain.ErrDomainSync.New("%s: no sources configured", d)
	}
	if stats.SourcesSucceeded < policy.MinSuccessfulSources {
		return stats, domain.ErrDomainSync.New("%s: %d of %d sources succeeded, need %d",
			d, stats.SourcesSucceeded, stats.SourcesTotal, policy.MinSuccessfulSources)
	}

	candidates := p.buildArticles(d, result)
	stats.Parsed = len(candidates)

	unique, removed := dedup.Deduplicate(candidates)
	stats.Duplicates = removed

	validatedAt := p.now()
	accepted := make([]domain.Article, 0, len(unique))
	for _, a := range unique {
		res := p.validator.ValidateAt(a, validatedAt)
		stats.Validated++
		if !res.Valid {
			p.debug("article rejected", "domain", d, "title", a.Title, "issues", len(res.Issues))
			continue
		}
		stats.Valid++
		a.QualityScore = res.Score
		accepted = append(accepted, a)
	}

	snapshot := &domain.Snapshot{Domain: d, Articles: accepted, SyncedAt: validatedAt}
	previous := p.view.PublishCarrying(snapshot)
	stats.Published = len(accepted)
	stats.Duration = p.now().Sub(start)

	p.persist(ctx, snapshot, policy)
	p.archiveArticles(ctx, accepted)
	p.notifyBreaking(ctx, previous, accepted)

	if p.recorder != nil {
		p.recorder.RecordCycle(stats)
	}
	metrics.PublishedArticles.WithLabelValues(string(d)).Set(float64(stats.Published))

	p.info("domain synced", "domain", d,
		"sources", stats.SourcesTotal, "failed", stats.SourcesFailed,
		"parsed", stats.Parsed, "duplicates", stats.Duplicates,
		"published", stats.Published, "duration", stats.Duration)
	return stats, nil
}

// Restore publishes every cached snapshot still younger than its domain's max age
// and returns the sync time of each restored domain.
func (p *Pipeline) Restore(ctx context.Context) map[domain.SyncDomain]time.Time {
	restored := map[domain.SyncDomain]time.Time{}
	if p.cache == nil || p.view == nil {
		return restored
	}

	now := p.now()
	for _, d := range domain.AllDomains {
		raw, ok, err := p.cache.Get(ctx, SnapshotKey(d))
		if err != nil {
			p.warn("restore snapshot", "domain", d, "error", err)
			continue
		}
		if !ok {
			continue
		}
		var snapshot domain.Snapshot
		if err := json.Unmarshal(raw, &snapshot); err != nil {
			p.warn("decode snapshot", "domain", d, "error", err)
			continue
		}
		if snapshot.Domain != d || snapshot.Expired(now, p.policy(d).MaxAge) {
			continue
		}

		p.view.Publish(&snapshot)
		p.notifyMu.Lock()
		for _, a := range snapshot.Articles {
			if a.Breaking {
				p.notified[a.ID] = snapshot.SyncedAt
			}
		}
		p.notifyMu.Unlock()

		restored[d] = snapshot.SyncedAt
		metrics.PublishedArticles.WithLabelValues(string(d)).Set(float64(len(snapshot.Articles)))
		p.info("snapshot restored", "domain", d, "articles", len(snapshot.Articles), "synced_at", snapshot.SyncedAt)
	}
	return restored
}

// Wait blocks until in-flight breaking notifications finish.
func (p *Pipeline) Wait() {
	p.inflight.Wait()
}

func (p *Pipeline) buildArticles(d domain.SyncDomain, result ports.CollectResult) []domain.Article {
	var out []domain.Article
	for _, outcome := range result.Outcomes {
		if outcome.Err != nil {
			continue
		}
		src := outcome.Source
		for _, item := range outcome.Items {
			cls := p.classifier.Classify(item.Title, item.Body, item.Categories)
			out = append(out, domain.Article{
				ID:          ArticleID(item.Link),
				Title:       item.Title,
				Body:        item.Body,
				Link:        item.Link,
				Source:      src.Name,
				Tier:        src.Tier,
				Domain:      d,
				Category:    cls.Category,
				Promotions:  cls.Promotions,
				Author:      item.Author,
				PublishedAt: item.PublishedAt,
				ImageURL:    item.ImageURL,
				Breaking:    cls.Breaking,
				Verified:    src.Tier == domain.Tier1,
			})
		}
	}
	return out
}

func (p *Pipeline) policy(d domain.SyncDomain) DomainPolicy {
	policy := p.policies[d]
	if policy.MinSuccessfulSources <= 0 {
		policy.MinSuccessfulSources = 1
	}
	if policy.MaxAge <= 0 {
		policy.MaxAge = 24 * time.Hour
	}
	return policy
}

func (p *Pipeline) persist(ctx context.Context, snapshot *domain.Snapshot, policy DomainPolicy) {
	if p.cache == nil {
		return
	}
	raw, err := json.Marshal(snapshot)
	if err != nil {
		p.warn("encode snapshot", "domain", snapshot.Domain, "error", err)
		return
	}
	expiresAt := snapshot.SyncedAt.Add(policy.MaxAge)
	if err := p.cache.Put(ctx, SnapshotKey(snapshot.Domain), raw, &expiresAt); err != nil {
		p.warn("persist snapshot", "domain", snapshot.Domain, "error", err)
	}
}

func (p *Pipeline) archiveArticles(ctx context.Context, articles []domain.Article) {
	if p.archive == nil || len(articles) == 0 {
		return
	}
	if err := p.archive.SaveArticles(ctx, articles); err != nil {
		p.warn("archive articles", "count", len(articles), "error", err)
	}
}

// notifyBreaking fires NotifyBreaking for breaking articles that are new to this cycle.
func (p *Pipeline) notifyBreaking(ctx context.Context, previous *domain.Snapshot, accepted []domain.Article) {
	if p.notifier == nil {
		return
	}

	seenBefore := map[string]bool{}
	if previous != nil {
		for _, a := range previous.Articles {
			seenBefore[a.ID] = true
		}
	}

	now := p.now()
	var fresh []domain.Article
	p.notifyMu.Lock()
	for id, at := range p.notified {
		if now.Sub(at) > notifiedRetention {
			delete(p.notified, id)
		}
	}
	for _, a := range accepted {
		if !a.Breaking || seenBefore[a.ID] {
			continue
		}
		if _, done := p.notified[a.ID]; done {
			continue
		}
		p.notified[a.ID] = now
		fresh = append(fresh, a)
	}
	p.notifyMu.Unlock()

	if len(fresh) == 0 {
		return
	}

	if p.archive != nil {
		ids := make([]string, len(fresh))
		for i, a := range fresh {
			ids[i] = a.ID
		}
		already, err := p.archive.Notified(ctx, ids)
		if err != nil {
			p.warn("load notified", "error", err)
		} else {
			kept := fresh[:0]
			for _, a := range fresh {
				if !already[a.ID] {
					kept = append(kept, a)
				}
			}
			fresh = kept
		}
	}

	for _, a := range fresh {
		article := a
		p.inflight.Add(1)
		go func() {
			defer p.inflight.Done()
			nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
			defer cancel()
			if err := p.notifier.NotifyBreaking(nctx, article); err != nil {
				p.warn("notify breaking", "id", article.ID, "error", err)
				return
			}
			if p.archive != nil {
				if err := p.archive.MarkNotified(nctx, []string{article.ID}, p.now()); err != nil {
					p.warn("mark notified", "id", article.ID, "error", err)
				}
			}
		}()
	}
}

func (p *Pipeline) debug(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Debug(msg, args...)
	}
}

func (p *Pipeline) info(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Info(msg, args...)
	}
}

func (p *Pipeline) warn(msg string, args ...interface{}) {
	if p.logger != nil {
		p.logger.Warn(msg, args...)
	}
}
