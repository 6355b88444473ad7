package ports

import (
	"context"
	"time"

	"RingsideSync/internal/domain"
)

// FeedFetcher retrieves the raw payload of one source.
type FeedFetcher interface {
	Fetch(ctx context.Context, src domain.Source) ([]byte, error)
}

// FeedParser converts raw feed bytes into dialect-independent items.
type FeedParser interface {
	Parse(raw []byte, format string) ([]domain.RawFeedItem, error)
}

// DomainCollector gathers the parsed items of every source covering a domain.
type DomainCollector interface {
	Collect(ctx context.Context, d domain.SyncDomain) (CollectResult, error)
}

// SourceOutcome is the per-source result of one collection.
type SourceOutcome struct {
	Source domain.Source
	Items  []domain.RawFeedItem
	Err    error
}

// CollectResult keeps outcomes in catalog order.
type CollectResult struct {
	Outcomes []SourceOutcome
}

// Succeeded counts sources that produced a parsed payload.
func (r CollectResult) Succeeded() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err == nil {
			n++
		}
	}
	return n
}

// CacheStore is the durable key/value store read on cold start and written after each sync.
type CacheStore interface {
	Put(ctx context.Context, key string, payload []byte, expiresAt *time.Time) error
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, key string) error
	Close() error
}

// ArticleArchive keeps the history of published articles and notification state.
type ArticleArchive interface {
	SaveArticles(ctx context.Context, articles []domain.Article) error
	Notified(ctx context.Context, ids []string) (map[string]bool, error)
	MarkNotified(ctx context.Context, ids []string, at time.Time) error
}

// Notifier streams breaking stories to Telegram or other channels.
type Notifier interface {
	NotifyBreaking(ctx context.Context, article domain.Article) error
}

// LatencyRecorder receives the duration of every completed fetch attempt.
type LatencyRecorder interface {
	RecordLatency(source string, d time.Duration)
}

// ReliabilityFeed supplies externally computed per-source reliability.
type ReliabilityFeed interface {
	FetchReliability(ctx context.Context) (map[string]float64, error)
}

// ConnectivityProbe reports whether upstream networks are reachable.
type ConnectivityProbe interface {
	Online(ctx context.Context) bool
}

// Scheduler controls when recurring jobs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
