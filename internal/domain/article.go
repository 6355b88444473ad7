package domain

import "time"

// Tier is the coarse trust classification of a source.
type Tier string

const (
	Tier1 Tier = "tier1"
	Tier2 Tier = "tier2"
)

// Valid reports whether the tier is one of the known values.
func (t Tier) Valid() bool {
	return t == Tier1 || t == Tier2
}

// Rank orders tiers for tie-breaks; lower is more trusted.
func (t Tier) Rank() int {
	switch t {
	case Tier1:
		return 0
	case Tier2:
		return 1
	default:
		return 2
	}
}

// Category is the single editorial category assigned by the classifier.
type Category string

const (
	CategoryBreaking Category = "breaking"
	CategoryNews     Category = "news"
	CategoryRumor    Category = "rumor"
	CategoryResults  Category = "results"
	CategoryAnalysis Category = "analysis"
	CategoryInjury   Category = "injury"
	CategoryContract Category = "contract"
)

// Source is an immutable catalog entry describing one external feed.
type Source struct {
	Name        string
	Endpoint    string
	Tier        Tier
	Format      string
	Domains     []SyncDomain
	Categories  []Category
	Promotions  []string
	Reliability float64
}

// Covers reports whether the source feeds the given domain.
func (s Source) Covers(d SyncDomain) bool {
	for _, candidate := range s.Domains {
		if candidate == d {
			return true
		}
	}
	return false
}

// RawFeedItem is the dialect-independent result of parsing a single feed entry.
type RawFeedItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
	Body        string
	Categories  []string
	Author      string
	ImageURL    string
}

// Engagement holds counters mutated by external collaborators after ingestion.
type Engagement struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Shares   int64 `json:"shares"`
	Comments int64 `json:"comments"`
}

// Interactions is the engagement sum used by quality monitoring.
func (e Engagement) Interactions() int64 {
	return e.Likes + e.Shares + e.Comments
}

// Article is the canonical, classified, validated unit published to consumers.
type Article struct {
	ID           string     `json:"id"`
	Title        string     `json:"title"`
	Body         string     `json:"body"`
	Link         string     `json:"link"`
	Source       string     `json:"source"`
	Tier         Tier       `json:"tier"`
	Domain       SyncDomain `json:"domain"`
	Category     Category   `json:"category"`
	Promotions   []string   `json:"promotions,omitempty"`
	Author       string     `json:"author,omitempty"`
	PublishedAt  time.Time  `json:"publishedAt"`
	ImageURL     string     `json:"imageUrl,omitempty"`
	Breaking     bool       `json:"breaking"`
	Verified     bool       `json:"verified"`
	QualityScore float64    `json:"qualityScore"`
	Engagement   Engagement `json:"engagement"`
}

// Snapshot is one domain's published view, replaced wholesale on every successful cycle.
type Snapshot struct {
	Domain   SyncDomain `json:"domain"`
	Articles []Article  `json:"articles"`
	SyncedAt time.Time  `json:"syncedAt"`
}

// Expired reports whether the snapshot is older than maxAge at now.
func (s *Snapshot) Expired(now time.Time, maxAge time.Duration) bool {
	if s == nil {
		return true
	}
	if maxAge <= 0 {
		return false
	}
	return now.Sub(s.SyncedAt) >= maxAge
}

// CycleStats summarizes one domain sync for monitoring.
type CycleStats struct {
	Domain           SyncDomain    `json:"domain"`
	SourcesTotal     int           `json:"sourcesTotal"`
	SourcesSucceeded int           `json:"sourcesSucceeded"`
	SourcesFailed    int           `json:"sourcesFailed"`
	Parsed           int           `json:"parsed"`
	Duplicates       int           `json:"duplicates"`
	Validated        int           `json:"validated"`
	Valid            int           `json:"valid"`
	Published        int           `json:"published"`
	Duration         time.Duration `json:"duration"`
}
