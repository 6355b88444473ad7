package usecase

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"RingsideSync/internal/domain"
)

// ErrArticleNotFound is returned when an engagement update names an unpublished article.
var ErrArticleNotFound = errors.New("article not found")

// View holds one immutable published snapshot per domain. Writers replace a snapshot
// wholesale; readers never observe a partially built one.
type View struct {
	slots  map[domain.SyncDomain]*atomic.Pointer[domain.Snapshot]
	maxAge map[domain.SyncDomain]time.Duration
	now    func() time.Time

	writeMu sync.Mutex
}

// ArticleFilter narrows Query results; zero values match everything.
type ArticleFilter struct {
	Domain    domain.SyncDomain
	Category  domain.Category
	Promotion string
	Breaking  *bool
	Limit     int
}

// NewView creates empty slots for every domain in maxAge.
func NewView(maxAge map[domain.SyncDomain]time.Duration, now func() time.Time) *View {
	if now == nil {
		now = time.Now
	}
	v := &View{
		slots:  make(map[domain.SyncDomain]*atomic.Pointer[domain.Snapshot], len(domain.AllDomains)),
		maxAge: make(map[domain.SyncDomain]time.Duration, len(maxAge)),
		now:    now,
	}
	for _, d := range domain.AllDomains {
		v.slots[d] = &atomic.Pointer[domain.Snapshot]{}
	}
	for d, age := range maxAge {
		v.maxAge[d] = age
	}
	return v
}

// Publish replaces the snapshot of its domain.
func (v *View) Publish(s *domain.Snapshot) {
	slot, ok := v.slots[s.Domain]
	if !ok {
		return
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	slot.Store(s)
}

// PublishCarrying replaces the snapshot of its domain, first copying the engagement
// counters of articles that survive from the stored snapshot. Both steps run under the
// write lock so a concurrent AddEngagement is never lost. It returns the replaced snapshot.
func (v *View) PublishCarrying(s *domain.Snapshot) *domain.Snapshot {
	slot, ok := v.slots[s.Domain]
	if !ok {
		return nil
	}
	v.writeMu.Lock()
	defer v.writeMu.Unlock()
	previous := slot.Load()
	carryEngagement(previous, s.Articles)
	slot.Store(s)
	return previous
}

// Current returns the stored snapshot of d regardless of its age.
func (v *View) Current(d domain.SyncDomain) *domain.Snapshot {
	slot, ok := v.slots[d]
	if !ok {
		return nil
	}
	return slot.Load()
}

// Snapshot returns the snapshot of d unless it is absent or older than the domain's max age.
func (v *View) Snapshot(d domain.SyncDomain) (*domain.Snapshot, bool) {
	s := v.Current(d)
	if s == nil || s.Expired(v.now(), v.maxAge[d]) {
		return nil, false
	}
	return s, true
}

// Articles returns a copy of the live articles of d.
func (v *View) Articles(d domain.SyncDomain) []domain.Article {
	s, ok := v.Snapshot(d)
	if !ok {
		return nil
	}
	return append([]domain.Article(nil), s.Articles...)
}

// Published returns the live articles of every domain.
func (v *View) Published() []domain.Article {
	var out []domain.Article
	for _, d := range domain.AllDomains {
		out = append(out, v.Articles(d)...)
	}
	return out
}

// Query filters the live view; each domain keeps its newest-first order.
func (v *View) Query(f ArticleFilter) []domain.Article {
	domains := domain.AllDomains
	if f.Domain != "" {
		domains = []domain.SyncDomain{f.Domain}
	}

	var out []domain.Article
	for _, d := range domains {
		for _, a := range v.Articles(d) {
			if f.Category != "" && a.Category != f.Category {
				continue
			}
			if f.Promotion != "" && !hasPromotion(a, f.Promotion) {
				continue
			}
			if f.Breaking != nil && a.Breaking != *f.Breaking {
				continue
			}
			out = append(out, a)
			if f.Limit > 0 && len(out) >= f.Limit {
				return out
			}
		}
	}
	return out
}

// AddEngagement adds delta to an article's counters by publishing a modified copy.
func (v *View) AddEngagement(d domain.SyncDomain, id string, delta domain.Engagement) (domain.Article, error) {
	slot, ok := v.slots[d]
	if !ok {
		return domain.Article{}, fmt.Errorf("unknown domain %s", d)
	}
	if delta.Views < 0 || delta.Likes < 0 || delta.Shares < 0 || delta.Comments < 0 {
		return domain.Article{}, fmt.Errorf("engagement deltas must not be negative")
	}

	v.writeMu.Lock()
	defer v.writeMu.Unlock()

	current := slot.Load()
	if current == nil {
		return domain.Article{}, fmt.Errorf("%s: %w", id, ErrArticleNotFound)
	}
	for i, a := range current.Articles {
		if a.ID != id {
			continue
		}
		next := &domain.Snapshot{
			Domain:   current.Domain,
			Articles: append([]domain.Article(nil), current.Articles...),
			SyncedAt: current.SyncedAt,
		}
		updated := &next.Articles[i]
		updated.Engagement.Views += delta.Views
		updated.Engagement.Likes += delta.Likes
		updated.Engagement.Shares += delta.Shares
		updated.Engagement.Comments += delta.Comments
		slot.Store(next)
		return *updated, nil
	}
	return domain.Article{}, fmt.Errorf("%s: %w", id, ErrArticleNotFound)
}

// carryEngagement keeps externally collected counters for articles that survive a cycle.
func carryEngagement(previous *domain.Snapshot, next []domain.Article) {
	if previous == nil {
		return
	}
	counters := make(map[string]domain.Engagement, len(previous.Articles))
	for _, a := range previous.Articles {
		counters[a.ID] = a.Engagement
	}
	for i := range next {
		if e, ok := counters[next[i].ID]; ok {
			next[i].Engagement = e
		}
	}
}

func hasPromotion(a domain.Article, promotion string) bool {
	for _, p := range a.Promotions {
		if strings.EqualFold(p, promotion) {
			return true
		}
	}
	return false
}
