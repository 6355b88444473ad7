// Package dedup collapses articles whose normalized titles collide.
package dedup

import (
	"sort"
	"strings"
	"unicode"

	"RingsideSync/internal/domain"
)

// Normalize lowercases title and drops every non-alphanumeric rune.
func Normalize(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	for _, r := range strings.ToLower(title) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

type entry struct {
	article domain.Article
	order   int
}

// Deduplicate keeps the first article per normalized title in input order, letting a later
// copy from a strictly more trusted tier replace it. The result is sorted newest first, then
// tier1 before tier2, then by input order. It returns the number of articles removed.
func Deduplicate(articles []domain.Article) ([]domain.Article, int) {
	kept := make([]entry, 0, len(articles))
	byKey := make(map[string]int, len(articles))
	removed := 0

	for i, article := range articles {
		key := Normalize(article.Title)
		if key == "" {
			kept = append(kept, entry{article: article, order: i})
			continue
		}
		if pos, ok := byKey[key]; ok {
			removed++
			if article.Tier.Rank() < kept[pos].article.Tier.Rank() {
				kept[pos].article = article
			}
			continue
		}
		byKey[key] = len(kept)
		kept = append(kept, entry{article: article, order: i})
	}

	sort.SliceStable(kept, func(i, j int) bool {
		a, b := kept[i], kept[j]
		if !a.article.PublishedAt.Equal(b.article.PublishedAt) {
			return a.article.PublishedAt.After(b.article.PublishedAt)
		}
		if ra, rb := a.article.Tier.Rank(), b.article.Tier.Rank(); ra != rb {
			return ra < rb
		}
		return a.order < b.order
	})

	out := make([]domain.Article, len(kept))
	for i, e := range kept {
		out[i] = e.article
	}
	return out, removed
}
