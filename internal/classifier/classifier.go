// Package classifier assigns editorial category, promotion tags and the breaking flag
// from ordered keyword rules held as configuration data.
package classifier

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"RingsideSync/internal/domain"
)

// Rule maps keywords to a category. Rules are evaluated in slice order.
type Rule struct {
	Category domain.Category
	Keywords []string
}

// Config is the swappable rule set.
type Config struct {
	Rules            []Rule
	BreakingKeywords []string
	// Promotions maps a canonical promotion name to its aliases.
	Promotions map[string][]string
}

// Result is the classification of one item.
type Result struct {
	Category   domain.Category
	Promotions []string
	Breaking   bool
}

type compiledRule struct {
	category domain.Category
	matchers []*regexp.Regexp
}

type compiledPromotion struct {
	name     string
	matchers []*regexp.Regexp
}

// Classifier is safe for concurrent use once built.
type Classifier struct {
	rules      []compiledRule
	breaking   []*regexp.Regexp
	promotions []compiledPromotion
}

var validCategories = map[domain.Category]bool{
	domain.CategoryBreaking: true,
	domain.CategoryNews:     true,
	domain.CategoryRumor:    true,
	domain.CategoryResults:  true,
	domain.CategoryAnalysis: true,
	domain.CategoryInjury:   true,
	domain.CategoryContract: true,
}

// ParseCategory validates a configured category name.
func ParseCategory(value string) (domain.Category, error) {
	c := domain.Category(strings.ToLower(strings.TrimSpace(value)))
	if !validCategories[c] {
		return "", fmt.Errorf("unknown category %q", value)
	}
	return c, nil
}

// New compiles cfg; an empty rule list falls back to DefaultConfig.
func New(cfg Config) *Classifier {
	def := DefaultConfig()
	if len(cfg.Rules) == 0 {
		cfg.Rules = def.Rules
	}
	if len(cfg.BreakingKeywords) == 0 {
		cfg.BreakingKeywords = def.BreakingKeywords
	}
	if len(cfg.Promotions) == 0 {
		cfg.Promotions = def.Promotions
	}

	c := &Classifier{breaking: compileAll(cfg.BreakingKeywords)}
	for _, rule := range cfg.Rules {
		c.rules = append(c.rules, compiledRule{category: rule.Category, matchers: compileAll(rule.Keywords)})
	}

	names := make([]string, 0, len(cfg.Promotions))
	for name := range cfg.Promotions {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		aliases := append([]string{name}, cfg.Promotions[name]...)
		c.promotions = append(c.promotions, compiledPromotion{name: name, matchers: compileAll(aliases)})
	}
	return c
}

// Classify returns the first matching category, the promotion set and the breaking flag.
// Raw tags take part in category and promotion matching. They never make a story breaking:
// the breaking rule and the breaking flag both look at title and body only.
func (c *Classifier) Classify(title, body string, tags []string) Result {
	tagged := strings.Join([]string{title, body, strings.Join(tags, " ")}, "\n")
	headline := title + "\n" + body

	result := Result{
		Category: domain.CategoryNews,
		Breaking: anyMatch(c.breaking, headline),
	}
	for _, rule := range c.rules {
		text := tagged
		if rule.category == domain.CategoryBreaking {
			text = headline
		}
		if anyMatch(rule.matchers, text) {
			result.Category = rule.category
			break
		}
	}
	for _, promo := range c.promotions {
		if anyMatch(promo.matchers, tagged) {
			result.Promotions = append(result.Promotions, promo.name)
		}
	}
	return result
}

func compileAll(keywords []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(keywords))
	for _, kw := range keywords {
		kw = strings.TrimSpace(kw)
		if kw == "" {
			continue
		}
		out = append(out, regexp.MustCompile(`(?i)(^|[^\pL\pN])`+regexp.QuoteMeta(kw)+`($|[^\pL\pN])`))
	}
	return out
}

func anyMatch(matchers []*regexp.Regexp, text string) bool {
	for _, m := range matchers {
		if m.MatchString(text) {
			return true
		}
	}
	return false
}
