package parser

import (
	"bytes"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/mmcdole/gofeed/atom"
	"github.com/mmcdole/gofeed/json"
	"github.com/mmcdole/gofeed/rss"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/scanner"
)

// RSSScanner decodes RSS 0.9x/2.0 documents.
type RSSScanner struct{}

// AtomScanner decodes Atom 1.0 documents.
type AtomScanner struct{}

// JSONScanner decodes JSON Feed 1.0/1.1 documents.
type JSONScanner struct{}

var (
	_ scanner.Scanner = RSSScanner{}
	_ scanner.Scanner = AtomScanner{}
	_ scanner.Scanner = JSONScanner{}
)

// Name identifies the dialect inside the registry.
func (RSSScanner) Name() string { return "rss" }

// Scan parses the payload and keeps every usable item.
func (RSSScanner) Scan(raw []byte) ([]domain.RawFeedItem, error) {
	feed, err := (&rss.Parser{}).Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	translated, err := (&gofeed.DefaultRSSTranslator{}).Translate(feed)
	if err != nil {
		return nil, err
	}
	return toRawItems(translated), nil
}

// Name identifies the dialect inside the registry.
func (AtomScanner) Name() string { return "atom" }

// Scan parses the payload and keeps every usable item.
func (AtomScanner) Scan(raw []byte) ([]domain.RawFeedItem, error) {
	feed, err := (&atom.Parser{}).Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	translated, err := (&gofeed.DefaultAtomTranslator{}).Translate(feed)
	if err != nil {
		return nil, err
	}
	return toRawItems(translated), nil
}

// Name identifies the dialect inside the registry.
func (JSONScanner) Name() string { return "json" }

// Scan parses the payload and keeps every usable item.
func (JSONScanner) Scan(raw []byte) ([]domain.RawFeedItem, error) {
	feed, err := (&json.Parser{}).Parse(bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	translated, err := (&gofeed.DefaultJSONTranslator{}).Translate(feed)
	if err != nil {
		return nil, err
	}
	return toRawItems(translated), nil
}

// RegisterDialects adds the three built-in dialects to reg.
func RegisterDialects(reg *scanner.Registry) {
	reg.Register(RSSScanner{})
	reg.Register(AtomScanner{})
	reg.Register(JSONScanner{})
}

func toRawItems(feed *gofeed.Feed) []domain.RawFeedItem {
	if feed == nil {
		return nil
	}
	items := make([]domain.RawFeedItem, 0, len(feed.Items))
	for _, it := range feed.Items {
		if item, ok := toRawItem(it); ok {
			items = append(items, item)
		}
	}
	return items
}

// toRawItem drops entries without title, link or publish date.
func toRawItem(it *gofeed.Item) (domain.RawFeedItem, bool) {
	if it == nil {
		return domain.RawFeedItem{}, false
	}

	title := collapseSpace(StripHTML(it.Title))
	link := itemLink(it)
	published := itemDate(it)
	if title == "" || link == "" || published.IsZero() {
		return domain.RawFeedItem{}, false
	}

	rawBody := it.Content
	if strings.TrimSpace(rawBody) == "" {
		rawBody = it.Description
	}

	item := domain.RawFeedItem{
		Title:       title,
		Link:        link,
		PublishedAt: published.UTC(),
		Body:        StripHTML(rawBody),
		Categories:  append([]string(nil), it.Categories...),
		ImageURL:    itemImage(it, rawBody),
	}
	if it.Author != nil {
		item.Author = strings.TrimSpace(it.Author.Name)
	} else if len(it.Authors) > 0 && it.Authors[0] != nil {
		item.Author = strings.TrimSpace(it.Authors[0].Name)
	}
	return item, true
}

func itemLink(it *gofeed.Item) string {
	if link := strings.TrimSpace(it.Link); link != "" {
		return link
	}
	for _, l := range it.Links {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return strings.TrimSpace(it.GUID)
}

func itemDate(it *gofeed.Item) time.Time {
	if it.PublishedParsed != nil {
		return *it.PublishedParsed
	}
	if it.UpdatedParsed != nil {
		return *it.UpdatedParsed
	}
	return time.Time{}
}

func itemImage(it *gofeed.Item, rawBody string) string {
	if it.Image != nil && it.Image.URL != "" {
		return it.Image.URL
	}
	for _, enc := range it.Enclosures {
		if enc != nil && strings.HasPrefix(enc.Type, "image/") && enc.URL != "" {
			return enc.URL
		}
	}
	return FirstImage(rawBody)
}
