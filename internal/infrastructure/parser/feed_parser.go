package parser

import (
	"bytes"
	"strings"

	"github.com/mmcdole/gofeed"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
	"RingsideSync/internal/scanner"
)

// FeedParser dispatches raw payloads to the registered dialect scanner.
type FeedParser struct {
	registry *scanner.Registry
}

var _ ports.FeedParser = (*FeedParser)(nil)

// NewFeedParser wires a dialect registry; nil registers the built-in dialects.
func NewFeedParser(reg *scanner.Registry) *FeedParser {
	if reg == nil {
		reg = scanner.NewRegistry()
		RegisterDialects(reg)
	}
	return &FeedParser{registry: reg}
}

// Parse decodes raw with the declared format, sniffing it when format is empty or "auto".
func (p *FeedParser) Parse(raw []byte, format string) ([]domain.RawFeedItem, error) {
	dialect := strings.ToLower(strings.TrimSpace(format))
	if dialect == "" || dialect == "auto" {
		dialect = Detect(raw)
		if dialect == "" {
			return nil, domain.ErrUnsupportedFormat.New("no known feed dialect recognized")
		}
	}

	strategy, err := p.registry.Resolve(dialect)
	if err != nil {
		return nil, domain.ErrUnsupportedFormat.Wrap(err)
	}

	items, err := strategy.Scan(raw)
	if err != nil {
		return nil, domain.ErrMalformedDocument.Wrap(err)
	}
	return items, nil
}

// Detect sniffs the dialect name of raw, returning "" when none matches.
func Detect(raw []byte) string {
	switch gofeed.DetectFeedType(bytes.NewReader(raw)) {
	case gofeed.FeedTypeRSS:
		return "rss"
	case gofeed.FeedTypeAtom:
		return "atom"
	case gofeed.FeedTypeJSON:
		return "json"
	default:
		return ""
	}
}
