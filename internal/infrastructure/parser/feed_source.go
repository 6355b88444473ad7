package parser

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/ports"
	"RingsideSync/internal/registry"
)

// FeedSource implements DomainCollector by fetching and parsing every source of a domain.
type FeedSource struct {
	registry      *registry.SourceRegistry
	fetcher       ports.FeedFetcher
	parser        ports.FeedParser
	maxConcurrent int
	logger        *slog.Logger
}

var _ ports.DomainCollector = (*FeedSource)(nil)

// NewFeedSource wires the catalog with the fetcher and parser; maxConcurrent bounds in-flight fetches.
func NewFeedSource(reg *registry.SourceRegistry, fetcher ports.FeedFetcher, parser ports.FeedParser, maxConcurrent int, log *slog.Logger) *FeedSource {
	if maxConcurrent <= 0 {
		maxConcurrent = 3
	}
	return &FeedSource{
		registry:      reg,
		fetcher:       fetcher,
		parser:        parser,
		maxConcurrent: maxConcurrent,
		logger:        log,
	}
}

// Collect fetches and parses the domain's sources concurrently.
// Per-source failures are reported in the result, never as the returned error.
func (s *FeedSource) Collect(ctx context.Context, d domain.SyncDomain) (ports.CollectResult, error) {
	if s.registry == nil || s.fetcher == nil || s.parser == nil {
		return ports.CollectResult{}, fmt.Errorf("feed source is not configured")
	}

	sources := s.registry.ForDomain(d)
	s.debug("collect domain", "domain", d, "sources", len(sources))

	outcomes := make([]ports.SourceOutcome, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.maxConcurrent)

	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			outcomes[i] = s.collectOne(gctx, src)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return ports.CollectResult{Outcomes: outcomes}, err
	}
	return ports.CollectResult{Outcomes: outcomes}, nil
}

func (s *FeedSource) collectOne(ctx context.Context, src domain.Source) ports.SourceOutcome {
	outcome := ports.SourceOutcome{Source: src}

	raw, err := s.fetcher.Fetch(ctx, src)
	if err != nil {
		outcome.Err = fmt.Errorf("fetch %s: %w", src.Name, err)
		s.warn("source fetch failed", "source", src.Name, "error", err)
		return outcome
	}

	items, err := s.parser.Parse(raw, src.Format)
	if err != nil {
		outcome.Err = fmt.Errorf("parse %s: %w", src.Name, err)
		s.warn("source parse failed", "source", src.Name, "error", err)
		return outcome
	}

	s.debug("source produced items", "source", src.Name, "count", len(items))
	outcome.Items = items
	return outcome
}

func (s *FeedSource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *FeedSource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
