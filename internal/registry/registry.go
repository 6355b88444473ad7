package registry

import (
	"fmt"
	"sort"

	"RingsideSync/internal/domain"
)

// SourceRegistry is the immutable catalog of configured sources.
type SourceRegistry struct {
	sources []domain.Source
	byName  map[string]int
}

// New validates the catalog and keeps its configured order.
func New(sources []domain.Source) (*SourceRegistry, error) {
	r := &SourceRegistry{
		sources: make([]domain.Source, 0, len(sources)),
		byName:  make(map[string]int, len(sources)),
	}
	for _, src := range sources {
		if src.Name == "" {
			return nil, fmt.Errorf("source without name")
		}
		if _, dup := r.byName[src.Name]; dup {
			return nil, fmt.Errorf("source %s registered twice", src.Name)
		}
		if !src.Tier.Valid() {
			return nil, fmt.Errorf("source %s: unknown tier %q", src.Name, src.Tier)
		}
		r.byName[src.Name] = len(r.sources)
		r.sources = append(r.sources, src)
	}
	return r, nil
}

// All returns a copy of the catalog in configured order.
func (r *SourceRegistry) All() []domain.Source {
	out := make([]domain.Source, len(r.sources))
	copy(out, r.sources)
	return out
}

// Get looks a source up by name.
func (r *SourceRegistry) Get(name string) (domain.Source, bool) {
	idx, ok := r.byName[name]
	if !ok {
		return domain.Source{}, false
	}
	return r.sources[idx], true
}

// ForDomain returns the sources covering d, tier1 first, otherwise in configured order.
// This order is the iteration order the deduplicator relies on.
func (r *SourceRegistry) ForDomain(d domain.SyncDomain) []domain.Source {
	var out []domain.Source
	for _, src := range r.sources {
		if src.Covers(d) {
			out = append(out, src)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Tier.Rank() < out[j].Tier.Rank()
	})
	return out
}

// Reliability returns the configured reliability seed of every source.
func (r *SourceRegistry) Reliability() map[string]float64 {
	out := make(map[string]float64, len(r.sources))
	for _, src := range r.sources {
		out[src.Name] = src.Reliability
	}
	return out
}
