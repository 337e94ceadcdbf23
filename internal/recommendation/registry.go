package recommendation

import (
	"context"
	"fmt"
	"sort"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/similarity"
)

// Scored is a ranked candidate before titles and explanations are attached
type Scored struct {
	Item      catalog.ItemID
	Score     float64
	Rationale catalog.ItemID
}

// Strategy ranks candidates for a set of liked items against one index
type Strategy interface {
	Method() Method
	Rank(ctx context.Context, idx *similarity.Index, liked []catalog.ItemID, n int) ([]Scored, error)
}

// Registry maps method tags to strategies
type Registry struct {
	strategies map[Method]Strategy
}

// NewRegistry creates a registry; later strategies replace earlier ones with the same tag
func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{strategies: make(map[Method]Strategy, len(strategies))}
	for _, s := range strategies {
		r.strategies[s.Method()] = s
	}
	return r
}

// DefaultRegistry knows item_cf only
func DefaultRegistry() *Registry {
	return NewRegistry(NewItemCF())
}

// Lookup returns the strategy for a tag or ErrUnsupportedMethod
func (r *Registry) Lookup(m Method) (Strategy, error) {
	s, ok := r.strategies[m]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedMethod, string(m))
	}
	return s, nil
}

// Methods lists the recognized tags in sorted order
func (r *Registry) Methods() []Method {
	methods := make([]Method, 0, len(r.strategies))
	for m := range r.strategies {
		methods = append(methods, m)
	}
	sort.Slice(methods, func(i, j int) bool { return methods[i] < methods[j] })
	return methods
}
