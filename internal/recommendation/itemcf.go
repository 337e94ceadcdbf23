package recommendation

import (
	"context"
	"runtime"
	"sort"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/similarity"
	"golang.org/x/sync/errgroup"
)

const defaultFanoutThreshold = 8

// ItemCF scores each candidate by summing its similarity to every liked item
type ItemCF struct {
	workers         int
	fanoutThreshold int
}

// ItemCFOption configures an ItemCF strategy
type ItemCFOption func(*ItemCF)

// WithFanout sets the worker limit and the liked-list size at which neighbor
// gathering runs in parallel
func WithFanout(workers, threshold int) ItemCFOption {
	return func(s *ItemCF) {
		if workers > 0 {
			s.workers = workers
		}
		if threshold > 0 {
			s.fanoutThreshold = threshold
		}
	}
}

// NewItemCF creates the item_cf strategy
func NewItemCF(opts ...ItemCFOption) *ItemCF {
	s := &ItemCF{
		workers:         runtime.GOMAXPROCS(0),
		fanoutThreshold: defaultFanoutThreshold,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ItemCF) Method() Method { return MethodItemCF }

type contribution struct {
	item catalog.ItemID
	term float64
}

type candidate struct {
	score     float64
	bestTerm  float64
	rationale catalog.ItemID
}

// Rank returns at most n candidates ordered by score desc then item ID asc.
// Liked items never appear in the output. The rationale of each candidate is
// the liked item with the largest single term, the earliest one on ties.
func (s *ItemCF) Rank(ctx context.Context, idx *similarity.Index, liked []catalog.ItemID, n int) ([]Scored, error) {
	if n <= 0 || len(liked) == 0 {
		return []Scored{}, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	liked = dedupe(liked)
	exclude := make(map[catalog.ItemID]struct{}, len(liked))
	for _, id := range liked {
		exclude[id] = struct{}{}
	}

	parts, err := s.gather(ctx, idx, liked, exclude)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// reduce in input order so float sums and tie-breaks are reproducible
	candidates := make(map[catalog.ItemID]*candidate)
	for i, part := range parts {
		for _, c := range part {
			acc, ok := candidates[c.item]
			if !ok {
				candidates[c.item] = &candidate{score: c.term, bestTerm: c.term, rationale: liked[i]}
				continue
			}
			acc.score += c.term
			if c.term > acc.bestTerm {
				acc.bestTerm = c.term
				acc.rationale = liked[i]
			}
		}
	}

	ranked := make([]Scored, 0, len(candidates))
	for id, acc := range candidates {
		ranked = append(ranked, Scored{Item: id, Score: acc.score, Rationale: acc.rationale})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Score != ranked[j].Score {
			return ranked[i].Score > ranked[j].Score
		}
		return ranked[i].Item < ranked[j].Item
	})

	if len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked, nil
}

// gather collects each liked item's non-excluded neighbors into its own slot
func (s *ItemCF) gather(ctx context.Context, idx *similarity.Index, liked []catalog.ItemID, exclude map[catalog.ItemID]struct{}) ([][]contribution, error) {
	parts := make([][]contribution, len(liked))
	collect := func(i int) {
		neighbors := idx.Neighbors(liked[i])
		part := make([]contribution, 0, len(neighbors))
		for _, nb := range neighbors {
			if _, skip := exclude[nb.Item]; skip {
				continue
			}
			part = append(part, contribution{item: nb.Item, term: nb.Score})
		}
		parts[i] = part
	}

	if len(liked) < s.fanoutThreshold {
		for i := range liked {
			collect(i)
		}
		return parts, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.workers)
	for i := range liked {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			collect(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return parts, nil
}

// dedupe keeps the first occurrence of every ID
func dedupe(ids []catalog.ItemID) []catalog.ItemID {
	seen := make(map[catalog.ItemID]struct{}, len(ids))
	out := make([]catalog.ItemID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
