package similarity

import (
	"context"
	"math"
	"runtime"
	"sort"
	"time"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// cancelCheckEvery is how many users are accumulated between context checks
const cancelCheckEvery = 256

// pairStat accumulates co-rating statistics for one unordered pair
type pairStat struct {
	dot   float64
	sqA   float64
	sqB   float64
	count int
}

// Build computes the item-item similarity index for a corpus.
//
// Co-rating statistics are accumulated by walking each user's rating list, so the
// work is bounded by the sum over users of (items rated)^2 rather than by the square
// of the catalog. Users and their items are visited in ascending ID order and every
// neighbor list is explicitly sorted, so the same corpus and parameters always
// produce the same index.
func Build(ctx context.Context, corpus *catalog.Corpus, params Params) (*Index, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if params.Workers <= 0 {
		params.Workers = runtime.GOMAXPROCS(0)
	}

	stats, err := accumulate(ctx, corpus, params.Centering)
	if err != nil {
		return nil, err
	}

	pairs := make(map[pairKey]float64, len(stats))
	lists := make(map[catalog.ItemID][]Neighbor)
	for key, st := range stats {
		if st.count < params.MinCoRaters {
			continue
		}
		sim, ok := cosine(st)
		if !ok {
			continue
		}
		if params.Shrinkage > 0 {
			n := float64(st.count)
			sim = sim * n / (n + params.Shrinkage)
		}

		pairs[key] = sim
		lists[key.a] = append(lists[key.a], Neighbor{Item: key.b, Score: sim, CoRaters: st.count})
		lists[key.b] = append(lists[key.b], Neighbor{Item: key.a, Score: sim, CoRaters: st.count})
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	neighbors, err := selectTopK(ctx, lists, params)
	if err != nil {
		return nil, err
	}

	return &Index{
		id:        uuid.NewString(),
		builtAt:   time.Now(),
		params:    params,
		neighbors: neighbors,
		pairs:     pairs,
	}, nil
}

// accumulate walks every user's ratings and gathers per-pair dot products and norms
// restricted to the users who rated both items.
func accumulate(ctx context.Context, corpus *catalog.Corpus, centering Centering) (map[pairKey]pairStat, error) {
	stats := make(map[pairKey]pairStat)
	values := make([]float64, 0, 64)

	for n, user := range corpus.UserIDs() {
		if n%cancelCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}

		rated := corpus.UserRatings(user)
		values = values[:0]
		for _, r := range rated {
			values = append(values, r.Value)
		}
		if centering == CenteringUserMean {
			centerValues(values)
		}

		// rated is sorted by item ID, so rated[i].Item < rated[j].Item for i < j
		for i := 0; i < len(rated); i++ {
			ri := values[i]
			for j := i + 1; j < len(rated); j++ {
				rj := values[j]
				key := pairKey{a: rated[i].Item, b: rated[j].Item}
				st := stats[key]
				st.dot += ri * rj
				st.sqA += ri * ri
				st.sqB += rj * rj
				st.count++
				stats[key] = st
			}
		}
	}

	return stats, nil
}

func centerValues(values []float64) {
	if len(values) == 0 {
		return
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / float64(len(values))
	for i := range values {
		values[i] -= mean
	}
}

// cosine returns false when either vector has zero norm over the co-rated users
func cosine(st pairStat) (float64, bool) {
	if st.sqA == 0 || st.sqB == 0 {
		return 0, false
	}
	sim := st.dot / (math.Sqrt(st.sqA) * math.Sqrt(st.sqB))
	return math.Max(-1, math.Min(1, sim)), true
}

// selectTopK sorts every item's candidate partners and keeps the best K. Items are
// processed on a bounded worker pool; each worker only touches its own slot.
func selectTopK(ctx context.Context, lists map[catalog.ItemID][]Neighbor, params Params) (map[catalog.ItemID][]Neighbor, error) {
	ids := make([]catalog.ItemID, 0, len(lists))
	for id := range lists {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	selected := make([][]Neighbor, len(ids))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(params.Workers)
	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			selected[i] = topK(lists[id], params.K)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	out := make(map[catalog.ItemID][]Neighbor, len(ids))
	for i, id := range ids {
		out[id] = selected[i]
	}
	return out, nil
}

func topK(list []Neighbor, k int) []Neighbor {
	sort.Slice(list, func(i, j int) bool {
		if list[i].Score != list[j].Score {
			return list[i].Score > list[j].Score
		}
		return list[i].Item < list[j].Item
	})
	if len(list) > k {
		// copy so the retained slice does not pin the discarded tail
		list = append([]Neighbor(nil), list[:k]...)
	}
	return list
}
