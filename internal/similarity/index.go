package similarity

import (
	"time"

	"github.com/dustin/movie-recommender/internal/catalog"
)

// Neighbor is one of an item's most similar partners
type Neighbor struct {
	Item     catalog.ItemID `json:"item"`
	Score    float64        `json:"score"`
	CoRaters int            `json:"co_raters"`
}

// pairKey identifies an unordered item pair; a is always the smaller ID
type pairKey struct {
	a, b catalog.ItemID
}

func newPairKey(x, y catalog.ItemID) pairKey {
	if x > y {
		x, y = y, x
	}
	return pairKey{a: x, b: y}
}

// Index holds, for every item, its top-K neighbors sorted by score descending
// with ties broken by item ID ascending. It is never modified after Build returns.
type Index struct {
	id      string
	builtAt time.Time
	params  Params

	neighbors map[catalog.ItemID][]Neighbor
	pairs     map[pairKey]float64
}

// Neighbors returns an item's ordered neighbor list. The slice is shared; do not modify it.
func (x *Index) Neighbors(item catalog.ItemID) []Neighbor {
	return x.neighbors[item]
}

// Similarity looks up the shrunk score of a retained pair in either direction
func (x *Index) Similarity(a, b catalog.ItemID) (float64, bool) {
	if a == b {
		return 0, false
	}
	s, ok := x.pairs[newPairKey(a, b)]
	return s, ok
}

// ID uniquely identifies this build
func (x *Index) ID() string { return x.id }

func (x *Index) BuiltAt() time.Time { return x.builtAt }

func (x *Index) Params() Params { return x.params }

// NumItems counts items with at least one neighbor
func (x *Index) NumItems() int { return len(x.neighbors) }

// NumPairs counts retained unordered pairs
func (x *Index) NumPairs() int { return len(x.pairs) }
