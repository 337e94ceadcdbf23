package title

import (
	"sort"

	"github.com/dustin/movie-recommender/internal/catalog"
)

// DefaultMinScore is the lowest fuzzy ratio accepted as a match
const DefaultMinScore = 0.6

// Match is a catalog item matched against a free-text title
type Match struct {
	ItemID catalog.ItemID `json:"movie_id"`
	Title  string         `json:"title"`
	Score  float64        `json:"score"`
}

type entry struct {
	id         catalog.ItemID
	title      string
	normalized string
}

// Index resolves free-text titles to catalog items. Built once per catalog snapshot.
type Index struct {
	entries []entry
	exact   map[string]catalog.ItemID
}

// NewIndex precomputes normalized titles. When several items normalize to the
// same string the lowest ID wins exact lookups.
func NewIndex(items []catalog.Item) *Index {
	x := &Index{
		entries: make([]entry, 0, len(items)),
		exact:   make(map[string]catalog.ItemID, len(items)),
	}
	for _, item := range items {
		norm := Normalize(item.Title)
		x.entries = append(x.entries, entry{id: item.ID, title: item.Title, normalized: norm})
		if prev, ok := x.exact[norm]; !ok || item.ID < prev {
			x.exact[norm] = item.ID
		}
	}
	sort.Slice(x.entries, func(i, j int) bool { return x.entries[i].id < x.entries[j].id })
	return x
}

// Resolve maps a title to a single item: an exact normalized match if one
// exists, otherwise the best fuzzy match scoring at least minScore.
func (x *Index) Resolve(query string, minScore float64) (Match, bool) {
	norm := Normalize(query)
	if norm == "" {
		return Match{}, false
	}

	if id, ok := x.exact[norm]; ok {
		return Match{ItemID: id, Title: x.titleOf(id), Score: 1}, true
	}

	matches := x.search(norm, 1, minScore)
	if len(matches) == 0 {
		return Match{}, false
	}
	return matches[0], true
}

// Search returns up to k items whose titles score at least minScore against the
// query, best first, ties by ascending ID
func (x *Index) Search(query string, k int, minScore float64) []Match {
	norm := Normalize(query)
	if norm == "" || k <= 0 {
		return []Match{}
	}
	return x.search(norm, k, minScore)
}

func (x *Index) search(norm string, k int, minScore float64) []Match {
	matches := make([]Match, 0)
	for _, e := range x.entries {
		score := Ratio(norm, e.normalized)
		if score >= minScore {
			matches = append(matches, Match{ItemID: e.id, Title: e.title, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].Score != matches[j].Score {
			return matches[i].Score > matches[j].Score
		}
		return matches[i].ItemID < matches[j].ItemID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

func (x *Index) titleOf(id catalog.ItemID) string {
	i := sort.Search(len(x.entries), func(i int) bool { return x.entries[i].id >= id })
	if i < len(x.entries) && x.entries[i].id == id {
		return x.entries[i].title
	}
	return ""
}

// Len reports the number of indexed titles
func (x *Index) Len() int {
	return len(x.entries)
}
