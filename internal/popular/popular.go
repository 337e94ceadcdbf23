package popular

import (
	"sort"

	"github.com/dustin/movie-recommender/internal/catalog"
)

// DefaultMinRatings is the rating count an item needs before its mean is trusted
const DefaultMinRatings = 50

// Entry is one item of the popularity baseline
type Entry struct {
	ItemID      catalog.ItemID `json:"movie_id"`
	Title       string         `json:"title"`
	Mean        float64        `json:"score"`
	RatingCount int            `json:"rating_count"`
}

// Rank lists items with at least minRatings ratings ordered by mean rating, then
// rating count, both descending, then ID ascending. Items in exclude are skipped.
func Rank(corpus *catalog.Corpus, n, minRatings int, exclude map[catalog.ItemID]struct{}) []Entry {
	if n <= 0 {
		return []Entry{}
	}

	entries := make([]Entry, 0)
	for _, id := range corpus.ItemIDs() {
		if _, skip := exclude[id]; skip {
			continue
		}
		ratings := corpus.ItemRatings(id)
		if len(ratings) == 0 || len(ratings) < minRatings {
			continue
		}

		var sum float64
		for _, r := range ratings {
			sum += r.Value
		}
		entries = append(entries, Entry{
			ItemID:      id,
			Title:       corpus.Title(id),
			Mean:        sum / float64(len(ratings)),
			RatingCount: len(ratings),
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Mean != b.Mean {
			return a.Mean > b.Mean
		}
		if a.RatingCount != b.RatingCount {
			return a.RatingCount > b.RatingCount
		}
		return a.ItemID < b.ItemID
	})

	if len(entries) > n {
		entries = entries[:n]
	}
	return entries
}
