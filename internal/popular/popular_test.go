package popular

import (
	"testing"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCorpus(t *testing.T) *catalog.Corpus {
	t.Helper()
	items := []catalog.Item{
		{ID: 1, Title: "Star Wars"},
		{ID: 2, Title: "Fargo"},
		{ID: 3, Title: "Casablanca"},
		{ID: 4, Title: "Obscure Gem"},
		{ID: 5, Title: "Unrated"},
	}
	ratings := []catalog.Rating{
		// Star Wars: mean 4.5 over 4
		{UserID: 1, ItemID: 1, Value: 5}, {UserID: 2, ItemID: 1, Value: 4},
		{UserID: 3, ItemID: 1, Value: 5}, {UserID: 4, ItemID: 1, Value: 4},
		// Fargo: mean 4.5 over 2
		{UserID: 1, ItemID: 2, Value: 5}, {UserID: 2, ItemID: 2, Value: 4},
		// Casablanca: mean 4.0 over 3
		{UserID: 1, ItemID: 3, Value: 4}, {UserID: 2, ItemID: 3, Value: 4}, {UserID: 3, ItemID: 3, Value: 4},
		// Obscure Gem: mean 5 over 1
		{UserID: 1, ItemID: 4, Value: 5},
	}
	c, err := catalog.New(items, ratings)
	require.NoError(t, err)
	return c
}

func ids(entries []Entry) []catalog.ItemID {
	out := make([]catalog.ItemID, len(entries))
	for i, e := range entries {
		out[i] = e.ItemID
	}
	return out
}

func TestRank(t *testing.T) {
	c := testCorpus(t)

	t.Run("min ratings filters sparse items", func(t *testing.T) {
		got := Rank(c, 10, 2, nil)
		// equal means fall back to rating count
		assert.Equal(t, []catalog.ItemID{1, 2, 3}, ids(got))
		assert.InDelta(t, 4.5, got[0].Mean, 1e-12)
		assert.Equal(t, 4, got[0].RatingCount)
		assert.Equal(t, "Star Wars", got[0].Title)
	})

	t.Run("no threshold includes everything rated", func(t *testing.T) {
		got := Rank(c, 10, 0, nil)
		assert.Equal(t, []catalog.ItemID{4, 1, 2, 3}, ids(got))
	})

	t.Run("exclusions and truncation", func(t *testing.T) {
		got := Rank(c, 1, 2, map[catalog.ItemID]struct{}{1: {}})
		assert.Equal(t, []catalog.ItemID{2}, ids(got))
	})

	t.Run("non-positive n", func(t *testing.T) {
		assert.Empty(t, Rank(c, 0, 0, nil))
		assert.NotNil(t, Rank(c, -3, 0, nil))
	})
}
