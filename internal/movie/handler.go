package movie

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/popular"
	"github.com/dustin/movie-recommender/internal/recommendation"
	"github.com/dustin/movie-recommender/internal/title"
	"github.com/dustin/movie-recommender/internal/utils"
	"github.com/gin-gonic/gin"
)

const (
	defaultPageSize    = 20
	maxPageSize        = 100
	defaultSearchLimit = 5
	maxListSize        = 100
)

// SnapshotProvider hands out the current catalog snapshot
type SnapshotProvider interface {
	Acquire(ctx context.Context) (*recommendation.Snapshot, error)
}

// Handler serves read-only catalog endpoints
type Handler struct {
	engine SnapshotProvider
}

// NewHandler creates a new movie handler
func NewHandler(engine SnapshotProvider) *Handler {
	return &Handler{engine: engine}
}

// Movie is a catalog entry with its rating summary
type Movie struct {
	catalog.Item
	RatingCount int     `json:"rating_count"`
	MeanRating  float64 `json:"mean_rating"`
}

// Similar is one precomputed neighbor of a movie
type Similar struct {
	ItemID   catalog.ItemID `json:"movie_id"`
	Title    string         `json:"title"`
	Score    float64        `json:"score"`
	CoRaters int            `json:"co_raters"`
}

func (h *Handler) snapshot(c *gin.Context) (*recommendation.Snapshot, bool) {
	snap, err := h.engine.Acquire(c.Request.Context())
	if err != nil {
		if errors.Is(err, recommendation.ErrIndexUnavailable) {
			c.Header("Retry-After", "5")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Catalog not loaded yet", "code": "index_unavailable"})
			return nil, false
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return nil, false
	}
	return snap, true
}

// List returns a page of the catalog ordered by ID
func (h *Handler) List(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	page, limit := utils.ParsePage(c, defaultPageSize, maxPageSize)
	items := snap.Corpus.Items()
	start, end := utils.PageBounds(len(items), page, limit)

	movies := make([]Movie, 0, end-start)
	for _, item := range items[start:end] {
		movies = append(movies, summarize(snap.Corpus, item))
	}

	c.JSON(http.StatusOK, gin.H{
		"movies":     movies,
		"pagination": utils.CalculatePagination(int64(len(items)), page, limit),
	})
}

// Get returns one movie
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	item, found := snap.Corpus.Item(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}
	c.JSON(http.StatusOK, summarize(snap.Corpus, item))
}

// Similar returns the precomputed neighbors of a movie
func (h *Handler) Similar(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}
	if _, found := snap.Corpus.Item(id); !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "Movie not found"})
		return
	}

	k := queryInt(c, "k", 10, maxListSize)
	neighbors := snap.Index.Neighbors(id)
	if len(neighbors) > k {
		neighbors = neighbors[:k]
	}

	similar := make([]Similar, 0, len(neighbors))
	for _, nb := range neighbors {
		similar = append(similar, Similar{
			ItemID:   nb.Item,
			Title:    snap.Corpus.Title(nb.Item),
			Score:    nb.Score,
			CoRaters: nb.CoRaters,
		})
	}
	c.JSON(http.StatusOK, gin.H{"movie_id": id, "similar": similar, "index_id": snap.Index.ID()})
}

// Search returns fuzzy title matches
func (h *Handler) Search(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Query parameter q is required"})
		return
	}
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	k := queryInt(c, "k", defaultSearchLimit, maxListSize)
	c.JSON(http.StatusOK, gin.H{
		"query":   q,
		"matches": snap.Titles.Search(q, k, title.DefaultMinScore),
	})
}

// Popular returns the popularity baseline, optionally excluding movie IDs
func (h *Handler) Popular(c *gin.Context) {
	snap, ok := h.snapshot(c)
	if !ok {
		return
	}

	n := queryInt(c, "n", 10, maxListSize)
	minRatings := queryInt(c, "min_ratings", popular.DefaultMinRatings, int(^uint(0)>>1))

	exclude := make(map[catalog.ItemID]struct{})
	for _, raw := range strings.Split(c.Query("exclude"), ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movie id in exclude: " + raw})
			return
		}
		exclude[catalog.ItemID(id)] = struct{}{}
	}

	c.JSON(http.StatusOK, gin.H{"movies": popular.Rank(snap.Corpus, n, minRatings, exclude)})
}

// RegisterRoutes registers all movie routes
func (h *Handler) RegisterRoutes(router *gin.RouterGroup) {
	movies := router.Group("/movies")
	{
		movies.GET("", h.List)
		movies.GET("/search", h.Search)
		movies.GET("/popular", h.Popular)
		movies.GET("/:id", h.Get)
		movies.GET("/:id/similar", h.Similar)
	}
}

func summarize(corpus *catalog.Corpus, item catalog.Item) Movie {
	ratings := corpus.ItemRatings(item.ID)
	m := Movie{Item: item, RatingCount: len(ratings)}
	if len(ratings) > 0 {
		var sum float64
		for _, r := range ratings {
			sum += r.Value
		}
		m.MeanRating = sum / float64(len(ratings))
	}
	return m
}

func parseID(c *gin.Context) (catalog.ItemID, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid movie ID"})
		return 0, false
	}
	return catalog.ItemID(id), true
}

// queryInt reads a non-negative integer parameter, falling back on bad input
func queryInt(c *gin.Context, key string, def, max int) int {
	v, err := strconv.Atoi(c.DefaultQuery(key, strconv.Itoa(def)))
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
