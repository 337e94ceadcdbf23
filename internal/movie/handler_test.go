package movie

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/recommendation"
	"github.com/dustin/movie-recommender/internal/similarity"
	"github.com/dustin/movie-recommender/internal/title"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeProvider struct {
	snap *recommendation.Snapshot
}

func (p *fakeProvider) Acquire(ctx context.Context) (*recommendation.Snapshot, error) {
	if p.snap == nil {
		return nil, recommendation.ErrIndexUnavailable
	}
	return p.snap, nil
}

func testSnapshot(t *testing.T) *recommendation.Snapshot {
	t.Helper()
	items := []catalog.Item{
		{ID: 1, Title: "Toy Story (1995)", Genres: []string{"Animation", "Children", "Comedy"}},
		{ID: 2, Title: "GoldenEye (1995)", Genres: []string{"Action"}},
		{ID: 3, Title: "Four Rooms (1995)"},
		{ID: 4, Title: "Toy Story 2 (1999)"},
	}
	ratings := []catalog.Rating{
		{UserID: 1, ItemID: 1, Value: 5}, {UserID: 1, ItemID: 2, Value: 3}, {UserID: 1, ItemID: 4, Value: 5},
		{UserID: 2, ItemID: 1, Value: 4}, {UserID: 2, ItemID: 4, Value: 4},
		{UserID: 3, ItemID: 2, Value: 2}, {UserID: 3, ItemID: 3, Value: 4},
	}
	corpus, err := catalog.New(items, ratings)
	require.NoError(t, err)

	params := similarity.DefaultParams()
	params.Shrinkage = 0
	params.MinCoRaters = 2
	idx, err := similarity.Build(context.Background(), corpus, params)
	require.NoError(t, err)

	return &recommendation.Snapshot{Corpus: corpus, Index: idx, Titles: title.NewIndex(corpus.Items()), Version: 1}
}

func setupRouter(provider SnapshotProvider) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	NewHandler(provider).RegisterRoutes(router.Group("/api/v1"))
	return router
}

func get(t *testing.T, router http.Handler, path string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w, body
}

func TestHandler_List(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	w, body := get(t, router, "/api/v1/movies?page=2&limit=3")
	require.Equal(t, http.StatusOK, w.Code)

	movies := body["movies"].([]interface{})
	require.Len(t, movies, 1)
	assert.Equal(t, "Toy Story 2 (1999)", movies[0].(map[string]interface{})["title"])

	pagination := body["pagination"].(map[string]interface{})
	assert.Equal(t, 4.0, pagination["total"])
	assert.Equal(t, 2.0, pagination["pages"])
}

func TestHandler_ListPastLastPage(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	for _, page := range []string{"3", strconv.Itoa(math.MaxInt)} {
		w, body := get(t, router, "/api/v1/movies?limit=20&page="+page)
		require.Equal(t, http.StatusOK, w.Code, page)
		assert.Empty(t, body["movies"], page)
		assert.Equal(t, 4.0, body["pagination"].(map[string]interface{})["total"], page)
	}
}

func TestHandler_Get(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	w, body := get(t, router, "/api/v1/movies/1")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Toy Story (1995)", body["title"])
	assert.Equal(t, 2.0, body["rating_count"])
	assert.Equal(t, 4.5, body["mean_rating"])

	w, _ = get(t, router, "/api/v1/movies/99")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = get(t, router, "/api/v1/movies/abc")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Similar(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	w, body := get(t, router, "/api/v1/movies/1/similar?k=1")
	require.Equal(t, http.StatusOK, w.Code)

	similar := body["similar"].([]interface{})
	require.Len(t, similar, 1)
	top := similar[0].(map[string]interface{})
	assert.Equal(t, "Toy Story 2 (1999)", top["title"])
	assert.Equal(t, 2.0, top["co_raters"])
}

func TestHandler_Search(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	w, body := get(t, router, "/api/v1/movies/search?q=toy+story")
	require.Equal(t, http.StatusOK, w.Code)
	matches := body["matches"].([]interface{})
	require.Len(t, matches, 2)
	assert.Equal(t, 1.0, matches[0].(map[string]interface{})["movie_id"])

	w, _ = get(t, router, "/api/v1/movies/search?q=%20")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Popular(t *testing.T) {
	router := setupRouter(&fakeProvider{snap: testSnapshot(t)})

	w, body := get(t, router, "/api/v1/movies/popular?n=2&min_ratings=2")
	require.Equal(t, http.StatusOK, w.Code)
	movies := body["movies"].([]interface{})
	require.Len(t, movies, 2)
	// Toy Story 2 and Toy Story both average 4.5 over two ratings
	assert.Equal(t, 1.0, movies[0].(map[string]interface{})["movie_id"])
	assert.Equal(t, 4.0, movies[1].(map[string]interface{})["movie_id"])

	w, body = get(t, router, "/api/v1/movies/popular?min_ratings=2&exclude=1,4")
	require.Equal(t, http.StatusOK, w.Code)
	movies = body["movies"].([]interface{})
	require.Len(t, movies, 1)
	assert.Equal(t, 2.0, movies[0].(map[string]interface{})["movie_id"])

	w, _ = get(t, router, "/api/v1/movies/popular?exclude=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_Unavailable(t *testing.T) {
	router := setupRouter(&fakeProvider{})

	for _, path := range []string{"/api/v1/movies", "/api/v1/movies/popular", "/api/v1/movies/search?q=x", "/api/v1/movies/1"} {
		w, body := get(t, router, path)
		assert.Equal(t, http.StatusServiceUnavailable, w.Code, path)
		assert.Equal(t, "index_unavailable", body["code"], path)
	}
}
