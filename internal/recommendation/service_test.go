package recommendation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryCache round-trips values through JSON like the Redis cache does
type memoryCache struct {
	mu      sync.Mutex
	entries map[string][]byte
	getErr  error
	gets    int
	sets    int
}

func newMemoryCache() *memoryCache {
	return &memoryCache{entries: make(map[string][]byte)}
}

func (m *memoryCache) Get(ctx context.Context, key string, dst interface{}) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets++
	if m.getErr != nil {
		return false, m.getErr
	}
	data, ok := m.entries[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, dst)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.sets++
	m.entries[key] = data
	return nil
}

func readyService(t *testing.T, cfg *config.EngineConfig, cache ResponseCache) (Service, *Facade) {
	t.Helper()
	f := newTestFacade(t, &fakeSource{corpora: []*catalog.Corpus{nolanCorpus(t)}})
	_, err := f.Rebuild(context.Background())
	require.NoError(t, err)

	svc, err := NewService(f, cfg, cache, testLogger(t))
	require.NoError(t, err)
	return svc, f
}

func TestNewService_Config(t *testing.T) {
	f := newTestFacade(t, &fakeSource{})

	svc, err := NewService(f, &config.EngineConfig{}, nil, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, DefaultN, svc.DefaultN())

	svc, err = NewService(f, &config.EngineConfig{DefaultN: "25", QueryTimeout: "2s", MinTitleScore: "0.8"}, nil, testLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 25, svc.DefaultN())

	testCases := []struct {
		name string
		cfg  config.EngineConfig
		msg  string
	}{
		{"bad timeout", config.EngineConfig{QueryTimeout: "soon"}, "invalid query timeout"},
		{"bad title score", config.EngineConfig{MinTitleScore: "1.5"}, "invalid min title score"},
		{"bad default n", config.EngineConfig{DefaultN: "0"}, "invalid default n"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewService(f, &tc.cfg, nil, testLogger(t))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestService_TwoLikedTitlesRankCoRatedPartner(t *testing.T) {
	svc, f := readyService(t, &config.EngineConfig{}, nil)

	res, err := svc.Recommend(context.Background(), TitleQuery{
		Titles: []string{"Inception", "Interstellar"},
		N:      2,
		Method: MethodItemCF,
	})
	require.NoError(t, err)

	require.Len(t, res.Recommendations, 1)
	assert.Equal(t, "Tenet (2020)", res.Recommendations[0].Title)
	assert.Equal(t, "because you liked Inception (2010)", res.Recommendations[0].Explanation)
	assert.Equal(t, f.Current().Index.ID(), res.IndexID)
	assert.Empty(t, res.Unresolved)
	assert.False(t, res.Cached)
}

func TestService_UnknownTitle(t *testing.T) {
	svc, _ := readyService(t, &config.EngineConfig{}, nil)

	_, err := svc.Recommend(context.Background(), TitleQuery{
		Titles: []string{"Unknown Movie"},
		N:      5,
		Method: MethodItemCF,
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoLikedItemsResolved)

	var resErr *ResolutionError
	require.True(t, errors.As(err, &resErr))
	assert.Equal(t, []string{"Unknown Movie"}, resErr.Unresolved)
}

func TestService_PartialResolution(t *testing.T) {
	svc, _ := readyService(t, &config.EngineConfig{}, nil)

	res, err := svc.Recommend(context.Background(), TitleQuery{
		Titles: []string{"Unknown Movie", "interstelar"},
		N:      5,
		Method: MethodItemCF,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Unknown Movie"}, res.Unresolved)
	assert.Equal(t, []catalog.ItemID{inception, tenet}, itemIDs(res.Recommendations))
}

func TestService_UnsupportedMethod(t *testing.T) {
	f := newTestFacade(t, &fakeSource{})
	svc, err := NewService(f, &config.EngineConfig{}, nil, testLogger(t))
	require.NoError(t, err)

	_, err = svc.Recommend(context.Background(), TitleQuery{Titles: []string{"Inception"}, N: 2, Method: "user_cf"})
	assert.ErrorIs(t, err, ErrUnsupportedMethod)
}

func TestService_Validation(t *testing.T) {
	f := newTestFacade(t, &fakeSource{})
	svc, err := NewService(f, &config.EngineConfig{}, nil, testLogger(t))
	require.NoError(t, err)

	_, err = svc.Recommend(context.Background(), TitleQuery{N: 2, Method: MethodItemCF})
	assert.ErrorIs(t, err, ErrEmptyInput)

	res, err := svc.Recommend(context.Background(), TitleQuery{Titles: []string{"Inception"}, N: -1, Method: MethodItemCF})
	require.NoError(t, err)
	assert.Empty(t, res.Recommendations)

	_, err = svc.Recommend(context.Background(), TitleQuery{Titles: []string{"Inception"}, N: 2, Method: MethodItemCF})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}

func TestService_QueryTimeoutWhileWaiting(t *testing.T) {
	f := newTestFacade(t, &fakeSource{}, WithWaitForIndex(true))
	svc, err := NewService(f, &config.EngineConfig{QueryTimeout: "20ms"}, nil, testLogger(t))
	require.NoError(t, err)

	_, err = svc.Recommend(context.Background(), TitleQuery{Titles: []string{"Inception"}, N: 2, Method: MethodItemCF})
	assert.ErrorIs(t, err, ErrIndexUnavailable)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestService_Cache(t *testing.T) {
	cache := newMemoryCache()
	svc, f := readyService(t, &config.EngineConfig{}, cache)
	q := TitleQuery{Titles: []string{"Inception", "Interstellar"}, N: 3, Method: MethodItemCF}

	first, err := svc.Recommend(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, first.Cached)
	assert.Equal(t, 1, cache.sets)

	second, err := svc.Recommend(context.Background(), q)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Recommendations, second.Recommendations)
	assert.Equal(t, 1, cache.sets)

	// a new index never reads entries written for the old one
	_, err = f.Rebuild(context.Background())
	require.NoError(t, err)
	third, err := svc.Recommend(context.Background(), q)
	require.NoError(t, err)
	assert.False(t, third.Cached)
	assert.Equal(t, 2, cache.sets)
}

func TestService_CacheErrorFallsThrough(t *testing.T) {
	cache := newMemoryCache()
	cache.getErr = errors.New("connection refused")
	svc, _ := readyService(t, &config.EngineConfig{}, cache)

	res, err := svc.Recommend(context.Background(), TitleQuery{Titles: []string{"Inception"}, N: 3, Method: MethodItemCF})
	require.NoError(t, err)
	assert.False(t, res.Cached)
	assert.NotEmpty(t, res.Recommendations)
}

func TestCacheKey(t *testing.T) {
	key := cacheKey("abc", MethodItemCF, 5, []catalog.ItemID{3, 1, 2})
	assert.Equal(t, "rec:abc:item_cf:5:3,1,2", key)
	assert.NotEqual(t, key, cacheKey("abc", MethodItemCF, 5, []catalog.ItemID{1, 2, 3}))
}
