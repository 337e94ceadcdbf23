package recommendation

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/similarity"
	"github.com/dustin/movie-recommender/pkg/logger"
	"github.com/stretchr/testify/require"
)

const (
	inception    catalog.ItemID = 1
	interstellar catalog.ItemID = 2
	tenet        catalog.ItemID = 3
	dunkirk      catalog.ItemID = 4
)

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.NewLogger(&config.LoggingConfig{Level: "error", Format: "console"})
	require.NoError(t, err)
	return log
}

func nolanItems() []catalog.Item {
	return []catalog.Item{
		{ID: inception, Title: "Inception (2010)"},
		{ID: interstellar, Title: "Interstellar (2014)"},
		{ID: tenet, Title: "Tenet (2020)"},
		{ID: dunkirk, Title: "Dunkirk (2017)"},
	}
}

func nolanRatings() []catalog.Rating {
	return []catalog.Rating{
		{UserID: 1, ItemID: inception, Value: 5},
		{UserID: 1, ItemID: interstellar, Value: 5},
		{UserID: 1, ItemID: tenet, Value: 4},
		{UserID: 2, ItemID: inception, Value: 4},
		{UserID: 2, ItemID: interstellar, Value: 5},
		{UserID: 3, ItemID: tenet, Value: 5},
		{UserID: 3, ItemID: dunkirk, Value: 4},
	}
}

func nolanCorpus(t *testing.T) *catalog.Corpus {
	t.Helper()
	c, err := catalog.New(nolanItems(), nolanRatings())
	require.NoError(t, err)
	return c
}

// nolanCorpusV2 adds a viewer who connects Dunkirk to the liked items
func nolanCorpusV2(t *testing.T) *catalog.Corpus {
	t.Helper()
	ratings := append(nolanRatings(),
		catalog.Rating{UserID: 4, ItemID: inception, Value: 5},
		catalog.Rating{UserID: 4, ItemID: dunkirk, Value: 5},
	)
	c, err := catalog.New(nolanItems(), ratings)
	require.NoError(t, err)
	return c
}

func nolanParams() similarity.Params {
	p := similarity.DefaultParams()
	p.K = 5
	p.MinCoRaters = 1
	return p
}

func buildIndex(t *testing.T, c *catalog.Corpus, p similarity.Params) *similarity.Index {
	t.Helper()
	idx, err := similarity.Build(context.Background(), c, p)
	require.NoError(t, err)
	return idx
}

// fakeSource hands out corpora in order, repeating the last one
type fakeSource struct {
	mu      sync.Mutex
	corpora []*catalog.Corpus
	calls   int
	err     error
}

func (s *fakeSource) Load(ctx context.Context) (*catalog.Corpus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	if len(s.corpora) == 0 {
		return nil, errors.New("no corpus")
	}
	i := s.calls
	if i >= len(s.corpora) {
		i = len(s.corpora) - 1
	}
	s.calls++
	return s.corpora[i], nil
}

func (s *fakeSource) Name() string { return "fake" }

func newTestFacade(t *testing.T, src catalog.Source, opts ...FacadeOption) *Facade {
	t.Helper()
	f, err := NewFacade(src, nolanParams(), testLogger(t), opts...)
	require.NoError(t, err)
	return f
}

func itemIDs(recs []Recommendation) []catalog.ItemID {
	out := make([]catalog.ItemID, len(recs))
	for i, r := range recs {
		out[i] = r.ItemID
	}
	return out
}

// gatedSource blocks Load until release is closed
type gatedSource struct {
	corpus  *catalog.Corpus
	entered chan struct{}
	release chan struct{}
}

func newGatedSource(c *catalog.Corpus) *gatedSource {
	return &gatedSource{corpus: c, entered: make(chan struct{}, 8), release: make(chan struct{})}
}

func (s *gatedSource) Load(ctx context.Context) (*catalog.Corpus, error) {
	s.entered <- struct{}{}
	select {
	case <-s.release:
		return s.corpus, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *gatedSource) Name() string { return "gated" }
