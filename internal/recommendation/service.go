package recommendation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/movie-recommender/config"
	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/metrics"
	"github.com/dustin/movie-recommender/internal/title"
	"github.com/dustin/movie-recommender/pkg/logger"
)

// ResponseCache stores ranked lists keyed by snapshot and query
type ResponseCache interface {
	Get(ctx context.Context, key string, dst interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// service implements the Service interface
type service struct {
	facade        *Facade
	cache         ResponseCache
	queryTimeout  time.Duration
	minTitleScore float64
	defaultN      int
	logger        *logger.Logger
}

// NewService creates the title-based query service. cache may be nil.
func NewService(facade *Facade, cfg *config.EngineConfig, cache ResponseCache, log *logger.Logger) (Service, error) {
	s := &service{
		facade:        facade,
		cache:         cache,
		minTitleScore: title.DefaultMinScore,
		defaultN:      DefaultN,
		logger:        log.WithComponent("recommendation-service"),
	}

	if cfg.QueryTimeout != "" {
		d, err := time.ParseDuration(cfg.QueryTimeout)
		if err != nil {
			return nil, fmt.Errorf("invalid query timeout '%s': %v", cfg.QueryTimeout, err)
		}
		s.queryTimeout = d
	}
	if cfg.MinTitleScore != "" {
		v, err := strconv.ParseFloat(cfg.MinTitleScore, 64)
		if err != nil || v < 0 || v > 1 {
			return nil, fmt.Errorf("invalid min title score '%s': must be a number in [0, 1]", cfg.MinTitleScore)
		}
		s.minTitleScore = v
	}
	if cfg.DefaultN != "" {
		n, err := strconv.Atoi(cfg.DefaultN)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid default n '%s': must be a positive integer", cfg.DefaultN)
		}
		s.defaultN = n
	}

	return s, nil
}

func (s *service) DefaultN() int {
	return s.defaultN
}

func (s *service) Recommend(ctx context.Context, q TitleQuery) (*Result, error) {
	start := time.Now()
	res, err := s.recommend(ctx, q)

	// keep label cardinality bounded by what the registry knows
	label := string(q.Method)
	if _, lookupErr := s.facade.Registry().Lookup(q.Method); lookupErr != nil {
		label = "unsupported"
	}
	metrics.RecordQuery(label, outcomeOf(err), time.Since(start))
	return res, err
}

func (s *service) recommend(ctx context.Context, q TitleQuery) (*Result, error) {
	if len(q.Titles) == 0 {
		return nil, ErrEmptyInput
	}
	strategy, err := s.facade.Registry().Lookup(q.Method)
	if err != nil {
		return nil, err
	}
	if q.N <= 0 {
		return emptyResult(q.Method), nil
	}

	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}

	snap, err := s.facade.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	liked, unresolved := s.resolve(snap, q.Titles)
	metrics.RecordUnresolved(len(unresolved))
	if len(liked) == 0 {
		s.logger.Debug("No liked titles resolved: " + strings.Join(unresolved, ", "))
		return nil, &ResolutionError{Unresolved: unresolved}
	}

	res := &Result{
		Unresolved: unresolved,
		IndexID:    snap.Index.ID(),
		Version:    snap.Version,
		Method:     q.Method,
	}

	key := cacheKey(snap.Index.ID(), q.Method, q.N, liked)
	if recs, ok := s.cached(ctx, key); ok {
		res.Recommendations = recs
		res.Cached = true
		return res, nil
	}

	recs, err := snap.Recommend(ctx, strategy, liked, q.N)
	if err != nil {
		return nil, err
	}
	res.Recommendations = recs

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, recs); err != nil {
			s.logger.Warn("Failed to cache recommendations: " + err.Error())
		}
	}

	s.logger.Debug(fmt.Sprintf("Ranked %d recommendations for %d liked movies against index %s",
		len(recs), len(liked), snap.Index.ID()))
	return res, nil
}

// resolve maps titles to item IDs against one snapshot, keeping input order
func (s *service) resolve(snap *Snapshot, titles []string) ([]catalog.ItemID, []string) {
	liked := make([]catalog.ItemID, 0, len(titles))
	unresolved := make([]string, 0)
	for _, t := range titles {
		m, ok := snap.Titles.Resolve(t, s.minTitleScore)
		if !ok {
			unresolved = append(unresolved, t)
			continue
		}
		liked = append(liked, m.ItemID)
	}
	return liked, unresolved
}

func (s *service) cached(ctx context.Context, key string) ([]Recommendation, bool) {
	if s.cache == nil {
		return nil, false
	}

	var recs []Recommendation
	ok, err := s.cache.Get(ctx, key, &recs)
	switch {
	case err != nil:
		metrics.RecordCache("error")
		s.logger.Warn("Cache lookup failed: " + err.Error())
		return nil, false
	case !ok:
		metrics.RecordCache("miss")
		return nil, false
	}

	metrics.RecordCache("hit")
	if recs == nil {
		recs = []Recommendation{}
	}
	return recs, true
}

// cacheKey identifies a query against one index; a new index never reuses old entries
func cacheKey(indexID string, method Method, n int, liked []catalog.ItemID) string {
	var b strings.Builder
	b.WriteString("rec:")
	b.WriteString(indexID)
	b.WriteByte(':')
	b.WriteString(string(method))
	b.WriteByte(':')
	b.WriteString(strconv.Itoa(n))
	b.WriteByte(':')
	for i, id := range liked {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatInt(int64(id), 10))
	}
	return b.String()
}

func outcomeOf(err error) string {
	if err == nil {
		return "ok"
	}
	return errorCode(err)
}
