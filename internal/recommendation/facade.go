package recommendation

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/movie-recommender/internal/catalog"
	"github.com/dustin/movie-recommender/internal/metrics"
	"github.com/dustin/movie-recommender/internal/similarity"
	"github.com/dustin/movie-recommender/internal/title"
	"github.com/dustin/movie-recommender/pkg/logger"
)

// Snapshot pairs a corpus with the index built from it. Never mutated after publish.
type Snapshot struct {
	Corpus      *catalog.Corpus
	Index       *similarity.Index
	Titles      *title.Index
	Version     uint64
	PublishedAt time.Time
	Source      string
}

// Recommend ranks with the given strategy and attaches titles and explanations
func (s *Snapshot) Recommend(ctx context.Context, strategy Strategy, liked []catalog.ItemID, n int) ([]Recommendation, error) {
	scored, err := strategy.Rank(ctx, s.Index, liked, n)
	if err != nil {
		return nil, err
	}

	recs := make([]Recommendation, 0, len(scored))
	for _, sc := range scored {
		because := s.Corpus.Title(sc.Rationale)
		recs = append(recs, Recommendation{
			ItemID:          sc.Item,
			Title:           s.Corpus.Title(sc.Item),
			Score:           sc.Score,
			RationaleItemID: sc.Rationale,
			RationaleTitle:  because,
			Explanation:     Explain(because),
		})
	}
	return recs, nil
}

// Status describes the published snapshot and the last rebuild
type Status struct {
	Ready        bool      `json:"ready"`
	Version      uint64    `json:"version"`
	IndexID      string    `json:"index_id,omitempty"`
	Source       string    `json:"source,omitempty"`
	BuiltAt      time.Time `json:"built_at,omitempty"`
	PublishedAt  time.Time `json:"published_at,omitempty"`
	Items        int       `json:"items"`
	Users        int       `json:"users"`
	Ratings      int       `json:"ratings"`
	IndexedItems int       `json:"indexed_items"`
	Pairs        int       `json:"pairs"`
	Rebuilding   bool      `json:"rebuilding"`
	LastRebuild  time.Time `json:"last_rebuild,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	Methods      []Method  `json:"methods"`
}

// FacadeOption configures a Facade
type FacadeOption func(*Facade)

// WithWaitForIndex makes Acquire block until the first publish instead of
// failing with ErrIndexUnavailable
func WithWaitForIndex(wait bool) FacadeOption {
	return func(f *Facade) {
		f.waitForIndex = wait
	}
}

// WithRegistry replaces the default method registry
func WithRegistry(r *Registry) FacadeOption {
	return func(f *Facade) {
		f.registry = r
	}
}

// Facade owns the current snapshot. Readers load it atomically; rebuilds
// serialize among themselves and swap in a fully built replacement.
type Facade struct {
	source       catalog.Source
	params       similarity.Params
	registry     *Registry
	waitForIndex bool
	logger       *logger.Logger

	current   atomic.Pointer[Snapshot]
	version   atomic.Uint64
	ready     chan struct{}
	readyOnce sync.Once

	rebuildMu  sync.Mutex
	rebuilding atomic.Bool

	statusMu    sync.RWMutex
	lastRebuild time.Time
	lastErr     error
}

// NewFacade creates an empty facade; nothing is served until the first Rebuild or Publish
func NewFacade(source catalog.Source, params similarity.Params, log *logger.Logger, opts ...FacadeOption) (*Facade, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid similarity params: %w", err)
	}

	f := &Facade{
		source:   source,
		params:   params,
		registry: DefaultRegistry(),
		logger:   log.WithComponent("engine"),
		ready:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// Registry returns the method registry
func (f *Facade) Registry() *Registry {
	return f.registry
}

// Current returns the published snapshot or nil
func (f *Facade) Current() *Snapshot {
	return f.current.Load()
}

// Acquire pins the current snapshot for the duration of one query
func (f *Facade) Acquire(ctx context.Context) (*Snapshot, error) {
	if snap := f.current.Load(); snap != nil {
		return snap, nil
	}
	if !f.waitForIndex {
		return nil, ErrIndexUnavailable
	}

	select {
	case <-f.ready:
		return f.current.Load(), nil
	case <-ctx.Done():
		return nil, fmt.Errorf("%w: %w", ErrIndexUnavailable, ctx.Err())
	}
}

// Rebuild loads a fresh corpus, builds its index and publishes both. Queries keep
// running against the previous snapshot until the swap.
func (f *Facade) Rebuild(ctx context.Context) (*Snapshot, error) {
	f.rebuildMu.Lock()
	defer f.rebuildMu.Unlock()
	return f.rebuildLocked(ctx)
}

// StartRebuild begins a rebuild in the background unless one is already running,
// in which case it returns false and done is never called. done runs once the
// rebuild finishes, before the next rebuild may start.
func (f *Facade) StartRebuild(ctx context.Context, done func(*Snapshot, error)) bool {
	if !f.rebuildMu.TryLock() {
		return false
	}
	f.rebuilding.Store(true)

	go func() {
		defer f.rebuildMu.Unlock()
		snap, err := f.rebuildLocked(ctx)
		if done != nil {
			done(snap, err)
		}
	}()
	return true
}

// rebuildLocked runs one rebuild; the caller holds rebuildMu
func (f *Facade) rebuildLocked(ctx context.Context) (*Snapshot, error) {
	f.rebuilding.Store(true)
	defer f.rebuilding.Store(false)

	start := time.Now()
	snap, err := f.rebuild(ctx)
	f.recordRebuild(err)
	if err != nil {
		metrics.RecordRebuild("error", 0)
		f.logger.Error("Index rebuild failed after " + time.Since(start).String() + ": " + err.Error())
		return nil, err
	}

	metrics.RecordRebuild("success", time.Since(start))
	f.logger.Info(fmt.Sprintf("Index %s published as version %d in %s: %d items, %d users, %d ratings, %d pairs",
		snap.Index.ID(), snap.Version, time.Since(start), snap.Corpus.NumItems(), snap.Corpus.NumUsers(),
		snap.Corpus.NumRatings(), snap.Index.NumPairs()))
	return snap, nil
}

func (f *Facade) rebuild(ctx context.Context) (*Snapshot, error) {
	if f.source == nil {
		return nil, fmt.Errorf("no corpus source configured")
	}

	f.logger.Info("Loading corpus from " + f.source.Name())
	corpus, err := f.source.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load corpus from %s: %w", f.source.Name(), err)
	}

	idx, err := similarity.Build(ctx, corpus, f.params)
	if err != nil {
		return nil, fmt.Errorf("build similarity index: %w", err)
	}

	return f.publish(corpus, idx, f.source.Name()), nil
}

// Publish installs a prebuilt corpus and index
func (f *Facade) Publish(corpus *catalog.Corpus, idx *similarity.Index) *Snapshot {
	f.rebuildMu.Lock()
	defer f.rebuildMu.Unlock()

	source := "manual"
	if f.source != nil {
		source = f.source.Name()
	}
	snap := f.publish(corpus, idx, source)
	f.recordRebuild(nil)
	return snap
}

func (f *Facade) publish(corpus *catalog.Corpus, idx *similarity.Index, source string) *Snapshot {
	snap := &Snapshot{
		Corpus:      corpus,
		Index:       idx,
		Titles:      title.NewIndex(corpus.Items()),
		Version:     f.version.Add(1),
		PublishedAt: time.Now(),
		Source:      source,
	}
	f.current.Store(snap)
	f.readyOnce.Do(func() { close(f.ready) })

	metrics.RecordPublish(snap.Version, idx.NumItems(), idx.NumPairs())
	return snap
}

func (f *Facade) recordRebuild(err error) {
	f.statusMu.Lock()
	defer f.statusMu.Unlock()
	f.lastRebuild = time.Now()
	f.lastErr = err
}

// Recommend answers an ID-based query. Validation runs before any snapshot is
// touched; unknown IDs are skipped and reported in Result.Unresolved.
func (f *Facade) Recommend(ctx context.Context, q Query) (*Result, error) {
	if len(q.Liked) == 0 {
		return nil, ErrEmptyInput
	}
	strategy, err := f.registry.Lookup(q.Method)
	if err != nil {
		return nil, err
	}
	if q.N <= 0 {
		return emptyResult(q.Method), nil
	}

	snap, err := f.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	known := make([]catalog.ItemID, 0, len(q.Liked))
	unresolved := make([]string, 0)
	for _, id := range q.Liked {
		if _, ok := snap.Corpus.Item(id); ok {
			known = append(known, id)
			continue
		}
		unresolved = append(unresolved, strconv.FormatInt(int64(id), 10))
	}
	if len(known) == 0 {
		return nil, &ResolutionError{Unresolved: unresolved}
	}

	recs, err := snap.Recommend(ctx, strategy, known, q.N)
	if err != nil {
		return nil, err
	}

	return &Result{
		Recommendations: recs,
		Unresolved:      unresolved,
		IndexID:         snap.Index.ID(),
		Version:         snap.Version,
		Method:          q.Method,
	}, nil
}

// Rebuilding reports whether a rebuild is in progress
func (f *Facade) Rebuilding() bool {
	return f.rebuilding.Load()
}

// Status reports the published snapshot and the outcome of the last rebuild
func (f *Facade) Status() Status {
	st := Status{
		Rebuilding: f.rebuilding.Load(),
		Methods:    f.registry.Methods(),
	}

	f.statusMu.RLock()
	st.LastRebuild = f.lastRebuild
	if f.lastErr != nil {
		st.LastError = f.lastErr.Error()
	}
	f.statusMu.RUnlock()

	snap := f.current.Load()
	if snap == nil {
		return st
	}
	st.Ready = true
	st.Version = snap.Version
	st.IndexID = snap.Index.ID()
	st.Source = snap.Source
	st.BuiltAt = snap.Index.BuiltAt()
	st.PublishedAt = snap.PublishedAt
	st.Items = snap.Corpus.NumItems()
	st.Users = snap.Corpus.NumUsers()
	st.Ratings = snap.Corpus.NumRatings()
	st.IndexedItems = snap.Index.NumItems()
	st.Pairs = snap.Index.NumPairs()
	return st
}
