package recommendation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/movie-recommender/internal/catalog"
)

// Method selects a ranking strategy
type Method string

// MethodItemCF is item-based collaborative filtering
const MethodItemCF Method = "item_cf"

// DefaultN is the result size used when a request does not name one
const DefaultN = 10

var (
	ErrEmptyInput           = errors.New("at least one liked movie is required")
	ErrUnsupportedMethod    = errors.New("unsupported recommendation method")
	ErrUnknownItem          = errors.New("unknown item")
	ErrNoLikedItemsResolved = errors.New("no liked items resolved")
	ErrIndexUnavailable     = errors.New("similarity index not available")
)

// ResolutionError reports that none of the liked inputs matched the catalog
type ResolutionError struct {
	Unresolved []string
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoLikedItemsResolved, strings.Join(e.Unresolved, ", "))
}

func (e *ResolutionError) Unwrap() []error {
	return []error{ErrNoLikedItemsResolved, ErrUnknownItem}
}

// Query asks for recommendations from liked item IDs, in the caller's order
type Query struct {
	Liked  []catalog.ItemID
	N      int
	Method Method
}

// TitleQuery asks for recommendations from liked titles, resolved against the catalog
type TitleQuery struct {
	Titles []string
	N      int
	Method Method
}

// Recommendation is one ranked candidate with the liked item that contributed most to it
type Recommendation struct {
	ItemID          catalog.ItemID `json:"movie_id"`
	Title           string         `json:"title"`
	Score           float64        `json:"score"`
	RationaleItemID catalog.ItemID `json:"because_of_id"`
	RationaleTitle  string         `json:"because_of"`
	Explanation     string         `json:"explanation"`
}

// Result is the answer to one query, bound to the snapshot it was computed against
type Result struct {
	Recommendations []Recommendation `json:"recommendations"`
	Unresolved      []string         `json:"unresolved"`
	IndexID         string           `json:"index_id"`
	Version         uint64           `json:"version"`
	Method          Method           `json:"method"`
	Cached          bool             `json:"cached"`
}

// Service defines the interface for title-based recommendation queries
type Service interface {
	Recommend(ctx context.Context, q TitleQuery) (*Result, error)
	DefaultN() int
}

func emptyResult(method Method) *Result {
	return &Result{
		Recommendations: []Recommendation{},
		Unresolved:      []string{},
		Method:          method,
	}
}
