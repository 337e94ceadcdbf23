package catalog

import (
	"context"
	"errors"
)

// ItemID identifies a movie in the catalog
type ItemID int64

// UserID identifies a rater
type UserID int64

// Item represents a movie. Immutable once loaded.
type Item struct {
	ID     ItemID   `json:"id"`
	Title  string   `json:"title"`
	Genres []string `json:"genres,omitempty"`
}

// Rating is a single (user, item, value) observation
type Rating struct {
	UserID UserID
	ItemID ItemID
	Value  float64
}

// ItemRating is one of a user's ratings, seen from the user
type ItemRating struct {
	Item  ItemID
	Value float64
}

// UserRating is one of an item's ratings, seen from the item
type UserRating struct {
	User  UserID
	Value float64
}

// Source loads a fresh corpus snapshot, e.g. from MovieLens files or a database
type Source interface {
	Load(ctx context.Context) (*Corpus, error)
	Name() string
}

var (
	ErrUnknownRatingItem = errors.New("rating references an item missing from the catalog")
	ErrRatingOutOfRange  = errors.New("rating value out of range")
	ErrDuplicateItem     = errors.New("duplicate item id in catalog")
)
