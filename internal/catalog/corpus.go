package catalog

import (
	"fmt"
	"sort"
)

// Corpus is a read-only snapshot of the item catalog and the ratings made against it.
// Slices returned by its accessors are shared and must not be modified.
type Corpus struct {
	items   map[ItemID]Item
	itemIDs []ItemID
	userIDs []UserID

	byUser map[UserID][]ItemRating
	byItem map[ItemID][]UserRating

	numRatings int
}

// Option configures corpus construction
type Option func(*options)

type options struct {
	minValue, maxValue float64
	checkRange         bool
}

// WithValueRange rejects ratings outside [min, max]
func WithValueRange(min, max float64) Option {
	return func(o *options) {
		o.minValue = min
		o.maxValue = max
		o.checkRange = true
	}
}

// New validates items and ratings and derives the per-user and per-item indices.
// Duplicate (user, item) ratings resolve last-write-wins in input order.
func New(items []Item, ratings []Rating, opts ...Option) (*Corpus, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	c := &Corpus{
		items:   make(map[ItemID]Item, len(items)),
		itemIDs: make([]ItemID, 0, len(items)),
		byUser:  make(map[UserID][]ItemRating),
		byItem:  make(map[ItemID][]UserRating),
	}

	for _, item := range items {
		if _, exists := c.items[item.ID]; exists {
			return nil, fmt.Errorf("%w: %d", ErrDuplicateItem, item.ID)
		}
		c.items[item.ID] = item
		c.itemIDs = append(c.itemIDs, item.ID)
	}
	sort.Slice(c.itemIDs, func(i, j int) bool { return c.itemIDs[i] < c.itemIDs[j] })

	type key struct {
		user UserID
		item ItemID
	}
	latest := make(map[key]float64, len(ratings))
	for _, r := range ratings {
		if _, ok := c.items[r.ItemID]; !ok {
			return nil, fmt.Errorf("%w: user %d rated item %d", ErrUnknownRatingItem, r.UserID, r.ItemID)
		}
		if o.checkRange && (r.Value < o.minValue || r.Value > o.maxValue) {
			return nil, fmt.Errorf("%w: user %d item %d value %g not in [%g, %g]",
				ErrRatingOutOfRange, r.UserID, r.ItemID, r.Value, o.minValue, o.maxValue)
		}
		latest[key{r.UserID, r.ItemID}] = r.Value
	}

	for k, v := range latest {
		c.byUser[k.user] = append(c.byUser[k.user], ItemRating{Item: k.item, Value: v})
		c.byItem[k.item] = append(c.byItem[k.item], UserRating{User: k.user, Value: v})
	}
	c.numRatings = len(latest)

	// Map iteration order is random; sort every derived list so consumers see a fixed order.
	c.userIDs = make([]UserID, 0, len(c.byUser))
	for u, list := range c.byUser {
		sort.Slice(list, func(i, j int) bool { return list[i].Item < list[j].Item })
		c.userIDs = append(c.userIDs, u)
	}
	sort.Slice(c.userIDs, func(i, j int) bool { return c.userIDs[i] < c.userIDs[j] })

	for _, list := range c.byItem {
		sort.Slice(list, func(i, j int) bool { return list[i].User < list[j].User })
	}

	return c, nil
}

// Item looks up a catalog entry
func (c *Corpus) Item(id ItemID) (Item, bool) {
	item, ok := c.items[id]
	return item, ok
}

// Title returns the display title of an item, or "" if unknown
func (c *Corpus) Title(id ItemID) string {
	return c.items[id].Title
}

// Items returns the catalog sorted by ID
func (c *Corpus) Items() []Item {
	out := make([]Item, len(c.itemIDs))
	for i, id := range c.itemIDs {
		out[i] = c.items[id]
	}
	return out
}

// ItemIDs returns all catalog IDs in ascending order
func (c *Corpus) ItemIDs() []ItemID {
	return c.itemIDs
}

// UserIDs returns the IDs of every user with at least one rating, ascending
func (c *Corpus) UserIDs() []UserID {
	return c.userIDs
}

// UserRatings returns a user's ratings sorted by item ID
func (c *Corpus) UserRatings(u UserID) []ItemRating {
	return c.byUser[u]
}

// ItemRatings returns an item's ratings sorted by user ID
func (c *Corpus) ItemRatings(i ItemID) []UserRating {
	return c.byItem[i]
}

func (c *Corpus) NumItems() int   { return len(c.itemIDs) }
func (c *Corpus) NumUsers() int   { return len(c.userIDs) }
func (c *Corpus) NumRatings() int { return c.numRatings }
