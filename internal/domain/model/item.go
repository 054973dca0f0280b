// Package model contains domain models passed between layers.
package model

// Item is a catalog entry. ItemID is the stable public identifier, not the
// store's internal primary key.
type Item struct {
	ItemID   string `json:"itemId" bson:"itemId"`
	Title    string `json:"title" bson:"title"`
	ImageURL string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
}

// HasImage reports whether the item carries display artwork.
func (i Item) HasImage() bool {
	return i.ImageURL != ""
}

// Interaction is a single user rating of an item. ItemID may reference an
// item that no longer exists.
type Interaction struct {
	UserID    string  `json:"userId" bson:"userId"`
	ItemID    string  `json:"itemId" bson:"itemId"`
	Rating    float64 `json:"rating" bson:"rating"`
	Timestamp *int64  `json:"timestamp,omitempty" bson:"timestamp,omitempty"`
}

// PopularItem is one row of the popularity rollup.
type PopularItem struct {
	ItemID      string `json:"itemId" bson:"itemId"`
	Title       string `json:"title" bson:"title"`
	RatingCount int64  `json:"ratingCount" bson:"ratingCount"`
	ImageURL    string `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
}

// SearchHit is an item returned by text search together with its relevance.
type SearchHit struct {
	Item  `bson:",inline"`
	Score float64 `json:"score" bson:"score"`
}
