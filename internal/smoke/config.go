// Package smoke drives a running recommendation service over HTTP and
// checks the properties its API promises.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL   string        // Base URL of the service
	Users     []string      // User ids to request recommendations for
	PageLimit int           // Page size used when walking the catalog
	MaxPages  int           // Upper bound on pages walked
	Workers   int           // Concurrent recommendation requests
	Timeout   time.Duration // HTTP request timeout
	AllowBusy bool          // Treat 503 busy responses as passing
	Verbose   bool          // Log every request
}

// Item is a catalog entry as served by the API.
type Item struct {
	ItemID   string `json:"itemId"`
	Title    string `json:"title"`
	ImageURL string `json:"imageUrl"`
}

// Page is one page of /api/items.
type Page struct {
	Data       []Item `json:"data"`
	Pagination struct {
		CurrentPage int   `json:"currentPage"`
		TotalPages  int64 `json:"totalPages"`
		TotalItems  int64 `json:"totalItems"`
	} `json:"pagination"`
}

// PopularItem is one row of /api/items/popular.
type PopularItem struct {
	ItemID      string `json:"itemId"`
	Title       string `json:"title"`
	RatingCount int64  `json:"ratingCount"`
}

// SearchHit is one row of /api/search.
type SearchHit struct {
	Item
	Score float64 `json:"score"`
}

// ErrorBody is the API error envelope.
type ErrorBody struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details"`
}

// Stats holds run statistics.
type Stats struct {
	Checks          int
	Failures        int
	Requests        int64
	Recommendations int64
	Busy            int64
	StartTime       time.Time
	Duration        time.Duration
}
