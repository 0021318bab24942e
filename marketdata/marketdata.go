// Package marketdata provides the external data-fetch and result-store
// capabilities consumed by scheduled jobs. Dates cross these boundaries
// as ISO strings (YYYY-MM-DD), matching the job date model.
package marketdata

import "context"

// Row is one daily bar for a single item.
type Row struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// Fetcher retrieves daily bars for one item over a date range.
type Fetcher interface {
	Fetch(ctx context.Context, itemID, startDate, endDate string) ([]Row, error)
}

// ResultStore persists fetched rows under a namespace for later retrieval.
type ResultStore interface {
	Store(ctx context.Context, rows []Row, namespace, itemID, startDate, endDate string) error
}
