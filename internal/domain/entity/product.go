package entity

import (
	"database/sql/driver"
	"time"

	"github.com/lib/pq"
)

type ProductStatus string

const (
	ProductStatusActive     ProductStatus = "active"
	ProductStatusQueued     ProductStatus = "queued"
	ProductStatusRefreshing ProductStatus = "refreshing"
	ProductStatusError      ProductStatus = "error"
)

// RatingData is the derived rating aggregate for a product. It is recomputed
// whenever the associated review set changes, never hand-edited.
type RatingData struct {
	Average float64 `json:"average"`
	Count   int     `json:"count"`
	// Breakdown maps star value ("1".."5") to the fraction of reviews
	// with that rating, normalized to 0..1.
	Breakdown   map[string]float64 `json:"breakdown,omitempty"`
	LastUpdated time.Time          `json:"last_updated"`
}

func (r RatingData) Value() (driver.Value, error) { return valueJSON(r) }
func (r *RatingData) Scan(src interface{}) error  { return scanJSON(src, r) }

// ReviewSummary is the derived verified-purchase aggregate for a product.
type ReviewSummary struct {
	VerifiedCount int       `json:"verified_count"`
	LastUpdated   time.Time `json:"last_updated"`
}

func (r ReviewSummary) Value() (driver.Value, error) { return valueJSON(r) }
func (r *ReviewSummary) Scan(src interface{}) error  { return scanJSON(src, r) }

// Specifications holds free-form key/value product attributes.
type Specifications map[string]string

func (s Specifications) Value() (driver.Value, error) { return valueJSON(s) }
func (s *Specifications) Scan(src interface{}) error  { return scanJSON(src, s) }

// BestSellersRank is one category rank entry from the product page.
type BestSellersRank struct {
	Category string `json:"category"`
	Rank     int    `json:"rank"`
}

type BestSellersRanks []BestSellersRank

func (b BestSellersRanks) Value() (driver.Value, error) { return valueJSON(b) }
func (b *BestSellersRanks) Scan(src interface{}) error  { return scanJSON(src, b) }

// Product is one monitored Amazon product, keyed by ASIN.
type Product struct {
	ASIN           string           `db:"asin"`
	Title          string           `db:"title"`
	Brand          *string          `db:"brand"`
	Price          *float64         `db:"price"`
	Currency       *string          `db:"currency"`
	Availability   *string          `db:"availability"`
	Images         pq.StringArray   `db:"images"`
	Categories     pq.StringArray   `db:"categories"`
	Features       pq.StringArray   `db:"features"`
	Specifications Specifications   `db:"specifications"`
	RatingData     RatingData       `db:"rating_data"`
	ReviewSummary  ReviewSummary    `db:"review_summary"`
	BestSellers    BestSellersRanks `db:"best_sellers_rank"`
	Status         ProductStatus    `db:"status"`
	CreatedAt      time.Time        `db:"created_at"`
	UpdatedAt      time.Time        `db:"updated_at"`
}
