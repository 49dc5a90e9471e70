package entity

import "time"

// ProductHistory is an append-only snapshot of tracked product fields,
// inserted whenever one of them changes.
type ProductHistory struct {
	ID              int64     `db:"id"`
	ASIN            string    `db:"asin"`
	Price           *float64  `db:"price"`
	Rating          *float64  `db:"rating"`
	ReviewCount     *int      `db:"review_count"`
	BestSellersRank *int      `db:"best_sellers_rank"`
	ViolationCount  int       `db:"violation_count"`
	CapturedAt      time.Time `db:"captured_at"`
}
