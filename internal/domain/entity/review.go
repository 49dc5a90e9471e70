package entity

import (
	"database/sql/driver"
	"strings"
	"time"

	"github.com/lib/pq"
)

// Variant holds the purchased-variation attributes of a review (size, color).
type Variant map[string]string

func (v Variant) Value() (driver.Value, error) { return valueJSON(v) }
func (v *Variant) Scan(src interface{}) error  { return scanJSON(src, v) }

// Review is one product review, keyed by the source-provided review id.
type Review struct {
	ReviewID     string         `db:"review_id"`
	ASIN         string         `db:"asin"`
	Title        string         `db:"title"`
	Body         string         `db:"body"`
	Rating       int            `db:"rating"`
	AuthorName   *string        `db:"author_name"`
	AuthorID     *string        `db:"author_id"`
	Verified     bool           `db:"verified"`
	HelpfulVotes int            `db:"helpful_votes"`
	TotalVotes   int            `db:"total_votes"`
	ReviewDate   *time.Time     `db:"review_date"`
	Variant      Variant        `db:"variant"`
	Country      *string        `db:"country"`
	ImageURLs    pq.StringArray `db:"image_urls"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`
}

// Scannable reports whether the review carries enough content to be
// submitted to the violation classifier.
func (r *Review) Scannable() bool {
	return r.ReviewID != "" && strings.TrimSpace(r.Body) != ""
}
