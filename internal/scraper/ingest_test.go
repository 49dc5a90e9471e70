package scraper

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports/mocks"
	"reviewmonitor/internal/domain/entity"
)

func TestParseRating(t *testing.T) {
	cases := []struct {
		in   string
		want float64
	}{
		{"4.5 out of 5 stars", 4.5},
		{"3 out of 5 stars", 3},
		{"5.0", 5},
		{"", 0},
		{"not a rating", 0},
		{"9.9 out of 5 stars", 0}, // out of range
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, parseRating(tc.in), "input %q", tc.in)
	}
}

func TestParseStarBreakdown(t *testing.T) {
	got := parseStarBreakdown(map[string]string{
		"5": "70%",
		"4": " 15% ",
		"1": "garbage",
	})
	require.NotNil(t, got)
	assert.InDelta(t, 0.70, got["5"], 0.001)
	assert.InDelta(t, 0.15, got["4"], 0.001)
	_, ok := got["1"]
	assert.False(t, ok)

	assert.Nil(t, parseStarBreakdown(nil))
	assert.Nil(t, parseStarBreakdown(map[string]string{"5": "junk"}))
}

func TestParseRank(t *testing.T) {
	v, ok := parseRank("#1,234")
	require.True(t, ok)
	assert.Equal(t, 1234, v)

	v, ok = parseRank("42")
	require.True(t, ok)
	assert.Equal(t, 42, v)

	_, ok = parseRank("")
	assert.False(t, ok)
	_, ok = parseRank("#0")
	assert.False(t, ok)
}

func TestParseReviewDate(t *testing.T) {
	got, ok := parseReviewDate("2025-03-15")
	require.True(t, ok)
	assert.Equal(t, 2025, got.Year())

	got, ok = parseReviewDate("2025-03-15T10:30:00Z")
	require.True(t, ok)
	assert.Equal(t, 10, got.Hour())

	_, ok = parseReviewDate("")
	assert.False(t, ok)
	_, ok = parseReviewDate("March 15, 2025")
	assert.False(t, ok)
}

func TestMapProduct(t *testing.T) {
	raw := &rawProduct{
		ASIN:         "B000TEST01",
		Title:        "Wireless Earbuds",
		Brand:        "Acme",
		Availability: "In Stock",
		Images:       []string{"https://img.example.com/1.jpg"},
		Categories:   []string{"Electronics", "Audio"},
		Features:     []string{"Noise cancelling"},
		Rating:       "4.3 out of 5 stars",
		ReviewCount:  812,
		StarBreakdown: map[string]string{
			"5": "60%",
			"1": "5%",
		},
		ProductDetails: map[string]string{"Weight": "50g"},
		SalesRanks: []struct {
			Category string `json:"category"`
			Rank     string `json:"rank"`
		}{
			{Category: "Electronics", Rank: "#1,234"},
			{Category: "Audio", Rank: "n/a"},
		},
	}
	raw.Price.Value = 59.99
	raw.Price.Currency = "USD"

	product := mapProduct(raw)

	assert.Equal(t, "B000TEST01", product.ASIN)
	assert.Equal(t, "Wireless Earbuds", product.Title)
	require.NotNil(t, product.Brand)
	assert.Equal(t, "Acme", *product.Brand)
	require.NotNil(t, product.Price)
	assert.Equal(t, 59.99, *product.Price)
	assert.Equal(t, entity.ProductStatusActive, product.Status)
	assert.Equal(t, 4.3, product.RatingData.Average)
	assert.Equal(t, 812, product.RatingData.Count)
	assert.InDelta(t, 0.60, product.RatingData.Breakdown["5"], 0.001)

	// Unparseable rank is dropped, valid one kept
	require.Len(t, product.BestSellers, 1)
	assert.Equal(t, 1234, product.BestSellers[0].Rank)
}

func TestMapProductOmitsEmptyOptionals(t *testing.T) {
	product := mapProduct(&rawProduct{ASIN: "B000TEST01", Title: "Bare"})

	assert.Nil(t, product.Brand)
	assert.Nil(t, product.Price)
	assert.Nil(t, product.Currency)
	assert.Nil(t, product.Availability)
	assert.Empty(t, product.BestSellers)
}

func TestMapReview(t *testing.T) {
	raw := &rawReview{
		ReviewID:     "R1TEST",
		ASIN:         "B000TEST01",
		Title:        "Broke after a week",
		Body:         "The left earbud stopped charging.",
		Rating:       2.0,
		AuthorName:   "Jordan",
		Verified:     true,
		HelpfulVotes: 3,
		TotalVotes:   4,
		Date:         "2025-06-01",
		Variant:      map[string]string{"Color": "Black"},
		Country:      "US",
	}

	review := mapReview(raw)

	assert.Equal(t, "R1TEST", review.ReviewID)
	assert.Equal(t, 2, review.Rating)
	assert.True(t, review.Verified)
	require.NotNil(t, review.AuthorName)
	assert.Equal(t, "Jordan", *review.AuthorName)
	require.NotNil(t, review.ReviewDate)
	assert.Equal(t, time.June, review.ReviewDate.Month())
	assert.Equal(t, "Black", review.Variant["Color"])
	assert.Nil(t, review.AuthorID)
}

func TestIngestProductsSkipsBadRecords(t *testing.T) {
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, &fakeAPI{}, repos, nil)

	items := []apify.Item{
		apify.Item(`{"asin": "B000TEST01", "productTitle": "Good"}`),
		apify.Item(`not json`),
		apify.Item(`{"productTitle": "Missing ASIN"}`),
		apify.Item(`{"asin": "B000TEST02", "productTitle": "Also good"}`),
	}

	err := o.ingest(context.Background(), entity.ScrapeKindProduct, "run-1", items)
	require.NoError(t, err)

	count, err := repos.ProductsRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestIngestProductsAbortsOnUpsertFailure(t *testing.T) {
	repos := mocks.NewMemRepositories()
	repos.ProductsRepo.FailUpsert = true
	o := newTestOrchestrator(t, &fakeAPI{}, repos, nil)

	items := []apify.Item{apify.Item(`{"asin": "B000TEST01"}`)}

	err := o.ingest(context.Background(), entity.ScrapeKindProduct, "run-1", items)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert product B000TEST01")
}

func TestIngestProductsIsIdempotent(t *testing.T) {
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, &fakeAPI{}, repos, nil)

	items := []apify.Item{apify.Item(`{"asin": "B000TEST01", "productTitle": "First pass"}`)}
	require.NoError(t, o.ingest(context.Background(), entity.ScrapeKindProduct, "run-1", items))

	items = []apify.Item{apify.Item(`{"asin": "B000TEST01", "productTitle": "Second pass"}`)}
	require.NoError(t, o.ingest(context.Background(), entity.ScrapeKindProduct, "run-2", items))

	count, err := repos.ProductsRepo.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	p, err := repos.ProductsRepo.GetByASIN(context.Background(), "B000TEST01")
	require.NoError(t, err)
	assert.Equal(t, "Second pass", p.Title)
}

func TestIngestReviewsSkipsMissingKeys(t *testing.T) {
	repos := mocks.NewMemRepositories()
	o := newTestOrchestrator(t, &fakeAPI{}, repos, nil)

	items := []apify.Item{
		apify.Item(`{"reviewId": "R1", "asin": "B000TEST01", "text": "fine"}`),
		apify.Item(`{"reviewId": "", "asin": "B000TEST01"}`),
		apify.Item(`{"reviewId": "R2", "asin": ""}`),
	}

	err := o.ingest(context.Background(), entity.ScrapeKindReview, "run-1", items)
	require.NoError(t, err)

	n, err := repos.ReviewsRepo.CountByASIN(context.Background(), "B000TEST01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}
