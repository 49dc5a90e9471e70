package scraper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"reviewmonitor/internal/apify"
	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
)

// rawProduct is the product actor's dataset record shape. Only the fields
// the monitor cares about are mapped; the full payload is archived as-is.
type rawProduct struct {
	ASIN         string `json:"asin"`
	Title        string `json:"productTitle"`
	Brand        string `json:"manufacturer"`
	Availability string `json:"warehouseAvailability"`
	Price        struct {
		Value    float64 `json:"value"`
		Currency string  `json:"currency"`
	} `json:"price"`
	Images         []string          `json:"imageUrlList"`
	Categories     []string          `json:"categories"`
	Features       []string          `json:"features"`
	ProductDetails map[string]string `json:"productDetails"`
	Rating         string            `json:"productRating"` // "4.5 out of 5 stars"
	ReviewCount    int               `json:"countReview"`
	// StarBreakdown maps star value to a percent string, e.g. {"5": "70%"}.
	StarBreakdown map[string]string `json:"reviewsBreakdown"`
	SalesRanks    []struct {
		Category string `json:"category"`
		Rank     string `json:"rank"` // "#1,234"
	} `json:"salesRank"`
}

// rawReview is the review actor's dataset record shape.
type rawReview struct {
	ReviewID     string            `json:"reviewId"`
	ASIN         string            `json:"asin"`
	Title        string            `json:"title"`
	Body         string            `json:"text"`
	Rating       float64           `json:"rating"`
	AuthorName   string            `json:"userName"`
	AuthorID     string            `json:"userId"`
	Verified     bool              `json:"verified"`
	HelpfulVotes int               `json:"numberOfHelpful"`
	TotalVotes   int               `json:"numberOfVotes"`
	Date         string            `json:"date"` // RFC 3339 or "2006-01-02"
	Variant      map[string]string `json:"variationList"`
	Country      string            `json:"countryCode"`
	ImageURLs    []string          `json:"imageUrlList"`
}

// ingest maps raw dataset items into entities and upserts them. A row
// write failure aborts the task; rows already written stay, the upsert
// keys make a retried run converge.
func (o *Orchestrator) ingest(ctx context.Context, kind entity.ScrapeKind, runID string, items []apify.Item) error {
	o.archiveSnapshot(ctx, kind, runID, items)

	start := time.Now()
	var err error
	switch kind {
	case entity.ScrapeKindReview:
		err = o.ingestReviews(ctx, runID, items)
	default:
		err = o.ingestProducts(ctx, runID, items)
	}

	o.metrics.RecordHistogram("scraper.ingest.duration", time.Since(start).Seconds(),
		map[string]string{"kind": string(kind)})
	return err
}

func (o *Orchestrator) ingestProducts(ctx context.Context, runID string, items []apify.Item) error {
	ingested := 0
	skipped := 0

	for i, item := range items {
		var raw rawProduct
		if err := json.Unmarshal(item, &raw); err != nil {
			o.logger.Warn("Skipping malformed product record", "run_id", runID, "index", i, "error", err)
			skipped++
			continue
		}
		if raw.ASIN == "" {
			skipped++
			continue
		}

		product := mapProduct(&raw)
		if err := o.repos.Products().Upsert(ctx, product); err != nil {
			return fmt.Errorf("upsert product %s: %w", raw.ASIN, err)
		}

		ingested++
		o.updateProgress(runID, i+1, len(items))

		if o.cfg.Scraper.ChainReviews && o.onProductIngested != nil {
			o.onProductIngested(raw.ASIN)
		}
	}

	o.logger.Info("Product ingestion finished",
		"run_id", runID, "ingested", ingested, "skipped", skipped)
	o.metrics.IncrementCounter("scraper.products.ingested", nil)
	return nil
}

func (o *Orchestrator) ingestReviews(ctx context.Context, runID string, items []apify.Item) error {
	ingested := 0
	skipped := 0

	for i, item := range items {
		var raw rawReview
		if err := json.Unmarshal(item, &raw); err != nil {
			o.logger.Warn("Skipping malformed review record", "run_id", runID, "index", i, "error", err)
			skipped++
			continue
		}
		if raw.ReviewID == "" || raw.ASIN == "" {
			skipped++
			continue
		}

		review := mapReview(&raw)
		if err := o.repos.Reviews().Upsert(ctx, review); err != nil {
			return fmt.Errorf("upsert review %s: %w", raw.ReviewID, err)
		}

		ingested++
		o.updateProgress(runID, i+1, len(items))
	}

	o.logger.Info("Review ingestion finished",
		"run_id", runID, "ingested", ingested, "skipped", skipped)
	o.metrics.IncrementCounter("scraper.reviews.ingested", nil)
	return nil
}

func (o *Orchestrator) updateProgress(runID string, done, total int) {
	if total == 0 {
		return
	}
	o.tasks.setStatus(runID, entity.TaskStatusProcessing, done*100/total)
}

// archiveSnapshot keeps the raw payload for later reprocessing. Best-effort.
func (o *Orchestrator) archiveSnapshot(ctx context.Context, kind entity.ScrapeKind, runID string, items []apify.Item) {
	if o.archive == nil {
		return
	}

	payload, err := json.Marshal(items)
	if err != nil {
		o.logger.Warn("Failed to marshal snapshot", "run_id", runID, "error", err)
		return
	}

	key := fmt.Sprintf("snapshots/%s/%s.json", kind, runID)
	err = o.archive.Put(ctx, key, bytes.NewReader(payload), ports.ObjectMetadata{
		ContentType:   "application/json",
		ContentLength: int64(len(payload)),
		UserMetadata:  map[string]string{"run_id": runID, "kind": string(kind)},
	})
	if err != nil {
		o.logger.Warn("Failed to archive snapshot", "run_id", runID, "error", err)
		return
	}

	o.logger.Info("Snapshot archived", "key", key, "bytes", len(payload))
}

func mapProduct(raw *rawProduct) *entity.Product {
	now := time.Now().UTC()

	product := &entity.Product{
		ASIN:       raw.ASIN,
		Title:      raw.Title,
		Images:     raw.Images,
		Categories: raw.Categories,
		Features:   raw.Features,
		Status:     entity.ProductStatusActive,
		RatingData: entity.RatingData{
			Average:     parseRating(raw.Rating),
			Count:       raw.ReviewCount,
			Breakdown:   parseStarBreakdown(raw.StarBreakdown),
			LastUpdated: now,
		},
		ReviewSummary: entity.ReviewSummary{LastUpdated: now},
	}

	if raw.Brand != "" {
		product.Brand = &raw.Brand
	}
	if raw.Availability != "" {
		product.Availability = &raw.Availability
	}
	if raw.Price.Value > 0 {
		product.Price = &raw.Price.Value
	}
	if raw.Price.Currency != "" {
		product.Currency = &raw.Price.Currency
	}
	if len(raw.ProductDetails) > 0 {
		product.Specifications = entity.Specifications(raw.ProductDetails)
	}
	for _, sr := range raw.SalesRanks {
		rank, ok := parseRank(sr.Rank)
		if !ok {
			continue
		}
		product.BestSellers = append(product.BestSellers, entity.BestSellersRank{
			Category: sr.Category,
			Rank:     rank,
		})
	}

	return product
}

func mapReview(raw *rawReview) *entity.Review {
	review := &entity.Review{
		ReviewID:     raw.ReviewID,
		ASIN:         raw.ASIN,
		Title:        raw.Title,
		Body:         raw.Body,
		Rating:       int(raw.Rating),
		Verified:     raw.Verified,
		HelpfulVotes: raw.HelpfulVotes,
		TotalVotes:   raw.TotalVotes,
		ImageURLs:    raw.ImageURLs,
	}

	if raw.AuthorName != "" {
		review.AuthorName = &raw.AuthorName
	}
	if raw.AuthorID != "" {
		review.AuthorID = &raw.AuthorID
	}
	if raw.Country != "" {
		review.Country = &raw.Country
	}
	if len(raw.Variant) > 0 {
		review.Variant = entity.Variant(raw.Variant)
	}
	if t, ok := parseReviewDate(raw.Date); ok {
		review.ReviewDate = &t
	}

	return review
}

// parseRating extracts the leading number from strings like "4.5 out of 5 stars".
func parseRating(s string) float64 {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return 0
	}
	v, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || v < 0 || v > 5 {
		return 0
	}
	return v
}

// parseStarBreakdown normalizes percent strings like "70%" to 0..1 fractions.
func parseStarBreakdown(breakdown map[string]string) map[string]float64 {
	if len(breakdown) == 0 {
		return nil
	}

	out := make(map[string]float64, len(breakdown))
	for star, pct := range breakdown {
		v, err := strconv.ParseFloat(strings.TrimSuffix(strings.TrimSpace(pct), "%"), 64)
		if err != nil {
			continue
		}
		out[star] = v / 100
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// parseRank handles "#1,234" style ranks.
func parseRank(s string) (int, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.Atoi(s)
	if err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func parseReviewDate(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}
