package mocks

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"reviewmonitor/internal/application/ports"
	"reviewmonitor/internal/domain/entity"
)

// MemRepositories is an in-memory ports.Repositories for tests.
type MemRepositories struct {
	ProductsRepo   *MemProductRepository
	ReviewsRepo    *MemReviewRepository
	ViolationsRepo *MemViolationRepository
	HistoryRepo    *MemHistoryRepository
}

func NewMemRepositories() *MemRepositories {
	return &MemRepositories{
		ProductsRepo:   &MemProductRepository{items: make(map[string]*entity.Product)},
		ReviewsRepo:    &MemReviewRepository{items: make(map[string]*entity.Review)},
		ViolationsRepo: &MemViolationRepository{},
		HistoryRepo:    &MemHistoryRepository{},
	}
}

func (r *MemRepositories) Products() ports.ProductRepository     { return r.ProductsRepo }
func (r *MemRepositories) Reviews() ports.ReviewRepository       { return r.ReviewsRepo }
func (r *MemRepositories) Violations() ports.ViolationRepository { return r.ViolationsRepo }
func (r *MemRepositories) History() ports.HistoryRepository      { return r.HistoryRepo }

type MemProductRepository struct {
	mu    sync.Mutex
	items map[string]*entity.Product

	// FailUpsert forces Upsert errors when set.
	FailUpsert bool
}

func (r *MemProductRepository) Upsert(ctx context.Context, product *entity.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpsert {
		return fmt.Errorf("forced upsert failure")
	}
	cp := *product
	r.items[product.ASIN] = &cp
	return nil
}

func (r *MemProductRepository) GetByASIN(ctx context.Context, asin string) (*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.items[asin]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *MemProductRepository) UpdateStatus(ctx context.Context, asin string, status entity.ProductStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.items[asin]; ok {
		p.Status = status
	}
	return nil
}

func (r *MemProductRepository) List(ctx context.Context, limit int) ([]*entity.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Product, 0, len(r.items))
	for _, p := range r.items {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ASIN < out[j].ASIN })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *MemProductRepository) Count(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.items)), nil
}

type MemReviewRepository struct {
	mu    sync.Mutex
	items map[string]*entity.Review

	FailUpsert bool
}

func (r *MemReviewRepository) Upsert(ctx context.Context, review *entity.Review) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailUpsert {
		return fmt.Errorf("forced upsert failure")
	}
	cp := *review
	r.items[review.ReviewID] = &cp
	return nil
}

func (r *MemReviewRepository) GetByID(ctx context.Context, reviewID string) (*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rv, ok := r.items[reviewID]
	if !ok {
		return nil, nil
	}
	cp := *rv
	return &cp, nil
}

func (r *MemReviewRepository) ListByASIN(ctx context.Context, asin string) ([]*entity.Review, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.Review, 0)
	for _, rv := range r.items {
		if rv.ASIN == asin {
			cp := *rv
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ReviewID < out[j].ReviewID })
	return out, nil
}

func (r *MemReviewRepository) CountByASIN(ctx context.Context, asin string) (int64, error) {
	list, _ := r.ListByASIN(ctx, asin)
	return int64(len(list)), nil
}

type MemViolationRepository struct {
	mu     sync.Mutex
	nextID int64
	items  []*entity.ReviewViolation

	FailCreate bool
}

func (r *MemViolationRepository) Create(ctx context.Context, violation *entity.ReviewViolation) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.FailCreate {
		return fmt.Errorf("forced create failure")
	}
	r.nextID++
	violation.ID = r.nextID
	cp := *violation
	r.items = append(r.items, &cp)
	return nil
}

func (r *MemViolationRepository) Get(ctx context.Context, id int64) (*entity.ReviewViolation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.items {
		if v.ID == id {
			cp := *v
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("violation %d not found", id)
}

func (r *MemViolationRepository) ListByASIN(ctx context.Context, asin string) ([]*entity.ReviewViolation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ReviewViolation, 0)
	for _, v := range r.items {
		if v.ASIN == asin {
			cp := *v
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *MemViolationRepository) Override(ctx context.Context, id int64, by string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, v := range r.items {
		if v.ID == id {
			now := time.Now().UTC()
			v.Overridden = true
			v.OverriddenBy = &by
			v.OverriddenAt = &now
			return nil
		}
	}
	return fmt.Errorf("violation %d not found", id)
}

func (r *MemViolationRepository) CountActiveByASIN(ctx context.Context, asin string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, v := range r.items {
		if v.ASIN == asin && !v.Overridden {
			n++
		}
	}
	return n, nil
}

type MemHistoryRepository struct {
	mu    sync.Mutex
	items []*entity.ProductHistory
}

func (r *MemHistoryRepository) Append(ctx context.Context, snapshot *entity.ProductHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	snapshot.ID = int64(len(r.items) + 1)
	cp := *snapshot
	r.items = append(r.items, &cp)
	return nil
}

func (r *MemHistoryRepository) ListByASIN(ctx context.Context, asin string, limit int) ([]*entity.ProductHistory, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*entity.ProductHistory, 0)
	for i := len(r.items) - 1; i >= 0; i-- {
		if r.items[i].ASIN == asin {
			cp := *r.items[i]
			out = append(out, &cp)
			if limit > 0 && len(out) >= limit {
				break
			}
		}
	}
	return out, nil
}
