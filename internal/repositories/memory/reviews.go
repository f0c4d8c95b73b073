package memory

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type reviewRepository struct{ r *Registry }

func (v *reviewRepository) Insert(_ context.Context, review domain.Review) (domain.Review, error) {
	if err := requireID("reviews.insert", review.ID); err != nil {
		return domain.Review{}, err
	}
	v.r.mu.Lock()
	defer v.r.mu.Unlock()
	if _, ok := v.r.reviews[review.ID]; ok {
		return domain.Review{}, conflict("reviews.insert", review.ID)
	}
	if review.CreatedAt.IsZero() {
		review.CreatedAt = v.r.now().UTC()
	}
	v.r.reviews[review.ID] = review
	return review, nil
}

func (v *reviewRepository) FindByOrder(_ context.Context, orderID string) (domain.Review, error) {
	if err := requireID("reviews.get", orderID); err != nil {
		return domain.Review{}, err
	}
	v.r.mu.RLock()
	defer v.r.mu.RUnlock()
	review, ok := v.r.reviews[orderID]
	if !ok {
		return domain.Review{}, notFound("reviews.get", orderID)
	}
	return review, nil
}

func (v *reviewRepository) ListBySeller(_ context.Context, sellerID string) ([]domain.Review, error) {
	v.r.mu.RLock()
	defer v.r.mu.RUnlock()
	reviews := make([]domain.Review, 0)
	for _, review := range v.r.reviews {
		if review.SellerID == sellerID {
			reviews = append(reviews, review)
		}
	}
	return reviews, nil
}

func (v *reviewRepository) List(_ context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	v.r.mu.RLock()
	items := make([]domain.Review, 0)
	for _, review := range v.r.reviews {
		if filter.SellerID != "" && review.SellerID != filter.SellerID {
			continue
		}
		if filter.ServiceID != "" && review.ServiceID != filter.ServiceID {
			continue
		}
		items = append(items, review)
	}
	v.r.mu.RUnlock()
	return paginate(items, func(review domain.Review) (time.Time, string) { return review.CreatedAt, review.ID }, filter.Pagination)
}
