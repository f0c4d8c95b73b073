package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

// ReviewRepository stores reviews keyed by order ID, which enforces one review per order.
type ReviewRepository struct {
	base *pfirestore.BaseRepository[reviewDocument]
}

// NewReviewRepository constructs a Firestore-backed review repository.
func NewReviewRepository(provider *pfirestore.Provider) *ReviewRepository {
	return &ReviewRepository{base: pfirestore.NewBaseRepository[reviewDocument](provider, reviewsCollection)}
}

// Insert creates the review; a second review for the same order is a conflict.
func (r *ReviewRepository) Insert(ctx context.Context, review domain.Review) (domain.Review, error) {
	if review.CreatedAt.IsZero() {
		review.CreatedAt = time.Now().UTC()
	}
	if err := r.base.Create(ctx, review.ID, fromDomainReview(review)); err != nil {
		return domain.Review{}, err
	}
	return review, nil
}

// FindByOrder loads the review written for orderID.
func (r *ReviewRepository) FindByOrder(ctx context.Context, orderID string) (domain.Review, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Review{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// ListBySeller returns every review of a seller for aggregation.
func (r *ReviewRepository) ListBySeller(ctx context.Context, sellerID string) ([]domain.Review, error) {
	docs, err := r.base.Query(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("sellerId", "==", sellerID)
	})
	if err != nil {
		return nil, err
	}
	reviews := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		reviews = append(reviews, doc.Data.toDomain(doc.ID))
	}
	return reviews, nil
}

// List pages through reviews newest first.
func (r *ReviewRepository) List(ctx context.Context, filter repositories.ReviewListFilter) (domain.CursorPage[domain.Review], error) {
	build := func(q firestore.Query) firestore.Query {
		if filter.SellerID != "" {
			q = q.Where("sellerId", "==", filter.SellerID)
		}
		if filter.ServiceID != "" {
			q = q.Where("serviceId", "==", filter.ServiceID)
		}
		return q
	}
	docs, next, err := r.base.Page(ctx, build, filter.Pagination.PageSize, filter.Pagination.PageToken,
		func(d reviewDocument) time.Time { return d.CreatedAt })
	if err != nil {
		return domain.CursorPage[domain.Review]{}, err
	}
	items := make([]domain.Review, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return domain.CursorPage[domain.Review]{Items: items, NextPageToken: next}, nil
}

type reviewDocument struct {
	OrderID   string    `firestore:"orderId"`
	ServiceID string    `firestore:"serviceId,omitempty"`
	SellerID  string    `firestore:"sellerId"`
	BuyerID   string    `firestore:"buyerId"`
	Rating    int       `firestore:"rating"`
	Comment   string    `firestore:"comment"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func fromDomainReview(r domain.Review) reviewDocument {
	return reviewDocument{
		OrderID:   r.OrderID,
		ServiceID: r.ServiceID,
		SellerID:  r.SellerID,
		BuyerID:   r.BuyerID,
		Rating:    r.Rating,
		Comment:   r.Comment,
		CreatedAt: r.CreatedAt.UTC(),
	}
}

func (d reviewDocument) toDomain(id string) domain.Review {
	return domain.Review{
		ID:        id,
		OrderID:   d.OrderID,
		ServiceID: d.ServiceID,
		SellerID:  d.SellerID,
		BuyerID:   d.BuyerID,
		Rating:    d.Rating,
		Comment:   d.Comment,
		CreatedAt: d.CreatedAt,
	}
}
