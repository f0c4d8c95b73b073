package firestore

import (
	"context"
	"errors"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

// OrderRepository persists orders. Every lifecycle transition goes through Mutate.
type OrderRepository struct {
	base *pfirestore.BaseRepository[orderDocument]
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) *OrderRepository {
	return &OrderRepository{base: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection)}
}

// Insert creates the order; a duplicate ID is a conflict.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) error {
	return r.base.Create(ctx, order.ID, fromDomainOrder(order))
}

// FindByID loads an order.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Mutate re-reads the order inside a transaction, applies mutate and writes the result. Firestore
// retries the function when a concurrent commit touches the same document.
func (r *OrderRepository) Mutate(ctx context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	ref, err := r.base.DocumentRef(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	var result domain.Order
	err = r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := r.base.GetTx(ctx, tx, orderID)
		if err != nil {
			return err
		}
		order := doc.Data.toDomain(doc.ID)
		if err := mutate(&order); err != nil {
			return err
		}
		order.ID = orderID
		result = order
		return tx.Set(ref, fromDomainOrder(order))
	})
	if err != nil {
		return domain.Order{}, err
	}
	return result, nil
}

// List pages through orders newest first.
func (r *OrderRepository) List(ctx context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	build := func(q firestore.Query) firestore.Query {
		if filter.BuyerID != "" {
			q = q.Where("buyerId", "==", filter.BuyerID)
		}
		if filter.SellerID != "" {
			q = q.Where("sellerId", "==", filter.SellerID)
		}
		if filter.ParticipantID != "" {
			q = q.Where("participants", "array-contains", filter.ParticipantID)
		}
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", filter.Status)
		}
		return q
	}
	docs, next, err := r.base.Page(ctx, build, filter.Pagination.PageSize, filter.Pagination.PageToken,
		func(d orderDocument) time.Time { return d.CreatedAt })
	if err != nil {
		return domain.CursorPage[domain.Order]{}, err
	}
	items := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return domain.CursorPage[domain.Order]{Items: items, NextPageToken: next}, nil
}

type orderDocument struct {
	Code             string     `firestore:"code"`
	ServiceID        string     `firestore:"serviceId,omitempty"`
	BuyerID          string     `firestore:"buyerId"`
	SellerID         string     `firestore:"sellerId"`
	Participants     []string   `firestore:"participants"`
	Package          string     `firestore:"package"`
	Price            int64      `firestore:"price"`
	Status           string     `firestore:"status"`
	Requirements     string     `firestore:"requirements"`
	DeliveryNote     *string    `firestore:"deliveryNote"`
	DeliveryFiles    []string   `firestore:"deliveryFiles"`
	Revisions        int        `firestore:"revisions"`
	MaxRevisions     int        `firestore:"maxRevisions"`
	PaymentIntentID  string     `firestore:"paymentIntentId"`
	PaymentStatus    string     `firestore:"paymentStatus"`
	IsCustomOrder    bool       `firestore:"isCustomOrder"`
	CustomOrderID    *string    `firestore:"customOrderId"`
	ManagerID        *string    `firestore:"managerId"`
	CustomOrderTitle string     `firestore:"customOrderTitle,omitempty"`
	CancelReason     *string    `firestore:"cancelReason"`
	CreatedAt        time.Time  `firestore:"createdAt"`
	UpdatedAt        time.Time  `firestore:"updatedAt"`
	DeliveryDueAt    time.Time  `firestore:"deliveryDueAt"`
	DeliveredAt      *time.Time `firestore:"deliveredAt"`
	CompletedAt      *time.Time `firestore:"completedAt"`
	CancelledAt      *time.Time `firestore:"cancelledAt"`
}

func fromDomainOrder(o domain.Order) orderDocument {
	return orderDocument{
		Code:             o.Code,
		ServiceID:        o.ServiceID,
		BuyerID:          o.BuyerID,
		SellerID:         o.SellerID,
		Participants:     []string{o.BuyerID, o.SellerID},
		Package:          o.Package,
		Price:            o.Price,
		Status:           string(o.Status),
		Requirements:     o.Requirements,
		DeliveryNote:     o.DeliveryNote,
		DeliveryFiles:    append([]string(nil), o.DeliveryFiles...),
		Revisions:        o.Revisions,
		MaxRevisions:     o.MaxRevisions,
		PaymentIntentID:  o.PaymentIntentID,
		PaymentStatus:    string(o.PaymentStatus),
		IsCustomOrder:    o.IsCustomOrder,
		CustomOrderID:    o.CustomOrderID,
		ManagerID:        o.ManagerID,
		CustomOrderTitle: o.CustomOrderTitle,
		CancelReason:     o.CancelReason,
		CreatedAt:        o.CreatedAt.UTC(),
		UpdatedAt:        o.UpdatedAt.UTC(),
		DeliveryDueAt:    o.DeliveryDueAt.UTC(),
		DeliveredAt:      utcPtr(o.DeliveredAt),
		CompletedAt:      utcPtr(o.CompletedAt),
		CancelledAt:      utcPtr(o.CancelledAt),
	}
}

func (d orderDocument) toDomain(id string) domain.Order {
	return domain.Order{
		ID:               id,
		Code:             d.Code,
		ServiceID:        d.ServiceID,
		BuyerID:          d.BuyerID,
		SellerID:         d.SellerID,
		Package:          d.Package,
		Price:            d.Price,
		Status:           domain.OrderStatus(d.Status),
		Requirements:     d.Requirements,
		DeliveryNote:     d.DeliveryNote,
		DeliveryFiles:    d.DeliveryFiles,
		Revisions:        d.Revisions,
		MaxRevisions:     d.MaxRevisions,
		PaymentIntentID:  d.PaymentIntentID,
		PaymentStatus:    domain.PaymentStatus(d.PaymentStatus),
		IsCustomOrder:    d.IsCustomOrder,
		CustomOrderID:    d.CustomOrderID,
		ManagerID:        d.ManagerID,
		CustomOrderTitle: d.CustomOrderTitle,
		CancelReason:     d.CancelReason,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
		DeliveryDueAt:    d.DeliveryDueAt,
		DeliveredAt:      d.DeliveredAt,
		CompletedAt:      d.CompletedAt,
		CancelledAt:      d.CancelledAt,
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := t.UTC()
	return &v
}

func isNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
