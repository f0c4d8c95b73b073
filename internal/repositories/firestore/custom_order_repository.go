package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

// CustomOrderRepository persists manager proposals.
type CustomOrderRepository struct {
	base   *pfirestore.BaseRepository[customOrderDocument]
	orders *pfirestore.BaseRepository[orderDocument]
}

// NewCustomOrderRepository constructs a Firestore-backed custom order repository.
func NewCustomOrderRepository(provider *pfirestore.Provider) *CustomOrderRepository {
	return &CustomOrderRepository{
		base:   pfirestore.NewBaseRepository[customOrderDocument](provider, customOrdersCollection),
		orders: pfirestore.NewBaseRepository[orderDocument](provider, ordersCollection),
	}
}

// Insert creates the custom order; a duplicate ID is a conflict.
func (r *CustomOrderRepository) Insert(ctx context.Context, customOrder domain.CustomOrder) error {
	return r.base.Create(ctx, customOrder.ID, fromDomainCustomOrder(customOrder))
}

// FindByID loads a custom order.
func (r *CustomOrderRepository) FindByID(ctx context.Context, customOrderID string) (domain.CustomOrder, error) {
	doc, err := r.base.Get(ctx, customOrderID)
	if err != nil {
		return domain.CustomOrder{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Mutate applies mutate to the freshly read custom order inside a transaction.
func (r *CustomOrderRepository) Mutate(ctx context.Context, customOrderID string, mutate repositories.CustomOrderMutation) (domain.CustomOrder, error) {
	ref, err := r.base.DocumentRef(ctx, customOrderID)
	if err != nil {
		return domain.CustomOrder{}, err
	}
	var result domain.CustomOrder
	err = r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := r.base.GetTx(ctx, tx, customOrderID)
		if err != nil {
			return err
		}
		customOrder := doc.Data.toDomain(doc.ID)
		if err := mutate(&customOrder); err != nil {
			return err
		}
		customOrder.ID = customOrderID
		result = customOrder
		return tx.Set(ref, fromDomainCustomOrder(customOrder))
	})
	if err != nil {
		return domain.CustomOrder{}, err
	}
	return result, nil
}

// Accept reads the custom order, lets Build validate it and produce the order, then creates the
// order and rewrites the custom order in one transaction. Either both writes commit or neither does.
func (r *CustomOrderRepository) Accept(ctx context.Context, req repositories.CustomOrderAcceptRequest) (repositories.CustomOrderAcceptResult, error) {
	ref, err := r.base.DocumentRef(ctx, req.CustomOrderID)
	if err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	var result repositories.CustomOrderAcceptResult
	err = r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := r.base.GetTx(ctx, tx, req.CustomOrderID)
		if err != nil {
			return err
		}
		customOrder := doc.Data.toDomain(doc.ID)
		order, err := req.Build(&customOrder)
		if err != nil {
			return err
		}
		orderRef, err := r.orders.DocumentRef(ctx, order.ID)
		if err != nil {
			return err
		}
		if err := tx.Create(orderRef, fromDomainOrder(order)); err != nil {
			return err
		}
		customOrder.ID = req.CustomOrderID
		if err := tx.Set(ref, fromDomainCustomOrder(customOrder)); err != nil {
			return err
		}
		result = repositories.CustomOrderAcceptResult{CustomOrder: customOrder, Order: order}
		return nil
	})
	if err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	return result, nil
}

// List pages through custom orders newest first.
func (r *CustomOrderRepository) List(ctx context.Context, filter repositories.CustomOrderListFilter) (domain.CursorPage[domain.CustomOrder], error) {
	build := func(q firestore.Query) firestore.Query {
		if filter.RecipientID != "" {
			q = q.Where("recipientId", "==", filter.RecipientID)
		}
		if filter.ManagerID != "" {
			q = q.Where("managerId", "==", filter.ManagerID)
		}
		if len(filter.Status) > 0 {
			q = q.Where("status", "in", filter.Status)
		}
		return q
	}
	docs, next, err := r.base.Page(ctx, build, filter.Pagination.PageSize, filter.Pagination.PageToken,
		func(d customOrderDocument) time.Time { return d.CreatedAt })
	if err != nil {
		return domain.CursorPage[domain.CustomOrder]{}, err
	}
	items := make([]domain.CustomOrder, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return domain.CursorPage[domain.CustomOrder]{Items: items, NextPageToken: next}, nil
}

type customOrderDocument struct {
	Code            string     `firestore:"code"`
	Title           string     `firestore:"title"`
	Description     string     `firestore:"description"`
	Price           int64      `firestore:"price"`
	DeliveryDays    int        `firestore:"deliveryDays"`
	ManagerID       string     `firestore:"managerId"`
	RecipientID     string     `firestore:"recipientId"`
	RecipientRole   string     `firestore:"recipientRole"`
	CounterpartyID  string     `firestore:"counterpartyId"`
	Status          string     `firestore:"status"`
	RejectionReason *string    `firestore:"rejectionReason"`
	OrderID         *string    `firestore:"orderId"`
	CreatedAt       time.Time  `firestore:"createdAt"`
	UpdatedAt       time.Time  `firestore:"updatedAt"`
	AcceptedAt      *time.Time `firestore:"acceptedAt"`
	RejectedAt      *time.Time `firestore:"rejectedAt"`
}

func fromDomainCustomOrder(c domain.CustomOrder) customOrderDocument {
	return customOrderDocument{
		Code:            c.Code,
		Title:           c.Title,
		Description:     c.Description,
		Price:           c.Price,
		DeliveryDays:    c.DeliveryDays,
		ManagerID:       c.ManagerID,
		RecipientID:     c.RecipientID,
		RecipientRole:   string(c.RecipientRole),
		CounterpartyID:  c.CounterpartyID,
		Status:          string(c.Status),
		RejectionReason: c.RejectionReason,
		OrderID:         c.OrderID,
		CreatedAt:       c.CreatedAt.UTC(),
		UpdatedAt:       c.UpdatedAt.UTC(),
		AcceptedAt:      utcPtr(c.AcceptedAt),
		RejectedAt:      utcPtr(c.RejectedAt),
	}
}

func (d customOrderDocument) toDomain(id string) domain.CustomOrder {
	return domain.CustomOrder{
		ID:              id,
		Code:            d.Code,
		Title:           d.Title,
		Description:     d.Description,
		Price:           d.Price,
		DeliveryDays:    d.DeliveryDays,
		ManagerID:       d.ManagerID,
		RecipientID:     d.RecipientID,
		RecipientRole:   domain.UserRole(d.RecipientRole),
		CounterpartyID:  d.CounterpartyID,
		Status:          domain.CustomOrderStatus(d.Status),
		RejectionReason: d.RejectionReason,
		OrderID:         d.OrderID,
		CreatedAt:       d.CreatedAt,
		UpdatedAt:       d.UpdatedAt,
		AcceptedAt:      d.AcceptedAt,
		RejectedAt:      d.RejectedAt,
	}
}
