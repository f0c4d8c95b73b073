package memory

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type orderRepository struct{ r *Registry }

func (o *orderRepository) Insert(_ context.Context, order domain.Order) error {
	if err := requireID("orders.insert", order.ID); err != nil {
		return err
	}
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	return o.r.insertOrderLocked(order)
}

func (r *Registry) insertOrderLocked(order domain.Order) error {
	if _, ok := r.orders[order.ID]; ok {
		return conflict("orders.insert", order.ID)
	}
	r.orders[order.ID] = cloneOrder(order)
	return nil
}

func (o *orderRepository) FindByID(_ context.Context, orderID string) (domain.Order, error) {
	if err := requireID("orders.get", orderID); err != nil {
		return domain.Order{}, err
	}
	o.r.mu.RLock()
	defer o.r.mu.RUnlock()
	order, ok := o.r.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("orders.get", orderID)
	}
	return cloneOrder(order), nil
}

// Mutate runs the mutation against the current order under the write lock.
func (o *orderRepository) Mutate(_ context.Context, orderID string, mutate repositories.OrderMutation) (domain.Order, error) {
	if err := requireID("orders.mutate", orderID); err != nil {
		return domain.Order{}, err
	}
	o.r.mu.Lock()
	defer o.r.mu.Unlock()
	current, ok := o.r.orders[orderID]
	if !ok {
		return domain.Order{}, notFound("orders.mutate", orderID)
	}
	next := cloneOrder(current)
	if err := mutate(&next); err != nil {
		return domain.Order{}, err
	}
	next.ID = orderID
	o.r.orders[orderID] = cloneOrder(next)
	return next, nil
}

func (o *orderRepository) List(_ context.Context, filter repositories.OrderListFilter) (domain.CursorPage[domain.Order], error) {
	o.r.mu.RLock()
	items := make([]domain.Order, 0)
	for _, order := range o.r.orders {
		if filter.BuyerID != "" && order.BuyerID != filter.BuyerID {
			continue
		}
		if filter.SellerID != "" && order.SellerID != filter.SellerID {
			continue
		}
		if filter.ParticipantID != "" && order.BuyerID != filter.ParticipantID && order.SellerID != filter.ParticipantID {
			continue
		}
		if !statusMatches(string(order.Status), filter.Status) {
			continue
		}
		items = append(items, cloneOrder(order))
	}
	o.r.mu.RUnlock()
	return paginate(items, func(order domain.Order) (time.Time, string) { return order.CreatedAt, order.ID }, filter.Pagination)
}

func cloneOrder(order domain.Order) domain.Order {
	order.DeliveryFiles = cloneStrings(order.DeliveryFiles)
	order.DeliveryNote = clonePtr(order.DeliveryNote)
	order.CustomOrderID = clonePtr(order.CustomOrderID)
	order.ManagerID = clonePtr(order.ManagerID)
	order.CancelReason = clonePtr(order.CancelReason)
	order.DeliveredAt = clonePtr(order.DeliveredAt)
	order.CompletedAt = clonePtr(order.CompletedAt)
	order.CancelledAt = clonePtr(order.CancelledAt)
	return order
}
