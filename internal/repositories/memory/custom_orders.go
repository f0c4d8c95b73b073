package memory

import (
	"context"
	"errors"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type customOrderRepository struct{ r *Registry }

func (c *customOrderRepository) Insert(_ context.Context, customOrder domain.CustomOrder) error {
	if err := requireID("customOrders.insert", customOrder.ID); err != nil {
		return err
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	if _, ok := c.r.customOrders[customOrder.ID]; ok {
		return conflict("customOrders.insert", customOrder.ID)
	}
	c.r.customOrders[customOrder.ID] = cloneCustomOrder(customOrder)
	return nil
}

func (c *customOrderRepository) FindByID(_ context.Context, customOrderID string) (domain.CustomOrder, error) {
	if err := requireID("customOrders.get", customOrderID); err != nil {
		return domain.CustomOrder{}, err
	}
	c.r.mu.RLock()
	defer c.r.mu.RUnlock()
	customOrder, ok := c.r.customOrders[customOrderID]
	if !ok {
		return domain.CustomOrder{}, notFound("customOrders.get", customOrderID)
	}
	return cloneCustomOrder(customOrder), nil
}

func (c *customOrderRepository) Mutate(_ context.Context, customOrderID string, mutate repositories.CustomOrderMutation) (domain.CustomOrder, error) {
	if err := requireID("customOrders.mutate", customOrderID); err != nil {
		return domain.CustomOrder{}, err
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()
	current, ok := c.r.customOrders[customOrderID]
	if !ok {
		return domain.CustomOrder{}, notFound("customOrders.mutate", customOrderID)
	}
	next := cloneCustomOrder(current)
	if err := mutate(&next); err != nil {
		return domain.CustomOrder{}, err
	}
	next.ID = customOrderID
	c.r.customOrders[customOrderID] = cloneCustomOrder(next)
	return next, nil
}

// Accept re-reads the custom order, builds the order and stores both inside one critical section.
func (c *customOrderRepository) Accept(_ context.Context, req repositories.CustomOrderAcceptRequest) (repositories.CustomOrderAcceptResult, error) {
	if err := requireID("customOrders.accept", req.CustomOrderID); err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	if req.Build == nil {
		return repositories.CustomOrderAcceptResult{}, errors.New("customOrders.accept: build function is required")
	}
	c.r.mu.Lock()
	defer c.r.mu.Unlock()

	current, ok := c.r.customOrders[req.CustomOrderID]
	if !ok {
		return repositories.CustomOrderAcceptResult{}, notFound("customOrders.accept", req.CustomOrderID)
	}
	next := cloneCustomOrder(current)
	order, err := req.Build(&next)
	if err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	if err := requireID("customOrders.accept", order.ID); err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	if err := c.r.insertOrderLocked(order); err != nil {
		return repositories.CustomOrderAcceptResult{}, err
	}
	next.ID = req.CustomOrderID
	c.r.customOrders[req.CustomOrderID] = cloneCustomOrder(next)
	return repositories.CustomOrderAcceptResult{CustomOrder: next, Order: cloneOrder(order)}, nil
}

func (c *customOrderRepository) List(_ context.Context, filter repositories.CustomOrderListFilter) (domain.CursorPage[domain.CustomOrder], error) {
	c.r.mu.RLock()
	items := make([]domain.CustomOrder, 0)
	for _, customOrder := range c.r.customOrders {
		if filter.RecipientID != "" && customOrder.RecipientID != filter.RecipientID {
			continue
		}
		if filter.ManagerID != "" && customOrder.ManagerID != filter.ManagerID {
			continue
		}
		if !statusMatches(string(customOrder.Status), filter.Status) {
			continue
		}
		items = append(items, cloneCustomOrder(customOrder))
	}
	c.r.mu.RUnlock()
	return paginate(items, func(co domain.CustomOrder) (time.Time, string) { return co.CreatedAt, co.ID }, filter.Pagination)
}

func cloneCustomOrder(co domain.CustomOrder) domain.CustomOrder {
	co.RejectionReason = clonePtr(co.RejectionReason)
	co.OrderID = clonePtr(co.OrderID)
	co.AcceptedAt = clonePtr(co.AcceptedAt)
	co.RejectedAt = clonePtr(co.RejectedAt)
	return co
}
