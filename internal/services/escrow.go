package services

import (
	"context"
	"fmt"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/payments"
)

// escrow moves an order's funds through the payment provider. Idempotency keys derive from the
// order ID so retried requests never hold or settle twice.
type escrow struct {
	provider payments.Provider
	logger   func(context.Context, string, map[string]any)
}

func (e escrow) hold(ctx context.Context, order *Order) error {
	details, err := e.provider.Hold(ctx, payments.HoldRequest{
		OrderID:        order.ID,
		BuyerID:        order.BuyerID,
		Amount:         order.Price,
		IdempotencyKey: "hold:" + order.ID,
		Metadata:       map[string]string{"orderCode": order.Code},
	})
	if err != nil {
		return err
	}
	order.PaymentIntentID = details.IntentID
	order.PaymentStatus = domain.PaymentStatus(details.Status)
	return nil
}

func (e escrow) settle(ctx context.Context, order Order, target domain.PaymentStatus, reason string) error {
	if order.PaymentIntentID == "" {
		return nil
	}
	var err error
	switch target {
	case domain.PaymentStatusReleased:
		_, err = e.provider.Release(ctx, payments.ReleaseRequest{
			IntentID:       order.PaymentIntentID,
			IdempotencyKey: "release:" + order.ID,
		})
	case domain.PaymentStatusRefunded:
		_, err = e.provider.Refund(ctx, payments.RefundRequest{
			IntentID:       order.PaymentIntentID,
			Reason:         reason,
			IdempotencyKey: "refund:" + order.ID,
		})
	default:
		err = fmt.Errorf("unsupported payment target %s", target)
	}
	return err
}

// compensate refunds a hold whose order was never persisted.
func (e escrow) compensate(ctx context.Context, order Order, cause error) {
	if order.PaymentIntentID == "" {
		return
	}
	if err := e.settle(ctx, order, domain.PaymentStatusRefunded, "order was not persisted"); err != nil {
		e.logger(ctx, "order.payment.compensation.failed", map[string]any{
			"orderId":  order.ID,
			"intentId": order.PaymentIntentID,
			"cause":    cause.Error(),
			"error":    err.Error(),
		})
	}
}
