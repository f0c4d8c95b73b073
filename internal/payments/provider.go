package payments

import (
	"context"
	"errors"
	"time"
)

// Status enumerates the escrow states reported by providers.
type Status string

const (
	// StatusHeld means funds are reserved for the order.
	StatusHeld Status = "held"
	// StatusReleased means held funds were paid out to the seller.
	StatusReleased Status = "released"
	// StatusRefunded means held funds were returned to the buyer.
	StatusRefunded Status = "refunded"
)

var (
	// ErrIntentNotFound is returned for unknown payment intents.
	ErrIntentNotFound = errors.New("payments: intent not found")
	// ErrInvalidTransition is returned when an intent is no longer held.
	ErrInvalidTransition = errors.New("payments: intent is not held")
	// ErrInvalidAmount is returned for non-positive amounts.
	ErrInvalidAmount = errors.New("payments: amount must be positive")
)

// HoldRequest reserves funds for an order.
type HoldRequest struct {
	OrderID        string
	BuyerID        string
	Amount         int64
	IdempotencyKey string
	Metadata       map[string]string
}

// ReleaseRequest pays held funds out to the seller.
type ReleaseRequest struct {
	IntentID       string
	IdempotencyKey string
}

// RefundRequest returns held funds to the buyer.
type RefundRequest struct {
	IntentID       string
	Reason         string
	IdempotencyKey string
}

// PaymentDetails normalises provider specific fields for storage on the order.
type PaymentDetails struct {
	Provider  string
	IntentID  string
	Status    Status
	Amount    int64
	UpdatedAt time.Time
}

// Provider is the escrow capability the order workflow depends on. Calls are idempotent: repeating
// a completed transition returns the current details.
type Provider interface {
	Hold(ctx context.Context, req HoldRequest) (PaymentDetails, error)
	Release(ctx context.Context, req ReleaseRequest) (PaymentDetails, error)
	Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error)
}
