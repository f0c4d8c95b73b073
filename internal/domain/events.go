package domain

import "time"

// Order lifecycle event types published after a transition commits.
const (
	OrderEventCreated           = "order.created"
	OrderEventDelivered         = "order.delivered"
	OrderEventCompleted         = "order.completed"
	OrderEventRevisionRequested = "order.revision_requested"
	OrderEventCancelled         = "order.cancelled"
)

// Custom order event types.
const (
	CustomOrderEventProposed = "custom_order.proposed"
	CustomOrderEventAccepted = "custom_order.accepted"
	CustomOrderEventRejected = "custom_order.rejected"
)

// OrderEvent describes a committed order transition.
type OrderEvent struct {
	Type       string      `json:"type"`
	OrderID    string      `json:"orderId"`
	OrderCode  string      `json:"orderCode"`
	BuyerID    string      `json:"buyerId"`
	SellerID   string      `json:"sellerId"`
	ActorID    string      `json:"actorId"`
	Status     OrderStatus `json:"status"`
	Revisions  int         `json:"revisions"`
	OccurredAt time.Time   `json:"occurredAt"`
}

// CustomOrderEvent describes a committed custom order decision.
type CustomOrderEvent struct {
	Type          string            `json:"type"`
	CustomOrderID string            `json:"customOrderId"`
	Code          string            `json:"code"`
	ManagerID     string            `json:"managerId"`
	RecipientID   string            `json:"recipientId"`
	ActorID       string            `json:"actorId"`
	Status        CustomOrderStatus `json:"status"`
	OrderID       string            `json:"orderId,omitempty"`
	OccurredAt    time.Time         `json:"occurredAt"`
}
