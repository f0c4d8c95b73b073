package domain

import (
	"time"
)

// Pagination defines standard cursor-based paging inputs for list operations.
type Pagination struct {
	PageSize  int
	PageToken string
}

// SortOrder indicates ascending or descending ordering for list queries.
type SortOrder string

const (
	// SortAsc sorts results in ascending order.
	SortAsc SortOrder = "asc"
	// SortDesc sorts results in descending order.
	SortDesc SortOrder = "desc"
)

// RangeQuery represents inclusive range filters for numeric or timestamp fields.
type RangeQuery[T comparable] struct {
	From *T
	To   *T
}

// CursorPage packages list results with an encoded next token.
type CursorPage[T any] struct {
	Items         []T
	NextPageToken string
}

// UserRole enumerates the marketplace roles stored on a user profile.
type UserRole string

const (
	// UserRoleBuyer purchases seller services.
	UserRoleBuyer UserRole = "buyer"
	// UserRoleSeller publishes services and fulfils orders.
	UserRoleSeller UserRole = "seller"
	// UserRoleManager brokers custom orders between buyers and sellers.
	UserRoleManager UserRole = "manager"
	// UserRoleAdmin supervises the marketplace.
	UserRoleAdmin UserRole = "admin"
)

// Valid reports whether the role is one of the known marketplace roles.
func (r UserRole) Valid() bool {
	switch r {
	case UserRoleBuyer, UserRoleSeller, UserRoleManager, UserRoleAdmin:
		return true
	default:
		return false
	}
}

// UserProfile is the stored user directory entry. Rating and ReviewCount are derived from reviews.
type UserProfile struct {
	ID          string
	DisplayName string
	Email       string
	Role        UserRole
	Rating      float64
	ReviewCount int
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Package describes a priced tier within a service.
type Package struct {
	Name         string
	Price        int64
	DeliveryDays int
	Features     []string
}

// Service is a seller authored offering with named package tiers.
type Service struct {
	ID          string
	OwnerID     string
	Title       string
	Description string
	Category    string
	Packages    map[string]Package
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	// OrderStatusPending is reserved; direct and custom orders start in progress.
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusInProgress OrderStatus = "in_progress"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCompleted  OrderStatus = "completed"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// Terminal reports whether no further transitions are allowed from the status.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusCancelled
}

// PaymentStatus tracks the mocked escrow state of an order.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusHeld     PaymentStatus = "held"
	PaymentStatusReleased PaymentStatus = "released"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

// CustomPackage is the package key assigned to orders spawned from custom orders.
const CustomPackage = "custom"

// Order is a committed purchase binding a buyer, a seller and a priced package.
type Order struct {
	ID               string
	Code             string
	ServiceID        string
	BuyerID          string
	SellerID         string
	Package          string
	Price            int64
	Status           OrderStatus
	Requirements     string
	DeliveryNote     *string
	DeliveryFiles    []string
	Revisions        int
	MaxRevisions     int
	PaymentIntentID  string
	PaymentStatus    PaymentStatus
	IsCustomOrder    bool
	CustomOrderID    *string
	ManagerID        *string
	CustomOrderTitle string
	CancelReason     *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeliveryDueAt    time.Time
	DeliveredAt      *time.Time
	CompletedAt      *time.Time
	CancelledAt      *time.Time
}

// CustomOrderStatus represents the proposal state of a custom order.
type CustomOrderStatus string

const (
	CustomOrderStatusPending  CustomOrderStatus = "pending"
	CustomOrderStatusAccepted CustomOrderStatus = "accepted"
	CustomOrderStatusRejected CustomOrderStatus = "rejected"
)

// CustomOrder is a manager proposed offer awaiting a decision from its recipient.
type CustomOrder struct {
	ID              string
	Code            string
	Title           string
	Description     string
	Price           int64
	DeliveryDays    int
	ManagerID       string
	RecipientID     string
	RecipientRole   UserRole
	CounterpartyID  string
	Status          CustomOrderStatus
	RejectionReason *string
	OrderID         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	AcceptedAt      *time.Time
	RejectedAt      *time.Time
}

// Review is a buyer's rating of a completed order. Its ID equals the order ID.
type Review struct {
	ID        string
	OrderID   string
	ServiceID string
	SellerID  string
	BuyerID   string
	Rating    int
	Comment   string
	CreatedAt time.Time
}

// Message is a note exchanged between the parties of an order.
type Message struct {
	ID          string
	OrderID     string
	SenderID    string
	Body        string
	Attachments []string
	CreatedAt   time.Time
}

// RatingSummary is the aggregate written onto a seller profile.
type RatingSummary struct {
	SellerID    string
	Rating      float64
	ReviewCount int
}
