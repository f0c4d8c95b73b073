package repositories

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Users() UserRepository
	Services() ServiceRepository
	Orders() OrderRepository
	CustomOrders() CustomOrderRepository
	Reviews() ReviewRepository
	Messages() MessageRepository
	Counters() CounterRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// OrderMutation validates and mutates the freshly read order in place. Returning an error aborts
// the write and is propagated to the caller unchanged.
type OrderMutation func(order *domain.Order) error

// CustomOrderMutation validates and mutates the freshly read custom order in place.
type CustomOrderMutation func(customOrder *domain.CustomOrder) error

// UserRepository stores user profiles and the derived seller rating.
type UserRepository interface {
	FindByID(ctx context.Context, userID string) (domain.UserProfile, error)
	Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error)
	UpdateRating(ctx context.Context, summary domain.RatingSummary, updatedAt time.Time) error
	List(ctx context.Context, filter UserListFilter) (domain.CursorPage[domain.UserProfile], error)
}

// ServiceRepository stores seller services and their package tiers.
type ServiceRepository interface {
	Insert(ctx context.Context, service domain.Service) error
	Update(ctx context.Context, service domain.Service) error
	FindByID(ctx context.Context, serviceID string) (domain.Service, error)
}

// OrderRepository persists orders. Mutate is the compare-and-swap primitive used for every
// lifecycle transition: the order is re-read and the mutation re-validated atomically.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	Mutate(ctx context.Context, orderID string, mutate OrderMutation) (domain.Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[domain.Order], error)
}

// CustomOrderRepository persists custom orders. Accept spawns the resulting order in the same
// transactional boundary that marks the custom order accepted.
type CustomOrderRepository interface {
	Insert(ctx context.Context, customOrder domain.CustomOrder) error
	FindByID(ctx context.Context, customOrderID string) (domain.CustomOrder, error)
	Mutate(ctx context.Context, customOrderID string, mutate CustomOrderMutation) (domain.CustomOrder, error)
	Accept(ctx context.Context, req CustomOrderAcceptRequest) (CustomOrderAcceptResult, error)
	List(ctx context.Context, filter CustomOrderListFilter) (domain.CursorPage[domain.CustomOrder], error)
}

// CustomOrderAcceptRequest describes the atomic accept conversion. Build receives the freshly read
// custom order, validates it and returns the order to create; Build may mutate the custom order.
type CustomOrderAcceptRequest struct {
	CustomOrderID string
	Build         func(customOrder *domain.CustomOrder) (domain.Order, error)
}

// CustomOrderAcceptResult returns both documents written by an accept.
type CustomOrderAcceptResult struct {
	CustomOrder domain.CustomOrder
	Order       domain.Order
}

// ReviewRepository stores one review per order.
type ReviewRepository interface {
	Insert(ctx context.Context, review domain.Review) (domain.Review, error)
	FindByOrder(ctx context.Context, orderID string) (domain.Review, error)
	ListBySeller(ctx context.Context, sellerID string) ([]domain.Review, error)
	List(ctx context.Context, filter ReviewListFilter) (domain.CursorPage[domain.Review], error)
}

// MessageRepository stores order conversation messages.
type MessageRepository interface {
	Insert(ctx context.Context, message domain.Message) error
	ListByOrder(ctx context.Context, orderID string, pager domain.Pagination) (domain.CursorPage[domain.Message], error)
}

// CounterRepository provides transaction-safe sequence numbers.
type CounterRepository interface {
	Next(ctx context.Context, counterID string, step int64) (int64, error)
	Configure(ctx context.Context, counterID string, cfg CounterConfig) error
}

// Filter DTOs shared across repositories ------------------------------------

// OrderListFilter selects orders by party. ParticipantID matches either side; an empty filter
// lists every order.
type OrderListFilter struct {
	BuyerID       string
	SellerID      string
	ParticipantID string
	Status        []string
	Pagination    domain.Pagination
}

// CustomOrderListFilter selects custom orders addressed to or proposed by a user. Empty fields do
// not filter.
type CustomOrderListFilter struct {
	RecipientID string
	ManagerID   string
	Status      []string
	Pagination  domain.Pagination
}

// UserListFilter selects users by role. ActiveOnly skips deactivated profiles; an empty role lists
// every user.
type UserListFilter struct {
	Role       string
	ActiveOnly bool
	Pagination domain.Pagination
}

// ReviewListFilter selects reviews for a seller or a service.
type ReviewListFilter struct {
	SellerID   string
	ServiceID  string
	Pagination domain.Pagination
}

// CounterConfig customises increment behaviour and bounds for a counter.
type CounterConfig struct {
	Step         int64
	MaxValue     *int64
	InitialValue *int64
}

// HealthRepository probes backing dependencies for readiness.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.HealthReport, error)
}
