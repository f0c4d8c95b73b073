package services

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/storage"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Pagination    = domain.Pagination
	Order         = domain.Order
	OrderStatus   = domain.OrderStatus
	CustomOrder   = domain.CustomOrder
	Service       = domain.Service
	Package       = domain.Package
	Review        = domain.Review
	Message       = domain.Message
	UserProfile   = domain.UserProfile
	RatingSummary = domain.RatingSummary
	HealthReport  = domain.HealthReport
)

// OrderService drives the order lifecycle: creation, delivery, completion, revisions and
// cancellation. Every transition re-validates against the stored order atomically.
type OrderService interface {
	Create(ctx context.Context, cmd CreateOrderCommand) (Order, error)
	Deliver(ctx context.Context, cmd DeliverOrderCommand) (Order, error)
	Accept(ctx context.Context, cmd AcceptOrderCommand) (Order, error)
	RequestRevision(ctx context.Context, cmd RequestRevisionCommand) (Order, error)
	Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error)
	Get(ctx context.Context, actorID, orderID string) (Order, error)
	List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error)
	AttachmentUploadURL(ctx context.Context, cmd AttachmentUploadCommand) (storage.SignedURL, error)
}

// CustomOrderService manages manager proposals and converts accepted proposals into orders.
type CustomOrderService interface {
	Propose(ctx context.Context, cmd ProposeCustomOrderCommand) (CustomOrder, error)
	Accept(ctx context.Context, cmd DecideCustomOrderCommand) (CustomOrderAcceptance, error)
	Reject(ctx context.Context, cmd DecideCustomOrderCommand) (CustomOrder, error)
	Get(ctx context.Context, actorID, customOrderID string) (CustomOrder, error)
	List(ctx context.Context, filter CustomOrderListFilter) (domain.CursorPage[CustomOrder], error)
}

// ReviewService records reviews of completed orders and maintains seller rating aggregates.
type ReviewService interface {
	Create(ctx context.Context, cmd CreateReviewCommand) (Review, error)
	ListBySeller(ctx context.Context, sellerID string, pager Pagination) (domain.CursorPage[Review], error)
	ListByService(ctx context.Context, serviceID string, pager Pagination) (domain.CursorPage[Review], error)
	Recompute(ctx context.Context, sellerID string) (RatingSummary, error)
}

// MessageService stores notes exchanged between the parties of an order.
type MessageService interface {
	Send(ctx context.Context, cmd SendMessageCommand) (Message, error)
	List(ctx context.Context, actorID, orderID string, pager Pagination) (domain.CursorPage[Message], error)
}

// CatalogService manages seller services and their package tiers.
type CatalogService interface {
	CreateService(ctx context.Context, cmd UpsertServiceCommand) (Service, error)
	UpdateService(ctx context.Context, cmd UpsertServiceCommand) (Service, error)
	GetService(ctx context.Context, serviceID string) (Service, error)
}

// UserService provisions profiles for authenticated users and applies admin role changes.
type UserService interface {
	GetOrProvision(ctx context.Context, cmd ProvisionUserCommand) (UserProfile, error)
	GetProfile(ctx context.Context, userID string) (UserProfile, error)
	SetRole(ctx context.Context, cmd SetUserRoleCommand) (UserProfile, error)
	Ban(ctx context.Context, cmd BanUserCommand) (UserProfile, error)
	ListByRole(ctx context.Context, filter UserListFilter) (domain.CursorPage[UserProfile], error)
}

// CodeService issues human readable, unique order and custom order codes.
type CodeService interface {
	NextOrderCode(ctx context.Context) (string, error)
	NextCustomOrderCode(ctx context.Context) (string, error)
}

// SystemService exposes readiness information.
type SystemService interface {
	HealthReport(ctx context.Context) (HealthReport, error)
	BuildInfo() BuildInfo
}

// OrderEventPublisher publishes committed order transitions.
type OrderEventPublisher interface {
	PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error
}

// CustomOrderEventPublisher publishes committed custom order decisions.
type CustomOrderEventPublisher interface {
	PublishCustomOrderEvent(ctx context.Context, event domain.CustomOrderEvent) error
}

// WorkflowRecorder counts workflow transitions.
type WorkflowRecorder interface {
	OrderTransition(ctx context.Context, from, to string)
	CustomOrderDecision(ctx context.Context, outcome string)
}

// AttachmentSigner issues upload URLs for delivery files.
type AttachmentSigner interface {
	Bucket() string
	SignUpload(ctx context.Context, req storage.UploadRequest) (storage.SignedURL, error)
}

// IdentityAdmin mirrors role changes into the identity provider.
type IdentityAdmin interface {
	SyncRole(ctx context.Context, uid string, role string) error
	RevokeSessions(ctx context.Context, uid string) error
}

// Commands ------------------------------------------------------------------

// CreateOrderCommand places an order for a package of a service.
type CreateOrderCommand struct {
	ActorID      string
	ServiceID    string
	PackageKey   string
	Requirements string
}

// DeliverOrderCommand submits the seller's work.
type DeliverOrderCommand struct {
	ActorID       string
	OrderID       string
	DeliveryNote  string
	DeliveryFiles []string
}

// AcceptOrderCommand completes an order on behalf of its buyer.
type AcceptOrderCommand struct {
	ActorID string
	OrderID string
}

// RequestRevisionCommand sends a delivered or in-progress order back to the seller.
type RequestRevisionCommand struct {
	ActorID string
	OrderID string
	Note    string
}

// CancelOrderCommand cancels an open order and refunds the buyer.
type CancelOrderCommand struct {
	ActorID string
	OrderID string
	Reason  string
}

// AttachmentUploadCommand requests a signed URL for one delivery file.
type AttachmentUploadCommand struct {
	ActorID     string
	OrderID     string
	FileName    string
	ContentType string
}

// OrderListRole narrows an order listing to one side of the caller's orders.
type OrderListRole string

const (
	OrderListRoleAny    OrderListRole = ""
	OrderListRoleBuyer  OrderListRole = "buyer"
	OrderListRoleSeller OrderListRole = "seller"
)

// OrderListFilter lists the caller's orders. Admins may list every order with All.
type OrderListFilter struct {
	ActorID    string
	Role       OrderListRole
	All        bool
	Status     []string
	Pagination Pagination
}

// ProposeCustomOrderCommand creates a pending custom order.
type ProposeCustomOrderCommand struct {
	ActorID        string
	Title          string
	Description    string
	Price          int64
	DeliveryDays   int
	RecipientID    string
	CounterpartyID string
}

// DecideCustomOrderCommand accepts or rejects a custom order. Reason is used by Reject only.
type DecideCustomOrderCommand struct {
	ActorID       string
	CustomOrderID string
	Reason        string
}

// CustomOrderAcceptance returns the accepted custom order together with the spawned order.
type CustomOrderAcceptance struct {
	CustomOrder CustomOrder
	Order       Order
}

// CustomOrderListFilter lists custom orders involving the caller.
type CustomOrderListFilter struct {
	ActorID    string
	Status     []string
	Pagination Pagination
}

// CreateReviewCommand rates a completed order.
type CreateReviewCommand struct {
	ActorID string
	OrderID string
	Rating  int
	Comment string
}

// SendMessageCommand posts a message to an order conversation.
type SendMessageCommand struct {
	ActorID     string
	OrderID     string
	Body        string
	Attachments []string
}

// UpsertServiceCommand creates or replaces a service. ServiceID is ignored on create.
type UpsertServiceCommand struct {
	ActorID     string
	ServiceID   string
	Title       string
	Description string
	Category    string
	Packages    map[string]Package
	IsActive    *bool
}

// ProvisionUserCommand carries the authenticated identity used to create a profile on first use.
type ProvisionUserCommand struct {
	UserID      string
	Email       string
	DisplayName string
	SignupRole  string
}

// SetUserRoleCommand changes a user's role.
type SetUserRoleCommand struct {
	ActorID string
	UserID  string
	Role    domain.UserRole
}

// BanUserCommand deactivates a user and revokes their sessions.
type BanUserCommand struct {
	ActorID string
	UserID  string
}

// UserListFilter selects a user directory page. Managers may list active buyers or sellers;
// admins may list any role, including deactivated users with IncludeInactive.
type UserListFilter struct {
	ActorID         string
	Role            domain.UserRole
	IncludeInactive bool
	Pagination      Pagination
}

// BuildInfo captures runtime metadata exposed via health endpoints.
type BuildInfo struct {
	Version     string
	CommitSHA   string
	Environment string
	StartedAt   time.Time
}
