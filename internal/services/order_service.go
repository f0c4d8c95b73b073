package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/payments"
	"github.com/jamshaid11601/Emergent/internal/platform/storage"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	orderIDPrefix       = "ord_"
	messageIDPrefix     = "msg_"
	defaultMaxRevisions = 1
	maxDeliveryFiles    = 20
)

// OrderServiceDeps bundles collaborators required to construct the order service.
type OrderServiceDeps struct {
	Orders      repositories.OrderRepository
	Services    repositories.ServiceRepository
	Messages    repositories.MessageRepository
	Codes       CodeService
	Actors      ActorResolver
	Payments    payments.Provider
	Attachments AttachmentSigner
	Events      OrderEventPublisher
	Metrics     WorkflowRecorder
	// MaxRevisions applies to newly created orders; zero selects the default of one.
	MaxRevisions int
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type orderService struct {
	orders       repositories.OrderRepository
	services     repositories.ServiceRepository
	messages     repositories.MessageRepository
	codes        CodeService
	actors       ActorResolver
	escrow       escrow
	attachments  AttachmentSigner
	events       OrderEventPublisher
	metrics      WorkflowRecorder
	maxRevisions int
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

var _ OrderService = (*orderService)(nil)

// NewOrderService wires dependencies into a concrete OrderService implementation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Orders == nil {
		return nil, errors.New("order service: order repository is required")
	}
	if deps.Services == nil {
		return nil, errors.New("order service: service repository is required")
	}
	if deps.Codes == nil {
		return nil, errors.New("order service: code service is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("order service: actor resolver is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("order service: payment provider is required")
	}
	if deps.MaxRevisions < 0 {
		return nil, errors.New("order service: max revisions must not be negative")
	}

	maxRevisions := deps.MaxRevisions
	if maxRevisions == 0 {
		maxRevisions = defaultMaxRevisions
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return strings.ToLower(ulid.Make().String())
		}
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &orderService{
		orders:       deps.Orders,
		services:     deps.Services,
		messages:     deps.Messages,
		codes:        deps.Codes,
		actors:       deps.Actors,
		escrow:       escrow{provider: deps.Payments, logger: logger},
		attachments:  deps.Attachments,
		events:       deps.Events,
		metrics:      deps.Metrics,
		maxRevisions: maxRevisions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *orderService) Create(ctx context.Context, cmd CreateOrderCommand) (Order, error) {
	serviceID := strings.TrimSpace(cmd.ServiceID)
	if serviceID == "" {
		return Order{}, fmt.Errorf("%w: service id is required", ErrOrderInvalidInput)
	}
	packageKey := textutil.NormalizeKey(cmd.PackageKey)
	if packageKey == "" {
		return Order{}, fmt.Errorf("%w: package is required", ErrOrderInvalidInput)
	}

	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Order{}, denied(err, ErrOrderForbidden, ErrOrderUnavailable)
	}
	if err := RequireRole(actor, domain.UserRoleBuyer); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderForbidden, err)
	}

	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}
	if !service.IsActive {
		return Order{}, fmt.Errorf("%w: service %s is not available", ErrOrderNotFound, serviceID)
	}
	pkg, ok := service.Packages[packageKey]
	if !ok {
		return Order{}, fmt.Errorf("%w: invalid package", ErrOrderInvalidInput)
	}
	if service.OwnerID == actor.ID {
		return Order{}, fmt.Errorf("%w: cannot order your own service", ErrOrderInvalidInput)
	}
	if _, err := s.actors.Resolve(ctx, service.OwnerID); err != nil {
		if errors.Is(err, ErrActorUnavailable) {
			return Order{}, fmt.Errorf("%w: %v", ErrOrderUnavailable, err)
		}
		return Order{}, fmt.Errorf("%w: service %s is not available", ErrOrderNotFound, serviceID)
	}

	code, err := s.codes.NextOrderCode(ctx)
	if err != nil {
		return Order{}, fmt.Errorf("%w: order code: %v", ErrOrderUnavailable, err)
	}

	now := s.now()
	order := Order{
		ID:            s.nextOrderID(),
		Code:          code,
		ServiceID:     service.ID,
		BuyerID:       actor.ID,
		SellerID:      service.OwnerID,
		Package:       packageKey,
		Price:         pkg.Price,
		Status:        domain.OrderStatusInProgress,
		Requirements:  textutil.Sanitize(cmd.Requirements),
		MaxRevisions:  s.maxRevisions,
		PaymentStatus: domain.PaymentStatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		DeliveryDueAt: now.AddDate(0, 0, pkg.DeliveryDays),
	}

	if err := s.holdPayment(ctx, &order); err != nil {
		return Order{}, err
	}
	if err := s.orders.Insert(ctx, order); err != nil {
		s.escrow.compensate(ctx, order, err)
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}

	s.recordTransition(ctx, "", order.Status)
	s.publishEvent(ctx, order, domain.OrderEventCreated, actor.ID)
	return order, nil
}

func (s *orderService) Deliver(ctx context.Context, cmd DeliverOrderCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	files, err := s.validateDeliveryFiles(orderID, cmd.DeliveryFiles)
	if err != nil {
		return Order{}, err
	}
	note := textutil.Sanitize(cmd.DeliveryNote)

	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Order{}, denied(err, ErrOrderForbidden, ErrOrderUnavailable)
	}

	var from OrderStatus
	updated, err := s.orders.Mutate(ctx, orderID, func(order *Order) error {
		if err := RequireParty(actor, order.SellerID, RelationSellerOf); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderForbidden, err)
		}
		if order.Status != domain.OrderStatusInProgress {
			return statusError(order.Status, "order is not in progress")
		}
		now := s.now()
		from = order.Status
		order.Status = domain.OrderStatusDelivered
		order.DeliveryNote = optionalString(note)
		order.DeliveryFiles = files
		order.DeliveredAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}

	s.recordTransition(ctx, from, updated.Status)
	s.publishEvent(ctx, updated, domain.OrderEventDelivered, actor.ID)
	return updated, nil
}

func (s *orderService) Accept(ctx context.Context, cmd AcceptOrderCommand) (Order, error) {
	actor, current, err := s.loadForMutation(ctx, cmd.ActorID, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := RequireParty(actor, current.BuyerID, RelationBuyerOf); err != nil {
		return Order{}, fmt.Errorf("%w: %v", ErrOrderForbidden, err)
	}
	if err := acceptable(current); err != nil {
		return Order{}, err
	}

	// Funds move before the transition commits so a completed order always carries released funds.
	if err := s.settlePayment(ctx, current, domain.PaymentStatusReleased, ""); err != nil {
		return Order{}, err
	}

	var from OrderStatus
	updated, err := s.orders.Mutate(ctx, current.ID, func(order *Order) error {
		if err := RequireParty(actor, order.BuyerID, RelationBuyerOf); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderForbidden, err)
		}
		if err := acceptable(*order); err != nil {
			return err
		}
		now := s.now()
		from = order.Status
		order.Status = domain.OrderStatusCompleted
		order.PaymentStatus = domain.PaymentStatusReleased
		order.CompletedAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}

	s.recordTransition(ctx, from, updated.Status)
	s.publishEvent(ctx, updated, domain.OrderEventCompleted, actor.ID)
	return updated, nil
}

func (s *orderService) RequestRevision(ctx context.Context, cmd RequestRevisionCommand) (Order, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	note := textutil.Sanitize(cmd.Note)

	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Order{}, denied(err, ErrOrderForbidden, ErrOrderUnavailable)
	}

	var from OrderStatus
	updated, err := s.orders.Mutate(ctx, orderID, func(order *Order) error {
		if err := RequireParty(actor, order.BuyerID, RelationBuyerOf); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderForbidden, err)
		}
		if order.Revisions >= order.MaxRevisions {
			return fmt.Errorf("%w: no revisions left", ErrOrderInvalidState)
		}
		if order.Status != domain.OrderStatusInProgress && order.Status != domain.OrderStatusDelivered {
			return statusError(order.Status, "order is not in progress")
		}
		from = order.Status
		order.Revisions++
		order.Status = domain.OrderStatusInProgress
		order.DeliveredAt = nil
		order.UpdatedAt = s.now()
		return nil
	})
	if err != nil {
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}

	if note != "" && s.messages != nil {
		message := Message{
			ID:        messageIDPrefix + s.newID(),
			OrderID:   updated.ID,
			SenderID:  actor.ID,
			Body:      note,
			CreatedAt: updated.UpdatedAt,
		}
		if err := s.messages.Insert(ctx, message); err != nil {
			s.logger(ctx, "order.revision.note.failed", map[string]any{
				"orderId": updated.ID,
				"error":   err.Error(),
			})
		}
	}

	s.recordTransition(ctx, from, updated.Status)
	s.publishEvent(ctx, updated, domain.OrderEventRevisionRequested, actor.ID)
	return updated, nil
}

func (s *orderService) Cancel(ctx context.Context, cmd CancelOrderCommand) (Order, error) {
	reason := textutil.Sanitize(cmd.Reason)
	actor, current, err := s.loadForMutation(ctx, cmd.ActorID, cmd.OrderID)
	if err != nil {
		return Order{}, err
	}
	if err := canCancel(actor, current); err != nil {
		return Order{}, err
	}

	if current.PaymentStatus == domain.PaymentStatusHeld {
		if err := s.settlePayment(ctx, current, domain.PaymentStatusRefunded, reason); err != nil {
			return Order{}, err
		}
	}

	var from OrderStatus
	updated, err := s.orders.Mutate(ctx, current.ID, func(order *Order) error {
		if err := canCancel(actor, *order); err != nil {
			return err
		}
		now := s.now()
		from = order.Status
		order.Status = domain.OrderStatusCancelled
		if order.PaymentStatus == domain.PaymentStatusHeld {
			order.PaymentStatus = domain.PaymentStatusRefunded
		}
		order.CancelReason = optionalString(reason)
		order.CancelledAt = &now
		order.UpdatedAt = now
		return nil
	})
	if err != nil {
		return Order{}, orderRepoErrors.mapRepositoryError(err)
	}

	s.recordTransition(ctx, from, updated.Status)
	s.publishEvent(ctx, updated, domain.OrderEventCancelled, actor.ID)
	return updated, nil
}

func (s *orderService) Get(ctx context.Context, actorID, orderID string) (Order, error) {
	actor, order, err := s.loadForMutation(ctx, actorID, orderID)
	if err != nil {
		return Order{}, err
	}
	if !actor.IsAdmin() && actor.ID != order.BuyerID && actor.ID != order.SellerID {
		return Order{}, fmt.Errorf("%w: order %s", ErrOrderNotFound, order.ID)
	}
	return order, nil
}

func (s *orderService) List(ctx context.Context, filter OrderListFilter) (domain.CursorPage[Order], error) {
	actor, err := s.actors.Resolve(ctx, filter.ActorID)
	if err != nil {
		return domain.CursorPage[Order]{}, denied(err, ErrOrderForbidden, ErrOrderUnavailable)
	}

	repoFilter := repositories.OrderListFilter{
		Status:     filter.Status,
		Pagination: filter.Pagination,
	}
	switch {
	case filter.All:
		if !actor.IsAdmin() {
			return domain.CursorPage[Order]{}, fmt.Errorf("%w: only admins may list every order", ErrOrderForbidden)
		}
	case filter.Role == OrderListRoleBuyer:
		repoFilter.BuyerID = actor.ID
	case filter.Role == OrderListRoleSeller:
		repoFilter.SellerID = actor.ID
	case filter.Role == OrderListRoleAny:
		repoFilter.ParticipantID = actor.ID
	default:
		return domain.CursorPage[Order]{}, fmt.Errorf("%w: unknown role filter %q", ErrOrderInvalidInput, filter.Role)
	}

	page, err := s.orders.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[Order]{}, orderRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

func (s *orderService) AttachmentUploadURL(ctx context.Context, cmd AttachmentUploadCommand) (storage.SignedURL, error) {
	if s.attachments == nil {
		return storage.SignedURL{}, fmt.Errorf("%w: attachments are not configured", ErrOrderUnavailable)
	}
	if strings.TrimSpace(cmd.FileName) == "" {
		return storage.SignedURL{}, fmt.Errorf("%w: file name is required", ErrOrderInvalidInput)
	}
	actor, order, err := s.loadForMutation(ctx, cmd.ActorID, cmd.OrderID)
	if err != nil {
		return storage.SignedURL{}, err
	}
	if err := RequireParty(actor, order.SellerID, RelationSellerOf); err != nil {
		return storage.SignedURL{}, fmt.Errorf("%w: %v", ErrOrderForbidden, err)
	}
	if order.Status != domain.OrderStatusInProgress {
		return storage.SignedURL{}, statusError(order.Status, "order is not in progress")
	}

	signed, err := s.attachments.SignUpload(ctx, storage.UploadRequest{
		OrderID:     order.ID,
		FileName:    cmd.FileName,
		ContentType: cmd.ContentType,
	})
	if err != nil {
		if errors.Is(err, storage.ErrContentTypeDenied) || errors.Is(err, storage.ErrInvalidObjectRef) {
			return storage.SignedURL{}, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}
		return storage.SignedURL{}, fmt.Errorf("%w: sign upload: %v", ErrOrderUnavailable, err)
	}
	return signed, nil
}

// loadForMutation resolves the caller and the stored order, in that order, so unknown callers never
// learn whether an order exists.
func (s *orderService) loadForMutation(ctx context.Context, actorID, orderID string) (Actor, Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Actor{}, Order{}, fmt.Errorf("%w: order id is required", ErrOrderInvalidInput)
	}
	actor, err := s.actors.Resolve(ctx, actorID)
	if err != nil {
		return Actor{}, Order{}, denied(err, ErrOrderForbidden, ErrOrderUnavailable)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Actor{}, Order{}, orderRepoErrors.mapRepositoryError(err)
	}
	return actor, order, nil
}

func (s *orderService) validateDeliveryFiles(orderID string, files []string) ([]string, error) {
	if len(files) > maxDeliveryFiles {
		return nil, fmt.Errorf("%w: at most %d delivery files are allowed", ErrOrderInvalidInput, maxDeliveryFiles)
	}
	out := make([]string, 0, len(files))
	for _, file := range files {
		file = strings.TrimSpace(file)
		if file == "" {
			continue
		}
		if strings.HasPrefix(file, "gs://") {
			if s.attachments == nil {
				return nil, fmt.Errorf("%w: attachments are not configured", ErrOrderInvalidInput)
			}
			if err := storage.ValidateDeliveryRef(s.attachments.Bucket(), orderID, file); err != nil {
				return nil, fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
			}
		} else if parsed, err := url.ParseRequestURI(file); err != nil || (parsed.Scheme != "https" && parsed.Scheme != "http") || parsed.Host == "" {
			return nil, fmt.Errorf("%w: delivery file %q must be a gs:// reference or an http(s) URL", ErrOrderInvalidInput, file)
		}
		out = append(out, file)
	}
	if len(out) == 0 {
		return nil, nil
	}
	return out, nil
}

func (s *orderService) holdPayment(ctx context.Context, order *Order) error {
	if err := s.escrow.hold(ctx, order); err != nil {
		if errors.Is(err, payments.ErrInvalidAmount) {
			return fmt.Errorf("%w: %v", ErrOrderInvalidInput, err)
		}
		return fmt.Errorf("%w: hold payment: %v", ErrOrderUnavailable, err)
	}
	return nil
}

func (s *orderService) settlePayment(ctx context.Context, order Order, target domain.PaymentStatus, reason string) error {
	if err := s.escrow.settle(ctx, order, target, reason); err != nil {
		if errors.Is(err, payments.ErrInvalidTransition) {
			return fmt.Errorf("%w: payment already settled", ErrOrderInvalidState)
		}
		return fmt.Errorf("%w: %s payment: %v", ErrOrderUnavailable, target, err)
	}
	return nil
}

func (s *orderService) recordTransition(ctx context.Context, from, to OrderStatus) {
	if s.metrics != nil {
		s.metrics.OrderTransition(ctx, string(from), string(to))
	}
	s.logger(ctx, "order.transition", map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

func (s *orderService) publishEvent(ctx context.Context, order Order, eventType, actorID string) {
	if s.events == nil {
		return
	}
	event := domain.OrderEvent{
		Type:       eventType,
		OrderID:    order.ID,
		OrderCode:  order.Code,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		ActorID:    actorID,
		Status:     order.Status,
		Revisions:  order.Revisions,
		OccurredAt: order.UpdatedAt,
	}
	if err := s.events.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":    eventType,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *orderService) now() time.Time {
	return s.clock()
}

func (s *orderService) nextOrderID() string {
	return orderIDPrefix + s.newID()
}

func acceptable(order Order) error {
	switch order.Status {
	case domain.OrderStatusInProgress, domain.OrderStatusDelivered:
		return nil
	default:
		return statusError(order.Status, "order is not in progress")
	}
}

func canCancel(actor Actor, order Order) error {
	if !actor.IsAdmin() {
		if err := RequireParty(actor, order.SellerID, RelationSellerOf); err != nil {
			return fmt.Errorf("%w: %v", ErrOrderForbidden, err)
		}
	}
	switch order.Status {
	case domain.OrderStatusPending, domain.OrderStatusInProgress, domain.OrderStatusDelivered:
		return nil
	default:
		return statusError(order.Status, "order cannot be cancelled")
	}
}

// statusError reports terminal orders as already processed and anything else with fallback.
func statusError(status OrderStatus, fallback string) error {
	if status.Terminal() {
		return fmt.Errorf("%w: order already processed", ErrOrderInvalidState)
	}
	return fmt.Errorf("%w: %s", ErrOrderInvalidState, fallback)
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

func valuePtr[T any](v T) *T {
	return &v
}
