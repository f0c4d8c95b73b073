package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/payments"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	customOrderIDPrefix       = "cus_"
	defaultCustomDeliveryDays = 7
	maxCustomDeliveryDays     = 365

	decisionProposed = "proposed"
	decisionAccepted = "accepted"
	decisionRejected = "rejected"
)

// CustomOrderServiceDeps bundles collaborators required to construct the custom order service.
type CustomOrderServiceDeps struct {
	CustomOrders repositories.CustomOrderRepository
	Users        repositories.UserRepository
	Codes        CodeService
	Actors       ActorResolver
	Payments     payments.Provider
	Events       CustomOrderEventPublisher
	OrderEvents  OrderEventPublisher
	Metrics      WorkflowRecorder
	// DefaultDeliveryDays applies when a proposal omits delivery days; zero selects seven.
	DefaultDeliveryDays int
	// MaxRevisions applies to spawned orders; zero selects the default of one.
	MaxRevisions int
	Clock        func() time.Time
	IDGenerator  func() string
	Logger       func(ctx context.Context, event string, fields map[string]any)
}

type customOrderService struct {
	customOrders repositories.CustomOrderRepository
	users        repositories.UserRepository
	codes        CodeService
	actors       ActorResolver
	escrow       escrow
	events       CustomOrderEventPublisher
	orderEvents  OrderEventPublisher
	metrics      WorkflowRecorder
	deliveryDays int
	maxRevisions int
	clock        func() time.Time
	newID        func() string
	logger       func(context.Context, string, map[string]any)
}

var _ CustomOrderService = (*customOrderService)(nil)

// NewCustomOrderService wires dependencies into a concrete CustomOrderService implementation.
func NewCustomOrderService(deps CustomOrderServiceDeps) (CustomOrderService, error) {
	if deps.CustomOrders == nil {
		return nil, errors.New("custom order service: custom order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("custom order service: user repository is required")
	}
	if deps.Codes == nil {
		return nil, errors.New("custom order service: code service is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("custom order service: actor resolver is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("custom order service: payment provider is required")
	}

	deliveryDays := deps.DefaultDeliveryDays
	if deliveryDays <= 0 {
		deliveryDays = defaultCustomDeliveryDays
	}
	maxRevisions := deps.MaxRevisions
	if maxRevisions <= 0 {
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

	return &customOrderService{
		customOrders: deps.CustomOrders,
		users:        deps.Users,
		codes:        deps.Codes,
		actors:       deps.Actors,
		escrow:       escrow{provider: deps.Payments, logger: logger},
		events:       deps.Events,
		orderEvents:  deps.OrderEvents,
		metrics:      deps.Metrics,
		deliveryDays: deliveryDays,
		maxRevisions: maxRevisions,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID:  idGen,
		logger: logger,
	}, nil
}

func (s *customOrderService) Propose(ctx context.Context, cmd ProposeCustomOrderCommand) (CustomOrder, error) {
	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return CustomOrder{}, denied(err, ErrCustomOrderForbidden, ErrCustomOrderUnavailable)
	}
	if err := RequireRole(actor, domain.UserRoleManager); err != nil {
		return CustomOrder{}, fmt.Errorf("%w: %v", ErrCustomOrderForbidden, err)
	}

	title := textutil.Sanitize(cmd.Title)
	if title == "" {
		return CustomOrder{}, fmt.Errorf("%w: title is required", ErrCustomOrderInvalidInput)
	}
	if cmd.Price <= 0 {
		return CustomOrder{}, fmt.Errorf("%w: price must be positive", ErrCustomOrderInvalidInput)
	}
	deliveryDays := cmd.DeliveryDays
	if deliveryDays == 0 {
		deliveryDays = s.deliveryDays
	}
	if deliveryDays < 1 || deliveryDays > maxCustomDeliveryDays {
		return CustomOrder{}, fmt.Errorf("%w: delivery days must be between 1 and %d", ErrCustomOrderInvalidInput, maxCustomDeliveryDays)
	}

	recipientID := strings.TrimSpace(cmd.RecipientID)
	counterpartyID := strings.TrimSpace(cmd.CounterpartyID)
	if recipientID == "" {
		return CustomOrder{}, fmt.Errorf("%w: recipient is required", ErrCustomOrderInvalidInput)
	}
	if counterpartyID == "" {
		return CustomOrder{}, fmt.Errorf("%w: counterparty is required", ErrCustomOrderInvalidInput)
	}
	if recipientID == actor.ID {
		return CustomOrder{}, fmt.Errorf("%w: cannot propose to yourself", ErrCustomOrderInvalidInput)
	}
	if counterpartyID == actor.ID || counterpartyID == recipientID {
		return CustomOrder{}, fmt.Errorf("%w: counterparty must differ from the recipient and the manager", ErrCustomOrderInvalidInput)
	}

	recipient, err := s.loadParticipant(ctx, recipientID, "recipient")
	if err != nil {
		return CustomOrder{}, err
	}
	if recipient.Role != domain.UserRoleBuyer && recipient.Role != domain.UserRoleSeller {
		return CustomOrder{}, fmt.Errorf("%w: recipient must be a buyer or a seller", ErrCustomOrderInvalidInput)
	}
	counterparty, err := s.loadParticipant(ctx, counterpartyID, "counterparty")
	if err != nil {
		return CustomOrder{}, err
	}
	if want := complementaryRole(recipient.Role); counterparty.Role != want {
		return CustomOrder{}, fmt.Errorf("%w: counterparty must be a %s", ErrCustomOrderInvalidInput, want)
	}

	code, err := s.codes.NextCustomOrderCode(ctx)
	if err != nil {
		return CustomOrder{}, fmt.Errorf("%w: custom order code: %v", ErrCustomOrderUnavailable, err)
	}

	now := s.now()
	customOrder := CustomOrder{
		ID:             customOrderIDPrefix + s.newID(),
		Code:           code,
		Title:          title,
		Description:    textutil.Sanitize(cmd.Description),
		Price:          cmd.Price,
		DeliveryDays:   deliveryDays,
		ManagerID:      actor.ID,
		RecipientID:    recipient.ID,
		RecipientRole:  recipient.Role,
		CounterpartyID: counterparty.ID,
		Status:         domain.CustomOrderStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.customOrders.Insert(ctx, customOrder); err != nil {
		return CustomOrder{}, customOrderRepoErrors.mapRepositoryError(err)
	}

	s.recordDecision(ctx, decisionProposed)
	s.publishEvent(ctx, customOrder, domain.CustomOrderEventProposed, actor.ID)
	return customOrder, nil
}

// Accept converts a pending custom order into an order. Funds are held for the new order before the
// conversion commits and refunded when the conversion fails, so a losing concurrent accept leaves no
// hold behind.
func (s *customOrderService) Accept(ctx context.Context, cmd DecideCustomOrderCommand) (CustomOrderAcceptance, error) {
	actor, current, err := s.loadForDecision(ctx, cmd.ActorID, cmd.CustomOrderID)
	if err != nil {
		return CustomOrderAcceptance{}, err
	}
	if err := decidable(actor, current); err != nil {
		return CustomOrderAcceptance{}, err
	}
	buyerID, sellerID, err := orderParties(current)
	if err != nil {
		return CustomOrderAcceptance{}, err
	}
	for _, partyID := range []string{buyerID, sellerID} {
		if partyID == actor.ID {
			continue
		}
		if _, err := s.actors.Resolve(ctx, partyID); err != nil {
			if errors.Is(err, ErrActorUnavailable) {
				return CustomOrderAcceptance{}, fmt.Errorf("%w: %v", ErrCustomOrderUnavailable, err)
			}
			return CustomOrderAcceptance{}, fmt.Errorf("%w: party %s is no longer active", ErrCustomOrderInvalidState, partyID)
		}
	}

	code, err := s.codes.NextOrderCode(ctx)
	if err != nil {
		return CustomOrderAcceptance{}, fmt.Errorf("%w: order code: %v", ErrCustomOrderUnavailable, err)
	}
	now := s.now()
	draft := Order{
		ID:               orderIDPrefix + s.newID(),
		Code:             code,
		BuyerID:          buyerID,
		SellerID:         sellerID,
		Package:          domain.CustomPackage,
		Price:            current.Price,
		Status:           domain.OrderStatusInProgress,
		Requirements:     current.Description,
		MaxRevisions:     s.maxRevisions,
		PaymentStatus:    domain.PaymentStatusPending,
		IsCustomOrder:    true,
		CustomOrderID:    valuePtr(current.ID),
		ManagerID:        valuePtr(current.ManagerID),
		CustomOrderTitle: current.Title,
		CreatedAt:        now,
		UpdatedAt:        now,
		DeliveryDueAt:    now.AddDate(0, 0, current.DeliveryDays),
	}
	if err := s.escrow.hold(ctx, &draft); err != nil {
		if errors.Is(err, payments.ErrInvalidAmount) {
			return CustomOrderAcceptance{}, fmt.Errorf("%w: %v", ErrCustomOrderInvalidInput, err)
		}
		return CustomOrderAcceptance{}, fmt.Errorf("%w: hold payment: %v", ErrCustomOrderUnavailable, err)
	}

	result, err := s.customOrders.Accept(ctx, repositories.CustomOrderAcceptRequest{
		CustomOrderID: current.ID,
		Build: func(customOrder *CustomOrder) (Order, error) {
			if err := decidable(actor, *customOrder); err != nil {
				return Order{}, err
			}
			buyer, seller, err := orderParties(*customOrder)
			if err != nil {
				return Order{}, err
			}
			order := draft
			order.BuyerID = buyer
			order.SellerID = seller
			order.Price = customOrder.Price
			order.CustomOrderTitle = customOrder.Title

			customOrder.Status = domain.CustomOrderStatusAccepted
			customOrder.OrderID = valuePtr(order.ID)
			customOrder.AcceptedAt = valuePtr(now)
			customOrder.UpdatedAt = now
			return order, nil
		},
	})
	if err != nil {
		s.escrow.compensate(ctx, draft, err)
		return CustomOrderAcceptance{}, customOrderRepoErrors.mapRepositoryError(err)
	}

	s.recordDecision(ctx, decisionAccepted)
	if s.metrics != nil {
		s.metrics.OrderTransition(ctx, "", string(result.Order.Status))
	}
	s.publishEvent(ctx, result.CustomOrder, domain.CustomOrderEventAccepted, actor.ID)
	s.publishOrderCreated(ctx, result.Order, actor.ID)
	return CustomOrderAcceptance{CustomOrder: result.CustomOrder, Order: result.Order}, nil
}

func (s *customOrderService) Reject(ctx context.Context, cmd DecideCustomOrderCommand) (CustomOrder, error) {
	customOrderID := strings.TrimSpace(cmd.CustomOrderID)
	if customOrderID == "" {
		return CustomOrder{}, fmt.Errorf("%w: custom order id is required", ErrCustomOrderInvalidInput)
	}
	reason := textutil.Sanitize(cmd.Reason)
	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return CustomOrder{}, denied(err, ErrCustomOrderForbidden, ErrCustomOrderUnavailable)
	}

	updated, err := s.customOrders.Mutate(ctx, customOrderID, func(customOrder *CustomOrder) error {
		if err := decidable(actor, *customOrder); err != nil {
			return err
		}
		now := s.now()
		customOrder.Status = domain.CustomOrderStatusRejected
		customOrder.RejectionReason = optionalString(reason)
		customOrder.RejectedAt = &now
		customOrder.UpdatedAt = now
		return nil
	})
	if err != nil {
		return CustomOrder{}, customOrderRepoErrors.mapRepositoryError(err)
	}

	s.recordDecision(ctx, decisionRejected)
	s.publishEvent(ctx, updated, domain.CustomOrderEventRejected, actor.ID)
	return updated, nil
}

func (s *customOrderService) Get(ctx context.Context, actorID, customOrderID string) (CustomOrder, error) {
	actor, customOrder, err := s.loadForDecision(ctx, actorID, customOrderID)
	if err != nil {
		return CustomOrder{}, err
	}
	switch actor.ID {
	case customOrder.RecipientID, customOrder.CounterpartyID, customOrder.ManagerID:
		return customOrder, nil
	}
	if actor.IsAdmin() {
		return customOrder, nil
	}
	return CustomOrder{}, fmt.Errorf("%w: custom order %s", ErrCustomOrderNotFound, customOrder.ID)
}

func (s *customOrderService) List(ctx context.Context, filter CustomOrderListFilter) (domain.CursorPage[CustomOrder], error) {
	actor, err := s.actors.Resolve(ctx, filter.ActorID)
	if err != nil {
		return domain.CursorPage[CustomOrder]{}, denied(err, ErrCustomOrderForbidden, ErrCustomOrderUnavailable)
	}
	repoFilter := repositories.CustomOrderListFilter{
		Status:     filter.Status,
		Pagination: filter.Pagination,
	}
	switch actor.Role {
	case domain.UserRoleAdmin:
	case domain.UserRoleManager:
		repoFilter.ManagerID = actor.ID
	default:
		repoFilter.RecipientID = actor.ID
	}
	page, err := s.customOrders.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[CustomOrder]{}, customOrderRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

func (s *customOrderService) loadForDecision(ctx context.Context, actorID, customOrderID string) (Actor, CustomOrder, error) {
	customOrderID = strings.TrimSpace(customOrderID)
	if customOrderID == "" {
		return Actor{}, CustomOrder{}, fmt.Errorf("%w: custom order id is required", ErrCustomOrderInvalidInput)
	}
	actor, err := s.actors.Resolve(ctx, actorID)
	if err != nil {
		return Actor{}, CustomOrder{}, denied(err, ErrCustomOrderForbidden, ErrCustomOrderUnavailable)
	}
	customOrder, err := s.customOrders.FindByID(ctx, customOrderID)
	if err != nil {
		return Actor{}, CustomOrder{}, customOrderRepoErrors.mapRepositoryError(err)
	}
	return actor, customOrder, nil
}

func (s *customOrderService) loadParticipant(ctx context.Context, userID, label string) (UserProfile, error) {
	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return UserProfile{}, fmt.Errorf("%w: %s %s", ErrCustomOrderNotFound, label, userID)
		}
		return UserProfile{}, customOrderRepoErrors.mapRepositoryError(err)
	}
	if !profile.IsActive {
		return UserProfile{}, fmt.Errorf("%w: %s is deactivated", ErrCustomOrderInvalidInput, label)
	}
	return profile, nil
}

func (s *customOrderService) recordDecision(ctx context.Context, outcome string) {
	if s.metrics != nil {
		s.metrics.CustomOrderDecision(ctx, outcome)
	}
	s.logger(ctx, "custom_order.decision", map[string]any{"outcome": outcome})
}

func (s *customOrderService) publishEvent(ctx context.Context, customOrder CustomOrder, eventType, actorID string) {
	if s.events == nil {
		return
	}
	event := domain.CustomOrderEvent{
		Type:          eventType,
		CustomOrderID: customOrder.ID,
		Code:          customOrder.Code,
		ManagerID:     customOrder.ManagerID,
		RecipientID:   customOrder.RecipientID,
		ActorID:       actorID,
		Status:        customOrder.Status,
		OccurredAt:    customOrder.UpdatedAt,
	}
	if customOrder.OrderID != nil {
		event.OrderID = *customOrder.OrderID
	}
	if err := s.events.PublishCustomOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "custom_order.event.publish.failed", map[string]any{
			"type":          eventType,
			"customOrderId": customOrder.ID,
			"error":         err.Error(),
		})
	}
}

func (s *customOrderService) publishOrderCreated(ctx context.Context, order Order, actorID string) {
	if s.orderEvents == nil {
		return
	}
	event := domain.OrderEvent{
		Type:       domain.OrderEventCreated,
		OrderID:    order.ID,
		OrderCode:  order.Code,
		BuyerID:    order.BuyerID,
		SellerID:   order.SellerID,
		ActorID:    actorID,
		Status:     order.Status,
		OccurredAt: order.CreatedAt,
	}
	if err := s.orderEvents.PublishOrderEvent(ctx, event); err != nil {
		s.logger(ctx, "order.event.publish.failed", map[string]any{
			"type":    event.Type,
			"orderId": order.ID,
			"error":   err.Error(),
		})
	}
}

func (s *customOrderService) now() time.Time {
	return s.clock()
}

// decidable checks recipient ownership before state so that strangers learn nothing about decisions.
func decidable(actor Actor, customOrder CustomOrder) error {
	if err := RequireParty(actor, customOrder.RecipientID, RelationRecipientOf); err != nil {
		return fmt.Errorf("%w: %v", ErrCustomOrderForbidden, err)
	}
	if customOrder.Status != domain.CustomOrderStatusPending {
		return fmt.Errorf("%w: order already processed", ErrCustomOrderInvalidState)
	}
	return nil
}

// orderParties assigns buyer and seller from the recipient's role snapshot and the counterparty.
func orderParties(customOrder CustomOrder) (buyerID, sellerID string, err error) {
	if customOrder.CounterpartyID == "" {
		return "", "", fmt.Errorf("%w: custom order has no counterparty", ErrCustomOrderInvalidState)
	}
	switch customOrder.RecipientRole {
	case domain.UserRoleBuyer:
		return customOrder.RecipientID, customOrder.CounterpartyID, nil
	case domain.UserRoleSeller:
		return customOrder.CounterpartyID, customOrder.RecipientID, nil
	default:
		return "", "", fmt.Errorf("%w: custom order recipient role %q cannot take part in an order", ErrCustomOrderInvalidState, customOrder.RecipientRole)
	}
}

func complementaryRole(role domain.UserRole) domain.UserRole {
	if role == domain.UserRoleBuyer {
		return domain.UserRoleSeller
	}
	return domain.UserRoleBuyer
}
