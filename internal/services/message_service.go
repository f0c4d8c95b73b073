package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	maxMessageLength      = 5000
	maxMessageAttachments = 10
)

// MessageServiceDeps bundles collaborators required to construct a MessageService.
type MessageServiceDeps struct {
	Messages    repositories.MessageRepository
	Orders      repositories.OrderRepository
	Actors      ActorResolver
	Clock       func() time.Time
	IDGenerator func() string
}

type messageService struct {
	messages repositories.MessageRepository
	orders   repositories.OrderRepository
	actors   ActorResolver
	clock    func() time.Time
	newID    func() string
}

var _ MessageService = (*messageService)(nil)

// NewMessageService wires dependencies into a concrete MessageService implementation.
func NewMessageService(deps MessageServiceDeps) (MessageService, error) {
	if deps.Messages == nil {
		return nil, errors.New("message service: message repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("message service: order repository is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("message service: actor resolver is required")
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
	return &messageService{
		messages: deps.Messages,
		orders:   deps.Orders,
		actors:   deps.Actors,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *messageService) Send(ctx context.Context, cmd SendMessageCommand) (Message, error) {
	body := textutil.Sanitize(cmd.Body)
	if body == "" {
		return Message{}, fmt.Errorf("%w: message body is required", ErrMessageInvalidInput)
	}
	if len([]rune(body)) > maxMessageLength {
		return Message{}, fmt.Errorf("%w: message exceeds %d characters", ErrMessageInvalidInput, maxMessageLength)
	}
	attachments := textutil.SanitizeList(cmd.Attachments)
	if len(attachments) > maxMessageAttachments {
		return Message{}, fmt.Errorf("%w: at most %d attachments are allowed", ErrMessageInvalidInput, maxMessageAttachments)
	}

	actor, order, err := s.participantOrder(ctx, cmd.ActorID, cmd.OrderID)
	if err != nil {
		return Message{}, err
	}

	message := Message{
		ID:          messageIDPrefix + s.newID(),
		OrderID:     order.ID,
		SenderID:    actor.ID,
		Body:        body,
		Attachments: attachments,
		CreatedAt:   s.clock(),
	}
	if err := s.messages.Insert(ctx, message); err != nil {
		return Message{}, messageRepoErrors.mapRepositoryError(err)
	}
	return message, nil
}

func (s *messageService) List(ctx context.Context, actorID, orderID string, pager Pagination) (domain.CursorPage[Message], error) {
	_, order, err := s.participantOrder(ctx, actorID, orderID)
	if err != nil {
		return domain.CursorPage[Message]{}, err
	}
	page, err := s.messages.ListByOrder(ctx, order.ID, pager)
	if err != nil {
		return domain.CursorPage[Message]{}, messageRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

// participantOrder hides orders the caller is not a party to behind not found. Admins may read and
// write every conversation.
func (s *messageService) participantOrder(ctx context.Context, actorID, orderID string) (Actor, Order, error) {
	orderID = strings.TrimSpace(orderID)
	if orderID == "" {
		return Actor{}, Order{}, fmt.Errorf("%w: order id is required", ErrMessageInvalidInput)
	}
	actor, err := s.actors.Resolve(ctx, actorID)
	if err != nil {
		return Actor{}, Order{}, denied(err, ErrMessageNotFound, ErrMessageUnavailable)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Actor{}, Order{}, messageRepoErrors.mapRepositoryError(err)
	}
	if !actor.IsAdmin() && actor.ID != order.BuyerID && actor.ID != order.SellerID {
		return Actor{}, Order{}, fmt.Errorf("%w: order %s", ErrMessageNotFound, order.ID)
	}
	return actor, order, nil
}
