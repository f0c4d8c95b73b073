package handlers

import (
	"context"
	"errors"
	"net/http"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/storage"
	"github.com/jamshaid11601/Emergent/internal/services"
)

var errNotImplemented = errors.New("not implemented")

func withIdentity(req *http.Request, uid string) *http.Request {
	return req.WithContext(auth.WithIdentity(req.Context(), &auth.Identity{UID: uid}))
}

type stubOrderService struct {
	createFn     func(context.Context, services.CreateOrderCommand) (services.Order, error)
	deliverFn    func(context.Context, services.DeliverOrderCommand) (services.Order, error)
	acceptFn     func(context.Context, services.AcceptOrderCommand) (services.Order, error)
	revisionFn   func(context.Context, services.RequestRevisionCommand) (services.Order, error)
	cancelFn     func(context.Context, services.CancelOrderCommand) (services.Order, error)
	getFn        func(context.Context, string, string) (services.Order, error)
	listFn       func(context.Context, services.OrderListFilter) (domain.CursorPage[services.Order], error)
	attachmentFn func(context.Context, services.AttachmentUploadCommand) (storage.SignedURL, error)
}

func (s *stubOrderService) Create(ctx context.Context, cmd services.CreateOrderCommand) (services.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) Deliver(ctx context.Context, cmd services.DeliverOrderCommand) (services.Order, error) {
	if s.deliverFn != nil {
		return s.deliverFn(ctx, cmd)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) Accept(ctx context.Context, cmd services.AcceptOrderCommand) (services.Order, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, cmd)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) RequestRevision(ctx context.Context, cmd services.RequestRevisionCommand) (services.Order, error) {
	if s.revisionFn != nil {
		return s.revisionFn(ctx, cmd)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) Cancel(ctx context.Context, cmd services.CancelOrderCommand) (services.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) Get(ctx context.Context, actorID, orderID string) (services.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actorID, orderID)
	}
	return services.Order{}, errNotImplemented
}

func (s *stubOrderService) List(ctx context.Context, filter services.OrderListFilter) (domain.CursorPage[services.Order], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.Order]{}, nil
}

func (s *stubOrderService) AttachmentUploadURL(ctx context.Context, cmd services.AttachmentUploadCommand) (storage.SignedURL, error) {
	if s.attachmentFn != nil {
		return s.attachmentFn(ctx, cmd)
	}
	return storage.SignedURL{}, errNotImplemented
}

type stubMessageService struct {
	sendFn func(context.Context, services.SendMessageCommand) (services.Message, error)
	listFn func(context.Context, string, string, services.Pagination) (domain.CursorPage[services.Message], error)
}

func (s *stubMessageService) Send(ctx context.Context, cmd services.SendMessageCommand) (services.Message, error) {
	if s.sendFn != nil {
		return s.sendFn(ctx, cmd)
	}
	return services.Message{}, errNotImplemented
}

func (s *stubMessageService) List(ctx context.Context, actorID, orderID string, pager services.Pagination) (domain.CursorPage[services.Message], error) {
	if s.listFn != nil {
		return s.listFn(ctx, actorID, orderID, pager)
	}
	return domain.CursorPage[services.Message]{}, nil
}

type stubCustomOrderService struct {
	proposeFn func(context.Context, services.ProposeCustomOrderCommand) (services.CustomOrder, error)
	acceptFn  func(context.Context, services.DecideCustomOrderCommand) (services.CustomOrderAcceptance, error)
	rejectFn  func(context.Context, services.DecideCustomOrderCommand) (services.CustomOrder, error)
	getFn     func(context.Context, string, string) (services.CustomOrder, error)
	listFn    func(context.Context, services.CustomOrderListFilter) (domain.CursorPage[services.CustomOrder], error)
}

func (s *stubCustomOrderService) Propose(ctx context.Context, cmd services.ProposeCustomOrderCommand) (services.CustomOrder, error) {
	if s.proposeFn != nil {
		return s.proposeFn(ctx, cmd)
	}
	return services.CustomOrder{}, errNotImplemented
}

func (s *stubCustomOrderService) Accept(ctx context.Context, cmd services.DecideCustomOrderCommand) (services.CustomOrderAcceptance, error) {
	if s.acceptFn != nil {
		return s.acceptFn(ctx, cmd)
	}
	return services.CustomOrderAcceptance{}, errNotImplemented
}

func (s *stubCustomOrderService) Reject(ctx context.Context, cmd services.DecideCustomOrderCommand) (services.CustomOrder, error) {
	if s.rejectFn != nil {
		return s.rejectFn(ctx, cmd)
	}
	return services.CustomOrder{}, errNotImplemented
}

func (s *stubCustomOrderService) Get(ctx context.Context, actorID, customOrderID string) (services.CustomOrder, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actorID, customOrderID)
	}
	return services.CustomOrder{}, errNotImplemented
}

func (s *stubCustomOrderService) List(ctx context.Context, filter services.CustomOrderListFilter) (domain.CursorPage[services.CustomOrder], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.CustomOrder]{}, nil
}

type stubReviewService struct {
	createFn        func(context.Context, services.CreateReviewCommand) (services.Review, error)
	listBySellerFn  func(context.Context, string, services.Pagination) (domain.CursorPage[services.Review], error)
	listByServiceFn func(context.Context, string, services.Pagination) (domain.CursorPage[services.Review], error)
	recomputeFn     func(context.Context, string) (services.RatingSummary, error)
}

func (s *stubReviewService) Create(ctx context.Context, cmd services.CreateReviewCommand) (services.Review, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Review{}, errNotImplemented
}

func (s *stubReviewService) ListBySeller(ctx context.Context, sellerID string, pager services.Pagination) (domain.CursorPage[services.Review], error) {
	if s.listBySellerFn != nil {
		return s.listBySellerFn(ctx, sellerID, pager)
	}
	return domain.CursorPage[services.Review]{}, nil
}

func (s *stubReviewService) ListByService(ctx context.Context, serviceID string, pager services.Pagination) (domain.CursorPage[services.Review], error) {
	if s.listByServiceFn != nil {
		return s.listByServiceFn(ctx, serviceID, pager)
	}
	return domain.CursorPage[services.Review]{}, nil
}

func (s *stubReviewService) Recompute(ctx context.Context, sellerID string) (services.RatingSummary, error) {
	if s.recomputeFn != nil {
		return s.recomputeFn(ctx, sellerID)
	}
	return services.RatingSummary{}, errNotImplemented
}

type stubCatalogService struct {
	createFn func(context.Context, services.UpsertServiceCommand) (services.Service, error)
	updateFn func(context.Context, services.UpsertServiceCommand) (services.Service, error)
	getFn    func(context.Context, string) (services.Service, error)
}

func (s *stubCatalogService) CreateService(ctx context.Context, cmd services.UpsertServiceCommand) (services.Service, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return services.Service{}, errNotImplemented
}

func (s *stubCatalogService) UpdateService(ctx context.Context, cmd services.UpsertServiceCommand) (services.Service, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return services.Service{}, errNotImplemented
}

func (s *stubCatalogService) GetService(ctx context.Context, serviceID string) (services.Service, error) {
	if s.getFn != nil {
		return s.getFn(ctx, serviceID)
	}
	return services.Service{}, errNotImplemented
}

type stubUserService struct {
	provisionFn func(context.Context, services.ProvisionUserCommand) (services.UserProfile, error)
	getFn       func(context.Context, string) (services.UserProfile, error)
	setRoleFn   func(context.Context, services.SetUserRoleCommand) (services.UserProfile, error)
	banFn       func(context.Context, services.BanUserCommand) (services.UserProfile, error)
	listFn      func(context.Context, services.UserListFilter) (domain.CursorPage[services.UserProfile], error)
}

func (s *stubUserService) GetOrProvision(ctx context.Context, cmd services.ProvisionUserCommand) (services.UserProfile, error) {
	if s.provisionFn != nil {
		return s.provisionFn(ctx, cmd)
	}
	return services.UserProfile{}, errNotImplemented
}

func (s *stubUserService) GetProfile(ctx context.Context, userID string) (services.UserProfile, error) {
	if s.getFn != nil {
		return s.getFn(ctx, userID)
	}
	return services.UserProfile{}, errNotImplemented
}

func (s *stubUserService) SetRole(ctx context.Context, cmd services.SetUserRoleCommand) (services.UserProfile, error) {
	if s.setRoleFn != nil {
		return s.setRoleFn(ctx, cmd)
	}
	return services.UserProfile{}, errNotImplemented
}

func (s *stubUserService) Ban(ctx context.Context, cmd services.BanUserCommand) (services.UserProfile, error) {
	if s.banFn != nil {
		return s.banFn(ctx, cmd)
	}
	return services.UserProfile{}, errNotImplemented
}

func (s *stubUserService) ListByRole(ctx context.Context, filter services.UserListFilter) (domain.CursorPage[services.UserProfile], error) {
	if s.listFn != nil {
		return s.listFn(ctx, filter)
	}
	return domain.CursorPage[services.UserProfile]{}, errNotImplemented
}

type stubSystemService struct {
	report services.HealthReport
	build  services.BuildInfo
	err    error
}

func (s *stubSystemService) HealthReport(context.Context) (services.HealthReport, error) {
	return s.report, s.err
}

func (s *stubSystemService) BuildInfo() services.BuildInfo {
	return s.build
}

var (
	_ services.OrderService       = (*stubOrderService)(nil)
	_ services.MessageService     = (*stubMessageService)(nil)
	_ services.CustomOrderService = (*stubCustomOrderService)(nil)
	_ services.ReviewService      = (*stubReviewService)(nil)
	_ services.CatalogService     = (*stubCatalogService)(nil)
	_ services.UserService        = (*stubUserService)(nil)
	_ services.SystemService      = (*stubSystemService)(nil)
)
