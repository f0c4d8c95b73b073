package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/services"
)

func newCustomOrderRouter(h *CustomOrderHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/manager", h.ManagerRoutes)
	router.Route("/custom-orders", h.Routes)
	return router
}

func TestCustomOrderHandlersPropose(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	var captured services.ProposeCustomOrderCommand
	svc := &stubCustomOrderService{
		proposeFn: func(_ context.Context, cmd services.ProposeCustomOrderCommand) (services.CustomOrder, error) {
			captured = cmd
			return services.CustomOrder{
				ID:             "cus_1",
				Code:           "CUS-000001",
				Title:          cmd.Title,
				Price:          cmd.Price,
				DeliveryDays:   7,
				ManagerID:      cmd.ActorID,
				RecipientID:    cmd.RecipientID,
				RecipientRole:  domain.UserRoleBuyer,
				CounterpartyID: cmd.CounterpartyID,
				Status:         domain.CustomOrderStatusPending,
				CreatedAt:      now,
			}, nil
		},
	}
	router := newCustomOrderRouter(NewCustomOrderHandlers(nil, svc, nil))

	body := `{"title":"Launch campaign","price":20000,"recipient_id":"buyer-1","counterparty_id":"seller-1"}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/manager/custom-order", strings.NewReader(body)), "manager-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ActorID != "manager-1" || captured.RecipientID != "buyer-1" || captured.CounterpartyID != "seller-1" || captured.DeliveryDays != 0 {
		t.Fatalf("unexpected command: %#v", captured)
	}

	var resp customOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.CustomOrder.Status != "pending" || resp.CustomOrder.RecipientRole != "buyer" || resp.Order != nil {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestCustomOrderHandlersAcceptReturnsSpawnedOrder(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	orderID := "ord_9"
	customOrderID := "cus_1"
	svc := &stubCustomOrderService{
		acceptFn: func(_ context.Context, cmd services.DecideCustomOrderCommand) (services.CustomOrderAcceptance, error) {
			if cmd.ActorID != "buyer-1" || cmd.CustomOrderID != customOrderID {
				t.Fatalf("unexpected command: %#v", cmd)
			}
			return services.CustomOrderAcceptance{
				CustomOrder: services.CustomOrder{ID: customOrderID, Status: domain.CustomOrderStatusAccepted, OrderID: &orderID, AcceptedAt: &now},
				Order: services.Order{
					ID:            orderID,
					BuyerID:       "buyer-1",
					SellerID:      "seller-1",
					Package:       domain.CustomPackage,
					Status:        domain.OrderStatusInProgress,
					IsCustomOrder: true,
					CustomOrderID: &customOrderID,
				},
			}, nil
		},
	}
	router := newCustomOrderRouter(NewCustomOrderHandlers(nil, svc, nil))

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/custom-orders/cus_1/accept", nil), "buyer-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp customOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Order == nil || resp.Order.ID != orderID || !resp.Order.IsCustomOrder || resp.Order.Package != "custom" {
		t.Fatalf("expected spawned order in response, got %#v", resp.Order)
	}
	if resp.CustomOrder.OrderID == nil || *resp.CustomOrder.OrderID != orderID {
		t.Fatalf("expected custom order to reference the order, got %#v", resp.CustomOrder)
	}
}

func TestCustomOrderHandlersDecisionErrors(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
	}{
		{name: "already decided", err: fmt.Errorf("%w: order already processed", services.ErrCustomOrderInvalidState), status: http.StatusConflict},
		{name: "not recipient", err: services.ErrCustomOrderForbidden, status: http.StatusForbidden},
		{name: "missing", err: services.ErrCustomOrderNotFound, status: http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := &stubCustomOrderService{
				rejectFn: func(context.Context, services.DecideCustomOrderCommand) (services.CustomOrder, error) {
					return services.CustomOrder{}, tc.err
				},
			}
			router := newCustomOrderRouter(NewCustomOrderHandlers(nil, svc, nil))

			req := withIdentity(httptest.NewRequest(http.MethodPut, "/custom-orders/cus_1/reject", strings.NewReader(`{"reason":"budget"}`)), "buyer-1")
			rr := httptest.NewRecorder()
			router.ServeHTTP(rr, req)

			if rr.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rr.Code)
			}
		})
	}
}

func TestCustomOrderHandlersRejectPassesReason(t *testing.T) {
	var captured services.DecideCustomOrderCommand
	svc := &stubCustomOrderService{
		rejectFn: func(_ context.Context, cmd services.DecideCustomOrderCommand) (services.CustomOrder, error) {
			captured = cmd
			reason := cmd.Reason
			return services.CustomOrder{ID: cmd.CustomOrderID, Status: domain.CustomOrderStatusRejected, RejectionReason: &reason}, nil
		},
	}
	router := newCustomOrderRouter(NewCustomOrderHandlers(nil, svc, nil))

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/custom-orders/cus_1/reject", strings.NewReader(`{"reason":"budget"}`)), "seller-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.Reason != "budget" || captured.ActorID != "seller-1" {
		t.Fatalf("unexpected command: %#v", captured)
	}
	var resp customOrderResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.CustomOrder.RejectionReason == nil || *resp.CustomOrder.RejectionReason != "budget" {
		t.Fatalf("expected rejection reason, got %#v", resp.CustomOrder)
	}
}

func TestCustomOrderHandlersList(t *testing.T) {
	var captured services.CustomOrderListFilter
	svc := &stubCustomOrderService{
		listFn: func(_ context.Context, filter services.CustomOrderListFilter) (domain.CursorPage[services.CustomOrder], error) {
			captured = filter
			return domain.CursorPage[services.CustomOrder]{Items: []services.CustomOrder{{ID: "cus_1"}}}, nil
		},
	}
	router := newCustomOrderRouter(NewCustomOrderHandlers(nil, svc, nil))

	req := withIdentity(httptest.NewRequest(http.MethodGet, "/custom-orders?status=pending", nil), "buyer-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if captured.ActorID != "buyer-1" || len(captured.Status) != 1 || captured.Status[0] != "pending" {
		t.Fatalf("unexpected filter: %#v", captured)
	}
}

func TestCustomOrderHandlersManagerDirectory(t *testing.T) {
	var captured []services.UserListFilter
	users := &stubUserService{
		listFn: func(_ context.Context, filter services.UserListFilter) (domain.CursorPage[services.UserProfile], error) {
			captured = append(captured, filter)
			if filter.ActorID != "manager-1" {
				return domain.CursorPage[services.UserProfile]{}, services.ErrUserForbidden
			}
			return domain.CursorPage[services.UserProfile]{
				Items:         []services.UserProfile{{ID: "seller-1", DisplayName: "Aiko", Email: "aiko@example.com", Role: filter.Role, Rating: 4.5, IsActive: true}},
				NextPageToken: "next",
			}, nil
		},
	}
	router := newCustomOrderRouter(NewCustomOrderHandlers(nil, &stubCustomOrderService{}, users))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodGet, "/manager/sellers?pageSize=5", nil), "manager-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp listResponse[profilePayload]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].ID != "seller-1" || resp.NextPageToken != "next" {
		t.Fatalf("unexpected directory page: %#v", resp)
	}
	if resp.Items[0].Email != "" {
		t.Fatalf("manager directory must not expose email, got %q", resp.Items[0].Email)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodGet, "/manager/buyers", nil), "manager-1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	if len(captured) != 2 {
		t.Fatalf("expected 2 list calls, got %d", len(captured))
	}
	if captured[0].Role != domain.UserRoleSeller || captured[0].Pagination.PageSize != 5 || captured[0].IncludeInactive {
		t.Fatalf("unexpected seller filter: %#v", captured[0])
	}
	if captured[1].Role != domain.UserRoleBuyer {
		t.Fatalf("unexpected buyer filter: %#v", captured[1])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, withIdentity(httptest.NewRequest(http.MethodGet, "/manager/sellers", nil), "buyer-1"))
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}
