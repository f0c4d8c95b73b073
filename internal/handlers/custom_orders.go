package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

var customOrderStatusFilters = []string{
	string(domain.CustomOrderStatusPending),
	string(domain.CustomOrderStatusAccepted),
	string(domain.CustomOrderStatusRejected),
}

// CustomOrderHandlers exposes manager proposals and recipient decisions.
type CustomOrderHandlers struct {
	authn        *auth.Authenticator
	customOrders services.CustomOrderService
	users        services.UserService
}

// NewCustomOrderHandlers constructs a new CustomOrderHandlers instance. users backs the manager
// directory of candidate buyers and sellers.
func NewCustomOrderHandlers(authn *auth.Authenticator, customOrders services.CustomOrderService, users services.UserService) *CustomOrderHandlers {
	return &CustomOrderHandlers{
		authn:        authn,
		customOrders: customOrders,
		users:        users,
	}
}

// ManagerRoutes registers the /manager endpoints.
func (h *CustomOrderHandlers) ManagerRoutes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/custom-order", h.proposeCustomOrder)
	r.Get("/sellers", h.listSellers)
	r.Get("/buyers", h.listBuyers)
}

func (h *CustomOrderHandlers) listSellers(w http.ResponseWriter, r *http.Request) {
	writeUserDirectory(w, r, h.users, domain.UserRoleSeller, false, false)
}

func (h *CustomOrderHandlers) listBuyers(w http.ResponseWriter, r *http.Request) {
	writeUserDirectory(w, r, h.users, domain.UserRoleBuyer, false, false)
}

// Routes registers the /custom-orders endpoints.
func (h *CustomOrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.listCustomOrders)
	r.Get("/{customOrderID}", h.getCustomOrder)
	r.Put("/{customOrderID}/accept", h.acceptCustomOrder)
	r.Put("/{customOrderID}/reject", h.rejectCustomOrder)
}

type proposeCustomOrderRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description"`
	Price          int64  `json:"price"`
	DeliveryDays   int    `json:"delivery_days"`
	RecipientID    string `json:"recipient_id"`
	CounterpartyID string `json:"counterparty_id"`
}

type rejectCustomOrderRequest struct {
	Reason string `json:"reason"`
}

type customOrderPayload struct {
	ID              string  `json:"id"`
	Code            string  `json:"code"`
	Title           string  `json:"title"`
	Description     string  `json:"description,omitempty"`
	Price           int64   `json:"price"`
	DeliveryDays    int     `json:"delivery_days"`
	ManagerID       string  `json:"manager_id"`
	RecipientID     string  `json:"recipient_id"`
	RecipientRole   string  `json:"recipient_role"`
	CounterpartyID  string  `json:"counterparty_id"`
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejection_reason,omitempty"`
	OrderID         *string `json:"order_id,omitempty"`
	CreatedAt       string  `json:"created_at"`
	UpdatedAt       string  `json:"updated_at,omitempty"`
	AcceptedAt      *string `json:"accepted_at,omitempty"`
	RejectedAt      *string `json:"rejected_at,omitempty"`
}

type customOrderResponse struct {
	CustomOrder customOrderPayload `json:"custom_order"`
	Order       *orderPayload      `json:"order,omitempty"`
}

func (h *CustomOrderHandlers) proposeCustomOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customOrders == nil {
		serviceUnavailable(w, r, "custom_order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	var req proposeCustomOrderRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	customOrder, err := h.customOrders.Propose(ctx, services.ProposeCustomOrderCommand{
		ActorID:        uid,
		Title:          req.Title,
		Description:    req.Description,
		Price:          req.Price,
		DeliveryDays:   req.DeliveryDays,
		RecipientID:    req.RecipientID,
		CounterpartyID: req.CounterpartyID,
	})
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, customOrderResponse{CustomOrder: buildCustomOrderPayload(customOrder)})
}

func (h *CustomOrderHandlers) listCustomOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customOrders == nil {
		serviceUnavailable(w, r, "custom_order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	pager, status, err := listParams(r, customOrderStatusFilters)
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}

	page, err := h.customOrders.List(ctx, services.CustomOrderListFilter{
		ActorID:    uid,
		Status:     status,
		Pagination: pager,
	})
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[customOrderPayload]{
		Items:         mapItems(page.Items, buildCustomOrderPayload),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *CustomOrderHandlers) getCustomOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customOrders == nil {
		serviceUnavailable(w, r, "custom_order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	customOrderID, ok := pathParam(w, r, chi.URLParam(r, "customOrderID"), "custom order id")
	if !ok {
		return
	}

	customOrder, err := h.customOrders.Get(ctx, uid, customOrderID)
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customOrderResponse{CustomOrder: buildCustomOrderPayload(customOrder)})
}

func (h *CustomOrderHandlers) acceptCustomOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customOrders == nil {
		serviceUnavailable(w, r, "custom_order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	customOrderID, ok := pathParam(w, r, chi.URLParam(r, "customOrderID"), "custom order id")
	if !ok {
		return
	}

	acceptance, err := h.customOrders.Accept(ctx, services.DecideCustomOrderCommand{
		ActorID:       uid,
		CustomOrderID: customOrderID,
	})
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}
	order := buildOrderPayload(acceptance.Order)
	writeJSONResponse(w, http.StatusOK, customOrderResponse{
		CustomOrder: buildCustomOrderPayload(acceptance.CustomOrder),
		Order:       &order,
	})
}

func (h *CustomOrderHandlers) rejectCustomOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.customOrders == nil {
		serviceUnavailable(w, r, "custom_order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	customOrderID, ok := pathParam(w, r, chi.URLParam(r, "customOrderID"), "custom order id")
	if !ok {
		return
	}

	var req rejectCustomOrderRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, true); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	customOrder, err := h.customOrders.Reject(ctx, services.DecideCustomOrderCommand{
		ActorID:       uid,
		CustomOrderID: customOrderID,
		Reason:        req.Reason,
	})
	if err != nil {
		customOrderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, customOrderResponse{CustomOrder: buildCustomOrderPayload(customOrder)})
}

func buildCustomOrderPayload(customOrder services.CustomOrder) customOrderPayload {
	return customOrderPayload{
		ID:              customOrder.ID,
		Code:            customOrder.Code,
		Title:           customOrder.Title,
		Description:     customOrder.Description,
		Price:           customOrder.Price,
		DeliveryDays:    customOrder.DeliveryDays,
		ManagerID:       customOrder.ManagerID,
		RecipientID:     customOrder.RecipientID,
		RecipientRole:   string(customOrder.RecipientRole),
		CounterpartyID:  customOrder.CounterpartyID,
		Status:          string(customOrder.Status),
		RejectionReason: cloneStringPointer(customOrder.RejectionReason),
		OrderID:         cloneStringPointer(customOrder.OrderID),
		CreatedAt:       formatTime(customOrder.CreatedAt),
		UpdatedAt:       formatTime(customOrder.UpdatedAt),
		AcceptedAt:      formatTimePointer(customOrder.AcceptedAt),
		RejectedAt:      formatTimePointer(customOrder.RejectedAt),
	}
}
