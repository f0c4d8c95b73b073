package handlers

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

const (
	defaultMessageRateLimit  = 30
	defaultMessageRateWindow = time.Minute
)

var orderStatusFilters = []string{
	string(domain.OrderStatusPending),
	string(domain.OrderStatusInProgress),
	string(domain.OrderStatusDelivered),
	string(domain.OrderStatusCompleted),
	string(domain.OrderStatusCancelled),
}

// OrderHandlers exposes the order lifecycle and the order conversation to authenticated parties.
type OrderHandlers struct {
	authn       *auth.Authenticator
	orders      services.OrderService
	messages    services.MessageService
	sendLimiter rateLimiter
}

// OrderHandlersOption customises OrderHandlers.
type OrderHandlersOption func(*OrderHandlers)

// WithOrderMessages wires the conversation endpoints.
func WithOrderMessages(messages services.MessageService) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.messages = messages
	}
}

// WithMessageRateLimit bounds how many messages one user may post per window.
func WithMessageRateLimit(limit int, window time.Duration, clock func() time.Time) OrderHandlersOption {
	return func(h *OrderHandlers) {
		h.sendLimiter = newSimpleRateLimiter(limit, window, clock)
	}
}

// NewOrderHandlers constructs a new OrderHandlers instance.
func NewOrderHandlers(authn *auth.Authenticator, orders services.OrderService, opts ...OrderHandlersOption) *OrderHandlers {
	h := &OrderHandlers{
		authn:       authn,
		orders:      orders,
		sendLimiter: newSimpleRateLimiter(defaultMessageRateLimit, defaultMessageRateWindow, time.Now),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// Routes registers the /orders endpoints.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createOrder)
	r.Get("/", h.listOrders)
	r.Get("/{orderID}", h.getOrder)
	r.Put("/{orderID}/deliver", h.deliverOrder)
	r.Put("/{orderID}/accept", h.acceptOrder)
	r.Put("/{orderID}/revision", h.requestRevision)
	r.Put("/{orderID}/cancel", h.cancelOrder)
	r.Post("/{orderID}/attachments", h.attachmentUploadURL)
	r.Get("/{orderID}/messages", h.listMessages)
	r.Post("/{orderID}/messages", h.sendMessage)
}

type createOrderRequest struct {
	ServiceID    string `json:"service_id"`
	PackageKey   string `json:"package"`
	Requirements string `json:"requirements"`
}

type deliverOrderRequest struct {
	DeliveryNote  string   `json:"delivery_note"`
	DeliveryFiles []string `json:"delivery_files"`
}

type revisionRequest struct {
	Note string `json:"note"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason"`
}

type attachmentRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
}

type sendMessageRequest struct {
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
}

type orderPayload struct {
	ID               string   `json:"id"`
	Code             string   `json:"code"`
	ServiceID        string   `json:"service_id,omitempty"`
	BuyerID          string   `json:"buyer_id"`
	SellerID         string   `json:"seller_id"`
	Package          string   `json:"package"`
	Price            int64    `json:"price"`
	Status           string   `json:"status"`
	Requirements     string   `json:"requirements,omitempty"`
	DeliveryNote     *string  `json:"delivery_note,omitempty"`
	DeliveryFiles    []string `json:"delivery_files"`
	Revisions        int      `json:"revisions"`
	MaxRevisions     int      `json:"max_revisions"`
	PaymentStatus    string   `json:"payment_status"`
	IsCustomOrder    bool     `json:"is_custom_order"`
	CustomOrderID    *string  `json:"custom_order_id,omitempty"`
	ManagerID        *string  `json:"manager_id,omitempty"`
	CustomOrderTitle string   `json:"custom_order_title,omitempty"`
	CancelReason     *string  `json:"cancel_reason,omitempty"`
	CreatedAt        string   `json:"created_at"`
	UpdatedAt        string   `json:"updated_at,omitempty"`
	DeliveryDueAt    string   `json:"delivery_due_at,omitempty"`
	DeliveredAt      *string  `json:"delivered_at,omitempty"`
	CompletedAt      *string  `json:"completed_at,omitempty"`
	CancelledAt      *string  `json:"cancelled_at,omitempty"`
}

type orderResponse struct {
	Order orderPayload `json:"order"`
}

type attachmentResponse struct {
	UploadURL string            `json:"upload_url"`
	Method    string            `json:"method"`
	ObjectRef string            `json:"object_ref"`
	ExpiresAt string            `json:"expires_at,omitempty"`
	Headers   map[string]string `json:"headers,omitempty"`
}

type messagePayload struct {
	ID          string   `json:"id"`
	OrderID     string   `json:"order_id"`
	SenderID    string   `json:"sender_id"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments"`
	CreatedAt   string   `json:"created_at"`
}

func (h *OrderHandlers) createOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	order, err := h.orders.Create(ctx, services.CreateOrderCommand{
		ActorID:      uid,
		ServiceID:    req.ServiceID,
		PackageKey:   req.PackageKey,
		Requirements: req.Requirements,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	pager, status, err := listParams(r, orderStatusFilters)
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}

	query := r.URL.Query()
	filter := services.OrderListFilter{
		ActorID:    uid,
		Role:       services.OrderListRole(strings.ToLower(strings.TrimSpace(query.Get("role")))),
		Status:     status,
		Pagination: pager,
	}

	page, err := h.orders.List(ctx, filter)
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[orderPayload]{
		Items:         mapItems(page.Items, buildOrderPayload),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	order, err := h.orders.Get(ctx, uid, orderID)
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) deliverOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	var req deliverOrderRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	order, err := h.orders.Deliver(ctx, services.DeliverOrderCommand{
		ActorID:       uid,
		OrderID:       orderID,
		DeliveryNote:  req.DeliveryNote,
		DeliveryFiles: req.DeliveryFiles,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) acceptOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	order, err := h.orders.Accept(ctx, services.AcceptOrderCommand{ActorID: uid, OrderID: orderID})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) requestRevision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	var req revisionRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, true); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	order, err := h.orders.RequestRevision(ctx, services.RequestRevisionCommand{
		ActorID: uid,
		OrderID: orderID,
		Note:    req.Note,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) cancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	var req cancelOrderRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, true); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	order, err := h.orders.Cancel(ctx, services.CancelOrderCommand{
		ActorID: uid,
		OrderID: orderID,
		Reason:  req.Reason,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, orderResponse{Order: buildOrderPayload(order)})
}

func (h *OrderHandlers) attachmentUploadURL(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		serviceUnavailable(w, r, "order")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	var req attachmentRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	signed, err := h.orders.AttachmentUploadURL(ctx, services.AttachmentUploadCommand{
		ActorID:     uid,
		OrderID:     orderID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, attachmentResponse{
		UploadURL: signed.URL,
		Method:    signed.Method,
		ObjectRef: signed.ObjectRef,
		ExpiresAt: formatTime(signed.ExpiresAt),
		Headers:   signed.Headers,
	})
}

func (h *OrderHandlers) listMessages(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.messages == nil {
		serviceUnavailable(w, r, "message")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}

	pager, _, err := listParams(r, nil)
	if err != nil {
		messageErrors.write(ctx, w, err)
		return
	}

	page, err := h.messages.List(ctx, uid, orderID, pager)
	if err != nil {
		messageErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[messagePayload]{
		Items:         mapItems(page.Items, buildMessagePayload),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (h *OrderHandlers) sendMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.messages == nil {
		serviceUnavailable(w, r, "message")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	orderID, ok := pathParam(w, r, chi.URLParam(r, "orderID"), "order id")
	if !ok {
		return
	}
	if h.sendLimiter != nil {
		if allowed, retryAfter := h.sendLimiter.Allow(uid); !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many messages, retry later", http.StatusTooManyRequests))
			return
		}
	}

	var req sendMessageRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize*2, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	message, err := h.messages.Send(ctx, services.SendMessageCommand{
		ActorID:     uid,
		OrderID:     orderID,
		Body:        req.Body,
		Attachments: req.Attachments,
	})
	if err != nil {
		messageErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, buildMessagePayload(message))
}

func buildOrderPayload(order services.Order) orderPayload {
	return orderPayload{
		ID:               order.ID,
		Code:             order.Code,
		ServiceID:        order.ServiceID,
		BuyerID:          order.BuyerID,
		SellerID:         order.SellerID,
		Package:          order.Package,
		Price:            order.Price,
		Status:           string(order.Status),
		Requirements:     order.Requirements,
		DeliveryNote:     cloneStringPointer(order.DeliveryNote),
		DeliveryFiles:    copyStrings(order.DeliveryFiles),
		Revisions:        order.Revisions,
		MaxRevisions:     order.MaxRevisions,
		PaymentStatus:    string(order.PaymentStatus),
		IsCustomOrder:    order.IsCustomOrder,
		CustomOrderID:    cloneStringPointer(order.CustomOrderID),
		ManagerID:        cloneStringPointer(order.ManagerID),
		CustomOrderTitle: order.CustomOrderTitle,
		CancelReason:     cloneStringPointer(order.CancelReason),
		CreatedAt:        formatTime(order.CreatedAt),
		UpdatedAt:        formatTime(order.UpdatedAt),
		DeliveryDueAt:    formatTime(order.DeliveryDueAt),
		DeliveredAt:      formatTimePointer(order.DeliveredAt),
		CompletedAt:      formatTimePointer(order.CompletedAt),
		CancelledAt:      formatTimePointer(order.CancelledAt),
	}
}

func buildMessagePayload(message services.Message) messagePayload {
	return messagePayload{
		ID:          message.ID,
		OrderID:     message.OrderID,
		SenderID:    message.SenderID,
		Body:        message.Body,
		Attachments: copyStrings(message.Attachments),
		CreatedAt:   formatTime(message.CreatedAt),
	}
}
