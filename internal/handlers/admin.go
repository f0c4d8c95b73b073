package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// AdminHandlers exposes user supervision endpoints. The admin role is enforced by the service
// against the stored profile.
type AdminHandlers struct {
	authn  *auth.Authenticator
	users  services.UserService
	orders services.OrderService
}

// NewAdminHandlers constructs a new AdminHandlers instance.
func NewAdminHandlers(authn *auth.Authenticator, users services.UserService, orders services.OrderService) *AdminHandlers {
	return &AdminHandlers{
		authn:  authn,
		users:  users,
		orders: orders,
	}
}

// Routes registers the /admin endpoints.
func (h *AdminHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/users", h.listUsers)
	r.Put("/users/{userID}/role", h.setRole)
	r.Put("/users/{userID}/ban", h.banUser)
	r.Get("/orders", h.listAllOrders)
}

func (h *AdminHandlers) listUsers(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	includeInactive := false
	if raw := strings.TrimSpace(query.Get("includeInactive")); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", "includeInactive must be a boolean", http.StatusBadRequest))
			return
		}
		includeInactive = parsed
	}
	writeUserDirectory(w, r, h.users, domain.UserRole(query.Get("role")), includeInactive, true)
}

type setRoleRequest struct {
	Role string `json:"role"`
}

func (h *AdminHandlers) setRole(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		serviceUnavailable(w, r, "user")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := pathParam(w, r, chi.URLParam(r, "userID"), "user id")
	if !ok {
		return
	}

	var req setRoleRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	profile, err := h.users.SetRole(ctx, services.SetUserRoleCommand{
		ActorID: uid,
		UserID:  userID,
		Role:    domain.UserRole(req.Role),
	})
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{Profile: buildProfilePayload(profile, true)})
}

func (h *AdminHandlers) banUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		serviceUnavailable(w, r, "user")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	userID, ok := pathParam(w, r, chi.URLParam(r, "userID"), "user id")
	if !ok {
		return
	}

	profile, err := h.users.Ban(ctx, services.BanUserCommand{ActorID: uid, UserID: userID})
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{Profile: buildProfilePayload(profile, true)})
}

func (h *AdminHandlers) listAllOrders(w http.ResponseWriter, r *http.Request) {
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

	page, err := h.orders.List(ctx, services.OrderListFilter{
		ActorID:    uid,
		All:        true,
		Status:     status,
		Pagination: pager,
	})
	if err != nil {
		orderErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[orderPayload]{
		Items:         mapItems(page.Items, buildOrderPayload),
		NextPageToken: page.NextPageToken,
	})
}
