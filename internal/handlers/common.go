package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/platform/pagination"
	"github.com/jamshaid11601/Emergent/internal/services"
)

const (
	defaultListPageSize = 20
	maxListPageSize     = 100
	maxCommandBodySize  = 16 * 1024
)

// serviceErrors maps one workflow's sentinels onto HTTP responses. Codes are prefixed with the
// resource so clients can tell an unknown order apart from an unknown service.
type serviceErrors struct {
	resource     string
	invalidInput error
	notFound     error
	forbidden    error
	invalidState error
	conflict     error
	unavailable  error
}

var (
	orderErrors = serviceErrors{
		resource:     "order",
		invalidInput: services.ErrOrderInvalidInput,
		notFound:     services.ErrOrderNotFound,
		forbidden:    services.ErrOrderForbidden,
		invalidState: services.ErrOrderInvalidState,
		unavailable:  services.ErrOrderUnavailable,
	}
	customOrderErrors = serviceErrors{
		resource:     "custom_order",
		invalidInput: services.ErrCustomOrderInvalidInput,
		notFound:     services.ErrCustomOrderNotFound,
		forbidden:    services.ErrCustomOrderForbidden,
		invalidState: services.ErrCustomOrderInvalidState,
		unavailable:  services.ErrCustomOrderUnavailable,
	}
	reviewErrors = serviceErrors{
		resource:     "review",
		invalidInput: services.ErrReviewInvalidInput,
		notFound:     services.ErrReviewNotFound,
		forbidden:    services.ErrReviewForbidden,
		invalidState: services.ErrReviewInvalidState,
		conflict:     services.ErrReviewConflict,
		unavailable:  services.ErrReviewUnavailable,
	}
	messageErrors = serviceErrors{
		resource:     "message",
		invalidInput: services.ErrMessageInvalidInput,
		notFound:     services.ErrMessageNotFound,
		unavailable:  services.ErrMessageUnavailable,
	}
	catalogErrors = serviceErrors{
		resource:     "service",
		invalidInput: services.ErrCatalogInvalidInput,
		notFound:     services.ErrCatalogNotFound,
		forbidden:    services.ErrCatalogForbidden,
		unavailable:  services.ErrCatalogUnavailable,
	}
	userErrors = serviceErrors{
		resource:     "user",
		invalidInput: services.ErrUserInvalidInput,
		notFound:     services.ErrUserNotFound,
		forbidden:    services.ErrUserForbidden,
		unavailable:  services.ErrUserUnavailable,
	}
)

func (m serviceErrors) write(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		return
	}
	is := func(target error) bool {
		return target != nil && errors.Is(err, target)
	}
	switch {
	case is(m.invalidInput),
		errors.Is(err, pagination.ErrInvalidPageSize),
		errors.Is(err, pagination.ErrInvalidPageToken),
		errors.Is(err, pagination.ErrInvalidFilter):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_request", err.Error(), http.StatusBadRequest))
	case is(m.notFound):
		httpx.WriteError(ctx, w, httpx.NewError(m.resource+"_not_found", m.resource+" not found", http.StatusNotFound))
	case is(m.forbidden):
		httpx.WriteError(ctx, w, httpx.NewError("forbidden", err.Error(), http.StatusForbidden))
	case is(m.invalidState):
		httpx.WriteError(ctx, w, httpx.NewError(m.resource+"_invalid_state", err.Error(), http.StatusConflict))
	case is(m.conflict):
		httpx.WriteError(ctx, w, httpx.NewError(m.resource+"_conflict", err.Error(), http.StatusConflict))
	case is(m.unavailable):
		httpx.WriteError(ctx, w, httpx.NewError(m.resource+"_unavailable", m.resource+" service temporarily unavailable", http.StatusServiceUnavailable))
	default:
		httpx.WriteError(ctx, w, httpx.NewError(m.resource+"_error", "failed to process "+m.resource+" request", http.StatusInternalServerError))
	}
}

// callerID returns the authenticated UID, writing a 401 when the request carries no identity.
func callerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok || identity == nil || strings.TrimSpace(identity.UID) == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return "", false
	}
	return strings.TrimSpace(identity.UID), true
}

func serviceUnavailable(w http.ResponseWriter, r *http.Request, name string) {
	httpx.WriteError(r.Context(), w, httpx.NewError(name+"_service_unavailable", name+" service unavailable", http.StatusServiceUnavailable))
}

func pathParam(w http.ResponseWriter, r *http.Request, value, name string) (string, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		httpx.WriteError(r.Context(), w, httpx.NewError("invalid_request", name+" is required", http.StatusBadRequest))
		return "", false
	}
	return value, true
}

// listParams parses pageSize, pageToken and status from the query string.
func listParams(r *http.Request, allowedStatus []string) (services.Pagination, []string, error) {
	params, err := pagination.FromRequest(r, pagination.Options{
		DefaultPageSize: defaultListPageSize,
		MaxPageSize:     maxListPageSize,
		AllowedStatus:   allowedStatus,
	})
	if err != nil {
		return services.Pagination{}, nil, err
	}
	return services.Pagination{PageSize: params.PageSize, PageToken: params.PageToken}, params.Status, nil
}

type listResponse[T any] struct {
	Items         []T    `json:"items"`
	NextPageToken string `json:"next_page_token,omitempty"`
}

func mapItems[S any, T any](items []S, fn func(S) T) []T {
	out := make([]T, 0, len(items))
	for _, item := range items {
		out = append(out, fn(item))
	}
	return out
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func formatTimePointer(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	value := formatTime(*t)
	return &value
}

func writeJSONResponse(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func cloneStringPointer(value *string) *string {
	if value == nil {
		return nil
	}
	copy := *value
	return &copy
}

func copyStrings(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
