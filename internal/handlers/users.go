package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// UserHandlers exposes public seller profiles and their reviews.
type UserHandlers struct {
	users   services.UserService
	reviews services.ReviewService
}

// NewUserHandlers constructs a new UserHandlers instance.
func NewUserHandlers(users services.UserService, reviews services.ReviewService) *UserHandlers {
	return &UserHandlers{
		users:   users,
		reviews: reviews,
	}
}

// Routes registers the public /users endpoints.
func (h *UserHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{userID}", h.getUser)
	r.Get("/{userID}/reviews", h.listUserReviews)
}

func (h *UserHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		serviceUnavailable(w, r, "user")
		return
	}
	userID, ok := pathParam(w, r, chi.URLParam(r, "userID"), "user id")
	if !ok {
		return
	}

	profile, err := h.users.GetProfile(ctx, userID)
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}
	if !profile.IsActive {
		userErrors.write(ctx, w, services.ErrUserNotFound)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{Profile: buildProfilePayload(profile, false)})
}

func (h *UserHandlers) listUserReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(w, r, "review")
		return
	}
	userID, ok := pathParam(w, r, chi.URLParam(r, "userID"), "user id")
	if !ok {
		return
	}

	pager, _, err := listParams(r, nil)
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}

	page, err := h.reviews.ListBySeller(ctx, userID, pager)
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[reviewPayload]{
		Items:         mapItems(page.Items, buildReviewPayload),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

// writeUserDirectory serves one page of the user directory. Private fields are only included for
// admin listings.
func writeUserDirectory(w http.ResponseWriter, r *http.Request, users services.UserService, role domain.UserRole, includeInactive, private bool) {
	ctx := r.Context()
	if users == nil {
		serviceUnavailable(w, r, "user")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	pager, _, err := listParams(r, nil)
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}

	page, err := users.ListByRole(ctx, services.UserListFilter{
		ActorID:         uid,
		Role:            role,
		IncludeInactive: includeInactive,
		Pagination:      pager,
	})
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[profilePayload]{
		Items: mapItems(page.Items, func(profile services.UserProfile) profilePayload {
			return buildProfilePayload(profile, private)
		}),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}
