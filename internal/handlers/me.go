package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// MeHandlers serves the caller's own profile.
type MeHandlers struct {
	authn *auth.Authenticator
	users services.UserService
}

// NewMeHandlers constructs a new MeHandlers instance.
func NewMeHandlers(authn *auth.Authenticator, users services.UserService) *MeHandlers {
	return &MeHandlers{
		authn: authn,
		users: users,
	}
}

// Routes registers the /me endpoints.
func (h *MeHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Get("/", h.getProfile)
}

type profilePayload struct {
	ID          string  `json:"id"`
	DisplayName string  `json:"display_name"`
	Email       string  `json:"email,omitempty"`
	Role        string  `json:"role"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
	IsActive    bool    `json:"is_active"`
	CreatedAt   string  `json:"created_at,omitempty"`
	UpdatedAt   string  `json:"updated_at,omitempty"`
}

type profileResponse struct {
	Profile profilePayload `json:"profile"`
}

// getProfile provisions the profile on first sign-in using the token's role hint.
func (h *MeHandlers) getProfile(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.users == nil {
		serviceUnavailable(w, r, "user")
		return
	}
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok || identity == nil || identity.UID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "authentication required", http.StatusUnauthorized))
		return
	}

	profile, err := h.users.GetOrProvision(ctx, services.ProvisionUserCommand{
		UserID:      identity.UID,
		Email:       identity.Email,
		DisplayName: identity.DisplayName,
		SignupRole:  identity.SignupRole(),
	})
	if err != nil {
		userErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, profileResponse{Profile: buildProfilePayload(profile, true)})
}

func buildProfilePayload(profile services.UserProfile, private bool) profilePayload {
	payload := profilePayload{
		ID:          profile.ID,
		DisplayName: profile.DisplayName,
		Role:        string(profile.Role),
		Rating:      profile.Rating,
		ReviewCount: profile.ReviewCount,
		IsActive:    profile.IsActive,
	}
	if private {
		payload.Email = profile.Email
		payload.CreatedAt = formatTime(profile.CreatedAt)
		payload.UpdatedAt = formatTime(profile.UpdatedAt)
	}
	return payload
}
