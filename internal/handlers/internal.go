package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamshaid11601/Emergent/internal/services"
)

// InternalHandlers serves maintenance endpoints called by schedulers and operators. Callers are
// authenticated by the OIDC middleware mounted on the /internal group.
type InternalHandlers struct {
	reviews services.ReviewService
}

// NewInternalHandlers constructs a new InternalHandlers instance.
func NewInternalHandlers(reviews services.ReviewService) *InternalHandlers {
	return &InternalHandlers{reviews: reviews}
}

// Routes registers the /internal endpoints.
func (h *InternalHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/ratings/{sellerID}:recompute", h.recomputeRating)
}

type ratingPayload struct {
	SellerID    string  `json:"seller_id"`
	Rating      float64 `json:"rating"`
	ReviewCount int     `json:"review_count"`
}

func (h *InternalHandlers) recomputeRating(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(w, r, "review")
		return
	}
	sellerID, ok := pathParam(w, r, chi.URLParam(r, "sellerID"), "seller id")
	if !ok {
		return
	}

	summary, err := h.reviews.Recompute(ctx, sellerID)
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, ratingPayload{
		SellerID:    summary.SellerID,
		Rating:      summary.Rating,
		ReviewCount: summary.ReviewCount,
	})
}
