package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// ReviewHandlers accepts buyer reviews of completed orders.
type ReviewHandlers struct {
	authn   *auth.Authenticator
	reviews services.ReviewService
}

// NewReviewHandlers constructs a new ReviewHandlers instance.
func NewReviewHandlers(authn *auth.Authenticator, reviews services.ReviewService) *ReviewHandlers {
	return &ReviewHandlers{
		authn:   authn,
		reviews: reviews,
	}
}

// Routes registers the /reviews endpoints.
func (h *ReviewHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	if h.authn != nil {
		r.Use(h.authn.RequireFirebaseAuth())
	}
	r.Post("/", h.createReview)
}

type createReviewRequest struct {
	OrderID string `json:"order_id"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

type reviewPayload struct {
	ID        string `json:"id"`
	OrderID   string `json:"order_id"`
	ServiceID string `json:"service_id,omitempty"`
	SellerID  string `json:"seller_id"`
	BuyerID   string `json:"buyer_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

type reviewResponse struct {
	Review reviewPayload `json:"review"`
}

func (h *ReviewHandlers) createReview(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(w, r, "review")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	var req createReviewRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	review, err := h.reviews.Create(ctx, services.CreateReviewCommand{
		ActorID: uid,
		OrderID: req.OrderID,
		Rating:  req.Rating,
		Comment: req.Comment,
	})
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, reviewResponse{Review: buildReviewPayload(review)})
}

func buildReviewPayload(review services.Review) reviewPayload {
	return reviewPayload{
		ID:        review.ID,
		OrderID:   review.OrderID,
		ServiceID: review.ServiceID,
		SellerID:  review.SellerID,
		BuyerID:   review.BuyerID,
		Rating:    review.Rating,
		Comment:   review.Comment,
		CreatedAt: formatTime(review.CreatedAt),
	}
}
