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

func TestReviewHandlersCreate(t *testing.T) {
	now := time.Date(2025, 3, 12, 8, 0, 0, 0, time.UTC)
	svc := &stubReviewService{
		createFn: func(_ context.Context, cmd services.CreateReviewCommand) (services.Review, error) {
			if cmd.ActorID != "buyer-1" || cmd.OrderID != "ord_1" || cmd.Rating != 4 {
				t.Fatalf("unexpected command: %#v", cmd)
			}
			return services.Review{ID: cmd.OrderID, OrderID: cmd.OrderID, SellerID: "seller-1", BuyerID: cmd.ActorID, Rating: cmd.Rating, Comment: cmd.Comment, CreatedAt: now}, nil
		},
	}
	router := chi.NewRouter()
	router.Route("/reviews", NewReviewHandlers(nil, svc).Routes)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{"order_id":"ord_1","rating":4,"comment":"great"}`)), "buyer-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp reviewResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Review.ID != "ord_1" || resp.Review.Rating != 4 || resp.Review.CreatedAt != "2025-03-12T08:00:00Z" {
		t.Fatalf("unexpected review payload: %#v", resp.Review)
	}
}

func TestReviewHandlersCreateConflict(t *testing.T) {
	svc := &stubReviewService{
		createFn: func(context.Context, services.CreateReviewCommand) (services.Review, error) {
			return services.Review{}, fmt.Errorf("%w: already reviewed", services.ErrReviewConflict)
		},
	}
	router := chi.NewRouter()
	router.Route("/reviews", NewReviewHandlers(nil, svc).Routes)

	req := withIdentity(httptest.NewRequest(http.MethodPost, "/reviews", strings.NewReader(`{"order_id":"ord_1","rating":5}`)), "buyer-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusConflict {
		t.Fatalf("expected status 409, got %d", rr.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON body: %v", err)
	}
	if body["error"] != "review_conflict" {
		t.Fatalf("expected review_conflict, got %v", body["error"])
	}
}

func TestUserHandlersPublicProfileAndReviews(t *testing.T) {
	users := &stubUserService{
		getFn: func(_ context.Context, userID string) (services.UserProfile, error) {
			switch userID {
			case "seller-1":
				return services.UserProfile{ID: userID, DisplayName: "Aiko", Email: "aiko@example.com", Role: domain.UserRoleSeller, Rating: 4.3, ReviewCount: 4, IsActive: true}, nil
			case "banned-1":
				return services.UserProfile{ID: userID, Role: domain.UserRoleSeller}, nil
			default:
				return services.UserProfile{}, services.ErrUserNotFound
			}
		},
	}
	reviews := &stubReviewService{
		listBySellerFn: func(_ context.Context, sellerID string, pager services.Pagination) (domain.CursorPage[services.Review], error) {
			if pager.PageSize != 2 || pager.PageToken != "" {
				t.Fatalf("unexpected pager %#v", pager)
			}
			return domain.CursorPage[services.Review]{Items: []services.Review{{ID: "ord_1", SellerID: sellerID, Rating: 4}}}, nil
		},
	}
	router := chi.NewRouter()
	router.Route("/users", NewUserHandlers(users, reviews).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/seller-1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp profileResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.Profile.Rating != 4.3 || resp.Profile.ReviewCount != 4 {
		t.Fatalf("unexpected rating: %#v", resp.Profile)
	}
	if resp.Profile.Email != "" {
		t.Fatalf("public profile must not expose email, got %q", resp.Profile.Email)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/banned-1", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected deactivated profile to be hidden, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/users/seller-1/reviews?pageSize=2", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
}

func TestInternalHandlersRecompute(t *testing.T) {
	reviews := &stubReviewService{
		recomputeFn: func(_ context.Context, sellerID string) (services.RatingSummary, error) {
			if sellerID == "ghost" {
				return services.RatingSummary{}, services.ErrReviewNotFound
			}
			return services.RatingSummary{SellerID: sellerID, Rating: 4.5, ReviewCount: 2}, nil
		},
	}
	router := chi.NewRouter()
	router.Route("/internal", NewInternalHandlers(reviews).Routes)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/internal/ratings/seller-1:recompute", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}
	var resp ratingPayload
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if resp.SellerID != "seller-1" || resp.Rating != 4.5 || resp.ReviewCount != 2 {
		t.Fatalf("unexpected summary: %#v", resp)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/internal/ratings/ghost:recompute", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}
