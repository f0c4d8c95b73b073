package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/services"
)

func newCatalogRouter(h *CatalogHandlers) chi.Router {
	router := chi.NewRouter()
	router.Route("/services", h.Routes)
	return router
}

func TestCatalogHandlersCreateService(t *testing.T) {
	var captured services.UpsertServiceCommand
	svc := &stubCatalogService{
		createFn: func(_ context.Context, cmd services.UpsertServiceCommand) (services.Service, error) {
			captured = cmd
			return services.Service{
				ID:       "svc_1",
				OwnerID:  cmd.ActorID,
				Title:    cmd.Title,
				Packages: cmd.Packages,
				IsActive: true,
			}, nil
		},
	}
	router := newCatalogRouter(NewCatalogHandlers(nil, svc, nil))

	body := `{"title":"Instagram shoutout","category":"social","packages":{"standard":{"price":12000,"delivery_days":5},"basic":{"price":5000,"delivery_days":2,"features":["1 story"]}}}`
	req := withIdentity(httptest.NewRequest(http.MethodPost, "/services", strings.NewReader(body)), "seller-1")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	if captured.ActorID != "seller-1" || captured.ServiceID != "" || len(captured.Packages) != 2 {
		t.Fatalf("unexpected command: %#v", captured)
	}
	if captured.Packages["basic"].Price != 5000 || captured.Packages["basic"].DeliveryDays != 2 {
		t.Fatalf("unexpected basic package: %#v", captured.Packages["basic"])
	}

	var resp serviceResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Service.Packages) != 2 || resp.Service.Packages[0].Key != "basic" || resp.Service.Packages[1].Key != "standard" {
		t.Fatalf("expected packages ordered by price, got %#v", resp.Service.Packages)
	}
}

func TestCatalogHandlersGetIsPublic(t *testing.T) {
	svc := &stubCatalogService{
		getFn: func(_ context.Context, serviceID string) (services.Service, error) {
			if serviceID != "svc_1" {
				return services.Service{}, services.ErrCatalogNotFound
			}
			return services.Service{ID: serviceID, OwnerID: "seller-1", Packages: map[string]domain.Package{}}, nil
		},
	}
	router := newCatalogRouter(NewCatalogHandlers(nil, svc, nil))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/services/svc_1", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/services/svc_404", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rr.Code)
	}
}

func TestCatalogHandlersUpdateRequiresIdentity(t *testing.T) {
	router := newCatalogRouter(NewCatalogHandlers(nil, &stubCatalogService{}, nil))

	req := httptest.NewRequest(http.MethodPut, "/services/svc_1", strings.NewReader(`{"title":"x"}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", rr.Code)
	}
}

func TestCatalogHandlersUpdateForbidden(t *testing.T) {
	svc := &stubCatalogService{
		updateFn: func(_ context.Context, cmd services.UpsertServiceCommand) (services.Service, error) {
			if cmd.ServiceID != "svc_1" {
				t.Fatalf("expected service id from path, got %q", cmd.ServiceID)
			}
			return services.Service{}, services.ErrCatalogForbidden
		},
	}
	router := newCatalogRouter(NewCatalogHandlers(nil, svc, nil))

	req := withIdentity(httptest.NewRequest(http.MethodPut, "/services/svc_1", strings.NewReader(`{"title":"x"}`)), "seller-2")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected status 403, got %d", rr.Code)
	}
}

func TestCatalogHandlersServiceReviews(t *testing.T) {
	reviews := &stubReviewService{
		listByServiceFn: func(_ context.Context, serviceID string, pager services.Pagination) (domain.CursorPage[services.Review], error) {
			if serviceID != "svc_1" || pager.PageToken != "" {
				t.Fatalf("unexpected call %s %#v", serviceID, pager)
			}
			return domain.CursorPage[services.Review]{Items: []services.Review{{ID: "ord_1", OrderID: "ord_1", Rating: 5}}}, nil
		},
	}
	router := newCatalogRouter(NewCatalogHandlers(nil, &stubCatalogService{}, reviews))

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/services/svc_1/reviews", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	var resp listResponse[reviewPayload]
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to parse response: %v", err)
	}
	if len(resp.Items) != 1 || resp.Items[0].Rating != 5 {
		t.Fatalf("unexpected reviews: %#v", resp.Items)
	}
}
