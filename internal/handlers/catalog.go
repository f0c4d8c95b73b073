package handlers

import (
	"net/http"
	"sort"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/jamshaid11601/Emergent/internal/platform/auth"
	"github.com/jamshaid11601/Emergent/internal/platform/httpx"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// CatalogHandlers exposes seller services. Reads are public; writes require a bearer token.
type CatalogHandlers struct {
	authn   *auth.Authenticator
	catalog services.CatalogService
	reviews services.ReviewService
}

// NewCatalogHandlers constructs a new CatalogHandlers instance. reviews may be nil, in which case
// the service review listing reports unavailable.
func NewCatalogHandlers(authn *auth.Authenticator, catalog services.CatalogService, reviews services.ReviewService) *CatalogHandlers {
	return &CatalogHandlers{
		authn:   authn,
		catalog: catalog,
		reviews: reviews,
	}
}

// Routes registers the /services endpoints.
func (h *CatalogHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Get("/{serviceID}", h.getService)
	r.Get("/{serviceID}/reviews", h.listServiceReviews)
	r.Group(func(authed chi.Router) {
		if h.authn != nil {
			authed.Use(h.authn.RequireFirebaseAuth())
		}
		authed.Post("/", h.createService)
		authed.Put("/{serviceID}", h.updateService)
	})
}

type packageRequest struct {
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	DeliveryDays int      `json:"delivery_days"`
	Features     []string `json:"features"`
}

type upsertServiceRequest struct {
	Title       string                    `json:"title"`
	Description string                    `json:"description"`
	Category    string                    `json:"category"`
	Packages    map[string]packageRequest `json:"packages"`
	IsActive    *bool                     `json:"is_active,omitempty"`
}

type packagePayload struct {
	Key          string   `json:"key"`
	Name         string   `json:"name"`
	Price        int64    `json:"price"`
	DeliveryDays int      `json:"delivery_days"`
	Features     []string `json:"features"`
}

type servicePayload struct {
	ID          string           `json:"id"`
	OwnerID     string           `json:"owner_id"`
	Title       string           `json:"title"`
	Description string           `json:"description,omitempty"`
	Category    string           `json:"category,omitempty"`
	Packages    []packagePayload `json:"packages"`
	IsActive    bool             `json:"is_active"`
	CreatedAt   string           `json:"created_at"`
	UpdatedAt   string           `json:"updated_at,omitempty"`
}

type serviceResponse struct {
	Service servicePayload `json:"service"`
}

func (h *CatalogHandlers) createService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(w, r, "catalog")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}

	var req upsertServiceRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize*4, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	service, err := h.catalog.CreateService(ctx, req.command(uid, ""))
	if err != nil {
		catalogErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusCreated, serviceResponse{Service: buildServicePayload(service)})
}

func (h *CatalogHandlers) updateService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(w, r, "catalog")
		return
	}
	uid, ok := callerID(w, r)
	if !ok {
		return
	}
	serviceID, ok := pathParam(w, r, chi.URLParam(r, "serviceID"), "service id")
	if !ok {
		return
	}

	var req upsertServiceRequest
	if err := httpx.DecodeJSON(r, &req, maxCommandBodySize*4, false); err != nil {
		httpx.WriteBodyError(w, r, err)
		return
	}

	service, err := h.catalog.UpdateService(ctx, req.command(uid, serviceID))
	if err != nil {
		catalogErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, serviceResponse{Service: buildServicePayload(service)})
}

func (h *CatalogHandlers) getService(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.catalog == nil {
		serviceUnavailable(w, r, "catalog")
		return
	}
	serviceID, ok := pathParam(w, r, chi.URLParam(r, "serviceID"), "service id")
	if !ok {
		return
	}

	service, err := h.catalog.GetService(ctx, serviceID)
	if err != nil {
		catalogErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, serviceResponse{Service: buildServicePayload(service)})
}

func (h *CatalogHandlers) listServiceReviews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.reviews == nil {
		serviceUnavailable(w, r, "review")
		return
	}
	serviceID, ok := pathParam(w, r, chi.URLParam(r, "serviceID"), "service id")
	if !ok {
		return
	}

	pager, _, err := listParams(r, nil)
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}

	page, err := h.reviews.ListByService(ctx, serviceID, pager)
	if err != nil {
		reviewErrors.write(ctx, w, err)
		return
	}
	writeJSONResponse(w, http.StatusOK, listResponse[reviewPayload]{
		Items:         mapItems(page.Items, buildReviewPayload),
		NextPageToken: strings.TrimSpace(page.NextPageToken),
	})
}

func (req upsertServiceRequest) command(actorID, serviceID string) services.UpsertServiceCommand {
	var packages map[string]services.Package
	if req.Packages != nil {
		packages = make(map[string]services.Package, len(req.Packages))
		for key, pkg := range req.Packages {
			packages[key] = services.Package{
				Name:         pkg.Name,
				Price:        pkg.Price,
				DeliveryDays: pkg.DeliveryDays,
				Features:     pkg.Features,
			}
		}
	}
	return services.UpsertServiceCommand{
		ActorID:     actorID,
		ServiceID:   serviceID,
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Packages:    packages,
		IsActive:    req.IsActive,
	}
}

// buildServicePayload lists packages by ascending price so clients render tiers in a stable order.
func buildServicePayload(service services.Service) servicePayload {
	packages := make([]packagePayload, 0, len(service.Packages))
	for key, pkg := range service.Packages {
		packages = append(packages, packagePayload{
			Key:          key,
			Name:         pkg.Name,
			Price:        pkg.Price,
			DeliveryDays: pkg.DeliveryDays,
			Features:     copyStrings(pkg.Features),
		})
	}
	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Price != packages[j].Price {
			return packages[i].Price < packages[j].Price
		}
		return packages[i].Key < packages[j].Key
	})
	return servicePayload{
		ID:          service.ID,
		OwnerID:     service.OwnerID,
		Title:       service.Title,
		Description: service.Description,
		Category:    service.Category,
		Packages:    packages,
		IsActive:    service.IsActive,
		CreatedAt:   formatTime(service.CreatedAt),
		UpdatedAt:   formatTime(service.UpdatedAt),
	}
}
