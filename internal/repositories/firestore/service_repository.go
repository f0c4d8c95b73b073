package firestore

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
)

// ServiceRepository persists seller services with their package tiers embedded.
type ServiceRepository struct {
	base *pfirestore.BaseRepository[serviceDocument]
}

// NewServiceRepository constructs a Firestore-backed service repository.
func NewServiceRepository(provider *pfirestore.Provider) *ServiceRepository {
	return &ServiceRepository{base: pfirestore.NewBaseRepository[serviceDocument](provider, servicesCollection)}
}

// Insert creates a service; an existing ID is a conflict.
func (r *ServiceRepository) Insert(ctx context.Context, service domain.Service) error {
	return r.base.Create(ctx, service.ID, fromDomainService(service))
}

// Update replaces an existing service document.
func (r *ServiceRepository) Update(ctx context.Context, service domain.Service) error {
	if _, err := r.base.Get(ctx, service.ID); err != nil {
		return err
	}
	return r.base.Set(ctx, service.ID, fromDomainService(service))
}

// FindByID loads a service.
func (r *ServiceRepository) FindByID(ctx context.Context, serviceID string) (domain.Service, error) {
	doc, err := r.base.Get(ctx, serviceID)
	if err != nil {
		return domain.Service{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

type packageDocument struct {
	Name         string   `firestore:"name"`
	Price        int64    `firestore:"price"`
	DeliveryDays int      `firestore:"deliveryDays"`
	Features     []string `firestore:"features"`
}

type serviceDocument struct {
	OwnerID     string                     `firestore:"ownerId"`
	Title       string                     `firestore:"title"`
	Description string                     `firestore:"description"`
	Category    string                     `firestore:"category"`
	Packages    map[string]packageDocument `firestore:"packages"`
	IsActive    bool                       `firestore:"isActive"`
	CreatedAt   time.Time                  `firestore:"createdAt"`
	UpdatedAt   time.Time                  `firestore:"updatedAt"`
}

func fromDomainService(service domain.Service) serviceDocument {
	packages := make(map[string]packageDocument, len(service.Packages))
	for key, pkg := range service.Packages {
		packages[key] = packageDocument{
			Name:         pkg.Name,
			Price:        pkg.Price,
			DeliveryDays: pkg.DeliveryDays,
			Features:     append([]string(nil), pkg.Features...),
		}
	}
	return serviceDocument{
		OwnerID:     service.OwnerID,
		Title:       service.Title,
		Description: service.Description,
		Category:    service.Category,
		Packages:    packages,
		IsActive:    service.IsActive,
		CreatedAt:   service.CreatedAt.UTC(),
		UpdatedAt:   service.UpdatedAt.UTC(),
	}
}

func (d serviceDocument) toDomain(id string) domain.Service {
	packages := make(map[string]domain.Package, len(d.Packages))
	for key, pkg := range d.Packages {
		packages[key] = domain.Package{
			Name:         pkg.Name,
			Price:        pkg.Price,
			DeliveryDays: pkg.DeliveryDays,
			Features:     append([]string(nil), pkg.Features...),
		}
	}
	return domain.Service{
		ID:          id,
		OwnerID:     d.OwnerID,
		Title:       d.Title,
		Description: d.Description,
		Category:    d.Category,
		Packages:    packages,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
