package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	serviceIDPrefix        = "svc_"
	maxServicePackages     = 5
	maxPackageDeliveryDays = 365
	maxPackageFeatures     = 20
)

// CatalogServiceDeps bundles constructor inputs for the catalog service.
type CatalogServiceDeps struct {
	Services    repositories.ServiceRepository
	Actors      ActorResolver
	Clock       func() time.Time
	IDGenerator func() string
}

type catalogService struct {
	services repositories.ServiceRepository
	actors   ActorResolver
	clock    func() time.Time
	newID    func() string
}

var _ CatalogService = (*catalogService)(nil)

// NewCatalogService constructs the catalog service with the supplied dependencies.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Services == nil {
		return nil, errors.New("catalog service: service repository is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("catalog service: actor resolver is required")
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string {
			return strings.ToLower(ulid.Make().String())
		}
	}
	return &catalogService{
		services: deps.Services,
		actors:   deps.Actors,
		clock: func() time.Time {
			return clock().UTC()
		},
		newID: idGen,
	}, nil
}

func (s *catalogService) CreateService(ctx context.Context, cmd UpsertServiceCommand) (Service, error) {
	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Service{}, denied(err, ErrCatalogForbidden, ErrCatalogUnavailable)
	}
	if err := RequireRole(actor, domain.UserRoleSeller); err != nil {
		return Service{}, fmt.Errorf("%w: %v", ErrCatalogForbidden, err)
	}

	now := s.clock()
	service := Service{
		ID:        serviceIDPrefix + s.newID(),
		OwnerID:   actor.ID,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if cmd.IsActive != nil {
		service.IsActive = *cmd.IsActive
	}
	if err := applyServiceFields(&service, cmd); err != nil {
		return Service{}, err
	}
	if err := s.services.Insert(ctx, service); err != nil {
		return Service{}, catalogRepoErrors.mapRepositoryError(err)
	}
	return service, nil
}

// UpdateService replaces the service's fields and packages. Orders keep the price they snapshotted.
func (s *catalogService) UpdateService(ctx context.Context, cmd UpsertServiceCommand) (Service, error) {
	serviceID := strings.TrimSpace(cmd.ServiceID)
	if serviceID == "" {
		return Service{}, fmt.Errorf("%w: service id is required", ErrCatalogInvalidInput)
	}
	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Service{}, denied(err, ErrCatalogForbidden, ErrCatalogUnavailable)
	}
	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return Service{}, catalogRepoErrors.mapRepositoryError(err)
	}
	if service.OwnerID != actor.ID && !actor.IsAdmin() {
		return Service{}, fmt.Errorf("%w: only the owner may update a service", ErrCatalogForbidden)
	}

	if err := applyServiceFields(&service, cmd); err != nil {
		return Service{}, err
	}
	if cmd.IsActive != nil {
		service.IsActive = *cmd.IsActive
	}
	service.UpdatedAt = s.clock()
	if err := s.services.Update(ctx, service); err != nil {
		return Service{}, catalogRepoErrors.mapRepositoryError(err)
	}
	return service, nil
}

func (s *catalogService) GetService(ctx context.Context, serviceID string) (Service, error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return Service{}, fmt.Errorf("%w: service id is required", ErrCatalogInvalidInput)
	}
	service, err := s.services.FindByID(ctx, serviceID)
	if err != nil {
		return Service{}, catalogRepoErrors.mapRepositoryError(err)
	}
	return service, nil
}

func applyServiceFields(service *Service, cmd UpsertServiceCommand) error {
	title := textutil.Sanitize(cmd.Title)
	if title == "" {
		return fmt.Errorf("%w: title is required", ErrCatalogInvalidInput)
	}
	packages, err := normalizePackages(cmd.Packages)
	if err != nil {
		return err
	}
	service.Title = title
	service.Description = textutil.Sanitize(cmd.Description)
	service.Category = textutil.NormalizeKey(cmd.Category)
	service.Packages = packages
	return nil
}

func normalizePackages(input map[string]Package) (map[string]Package, error) {
	if len(input) == 0 {
		return nil, fmt.Errorf("%w: at least one package is required", ErrCatalogInvalidInput)
	}
	if len(input) > maxServicePackages {
		return nil, fmt.Errorf("%w: at most %d packages are allowed", ErrCatalogInvalidInput, maxServicePackages)
	}
	out := make(map[string]Package, len(input))
	for rawKey, pkg := range input {
		key := textutil.NormalizeKey(rawKey)
		if key == "" || key == domain.CustomPackage {
			return nil, fmt.Errorf("%w: invalid package key %q", ErrCatalogInvalidInput, rawKey)
		}
		if _, dup := out[key]; dup {
			return nil, fmt.Errorf("%w: duplicate package key %q", ErrCatalogInvalidInput, key)
		}
		if pkg.Price <= 0 {
			return nil, fmt.Errorf("%w: package %s price must be positive", ErrCatalogInvalidInput, key)
		}
		if pkg.DeliveryDays < 1 || pkg.DeliveryDays > maxPackageDeliveryDays {
			return nil, fmt.Errorf("%w: package %s delivery days must be between 1 and %d", ErrCatalogInvalidInput, key, maxPackageDeliveryDays)
		}
		features := textutil.SanitizeList(pkg.Features)
		if len(features) > maxPackageFeatures {
			return nil, fmt.Errorf("%w: package %s has too many features", ErrCatalogInvalidInput, key)
		}
		name := textutil.Sanitize(pkg.Name)
		if name == "" {
			name = key
		}
		out[key] = Package{Name: name, Price: pkg.Price, DeliveryDays: pkg.DeliveryDays, Features: features}
	}
	return out, nil
}
