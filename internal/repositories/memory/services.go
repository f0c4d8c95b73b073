package memory

import (
	"context"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
)

type serviceRepository struct{ r *Registry }

func (s *serviceRepository) Insert(_ context.Context, service domain.Service) error {
	if err := requireID("services.insert", service.ID); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.services[service.ID]; ok {
		return conflict("services.insert", service.ID)
	}
	s.r.services[service.ID] = cloneService(service)
	return nil
}

func (s *serviceRepository) Update(_ context.Context, service domain.Service) error {
	if err := requireID("services.update", service.ID); err != nil {
		return err
	}
	s.r.mu.Lock()
	defer s.r.mu.Unlock()
	if _, ok := s.r.services[service.ID]; !ok {
		return notFound("services.update", service.ID)
	}
	s.r.services[service.ID] = cloneService(service)
	return nil
}

func (s *serviceRepository) FindByID(_ context.Context, serviceID string) (domain.Service, error) {
	if err := requireID("services.get", serviceID); err != nil {
		return domain.Service{}, err
	}
	s.r.mu.RLock()
	defer s.r.mu.RUnlock()
	service, ok := s.r.services[serviceID]
	if !ok {
		return domain.Service{}, notFound("services.get", serviceID)
	}
	return cloneService(service), nil
}

func cloneService(service domain.Service) domain.Service {
	if service.Packages != nil {
		packages := make(map[string]domain.Package, len(service.Packages))
		for key, pkg := range service.Packages {
			pkg.Features = cloneStrings(pkg.Features)
			packages[key] = pkg
		}
		service.Packages = packages
	}
	return service
}
