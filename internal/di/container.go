package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jamshaid11601/Emergent/internal/payments"
	"github.com/jamshaid11601/Emergent/internal/platform/config"
	"github.com/jamshaid11601/Emergent/internal/repositories"
	"github.com/jamshaid11601/Emergent/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Actors       services.ActorResolver
	Codes        services.CodeService
	Catalog      services.CatalogService
	Orders       services.OrderService
	CustomOrders services.CustomOrderService
	Reviews      services.ReviewService
	Messages     services.MessageService
	Users        services.UserService
	System       services.SystemService
}

// Infrastructure carries the optional collaborators that sit outside the repository registry.
// Nil fields disable the corresponding side effect.
type Infrastructure struct {
	Payments          payments.Provider
	OrderEvents       services.OrderEventPublisher
	CustomOrderEvents services.CustomOrderEventPublisher
	Metrics           services.WorkflowRecorder
	Attachments       services.AttachmentSigner
	Identity          services.IdentityAdmin
	Health            repositories.HealthRepository
	Build             services.BuildInfo
	Clock             func() time.Time
	Logger            func(ctx context.Context, event string, fields map[string]any)
}

// Container wires repositories, services, and background infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
}

// NewContainer constructs the runtime dependencies. Production wiring provides the Firestore
// registry, while tests and local runs can supply the in-memory one.
func NewContainer(ctx context.Context, cfg config.Config, reg repositories.Registry, infra Infrastructure) (*Container, error) {
	if reg == nil {
		return nil, errors.New("repositories registry is required")
	}

	svc, err := buildServices(ctx, reg, cfg, infra)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: reg,
		Services:     svc,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(_ context.Context, reg repositories.Registry, cfg config.Config, infra Infrastructure) (Services, error) {
	var svc Services

	clock := infra.Clock
	if clock == nil {
		clock = time.Now
	}
	provider := infra.Payments
	if provider == nil {
		provider = payments.NewMockProvider(payments.WithMockClock(clock))
	}

	actors, err := services.NewAuthorizer(reg.Users())
	if err != nil {
		return Services{}, fmt.Errorf("build authorizer: %w", err)
	}
	svc.Actors = actors

	codes, err := services.NewCodeService(services.CodeServiceDeps{
		Repository: reg.Counters(),
	})
	if err != nil {
		return Services{}, fmt.Errorf("build code service: %w", err)
	}
	svc.Codes = codes

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Services: reg.Services(),
		Actors:   actors,
		Clock:    clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Orders:       reg.Orders(),
		Services:     reg.Services(),
		Messages:     reg.Messages(),
		Codes:        codes,
		Actors:       actors,
		Payments:     provider,
		Attachments:  infra.Attachments,
		Events:       infra.OrderEvents,
		Metrics:      infra.Metrics,
		MaxRevisions: cfg.Orders.MaxRevisions,
		Clock:        clock,
		Logger:       infra.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	customOrderSvc, err := services.NewCustomOrderService(services.CustomOrderServiceDeps{
		CustomOrders:        reg.CustomOrders(),
		Users:               reg.Users(),
		Codes:               codes,
		Actors:              actors,
		Payments:            provider,
		Events:              infra.CustomOrderEvents,
		OrderEvents:         infra.OrderEvents,
		Metrics:             infra.Metrics,
		DefaultDeliveryDays: cfg.Orders.CustomDeliveryDays,
		MaxRevisions:        cfg.Orders.MaxRevisions,
		Clock:               clock,
		Logger:              infra.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build custom order service: %w", err)
	}
	svc.CustomOrders = customOrderSvc

	reviewSvc, err := services.NewReviewService(services.ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Orders:  reg.Orders(),
		Users:   reg.Users(),
		Actors:  actors,
		Clock:   clock,
		Logger:  infra.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build review service: %w", err)
	}
	svc.Reviews = reviewSvc

	messageSvc, err := services.NewMessageService(services.MessageServiceDeps{
		Messages: reg.Messages(),
		Orders:   reg.Orders(),
		Actors:   actors,
		Clock:    clock,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build message service: %w", err)
	}
	svc.Messages = messageSvc

	userSvc, err := services.NewUserService(services.UserServiceDeps{
		Users:    reg.Users(),
		Actors:   actors,
		Identity: infra.Identity,
		Clock:    clock,
		Logger:   infra.Logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build user service: %w", err)
	}
	svc.Users = userSvc

	if infra.Health != nil {
		build := infra.Build
		if build.Environment == "" {
			build.Environment = cfg.Security.Environment
		}
		systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
			HealthRepository: infra.Health,
			Clock:            clock,
			Build:            build,
		})
		if err != nil {
			return Services{}, fmt.Errorf("build system service: %w", err)
		}
		svc.System = systemSvc
	}

	return svc, nil
}
