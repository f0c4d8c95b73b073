package di

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/config"
	"github.com/jamshaid11601/Emergent/internal/repositories"
	"github.com/jamshaid11601/Emergent/internal/repositories/memory"
	"github.com/jamshaid11601/Emergent/internal/services"
)

func TestNewContainerRequiresRegistry(t *testing.T) {
	_, err := NewContainer(context.Background(), config.Config{}, nil, Infrastructure{})
	require.Error(t, err)
}

func TestNewContainerWiresMemoryMarketplace(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	reg := memory.NewRegistry(memory.WithClock(clock))

	health, err := repositories.NewDependencyHealthRepository([]repositories.DependencyCheck{
		{Name: "registry", Check: reg.Ping},
	})
	require.NoError(t, err)

	container, err := NewContainer(context.Background(), config.Config{
		Orders:   config.OrdersConfig{MaxRevisions: 2},
		Security: config.SecurityConfig{Environment: "test"},
	}, reg, Infrastructure{Health: health, Clock: clock})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close(context.Background()) })

	svc := container.Services
	require.NotNil(t, svc.System)
	require.Equal(t, "test", svc.System.BuildInfo().Environment)

	ctx := context.Background()
	_, err = svc.Users.GetOrProvision(ctx, services.ProvisionUserCommand{UserID: "seller-1", Email: "s@example.com", SignupRole: "seller"})
	require.NoError(t, err)
	_, err = svc.Users.GetOrProvision(ctx, services.ProvisionUserCommand{UserID: "buyer-1", Email: "b@example.com", SignupRole: "buyer"})
	require.NoError(t, err)

	service, err := svc.Catalog.CreateService(ctx, services.UpsertServiceCommand{
		ActorID:  "seller-1",
		Title:    "Podcast mention",
		Category: "audio",
		Packages: map[string]domain.Package{"basic": {Name: "Basic", Price: 3000, DeliveryDays: 3}},
	})
	require.NoError(t, err)

	order, err := svc.Orders.Create(ctx, services.CreateOrderCommand{ActorID: "buyer-1", ServiceID: service.ID, PackageKey: "basic"})
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusInProgress, order.Status)
	require.Equal(t, domain.PaymentStatusHeld, order.PaymentStatus)
	require.Equal(t, 2, order.MaxRevisions)

	report, err := svc.System.HealthReport(ctx)
	require.NoError(t, err)
	require.Equal(t, domain.HealthStatusOK, report.Status)
}

func TestNewContainerWithoutHealthSkipsSystemService(t *testing.T) {
	container, err := NewContainer(context.Background(), config.Config{}, memory.NewRegistry(), Infrastructure{})
	require.NoError(t, err)
	require.Nil(t, container.Services.System)
	require.NotNil(t, container.Services.Orders)
	require.NotNil(t, container.Services.CustomOrders)
}
