package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/payments"
	"github.com/jamshaid11601/Emergent/internal/repositories"
	"github.com/jamshaid11601/Emergent/internal/repositories/memory"
)

var fixtureNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

type recordingPublisher struct {
	mu           sync.Mutex
	orderEvents  []domain.OrderEvent
	customEvents []domain.CustomOrderEvent
	err          error
}

func (p *recordingPublisher) PublishOrderEvent(_ context.Context, event domain.OrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.orderEvents = append(p.orderEvents, event)
	return p.err
}

func (p *recordingPublisher) PublishCustomOrderEvent(_ context.Context, event domain.CustomOrderEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customEvents = append(p.customEvents, event)
	return p.err
}

func (p *recordingPublisher) orderEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.orderEvents))
	for _, event := range p.orderEvents {
		types = append(types, event.Type)
	}
	return types
}

func (p *recordingPublisher) customEventTypes() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, 0, len(p.customEvents))
	for _, event := range p.customEvents {
		types = append(types, event.Type)
	}
	return types
}

type recordingMetrics struct {
	mu          sync.Mutex
	transitions []string
	decisions   []string
}

func (m *recordingMetrics) OrderTransition(_ context.Context, from, to string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.transitions = append(m.transitions, from+"->"+to)
}

func (m *recordingMetrics) CustomOrderDecision(_ context.Context, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions = append(m.decisions, outcome)
}

type marketplace struct {
	reg          *memory.Registry
	payments     *payments.MockProvider
	events       *recordingPublisher
	metrics      *recordingMetrics
	actors       *Authorizer
	codes        CodeService
	orders       OrderService
	customOrders CustomOrderService
	reviews      ReviewService
	messages     MessageService
	catalog      CatalogService
	users        UserService
}

type marketplaceOptions struct {
	maxRevisions int
	attachments  AttachmentSigner
	identity     IdentityAdmin
}

func newMarketplace(t *testing.T, opts marketplaceOptions) *marketplace {
	t.Helper()
	clock := func() time.Time { return fixtureNow }
	reg := memory.NewRegistry(memory.WithClock(clock))
	provider := payments.NewMockProvider(payments.WithMockClock(clock))
	events := &recordingPublisher{}
	metrics := &recordingMetrics{}

	actors, err := NewAuthorizer(reg.Users())
	require.NoError(t, err)
	codes, err := NewCodeService(CodeServiceDeps{Repository: reg.Counters()})
	require.NoError(t, err)

	orders, err := NewOrderService(OrderServiceDeps{
		Orders:       reg.Orders(),
		Services:     reg.Services(),
		Messages:     reg.Messages(),
		Codes:        codes,
		Actors:       actors,
		Payments:     provider,
		Attachments:  opts.attachments,
		Events:       events,
		Metrics:      metrics,
		MaxRevisions: opts.maxRevisions,
		Clock:        clock,
	})
	require.NoError(t, err)

	customOrders, err := NewCustomOrderService(CustomOrderServiceDeps{
		CustomOrders: reg.CustomOrders(),
		Users:        reg.Users(),
		Codes:        codes,
		Actors:       actors,
		Payments:     provider,
		Events:       events,
		OrderEvents:  events,
		Metrics:      metrics,
		MaxRevisions: opts.maxRevisions,
		Clock:        clock,
	})
	require.NoError(t, err)

	reviews, err := NewReviewService(ReviewServiceDeps{
		Reviews: reg.Reviews(),
		Orders:  reg.Orders(),
		Users:   reg.Users(),
		Actors:  actors,
		Clock:   clock,
	})
	require.NoError(t, err)

	messages, err := NewMessageService(MessageServiceDeps{
		Messages: reg.Messages(),
		Orders:   reg.Orders(),
		Actors:   actors,
		Clock:    clock,
	})
	require.NoError(t, err)

	catalog, err := NewCatalogService(CatalogServiceDeps{Services: reg.Services(), Actors: actors, Clock: clock})
	require.NoError(t, err)

	users, err := NewUserService(UserServiceDeps{Users: reg.Users(), Actors: actors, Identity: opts.identity, Clock: clock})
	require.NoError(t, err)

	return &marketplace{
		reg:          reg,
		payments:     provider,
		events:       events,
		metrics:      metrics,
		actors:       actors,
		codes:        codes,
		orders:       orders,
		customOrders: customOrders,
		reviews:      reviews,
		messages:     messages,
		catalog:      catalog,
		users:        users,
	}
}

func (m *marketplace) seedUser(t *testing.T, id string, role domain.UserRole) domain.UserProfile {
	t.Helper()
	profile, err := m.reg.Users().Upsert(context.Background(), domain.UserProfile{
		ID:          id,
		DisplayName: id,
		Email:       id + "@example.com",
		Role:        role,
		IsActive:    true,
		CreatedAt:   fixtureNow,
		UpdatedAt:   fixtureNow,
	})
	require.NoError(t, err)
	return profile
}

func (m *marketplace) seedService(t *testing.T, id, ownerID string) domain.Service {
	t.Helper()
	service := domain.Service{
		ID:       id,
		OwnerID:  ownerID,
		Title:    "Logo design",
		IsActive: true,
		Packages: map[string]domain.Package{
			"basic":    {Name: "Basic", Price: 50, DeliveryDays: 2},
			"standard": {Name: "Standard", Price: 120, DeliveryDays: 5},
		},
		CreatedAt: fixtureNow,
		UpdatedAt: fixtureNow,
	}
	require.NoError(t, m.reg.Services().Insert(context.Background(), service))
	return service
}

// placeOrder seeds a buyer, a seller with a service and returns a fresh basic order.
func (m *marketplace) placeOrder(t *testing.T) domain.Order {
	t.Helper()
	m.seedUser(t, "buyer-1", domain.UserRoleBuyer)
	m.seedUser(t, "seller-1", domain.UserRoleSeller)
	m.seedService(t, "svc_1", "seller-1")
	order, err := m.orders.Create(context.Background(), CreateOrderCommand{
		ActorID:      "buyer-1",
		ServiceID:    "svc_1",
		PackageKey:   "basic",
		Requirements: "A fox, orange",
	})
	require.NoError(t, err)
	return order
}

func (m *marketplace) paymentStatus(t *testing.T, intentID string) payments.Status {
	t.Helper()
	details, ok := m.payments.Lookup(intentID)
	require.True(t, ok, "payment intent %s not found", intentID)
	return details.Status
}

func repositoriesOrderFilterAll() repositories.OrderListFilter {
	return repositories.OrderListFilter{Pagination: domain.Pagination{PageSize: 50}}
}
