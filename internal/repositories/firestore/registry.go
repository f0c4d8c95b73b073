// Package firestore implements the repositories on Cloud Firestore. Lifecycle writes run inside
// transactions so that guards are evaluated against the committed document.
package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	usersCollection        = "users"
	servicesCollection     = "services"
	ordersCollection       = "orders"
	customOrdersCollection = "customOrders"
	reviewsCollection      = "reviews"
	messagesCollection     = "messages"
	countersCollection     = "counters"
)

// Registry implements repositories.Registry over a shared Firestore provider.
type Registry struct {
	provider     *pfirestore.Provider
	users        *UserRepository
	services     *ServiceRepository
	orders       *OrderRepository
	customOrders *CustomOrderRepository
	reviews      *ReviewRepository
	messages     *MessageRepository
	counters     *CounterRepository
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry wires every Firestore repository to provider.
func NewRegistry(provider *pfirestore.Provider) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("firestore registry requires a provider")
	}
	return &Registry{
		provider:     provider,
		users:        NewUserRepository(provider),
		services:     NewServiceRepository(provider),
		orders:       NewOrderRepository(provider),
		customOrders: NewCustomOrderRepository(provider),
		reviews:      NewReviewRepository(provider),
		messages:     NewMessageRepository(provider),
		counters:     NewCounterRepository(provider),
	}, nil
}

// Close releases the Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	return r.provider.Close(ctx)
}

// Ping checks Firestore reachability.
func (r *Registry) Ping(ctx context.Context) error {
	return r.provider.Ping(ctx)
}

func (r *Registry) Users() repositories.UserRepository               { return r.users }
func (r *Registry) Services() repositories.ServiceRepository         { return r.services }
func (r *Registry) Orders() repositories.OrderRepository             { return r.orders }
func (r *Registry) CustomOrders() repositories.CustomOrderRepository { return r.customOrders }
func (r *Registry) Reviews() repositories.ReviewRepository           { return r.reviews }
func (r *Registry) Messages() repositories.MessageRepository         { return r.messages }
func (r *Registry) Counters() repositories.CounterRepository         { return r.counters }
