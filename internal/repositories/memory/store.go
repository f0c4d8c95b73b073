// Package memory implements the repositories on in-process maps guarded by a single lock. It backs
// local development (API_DATA_BACKEND=memory) and service tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/pagination"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

// Error implements repositories.RepositoryError.
type Error struct {
	op       string
	err      error
	notFound bool
	conflict bool
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.op, e.err)
}

func (e *Error) Unwrap() error { return e.err }

// IsNotFound reports a missing record.
func (e *Error) IsNotFound() bool { return e.notFound }

// IsConflict reports a duplicate or conflicting write.
func (e *Error) IsConflict() bool { return e.conflict }

// IsUnavailable is always false for the in-memory store.
func (e *Error) IsUnavailable() bool { return false }

var _ repositories.RepositoryError = (*Error)(nil)

func notFound(op, id string) error {
	return &Error{op: op, err: fmt.Errorf("%s not found", id), notFound: true}
}

func conflict(op, id string) error {
	return &Error{op: op, err: fmt.Errorf("%s already exists", id), conflict: true}
}

// Option configures the registry.
type Option func(*Registry)

// WithClock overrides the time source used for bookkeeping timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// Registry implements repositories.Registry. All collections share one lock so that multi-entity
// writes are a single critical section.
type Registry struct {
	mu  sync.RWMutex
	now func() time.Time

	users        map[string]domain.UserProfile
	services     map[string]domain.Service
	orders       map[string]domain.Order
	customOrders map[string]domain.CustomOrder
	reviews      map[string]domain.Review
	messages     map[string]domain.Message
	counters     map[string]counterState
}

var _ repositories.Registry = (*Registry)(nil)

// NewRegistry constructs an empty in-memory registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		now:          time.Now,
		users:        make(map[string]domain.UserProfile),
		services:     make(map[string]domain.Service),
		orders:       make(map[string]domain.Order),
		customOrders: make(map[string]domain.CustomOrder),
		reviews:      make(map[string]domain.Review),
		messages:     make(map[string]domain.Message),
		counters:     make(map[string]counterState),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Close implements repositories.Registry.
func (r *Registry) Close(context.Context) error { return nil }

func (r *Registry) Users() repositories.UserRepository               { return &userRepository{r} }
func (r *Registry) Services() repositories.ServiceRepository         { return &serviceRepository{r} }
func (r *Registry) Orders() repositories.OrderRepository             { return &orderRepository{r} }
func (r *Registry) CustomOrders() repositories.CustomOrderRepository { return &customOrderRepository{r} }
func (r *Registry) Reviews() repositories.ReviewRepository           { return &reviewRepository{r} }
func (r *Registry) Messages() repositories.MessageRepository         { return &messageRepository{r} }
func (r *Registry) Counters() repositories.CounterRepository         { return &counterRepository{r} }

// Ping reports readiness; the in-memory store is always ready.
func (r *Registry) Ping(context.Context) error { return nil }

// paginate orders items newest first and slices one page after the token cursor.
func paginate[T any](items []T, key func(T) (time.Time, string), pager domain.Pagination) (domain.CursorPage[T], error) {
	cursor, err := pagination.DecodeToken(pager.PageToken)
	if err != nil {
		return domain.CursorPage[T]{}, err
	}
	size := pager.PageSize
	if size <= 0 {
		size = pagination.DefaultPageSize
	}

	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return idi > idj
	})

	page := make([]T, 0, size)
	next := ""
	for _, item := range items {
		createdAt, id := key(item)
		if !cursor.After(createdAt, id) {
			continue
		}
		if len(page) == size {
			last := page[len(page)-1]
			lastAt, lastID := key(last)
			next, err = pagination.EncodeToken(pagination.Cursor{CreatedAt: lastAt, ID: lastID})
			if err != nil {
				return domain.CursorPage[T]{}, err
			}
			break
		}
		page = append(page, item)
	}
	return domain.CursorPage[T]{Items: page, NextPageToken: next}, nil
}

func statusMatches(status string, allowed []string) bool {
	if len(allowed) == 0 {
		return true
	}
	for _, candidate := range allowed {
		if strings.EqualFold(candidate, status) {
			return true
		}
	}
	return false
}

func requireID(op, id string) error {
	if strings.TrimSpace(id) == "" {
		return &Error{op: op, err: errors.New("id is required"), notFound: true}
	}
	return nil
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	return append([]string(nil), values...)
}

func clonePtr[T any](value *T) *T {
	if value == nil {
		return nil
	}
	copied := *value
	return &copied
}
