package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/pagination"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

var errGuard = errors.New("guard failed")

func seedOrder(t *testing.T, reg *Registry, id string, createdAt time.Time) domain.Order {
	t.Helper()
	order := domain.Order{
		ID:            id,
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		Status:        domain.OrderStatusInProgress,
		MaxRevisions:  1,
		DeliveryFiles: []string{"gs://bucket/a"},
		CreatedAt:     createdAt,
	}
	require.NoError(t, reg.Orders().Insert(context.Background(), order))
	return order
}

func TestOrderInsertAndFind(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	order := seedOrder(t, reg, "ord_1", time.Now())

	got, err := reg.Orders().FindByID(ctx, "ord_1")
	require.NoError(t, err)
	require.Equal(t, order.BuyerID, got.BuyerID)

	got.DeliveryFiles[0] = "mutated"
	again, err := reg.Orders().FindByID(ctx, "ord_1")
	require.NoError(t, err)
	require.Equal(t, "gs://bucket/a", again.DeliveryFiles[0], "reads must not alias stored slices")

	err = reg.Orders().Insert(ctx, order)
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	_, err = reg.Orders().FindByID(ctx, "missing")
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsNotFound())
}

func TestOrderMutateRejectedLeavesOrderUntouched(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	seedOrder(t, reg, "ord_1", time.Now())

	_, err := reg.Orders().Mutate(ctx, "ord_1", func(order *domain.Order) error {
		order.Status = domain.OrderStatusCancelled
		return fmt.Errorf("%w: nope", errGuard)
	})
	require.ErrorIs(t, err, errGuard)

	got, err := reg.Orders().FindByID(ctx, "ord_1")
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusInProgress, got.Status)
}

func TestOrderMutateConcurrentRevisionsNeverExceedMax(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	seedOrder(t, reg, "ord_1", time.Now())

	var (
		wg        sync.WaitGroup
		successes atomic.Int32
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := reg.Orders().Mutate(ctx, "ord_1", func(order *domain.Order) error {
				if order.Revisions >= order.MaxRevisions {
					return errGuard
				}
				order.Revisions++
				return nil
			})
			if err == nil {
				successes.Add(1)
			}
		}()
	}
	wg.Wait()

	got, err := reg.Orders().FindByID(ctx, "ord_1")
	require.NoError(t, err)
	require.Equal(t, 1, got.Revisions)
	require.EqualValues(t, 1, successes.Load())
}

func TestCustomOrderAcceptConcurrentSpawnsOneOrder(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	require.NoError(t, reg.CustomOrders().Insert(ctx, domain.CustomOrder{
		ID:             "cus_1",
		ManagerID:      "manager-1",
		RecipientID:    "buyer-1",
		RecipientRole:  domain.UserRoleBuyer,
		CounterpartyID: "seller-1",
		Price:          5000,
		Status:         domain.CustomOrderStatusPending,
		CreatedAt:      time.Now(),
	}))

	var (
		wg       sync.WaitGroup
		accepted atomic.Int32
		attempt  atomic.Int32
	)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n := attempt.Add(1)
			_, err := reg.CustomOrders().Accept(ctx, repositories.CustomOrderAcceptRequest{
				CustomOrderID: "cus_1",
				Build: func(co *domain.CustomOrder) (domain.Order, error) {
					if co.Status != domain.CustomOrderStatusPending {
						return domain.Order{}, errGuard
					}
					orderID := fmt.Sprintf("ord_%d", n)
					co.Status = domain.CustomOrderStatusAccepted
					co.OrderID = &orderID
					return domain.Order{ID: orderID, CustomOrderID: &co.ID, IsCustomOrder: true, CreatedAt: time.Now()}, nil
				},
			})
			if err == nil {
				accepted.Add(1)
			} else {
				assert.ErrorIs(t, err, errGuard)
			}
		}()
	}
	wg.Wait()

	require.EqualValues(t, 1, accepted.Load())
	page, err := reg.Orders().List(ctx, repositories.OrderListFilter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	co, err := reg.CustomOrders().FindByID(ctx, "cus_1")
	require.NoError(t, err)
	require.Equal(t, domain.CustomOrderStatusAccepted, co.Status)
	require.NotNil(t, co.OrderID)
	require.Equal(t, page.Items[0].ID, *co.OrderID)
}

func TestCustomOrderAcceptOrderConflictRollsBack(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	seedOrder(t, reg, "ord_taken", time.Now())
	require.NoError(t, reg.CustomOrders().Insert(ctx, domain.CustomOrder{ID: "cus_1", Status: domain.CustomOrderStatusPending}))

	_, err := reg.CustomOrders().Accept(ctx, repositories.CustomOrderAcceptRequest{
		CustomOrderID: "cus_1",
		Build: func(co *domain.CustomOrder) (domain.Order, error) {
			co.Status = domain.CustomOrderStatusAccepted
			return domain.Order{ID: "ord_taken"}, nil
		},
	})
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	co, err := reg.CustomOrders().FindByID(ctx, "cus_1")
	require.NoError(t, err)
	require.Equal(t, domain.CustomOrderStatusPending, co.Status)
}

func TestOrderListPaginatesNewestFirst(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		seedOrder(t, reg, fmt.Sprintf("ord_%d", i), base.Add(time.Duration(i)*time.Hour))
	}
	other := domain.Order{ID: "ord_other", BuyerID: "buyer-2", SellerID: "seller-2", Status: domain.OrderStatusCompleted, CreatedAt: base}
	require.NoError(t, reg.Orders().Insert(ctx, other))

	first, err := reg.Orders().List(ctx, repositories.OrderListFilter{ParticipantID: "seller-1", Pagination: domain.Pagination{PageSize: 3}})
	require.NoError(t, err)
	require.Len(t, first.Items, 3)
	require.Equal(t, "ord_4", first.Items[0].ID)
	require.NotEmpty(t, first.NextPageToken)

	second, err := reg.Orders().List(ctx, repositories.OrderListFilter{ParticipantID: "seller-1", Pagination: domain.Pagination{PageSize: 3, PageToken: first.NextPageToken}})
	require.NoError(t, err)
	require.Len(t, second.Items, 2)
	require.Equal(t, "ord_1", second.Items[0].ID)
	require.Empty(t, second.NextPageToken)

	completed, err := reg.Orders().List(ctx, repositories.OrderListFilter{BuyerID: "buyer-2", Status: []string{"completed"}})
	require.NoError(t, err)
	require.Len(t, completed.Items, 1)

	_, err = reg.Orders().List(ctx, repositories.OrderListFilter{Pagination: domain.Pagination{PageToken: "!!"}})
	require.ErrorIs(t, err, pagination.ErrInvalidPageToken)
}

func TestReviewsAndRatings(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	_, err := reg.Users().Upsert(ctx, domain.UserProfile{ID: "seller-1", Role: domain.UserRoleSeller, IsActive: true})
	require.NoError(t, err)

	_, err = reg.Reviews().Insert(ctx, domain.Review{ID: "ord_1", OrderID: "ord_1", SellerID: "seller-1", Rating: 5})
	require.NoError(t, err)
	_, err = reg.Reviews().Insert(ctx, domain.Review{ID: "ord_1", OrderID: "ord_1", SellerID: "seller-1", Rating: 1})
	var repoErr repositories.RepositoryError
	require.ErrorAs(t, err, &repoErr)
	require.True(t, repoErr.IsConflict())

	reviews, err := reg.Reviews().ListBySeller(ctx, "seller-1")
	require.NoError(t, err)
	require.Len(t, reviews, 1)

	require.NoError(t, reg.Users().UpdateRating(ctx, domain.RatingSummary{SellerID: "seller-1", Rating: 5, ReviewCount: 1}, time.Now()))
	profile, err := reg.Users().FindByID(ctx, "seller-1")
	require.NoError(t, err)
	require.Equal(t, 5.0, profile.Rating)

	_, err = reg.Users().Upsert(ctx, domain.UserProfile{ID: "seller-1", Role: domain.UserRoleSeller, DisplayName: "Renamed"})
	require.NoError(t, err)
	profile, err = reg.Users().FindByID(ctx, "seller-1")
	require.NoError(t, err)
	require.Equal(t, 1, profile.ReviewCount, "profile upserts keep the derived rating")
}

func TestCountersAreSequential(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()

	var wg sync.WaitGroup
	values := make(chan int64, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := reg.Counters().Next(ctx, "orders", 1)
			assert.NoError(t, err)
			values <- v
		}()
	}
	wg.Wait()
	close(values)

	seen := make(map[int64]bool)
	for v := range values {
		require.False(t, seen[v], "duplicate counter value %d", v)
		seen[v] = true
	}
	require.Len(t, seen, 50)

	max := int64(51)
	require.NoError(t, reg.Counters().Configure(ctx, "orders", repositories.CounterConfig{MaxValue: &max}))
	_, err := reg.Counters().Next(ctx, "orders", 1)
	require.NoError(t, err)
	_, err = reg.Counters().Next(ctx, "orders", 1)
	var counterErr *repositories.CounterError
	require.ErrorAs(t, err, &counterErr)
	require.Equal(t, repositories.CounterErrorExhausted, counterErr.Code)
}

func TestUserListFiltersByRoleAndActivity(t *testing.T) {
	reg := NewRegistry()
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed := []domain.UserProfile{
		{ID: "seller-1", Role: domain.UserRoleSeller, IsActive: true, CreatedAt: base},
		{ID: "seller-2", Role: domain.UserRoleSeller, IsActive: true, CreatedAt: base.Add(time.Hour)},
		{ID: "seller-3", Role: domain.UserRoleSeller, IsActive: false, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "buyer-1", Role: domain.UserRoleBuyer, IsActive: true, CreatedAt: base},
	}
	for _, profile := range seed {
		_, err := reg.Users().Upsert(ctx, profile)
		require.NoError(t, err)
	}

	active, err := reg.Users().List(ctx, repositories.UserListFilter{Role: "seller", ActiveOnly: true})
	require.NoError(t, err)
	require.Len(t, active.Items, 2)
	require.Equal(t, "seller-2", active.Items[0].ID)

	all, err := reg.Users().List(ctx, repositories.UserListFilter{Role: "seller", Pagination: domain.Pagination{PageSize: 2}})
	require.NoError(t, err)
	require.Len(t, all.Items, 2)
	require.Equal(t, "seller-3", all.Items[0].ID)
	require.NotEmpty(t, all.NextPageToken)

	everyone, err := reg.Users().List(ctx, repositories.UserListFilter{})
	require.NoError(t, err)
	require.Len(t, everyone.Items, 4)
}
