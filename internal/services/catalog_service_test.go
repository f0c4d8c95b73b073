package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
)

func TestCatalogCreateService(t *testing.T) {
	m := newMarketplace(t, marketplaceOptions{})
	m.seedUser(t, "seller-1", domain.UserRoleSeller)
	m.seedUser(t, "buyer-1", domain.UserRoleBuyer)
	ctx := context.Background()

	cmd := UpsertServiceCommand{
		ActorID:     "seller-1",
		Title:       "<b>Logo</b> design",
		Description: "Vector logos",
		Category:    " Design ",
		Packages: map[string]Package{
			" Basic ": {Price: 50, DeliveryDays: 2, Features: []string{"1 concept", " "}},
			"premium": {Name: "Premium", Price: 300, DeliveryDays: 7},
		},
	}
	service, err := m.catalog.CreateService(ctx, cmd)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(service.ID, serviceIDPrefix))
	require.Equal(t, "seller-1", service.OwnerID)
	require.Equal(t, "Logo design", service.Title)
	require.Equal(t, "design", service.Category)
	require.True(t, service.IsActive)
	require.Contains(t, service.Packages, "basic")
	require.Equal(t, "basic", service.Packages["basic"].Name)
	require.Equal(t, []string{"1 concept"}, service.Packages["basic"].Features)

	got, err := m.catalog.GetService(ctx, service.ID)
	require.NoError(t, err)
	require.Equal(t, service.Title, got.Title)

	cmd.ActorID = "buyer-1"
	_, err = m.catalog.CreateService(ctx, cmd)
	require.ErrorIs(t, err, ErrCatalogForbidden)
}

func TestCatalogCreateServiceValidatesPackages(t *testing.T) {
	m := newMarketplace(t, marketplaceOptions{})
	m.seedUser(t, "seller-1", domain.UserRoleSeller)
	ctx := context.Background()

	tests := map[string]map[string]Package{
		"no packages":    nil,
		"zero price":     {"basic": {Price: 0, DeliveryDays: 1}},
		"zero days":      {"basic": {Price: 10, DeliveryDays: 0}},
		"reserved key":   {"custom": {Price: 10, DeliveryDays: 1}},
		"duplicate keys": {"Basic": {Price: 10, DeliveryDays: 1}, "basic": {Price: 20, DeliveryDays: 1}},
	}
	for name, packages := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.catalog.CreateService(ctx, UpsertServiceCommand{ActorID: "seller-1", Title: "Logo", Packages: packages})
			require.ErrorIs(t, err, ErrCatalogInvalidInput)
		})
	}
	_, err := m.catalog.CreateService(ctx, UpsertServiceCommand{ActorID: "seller-1", Packages: map[string]Package{"basic": {Price: 10, DeliveryDays: 1}}})
	require.ErrorIs(t, err, ErrCatalogInvalidInput)
}

func TestCatalogUpdateServiceOwnerOnly(t *testing.T) {
	m := newMarketplace(t, marketplaceOptions{})
	m.seedUser(t, "seller-1", domain.UserRoleSeller)
	m.seedUser(t, "seller-2", domain.UserRoleSeller)
	ctx := context.Background()
	m.seedService(t, "svc_1", "seller-1")

	inactive := false
	update := UpsertServiceCommand{
		ActorID:   "seller-2",
		ServiceID: "svc_1",
		Title:     "Logo design v2",
		Packages:  map[string]Package{"basic": {Price: 60, DeliveryDays: 3}},
		IsActive:  &inactive,
	}
	_, err := m.catalog.UpdateService(ctx, update)
	require.ErrorIs(t, err, ErrCatalogForbidden)

	update.ActorID = "seller-1"
	updated, err := m.catalog.UpdateService(ctx, update)
	require.NoError(t, err)
	require.Equal(t, "Logo design v2", updated.Title)
	require.False(t, updated.IsActive)
	require.Len(t, updated.Packages, 1)
	require.Equal(t, int64(60), updated.Packages["basic"].Price)

	update.ServiceID = "svc_missing"
	_, err = m.catalog.UpdateService(ctx, update)
	require.ErrorIs(t, err, ErrCatalogNotFound)
}
