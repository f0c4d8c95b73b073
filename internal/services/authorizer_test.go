package services

import (
	"context"
	"errors"
	"testing"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type unavailableError struct{}

func (unavailableError) Error() string       { return "backend unavailable" }
func (unavailableError) IsNotFound() bool    { return false }
func (unavailableError) IsConflict() bool    { return false }
func (unavailableError) IsUnavailable() bool { return true }

type stubProfileRepository struct {
	repositories.UserRepository
	findFn func(context.Context, string) (domain.UserProfile, error)
}

func (s stubProfileRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	return s.findFn(ctx, userID)
}

func TestAuthorizerResolve(t *testing.T) {
	m := newMarketplace(t, marketplaceOptions{})
	m.seedUser(t, "seller-1", domain.UserRoleSeller)

	actor, err := m.actors.Resolve(context.Background(), " seller-1 ")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if actor.Role != domain.UserRoleSeller || actor.IsAdmin() {
		t.Fatalf("unexpected actor %+v", actor)
	}

	if _, err := m.actors.Resolve(context.Background(), ""); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for empty subject, got %v", err)
	}
	if _, err := m.actors.Resolve(context.Background(), "ghost"); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied for unknown user, got %v", err)
	}
}

func TestAuthorizerResolveUnavailable(t *testing.T) {
	authz, err := NewAuthorizer(stubProfileRepository{findFn: func(context.Context, string) (domain.UserProfile, error) {
		return domain.UserProfile{}, unavailableError{}
	}})
	if err != nil {
		t.Fatalf("new authorizer: %v", err)
	}
	_, err = authz.Resolve(context.Background(), "u-1")
	if !errors.Is(err, ErrActorUnavailable) {
		t.Fatalf("expected actor unavailable, got %v", err)
	}
	if mapped := denied(err, ErrOrderForbidden, ErrOrderUnavailable); !errors.Is(mapped, ErrOrderUnavailable) {
		t.Fatalf("expected unavailable mapping, got %v", mapped)
	}
}

func TestRequireRoleAndParty(t *testing.T) {
	buyer := Actor{ID: "b", Role: domain.UserRoleBuyer}
	if err := RequireRole(buyer, domain.UserRoleSeller, domain.UserRoleManager); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected access denied, got %v", err)
	}
	if err := RequireRole(buyer, domain.UserRoleBuyer); err != nil {
		t.Fatalf("expected buyer role to pass, got %v", err)
	}
	if err := RequireParty(buyer, "b", RelationBuyerOf); err != nil {
		t.Fatalf("expected party to pass, got %v", err)
	}
	if err := RequireParty(buyer, "", RelationBuyerOf); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("expected empty party to deny, got %v", err)
	}
	admin := Actor{ID: "a", Role: domain.UserRoleAdmin}
	if err := RequireParty(admin, "b", RelationSellerOf); !errors.Is(err, ErrAccessDenied) {
		t.Fatalf("admins are not implicit parties, got %v", err)
	}
}
