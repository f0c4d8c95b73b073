package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

var (
	// ErrAccessDenied is wrapped by every authorization failure.
	ErrAccessDenied = errors.New("access denied")
	// ErrActorUnavailable indicates the user directory could not be read.
	ErrActorUnavailable = errors.New("actor lookup unavailable")
)

// Relation names how an actor must relate to a resource.
type Relation string

const (
	RelationBuyerOf     Relation = "buyer"
	RelationSellerOf    Relation = "seller"
	RelationRecipientOf Relation = "recipient"
	RelationManagerOf   Relation = "manager"
)

// Actor is the caller as known to the user directory. Role always comes from the stored profile.
type Actor struct {
	ID      string
	Role    domain.UserRole
	Profile domain.UserProfile
}

// IsAdmin reports whether the actor holds the admin role.
func (a Actor) IsAdmin() bool {
	return a.Role == domain.UserRoleAdmin
}

// ActorResolver loads the caller's stored profile.
type ActorResolver interface {
	Resolve(ctx context.Context, subjectID string) (Actor, error)
}

// Authorizer resolves actors from the user directory.
type Authorizer struct {
	users repositories.UserRepository
}

// NewAuthorizer constructs an Authorizer backed by the user repository.
func NewAuthorizer(users repositories.UserRepository) (*Authorizer, error) {
	if users == nil {
		return nil, errors.New("authorizer: user repository is required")
	}
	return &Authorizer{users: users}, nil
}

// Resolve loads the profile for subjectID. Unknown and deactivated users are denied.
func (a *Authorizer) Resolve(ctx context.Context, subjectID string) (Actor, error) {
	id := strings.TrimSpace(subjectID)
	if id == "" {
		return Actor{}, fmt.Errorf("%w: caller identity is required", ErrAccessDenied)
	}
	profile, err := a.users.FindByID(ctx, id)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsNotFound() {
			return Actor{}, fmt.Errorf("%w: unknown user", ErrAccessDenied)
		}
		return Actor{}, fmt.Errorf("%w: %v", ErrActorUnavailable, err)
	}
	if !profile.IsActive {
		return Actor{}, fmt.Errorf("%w: user is deactivated", ErrAccessDenied)
	}
	return Actor{ID: profile.ID, Role: profile.Role, Profile: profile}, nil
}

// RequireRole fails unless the actor holds one of roles.
func RequireRole(actor Actor, roles ...domain.UserRole) error {
	if slices.Contains(roles, actor.Role) {
		return nil
	}
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		names = append(names, string(role))
	}
	return fmt.Errorf("%w: requires role %s", ErrAccessDenied, strings.Join(names, " or "))
}

// RequireParty fails unless the actor is partyID, the holder of relation on the resource.
func RequireParty(actor Actor, partyID string, relation Relation) error {
	if partyID != "" && actor.ID == partyID {
		return nil
	}
	return fmt.Errorf("%w: only the %s may perform this action", ErrAccessDenied, relation)
}

// denied rewraps an authorization failure with the workflow's sentinels.
func denied(err error, forbidden, unavailable error) error {
	if errors.Is(err, ErrActorUnavailable) {
		return fmt.Errorf("%w: %v", unavailable, err)
	}
	return fmt.Errorf("%w: %v", forbidden, err)
}
