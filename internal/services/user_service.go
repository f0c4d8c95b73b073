package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const maxDisplayNameLength = 80

// UserServiceDeps bundles the dependencies required to construct a user service instance.
type UserServiceDeps struct {
	Users    repositories.UserRepository
	Actors   ActorResolver
	Identity IdentityAdmin
	Clock    func() time.Time
	Logger   func(ctx context.Context, event string, fields map[string]any)
}

type userService struct {
	users    repositories.UserRepository
	actors   ActorResolver
	identity IdentityAdmin
	clock    func() time.Time
	logger   func(context.Context, string, map[string]any)
}

var _ UserService = (*userService)(nil)

// NewUserService wires dependencies into a concrete UserService implementation.
func NewUserService(deps UserServiceDeps) (UserService, error) {
	if deps.Users == nil {
		return nil, errors.New("user service: user repository is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("user service: actor resolver is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &userService{
		users:    deps.Users,
		actors:   deps.Actors,
		identity: deps.Identity,
		clock: func() time.Time {
			return clock().UTC()
		},
		logger: logger,
	}, nil
}

// GetOrProvision returns the caller's stored profile, creating it on first sign-in. Self-provisioned
// users may only start as buyers or sellers.
func (s *userService) GetOrProvision(ctx context.Context, cmd ProvisionUserCommand) (UserProfile, error) {
	userID := strings.TrimSpace(cmd.UserID)
	if userID == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}

	existing, err := s.users.FindByID(ctx, userID)
	switch {
	case err == nil:
		if !existing.IsActive {
			return UserProfile{}, fmt.Errorf("%w: user is deactivated", ErrUserForbidden)
		}
		return existing, nil
	case !isRepositoryNotFound(err):
		return UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}

	role := domain.UserRoleBuyer
	if domain.UserRole(strings.ToLower(strings.TrimSpace(cmd.SignupRole))) == domain.UserRoleSeller {
		role = domain.UserRoleSeller
	}
	now := s.clock()
	profile := UserProfile{
		ID:          userID,
		DisplayName: normalizeDisplayName(cmd.DisplayName, cmd.Email),
		Email:       normalizeEmail(cmd.Email),
		Role:        role,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	saved, err := s.users.Upsert(ctx, profile)
	if err != nil {
		return UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}
	s.logger(ctx, "user.provisioned", map[string]any{"userId": saved.ID, "role": string(saved.Role)})
	return saved, nil
}

func (s *userService) GetProfile(ctx context.Context, userID string) (UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	profile, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}
	return profile, nil
}

// SetRole lets an admin reassign a user's role. The identity provider claim is synced best effort;
// the stored profile stays authoritative.
func (s *userService) SetRole(ctx context.Context, cmd SetUserRoleCommand) (UserProfile, error) {
	if !cmd.Role.Valid() {
		return UserProfile{}, fmt.Errorf("%w: unknown role %q", ErrUserInvalidInput, cmd.Role)
	}
	actor, target, err := s.adminTarget(ctx, cmd.ActorID, cmd.UserID)
	if err != nil {
		return UserProfile{}, err
	}
	if target.ID == actor.ID {
		return UserProfile{}, fmt.Errorf("%w: cannot change your own role", ErrUserForbidden)
	}

	target.Role = cmd.Role
	target.UpdatedAt = s.clock()
	saved, err := s.users.Upsert(ctx, target)
	if err != nil {
		return UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}
	if s.identity != nil {
		if err := s.identity.SyncRole(ctx, saved.ID, string(saved.Role)); err != nil {
			s.logger(ctx, "user.role.sync.failed", map[string]any{"userId": saved.ID, "error": err.Error()})
		}
	}
	s.logger(ctx, "user.role.changed", map[string]any{"userId": saved.ID, "role": string(saved.Role), "actorId": actor.ID})
	return saved, nil
}

// Ban deactivates the user and revokes their refresh tokens. Deactivated users fail authorization
// on every subsequent request.
func (s *userService) Ban(ctx context.Context, cmd BanUserCommand) (UserProfile, error) {
	actor, target, err := s.adminTarget(ctx, cmd.ActorID, cmd.UserID)
	if err != nil {
		return UserProfile{}, err
	}
	if target.ID == actor.ID {
		return UserProfile{}, fmt.Errorf("%w: cannot ban yourself", ErrUserForbidden)
	}
	if !target.IsActive {
		return target, nil
	}

	target.IsActive = false
	target.UpdatedAt = s.clock()
	saved, err := s.users.Upsert(ctx, target)
	if err != nil {
		return UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}
	if s.identity != nil {
		if err := s.identity.RevokeSessions(ctx, saved.ID); err != nil {
			s.logger(ctx, "user.sessions.revoke.failed", map[string]any{"userId": saved.ID, "error": err.Error()})
		}
	}
	s.logger(ctx, "user.banned", map[string]any{"userId": saved.ID, "actorId": actor.ID})
	return saved, nil
}

// ListByRole pages through the user directory. Managers see active buyers or sellers only, which
// are the candidate parties of a custom order.
func (s *userService) ListByRole(ctx context.Context, filter UserListFilter) (domain.CursorPage[UserProfile], error) {
	actor, err := s.actors.Resolve(ctx, filter.ActorID)
	if err != nil {
		return domain.CursorPage[UserProfile]{}, denied(err, ErrUserForbidden, ErrUserUnavailable)
	}
	if err := RequireRole(actor, domain.UserRoleManager, domain.UserRoleAdmin); err != nil {
		return domain.CursorPage[UserProfile]{}, fmt.Errorf("%w: %v", ErrUserForbidden, err)
	}

	role := domain.UserRole(strings.ToLower(strings.TrimSpace(string(filter.Role))))
	if role != "" && !role.Valid() {
		return domain.CursorPage[UserProfile]{}, fmt.Errorf("%w: unknown role %q", ErrUserInvalidInput, filter.Role)
	}
	repoFilter := repositories.UserListFilter{
		Role:       string(role),
		ActiveOnly: !filter.IncludeInactive,
		Pagination: filter.Pagination,
	}
	if !actor.IsAdmin() {
		if role != domain.UserRoleBuyer && role != domain.UserRoleSeller {
			return domain.CursorPage[UserProfile]{}, fmt.Errorf("%w: managers may only list buyers or sellers", ErrUserForbidden)
		}
		repoFilter.ActiveOnly = true
	}

	page, err := s.users.List(ctx, repoFilter)
	if err != nil {
		return domain.CursorPage[UserProfile]{}, userRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

func (s *userService) adminTarget(ctx context.Context, actorID, userID string) (Actor, UserProfile, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return Actor{}, UserProfile{}, fmt.Errorf("%w: user id is required", ErrUserInvalidInput)
	}
	actor, err := s.actors.Resolve(ctx, actorID)
	if err != nil {
		return Actor{}, UserProfile{}, denied(err, ErrUserForbidden, ErrUserUnavailable)
	}
	if err := RequireRole(actor, domain.UserRoleAdmin); err != nil {
		return Actor{}, UserProfile{}, fmt.Errorf("%w: %v", ErrUserForbidden, err)
	}
	target, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return Actor{}, UserProfile{}, userRepoErrors.mapRepositoryError(err)
	}
	return actor, target, nil
}

func normalizeDisplayName(name, email string) string {
	display := textutil.Sanitize(name)
	if display == "" {
		if at := strings.IndexByte(email, '@'); at > 0 {
			display = textutil.Sanitize(email[:at])
		}
	}
	if runes := []rune(display); len(runes) > maxDisplayNameLength {
		display = string(runes[:maxDisplayNameLength])
	}
	return display
}

func normalizeEmail(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}
	addr, err := mail.ParseAddress(trimmed)
	if err != nil {
		return ""
	}
	return strings.ToLower(addr.Address)
}

func isRepositoryNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	return errors.As(err, &repoErr) && repoErr.IsNotFound()
}
