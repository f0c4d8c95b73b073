package memory

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type userRepository struct{ r *Registry }

func (u *userRepository) FindByID(_ context.Context, userID string) (domain.UserProfile, error) {
	if err := requireID("users.get", userID); err != nil {
		return domain.UserProfile{}, err
	}
	u.r.mu.RLock()
	defer u.r.mu.RUnlock()
	profile, ok := u.r.users[userID]
	if !ok {
		return domain.UserProfile{}, notFound("users.get", userID)
	}
	return profile, nil
}

func (u *userRepository) Upsert(_ context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	if err := requireID("users.upsert", profile.ID); err != nil {
		return domain.UserProfile{}, err
	}
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	now := u.r.now().UTC()
	if existing, ok := u.r.users[profile.ID]; ok {
		profile.CreatedAt = existing.CreatedAt
		profile.Rating = existing.Rating
		profile.ReviewCount = existing.ReviewCount
	} else if profile.CreatedAt.IsZero() {
		profile.CreatedAt = now
	}
	if profile.UpdatedAt.IsZero() {
		profile.UpdatedAt = now
	}
	u.r.users[profile.ID] = profile
	return profile, nil
}

func (u *userRepository) UpdateRating(_ context.Context, summary domain.RatingSummary, updatedAt time.Time) error {
	if err := requireID("users.rating", summary.SellerID); err != nil {
		return err
	}
	u.r.mu.Lock()
	defer u.r.mu.Unlock()
	profile, ok := u.r.users[summary.SellerID]
	if !ok {
		return notFound("users.rating", summary.SellerID)
	}
	profile.Rating = summary.Rating
	profile.ReviewCount = summary.ReviewCount
	profile.UpdatedAt = updatedAt
	u.r.users[summary.SellerID] = profile
	return nil
}

func (u *userRepository) List(_ context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.UserProfile], error) {
	u.r.mu.RLock()
	items := make([]domain.UserProfile, 0)
	for _, profile := range u.r.users {
		if filter.Role != "" && string(profile.Role) != filter.Role {
			continue
		}
		if filter.ActiveOnly && !profile.IsActive {
			continue
		}
		items = append(items, profile)
	}
	u.r.mu.RUnlock()
	return paginate(items, func(profile domain.UserProfile) (time.Time, string) { return profile.CreatedAt, profile.ID }, filter.Pagination)
}
