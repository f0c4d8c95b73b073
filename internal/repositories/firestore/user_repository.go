package firestore

import (
	"context"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

// UserRepository persists user profiles keyed by Firebase UID.
type UserRepository struct {
	base *pfirestore.BaseRepository[userDocument]
}

// NewUserRepository constructs a Firestore-backed user repository.
func NewUserRepository(provider *pfirestore.Provider) *UserRepository {
	return &UserRepository{base: pfirestore.NewBaseRepository[userDocument](provider, usersCollection)}
}

// FindByID loads the user profile by UID.
func (r *UserRepository) FindByID(ctx context.Context, userID string) (domain.UserProfile, error) {
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	return doc.Data.toDomain(doc.ID), nil
}

// Upsert writes profile fields inside a transaction and keeps createdAt and the derived rating of
// an existing profile.
func (r *UserRepository) Upsert(ctx context.Context, profile domain.UserProfile) (domain.UserProfile, error) {
	ref, err := r.base.DocumentRef(ctx, profile.ID)
	if err != nil {
		return domain.UserProfile{}, err
	}
	var saved domain.UserProfile
	err = r.base.Provider().RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		now := time.Now().UTC()
		doc := fromDomainProfile(profile)
		existing, err := r.base.GetTx(ctx, tx, profile.ID)
		switch {
		case err == nil:
			doc.CreatedAt = existing.Data.CreatedAt
			doc.Rating = existing.Data.Rating
			doc.ReviewCount = existing.Data.ReviewCount
		case isNotFound(err):
			if doc.CreatedAt.IsZero() {
				doc.CreatedAt = now
			}
		default:
			return err
		}
		if doc.UpdatedAt.IsZero() {
			doc.UpdatedAt = now
		}
		saved = doc.toDomain(profile.ID)
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.UserProfile{}, err
	}
	return saved, nil
}

// UpdateRating writes the derived aggregate onto an existing profile.
func (r *UserRepository) UpdateRating(ctx context.Context, summary domain.RatingSummary, updatedAt time.Time) error {
	return r.base.Update(ctx, summary.SellerID, []firestore.Update{
		{Path: "rating", Value: summary.Rating},
		{Path: "reviewCount", Value: summary.ReviewCount},
		{Path: "updatedAt", Value: updatedAt.UTC()},
	})
}

// List pages through user profiles newest first, filtered by role and activity.
func (r *UserRepository) List(ctx context.Context, filter repositories.UserListFilter) (domain.CursorPage[domain.UserProfile], error) {
	build := func(q firestore.Query) firestore.Query {
		if filter.Role != "" {
			q = q.Where("role", "==", filter.Role)
		}
		if filter.ActiveOnly {
			q = q.Where("isActive", "==", true)
		}
		return q
	}
	docs, next, err := r.base.Page(ctx, build, filter.Pagination.PageSize, filter.Pagination.PageToken,
		func(d userDocument) time.Time { return d.CreatedAt })
	if err != nil {
		return domain.CursorPage[domain.UserProfile]{}, err
	}
	items := make([]domain.UserProfile, 0, len(docs))
	for _, doc := range docs {
		items = append(items, doc.Data.toDomain(doc.ID))
	}
	return domain.CursorPage[domain.UserProfile]{Items: items, NextPageToken: next}, nil
}

type userDocument struct {
	DisplayName string    `firestore:"displayName"`
	Email       string    `firestore:"email"`
	Role        string    `firestore:"role"`
	Rating      float64   `firestore:"rating"`
	ReviewCount int       `firestore:"reviewCount"`
	IsActive    bool      `firestore:"isActive"`
	CreatedAt   time.Time `firestore:"createdAt"`
	UpdatedAt   time.Time `firestore:"updatedAt"`
}

func fromDomainProfile(profile domain.UserProfile) userDocument {
	return userDocument{
		DisplayName: strings.TrimSpace(profile.DisplayName),
		Email:       strings.ToLower(strings.TrimSpace(profile.Email)),
		Role:        string(profile.Role),
		Rating:      profile.Rating,
		ReviewCount: profile.ReviewCount,
		IsActive:    profile.IsActive,
		CreatedAt:   profile.CreatedAt.UTC(),
		UpdatedAt:   profile.UpdatedAt.UTC(),
	}
}

func (d userDocument) toDomain(id string) domain.UserProfile {
	return domain.UserProfile{
		ID:          id,
		DisplayName: d.DisplayName,
		Email:       d.Email,
		Role:        domain.UserRole(d.Role),
		Rating:      d.Rating,
		ReviewCount: d.ReviewCount,
		IsActive:    d.IsActive,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}
