package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	"github.com/jamshaid11601/Emergent/internal/platform/textutil"
	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const maxReviewCommentLength = 2000

// ReviewServiceDeps bundles collaborators required to construct a ReviewService.
type ReviewServiceDeps struct {
	Reviews          repositories.ReviewRepository
	Orders           repositories.OrderRepository
	Users            repositories.UserRepository
	Actors           ActorResolver
	Clock            func() time.Time
	ProfanityChecker func(string) bool
	Logger           func(ctx context.Context, event string, fields map[string]any)
}

type reviewService struct {
	reviews   repositories.ReviewRepository
	orders    repositories.OrderRepository
	users     repositories.UserRepository
	actors    ActorResolver
	clock     func() time.Time
	isProfane func(string) bool
	logger    func(context.Context, string, map[string]any)
}

var _ ReviewService = (*reviewService)(nil)

// NewReviewService wires dependencies into a concrete ReviewService implementation.
func NewReviewService(deps ReviewServiceDeps) (ReviewService, error) {
	if deps.Reviews == nil {
		return nil, errors.New("review service: review repository is required")
	}
	if deps.Orders == nil {
		return nil, errors.New("review service: order repository is required")
	}
	if deps.Users == nil {
		return nil, errors.New("review service: user repository is required")
	}
	if deps.Actors == nil {
		return nil, errors.New("review service: actor resolver is required")
	}

	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	profanity := deps.ProfanityChecker
	if profanity == nil {
		profanity = basicProfanityChecker
	}
	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &reviewService{
		reviews: deps.Reviews,
		orders:  deps.Orders,
		users:   deps.Users,
		actors:  deps.Actors,
		clock: func() time.Time {
			return clock().UTC()
		},
		isProfane: profanity,
		logger:    logger,
	}, nil
}

// Create stores the buyer's review of a completed order and refreshes the seller's aggregate. The
// review is keyed by order so a second submission is rejected by storage even under concurrency.
func (s *reviewService) Create(ctx context.Context, cmd CreateReviewCommand) (Review, error) {
	orderID := strings.TrimSpace(cmd.OrderID)
	if orderID == "" {
		return Review{}, fmt.Errorf("%w: order id is required", ErrReviewInvalidInput)
	}
	if cmd.Rating < 1 || cmd.Rating > 5 {
		return Review{}, fmt.Errorf("%w: rating must be between 1 and 5", ErrReviewInvalidInput)
	}
	comment := textutil.Sanitize(cmd.Comment)
	if len([]rune(comment)) > maxReviewCommentLength {
		return Review{}, fmt.Errorf("%w: comment exceeds %d characters", ErrReviewInvalidInput, maxReviewCommentLength)
	}
	if s.isProfane(comment) {
		return Review{}, fmt.Errorf("%w: comment contains profanity", ErrReviewInvalidInput)
	}

	actor, err := s.actors.Resolve(ctx, cmd.ActorID)
	if err != nil {
		return Review{}, denied(err, ErrReviewForbidden, ErrReviewUnavailable)
	}
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return Review{}, reviewRepoErrors.mapRepositoryError(err)
	}
	if err := RequireParty(actor, order.BuyerID, RelationBuyerOf); err != nil {
		return Review{}, fmt.Errorf("%w: %v", ErrReviewForbidden, err)
	}
	if order.Status != domain.OrderStatusCompleted {
		return Review{}, fmt.Errorf("%w: order must be completed before it can be reviewed", ErrReviewInvalidState)
	}

	review := Review{
		ID:        order.ID,
		OrderID:   order.ID,
		ServiceID: order.ServiceID,
		SellerID:  order.SellerID,
		BuyerID:   order.BuyerID,
		Rating:    cmd.Rating,
		Comment:   comment,
		CreatedAt: s.now(),
	}
	created, err := s.reviews.Insert(ctx, review)
	if err != nil {
		var repoErr repositories.RepositoryError
		if errors.As(err, &repoErr) && repoErr.IsConflict() {
			return Review{}, fmt.Errorf("%w: already reviewed", ErrReviewConflict)
		}
		return Review{}, reviewRepoErrors.mapRepositoryError(err)
	}

	if _, err := s.Recompute(ctx, created.SellerID); err != nil {
		s.logger(ctx, "review.rating.recompute.failed", map[string]any{
			"sellerId": created.SellerID,
			"orderId":  created.OrderID,
			"error":    err.Error(),
		})
	}
	return created, nil
}

func (s *reviewService) ListBySeller(ctx context.Context, sellerID string, pager Pagination) (domain.CursorPage[Review], error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return domain.CursorPage[Review]{}, fmt.Errorf("%w: seller id is required", ErrReviewInvalidInput)
	}
	page, err := s.reviews.List(ctx, repositories.ReviewListFilter{SellerID: sellerID, Pagination: pager})
	if err != nil {
		return domain.CursorPage[Review]{}, reviewRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

func (s *reviewService) ListByService(ctx context.Context, serviceID string, pager Pagination) (domain.CursorPage[Review], error) {
	serviceID = strings.TrimSpace(serviceID)
	if serviceID == "" {
		return domain.CursorPage[Review]{}, fmt.Errorf("%w: service id is required", ErrReviewInvalidInput)
	}
	page, err := s.reviews.List(ctx, repositories.ReviewListFilter{ServiceID: serviceID, Pagination: pager})
	if err != nil {
		return domain.CursorPage[Review]{}, reviewRepoErrors.mapRepositoryError(err)
	}
	return page, nil
}

// Recompute rebuilds the seller's rating from every stored review.
func (s *reviewService) Recompute(ctx context.Context, sellerID string) (RatingSummary, error) {
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return RatingSummary{}, fmt.Errorf("%w: seller id is required", ErrReviewInvalidInput)
	}
	reviews, err := s.reviews.ListBySeller(ctx, sellerID)
	if err != nil {
		return RatingSummary{}, reviewRepoErrors.mapRepositoryError(err)
	}
	summary := AggregateRatings(sellerID, reviews)
	if err := s.users.UpdateRating(ctx, summary, s.now()); err != nil {
		return RatingSummary{}, reviewRepoErrors.mapRepositoryError(err)
	}
	s.logger(ctx, "review.rating.recomputed", map[string]any{
		"sellerId":    sellerID,
		"rating":      summary.Rating,
		"reviewCount": summary.ReviewCount,
	})
	return summary, nil
}

// AggregateRatings returns the mean rating rounded to one decimal and the review count. Rounding
// works on the exact value of the mean, so only true ties round half to even. No reviews yields a zero rating.
func AggregateRatings(sellerID string, reviews []Review) RatingSummary {
	summary := RatingSummary{SellerID: sellerID, ReviewCount: len(reviews)}
	if len(reviews) == 0 {
		return summary
	}
	total := 0
	for _, review := range reviews {
		total += review.Rating
	}
	mean := float64(total) / float64(len(reviews))
	summary.Rating = roundRating(mean)
	return summary
}

func roundRating(mean float64) float64 {
	rounded, err := strconv.ParseFloat(strconv.FormatFloat(mean, 'f', 1, 64), 64)
	if err != nil {
		return math.RoundToEven(mean*10) / 10
	}
	return rounded
}

func (s *reviewService) now() time.Time {
	return s.clock()
}

var defaultProfanityTerms = map[string]struct{}{
	"asshole": {},
	"bastard": {},
	"bitch":   {},
	"fuck":    {},
	"fucker":  {},
	"fucking": {},
	"shit":    {},
	"shitty":  {},
	"slut":    {},
	"whore":   {},
}

func basicProfanityChecker(input string) bool {
	if input == "" {
		return false
	}
	words := strings.FieldsFunc(strings.ToLower(input), func(r rune) bool {
		return !(unicode.IsLetter(r) || unicode.IsNumber(r))
	})
	for _, word := range words {
		if _, ok := defaultProfanityTerms[word]; ok {
			return true
		}
	}
	return false
}
