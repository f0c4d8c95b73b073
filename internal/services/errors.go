package services

import (
	"errors"
	"fmt"

	"github.com/jamshaid11601/Emergent/internal/repositories"
)

var (
	// ErrOrderInvalidInput signals the caller provided invalid data.
	ErrOrderInvalidInput = errors.New("order: invalid input")
	// ErrOrderNotFound indicates the order or its service could not be located.
	ErrOrderNotFound = errors.New("order: not found")
	// ErrOrderForbidden indicates the caller may not perform the operation.
	ErrOrderForbidden = errors.New("order: forbidden")
	// ErrOrderInvalidState indicates the transition is not allowed from the current status.
	ErrOrderInvalidState = errors.New("order: invalid state")
	// ErrOrderUnavailable indicates storage or the payment provider failed.
	ErrOrderUnavailable = errors.New("order: unavailable")

	// ErrCustomOrderInvalidInput signals the caller provided invalid data.
	ErrCustomOrderInvalidInput = errors.New("custom order: invalid input")
	// ErrCustomOrderNotFound indicates the custom order or a referenced user is missing.
	ErrCustomOrderNotFound = errors.New("custom order: not found")
	// ErrCustomOrderForbidden indicates the caller may not perform the operation.
	ErrCustomOrderForbidden = errors.New("custom order: forbidden")
	// ErrCustomOrderInvalidState indicates the custom order was already decided.
	ErrCustomOrderInvalidState = errors.New("custom order: invalid state")
	// ErrCustomOrderUnavailable indicates storage or the payment provider failed.
	ErrCustomOrderUnavailable = errors.New("custom order: unavailable")

	// ErrReviewInvalidInput indicates validation failures for review operations.
	ErrReviewInvalidInput = errors.New("review: invalid input")
	// ErrReviewNotFound indicates the reviewed order could not be located.
	ErrReviewNotFound = errors.New("review: not found")
	// ErrReviewForbidden indicates the caller is not the buyer of the order.
	ErrReviewForbidden = errors.New("review: forbidden")
	// ErrReviewInvalidState indicates the order is not completed.
	ErrReviewInvalidState = errors.New("review: invalid state")
	// ErrReviewConflict signals a second review for the same order.
	ErrReviewConflict = errors.New("review: conflict")
	// ErrReviewUnavailable indicates storage failed.
	ErrReviewUnavailable = errors.New("review: unavailable")

	// ErrMessageInvalidInput indicates an empty or malformed message.
	ErrMessageInvalidInput = errors.New("message: invalid input")
	// ErrMessageNotFound indicates the order is missing or not visible to the caller.
	ErrMessageNotFound = errors.New("message: not found")
	// ErrMessageUnavailable indicates storage failed.
	ErrMessageUnavailable = errors.New("message: unavailable")

	// ErrCatalogInvalidInput indicates malformed service or package data.
	ErrCatalogInvalidInput = errors.New("catalog: invalid input")
	// ErrCatalogNotFound indicates the service could not be located.
	ErrCatalogNotFound = errors.New("catalog: not found")
	// ErrCatalogForbidden indicates the caller is not a seller or not the owner.
	ErrCatalogForbidden = errors.New("catalog: forbidden")
	// ErrCatalogUnavailable indicates storage failed.
	ErrCatalogUnavailable = errors.New("catalog: unavailable")

	// ErrUserInvalidInput indicates malformed user data.
	ErrUserInvalidInput = errors.New("user: invalid input")
	// ErrUserNotFound indicates the profile could not be located.
	ErrUserNotFound = errors.New("user: not found")
	// ErrUserForbidden indicates the caller is not an admin.
	ErrUserForbidden = errors.New("user: forbidden")
	// ErrUserUnavailable indicates storage or the identity provider failed.
	ErrUserUnavailable = errors.New("user: unavailable")
)

// repositoryErrors maps repository failure classes onto one workflow's sentinels.
type repositoryErrors struct {
	notFound    error
	conflict    error
	unavailable error
}

var (
	orderRepoErrors       = repositoryErrors{notFound: ErrOrderNotFound, conflict: ErrOrderInvalidState, unavailable: ErrOrderUnavailable}
	customOrderRepoErrors = repositoryErrors{notFound: ErrCustomOrderNotFound, conflict: ErrCustomOrderInvalidState, unavailable: ErrCustomOrderUnavailable}
	reviewRepoErrors      = repositoryErrors{notFound: ErrReviewNotFound, conflict: ErrReviewConflict, unavailable: ErrReviewUnavailable}
	messageRepoErrors     = repositoryErrors{notFound: ErrMessageNotFound, conflict: ErrMessageInvalidInput, unavailable: ErrMessageUnavailable}
	catalogRepoErrors     = repositoryErrors{notFound: ErrCatalogNotFound, conflict: ErrCatalogInvalidInput, unavailable: ErrCatalogUnavailable}
	userRepoErrors        = repositoryErrors{notFound: ErrUserNotFound, conflict: ErrUserInvalidInput, unavailable: ErrUserUnavailable}
)

// mapRepositoryError translates err into the workflow's sentinels. Errors that already carry one of
// the service sentinels pass through unchanged; guards inside repository mutations return those.
func (m repositoryErrors) mapRepositoryError(err error) error {
	if err == nil {
		return nil
	}
	if isServiceError(err) {
		return err
	}

	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return fmt.Errorf("%w: %v", m.notFound, err)
		case repoErr.IsConflict():
			return fmt.Errorf("%w: %v", m.conflict, err)
		case repoErr.IsUnavailable():
			return fmt.Errorf("%w: %v", m.unavailable, err)
		}
	}
	return fmt.Errorf("%w: %v", m.unavailable, err)
}

var serviceSentinels = []error{
	ErrOrderInvalidInput, ErrOrderNotFound, ErrOrderForbidden, ErrOrderInvalidState, ErrOrderUnavailable,
	ErrCustomOrderInvalidInput, ErrCustomOrderNotFound, ErrCustomOrderForbidden, ErrCustomOrderInvalidState, ErrCustomOrderUnavailable,
	ErrReviewInvalidInput, ErrReviewNotFound, ErrReviewForbidden, ErrReviewInvalidState, ErrReviewConflict, ErrReviewUnavailable,
	ErrMessageInvalidInput, ErrMessageNotFound, ErrMessageUnavailable,
	ErrCatalogInvalidInput, ErrCatalogNotFound, ErrCatalogForbidden, ErrCatalogUnavailable,
	ErrUserInvalidInput, ErrUserNotFound, ErrUserForbidden, ErrUserUnavailable,
	ErrCounterInvalidInput, ErrCounterExhausted,
}

func isServiceError(err error) bool {
	for _, sentinel := range serviceSentinels {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
