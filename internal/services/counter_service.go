package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jamshaid11601/Emergent/internal/repositories"
)

const (
	orderCodeCounter       = "orders"
	customOrderCodeCounter = "customOrders"
	orderCodePrefix        = "ORD-"
	customOrderCodePrefix  = "CUS-"
	codePadLength          = 6
)

var (
	// ErrCounterInvalidInput indicates the caller supplied invalid counter parameters.
	ErrCounterInvalidInput = errors.New("counter: invalid input")
	// ErrCounterExhausted indicates the counter cannot increment further due to max bounds.
	ErrCounterExhausted = errors.New("counter: exhausted")
)

// CodeServiceDeps bundles collaborators required to construct a code service.
type CodeServiceDeps struct {
	Repository repositories.CounterRepository
	// MaxValue bounds every sequence; zero means unbounded.
	MaxValue int64
}

type codeService struct {
	repo       repositories.CounterRepository
	maxValue   int64
	configMu   sync.Mutex
	configured map[string]bool
}

var _ CodeService = (*codeService)(nil)

// NewCodeService constructs a service that formats counter sequences as order codes.
func NewCodeService(deps CodeServiceDeps) (CodeService, error) {
	if deps.Repository == nil {
		return nil, errors.New("code service: counter repository is required")
	}
	if deps.MaxValue < 0 {
		return nil, errors.New("code service: max value must not be negative")
	}
	return &codeService{
		repo:       deps.Repository,
		maxValue:   deps.MaxValue,
		configured: make(map[string]bool),
	}, nil
}

func (s *codeService) NextOrderCode(ctx context.Context) (string, error) {
	return s.next(ctx, orderCodeCounter, orderCodePrefix)
}

func (s *codeService) NextCustomOrderCode(ctx context.Context) (string, error) {
	return s.next(ctx, customOrderCodeCounter, customOrderCodePrefix)
}

func (s *codeService) next(ctx context.Context, counterID, prefix string) (string, error) {
	counterID = strings.TrimSpace(counterID)
	if counterID == "" {
		return "", fmt.Errorf("%w: counter id is required", ErrCounterInvalidInput)
	}
	if err := s.ensureConfiguration(ctx, counterID); err != nil {
		return "", err
	}

	value, err := s.repo.Next(ctx, counterID, 1)
	if err != nil {
		var counterErr *repositories.CounterError
		if errors.As(err, &counterErr) {
			switch counterErr.Code {
			case repositories.CounterErrorInvalidInput:
				return "", fmt.Errorf("%w: %s", ErrCounterInvalidInput, counterErr.Message)
			case repositories.CounterErrorExhausted:
				return "", fmt.Errorf("%w: %s", ErrCounterExhausted, counterErr.Message)
			}
		}
		return "", err
	}
	return formatCode(prefix, value), nil
}

func (s *codeService) ensureConfiguration(ctx context.Context, counterID string) error {
	if s.maxValue == 0 {
		return nil
	}
	s.configMu.Lock()
	defer s.configMu.Unlock()
	if s.configured[counterID] {
		return nil
	}
	maxValue := s.maxValue
	if err := s.repo.Configure(ctx, counterID, repositories.CounterConfig{MaxValue: &maxValue}); err != nil {
		return err
	}
	s.configured[counterID] = true
	return nil
}

// formatCode pads to six digits; larger sequences keep every digit.
func formatCode(prefix string, value int64) string {
	return fmt.Sprintf("%s%0*d", prefix, codePadLength, value)
}
