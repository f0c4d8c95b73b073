package payments

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const mockProviderName = "mock"

// MockProvider keeps intents in memory and never moves money.
type MockProvider struct {
	mu          sync.Mutex
	intents     map[string]PaymentDetails
	idempotency map[string]string
	now         func() time.Time
	newID       func() string
}

// MockOption configures the mock provider.
type MockOption func(*MockProvider)

// WithMockClock overrides the time source.
func WithMockClock(now func() time.Time) MockOption {
	return func(p *MockProvider) {
		if now != nil {
			p.now = now
		}
	}
}

// NewMockProvider constructs an empty mock provider.
func NewMockProvider(opts ...MockOption) *MockProvider {
	p := &MockProvider{
		intents:     make(map[string]PaymentDetails),
		idempotency: make(map[string]string),
		now:         time.Now,
		newID: func() string {
			return "pi_mock_" + strings.ReplaceAll(uuid.NewString(), "-", "")
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Hold creates a held intent. A repeated idempotency key returns the original intent.
func (p *MockProvider) Hold(ctx context.Context, req HoldRequest) (PaymentDetails, error) {
	if err := ctx.Err(); err != nil {
		return PaymentDetails{}, err
	}
	if req.Amount <= 0 {
		return PaymentDetails{}, ErrInvalidAmount
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		if id, ok := p.idempotency[key]; ok {
			return p.intents[id], nil
		}
	}
	details := PaymentDetails{
		Provider:  mockProviderName,
		IntentID:  p.newID(),
		Status:    StatusHeld,
		Amount:    req.Amount,
		UpdatedAt: p.now().UTC(),
	}
	p.intents[details.IntentID] = details
	if key := strings.TrimSpace(req.IdempotencyKey); key != "" {
		p.idempotency[key] = details.IntentID
	}
	return details, nil
}

// Release marks a held intent released.
func (p *MockProvider) Release(ctx context.Context, req ReleaseRequest) (PaymentDetails, error) {
	return p.transition(ctx, req.IntentID, StatusReleased)
}

// Refund marks a held intent refunded.
func (p *MockProvider) Refund(ctx context.Context, req RefundRequest) (PaymentDetails, error) {
	return p.transition(ctx, req.IntentID, StatusRefunded)
}

// Lookup returns the stored intent.
func (p *MockProvider) Lookup(intentID string) (PaymentDetails, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	details, ok := p.intents[intentID]
	return details, ok
}

func (p *MockProvider) transition(ctx context.Context, intentID string, target Status) (PaymentDetails, error) {
	if err := ctx.Err(); err != nil {
		return PaymentDetails{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()

	details, ok := p.intents[intentID]
	if !ok {
		// Intents created before a restart are unknown to the in-memory store.
		if !strings.HasPrefix(intentID, "pi_mock_") {
			return PaymentDetails{}, fmt.Errorf("%w: %s", ErrIntentNotFound, intentID)
		}
		details = PaymentDetails{Provider: mockProviderName, IntentID: intentID, Status: StatusHeld}
	}
	switch details.Status {
	case target:
		return details, nil
	case StatusHeld:
	default:
		return PaymentDetails{}, fmt.Errorf("%w: %s is %s", ErrInvalidTransition, intentID, details.Status)
	}
	details.Status = target
	details.UpdatedAt = p.now().UTC()
	p.intents[intentID] = details
	return details, nil
}
