package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/jamshaid11601/Emergent/internal/repositories"
)

type stubCounterRepository struct {
	mu             sync.Mutex
	nextFn         func(context.Context, string, int64) (int64, error)
	configureFn    func(context.Context, string, repositories.CounterConfig) error
	nextCalls      []counterCall
	configureCalls []configureCall
}

type counterCall struct {
	ID   string
	Step int64
}

type configureCall struct {
	ID  string
	Cfg repositories.CounterConfig
}

func (s *stubCounterRepository) Next(ctx context.Context, counterID string, step int64) (int64, error) {
	s.mu.Lock()
	s.nextCalls = append(s.nextCalls, counterCall{ID: counterID, Step: step})
	s.mu.Unlock()
	if s.nextFn != nil {
		return s.nextFn(ctx, counterID, step)
	}
	return 0, nil
}

func (s *stubCounterRepository) Configure(ctx context.Context, counterID string, cfg repositories.CounterConfig) error {
	s.mu.Lock()
	s.configureCalls = append(s.configureCalls, configureCall{ID: counterID, Cfg: cfg})
	s.mu.Unlock()
	if s.configureFn != nil {
		return s.configureFn(ctx, counterID, cfg)
	}
	return nil
}

func TestCodeServiceFormatsOrderCodes(t *testing.T) {
	repo := &stubCounterRepository{}
	repo.nextFn = func(_ context.Context, counterID string, _ int64) (int64, error) {
		if counterID == customOrderCodeCounter {
			return 12, nil
		}
		return 7, nil
	}

	svc, err := NewCodeService(CodeServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("new code service: %v", err)
	}

	code, err := svc.NextOrderCode(context.Background())
	if err != nil {
		t.Fatalf("next order code: %v", err)
	}
	if code != "ORD-000007" {
		t.Fatalf("expected ORD-000007, got %s", code)
	}
	code, err = svc.NextCustomOrderCode(context.Background())
	if err != nil {
		t.Fatalf("next custom order code: %v", err)
	}
	if code != "CUS-000012" {
		t.Fatalf("expected CUS-000012, got %s", code)
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.nextCalls) != 2 || repo.nextCalls[0].ID != orderCodeCounter || repo.nextCalls[0].Step != 1 {
		t.Fatalf("unexpected next calls %+v", repo.nextCalls)
	}
	if len(repo.configureCalls) != 0 {
		t.Fatalf("expected no configure calls without a max value, got %d", len(repo.configureCalls))
	}
}

func TestCodeServiceConfiguresMaxValueOnce(t *testing.T) {
	repo := &stubCounterRepository{}
	repo.nextFn = func(context.Context, string, int64) (int64, error) { return 1, nil }

	svc, err := NewCodeService(CodeServiceDeps{Repository: repo, MaxValue: 999})
	if err != nil {
		t.Fatalf("new code service: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := svc.NextOrderCode(context.Background()); err != nil {
			t.Fatalf("next order code: %v", err)
		}
	}

	repo.mu.Lock()
	defer repo.mu.Unlock()
	if len(repo.configureCalls) != 1 {
		t.Fatalf("expected configure called once, got %d", len(repo.configureCalls))
	}
	cfg := repo.configureCalls[0].Cfg
	if cfg.MaxValue == nil || *cfg.MaxValue != 999 {
		t.Fatalf("expected max value 999, got %+v", cfg)
	}
}

func TestCodeServiceMapsRepositoryErrors(t *testing.T) {
	repo := &stubCounterRepository{}
	repo.nextFn = func(context.Context, string, int64) (int64, error) {
		return 0, repositories.NewCounterError(repositories.CounterErrorExhausted, "limit", nil)
	}

	svc, err := NewCodeService(CodeServiceDeps{Repository: repo})
	if err != nil {
		t.Fatalf("new code service: %v", err)
	}
	if _, err := svc.NextOrderCode(context.Background()); !errors.Is(err, ErrCounterExhausted) {
		t.Fatalf("expected exhausted error, got %v", err)
	}

	repo.nextFn = func(context.Context, string, int64) (int64, error) {
		return 0, repositories.NewCounterError(repositories.CounterErrorInvalidInput, "bad step", nil)
	}
	if _, err := svc.NextCustomOrderCode(context.Background()); !errors.Is(err, ErrCounterInvalidInput) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
}

func TestFormatCodeKeepsLargeSequences(t *testing.T) {
	if got := formatCode(orderCodePrefix, 1234567); got != "ORD-1234567" {
		t.Fatalf("expected every digit kept, got %s", got)
	}
}
