//go:build integration

package firestore_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"cloud.google.com/go/firestore"

	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
	"github.com/jamshaid11601/Emergent/internal/platform/firestore/firestoretest"
)

type sampleDoc struct {
	Name      string    `firestore:"name"`
	Count     int       `firestore:"count"`
	CreatedAt time.Time `firestore:"createdAt"`
}

func TestBaseRepositoryIntegration(t *testing.T) {
	provider := firestoretest.NewProvider(t)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := provider.Ping(ctx); err != nil {
		t.Fatalf("ping failed: %v", err)
	}

	repo := pfirestore.NewBaseRepository[sampleDoc](provider, "samples")
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		id := fmt.Sprintf("sample-%d", i)
		if err := repo.Create(ctx, id, sampleDoc{Name: id, CreatedAt: base.Add(time.Duration(i) * time.Minute)}); err != nil {
			t.Fatalf("create %s failed: %v", id, err)
		}
	}

	type classifier interface {
		IsNotFound() bool
		IsConflict() bool
	}
	var cls classifier
	if err := repo.Create(ctx, "sample-0", sampleDoc{Name: "dup"}); !errors.As(err, &cls) || !cls.IsConflict() {
		t.Fatalf("expected conflict on duplicate create, got %v", err)
	}
	if _, err := repo.Get(ctx, "missing"); !errors.As(err, &cls) || !cls.IsNotFound() {
		t.Fatalf("expected not found classification, got %v", err)
	}

	createdAt := func(doc sampleDoc) time.Time { return doc.CreatedAt }
	first, token, err := repo.Page(ctx, nil, 3, "", createdAt)
	if err != nil {
		t.Fatalf("page 1 failed: %v", err)
	}
	if len(first) != 3 || first[0].ID != "sample-4" || token == "" {
		t.Fatalf("unexpected first page %+v token %q", first, token)
	}
	second, token, err := repo.Page(ctx, nil, 3, token, createdAt)
	if err != nil {
		t.Fatalf("page 2 failed: %v", err)
	}
	if len(second) != 2 || second[0].ID != "sample-1" || token != "" {
		t.Fatalf("unexpected second page %+v token %q", second, token)
	}

	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		doc, err := repo.GetTx(ctx, tx, "sample-1")
		if err != nil {
			return err
		}
		ref, err := repo.DocumentRef(ctx, doc.ID)
		if err != nil {
			return err
		}
		doc.Data.Count++
		return tx.Set(ref, doc.Data)
	})
	if err != nil {
		t.Fatalf("transaction failed: %v", err)
	}
	doc, err := repo.Get(ctx, "sample-1")
	if err != nil || doc.Data.Count != 1 {
		t.Fatalf("expected count 1 after transaction, got %+v (%v)", doc.Data, err)
	}

	sentinel := errors.New("guard failed")
	err = provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		return fmt.Errorf("%w: order already processed", sentinel)
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("expected sentinel to survive wrapping, got %v", err)
	}

	cancelled, cancelTxn := context.WithCancel(context.Background())
	cancelTxn()
	if err := provider.RunTransaction(cancelled, func(context.Context, *firestore.Transaction) error { return nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context canceled error, got %v", err)
	}
}
