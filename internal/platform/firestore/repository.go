package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"

	"github.com/jamshaid11601/Emergent/internal/platform/pagination"
)

// CreatedAtField is the timestamp every paginated collection orders by.
const CreatedAtField = "createdAt"

// Document represents a strongly typed Firestore document with metadata timestamps.
type Document[T any] struct {
	ID         string
	Data       T
	UpdateTime time.Time
}

// QueryBuilder customises Firestore queries before execution.
type QueryBuilder func(query firestore.Query) firestore.Query

// BaseRepository provides typed helpers over one collection. T is the storage document struct with
// firestore tags; repositories convert it to domain types.
type BaseRepository[T any] struct {
	provider   *Provider
	collection string
}

// NewBaseRepository constructs a BaseRepository bound to a collection.
func NewBaseRepository[T any](provider *Provider, collection string) *BaseRepository[T] {
	return &BaseRepository[T]{provider: provider, collection: strings.TrimSpace(collection)}
}

// Provider exposes the provider for repositories that need transactions.
func (r *BaseRepository[T]) Provider() *Provider {
	return r.provider
}

// Create writes a new document and fails with a conflict when the ID already exists.
func (r *BaseRepository[T]) Create(ctx context.Context, id string, value T) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Create(ctx, value); err != nil {
		return WrapError(r.op("create"), err)
	}
	return nil
}

// Set upserts the value under the provided document ID.
func (r *BaseRepository[T]) Set(ctx context.Context, id string, value T, opts ...firestore.SetOption) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Set(ctx, value, opts...); err != nil {
		return WrapError(r.op("set"), err)
	}
	return nil
}

// Update applies field updates to an existing document.
func (r *BaseRepository[T]) Update(ctx context.Context, id string, updates []firestore.Update) error {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return err
	}
	if _, err := doc.Update(ctx, updates); err != nil {
		return WrapError(r.op("update"), err)
	}
	return nil
}

// Get fetches the document by ID.
func (r *BaseRepository[T]) Get(ctx context.Context, id string) (Document[T], error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snapshot, err := doc.Get(ctx)
	if err != nil {
		return Document[T]{}, WrapError(r.op("get"), err)
	}
	return r.Decode(snapshot)
}

// GetTx reads the document inside a transaction, returning a not-found error for missing documents.
func (r *BaseRepository[T]) GetTx(ctx context.Context, tx *firestore.Transaction, id string) (Document[T], error) {
	doc, err := r.DocumentRef(ctx, id)
	if err != nil {
		return Document[T]{}, err
	}
	snapshot, err := tx.Get(doc)
	if err != nil {
		return Document[T]{}, WrapError(r.op("tx.get"), err)
	}
	return r.Decode(snapshot)
}

// Query executes a collection query and returns all decoded documents.
func (r *BaseRepository[T]) Query(ctx context.Context, build QueryBuilder) ([]Document[T], error) {
	coll, err := r.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}
	return r.collect(ctx, query, 0)
}

// Page returns one page of documents ordered newest first by createdAt then document ID. The
// returned token encodes the last item and is empty when no further items exist.
func (r *BaseRepository[T]) Page(ctx context.Context, build QueryBuilder, pageSize int, pageToken string, createdAt func(T) time.Time) ([]Document[T], string, error) {
	if pageSize <= 0 {
		pageSize = pagination.DefaultPageSize
	}
	coll, err := r.CollectionRef(ctx)
	if err != nil {
		return nil, "", err
	}
	query := coll.Query
	if build != nil {
		query = build(query)
	}
	query = query.OrderBy(CreatedAtField, firestore.Desc).OrderBy(firestore.DocumentID, firestore.Desc)

	if strings.TrimSpace(pageToken) != "" {
		cursor, err := pagination.DecodeToken(pageToken)
		if err != nil {
			return nil, "", err
		}
		query = query.StartAfter(cursor.CreatedAt, coll.Doc(cursor.ID))
	}

	docs, err := r.collect(ctx, query.Limit(pageSize+1), pageSize+1)
	if err != nil {
		return nil, "", err
	}
	if len(docs) <= pageSize {
		return docs, "", nil
	}
	docs = docs[:pageSize]
	last := docs[len(docs)-1]
	token, err := pagination.EncodeToken(pagination.Cursor{CreatedAt: createdAt(last.Data), ID: last.ID})
	if err != nil {
		return nil, "", err
	}
	return docs, token, nil
}

func (r *BaseRepository[T]) collect(ctx context.Context, query firestore.Query, capacity int) ([]Document[T], error) {
	iter := query.Documents(ctx)
	defer iter.Stop()

	docs := make([]Document[T], 0, capacity)
	for {
		snapshot, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, WrapError(r.op("query"), err)
		}
		decoded, err := r.Decode(snapshot)
		if err != nil {
			return nil, err
		}
		docs = append(docs, decoded)
	}
	return docs, nil
}

// Decode converts a snapshot into a typed document.
func (r *BaseRepository[T]) Decode(snapshot *firestore.DocumentSnapshot) (Document[T], error) {
	var data T
	if err := snapshot.DataTo(&data); err != nil {
		return Document[T]{}, fmt.Errorf("firestore: decode document %s: %w", snapshot.Ref.ID, err)
	}
	return Document[T]{ID: snapshot.Ref.ID, Data: data, UpdateTime: snapshot.UpdateTime}, nil
}

// CollectionRef returns the underlying collection reference.
func (r *BaseRepository[T]) CollectionRef(ctx context.Context) (*firestore.CollectionRef, error) {
	if r == nil || r.provider == nil {
		return nil, WrapError(r.op("collection"), errors.New("firestore: provider is nil"))
	}
	if r.collection == "" {
		return nil, WrapError(r.op("collection"), errors.New("firestore: collection name is required"))
	}
	client, err := r.provider.Client(ctx)
	if err != nil {
		return nil, err
	}
	return client.Collection(r.collection), nil
}

// DocumentRef exposes the document reference for transactional access.
func (r *BaseRepository[T]) DocumentRef(ctx context.Context, id string) (*firestore.DocumentRef, error) {
	if strings.TrimSpace(id) == "" {
		return nil, WrapError(r.op("document"), errors.New("firestore: document id is required"))
	}
	coll, err := r.CollectionRef(ctx)
	if err != nil {
		return nil, err
	}
	return coll.Doc(id), nil
}

func (r *BaseRepository[T]) op(action string) string {
	name := "firestore"
	if r != nil && r.collection != "" {
		name = r.collection
	}
	return name + "." + action
}
