package firestore

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
	pfirestore "github.com/jamshaid11601/Emergent/internal/platform/firestore"
)

// MessageRepository stores order conversation messages in a flat collection indexed by orderId.
type MessageRepository struct {
	base *pfirestore.BaseRepository[messageDocument]
}

// NewMessageRepository constructs a Firestore-backed message repository.
func NewMessageRepository(provider *pfirestore.Provider) *MessageRepository {
	return &MessageRepository{base: pfirestore.NewBaseRepository[messageDocument](provider, messagesCollection)}
}

// Insert stores a message.
func (r *MessageRepository) Insert(ctx context.Context, message domain.Message) error {
	return r.base.Create(ctx, message.ID, messageDocument{
		OrderID:     message.OrderID,
		SenderID:    message.SenderID,
		Body:        message.Body,
		Attachments: append([]string(nil), message.Attachments...),
		CreatedAt:   message.CreatedAt.UTC(),
	})
}

// ListByOrder pages through an order's messages newest first.
func (r *MessageRepository) ListByOrder(ctx context.Context, orderID string, pager domain.Pagination) (domain.CursorPage[domain.Message], error) {
	docs, next, err := r.base.Page(ctx, func(q firestore.Query) firestore.Query {
		return q.Where("orderId", "==", orderID)
	}, pager.PageSize, pager.PageToken, func(d messageDocument) time.Time { return d.CreatedAt })
	if err != nil {
		return domain.CursorPage[domain.Message]{}, err
	}
	items := make([]domain.Message, 0, len(docs))
	for _, doc := range docs {
		items = append(items, domain.Message{
			ID:          doc.ID,
			OrderID:     doc.Data.OrderID,
			SenderID:    doc.Data.SenderID,
			Body:        doc.Data.Body,
			Attachments: doc.Data.Attachments,
			CreatedAt:   doc.Data.CreatedAt,
		})
	}
	return domain.CursorPage[domain.Message]{Items: items, NextPageToken: next}, nil
}

type messageDocument struct {
	OrderID     string    `firestore:"orderId"`
	SenderID    string    `firestore:"senderId"`
	Body        string    `firestore:"body"`
	Attachments []string  `firestore:"attachments"`
	CreatedAt   time.Time `firestore:"createdAt"`
}
