package memory

import (
	"context"
	"time"

	domain "github.com/jamshaid11601/Emergent/internal/domain"
)

type messageRepository struct{ r *Registry }

func (m *messageRepository) Insert(_ context.Context, message domain.Message) error {
	if err := requireID("messages.insert", message.ID); err != nil {
		return err
	}
	m.r.mu.Lock()
	defer m.r.mu.Unlock()
	if _, ok := m.r.messages[message.ID]; ok {
		return conflict("messages.insert", message.ID)
	}
	message.Attachments = cloneStrings(message.Attachments)
	m.r.messages[message.ID] = message
	return nil
}

func (m *messageRepository) ListByOrder(_ context.Context, orderID string, pager domain.Pagination) (domain.CursorPage[domain.Message], error) {
	m.r.mu.RLock()
	items := make([]domain.Message, 0)
	for _, message := range m.r.messages {
		if message.OrderID == orderID {
			message.Attachments = cloneStrings(message.Attachments)
			items = append(items, message)
		}
	}
	m.r.mu.RUnlock()
	return paginate(items, func(message domain.Message) (time.Time, string) { return message.CreatedAt, message.ID }, pager)
}
