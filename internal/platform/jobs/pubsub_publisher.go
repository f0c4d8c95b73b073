package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/pubsub"
	"github.com/sony/gobreaker/v2"

	"github.com/jamshaid11601/Emergent/internal/domain"
)

// ErrPublisherUnavailable is returned while the breaker is open.
var ErrPublisherUnavailable = errors.New("event publisher unavailable")

// BreakerSettings tunes the circuit breaker wrapped around topic publishes.
type BreakerSettings struct {
	// ConsecutiveFailures trips the breaker.
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open before probing again.
	OpenTimeout time.Duration
	// PublishTimeout bounds a single publish round trip.
	PublishTimeout time.Duration
}

// Option customises the publisher.
type Option func(*PubSubEventPublisher)

// WithBreakerSettings overrides the breaker defaults.
func WithBreakerSettings(settings BreakerSettings) Option {
	return func(p *PubSubEventPublisher) {
		p.settings = settings
	}
}

// WithStateChangeHook receives breaker state transitions, typically to log them.
func WithStateChangeHook(hook func(name string, from, to string)) Option {
	return func(p *PubSubEventPublisher) {
		p.onStateChange = hook
	}
}

// PubSubEventPublisher publishes order and custom order lifecycle events to Pub/Sub topics.
type PubSubEventPublisher struct {
	orders        *pubsub.Topic
	customOrders  *pubsub.Topic
	breaker       *gobreaker.CircuitBreaker[string]
	settings      BreakerSettings
	onStateChange func(name string, from, to string)
	marshal       func(any) ([]byte, error)
}

// NewPubSubEventPublisher constructs a publisher for the given topics.
func NewPubSubEventPublisher(orders, customOrders *pubsub.Topic, opts ...Option) (*PubSubEventPublisher, error) {
	if orders == nil || customOrders == nil {
		return nil, errors.New("pubsub event publisher: topics are required")
	}
	p := &PubSubEventPublisher{
		orders:       orders,
		customOrders: customOrders,
		settings: BreakerSettings{
			ConsecutiveFailures: 5,
			OpenTimeout:         30 * time.Second,
			PublishTimeout:      10 * time.Second,
		},
		marshal: json.Marshal,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}

	threshold := p.settings.ConsecutiveFailures
	if threshold == 0 {
		threshold = 5
	}
	p.breaker = gobreaker.NewCircuitBreaker[string](gobreaker.Settings{
		Name:        "pubsub-events",
		MaxRequests: 1,
		Timeout:     p.settings.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			if p.onStateChange != nil {
				p.onStateChange(name, from.String(), to.String())
			}
		},
	})
	return p, nil
}

// PublishOrderEvent publishes a committed order transition.
func (p *PubSubEventPublisher) PublishOrderEvent(ctx context.Context, event domain.OrderEvent) error {
	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "orderId", event.OrderID)
	setAttr(attrs, "status", string(event.Status))
	_, err := p.publish(ctx, p.orders, event, attrs, event.OrderID)
	return err
}

// PublishCustomOrderEvent publishes a committed custom order decision.
func (p *PubSubEventPublisher) PublishCustomOrderEvent(ctx context.Context, event domain.CustomOrderEvent) error {
	attrs := make(map[string]string)
	setAttr(attrs, "type", event.Type)
	setAttr(attrs, "customOrderId", event.CustomOrderID)
	setAttr(attrs, "orderId", event.OrderID)
	_, err := p.publish(ctx, p.customOrders, event, attrs, event.CustomOrderID)
	return err
}

func (p *PubSubEventPublisher) publish(ctx context.Context, topic *pubsub.Topic, payload any, attrs map[string]string, orderingKey string) (string, error) {
	if p == nil || topic == nil {
		return "", errors.New("pubsub event publisher: not initialised")
	}
	data, err := p.marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal event: %w", err)
	}

	id, err := p.breaker.Execute(func() (string, error) {
		publishCtx := ctx
		if p.settings.PublishTimeout > 0 {
			var cancel context.CancelFunc
			publishCtx, cancel = context.WithTimeout(ctx, p.settings.PublishTimeout)
			defer cancel()
		}
		msg := &pubsub.Message{Data: data, Attributes: attrs}
		if topic.EnableMessageOrdering {
			msg.OrderingKey = orderingKey
		}
		return topic.Publish(publishCtx, msg).Get(publishCtx)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return "", fmt.Errorf("%w: %v", ErrPublisherUnavailable, err)
	}
	if err != nil {
		return "", fmt.Errorf("publish event to %s: %w", topic.ID(), err)
	}
	return id, nil
}

// Close flushes pending messages.
func (p *PubSubEventPublisher) Close() {
	if p == nil {
		return
	}
	p.orders.Stop()
	p.customOrders.Stop()
}

func setAttr(attrs map[string]string, key string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		attrs[key] = v
	}
}
