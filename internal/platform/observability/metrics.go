package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/jamshaid11601/Emergent/internal/platform/observability"

// WorkflowMetrics counts lifecycle transitions of orders and custom orders.
type WorkflowMetrics struct {
	orderTransitions metric.Int64Counter
	customDecisions  metric.Int64Counter
}

// NewWorkflowMetrics registers the counters on the supplied meter provider, falling back to the
// global provider when nil.
func NewWorkflowMetrics(provider metric.MeterProvider) (*WorkflowMetrics, error) {
	if provider == nil {
		provider = otel.GetMeterProvider()
	}
	meter := provider.Meter(meterName)

	transitions, err := meter.Int64Counter("order.transitions",
		metric.WithDescription("Order status transitions"),
		metric.WithUnit("{transition}"),
	)
	if err != nil {
		return nil, err
	}
	decisions, err := meter.Int64Counter("custom_order.decisions",
		metric.WithDescription("Custom order proposals and decisions"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	return &WorkflowMetrics{orderTransitions: transitions, customDecisions: decisions}, nil
}

// OrderTransition records an order moving from one status to another. A nil receiver is a no-op.
func (m *WorkflowMetrics) OrderTransition(ctx context.Context, from, to string) {
	if m == nil {
		return
	}
	m.orderTransitions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("from", from),
		attribute.String("to", to),
	))
}

// CustomOrderDecision records a custom order outcome such as proposed, accepted or rejected.
func (m *WorkflowMetrics) CustomOrderDecision(ctx context.Context, outcome string) {
	if m == nil {
		return
	}
	m.customDecisions.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
