package otel

import (
	"context"
	"database/sql"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/dealflow/internal/adapter/sqlite"
	"github.com/neomorfeo/dealflow/internal/domain"
)

// TracingOutbox wraps an activity outbox with a span per enqueue and a
// counter of appended activities by type.
type TracingOutbox struct {
	next     sqlite.ActivityOutbox
	tracer   trace.Tracer
	appended metric.Int64Counter
}

// Compile-time check: TracingOutbox implements sqlite.ActivityOutbox.
var _ sqlite.ActivityOutbox = (*TracingOutbox)(nil)

// NewTracingOutbox creates a tracing decorator around the given outbox.
func NewTracingOutbox(next sqlite.ActivityOutbox) (*TracingOutbox, error) {
	appended, err := otel.Meter(tracerName).Int64Counter("dealflow.activities.appended",
		metric.WithDescription("Activities appended to deal histories"),
		metric.WithUnit("{activity}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating activity counter: %w", err)
	}
	return &TracingOutbox{
		next:     next,
		tracer:   otel.Tracer(tracerName),
		appended: appended,
	}, nil
}

func (o *TracingOutbox) EnqueueTx(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	typ := attribute.String("activity.type", string(a.Type))
	ctx, span := o.tracer.Start(ctx, "ActivityOutbox.EnqueueTx",
		trace.WithAttributes(
			attribute.String("activity.id", a.ID),
			attribute.String("deal.id", a.DealID),
			typ,
		),
	)
	defer span.End()

	err := o.next.EnqueueTx(ctx, tx, a)
	recordError(span, err)
	if err == nil {
		o.appended.Add(ctx, 1, metric.WithAttributes(typ))
	}
	return err
}
