package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/dealflow/internal/domain"
)

const tracerName = "github.com/neomorfeo/dealflow/internal/adapter/otel"

// TracingRepository wraps a domain.Repository with OpenTelemetry tracing.
// Stores handed out by WithinTx are traced as well, so spans for calls made
// inside a transaction nest under the Repository.WithinTx span.
type TracingRepository struct {
	tracingStore
	repo domain.Repository
}

// Compile-time check: TracingRepository implements domain.Repository.
var _ domain.Repository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.Repository) *TracingRepository {
	return &TracingRepository{
		tracingStore: tracingStore{next: next, tracer: otel.Tracer(tracerName)},
		repo:         next,
	}
}

func (r *TracingRepository) WithinTx(ctx context.Context, fn func(ctx context.Context, store domain.Store) error) error {
	ctx, span := r.tracer.Start(ctx, "Repository.WithinTx")
	defer span.End()

	err := r.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		return fn(ctx, &tracingStore{next: store, tracer: r.tracer})
	})
	recordError(span, err)
	return err
}

type tracingStore struct {
	next   domain.Store
	tracer trace.Tracer
}

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

func (r *tracingStore) ListStages(ctx context.Context) ([]domain.Stage, error) {
	ctx, span := r.tracer.Start(ctx, "StageRepository.ListStages")
	defer span.End()

	stages, err := r.next.ListStages(ctx)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(stages)))
	}
	return stages, err
}

func (r *tracingStore) GetStage(ctx context.Context, id string) (domain.Stage, error) {
	ctx, span := r.tracer.Start(ctx, "StageRepository.GetStage",
		trace.WithAttributes(attribute.String("stage.id", id)),
	)
	defer span.End()

	stage, err := r.next.GetStage(ctx, id)
	recordError(span, err)
	return stage, err
}

func (r *tracingStore) CreateStage(ctx context.Context, stage domain.Stage) error {
	ctx, span := r.tracer.Start(ctx, "StageRepository.CreateStage",
		trace.WithAttributes(
			attribute.String("stage.id", stage.ID),
			attribute.String("stage.name", stage.Name),
		),
	)
	defer span.End()

	err := r.next.CreateStage(ctx, stage)
	recordError(span, err)
	return err
}

func (r *tracingStore) UpdateStage(ctx context.Context, stage domain.Stage) error {
	ctx, span := r.tracer.Start(ctx, "StageRepository.UpdateStage",
		trace.WithAttributes(attribute.String("stage.id", stage.ID)),
	)
	defer span.End()

	err := r.next.UpdateStage(ctx, stage)
	recordError(span, err)
	return err
}

func (r *tracingStore) CreateDeal(ctx context.Context, deal domain.Deal) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.CreateDeal",
		trace.WithAttributes(
			attribute.String("deal.id", deal.ID),
			attribute.String("deal.stage_id", deal.StageID),
		),
	)
	defer span.End()

	err := r.next.CreateDeal(ctx, deal)
	recordError(span, err)
	return err
}

func (r *tracingStore) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	ctx, span := r.tracer.Start(ctx, "DealRepository.GetDeal",
		trace.WithAttributes(attribute.String("deal.id", id)),
	)
	defer span.End()

	deal, err := r.next.GetDeal(ctx, id)
	recordError(span, err)
	return deal, err
}

func (r *tracingStore) ListDeals(ctx context.Context, filter domain.ListFilter) ([]domain.Deal, error) {
	ctx, span := r.tracer.Start(ctx, "DealRepository.ListDeals",
		trace.WithAttributes(
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if filter.Status != nil {
		span.SetAttributes(attribute.String("filter.status", string(*filter.Status)))
	}
	if filter.StageID != "" {
		span.SetAttributes(attribute.String("filter.stage_id", filter.StageID))
	}

	deals, err := r.next.ListDeals(ctx, filter)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(deals)))
	}
	return deals, err
}

func (r *tracingStore) UpdateDeal(ctx context.Context, deal domain.Deal) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.UpdateDeal",
		trace.WithAttributes(
			attribute.String("deal.id", deal.ID),
			attribute.String("deal.status", string(deal.Status)),
			attribute.Int64("deal.version", deal.Version),
		),
	)
	defer span.End()

	err := r.next.UpdateDeal(ctx, deal)
	recordError(span, err)
	return err
}

func (r *tracingStore) DeleteDeal(ctx context.Context, id string) error {
	ctx, span := r.tracer.Start(ctx, "DealRepository.DeleteDeal",
		trace.WithAttributes(attribute.String("deal.id", id)),
	)
	defer span.End()

	err := r.next.DeleteDeal(ctx, id)
	recordError(span, err)
	return err
}

func (r *tracingStore) AppendActivity(ctx context.Context, activity domain.Activity) error {
	ctx, span := r.tracer.Start(ctx, "ActivityRepository.AppendActivity",
		trace.WithAttributes(
			attribute.String("deal.id", activity.DealID),
			attribute.String("activity.type", string(activity.Type)),
		),
	)
	defer span.End()

	err := r.next.AppendActivity(ctx, activity)
	recordError(span, err)
	return err
}

func (r *tracingStore) ListActivities(ctx context.Context, dealID string) ([]domain.Activity, error) {
	ctx, span := r.tracer.Start(ctx, "ActivityRepository.ListActivities",
		trace.WithAttributes(attribute.String("deal.id", dealID)),
	)
	defer span.End()

	activities, err := r.next.ListActivities(ctx, dealID)
	recordError(span, err)
	if err == nil {
		span.SetAttributes(attribute.Int("result.count", len(activities)))
	}
	return activities, err
}

func (r *tracingStore) DeleteActivities(ctx context.Context, dealID string) error {
	ctx, span := r.tracer.Start(ctx, "ActivityRepository.DeleteActivities",
		trace.WithAttributes(attribute.String("deal.id", dealID)),
	)
	defer span.End()

	err := r.next.DeleteActivities(ctx, dealID)
	recordError(span, err)
	return err
}
