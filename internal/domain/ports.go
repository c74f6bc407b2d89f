package domain

import "context"

// StageRepository defines the persistence contract for stages.
type StageRepository interface {
	ListStages(ctx context.Context) ([]Stage, error)
	GetStage(ctx context.Context, id string) (Stage, error)
	CreateStage(ctx context.Context, stage Stage) error
	UpdateStage(ctx context.Context, stage Stage) error
}

// DealRepository defines the persistence contract for deals.
type DealRepository interface {
	CreateDeal(ctx context.Context, deal Deal) error
	GetDeal(ctx context.Context, id string) (Deal, error)
	ListDeals(ctx context.Context, filter ListFilter) ([]Deal, error)
	// UpdateDeal writes deal only if the stored version still equals
	// deal.Version, then bumps the stored version. A stale version yields
	// a *ConflictError.
	UpdateDeal(ctx context.Context, deal Deal) error
	DeleteDeal(ctx context.Context, id string) error
}

// ActivityRepository defines the persistence contract for the activity log.
type ActivityRepository interface {
	AppendActivity(ctx context.Context, activity Activity) error
	ListActivities(ctx context.Context, dealID string) ([]Activity, error)
	DeleteActivities(ctx context.Context, dealID string) error
}

// Store groups the repositories that take part in one unit of work.
type Store interface {
	StageRepository
	DealRepository
	ActivityRepository
}

// Repository is a Store that can also open transactions. Everything done
// through the Store passed to fn commits or rolls back together.
type Repository interface {
	Store
	WithinTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// ListFilter holds optional criteria for listing deals.
type ListFilter struct {
	Status  *Status
	StageID string
	OwnerID string
	Limit   int
	Offset  int
}

// TransitionValidator checks deal status transitions.
type TransitionValidator interface {
	Apply(ctx context.Context, current Status, event Event) (Status, error)
}
