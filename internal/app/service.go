package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// PipelineService orchestrates the sales pipeline: the stage registry, deal
// transitions, and the activity log. Every mutation runs in one repository
// transaction together with the activity it produces.
type PipelineService struct {
	repo      domain.Repository
	validator domain.TransitionValidator
	now       func() time.Time
	log       *zap.Logger

	// stageMu serializes stage registry writes.
	stageMu sync.Mutex
}

// Option configures a PipelineService.
type Option func(*PipelineService)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *PipelineService) { s.now = now }
}

// WithLogger sets the logger used for committed mutations.
func WithLogger(log *zap.Logger) Option {
	return func(s *PipelineService) { s.log = log }
}

// NewPipelineService creates a service with the given adapters.
func NewPipelineService(repo domain.Repository, validator domain.TransitionValidator, opts ...Option) *PipelineService {
	s := &PipelineService{
		repo:      repo,
		validator: validator,
		now:       time.Now,
		log:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PipelineService) clock() time.Time {
	return s.now().UTC()
}

// CommandOptions carries the caller context of a deal command.
type CommandOptions struct {
	// ActorID is recorded as the activity author.
	ActorID string
	// ExpectedStageID, when set, must match the deal's stage at commit time.
	ExpectedStageID string
	// ExpectedVersion, when non-zero, must match the deal's version at commit time.
	ExpectedVersion int64
}

func (o CommandOptions) check(deal domain.Deal) error {
	if o.ExpectedStageID != "" && o.ExpectedStageID != deal.StageID {
		return &domain.ConflictError{DealID: deal.ID, Expected: o.ExpectedStageID, Actual: deal.StageID}
	}
	if o.ExpectedVersion != 0 && o.ExpectedVersion != deal.Version {
		return &domain.ConflictError{
			DealID:   deal.ID,
			Expected: fmt.Sprintf("version %d", o.ExpectedVersion),
			Actual:   fmt.Sprintf("version %d", deal.Version),
		}
	}
	return nil
}

// transition runs the status machine and reports illegal events as
// *domain.InvalidStateError.
func (s *PipelineService) transition(ctx context.Context, deal domain.Deal, event domain.Event, op string) (domain.Status, error) {
	next, err := s.validator.Apply(ctx, deal.Status, event)
	if err != nil {
		var trErr *domain.TransitionError
		if errors.As(err, &trErr) {
			return "", &domain.InvalidStateError{DealID: deal.ID, Status: deal.Status, Op: op}
		}
		return "", err
	}
	return next, nil
}

// appendActivity builds an activity and writes it through store.
func (s *PipelineService) appendActivity(ctx context.Context, store domain.Store, dealID string, in domain.ActivityInput, now time.Time) (domain.Activity, error) {
	id, err := generateID()
	if err != nil {
		return domain.Activity{}, err
	}
	activity, err := domain.NewActivity(id, dealID, in, now)
	if err != nil {
		return domain.Activity{}, err
	}
	if err := store.AppendActivity(ctx, activity); err != nil {
		return domain.Activity{}, err
	}
	return activity, nil
}
