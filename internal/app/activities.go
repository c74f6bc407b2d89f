package app

import (
	"context"
	"iter"

	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// LogActivity appends a manually logged activity (note, call, email,
// meeting, task) and refreshes the deal's last activity time. The other
// types are written by deal commands only.
func (s *PipelineService) LogActivity(ctx context.Context, dealID string, in domain.ActivityInput, opts CommandOptions) (domain.Activity, error) {
	if err := in.Validate(); err != nil {
		return domain.Activity{}, err
	}
	if !in.Type.Manual() {
		return domain.Activity{}, &domain.ValidationError{Field: "activity_type", Reason: string(in.Type) + " is recorded by the pipeline"}
	}
	if in.CreatedBy == "" {
		in.CreatedBy = opts.ActorID
	}

	var activity domain.Activity
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		deal, err := store.GetDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if err := opts.check(deal); err != nil {
			return err
		}

		now := s.clock()
		deal.Touch(now)
		if err := store.UpdateDeal(ctx, deal); err != nil {
			return err
		}

		activity, err = s.appendActivity(ctx, store, deal.ID, in, now)
		return err
	})
	if err != nil {
		return domain.Activity{}, err
	}

	s.log.Debug("activity logged", zap.String("deal_id", dealID), zap.String("activity_type", string(activity.Type)))
	return activity, nil
}

// ListActivities returns a deal's history, most recent first. A deal without
// history yields an empty slice.
func (s *PipelineService) ListActivities(ctx context.Context, dealID string) ([]domain.Activity, error) {
	return s.repo.ListActivities(ctx, dealID)
}

// ActivityHistory is a lazy view of a deal's history. Nothing is read until
// the sequence is ranged over, and every range re-reads the log.
func (s *PipelineService) ActivityHistory(ctx context.Context, dealID string) iter.Seq2[domain.Activity, error] {
	return func(yield func(domain.Activity, error) bool) {
		activities, err := s.repo.ListActivities(ctx, dealID)
		if err != nil {
			yield(domain.Activity{}, err)
			return
		}
		for _, a := range activities {
			if !yield(a, nil) {
				return
			}
		}
	}
}
