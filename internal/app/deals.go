package app

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// DealView is a deal together with its staleness at read time.
type DealView struct {
	domain.Deal
	Rotting domain.RottingLevel
}

// CreateDeal places a new open deal in the first open stage and logs its
// creation.
func (s *PipelineService) CreateDeal(ctx context.Context, in domain.DealInput, opts CommandOptions) (domain.Deal, error) {
	id, err := generateID()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("generating deal id: %w", err)
	}

	var deal domain.Deal
	err = s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		stage, err := firstOpenStage(ctx, store)
		if err != nil {
			return err
		}

		now := s.clock()
		deal, err = domain.NewDeal(id, in, stage, now)
		if err != nil {
			return err
		}
		if err := store.CreateDeal(ctx, deal); err != nil {
			return err
		}

		_, err = s.appendActivity(ctx, store, deal.ID, domain.ActivityInput{
			Type:      domain.ActivityCreated,
			Subject:   "Deal created in " + stage.Name,
			CreatedBy: opts.ActorID,
		}, now)
		return err
	})
	if err != nil {
		return domain.Deal{}, err
	}

	s.log.Debug("deal created", zap.String("deal_id", deal.ID), zap.String("stage_id", deal.StageID))
	return deal, nil
}

// GetDeal returns a deal with its current rotting level.
func (s *PipelineService) GetDeal(ctx context.Context, id string) (DealView, error) {
	deal, err := s.repo.GetDeal(ctx, id)
	if err != nil {
		return DealView{}, err
	}
	stage, err := s.repo.GetStage(ctx, deal.StageID)
	if err != nil {
		return DealView{}, err
	}
	return DealView{Deal: deal, Rotting: domain.Rotting(deal, stage, s.clock())}, nil
}

// ListDeals returns deals matching filter with their rotting levels.
func (s *PipelineService) ListDeals(ctx context.Context, filter domain.ListFilter) ([]DealView, error) {
	var views []DealView
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		stages, err := store.ListStages(ctx)
		if err != nil {
			return err
		}
		deals, err := store.ListDeals(ctx, filter)
		if err != nil {
			return err
		}
		views = s.withRotting(stages, deals)
		return nil
	})
	return views, err
}

// ListOpenDeals returns open deals matching filter; its status is ignored.
func (s *PipelineService) ListOpenDeals(ctx context.Context, filter domain.ListFilter) ([]DealView, error) {
	open := domain.StatusOpen
	filter.Status = &open
	return s.ListDeals(ctx, filter)
}

// DealsByStage returns the deals currently in stageID.
func (s *PipelineService) DealsByStage(ctx context.Context, stageID string) ([]DealView, error) {
	if _, err := s.repo.GetStage(ctx, stageID); err != nil {
		return nil, err
	}
	return s.ListDeals(ctx, domain.ListFilter{StageID: stageID})
}

func (s *PipelineService) withRotting(stages []domain.Stage, deals []domain.Deal) []DealView {
	byID := make(map[string]domain.Stage, len(stages))
	for _, st := range stages {
		byID[st.ID] = st
	}
	now := s.clock()
	views := make([]DealView, len(deals))
	for i, d := range deals {
		views[i] = DealView{Deal: d, Rotting: domain.Rotting(d, byID[d.StageID], now)}
	}
	return views
}

// MoveDeal moves an open deal to another open stage, picking up that stage's
// win probability. Stage order is not enforced. Terminal targets are
// rejected: closing a deal goes through CloseWon or CloseLost.
func (s *PipelineService) MoveDeal(ctx context.Context, dealID, stageID string, opts CommandOptions) (domain.Deal, error) {
	if stageID == "" {
		return domain.Deal{}, &domain.ValidationError{Field: "stage_id", Reason: "must not be blank"}
	}

	var deal domain.Deal
	moved := false
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		var err error
		deal, err = store.GetDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if err := opts.check(deal); err != nil {
			return err
		}
		if deal.StageID == stageID {
			return nil
		}

		target, err := store.GetStage(ctx, stageID)
		if err != nil {
			return err
		}
		switch {
		case target.IsWon:
			return &domain.RequiresClosureDataError{StageID: target.ID, Closure: "closeWon"}
		case target.IsLost:
			return &domain.RequiresClosureDataError{StageID: target.ID, Closure: "closeLost"}
		}

		if _, err := s.transition(ctx, deal, domain.EventMove, "move"); err != nil {
			return err
		}

		source, err := store.GetStage(ctx, deal.StageID)
		if err != nil {
			return err
		}

		now := s.clock()
		deal.StageID = target.ID
		deal.WinProbability = target.WinProbability
		deal.Touch(now)
		if err := store.UpdateDeal(ctx, deal); err != nil {
			return err
		}
		deal.Version++

		_, err = s.appendActivity(ctx, store, deal.ID, domain.ActivityInput{
			Type:        domain.ActivityStageChange,
			Subject:     fmt.Sprintf("Moved from %s to %s", source.Name, target.Name),
			FromStageID: source.ID,
			ToStageID:   target.ID,
			CreatedBy:   opts.ActorID,
		}, now)
		moved = err == nil
		return err
	})
	if err != nil {
		return domain.Deal{}, err
	}

	if moved {
		s.log.Debug("deal moved", zap.String("deal_id", deal.ID), zap.String("stage_id", deal.StageID))
	}
	return deal, nil
}

// CloseWon marks an open deal as won. Closing a deal twice fails with
// *domain.InvalidStateError.
func (s *PipelineService) CloseWon(ctx context.Context, dealID, notes string, opts CommandOptions) (domain.Deal, error) {
	return s.close(ctx, dealID, true, notes, opts)
}

// CloseLost marks an open deal as lost. A reason is required.
func (s *PipelineService) CloseLost(ctx context.Context, dealID, reason string, opts CommandOptions) (domain.Deal, error) {
	if strings.TrimSpace(reason) == "" {
		return domain.Deal{}, &domain.ValidationError{Field: "reason", Reason: "must not be blank"}
	}
	return s.close(ctx, dealID, false, reason, opts)
}

func (s *PipelineService) close(ctx context.Context, dealID string, won bool, text string, opts CommandOptions) (domain.Deal, error) {
	event, op, activityType, subject := domain.EventLose, "close as lost", domain.ActivityLost, "Deal lost"
	if won {
		event, op, activityType, subject = domain.EventWin, "close as won", domain.ActivityWon, "Deal won"
	}

	var deal domain.Deal
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		var err error
		deal, err = store.GetDeal(ctx, dealID)
		if err != nil {
			return err
		}
		if err := opts.check(deal); err != nil {
			return err
		}

		status, err := s.transition(ctx, deal, event, op)
		if err != nil {
			return err
		}

		stage, err := terminalStage(ctx, store, won)
		if err != nil {
			return err
		}

		now := s.clock()
		from := deal.StageID
		deal.StageID = stage.ID
		deal.Status = status
		if won {
			deal.WonAt = &now
			deal.WonNotes = text
		} else {
			deal.LostAt = &now
			deal.LostReason = text
		}
		deal.Touch(now)
		if err := store.UpdateDeal(ctx, deal); err != nil {
			return err
		}
		deal.Version++

		_, err = s.appendActivity(ctx, store, deal.ID, domain.ActivityInput{
			Type:        activityType,
			Subject:     subject,
			Description: text,
			FromStageID: from,
			ToStageID:   stage.ID,
			CreatedBy:   opts.ActorID,
		}, now)
		return err
	})
	if err != nil {
		return domain.Deal{}, err
	}

	s.log.Debug("deal closed", zap.String("deal_id", deal.ID), zap.String("status", string(deal.Status)))
	return deal, nil
}

// DeleteDeal removes a deal and its entire activity history.
func (s *PipelineService) DeleteDeal(ctx context.Context, dealID string) error {
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		if _, err := store.GetDeal(ctx, dealID); err != nil {
			return err
		}
		if err := store.DeleteActivities(ctx, dealID); err != nil {
			return err
		}
		return store.DeleteDeal(ctx, dealID)
	})
	if err != nil {
		return err
	}

	s.log.Debug("deal deleted", zap.String("deal_id", dealID))
	return nil
}
