package app

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/dealflow/internal/domain"
)

func openDeals(ctx context.Context, store domain.DealRepository, stageID string) ([]domain.Deal, error) {
	open := domain.StatusOpen
	return store.ListDeals(ctx, domain.ListFilter{Status: &open, StageID: stageID})
}

// StageTotal sums the value of open deals in stageID.
func (s *PipelineService) StageTotal(ctx context.Context, stageID string) (decimal.Decimal, error) {
	deals, err := openDeals(ctx, s.repo, stageID)
	if err != nil {
		return decimal.Zero, err
	}
	return domain.StageTotal(deals, stageID), nil
}

// PipelineTotal sums the value of all open deals.
func (s *PipelineService) PipelineTotal(ctx context.Context) (decimal.Decimal, error) {
	deals, err := openDeals(ctx, s.repo, "")
	if err != nil {
		return decimal.Zero, err
	}
	return domain.PipelineTotal(deals), nil
}

// WeightedPipelineValue sums value * stored win probability over open deals.
func (s *PipelineService) WeightedPipelineValue(ctx context.Context) (decimal.Decimal, error) {
	deals, err := openDeals(ctx, s.repo, "")
	if err != nil {
		return decimal.Zero, err
	}
	return domain.WeightedPipelineValue(deals), nil
}

// RottingLevel evaluates a deal's staleness now.
func (s *PipelineService) RottingLevel(ctx context.Context, dealID string) (domain.RottingLevel, error) {
	view, err := s.GetDeal(ctx, dealID)
	if err != nil {
		return domain.RottingFresh, err
	}
	return view.Rotting, nil
}

// Forecast builds per-stage and pipeline totals from one consistent read of
// stages and open deals.
func (s *PipelineService) Forecast(ctx context.Context) (domain.Forecast, error) {
	var f domain.Forecast
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		stages, err := store.ListStages(ctx)
		if err != nil {
			return err
		}
		deals, err := openDeals(ctx, store, "")
		if err != nil {
			return err
		}
		f = domain.BuildForecast(stages, deals, s.clock())
		return nil
	})
	return f, err
}
