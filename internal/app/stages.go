package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// StageInput holds the fields of a new open stage.
type StageInput struct {
	Name           string
	Color          string
	WinProbability int
	RottingDays    int
}

// ListStages returns open stages by position, then Won, then Lost.
func (s *PipelineService) ListStages(ctx context.Context) ([]domain.Stage, error) {
	return s.repo.ListStages(ctx)
}

// FirstOpenStage returns the open stage with the lowest position.
func (s *PipelineService) FirstOpenStage(ctx context.Context) (domain.Stage, error) {
	return firstOpenStage(ctx, s.repo)
}

func firstOpenStage(ctx context.Context, store domain.StageRepository) (domain.Stage, error) {
	stages, err := store.ListStages(ctx)
	if err != nil {
		return domain.Stage{}, err
	}
	for _, st := range stages {
		if !st.IsTerminal() {
			return st, nil
		}
	}
	return domain.Stage{}, &domain.ConfigurationError{Reason: "no open stage to place new deals in"}
}

func terminalStage(ctx context.Context, store domain.StageRepository, won bool) (domain.Stage, error) {
	stages, err := store.ListStages(ctx)
	if err != nil {
		return domain.Stage{}, err
	}
	for _, st := range stages {
		if (won && st.IsWon) || (!won && st.IsLost) {
			return st, nil
		}
	}
	kind := "lost"
	if won {
		kind = "won"
	}
	return domain.Stage{}, &domain.ConfigurationError{Reason: "no " + kind + " stage configured"}
}

// SeedStages installs the initial stage set when the registry is empty and
// reports whether it did. Open stages get positions in the order given.
// Terminal flags can only be set here.
func (s *PipelineService) SeedStages(ctx context.Context, stages []domain.Stage) (bool, error) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	seeded := false
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		existing, err := store.ListStages(ctx)
		if err != nil {
			return err
		}
		if len(existing) > 0 {
			return nil
		}

		now := s.clock()
		prepared := make([]domain.Stage, 0, len(stages))
		position, open := 0, 0
		for _, st := range stages {
			if st.ID == "" {
				if st.ID, err = generateID(); err != nil {
					return fmt.Errorf("generating stage id: %w", err)
				}
			}
			st.Position = 0
			if !st.IsTerminal() {
				st.Position = position
				position++
				open++
			} else {
				st.WinProbability, st.RottingDays = 0, 0
			}
			st.CreatedAt, st.UpdatedAt = now, now
			prepared = append(prepared, st)
		}
		if open == 0 {
			return &domain.ConfigurationError{Reason: "at least one open stage is required"}
		}
		if err := domain.ValidateStageSet(prepared); err != nil {
			return err
		}

		for _, st := range prepared {
			if err := store.CreateStage(ctx, st); err != nil {
				return fmt.Errorf("creating stage %q: %w", st.Name, err)
			}
		}
		seeded = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if seeded {
		s.log.Info("seeded pipeline stages", zap.Int("count", len(stages)))
	}
	return seeded, nil
}

// CreateStage appends a new open stage at the end of the funnel.
func (s *PipelineService) CreateStage(ctx context.Context, in StageInput) (domain.Stage, error) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	id, err := generateID()
	if err != nil {
		return domain.Stage{}, fmt.Errorf("generating stage id: %w", err)
	}
	now := s.clock()
	stage := domain.Stage{
		ID:             id,
		Name:           in.Name,
		Color:          in.Color,
		WinProbability: in.WinProbability,
		RottingDays:    in.RottingDays,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := stage.Validate(); err != nil {
		return domain.Stage{}, err
	}

	err = s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		stages, err := store.ListStages(ctx)
		if err != nil {
			return err
		}
		for _, st := range stages {
			if !st.IsTerminal() && st.Position >= stage.Position {
				stage.Position = st.Position + 1
			}
		}
		return store.CreateStage(ctx, stage)
	})
	if err != nil {
		return domain.Stage{}, err
	}
	return stage, nil
}

// UpdateStage changes name, color, win probability, or rotting threshold.
// Deals keep the probability they captured on entry.
func (s *PipelineService) UpdateStage(ctx context.Context, id string, patch domain.StagePatch) (domain.Stage, error) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	var updated domain.Stage
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		current, err := store.GetStage(ctx, id)
		if err != nil {
			return err
		}
		updated, err = patch.Apply(current)
		if err != nil {
			return err
		}
		updated.UpdatedAt = s.clock()
		return store.UpdateStage(ctx, updated)
	})
	if err != nil {
		return domain.Stage{}, err
	}
	return updated, nil
}

// ReorderStages assigns positions 0..n-1 to the open stages in the given
// order. ids must name every open stage exactly once and no terminal stage.
func (s *PipelineService) ReorderStages(ctx context.Context, ids []string) ([]domain.Stage, error) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()

	var result []domain.Stage
	err := s.repo.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
		stages, err := store.ListStages(ctx)
		if err != nil {
			return err
		}

		open := make(map[string]domain.Stage)
		for _, st := range stages {
			if !st.IsTerminal() {
				open[st.ID] = st
			}
		}
		if len(ids) != len(open) {
			return &domain.ValidationError{Field: "order", Reason: fmt.Sprintf("expected %d open stages, got %d", len(open), len(ids))}
		}

		seen := make(map[string]bool, len(ids))
		for _, id := range ids {
			if _, ok := open[id]; !ok {
				return &domain.ValidationError{Field: "order", Reason: fmt.Sprintf("%q is not an open stage", id)}
			}
			if seen[id] {
				return &domain.ValidationError{Field: "order", Reason: fmt.Sprintf("%q listed twice", id)}
			}
			seen[id] = true
		}

		now := s.clock()
		for i, id := range ids {
			st := open[id]
			if st.Position == i {
				continue
			}
			st.Position = i
			st.UpdatedAt = now
			if err := store.UpdateStage(ctx, st); err != nil {
				return err
			}
		}

		result, err = store.ListStages(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
