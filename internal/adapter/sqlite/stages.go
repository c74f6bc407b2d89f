package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/neomorfeo/dealflow/internal/domain"
)

var stageColumns = []string{
	"id", "name", "color", "position", "win_probability", "rotting_days",
	"is_won", "is_lost", "created_at", "updated_at",
}

func (r *Repository) ListStages(ctx context.Context) ([]domain.Stage, error) {
	query, args, err := builder.Select(stageColumns...).From("stages").
		OrderBy("is_won", "is_lost", "position").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building stage query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing stages: %w", err)
	}
	defer rows.Close()

	var stages []domain.Stage
	for rows.Next() {
		s, err := scanStage(rows)
		if err != nil {
			return nil, err
		}
		stages = append(stages, s)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	domain.SortStages(stages)
	return stages, nil
}

func (r *Repository) GetStage(ctx context.Context, id string) (domain.Stage, error) {
	query, args, err := builder.Select(stageColumns...).From("stages").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Stage{}, fmt.Errorf("building stage query: %w", err)
	}

	s, err := scanStage(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Stage{}, &domain.NotFoundError{Entity: "stage", ID: id}
	}
	return s, err
}

func (r *Repository) CreateStage(ctx context.Context, s domain.Stage) error {
	query, args, err := builder.Insert("stages").Columns(stageColumns...).Values(
		s.ID, s.Name, s.Color, s.Position, s.WinProbability, s.RottingDays,
		s.IsWon, s.IsLost, formatTime(s.CreatedAt), formatTime(s.UpdatedAt),
	).ToSql()
	if err != nil {
		return fmt.Errorf("building stage insert: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return &domain.ConfigurationError{Reason: fmt.Sprintf("stage %q conflicts with an existing stage", s.Name)}
		}
		return fmt.Errorf("inserting stage: %w", err)
	}
	return nil
}

// UpdateStage writes the mutable stage columns. Terminal flags are never
// written after creation.
func (r *Repository) UpdateStage(ctx context.Context, s domain.Stage) error {
	query, args, err := builder.Update("stages").SetMap(map[string]any{
		"name":            s.Name,
		"color":           s.Color,
		"position":        s.Position,
		"win_probability": s.WinProbability,
		"rotting_days":    s.RottingDays,
		"updated_at":      formatTime(s.UpdatedAt),
	}).Where(sq.Eq{"id": s.ID}).ToSql()
	if err != nil {
		return fmt.Errorf("building stage update: %w", err)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating stage: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "stage", ID: s.ID}
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStage(row rowScanner) (domain.Stage, error) {
	var s domain.Stage
	var createdAt, updatedAt string

	err := row.Scan(&s.ID, &s.Name, &s.Color, &s.Position, &s.WinProbability, &s.RottingDays,
		&s.IsWon, &s.IsLost, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Stage{}, err
		}
		return domain.Stage{}, fmt.Errorf("scanning stage: %w", err)
	}

	s.CreatedAt = parseTime(createdAt)
	s.UpdatedAt = parseTime(updatedAt)
	return s, nil
}
