package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// AppendActivity inserts an activity and hands it to the outbox in the same
// transaction. Outside WithinTx it opens its own.
func (r *Repository) AppendActivity(ctx context.Context, a domain.Activity) error {
	if r.tx == nil {
		return r.WithinTx(ctx, func(ctx context.Context, store domain.Store) error {
			return store.AppendActivity(ctx, a)
		})
	}

	query, args, err := builder.Insert("activities").Columns(
		"id", "deal_id", "activity_type", "subject", "description",
		"from_stage_id", "to_stage_id", "created_by", "created_at",
	).Values(
		a.ID, a.DealID, string(a.Type), a.Subject, a.Description,
		nullable(a.FromStageID), nullable(a.ToStageID), a.CreatedBy, formatTime(a.CreatedAt),
	).ToSql()
	if err != nil {
		return fmt.Errorf("building activity insert: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting activity: %w", err)
	}

	if r.outbox != nil {
		if err := r.outbox.EnqueueTx(ctx, r.tx, a); err != nil {
			return fmt.Errorf("enqueuing activity: %w", err)
		}
	}
	return nil
}

// ListActivities returns a deal's history, most recent first. Entries written
// within the same instant keep their append order reversed via seq.
func (r *Repository) ListActivities(ctx context.Context, dealID string) ([]domain.Activity, error) {
	query, args, err := builder.Select(
		"id", "deal_id", "activity_type", "subject", "description",
		"from_stage_id", "to_stage_id", "created_by", "created_at",
	).From("activities").
		Where(sq.Eq{"deal_id": dealID}).
		OrderBy("created_at DESC", "seq DESC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("building activity query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing activities: %w", err)
	}
	defer rows.Close()

	activities := []domain.Activity{}
	for rows.Next() {
		var a domain.Activity
		var typ, createdAt string
		var from, to sql.NullString
		if err := rows.Scan(&a.ID, &a.DealID, &typ, &a.Subject, &a.Description,
			&from, &to, &a.CreatedBy, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning activity row: %w", err)
		}
		a.Type = domain.ActivityType(typ)
		a.FromStageID = from.String
		a.ToStageID = to.String
		a.CreatedAt = parseTime(createdAt)
		activities = append(activities, a)
	}

	return activities, rows.Err()
}

func (r *Repository) DeleteActivities(ctx context.Context, dealID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM activities WHERE deal_id = ?`, dealID); err != nil {
		return fmt.Errorf("deleting activities: %w", err)
	}
	return nil
}
