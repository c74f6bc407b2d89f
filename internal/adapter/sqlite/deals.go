package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/neomorfeo/dealflow/internal/domain"
)

var dealColumns = []string{
	"id", "title", "value", "organization", "contact_name", "contact_email", "contact_phone",
	"expected_close_date", "owner_id", "lead_id", "customer_id", "audit_id", "quote_id",
	"stage_id", "status", "win_probability", "last_activity_at",
	"won_at", "won_notes", "lost_at", "lost_reason", "version", "created_at", "updated_at",
}

func (r *Repository) CreateDeal(ctx context.Context, d domain.Deal) error {
	query, args, err := builder.Insert("deals").Columns(dealColumns...).Values(
		d.ID, d.Title, d.Value.String(), d.Organization, d.ContactName, d.ContactEmail, d.ContactPhone,
		nullableTime(d.ExpectedCloseDate), d.OwnerID, d.LeadID, d.CustomerID, d.AuditID, d.QuoteID,
		d.StageID, string(d.Status), d.WinProbability, formatTime(d.LastActivityAt),
		nullableTime(d.WonAt), d.WonNotes, nullableTime(d.LostAt), d.LostReason,
		d.Version, formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	).ToSql()
	if err != nil {
		return fmt.Errorf("building deal insert: %w", err)
	}

	if _, err := r.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("inserting deal: %w", err)
	}
	return nil
}

func (r *Repository) GetDeal(ctx context.Context, id string) (domain.Deal, error) {
	query, args, err := builder.Select(dealColumns...).From("deals").
		Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return domain.Deal{}, fmt.Errorf("building deal query: %w", err)
	}

	d, err := scanDeal(r.q.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Deal{}, &domain.NotFoundError{Entity: "deal", ID: id}
	}
	return d, err
}

func (r *Repository) ListDeals(ctx context.Context, filter domain.ListFilter) ([]domain.Deal, error) {
	q := builder.Select(dealColumns...).From("deals")

	if filter.Status != nil {
		q = q.Where(sq.Eq{"status": string(*filter.Status)})
	}
	if filter.StageID != "" {
		q = q.Where(sq.Eq{"stage_id": filter.StageID})
	}
	if filter.OwnerID != "" {
		q = q.Where(sq.Eq{"owner_id": filter.OwnerID})
	}

	q = q.OrderBy("created_at DESC", "id")

	if filter.Limit > 0 {
		q = q.Limit(uint64(filter.Limit))
	}
	if filter.Offset > 0 {
		if filter.Limit <= 0 {
			// SQLite only accepts OFFSET after LIMIT.
			q = q.Limit(uint64(1<<63 - 1))
		}
		q = q.Offset(uint64(filter.Offset))
	}

	query, args, err := q.ToSql()
	if err != nil {
		return nil, fmt.Errorf("building deal query: %w", err)
	}

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing deals: %w", err)
	}
	defer rows.Close()

	var deals []domain.Deal
	for rows.Next() {
		d, err := scanDeal(rows)
		if err != nil {
			return nil, err
		}
		deals = append(deals, d)
	}

	return deals, rows.Err()
}

// UpdateDeal applies a compare-and-swap on the version column: the write only
// lands if nobody else committed since d was read.
func (r *Repository) UpdateDeal(ctx context.Context, d domain.Deal) error {
	query, args, err := builder.Update("deals").SetMap(map[string]any{
		"title":               d.Title,
		"value":               d.Value.String(),
		"organization":        d.Organization,
		"contact_name":        d.ContactName,
		"contact_email":       d.ContactEmail,
		"contact_phone":       d.ContactPhone,
		"expected_close_date": nullableTime(d.ExpectedCloseDate),
		"owner_id":            d.OwnerID,
		"stage_id":            d.StageID,
		"status":              string(d.Status),
		"win_probability":     d.WinProbability,
		"last_activity_at":    formatTime(d.LastActivityAt),
		"won_at":              nullableTime(d.WonAt),
		"won_notes":           d.WonNotes,
		"lost_at":             nullableTime(d.LostAt),
		"lost_reason":         d.LostReason,
		"version":             sq.Expr("version + 1"),
		"updated_at":          formatTime(d.UpdatedAt),
	}).Where(sq.Eq{"id": d.ID, "version": d.Version}).ToSql()
	if err != nil {
		return fmt.Errorf("building deal update: %w", err)
	}

	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating deal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows > 0 {
		return nil
	}

	// Nothing matched: either the deal is gone or its version moved on.
	var version int64
	err = r.q.QueryRowContext(ctx, `SELECT version FROM deals WHERE id = ?`, d.ID).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return &domain.NotFoundError{Entity: "deal", ID: d.ID}
	}
	if err != nil {
		return fmt.Errorf("reading deal version: %w", err)
	}
	return &domain.ConflictError{
		DealID:   d.ID,
		Expected: fmt.Sprintf("version %d", d.Version),
		Actual:   fmt.Sprintf("version %d", version),
	}
}

func (r *Repository) DeleteDeal(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `DELETE FROM deals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting deal: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return &domain.NotFoundError{Entity: "deal", ID: id}
	}
	return nil
}

func scanDeal(row rowScanner) (domain.Deal, error) {
	var d domain.Deal
	var status, lastActivityAt, createdAt, updatedAt string
	var expectedClose, wonAt, lostAt sql.NullString

	err := row.Scan(&d.ID, &d.Title, &d.Value, &d.Organization, &d.ContactName, &d.ContactEmail, &d.ContactPhone,
		&expectedClose, &d.OwnerID, &d.LeadID, &d.CustomerID, &d.AuditID, &d.QuoteID,
		&d.StageID, &status, &d.WinProbability, &lastActivityAt,
		&wonAt, &d.WonNotes, &lostAt, &d.LostReason, &d.Version, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Deal{}, err
		}
		return domain.Deal{}, fmt.Errorf("scanning deal: %w", err)
	}

	d.Status = domain.Status(status)
	d.ExpectedCloseDate = scanNullableTime(expectedClose)
	d.LastActivityAt = parseTime(lastActivityAt)
	d.WonAt = scanNullableTime(wonAt)
	d.LostAt = scanNullableTime(lostAt)
	d.CreatedAt = parseTime(createdAt)
	d.UpdatedAt = parseTime(updatedAt)
	return d, nil
}
