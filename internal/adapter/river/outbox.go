package river

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/riverqueue/river"

	"github.com/neomorfeo/dealflow/internal/domain"
)

// ActivityJobArgs is a snapshot of one appended activity. River serializes it
// as JSON into its job table in the same transaction that wrote the activity,
// so a job exists exactly for every committed history entry.
type ActivityJobArgs struct {
	ActivityID  string    `json:"activity_id"`
	DealID      string    `json:"deal_id"`
	Type        string    `json:"activity_type"`
	Subject     string    `json:"subject"`
	FromStageID string    `json:"from_stage_id,omitempty"`
	ToStageID   string    `json:"to_stage_id,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Kind returns the unique job type identifier used by River's job routing.
func (ActivityJobArgs) Kind() string { return "activity.appended" }

// InsertOpts caps retries for downstream consumers.
func (ActivityJobArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{MaxAttempts: 5}
}

// Client is the River client type parameterized for SQLite (*sql.Tx).
type Client = river.Client[*sql.Tx]

// Outbox enqueues a River job for every appended activity. It satisfies
// sqlite.ActivityOutbox.
type Outbox struct {
	client *Client
}

// NewOutbox creates an outbox backed by the given River client.
func NewOutbox(client *Client) *Outbox {
	return &Outbox{client: client}
}

// EnqueueTx inserts the activity job using the caller's transaction.
func (o *Outbox) EnqueueTx(ctx context.Context, tx *sql.Tx, a domain.Activity) error {
	_, err := o.client.InsertTx(ctx, tx, ActivityJobArgs{
		ActivityID:  a.ID,
		DealID:      a.DealID,
		Type:        string(a.Type),
		Subject:     a.Subject,
		FromStageID: a.FromStageID,
		ToStageID:   a.ToStageID,
		CreatedBy:   a.CreatedBy,
		CreatedAt:   a.CreatedAt,
	}, nil)
	if err != nil {
		return fmt.Errorf("enqueuing activity job: %w", err)
	}
	return nil
}
