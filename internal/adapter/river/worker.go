package river

import (
	"context"

	"github.com/riverqueue/river"
	"go.uber.org/zap"
)

// ActivityWorker consumes appended activities. It only logs them; webhook or
// notification fan-out would hang off this worker.
type ActivityWorker struct {
	river.WorkerDefaults[ActivityJobArgs]
	log *zap.Logger
}

// Work processes a single activity job.
func (w *ActivityWorker) Work(ctx context.Context, job *river.Job[ActivityJobArgs]) error {
	w.log.Info("activity appended",
		zap.String("activity_id", job.Args.ActivityID),
		zap.String("deal_id", job.Args.DealID),
		zap.String("activity_type", job.Args.Type),
		zap.String("from_stage_id", job.Args.FromStageID),
		zap.String("to_stage_id", job.Args.ToStageID),
		zap.Int64("job_id", job.ID),
		zap.Int("attempt", job.Attempt),
	)
	return nil
}
