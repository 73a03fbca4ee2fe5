package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/hrforms/internal/jobs"
	"github.com/odyssey-erp/hrforms/internal/platform/db"
)

// NewPurgeRefreshTokensTask constructs the periodic purge task.
func NewPurgeRefreshTokensTask() *asynq.Task {
	return asynq.NewTask(TaskTypePurgeRefreshTokens, nil, asynq.MaxRetry(3), asynq.Queue(QueueDefault))
}

// PurgeRefreshTokensJob deletes refresh token rows past their expiry.
type PurgeRefreshTokensJob struct {
	db      db.DBTX
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
	now     func() time.Time
}

// NewPurgeRefreshTokensJob constructs the job.
func NewPurgeRefreshTokensJob(conn db.DBTX, logger *slog.Logger, metrics *jobmetrics.Metrics) *PurgeRefreshTokensJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &PurgeRefreshTokensJob{db: conn, logger: logger, metrics: metrics, now: time.Now}
}

// Handle runs one purge pass.
func (j *PurgeRefreshTokensJob) Handle(ctx context.Context, _ *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypePurgeRefreshTokens)
	tag, err := j.db.Exec(ctx, `DELETE FROM refresh_tokens WHERE expires_at < $1`, j.now().UTC())
	if err != nil {
		j.logger.Error("purge refresh tokens", slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("purged refresh tokens", slog.Int64("rows", tag.RowsAffected()))
	return tracker.End(nil)
}
