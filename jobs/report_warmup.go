package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/quotedesk/quotedesk/internal/reporting"
)

// ReportWarmupJob recomputes the grouped vendor quote rollup so the first
// admin request after a cache expiry does not pay the fold.
type ReportWarmupJob struct {
	reports *reporting.Service
	logger  *slog.Logger
}

func NewReportWarmupJob(reports *reporting.Service, logger *slog.Logger) *ReportWarmupJob {
	return &ReportWarmupJob{reports: reports, logger: logger}
}

// Handle processes a warmup task.
func (j *ReportWarmupJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ReportWarmupPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode warmup payload: %w", err)
		}
	}

	groups, err := j.reports.RefreshGrouped(ctx)
	if err != nil {
		return fmt.Errorf("refresh grouped report: %w", err)
	}

	j.logger.Info("report cache warmed",
		slog.Int("orders", len(groups)),
		slog.String("reason", payload.Reason),
	)
	return nil
}
