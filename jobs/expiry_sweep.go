package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/quotedesk/quotedesk/internal/quoterequest"
)

// ExpirySweepJob reports pending quote requests whose tokens have lapsed.
// The access gate already rejects expired tokens on read, so the sweep does
// not mutate anything; it gives operators a count to chase vendors with.
type ExpirySweepJob struct {
	requests quoterequest.Repository
	logger   *slog.Logger
	now      func() time.Time
}

func NewExpirySweepJob(requests quoterequest.Repository, logger *slog.Logger) *ExpirySweepJob {
	return &ExpirySweepJob{requests: requests, logger: logger, now: time.Now}
}

// Handle processes a sweep task.
func (j *ExpirySweepJob) Handle(ctx context.Context, task *asynq.Task) error {
	var payload ExpirySweepPayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode sweep payload: %w", err)
		}
	}

	cutoff := j.now().UTC()
	if payload.GraceMinutes > 0 {
		cutoff = cutoff.Add(-time.Duration(payload.GraceMinutes) * time.Minute)
	}

	count, err := j.requests.CountExpiredPending(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("count expired pending requests: %w", err)
	}

	if count > 0 {
		j.logger.Warn("quote requests expired unanswered",
			slog.Int("count", count),
			slog.Time("cutoff", cutoff),
		)
	} else {
		j.logger.Info("expiry sweep clean", slog.Time("cutoff", cutoff))
	}
	return nil
}
