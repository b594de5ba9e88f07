package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskReportWarmup pre-populates the grouped vendor quote report cache.
	TaskReportWarmup = "reports:warmup"
	// TaskExpirySweep scans for quote requests whose tokens lapsed unanswered.
	TaskExpirySweep = "quotes:expiry_sweep"
)

// ReportWarmupPayload configures a warmup run.
type ReportWarmupPayload struct {
	Reason string `json:"reason"`
}

// NewReportWarmupTask constructs the warmup task.
func NewReportWarmupTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(ReportWarmupPayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// ExpirySweepPayload configures a sweep run.
type ExpirySweepPayload struct {
	// GraceMinutes widens the window so a request expiring mid-sweep is not
	// reported twice by consecutive runs.
	GraceMinutes int `json:"grace_minutes"`
}

// NewExpirySweepTask constructs the sweep task.
func NewExpirySweepTask(graceMinutes int) (*asynq.Task, error) {
	data, err := json.Marshal(ExpirySweepPayload{GraceMinutes: graceMinutes})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExpirySweep, data), nil
}
