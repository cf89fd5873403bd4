// Package jobs hosts the Asynq worker, clients and task definitions for
// background work: transactional email delivery and the scheduled
// maintenance sweep.
package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"github.com/fibra-studio/fibra-core/internal/maintenance"
	"github.com/fibra-studio/fibra-core/internal/notify"
	"github.com/fibra-studio/fibra-core/internal/rbac"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail delivers one notification email.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeMaintenanceSweep runs the globally keyed upkeep tasks on a
	// schedule, independent of user activity.
	TaskTypeMaintenanceSweep = "maintenance:sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// NewMaintenanceSweepTask constructs the scheduled sweep task.
func NewMaintenanceSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeMaintenanceSweep, nil)
}

// SendEmailJob processes TaskTypeSendEmail tasks by relaying them to SMTP.
type SendEmailJob struct {
	mailer notify.Mailer
	logger *slog.Logger
}

// NewSendEmailJob constructs the handler.
func NewSendEmailJob(mailer notify.Mailer, logger *slog.Logger) *SendEmailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SendEmailJob{mailer: mailer, logger: logger}
}

// Handle executes one email delivery. A malformed or empty payload is
// dropped rather than retried.
func (j *SendEmailJob) Handle(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if len(payload.To) == 0 {
		return asynq.SkipRetry
	}
	if err := j.mailer.Send(ctx, payload.To, payload.Subject, payload.Body); err != nil {
		j.logger.Warn("send email",
			slog.Int("recipients", len(payload.To)),
			slog.String("subject", payload.Subject),
			slog.Any("error", err),
		)
		return err
	}
	return nil
}

// MaintenanceSweepJob runs the global maintenance tasks on a cron schedule.
// The coordinator shares guard state with interactive kickoffs, so a sweep
// never doubles up with a user-triggered run.
type MaintenanceSweepJob struct {
	coordinator *maintenance.Coordinator
	logger      *slog.Logger
}

// NewMaintenanceSweepJob constructs the handler over a coordinator that
// holds only globally keyed tasks (see maintenance.SweepTasks).
func NewMaintenanceSweepJob(coordinator *maintenance.Coordinator, logger *slog.Logger) *MaintenanceSweepJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MaintenanceSweepJob{coordinator: coordinator, logger: logger}
}

// Handle runs the sweep. Individual task failures are logged by the
// coordinator and never fail the job; the sweep retries on its own schedule.
func (j *MaintenanceSweepJob) Handle(ctx context.Context, _ *asynq.Task) error {
	results := j.coordinator.Run(ctx, uuid.Nil, rbac.RoleAdmin)
	executed := 0
	for _, r := range results {
		if r.Executed {
			executed++
		}
	}
	j.logger.Info("maintenance sweep",
		slog.Int("selected", len(results)),
		slog.Int("executed", executed),
	)
	return nil
}
