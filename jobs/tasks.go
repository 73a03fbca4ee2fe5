package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/odyssey-erp/hrforms/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypePurgeRefreshTokens removes expired refresh token rows.
	TaskTypePurgeRefreshTokens = "auth:refresh-tokens:purge"

	// MailMaxRetry bounds delivery attempts before asynq archives the task.
	MailMaxRetry = 5
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Text    string `json:"text"`
	HTML    string `json:"html"`
}

// Validate rejects payloads that can never be delivered.
func (p SendEmailPayload) Validate() error {
	if strings.TrimSpace(p.To) == "" {
		return fmt.Errorf("jobs: mail payload missing recipient")
	}
	if strings.TrimSpace(p.Subject) == "" {
		return fmt.Errorf("jobs: mail payload missing subject")
	}
	if p.Text == "" && p.HTML == "" {
		return fmt.Errorf("jobs: mail payload missing body")
	}
	return nil
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(MailMaxRetry), asynq.Queue(QueueDefault)), nil
}

// Mailer delivers one message.
type Mailer interface {
	Send(ctx context.Context, msg SendEmailPayload) error
}

// MailJob processes TaskTypeSendEmail tasks.
type MailJob struct {
	mailer  Mailer
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewMailJob constructs the mail delivery handler.
func NewMailJob(mailer Mailer, logger *slog.Logger, metrics *jobmetrics.Metrics) *MailJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &MailJob{mailer: mailer, logger: logger, metrics: metrics}
}

// Handle decodes the payload and delivers it. Malformed payloads are not retried.
func (j *MailJob) Handle(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track(TaskTypeSendEmail)
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		j.logger.Error("decode mail payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	if err := payload.Validate(); err != nil {
		j.logger.Error("invalid mail payload", slog.Any("error", err))
		return tracker.End(fmt.Errorf("%v: %w", err, asynq.SkipRetry))
	}
	if err := j.mailer.Send(ctx, payload); err != nil {
		j.logger.Warn("send mail", slog.String("to", payload.To), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger.Info("mail sent", slog.String("to", payload.To), slog.String("subject", payload.Subject))
	return tracker.End(nil)
}
