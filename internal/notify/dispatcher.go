package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hrforms/jobs"
)

const enqueueTimeout = 5 * time.Second

// Enqueuer places mail on the background queue.
type Enqueuer interface {
	EnqueueSendEmail(ctx context.Context, payload jobs.SendEmailPayload) (*asynq.TaskInfo, error)
}

// FailureRecorder counts notifications that could not be queued.
type FailureRecorder interface {
	ObserveNotifyFailure(kind string)
}

// Dispatcher renders events and enqueues them asynchronously.
type Dispatcher struct {
	queue       Enqueuer
	frontendURL string
	logger      *slog.Logger
	metrics     FailureRecorder
	wg          sync.WaitGroup
}

// NewDispatcher constructs a Dispatcher. metrics may be nil.
func NewDispatcher(queue Enqueuer, frontendURL string, logger *slog.Logger, metrics FailureRecorder) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{queue: queue, frontendURL: frontendURL, logger: logger, metrics: metrics}
}

// Notify renders event and enqueues it in the background. The caller's
// cancellation does not abort the enqueue.
func (d *Dispatcher) Notify(ctx context.Context, event Event) {
	log := d.logger.With(slog.String("kind", string(event.Kind)), slog.String("userFormId", event.UserFormID.String()))
	if event.Recipient.Email == "" {
		log.Warn("notification skipped, recipient has no email")
		d.fail(event.Kind)
		return
	}
	msg, err := render(event, d.frontendURL)
	if err != nil {
		log.Error("render notification", slog.Any("error", err))
		d.fail(event.Kind)
		return
	}
	payload := jobs.SendEmailPayload{To: event.Recipient.Email, Subject: msg.Subject, Text: msg.Text, HTML: msg.HTML}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), enqueueTimeout)
		defer cancel()
		if _, err := d.queue.EnqueueSendEmail(ctx, payload); err != nil {
			log.Error("enqueue notification", slog.String("to", payload.To), slog.Any("error", err))
			d.fail(event.Kind)
			return
		}
		log.Debug("notification queued", slog.String("to", payload.To))
	}()
}

// Wait blocks until every in-flight enqueue has finished.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}

func (d *Dispatcher) fail(kind Kind) {
	if d.metrics != nil {
		d.metrics.ObserveNotifyFailure(string(kind))
	}
}

var (
	_ Notifier = (*Dispatcher)(nil)
	_ Notifier = Nop{}
	_ Enqueuer = (*jobs.Client)(nil)
)
