package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/hrforms/jobs"
)

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    *asynq.Client
	inspector *asynq.Inspector
}

// NewJobsCLI initialises the CLI helpers against the queue Redis.
func NewJobsCLI(opts asynq.RedisClientOpt) (*JobsCLI, error) {
	if opts.Addr == "" {
		return nil, errors.New("jobs cli: redis address required")
	}
	client := asynq.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector}, nil
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	if c.inspector != nil {
		if closeErr := c.inspector.Close(); closeErr != nil {
			err = closeErr
		}
	}
	if c.client != nil {
		if closeErr := c.client.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// Trigger enqueues a supported job by name with default payload.
func (c *JobsCLI) Trigger(ctx context.Context, name string) (*asynq.TaskInfo, error) {
	if c == nil || c.client == nil {
		return nil, errors.New("jobs cli: client not configured")
	}
	var task *asynq.Task
	switch name {
	case jobs.TaskTypePurgeRefreshTokens:
		task = jobs.NewPurgeRefreshTokensTask()
	default:
		return nil, fmt.Errorf("jobs cli: unsupported job %s", name)
	}
	return c.client.EnqueueContext(ctx, task)
}

// QueueStats summarises the current queue state.
type QueueStats struct {
	Queue     string
	Pending   int
	Active    int
	Scheduled int
	Retry     int
	Archived  int
}

// InspectQueue reports the queue metrics for the default queue.
func (c *JobsCLI) InspectQueue(ctx context.Context) (QueueStats, error) {
	if c == nil || c.inspector == nil {
		return QueueStats{}, errors.New("jobs cli: inspector not configured")
	}
	info, err := c.inspector.GetQueueInfo(jobs.QueueDefault)
	if err != nil {
		return QueueStats{}, err
	}
	stats := QueueStats{Queue: jobs.QueueDefault}
	if info != nil {
		stats.Pending = info.Pending
		stats.Active = info.Active
		stats.Scheduled = info.Scheduled
		stats.Retry = info.Retry
		stats.Archived = info.Archived
	}
	return stats, nil
}

// RetryArchivedMail moves dead-lettered mail tasks back to pending.
func (c *JobsCLI) RetryArchivedMail(ctx context.Context) (int, error) {
	if c == nil || c.inspector == nil {
		return 0, errors.New("jobs cli: inspector not configured")
	}
	archived, err := c.inspector.ListArchivedTasks(jobs.QueueDefault, asynq.PageSize(100))
	if err != nil {
		return 0, err
	}
	retried := 0
	for _, info := range archived {
		if info.Type != jobs.TaskTypeSendEmail {
			continue
		}
		if err := c.inspector.RunTask(jobs.QueueDefault, info.ID); err != nil {
			return retried, err
		}
		retried++
	}
	return retried, nil
}

// Run executes one jobs subcommand and prints its result.
func Run(ctx context.Context, c *JobsCLI, args []string, printf func(format string, a ...any)) error {
	if len(args) == 0 {
		return errors.New("usage: hrforms jobs <stats|trigger NAME|retry-mail>")
	}
	switch args[0] {
	case "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		printf("queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return nil
	case "trigger":
		if len(args) < 2 {
			return errors.New("usage: hrforms jobs trigger NAME")
		}
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		printf("enqueued %s id=%s\n", info.Type, info.ID)
		return nil
	case "retry-mail":
		n, err := c.RetryArchivedMail(ctx)
		if err != nil {
			return err
		}
		printf("retried %d mail tasks\n", n)
		return nil
	default:
		return fmt.Errorf("jobs cli: unknown command %s", args[0])
	}
}
