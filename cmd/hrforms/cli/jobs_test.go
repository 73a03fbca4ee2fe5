package cli

import (
	"context"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunRequiresCommand(t *testing.T) {
	err := Run(context.Background(), nil, nil, t.Logf)
	assert.ErrorContains(t, err, "usage")

	err = Run(context.Background(), nil, []string{"trigger"}, t.Logf)
	assert.ErrorContains(t, err, "usage")

	err = Run(context.Background(), nil, []string{"bogus"}, t.Logf)
	assert.ErrorContains(t, err, "unknown command")
}

func TestUnconfiguredCLI(t *testing.T) {
	var c *JobsCLI
	_, err := c.Trigger(context.Background(), "auth:refresh-tokens:purge")
	assert.Error(t, err)
	_, err = c.InspectQueue(context.Background())
	assert.Error(t, err)
	_, err = c.RetryArchivedMail(context.Background())
	assert.Error(t, err)

	_, err = NewJobsCLI(asynq.RedisClientOpt{})
	assert.Error(t, err)
}

func TestTriggerRejectsUnknownJob(t *testing.T) {
	c, err := NewJobsCLI(asynq.RedisClientOpt{Addr: "127.0.0.1:0"})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	_, err = c.Trigger(context.Background(), "mail:send")
	assert.ErrorContains(t, err, "unsupported job")
}
