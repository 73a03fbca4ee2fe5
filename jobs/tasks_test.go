package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingMailer struct {
	sent []SendEmailPayload
	err  error
}

func (m *recordingMailer) Send(_ context.Context, msg SendEmailPayload) error {
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

func TestMailJobDelivers(t *testing.T) {
	mailer := &recordingMailer{}
	job := NewMailJob(mailer, nil, nil)
	task, err := NewSendEmailTask(SendEmailPayload{To: "jane@example.com", Subject: "Hi", Text: "hello"})
	require.NoError(t, err)

	require.NoError(t, job.Handle(context.Background(), task))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, "jane@example.com", mailer.sent[0].To)
}

func TestMailJobSkipsRetryOnBadPayload(t *testing.T) {
	job := NewMailJob(&recordingMailer{}, nil, nil)

	err := job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, []byte("{not json")))
	assert.ErrorIs(t, err, asynq.SkipRetry)

	data, _ := json.Marshal(SendEmailPayload{Subject: "no recipient", Text: "x"})
	err = job.Handle(context.Background(), asynq.NewTask(TaskTypeSendEmail, data))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestMailJobRetriesDeliveryFailure(t *testing.T) {
	boom := errors.New("connection refused")
	job := NewMailJob(&recordingMailer{err: boom}, nil, nil)
	task, err := NewSendEmailTask(SendEmailPayload{To: "jane@example.com", Subject: "Hi", HTML: "<p>hi</p>"})
	require.NoError(t, err)

	err = job.Handle(context.Background(), task)
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, asynq.SkipRetry)
}

func TestSMTPMailerBuildsMultipartMessage(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, Username: "bot@example.com", Password: "pw"}, nil)
	var (
		gotAddr string
		gotMsg  string
		gotTo   []string
	)
	mailer.send = func(addr string, _ smtp.Auth, _ string, to []string, msg []byte) error {
		gotAddr, gotTo, gotMsg = addr, to, string(msg)
		return nil
	}

	err := mailer.Send(context.Background(), SendEmailPayload{To: "jane@example.com", Subject: "Line\r\nBcc: evil@example.com", Text: "plain", HTML: "<b>html</b>"})
	require.NoError(t, err)
	assert.Equal(t, "smtp.example.com:587", gotAddr)
	assert.Equal(t, []string{"jane@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "From: bot@example.com\r\n")
	assert.Contains(t, gotMsg, "text/plain")
	assert.Contains(t, gotMsg, "text/html")
	assert.False(t, strings.Contains(gotMsg, "\r\nBcc:"))
}

func TestSMTPMailerWithoutHostDropsMail(t *testing.T) {
	mailer := NewSMTPMailer(SMTPConfig{}, nil)
	mailer.send = func(string, smtp.Auth, string, []string, []byte) error {
		t.Fatal("send must not be called")
		return nil
	}
	assert.NoError(t, mailer.Send(context.Background(), SendEmailPayload{To: "a@example.com", Subject: "s", Text: "t"}))
}

type execRecorder struct {
	sql  string
	args []any
}

func (e *execRecorder) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	e.sql, e.args = sql, args
	return pgconn.NewCommandTag("DELETE 3"), nil
}

func (e *execRecorder) Query(context.Context, string, ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

func (e *execRecorder) QueryRow(context.Context, string, ...any) pgx.Row {
	return nil
}

func TestPurgeRefreshTokens(t *testing.T) {
	conn := &execRecorder{}
	job := NewPurgeRefreshTokensJob(conn, nil, nil)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	job.now = func() time.Time { return fixed }

	require.NoError(t, job.Handle(context.Background(), NewPurgeRefreshTokensTask()))
	assert.Contains(t, conn.sql, "DELETE FROM refresh_tokens")
	assert.Equal(t, []any{fixed}, conn.args)
}
