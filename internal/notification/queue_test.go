package notification

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"astroconsult-backend/internal/domain"
)

var fixedTime = time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

func testJob(tries int, channels ...string) Job {
	return Job{
		Notification: domain.Notification{ID: "n1", UserID: "u1", Kind: domain.NotificationSessionCharged, CreatedAt: fixedTime},
		Channels:     channels,
		Tries:        tries,
		Enqueued:     fixedTime,
	}
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return b
}

func newTestRedisQueue(t *testing.T, maxRetries int) (*RedisQueue, redismock.ClientMock) {
	t.Helper()
	client, mock := redismock.NewClientMock()
	q := NewRedisQueue(client, "notifications", QueueOptions{MaxRetries: maxRetries})
	q.now = func() time.Time { return fixedTime }
	return q, mock
}

func TestRedisQueue_Enqueue(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	job := testJob(0, ChannelInApp)
	mock.ExpectLPush("notifications", mustJSON(t, job)).SetVal(1)

	require.NoError(t, q.Enqueue(context.Background(), job))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_ProcessDelivered(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	job := testJob(0, ChannelInApp, ChannelPush)
	mock.ExpectBRPop(q.pollTimeout, "notifications").SetVal([]string{"notifications", string(mustJSON(t, job))})

	var got Job
	q.processNext(context.Background(), func(_ context.Context, j Job) []string {
		got = j
		return nil
	})
	assert.Equal(t, job.Notification.ID, got.Notification.ID)
	assert.Equal(t, job.Channels, got.Channels)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_RequeuesFailedChannels(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	job := testJob(0, ChannelInApp, ChannelPush)
	mock.ExpectBRPop(q.pollTimeout, "notifications").SetVal([]string{"notifications", string(mustJSON(t, job))})
	mock.ExpectLPush("notifications", mustJSON(t, testJob(1, ChannelPush))).SetVal(1)

	q.processNext(context.Background(), func(context.Context, Job) []string { return []string{ChannelPush} })
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_DeadLettersExhaustedJob(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	job := testJob(2, ChannelEmail)
	mock.ExpectBRPop(q.pollTimeout, "notifications").SetVal([]string{"notifications", string(mustJSON(t, job))})
	mock.ExpectLPush("notifications:failed", mustJSON(t, deadLetter{Job: testJob(3, ChannelEmail), Time: fixedTime})).SetVal(1)

	q.processNext(context.Background(), func(context.Context, Job) []string { return []string{ChannelEmail} })
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_EmptyPoll(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	mock.ExpectBRPop(q.pollTimeout, "notifications").RedisNil()

	called := false
	q.processNext(context.Background(), func(context.Context, Job) []string { called = true; return nil })
	assert.False(t, called)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisQueue_Len(t *testing.T) {
	q, mock := newTestRedisQueue(t, 3)
	mock.ExpectLLen("notifications").SetVal(7)
	assert.Equal(t, int64(7), q.Len(context.Background()))
}
