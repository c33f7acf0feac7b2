package notification

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"astroconsult-backend/internal/domain"
	"astroconsult-backend/internal/logger"
	"astroconsult-backend/internal/metrics"
)

// ErrQueueFull is returned by Enqueue when the in-process buffer is saturated.
var ErrQueueFull = errors.New("notification queue full")

// Job is one queued notification and the channels still owed a delivery.
type Job struct {
	Notification domain.Notification `json:"notification"`
	Channels     []string            `json:"channels"`
	Tries        int                 `json:"tries"`
	Enqueued     time.Time           `json:"enqueued"`
}

// Handler delivers a job and returns the channels that failed and may be retried.
type Handler func(ctx context.Context, job Job) (failed []string)

type Queue interface {
	Enqueue(ctx context.Context, job Job) error
	// Run consumes jobs until ctx is cancelled.
	Run(ctx context.Context, handle Handler)
	Len(ctx context.Context) int64
}

// QueueOptions tune retry behaviour shared by both queues.
type QueueOptions struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

func (o QueueOptions) withDefaults() QueueOptions {
	if o.Workers <= 0 {
		o.Workers = 1
	}
	if o.BufferSize <= 0 {
		o.BufferSize = 256
	}
	if o.MaxRetries <= 0 {
		o.MaxRetries = 3
	}
	return o
}

// MemoryQueue is a bounded in-process queue served by a worker pool.
type MemoryQueue struct {
	jobs chan Job
	opts QueueOptions

	mu   sync.Mutex
	dead []Job
}

func NewMemoryQueue(opts QueueOptions) *MemoryQueue {
	opts = opts.withDefaults()
	return &MemoryQueue{jobs: make(chan Job, opts.BufferSize), opts: opts}
}

func (q *MemoryQueue) Enqueue(ctx context.Context, job Job) error {
	select {
	case q.jobs <- job:
		metrics.NotificationQueueLength.Set(float64(len(q.jobs)))
		return nil
	default:
		metrics.NotificationsTotal.WithLabelValues("queue", "dropped").Inc()
		return ErrQueueFull
	}
}

func (q *MemoryQueue) Run(ctx context.Context, handle Handler) {
	var wg sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job := <-q.jobs:
					metrics.NotificationQueueLength.Set(float64(len(q.jobs)))
					q.process(ctx, job, handle)
				}
			}
		}()
	}
	wg.Wait()
	if n := len(q.jobs); n > 0 {
		logger.Warn("Notification queue stopped with undelivered jobs", "count", n)
	}
}

func (q *MemoryQueue) process(ctx context.Context, job Job, handle Handler) {
	failed := handle(ctx, job)
	if len(failed) == 0 {
		return
	}
	job.Tries++
	job.Channels = failed
	if job.Tries >= q.opts.MaxRetries {
		q.mu.Lock()
		q.dead = append(q.dead, job)
		q.mu.Unlock()
		logger.Error("Notification moved to dead letters", "notificationID", job.Notification.ID, "channels", failed, "tries", job.Tries)
		return
	}
	retry := func() {
		if err := q.Enqueue(ctx, job); err != nil {
			logger.Warn("Failed to requeue notification", "notificationID", job.Notification.ID, "error", err)
		}
	}
	if q.opts.RetryDelay > 0 {
		time.AfterFunc(q.opts.RetryDelay, retry)
		return
	}
	retry()
}

func (q *MemoryQueue) Len(context.Context) int64 { return int64(len(q.jobs)) }

// DeadLetters returns jobs that exhausted their retries.
func (q *MemoryQueue) DeadLetters() []Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]Job(nil), q.dead...)
}

// RedisQueue keeps jobs in a Redis list so they survive restarts.
// Producers LPUSH, workers BRPOP; exhausted jobs go to "<key>:failed".
type RedisQueue struct {
	client      *redis.Client
	key         string
	deadKey     string
	opts        QueueOptions
	pollTimeout time.Duration
	now         func() time.Time
}

func NewRedisQueue(client *redis.Client, key string, opts QueueOptions) *RedisQueue {
	if key == "" {
		key = "notifications"
	}
	return &RedisQueue{
		client:      client,
		key:         key,
		deadKey:     key + ":failed",
		opts:        opts.withDefaults(),
		pollTimeout: 2 * time.Second,
		now:         time.Now,
	}
}

type deadLetter struct {
	Job  Job       `json:"job"`
	Time time.Time `json:"time"`
}

func (q *RedisQueue) Enqueue(ctx context.Context, job Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return err
	}
	if err := q.client.LPush(ctx, q.key, data).Err(); err != nil {
		logger.Error("Failed to queue notification", "notificationID", job.Notification.ID, "error", err)
		return err
	}
	return nil
}

func (q *RedisQueue) Run(ctx context.Context, handle Handler) {
	logger.Info("Notification worker started", "queue", q.key, "workers", q.opts.Workers)
	var wg sync.WaitGroup
	for i := 0; i < q.opts.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				q.processNext(ctx, handle)
			}
		}()
	}

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			logger.Info("Notification worker stopped", "queue", q.key)
			return
		case <-ticker.C:
			metrics.NotificationQueueLength.Set(float64(q.Len(ctx)))
		}
	}
}

func (q *RedisQueue) processNext(ctx context.Context, handle Handler) {
	result, err := q.client.BRPop(ctx, q.pollTimeout, q.key).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
			logger.Warn("Failed to pop notification", "queue", q.key, "error", err)
			sleep(ctx, time.Second)
		}
		return
	}

	var job Job
	if err := json.Unmarshal([]byte(result[1]), &job); err != nil {
		logger.Error("Bad notification data", "error", err)
		return
	}

	failed := handle(ctx, job)
	if len(failed) == 0 {
		return
	}
	job.Tries++
	job.Channels = failed

	// Requeue and dead-letter writes must outlive a shutdown in progress.
	bg := context.WithoutCancel(ctx)
	if job.Tries < q.opts.MaxRetries {
		sleep(ctx, q.opts.RetryDelay)
		if err := q.Enqueue(bg, job); err != nil {
			logger.Error("Failed to requeue notification", "notificationID", job.Notification.ID, "error", err)
		}
		return
	}

	data, _ := json.Marshal(deadLetter{Job: job, Time: q.now()})
	if err := q.client.LPush(bg, q.deadKey, data).Err(); err != nil {
		logger.Error("Failed to dead-letter notification", "notificationID", job.Notification.ID, "error", err)
		return
	}
	logger.Error("Notification moved to failed queue", "notificationID", job.Notification.ID, "channels", failed, "tries", job.Tries)
}

func (q *RedisQueue) Len(ctx context.Context) int64 {
	n, _ := q.client.LLen(ctx, q.key).Result()
	return n
}

func sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
