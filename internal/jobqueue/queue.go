package jobqueue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	JobKeyPrefix     = "job:"
	JobQueueKey      = "job_queue"
	JobProcessingKey = "job_processing"
	JobStatsKey      = "job_stats"
	// JobDelayedKey is a sorted set of retrying job ids scored by the unix
	// millisecond at which they may run again.
	JobDelayedKey = "job_delayed"

	DefaultMaxRetries = 3
	JobTTL            = 24 * time.Hour

	stuckAfter    = 10 * time.Minute
	sweepInterval = time.Minute
)

var ErrJobNotFound = errors.New("job not found")

// promoteScript moves due ids from the delayed set onto the queue in one step,
// so a crash between the two writes cannot drop a job.
var promoteScript = redis.NewScript(`
local ids = redis.call('ZRANGEBYSCORE', KEYS[1], '-inf', ARGV[1], 'LIMIT', 0, ARGV[2])
for _, id in ipairs(ids) do
	redis.call('ZREM', KEYS[1], id)
	redis.call('LPUSH', KEYS[2], id)
end
return #ids
`)

const promoteBatch = 100

// errPermanent marks handler failures that must not be retried.
type errPermanent struct{ err error }

func (e errPermanent) Error() string { return e.err.Error() }
func (e errPermanent) Unwrap() error { return e.err }

// Permanent wraps err so the queue fails the job without retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errPermanent{err: err}
}

// Handler executes one job. Returning nil completes it.
type Handler func(ctx context.Context, job *Job) error

// Queue runs background jobs stored in Redis.
type Queue struct {
	client       *redis.Client
	workers      int
	retryDelay   time.Duration
	pollInterval time.Duration
	handlers     map[JobType]Handler

	stopCh  chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func NewQueue(client *redis.Client, workers int, retryDelay time.Duration) *Queue {
	if workers <= 0 {
		workers = 2
	}
	if retryDelay <= 0 {
		retryDelay = 30 * time.Second
	}
	poll := retryDelay / 2
	if poll > time.Second {
		poll = time.Second
	}
	if poll < 10*time.Millisecond {
		poll = 10 * time.Millisecond
	}
	return &Queue{
		client:       client,
		workers:      workers,
		retryDelay:   retryDelay,
		pollInterval: poll,
		handlers:     make(map[JobType]Handler),
		stopCh:       make(chan struct{}),
	}
}

// Register binds a handler to a job type. Call before Start.
func (q *Queue) Register(t JobType, h Handler) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.handlers[t] = h
}

func (q *Queue) Start() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.running = true
	slog.Info("job queue starting", "workers", q.workers)

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	q.wg.Add(2)
	go q.stuckSweeper()
	go q.retryScheduler()
}

// Stop waits for in-flight jobs to finish.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	close(q.stopCh)
	q.running = false
	q.mu.Unlock()

	q.wg.Wait()
	slog.Info("job queue stopped")
}

func (q *Queue) worker(id int) {
	defer q.wg.Done()
	ctx := context.Background()

	for {
		select {
		case <-q.stopCh:
			return
		default:
		}

		job, err := q.dequeue(ctx)
		if err != nil {
			if !errors.Is(err, redis.Nil) {
				slog.Warn("dequeue failed", "worker", id, "error", err)
				time.Sleep(time.Second)
			}
			continue
		}
		slog.Info("processing job", "worker", id, "job_id", job.ID, "type", job.Type)
		q.process(ctx, job)
	}
}

func (q *Queue) stuckSweeper() {
	defer q.wg.Done()
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if _, err := q.RecoverStuck(context.Background(), stuckAfter); err != nil {
				slog.Warn("stuck job sweep failed", "error", err)
			}
		}
	}
}

func (q *Queue) retryScheduler() {
	defer q.wg.Done()
	ticker := time.NewTicker(q.pollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if _, err := q.PromoteDue(context.Background(), time.Now()); err != nil {
				slog.Warn("retry promotion failed", "error", err)
			}
		}
	}
}

// PromoteDue requeues delayed retries whose back-off has elapsed by now.
func (q *Queue) PromoteDue(ctx context.Context, now time.Time) (int, error) {
	n, err := promoteScript.Run(ctx, q.client,
		[]string{JobDelayedKey, JobQueueKey}, now.UnixMilli(), promoteBatch).Int()
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("retries requeued", "count", n)
	}
	return n, nil
}

// RecoverStuck moves jobs that have been processing longer than maxAge back to the queue.
func (q *Queue) RecoverStuck(ctx context.Context, maxAge time.Duration) (int, error) {
	ids, err := q.client.LRange(ctx, JobProcessingKey, 0, -1).Result()
	if err != nil {
		return 0, err
	}
	recovered := 0
	now := time.Now()
	for _, id := range ids {
		job, err := q.Get(ctx, id)
		if err != nil {
			q.client.LRem(ctx, JobProcessingKey, 1, id)
			continue
		}
		if job.Status != JobStatusProcessing {
			q.client.LRem(ctx, JobProcessingKey, 1, id)
			continue
		}
		started := job.UpdatedAt
		if job.ProcessedAt != nil {
			started = *job.ProcessedAt
		}
		if now.Sub(started) <= maxAge {
			continue
		}

		slog.Warn("recovering stuck job", "job_id", job.ID, "type", job.Type, "age", now.Sub(started).String())
		job.Status = JobStatusPending
		job.ErrorMsg = "recovered by sweeper"
		job.UpdatedAt = now
		q.save(ctx, job)

		pipe := q.client.TxPipeline()
		pipe.LRem(ctx, JobProcessingKey, 1, id)
		pipe.RPush(ctx, JobQueueKey, id)
		if _, err := pipe.Exec(ctx); err != nil {
			return recovered, err
		}
		recovered++
	}
	return recovered, nil
}

func (q *Queue) Enqueue(ctx context.Context, jobType JobType, payload map[string]interface{}) (*Job, error) {
	now := time.Now()
	job := &Job{
		ID:         uuid.NewString(),
		Type:       jobType,
		Status:     JobStatusPending,
		Payload:    payload,
		CreatedAt:  now,
		UpdatedAt:  now,
		MaxRetries: DefaultMaxRetries,
	}

	data, err := json.Marshal(job)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job: %w", err)
	}

	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.LPush(ctx, JobQueueKey, job.ID)
	pipe.HIncrBy(ctx, JobStatsKey, string(JobStatusPending), 1)
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue job: %w", err)
	}

	slog.Info("job enqueued", "job_id", job.ID, "type", job.Type)
	return job, nil
}

// EnqueueAnalysis schedules a severity re-analysis of a report photo.
func (q *Queue) EnqueueAnalysis(ctx context.Context, reportID uuid.UUID) (*Job, error) {
	return q.Enqueue(ctx, JobTypeAnalyzeReport, AnalyzePayload{ReportID: reportID.String()}.ToMap())
}

func (q *Queue) dequeue(ctx context.Context) (*Job, error) {
	id, err := q.client.BRPopLPush(ctx, JobQueueKey, JobProcessingKey, time.Second).Result()
	if err != nil {
		return nil, err
	}
	job, err := q.Get(ctx, id)
	if err != nil {
		q.client.LRem(ctx, JobProcessingKey, 1, id)
		return nil, fmt.Errorf("load job %s: %w", id, err)
	}
	return job, nil
}

// process runs the handler and applies the retry policy.
func (q *Queue) process(ctx context.Context, job *Job) {
	job.MarkAsProcessing()
	q.save(ctx, job)

	q.mu.Lock()
	handler, ok := q.handlers[job.Type]
	q.mu.Unlock()

	var err error
	if !ok {
		err = Permanent(fmt.Errorf("unknown job type: %s", job.Type))
	} else {
		err = handler(ctx, job)
	}

	if err == nil {
		job.MarkAsCompleted()
		q.incrStat(ctx, JobStatusCompleted)
		slog.Info("job completed", "job_id", job.ID, "type", job.Type)
	} else {
		job.MarkAsFailed(err.Error())
		if isPermanent(err) || !job.IsRetryable() {
			q.incrStat(ctx, JobStatusFailed)
			slog.Error("job failed permanently", "job_id", job.ID, "type", job.Type, "attempts", job.RetryCount, "error", err)
		} else {
			job.MarkAsRetrying()
			delay := job.RetryDelay(q.retryDelay)
			slog.Warn("job failed, retrying", "job_id", job.ID, "attempt", job.RetryCount, "max", job.MaxRetries, "delay", delay.String(), "error", err)
			q.scheduleRetry(ctx, job, time.Now().Add(delay))
			return
		}
	}

	q.save(ctx, job)
	if err := q.client.LRem(ctx, JobProcessingKey, 1, job.ID).Err(); err != nil {
		slog.Warn("failed to clear processing entry", "job_id", job.ID, "error", err)
	}
}

// scheduleRetry parks the job in the delayed set and releases its processing
// entry in one transaction; the job survives a restart during the back-off.
func (q *Queue) scheduleRetry(ctx context.Context, job *Job, at time.Time) {
	data, err := json.Marshal(job)
	if err != nil {
		slog.Error("failed to marshal job", "job_id", job.ID, "error", err)
		return
	}
	pipe := q.client.TxPipeline()
	pipe.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL)
	pipe.ZAdd(ctx, JobDelayedKey, redis.Z{Score: float64(at.UnixMilli()), Member: job.ID})
	pipe.LRem(ctx, JobProcessingKey, 1, job.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		// The id stays in job_processing, so the stuck sweeper picks it up.
		slog.Error("failed to schedule retry", "job_id", job.ID, "error", err)
	}
}

func isPermanent(err error) bool {
	var p errPermanent
	return errors.As(err, &p)
}

func (q *Queue) save(ctx context.Context, job *Job) {
	data, err := json.Marshal(job)
	if err != nil {
		slog.Error("failed to marshal job", "job_id", job.ID, "error", err)
		return
	}
	if err := q.client.Set(ctx, JobKeyPrefix+job.ID, data, JobTTL).Err(); err != nil {
		slog.Error("failed to store job", "job_id", job.ID, "error", err)
	}
}

func (q *Queue) incrStat(ctx context.Context, status JobStatus) {
	if err := q.client.HIncrBy(ctx, JobStatsKey, string(status), 1).Err(); err != nil {
		slog.Warn("failed to update job stats", "error", err)
	}
}

func (q *Queue) Get(ctx context.Context, id string) (*Job, error) {
	data, err := q.client.Get(ctx, JobKeyPrefix+id).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	var job Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal job: %w", err)
	}
	return &job, nil
}

func (q *Queue) Stats(ctx context.Context) (map[JobStatus]int64, error) {
	raw, err := q.client.HGetAll(ctx, JobStatsKey).Result()
	if err != nil {
		return nil, err
	}
	out := make(map[JobStatus]int64, len(raw))
	for status, count := range raw {
		if n, err := json.Number(count).Int64(); err == nil {
			out[JobStatus(status)] = n
		}
	}
	return out, nil
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.client.LLen(ctx, JobQueueKey).Result()
}

// Delayed counts jobs waiting out a retry back-off.
func (q *Queue) Delayed(ctx context.Context) (int64, error) {
	return q.client.ZCard(ctx, JobDelayedKey).Result()
}
