package job

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Queue is an unbounded FIFO of pending jobs. Enqueue is safe for many
// concurrent producers and never blocks; Dequeue is meant for a single
// consumer.
type Queue struct {
	mu     sync.Mutex
	jobs   []Job
	notify chan struct{}
	logger *slog.Logger
}

// NewQueue creates an empty queue
func NewQueue(logger *slog.Logger) *Queue {
	return &Queue{
		notify: make(chan struct{}, 1),
		logger: logger,
	}
}

// Enqueue appends j to the tail of the queue
func (q *Queue) Enqueue(j Job) {
	q.mu.Lock()
	q.jobs = append(q.jobs, j)
	queueLen := len(q.jobs)
	q.mu.Unlock()

	// Wake the consumer; a pending wake-up is enough.
	select {
	case q.notify <- struct{}{}:
	default:
	}

	q.logger.Debug("job enqueued",
		"job_id", j.ID,
		"queue_len", queueLen)
}

// Dequeue removes and returns the job at the head of the queue, waiting up to
// timeout for one to arrive. It returns false on timeout or when ctx is done;
// a cancelled context never removes a job.
func (q *Queue) Dequeue(ctx context.Context, timeout time.Duration) (Job, bool) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		if ctx.Err() != nil {
			return Job{}, false
		}

		if j, ok := q.pop(); ok {
			return j, true
		}

		select {
		case <-q.notify:
		case <-timer.C:
			return Job{}, false
		case <-ctx.Done():
			return Job{}, false
		}
	}
}

// Len returns the number of jobs waiting in the queue
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.jobs)
}

func (q *Queue) pop() (Job, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.jobs) == 0 {
		return Job{}, false
	}
	j := q.jobs[0]
	q.jobs[0] = Job{}
	q.jobs = q.jobs[1:]
	return j, true
}
