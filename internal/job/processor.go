package job

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/ausonia-api/internal/engine"
)

// Stats is a point-in-time view of the processor
type Stats struct {
	Queued int
	Counts map[Status]int
}

// Processor is the public entry point of the package. It issues job
// identifiers, records submissions as PENDING, and owns the single worker
// that executes them.
type Processor struct {
	store  *StatusStore
	queue  *Queue
	worker *worker
	logger *slog.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewProcessor creates a Processor that resolves models with resolver and
// runs them on eng. The worker does not run until Start is called.
func NewProcessor(resolver Resolver, eng engine.Engine, config Config, logger *slog.Logger) *Processor {
	defaults := DefaultConfig()
	if config.PollInterval <= 0 {
		logger.Warn("invalid poll interval specified, using default",
			"specified", config.PollInterval,
			"default", defaults.PollInterval)
		config.PollInterval = defaults.PollInterval
	}
	if config.MaxPromptTokens <= 0 {
		logger.Warn("invalid max prompt tokens specified, using default",
			"specified", config.MaxPromptTokens,
			"default", defaults.MaxPromptTokens)
		config.MaxPromptTokens = defaults.MaxPromptTokens
	}

	logger = logger.With("component", "job_processor")
	store := NewStatusStore()
	queue := NewQueue(logger)

	return &Processor{
		store: store,
		queue: queue,
		worker: &worker{
			queue:    queue,
			store:    store,
			resolver: resolver,
			engine:   eng,
			config:   config,
			logger:   logger.With("component", "job_worker"),
		},
		logger: logger,
	}
}

// Submit records a new PENDING job for in and queues it for the worker.
// It returns the job's identifier without waiting for execution.
func (p *Processor) Submit(in Input) (uuid.UUID, error) {
	// Held until the job is queued so Stop cannot slip in between the check
	// and the insert.
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.stopped {
		return uuid.Nil, ErrProcessorStopped
	}

	id, err := p.reserveID()
	if err != nil {
		return uuid.Nil, err
	}

	p.queue.Enqueue(Job{ID: id, Input: in})
	p.logger.Info("job submitted",
		"job_id", id,
		"model", in.Model)

	return id, nil
}

// reserveID generates identifiers until one is free in the store, and stores
// the PENDING record under it in the same step.
func (p *Processor) reserveID() (uuid.UUID, error) {
	for {
		id, err := uuid.NewRandom()
		if err != nil {
			return uuid.Nil, fmt.Errorf("failed to generate job id: %w", err)
		}
		if p.store.Insert(id, pendingRecord()) {
			return id, nil
		}
		p.logger.Warn("job id collision, regenerating", "job_id", id)
	}
}

// Status returns the current record for id. Unknown identifiers report
// false; there is no distinction between "never existed" and "unknown".
func (p *Processor) Status(id uuid.UUID) (Record, bool) {
	return p.store.Get(id)
}

// Stats returns the current queue length and the number of jobs per status
func (p *Processor) Stats() Stats {
	return Stats{
		Queued: p.queue.Len(),
		Counts: p.store.Counts(),
	}
}

// Start launches the worker goroutine
func (p *Processor) Start() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.stopped {
		return ErrProcessorStopped
	}
	if p.started {
		return ErrAlreadyStarted
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})
	p.started = true

	go func() {
		defer close(p.done)
		p.worker.run(ctx)
	}()

	return nil
}

// Stop signals the worker to exit and blocks until it has. A job already
// executing finishes first; jobs still queued remain PENDING and are never
// processed. Subsequent submissions are rejected.
func (p *Processor) Stop() {
	p.mu.Lock()
	p.stopped = true
	done := p.done
	if p.cancel != nil {
		p.cancel()
	}
	p.mu.Unlock()

	if done != nil {
		<-done
	}
	p.logger.Info("job processor stopped")
}
