// Package processor runs batch job operations on a fixed worker pool, returning results in input order.
package processor

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/otakuparshva/ai-recruitment/internal/domain"
)

// ErrStopped is reported for items still queued when the processor stops.
var ErrStopped = errors.New("processor stopped")

// JobFunc is applied to one job id. A nil job with a nil error means the job does not exist.
type JobFunc func(ctx context.Context, jobID string) (*domain.Job, error)

// task carries its own result channel so that concurrent batches never see each other's results.
type task struct {
	index int
	jobID string
	ctx   context.Context
	fn    JobFunc
	out   chan<- indexedResult
}

type indexedResult struct {
	index int
	res   *domain.BatchResult
}

// OrderedProcessor implements domain.JobBatchProcessor with a worker pool and order preservation
type OrderedProcessor struct {
	workers int
	timeout time.Duration
	queue   chan *task
	wg      sync.WaitGroup
	logger  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc

	startOnce sync.Once
	stopOnce  sync.Once
}

// NewOrderedProcessor creates a processor; timeout bounds a whole batch, zero means no bound.
func NewOrderedProcessor(workers, queueSize int, timeout time.Duration, logger *zap.Logger) *OrderedProcessor {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &OrderedProcessor{
		workers: workers,
		timeout: timeout,
		queue:   make(chan *task, queueSize),
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches the workers. Calling it again is a no-op.
func (p *OrderedProcessor) Start() {
	p.startOnce.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go p.worker(i)
		}
		p.logger.Info("ordered processor started", zap.Int("workers", p.workers))
	})
}

// Stop waits for running items and exits the workers. Items still queued are reported as failed.
func (p *OrderedProcessor) Stop() {
	p.stopOnce.Do(func() {
		p.cancel()
		p.wg.Wait()
		p.logger.Info("ordered processor stopped")
	})
}

// Process applies fn to every id and returns one result per id in input order.
// Items that could not run before the deadline or shutdown are reported as failed.
func (p *OrderedProcessor) Process(ctx context.Context, jobIDs []string, fn func(ctx context.Context, jobID string) (*domain.Job, error)) []*domain.BatchResult {
	results := make([]*domain.BatchResult, len(jobIDs))
	if len(jobIDs) == 0 {
		return results
	}

	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out := make(chan indexedResult, len(jobIDs))

	sent := 0
dispatch:
	for i, id := range jobIDs {
		t := &task{index: i, jobID: id, ctx: ctx, fn: fn, out: out}
		select {
		case <-ctx.Done():
			break dispatch
		case <-p.ctx.Done():
			break dispatch
		case p.queue <- t:
			sent++
		}
	}

	collected := 0
collect:
	for collected < sent {
		select {
		case r := <-out:
			results[r.index] = r.res
			collected++
		case <-ctx.Done():
			break collect
		case <-p.ctx.Done():
			break collect
		}
	}

	for i, id := range jobIDs {
		if results[i] != nil {
			continue
		}
		err := ctx.Err()
		if err == nil {
			err = ErrStopped
		}
		results[i] = failed(id, err)
	}
	return results
}

func (p *OrderedProcessor) worker(id int) {
	defer p.wg.Done()
	for {
		select {
		case <-p.ctx.Done():
			return
		case t := <-p.queue:
			t.out <- indexedResult{index: t.index, res: p.run(id, t)}
		}
	}
}

func (p *OrderedProcessor) run(workerID int, t *task) *domain.BatchResult {
	if err := t.ctx.Err(); err != nil {
		return failed(t.jobID, err)
	}

	start := time.Now()
	job, err := t.fn(t.ctx, t.jobID)
	p.logger.Debug("batch item processed",
		zap.Int("worker_id", workerID),
		zap.String("job_id", t.jobID),
		zap.Duration("duration", time.Since(start)),
		zap.Error(err),
	)

	switch {
	case err != nil:
		return failed(t.jobID, err)
	case job == nil:
		return &domain.BatchResult{JobID: t.jobID, Status: domain.BatchStatusSkipped, Error: "job not found"}
	default:
		return &domain.BatchResult{JobID: t.jobID, Status: domain.BatchStatusSuccess, Job: job}
	}
}

func failed(jobID string, err error) *domain.BatchResult {
	return &domain.BatchResult{JobID: jobID, Status: domain.BatchStatusFailed, Error: err.Error(), Err: err}
}

var _ domain.JobBatchProcessor = (*OrderedProcessor)(nil)
