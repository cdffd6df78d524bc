package agent

import (
	"context"
	"errors"

	"github.com/hairizuanbinnoorazman/ohacker/job"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
)

// Dispatcher executes a job that a worker has claimed.
type Dispatcher interface {
	RunAfterClaim(ctx context.Context, j *job.Job)
}

// WorkerPool manages a pool of goroutines that process jobs from the ledger.
// Workers are woken through Notify and claim jobs atomically, so no job is
// processed twice.
type WorkerPool struct {
	work       chan struct{}
	maxWorkers int
	jobStore   job.Store
	dispatcher Dispatcher
	logger     logger.Logger
}

// NewWorkerPool creates a new worker pool.
func NewWorkerPool(maxWorkers int, jobStore job.Store, dispatcher Dispatcher, log logger.Logger) *WorkerPool {
	if maxWorkers <= 0 {
		maxWorkers = 1
	}
	return &WorkerPool{
		work:       make(chan struct{}, maxWorkers),
		maxWorkers: maxWorkers,
		jobStore:   jobStore,
		dispatcher: dispatcher,
		logger:     log,
	}
}

// Notify wakes a worker. It never blocks; pending wake-ups are coalesced.
func (p *WorkerPool) Notify() {
	select {
	case p.work <- struct{}{}:
	default:
	}
}

// Start spawns worker goroutines that listen for job notifications. Jobs
// created before Start are picked up immediately.
func (p *WorkerPool) Start(ctx context.Context) {
	p.logger.Info(ctx, "starting worker pool", map[string]interface{}{
		"max_workers": p.maxWorkers,
	})
	for i := 0; i < p.maxWorkers; i++ {
		go p.worker(ctx, i)
	}
	p.Notify()
}

func (p *WorkerPool) worker(ctx context.Context, id int) {
	p.logger.Debug(ctx, "worker started", map[string]interface{}{
		"worker_id": id,
	})
	for {
		select {
		case <-p.work:
			p.drain(ctx, id)
		case <-ctx.Done():
			p.logger.Debug(ctx, "worker stopping", map[string]interface{}{
				"worker_id": id,
			})
			return
		}
	}
}

// drain processes created jobs until none are left.
func (p *WorkerPool) drain(ctx context.Context, id int) {
	for ctx.Err() == nil {
		j, err := p.jobStore.ClaimNextCreated(ctx)
		if errors.Is(err, job.ErrNoPendingJobs) {
			return
		}
		if err != nil {
			p.logger.Error(ctx, "worker failed to claim job", map[string]interface{}{
				"worker_id": id,
				"error":     err.Error(),
			})
			return
		}
		p.logger.Info(ctx, "worker processing job", map[string]interface{}{
			"worker_id": id,
			"job_id":    j.ID.String(),
		})
		p.dispatcher.RunAfterClaim(ctx, j)
	}
}
