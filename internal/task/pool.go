package task

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

var ErrPoolClosed = errors.New("task pool is shut down")

type Worker struct {
	ID         int
	WorkerPool chan chan Task
	JobChannel chan Task
	Logger     *slog.Logger
}

func NewWorker(id int, workerPool chan chan Task, logger *slog.Logger) *Worker {
	return &Worker{
		ID:         id,
		WorkerPool: workerPool,
		JobChannel: make(chan Task),
		Logger:     logger,
	}
}

func (w *Worker) Start(ctx context.Context, wg *sync.WaitGroup, processFunc func(Task)) {
	wg.Add(1)
	go func() {
		defer wg.Done()

		for {
			select {
			case w.WorkerPool <- w.JobChannel:
			case <-ctx.Done():
				w.Logger.Debug("task worker shutting down", "worker_id", w.ID)
				return
			}

			select {
			case job := <-w.JobChannel:
				w.Logger.Debug("worker executing task", "worker_id", w.ID, "task_id", job.ID)
				processFunc(job)
			case <-ctx.Done():
				w.Logger.Debug("task worker shutting down", "worker_id", w.ID)
				return
			}
		}
	}()
}

type PoolConfig struct {
	MaxWorkers int
	QueueSize  int
}

// Pool bounds how many tasks touch the directory at once. Fired tasks wait in
// a buffered queue until a worker is free.
type Pool struct {
	logger  *slog.Logger
	process func(context.Context, Task)

	jobQueue   chan Task
	workerPool chan chan Task
	maxWorkers int
	ctx        context.Context
	cancel     context.CancelFunc
	wg         sync.WaitGroup
	once       sync.Once
}

// NewPool builds a pool that runs process for every submitted task. process
// receives a context that is not cancelled on shutdown, so a write already
// in flight completes.
func NewPool(cfg PoolConfig, process func(context.Context, Task), logger *slog.Logger) *Pool {
	ctx, cancel := context.WithCancel(context.Background())

	maxWorkers := cfg.MaxWorkers
	if maxWorkers <= 0 {
		maxWorkers = 4
	}

	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 100
	}

	return &Pool{
		logger:     logger,
		process:    process,
		maxWorkers: maxWorkers,
		jobQueue:   make(chan Task, queueSize),
		workerPool: make(chan chan Task, maxWorkers),
		ctx:        ctx,
		cancel:     cancel,
	}
}

func (p *Pool) Start() {
	p.once.Do(func() {
		for i := 0; i < p.maxWorkers; i++ {
			worker := NewWorker(i, p.workerPool, p.logger)
			worker.Start(p.ctx, &p.wg, p.run)
		}

		p.wg.Add(1)
		go p.dispatch()

		p.logger.Info("task worker pool started",
			"max_workers", p.maxWorkers,
			"queue_size", cap(p.jobQueue))
	})
}

func (p *Pool) run(t Task) {
	p.process(context.WithoutCancel(p.ctx), t)
}

func (p *Pool) dispatch() {
	defer p.wg.Done()

	for {
		select {
		case job := <-p.jobQueue:
			select {
			case jobChannel := <-p.workerPool:
				select {
				case jobChannel <- job:
				case <-p.ctx.Done():
					p.logger.Warn("dispatcher shutting down, task dropped", "task_id", job.ID)
					return
				}
			case <-p.ctx.Done():
				p.logger.Warn("dispatcher shutting down, task dropped", "task_id", job.ID)
				return
			}
		case <-p.ctx.Done():
			p.logger.Info("task dispatcher shutting down")
			return
		}
	}
}

// Submit queues t, waiting for room while the queue is full.
func (p *Pool) Submit(ctx context.Context, t Task) error {
	select {
	case <-p.ctx.Done():
		return ErrPoolClosed
	default:
	}

	select {
	case p.jobQueue <- t:
		p.logger.Debug("task queued", "task_id", t.ID, "queue_length", len(p.jobQueue))
		return nil
	case <-p.ctx.Done():
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting work and waits for running tasks to finish.
// Queued tasks that have not reached a worker are dropped.
func (p *Pool) Shutdown() {
	p.logger.Info("shutting down task worker pool")
	p.cancel()
	p.wg.Wait()
	p.logger.Info("task worker pool shutdown complete")
}
