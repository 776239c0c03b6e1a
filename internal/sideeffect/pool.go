package sideeffect

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const taskTimeout = 30 * time.Second

// WorkerPool runs tasks on a fixed set of goroutines behind a bounded
// queue. Dispatch never blocks: a full queue is reported as ErrQueueFull.
type WorkerPool struct {
	runner TaskRunner
	tasks  chan Task
	log    *zap.Logger

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

func NewWorkerPool(runner TaskRunner, size, queueSize int, log *zap.Logger) *WorkerPool {
	if size <= 0 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}

	p := &WorkerPool{
		runner: runner,
		tasks:  make(chan Task, queueSize),
		log:    log.With(zap.String("worker", "pool")),
	}

	p.wg.Add(size)
	for i := 0; i < size; i++ {
		go p.work()
	}
	return p
}

func (p *WorkerPool) Dispatch(_ context.Context, task Task) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed {
		return ErrPoolClosed
	}

	select {
	case p.tasks <- task:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting tasks and waits for queued ones to finish.
func (p *WorkerPool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.tasks)
	p.mu.Unlock()

	p.wg.Wait()
}

func (p *WorkerPool) work() {
	defer p.wg.Done()

	for task := range p.tasks {
		ctx, cancel := context.WithTimeout(context.Background(), taskTimeout)
		if err := p.runner.Run(ctx, task); err != nil {
			p.log.Error("Side effect failed",
				zap.Error(err),
				zap.String("task_id", task.ID.String()),
				zap.String("kind", string(task.Kind)),
			)
		}
		cancel()
	}
}
