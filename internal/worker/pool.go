// Package worker runs side effects and periodic jobs off the request path.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"eventsphere/internal/metrics"
)

type task struct {
	name string
	fn   func(ctx context.Context) error
}

// Pool is a fixed set of goroutines draining a bounded queue. A full queue drops new tasks.
type Pool struct {
	logger      *slog.Logger
	tasks       chan task
	taskTimeout time.Duration
	stopChan    chan struct{}
	wg          sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading a queue of queueSize tasks.
// Each task runs with its own context bounded by taskTimeout, detached from the request that submitted it.
func NewPool(logger *slog.Logger, workers, queueSize int, taskTimeout time.Duration) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &Pool{
		logger:      logger,
		tasks:       make(chan task, queueSize),
		taskTimeout: taskTimeout,
		stopChan:    make(chan struct{}),
	}
	for i := 0; i < workers; i++ {
		p.wg.Add(1)
		go p.run()
	}
	logger.Info("worker pool started", "workers", workers, "queue_size", queueSize)
	return p
}

// Submit enqueues fn. It never blocks; it returns false when the pool is shut down or the queue is full.
func (p *Pool) Submit(name string, fn func(ctx context.Context) error) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		metrics.RecordTask(name, "dropped")
		return false
	}
	select {
	case p.tasks <- task{name: name, fn: fn}:
		metrics.SetQueueDepth(len(p.tasks))
		return true
	default:
		p.logger.Warn("worker queue full, dropping task", "task", name)
		metrics.RecordTask(name, "dropped")
		return false
	}
}

// Every runs fn every interval until Shutdown. A non-positive interval disables the job.
func (p *Pool) Every(name string, interval time.Duration, fn func(ctx context.Context) error) {
	if interval <= 0 {
		return
	}
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				p.execute(task{name: name, fn: fn})
			case <-p.stopChan:
				return
			}
		}
	}()
}

func (p *Pool) run() {
	defer p.wg.Done()
	for t := range p.tasks {
		metrics.SetQueueDepth(len(p.tasks))
		p.execute(t)
	}
}

func (p *Pool) execute(t task) {
	ctx, cancel := context.WithTimeout(context.Background(), p.taskTimeout)
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked", "task", t.name, "panic", fmt.Sprint(r))
			metrics.RecordTask(t.name, "failed")
		}
	}()

	if err := t.fn(ctx); err != nil {
		p.logger.Warn("background task failed", "task", t.name, "err", err)
		metrics.RecordTask(t.name, "failed")
		return
	}
	metrics.RecordTask(t.name, "ok")
}

// Shutdown stops accepting tasks, stops periodic jobs and waits for queued tasks to finish or ctx to end.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	close(p.stopChan)
	close(p.tasks)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.logger.Info("worker pool drained")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
	}
}
