package sweeper

import (
	"log/slog"
	"sync"

	"github.com/mpesa-stk-gateway/internal/config"
	"github.com/panjf2000/ants/v2"
)

// WorkerPool bounds how many status queries run at once
type WorkerPool struct {
	pool   *ants.Pool
	logger *slog.Logger
	wg     sync.WaitGroup
}

func NewWorkerPool(cfg config.WorkerPoolConfig, logger *slog.Logger) (*WorkerPool, error) {
	pool, err := ants.NewPool(cfg.Size)
	if err != nil {
		return nil, err
	}

	return &WorkerPool{
		pool:   pool,
		logger: logger,
	}, nil
}

// Go runs task on a pooled goroutine, blocking while every worker is busy
func (p *WorkerPool) Go(task func()) error {
	p.wg.Add(1)
	err := p.pool.Submit(func() {
		defer p.wg.Done()
		task()
	})
	if err != nil {
		p.wg.Done()
		p.logger.Error("Failed to submit task to worker pool", "error", err)
		return err
	}
	return nil
}

// Wait blocks until every task submitted so far has returned
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}

// Shutdown gracefully shuts down the worker pool.
func (p *WorkerPool) Shutdown() {
	p.logger.Info("Shutting down worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// Running returns the number of running workers in the pool.
func (p *WorkerPool) Running() int {
	return p.pool.Running()
}

// Capacity returns the capacity of the worker pool.
func (p *WorkerPool) Capacity() int {
	return p.pool.Cap()
}
