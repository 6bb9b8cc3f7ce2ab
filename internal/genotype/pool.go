// Package genotype runs a genotyper over a list of sites on a shared
// worker pool and streams the results in site order.
package genotype

import (
	"errors"
	"runtime"
	"sync"
)

// ErrPoolClosed is returned by Submit after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a fixed set of worker goroutines executing submitted tasks.
// A Pool is safe for concurrent use and is meant to be shared by every
// genotyping call of a service.
type Pool struct {
	tasks chan func()
	size  int
	wg    sync.WaitGroup

	mu     sync.RWMutex
	closed bool
	once   sync.Once
}

// NewPool starts a pool of n workers.
// If n is 0 or negative, runtime.NumCPU() is used.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.NumCPU()
	}

	p := &Pool{
		tasks: make(chan func(), 2*n),
		size:  n,
	}
	p.wg.Add(n)
	for range n {
		go func() {
			defer p.wg.Done()
			for task := range p.tasks {
				task()
			}
		}()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

// Submit queues task for execution. It blocks while the queue is full and
// fails with ErrPoolClosed once the pool has been closed, in which case
// task never runs.
func (p *Pool) Submit(task func()) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	p.tasks <- task
	return nil
}

// Close stops accepting tasks, runs the ones already queued and waits for
// all workers to exit. It is safe to call more than once.
func (p *Pool) Close() {
	p.once.Do(func() {
		p.mu.Lock()
		p.closed = true
		close(p.tasks)
		p.mu.Unlock()
	})
	p.wg.Wait()
}
