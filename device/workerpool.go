package device

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Submit/Wait when the pool has been closed.
var ErrPoolClosed = errors.New("device: compile pool closed")

// CompilePool runs Module compilation off the driver thread. Compilation
// never touches a World (it only closes over a traced graph), so unlike
// the rest of this codebase's single-writer discipline, it's the one
// place concurrent work is safe and useful — spec.md's tri-state exec
// handle (NotCompiled/Compiling/Compiled) exists precisely so a system's
// first few ticks can run uncompiled while its graph compiles in the
// background. Adapted from the teacher's workerPool (worker_pool.go):
// same fixed-size goroutine pool draining a job channel, closed once via
// sync.Once, generalized from Command-batch jobs to compile jobs.
type CompilePool struct {
	size   int
	jobs   chan compileJob
	closed chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
}

type compileJob struct {
	ctx    context.Context
	fn     func(context.Context) (Executable, error)
	result chan compileResult
}

type compileResult struct {
	exec Executable
	err  error
}

// NewCompilePool starts a pool of n compile workers. n <= 0 yields a pool
// that runs every job inline on the caller's goroutine (useful for tests).
func NewCompilePool(n int) *CompilePool {
	if n <= 0 {
		return nil
	}
	p := &CompilePool{size: n, jobs: make(chan compileJob), closed: make(chan struct{})}
	for i := 0; i < n; i++ {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

func (p *CompilePool) worker() {
	defer p.wg.Done()
	for {
		select {
		case job, ok := <-p.jobs:
			if !ok {
				return
			}
			p.run(job)
		case <-p.closed:
			return
		}
	}
}

func (p *CompilePool) run(job compileJob) {
	defer close(job.result)
	select {
	case <-job.ctx.Done():
		job.result <- compileResult{err: job.ctx.Err()}
	default:
		exec, err := job.fn(job.ctx)
		job.result <- compileResult{exec: exec, err: err}
	}
}

// CompileHandle is a future for one in-flight compilation, backing
// pipeline's ExecMetadata.Compiling state.
type CompileHandle struct {
	result chan compileResult
}

// Submit queues fn for compilation. If p is nil, fn runs synchronously on
// the calling goroutine — the degenerate single-worker case.
func (p *CompilePool) Submit(ctx context.Context, fn func(context.Context) (Executable, error)) *CompileHandle {
	if p == nil {
		ch := make(chan compileResult, 1)
		exec, err := fn(ctx)
		ch <- compileResult{exec: exec, err: err}
		close(ch)
		return &CompileHandle{result: ch}
	}
	result := make(chan compileResult, 1)
	job := compileJob{ctx: ctx, fn: fn, result: result}
	select {
	case <-p.closed:
		result <- compileResult{err: ErrPoolClosed}
		close(result)
		return &CompileHandle{result: result}
	default:
	}
	select {
	case p.jobs <- job:
	case <-p.closed:
		result <- compileResult{err: ErrPoolClosed}
		close(result)
	}
	return &CompileHandle{result: result}
}

// Poll reports whether the compilation has finished without blocking, and
// if so, its outcome.
func (h *CompileHandle) Poll() (exec Executable, err error, done bool) {
	select {
	case res, ok := <-h.result:
		if !ok {
			return nil, nil, false
		}
		return res.exec, res.err, true
	default:
		return nil, nil, false
	}
}

// Wait blocks until the compilation completes.
func (h *CompileHandle) Wait() (Executable, error) {
	res, ok := <-h.result
	if !ok {
		return nil, ErrPoolClosed
	}
	return res.exec, res.err
}

// Close stops accepting new jobs and waits for in-flight workers to drain.
func (p *CompilePool) Close() {
	if p == nil {
		return
	}
	p.once.Do(func() {
		close(p.closed)
		close(p.jobs)
	})
	p.wg.Wait()
}
