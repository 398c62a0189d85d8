// Package workpool provides the bounded worker pool used to run OCR-heavy
// extraction off the calling goroutine.
package workpool

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
)

// ErrClosed is returned when submitting to a closed pool.
var ErrClosed = errors.New("workpool: pool is closed")

// Task is a unit of work producing extracted text.
type Task func(ctx context.Context) (string, error)

// Executor runs a task and blocks until its result is available.
// The returned error is either the task's own error or an *Error describing
// a failure of the executor itself.
type Executor interface {
	Submit(ctx context.Context, task Task) (string, error)
}

// Error reports a failure of the executor rather than of the submitted task.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("workpool %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// PanicError carries a panic recovered from a task.
type PanicError struct {
	Value any
	Stack []byte
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task panicked: %v", e.Value)
}

// IsExecutorError reports whether err originated in the executor (closed pool,
// cancelled submission, panicking task) rather than in the task.
func IsExecutorError(err error) bool {
	var e *Error
	return errors.As(err, &e)
}

type result struct {
	text string
	err  error
}

type job struct {
	ctx  context.Context
	task Task
	done chan result
}

// Pool is a fixed set of worker goroutines fed through an unbuffered queue.
type Pool struct {
	size      int
	tasks     chan job
	quit      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// New starts a pool with the given number of workers; workers <= 0 means
// runtime.NumCPU().
func New(workers int) *Pool {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	p := &Pool{
		size:  workers,
		tasks: make(chan job),
		quit:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case j := <-p.tasks:
			j.done <- run(j)
		}
	}
}

func run(j job) (res result) {
	defer func() {
		if v := recover(); v != nil {
			res = result{err: &Error{Op: "run", Err: &PanicError{Value: v, Stack: debug.Stack()}}}
		}
	}()
	text, err := j.task(j.ctx)
	return result{text: text, err: err}
}

// Submit hands task to an idle worker and waits for it to finish. Once a
// worker has accepted the task, Submit waits for its result even if ctx is
// cancelled; the task itself receives ctx.
func (p *Pool) Submit(ctx context.Context, task Task) (string, error) {
	j := job{ctx: ctx, task: task, done: make(chan result, 1)}
	select {
	case <-p.quit:
		return "", &Error{Op: "submit", Err: ErrClosed}
	case <-ctx.Done():
		return "", &Error{Op: "submit", Err: ctx.Err()}
	case p.tasks <- j:
	}
	r := <-j.done
	return r.text, r.err
}

// Close stops accepting tasks. It does not wait for running tasks; use Wait.
func (p *Pool) Close() error {
	p.closeOnce.Do(func() { close(p.quit) })
	return nil
}

// Wait blocks until every worker has exited after Close.
func (p *Pool) Wait() {
	p.wg.Wait()
}
