/**
 * Copyright (c) 2019, The Artemis Authors.
 *
 * Permission to use, copy, modify, and/or distribute this software for any
 * purpose with or without fee is hereby granted, provided that the above
 * copyright notice and this permission notice appear in all copies.
 *
 * THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES
 * WITH REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF
 * MERCHANTABILITY AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR
 * ANY SPECIAL, DIRECT, INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES
 * WHATSOEVER RESULTING FROM LOSS OF USE, DATA OR PROFITS, WHETHER IN AN
 * ACTION OF CONTRACT, NEGLIGENCE OR OTHER TORTIOUS ACTION, ARISING OUT OF
 * OR IN CONNECTION WITH THE USE OR PERFORMANCE OF THIS SOFTWARE.
 */

package pool

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// Job is a unit of work an Executor runs on a pooled goroutine.
type Job interface {
	Run() (any, error)
}

// JobFunc adapts a plain function to Job.
type JobFunc func() (any, error)

func (f JobFunc) Run() (any, error) { return f() }

var (
	// ErrRejected is returned by Submit once the executor has been shut down.
	ErrRejected = errors.New("pool: executor is shutting down")

	errTooManyWorkers = errors.New("pool: worker limit reached")
)

// Config configures an Executor. Grounded on
// WorkerPoolExecutorConfig, renamed to this package's MinWorkers/MaxWorkers.
type Config struct {
	// MaxWorkers bounds the pool size. Zero means unbounded (limited only by
	// system resources).
	MaxWorkers uint32

	// MinWorkers is the number of idle workers the pool keeps alive even with
	// no pending jobs.
	MinWorkers uint32

	// KeepAlive bounds how long a worker above MinWorkers waits for a job
	// before exiting.
	KeepAlive time.Duration
}

// Validate reports whether the configuration is internally consistent.
func (c *Config) Validate() error {
	if c.MaxWorkers != 0 && c.MaxWorkers < c.MinWorkers {
		return fmt.Errorf("pool: MaxWorkers (%d) must be >= MinWorkers (%d)", c.MaxWorkers, c.MinWorkers)
	}
	return nil
}

func (c *Config) maxWorkers() uint32 {
	if c.MaxWorkers == 0 {
		return ^uint32(0)
	}
	return c.MaxWorkers
}

// poolState packs the executor's run state into the high 32 bits and its
// live worker count into the low 32 bits of one int64, CAS'd as a unit —
// the same layout as workerPoolExecutorState.
type poolState int64

type runState int64

const (
	runStateMask       int64 = -4294967296
	runStateRunning    runState = runState(runStateMask) // sets the sign bit
	runStateShutdown   runState = 0
	runStateTerminated runState = 4294967296
)

func makeState(rs runState, workers uint32) poolState {
	return poolState(int64(rs) | int64(workers))
}

func (s poolState) runState() runState  { return runState(int64(s) & runStateMask) }
func (s poolState) workers() uint32     { return uint32(s & 0xffffffff) }
func (s poolState) isRunning() bool     { return s < 0 }
func (s poolState) isShutdown() bool    { return s >= poolState(runStateShutdown) }
func (s poolState) isTerminated() bool  { return s >= poolState(runStateTerminated) }

// Handle is both the queued element (intrusive linked-list node) and the
// public handle returned from Submit, unifying workerPoolTask's two roles.
type Handle struct {
	job      Job
	executor *Executor

	mu     sync.Mutex
	cond   *sync.Cond // nil once result is set
	result any
	err    error

	next *Handle
}

func newJobHandle(job Job, executor *Executor) *Handle {
	h := &Handle{job: job, executor: executor}
	h.cond = sync.NewCond(&h.mu)
	return h
}

// Cancel removes the job from the queue if it has not started running yet.
// Returns ErrElementNotFound if the job already started or finished.
func (h *Handle) Cancel() error {
	if err := h.executor.cancelJob(h); err != nil {
		return err
	}
	h.setResult(nil, ErrRejected)
	return nil
}

func (h *Handle) setResult(result any, err error) {
	h.mu.Lock()
	h.result, h.err = result, err
	h.cond.Broadcast()
	h.cond = nil
	h.mu.Unlock()
}

func (h *Handle) hasResult() bool { return h.cond == nil }

// Await blocks until the job completes, or timeout elapses (timeout == 0
// blocks forever).
func (h *Handle) Await(timeout time.Duration) (any, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.hasResult() {
		if timeout <= 0 {
			h.cond.Wait()
		} else if !condWaitTimeout(h.cond, timeout) {
			return nil, ErrQueuePollTimeout
		}
	}
	return h.result, h.err
}

type worker struct{ executor *Executor }

func (w worker) start(first *Handle) { go w.run(first) }

func (w worker) run(first *Handle) {
	h := first
	for {
		if h == nil {
			h = w.executor.pollJob()
			if h == nil {
				break
			}
		}

		result, err := runJob(h.job)
		h.setResult(result, err)
		h = nil
	}
	w.executor.terminateWorker()
}

func runJob(job Job) (result any, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("pool: job panicked: %v", p)
		}
	}()
	return job.Run()
}

// Executor runs submitted jobs on a bounded pool of goroutines, created
// lazily as jobs arrive rather than pre-spawned. Adapted from
// botobag-artemis/concurrent/worker_pool_executor.go's WorkerPoolExecutor.
type Executor struct {
	state poolState // accessed only via atomic ops on &e.state

	config Config
	queue  *queue

	mu           sync.Mutex
	terminations []chan bool
}

// NewExecutor creates a running Executor.
func NewExecutor(config Config) (*Executor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Executor{
		state:  makeState(runStateRunning, 0),
		config: config,
		queue:  newQueue(),
	}, nil
}

func (e *Executor) loadState() poolState {
	return poolState(atomic.LoadInt64((*int64)(&e.state)))
}

func (e *Executor) casState(old, new poolState) bool {
	return atomic.CompareAndSwapInt64((*int64)(&e.state), int64(old), int64(new))
}

func (e *Executor) incWorkers(old poolState) bool { return e.casState(old, old+1) }
func (e *Executor) decWorkers(old poolState) bool { return e.casState(old, old-1) }

// Submit arranges for job to run, creating a worker if the pool has fewer
// than MinWorkers goroutines, queueing it otherwise, and falling back to a
// fresh worker if the pool has none at all.
func (e *Executor) Submit(job Job) (*Handle, error) {
	h := newJobHandle(job, e)

	state := e.loadState()
	if state.workers() < e.config.MinWorkers {
		if err := e.addWorker(h, e.config.MinWorkers); err == nil {
			return h, nil
		}
		state = e.loadState()
	}

	if state.isRunning() {
		if err := e.addJob(h); err != nil {
			return nil, err
		}
		return h, nil
	}

	if err := e.addWorker(h, e.config.maxWorkers()); err != nil {
		return nil, err
	}
	return h, nil
}

func (e *Executor) addWorker(first *Handle, limit uint32) error {
	for {
		state := e.loadState()
		if state.isShutdown() {
			return ErrRejected
		}
		if state.workers()+1 > limit {
			return errTooManyWorkers
		}
		if e.incWorkers(state) {
			break
		}
	}

	worker{executor: e}.start(first)
	return nil
}

func (e *Executor) addJob(h *Handle) error {
	if err := e.queue.push(h); err != nil {
		return err
	}

	for {
		state := e.loadState()
		if !state.isRunning() {
			if err := e.queue.remove(h); err == nil {
				return ErrRejected
			}
		} else if state.workers() == 0 {
			if err := e.addWorker(nil, 1); err != nil {
				continue
			}
		}
		break
	}
	return nil
}

func (e *Executor) cancelJob(h *Handle) error {
	if err := e.queue.remove(h); err != nil {
		return err
	}
	e.tryTerminate()
	return nil
}

// pollJob blocks the calling worker for a job, returning nil when the
// worker should exit: the executor is shutting down with an empty queue,
// or the worker has been idle past KeepAlive while above MinWorkers.
func (e *Executor) pollJob() *Handle {
	isIdle := false
	for {
		state := e.loadState()
		noJobs := e.queue.empty()

		if state.isShutdown() && noJobs {
			e.decWorkers(state)
			return nil
		}

		redundant := state.workers() > e.config.MinWorkers
		if redundant && isIdle && (state.workers() > 1 || noJobs) {
			if e.decWorkers(state) {
				return nil
			}
			continue
		}
		isIdle = false

		var timeout time.Duration
		if state.workers() > e.config.MinWorkers {
			timeout = e.config.KeepAlive
		}

		h, err := e.queue.poll(timeout)
		if err == ErrQueuePollTimeout {
			isIdle = true
		} else if h != nil {
			return h
		}
	}
}

func (e *Executor) terminateWorker() {
	state := e.loadState()
	if state.isShutdown() {
		e.tryTerminate()
		return
	}
	minWorkers := e.config.MinWorkers
	if minWorkers == 0 && !e.queue.empty() {
		minWorkers = 1
	}
	if minWorkers < state.workers() {
		_ = e.addWorker(nil, minWorkers)
	}
}

// Shutdown stops the executor from accepting new jobs. Already-queued jobs
// still run. The returned channel receives once every worker has exited.
func (e *Executor) Shutdown() <-chan bool {
	e.mu.Lock()

	done := make(chan bool, 1)

	var prevState poolState
	for {
		old := e.loadState()
		if int64(old) >= int64(runStateShutdown) {
			prevState = old
			break
		}
		if e.casState(old, makeState(runStateShutdown, old.workers())) {
			prevState = old
			break
		}
	}

	if prevState.isTerminated() {
		done <- true
	} else {
		e.terminations = append(e.terminations, done)
		if prevState.isRunning() {
			e.queue.close()
		}
	}
	e.mu.Unlock()

	e.tryTerminate()
	return done
}

func (e *Executor) tryTerminate() {
	state := e.loadState()
	if !state.isShutdown() || state.isTerminated() {
		return
	}
	if !e.queue.empty() || state.workers() > 0 {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.loadState().isTerminated() {
		return
	}
	for {
		old := e.loadState()
		if e.casState(old, makeState(runStateTerminated, old.workers())) {
			break
		}
	}
	terminations := e.terminations
	e.terminations = nil
	for _, done := range terminations {
		done <- true
	}
}
