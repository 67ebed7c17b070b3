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

package task

import (
	"container/heap"
	"sync"
	"time"

	"github.com/modern-go/concurrent"
	"go.uber.org/atomic"
)

// timerJob is one pending entry in a Timer's schedule. index tracks its
// position in the min-heap, maintained by heap.Interface's Swap; -1 once
// popped or removed.
type timerJob struct {
	id     int64
	when   time.Time
	action func()
	index  int
}

// timerHeap orders pending jobs by fire time, grounded on
// other_examples/joeycumines-go-utilpkg__loop.go's timerHeap.
type timerHeap []*timerJob

func (h timerHeap) Len() int            { return len(h) }
func (h timerHeap) Less(i, j int) bool  { return h[i].when.Before(h[j].when) }
func (h timerHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *timerHeap) Push(x any) {
	j := x.(*timerJob)
	j.index = len(*h)
	*h = append(*h, j)
}

func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.index = -1
	*h = old[:n-1]
	return j
}

// Timer is a process-wide scheduled executor backing the delay-based
// factory functions (spec.md §4.7). A single dedicated goroutine owns a
// timerHeap and services it, following the single-loop-goroutine ownership
// model of other_examples/joeycumines-go-utilpkg__loop.go, reduced from a
// full I/O event loop to a pure scheduling primitive: no readiness
// polling, just "run this callback no earlier than this time".
//
// Live jobs are additionally tracked in a concurrent.Map keyed by id so
// ScheduleHandle.Remaining can be read from any goroutine without
// round-tripping through the loop.
type Timer struct {
	scheduleCh chan *timerJob
	cancelCh   chan int64
	shutdownReq chan struct{}
	stopped    chan struct{}

	shutdownOnce sync.Once
	nextID       atomic.Int64
	accepting    atomic.Bool
	jobs         *concurrent.Map
}

// NewTimer creates an independent Timer with its own loop goroutine. Most
// callers want the process-wide GlobalTimer; NewTimer exists for callers
// (and tests) that need a scheduler they can shut down without affecting
// the rest of the process.
func NewTimer() *Timer {
	t := &Timer{
		scheduleCh:  make(chan *timerJob),
		cancelCh:    make(chan int64),
		shutdownReq: make(chan struct{}),
		stopped:     make(chan struct{}),
		jobs:        concurrent.NewMap(),
	}
	t.accepting.Store(true)
	go t.run()
	return t
}

var globalTimer = NewLazy(func() *Timer { return NewTimer() })

// GlobalTimer returns the process-wide Timer singleton, created on first
// use.
func GlobalTimer() *Timer { return globalTimer.Get(nil) }

func (t *Timer) run() {
	defer close(t.stopped)

	h := &timerHeap{}
	heap.Init(h)
	var fireTimer *time.Timer

	for {
		var fireCh <-chan time.Time
		if h.Len() > 0 {
			delay := time.Until((*h)[0].when)
			if delay < 0 {
				delay = 0
			}
			if fireTimer == nil {
				fireTimer = time.NewTimer(delay)
			} else {
				if !fireTimer.Stop() {
					select {
					case <-fireTimer.C:
					default:
					}
				}
				fireTimer.Reset(delay)
			}
			fireCh = fireTimer.C
		}

		select {
		case job := <-t.scheduleCh:
			heap.Push(h, job)

		case id := <-t.cancelCh:
			if v, ok := t.jobs.Load(id); ok {
				j := v.(*timerJob)
				if j.index >= 0 {
					heap.Remove(h, j.index)
				}
				t.jobs.Delete(id)
			}

		case <-fireCh:
			now := time.Now()
			for h.Len() > 0 && !(*h)[0].when.After(now) {
				j := heap.Pop(h).(*timerJob)
				t.jobs.Delete(j.id)
				runIsolated(j.action)
			}

		case <-t.shutdownReq:
			t.accepting.Store(false)
			return
		}
	}
}

// ScheduleOnce runs action, on the Timer's own goroutine, no earlier than
// delay from now. Returns ErrExecutorRejected if the Timer has been shut
// down.
func (t *Timer) ScheduleOnce(delay time.Duration, action func()) (*ScheduleHandle, error) {
	if !t.accepting.Load() {
		return nil, ErrExecutorRejected
	}

	id := t.nextID.Inc()
	job := &timerJob{id: id, when: time.Now().Add(delay), action: action, index: -1}
	t.jobs.Store(id, job)

	select {
	case t.scheduleCh <- job:
		return &ScheduleHandle{timer: t, id: id}, nil
	case <-t.stopped:
		t.jobs.Delete(id)
		return nil, ErrExecutorRejected
	}
}

// ScheduleWithCancelCondition is ScheduleOnce, additionally binding cond so
// that cancelling it cancels the pending schedule. Returns
// ErrOutParameterAlreadyBound if cond already has an action bound.
func (t *Timer) ScheduleWithCancelCondition(delay time.Duration, action func(), cond *CancelCondition) (*ScheduleHandle, error) {
	handle, err := t.ScheduleOnce(delay, action)
	if err != nil {
		return nil, err
	}
	if err := cond.SetupAction(func(Cause) bool {
		handle.Cancel()
		return true
	}); err != nil {
		handle.Cancel()
		return nil, err
	}
	return handle, nil
}

// Shutdown stops accepting new schedules and tells the loop goroutine to
// exit once it next reaches its select. Idempotent.
func (t *Timer) Shutdown() {
	t.shutdownOnce.Do(func() {
		t.accepting.Store(false)
		close(t.shutdownReq)
	})
}

// AwaitShutdown requests shutdown and blocks until the loop goroutine has
// exited, or timeout elapses first (forever, if timeout <= 0).
func (t *Timer) AwaitShutdown(timeout time.Duration) error {
	t.Shutdown()
	if timeout <= 0 {
		<-t.stopped
		return nil
	}
	select {
	case <-t.stopped:
		return nil
	case <-time.After(timeout):
		return ErrTimeout
	}
}

// ForceShutdown is Shutdown; pending jobs are simply never run once the
// loop goroutine exits, there being no in-flight work to interrupt.
func (t *Timer) ForceShutdown() { t.Shutdown() }

// IsAcceptingTasks reports whether ScheduleOnce would currently succeed.
func (t *Timer) IsAcceptingTasks() bool { return t.accepting.Load() }

// ScheduleHandle refers to one pending Timer schedule.
type ScheduleHandle struct {
	timer *Timer
	id    int64
}

// Remaining returns how long until the scheduled action fires, or zero if
// it has already fired or been cancelled.
func (h *ScheduleHandle) Remaining() time.Duration {
	v, ok := h.timer.jobs.Load(h.id)
	if !ok {
		return 0
	}
	d := time.Until(v.(*timerJob).when)
	if d < 0 {
		return 0
	}
	return d
}

// Cancel best-effort cancels the pending schedule, mirroring time.Timer's
// Stop semantics: it returns false if the action has already fired, been
// cancelled, or the Timer has been shut down, and a true return does not
// guarantee the action had not already begun running concurrently.
func (h *ScheduleHandle) Cancel() bool {
	if _, ok := h.timer.jobs.Load(h.id); !ok {
		return false
	}
	select {
	case h.timer.cancelCh <- h.id:
		return true
	case <-h.timer.stopped:
		return false
	}
}
