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

// Package pool provides the worker pool that backs DefaultExecutor, adapted
// from
// botobag-artemis/concurrent/{queue,worker_pool_executor}.go (see
// SPEC_FULL.md §5.11). Job replaces that package's Task to avoid colliding
// with this module's own Task[T].
package pool

import (
	"errors"
	"sync"
	"time"
	"unsafe"
)

var (
	// ErrQueueClosed is returned by Push once the queue has been closed.
	ErrQueueClosed = errors.New("pool: queue closed")

	// ErrQueuePollTimeout is returned by Poll when no element arrived within
	// the requested timeout.
	ErrQueuePollTimeout = errors.New("pool: poll timeout")

	// ErrElementNotFound is returned by Remove when the element is not
	// (any longer) queued.
	ErrElementNotFound = errors.New("pool: element not found")
)

// queue stores pending jobs for an Executor. The implementation is an
// intrusive circular linked list over *Handle, exactly
// workerPoolTaskQueue's design: a single tail pointer, loaded and stored
// atomically so Empty can be read lock-free while Push/Poll hold the lock.
type queue struct {
	tail unsafe.Pointer // *Handle

	mu       sync.Mutex
	pollCond *sync.Cond // nil once closed
}

func newQueue() *queue {
	q := &queue{}
	q.pollCond = sync.NewCond(&q.mu)
	return q
}

func (q *queue) loadTail() *Handle  { return (*Handle)(loadPtr(&q.tail)) }
func (q *queue) storeTail(h *Handle) { storePtr(&q.tail, unsafe.Pointer(h)) }

func (q *queue) push(h *Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.pollCond == nil {
		return ErrQueueClosed
	}

	tail := q.loadTail()
	empty := tail == nil

	if empty {
		h.next = h
	} else {
		h.next = tail.next
		tail.next = h
	}
	q.storeTail(h)

	if empty {
		q.pollCond.Signal()
	}
	return nil
}

// poll blocks for up to timeout (forever if timeout == 0) waiting for an
// element. Returns (nil, ErrQueuePollTimeout) on timeout, and (nil, nil) on
// an empty, closed queue.
func (q *queue) poll(timeout time.Duration) (*Handle, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.empty() {
		cond := q.pollCond
		if cond == nil {
			return nil, nil
		}
		if timeout <= 0 {
			cond.Wait()
		} else if !condWaitTimeout(cond, timeout) {
			return nil, ErrQueuePollTimeout
		}
		if q.empty() {
			return nil, nil
		}
	}

	tail := q.loadTail()
	head := tail.next

	if tail == head {
		q.storeTail(nil)
	} else {
		tail.next = head.next
	}
	return head, nil
}

func (q *queue) remove(h *Handle) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.empty() {
		return ErrElementNotFound
	}

	tail := q.loadTail()
	head := tail.next
	prev := head
	for {
		next := prev.next
		if next == h {
			prev.next = h.next
			if h == tail {
				if tail == head {
					q.storeTail(nil)
				} else {
					q.storeTail(prev)
				}
			}
			h.next = nil
			return nil
		}
		prev = next
		if prev == head {
			return ErrElementNotFound
		}
	}
}

func (q *queue) close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.pollCond != nil {
		q.pollCond.Broadcast()
		q.pollCond = nil
	}
}

func (q *queue) empty() bool { return q.loadTail() == nil }
