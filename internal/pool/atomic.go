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
	"sync"
	"sync/atomic"
	"time"
	"unsafe"
)

// loadPtr/storePtr wrap sync/atomic's unsafe.Pointer primitives so queue's
// tail field can be read without taking its mutex, matching
// workerPoolTaskQueue's loadTail/storeTail in the teacher source.
func loadPtr(p *unsafe.Pointer) unsafe.Pointer  { return atomic.LoadPointer(p) }
func storePtr(p *unsafe.Pointer, v unsafe.Pointer) { atomic.StorePointer(p, v) }

// condWaitTimeout waits on cond, which must already be locked by the
// caller, returning false if timeout elapses before a Signal/Broadcast.
// sync.Cond has no built-in deadline, so a timer is used to force the wait
// to return; this is the same workaround workerPoolTaskQueue's own "BUG:
// Support timed wait" comment flags as missing from the teacher's queue.
func condWaitTimeout(cond *sync.Cond, timeout time.Duration) bool {
	timedOut := make(chan struct{})
	timer := time.AfterFunc(timeout, func() {
		cond.L.Lock()
		close(timedOut)
		cond.Broadcast()
		cond.L.Unlock()
	})
	cond.Wait()
	timer.Stop()
	select {
	case <-timedOut:
		return false
	default:
		return true
	}
}
