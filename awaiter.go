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

import "sync"

// masterPermit is the well-known key that, when signalled, wakes every
// parked waiter regardless of the key it registered under (spec.md §4.2).
// It points to a non-zero-size value so that it never compares equal to a
// caller's key.
var masterPermit = new(byte)

// ticket is one parked waiter's registration under a single key.
type ticket struct {
	done    chan struct{}
	wokenBy any
	closed  bool
}

// Awaiter is a multi-key park/unpark gate: goroutines watch a key —
// typically masterPermit or a *CancelCondition — and a signal either wakes
// one key's watchers or, via masterPermit, every watcher on the gate
// regardless of key. Grounded on workerPoolTaskQueue's sync.Cond-based
// park/unpark, generalized from one wait condition to many independently
// keyed ones (see SPEC_FULL.md §5.4). A Task owns exactly one Awaiter, used
// both for its own completion signal (keyed by masterPermit) and for
// cancel-condition races (keyed by the condition itself).
type Awaiter struct {
	mu      sync.Mutex
	waiters map[any]map[*ticket]struct{}
}

// NewAwaiter creates an empty Awaiter.
func NewAwaiter() *Awaiter {
	return &Awaiter{waiters: make(map[any]map[*ticket]struct{})}
}

// Watch registers the calling goroutine's interest in key, returning a
// handle whose Done channel closes when key (or the master permit) is
// signalled. Callers needing to watch for more than one condition at once
// (e.g. task completion and cancel-condition cancellation) call Watch once
// per key and select over their Done channels.
func (a *Awaiter) Watch(key any) *Watch {
	t := &ticket{done: make(chan struct{})}
	a.mu.Lock()
	set := a.waiters[key]
	if set == nil {
		set = make(map[*ticket]struct{})
		a.waiters[key] = set
	}
	set[t] = struct{}{}
	a.mu.Unlock()
	return &Watch{awaiter: a, key: key, t: t}
}

// Watch is a single pending registration returned by Awaiter.Watch.
type Watch struct {
	awaiter *Awaiter
	key     any
	t       *ticket
}

// Done closes once this Watch's key, or the master permit, is signalled.
func (w *Watch) Done() <-chan struct{} { return w.t.done }

// WokenBy returns the key that caused the wake, valid after Done has
// closed: either w.key, or the Awaiter-wide master permit sentinel.
func (w *Watch) WokenBy() any { return w.t.wokenBy }

// Stop deregisters the watch. A no-op if it already fired or was already
// stopped; safe to call unconditionally once the caller no longer needs to
// watch this key.
func (w *Watch) Stop() {
	a := w.awaiter
	a.mu.Lock()
	defer a.mu.Unlock()
	if set := a.waiters[w.key]; set != nil {
		delete(set, w.t)
		if len(set) == 0 {
			delete(a.waiters, w.key)
		}
	}
}

// SignalAll wakes every watcher registered under key. Signalling the
// Awaiter-wide master permit (see MasterPermit) wakes every watcher on the
// gate, regardless of which key it registered under. Idempotent:
// signalling a key with no watchers is a no-op.
func (a *Awaiter) SignalAll(key any) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if key == masterPermit {
		for k, set := range a.waiters {
			for t := range set {
				if !t.closed {
					t.closed = true
					t.wokenBy = masterPermit
					close(t.done)
				}
			}
			delete(a.waiters, k)
		}
		return
	}

	set := a.waiters[key]
	for t := range set {
		if !t.closed {
			t.closed = true
			t.wokenBy = key
			close(t.done)
		}
	}
	delete(a.waiters, key)
}

// MasterPermit returns the sentinel key that SignalAll treats as "wake
// everyone on this gate".
func MasterPermit() any { return masterPermit }
