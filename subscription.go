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

import "go.uber.org/atomic"

// subscription states, matching original_source/SubscriptionHandler.java's
// COLLECTING/ADDING/RUNNING/EXPIRED four-state spin.
const (
	subCollecting int32 = 0
	subAdding     int32 = 1
	subRunning    int32 = 2
	subExpired    int32 = 3

	subExpiredMask int32 = 0b10
)

// SubscriptionHandler is a one-shot fan-out of a latched context value to N
// subscribers (spec.md §4.5 / §3), lock-free apart from the FIFO append.
// Grounded directly on original_source/SubscriptionHandler.java.
type SubscriptionHandler[C any] struct {
	// actions and context are guarded by state, not a mutex: actions is only
	// mutated between a successful CAS to subAdding and the CAS back to
	// subCollecting, and context is only written once, between the CAS to
	// subRunning and the CAS to subExpired.
	actions []func(C)
	context C
	state   atomic.Int32
}

// NewSubscriptionHandler creates an empty handler.
func NewSubscriptionHandler[C any]() *SubscriptionHandler[C] {
	return &SubscriptionHandler[C]{}
}

// Subscribe queues action to run when Execute is called, or — if Execute has
// already run — invokes it immediately, synchronously, with the latched
// context.
func (h *SubscriptionHandler[C]) Subscribe(action func(C)) {
	for {
		if h.state.CompareAndSwap(subCollecting, subAdding) {
			break
		}
		if h.state.Load()&subExpiredMask != 0 {
			// Already executed (RUNNING or EXPIRED). Spin until the drain in
			// Execute finishes publishing the context before running inline.
			for h.state.Load() == subRunning {
				spinWait()
			}
			action(h.context)
			return
		}
		spinWait()
	}
	h.actions = append(h.actions, action)
	if !h.state.CompareAndSwap(subAdding, subCollecting) {
		errStructuralInvariantBroken("SubscriptionHandler ADDING state modified concurrently")
	}
}

// SubscribeAsync is Subscribe, but the action runs on executor rather than
// inline (either at Execute time, or immediately if already executed). A nil
// executor selects DefaultExecutor.
func (h *SubscriptionHandler[C]) SubscribeAsync(action func(C), executor Executor) {
	if executor == nil {
		executor = DefaultExecutor()
	}
	h.Subscribe(func(c C) {
		executor.Execute(func() { action(c) })
	})
}

// Execute latches contextSupplier's result and drains every queued
// subscriber, in subscription order, on the calling goroutine. Returns
// false if Execute had already run.
func (h *SubscriptionHandler[C]) Execute(contextSupplier func() C) bool {
	for {
		if h.state.CompareAndSwap(subCollecting, subRunning) {
			break
		}
		if h.state.Load() == subExpired {
			return false
		}
		spinWait()
	}
	h.context = contextSupplier()
	for _, action := range h.actions {
		runIsolated(func() { action(h.context) })
	}
	if !h.state.CompareAndSwap(subRunning, subExpired) {
		errStructuralInvariantBroken("SubscriptionHandler RUNNING state modified concurrently")
	}
	return true
}

// HasExecuted reports whether Execute has already run.
func (h *SubscriptionHandler[C]) HasExecuted() bool {
	return h.state.Load()&subExpiredMask != 0
}

// Context returns the latched context value. It is the zero value of C
// before Execute has run.
func (h *SubscriptionHandler[C]) Context() C {
	return h.context
}
