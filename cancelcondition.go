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

// cancel-condition states, matching original_source/CancelCondition.java's
// IDLE/TESTING/RUNNING/EXECUTED four-state spin (spec.md §4.4), the same
// shape as SubscriptionHandler's COLLECTING/ADDING/RUNNING/EXPIRED.
const (
	ccIdle     int32 = 0
	ccTesting  int32 = 1
	ccRunning  int32 = 2
	ccExecuted int32 = 3

	ccExecutedMask int32 = 0b10
)

// Cause carries the payload attached to a cancellation, the value
// delivered to CancelCondition subscribers and stored on a cancelled Task.
type Cause struct {
	Payload any
}

// CancelCondition is an externally triggerable, one-shot cancellation
// signal: at most one predicate decides whether a Cancel call succeeds,
// and subscribers are notified exactly once, with the winning Cause,
// whenever that happens. Grounded on original_source/CancelCondition.java.
//
// The zero value is not usable; construct with NewCancelCondition.
type CancelCondition struct {
	action *AssignOnce[func(Cause) bool]
	cause  *AssignOnce[Cause]
	subs   *SubscriptionHandler[Cause]
	state  atomic.Int32
}

// NewCancelCondition creates a CancelCondition with no action bound yet.
func NewCancelCondition() *CancelCondition {
	return &CancelCondition{
		action: NewAssignOnce[func(Cause) bool](),
		cause:  NewAssignOnce[Cause](),
		subs:   NewSubscriptionHandler[Cause](),
	}
}

// SetupAction binds the predicate that decides whether a future Cancel call
// succeeds. This is the "out parameter" binding step a blocking API (an
// Await that accepts a condition) must perform before returning; it
// succeeds at most once. Returns ErrOutParameterAlreadyBound on a second
// attempt.
func (c *CancelCondition) SetupAction(action func(Cause) bool) error {
	if !c.action.TryAssign(action) {
		return ErrOutParameterAlreadyBound
	}
	return nil
}

// Cancel attempts to trigger the condition with payload. Returns false
// without effect if no action has been bound, or if the condition has
// already been triggered, or if the bound action rejects this attempt.
func (c *CancelCondition) Cancel(payload any) bool {
	if !c.action.IsAssigned() {
		return false
	}

	for {
		if c.state.CompareAndSwap(ccIdle, ccTesting) {
			break
		}
		if c.state.Load()&ccExecutedMask != 0 {
			return false
		}
		spinWait()
	}

	cause := Cause{Payload: payload}
	if !c.action.Value()(cause) {
		if !c.state.CompareAndSwap(ccTesting, ccIdle) {
			errStructuralInvariantBroken("CancelCondition TESTING state modified concurrently")
		}
		return false
	}

	if !c.state.CompareAndSwap(ccTesting, ccRunning) {
		errStructuralInvariantBroken("CancelCondition TESTING state modified concurrently")
	}
	c.cause.TryAssign(cause)
	c.subs.Execute(func() Cause { return cause })
	if !c.state.CompareAndSwap(ccRunning, ccExecuted) {
		errStructuralInvariantBroken("CancelCondition RUNNING state modified concurrently")
	}
	return true
}

// IsCancelled reports whether Cancel has already succeeded.
func (c *CancelCondition) IsCancelled() bool {
	return c.state.Load()&ccExecutedMask != 0
}

// CancellationCause returns the latched cause and true once a successful
// Cancel has stored it (before that Cancel's subscribers run); until then it
// returns the zero Cause and false.
func (c *CancelCondition) CancellationCause() (Cause, bool) {
	return c.cause.ValueOr(Cause{}), c.cause.IsAssigned()
}

// OnCancelled subscribes action to run, synchronously, with the
// cancellation cause once Cancel succeeds — or immediately, if it already
// has.
func (c *CancelCondition) OnCancelled(action func(Cause)) {
	c.subs.Subscribe(action)
}

// OnCancelledAsync is OnCancelled, but action runs on executor.
func (c *CancelCondition) OnCancelledAsync(action func(Cause), executor Executor) {
	c.subs.SubscribeAsync(action, executor)
}
