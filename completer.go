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
	"errors"

	"go.uber.org/atomic"
)

const (
	completerUnset   int32 = 0
	completerSetting int32 = 1
	completerSet     int32 = 2
)

// Completer is the producer-side counterpart to a Task: the only party
// that may signal its success or failure. Grounded on
// original_source/Completer.java, using the same CAS-bindable three-state
// pattern SubscriptionHandler and CancelCondition use elsewhere in this
// package (spec.md §4.3).
//
// The zero value is usable directly; NewCompleter exists for symmetry with
// the rest of the package's constructors.
type Completer[T any] struct {
	task  *Task[T]
	state atomic.Int32
}

// NewCompleter creates an unbound completer.
func NewCompleter[T any]() *Completer[T] {
	return &Completer[T]{}
}

// bindTo associates the completer with t. Called exactly once, by the task
// factory that creates both. Returns ErrCompleterAlreadyBound on a second
// call.
func (c *Completer[T]) bindTo(t *Task[T]) error {
	if !c.state.CompareAndSwap(completerUnset, completerSetting) {
		return ErrCompleterAlreadyBound
	}
	c.task = t
	c.state.Store(completerSet)
	return nil
}

func (c *Completer[T]) boundTask() (*Task[T], error) {
	if c.state.Load() == completerUnset {
		return nil, ErrCompleterUnbound
	}
	for c.state.Load() != completerSet {
		spinWait()
	}
	return c.task, nil
}

// SignalSuccess completes the paired task with value. Returns true if this
// call won the race to complete the task. If a third party cancelled the
// task before this signal could land, SignalSuccess returns (false,
// *CancelledError).
func (c *Completer[T]) SignalSuccess(value T) (bool, error) {
	t, err := c.boundTask()
	if err != nil {
		return false, err
	}
	return t.completeSuccess(value)
}

// SignalFailure is SignalSuccess's counterpart for a failed outcome.
func (c *Completer[T]) SignalFailure(cause error) (bool, error) {
	t, err := c.boundTask()
	if err != nil {
		return false, err
	}
	return t.completeFailure(cause)
}

// TrySignalSuccess is SignalSuccess, but swallows the
// already-cancelled-by-a-third-party race (returning it as ok=false,
// err=nil) rather than raising it; any other error — notably an unbound
// completer — still propagates.
func (c *Completer[T]) TrySignalSuccess(value T) (bool, error) {
	won, err := c.SignalSuccess(value)
	if isCancelledError(err) {
		return won, nil
	}
	return won, err
}

// TrySignalFailure is TrySignalSuccess's counterpart for a failed outcome.
func (c *Completer[T]) TrySignalFailure(cause error) (bool, error) {
	won, err := c.SignalFailure(cause)
	if isCancelledError(err) {
		return won, nil
	}
	return won, err
}

func isCancelledError(err error) bool {
	var ce *CancelledError
	return errors.As(err, &ce)
}

// newBoundPair creates a running Task paired with a Completer already
// bound to it. FailAfter, SucceedAfter, All, Any and Chain go through this
// rather than NewCompleter+bindTo directly, so a freshly minted completer
// can never fail to bind.
func newBoundPair[T any]() (*Task[T], *Completer[T]) {
	t := newRunningTask[T]()
	c := NewCompleter[T]()
	if err := c.bindTo(t); err != nil {
		errStructuralInvariantBroken("fresh completer failed to bind: " + err.Error())
	}
	return t, c
}

// IsCancelled reports whether the paired task has been cancelled.
func (c *Completer[T]) IsCancelled() bool {
	t, err := c.boundTask()
	if err != nil {
		return false
	}
	return t.IsCancelled()
}

// CancellationCause returns the paired task's cancellation cause, if any.
func (c *Completer[T]) CancellationCause() (Cause, bool) {
	t, err := c.boundTask()
	if err != nil {
		return Cause{}, false
	}
	return t.CancellationCause()
}
