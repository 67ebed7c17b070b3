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
	"time"

	"go.uber.org/atomic"
)

// Void is the result type for tasks whose only outcome is "done" — Delay
// carries no value, mirroring spec.md's delay.
type Void struct{}

// StartBlocking creates a running Task and binds completer to it in one
// step. Panics if completer has already been bound to a different task:
// each Completer backs exactly one Task (spec.md §4.3).
func StartBlocking[T any](completer *Completer[T]) *Task[T] {
	t := newRunningTask[T]()
	if err := completer.bindTo(t); err != nil {
		panic(err)
	}
	return t
}

// Waiting returns a Task that never completes on its own; the only way to
// terminate it is a third-party Cancel. Useful as the innermost task of a
// Chain built purely to be torn down by cancelling the outer (spec.md §4.9
// test 5).
func Waiting[T any]() *Task[T] {
	return newRunningTask[T]()
}

// Delay returns a Task that succeeds with a Void once d elapses, scheduled
// on GlobalTimer so no goroutine blocks for the wait.
func Delay(d time.Duration) *Task[Void] {
	return SucceedAfter(Void{}, d)
}

// CancelAfter returns a Task that cancels itself with payload once d
// elapses.
func CancelAfter[T any](payload any, d time.Duration) *Task[T] {
	t := newRunningTask[T]()
	if _, err := GlobalTimer().ScheduleOnce(d, func() { t.Cancel(payload) }); err != nil {
		t.completeFailure(err)
	}
	return t
}

// FailAfter returns a Task that fails with cause once d elapses.
func FailAfter[T any](cause error, d time.Duration) *Task[T] {
	t, completer := newBoundPair[T]()
	if _, err := GlobalTimer().ScheduleOnce(d, func() { completer.TrySignalFailure(cause) }); err != nil {
		completer.TrySignalFailure(err)
	}
	return t
}

// SucceedAfter returns a Task that succeeds with value once d elapses.
func SucceedAfter[T any](value T, d time.Duration) *Task[T] {
	t, completer := newBoundPair[T]()
	if _, err := GlobalTimer().ScheduleOnce(d, func() { completer.TrySignalSuccess(value) }); err != nil {
		completer.TrySignalFailure(err)
	}
	return t
}

// All returns a Task that succeeds with every input's result, in input
// order, once all of them have succeeded — or mirrors the first failure or
// cancellation observed among them, whichever comes first. Not derived from
// original_source/Tasks.java, which has no aggregation helper: additive
// sugar built from Completer/OnCompletion, not a new state-machine
// primitive (SPEC_FULL.md §5.9).
func All[T any](tasks []*Task[T]) *Task[[]T] {
	outer, completer := newBoundPair[[]T]()

	if len(tasks) == 0 {
		completer.TrySignalSuccess(nil)
		return outer
	}

	results := make([]T, len(tasks))
	remaining := atomic.NewInt64(int64(len(tasks)))

	for i, inner := range tasks {
		i, inner := i, inner
		inner.OnCompletion(func(it *Task[T]) {
			switch {
			case it.IsSuccessful():
				results[i] = it.GetResult()
				if remaining.Dec() == 0 {
					completer.TrySignalSuccess(results)
				}
			case it.IsFailed():
				completer.TrySignalFailure(it.GetFailure())
			default:
				cause, _ := it.CancellationCause()
				outer.Cancel(cause.Payload)
			}
		})
	}

	outer.OnCancelled(func(Cause) {
		for _, inner := range tasks {
			inner.CancelIfRunning(nil)
		}
	})

	return outer
}

// Any returns a Task that mirrors whichever input reaches a terminal state
// first, propagating that exact outcome — success, failure, or
// cancellation — onto the returned Task. Added alongside All; likewise not
// derived from original_source/Tasks.java.
func Any[T any](tasks []*Task[T]) *Task[T] {
	outer, completer := newBoundPair[T]()

	for _, inner := range tasks {
		inner.OnCompletion(func(it *Task[T]) {
			switch {
			case it.IsSuccessful():
				completer.TrySignalSuccess(it.GetResult())
			case it.IsFailed():
				completer.TrySignalFailure(it.GetFailure())
			default:
				cause, _ := it.CancellationCause()
				outer.Cancel(cause.Payload)
			}
		})
	}

	return outer
}
