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

import "fmt"

// Chain builds a new Task that runs f with inner's result once inner
// succeeds, synchronously on whichever goroutine completes inner. A failed
// or cancelled inner task fails or cancels the returned task with the same
// cause, without running f. A panicking f fails the returned task rather
// than losing the panic off the completing goroutine. Grounded on
// original_source/Tasks.java's chain (spec.md §4.9).
func Chain[T, U any](inner *Task[T], f func(T) (U, error)) *Task[U] {
	return chain(inner, f, nil)
}

// ChainAsync is Chain, but f and the propagation of a failed or cancelled
// inner task all run on executor rather than on the completing goroutine.
// A nil executor selects DefaultExecutor.
func ChainAsync[T, U any](inner *Task[T], f func(T) (U, error), executor Executor) *Task[U] {
	if executor == nil {
		executor = DefaultExecutor()
	}
	return chain(inner, f, executor)
}

func chain[T, U any](inner *Task[T], f func(T) (U, error), executor Executor) *Task[U] {
	outer, completer := newBoundPair[U]()

	runSuccess := func(value T) {
		result, err := safeCall(f, value)
		if err != nil {
			completer.TrySignalFailure(err)
			return
		}
		completer.TrySignalSuccess(result)
	}
	propagateFailure := func(cause error) { completer.TrySignalFailure(cause) }
	propagateCancel := func(cause Cause) { outer.Cancel(cause.Payload) }

	if executor == nil {
		inner.OnSuccess(runSuccess)
		inner.OnFailure(propagateFailure)
		inner.OnCancelled(propagateCancel)
	} else {
		inner.OnSuccessAsync(runSuccess, executor)
		inner.OnFailureAsync(propagateFailure, executor)
		inner.OnCancelledAsync(propagateCancel, executor)
	}

	// The outer task is also the one place a caller can reach back to
	// cancel the chain: propagate that cancellation into inner so a task
	// chained atop Waiting[T] can be torn down from either end (spec.md
	// §4.9 test 5).
	outer.OnCancelled(func(cause Cause) { inner.Cancel(cause.Payload) })

	return outer
}

// safeCall invokes f, converting a panic into an error rather than letting
// it escape onto the goroutine driving inner's subscriptions.
func safeCall[T, U any](f func(T) (U, error), value T) (result U, err error) {
	defer func() {
		if p := recover(); p != nil {
			var zero U
			result = zero
			err = fmt.Errorf("task: chain function panicked: %v", p)
		}
	}()
	return f(value)
}
