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

// Success, Failed, and Cancelled are the three "done task" flyweight
// constructors (spec.md §4.8): each builds a Task already in its terminal
// state, so every query answers without synchronization and every
// subscriber fires inline, synchronously, at the moment it subscribes.
//
// Unlike a Task produced by StartBlocking, a done task's subscriptions have
// nothing to wait for — Subscribe's "already executed" branch in
// SubscriptionHandler is what actually runs these callbacks, not the
// Execute call here, which only matters for callbacks subscribed later.

// Success returns a Task already in the SUCCESS state with value.
func Success[T any](value T) *Task[T] {
	t := newTask[T](stateSuccess)
	t.result = value
	t.onSuccess.Execute(func() T { return value })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return t
}

// Failed returns a Task already in the FAILED state with cause.
func Failed[T any](cause error) *Task[T] {
	t := newTask[T](stateFailed)
	t.failure = cause
	t.onFailure.Execute(func() error { return cause })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return t
}

// Cancelled returns a Task already in the CANCELLED state, carrying
// payload as its cancellation cause.
func Cancelled[T any](payload any) *Task[T] {
	cause := Cause{Payload: payload}
	t := newTask[T](stateCancelled)
	t.cause = cause
	t.onCancelled.Execute(func() Cause { return cause })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return t
}
