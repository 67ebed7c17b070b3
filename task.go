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
	"context"
	"time"

	"go.uber.org/atomic"
)

// Task is the observable handle for a computation that will terminate in
// exactly one of success, failure, or cancellation. Grounded on
// original_source/Task.java's state machine, reshaped onto a single
// generic type per spec.md §9 ("parameterize the task by value type")
// instead of the source's per-primitive-type class family.
type Task[T any] struct {
	state    *atomicState
	result   T
	failure  error
	cause    Cause
	consumed atomic.Bool

	awaiter      *Awaiter
	onSuccess    *SubscriptionHandler[T]
	onFailure    *SubscriptionHandler[error]
	onCancelled  *SubscriptionHandler[Cause]
	onCompletion *SubscriptionHandler[*Task[T]]
}

func newTask[T any](initial state) *Task[T] {
	return &Task[T]{
		state:        newAtomicState(initial),
		awaiter:      NewAwaiter(),
		onSuccess:    NewSubscriptionHandler[T](),
		onFailure:    NewSubscriptionHandler[error](),
		onCancelled:  NewSubscriptionHandler[Cause](),
		onCompletion: NewSubscriptionHandler[*Task[T]](),
	}
}

// newRunningTask creates a Task in the RUNNING state, to be paired with a
// Completer by a factory function.
func newRunningTask[T any]() *Task[T] {
	return newTask[T](stateWaiting)
}

// terminate runs steps 1–4 of the five-step termination protocol common to
// success, failure, and cancellation (spec.md §4.1): CAS into the
// transitional state, publish the terminal field, wake every Awaiter
// watcher, then CAS into the stable state. Step 5, running the subscription
// handlers, is left to the caller. Returns false without side effects if
// the task was not RUNNING — the caller lost the race to some other outcome.
func (t *Task[T]) terminate(transitional, stable state, publish func()) bool {
	if !t.state.cas(stateWaiting, transitional) {
		return false
	}
	publish()
	t.awaiter.SignalAll(masterPermit)
	if !t.state.cas(transitional, stable) {
		errStructuralInvariantBroken("task left the transitional state before the stable CAS")
	}
	return true
}

func (t *Task[T]) completeSuccess(value T) (bool, error) {
	if !t.terminate(stateSucceeding, stateSuccess, func() { t.result = value }) {
		return false, t.thirdPartyCancellationError()
	}
	t.onSuccess.Execute(func() T { return value })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return true, nil
}

func (t *Task[T]) completeFailure(cause error) (bool, error) {
	if !t.terminate(stateFailing, stateFailed, func() { t.failure = cause }) {
		return false, t.thirdPartyCancellationError()
	}
	t.onFailure.Execute(func() error { return cause })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return true, nil
}

func (t *Task[T]) completeCancel(payload any) bool {
	cause := Cause{Payload: payload}
	if !t.terminate(stateCancelling, stateCancelled, func() { t.cause = cause }) {
		return false
	}
	t.onCancelled.Execute(func() Cause { return cause })
	t.onCompletion.Execute(func() *Task[T] { return t })
	return true
}

// thirdPartyCancellationError is consulted after a Completer loses the
// termination CAS: per spec.md §4.3, that loss is reported to the signaler
// as a cancellation error only if a third party is the reason it lost.
func (t *Task[T]) thirdPartyCancellationError() error {
	s := t.state.spinUntilValid()
	if !s.isCancelled() {
		return nil
	}
	return &CancelledError{Payload: t.cause.Payload}
}

// Cancel tries to move the task directly from RUNNING to CANCELLED with
// payload. Returns false if the task was already done.
func (t *Task[T]) Cancel(payload any) bool {
	return t.completeCancel(payload)
}

// CancelIfRunning is Cancel's named counterpart for "startable" task
// variants that may be cancelled before starting; a blocking task is
// always considered running until done, so this is identical to Cancel.
func (t *Task[T]) CancelIfRunning(payload any) bool {
	return t.completeCancel(payload)
}

// CancelIfNotStarted never succeeds for a blocking task: a blocking task
// has no pre-running state to cancel out of. Reserved for a future
// startable task variant (spec.md §4.1, "cancelIfNotStarted").
func (t *Task[T]) CancelIfNotStarted(any) bool {
	return false
}

// GetState returns the task's coarse-grained lifecycle.
func (t *Task[T]) GetState() State { return t.state.load().public() }

// IsDone reports whether the task has reached a terminal state.
func (t *Task[T]) IsDone() bool { return t.state.load().isDone() }

// IsRunning reports whether the task has not yet reached a terminal state.
func (t *Task[T]) IsRunning() bool { return t.state.load().isRunning() }

// IsSuccessful reports whether the task completed successfully.
func (t *Task[T]) IsSuccessful() bool { return t.state.load().isSuccessful() }

// IsFailed reports whether the task completed with a failure.
func (t *Task[T]) IsFailed() bool { return t.state.load().isFailed() }

// IsCancelled reports whether the task was cancelled.
func (t *Task[T]) IsCancelled() bool { return t.state.load().isCancelled() }

// CheckFailure raises the stored failure the first time it is observed by
// a terminal caller, and returns nil on every subsequent call or on a task
// that never failed. It does not raise for a cancelled task — use
// CheckSuccess for a checker that treats cancellation as an error too.
func (t *Task[T]) CheckFailure() error {
	s := t.state.spinUntilValid()
	if !s.isFailed() {
		return nil
	}
	if t.consumed.CompareAndSwap(false, true) {
		return t.failure
	}
	return nil
}

// CheckSuccess raises an error the first time it observes a non-successful
// terminal task: a *FailureError wrapping the stored cause for a failed
// task, or a *CancelledError for a cancelled one. Returns nil for a
// successful task, a running task, or any task whose outcome was already
// consumed by a prior CheckFailure/CheckSuccess call.
func (t *Task[T]) CheckSuccess() error {
	s := t.state.spinUntilValid()
	switch {
	case s.isFailed():
		if t.consumed.CompareAndSwap(false, true) {
			return &FailureError{Cause: t.failure}
		}
	case s.isCancelled():
		if t.consumed.CompareAndSwap(false, true) {
			return &CancelledError{Payload: t.cause.Payload}
		}
	}
	return nil
}

// GetFailure returns the stored failure without consuming it — repeated
// calls, and calls after CheckFailure/CheckSuccess has already consumed
// the outcome, all return the same value.
func (t *Task[T]) GetFailure() error {
	s := t.state.spinUntilValid()
	if !s.isFailed() {
		return nil
	}
	return t.failure
}

// HasUnconsumedException reports whether the task failed and no checker
// has consumed that failure yet.
func (t *Task[T]) HasUnconsumedException() bool {
	s := t.state.load()
	return s.isValid() && s.isFailed() && !t.consumed.Load()
}

// CancellationCause returns the cause passed to whichever Cancel call
// completed the task, and whether the task was in fact cancelled.
func (t *Task[T]) CancellationCause() (Cause, bool) {
	s := t.state.spinUntilValid()
	if !s.isCancelled() {
		return Cause{}, false
	}
	return t.cause, true
}

// GetFinishedResult returns the task's result and true only if the task
// completed successfully; it returns the zero value and false for a
// running, failed, or cancelled task (spec.md §9 resolves the source's
// inconsistent empty/present convention this way).
func (t *Task[T]) GetFinishedResult() (T, bool) {
	s := t.state.spinUntilValid()
	if s.isSuccessful() {
		return t.result, true
	}
	var zero T
	return zero, false
}

// GetResult returns the task's result. It panics if the task has not
// completed successfully — callers that are not certain should check with
// GetFinishedResult, or call GetResult only after an Await.
func (t *Task[T]) GetResult() T {
	v, ok := t.GetFinishedResult()
	if !ok {
		panic("task: GetResult called on a task that has not completed successfully")
	}
	return v
}

// OnSuccess subscribes action to run, synchronously on the completing
// goroutine, with the result if and when the task succeeds — or
// immediately, if it already has. Returns the task for chaining.
func (t *Task[T]) OnSuccess(action func(T)) *Task[T] {
	t.onSuccess.Subscribe(action)
	return t
}

// OnSuccessAsync is OnSuccess, but action runs on executor.
func (t *Task[T]) OnSuccessAsync(action func(T), executor Executor) *Task[T] {
	t.onSuccess.SubscribeAsync(action, executor)
	return t
}

// OnFailure subscribes action to run with the failure cause if and when
// the task fails.
func (t *Task[T]) OnFailure(action func(error)) *Task[T] {
	t.onFailure.Subscribe(action)
	return t
}

// OnFailureAsync is OnFailure, but action runs on executor.
func (t *Task[T]) OnFailureAsync(action func(error), executor Executor) *Task[T] {
	t.onFailure.SubscribeAsync(action, executor)
	return t
}

// OnCancelled subscribes action to run with the cancellation cause if and
// when the task is cancelled.
func (t *Task[T]) OnCancelled(action func(Cause)) *Task[T] {
	t.onCancelled.Subscribe(action)
	return t
}

// OnCancelledAsync is OnCancelled, but action runs on executor.
func (t *Task[T]) OnCancelledAsync(action func(Cause), executor Executor) *Task[T] {
	t.onCancelled.SubscribeAsync(action, executor)
	return t
}

// OnCompletion subscribes action to run with the task itself once it
// reaches any terminal state, after the outcome-specific channel (on
// success/failure/cancelled) has already run.
func (t *Task[T]) OnCompletion(action func(*Task[T])) *Task[T] {
	t.onCompletion.Subscribe(action)
	return t
}

// OnCompletionAsync is OnCompletion, but action runs on executor.
func (t *Task[T]) OnCompletionAsync(action func(*Task[T]), executor Executor) *Task[T] {
	t.onCompletion.SubscribeAsync(action, executor)
	return t
}

// AwaitOption configures an Await call.
type AwaitOption func(*awaitOptions)

type awaitOptions struct {
	timeout   time.Duration
	condition *CancelCondition
}

// WithTimeout bounds an Await call to d, after which it returns ErrTimeout
// without altering the task's state.
func WithTimeout(d time.Duration) AwaitOption {
	return func(o *awaitOptions) { o.timeout = d }
}

// WithCancelCondition races an Await call against cc: if cc is cancelled
// before the task completes, Await returns a *CancelledError carrying cc's
// cancellation cause. cc must not already be bound to another operation —
// if it is, Await returns ErrOutParameterAlreadyBound.
func WithCancelCondition(cc *CancelCondition) AwaitOption {
	return func(o *awaitOptions) { o.condition = cc }
}

// Await blocks the calling goroutine until the task reaches a terminal
// state, then returns the task itself alongside a nil error
// (done, err := t.Await(ctx); then done.GetResult()). It never raises the task's own terminal
// outcome — that is surfaced through CheckFailure/CheckSuccess/GetResult —
// only ctx cancellation (ErrInterrupted), an elapsed WithTimeout deadline
// (ErrTimeout), or a WithCancelCondition condition winning the race (a
// *CancelledError carrying that condition's cause).
//
// A nil ctx behaves like context.Background(): the call still returns
// promptly on completion, timeout, or a racing cancel condition. Go's
// context model folds the source's separate interruptible/uninterruptible
// await pairs into a single call (spec.md §2).
func (t *Task[T]) Await(ctx context.Context, opts ...AwaitOption) (*Task[T], error) {
	var o awaitOptions
	for _, opt := range opts {
		opt(&o)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	mainWatch := t.awaiter.Watch(masterPermit)
	defer mainWatch.Stop()

	if t.state.load().isDone() {
		return t, nil
	}

	var conditionWatch *Watch
	var conditionDone <-chan struct{}
	if o.condition != nil {
		if o.condition.IsCancelled() {
			cause, _ := o.condition.CancellationCause()
			return nil, &CancelledError{Payload: cause.Payload}
		}

		conditionWatch = t.awaiter.Watch(o.condition)
		defer conditionWatch.Stop()
		conditionDone = conditionWatch.Done()

		if err := o.condition.SetupAction(func(Cause) bool { return true }); err != nil {
			return nil, err
		}
		// OnCancelled, not the action predicate, does the signalling: it
		// only runs once the condition's cause has been published, so a
		// waiter that wakes because of it always observes a valid cause.
		o.condition.OnCancelled(func(Cause) {
			t.awaiter.SignalAll(o.condition)
		})
	}

	var timeoutCh <-chan time.Time
	if o.timeout > 0 {
		timer := time.NewTimer(o.timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-mainWatch.Done():
		return t, nil
	case <-conditionDone:
		// The master permit also closes the condition's watch; that wake
		// is the task completing, not the condition winning.
		if conditionWatch.WokenBy() == masterPermit {
			return t, nil
		}
		cause, _ := o.condition.CancellationCause()
		return nil, &CancelledError{Payload: cause.Payload}
	case <-ctx.Done():
		return nil, ErrInterrupted
	case <-timeoutCh:
		return nil, ErrTimeout
	}
}
