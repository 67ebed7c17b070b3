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
	"fmt"
)

// Sentinel errors returned by this package. Grounded on the sentinel-error
// style of botobag-artemis/concurrent/{queue,executor}.go and
// evan-idocoding-zkit/rt/task/errors.go: one errors.New per condition,
// grouped in a single var block with a doc comment each.
var (
	// ErrTaskCancelled is the sentinel wrapped by CancelledError. Use
	// errors.Is(err, ErrTaskCancelled) to test for cancellation without
	// caring about the payload.
	ErrTaskCancelled = errors.New("task: cancelled")

	// ErrTaskFailed is the sentinel wrapped by FailureError.
	ErrTaskFailed = errors.New("task: failed")

	// ErrCompleterUnbound is returned by Completer.SignalSuccess/SignalFailure
	// when the completer was never handed to a task factory.
	ErrCompleterUnbound = errors.New("task: completer is not associated with any task")

	// ErrCompleterAlreadyBound is returned by Completer.bindTo on a second
	// binding attempt.
	ErrCompleterAlreadyBound = errors.New("task: completer is already bound to a task")

	// ErrAlreadyAssigned describes a second write to a write-once value. No
	// function in this package returns it: AssignOnce.TryAssign reports that
	// case as a false result, and CancelCondition.SetupAction returns
	// ErrOutParameterAlreadyBound.
	ErrAlreadyAssigned = errors.New("task: value already assigned")

	// ErrOutParameterAlreadyBound is raised when a CancelCondition passed as
	// an "out parameter" into a blocking call has already been bound to a
	// different action.
	ErrOutParameterAlreadyBound = errors.New("task: cancel condition already bound to another operation")

	// ErrTimeout is raised by the Await family when a deadline elapses
	// before the task completes.
	ErrTimeout = errors.New("task: await timed out")

	// ErrInterrupted is raised by the Await family when the supplied
	// context is cancelled before the task completes.
	ErrInterrupted = errors.New("task: await interrupted")

	// ErrExecutorRejected is returned by Timer.ScheduleOnce (and so by
	// ScheduleWithCancelCondition) once that Timer's Shutdown has been called.
	ErrExecutorRejected = errors.New("task: executor is shut down and rejects new work")

	// ErrAlreadyClosed is returned by Lazy.Get on a closeable Lazy after
	// Close has run.
	ErrAlreadyClosed = errors.New("task: lazy value already closed")
)

// CancelledError is raised (or, for a Task, stored as the terminal
// cancellation cause) when an operation observes a cancellation. Payload is
// the arbitrary, user-supplied object passed to Cancel, mirroring
// original_source's TaskCancellationException.
type CancelledError struct {
	Payload any
}

func (e *CancelledError) Error() string {
	if e.Payload == nil {
		return "task: cancelled"
	}
	return fmt.Sprintf("task: cancelled (payload: %v)", e.Payload)
}

// Unwrap makes errors.Is(err, ErrTaskCancelled) succeed for any
// *CancelledError, regardless of payload.
func (e *CancelledError) Unwrap() error {
	return ErrTaskCancelled
}

// FailureError wraps the reason a task failed, for CheckSuccess which must
// surface both "failed" and "cancelled" outcomes as a raised error even
// though the task-level accessor for failure (CheckFailure) does not wrap.
type FailureError struct {
	Cause error
}

func (e *FailureError) Error() string {
	return fmt.Sprintf("task: failed: %v", e.Cause)
}

func (e *FailureError) Unwrap() error {
	return e.Cause
}

// Is makes errors.Is(err, ErrTaskFailed) succeed for any *FailureError, while
// Unwrap still exposes the stored cause.
func (e *FailureError) Is(target error) bool {
	return target == ErrTaskFailed
}

// errStructuralInvariantBroken panics with a message describing which CAS
// transition failed unexpectedly. spec.md prescribes this is fatal and used
// only to catch implementation bugs; it must never surface as a normal
// error return.
func errStructuralInvariantBroken(msg string) {
	panic(fmt.Sprintf("task: structural invariant broken: %s", msg))
}
