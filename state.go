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

// state encodes the lifecycle of a Task in a single word, exactly the
// bitfield from spec.md §4.1. Grounded on
// botobag-artemis/concurrent/worker_pool_executor.go's
// workerPoolExecutorState, which packs a run-state enum and a worker count
// into one int64 and CASes the whole word; here the two "orthogonal
// dimensions" packed into the word are the outcome (success/failure/cancel)
// and whether that outcome's fields have been published yet.
type state int32

const (
	validMask  state = 0b0001
	cancelMask state = 0b0010
	successMask state = 0b0100
	failedMask state = 0b1000

	stateWaiting    state = 0b0001
	stateCancelling state = 0b0010
	stateCancelled  state = 0b0011
	stateSucceeding state = 0b0100
	stateSuccess    state = 0b0101
	stateFailing    state = 0b1000
	stateFailed     state = 0b1001
)

func (s state) isDone() bool       { return s != stateWaiting }
func (s state) isRunning() bool    { return s == stateWaiting }
func (s state) isCancelled() bool  { return s&cancelMask != 0 }
func (s state) isSuccessful() bool { return s&successMask != 0 }
func (s state) isFailed() bool     { return s&failedMask != 0 }
func (s state) isValid() bool      { return s&validMask != 0 }

// State is the public, coarse-grained lifecycle of a Task, matching
// original_source's Task.State enum (spec.md §5.2 supplement).
type State int

const (
	StateRunning State = iota
	StateSuccess
	StateFailed
	StateCancelled
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateSuccess:
		return "success"
	case StateFailed:
		return "failed"
	case StateCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// public reports the outcome even while mid-transition (an XXX_ING value):
// the outcome bits are set by step 1 of the termination protocol, before
// VALID_MASK is set by step 4, so a caller observing e.g. SUCCEEDING already
// knows the winning outcome even though the fields aren't published yet.
func (s state) public() State {
	switch {
	case s == stateWaiting:
		return StateRunning
	case s.isSuccessful():
		return StateSuccess
	case s.isFailed():
		return StateFailed
	case s.isCancelled():
		return StateCancelled
	default:
		return StateRunning
	}
}

// atomicState is the CAS word backing a Task's lifecycle. Load/store shape
// mirrors workerPoolExecutorState's Load/SetRunState pair, adapted to
// go.uber.org/atomic instead of raw sync/atomic (see SPEC_FULL.md §4 for the
// grounding of that substitution).
type atomicState struct {
	v atomic.Int32
}

func newAtomicState(initial state) *atomicState {
	s := &atomicState{}
	s.v.Store(int32(initial))
	return s
}

func (a *atomicState) load() state {
	return state(a.v.Load())
}

func (a *atomicState) cas(old, new state) bool {
	return a.v.CompareAndSwap(int32(old), int32(new))
}

// spinUntilValid busy-waits while the state is mid-termination (an XXX_ING
// value), returning once VALID_MASK is set. spec.md §4.1 guarantees this
// window contains no suspension point, so a short spin is safe and bounded.
func (a *atomicState) spinUntilValid() state {
	for {
		s := a.load()
		if s.isValid() {
			return s
		}
		spinWait()
	}
}
