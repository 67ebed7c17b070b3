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
	"sync"

	"go.uber.org/atomic"
)

// AssignOnce is a write-once reference cell (spec.md §4.6 / §3). Grounded on
// original_source/value/AssignOnce.java: the write path takes a lock,
// double-checks under it, and publishes; reads are lock-free.
//
// The zero value is not usable; construct with NewAssignOnce.
type AssignOnce[T any] struct {
	mu       sync.Mutex
	assigned atomic.Bool
	value    T
}

// NewAssignOnce creates an empty AssignOnce cell.
func NewAssignOnce[T any]() *AssignOnce[T] {
	return &AssignOnce[T]{}
}

// TryAssign sets the value if it has not already been assigned. Returns
// true if this call performed the assignment, false if a value was already
// present (in which case the argument is discarded).
func (a *AssignOnce[T]) TryAssign(value T) bool {
	if a.assigned.Load() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assigned.Load() {
		return false
	}
	a.value = value
	a.assigned.Store(true)
	return true
}

// TryAssignWith computes the value lazily, only if not already assigned.
// The supplier runs at most once, and never runs at all if the cell was
// already assigned before this call.
func (a *AssignOnce[T]) TryAssignWith(supply func() T) bool {
	if a.assigned.Load() {
		return false
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.assigned.Load() {
		return false
	}
	a.value = supply()
	a.assigned.Store(true)
	return true
}

// IsAssigned reports whether a value has been published.
func (a *AssignOnce[T]) IsAssigned() bool {
	return a.assigned.Load()
}

// Value returns the assigned value, panicking if none has been assigned
// yet. Callers should guard with IsAssigned when the value may legitimately
// be absent.
func (a *AssignOnce[T]) Value() T {
	if !a.assigned.Load() {
		panic("task: AssignOnce.Value called before any value was assigned")
	}
	return a.value
}

// ValueOr returns the assigned value, or fallback if none has been assigned.
func (a *AssignOnce[T]) ValueOr(fallback T) T {
	if !a.assigned.Load() {
		return fallback
	}
	return a.value
}
