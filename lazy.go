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

import "sync"

// Lazy is an at-most-once memoized supplier (spec.md §4.6), grounded on
// original_source/value/{Lazy,DelegateLazy,CloseableLazy,InlineLazy}.java.
type Lazy[T any] struct {
	mu       sync.Mutex
	supplier func() T // nilled after firing; nil from the start for an inline Lazy
	value    T
	hasValue bool
}

// NewLazy creates a Lazy that will call supply exactly once, on the first
// call to Get.
func NewLazy[T any](supply func() T) *Lazy[T] {
	return &Lazy[T]{supplier: supply}
}

// NewInlineLazy defers even the choice of supplier until the first Get,
// matching original_source's Lazy.inline: semantically identical to
// NewLazy, but the supplier is provided by the caller of Get rather than at
// construction time.
func NewInlineLazy[T any]() *Lazy[T] {
	return &Lazy[T]{}
}

// Get resolves the value, invoking the supplier on first call only.
// Subsequent calls, including calls that race the first one, return the
// memoized value without re-invoking the supplier.
func (l *Lazy[T]) Get(supply func() T) T {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.hasValue {
		return l.value
	}
	if l.supplier != nil {
		supply = l.supplier
	}
	l.value = supply()
	l.hasValue = true
	l.supplier = nil
	return l.value
}

// IsResolved reports whether the supplier has already fired.
func (l *Lazy[T]) IsResolved() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.hasValue
}

// MappedLazy resolves a base Lazy and applies f to the result, memoizing the
// mapped value independently of the base (original_source's Lazy.map).
type MappedLazy[T, U any] struct {
	base *Lazy[T]
	f    func(T) U
	out  *Lazy[U]
}

// Map returns a delegate Lazy that, on Get, resolves l and applies f,
// caching the mapped result on its own.
func Map[T, U any](l *Lazy[T], f func(T) U) *MappedLazy[T, U] {
	return &MappedLazy[T, U]{base: l, f: f, out: NewInlineLazy[U]()}
}

// Get resolves the base Lazy (if not already resolved) and returns the
// mapped value, computing it at most once.
func (m *MappedLazy[T, U]) Get() U {
	return m.out.Get(func() U {
		return m.f(m.base.Get(func() T {
			var zero T
			return zero
		}))
	})
}

// CloseableLazy adds a Close method to a Lazy that runs a cleanup function
// exactly once, and only if the value was ever created (original_source's
// Lazy.closeable).
type CloseableLazy[T any] struct {
	mu     sync.Mutex
	lazy   *Lazy[T]
	supply func() T
	close  func(T)
	closed bool
}

// NewCloseableLazy creates a Lazy whose created value (if any) is passed to
// closeFn exactly once when Close is called.
func NewCloseableLazy[T any](supply func() T, closeFn func(T)) *CloseableLazy[T] {
	return &CloseableLazy[T]{
		lazy:   NewLazy(supply),
		supply: supply,
		close:  closeFn,
	}
}

// Get resolves the value, returning ErrAlreadyClosed if Close has already
// run.
func (c *CloseableLazy[T]) Get() (T, error) {
	c.mu.Lock()
	closed := c.closed
	c.mu.Unlock()
	if closed {
		var zero T
		return zero, ErrAlreadyClosed
	}
	return c.lazy.Get(c.supply), nil
}

// Close runs the cleanup function on the created value, if any was ever
// created, exactly once. Subsequent calls are no-ops.
func (c *CloseableLazy[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	if c.lazy.IsResolved() {
		c.close(c.lazy.Get(c.supply))
	}
}
