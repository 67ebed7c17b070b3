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

import "github.com/riftlabs/tasko/internal/pool"

// Executor submits a callback for later, asynchronous execution. It is the
// same minimal abstraction original_source's Task.defaultExecutor() exposes
// as java.util.concurrent.ExecutorService, trimmed to the one capability
// this package actually needs from a caller-supplied executor (spec.md §5:
// "Asynchronous callbacks require the caller to supply an executor").
type Executor interface {
	Execute(fn func())
}

// executorFunc adapts a plain function to Executor.
type executorFunc func(fn func())

func (f executorFunc) Execute(fn func()) { f(fn) }

// ExecutorFunc wraps an ordinary function as an Executor, the same adapter
// shape as go-akka-concurrent's Runnable-from-func helpers.
func ExecutorFunc(f func(fn func())) Executor {
	return executorFunc(f)
}

// defaultExecutorPool backs DefaultExecutor, adapted from
// botobag-artemis/concurrent/worker_pool_executor.go via internal/pool (see
// SPEC_FULL.md §5.11). It plays the role original_source's
// Task.defaultExecutor() gives ForkJoinPool.commonPool(): a shared,
// lazily-started pool used by OnXAsync family calls that don't receive an
// explicit executor.
var defaultExecutorPool = NewLazy(func() *pool.Executor {
	p, err := pool.NewExecutor(pool.Config{MinWorkers: 0, MaxWorkers: 64})
	if err != nil {
		// MinWorkers <= MaxWorkers always holds for these constants, so this
		// can only happen from an implementation bug.
		panic(err)
	}
	return p
})

type poolExecutorAdapter struct{ p *pool.Executor }

func (a poolExecutorAdapter) Execute(fn func()) {
	_, _ = a.p.Submit(pool.JobFunc(func() (any, error) {
		fn()
		return nil, nil
	}))
}

// DefaultExecutor returns the package-wide ambient executor used by the
// OnXAsync family when the caller passes no executor, matching
// original_source's static Task.defaultExecutor(). The pool backing it
// starts lazily on first use and is shared process-wide.
func DefaultExecutor() Executor {
	return poolExecutorAdapter{p: defaultExecutorPool.Get(nil)}
}
