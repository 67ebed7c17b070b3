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
	"fmt"
	"os"
	"runtime/debug"
	"sync"
)

// UncaughtPanic describes a panic recovered from a subscriber callback
// (SubscriptionHandler.Execute) or a Timer action. It mirrors
// evan-idocoding-zkit/rt/safego's PanicInfo, trimmed to the fields this
// package populates.
type UncaughtPanic struct {
	Value any
	Stack []byte
}

// UncaughtHandler receives panics recovered while running task callbacks.
// It defaults to writing a report to stderr, the same fallback
// rt/safego/report_stderr.go uses when no handler is configured. Replace it
// to route reports into an application's own logging.
var UncaughtHandler func(UncaughtPanic) = reportUncaughtToStderr

var uncaughtHandlerMu sync.RWMutex

// SetUncaughtHandler installs h as the package-wide handler for panics
// recovered from subscriber callbacks. Passing nil restores the stderr
// default.
func SetUncaughtHandler(h func(UncaughtPanic)) {
	uncaughtHandlerMu.Lock()
	defer uncaughtHandlerMu.Unlock()
	if h == nil {
		h = reportUncaughtToStderr
	}
	UncaughtHandler = h
}

// runIsolated runs fn, recovering and reporting any panic rather than
// letting it propagate. Subscriber callbacks (spec.md §5: a task's
// observers must not be able to corrupt the task that is notifying them)
// and Timer actions both run through this, the same isolation boundary
// rt/safego/safego.go draws around goroutine entry points.
func runIsolated(fn func()) {
	defer func() {
		if p := recover(); p != nil {
			reportPanic(UncaughtPanic{Value: p, Stack: debug.Stack()})
		}
	}()
	fn()
}

func reportPanic(info UncaughtPanic) {
	uncaughtHandlerMu.RLock()
	h := UncaughtHandler
	uncaughtHandlerMu.RUnlock()
	defer func() {
		// A misbehaving handler must not be allowed to crash the goroutine
		// that is already in the middle of recovering one panic.
		if p := recover(); p != nil {
			reportUncaughtToStderr(UncaughtPanic{
				Value: fmt.Sprintf("task: uncaught handler panicked: %v", p),
				Stack: debug.Stack(),
			})
		}
	}()
	h(info)
}

var stderrMu sync.Mutex

func reportUncaughtToStderr(info UncaughtPanic) {
	stderrMu.Lock()
	defer stderrMu.Unlock()
	fmt.Fprintf(os.Stderr, "task: uncaught panic in callback: %v\n", info.Value)
	if len(info.Stack) > 0 {
		os.Stderr.Write(info.Stack)
	}
}
