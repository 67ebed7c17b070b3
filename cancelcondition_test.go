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

package task_test

import (
	task "github.com/riftlabs/tasko"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("CancelCondition", func() {
	It("cannot be cancelled before an action is bound", func() {
		c := task.NewCancelCondition()
		Expect(c.Cancel("payload")).Should(BeFalse())
		Expect(c.IsCancelled()).Should(BeFalse())
	})

	It("succeeds once the bound predicate accepts", func() {
		c := task.NewCancelCondition()
		Expect(c.SetupAction(func(task.Cause) bool { return true })).Should(Succeed())

		Expect(c.Cancel("stop")).Should(BeTrue())
		Expect(c.IsCancelled()).Should(BeTrue())

		cause, ok := c.CancellationCause()
		Expect(ok).Should(BeTrue())
		Expect(cause.Payload).Should(Equal("stop"))
	})

	It("rejects a Cancel the bound predicate refuses", func() {
		c := task.NewCancelCondition()
		Expect(c.SetupAction(func(task.Cause) bool { return false })).Should(Succeed())

		Expect(c.Cancel(nil)).Should(BeFalse())
		Expect(c.IsCancelled()).Should(BeFalse())

		// A refused attempt does not latch the condition, so a further
		// attempt is free to try the same predicate again.
		Expect(c.Cancel(nil)).Should(BeFalse())
	})

	It("only lets SetupAction bind once", func() {
		c := task.NewCancelCondition()
		Expect(c.SetupAction(func(task.Cause) bool { return true })).Should(Succeed())
		Expect(c.SetupAction(func(task.Cause) bool { return true })).Should(MatchError(task.ErrOutParameterAlreadyBound))
	})

	It("notifies subscribers exactly once, with the winning cause", func() {
		c := task.NewCancelCondition()
		Expect(c.SetupAction(func(task.Cause) bool { return true })).Should(Succeed())

		var got task.Cause
		calls := 0
		c.OnCancelled(func(cause task.Cause) {
			got = cause
			calls++
		})

		Expect(c.Cancel(42)).Should(BeTrue())
		Expect(calls).Should(Equal(1))
		Expect(got.Payload).Should(Equal(42))

		// A subscriber added after the fact still observes the latched cause.
		var late task.Cause
		c.OnCancelled(func(cause task.Cause) { late = cause })
		Expect(late.Payload).Should(Equal(42))
	})
})
