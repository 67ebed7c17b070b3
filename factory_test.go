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
	"context"
	"errors"
	"time"

	task "github.com/riftlabs/tasko"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Done-task flyweights", func() {
	It("answers every query without synchronization", func() {
		s := task.Success(3)
		Expect(s.IsSuccessful()).Should(BeTrue())
		Expect(s.GetResult()).Should(Equal(3))
		Expect(s.Cancel("x")).Should(BeFalse())

		f := task.Failed[int](errors.New("boom"))
		Expect(f.IsFailed()).Should(BeTrue())
		Expect(f.Cancel("x")).Should(BeFalse())

		c := task.Cancelled[int]("payload")
		Expect(c.IsCancelled()).Should(BeTrue())
		cause, ok := c.CancellationCause()
		Expect(ok).Should(BeTrue())
		Expect(cause.Payload).Should(Equal("payload"))
	})

	It("fires subscribers inline since the terminal state is eternal", func() {
		var got int
		task.Success(11).OnSuccess(func(v int) { got = v })
		Expect(got).Should(Equal(11))
	})
})

var _ = Describe("Time-based factory functions", func() {
	It("cancels itself with the given payload after the delay elapses", func() {
		t := task.CancelAfter[int]("timed-out", 10*time.Millisecond)
		_, err := t.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())

		cause, ok := t.CancellationCause()
		Expect(ok).Should(BeTrue())
		Expect(cause.Payload).Should(Equal("timed-out"))
	})

	It("fails with the given cause after the delay elapses", func() {
		boom := errors.New("boom")
		t := task.FailAfter[int](boom, 10*time.Millisecond)
		_, err := t.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(t.CheckFailure()).Should(MatchError(boom))
	})
})

var _ = Describe("All", func() {
	It("succeeds with every result once all inputs succeed", func() {
		inputs := []*task.Task[int]{
			task.SucceedAfter(1, 5*time.Millisecond),
			task.Success(2),
			task.SucceedAfter(3, 15*time.Millisecond),
		}
		joined := task.All(inputs)

		done, err := joined.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(done.GetResult()).Should(Equal([]int{1, 2, 3}))
	})

	It("fails as soon as one input fails", func() {
		boom := errors.New("boom")
		inputs := []*task.Task[int]{
			task.Waiting[int](),
			task.Failed[int](boom),
		}
		joined := task.All(inputs)

		_, err := joined.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(joined.CheckFailure()).Should(MatchError(boom))
	})

	It("succeeds immediately with an empty slice for no inputs", func() {
		joined := task.All[int](nil)
		_, err := joined.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(joined.IsSuccessful()).Should(BeTrue())
	})
})

var _ = Describe("Any", func() {
	It("resolves with the first terminal input", func() {
		inputs := []*task.Task[int]{
			task.Waiting[int](),
			task.SucceedAfter(9, 5*time.Millisecond),
			task.Waiting[int](),
		}
		first := task.Any(inputs)

		done, err := first.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(done.GetResult()).Should(Equal(9))
	})
})
