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
	"sync/atomic"
	"time"

	task "github.com/riftlabs/tasko"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Timer", func() {
	It("runs a scheduled action no earlier than its delay", func() {
		t := task.NewTimer()
		start := time.Now()
		fired := make(chan time.Time, 1)

		_, err := t.ScheduleOnce(30*time.Millisecond, func() {
			fired <- time.Now()
		})
		Expect(err).ShouldNot(HaveOccurred())

		var at time.Time
		Eventually(fired, time.Second).Should(Receive(&at))
		Expect(at.Sub(start)).Should(BeNumerically(">=", 25*time.Millisecond))
	})

	It("runs jobs in fire-time order even when scheduled out of order", func() {
		t := task.NewTimer()
		var order []int
		done := make(chan struct{}, 3)

		record := func(n int) func() {
			return func() {
				order = append(order, n)
				done <- struct{}{}
			}
		}

		_, _ = t.ScheduleOnce(30*time.Millisecond, record(3))
		_, _ = t.ScheduleOnce(10*time.Millisecond, record(1))
		_, _ = t.ScheduleOnce(20*time.Millisecond, record(2))

		for i := 0; i < 3; i++ {
			Eventually(done, time.Second).Should(Receive())
		}
		Expect(order).Should(Equal([]int{1, 2, 3}))
	})

	It("cancels a pending schedule before it fires", func() {
		t := task.NewTimer()
		var fired int32
		handle, err := t.ScheduleOnce(30*time.Millisecond, func() {
			atomic.StoreInt32(&fired, 1)
		})
		Expect(err).ShouldNot(HaveOccurred())

		Expect(handle.Cancel()).Should(BeTrue())
		Consistently(func() int32 { return atomic.LoadInt32(&fired) }, 60*time.Millisecond).Should(Equal(int32(0)))
	})

	It("reports a shrinking Remaining before firing", func() {
		t := task.NewTimer()
		handle, err := t.ScheduleOnce(50*time.Millisecond, func() {})
		Expect(err).ShouldNot(HaveOccurred())

		first := handle.Remaining()
		time.Sleep(10 * time.Millisecond)
		second := handle.Remaining()

		Expect(first).Should(BeNumerically(">", 0))
		Expect(second).Should(BeNumerically("<", first))
		handle.Cancel()
	})

	It("rejects new schedules once shut down", func() {
		t := task.NewTimer()
		Expect(t.IsAcceptingTasks()).Should(BeTrue())

		Expect(t.AwaitShutdown(time.Second)).ShouldNot(HaveOccurred())
		Expect(t.IsAcceptingTasks()).Should(BeFalse())

		_, err := t.ScheduleOnce(time.Millisecond, func() {})
		Expect(err).Should(MatchError(task.ErrExecutorRejected))
	})

	It("is idempotent across repeated Shutdown calls", func() {
		t := task.NewTimer()
		t.Shutdown()
		t.Shutdown()
		Expect(t.AwaitShutdown(time.Second)).ShouldNot(HaveOccurred())
	})

	It("memoizes a single process-wide GlobalTimer", func() {
		Expect(task.GlobalTimer()).Should(BeIdenticalTo(task.GlobalTimer()))
	})
})
