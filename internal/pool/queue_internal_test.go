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

package pool

import (
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

func newTestHandle() *Handle {
	return newJobHandle(JobFunc(func() (any, error) { return nil, nil }), nil)
}

var _ = Describe("queue (internal)", func() {
	It("polls elements back out in FIFO order", func() {
		q := newQueue()
		a, b, c := newTestHandle(), newTestHandle(), newTestHandle()

		Expect(q.push(a)).Should(Succeed())
		Expect(q.push(b)).Should(Succeed())
		Expect(q.push(c)).Should(Succeed())

		first, err := q.poll(0)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(first).Should(BeIdenticalTo(a))

		second, err := q.poll(0)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(second).Should(BeIdenticalTo(b))
	})

	It("times out polling an empty queue", func() {
		q := newQueue()
		_, err := q.poll(10 * time.Millisecond)
		Expect(err).Should(Equal(ErrQueuePollTimeout))
	})

	It("removes a queued element that has not been polled yet", func() {
		q := newQueue()
		a, b := newTestHandle(), newTestHandle()
		Expect(q.push(a)).Should(Succeed())
		Expect(q.push(b)).Should(Succeed())

		Expect(q.remove(a)).Should(Succeed())

		h, err := q.poll(0)
		Expect(err).ShouldNot(HaveOccurred())
		Expect(h).Should(BeIdenticalTo(b))
	})

	It("reports ErrElementNotFound removing an element twice", func() {
		q := newQueue()
		a := newTestHandle()
		Expect(q.push(a)).Should(Succeed())
		Expect(q.remove(a)).Should(Succeed())
		Expect(q.remove(a)).Should(Equal(ErrElementNotFound))
	})

	It("rejects pushes after close and wakes blocked pollers", func() {
		q := newQueue()
		var wg sync.WaitGroup
		wg.Add(1)
		var polled *Handle
		go func() {
			defer wg.Done()
			polled, _ = q.poll(0)
		}()

		time.Sleep(10 * time.Millisecond)
		q.close()
		wg.Wait()
		Expect(polled).Should(BeNil())

		Expect(q.push(newTestHandle())).Should(Equal(ErrQueueClosed))
	})
})
