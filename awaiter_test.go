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
	"time"

	task "github.com/riftlabs/tasko"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Awaiter", func() {
	It("wakes a watcher when its own key is signalled", func() {
		a := task.NewAwaiter()
		key := new(struct{})
		w := a.Watch(key)

		a.SignalAll(key)
		Eventually(w.Done()).Should(BeClosed())
		Expect(w.WokenBy()).Should(Equal(key))
	})

	It("does not wake a watcher on an unrelated key", func() {
		a := task.NewAwaiter()
		// Non-zero-size keys: pointers to distinct zero-size values may
		// compare equal, which would make the two keys the same key.
		other := new(int)
		w := a.Watch(new(int))

		a.SignalAll(other)
		Consistently(w.Done(), 20*time.Millisecond).ShouldNot(BeClosed())
	})

	It("wakes every watcher regardless of key via the master permit", func() {
		a := task.NewAwaiter()
		w1 := a.Watch(new(struct{}))
		w2 := a.Watch(new(struct{}))

		a.SignalAll(task.MasterPermit())
		Eventually(w1.Done()).Should(BeClosed())
		Eventually(w2.Done()).Should(BeClosed())
	})

	It("lets Stop deregister a watch without leaking a wakeup", func() {
		a := task.NewAwaiter()
		key := new(struct{})
		w := a.Watch(key)
		w.Stop()

		a.SignalAll(key)
		Consistently(w.Done(), 20*time.Millisecond).ShouldNot(BeClosed())
	})
})
