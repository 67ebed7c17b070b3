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
	"fmt"
	"time"

	task "github.com/riftlabs/tasko"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("Task", func() {
	It("delivers a completer's success to an awaiting caller", func() {
		completer := task.NewCompleter[int]()
		t := task.StartBlocking(completer)

		go func() {
			time.Sleep(50 * time.Millisecond)
			_, err := completer.SignalSuccess(42)
			Expect(err).ShouldNot(HaveOccurred())
		}()

		done, err := t.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(done.GetResult()).Should(Equal(42))
		Expect(done.GetState()).Should(Equal(task.StateSuccess))
	})

	It("raises a failure exactly once to the first checker", func() {
		completer := task.NewCompleter[int]()
		t := task.StartBlocking(completer)

		boom := errors.New("boom")
		_, err := completer.SignalFailure(boom)
		Expect(err).ShouldNot(HaveOccurred())

		_, err = t.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())

		Expect(t.CheckFailure()).Should(MatchError(boom))
		Expect(t.HasUnconsumedException()).Should(BeFalse())
		Expect(t.CheckFailure()).ShouldNot(HaveOccurred())
	})

	It("lets exactly one of signalSuccess/cancel win a race, with no third outcome", func() {
		for i := 0; i < 20; i++ {
			completer := task.NewCompleter[int]()
			t := task.StartBlocking(completer)

			done := make(chan struct{}, 2)
			go func() {
				completer.SignalSuccess(1)
				done <- struct{}{}
			}()
			go func() {
				t.Cancel("stop")
				done <- struct{}{}
			}()
			<-done
			<-done

			switch t.GetState() {
			case task.StateSuccess:
				Expect(t.GetResult()).Should(Equal(1))
			case task.StateCancelled:
				cause, ok := t.CancellationCause()
				Expect(ok).Should(BeTrue())
				Expect(cause.Payload).Should(Equal("stop"))
			default:
				Fail(fmt.Sprintf("unexpected terminal state %v", t.GetState()))
			}
		}
	})

	It("raises a cancelled condition when the racing condition wins", func() {
		completer := task.NewCompleter[int]()
		t := task.StartBlocking(completer)
		cond := task.NewCancelCondition()

		go func() {
			time.Sleep(20 * time.Millisecond)
			cond.Cancel(nil)
		}()

		_, err := t.Await(context.Background(), task.WithCancelCondition(cond))
		var cancelled *task.CancelledError
		Expect(errors.As(err, &cancelled)).Should(BeTrue())

		Expect(t.GetState()).Should(Equal(task.StateRunning))
		Expect(t.IsCancelled()).Should(BeFalse())
		Expect(cond.IsCancelled()).Should(BeTrue())
	})

	It("propagates an outer cancellation back through chain to the inner task", func() {
		inner := task.Waiting[int]()
		outer := task.Chain(inner, func(v int) (int, error) { return v, nil })

		outer.Cancel("x")

		Eventually(inner.IsCancelled).Should(BeTrue())
		Expect(outer.IsCancelled()).Should(BeTrue())
	})

	It("computes a chained result from a delayed success", func() {
		inner := task.SucceedAfter(10, 5*time.Millisecond)
		outer := task.Chain(inner, func(v int) (int, error) { return v * 2, nil })

		done, err := outer.Await(context.Background())
		Expect(err).ShouldNot(HaveOccurred())
		Expect(done.GetResult()).Should(Equal(20))
	})

	It("times out an Await without mutating task state, then later completes", func() {
		d := task.Delay(100 * time.Millisecond)

		_, err := d.Await(context.Background(), task.WithTimeout(10*time.Millisecond))
		Expect(err).Should(MatchError(task.ErrTimeout))

		_, err = d.Await(context.Background(), task.WithTimeout(200*time.Millisecond))
		Expect(err).ShouldNot(HaveOccurred())
		Expect(d.IsSuccessful()).Should(BeTrue())
	})

	It("interrupts an Await when the context is cancelled", func() {
		completer := task.NewCompleter[int]()
		t := task.StartBlocking(completer)

		ctx, cancel := context.WithCancel(context.Background())
		go func() {
			time.Sleep(10 * time.Millisecond)
			cancel()
		}()

		_, err := t.Await(ctx)
		Expect(err).Should(MatchError(task.ErrInterrupted))
	})

	It("reports GetFinishedResult present only on success", func() {
		running := task.StartBlocking(task.NewCompleter[int]())
		_, ok := running.GetFinishedResult()
		Expect(ok).Should(BeFalse())

		succeeded := task.Success(7)
		v, ok := succeeded.GetFinishedResult()
		Expect(ok).Should(BeTrue())
		Expect(v).Should(Equal(7))

		failed := task.Failed[int](errors.New("x"))
		_, ok = failed.GetFinishedResult()
		Expect(ok).Should(BeFalse())
	})

	It("panics GetResult on a non-successful task", func() {
		failed := task.Failed[int](errors.New("x"))
		Expect(func() { failed.GetResult() }).Should(Panic())
	})
})
