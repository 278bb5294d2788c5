package events_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/events"
)

var _ = Describe("Queue", func() {
	var (
		ctx context.Context
		q   *events.Queue
	)

	BeforeEach(func() {
		ctx = context.Background()
		q = events.NewQueue(2, zap.NewNop())
	})

	It("delivers events in order", func() {
		Expect(q.Put(events.GameStart{Opponent: "Rival"})).To(BeTrue())
		Expect(q.Put(events.Wake{})).To(BeTrue())

		evt, err := q.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.Kind()).To(Equal("game_start"))
		Expect(evt.(events.GameStart).Opponent).To(Equal("Rival"))

		evt, err = q.Next(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(evt.Kind()).To(Equal("wake"))
	})

	It("drops events instead of blocking when full", func() {
		Expect(q.Put(events.Wake{})).To(BeTrue())
		Expect(q.Put(events.Wake{})).To(BeTrue())
		Expect(q.Put(events.Wake{})).To(BeFalse())
	})

	It("honors context cancellation while waiting", func() {
		cancelable, cancel := context.WithCancel(ctx)

		done := make(chan error, 1)
		go func() {
			_, err := q.Next(cancelable)
			done <- err
		}()

		cancel()
		Eventually(done).Should(Receive(MatchError(context.Canceled)))
	})

	It("unblocks a waiting consumer when an event arrives", func() {
		got := make(chan events.Event, 1)
		go func() {
			evt, err := q.Next(ctx)
			if err == nil {
				got <- evt
			}
		}()

		// Give the consumer a moment to park on the channel.
		time.Sleep(10 * time.Millisecond)
		Expect(q.Put(events.TwitchChat{User: "viewer", Message: "hi"})).To(BeTrue())

		var evt events.Event
		Eventually(got).Should(Receive(&evt))
		Expect(evt.Kind()).To(Equal("twitch_chat"))
	})

	Describe("Close", func() {
		It("drains queued events before reporting closure", func() {
			Expect(q.Put(events.Wake{})).To(BeTrue())
			q.Close()

			evt, err := q.Next(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(evt.Kind()).To(Equal("wake"))

			_, err = q.Next(ctx)
			Expect(err).To(MatchError(events.ErrQueueClosed))
		})

		It("drops events offered after closure", func() {
			q.Close()
			Expect(q.Put(events.Wake{})).To(BeFalse())
		})

		It("is safe to call twice", func() {
			q.Close()
			Expect(q.Close).NotTo(Panic())
		})
	})

	It("applies the default capacity when size is zero", func() {
		q := events.NewQueue(0, zap.NewNop())
		for range 64 {
			Expect(q.Put(events.Wake{})).To(BeTrue())
		}
		Expect(q.Put(events.Wake{})).To(BeFalse())
	})
})
