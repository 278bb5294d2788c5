package kafka_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sc2coach/sc2coach/pkg/eventstream"
	"github.com/sc2coach/sc2coach/pkg/eventstream/kafka"
)

var _ = Describe("Publisher", func() {
	It("requires at least one broker", func() {
		_, err := kafka.NewPublisher(nil, "coach.events")
		Expect(err).To(MatchError(ContainSubstring("brokers")))
	})

	It("requires a topic", func() {
		_, err := kafka.NewPublisher([]string{"localhost:9092"}, "")
		Expect(err).To(MatchError(ContainSubstring("topic")))
	})

	It("rejects nil events before touching the wire", func() {
		p, err := kafka.NewPublisher([]string{"localhost:9092"}, "coach.events")
		Expect(err).NotTo(HaveOccurred())
		defer p.Close()

		Expect(p.PublishReplay(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
		Expect(p.PublishSessionClosed(context.Background(), nil)).To(MatchError(eventstream.ErrNilEvent))
	})
})
