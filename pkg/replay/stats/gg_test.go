package stats_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/stats"
)

var _ = Describe("IsGG", func() {
	It("accepts the canonical phrase", func() {
		Expect(stats.IsGG("gg")).To(BeTrue())
	})

	It("is case insensitive", func() {
		Expect(stats.IsGG("GG")).To(BeTrue())
		Expect(stats.IsGG("GgWp")).To(BeTrue())
	})

	It("accepts near misses within edit distance", func() {
		Expect(stats.IsGG("gg wp")).To(BeTrue())
		Expect(stats.IsGG("ggw")).To(BeTrue())
		Expect(stats.IsGG("gf")).To(BeTrue())
	})

	It("accepts any run of g characters", func() {
		Expect(stats.IsGG("g")).To(BeTrue())
		Expect(stats.IsGG("ggggggg")).To(BeTrue())
	})

	It("rejects bg even though it is one edit from gg", func() {
		Expect(stats.IsGG("bg")).To(BeFalse())
		Expect(stats.IsGG("BG")).To(BeFalse())
	})

	It("rejects unrelated chat", func() {
		Expect(stats.IsGG("")).To(BeFalse())
		Expect(stats.IsGG("well played")).To(BeFalse())
		Expect(stats.IsGG("glhf")).To(BeFalse())
	})
})

var _ = Describe("LoserDoesGG", func() {
	newRaw := func(messages ...replay.Message) *replay.RawReplay {
		return &replay.RawReplay{
			Players: []replay.RawPlayer{
				{SID: 1, PID: 1, Name: "winner", Result: replay.ResultWin},
				{SID: 2, PID: 2, Name: "loser", Result: replay.ResultLoss},
			},
			Messages: messages,
		}
	}

	It("is true when the loser says gg", func() {
		raw := newRaw(replay.Message{PID: 2, Second: 600, Text: "gg"})
		Expect(stats.LoserDoesGG(raw)).To(BeTrue())
	})

	It("is false when only the winner says gg", func() {
		raw := newRaw(replay.Message{PID: 1, Second: 600, Text: "gg"})
		Expect(stats.LoserDoesGG(raw)).To(BeFalse())
	})

	It("is false when the loser says bg", func() {
		raw := newRaw(replay.Message{PID: 2, Second: 600, Text: "bg"})
		Expect(stats.LoserDoesGG(raw)).To(BeFalse())
	})

	It("is false without any messages", func() {
		Expect(stats.LoserDoesGG(newRaw())).To(BeFalse())
	})
})
