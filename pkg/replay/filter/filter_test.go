package filter_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/filter"
)

// ladderRaw is a replay that passes every default predicate.
func ladderRaw() *replay.RawReplay {
	return &replay.RawReplay{
		GameType:   "1v1",
		IsLadder:   true,
		RealLength: 600,
		Players: []replay.RawPlayer{
			{SID: 1, Name: "one", AvgAPM: 120},
			{SID: 2, Name: "two", AvgAPM: 95},
		},
	}
}

var _ = Describe("Pipeline", func() {
	var p *filter.Pipeline

	BeforeEach(func() {
		p = filter.New(0, zap.NewNop())
	})

	Describe("IsLadder", func() {
		It("accepts ranked 1v1 matches", func() {
			Expect(p.IsLadder(ladderRaw())).To(BeTrue())
		})

		It("rejects unranked 1v1 matches", func() {
			raw := ladderRaw()
			raw.IsLadder = false
			Expect(p.IsLadder(raw)).To(BeFalse())
		})

		It("rejects team games", func() {
			raw := ladderRaw()
			raw.GameType = "2v2"
			Expect(p.IsLadder(raw)).To(BeFalse())
		})
	})

	Describe("IsInstantLeave", func() {
		It("rejects matches shorter than the threshold", func() {
			raw := ladderRaw()
			raw.RealLength = filter.DefaultInstantLeaveMax - 1
			Expect(p.IsInstantLeave(raw)).To(BeTrue())
		})

		It("accepts matches at the threshold", func() {
			raw := ladderRaw()
			raw.RealLength = filter.DefaultInstantLeaveMax
			Expect(p.IsInstantLeave(raw)).To(BeFalse())
		})

		It("honors a custom threshold", func() {
			custom := filter.New(120, zap.NewNop())
			raw := ladderRaw()
			raw.RealLength = 90
			Expect(custom.IsInstantLeave(raw)).To(BeTrue())
		})
	})

	Describe("HasAFKPlayer", func() {
		It("flags a player below the APM floor", func() {
			raw := ladderRaw()
			raw.Players[1].AvgAPM = 3
			Expect(p.HasAFKPlayer(raw)).To(BeTrue())
		})

		It("passes active players", func() {
			Expect(p.HasAFKPlayer(ladderRaw())).To(BeFalse())
		})
	})

	Describe("IsArchon", func() {
		It("flags archon mode matches", func() {
			raw := ladderRaw()
			raw.GameType = "Archon"
			Expect(p.IsArchon(raw)).To(BeTrue())
		})
	})

	Describe("Apply", func() {
		It("passes a clean ladder replay", func() {
			Expect(p.Apply(ladderRaw())).To(BeTrue())
		})

		It("fails on any default predicate", func() {
			raw := ladderRaw()
			raw.RealLength = 5
			Expect(p.Apply(raw)).To(BeFalse())
		})

		It("runs extra predicates first", func() {
			called := false
			pred := func(*replay.RawReplay) bool {
				called = true
				return false
			}
			Expect(p.Apply(ladderRaw(), pred)).To(BeFalse())
			Expect(called).To(BeTrue())
		})
	})
})
