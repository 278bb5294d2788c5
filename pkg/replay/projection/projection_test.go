package projection_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sc2coach/sc2coach/pkg/replay"
	"github.com/sc2coach/sc2coach/pkg/replay/projection"
)

func fixtureReplay() *replay.Replay {
	return &replay.Replay{
		ID:         "f00d",
		Filename:   "ladder.SC2Replay",
		MapName:    "Alcyone LE",
		GameType:   "1v1",
		Region:     "eu",
		IsLadder:   true,
		GameLength: 900,
		RealLength: 880,
		Date:       time.Unix(1735689600, 0).UTC(),
		Players: []replay.Player{
			{
				SID: 1, PID: 1, Name: "student", PlayRace: "Protoss",
				Result: replay.ResultWin,
				BuildOrder: []replay.BuildOrder{
					{Time: "00:10", Name: "Probe", Supply: 13, IsWorker: true},
					{Time: "00:40", Name: "Pylon", Supply: 14},
					{Time: "01:10", Name: "Probe", Supply: 14, IsWorker: true, IsChronoBoosted: true},
					{Time: "06:00", Name: "Stargate", Supply: 60},
					{Time: "12:00", Name: "Fleet Beacon", Supply: 120},
				},
				UnitsLost: []replay.UnitLoss{
					{Frame: 100, Time: "08:00", Name: "Zealot", Killer: 2},
				},
			},
			{
				SID: 2, PID: 2, Name: "opponent", PlayRace: "Zerg",
				Result: replay.ResultLoss,
				BuildOrder: []replay.BuildOrder{
					{Time: "00:05", Name: "Drone", Supply: 12, IsWorker: true},
					{Time: "00:45", Name: "Spawning Pool", Supply: 13},
				},
			},
		},
	}
}

func buildOrderNames(doc map[string]any, playerIdx int) []string {
	players := doc["players"].([]any)
	player := players[playerIdx].(map[string]any)
	list := player["build_order"].([]any)

	names := make([]string, 0, len(list))
	for _, item := range list {
		names = append(names, item.(map[string]any)["name"].(string))
	}
	return names
}

var _ = Describe("Project", func() {
	It("keeps only the selected fields", func() {
		doc, err := projection.Project(fixtureReplay(), projection.DefaultFields, 0, true)
		Expect(err).NotTo(HaveOccurred())

		Expect(doc).To(HaveKey("_id"))
		Expect(doc).To(HaveKey("map_name"))
		Expect(doc).To(HaveKey("game_length"))
		Expect(doc).NotTo(HaveKey("filename"))
		Expect(doc).NotTo(HaveKey("region"))

		player := doc["players"].([]any)[0].(map[string]any)
		Expect(player).To(HaveKey("name"))
		Expect(player).To(HaveKey("play_race"))
		Expect(player).NotTo(HaveKey("units_lost"))
		Expect(player).NotTo(HaveKey("sid"))
	})

	It("drops build order entries past the time window", func() {
		doc, err := projection.Project(fixtureReplay(), projection.DefaultFields, 300, true)
		Expect(err).NotTo(HaveOccurred())

		Expect(buildOrderNames(doc, 0)).To(Equal([]string{"Probe", "Pylon", "Probe"}))
	})

	It("suppresses plain worker production when workers are excluded", func() {
		doc, err := projection.Project(fixtureReplay(), projection.DefaultFields, 0, false)
		Expect(err).NotTo(HaveOccurred())

		// The chrono-boosted probe survives, the plain ones don't.
		Expect(buildOrderNames(doc, 0)).To(Equal([]string{"Pylon", "Probe", "Stargate", "Fleet Beacon"}))
		Expect(buildOrderNames(doc, 1)).To(Equal([]string{"Spawning Pool"}))
	})

	It("keeps worker entries when workers are included", func() {
		doc, err := projection.Project(fixtureReplay(), projection.DefaultFields, 0, true)
		Expect(err).NotTo(HaveOccurred())

		Expect(buildOrderNames(doc, 0)).To(HaveLen(5))
	})

	It("strips the chrono flag from entries that are not boosted", func() {
		doc, err := projection.Project(fixtureReplay(), projection.DefaultFields, 0, false)
		Expect(err).NotTo(HaveOccurred())

		players := doc["players"].([]any)
		list := players[0].(map[string]any)["build_order"].([]any)

		first := list[0].(map[string]any) // Pylon
		Expect(first).NotTo(HaveKey("is_chronoboosted"))

		boosted := list[1].(map[string]any) // chrono Probe
		Expect(boosted).To(HaveKeyWithValue("is_chronoboosted", BeTrue()))
	})
})

var _ = Describe("ProjectJSON", func() {
	It("produces a valid JSON document", func() {
		data, err := projection.ProjectJSON(fixtureReplay(), projection.DefaultFields, 0, true)
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc["_id"]).To(Equal("f00d"))
	})
})

var _ = Describe("ProjectJSONBudget", func() {
	It("returns the full projection when it fits", func() {
		full, err := projection.ProjectJSON(fixtureReplay(), projection.DefaultFields, 1000, true)
		Expect(err).NotTo(HaveOccurred())

		data, err := projection.ProjectJSONBudget(fixtureReplay(), projection.DefaultFields, 1000, true, 1<<20)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).To(Equal(full))
	})

	It("tightens the window until the payload fits", func() {
		full, err := projection.ProjectJSON(fixtureReplay(), projection.DefaultFields, 1000, true)
		Expect(err).NotTo(HaveOccurred())

		data, err := projection.ProjectJSONBudget(fixtureReplay(), projection.DefaultFields, 1000, true, len(full)-1)
		Expect(err).NotTo(HaveOccurred())
		Expect(len(data)).To(BeNumerically("<", len(full)))
	})

	It("never shrinks the window below a minute", func() {
		data, err := projection.ProjectJSONBudget(fixtureReplay(), projection.DefaultFields, 1000, true, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(data).NotTo(BeEmpty())
	})
})
