package eventstream_test

import (
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sc2coach/sc2coach/pkg/eventstream"
)

var _ = Describe("event payloads", func() {
	It("marshals replay persisted events with stable top-level keys", func() {
		evt := &eventstream.ReplayPersistedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeReplayPersisted,
			EventID:       "evt-1",
			EmittedAt:     time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC),
			ReplayID:      "hash-1",
			Filename:      "game.SC2Replay",
			MapName:       "Alcyone LE",
			Players:       []string{"Nova", "Rival"},
			GameLength:    620,
			IsNew:         true,
		}

		data, err := json.Marshal(evt)
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc).To(HaveKeyWithValue("schema_version", float64(1)))
		Expect(doc).To(HaveKeyWithValue("event_type", "coach.replay.persisted"))
		Expect(doc).To(HaveKeyWithValue("event_id", "evt-1"))
		Expect(doc).To(HaveKey("emitted_at"))
		Expect(doc).To(HaveKeyWithValue("replay_id", "hash-1"))
		Expect(doc).To(HaveKeyWithValue("map_name", "Alcyone LE"))
		Expect(doc).To(HaveKeyWithValue("is_new", true))
	})

	It("marshals session closed events with stable top-level keys", func() {
		evt := &eventstream.SessionClosedEvent{
			SchemaVersion: eventstream.SchemaVersionV1,
			EventType:     eventstream.EventTypeSessionClosed,
			EventID:       "evt-2",
			EmittedAt:     time.Date(2026, 3, 1, 22, 0, 0, 0, time.UTC),
			SessionID:     "session-1",
			Backend:       "openai",
			ThreadCount:   3,
			TotalTokens:   4200,
			CostUSD:       0.11,
		}

		data, err := json.Marshal(evt)
		Expect(err).NotTo(HaveOccurred())

		var doc map[string]any
		Expect(json.Unmarshal(data, &doc)).To(Succeed())
		Expect(doc).To(HaveKeyWithValue("event_type", "coach.session.closed"))
		Expect(doc).To(HaveKeyWithValue("session_id", "session-1"))
		Expect(doc).To(HaveKeyWithValue("backend", "openai"))
		Expect(doc).To(HaveKeyWithValue("thread_count", float64(3)))
		Expect(doc).To(HaveKeyWithValue("total_tokens", float64(4200)))
		Expect(doc).To(HaveKeyWithValue("cost_usd", 0.11))
	})
})
