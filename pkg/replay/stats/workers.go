package stats

import (
	"strings"

	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/replay"
)

const (
	// analyzeWindow bounds the early-game window, in seconds, that worker
	// split/micro detection looks at.
	analyzeWindow = 30

	// splitCutoff separates the initial worker split (at most this many
	// seconds in) from later worker micro.
	splitCutoff = 2
)

// workerUnits are the worker unit type names of the three races.
var workerUnits = map[string]bool{
	"Drone": true,
	"Probe": true,
	"SCV":   true,
}

// skipEvents are event types irrelevant to worker analysis.
var skipEvents = map[string]bool{
	"CameraEvent":          true,
	"PlayerStatsEvent":     true,
	"ControlGroupEvent":    true,
	"SetControlGroupEvent": true,
	"GetControlGroupEvent": true,
	"ProgressEvent":        true,
}

// Score holds one player's worker handling counts.
type Score struct {
	Split int
	Micro int
}

// WorkerMicro computes worker split and micro scores for every player from
// the replay's low-level event stream.
//
// The pattern being detected is "a worker was selected and immediately sent
// back to gathering": a resource-target command on a mineral field, directly
// preceded by a selection of a worker unit. Walking the events in reverse
// chronological order makes this a single pass: the resource-target command
// sets a flag, and the selection that caused it is the next qualifying
// selection seen. The flag survives plain point-target commands and resets
// on any other event type.
func WorkerMicro(raw *replay.RawReplay) map[int]Score {
	perPlayer := make(map[int][]replay.GameEvent)

	started := false
	for _, ev := range raw.Events {
		if ev.Name == "UserOptionsEvent" {
			started = true
		}
		if ev.Second > analyzeWindow {
			break
		}
		if !started || skipEvents[ev.Name] || ev.PlayerSID == nil {
			continue
		}
		sid := *ev.PlayerSID
		perPlayer[sid] = append(perPlayer[sid], ev)
	}

	scores := make(map[int]Score, len(raw.Players))
	for _, p := range raw.Players {
		scores[p.SID] = microScore(perPlayer[p.SID])
	}
	return scores
}

func microScore(events []replay.GameEvent) Score {
	var score Score
	foundUnitTarget := false

	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]

		if ev.Name == "SelectionEvent" && foundUnitTarget && workerUnits[ev.ObjectName] {
			if ev.Second > splitCutoff {
				score.Micro++
			} else {
				score.Split++
			}
		}

		switch ev.Name {
		case "TargetPointCommandEvent", "UpdateTargetPointCommandEvent":
			// Point commands don't disturb the pattern.
		case "UpdateTargetUnitCommandEvent":
			if strings.Contains(ev.TargetName, "MineralField") {
				foundUnitTarget = true
			}
		default:
			foundUnitTarget = false
		}
	}
	return score
}

// Attach computes all derived statistics for a raw replay and writes them
// onto the typed replay: per-player worker scores and the match-level GG
// flag.
func Attach(raw *replay.RawReplay, rep *replay.Replay, log *zap.Logger) {
	scores := WorkerMicro(raw)

	for i := range rep.Players {
		score := scores[rep.Players[i].SID]
		if score.Split < 0 || score.Micro < 0 {
			// Increment-only counters can't go negative; seeing one means
			// the event stream is corrupt.
			log.Warn("negative worker score",
				zap.String("replay", rep.ID),
				zap.String("player", rep.Players[i].Name),
				zap.Int("split", score.Split),
				zap.Int("micro", score.Micro),
			)
			continue
		}
		rep.Players[i].Stats = replay.WorkerStats{
			WorkerSplit: score.Split,
			WorkerMicro: score.Micro,
		}
	}

	rep.Stats = replay.ReplayStats{LoserDoesGG: LoserDoesGG(raw)}
}
