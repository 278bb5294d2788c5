// Package stats computes derived statistics from a replay's chronological
// low-level event stream: per-player worker split/micro scores and the
// match-level "loser acknowledged the game" flag.
package stats

import (
	"strings"

	"github.com/agext/levenshtein"

	"github.com/sc2coach/sc2coach/pkg/replay"
)

// Canonical "good game" phrases. A message qualifies if its edit distance to
// any of these is below 2, or if it is nothing but 'g' characters.
var ggs = []string{"gg", "ggwp", "gfg", "ggg"}

// IsGG reports whether a chat message counts as a "good game" acknowledgment.
// "bg" is explicitly excluded: it is edit distance 1 from "gg" but means the
// opposite.
func IsGG(text string) bool {
	msg := strings.ToLower(text)
	if msg == "" {
		return false
	}

	allG := true
	for _, c := range msg {
		if c != 'g' {
			allG = false
			break
		}
	}
	if allG {
		return true
	}

	if msg == "bg" {
		return false
	}
	for _, gg := range ggs {
		if levenshtein.Distance(msg, gg, nil) < 2 {
			return true
		}
	}
	return false
}

// LoserDoesGG reports whether any player on the losing side sent a chat
// message acknowledging the game.
func LoserDoesGG(raw *replay.RawReplay) bool {
	loserSIDs := make(map[int]bool)
	for _, p := range raw.Players {
		if p.Result == replay.ResultLoss {
			loserSIDs[p.SID] = true
		}
	}

	for _, m := range raw.Messages {
		if loserSIDs[m.PID] && IsGG(m.Text) {
			return true
		}
	}
	return false
}
