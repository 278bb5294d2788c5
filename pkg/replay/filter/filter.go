// Package filter decides whether a freshly parsed replay is worth keeping.
//
// Predicates are pure: they only read the replay. The caller inspects which
// predicate failed to decide what to do with the file (delete it, ignore
// it), the pipeline itself never touches the filesystem.
package filter

import (
	"go.uber.org/zap"

	"github.com/sc2coach/sc2coach/pkg/replay"
)

const (
	// DefaultInstantLeaveMax is the minimum wall-clock match length, in
	// seconds, below which a replay is treated as an instant leave.
	DefaultInstantLeaveMax = 30

	// MinAPM is the minimum average actions-per-minute below which a
	// player counts as AFK.
	MinAPM = 10
)

// Predicate returns true when the replay passes the check.
type Predicate func(*replay.RawReplay) bool

// Pipeline applies the default predicate chain plus any extras.
type Pipeline struct {
	instantLeaveMax int
	log             *zap.Logger
}

// New creates a Pipeline. instantLeaveMax <= 0 selects the default.
func New(instantLeaveMax int, log *zap.Logger) *Pipeline {
	if instantLeaveMax <= 0 {
		instantLeaveMax = DefaultInstantLeaveMax
	}
	return &Pipeline{instantLeaveMax: instantLeaveMax, log: log}
}

// IsLadder reports whether the replay is a 1v1 ranked ladder match.
func (p *Pipeline) IsLadder(raw *replay.RawReplay) bool {
	isLadder := raw.GameType == "1v1" && raw.IsLadder
	p.log.Debug("is_ladder", zap.Bool("result", isLadder))
	return isLadder
}

// IsInstantLeave reports whether the match ended so quickly that a player
// must have left immediately.
func (p *Pipeline) IsInstantLeave(raw *replay.RawReplay) bool {
	isInstantLeave := raw.RealLength < p.instantLeaveMax
	p.log.Debug("is_instant_leave",
		zap.Bool("result", isInstantLeave),
		zap.Int("real_length", raw.RealLength),
	)
	return isInstantLeave
}

// HasAFKPlayer reports whether any player's average APM is below the
// activity floor.
func (p *Pipeline) HasAFKPlayer(raw *replay.RawReplay) bool {
	for _, player := range raw.Players {
		if player.AvgAPM < MinAPM {
			p.log.Debug("has_afk_player", zap.String("player", player.Name))
			return true
		}
	}
	return false
}

// IsArchon reports whether the replay is an archon-mode match, where two
// players share one army. The per-player model downstream doesn't support
// it.
func (p *Pipeline) IsArchon(raw *replay.RawReplay) bool {
	return raw.GameType == "Archon"
}

// Apply runs extra predicates followed by the default set. The replay
// passes only if every predicate returns true.
func (p *Pipeline) Apply(raw *replay.RawReplay, extra ...Predicate) bool {
	defaults := []Predicate{
		p.IsLadder,
		func(r *replay.RawReplay) bool { return !p.IsInstantLeave(r) },
		func(r *replay.RawReplay) bool { return !p.HasAFKPlayer(r) },
		func(r *replay.RawReplay) bool { return !p.IsArchon(r) },
	}

	for _, pred := range append(extra, defaults...) {
		if !pred(raw) {
			return false
		}
	}
	return true
}
