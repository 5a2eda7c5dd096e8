package derive

import (
	"strings"
)

// AssignFlags classifies every player as winner, loser, or drawer. With a
// resolved winning team the split is binary: on the team or not. Without
// one, each player falls back through their own explicit result marker,
// then a telemetry scan over buckets matched to them, and finally the
// drawer state, which marks "could not determine" for downstream review.
func AssignFlags(players []Player, winningTeamID *int, matcher *Matcher, lookup *Lookup, diag *Diagnostics) map[int]Flag {
	flags := make(map[int]Flag, len(players))
	for _, p := range players {
		flags[p.ID] = flagFor(p, winningTeamID, matcher, lookup, diag)
	}
	return flags
}

func flagFor(p Player, winningTeamID *int, matcher *Matcher, lookup *Lookup, diag *Diagnostics) Flag {
	if winningTeamID != nil && *winningTeamID >= 0 {
		if p.TeamID == *winningTeamID {
			return FlagWinner
		}
		return FlagLoser
	}

	if playerMarkedWinner(p) {
		return FlagWinner
	}
	if playerMarkedLoser(p) {
		return FlagLoser
	}

	if flag, ok := flagFromTelemetry(p, matcher, lookup); ok {
		return flag
	}

	diag.DrawerPlayerIDs = append(diag.DrawerPlayerIDs, p.ID)
	return FlagDrawer
}

// flagFromTelemetry scans the buckets attributable to this player for
// individual win or loss signals, in lookup order.
func flagFromTelemetry(p Player, matcher *Matcher, lookup *Lookup) (Flag, bool) {
	for _, missionKey := range lookup.MissionKeys() {
		owner, ok := matcher.PlayerFor(missionKey)
		if !ok || owner.ID != p.ID {
			continue
		}
		for _, key := range lookup.Keys(missionKey) {
			v, _ := lookup.Get(missionKey, key)
			if winnerSignal(key, v) {
				return FlagWinner, true
			}
			if playerLossSignal(key, v) {
				return FlagLoser, true
			}
		}
	}
	return "", false
}

// playerLossSignal is the per-player loss check. Unlike the elimination
// scan it also honors a "result" key whose value reads as a loss.
func playerLossSignal(key string, v Value) bool {
	k := strings.ToLower(key)
	sv := strings.ToLower(v.String())
	asserted := strings.Contains(k, "loser") ||
		strings.Contains(k, "loss") ||
		(k == "result" && strings.Contains(sv, "loss"))
	return asserted && (v.Positive() || strings.Contains(sv, "loss"))
}
