package derive

import (
	"strings"
)

// Resolver source names reported in Diagnostics.WinnerSource.
const (
	SourceParsedWinningTeam = "parsed_winning_team_id"
	SourceParsedWinnerTeam  = "parsed_winner_team_id"
	SourcePlayerResult      = "player_result_marker"
	SourceTelemetryWinner   = "telemetry_winner_signal"
	SourceTelemetryLoser    = "telemetry_loser_elimination"
)

// winnerSignal reports whether a (key, value) pair asserts a win. Key names
// containing win/winner count, as does a "result" key whose value reads as
// a win; the value itself must be positive or string-contain "win".
func winnerSignal(key string, v Value) bool {
	k := strings.ToLower(key)
	sv := strings.ToLower(v.String())
	asserted := strings.Contains(k, "winner") ||
		strings.Contains(k, "win") ||
		(k == "result" && (strings.Contains(sv, "win") || sv == "1"))
	return asserted && (v.Positive() || strings.Contains(sv, "win"))
}

// loserSignal reports whether a (key, value) pair asserts a loss, for the
// elimination scan. Only positive values count here.
func loserSignal(key string, v Value) bool {
	k := strings.ToLower(key)
	return (strings.Contains(k, "loser") || strings.Contains(k, "loss")) && v.Positive()
}

type teamResolver struct {
	source  string
	resolve func() (int, bool)
}

// ResolveWinningTeam runs the evidence cascade: parsed primary field,
// parsed secondary field, per-player result markers, telemetry winner scan,
// telemetry loser elimination. The first source that yields a validated
// team id wins and later sources are never consulted. Returns nil when
// every source comes up empty; callers must surface that, not default it.
func ResolveWinningTeam(replay *DecodedReplay, matcher *Matcher, lookup *Lookup, diag *Diagnostics) *int {
	players := replay.Players

	resolvers := []teamResolver{
		{SourceParsedWinningTeam, func() (int, bool) {
			return validatedTeam(replay.WinningTeamID, players)
		}},
		{SourceParsedWinnerTeam, func() (int, bool) {
			return validatedTeam(replay.WinnerTeamID, players)
		}},
		{SourcePlayerResult, func() (int, bool) {
			return teamFromPlayerResults(players)
		}},
		{SourceTelemetryWinner, func() (int, bool) {
			return teamFromWinnerScan(matcher, lookup, diag)
		}},
		{SourceTelemetryLoser, func() (int, bool) {
			return teamByElimination(players, matcher, lookup, diag)
		}},
	}

	for _, r := range resolvers {
		if team, ok := r.resolve(); ok {
			diag.WinnerSource = r.source
			return &team
		}
	}
	return nil
}

// validatedTeam accepts a parsed team id only when it is non-negative and
// at least one roster player belongs to it.
func validatedTeam(teamID *int, players []Player) (int, bool) {
	if teamID == nil || *teamID < 0 {
		return 0, false
	}
	for _, p := range players {
		if p.TeamID == *teamID {
			return *teamID, true
		}
	}
	return 0, false
}

func teamFromPlayerResults(players []Player) (int, bool) {
	for _, p := range players {
		if playerMarkedWinner(p) {
			return p.TeamID, true
		}
	}
	return 0, false
}

func playerMarkedWinner(p Player) bool {
	return p.Result == "win" || p.Status == "winner" || (p.Won != nil && *p.Won)
}

func playerMarkedLoser(p Player) bool {
	return p.Result == "loss" || p.Status == "loser" || (p.Won != nil && !*p.Won)
}

// teamFromWinnerScan walks every (missionKey, key, value) triple in lookup
// order looking for winner signals attributable to a player. The first
// match is authoritative; the rest are collected for diagnostics.
func teamFromWinnerScan(matcher *Matcher, lookup *Lookup, diag *Diagnostics) (int, bool) {
	found := false
	team := 0
	for _, missionKey := range lookup.MissionKeys() {
		for _, key := range lookup.Keys(missionKey) {
			v, _ := lookup.Get(missionKey, key)
			if !winnerSignal(key, v) {
				continue
			}
			p, ok := matcher.PlayerFor(missionKey)
			if !ok {
				continue
			}
			diag.WinnerSignals = append(diag.WinnerSignals, SignalMatch{
				PlayerID:   p.ID,
				MissionKey: missionKey,
				Key:        key,
			})
			if !found {
				found = true
				team = p.TeamID
			}
		}
	}
	return team, found
}

// teamByElimination collects the teams of every player a loser signal
// attributes a loss to. If losers exist but do not cover all teams, the
// single remaining interpretation is that an uncovered team won.
func teamByElimination(players []Player, matcher *Matcher, lookup *Lookup, diag *Diagnostics) (int, bool) {
	loserTeams := make(map[int]bool)
	seen := make(map[int]bool)
	for _, missionKey := range lookup.MissionKeys() {
		for _, key := range lookup.Keys(missionKey) {
			v, _ := lookup.Get(missionKey, key)
			if !loserSignal(key, v) {
				continue
			}
			p, ok := matcher.PlayerFor(missionKey)
			if !ok {
				continue
			}
			if !seen[p.ID] {
				seen[p.ID] = true
				diag.LoserSignals = append(diag.LoserSignals, SignalMatch{
					PlayerID:   p.ID,
					MissionKey: missionKey,
					Key:        key,
				})
			}
			loserTeams[p.TeamID] = true
		}
	}
	if len(loserTeams) == 0 {
		return 0, false
	}
	for _, p := range players {
		if !loserTeams[p.TeamID] {
			return p.TeamID, true
		}
	}
	return 0, false // losers span every team, no answer
}
