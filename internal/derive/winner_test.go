package derive

import (
	"testing"
)

func intPtr(n int) *int { return &n }

func resolveFor(t *testing.T, replay *DecodedReplay) (*int, Diagnostics) {
	t.Helper()
	lookup, _, _ := BuildLookup(replay.Telemetry)
	matcher := NewMatcher(lookup, replay.Players)
	var diag Diagnostics
	team := ResolveWinningTeam(replay, matcher, lookup, &diag)
	return team, diag
}

func TestResolve_ParsedPrimaryField(t *testing.T) {
	replay := &DecodedReplay{
		WinningTeamID: intPtr(0),
		Players:       []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 0 {
		t.Fatalf("team = %v, want 0", team)
	}
	if diag.WinnerSource != SourceParsedWinningTeam {
		t.Fatalf("source = %q", diag.WinnerSource)
	}
}

func TestResolve_PrimaryRejectedWhenNoPlayerOnTeam(t *testing.T) {
	// Primary points at a team with zero players; the cascade must move
	// on to the secondary field.
	replay := &DecodedReplay{
		WinningTeamID: intPtr(7),
		WinnerTeamID:  intPtr(1),
		Players:       []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 1 {
		t.Fatalf("team = %v, want 1", team)
	}
	if diag.WinnerSource != SourceParsedWinnerTeam {
		t.Fatalf("source = %q", diag.WinnerSource)
	}
}

func TestResolve_NegativePrimaryRejected(t *testing.T) {
	replay := &DecodedReplay{
		WinningTeamID: intPtr(-1),
		Players:       []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
	}

	if team, _ := resolveFor(t, replay); team != nil {
		t.Fatalf("team = %v, want unresolved", *team)
	}
}

func TestResolve_PlayerResultMarker(t *testing.T) {
	won := true
	replay := &DecodedReplay{
		Players: []Player{
			player(1, "Ann", 0),
			{ID: 2, Name: "Ben", TeamID: 1, Won: &won},
		},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 1 {
		t.Fatalf("team = %v, want 1", team)
	}
	if diag.WinnerSource != SourcePlayerResult {
		t.Fatalf("source = %q", diag.WinnerSource)
	}
}

func TestResolve_TelemetryWinnerScan(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
		Telemetry: []Entry{
			entry("ann", "kills", Number(4)),
			entry("ben", "winner", Number(1)),
		},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 1 {
		t.Fatalf("team = %v, want 1", team)
	}
	if diag.WinnerSource != SourceTelemetryWinner {
		t.Fatalf("source = %q", diag.WinnerSource)
	}
	if len(diag.WinnerSignals) != 1 || diag.WinnerSignals[0].PlayerID != 2 {
		t.Fatalf("winner signals = %v", diag.WinnerSignals)
	}
}

func TestResolve_TelemetryResultStringValue(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
		Telemetry: []Entry{
			entry("ann", "result", Text("win")),
		},
	}

	team, _ := resolveFor(t, replay)
	if team == nil || *team != 0 {
		t.Fatalf("team = %v, want 0", team)
	}
}

func TestResolve_FirstWinnerSignalAuthoritative(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
		Telemetry: []Entry{
			entry("ann", "winner", Number(1)),
			entry("ben", "winner", Number(1)), // contradictory, diagnostics only
		},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 0 {
		t.Fatalf("team = %v, want first signal's team 0", team)
	}
	if len(diag.WinnerSignals) != 2 {
		t.Fatalf("winner signals = %v, want both collected", diag.WinnerSignals)
	}
}

func TestResolve_LoserElimination(t *testing.T) {
	// Teams {A, A, B}: loser signals on both A players, nothing on B.
	replay := &DecodedReplay{
		Players: []Player{
			player(1, "Ann", 0),
			player(2, "Abe", 0),
			player(3, "Ben", 1),
		},
		Telemetry: []Entry{
			entry("ann", "loser", Number(1)),
			entry("abe", "loss", Number(1)),
		},
	}

	team, diag := resolveFor(t, replay)
	if team == nil || *team != 1 {
		t.Fatalf("team = %v, want 1 by elimination", team)
	}
	if diag.WinnerSource != SourceTelemetryLoser {
		t.Fatalf("source = %q", diag.WinnerSource)
	}
	if len(diag.LoserSignals) != 2 {
		t.Fatalf("loser signals = %v", diag.LoserSignals)
	}
}

func TestResolve_LosersOnEveryTeamYieldNothing(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
		Telemetry: []Entry{
			entry("ann", "loser", Number(1)),
			entry("ben", "loser", Number(1)),
		},
	}

	if team, _ := resolveFor(t, replay); team != nil {
		t.Fatalf("team = %v, want unresolved", *team)
	}
}

func TestResolve_NonPositiveLoserValueIgnored(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
		Telemetry: []Entry{
			entry("ann", "loser", Number(0)),
		},
	}

	if team, _ := resolveFor(t, replay); team != nil {
		t.Fatalf("team = %v, want unresolved", *team)
	}
}

func TestResolve_NoEvidenceMeansUnresolved(t *testing.T) {
	replay := &DecodedReplay{
		Players: []Player{player(1, "Ann", 0), player(2, "Ben", 1)},
	}

	team, diag := resolveFor(t, replay)
	if team != nil {
		t.Fatalf("team = %v, want nil", *team)
	}
	if diag.WinnerSource != "" {
		t.Fatalf("source = %q, want empty", diag.WinnerSource)
	}
}
