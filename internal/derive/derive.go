package derive

import (
	"errors"
	"fmt"
	"time"
)

// ErrInsufficientPlayers is returned when the decoded replay carries fewer
// than two players. Derivation refuses to proceed on such input.
var ErrInsufficientPlayers = errors.New("replay does not contain at least two players")

// Derive turns decoded replay primitives into a canonical MatchOutcome.
// This is the main orchestrator; the whole pipeline is a pure, synchronous,
// single-pass transformation with no state shared across calls, so callers
// may run derivations for many matches concurrently.
func Derive(replay *DecodedReplay, opts Options) (*MatchOutcome, error) {
	if replay == nil {
		return nil, fmt.Errorf("nil replay")
	}
	if len(replay.Players) < 2 {
		return nil, ErrInsufficientPlayers
	}

	var diag Diagnostics

	// Step 1: index the free-form telemetry.
	lookup, accepted, discarded := BuildLookup(replay.Telemetry)
	diag.TelemetryAccepted = len(accepted)
	diag.TelemetryDiscarded = discarded

	// Step 2: bridge mission keys to roster players.
	matcher := NewMatcher(lookup, replay.Players)

	// Step 3: project recognized stat keys per player.
	stats := ProjectStats(replay.Players, lookup, matcher, DefaultStatTable())

	// Step 4: run the winner evidence cascade.
	winningTeamID := ResolveWinningTeam(replay, matcher, lookup, &diag)

	// Step 5: classify every player.
	flags := AssignFlags(replay.Players, winningTeamID, matcher, lookup, &diag)

	records := make([]PlayerRecord, 0, len(replay.Players))
	for _, p := range replay.Players {
		name := p.Name
		if name == "" {
			name = fmt.Sprintf("Player %d", p.ID)
		}
		records = append(records, PlayerRecord{
			PlayerID: p.ID,
			Name:     name,
			TeamID:   p.TeamID,
			Flag:     flags[p.ID],
			Stats:    stats[p.ID],
		})
	}

	category := opts.Category
	if category == "" {
		category = DeriveCategory(replay.Players)
	}

	return &MatchOutcome{
		MatchID:         deriveMatchID(replay, opts),
		PlayedAt:        derivePlayedAt(opts),
		GameName:        deriveGameName(replay),
		MapName:         deriveMapName(replay),
		Creator:         orUnknown(replay.Creator),
		Category:        category,
		DurationSeconds: DurationSeconds(replay.DurationMS),
		WinningTeamID:   winningTeamID,
		Players:         records,
		Telemetry:       accepted,
		Lookup:          lookup,
		Diagnostics:     diag,
	}, nil
}

func deriveMatchID(replay *DecodedReplay, opts Options) int64 {
	if opts.MatchID != 0 {
		return opts.MatchID
	}
	if replay.RandomSeed != 0 {
		return replay.RandomSeed
	}
	return time.Now().UnixMilli()
}

func derivePlayedAt(opts Options) time.Time {
	if !opts.PlayedAt.IsZero() {
		return opts.PlayedAt
	}
	return time.Now().UTC()
}

func deriveGameName(replay *DecodedReplay) string {
	if replay.GameName != "" {
		return replay.GameName
	}
	if replay.RandomSeed != 0 {
		return fmt.Sprintf("Replay %d", replay.RandomSeed)
	}
	return "Replay unknown"
}

func deriveMapName(replay *DecodedReplay) string {
	if replay.MapPath != "" {
		return replay.MapPath
	}
	return orUnknown(replay.MapFile)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
