package derive

import (
	"time"
)

// Player is one roster entry extracted from the decoded replay.
// Result, Status and Won are optional markers some engine versions attach
// to the player record itself; empty string / nil means not present.
type Player struct {
	ID     int
	Name   string
	TeamID int
	Result string // "win" / "loss" when present
	Status string // "winner" / "loser" when present
	Won    *bool
}

// DecodedReplay holds the primitives the upstream decoder extracts from a
// replay container. Pointer fields are absent when the decoder could not
// populate them; DurationMS may be NaN for corrupt headers.
type DecodedReplay struct {
	RandomSeed    int64
	GameName      string
	MapPath       string
	MapFile       string
	Creator       string
	DurationMS    float64
	WinningTeamID *int
	WinnerTeamID  *int
	Players       []Player
	Telemetry     []Entry
}

// Options carries caller-supplied fallbacks used only when the decoded
// replay lacks the corresponding field.
type Options struct {
	MatchID  int64     // scheduled match id; overrides the replay random seed
	PlayedAt time.Time // fallback timestamp; zero means "now"
	Category string    // fallback category; empty means derive from team sizes
}

// Flag classifies one player's outcome. Drawer is the explicit
// "unresolved" state, distinct from a competitive draw.
type Flag string

const (
	FlagWinner Flag = "winner"
	FlagLoser  Flag = "loser"
	FlagDrawer Flag = "drawer"
)

// PlayerRecord is the assembled per-player result.
type PlayerRecord struct {
	PlayerID int
	Name     string
	TeamID   int
	Flag     Flag
	Stats    DerivedStats
}

// MatchOutcome is the root derivation result. WinningTeamID is nil when no
// evidence source resolved a winner; that state is deliberate and must be
// surfaced to consumers, never defaulted.
type MatchOutcome struct {
	MatchID         int64
	PlayedAt        time.Time
	GameName        string
	MapName         string
	Creator         string
	Category        string
	DurationSeconds int
	WinningTeamID   *int
	Players         []PlayerRecord
	Telemetry       []Entry // accepted raw entries, kept for auditing
	Lookup          *Lookup // built lookup, kept for auditing
	Diagnostics     Diagnostics
}

// SignalMatch records one telemetry winner/loser signal that resolved to a
// player, for diagnostics only.
type SignalMatch struct {
	PlayerID   int
	MissionKey string
	Key        string
}

// Diagnostics accumulates per-derivation observability data. It is local to
// one call; the engine keeps no process-wide state.
type Diagnostics struct {
	TelemetryAccepted  int
	TelemetryDiscarded int
	WinnerSource       string // resolver that produced the winner, "" if unresolved
	WinnerSignals      []SignalMatch
	LoserSignals       []SignalMatch
	DrawerPlayerIDs    []int // players that exhausted every flag fallback
}
