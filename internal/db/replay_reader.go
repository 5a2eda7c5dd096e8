package db

import (
	"context"
	"fmt"
	"math"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"outcomeworker/internal/derive"
)

// ReplayReader provides read-only access to the decoded replay tables the
// upstream decoder service populates.
type ReplayReader struct {
	pool *pgxpool.Pool
}

// NewReplayReader creates a new decoded-replay reader.
func NewReplayReader(pool *pgxpool.Pool) *ReplayReader {
	return &ReplayReader{pool: pool}
}

// ReplayExists checks whether a decoded replay row exists.
func (r *ReplayReader) ReplayExists(ctx context.Context, replayID uuid.UUID) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM replays WHERE id = $1)
	`, replayID).Scan(&exists)
	return exists, err
}

// GetDecodedReplay retrieves the decoded header, roster, and telemetry log
// for a replay. Telemetry rows come back in ingest order so duplicate
// (missionKey, key) pairs resolve to the first entry deterministically.
func (r *ReplayReader) GetDecodedReplay(ctx context.Context, replayID uuid.UUID) (*derive.DecodedReplay, error) {
	replay := &derive.DecodedReplay{}

	var durationMS *float64
	err := r.pool.QueryRow(ctx, `
		SELECT random_seed, game_name, map_path, map_file, creator,
		       duration_ms, winning_team_id, winner_team_id
		FROM replays
		WHERE id = $1
	`, replayID).Scan(&replay.RandomSeed, &replay.GameName, &replay.MapPath,
		&replay.MapFile, &replay.Creator, &durationMS,
		&replay.WinningTeamID, &replay.WinnerTeamID)
	if err != nil {
		return nil, fmt.Errorf("get replay header: %w", err)
	}
	if durationMS != nil {
		replay.DurationMS = *durationMS
	} else {
		replay.DurationMS = math.NaN()
	}

	players, err := r.getPlayers(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("get replay players: %w", err)
	}
	replay.Players = players

	telemetry, err := r.getTelemetry(ctx, replayID)
	if err != nil {
		return nil, fmt.Errorf("get replay telemetry: %w", err)
	}
	replay.Telemetry = telemetry

	return replay, nil
}

// getPlayers retrieves the roster in slot order.
func (r *ReplayReader) getPlayers(ctx context.Context, replayID uuid.UUID) ([]derive.Player, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT pid, COALESCE(name, ''), team_id,
		       COALESCE(result, ''), COALESCE(status, ''), won
		FROM replay_players
		WHERE replay_id = $1
		ORDER BY pid
	`, replayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var players []derive.Player
	for rows.Next() {
		var p derive.Player
		if err := rows.Scan(&p.ID, &p.Name, &p.TeamID, &p.Result, &p.Status, &p.Won); err != nil {
			return nil, err
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

// getTelemetry retrieves the raw telemetry log in ingest order. A row
// carries either a numeric or a textual value; NULL mission keys and stat
// keys become empty strings and get discarded by the lookup builder.
func (r *ReplayReader) getTelemetry(ctx context.Context, replayID uuid.UUID) ([]derive.Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT COALESCE(mission_key, ''), COALESCE(key, ''), value_num, value_text
		FROM replay_telemetry
		WHERE replay_id = $1
		ORDER BY seq
	`, replayID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []derive.Entry
	for rows.Next() {
		var (
			e         derive.Entry
			valueNum  *float64
			valueText *string
		)
		if err := rows.Scan(&e.MissionKey, &e.Key, &valueNum, &valueText); err != nil {
			return nil, err
		}
		switch {
		case valueNum != nil:
			e.Value = derive.Number(*valueNum)
		case valueText != nil:
			e.Value = derive.Text(*valueText)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
