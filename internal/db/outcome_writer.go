package db

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"outcomeworker/internal/derive"
)

// OutcomeWriter persists derived match outcomes.
type OutcomeWriter struct {
	pool *pgxpool.Pool
}

// NewOutcomeWriter creates a new outcome writer.
func NewOutcomeWriter(pool *pgxpool.Pool) *OutcomeWriter {
	return &OutcomeWriter{pool: pool}
}

// WriteOutcome stores the outcome, per-player results, and the accepted
// telemetry audit rows in one transaction. Existing rows for the replay are
// purged first so re-running a job is idempotent; a global advisory lock
// serializes writes with the decoder service, which touches the same
// replay tables.
func (w *OutcomeWriter) WriteOutcome(ctx context.Context, replayID uuid.UUID, outcome *derive.MatchOutcome) error {
	tx, err := w.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Lock key: shared constant "outcome_write" used by every writer of
	// the outcome tables.
	const globalWriteLockKey int64 = 0x6f7574636f6d6521
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, globalWriteLockKey); err != nil {
		return fmt.Errorf("acquire global write lock: %w", err)
	}

	if err := purgeOutcome(ctx, tx, replayID); err != nil {
		return fmt.Errorf("purge outcome: %w", err)
	}

	now := time.Now().UTC()

	if err := insertOutcome(ctx, tx, replayID, outcome, now); err != nil {
		return fmt.Errorf("insert outcome: %w", err)
	}

	if err := insertPlayerResults(ctx, tx, replayID, outcome.Players, now); err != nil {
		return fmt.Errorf("insert player results: %w", err)
	}

	if err := insertTelemetryAudit(ctx, tx, replayID, outcome.Telemetry); err != nil {
		return fmt.Errorf("insert telemetry audit: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// purgeOutcome deletes existing derived data for a replay.
// Order: reverse of FK dependencies.
func purgeOutcome(ctx context.Context, tx pgx.Tx, replayID uuid.UUID) error {
	if _, err := tx.Exec(ctx, `DELETE FROM outcome_telemetry_audit WHERE replay_id = $1`, replayID); err != nil {
		return fmt.Errorf("purge outcome_telemetry_audit: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM match_player_results WHERE replay_id = $1`, replayID); err != nil {
		return fmt.Errorf("purge match_player_results: %w", err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM match_outcomes WHERE replay_id = $1`, replayID); err != nil {
		return fmt.Errorf("purge match_outcomes: %w", err)
	}

	return nil
}

func insertOutcome(ctx context.Context, tx pgx.Tx, replayID uuid.UUID, outcome *derive.MatchOutcome, now time.Time) error {
	_, err := tx.Exec(ctx, `
		INSERT INTO match_outcomes (
			replay_id, match_id, played_at, game_name, map_name, creator,
			category, duration_seconds, winning_team_id, winner_source,
			telemetry_accepted, telemetry_discarded, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`, replayID, outcome.MatchID, outcome.PlayedAt, outcome.GameName,
		outcome.MapName, outcome.Creator, outcome.Category,
		outcome.DurationSeconds, outcome.WinningTeamID,
		nullIfEmpty(outcome.Diagnostics.WinnerSource),
		outcome.Diagnostics.TelemetryAccepted,
		outcome.Diagnostics.TelemetryDiscarded, now)
	return err
}

// insertPlayerResults inserts per-player rows using the COPY protocol.
func insertPlayerResults(ctx context.Context, tx pgx.Tx, replayID uuid.UUID, players []derive.PlayerRecord, now time.Time) error {
	if len(players) == 0 {
		return nil
	}

	columns := []string{
		"id", "replay_id", "pid", "name", "team_id", "flag",
		"kills", "deaths", "assists", "gold", "damage_dealt", "damage_taken",
		"random_class", "class", "created_at",
	}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"match_player_results"},
		columns,
		pgx.CopyFromSlice(len(players), func(i int) ([]any, error) {
			p := players[i]
			return []any{
				uuid.New(), replayID, p.PlayerID, p.Name, p.TeamID, string(p.Flag),
				p.Stats.Kills, p.Stats.Deaths, p.Stats.Assists, p.Stats.Gold,
				p.Stats.DamageDealt, p.Stats.DamageTaken,
				p.Stats.RandomClass, p.Stats.Class, now,
			}, nil
		}),
	)
	return err
}

// insertTelemetryAudit stores the accepted raw entries so derivation
// decisions can be audited without re-decoding the replay.
func insertTelemetryAudit(ctx context.Context, tx pgx.Tx, replayID uuid.UUID, entries []derive.Entry) error {
	if len(entries) == 0 {
		return nil
	}

	columns := []string{"id", "replay_id", "seq", "mission_key", "key", "value_num", "value_text"}

	_, err := tx.CopyFrom(
		ctx,
		pgx.Identifier{"outcome_telemetry_audit"},
		columns,
		pgx.CopyFromSlice(len(entries), func(i int) ([]any, error) {
			e := entries[i]
			var (
				valueNum  *float64
				valueText *string
			)
			if n, ok := e.Value.Num(); ok {
				valueNum = &n
			} else {
				s := e.Value.String()
				valueText = &s
			}
			return []any{
				uuid.New(), replayID, i, e.MissionKey, e.Key, valueNum, valueText,
			}, nil
		}),
	)
	return err
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
