package processor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"outcomeworker/internal/db"
	"outcomeworker/internal/derive"
	"outcomeworker/internal/logging"
)

// JobPayload represents the incoming job from the Redis queue.
type JobPayload struct {
	ReplayID string `json:"replay_id"`
	// Optional scheduled-match override applied when the decoded replay
	// lacks the corresponding fields.
	ScheduledMatchID int64  `json:"scheduled_match_id,omitempty"`
	FallbackDatetime string `json:"fallback_datetime,omitempty"`
	FallbackCategory string `json:"fallback_category,omitempty"`
}

// Notifier announces a finished derivation to downstream consumers.
type Notifier interface {
	NotifyOutcome(ctx context.Context, replayID uuid.UUID) error
}

// DeriveProcessor handles outcome derivation jobs.
type DeriveProcessor struct {
	ctx      context.Context
	reader   *db.ReplayReader
	writer   *db.OutcomeWriter
	notifier Notifier
}

// NewDeriveProcessor creates a new derivation processor. notifier may be
// nil when no downstream announcement is wanted.
func NewDeriveProcessor(ctx context.Context, reader *db.ReplayReader, writer *db.OutcomeWriter, notifier Notifier) *DeriveProcessor {
	return &DeriveProcessor{
		ctx:      ctx,
		reader:   reader,
		writer:   writer,
		notifier: notifier,
	}
}

// Handle processes a single derivation job from the queue.
func (p *DeriveProcessor) Handle(payload []byte) error {
	logger := logging.Logger()
	startTime := time.Now()

	var job JobPayload
	if err := json.Unmarshal(payload, &job); err != nil {
		return fmt.Errorf("unmarshal job payload: %w", err)
	}

	replayID, err := uuid.Parse(job.ReplayID)
	if err != nil {
		return fmt.Errorf("parse replay_id: %w", err)
	}

	logger.Infof("processing derivation job for replay %s", replayID)

	exists, err := p.reader.ReplayExists(p.ctx, replayID)
	if err != nil {
		return fmt.Errorf("check replay exists: %w", err)
	}
	if !exists {
		logger.Warnf("replay %s not found, skipping", replayID)
		return nil
	}

	replay, err := p.reader.GetDecodedReplay(p.ctx, replayID)
	if err != nil {
		return fmt.Errorf("get decoded replay: %w", err)
	}

	logger.Infof("loaded decoded replay: %d players, %d telemetry entries",
		len(replay.Players), len(replay.Telemetry))

	outcome, err := derive.Derive(replay, jobOptions(job))
	if err != nil {
		if errors.Is(err, derive.ErrInsufficientPlayers) {
			// Bad source data, not a transient failure. Retrying would
			// loop the same replay through the retry queue forever.
			logger.Warnf("replay %s rejected: %v", replayID, err)
			return nil
		}
		return fmt.Errorf("derive outcome: %w", err)
	}

	logDerivation(logger, replayID, outcome)

	if err := p.writer.WriteOutcome(p.ctx, replayID, outcome); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}

	if p.notifier != nil {
		if err := p.notifier.NotifyOutcome(p.ctx, replayID); err != nil {
			// Outcome is already persisted; downstream can catch up later.
			logger.Warnf("downstream notify failed for replay %s: %v", replayID, err)
		}
	}

	elapsed := time.Since(startTime)
	logger.Infof("derivation job completed for replay %s in %v", replayID, elapsed)

	return nil
}

func jobOptions(job JobPayload) derive.Options {
	opts := derive.Options{
		MatchID:  job.ScheduledMatchID,
		Category: job.FallbackCategory,
	}
	if job.FallbackDatetime != "" {
		if ts, err := time.Parse(time.RFC3339, job.FallbackDatetime); err == nil {
			opts.PlayedAt = ts
		}
	}
	return opts
}

// logDerivation reports the soft-ambiguity diagnostics the engine collects:
// which evidence source decided the winner, every telemetry signal that
// matched, and any player whose flag fell through to drawer.
func logDerivation(logger logging.Interface, replayID uuid.UUID, outcome *derive.MatchOutcome) {
	diag := outcome.Diagnostics

	logger.Infof("telemetry ingested for replay %s: %d accepted, %d discarded, %d buckets",
		replayID, diag.TelemetryAccepted, diag.TelemetryDiscarded, outcome.Lookup.Len())

	if outcome.WinningTeamID != nil {
		logger.Infof("winning team %d resolved from %s (%d winner signals, %d loser signals)",
			*outcome.WinningTeamID, diag.WinnerSource,
			len(diag.WinnerSignals), len(diag.LoserSignals))
	} else {
		logger.Warnf("no winning team resolvable for replay %s, outcome left unresolved", replayID)
	}

	flagCounts := make(map[derive.Flag]int)
	for _, pr := range outcome.Players {
		flagCounts[pr.Flag]++
	}
	logger.Infof("flag distribution for replay %s: %d winner, %d loser, %d drawer",
		replayID, flagCounts[derive.FlagWinner], flagCounts[derive.FlagLoser], flagCounts[derive.FlagDrawer])

	if len(diag.DrawerPlayerIDs) > 0 {
		logger.Warnf("players %v defaulted to drawer for replay %s", diag.DrawerPlayerIDs, replayID)
	}
}
