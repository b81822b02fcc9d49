package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/duel"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	SettlementPollTimeout = 1 * time.Second
	SettlementMaxAttempts = 10
	SettlementBaseBackoff = 2 * time.Second
	SettlementMaxBackoff  = 1 * time.Minute
)

// SettlementPayload is one retry item on the settlement queue.
type SettlementPayload struct {
	DuelID   string `json:"duel_id"`
	Attempts int    `json:"attempts"`
}

// SettlementWorker retries payouts for duels whose first settlement
// attempt failed. The registry refuses to dispose of unsettled sessions,
// so the worker always finds them alive. Retries are bounded; a duel
// that exhausts them stays unsettled and pinned in the registry until an
// operator intervenes, which is deliberate: money is never written off
// automatically.
type SettlementWorker struct {
	registry *duel.Registry
	rdb      *redis.Client
	log      zerolog.Logger
}

// NewSettlementWorker creates the worker.
func NewSettlementWorker(registry *duel.Registry, rdb *redis.Client, log zerolog.Logger) *SettlementWorker {
	return &SettlementWorker{
		registry: registry,
		rdb:      rdb,
		log:      log.With().Str("component", "settlement_worker").Logger(),
	}
}

// Enqueue schedules a settlement retry for the duel.
func (w *SettlementWorker) Enqueue(ctx context.Context, duelID uuid.UUID) {
	raw, _ := json.Marshal(SettlementPayload{DuelID: duelID.String()})
	if err := w.rdb.RPush(ctx, config.WorkerKey.SettlementRetryQueue, raw).Err(); err != nil {
		w.log.Error().Err(err).
			Str("duel_id", duelID.String()).
			Msg("enqueue settlement retry failed")
	}
}

// Start runs the retry loop until ctx is cancelled.
func (w *SettlementWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SettlementWorker started")

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("SettlementWorker stopped")
			return
		default:
			item, err := w.rdb.BLPop(ctx, SettlementPollTimeout, config.WorkerKey.SettlementRetryQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			var p SettlementPayload
			if err := json.Unmarshal([]byte(item[1]), &p); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			w.process(ctx, p)
		}
	}
}

func (w *SettlementWorker) process(ctx context.Context, p SettlementPayload) {
	duelID, err := uuid.Parse(p.DuelID)
	if err != nil {
		w.log.Error().Str("duel_id", p.DuelID).Msg("unparseable duel id on settlement queue")
		return
	}

	s, err := w.registry.Get(duelID)
	if err != nil {
		// Only settled sessions get disposed, so this means the item was
		// redelivered after success. Nothing to do.
		w.log.Debug().Str("duel_id", p.DuelID).Msg("session gone, assuming settled")
		return
	}

	if err := s.Settle(ctx); err == nil {
		w.log.Info().
			Str("duel_id", p.DuelID).
			Int("attempts", p.Attempts+1).
			Msg("settlement retry succeeded")
		return
	} else if ctx.Err() != nil {
		// Shutting down: push back untouched so the next run resumes.
		raw, _ := json.Marshal(p)
		w.rdb.RPush(context.Background(), config.WorkerKey.SettlementRetryQueue, raw)
		return
	} else {
		p.Attempts++
		if p.Attempts >= SettlementMaxAttempts {
			w.log.Error().
				Str("duel_id", p.DuelID).
				Int("attempts", p.Attempts).
				Msg("settlement retries exhausted, manual intervention required")
			return
		}

		backoff := SettlementBaseBackoff << (p.Attempts - 1)
		if backoff > SettlementMaxBackoff {
			backoff = SettlementMaxBackoff
		}
		w.log.Warn().
			Str("duel_id", p.DuelID).
			Int("attempts", p.Attempts).
			Dur("backoff", backoff).
			Msg("settlement retry failed, rescheduling")

		// Delay off the worker loop so other duels are not held up.
		go func(p SettlementPayload, d time.Duration) {
			timer := time.NewTimer(d)
			defer timer.Stop()
			select {
			case <-ctx.Done():
			case <-timer.C:
			}
			raw, _ := json.Marshal(p)
			w.rdb.RPush(context.Background(), config.WorkerKey.SettlementRetryQueue, raw)
		}(p, backoff)
	}
}
