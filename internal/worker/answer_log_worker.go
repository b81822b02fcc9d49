package worker

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kuisduel/kuisduel-backend/internal/config"
	"github.com/kuisduel/kuisduel-backend/internal/model"
	"github.com/kuisduel/kuisduel-backend/internal/repository"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	AnswerBatchSize    = 50
	AnswerBatchTimeout = 2 * time.Second
	AnswerPollTimeout  = 1 * time.Second
)

// AnswerQueue is the producer side of the answer log pipeline. The
// session engine hands it records synchronously from inside the duel
// lock, so the Redis push happens on a separate goroutine and never
// blocks gameplay.
type AnswerQueue struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewAnswerQueue creates the producer.
func NewAnswerQueue(rdb *redis.Client, log zerolog.Logger) *AnswerQueue {
	return &AnswerQueue{
		rdb: rdb,
		log: log.With().Str("component", "answer_queue").Logger(),
	}
}

// EnqueueAnswer pushes one answer record onto the persistence queue.
func (q *AnswerQueue) EnqueueAnswer(a model.DuelAnswer) {
	raw, err := json.Marshal(a)
	if err != nil {
		q.log.Error().Err(err).Msg("marshal answer payload")
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := q.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
			q.log.Error().Err(err).Msg("enqueue answer failed, record lost")
		}
	}()
}

// AnswerLogWorker drains the persistence queue and batch-inserts answer
// rows into PostgreSQL.
type AnswerLogWorker struct {
	repo *repository.DuelRepository
	rdb  *redis.Client
	log  zerolog.Logger
}

// NewAnswerLogWorker creates the consumer.
func NewAnswerLogWorker(repo *repository.DuelRepository, rdb *redis.Client, log zerolog.Logger) *AnswerLogWorker {
	return &AnswerLogWorker{
		repo: repo,
		rdb:  rdb,
		log:  log.With().Str("component", "answer_log_worker").Logger(),
	}
}

// Start runs the worker loop with batching until ctx is cancelled. The
// remaining batch is flushed on shutdown.
func (w *AnswerLogWorker) Start(ctx context.Context) {
	w.log.Info().Msg("AnswerLogWorker started")

	batch := make([]model.DuelAnswer, 0, AnswerBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= AnswerBatchSize || time.Since(lastFlush) >= AnswerBatchTimeout) {

			w.flushSafe(ctx, batch)
			batch = batch[:0]
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			w.log.Info().Msg("Shutdown requested. Flushing remaining batch...")
			w.flushSafe(context.Background(), batch)
			return

		default:
			item, err := w.rdb.BLPop(ctx, AnswerPollTimeout, config.WorkerKey.PersistAnswersQueue).Result()
			if err != nil {
				if err != redis.Nil && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}

			if len(item) < 2 {
				continue
			}

			var a model.DuelAnswer
			if err := json.Unmarshal([]byte(item[1]), &a); err != nil {
				w.log.Error().Err(err).Msg("Invalid JSON payload")
				continue
			}

			batch = append(batch, a)
		}
	}
}

// flushSafe batch-inserts, falling back to per-row inserts so one bad
// row cannot sink the whole batch. Rows that still fail are requeued.
func (w *AnswerLogWorker) flushSafe(ctx context.Context, batch []model.DuelAnswer) {
	if len(batch) == 0 {
		return
	}

	if err := w.repo.InsertAnswers(ctx, batch); err != nil {
		w.log.Warn().Err(err).Msg("bulk answer insert failed, using fallback")

		for _, a := range batch {
			if err := w.repo.InsertAnswers(ctx, []model.DuelAnswer{a}); err != nil {
				w.log.Error().Err(err).
					Str("duel_id", a.DuelID.String()).
					Int("player_id", a.PlayerID).
					Msg("single answer insert failed, requeueing")
				raw, _ := json.Marshal(a)
				w.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw)
			}
		}
	}
}
